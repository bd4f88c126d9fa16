package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/coreblocks/apfscore/pkg/statfs"
)

var statCmd = &cobra.Command{
	Use:   "stat <image>",
	Short: "Mount the selected volume (--opts or config; slot 0 by default) and print its statfs report",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		m, dev, err := openMount(args[0])
		if err != nil {
			return err
		}
		defer dev.Close()

		stat, err := statfs.Compute(m)
		if err != nil {
			return err
		}

		if outputFormat == "json" {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(map[string]any{
				"volume_uuid":  m.Vol.ApfsVolUuid.String(),
				"block_size":   stat.BlockSize,
				"total_blocks": stat.TotalBlocks,
				"free_blocks":  stat.FreeBlocks,
				"avail_blocks": stat.AvailBlocks,
				"files":        stat.Files,
				"name_max":     stat.NameMax,
				"fsid":         stat.Fsid,
			})
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "volume uuid:   %s\n", m.Vol.ApfsVolUuid.String())
		fmt.Fprintf(out, "block size:    %d\n", stat.BlockSize)
		fmt.Fprintf(out, "total blocks:  %d\n", stat.TotalBlocks)
		fmt.Fprintf(out, "free blocks:   %d\n", stat.FreeBlocks)
		fmt.Fprintf(out, "avail blocks:  %d\n", stat.AvailBlocks)
		fmt.Fprintf(out, "files:         %d\n", stat.Files)
		fmt.Fprintf(out, "name_max:      %d\n", stat.NameMax)
		fmt.Fprintf(out, "fsid:          %#x\n", stat.Fsid)
		return nil
	},
}
