package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/coreblocks/apfscore/pkg/extent"
)

var mapCmd = &cobra.Command{
	Use:   "map <image> <inode-oid> <logical-block>",
	Short: "Resolve (inode, logical block) to a physical block or hole",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		extentOid, err := strconv.ParseUint(args[1], 10, 64)
		if err != nil {
			return fmt.Errorf("parse inode oid: %w", err)
		}
		iblock, err := strconv.ParseUint(args[2], 10, 64)
		if err != nil {
			return fmt.Errorf("parse logical block: %w", err)
		}

		m, dev, err := openMount(args[0])
		if err != nil {
			return err
		}
		defer dev.Close()

		res := &extent.Resolver{
			Reader:      m.Reader,
			VolOmapRoot: m.VolumeOmapRoot,
			CatalogRoot: m.CatalogRoot,
			BlockSize:   m.Nx.NxBlockSize,
		}
		inode := &extent.Inode{ExtentOid: extentOid}

		mapping, err := res.GetBlock(inode, iblock, uint64(m.Nx.NxBlockSize), false)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if mapping.Hole {
			fmt.Fprintf(out, "hole, mapped_bytes=%d\n", mapping.MappedBytes)
			return nil
		}
		fmt.Fprintf(out, "phys_block=%d, mapped_bytes=%d\n", mapping.PhysBlock, mapping.MappedBytes)
		return nil
	},
}
