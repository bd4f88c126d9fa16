package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/coreblocks/apfscore/pkg/apfserr"
)

var (
	// Global persistent flags
	verbose      bool
	quiet        bool
	outputFormat string
	mountOpts    string
)

var rootCmd = &cobra.Command{
	Use:   "apfscore",
	Short: "Read-only Apple File System (APFS) access core",
	Long: `apfscore mounts one volume from a raw disk image or block device and
answers its two core on-disk queries: object-id to physical block (the
object map), and (inode, logical block) to physical block (the file-extent
map). It never writes to the image; journaling, snapshots, encryption,
and compression are out of scope.`,
	Version: "0.1.0-dev",
}

// Execute adds all child commands to the root command and runs it.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(exitCode(err))
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose flag; stat and map output does not change with it")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "quiet flag; stat and map output does not change with it")
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", "table", "output format (table, json); only stat renders json")
	rootCmd.PersistentFlags().StringVar(&mountOpts, "opts", "", "mount option string (vol=/uid=/gid=); defaults come from config when empty")

	rootCmd.AddCommand(statCmd, mapCmd)
}

// exitCode maps a returned error to a process exit status. apfserr.Error
// values map through the same errno-name table the core's boundary layer
// uses for diagnostics; any other error (flag parsing, file-not-found) exits 1.
func exitCode(err error) int {
	ae, ok := err.(*apfserr.Error)
	if !ok {
		return 1
	}
	switch apfserr.ErrnoName(ae.Kind) {
	case "EIO":
		return 5
	case "EFSCORRUPTED":
		return 117
	case "EINVAL":
		return 22
	case "EROFS":
		return 30
	case "ENOMEM":
		return 12
	default:
		return 1
	}
}

// GetVerbose returns the verbose flag value
func GetVerbose() bool {
	return verbose
}

// GetQuiet returns the quiet flag value
func GetQuiet() bool {
	return quiet
}

// GetOutputFormat returns the output format
func GetOutputFormat() string {
	return outputFormat
}
