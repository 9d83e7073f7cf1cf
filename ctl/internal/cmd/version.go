package cmd

import (
	"fmt"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/thinkparq/devctl/ctl/internal/config"
)

// Set by the build process using ldflags.
var (
	BinaryName = "devctl"
	Version    = "local-build"
	Commit     = "unknown"
	BuildTime  = "unknown"
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the command line tool version.",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "Version: %s | Commit %s | Built: %s\n", Version, Commit, BuildTime)

			if viper.GetBool(config.DebugKey) {
				fmt.Fprintln(cmd.OutOrStdout(), "\nDebug Info:")
				fmt.Fprintf(cmd.OutOrStdout(), "* The binary was invoked with the following permissions: euid %d | uid %d | egid %d | gid %d\n",
					syscall.Geteuid(), syscall.Getuid(), syscall.Getegid(), syscall.Getgid())
			}
		},
	}
}
