package cmd

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	cmdConfig "github.com/thinkparq/devctl/ctl/internal/config"
	"github.com/thinkparq/devctl/ctl/internal/util"
)

// Execute is the main entry point of the tool. It returns the exit code.
func Execute() int {
	return int(util.ExitCodeOf(execute(context.Background(), nil, nil)))
}

// execute runs the root command with args (os.Args when nil) printing to out (stdout when nil).
func execute(ctx context.Context, args []string, out io.Writer) error {
	cmd := newRootCmd()
	if args != nil {
		cmd.SetArgs(args)
	}
	if out != nil {
		cmd.SetOut(out)
	}
	defer cmdConfig.Cleanup()
	return cmd.ExecuteContext(ctx)
}

func newRootCmd() *cobra.Command {
	longHelpHeader := fmt.Sprintf("Device Control Tool: %s", Version)
	cmd := &cobra.Command{
		Use:   BinaryName,
		Short: "Inspect, serve and issue device control requests.",
		Long: fmt.Sprintf(`%s
%s
This tool encodes and decodes ioctl command words, runs a device server on a unix socket and issues
device control requests against it.

* View help for specific commands with "<command> help".
`, longHelpHeader, strings.Repeat("=", len(longHelpHeader))),
		SilenceUsage: true,
	}

	// Makes the program accept case insensitive flags.
	cmd.SetGlobalNormalizationFunc(func(f *pflag.FlagSet, name string) pflag.NormalizedName {
		return pflag.NormalizedName(strings.ToLower(name))
	})

	cmdConfig.InitGlobalFlags(cmd)

	cmd.AddCommand(newVersionCmd())
	cmd.AddCommand(newEncodeCmd())
	cmd.AddCommand(newDecodeCmd())
	cmd.AddCommand(newRequestsCmd())
	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newCallCmd())
	return cmd
}
