package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/thinkparq/devctl/common/ioctl"
	"github.com/thinkparq/devctl/ctl/internal/cmdfmt"
	"github.com/thinkparq/devctl/ctl/internal/config"
	"github.com/thinkparq/devctl/ctl/internal/util"
)

var cmdColumns = []string{"cmd", "name", "dir", "group", "num", "size"}

func cmdRow(c ioctl.Cmd) []any {
	name, _ := ioctl.NameOf(c)
	f := ioctl.Decode(c)
	return []any{
		fmt.Sprintf("0x%08x", uint32(c)),
		name,
		f.Dir.String(),
		formatGroup(f.Group),
		f.Num,
		util.FormatSize(f.Size, viper.GetBool(config.RawKey)),
	}
}

func formatGroup(g uint8) string {
	if strconv.IsPrint(rune(g)) && g < 0x80 {
		return fmt.Sprintf("'%c'", g)
	}
	return fmt.Sprintf("0x%02x", g)
}

func newEncodeCmd() *cobra.Command {
	var (
		group string
		num   uint8
		size  uint32
	)
	dir := util.ValidatedStringFlag(util.DirOptions, ioctl.DirNone)

	cmd := &cobra.Command{
		Use:   "encode",
		Short: "Build a command word from its fields.",
		Example: `  devctl encode --dir out --group f --num 127 --size 4
  devctl encode --dir in --group T --num 0x31 --size 4`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			g, err := util.ParseGroup(group)
			if err != nil {
				return err
			}
			c, err := ioctl.Encode(dir.Value().(ioctl.Dir), g, num, size)
			if err != nil {
				return err
			}
			tbl := cmdfmt.NewPrintomaticTo(cmd.OutOrStdout(), cmdColumns, cmdColumns)
			tbl.AddItem(cmdRow(c)...)
			tbl.PrintRemaining()
			return nil
		},
	}

	cmd.Flags().Var(dir, "dir", fmt.Sprintf("Direction of the data transfer %v.", util.DirOptions))
	cmd.Flags().StringVar(&group, "group", "", "Group of the request, a single character or a number.")
	cmd.Flags().Uint8Var(&num, "num", 0, "Number of the request within the group.")
	util.SizeVar(cmd.Flags(), &size, "size", "", "0", "Size of the data transferred with the request.")
	cmd.MarkFlagRequired("group")
	return cmd
}

func newDecodeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "decode <cmd> [<cmd>...]",
		Short: "Split command words into their fields.",
		Long: `Split command words into their fields.
Command words can be given as a number (for example 0x4004667f) or as the name of a well known request.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmds := make([]ioctl.Cmd, 0, len(args))
			for _, a := range args {
				c, err := util.ParseCmd(a)
				if err != nil {
					return err
				}
				cmds = append(cmds, c)
			}
			tbl := cmdfmt.NewPrintomaticTo(cmd.OutOrStdout(), cmdColumns, cmdColumns)
			for _, c := range cmds {
				tbl.AddItem(cmdRow(c)...)
			}
			tbl.PrintRemaining()
			return nil
		},
	}
}

func newRequestsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "requests",
		Short: "List the well known requests.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			columns := append(append([]string{}, cmdColumns...), "description")
			tbl := cmdfmt.NewPrintomaticTo(cmd.OutOrStdout(), columns, columns)
			for _, k := range ioctl.Known {
				tbl.AddItem(append(cmdRow(k.Cmd), k.Description)...)
			}
			tbl.PrintRemaining()
			return nil
		},
	}
}
