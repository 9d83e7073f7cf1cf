package cmd

import (
	"context"
	"encoding/binary"
	"encoding/hex"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/thinkparq/devctl/common/devclient"
	"github.com/thinkparq/devctl/common/devmsg"
	"github.com/thinkparq/devctl/common/ioctl"
	"github.com/thinkparq/devctl/common/logger"
	"github.com/thinkparq/devctl/common/port"
	"github.com/thinkparq/devctl/ctl/internal/cmdfmt"
	"github.com/thinkparq/devctl/ctl/internal/config"
	"github.com/thinkparq/devctl/ctl/internal/util"
	"go.uber.org/zap"
)

type callCfg struct {
	data     string
	value    uint64
	valueSet bool
	oid      devmsg.OID
	open     bool
	flags    uint32
	dump     bool
}

func newCallCmd() *cobra.Command {
	cfg := callCfg{}

	cmd := &cobra.Command{
		Use:   "call <request>",
		Short: "Issue a device control request against a device server.",
		Long: `Issue a device control request against the device server listening on --socket.

The request is given as a number (for example 0x4004667f) or as the name of a well known request.
Its direction and size decide what is sent. Integers are little endian.
  none  nothing, or --value when the request has a size
  in    --data, or --value encoded with the size of the request
  out   nothing, the response is printed
  inout --data (or --value), the response is printed`,
		Example: `  devctl call TIOCGPTN
  devctl call TIOCSPTLCK --value 1
  devctl call 0xc0085401 --data 0102030405060708`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := util.ParseCmd(args[0])
			if err != nil {
				return err
			}
			cfg.valueSet = cmd.Flags().Changed("value")
			return runCall(cmd, c, cfg)
		},
	}

	cmd.Flags().StringVar(&cfg.data, "data", "", "Input data of the request as hex.")
	cmd.Flags().Uint64Var(&cfg.value, "value", 0, "Input of the request as an integer.")
	cmd.Flags().Uint32Var(&cfg.oid.Port, "port", 1, "Port of the object the request is sent to.")
	cmd.Flags().Uint64Var(&cfg.oid.ID, "id", 0, "ID of the object the request is sent to.")
	cmd.Flags().BoolVar(&cfg.open, "open", false, "Open the object before the request and close it afterwards.")
	cmd.Flags().Uint32Var(&cfg.flags, "open-flags", 0, "Flags used with --open.")
	cmd.Flags().BoolVar(&cfg.dump, "dump", false, "Write only the response data: a hex dump on terminals, the raw bytes otherwise.")
	return cmd
}

// Integers passed through --value and printed from small responses are little endian, like the
// devices served by "devctl serve".
func encodeValue(v uint64, size uint32) []byte {
	buf := make([]byte, 8)
	binary.LittleEndian.PutUint64(buf, v)
	return buf[:size]
}

func decodeValue(b []byte) uint64 {
	buf := make([]byte, 8)
	copy(buf, b)
	return binary.LittleEndian.Uint64(buf)
}

// buildArg returns the argument matching the direction and size of c.
func buildArg(c ioctl.Cmd, cfg callCfg) (ioctl.Arg, []byte, error) {
	size := c.Size()

	input := func() ([]byte, error) {
		switch {
		case cfg.data != "" && cfg.valueSet:
			return nil, fmt.Errorf("only one of --data and --value can be specified")
		case cfg.data != "":
			data, err := util.ParseHexData(cfg.data)
			if err != nil {
				return nil, err
			}
			if len(data) != int(size) {
				return nil, fmt.Errorf("request %s takes %d bytes of data, got %d", c, size, len(data))
			}
			return data, nil
		case size > 8:
			return nil, fmt.Errorf("request %s takes %d bytes of data, specify them with --data", c, size)
		default:
			return encodeValue(cfg.value, size), nil
		}
	}

	switch c.Dir() {
	case ioctl.DirNone:
		if cfg.data != "" {
			return ioctl.Arg{}, nil, fmt.Errorf("request %s does not take data, use --value", c)
		}
		if size == 0 {
			return ioctl.NoArg(), nil, nil
		}
		return ioctl.Value(cfg.value), nil, nil
	case ioctl.DirIn:
		data, err := input()
		if err != nil {
			return ioctl.Arg{}, nil, err
		}
		return ioctl.In(data), nil, nil
	case ioctl.DirOut:
		if cfg.data != "" || cfg.valueSet {
			return ioctl.Arg{}, nil, fmt.Errorf("request %s only returns data, --data and --value are not allowed", c)
		}
		buf := make([]byte, size)
		return ioctl.Out(buf), buf, nil
	default:
		data, err := input()
		if err != nil {
			return ioctl.Arg{}, nil, err
		}
		return ioctl.InOut(data), data, nil
	}
}

func cliLogger() (*zap.Logger, error) {
	level := viper.GetInt(config.LogLevelKey)
	if level <= 0 {
		return zap.NewNop(), nil
	}
	l, err := logger.New(logger.Config{Type: logger.StdErr, Level: int8(level)})
	if err != nil {
		return nil, err
	}
	return l.Logger, nil
}

func runCall(cmd *cobra.Command, c ioctl.Cmd, cfg callCfg) error {
	arg, out, err := buildArg(c, cfg)
	if err != nil {
		return err
	}

	log, err := cliLogger()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), viper.GetDuration(config.TimeoutKey))
	defer cancel()

	caller, err := port.DialUnix(ctx, log, viper.GetString(config.SocketKey))
	if err != nil {
		return fmt.Errorf("unable to connect to the device server: %w", err)
	}
	defer caller.Close()

	client := devclient.New(log)
	var fd int
	if cfg.open {
		if fd, err = client.Open(ctx, caller, cfg.oid, cfg.flags); err != nil {
			return fmt.Errorf("unable to open %d:%d: %w", cfg.oid.Port, cfg.oid.ID, err)
		}
		defer client.Close(ctx, fd)
	} else {
		fd = client.Attach(caller, cfg.oid)
		defer client.Detach(fd)
	}

	if viper.GetBool(config.DebugKey) {
		cmdfmt.Printf("sending %s (%s) to %d:%d through %s\n", c, c.Dir(), cfg.oid.Port, cfg.oid.ID, viper.GetString(config.SocketKey))
	}
	if err := client.Ioctl(ctx, fd, c, arg); err != nil {
		return err
	}

	if cfg.dump {
		return cmdfmt.Dump(cmd.OutOrStdout(), out)
	}

	name, _ := ioctl.NameOf(c)
	columns := []string{"cmd", "name", "status", "value", "data"}
	tbl := cmdfmt.NewPrintomaticTo(cmd.OutOrStdout(), columns, columns)
	value := ""
	if len(out) > 0 && len(out) <= 8 {
		value = fmt.Sprintf("%d", decodeValue(out))
	}
	tbl.AddItem(fmt.Sprintf("0x%08x", uint32(c)), name, "ok", value, hex.EncodeToString(out))
	tbl.PrintRemaining()
	return nil
}
