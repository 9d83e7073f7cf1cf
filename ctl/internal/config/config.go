// Package config handles the command line tool configuration: the global flags shared by all
// commands and the application configuration of the device server started by "devctl serve".
package config

import (
	"fmt"
	"os"
	"reflect"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/thinkparq/devctl/common/configmgr"
	"github.com/thinkparq/devctl/common/devsrv"
	"github.com/thinkparq/devctl/common/logger"
	"github.com/thinkparq/devctl/common/types"
	"github.com/thinkparq/devctl/ctl/internal/util"
)

// Viper keys for the global config. Should be used when accessing it instead of raw strings. They
// are also used as command line flag and environment variable names.
const (
	// Path of the unix socket the device server listens on.
	SocketKey = "socket"
	// Maximum time a single call may take before it is abandoned.
	TimeoutKey = "timeout"
	// Prints values in their raw, base form, without adding units and SI/IEC prefixes.
	RawKey = "raw"
	// Tells the command to print additional, normally hidden info.
	DebugKey = "debug"
	// Set the log level of the command line tool (0 - least verbosity, 5 - highest verbosity).
	LogLevelKey = "log-level"
	// Print only the given columns of a table. "all" prints all available columns.
	ColumnsKey = "columns"
	// Determines the number of rows to be printed before the header is repeated. If set to 0 no
	// header is printed and each row is flushed immediately.
	PageSizeKey = "page-size"
	OutputKey   = "output"
)

// EnvVarPrefix is the prefix of all environment variables read by the tool.
const EnvVarPrefix = "DEVCTL_"

// DefaultSocket is used when neither a flag nor the environment set the socket path.
const DefaultSocket = "/run/devctl/devctl.sock"

// OutputType is used to control what type of structured output should be printed.
type OutputType string

const (
	OutputTable      OutputType = "table"
	OutputJSON       OutputType = "json"
	OutputJSONPretty OutputType = "json-pretty"
	OutputNDJSON     OutputType = "ndjson"
)

var (
	OutputOptions = []fmt.Stringer{OutputTable, OutputJSON, OutputJSONPretty, OutputNDJSON}
)

func (t OutputType) String() string {
	switch t {
	case OutputTable:
		return "table"
	case OutputJSON:
		return "json"
	case OutputJSONPretty:
		return "json-pretty"
	case OutputNDJSON:
		return "ndjson"
	default:
		return "unknown"
	}
}

// InitGlobalFlags defines all the global flags and binds them to viper.
func InitGlobalFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().String(SocketKey, DefaultSocket, "Path of the unix socket the device server listens on.")
	cmd.PersistentFlags().Duration(TimeoutKey, 5*time.Second, "Maximum time to wait for the device server to answer a call.")
	cmd.PersistentFlags().Bool(DebugKey, false, "Print additional details that are normally hidden.")
	cmd.PersistentFlags().Bool(RawKey, false, "Print raw values without SI or IEC prefixes.")
	cmd.PersistentFlags().Int8(LogLevelKey, 0, `By default all logging is disabled except for fatal errors.
	Optionally additional logging to stderr can be enabled to assist with debugging (1=Warn, 3=Info, 5=Debug).`)
	cmd.PersistentFlags().StringSlice(ColumnsKey, []string{}, "The table columns to print. Specify 'all' to print all available columns.")
	cmd.PersistentFlags().Uint(PageSizeKey, 100, `The number of table rows before the header is repeated and the output is flushed to stdout.
	If set to 0, prints no header and immediately flushes every row.`)
	cmd.PersistentFlags().Var(util.ValidatedStringFlag(OutputOptions, OutputTable), OutputKey, fmt.Sprintf("How structured output is printed %v.", OutputOptions))

	// Environment variables should start with DEVCTL_ and cannot use "-".
	viper.SetEnvPrefix(strings.TrimSuffix(EnvVarPrefix, "_"))
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))

	cmd.PersistentFlags().VisitAll(func(flag *pflag.Flag) {
		viper.BindEnv(flag.Name)
		viper.BindPFlag(flag.Name, flag)
	})
}

// Cleanup resets the global configuration. Mostly useful for tests executing several commands.
func Cleanup() {
	viper.Reset()
}

// We use ConfigManager to handle configuration updates of the device server.
// Verify all interfaces that depend on AppConfig are satisfied.
var _ configmgr.Configurable = &AppConfig{}
var _ logger.Configurer = &AppConfig{}

// AppConfig defines all configuration supported by "devctl serve".
// IMPORTANT: When updating AppConfig these changes need to be manually applied to the flags defined
// by the serve command.
type AppConfig struct {
	Socket    string        `mapstructure:"socket"`
	Log       logger.Config `mapstructure:"log"`
	Server    devsrv.Config `mapstructure:"server"`
	PTY       PTYConfig     `mapstructure:"pty"`
	Developer struct {
		DumpConfig bool `mapstructure:"dump-config"`
	} `mapstructure:"developer"`
}

// PTYConfig configures the pseudo terminal served by the device server.
type PTYConfig struct {
	Number uint32 `mapstructure:"number"`
}

// GetLoggingConfig returns only the part of an AppConfig expected by the logger.
func (c *AppConfig) GetLoggingConfig() logger.Config {
	return c.Log
}

// NewEmptyInstance returns an empty AppConfig for ConfigManager to use when unmarshalling the
// configuration.
func (c *AppConfig) NewEmptyInstance() configmgr.Configurable {
	return new(AppConfig)
}

// UpdateAllowed rejects changes to anything besides the log level once the server is running.
func (c *AppConfig) UpdateAllowed(newConfig configmgr.Configurable) error {

	nc, ok := newConfig.(*AppConfig)
	if !ok {
		return fmt.Errorf("invalid configuration provided (expected devctl application configuration)")
	}

	if nc.Socket != c.Socket {
		return fmt.Errorf("rejecting configuration update: unable to change the socket after startup (current: %s | proposed: %s)", c.Socket, nc.Socket)
	}
	if nc.Server != c.Server || nc.PTY != c.PTY || nc.Developer != c.Developer {
		return fmt.Errorf("rejecting configuration update: unable to change server or device settings after startup")
	}
	if nc.Log != c.Log {
		// Only the level may change.
		newConfigLog := reflect.ValueOf(nc.Log)
		currentConfigLog := reflect.ValueOf(c.Log)

		for i := 0; i < newConfigLog.NumField(); i++ {
			fieldName := newConfigLog.Type().Field(i).Name
			if fieldName != "Level" && newConfigLog.Field(i).Interface() != currentConfigLog.Field(i).Interface() {
				return fmt.Errorf("rejecting configuration update: unable to change logging configuration settings after startup (current settings: %+v | proposed settings: %+v)", c.Log, nc.Log)
			}
		}
	}

	return nil
}

// ValidateConfig checks we received sane configuration values. Any issues are returned as a
// MultiError. It only performs static checks, for example it does not check the socket directory
// exists.
func (c *AppConfig) ValidateConfig() error {

	var multiErr types.MultiError

	if c.Socket == "" {
		multiErr.Append(fmt.Errorf("the socket path must be specified"))
	}
	if c.Server.Workers < 1 {
		multiErr.Append(fmt.Errorf("server.workers must be at least 1 (provided: %d)", c.Server.Workers))
	}
	if c.Log.Type == logger.LogFile && c.Log.File == "" {
		multiErr.Append(fmt.Errorf("log.file must be specified when log.type is %s", logger.LogFile))
	}

	return multiErr.ErrOrNil()
}

// DumpConfig prints the configuration to stderr.
func (c *AppConfig) DumpConfig() {
	fmt.Fprintf(os.Stderr, "%+v\n", *c)
}
