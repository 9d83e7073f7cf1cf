package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/thinkparq/devctl/common/configmgr"
	"github.com/thinkparq/devctl/common/devices/pty"
	"github.com/thinkparq/devctl/common/devsrv"
	"github.com/thinkparq/devctl/common/logger"
	"github.com/thinkparq/devctl/common/port"
	"github.com/thinkparq/devctl/ctl/internal/config"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve a pseudo terminal device on a unix socket.",
		Long: fmt.Sprintf(`Serve a pseudo terminal device on a unix socket.

Configuration may be set using a mix of flags, environment variables, and values from a TOML
configuration file. It is merged using the following precedence order (highest->lowest):
(1) flags (2) environment variables (3) configuration file (4) defaults.
Environment variables are also read from .env and .env.local in the working directory.

To specify configuration using environment variables specify %sKEY=VALUE where KEY is the flag name
in all capitals replacing dots (.) and hyphens (-) with underscores (_).
Examples:
	export %sLOG_LEVEL=5
	export %sCFG_FILE=/etc/devctl/devctl.toml

The log level can be changed without a restart by sending a hangup signal (SIGHUP).`,
			config.EnvVarPrefix, config.EnvVarPrefix, config.EnvVarPrefix),
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			// Existing environment variables take precedence over both files.
			_ = godotenv.Load(".env")
			_ = godotenv.Load(".env.local")

			cfgMgr, err := configmgr.New(cmd.Flags(), config.EnvVarPrefix, &config.AppConfig{})
			if err != nil {
				return fmt.Errorf("unable to get initial configuration: %w", err)
			}
			initialCfg, ok := cfgMgr.Get().(*config.AppConfig)
			if !ok {
				return fmt.Errorf("configuration manager returned invalid configuration (expected devctl application configuration)")
			}
			if initialCfg.Developer.DumpConfig {
				initialCfg.DumpConfig()
				return nil
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfgMgr, initialCfg)
		},
	}

	flags := cmd.Flags()
	flags.SortFlags = false
	flags.String(configmgr.CfgFileFlag, "", "The path to a TOML configuration file.")
	flags.String("log.type", string(logger.StdErr), fmt.Sprintf("Where log messages should be sent %v.", logger.SupportedLogTypes))
	flags.String("log.file", "/var/log/devctl/devctl.log", "The path to the desired log file when log.type is 'logfile' (if needed the directory and all parent directories will be created).")
	flags.Int8("log.level", 3, "Adjust the logging level (1=Warn, 3=Info, 5=Debug).")
	flags.Int("log.max-size", 1000, "When log.type is 'logfile' the maximum size of the log.file in megabytes before it is rotated.")
	flags.Int("log.num-rotated-files", 5, "When log.type is 'logfile' the maximum number old log.file(s) to keep when log.max-size is reached and the log is rotated.")
	flags.Bool("log.developer", false, "Enable developer logging including stack traces and setting the equivalent of log.level=5 (all other log settings are ignored).")
	flags.Int("server.workers", 4, "The number of requests handled concurrently.")
	flags.Uint32("pty.number", 0, "The number reported by TIOCGPTN.")
	flags.Bool("developer.dump-config", false, "Dump the full configuration and immediately exit.")
	flags.MarkHidden("developer.dump-config")
	return cmd
}

// serve runs the device server until ctx is done.
func serve(ctx context.Context, cfgMgr *configmgr.ConfigManager, cfg *config.AppConfig) error {

	log, err := logger.New(cfg.Log)
	if err != nil {
		return fmt.Errorf("unable to initialize logger: %w", err)
	}
	defer log.Sync()
	log.Info("start-of-day", zap.String("application", BinaryName), zap.String("version", Version), zap.String("commit", Commit), zap.String("built", BuildTime))
	cfgMgr.AddListener(log)

	if err := os.MkdirAll(filepath.Dir(cfg.Socket), 0755); err != nil {
		return fmt.Errorf("unable to create the socket directory: %w", err)
	}
	listener, err := port.ListenUnix(log.Logger, cfg.Socket)
	if err != nil {
		return fmt.Errorf("unable to listen on %s: %w", cfg.Socket, err)
	}
	defer listener.Close()

	device := pty.New(log.Logger, cfg.PTY.Number)
	server := devsrv.New(log.Logger, listener, device, cfg.Server)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return listener.Serve(gctx)
	})
	g.Go(func() error {
		return server.Serve(gctx)
	})
	g.Go(func() error {
		cfgMgr.Manage(gctx, log.Logger)
		return nil
	})

	err = g.Wait()
	log.Info("shutdown all components, exiting")
	return err
}
