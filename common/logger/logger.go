// Package logger sets up the zap logger shared by the devctl commands. The log level can be changed
// at runtime through the configmgr listener interface.
package logger

import (
	"fmt"
	"log/syslog"
	"os"
	"path"
	"reflect"

	"github.com/thinkparq/devctl/common/configmgr"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Logger is a wrapper around zap.Logger. It allows the log level to be changed after the application
// has started.
type Logger struct {
	*zap.Logger
	level zap.AtomicLevel
}

// Verify all interfaces that depend on Logger are satisfied:
var _ configmgr.Listener = &Logger{}

// Config represents the configuration for a Logger.
type Config struct {
	Type            supportedLogTypes `mapstructure:"type"`
	File            string            `mapstructure:"file"`
	Level           int8              `mapstructure:"level"`
	MaxSize         int               `mapstructure:"max-size"`
	NumRotatedFiles int               `mapstructure:"num-rotated-files"`
	Developer       bool              `mapstructure:"developer"`
}

type supportedLogTypes string

const (
	StdOut supportedLogTypes = "stdout"
	// Used by the CLI so command output on stdout stays parsable.
	StdErr  supportedLogTypes = "stderr"
	LogFile supportedLogTypes = "logfile"
	// The syslog type is the slowest logging option due to how zap log messages
	// need to be translated to syslog messages and severity levels.
	Syslog supportedLogTypes = "syslog"
)

// SupportedLogTypes is used for printing help text, for example if an invalid type is specified.
var SupportedLogTypes = []supportedLogTypes{
	StdOut,
	StdErr,
	LogFile,
	Syslog,
}

// New returns new logger based on the provided configuration.
func New(newConfig Config) (*Logger, error) {

	logMgr := Logger{}

	// Use the opinionated Zap development configuration.
	// This notably gives us stack traces at warn and error levels.
	if newConfig.Developer {
		logMgr.level = zap.NewAtomicLevelAt(zapcore.DebugLevel)

		cfg := zap.NewDevelopmentConfig()
		cfg.Level = logMgr.level
		if newConfig.Type == StdOut {
			cfg.OutputPaths = []string{"stdout"}
		}
		l, err := cfg.Build()
		if err != nil {
			return nil, err
		}
		logMgr.Logger = l
		return &logMgr, nil
	}

	zapConfig := zap.NewProductionEncoderConfig()
	zapConfig.TimeKey = "timestamp"
	zapConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	// IMPORTANT: If the encoding type ever changes then the way we handle writing to syslog in
	// SyslogWriteSyncer.Write() MUST be updated accordingly.
	zapEncoder := zapcore.NewConsoleEncoder(zapConfig)

	zapLevel, err := getLevel(newConfig.Level)
	if err != nil {
		return nil, err
	}
	logMgr.level = zap.NewAtomicLevelAt(zapLevel)

	var logDestination zapcore.WriteSyncer
	switch newConfig.Type {
	case StdOut:
		logDestination = zapcore.AddSync(os.Stdout)
	case StdErr:
		logDestination = zapcore.AddSync(os.Stderr)
	case LogFile:
		// Just being able to write to the provided log file is not sufficient
		// if we want to rotate log files. Make sure the directory selected for
		// logging exists and we can write to it.
		if err := ensureLogsAreWritable(newConfig.File); err != nil {
			return nil, err
		}

		logDestination = zapcore.AddSync(&lumberjack.Logger{
			Filename:   newConfig.File,
			MaxSize:    newConfig.MaxSize,
			MaxBackups: newConfig.NumRotatedFiles,
		})
	case Syslog:
		// The process name is the tag so several device servers on one host can be told apart.
		l, err := NewSyslogWriteSyncer(syslog.LOG_INFO|syslog.LOG_DAEMON, path.Base(os.Args[0]))
		if err != nil {
			return nil, fmt.Errorf("unable to initialize syslog destination: %w", err)
		}
		logDestination = l
	default:
		return nil, fmt.Errorf("unsupported log type: %s (supported types: %v)", newConfig.Type, SupportedLogTypes)
	}

	logMgr.Logger = zap.New(zapcore.NewCore(zapEncoder, logDestination, logMgr.level))
	return &logMgr, nil
}

// Configurer is implemented by application configurations that embed the logging Config.
type Configurer interface {
	GetLoggingConfig() Config
}

// UpdateConfiguration satisfies configmgr.Listener. Only the log level can be changed, newConfig is
// expected to implement Configurer.
func (lm *Logger) UpdateConfiguration(newConfig any) error {

	configurer, ok := newConfig.(Configurer)
	if !ok {
		return fmt.Errorf("unable to get log configuration from the application configuration (most likely this indicates a bug and a report should be filed)")
	}

	newLogConfig := configurer.GetLoggingConfig()

	log := lm.Logger.With(zap.String("component", path.Base(reflect.TypeOf(Logger{}).PkgPath())))

	newLevel, err := getLevel(newLogConfig.Level)
	if err != nil {
		return err
	}

	// If developer logging is enabled ignore the provided log level and set it to debug.
	if newLogConfig.Developer {
		newLevel = zapcore.DebugLevel
	}

	if lm.level.Level() != newLevel {
		lm.level.SetLevel(newLevel)
		log.Log(lm.level.Level(), "set log level", zap.Any("logLevel", lm.level.Level()))
	} else {
		log.Debug("no change to log level")
	}

	return nil
}

// getLevel maps the numeric levels used in the configuration to zap levels.
func getLevel(newLevel int8) (zapcore.Level, error) {
	switch newLevel {
	case 1:
		return zapcore.WarnLevel, nil
	case 3:
		return zapcore.InfoLevel, nil
	case 5:
		return zapcore.DebugLevel, nil
	default:
		// If we used zapcore.InvalidLevel we could cause a panic.
		// So instead return a sane level just in case something decides to
		// ignore the error and use the level we return anyway.
		return zapcore.InfoLevel, fmt.Errorf("the provided log.level (%d) is invalid (must be 1, 3, or 5)", newLevel)
	}
}
