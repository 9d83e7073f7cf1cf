// Package configmgr contains functionality for managing application configuration.
package configmgr

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path"
	"reflect"
	"strings"
	"sync"
	"syscall"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/afero"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/thinkparq/devctl/common/types"
	"go.uber.org/zap"
)

// CfgFileFlag is the name of the flag (and, with the environment prefix, the environment variable)
// that points to an optional TOML configuration file.
const CfgFileFlag = "cfg-file"

// Configurable defines an interface for managing application configurations. Implementing this
// interface allows the configuration for different applications to be managed using a common
// configuration manager.
type Configurable interface {
	// NewEmptyInstance creates a new, zero-valued instance of the same type as the receiver. It should
	// not share any state with the original instance. It will be used with viper.Unmarshal to get the
	// actual configuration used by the application.
	NewEmptyInstance() Configurable
	// UpdateAllowed checks whether the proposed new configuration is allowed based on the current
	// state, and returns an error if the update is not permitted.
	UpdateAllowed(Configurable) error
	// ValidateConfig returns an error if the configuration is not valid.
	ValidateConfig() error
}

// ConfigManager handles loading configuration from multiple sources (flags, environment variables,
// and a config file), then validating the configuration. Configuration is initially set when New()
// is called. If the application should support dynamic configuration updates the application should
// also call Manage() so configuration is reloaded whenever the application receives a SIGHUP.
//
// The latest configuration can be accessed using Get(), or by registering one or more Listener.
type ConfigManager struct {
	// One or more flags used to configure the application. Also provides the defaults.
	initialFlags *pflag.FlagSet
	// Environment variables starting with this prefix are used to configure the application.
	envVarPrefix string
	// Whenever the configuration is updated, these listeners will be automatically informed.
	listeners     []Listener
	currentConfig Configurable
	updateSignal  chan os.Signal
	// Locks the configuration while an update is in progress. Without this spamming SIGHUP
	// requests may result in unpredictable behavior.
	updateInProgress sync.RWMutex
	// After the initial configuration is set, the rules defined by UpdateAllowed() are enforced.
	initialCfgSet   bool
	decodeHookFuncs []mapstructure.DecodeHookFunc
	// The configuration file is read from fs.
	fs afero.Fs
}

// EnvVarName returns the environment variable that sets the configuration key. Dots and hyphens
// both become underscores.
func EnvVarName(prefix string, key string) string {
	return prefix + strings.ToUpper(strings.NewReplacer(".", "_", "-", "_").Replace(key))
}

// Option customizes a ConfigManager.
type Option func(*ConfigManager)

// WithFs reads the configuration file from fs instead of the OS file system.
func WithFs(fs afero.Fs) Option {
	return func(cm *ConfigManager) {
		cm.fs = fs
	}
}

// WithDecodeHooks adds custom decode hooks used when unmarshalling the merged configuration.
func WithDecodeHooks(hooks ...mapstructure.DecodeHookFunc) Option {
	return func(cm *ConfigManager) {
		cm.decodeHookFuncs = append(cm.decodeHookFuncs, hooks...)
	}
}

// New creates a new ConfigManager that parses configuration based on the provided flagset and
// environment variable prefix. If it fails to initialize the configuration it immediately returns
// an error to prevent the app from starting with bad configuration.
func New(flags *pflag.FlagSet, envVarPrefix string, config Configurable, opts ...Option) (*ConfigManager, error) {

	cfgMgr := &ConfigManager{
		initialFlags:  flags,
		envVarPrefix:  envVarPrefix,
		currentConfig: config,
		updateSignal:  make(chan os.Signal, 1),
		fs:            afero.NewOsFs(),
	}
	for _, opt := range opts {
		opt(cfgMgr)
	}

	err := cfgMgr.updateConfiguration()
	if err != nil {
		return nil, err
	}

	signal.Notify(cfgMgr.updateSignal, syscall.SIGHUP)

	return cfgMgr, nil
}

// Listener is a component that supports dynamic configuration updates. For example the logger
// package is a listener.
type Listener interface {
	// UpdateConfiguration is used to provide the new configuration to a listener. If the listener is
	// unable to apply it, it should return a meaningful error and keep working with what it has.
	//
	// Listeners typically use an additional interface implemented by the application configuration
	// to get only the part they know about (see logger.Configurer), so component packages never
	// have to import the application configuration.
	UpdateConfiguration(any) error
}

// AddListener adds a Listener to ConfigManager. Listeners should not be added until the component
// they represent has been initialized.
func (cm *ConfigManager) AddListener(listener Listener) {
	cm.listeners = append(cm.listeners, listener)
}

// UpdateListeners provides the current configuration to all registered listeners. Errors are
// aggregated, the configuration is not rolled back.
func (cm *ConfigManager) UpdateListeners() error {
	var multiErr types.MultiError
	for _, listener := range cm.listeners {
		multiErr.Append(listener.UpdateConfiguration(cm.currentConfig))
	}

	if len(multiErr.Errors) > 0 {
		multiErr.Errors = append([]error{fmt.Errorf("WARNING: configuration partially updated")}, multiErr.Errors...)
		return &multiErr
	}
	return nil
}

// Get returns the current configuration. The caller can use it with a type assertion to access the
// actual configuration values.
func (cm *ConfigManager) Get() Configurable {
	cm.updateInProgress.RLock()
	defer cm.updateInProgress.RUnlock()
	return cm.currentConfig
}

// Reload rereads all configuration sources and updates the listeners.
func (cm *ConfigManager) Reload() error {
	return cm.updateConfiguration()
}

// Manage reloads the configuration whenever the process receives SIGHUP until ctx is cancelled. It
// requires a logger because the logger itself is configured through the ConfigManager.
func (cm *ConfigManager) Manage(ctx context.Context, log *zap.Logger) {

	log = log.With(zap.String("component", path.Base(reflect.TypeOf(ConfigManager{}).PkgPath())))
	defer signal.Stop(cm.updateSignal)

	for {
		// When we first start make sure all the listeners have the latest configuration.
		err := cm.updateConfiguration()
		if err != nil {
			log.Warn("one or more errors occurred updating the configuration", zap.Error(err))
		}

		select {
		case <-ctx.Done():
			log.Info("shutting down because the app is shutting down")
			return
		case <-cm.updateSignal:
			log.Debug("updating configuration")
			continue
		}
	}
}

// updateConfiguration merges the configuration sources with the following precedence: (1) command
// line flags, (2) environment variables, (3) the configuration file, (4) flag defaults. The result is
// unmarshalled into a new Configurable and checked with ValidateConfig() and UpdateAllowed(). If the
// checks fail the current configuration is kept and an error returned. Otherwise the new
// configuration replaces the current one and the listeners are updated.
func (cm *ConfigManager) updateConfiguration() error {

	cm.updateInProgress.Lock()
	defer cm.updateInProgress.Unlock()

	// Viper is only used to merge the configuration sources, it does not persist the configuration.
	v := viper.New()
	v.SetFs(cm.fs)
	v.SetConfigType("toml")

	// Viper's precedence order means flags have the highest priority. We also get all of our
	// defaults based on the flag setup.
	err := v.BindPFlags(cm.initialFlags)
	if err != nil {
		return fmt.Errorf("rejecting configuration update: unable to parse command line flags: %w", err)
	}

	// Viper can only override values with environment variables, it cannot discover them. So look
	// for variables with our prefix and bind each one explicitly. Variables matching a flag bind to
	// that flag (DEVCTL_LOG_MAX_SIZE sets "log.max-size"), otherwise underscores become dots.
	flagKeys := make(map[string]string)
	cm.initialFlags.VisitAll(func(f *pflag.Flag) {
		name := EnvVarName("", f.Name)
		// Nested keys win when two flags map to the same variable.
		if existing, ok := flagKeys[name]; ok && strings.Count(existing, ".") >= strings.Count(f.Name, ".") {
			return
		}
		flagKeys[name] = f.Name
	})
	for _, envVar := range os.Environ() {
		key, _, _ := strings.Cut(envVar, "=")
		if cm.envVarPrefix == "" || !strings.HasPrefix(key, cm.envVarPrefix) {
			continue
		}
		suffix := strings.TrimPrefix(key, cm.envVarPrefix)
		viperKey, ok := flagKeys[strings.ToUpper(suffix)]
		if !ok {
			viperKey = strings.ReplaceAll(strings.ToLower(suffix), "_", ".")
		}
		if err := v.BindEnv(viperKey, key); err != nil {
			return err
		}
	}

	// Important we do this last as the config file could be set as a flag or environment variable.
	if cfgFile := v.GetString(CfgFileFlag); cfgFile != "" {
		exists, err := afero.Exists(cm.fs, cfgFile)
		if err != nil {
			return fmt.Errorf("rejecting configuration update: unable to check configuration file '%s': %w", cfgFile, err)
		}
		if !exists {
			return fmt.Errorf("rejecting configuration update: configuration file at '%s' was not found (check it exists and permissions are set correctly)", cfgFile)
		}

		v.SetConfigFile(cfgFile)
		if err := v.MergeInConfig(); err != nil {
			return fmt.Errorf("rejecting configuration update: an error occurred reading config file '%s': %w", cfgFile, err)
		}
	}

	var decoderOpts []viper.DecoderConfigOption
	for _, hookFunc := range cm.decodeHookFuncs {
		decoderOpts = append(decoderOpts, viper.DecodeHook(hookFunc))
	}

	newConfig := cm.currentConfig.NewEmptyInstance()
	if err := v.Unmarshal(newConfig, decoderOpts...); err != nil {
		return fmt.Errorf("rejecting configuration update: unable to parse configuration (check if the configuration valid): %w", err)
	}

	if err = newConfig.ValidateConfig(); err != nil {
		return err
	}

	// After the initial configuration is set, some values are immutable. By checking here and not
	// as part of UpdateListeners(), the entire update is rejected instead of partially applied.
	if cm.initialCfgSet {
		if err := cm.currentConfig.UpdateAllowed(newConfig); err != nil {
			return err
		}
	} else {
		cm.initialCfgSet = true
	}

	cm.currentConfig = newConfig
	return cm.UpdateListeners()
}
