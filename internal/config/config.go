// Package config loads gateway settings from defaults, an optional YAML file,
// the environment and command-line flags, in increasing precedence.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/n0madic/go-gradiogate/internal/gradio"
)

const (
	DefaultHost = "0.0.0.0"
	DefaultPort = 8000

	// EnvPrefix prefixes every environment override, e.g. GRADIOGATE_SERVER_PORT.
	EnvPrefix = "GRADIOGATE"
	// ConfigName is the file looked up in . and ./config when no path is given.
	ConfigName = "gradiogate"
)

// Config holds all gateway settings.
type Config struct {
	Server     ServerConfig  `mapstructure:"server"`
	Proxy      ProxyConfig   `mapstructure:"proxy"`
	Backend    BackendConfig `mapstructure:"backend"`
	ModelsFile string        `mapstructure:"models_file"`
	Usage      UsageConfig   `mapstructure:"usage"`
	Metrics    MetricsConfig `mapstructure:"metrics"`
	Logging    LoggingConfig `mapstructure:"logging"`
	Verbose    bool          `mapstructure:"verbose"`
	Debug      bool          `mapstructure:"debug"`
}

// ServerConfig is the inbound HTTP listener.
type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
}

// ProxyConfig is the outbound proxy used for backend traffic.
type ProxyConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	URL     string `mapstructure:"url"`
}

// BackendConfig bounds backend invocations.
type BackendConfig struct {
	MaxConcurrency int           `mapstructure:"max_concurrency"`
	Timeout        time.Duration `mapstructure:"timeout"`
	HubURL         string        `mapstructure:"hub_url"`
}

// UsageConfig controls token usage reporting.
type UsageConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// LoggingConfig controls log level and the optional rotating log file.
type LoggingConfig struct {
	Level      string `mapstructure:"level"`
	FileOutput bool   `mapstructure:"file_output"`
	Dir        string `mapstructure:"dir"`
	MaxSize    int    `mapstructure:"max_size"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAge     int    `mapstructure:"max_age"`
}

// Addr returns the listen address.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// ProxyURL returns the outbound proxy, or "" when disabled.
func (c *Config) ProxyURL() string {
	if !c.Proxy.Enabled {
		return ""
	}
	return strings.TrimSpace(c.Proxy.URL)
}

var defaults = map[string]any{
	"server.host":             DefaultHost,
	"server.port":             DefaultPort,
	"server.read_timeout":     30 * time.Second,
	"server.write_timeout":    600 * time.Second,
	"server.idle_timeout":     120 * time.Second,
	"proxy.enabled":           false,
	"proxy.url":               "",
	"backend.max_concurrency": 16,
	"backend.timeout":         time.Duration(0),
	"backend.hub_url":         gradio.DefaultHubURL,
	"models_file":             "",
	"usage.enabled":           false,
	"metrics.enabled":         true,
	"metrics.path":            "/metrics",
	"logging.level":           "info",
	"logging.file_output":     false,
	"logging.dir":             "./logs",
	"logging.max_size":        100,
	"logging.max_backups":     5,
	"logging.max_age":         30,
	"verbose":                 false,
	"debug":                   false,
}

// legacyEnv maps keys to the environment names used by earlier deployments.
// The prefixed name still takes precedence.
var legacyEnv = map[string]string{
	"server.host":   "LISTEN",
	"server.port":   "PORT",
	"proxy.enabled": "USE_PROXY",
	"proxy.url":     "PROXY_URL",
}

// flagKeys maps command-line flag names to config keys.
var flagKeys = map[string]string{
	"host":        "server.host",
	"port":        "server.port",
	"verbose":     "verbose",
	"debug":       "debug",
	"models-file": "models_file",
}

// LoadOptions selects the config file and flag overrides.
type LoadOptions struct {
	// ConfigFile is an explicit YAML path. Empty searches . and ./config.
	ConfigFile string
	// Flags are bound when set; only flags the user changed override.
	Flags *pflag.FlagSet
}

// Load builds and validates the configuration.
func Load(opts LoadOptions) (*Config, error) {
	v := viper.New()
	for key, val := range defaults {
		v.SetDefault(key, val)
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, legacy := range legacyEnv {
		prefixed := EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if err := v.BindEnv(key, prefixed, legacy); err != nil {
			return nil, fmt.Errorf("bind env %s: %w", legacy, err)
		}
	}

	if opts.ConfigFile != "" {
		v.SetConfigFile(opts.ConfigFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", opts.ConfigFile, err)
		}
	} else {
		v.SetConfigName(ConfigName)
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("error reading config file: %w", err)
			}
		}
	}

	if opts.Flags != nil {
		for name, key := range flagKeys {
			if f := opts.Flags.Lookup(name); f != nil && f.Changed {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("bind flag %s: %w", name, err)
				}
			}
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks value ranges and the proxy URL.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range 1-65535", c.Server.Port)
	}
	if strings.TrimSpace(c.Server.Host) == "" {
		return errors.New("server.host must not be empty")
	}
	if c.Backend.MaxConcurrency < 1 {
		return fmt.Errorf("backend.max_concurrency must be at least 1, got %d", c.Backend.MaxConcurrency)
	}
	if c.Backend.Timeout < 0 {
		return errors.New("backend.timeout must not be negative")
	}
	if c.Proxy.Enabled {
		if strings.TrimSpace(c.Proxy.URL) == "" {
			return errors.New("proxy.url is required when proxy.enabled is set")
		}
		if _, err := gradio.ParseProxyURL(c.Proxy.URL); err != nil {
			return err
		}
	}
	if c.Metrics.Enabled && !strings.HasPrefix(c.Metrics.Path, "/") {
		return fmt.Errorf("metrics.path %q must start with /", c.Metrics.Path)
	}
	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("logging.level %q is not one of debug, info, warn, error", c.Logging.Level)
	}
	return nil
}
