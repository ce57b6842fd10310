// File: internal/config/config.go
package config

import (
	"fmt"
	"strings"
	"time"

	homedir "github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"
)

// Config is the full application configuration. Field values come from the
// config file, VIGIL_* environment variables, and CLI flags, in ascending
// precedence.
type Config struct {
	Logger   LoggerConfig   `mapstructure:"logger" yaml:"logger"`
	Wait     WaitConfig     `mapstructure:"wait" yaml:"wait"`
	Browser  BrowserConfig  `mapstructure:"browser" yaml:"browser"`
	HTTP     HTTPConfig     `mapstructure:"http" yaml:"http"`
	Database DatabaseConfig `mapstructure:"database" yaml:"database"`
}

// LoggerConfig holds all the configuration for the logger.
type LoggerConfig struct {
	Level       string `mapstructure:"level" yaml:"level"`
	Format      string `mapstructure:"format" yaml:"format"`
	AddSource   bool   `mapstructure:"add_source" yaml:"add_source"`
	ServiceName string `mapstructure:"service_name" yaml:"service_name"`
	LogFile     string `mapstructure:"log_file" yaml:"log_file"`
	MaxSize     int    `mapstructure:"max_size" yaml:"max_size"`
	MaxBackups  int    `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge      int    `mapstructure:"max_age" yaml:"max_age"`
	Compress    bool   `mapstructure:"compress" yaml:"compress"`
}

// WaitConfig carries the default wait parameters applied when a command does
// not override them with flags.
type WaitConfig struct {
	Timeout  time.Duration `mapstructure:"timeout" yaml:"timeout"`
	Interval time.Duration `mapstructure:"interval" yaml:"interval"`
}

// BrowserConfig holds settings for the headless browser sessions used by
// page waits.
type BrowserConfig struct {
	Headless        bool              `mapstructure:"headless" yaml:"headless"`
	IgnoreTLSErrors bool              `mapstructure:"ignore_tls_errors" yaml:"ignore_tls_errors"`
	UserAgent       string            `mapstructure:"user_agent" yaml:"user_agent"`
	ExtraFlags      map[string]string `mapstructure:"extra_flags" yaml:"extra_flags"`
}

// HTTPConfig holds settings for endpoint waits.
type HTTPConfig struct {
	RequestTimeout     time.Duration `mapstructure:"request_timeout" yaml:"request_timeout"`
	InsecureSkipVerify bool          `mapstructure:"insecure_skip_verify" yaml:"insecure_skip_verify"`
}

// DatabaseConfig holds the connection details for database waits.
type DatabaseConfig struct {
	URL string `mapstructure:"url" yaml:"url"`
}

// SetDefaults registers every default on the given viper instance. Called
// before reading the config file so absent keys resolve sensibly.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.service_name", "vigil")
	v.SetDefault("logger.max_size", 50)
	v.SetDefault("logger.max_backups", 3)
	v.SetDefault("logger.max_age", 14)

	v.SetDefault("wait.timeout", 10*time.Second)
	v.SetDefault("wait.interval", 500*time.Millisecond)

	v.SetDefault("browser.headless", true)

	v.SetDefault("http.request_timeout", 10*time.Second)
}

// Setup wires the viper instance to its sources: an explicit config file if
// given, otherwise ./config.yaml or ~/.vigil/config.yaml, plus VIGIL_*
// environment variables.
func Setup(v *viper.Viper, cfgFile string) error {
	SetDefaults(v)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.AddConfigPath(".")
		if home, err := homedir.Dir(); err == nil {
			v.AddConfigPath(home + "/.vigil")
		}
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	v.SetEnvPrefix("VIGIL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found; proceed with defaults and env vars.
	}
	return nil
}

// Load unmarshals and validates the configuration.
func Load(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks cross-field invariants the type system cannot.
func (c *Config) Validate() error {
	if c.Wait.Interval <= 0 {
		return fmt.Errorf("wait.interval must be positive, got %s", c.Wait.Interval)
	}
	if c.Wait.Timeout < 0 {
		return fmt.Errorf("wait.timeout must not be negative, got %s", c.Wait.Timeout)
	}
	if c.HTTP.RequestTimeout <= 0 {
		return fmt.Errorf("http.request_timeout must be positive, got %s", c.HTTP.RequestTimeout)
	}
	switch c.Logger.Format {
	case "", "console", "json":
	default:
		return fmt.Errorf("logger.format must be console or json, got %q", c.Logger.Format)
	}
	return nil
}
