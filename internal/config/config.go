// File: internal/config/config.go
package config

import (
	"fmt"
	"strings"
	"time"

	homedir "github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"
)

// Config holds the entire application configuration.
type Config struct {
	Logger  LoggerConfig  `mapstructure:"logger" yaml:"logger"`
	Browser BrowserConfig `mapstructure:"browser" yaml:"browser"`
	Oracle  OracleConfig  `mapstructure:"oracle" yaml:"oracle"`
	Session SessionConfig `mapstructure:"session" yaml:"session"`
	Server  ServerConfig  `mapstructure:"server" yaml:"server"`
}

// LoggerConfig controls the zap logger and file rotation.
type LoggerConfig struct {
	Level       string `mapstructure:"level" yaml:"level"`
	Format      string `mapstructure:"format" yaml:"format"` // "console" or "json"
	ServiceName string `mapstructure:"service_name" yaml:"service_name"`
	AddSource   bool   `mapstructure:"add_source" yaml:"add_source"`

	// File output, rotated by lumberjack. Empty LogFile disables the file core.
	LogFile    string `mapstructure:"log_file" yaml:"log_file"`
	MaxSize    int    `mapstructure:"max_size" yaml:"max_size"` // megabytes
	MaxBackups int    `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge     int    `mapstructure:"max_age" yaml:"max_age"` // days
	Compress   bool   `mapstructure:"compress" yaml:"compress"`
}

// BrowserConfig controls the chromedp browser controller.
type BrowserConfig struct {
	Headless bool `mapstructure:"headless" yaml:"headless"`
	// WindowWidth/WindowHeight of 0 means a randomized realistic viewport,
	// part of the anti-automation posture.
	WindowWidth  int `mapstructure:"window_width" yaml:"window_width"`
	WindowHeight int `mapstructure:"window_height" yaml:"window_height"`

	NavigationTimeout time.Duration `mapstructure:"navigation_timeout" yaml:"navigation_timeout"`
	ActionTimeout     time.Duration `mapstructure:"action_timeout" yaml:"action_timeout"`

	// Args are extra Chrome flags, "key" or "key=value" form.
	Args []string `mapstructure:"args" yaml:"args"`
}

// OracleConfig controls the decision oracle client.
type OracleConfig struct {
	Provider string `mapstructure:"provider" yaml:"provider"`
	APIKey   string `mapstructure:"api_key" yaml:"api_key"`
	// Model is the powerful tier used for step decisions; FastModel handles
	// history condensation.
	Model     string `mapstructure:"model" yaml:"model"`
	FastModel string `mapstructure:"fast_model" yaml:"fast_model"`
	// Endpoint overrides the provider default, mainly for tests.
	Endpoint string `mapstructure:"endpoint" yaml:"endpoint"`

	Timeout           time.Duration `mapstructure:"timeout" yaml:"timeout"`
	MaxTokens         int           `mapstructure:"max_tokens" yaml:"max_tokens"`
	Temperature       float64       `mapstructure:"temperature" yaml:"temperature"`
	RequestsPerMinute int           `mapstructure:"requests_per_minute" yaml:"requests_per_minute"`
}

// SessionConfig holds the mission tunables the design leaves operational.
type SessionConfig struct {
	// MaxConsecutiveFailures forces a session into failed once this many
	// recoverable errors occur back to back.
	MaxConsecutiveFailures int `mapstructure:"max_consecutive_failures" yaml:"max_consecutive_failures"`
	// MaxSessions caps concurrently live sessions (each owns a browser).
	MaxSessions int `mapstructure:"max_sessions" yaml:"max_sessions"`
	// IdleTTL evicts sessions untouched for this long; 0 retains them until
	// explicit delete.
	IdleTTL         time.Duration `mapstructure:"idle_ttl" yaml:"idle_ttl"`
	JanitorInterval time.Duration `mapstructure:"janitor_interval" yaml:"janitor_interval"`
}

// ServerConfig controls the HTTP API.
type ServerConfig struct {
	ListenAddr      string        `mapstructure:"listen_addr" yaml:"listen_addr"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`
}

const envPrefix = "SURFER"

// Load reads configuration from the given file (or the default search path
// when empty), applies SURFER_* environment overrides, and returns the result.
func Load(cfgFile string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.AddConfigPath(".")
		if home, err := homedir.Dir(); err == nil {
			v.AddConfigPath(home + "/.websurfer")
		}
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// No config file; defaults and env vars apply.
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects configurations the engine cannot run with.
func (c *Config) Validate() error {
	if c.Session.MaxConsecutiveFailures < 1 {
		return fmt.Errorf("session.max_consecutive_failures must be at least 1, got %d", c.Session.MaxConsecutiveFailures)
	}
	if c.Session.MaxSessions < 1 {
		return fmt.Errorf("session.max_sessions must be at least 1, got %d", c.Session.MaxSessions)
	}
	if c.Oracle.Timeout <= 0 {
		return fmt.Errorf("oracle.timeout must be positive, got %s", c.Oracle.Timeout)
	}
	if c.Session.IdleTTL > 0 && c.Session.JanitorInterval <= 0 {
		return fmt.Errorf("session.janitor_interval must be positive when idle_ttl is set")
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.service_name", "websurfer")
	v.SetDefault("logger.max_size", 50)
	v.SetDefault("logger.max_backups", 3)
	v.SetDefault("logger.max_age", 14)

	v.SetDefault("browser.headless", true)
	v.SetDefault("browser.navigation_timeout", 30*time.Second)
	v.SetDefault("browser.action_timeout", 10*time.Second)

	v.SetDefault("oracle.provider", "gemini")
	// Registered empty so the SURFER_ORACLE_API_KEY override binds.
	v.SetDefault("oracle.api_key", "")
	v.SetDefault("oracle.model", "gemini-2.5-pro")
	v.SetDefault("oracle.fast_model", "gemini-2.5-flash")
	v.SetDefault("oracle.timeout", 45*time.Second)
	v.SetDefault("oracle.max_tokens", 1024)
	v.SetDefault("oracle.temperature", 0.2)
	v.SetDefault("oracle.requests_per_minute", 30)

	v.SetDefault("session.max_consecutive_failures", 5)
	v.SetDefault("session.max_sessions", 8)
	v.SetDefault("session.idle_ttl", time.Duration(0))
	v.SetDefault("session.janitor_interval", time.Minute)

	v.SetDefault("server.listen_addr", ":8000")
	v.SetDefault("server.shutdown_timeout", 15*time.Second)
}
