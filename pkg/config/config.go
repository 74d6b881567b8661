package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/viper"

	"github.com/user/slot-watcher/pkg/utils"
)

// Config holds the application configuration.
type Config struct {
	Port     int    `mapstructure:"PORT"`
	LogLevel string `mapstructure:"LOG_LEVEL"`
	URLs     string `mapstructure:"URLS"`

	PushoverToken    string `mapstructure:"PUSHOVER_TOKEN"`
	PushoverUser     string `mapstructure:"PUSHOVER_USER"`
	PushoverEndpoint string `mapstructure:"PUSHOVER_ENDPOINT"`

	TimeoutRegular   int `mapstructure:"TIMEOUT_REGULAR"`   // seconds
	TimeoutError     int `mapstructure:"TIMEOUT_ERROR"`     // seconds
	DegradedInterval int `mapstructure:"DEGRADED_INTERVAL"` // seconds
	AlertRetryDelay  int `mapstructure:"ALERT_RETRY_DELAY"` // seconds
	ProbeTimeout     int `mapstructure:"PROBE_TIMEOUT"`     // seconds, per direct HTTP request
	ErrorThreshold   int `mapstructure:"ERROR_THRESHOLD"`

	ChromiumExecutablePath string `mapstructure:"CHROMIUM_EXECUTABLE_PATH"`
	NoSandbox              bool   `mapstructure:"NO_SANDBOX"`
	Headless               bool   `mapstructure:"HEADLESS"`
	LogHTML                bool   `mapstructure:"LOG_HTML"`
	BlockRequestPattern    string `mapstructure:"BLOCK_REQUEST_PATTERN"`

	RedisAddr     string `mapstructure:"REDIS_ADDR"`
	RedisPassword string `mapstructure:"REDIS_PASSWORD"`
	RedisDB       int    `mapstructure:"REDIS_DB"`

	PostgresURL string `mapstructure:"POSTGRES_URL"`
}

var defaults = map[string]any{
	"PORT":                     3000,
	"LOG_LEVEL":                "info",
	"URLS":                     "",
	"PUSHOVER_TOKEN":           "",
	"PUSHOVER_USER":            "",
	"PUSHOVER_ENDPOINT":        "",
	"TIMEOUT_REGULAR":          300,
	"TIMEOUT_ERROR":            300,
	"DEGRADED_INTERVAL":        3600,
	"ALERT_RETRY_DELAY":        10,
	"PROBE_TIMEOUT":            30,
	"ERROR_THRESHOLD":          10,
	"CHROMIUM_EXECUTABLE_PATH": "",
	"NO_SANDBOX":               false,
	"HEADLESS":                 false,
	"LOG_HTML":                 false,
	"BLOCK_REQUEST_PATTERN":    "",
	"REDIS_ADDR":               "",
	"REDIS_PASSWORD":           "",
	"REDIS_DB":                 0,
	"POSTGRES_URL":             "",
}

// Load reads configuration from an optional env file and the environment.
// An empty file name skips the file.
func Load(file string) (*Config, error) {
	v := viper.New()
	v.AutomaticEnv()

	// Unmarshal only sees keys viper knows about, so every key gets a default.
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	// older deployments still set the browser sandbox switch under its previous name
	if err := v.BindEnv("NO_SANDBOX", "NO_SANDBOX", "NO_PUPPETEER_SANDBOX"); err != nil {
		return nil, fmt.Errorf("bind env: %w", err)
	}

	if file != "" {
		v.SetConfigFile(file)
		v.SetConfigType("env")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file %s: %w", file, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks value ranges. Source locators are checked when they are classified.
func (c *Config) Validate() error {
	var errs []error
	if c.Port <= 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("PORT must be between 1 and 65535, got %d", c.Port))
	}
	if c.TimeoutRegular <= 0 {
		errs = append(errs, fmt.Errorf("TIMEOUT_REGULAR must be positive, got %d", c.TimeoutRegular))
	}
	if c.TimeoutError <= 0 {
		errs = append(errs, fmt.Errorf("TIMEOUT_ERROR must be positive, got %d", c.TimeoutError))
	}
	if c.DegradedInterval <= 0 {
		errs = append(errs, fmt.Errorf("DEGRADED_INTERVAL must be positive, got %d", c.DegradedInterval))
	}
	if c.AlertRetryDelay <= 0 {
		errs = append(errs, fmt.Errorf("ALERT_RETRY_DELAY must be positive, got %d", c.AlertRetryDelay))
	}
	if c.ProbeTimeout <= 0 {
		errs = append(errs, fmt.Errorf("PROBE_TIMEOUT must be positive, got %d", c.ProbeTimeout))
	}
	if c.ErrorThreshold <= 0 {
		errs = append(errs, fmt.Errorf("ERROR_THRESHOLD must be positive, got %d", c.ErrorThreshold))
	}
	return errors.Join(errs...)
}

// Locators returns the configured source URLs with trailing slashes stripped.
func (c *Config) Locators() []string {
	return utils.SplitLocators(c.URLs)
}

// PushoverEnabled reports whether both alert credentials are present.
func (c *Config) PushoverEnabled() bool {
	return c.PushoverToken != "" && c.PushoverUser != ""
}

func (c *Config) RegularDelay() time.Duration {
	return time.Duration(c.TimeoutRegular) * time.Second
}

func (c *Config) ErrorDelay() time.Duration {
	return time.Duration(c.TimeoutError) * time.Second
}

func (c *Config) DegradedDelay() time.Duration {
	return time.Duration(c.DegradedInterval) * time.Second
}

func (c *Config) AlertRetry() time.Duration {
	return time.Duration(c.AlertRetryDelay) * time.Second
}

func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.ProbeTimeout) * time.Second
}
