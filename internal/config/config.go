package config

import (
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"
)

// Config is the complete configuration surface consumed by the price
// subsystem. Values come from an optional YAML file overlaid by
// PRICEVAULT_* environment variables; environment wins.
type Config struct {
	// Offline disables all network access; every request is answered from
	// the local cache, even when incomplete.
	Offline bool `yaml:"offline" envconfig:"OFFLINE"`

	// HomeExchange is the exchange code served by the primary feed and
	// stamped on rows imported from its daily reports.
	HomeExchange string `yaml:"home_exchange" envconfig:"HOME_EXCHANGE"`

	CacheDir        string `yaml:"cache_dir" envconfig:"CACHE_DIR" validate:"required"`
	AuditLog        string `yaml:"audit_log" envconfig:"AUDIT_LOG"`
	InstrumentsFile string `yaml:"instruments_file" envconfig:"INSTRUMENTS_FILE"`

	FetchTimeout   time.Duration `yaml:"fetch_timeout" envconfig:"FETCH_TIMEOUT" validate:"gt=0"`
	RateLimitDelay time.Duration `yaml:"rate_limit_delay" envconfig:"RATE_LIMIT_DELAY" validate:"gt=0"`

	Providers ProvidersConfig `yaml:"providers" envconfig:"PROVIDERS"`
	Logging   LoggingConfig   `yaml:"logging" envconfig:"LOGGING"`
}

// ProvidersConfig carries one block per upstream feed, in chain priority
// order.
type ProvidersConfig struct {
	Exchange ProviderConfig `yaml:"exchange" envconfig:"EXCHANGE"`
	Stooq    ProviderConfig `yaml:"stooq" envconfig:"STOOQ"`
	Alpha    ProviderConfig `yaml:"alpha" envconfig:"ALPHA"`
	Archive  ProviderConfig `yaml:"archive" envconfig:"ARCHIVE"`
}

// ProviderConfig enables a feed and carries its credentials.
type ProviderConfig struct {
	Enabled bool   `yaml:"enabled" envconfig:"ENABLED"`
	BaseURL string `yaml:"base_url" envconfig:"BASE_URL"`
	APIKey  string `yaml:"api_key" envconfig:"API_KEY"`
}

// LoggingConfig controls the slog logger.
type LoggingConfig struct {
	Level    string `yaml:"level" envconfig:"LEVEL" validate:"oneof=debug info warn error"`
	Format   string `yaml:"format" envconfig:"FORMAT"`
	Output   string `yaml:"output" envconfig:"OUTPUT"`
	FilePath string `yaml:"file_path" envconfig:"FILE_PATH"`
}

// Load reads configuration from an optional YAML file and the environment.
func Load(configFile string) (*Config, error) {
	cfg := Default()

	if configFile != "" {
		data, err := os.ReadFile(configFile)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("read config file: %w", err)
			}
		} else if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	if err := envconfig.Process("PRICEVAULT", cfg); err != nil {
		return nil, fmt.Errorf("load config from env: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		CacheDir:        "data/prices",
		AuditLog:        "data/skipped_symbols.log",
		InstrumentsFile: "data/instruments.csv",
		FetchTimeout:    30 * time.Second,
		RateLimitDelay:  30 * time.Second,
		Providers: ProvidersConfig{
			Exchange: ProviderConfig{Enabled: true},
			Stooq:    ProviderConfig{Enabled: true, BaseURL: "https://stooq.com"},
			Alpha:    ProviderConfig{Enabled: false, BaseURL: "https://www.alphavantage.co"},
			Archive:  ProviderConfig{Enabled: true},
		},
		Logging: LoggingConfig{
			Level:    "info",
			Format:   "json",
			Output:   "console",
			FilePath: "logs/pricevault.log",
		},
	}
}

var validate = validator.New()

func (c *Config) validate() error {
	if err := validate.Struct(c); err != nil {
		return err
	}
	if c.Providers.Alpha.Enabled && c.Providers.Alpha.APIKey == "" {
		return fmt.Errorf("alpha provider enabled without an API key")
	}
	return nil
}
