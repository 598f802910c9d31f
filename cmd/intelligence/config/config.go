package config

import (
	"github.com/spf13/viper"

	"transaction-intelligence-service/internal/anomaly"
	"transaction-intelligence-service/internal/categorizer"
	"transaction-intelligence-service/internal/normalizer"
	"transaction-intelligence-service/internal/recurring"
	pipeErrors "transaction-intelligence-service/pkg/errors"
	"transaction-intelligence-service/pkg/logger"
)

// Config assembles every component configuration plus the CLI-level
// settings. Values come from defaults, an optional config file, and
// environment variables, in ascending priority.
type Config struct {
	// DatabasePath is the SQLite database file holding the transaction
	// history. Empty selects a process-local in-memory store.
	DatabasePath string `mapstructure:"database"`

	// OutputFormat selects report rendering: console or json
	OutputFormat string `mapstructure:"output_format"`

	Log         *logger.Config      `mapstructure:"log"`
	Normalizer  *normalizer.Config  `mapstructure:"normalizer"`
	Categorizer *categorizer.Config `mapstructure:"categorizer"`
	Recurring   *recurring.Config   `mapstructure:"recurring"`
	Anomaly     *anomaly.Config     `mapstructure:"anomaly"`
}

// Default returns the standard configuration
func Default() *Config {
	return &Config{
		DatabasePath: "transactions.db",
		OutputFormat: "console",
		Log:          logger.DefaultConfig(),
		Normalizer:   normalizer.DefaultConfig(),
		Categorizer:  categorizer.DefaultConfig(),
		Recurring:    recurring.DefaultConfig(),
		Anomaly:      anomaly.DefaultConfig(),
	}
}

// Load builds the effective configuration from viper state layered over
// the defaults.
func Load(v *viper.Viper) (*Config, error) {
	cfg := Default()

	if err := v.Unmarshal(cfg); err != nil {
		return nil, pipeErrors.ConfigurationError(pipeErrors.CodeInvalidConfig, "config file", v.ConfigFileUsed(), err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the assembled configuration
func (c *Config) Validate() error {
	if err := c.Normalizer.Validate(); err != nil {
		return pipeErrors.ConfigurationError(pipeErrors.CodeInvalidConfig, "normalizer", nil, err)
	}
	if err := c.Categorizer.Validate(); err != nil {
		return pipeErrors.ConfigurationError(pipeErrors.CodeInvalidConfig, "categorizer", nil, err)
	}
	if err := c.Recurring.Validate(); err != nil {
		return pipeErrors.ConfigurationError(pipeErrors.CodeInvalidConfig, "recurring", nil, err)
	}
	if err := c.Anomaly.Validate(); err != nil {
		return pipeErrors.ConfigurationError(pipeErrors.CodeInvalidConfig, "anomaly", nil, err)
	}

	return nil
}
