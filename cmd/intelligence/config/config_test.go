package config

import (
	"testing"

	"github.com/spf13/viper"
)

func TestDefaultValidates(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

func TestLoadOverrides(t *testing.T) {
	v := viper.New()
	v.Set("database", "/tmp/test.db")
	v.Set("output_format", "json")
	v.Set("categorizer.top_k", 7)
	v.Set("recurring.tolerance_days", 5)

	cfg, err := Load(v)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.DatabasePath != "/tmp/test.db" {
		t.Errorf("database override not applied: %s", cfg.DatabasePath)
	}
	if cfg.OutputFormat != "json" {
		t.Errorf("output format override not applied: %s", cfg.OutputFormat)
	}
	if cfg.Categorizer.TopK != 7 {
		t.Errorf("categorizer override not applied: %d", cfg.Categorizer.TopK)
	}
	if cfg.Recurring.ToleranceDays != 5 {
		t.Errorf("recurring override not applied: %d", cfg.Recurring.ToleranceDays)
	}
	// Untouched settings keep their defaults
	if cfg.Anomaly.IQRMultiplier != 1.5 {
		t.Errorf("anomaly default lost: %f", cfg.Anomaly.IQRMultiplier)
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	v := viper.New()
	v.Set("categorizer.agreement_threshold", 2.0)

	if _, err := Load(v); err == nil {
		t.Error("expected error for out-of-range threshold")
	}
}

func TestValidateAllowsEmptyDatabase(t *testing.T) {
	// An empty path selects the in-memory store, not a config error
	cfg := Default()
	cfg.DatabasePath = ""
	if err := cfg.Validate(); err != nil {
		t.Errorf("empty database path should validate: %v", err)
	}
}
