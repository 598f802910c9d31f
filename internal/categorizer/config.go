package categorizer

import "fmt"

// Config holds the configuration for the categorization engine. The gating
// thresholds decide when the engine trusts neighbor agreement enough to
// assign a category on its own.
type Config struct {
	// TopK is the number of nearest neighbors retrieved per lookup
	TopK int `json:"top_k" mapstructure:"top_k"`

	// MinMatches is the minimum number of categorized neighbors required
	// before auto-assignment is considered
	MinMatches int `json:"min_matches" mapstructure:"min_matches"`

	// AgreementThreshold is the minimum share of neighbors that must agree
	// on a single category for auto-assignment
	AgreementThreshold float64 `json:"agreement_threshold" mapstructure:"agreement_threshold"`

	// MaxSuggestions caps the candidate categories attached to a
	// needs-review result
	MaxSuggestions int `json:"max_suggestions" mapstructure:"max_suggestions"`

	// Amount bucket boundaries for the composite text. Amounts are bucketed
	// so that a $5 coffee and a $500 flight never read as similar.
	SmallAmountMax  float64 `json:"small_amount_max" mapstructure:"small_amount_max"`
	MediumAmountMax float64 `json:"medium_amount_max" mapstructure:"medium_amount_max"`
	LargeAmountMax  float64 `json:"large_amount_max" mapstructure:"large_amount_max"`
}

// DefaultConfig returns the standard categorization configuration
func DefaultConfig() *Config {
	return &Config{
		TopK:               5,
		MinMatches:         3,
		AgreementThreshold: 0.85,
		MaxSuggestions:     3,
		SmallAmountMax:     10,
		MediumAmountMax:    50,
		LargeAmountMax:     200,
	}
}

// Validate checks if the categorization configuration is valid
func (c *Config) Validate() error {
	if c.TopK <= 0 {
		return fmt.Errorf("top_k must be positive: %d", c.TopK)
	}
	if c.MinMatches <= 0 {
		return fmt.Errorf("min_matches must be positive: %d", c.MinMatches)
	}
	if c.MinMatches > c.TopK {
		return fmt.Errorf("min_matches (%d) cannot exceed top_k (%d)", c.MinMatches, c.TopK)
	}
	if c.AgreementThreshold <= 0 || c.AgreementThreshold > 1 {
		return fmt.Errorf("agreement_threshold must be in (0, 1]: %f", c.AgreementThreshold)
	}
	if c.MaxSuggestions < 0 {
		return fmt.Errorf("max_suggestions cannot be negative: %d", c.MaxSuggestions)
	}
	if !(c.SmallAmountMax < c.MediumAmountMax && c.MediumAmountMax < c.LargeAmountMax) {
		return fmt.Errorf("amount bucket boundaries must be strictly increasing")
	}
	return nil
}
