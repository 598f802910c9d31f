package formats

import (
	"fmt"
	"strings"

	"transaction-intelligence-service/pkg/logger"
)

// DetectorConfig holds the scoring weights for format detection. The weights
// are the main tuning surface: signature columns discriminate between
// institutions, plain headers are weak shared evidence, and a filename
// carrying the institution name is the strongest single hint.
type DetectorConfig struct {
	// SignatureWeight is the score per matched signature column
	SignatureWeight int `json:"signature_weight" mapstructure:"signature_weight"`

	// HeaderWeight is the score per matched expected header
	HeaderWeight int `json:"header_weight" mapstructure:"header_weight"`

	// FilenameWeight is the score added when the filename contains the institution name
	FilenameWeight int `json:"filename_weight" mapstructure:"filename_weight"`
}

// DefaultDetectorConfig returns the standard detection weights
func DefaultDetectorConfig() *DetectorConfig {
	return &DetectorConfig{
		SignatureWeight: 3,
		HeaderWeight:    1,
		FilenameWeight:  5,
	}
}

// Validate checks if the detector configuration is valid
func (c *DetectorConfig) Validate() error {
	if c.SignatureWeight < 0 || c.HeaderWeight < 0 || c.FilenameWeight < 0 {
		return fmt.Errorf("detection weights cannot be negative")
	}
	if c.SignatureWeight == 0 && c.HeaderWeight == 0 && c.FilenameWeight == 0 {
		return fmt.Errorf("at least one detection weight must be positive")
	}
	return nil
}

// Detector scores file headers against the profile registry
type Detector struct {
	config *DetectorConfig
	logger logger.Logger
}

// NewDetector creates a format detector with the given configuration
func NewDetector(config *DetectorConfig) *Detector {
	if config == nil {
		config = DefaultDetectorConfig()
	}
	return &Detector{
		config: config,
		logger: logger.GetGlobalLogger().WithComponent("format_detector"),
	}
}

// Detect scores every known profile against the file headers and optional
// filename, returning the best-scoring profile and its score. Ties keep the
// first profile encountered in registry order. When no profile scores above
// the generic baseline, the generic fallback is returned with score 0.
func (d *Detector) Detect(headers []string, filename string) (Profile, int) {
	headersLower := make([]string, 0, len(headers))
	for _, h := range headers {
		headersLower = append(headersLower, strings.ToLower(strings.TrimSpace(h)))
	}
	filenameLower := strings.ToLower(filename)

	best := Generic()
	bestScore := 0

	for _, profile := range registry {
		if profile.IsGeneric() {
			continue
		}

		score := 0

		for _, sig := range profile.SignatureColumns {
			if matchesHeader(strings.ToLower(sig), headersLower) {
				score += d.config.SignatureWeight
			}
		}

		for _, expected := range profile.Headers {
			if matchesHeader(strings.ToLower(expected), headersLower) {
				score += d.config.HeaderWeight
			}
		}

		if filenameLower != "" {
			institution := strings.ToLower(profile.Institution)
			if institution != "" && strings.Contains(filenameLower, institution) {
				score += d.config.FilenameWeight
			}
		}

		if score > bestScore {
			bestScore = score
			best = profile
		}
	}

	d.logger.WithFields(logger.Fields{
		"profile": best.ID,
		"score":   bestScore,
	}).Debug("Detected statement format")

	return best, bestScore
}

// matchesHeader reports whether the expected column name matches any header
// by case-insensitive exact or substring match.
func matchesHeader(expectedLower string, headersLower []string) bool {
	for _, h := range headersLower {
		if h == expectedLower || strings.Contains(h, expectedLower) {
			return true
		}
	}
	return false
}
