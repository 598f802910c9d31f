package anomaly

import (
	"context"
	"fmt"
	"sort"

	"github.com/montanaflynn/stats"

	"transaction-intelligence-service/internal/models"
	pipeErrors "transaction-intelligence-service/pkg/errors"
	"transaction-intelligence-service/pkg/logger"
)

// Config holds the configuration for anomaly detection
type Config struct {
	// IQRMultiplier scales the interquartile range when building the
	// outlier fences
	IQRMultiplier float64 `json:"iqr_multiplier" mapstructure:"iqr_multiplier"`

	// MedianMultiplier scales the global median for the new-merchant rule
	MedianMultiplier float64 `json:"median_multiplier" mapstructure:"median_multiplier"`

	// MinSamples is the minimum category size before fences apply
	MinSamples int `json:"min_samples" mapstructure:"min_samples"`
}

// DefaultConfig returns the standard anomaly detection configuration
func DefaultConfig() *Config {
	return &Config{
		IQRMultiplier:    1.5,
		MedianMultiplier: 3,
		MinSamples:       2,
	}
}

// Validate checks if the anomaly detection configuration is valid
func (c *Config) Validate() error {
	if c.IQRMultiplier <= 0 {
		return fmt.Errorf("iqr_multiplier must be positive: %f", c.IQRMultiplier)
	}
	if c.MedianMultiplier <= 0 {
		return fmt.Errorf("median_multiplier must be positive: %f", c.MedianMultiplier)
	}
	if c.MinSamples < 2 {
		return fmt.Errorf("min_samples must be at least 2: %d", c.MinSamples)
	}
	return nil
}

// Marker is the store surface the detector needs to persist its findings
type Marker interface {
	List(ctx context.Context) ([]*models.Transaction, error)
	ClearAnomalies(ctx context.Context) error
	MarkAnomaly(ctx context.Context, transactionID int64, reason string) error
}

// Detector flags transactions whose magnitude is a statistical outlier
// within their category, plus oversized first-time merchant charges.
type Detector struct {
	config *Config
	logger logger.Logger
}

// NewDetector creates an anomaly detector
func NewDetector(config *Config) *Detector {
	if config == nil {
		config = DefaultConfig()
	}
	return &Detector{
		config: config,
		logger: logger.GetGlobalLogger().WithComponent("anomaly_detector"),
	}
}

// Detect analyzes the full transaction history and returns one flag per
// anomalous transaction. A transaction can accumulate several reasons.
// Results are ordered by transaction ID for stable output.
func (d *Detector) Detect(transactions []*models.Transaction) []*models.AnomalyFlag {
	reasons := make(map[int64][]string)
	byID := make(map[int64]*models.Transaction, len(transactions))
	for _, txn := range transactions {
		byID[txn.ID] = txn
	}

	d.flagCategoryOutliers(transactions, reasons)
	d.flagNewMerchants(transactions, reasons)

	ids := make([]int64, 0, len(reasons))
	for id := range reasons {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	flags := make([]*models.AnomalyFlag, 0, len(ids))
	for _, id := range ids {
		txn := byID[id]
		flags = append(flags, &models.AnomalyFlag{
			TransactionID: id,
			Merchant:      txn.Merchant,
			Amount:        txn.Amount,
			Reasons:       reasons[id],
		})
	}

	d.logger.WithFields(logger.Fields{
		"transactions": len(transactions),
		"flagged":      len(flags),
	}).Info("Anomaly detection complete")

	return flags
}

// DetectAndMark recomputes anomaly flags from the stored history and
// persists the result. Prior flags are cleared first, so repeated runs
// over unchanged data converge to the same state.
func (d *Detector) DetectAndMark(ctx context.Context, store Marker) ([]*models.AnomalyFlag, error) {
	transactions, err := store.List(ctx)
	if err != nil {
		return nil, pipeErrors.DetectionError(pipeErrors.CodeDetectionFailed, "anomaly detection", err)
	}

	flags := d.Detect(transactions)

	if err := store.ClearAnomalies(ctx); err != nil {
		return nil, pipeErrors.DetectionError(pipeErrors.CodeDetectionFailed, "clearing anomaly flags", err)
	}

	for _, flag := range flags {
		if err := store.MarkAnomaly(ctx, flag.TransactionID, flag.Reason()); err != nil {
			return nil, pipeErrors.DetectionError(pipeErrors.CodeDetectionFailed, "marking anomaly", err).
				WithContext("transaction_id", flag.TransactionID)
		}
	}

	return flags, nil
}

// flagCategoryOutliers applies Tukey-style fences to the absolute amounts
// within each category. Uncategorized transactions have no peer group yet
// and are left alone until categorization assigns them one. Quartiles are
// taken positionally from the sorted magnitudes so a handful of samples
// cannot manufacture fractional thresholds. When the interquartile range
// collapses to zero the fences widen to multiples of the quartiles
// themselves.
func (d *Detector) flagCategoryOutliers(transactions []*models.Transaction, reasons map[int64][]string) {
	byCategory := make(map[string][]*models.Transaction)
	for _, txn := range transactions {
		if txn.CategoryName == "" {
			continue
		}
		byCategory[txn.CategoryName] = append(byCategory[txn.CategoryName], txn)
	}

	for category, members := range byCategory {
		if len(members) < d.config.MinSamples {
			continue
		}

		magnitudes := make([]float64, len(members))
		for i, txn := range members {
			magnitudes[i], _ = txn.AbsAmount().Float64()
		}
		sort.Float64s(magnitudes)

		n := len(magnitudes)
		q1 := magnitudes[n/4]
		q3 := magnitudes[3*n/4]

		// A category of zero-amount noise rows has nothing to fence
		if q1 == 0 && q3 == 0 {
			continue
		}

		iqr := q3 - q1
		var lower, upper float64
		if iqr == 0 {
			lower = q1 * (1 - d.config.IQRMultiplier)
			upper = q3 * (1 + d.config.IQRMultiplier)
		} else {
			lower = q1 - d.config.IQRMultiplier*iqr
			upper = q3 + d.config.IQRMultiplier*iqr
		}

		for _, txn := range members {
			magnitude, _ := txn.AbsAmount().Float64()
			switch {
			case magnitude > upper:
				reasons[txn.ID] = append(reasons[txn.ID],
					fmt.Sprintf("unusually large amount for %s ($%.2f vs typical $%.2f-$%.2f)",
						category, magnitude, q1, q3))
			case magnitude < lower:
				reasons[txn.ID] = append(reasons[txn.ID],
					fmt.Sprintf("unusually small amount for %s ($%.2f vs typical $%.2f-$%.2f)",
						category, magnitude, q1, q3))
			}
		}
	}
}

// flagNewMerchants flags a merchant's only transaction when its magnitude
// dwarfs the global median. A merchant's second transaction lifts the
// flag on the next pass, since the merchant is no longer new.
func (d *Detector) flagNewMerchants(transactions []*models.Transaction, reasons map[int64][]string) {
	if len(transactions) == 0 {
		return
	}

	magnitudes := make([]float64, len(transactions))
	merchantCounts := make(map[string]int)
	for i, txn := range transactions {
		magnitudes[i], _ = txn.AbsAmount().Float64()
		merchantCounts[txn.Merchant]++
	}

	median, err := stats.Median(magnitudes)
	if err != nil || median <= 0 {
		return
	}

	threshold := d.config.MedianMultiplier * median
	for _, txn := range transactions {
		if merchantCounts[txn.Merchant] != 1 {
			continue
		}
		magnitude, _ := txn.AbsAmount().Float64()
		if magnitude > threshold {
			reasons[txn.ID] = append(reasons[txn.ID],
				fmt.Sprintf("first transaction from new merchant %s with unusually large amount ($%.2f vs median $%.2f)",
					txn.Merchant, magnitude, median))
		}
	}
}
