package recurring

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/montanaflynn/stats"

	"transaction-intelligence-service/internal/models"
	pipeErrors "transaction-intelligence-service/pkg/errors"
	"transaction-intelligence-service/pkg/logger"
)

// recurringNamespace seeds the name-based UUIDs for recurring groups. With
// a fixed namespace, the same (merchant, amount, interval) always yields
// the same group ID across detection runs.
var recurringNamespace = uuid.MustParse("8f2a4c9e-1d3b-4e7f-9a60-5c8d2b714e35")

// Config holds the configuration for recurring pattern detection
type Config struct {
	// MinOccurrences is the minimum number of transactions a (merchant,
	// amount) pair needs before cadence analysis applies
	MinOccurrences int `json:"min_occurrences" mapstructure:"min_occurrences"`

	// ToleranceDays is the allowed deviation, in days, between the
	// observed cadence and a canonical interval
	ToleranceDays int `json:"tolerance_days" mapstructure:"tolerance_days"`

	// YearlyToleranceDays is the widened deviation allowed for yearly and
	// longer intervals
	YearlyToleranceDays int `json:"yearly_tolerance_days" mapstructure:"yearly_tolerance_days"`

	// Intervals are the canonical cadences in days, ascending. The first
	// interval that fits wins.
	Intervals []int `json:"intervals" mapstructure:"intervals"`
}

// DefaultConfig returns the standard recurring detection configuration
func DefaultConfig() *Config {
	return &Config{
		MinOccurrences:      2,
		ToleranceDays:       3,
		YearlyToleranceDays: 7,
		Intervals:           []int{7, 14, 28, 30, 31, 90, 365},
	}
}

// Validate checks if the recurring detection configuration is valid
func (c *Config) Validate() error {
	if c.MinOccurrences < 2 {
		return fmt.Errorf("min_occurrences must be at least 2: %d", c.MinOccurrences)
	}
	if c.ToleranceDays < 0 || c.YearlyToleranceDays < 0 {
		return fmt.Errorf("tolerances cannot be negative")
	}
	if len(c.Intervals) == 0 {
		return fmt.Errorf("at least one canonical interval is required")
	}
	for i := 1; i < len(c.Intervals); i++ {
		if c.Intervals[i] <= c.Intervals[i-1] {
			return fmt.Errorf("intervals must be strictly ascending")
		}
	}
	return nil
}

// Marker is the store surface the detector needs to persist its findings
type Marker interface {
	List(ctx context.Context) ([]*models.Transaction, error)
	ClearRecurring(ctx context.Context) error
	MarkRecurring(ctx context.Context, transactionIDs []int64, groupID string) error
}

// Detector finds subscription and bill patterns by cadence analysis over
// exact (merchant, amount) groups.
type Detector struct {
	config *Config
	logger logger.Logger
}

// NewDetector creates a recurring pattern detector
func NewDetector(config *Config) *Detector {
	if config == nil {
		config = DefaultConfig()
	}
	return &Detector{
		config: config,
		logger: logger.GetGlobalLogger().WithComponent("recurring_detector"),
	}
}

// Detect analyzes the full transaction history and returns every group
// whose cadence fits a canonical interval. Groups are recomputed from
// scratch; results are ordered by merchant then amount for stable output.
func (d *Detector) Detect(transactions []*models.Transaction) []*models.RecurringGroup {
	type key struct {
		merchant string
		amount   string
	}

	buckets := make(map[key][]*models.Transaction)
	for _, txn := range transactions {
		k := key{merchant: txn.Merchant, amount: txn.Amount.String()}
		buckets[k] = append(buckets[k], txn)
	}

	var groups []*models.RecurringGroup
	for k, members := range buckets {
		if len(members) < d.config.MinOccurrences {
			continue
		}

		sort.Slice(members, func(i, j int) bool {
			return members[i].Date.Before(members[j].Date)
		})

		interval, ok := d.matchInterval(members)
		if !ok {
			continue
		}

		ids := make([]int64, len(members))
		for i, txn := range members {
			ids[i] = txn.ID
		}

		groups = append(groups, &models.RecurringGroup{
			GroupID:        groupID(k.merchant, k.amount, interval),
			Merchant:       k.merchant,
			Amount:         members[0].Amount,
			IntervalDays:   interval,
			IntervalType:   models.IntervalLabel(interval),
			TransactionIDs: ids,
			Count:          len(members),
		})
	}

	sort.Slice(groups, func(i, j int) bool {
		if groups[i].Merchant != groups[j].Merchant {
			return groups[i].Merchant < groups[j].Merchant
		}
		return groups[i].Amount.Cmp(groups[j].Amount) < 0
	})

	d.logger.WithFields(logger.Fields{
		"transactions": len(transactions),
		"groups":       len(groups),
	}).Info("Recurring detection complete")

	return groups
}

// DetectAndMark recomputes recurring groups from the stored history and
// persists the result. All prior flags are cleared first so groups that
// stopped fitting lose their mark.
func (d *Detector) DetectAndMark(ctx context.Context, store Marker) ([]*models.RecurringGroup, error) {
	transactions, err := store.List(ctx)
	if err != nil {
		return nil, pipeErrors.DetectionError(pipeErrors.CodeDetectionFailed, "recurring detection", err)
	}

	groups := d.Detect(transactions)

	if err := store.ClearRecurring(ctx); err != nil {
		return nil, pipeErrors.DetectionError(pipeErrors.CodeDetectionFailed, "clearing recurring flags", err)
	}

	for _, group := range groups {
		if err := store.MarkRecurring(ctx, group.TransactionIDs, group.GroupID); err != nil {
			return nil, pipeErrors.DetectionError(pipeErrors.CodeDetectionFailed, "marking recurring group", err).
				WithContext("group_id", group.GroupID)
		}
	}

	return groups, nil
}

// matchInterval computes the gap statistics for a date-sorted group and
// returns the first canonical interval the cadence fits. Both the mean gap
// and its spread must sit within tolerance.
func (d *Detector) matchInterval(members []*models.Transaction) (int, bool) {
	gaps := make([]float64, 0, len(members)-1)
	for i := 1; i < len(members); i++ {
		days := members[i].Date.Sub(members[i-1].Date).Hours() / 24
		gaps = append(gaps, days)
	}

	mean, err := stats.Mean(gaps)
	if err != nil {
		return 0, false
	}

	// A single gap has no measurable spread. With more gaps the sample
	// estimator applies, since the observed gaps are a sample of the
	// merchant's ongoing cadence.
	var stdev float64
	if len(gaps) > 1 {
		stdev, err = stats.StandardDeviationSample(gaps)
		if err != nil {
			return 0, false
		}
	}

	for _, interval := range d.config.Intervals {
		tolerance := float64(d.config.ToleranceDays)
		if interval >= 365 {
			tolerance = float64(d.config.YearlyToleranceDays)
		}

		diff := mean - float64(interval)
		if diff < 0 {
			diff = -diff
		}

		if diff <= tolerance && stdev <= tolerance {
			return interval, true
		}
	}

	return 0, false
}

// groupID derives the stable identity of a recurring group
func groupID(merchant, amount string, intervalDays int) string {
	name := fmt.Sprintf("%s|%s|%d", merchant, amount, intervalDays)
	return uuid.NewSHA1(recurringNamespace, []byte(name)).String()
}
