package models

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// UnknownMerchant is the sentinel merchant name used when a statement row
// has no resolvable merchant value.
const UnknownMerchant = "UNKNOWN"

// DateLayout is the canonical date format used throughout the pipeline.
const DateLayout = "2006-01-02"

// Transaction represents a canonical transaction record produced by the
// statement normalizer. Identity for deduplication is the exact triple
// (date, amount, merchant).
type Transaction struct {
	ID             int64           `json:"id"`
	Date           time.Time       `json:"date"`
	Amount         decimal.Decimal `json:"amount"`
	Merchant       string          `json:"merchant"`
	Description    string          `json:"description,omitempty"`
	CategoryID     *int64          `json:"category_id,omitempty"`
	CategoryName   string          `json:"category_name,omitempty"`
	IsRecurring    bool            `json:"is_recurring"`
	RecurringGroup string          `json:"recurring_group,omitempty"`
	IsAnomaly      bool            `json:"is_anomaly"`
	AnomalyReason  string          `json:"anomaly_reason,omitempty"`
}

// NewTransaction creates a new Transaction instance
func NewTransaction(date time.Time, amount decimal.Decimal, merchant, description string) *Transaction {
	if strings.TrimSpace(merchant) == "" {
		merchant = UnknownMerchant
	}
	return &Transaction{
		Date:        date,
		Amount:      amount,
		Merchant:    strings.TrimSpace(merchant),
		Description: strings.TrimSpace(description),
	}
}

// Validate performs basic validation on the Transaction
func (t *Transaction) Validate() error {
	if t.Date.IsZero() {
		return fmt.Errorf("transaction date cannot be zero")
	}

	if strings.TrimSpace(t.Merchant) == "" {
		return fmt.Errorf("transaction merchant cannot be empty")
	}

	return nil
}

// Key returns the deduplication identity of the transaction. Two rows with
// the same date, amount, and merchant are the same transaction.
func (t *Transaction) Key() string {
	return fmt.Sprintf("%s|%s|%s", t.Date.Format(DateLayout), t.Amount.String(), t.Merchant)
}

// IsExpense returns true if the amount is negative
func (t *Transaction) IsExpense() bool {
	return t.Amount.IsNegative()
}

// AbsAmount returns the absolute value of the transaction amount
func (t *Transaction) AbsAmount() decimal.Decimal {
	return t.Amount.Abs()
}

// String returns a string representation of the Transaction
func (t *Transaction) String() string {
	return fmt.Sprintf("Transaction{Date: %s, Amount: %s, Merchant: %s}",
		t.Date.Format(DateLayout), t.Amount.String(), t.Merchant)
}

// MarshalJSON implements custom JSON marshaling for Transaction
func (t *Transaction) MarshalJSON() ([]byte, error) {
	type Alias Transaction
	return json.Marshal(&struct {
		Date   string `json:"date"`
		Amount string `json:"amount"`
		*Alias
	}{
		Date:   t.Date.Format(DateLayout),
		Amount: t.Amount.String(),
		Alias:  (*Alias)(t),
	})
}

// UnmarshalJSON implements custom JSON unmarshaling for Transaction
func (t *Transaction) UnmarshalJSON(data []byte) error {
	type Alias Transaction
	aux := &struct {
		Date   string `json:"date"`
		Amount string `json:"amount"`
		*Alias
	}{
		Alias: (*Alias)(t),
	}

	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	var err error
	t.Amount, err = decimal.NewFromString(aux.Amount)
	if err != nil {
		return fmt.Errorf("invalid amount format: %w", err)
	}

	t.Date, err = time.Parse(DateLayout, aux.Date)
	if err != nil {
		return fmt.Errorf("invalid date format: %w", err)
	}

	return nil
}

// CategorizationMethod describes how a categorization decision was reached
type CategorizationMethod string

const (
	// MethodAuto indicates the engine assigned the category on its own
	MethodAuto CategorizationMethod = "auto"
	// MethodNeedsReview indicates evidence was too thin and a human must decide
	MethodNeedsReview CategorizationMethod = "needs_review"
)

// SimilarTransaction is one neighbor returned by the similarity search,
// carried in categorization results for explainability.
type SimilarTransaction struct {
	TransactionID int64           `json:"transaction_id"`
	Merchant      string          `json:"merchant"`
	Amount        decimal.Decimal `json:"amount"`
	Category      string          `json:"category"`
	Similarity    float64         `json:"similarity"`
}

// CategorizationResult is the outcome of a single categorization call.
// It is ephemeral; the storage layer persists it as an audit log entry.
type CategorizationResult struct {
	CategoryID          *int64               `json:"category_id,omitempty"`
	CategoryName        string               `json:"category_name,omitempty"`
	Confidence          float64              `json:"confidence"`
	Method              CategorizationMethod `json:"method"`
	Explanation         string               `json:"explanation"`
	SimilarTransactions []SimilarTransaction `json:"similar_transactions,omitempty"`
	Suggestions         []string             `json:"suggestions,omitempty"`
}

// IsAuto returns true if the result was auto-categorized
func (r *CategorizationResult) IsAuto() bool {
	return r.Method == MethodAuto
}

// RecurringGroup describes a detected subscription or bill pattern.
// Groups are recomputed from scratch on every detection pass; the GroupID
// is derived from (merchant, amount, interval) and is stable across runs.
type RecurringGroup struct {
	GroupID        string          `json:"group_id"`
	Merchant       string          `json:"merchant"`
	Amount         decimal.Decimal `json:"amount"`
	IntervalDays   int             `json:"interval_days"`
	IntervalType   string          `json:"interval_type"`
	TransactionIDs []int64         `json:"transaction_ids"`
	Count          int             `json:"count"`
}

// AnomalyFlag marks a transaction as a statistical outlier. A transaction
// may carry multiple independent reasons.
type AnomalyFlag struct {
	TransactionID int64           `json:"transaction_id"`
	Merchant      string          `json:"merchant"`
	Amount        decimal.Decimal `json:"amount"`
	Reasons       []string        `json:"reasons"`
}

// Reason returns the combined reason text for the flag
func (f *AnomalyFlag) Reason() string {
	return strings.Join(f.Reasons, "; ")
}

// IntervalLabel converts a canonical interval in days to a human-readable
// cadence label.
func IntervalLabel(days int) string {
	switch {
	case days == 7:
		return "weekly"
	case days == 14:
		return "biweekly"
	case days >= 28 && days <= 31:
		return "monthly"
	case days == 90:
		return "quarterly"
	case days == 365 || days == 366:
		return "yearly"
	default:
		return fmt.Sprintf("every %d days", days)
	}
}

// ParseAmount normalizes an amount string to a signed decimal. Currency
// symbols and thousand separators are stripped, and accounting-style
// parentheses are treated as a negative sign.
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, fmt.Errorf("amount string cannot be empty")
	}

	s = strings.ReplaceAll(s, "$", "")
	s = strings.ReplaceAll(s, ",", "")
	s = strings.TrimSpace(s)

	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		s = "-" + s[1:len(s)-1]
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid amount format '%s': %w", s, err)
	}

	return d, nil
}

// Date formats tried in fixed priority order before the permissive fallback.
var dateFormats = []string{
	"2006-01-02", // ISO
	"01/02/2006", // US
	"01/02/06",   // US short year
	"2-Jan-2006", // 15-Jan-2024
	"02/01/2006", // European
	"2006/01/02", // alternative ISO
}

// Permissive fallback formats for dates that carry a time component or use
// spelled-out months.
var fallbackDateFormats = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"01/02/2006 15:04:05",
	"Jan 2, 2006",
	"January 2, 2006",
}

// ParseDate normalizes a date string to a calendar date, trying ISO, US,
// and alternate formats in a fixed priority order before falling back to
// a permissive set of general formats.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("date string cannot be empty")
	}

	for _, format := range dateFormats {
		if t, err := time.Parse(format, s); err == nil {
			return truncateToDate(t), nil
		}
	}

	var lastErr error
	for _, format := range fallbackDateFormats {
		if t, err := time.Parse(format, s); err == nil {
			return truncateToDate(t), nil
		} else {
			lastErr = err
		}
	}

	return time.Time{}, fmt.Errorf("unable to parse date '%s': %w", s, lastErr)
}

func truncateToDate(t time.Time) time.Time {
	year, month, day := t.Date()
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}
