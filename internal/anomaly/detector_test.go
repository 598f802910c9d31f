package anomaly

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"transaction-intelligence-service/internal/models"
)

var nextID int64

func categorizedTxn(amount float64, merchant, category string) *models.Transaction {
	txn := models.NewTransaction(
		time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC),
		decimal.NewFromFloat(amount),
		merchant,
		"",
	)
	nextID++
	txn.ID = nextID
	txn.CategoryName = category
	return txn
}

func TestDetectLargeOutlierInCategory(t *testing.T) {
	detector := NewDetector(nil)
	txns := []*models.Transaction{
		categorizedTxn(-48, "GROCERY A", "Groceries"),
		categorizedTxn(-50, "GROCERY B", "Groceries"),
		categorizedTxn(-52, "GROCERY C", "Groceries"),
		categorizedTxn(-49, "GROCERY D", "Groceries"),
		categorizedTxn(-55, "GROCERY E", "Groceries"),
		categorizedTxn(-51, "GROCERY F", "Groceries"),
		categorizedTxn(-500, "GROCERY G", "Groceries"),
		categorizedTxn(-53, "GROCERY H", "Groceries"),
	}

	flags := detector.Detect(txns)

	var found *models.AnomalyFlag
	for _, f := range flags {
		if f.Amount.Equal(decimal.NewFromInt(-500)) {
			found = f
		}
	}
	if found == nil {
		t.Fatal("expected the $500 transaction to be flagged")
	}
	if len(found.Reasons) == 0 {
		t.Error("flag must carry at least one reason")
	}
}

func TestDetectTightClusterNeverFlagged(t *testing.T) {
	detector := NewDetector(nil)
	txns := []*models.Transaction{
		categorizedTxn(-48, "GROCERY A", "Groceries"),
		categorizedTxn(-50, "GROCERY A", "Groceries"),
		categorizedTxn(-52, "GROCERY A", "Groceries"),
		categorizedTxn(-49, "GROCERY A", "Groceries"),
		categorizedTxn(-55, "GROCERY A", "Groceries"),
		categorizedTxn(-51, "GROCERY A", "Groceries"),
	}

	if flags := detector.Detect(txns); len(flags) != 0 {
		t.Errorf("tight cluster should produce no flags, got %d: %v", len(flags), flags[0].Reasons)
	}
}

func TestDetectZeroIQRWidensFences(t *testing.T) {
	detector := NewDetector(nil)
	// Identical recurring charges collapse the IQR to zero; the widened
	// fences still catch a charge at 4x the usual price.
	txns := []*models.Transaction{
		categorizedTxn(-15.99, "NETFLIX.COM", "Streaming"),
		categorizedTxn(-15.99, "NETFLIX.COM", "Streaming"),
		categorizedTxn(-15.99, "NETFLIX.COM", "Streaming"),
		categorizedTxn(-15.99, "NETFLIX.COM", "Streaming"),
		categorizedTxn(-63.96, "NETFLIX STORE", "Streaming"),
	}

	flags := detector.Detect(txns)

	if len(flags) != 1 {
		t.Fatalf("expected 1 flag, got %d", len(flags))
	}
	if !flags[0].Amount.Equal(decimal.NewFromFloat(-63.96)) {
		t.Errorf("wrong transaction flagged: %s", flags[0].Amount)
	}
}

func TestDetectSkipsSmallCategories(t *testing.T) {
	detector := NewDetector(nil)
	txns := []*models.Transaction{
		categorizedTxn(-5000, "JEWELER", "Gifts"),
	}

	// A single transaction cannot be an outlier within its own category,
	// and it is also the global median so the new-merchant rule stays quiet.
	if flags := detector.Detect(txns); len(flags) != 0 {
		t.Errorf("expected no flags, got %d", len(flags))
	}
}

func TestDetectSkipsUncategorizedTransactions(t *testing.T) {
	detector := NewDetector(nil)
	// Freshly imported history has no categories yet, so there is no peer
	// group to fence against, even when one charge dwarfs the rest.
	txns := []*models.Transaction{
		categorizedTxn(-50, "GROCERY A", ""),
		categorizedTxn(-51, "GROCERY A", ""),
		categorizedTxn(-49, "GROCERY A", ""),
		categorizedTxn(-52, "GROCERY A", ""),
		categorizedTxn(-500, "GROCERY A", ""),
	}

	if flags := detector.Detect(txns); len(flags) != 0 {
		t.Errorf("uncategorized transactions must not be fenced, got %d flags: %v",
			len(flags), flags[0].Reasons)
	}
}

func TestDetectNewMerchantRule(t *testing.T) {
	detector := NewDetector(nil)
	txns := []*models.Transaction{
		categorizedTxn(-40, "GROCERY A", "Groceries"),
		categorizedTxn(-45, "GROCERY A", "Groceries"),
		categorizedTxn(-50, "GROCERY A", "Groceries"),
		categorizedTxn(-42, "GROCERY A", "Groceries"),
		categorizedTxn(-47, "GROCERY A", "Groceries"),
		// First and only charge from this merchant, far above 3x median
		categorizedTxn(-900, "LUXURY RESORT", "Travel"),
	}

	flags := detector.Detect(txns)

	var found *models.AnomalyFlag
	for _, f := range flags {
		if f.Merchant == "LUXURY RESORT" {
			found = f
		}
	}
	if found == nil {
		t.Fatal("expected the new merchant charge to be flagged")
	}
}

func TestDetectSecondTransactionLiftsNewMerchantFlag(t *testing.T) {
	detector := NewDetector(nil)
	base := []*models.Transaction{
		categorizedTxn(-40, "GROCERY A", "Groceries"),
		categorizedTxn(-45, "GROCERY A", "Groceries"),
		categorizedTxn(-50, "GROCERY A", "Groceries"),
		categorizedTxn(-42, "GROCERY A", "Groceries"),
		categorizedTxn(-900, "LUXURY RESORT", "Travel"),
		categorizedTxn(-850, "LUXURY RESORT", "Travel"),
	}

	flags := detector.Detect(base)

	for _, f := range flags {
		for _, reason := range f.Reasons {
			if f.Merchant == "LUXURY RESORT" && len(reason) > 0 &&
				containsNewMerchantReason(reason) {
				t.Error("merchant with two transactions must not trip the new-merchant rule")
			}
		}
	}
}

func containsNewMerchantReason(reason string) bool {
	return len(reason) >= 16 && reason[:16] == "first transactio"
}

func TestDetectMultipleReasonsConcatenate(t *testing.T) {
	flag := &models.AnomalyFlag{
		Reasons: []string{"reason one", "reason two"},
	}
	if flag.Reason() != "reason one; reason two" {
		t.Errorf("unexpected combined reason: %q", flag.Reason())
	}
}

type fakeMarker struct {
	txns    []*models.Transaction
	cleared bool
	marked  map[int64]string
}

func (f *fakeMarker) List(ctx context.Context) ([]*models.Transaction, error) {
	return f.txns, nil
}

func (f *fakeMarker) ClearAnomalies(ctx context.Context) error {
	f.cleared = true
	f.marked = make(map[int64]string)
	return nil
}

func (f *fakeMarker) MarkAnomaly(ctx context.Context, id int64, reason string) error {
	f.marked[id] = reason
	return nil
}

func TestDetectAndMarkIdempotent(t *testing.T) {
	marker := &fakeMarker{
		txns: []*models.Transaction{
			categorizedTxn(-48, "GROCERY A", "Groceries"),
			categorizedTxn(-50, "GROCERY B", "Groceries"),
			categorizedTxn(-52, "GROCERY C", "Groceries"),
			categorizedTxn(-49, "GROCERY D", "Groceries"),
			categorizedTxn(-55, "GROCERY E", "Groceries"),
			categorizedTxn(-51, "GROCERY F", "Groceries"),
			categorizedTxn(-500, "GROCERY G", "Groceries"),
			categorizedTxn(-53, "GROCERY H", "Groceries"),
		},
	}

	detector := NewDetector(nil)

	first, err := detector.DetectAndMark(context.Background(), marker)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	firstMarked := len(marker.marked)

	second, err := detector.DetectAndMark(context.Background(), marker)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(first) != len(second) || firstMarked != len(marker.marked) {
		t.Errorf("repeated runs over unchanged data must converge: %d/%d flags, %d/%d marked",
			len(first), len(second), firstMarked, len(marker.marked))
	}
	if !marker.cleared {
		t.Error("prior flags must be cleared before marking")
	}
}

func TestConfigValidation(t *testing.T) {
	if err := DefaultConfig().Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}

	bad := DefaultConfig()
	bad.IQRMultiplier = 0
	if err := bad.Validate(); err == nil {
		t.Error("expected error for zero iqr_multiplier")
	}

	bad = DefaultConfig()
	bad.MinSamples = 1
	if err := bad.Validate(); err == nil {
		t.Error("expected error for min_samples below 2")
	}
}
