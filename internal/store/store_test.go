package store

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"transaction-intelligence-service/internal/models"
)

func testStores(t *testing.T) map[string]Store {
	t.Helper()

	sqlite, err := NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("failed to open sqlite store: %v", err)
	}
	t.Cleanup(func() { sqlite.Close() })

	return map[string]Store{
		"memory": NewMemoryStore(),
		"sqlite": sqlite,
	}
}

func sampleTxn(date string, amount float64, merchant string) *models.Transaction {
	d, err := time.Parse(models.DateLayout, date)
	if err != nil {
		panic(err)
	}
	return models.NewTransaction(d, decimal.NewFromFloat(amount), merchant, "")
}

func TestInsertAndList(t *testing.T) {
	for name, s := range testStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			result, err := s.Insert(ctx, []*models.Transaction{
				sampleTxn("2024-01-16", -6.50, "STARBUCKS"),
				sampleTxn("2024-01-15", -45.99, "NETFLIX.COM"),
			})
			if err != nil {
				t.Fatalf("insert failed: %v", err)
			}
			if result.Inserted != 2 || result.Duplicates != 0 {
				t.Fatalf("expected 2 inserts, got %+v", result)
			}

			listed, err := s.List(ctx)
			if err != nil {
				t.Fatalf("list failed: %v", err)
			}
			if len(listed) != 2 {
				t.Fatalf("expected 2 transactions, got %d", len(listed))
			}
			// Ordered by date
			if listed[0].Merchant != "NETFLIX.COM" {
				t.Errorf("expected date ordering, got %s first", listed[0].Merchant)
			}
			if listed[0].ID == 0 {
				t.Error("expected assigned ID")
			}
		})
	}
}

func TestInsertDeduplicates(t *testing.T) {
	for name, s := range testStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			first, err := s.Insert(ctx, []*models.Transaction{
				sampleTxn("2024-01-15", -45.99, "NETFLIX.COM"),
			})
			if err != nil {
				t.Fatalf("insert failed: %v", err)
			}

			// Same identity, different description: still a duplicate
			dup := sampleTxn("2024-01-15", -45.99, "NETFLIX.COM")
			dup.Description = "resubmitted"
			second, err := s.Insert(ctx, []*models.Transaction{dup})
			if err != nil {
				t.Fatalf("insert failed: %v", err)
			}

			if first.Inserted != 1 || second.Inserted != 0 || second.Duplicates != 1 {
				t.Errorf("expected duplicate skipped: first=%+v second=%+v", first, second)
			}

			listed, _ := s.List(ctx)
			if len(listed) != 1 {
				t.Errorf("expected 1 stored transaction, got %d", len(listed))
			}
		})
	}
}

func TestUpdateCategory(t *testing.T) {
	for name, s := range testStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			txn := sampleTxn("2024-01-15", -45.99, "NETFLIX.COM")
			if _, err := s.Insert(ctx, []*models.Transaction{txn}); err != nil {
				t.Fatalf("insert failed: %v", err)
			}

			categoryID := int64(7)
			if err := s.UpdateCategory(ctx, txn.ID, &categoryID, "Streaming"); err != nil {
				t.Fatalf("update failed: %v", err)
			}

			got, err := s.Get(ctx, txn.ID)
			if err != nil {
				t.Fatalf("get failed: %v", err)
			}
			if got.CategoryName != "Streaming" || got.CategoryID == nil || *got.CategoryID != 7 {
				t.Errorf("category not persisted: %+v", got)
			}

			if err := s.UpdateCategory(ctx, 9999, nil, "X"); err == nil {
				t.Error("expected error updating missing transaction")
			}
		})
	}
}

func TestMarkAndClearRecurring(t *testing.T) {
	for name, s := range testStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			a := sampleTxn("2024-01-15", -15.99, "NETFLIX.COM")
			b := sampleTxn("2024-02-15", -15.99, "NETFLIX.COM")
			c := sampleTxn("2024-01-20", -80.00, "GROCERY")
			if _, err := s.Insert(ctx, []*models.Transaction{a, b, c}); err != nil {
				t.Fatalf("insert failed: %v", err)
			}

			if err := s.MarkRecurring(ctx, []int64{a.ID, b.ID}, "group-1"); err != nil {
				t.Fatalf("mark failed: %v", err)
			}

			listed, _ := s.List(ctx)
			recurring := 0
			for _, txn := range listed {
				if txn.IsRecurring {
					recurring++
					if txn.RecurringGroup != "group-1" {
						t.Errorf("wrong group: %s", txn.RecurringGroup)
					}
				}
			}
			if recurring != 2 {
				t.Errorf("expected 2 recurring transactions, got %d", recurring)
			}

			if err := s.ClearRecurring(ctx); err != nil {
				t.Fatalf("clear failed: %v", err)
			}
			listed, _ = s.List(ctx)
			for _, txn := range listed {
				if txn.IsRecurring || txn.RecurringGroup != "" {
					t.Errorf("recurring flag survived clear: %+v", txn)
				}
			}
		})
	}
}

func TestMarkAndClearAnomalies(t *testing.T) {
	for name, s := range testStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			txn := sampleTxn("2024-01-15", -500.00, "GROCERY")
			if _, err := s.Insert(ctx, []*models.Transaction{txn}); err != nil {
				t.Fatalf("insert failed: %v", err)
			}

			if err := s.MarkAnomaly(ctx, txn.ID, "unusually large amount"); err != nil {
				t.Fatalf("mark failed: %v", err)
			}

			got, _ := s.Get(ctx, txn.ID)
			if !got.IsAnomaly || got.AnomalyReason != "unusually large amount" {
				t.Errorf("anomaly not persisted: %+v", got)
			}

			if err := s.ClearAnomalies(ctx); err != nil {
				t.Fatalf("clear failed: %v", err)
			}
			got, _ = s.Get(ctx, txn.ID)
			if got.IsAnomaly || got.AnomalyReason != "" {
				t.Errorf("anomaly flag survived clear: %+v", got)
			}
		})
	}
}

func TestAppendCategorizationLog(t *testing.T) {
	ctx := context.Background()

	sqlite, err := NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("failed to open sqlite store: %v", err)
	}
	defer sqlite.Close()

	txn := sampleTxn("2024-01-15", -45.99, "NETFLIX.COM")
	if _, err := sqlite.Insert(ctx, []*models.Transaction{txn}); err != nil {
		t.Fatalf("insert failed: %v", err)
	}

	result := &models.CategorizationResult{
		CategoryName: "Streaming",
		Confidence:   1.0,
		Method:       models.MethodAuto,
		Explanation:  "5 of 5 similar transactions are categorized as Streaming",
	}
	if err := sqlite.AppendCategorizationLog(ctx, txn.ID, result); err != nil {
		t.Fatalf("append failed: %v", err)
	}

	entries, err := sqlite.CategorizationLog(ctx)
	if err != nil {
		t.Fatalf("read log failed: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 log entry, got %d", len(entries))
	}
	entry := entries[0]
	if entry.TransactionID != txn.ID || entry.Method != models.MethodAuto || entry.CategoryName != "Streaming" {
		t.Errorf("unexpected log entry: %+v", entry)
	}
}

func TestGetMissingTransaction(t *testing.T) {
	for name, s := range testStores(t) {
		t.Run(name, func(t *testing.T) {
			if _, err := s.Get(context.Background(), 424242); err == nil {
				t.Error("expected error for missing transaction")
			}
		})
	}
}

func TestSQLiteAmountPrecision(t *testing.T) {
	ctx := context.Background()

	sqlite, err := NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("failed to open sqlite store: %v", err)
	}
	defer sqlite.Close()

	amount, _ := decimal.NewFromString("-1234567.89")
	txn := models.NewTransaction(
		time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC), amount, "BIG PURCHASE", "")

	if _, err := sqlite.Insert(ctx, []*models.Transaction{txn}); err != nil {
		t.Fatalf("insert failed: %v", err)
	}

	got, err := sqlite.Get(ctx, txn.ID)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if !got.Amount.Equal(amount) {
		t.Errorf("amount lost precision: %s vs %s", got.Amount, amount)
	}
}
