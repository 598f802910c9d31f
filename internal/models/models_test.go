package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestParseAmount(t *testing.T) {
	tests := []struct {
		input    string
		expected string
		wantErr  bool
	}{
		{"$-45.99", "-45.99", false},
		{"(125.50)", "-125.5", false},
		{"100.00", "100", false},
		{"$1,234.56", "1234.56", false},
		{"-12.34", "-12.34", false},
		{"  42.00  ", "42", false},
		{"($99.95)", "-99.95", false},
		{"", "", true},
		{"abc", "", true},
	}

	for _, tt := range tests {
		result, err := ParseAmount(tt.input)
		if tt.wantErr {
			if err == nil {
				t.Errorf("ParseAmount(%q): expected error, got %s", tt.input, result)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseAmount(%q): unexpected error: %v", tt.input, err)
			continue
		}
		expected, _ := decimal.NewFromString(tt.expected)
		if !result.Equal(expected) {
			t.Errorf("ParseAmount(%q): expected %s, got %s", tt.input, expected, result)
		}
	}
}

func TestParseDate(t *testing.T) {
	tests := []struct {
		input    string
		expected string
		wantErr  bool
	}{
		{"01/15/2024", "2024-01-15", false},
		{"2024-01-16", "2024-01-16", false},
		{"15-Jan-2024", "2024-01-15", false},
		{"2024/01/17", "2024-01-17", false},
		{"01/15/24", "2024-01-15", false},
		{"Jan 15, 2024", "2024-01-15", false},
		{"2024-01-15 10:30:00", "2024-01-15", false},
		{"", "", true},
		{"not a date", "", true},
	}

	for _, tt := range tests {
		result, err := ParseDate(tt.input)
		if tt.wantErr {
			if err == nil {
				t.Errorf("ParseDate(%q): expected error, got %s", tt.input, result)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseDate(%q): unexpected error: %v", tt.input, err)
			continue
		}
		if got := result.Format(DateLayout); got != tt.expected {
			t.Errorf("ParseDate(%q): expected %s, got %s", tt.input, tt.expected, got)
		}
	}
}

func TestParseDateEuropeanAfterUS(t *testing.T) {
	// 15/01/2024 cannot be a US date (month 15), so the European format applies
	result, err := ParseDate("15/01/2024")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := result.Format(DateLayout); got != "2024-01-15" {
		t.Errorf("expected 2024-01-15, got %s", got)
	}
}

func TestTransactionKey(t *testing.T) {
	date := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)
	a := NewTransaction(date, decimal.NewFromFloat(-45.99), "NETFLIX.COM", "")
	b := NewTransaction(date, decimal.NewFromFloat(-45.99), "NETFLIX.COM", "streaming")

	if a.Key() != b.Key() {
		t.Errorf("identical (date, amount, merchant) should share a key: %s vs %s", a.Key(), b.Key())
	}

	c := NewTransaction(date, decimal.NewFromFloat(-45.98), "NETFLIX.COM", "")
	if a.Key() == c.Key() {
		t.Error("different amounts should produce different keys")
	}
}

func TestNewTransactionDefaultsMerchant(t *testing.T) {
	txn := NewTransaction(time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC), decimal.NewFromInt(-5), "  ", "")
	if txn.Merchant != UnknownMerchant {
		t.Errorf("expected %s sentinel, got %q", UnknownMerchant, txn.Merchant)
	}
}

func TestTransactionValidate(t *testing.T) {
	txn := NewTransaction(time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC), decimal.NewFromInt(-5), "STORE", "")
	if err := txn.Validate(); err != nil {
		t.Errorf("expected valid transaction, got %v", err)
	}

	txn.Date = time.Time{}
	if err := txn.Validate(); err == nil {
		t.Error("expected error for zero date")
	}
}

func TestTransactionJSONRoundTrip(t *testing.T) {
	txn := NewTransaction(
		time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC),
		decimal.NewFromFloat(-45.99),
		"NETFLIX.COM",
		"subscription",
	)
	txn.IsRecurring = true
	txn.RecurringGroup = "grp-1"

	data, err := json.Marshal(txn)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}

	var decoded Transaction
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}

	if !decoded.Amount.Equal(txn.Amount) {
		t.Errorf("amount mismatch: %s vs %s", decoded.Amount, txn.Amount)
	}
	if !decoded.Date.Equal(txn.Date) {
		t.Errorf("date mismatch: %s vs %s", decoded.Date, txn.Date)
	}
	if decoded.Merchant != txn.Merchant || !decoded.IsRecurring {
		t.Error("field mismatch after round trip")
	}
}

func TestIntervalLabel(t *testing.T) {
	tests := []struct {
		days     int
		expected string
	}{
		{7, "weekly"},
		{14, "biweekly"},
		{28, "monthly"},
		{30, "monthly"},
		{31, "monthly"},
		{90, "quarterly"},
		{365, "yearly"},
		{366, "yearly"},
		{45, "every 45 days"},
	}

	for _, tt := range tests {
		if got := IntervalLabel(tt.days); got != tt.expected {
			t.Errorf("IntervalLabel(%d): expected %s, got %s", tt.days, tt.expected, got)
		}
	}
}
