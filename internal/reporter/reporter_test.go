package reporter

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"transaction-intelligence-service/internal/models"
	"transaction-intelligence-service/internal/normalizer"
)

func TestParseFormat(t *testing.T) {
	if f, err := ParseFormat("JSON"); err != nil || f != FormatJSON {
		t.Errorf("expected json format, got %v %v", f, err)
	}
	if f, err := ParseFormat("console"); err != nil || f != FormatConsole {
		t.Errorf("expected console format, got %v %v", f, err)
	}
	if _, err := ParseFormat("xml"); err == nil {
		t.Error("expected error for unknown format")
	}
}

func TestWriteImportConsole(t *testing.T) {
	var buf bytes.Buffer
	r := New(FormatConsole, &buf)

	err := r.WriteImport(&ImportReport{
		File:    "chase_export.csv",
		Profile: "chase_credit",
		Score:   14,
		Stats: &normalizer.ImportStats{
			RowsRead:     10,
			RowsImported: 8,
			RowsRejected: 1,
			RowsSkipped:  1,
			Duplicates:   2,
		},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	out := buf.String()
	for _, want := range []string{"chase_export.csv", "chase_credit", "Imported:   8", "Duplicates: 2"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected output to contain %q, got:\n%s", want, out)
		}
	}
}

func TestWriteDetectionJSON(t *testing.T) {
	var buf bytes.Buffer
	r := New(FormatJSON, &buf)

	report := &DetectionReport{
		RecurringGroups: []*models.RecurringGroup{
			{
				GroupID:      "abc",
				Merchant:     "NETFLIX.COM",
				Amount:       decimal.NewFromFloat(-15.99),
				IntervalDays: 30,
				IntervalType: "monthly",
				Count:        3,
			},
		},
		Anomalies: []*models.AnomalyFlag{},
	}

	if err := r.WriteDetection(report); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var decoded DetectionReport
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if len(decoded.RecurringGroups) != 1 || decoded.RecurringGroups[0].IntervalType != "monthly" {
		t.Errorf("unexpected decoded report: %+v", decoded)
	}
}

func TestWriteCategorizationConsole(t *testing.T) {
	var buf bytes.Buffer
	r := New(FormatConsole, &buf)

	txn := models.NewTransaction(
		time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC),
		decimal.NewFromFloat(-6.50),
		"CORNER CAFE",
		"",
	)

	report := &CategorizationReport{
		Total:       5,
		Auto:        4,
		NeedsReview: 1,
		Reviews: []*ReviewItem{
			{
				Transaction: txn,
				Result: &models.CategorizationResult{
					Method:      models.MethodNeedsReview,
					Explanation: "similar transactions disagree (best agreement 2 of 5)",
					Suggestions: []string{"Dining", "Coffee"},
				},
			},
		},
	}

	if err := r.WriteCategorization(report); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	out := buf.String()
	for _, want := range []string{"4 auto", "1 need review", "CORNER CAFE", "Dining, Coffee"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected output to contain %q, got:\n%s", want, out)
		}
	}
}
