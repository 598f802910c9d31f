package reporter

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"transaction-intelligence-service/internal/models"
	"transaction-intelligence-service/internal/normalizer"
	pipeErrors "transaction-intelligence-service/pkg/errors"
)

// Format selects the report output encoding
type Format string

const (
	FormatConsole Format = "console"
	FormatJSON    Format = "json"
)

// ParseFormat validates a format flag value
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(s)) {
	case FormatConsole:
		return FormatConsole, nil
	case FormatJSON:
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("unknown report format '%s' (expected console or json)", s)
	}
}

// ImportReport summarizes one statement import
type ImportReport struct {
	File        string                  `json:"file"`
	Profile     string                  `json:"profile"`
	Institution string                  `json:"institution,omitempty"`
	Score       int                     `json:"score"`
	Stats       *normalizer.ImportStats `json:"stats"`
}

// CategorizationReport summarizes a categorization pass
type CategorizationReport struct {
	Total       int           `json:"total"`
	Auto        int           `json:"auto"`
	NeedsReview int           `json:"needs_review"`
	Reviews     []*ReviewItem `json:"reviews,omitempty"`
}

// ReviewItem is one transaction left for manual review
type ReviewItem struct {
	Transaction *models.Transaction          `json:"transaction"`
	Result      *models.CategorizationResult `json:"result"`
}

// DetectionReport summarizes a detection pass over the stored history
type DetectionReport struct {
	RecurringGroups []*models.RecurringGroup `json:"recurring_groups"`
	Anomalies       []*models.AnomalyFlag    `json:"anomalies"`
}

// Reporter renders pipeline reports to a writer in the selected format
type Reporter struct {
	format Format
	out    io.Writer
}

// New creates a reporter writing to out
func New(format Format, out io.Writer) *Reporter {
	return &Reporter{format: format, out: out}
}

// WriteImport renders an import report
func (r *Reporter) WriteImport(report *ImportReport) error {
	if r.format == FormatJSON {
		return r.writeJSON(report)
	}

	fmt.Fprintf(r.out, "Imported %s\n", report.File)
	fmt.Fprintf(r.out, "  Format:     %s (score %d)\n", report.Profile, report.Score)
	if report.Institution != "" {
		fmt.Fprintf(r.out, "  Institution: %s\n", report.Institution)
	}
	fmt.Fprintf(r.out, "  Rows read:  %d\n", report.Stats.RowsRead)
	fmt.Fprintf(r.out, "  Imported:   %d\n", report.Stats.RowsImported)
	fmt.Fprintf(r.out, "  Duplicates: %d\n", report.Stats.Duplicates)
	fmt.Fprintf(r.out, "  Rejected:   %d\n", report.Stats.RowsRejected)
	fmt.Fprintf(r.out, "  Skipped:    %d\n", report.Stats.RowsSkipped)

	if len(report.Stats.Errors) > 0 {
		summary := pipeErrors.NewErrorSummary(report.Stats.Errors)
		fmt.Fprintf(r.out, "\nRow errors (%d):\n", summary.Total)
		for _, sample := range summary.SampleErrors {
			fmt.Fprintf(r.out, "  - %s\n", sample.Message)
		}
		if summary.Total > len(summary.SampleErrors) {
			fmt.Fprintf(r.out, "  ... and %d more\n", summary.Total-len(summary.SampleErrors))
		}
	}

	return nil
}

// WriteCategorization renders a categorization report
func (r *Reporter) WriteCategorization(report *CategorizationReport) error {
	if r.format == FormatJSON {
		return r.writeJSON(report)
	}

	fmt.Fprintf(r.out, "Categorized %d transactions: %d auto, %d need review\n",
		report.Total, report.Auto, report.NeedsReview)

	if len(report.Reviews) > 0 {
		fmt.Fprintln(r.out, "\nNeeds review:")
		w := tabwriter.NewWriter(r.out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "  DATE\tMERCHANT\tAMOUNT\tWHY\tSUGGESTIONS")
		for _, item := range report.Reviews {
			fmt.Fprintf(w, "  %s\t%s\t%s\t%s\t%s\n",
				item.Transaction.Date.Format(models.DateLayout),
				item.Transaction.Merchant,
				item.Transaction.Amount.StringFixed(2),
				item.Result.Explanation,
				strings.Join(item.Result.Suggestions, ", "))
		}
		w.Flush()
	}

	return nil
}

// WriteDetection renders a detection report
func (r *Reporter) WriteDetection(report *DetectionReport) error {
	if r.format == FormatJSON {
		return r.writeJSON(report)
	}

	fmt.Fprintf(r.out, "Recurring groups: %d\n", len(report.RecurringGroups))
	if len(report.RecurringGroups) > 0 {
		w := tabwriter.NewWriter(r.out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "  MERCHANT\tAMOUNT\tCADENCE\tOCCURRENCES")
		for _, group := range report.RecurringGroups {
			fmt.Fprintf(w, "  %s\t%s\t%s\t%d\n",
				group.Merchant,
				group.Amount.StringFixed(2),
				group.IntervalType,
				group.Count)
		}
		w.Flush()
	}

	fmt.Fprintf(r.out, "\nAnomalies: %d\n", len(report.Anomalies))
	if len(report.Anomalies) > 0 {
		w := tabwriter.NewWriter(r.out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "  MERCHANT\tAMOUNT\tREASON")
		for _, flag := range report.Anomalies {
			fmt.Fprintf(w, "  %s\t%s\t%s\n",
				flag.Merchant,
				flag.Amount.StringFixed(2),
				flag.Reason())
		}
		w.Flush()
	}

	return nil
}

func (r *Reporter) writeJSON(v interface{}) error {
	encoder := json.NewEncoder(r.out)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}
