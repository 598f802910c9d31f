package errors

import (
	"fmt"
	"strings"
	"testing"
)

func TestNew(t *testing.T) {
	err := New(CategoryParse, CodeInvalidData, "bad row")

	if err.Category != CategoryParse {
		t.Errorf("Expected category %s, got %s", CategoryParse, err.Category)
	}
	if err.Code != CodeInvalidData {
		t.Errorf("Expected code %s, got %s", CodeInvalidData, err.Code)
	}
	if err.Error() != "bad row" {
		t.Errorf("Expected message 'bad row', got '%s'", err.Error())
	}
	if err.StackTrace == nil {
		t.Error("Expected stack trace to be captured")
	}
}

func TestWrap(t *testing.T) {
	cause := fmt.Errorf("underlying failure")
	err := Wrap(cause, CategoryStorage, CodeStoreQuery, "query failed")

	if err.Unwrap() != cause {
		t.Error("Expected Unwrap to return the cause")
	}

	if Wrap(nil, CategoryStorage, CodeStoreQuery, "query failed") != nil {
		t.Error("Expected wrapping nil to return nil")
	}
}

func TestErrorWithSuggestion(t *testing.T) {
	err := New(CategoryValidation, CodeInvalidAmount, "bad amount").
		WithSuggestion("use decimal numbers")

	if !strings.Contains(err.Error(), "suggestion: use decimal numbers") {
		t.Errorf("Expected suggestion in error string, got '%s'", err.Error())
	}
}

func TestWithContext(t *testing.T) {
	err := New(CategoryFile, CodeFileNotFound, "missing").
		WithContext("file_path", "/tmp/statement.csv")

	if err.Context["file_path"] != "/tmp/statement.csv" {
		t.Errorf("Expected context value, got %v", err.Context["file_path"])
	}
}

func TestGetExitCode(t *testing.T) {
	tests := []struct {
		category ErrorCategory
		expected int
	}{
		{CategoryFile, 2},
		{CategoryParse, 3},
		{CategoryValidation, 3},
		{CategoryConfiguration, 4},
		{CategoryCategorization, 5},
		{CategoryDetection, 5},
		{CategoryInternal, 5},
		{CategoryStorage, 6},
	}

	for _, tt := range tests {
		err := New(tt.category, CodeUnexpectedError, "test")
		if code := err.GetExitCode(); code != tt.expected {
			t.Errorf("Category %s: expected exit code %d, got %d", tt.category, tt.expected, code)
		}
	}
}

func TestCategorizationError(t *testing.T) {
	err := CategorizationError(CodeEmbeddingFailed, "categorize", fmt.Errorf("connection refused"))

	if err.Category != CategoryCategorization {
		t.Errorf("Expected categorization category, got %s", err.Category)
	}
	if err.Context["operation"] != "categorize" {
		t.Errorf("Expected operation context, got %v", err.Context["operation"])
	}
	if err.Suggestion == "" {
		t.Error("Expected a suggestion for embedding failures")
	}
}

func TestParseErrorNoData(t *testing.T) {
	err := ParseError(CodeNoData, "empty.csv", 0, "", "", nil)

	if !strings.Contains(err.Message, "no usable transaction rows") {
		t.Errorf("Expected no-data message, got '%s'", err.Message)
	}
}

func TestAsPipelineError(t *testing.T) {
	inner := New(CategoryParse, CodeInvalidData, "bad")
	wrapped := fmt.Errorf("context: %w", inner)

	extracted, ok := AsPipelineError(wrapped)
	if !ok {
		t.Fatal("Expected to extract PipelineError from chain")
	}
	if extracted != inner {
		t.Error("Expected the original error instance")
	}

	if _, ok := AsPipelineError(fmt.Errorf("plain")); ok {
		t.Error("Expected plain error to not extract")
	}
}

func TestErrorSummary(t *testing.T) {
	errs := []*PipelineError{
		New(CategoryParse, CodeInvalidData, "one"),
		New(CategoryParse, CodeInvalidDate, "two"),
		New(CategoryStorage, CodeStoreQuery, "three"),
	}

	summary := NewErrorSummary(errs)

	if summary.Total != 3 {
		t.Errorf("Expected total 3, got %d", summary.Total)
	}
	if summary.ByCategory[CategoryParse] != 2 {
		t.Errorf("Expected 2 parse errors, got %d", summary.ByCategory[CategoryParse])
	}
	if !summary.HasCategory(CategoryStorage) {
		t.Error("Expected storage category to be present")
	}
	if summary.GetExitCode() != 6 {
		t.Errorf("Expected highest exit code 6, got %d", summary.GetExitCode())
	}

	empty := NewErrorSummary(nil)
	if empty.Error() != "no errors" {
		t.Errorf("Expected 'no errors', got '%s'", empty.Error())
	}
	if empty.GetExitCode() != 0 {
		t.Errorf("Expected exit code 0 for empty summary, got %d", empty.GetExitCode())
	}
}
