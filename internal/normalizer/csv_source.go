package normalizer

import (
	"encoding/csv"
	"io"
	"os"
	"path/filepath"
	"strings"

	pipeErrors "transaction-intelligence-service/pkg/errors"
)

// headerKeywords are the terms a real header row is expected to contain.
// Statement exports often carry preamble lines (account info, disclaimers)
// before the actual table.
var headerKeywords = []string{"date", "amount", "merchant", "payee", "description"}

// maxHeaderScanLines bounds how far into a file the header row is searched
const maxHeaderScanLines = 20

// CSVSource reads a statement export and exposes its header row and data
// rows. Preamble lines above the detected header row are discarded.
type CSVSource struct {
	name    string
	headers []string
	rows    []Row
}

// NewCSVSource opens and fully reads a CSV statement file
func NewCSVSource(path string) (*CSVSource, error) {
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, pipeErrors.FileError(pipeErrors.CodeFileNotFound, path, err)
		}
		if os.IsPermission(err) {
			return nil, pipeErrors.FileError(pipeErrors.CodeFilePermission, path, err)
		}
		return nil, pipeErrors.FileError(pipeErrors.CodeFileCorrupted, path, err)
	}
	defer file.Close()

	return CSVSourceFromReader(file, filepath.Base(path))
}

// CSVSourceFromReader builds a source from an already-open reader. The name
// is used for error reporting and format detection filename hints.
func CSVSourceFromReader(r io.Reader, name string) (*CSVSource, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, pipeErrors.FileError(pipeErrors.CodeFileCorrupted, name, err)
	}

	content := skipPreamble(string(data))
	if strings.TrimSpace(content) == "" {
		return nil, pipeErrors.ParseError(pipeErrors.CodeNoData, name, 0, "", "", nil)
	}

	reader := csv.NewReader(strings.NewReader(content))
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, pipeErrors.ParseError(pipeErrors.CodeInvalidFormat, name, 0, "", "", err)
	}
	if len(records) == 0 {
		return nil, pipeErrors.ParseError(pipeErrors.CodeNoData, name, 0, "", "", nil)
	}

	headers := cleanHeaders(records[0])
	rows := make([]Row, 0, len(records)-1)
	for _, record := range records[1:] {
		if isBlankRecord(record) {
			continue
		}
		row := make(Row, len(headers))
		for i, h := range headers {
			if i < len(record) {
				row[h] = strings.TrimSpace(record[i])
			}
		}
		rows = append(rows, row)
	}

	return &CSVSource{name: name, headers: headers, rows: rows}, nil
}

// Name returns the source filename
func (s *CSVSource) Name() string { return s.name }

// Headers returns the detected header row
func (s *CSVSource) Headers() []string { return s.headers }

// Rows returns all data rows below the header
func (s *CSVSource) Rows() []Row { return s.rows }

// skipPreamble drops any lines above the first plausible header row. The
// header row is the first non-blank line within the scan window that contains
// a comma and at least one header keyword. When no such line is found the
// content is returned unchanged and the first line is treated as the header.
func skipPreamble(content string) string {
	lines := strings.Split(content, "\n")

	scanned := 0
	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		scanned++
		if scanned > maxHeaderScanLines {
			break
		}

		if !strings.Contains(trimmed, ",") {
			continue
		}

		lower := strings.ToLower(trimmed)
		for _, kw := range headerKeywords {
			if strings.Contains(lower, kw) {
				return strings.Join(lines[i:], "\n")
			}
		}
	}

	return content
}

// cleanHeaders trims whitespace and BOM artifacts from header names
func cleanHeaders(headers []string) []string {
	cleaned := make([]string, len(headers))
	for i, h := range headers {
		h = strings.TrimSpace(h)
		h = strings.TrimPrefix(h, "\ufeff")
		cleaned[i] = h
	}
	return cleaned
}

func isBlankRecord(record []string) bool {
	for _, field := range record {
		if strings.TrimSpace(field) != "" {
			return false
		}
	}
	return true
}
