package normalizer

import (
	"github.com/shopspring/decimal"

	"transaction-intelligence-service/internal/formats"
	"transaction-intelligence-service/internal/models"
	pipeErrors "transaction-intelligence-service/pkg/errors"
	"transaction-intelligence-service/pkg/logger"
)

// Config holds the configuration for the statement normalizer
type Config struct {
	Detector *formats.DetectorConfig `json:"detector" mapstructure:"detector"`
	Mapper   *MapperConfig           `json:"mapper" mapstructure:"mapper"`
}

// DefaultConfig returns the standard normalizer configuration
func DefaultConfig() *Config {
	return &Config{
		Detector: formats.DefaultDetectorConfig(),
		Mapper:   DefaultMapperConfig(),
	}
}

// Validate checks if the normalizer configuration is valid
func (c *Config) Validate() error {
	if c.Detector != nil {
		if err := c.Detector.Validate(); err != nil {
			return err
		}
	}
	if c.Mapper != nil {
		if err := c.Mapper.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// ImportStats summarizes a normalization pass over one statement file
type ImportStats struct {
	RowsRead     int                         `json:"rows_read"`
	RowsImported int                         `json:"rows_imported"`
	RowsRejected int                         `json:"rows_rejected"`
	RowsSkipped  int                         `json:"rows_skipped"`
	Duplicates   int                         `json:"duplicates"`
	Errors       []*pipeErrors.PipelineError `json:"errors,omitempty"`
}

// Result is the full outcome of normalizing one statement file
type Result struct {
	Profile      formats.Profile       `json:"profile"`
	Score        int                   `json:"score"`
	Mapping      *ColumnMapping        `json:"mapping"`
	Transactions []*models.Transaction `json:"transactions"`
	Stats        *ImportStats          `json:"stats"`
}

// Normalizer converts raw statement rows into canonical transactions. It
// chains format detection, column mapping, and per-row value normalization.
type Normalizer struct {
	config   *Config
	detector *formats.Detector
	mapper   *Mapper
	logger   logger.Logger
}

// New creates a normalizer with the given configuration
func New(config *Config) *Normalizer {
	if config == nil {
		config = DefaultConfig()
	}
	return &Normalizer{
		config:   config,
		detector: formats.NewDetector(config.Detector),
		mapper:   NewMapper(config.Mapper),
		logger:   logger.GetGlobalLogger().WithComponent("normalizer"),
	}
}

// NormalizeFile reads and normalizes a statement file from disk
func (n *Normalizer) NormalizeFile(path string) (*Result, error) {
	source, err := NewCSVSource(path)
	if err != nil {
		return nil, err
	}
	return n.Normalize(source.Headers(), source.Rows(), source.Name())
}

// Normalize converts tabular rows into canonical transactions. The filename
// is optional and only strengthens format detection. A file that yields no
// usable transactions is reported as an error rather than an empty result.
func (n *Normalizer) Normalize(headers []string, rows []Row, filename string) (*Result, error) {
	profile, score := n.detector.Detect(headers, filename)

	n.logger.WithFields(logger.Fields{
		"file":    filename,
		"profile": profile.ID,
		"score":   score,
		"rows":    len(rows),
	}).Info("Normalizing statement")

	mapping := n.mapper.MapColumns(headers, sampleRows(rows, n.config.Mapper.SampleSize), profile)
	if err := mapping.Validate(); err != nil {
		return nil, pipeErrors.ParseError(pipeErrors.CodeMissingColumn, filename, 0, "", "", err).
			WithContext("profile", profile.ID)
	}

	stats := &ImportStats{RowsRead: len(rows)}
	transactions := make([]*models.Transaction, 0, len(rows))

	for i, row := range rows {
		txn, rowErr := n.normalizeRow(row, mapping, filename, i+2)
		if rowErr != nil {
			stats.RowsRejected++
			stats.Errors = append(stats.Errors, rowErr)
			continue
		}
		if txn == nil {
			// Non-transaction row, such as a summary line with no movement
			stats.RowsSkipped++
			continue
		}
		transactions = append(transactions, txn)
		stats.RowsImported++
	}

	if stats.RowsImported == 0 {
		return nil, pipeErrors.ParseError(pipeErrors.CodeNoData, filename, 0, "", "", nil).
			WithContext("rows_read", stats.RowsRead).
			WithContext("rows_rejected", stats.RowsRejected)
	}

	n.logger.WithFields(logger.Fields{
		"imported": stats.RowsImported,
		"rejected": stats.RowsRejected,
		"skipped":  stats.RowsSkipped,
	}).Info("Statement normalized")

	return &Result{
		Profile:      profile,
		Score:        score,
		Mapping:      mapping,
		Transactions: transactions,
		Stats:        stats,
	}, nil
}

// normalizeRow converts one raw row into a transaction. A nil transaction
// with a nil error means the row carries no monetary movement and is skipped.
func (n *Normalizer) normalizeRow(row Row, mapping *ColumnMapping, filename string, line int) (*models.Transaction, *pipeErrors.PipelineError) {
	amount, skip, err := n.resolveAmount(row, mapping, filename, line)
	if err != nil {
		return nil, err
	}
	if skip {
		return nil, nil
	}

	rawDate := row[mapping.DateColumn]
	date, dateErr := models.ParseDate(rawDate)
	if dateErr != nil {
		return nil, pipeErrors.ParseError(pipeErrors.CodeInvalidData, filename, line, mapping.DateColumn, rawDate, dateErr)
	}

	merchant := row[mapping.MerchantColumn]
	description := row[mapping.DescriptionColumn]

	return models.NewTransaction(date, amount, merchant, description), nil
}

// resolveAmount produces the signed amount for a row. With a single amount
// column the value is used as is. With split columns the amount is credit
// minus debit, where an empty or unparseable cell counts as zero. A row
// where both sides are zero is not a transaction.
func (n *Normalizer) resolveAmount(row Row, mapping *ColumnMapping, filename string, line int) (decimal.Decimal, bool, *pipeErrors.PipelineError) {
	if mapping.AmountColumn != "" {
		raw := row[mapping.AmountColumn]
		if raw == "" {
			return decimal.Zero, true, nil
		}
		amount, err := models.ParseAmount(raw)
		if err != nil {
			return decimal.Zero, false, pipeErrors.ParseError(pipeErrors.CodeInvalidData, filename, line, mapping.AmountColumn, raw, err)
		}
		return amount, false, nil
	}

	debit := parseOrZero(row[mapping.DebitColumn])
	credit := parseOrZero(row[mapping.CreditColumn])

	if debit.IsZero() && credit.IsZero() {
		return decimal.Zero, true, nil
	}

	return credit.Sub(debit.Abs()), false, nil
}

func parseOrZero(s string) decimal.Decimal {
	if s == "" {
		return decimal.Zero
	}
	d, err := models.ParseAmount(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

func sampleRows(rows []Row, limit int) []Row {
	if len(rows) <= limit {
		return rows
	}
	return rows[:limit]
}
