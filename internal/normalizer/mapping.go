package normalizer

import (
	"fmt"
	"strings"

	"transaction-intelligence-service/internal/formats"
	"transaction-intelligence-service/internal/models"
	"transaction-intelligence-service/pkg/logger"
)

// Row is one tabular record keyed by column name, as supplied by the file
// reader collaborator.
type Row map[string]string

// Curated synonym lists per canonical field, used for name-based column
// resolution when the format profile leaves a field unmapped.
var (
	dateSynonyms = []string{
		"date", "transaction date", "trans date", "posted date", "trans_date",
		"posting date", "post date", "effective date", "datetime", "trans. date",
		"clearing date", "settlement date", "value date",
	}
	amountSynonyms = []string{
		"amount", "trans_amt", "transaction amount", "debit/credit", "value",
		"gross", "net", "total", "amount (total)", "sum",
	}
	debitSynonyms = []string{
		"debit", "debited", "withdrawals", "withdrawal", "outflow", "expense",
		"payment", "charge", "money out",
	}
	creditSynonyms = []string{
		"credit", "credited", "deposits", "deposit", "inflow", "income",
		"refund", "money in",
	}
	merchantSynonyms = []string{
		"merchant", "payee", "description", "payee_name", "vendor", "name",
		"to", "recipient", "store", "company", "transaction",
	}
	descriptionSynonyms = []string{
		"description", "memo", "notes", "details", "original description",
		"address", "category", "note", "reference",
	}
	balanceSynonyms = []string{
		"balance", "running balance", "available balance", "ledger balance",
	}
)

// ColumnMapping holds the resolved source column for each canonical field.
// Either AmountColumn or the DebitColumn/CreditColumn pair is set, never
// both, and no source column serves two fields.
type ColumnMapping struct {
	DateColumn        string `json:"date_column,omitempty"`
	AmountColumn      string `json:"amount_column,omitempty"`
	DebitColumn       string `json:"debit_column,omitempty"`
	CreditColumn      string `json:"credit_column,omitempty"`
	MerchantColumn    string `json:"merchant_column,omitempty"`
	DescriptionColumn string `json:"description_column,omitempty"`
	BalanceColumn     string `json:"balance_column,omitempty"`
}

// HasAmount reports whether any amount source is resolved
func (m *ColumnMapping) HasAmount() bool {
	return m.AmountColumn != "" || m.DebitColumn != "" || m.CreditColumn != ""
}

// Validate enforces the mapping invariants
func (m *ColumnMapping) Validate() error {
	if m.DateColumn == "" {
		return fmt.Errorf("no date column resolved")
	}

	if !m.HasAmount() {
		return fmt.Errorf("no amount column resolved")
	}

	if m.AmountColumn != "" && (m.DebitColumn != "" || m.CreditColumn != "") {
		return fmt.Errorf("mapping resolves both a single amount column and split debit/credit columns")
	}

	seen := make(map[string]string)
	for field, col := range map[string]string{
		"date":        m.DateColumn,
		"amount":      m.AmountColumn,
		"debit":       m.DebitColumn,
		"credit":      m.CreditColumn,
		"merchant":    m.MerchantColumn,
		"description": m.DescriptionColumn,
	} {
		if col == "" {
			continue
		}
		if prev, ok := seen[col]; ok {
			return fmt.Errorf("column '%s' assigned to both %s and %s", col, prev, field)
		}
		seen[col] = field
	}

	return nil
}

// MapperConfig holds the content-inference thresholds for column mapping
type MapperConfig struct {
	// SampleSize is the number of non-empty values examined per column
	SampleSize int `json:"sample_size" mapstructure:"sample_size"`

	// DateParseRatio is the minimum fraction of sampled values that must
	// parse as dates for a column to be inferred as the date column
	DateParseRatio float64 `json:"date_parse_ratio" mapstructure:"date_parse_ratio"`

	// AmountParseRatio is the minimum fraction of sampled values that must
	// parse as numbers for a column to be inferred as the amount column
	AmountParseRatio float64 `json:"amount_parse_ratio" mapstructure:"amount_parse_ratio"`

	// MerchantUniqueRatio is the minimum uniqueness of sampled values for
	// a column to be inferred as the merchant column
	MerchantUniqueRatio float64 `json:"merchant_unique_ratio" mapstructure:"merchant_unique_ratio"`

	// MerchantMinAvgLen is the minimum average text length for a column to
	// be inferred as the merchant column
	MerchantMinAvgLen float64 `json:"merchant_min_avg_len" mapstructure:"merchant_min_avg_len"`
}

// DefaultMapperConfig returns the standard inference thresholds
func DefaultMapperConfig() *MapperConfig {
	return &MapperConfig{
		SampleSize:          20,
		DateParseRatio:      0.7,
		AmountParseRatio:    0.8,
		MerchantUniqueRatio: 0.5,
		MerchantMinAvgLen:   5,
	}
}

// Validate checks if the mapper configuration is valid
func (c *MapperConfig) Validate() error {
	if c.SampleSize <= 0 {
		return fmt.Errorf("sample size must be positive: %d", c.SampleSize)
	}
	for name, ratio := range map[string]float64{
		"date_parse_ratio":      c.DateParseRatio,
		"amount_parse_ratio":    c.AmountParseRatio,
		"merchant_unique_ratio": c.MerchantUniqueRatio,
	} {
		if ratio <= 0 || ratio > 1 {
			return fmt.Errorf("%s must be in (0, 1]: %f", name, ratio)
		}
	}
	return nil
}

// Mapper resolves column mappings from profile hints plus data inspection
type Mapper struct {
	config *MapperConfig
	logger logger.Logger
}

// NewMapper creates a column mapper with the given configuration
func NewMapper(config *MapperConfig) *Mapper {
	if config == nil {
		config = DefaultMapperConfig()
	}
	return &Mapper{
		config: config,
		logger: logger.GetGlobalLogger().WithComponent("column_mapper"),
	}
}

// MapColumns resolves the column mapping for a file. The profile's field
// mapping is applied first (only for columns actually present), then any
// unresolved field is filled by name-based synonym lookup, then by
// content-based inference over the sample rows.
func (m *Mapper) MapColumns(columns []string, sample []Row, profile formats.Profile) *ColumnMapping {
	present := make(map[string]bool, len(columns))
	columnsLower := make(map[string]string, len(columns))
	for _, c := range columns {
		c = strings.TrimSpace(c)
		present[c] = true
		columnsLower[strings.ToLower(c)] = c
	}

	mapping := &ColumnMapping{}
	used := make(map[string]bool)

	claim := func(col string) string {
		if col == "" || !present[col] || used[col] {
			return ""
		}
		used[col] = true
		return col
	}

	// Profile hints first
	mapping.DateColumn = claim(profile.Mapping.Date)
	if profile.Mapping.Amount != "" {
		mapping.AmountColumn = claim(profile.Mapping.Amount)
	} else {
		mapping.DebitColumn = claim(profile.Mapping.Debit)
		mapping.CreditColumn = claim(profile.Mapping.Credit)
	}
	mapping.MerchantColumn = claim(profile.Mapping.Merchant)
	mapping.DescriptionColumn = claim(profile.Mapping.Description)

	// Balance is resolved early by name so amount inference can avoid it
	mapping.BalanceColumn = m.findByName(balanceSynonyms, columnsLower, used)
	if mapping.BalanceColumn != "" {
		used[mapping.BalanceColumn] = true
	}

	if mapping.DateColumn == "" {
		mapping.DateColumn = m.findDateColumn(columns, columnsLower, sample, used)
		if mapping.DateColumn != "" {
			used[mapping.DateColumn] = true
		}
	}

	if mapping.AmountColumn == "" && mapping.DebitColumn == "" && mapping.CreditColumn == "" {
		m.findAmountColumns(mapping, columns, columnsLower, sample, used)
	}

	if mapping.MerchantColumn == "" {
		mapping.MerchantColumn = m.findMerchantColumn(columns, columnsLower, sample, used)
		if mapping.MerchantColumn != "" {
			used[mapping.MerchantColumn] = true
		}
	}

	if mapping.DescriptionColumn == "" {
		mapping.DescriptionColumn = m.findByName(descriptionSynonyms, columnsLower, used)
		if mapping.DescriptionColumn != "" {
			used[mapping.DescriptionColumn] = true
		}
	}

	m.logger.WithFields(logger.Fields{
		"date":     mapping.DateColumn,
		"amount":   mapping.AmountColumn,
		"debit":    mapping.DebitColumn,
		"credit":   mapping.CreditColumn,
		"merchant": mapping.MerchantColumn,
	}).Debug("Resolved column mapping")

	return mapping
}

// findByName resolves a column by synonym list, skipping claimed columns
func (m *Mapper) findByName(synonyms []string, columnsLower map[string]string, used map[string]bool) string {
	for _, name := range synonyms {
		if col, ok := columnsLower[name]; ok && !used[col] {
			return col
		}
	}
	return ""
}

// findDateColumn resolves the date column by name, then by checking whether
// enough sampled values parse as dates.
func (m *Mapper) findDateColumn(columns []string, columnsLower map[string]string, sample []Row, used map[string]bool) string {
	if col := m.findByName(dateSynonyms, columnsLower, used); col != "" {
		return col
	}

	for _, col := range columns {
		if used[col] {
			continue
		}

		values := sampleValues(sample, col, m.config.SampleSize)
		if len(values) == 0 {
			continue
		}

		parsed := 0
		for _, v := range values {
			if _, err := models.ParseDate(v); err == nil {
				parsed++
			}
		}

		if float64(parsed) >= float64(len(values))*m.config.DateParseRatio {
			return col
		}
	}

	return ""
}

// findAmountColumns resolves amount sources: split debit/credit columns by
// name first, then a single amount column by name, then by numeric content.
// Balance-looking columns are never inferred as amounts.
func (m *Mapper) findAmountColumns(mapping *ColumnMapping, columns []string, columnsLower map[string]string, sample []Row, used map[string]bool) {
	debit := m.findByName(debitSynonyms, columnsLower, used)
	credit := m.findByName(creditSynonyms, columnsLower, used)
	if debit != "" || credit != "" {
		mapping.DebitColumn = debit
		mapping.CreditColumn = credit
		if debit != "" {
			used[debit] = true
		}
		if credit != "" {
			used[credit] = true
		}
		return
	}

	if col := m.findByName(amountSynonyms, columnsLower, used); col != "" {
		mapping.AmountColumn = col
		used[col] = true
		return
	}

	for _, col := range columns {
		if used[col] {
			continue
		}
		if strings.Contains(strings.ToLower(col), "balance") {
			continue
		}

		values := sampleValues(sample, col, m.config.SampleSize)
		if len(values) == 0 {
			continue
		}

		numeric := 0
		for _, v := range values {
			if _, err := models.ParseAmount(v); err == nil {
				numeric++
			}
		}

		if float64(numeric) >= float64(len(values))*m.config.AmountParseRatio {
			mapping.AmountColumn = col
			used[col] = true
			return
		}
	}
}

// findMerchantColumn resolves the merchant column by name, then looks for an
// untried text column with varied values of meaningful length.
func (m *Mapper) findMerchantColumn(columns []string, columnsLower map[string]string, sample []Row, used map[string]bool) string {
	if col := m.findByName(merchantSynonyms, columnsLower, used); col != "" {
		return col
	}

	for _, col := range columns {
		if used[col] {
			continue
		}

		values := sampleValues(sample, col, m.config.SampleSize)
		if len(values) < 5 {
			continue
		}

		unique := make(map[string]bool, len(values))
		totalLen := 0
		for _, v := range values {
			unique[v] = true
			totalLen += len(v)
		}

		uniqueRatio := float64(len(unique)) / float64(len(values))
		avgLen := float64(totalLen) / float64(len(values))

		if uniqueRatio > m.config.MerchantUniqueRatio && avgLen > m.config.MerchantMinAvgLen {
			return col
		}
	}

	return ""
}

// sampleValues collects up to limit non-empty values for a column
func sampleValues(sample []Row, column string, limit int) []string {
	var values []string
	for _, row := range sample {
		v := strings.TrimSpace(row[column])
		if v == "" {
			continue
		}
		values = append(values, v)
		if len(values) >= limit {
			break
		}
	}
	return values
}
