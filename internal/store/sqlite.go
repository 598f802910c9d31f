package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"transaction-intelligence-service/internal/models"
	pipeErrors "transaction-intelligence-service/pkg/errors"
	"transaction-intelligence-service/pkg/logger"
)

const schema = `
CREATE TABLE IF NOT EXISTS transactions (
	id              INTEGER PRIMARY KEY AUTOINCREMENT,
	date            TEXT NOT NULL,
	amount          TEXT NOT NULL,
	merchant        TEXT NOT NULL,
	description     TEXT NOT NULL DEFAULT '',
	category_id     INTEGER,
	category_name   TEXT NOT NULL DEFAULT '',
	is_recurring    INTEGER NOT NULL DEFAULT 0,
	recurring_group TEXT NOT NULL DEFAULT '',
	is_anomaly      INTEGER NOT NULL DEFAULT 0,
	anomaly_reason  TEXT NOT NULL DEFAULT '',
	UNIQUE(date, amount, merchant)
);

CREATE TABLE IF NOT EXISTS categorization_log (
	id             INTEGER PRIMARY KEY AUTOINCREMENT,
	transaction_id INTEGER NOT NULL REFERENCES transactions(id),
	method         TEXT NOT NULL,
	category_name  TEXT NOT NULL DEFAULT '',
	confidence     REAL NOT NULL,
	explanation    TEXT NOT NULL DEFAULT '',
	created_at     TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_transactions_merchant ON transactions(merchant);
CREATE INDEX IF NOT EXISTS idx_log_transaction ON categorization_log(transaction_id);
`

// SQLiteStore is the durable Store implementation backed by a local
// SQLite database file.
type SQLiteStore struct {
	db     *sql.DB
	logger logger.Logger
}

// NewSQLiteStore opens (and if needed initializes) the database at path.
// The special path ":memory:" yields a throwaway database.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, pipeErrors.StorageError(pipeErrors.CodeStoreUnavailable, "open", err).
			WithContext("path", path)
	}

	// SQLite handles one writer at a time; a single connection avoids
	// SQLITE_BUSY errors under concurrent use.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, pipeErrors.StorageError(pipeErrors.CodeStoreUnavailable, "initialize schema", err).
			WithContext("path", path)
	}

	return &SQLiteStore{
		db:     db,
		logger: logger.GetGlobalLogger().WithComponent("sqlite_store"),
	}, nil
}

const transactionColumns = `id, date, amount, merchant, description, category_id,
	category_name, is_recurring, recurring_group, is_anomaly, anomaly_reason`

// List returns all stored transactions ordered by date, then ID
func (s *SQLiteStore) List(ctx context.Context) ([]*models.Transaction, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+transactionColumns+` FROM transactions ORDER BY date, id`)
	if err != nil {
		return nil, pipeErrors.StorageError(pipeErrors.CodeStoreQuery, "list", err)
	}
	defer rows.Close()

	var transactions []*models.Transaction
	for rows.Next() {
		txn, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		transactions = append(transactions, txn)
	}
	if err := rows.Err(); err != nil {
		return nil, pipeErrors.StorageError(pipeErrors.CodeStoreQuery, "list", err)
	}

	return transactions, nil
}

// Get returns one transaction by ID
func (s *SQLiteStore) Get(ctx context.Context, transactionID int64) (*models.Transaction, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+transactionColumns+` FROM transactions WHERE id = ?`, transactionID)

	txn, err := scanTransaction(row)
	if err != nil {
		if pipeErr, ok := pipeErrors.AsPipelineError(err); ok {
			return nil, pipeErr.WithContext("transaction_id", transactionID)
		}
		return nil, err
	}
	return txn, nil
}

// Insert adds transactions inside one database transaction, skipping rows
// whose (date, amount, merchant) identity already exists.
func (s *SQLiteStore) Insert(ctx context.Context, transactions []*models.Transaction) (*InsertResult, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, pipeErrors.StorageError(pipeErrors.CodeStoreUnavailable, "insert", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO transactions (date, amount, merchant, description, category_id, category_name)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(date, amount, merchant) DO NOTHING`)
	if err != nil {
		return nil, pipeErrors.StorageError(pipeErrors.CodeStoreQuery, "insert", err)
	}
	defer stmt.Close()

	result := &InsertResult{}
	for _, txn := range transactions {
		res, err := stmt.ExecContext(ctx,
			txn.Date.Format(models.DateLayout),
			txn.Amount.String(),
			txn.Merchant,
			txn.Description,
			txn.CategoryID,
			txn.CategoryName,
		)
		if err != nil {
			return nil, pipeErrors.StorageError(pipeErrors.CodeStoreQuery, "insert", err).
				WithContext("merchant", txn.Merchant)
		}

		affected, err := res.RowsAffected()
		if err != nil {
			return nil, pipeErrors.StorageError(pipeErrors.CodeStoreQuery, "insert", err)
		}
		if affected == 0 {
			result.Duplicates++
			continue
		}

		id, err := res.LastInsertId()
		if err != nil {
			return nil, pipeErrors.StorageError(pipeErrors.CodeStoreQuery, "insert", err)
		}
		txn.ID = id
		result.Inserted++
		result.InsertedIDs = append(result.InsertedIDs, id)
	}

	if err := tx.Commit(); err != nil {
		return nil, pipeErrors.StorageError(pipeErrors.CodeStoreQuery, "insert commit", err)
	}

	s.logger.WithFields(logger.Fields{
		"inserted":   result.Inserted,
		"duplicates": result.Duplicates,
	}).Debug("Batch insert complete")

	return result, nil
}

// UpdateCategory sets or clears the category of one transaction
func (s *SQLiteStore) UpdateCategory(ctx context.Context, transactionID int64, categoryID *int64, categoryName string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE transactions SET category_id = ?, category_name = ? WHERE id = ?`,
		categoryID, categoryName, transactionID)
	if err != nil {
		return pipeErrors.StorageError(pipeErrors.CodeStoreQuery, "update category", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return pipeErrors.StorageError(pipeErrors.CodeStoreQuery, "update category", err)
	}
	if affected == 0 {
		return pipeErrors.StorageError(pipeErrors.CodeStoreQuery, "update category", nil).
			WithContext("transaction_id", transactionID)
	}
	return nil
}

// MarkRecurring tags the given transactions with a recurring group
func (s *SQLiteStore) MarkRecurring(ctx context.Context, transactionIDs []int64, groupID string) error {
	if len(transactionIDs) == 0 {
		return nil
	}

	placeholders := strings.Repeat("?,", len(transactionIDs))
	placeholders = placeholders[:len(placeholders)-1]

	args := make([]interface{}, 0, len(transactionIDs)+1)
	args = append(args, groupID)
	for _, id := range transactionIDs {
		args = append(args, id)
	}

	_, err := s.db.ExecContext(ctx,
		fmt.Sprintf(`UPDATE transactions SET is_recurring = 1, recurring_group = ? WHERE id IN (%s)`, placeholders),
		args...)
	if err != nil {
		return pipeErrors.StorageError(pipeErrors.CodeStoreQuery, "mark recurring", err).
			WithContext("group_id", groupID)
	}
	return nil
}

// ClearRecurring removes every recurring tag
func (s *SQLiteStore) ClearRecurring(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE transactions SET is_recurring = 0, recurring_group = '' WHERE is_recurring = 1`)
	if err != nil {
		return pipeErrors.StorageError(pipeErrors.CodeStoreQuery, "clear recurring", err)
	}
	return nil
}

// MarkAnomaly tags one transaction as anomalous with a reason
func (s *SQLiteStore) MarkAnomaly(ctx context.Context, transactionID int64, reason string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE transactions SET is_anomaly = 1, anomaly_reason = ? WHERE id = ?`,
		reason, transactionID)
	if err != nil {
		return pipeErrors.StorageError(pipeErrors.CodeStoreQuery, "mark anomaly", err).
			WithContext("transaction_id", transactionID)
	}
	return nil
}

// ClearAnomalies removes every anomaly tag
func (s *SQLiteStore) ClearAnomalies(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE transactions SET is_anomaly = 0, anomaly_reason = '' WHERE is_anomaly = 1`)
	if err != nil {
		return pipeErrors.StorageError(pipeErrors.CodeStoreQuery, "clear anomalies", err)
	}
	return nil
}

// AppendCategorizationLog records a categorization decision for audit
func (s *SQLiteStore) AppendCategorizationLog(ctx context.Context, transactionID int64, result *models.CategorizationResult) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO categorization_log (transaction_id, method, category_name, confidence, explanation, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		transactionID,
		string(result.Method),
		result.CategoryName,
		result.Confidence,
		result.Explanation,
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return pipeErrors.StorageError(pipeErrors.CodeStoreQuery, "append categorization log", err).
			WithContext("transaction_id", transactionID)
	}
	return nil
}

// CategorizationLog returns all recorded decisions, oldest first
func (s *SQLiteStore) CategorizationLog(ctx context.Context) ([]LogEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT transaction_id, method, category_name, confidence, explanation, created_at
		FROM categorization_log ORDER BY id`)
	if err != nil {
		return nil, pipeErrors.StorageError(pipeErrors.CodeStoreQuery, "categorization log", err)
	}
	defer rows.Close()

	var entries []LogEntry
	for rows.Next() {
		var entry LogEntry
		var method, createdAt string
		if err := rows.Scan(&entry.TransactionID, &method, &entry.CategoryName,
			&entry.Confidence, &entry.Explanation, &createdAt); err != nil {
			return nil, pipeErrors.StorageError(pipeErrors.CodeStoreQuery, "categorization log", err)
		}
		entry.Method = models.CategorizationMethod(method)
		entry.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, pipeErrors.StorageError(pipeErrors.CodeStoreQuery, "categorization log", err)
	}

	return entries, nil
}

// Close releases the underlying database handle
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanTransaction(row rowScanner) (*models.Transaction, error) {
	var txn models.Transaction
	var date, amount string
	var categoryID sql.NullInt64

	err := row.Scan(&txn.ID, &date, &amount, &txn.Merchant, &txn.Description,
		&categoryID, &txn.CategoryName, &txn.IsRecurring, &txn.RecurringGroup,
		&txn.IsAnomaly, &txn.AnomalyReason)
	if err != nil {
		return nil, pipeErrors.StorageError(pipeErrors.CodeStoreQuery, "scan transaction", err)
	}

	txn.Date, err = time.Parse(models.DateLayout, date)
	if err != nil {
		return nil, pipeErrors.StorageError(pipeErrors.CodeStoreQuery, "scan transaction", err)
	}
	txn.Amount, err = decimal.NewFromString(amount)
	if err != nil {
		return nil, pipeErrors.StorageError(pipeErrors.CodeStoreQuery, "scan transaction", err)
	}
	if categoryID.Valid {
		txn.CategoryID = &categoryID.Int64
	}

	return &txn, nil
}
