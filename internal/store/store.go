package store

import (
	"context"

	"transaction-intelligence-service/internal/models"
)

// InsertResult reports the outcome of a batch insert. Rows whose
// (date, amount, merchant) identity already exists are counted as
// duplicates and silently skipped.
type InsertResult struct {
	Inserted    int     `json:"inserted"`
	Duplicates  int     `json:"duplicates"`
	InsertedIDs []int64 `json:"inserted_ids,omitempty"`
}

// Store is the transaction persistence surface shared by the import flow
// and the detection engines. Implementations must assign IDs on insert
// and enforce deduplication by transaction key.
type Store interface {
	// List returns all stored transactions ordered by date, then ID
	List(ctx context.Context) ([]*models.Transaction, error)

	// Get returns one transaction by ID
	Get(ctx context.Context, transactionID int64) (*models.Transaction, error)

	// Insert adds transactions, skipping rows whose identity already
	// exists. Inserted transactions get their ID set in place.
	Insert(ctx context.Context, transactions []*models.Transaction) (*InsertResult, error)

	// UpdateCategory sets or clears the category of one transaction
	UpdateCategory(ctx context.Context, transactionID int64, categoryID *int64, categoryName string) error

	// MarkRecurring tags the given transactions with a recurring group
	MarkRecurring(ctx context.Context, transactionIDs []int64, groupID string) error

	// ClearRecurring removes every recurring tag
	ClearRecurring(ctx context.Context) error

	// MarkAnomaly tags one transaction as anomalous with a reason
	MarkAnomaly(ctx context.Context, transactionID int64, reason string) error

	// ClearAnomalies removes every anomaly tag
	ClearAnomalies(ctx context.Context) error

	// AppendCategorizationLog records a categorization decision for audit
	AppendCategorizationLog(ctx context.Context, transactionID int64, result *models.CategorizationResult) error

	// Close releases underlying resources
	Close() error
}
