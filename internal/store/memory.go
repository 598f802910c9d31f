package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"transaction-intelligence-service/internal/models"
	pipeErrors "transaction-intelligence-service/pkg/errors"
)

// LogEntry is one recorded categorization decision
type LogEntry struct {
	TransactionID int64                       `json:"transaction_id"`
	Method        models.CategorizationMethod `json:"method"`
	CategoryName  string                      `json:"category_name,omitempty"`
	Confidence    float64                     `json:"confidence"`
	Explanation   string                      `json:"explanation"`
	CreatedAt     time.Time                   `json:"created_at"`
}

// MemoryStore is an in-memory Store used for tests and one-shot pipeline
// runs that do not need durability.
type MemoryStore struct {
	mu     sync.RWMutex
	nextID int64
	byID   map[int64]*models.Transaction
	byKey  map[string]int64
	log    []LogEntry
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		byID:  make(map[int64]*models.Transaction),
		byKey: make(map[string]int64),
	}
}

// List returns all stored transactions ordered by date, then ID
func (s *MemoryStore) List(ctx context.Context) ([]*models.Transaction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	transactions := make([]*models.Transaction, 0, len(s.byID))
	for _, txn := range s.byID {
		copied := *txn
		transactions = append(transactions, &copied)
	}

	sort.Slice(transactions, func(i, j int) bool {
		if !transactions[i].Date.Equal(transactions[j].Date) {
			return transactions[i].Date.Before(transactions[j].Date)
		}
		return transactions[i].ID < transactions[j].ID
	})

	return transactions, nil
}

// Get returns one transaction by ID
func (s *MemoryStore) Get(ctx context.Context, transactionID int64) (*models.Transaction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	txn, ok := s.byID[transactionID]
	if !ok {
		return nil, pipeErrors.StorageError(pipeErrors.CodeStoreQuery, "get", nil).
			WithContext("transaction_id", transactionID)
	}
	copied := *txn
	return &copied, nil
}

// Insert adds transactions, skipping duplicates by transaction key
func (s *MemoryStore) Insert(ctx context.Context, transactions []*models.Transaction) (*InsertResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	result := &InsertResult{}
	for _, txn := range transactions {
		key := txn.Key()
		if _, exists := s.byKey[key]; exists {
			result.Duplicates++
			continue
		}

		s.nextID++
		txn.ID = s.nextID
		copied := *txn
		s.byID[txn.ID] = &copied
		s.byKey[key] = txn.ID
		result.Inserted++
		result.InsertedIDs = append(result.InsertedIDs, txn.ID)
	}

	return result, nil
}

// UpdateCategory sets or clears the category of one transaction
func (s *MemoryStore) UpdateCategory(ctx context.Context, transactionID int64, categoryID *int64, categoryName string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	txn, ok := s.byID[transactionID]
	if !ok {
		return pipeErrors.StorageError(pipeErrors.CodeStoreQuery, "update category", nil).
			WithContext("transaction_id", transactionID)
	}

	txn.CategoryID = categoryID
	txn.CategoryName = categoryName
	return nil
}

// MarkRecurring tags the given transactions with a recurring group
func (s *MemoryStore) MarkRecurring(ctx context.Context, transactionIDs []int64, groupID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, id := range transactionIDs {
		if txn, ok := s.byID[id]; ok {
			txn.IsRecurring = true
			txn.RecurringGroup = groupID
		}
	}
	return nil
}

// ClearRecurring removes every recurring tag
func (s *MemoryStore) ClearRecurring(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, txn := range s.byID {
		txn.IsRecurring = false
		txn.RecurringGroup = ""
	}
	return nil
}

// MarkAnomaly tags one transaction as anomalous with a reason
func (s *MemoryStore) MarkAnomaly(ctx context.Context, transactionID int64, reason string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	txn, ok := s.byID[transactionID]
	if !ok {
		return pipeErrors.StorageError(pipeErrors.CodeStoreQuery, "mark anomaly", nil).
			WithContext("transaction_id", transactionID)
	}

	txn.IsAnomaly = true
	txn.AnomalyReason = reason
	return nil
}

// ClearAnomalies removes every anomaly tag
func (s *MemoryStore) ClearAnomalies(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, txn := range s.byID {
		txn.IsAnomaly = false
		txn.AnomalyReason = ""
	}
	return nil
}

// AppendCategorizationLog records a categorization decision for audit
func (s *MemoryStore) AppendCategorizationLog(ctx context.Context, transactionID int64, result *models.CategorizationResult) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.log = append(s.log, LogEntry{
		TransactionID: transactionID,
		Method:        result.Method,
		CategoryName:  result.CategoryName,
		Confidence:    result.Confidence,
		Explanation:   result.Explanation,
		CreatedAt:     time.Now().UTC(),
	})
	return nil
}

// CategorizationLog returns all recorded decisions, oldest first
func (s *MemoryStore) CategorizationLog() []LogEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries := make([]LogEntry, len(s.log))
	copy(entries, s.log)
	return entries
}

// Close releases underlying resources
func (s *MemoryStore) Close() error { return nil }
