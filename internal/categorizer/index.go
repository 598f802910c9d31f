package categorizer

import (
	"context"
	"math"
	"sort"
	"sync"

	"github.com/shopspring/decimal"
)

// Entry is one categorized transaction stored in the similarity index.
// Entries carry enough metadata to explain a categorization decision
// without a round trip to the transaction store.
type Entry struct {
	TransactionID int64
	Merchant      string
	Amount        decimal.Decimal
	CategoryID    *int64
	Category      string
	Vector        []float32
}

// Match is one search hit with its cosine similarity
type Match struct {
	Entry
	Similarity float64
}

// VectorIndex is the similarity index collaborator. Search on an empty
// index returns an empty result, not an error.
type VectorIndex interface {
	Search(ctx context.Context, vector []float32, k int) ([]Match, error)
	Upsert(ctx context.Context, entry Entry) error
	Remove(ctx context.Context, transactionID int64) error
	Len() int
}

// MemoryIndex is an in-memory cosine similarity index. Entries are
// re-derivable from the transaction store, so the index carries no
// durability obligations of its own.
type MemoryIndex struct {
	mu      sync.RWMutex
	entries map[int64]Entry
}

// NewMemoryIndex creates an empty in-memory index
func NewMemoryIndex() *MemoryIndex {
	return &MemoryIndex{entries: make(map[int64]Entry)}
}

// Search returns up to k entries ranked by cosine similarity, highest
// first. Ties break on ascending transaction ID so results are stable.
func (idx *MemoryIndex) Search(ctx context.Context, vector []float32, k int) ([]Match, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	idx.mu.RLock()
	defer idx.mu.RUnlock()

	matches := make([]Match, 0, len(idx.entries))
	for _, entry := range idx.entries {
		matches = append(matches, Match{
			Entry:      entry,
			Similarity: cosineSimilarity(vector, entry.Vector),
		})
	}

	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Similarity != matches[j].Similarity {
			return matches[i].Similarity > matches[j].Similarity
		}
		return matches[i].TransactionID < matches[j].TransactionID
	})

	if len(matches) > k {
		matches = matches[:k]
	}
	return matches, nil
}

// Upsert adds or replaces the entry for a transaction
func (idx *MemoryIndex) Upsert(ctx context.Context, entry Entry) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.entries[entry.TransactionID] = entry
	return nil
}

// Remove drops the entry for a transaction. Removing an absent entry is
// a no-op.
func (idx *MemoryIndex) Remove(ctx context.Context, transactionID int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()
	delete(idx.entries, transactionID)
	return nil
}

// Len returns the number of indexed entries
func (idx *MemoryIndex) Len() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.entries)
}

// cosineSimilarity computes the cosine of the angle between two vectors.
// Mismatched lengths or zero vectors score 0.
func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
