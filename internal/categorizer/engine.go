package categorizer

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"transaction-intelligence-service/internal/models"
	pipeErrors "transaction-intelligence-service/pkg/errors"
	"transaction-intelligence-service/pkg/logger"
)

// Recorder persists categorization outcomes. The transaction store
// implements it.
type Recorder interface {
	UpdateCategory(ctx context.Context, transactionID int64, categoryID *int64, categoryName string) error
	AppendCategorizationLog(ctx context.Context, transactionID int64, result *models.CategorizationResult) error
}

// Engine assigns categories by nearest-neighbor agreement over previously
// categorized transactions. It only commits a category when the evidence
// clears every gate; anything weaker is handed to a human.
type Engine struct {
	config   *Config
	embedder Embedder
	index    VectorIndex
	logger   logger.Logger
}

// NewEngine creates a categorization engine with the given collaborators
func NewEngine(config *Config, embedder Embedder, index VectorIndex) *Engine {
	if config == nil {
		config = DefaultConfig()
	}
	return &Engine{
		config:   config,
		embedder: embedder,
		index:    index,
		logger:   logger.GetGlobalLogger().WithComponent("categorizer"),
	}
}

// CompositeText builds the text the engine embeds for a transaction. The
// amount is reduced to a coarse bucket so magnitude influences similarity
// without dominating it.
func (e *Engine) CompositeText(txn *models.Transaction) string {
	parts := []string{txn.Merchant}
	if txn.Description != "" && !strings.EqualFold(txn.Description, txn.Merchant) {
		parts = append(parts, txn.Description)
	}
	parts = append(parts, "amount_"+e.amountBucket(txn))
	return strings.Join(parts, " ")
}

func (e *Engine) amountBucket(txn *models.Transaction) string {
	abs, _ := txn.AbsAmount().Float64()
	switch {
	case abs < e.config.SmallAmountMax:
		return "small"
	case abs < e.config.MediumAmountMax:
		return "medium"
	case abs < e.config.LargeAmountMax:
		return "large"
	default:
		return "major"
	}
}

// Categorize decides a category for one transaction. The method never
// guesses: a failed embedder or index lookup produces a needs-review
// result rather than an error, because a human fallback always exists.
func (e *Engine) Categorize(ctx context.Context, txn *models.Transaction) *models.CategorizationResult {
	vector, err := e.embedder.Embed(ctx, e.CompositeText(txn))
	if err != nil {
		e.logger.WithError(pipeErrors.CategorizationError(pipeErrors.CodeEmbeddingFailed, "categorize", err)).
			WithField("merchant", txn.Merchant).
			Warn("Embedding failed, leaving transaction for review")
		return needsReview("embedding service unavailable", nil, nil)
	}

	matches, err := e.index.Search(ctx, vector, e.config.TopK)
	if err != nil {
		e.logger.WithError(pipeErrors.CategorizationError(pipeErrors.CodeSearchFailed, "categorize", err)).
			WithField("merchant", txn.Merchant).
			Warn("Similarity search failed, leaving transaction for review")
		return needsReview("similarity search unavailable", nil, nil)
	}

	categorized := make([]Match, 0, len(matches))
	for _, m := range matches {
		if m.Category != "" {
			categorized = append(categorized, m)
		}
	}

	similar := toSimilarTransactions(categorized)

	if len(categorized) == 0 {
		return needsReview("no categorized transaction history to compare against", similar, nil)
	}

	counts := make(map[string]int)
	for _, m := range categorized {
		counts[m.Category]++
	}

	topCategory, topCount := "", 0
	for category, count := range counts {
		if count > topCount || (count == topCount && category < topCategory) {
			topCategory, topCount = category, count
		}
	}

	share := float64(topCount) / float64(len(categorized))

	if len(categorized) >= e.config.MinMatches &&
		topCount >= e.config.MinMatches &&
		share >= e.config.AgreementThreshold {

		var categoryID *int64
		for _, m := range categorized {
			if m.Category == topCategory {
				categoryID = m.CategoryID
				break
			}
		}

		e.logger.WithFields(logger.Fields{
			"merchant":   txn.Merchant,
			"category":   topCategory,
			"confidence": share,
		}).Debug("Auto-categorized transaction")

		return &models.CategorizationResult{
			CategoryID:   categoryID,
			CategoryName: topCategory,
			Confidence:   share,
			Method:       models.MethodAuto,
			Explanation: fmt.Sprintf("%d of %d similar transactions are categorized as %s",
				topCount, len(categorized), topCategory),
			SimilarTransactions: similar,
		}
	}

	explanation := fmt.Sprintf("similar transactions disagree (best agreement %d of %d)",
		topCount, len(categorized))
	if len(categorized) < e.config.MinMatches {
		explanation = fmt.Sprintf("only %d similar categorized transactions found, need %d",
			len(categorized), e.config.MinMatches)
	}

	return needsReview(explanation, similar, e.suggestions(counts))
}

// CategorizeAndUpdate runs Categorize and persists the outcome. Auto
// results update the stored transaction and the similarity index; every
// decision is appended to the audit log. Index update failures are logged
// and swallowed because index entries are re-derivable from the store.
func (e *Engine) CategorizeAndUpdate(ctx context.Context, txn *models.Transaction, recorder Recorder) (*models.CategorizationResult, error) {
	result := e.Categorize(ctx, txn)

	if result.IsAuto() {
		if err := recorder.UpdateCategory(ctx, txn.ID, result.CategoryID, result.CategoryName); err != nil {
			return nil, err
		}
		txn.CategoryID = result.CategoryID
		txn.CategoryName = result.CategoryName

		if err := e.IndexTransaction(ctx, txn); err != nil {
			e.logger.WithError(err).
				WithField("transaction_id", txn.ID).
				Warn("Similarity index update failed")
		}
	}

	if err := recorder.AppendCategorizationLog(ctx, txn.ID, result); err != nil {
		return nil, err
	}

	return result, nil
}

// IndexTransaction embeds a categorized transaction and upserts it into
// the similarity index. Uncategorized transactions are removed instead,
// so a cleared category cannot keep voting.
func (e *Engine) IndexTransaction(ctx context.Context, txn *models.Transaction) error {
	if txn.CategoryName == "" {
		if err := e.index.Remove(ctx, txn.ID); err != nil {
			return pipeErrors.CategorizationError(pipeErrors.CodeIndexUpdate, "remove", err)
		}
		return nil
	}

	vector, err := e.embedder.Embed(ctx, e.CompositeText(txn))
	if err != nil {
		return pipeErrors.CategorizationError(pipeErrors.CodeEmbeddingFailed, "index", err)
	}

	err = e.index.Upsert(ctx, Entry{
		TransactionID: txn.ID,
		Merchant:      txn.Merchant,
		Amount:        txn.Amount,
		CategoryID:    txn.CategoryID,
		Category:      txn.CategoryName,
		Vector:        vector,
	})
	if err != nil {
		return pipeErrors.CategorizationError(pipeErrors.CodeIndexUpdate, "upsert", err)
	}
	return nil
}

// WarmIndex rebuilds the similarity index from already categorized
// transactions, typically at startup.
func (e *Engine) WarmIndex(ctx context.Context, transactions []*models.Transaction) error {
	indexed := 0
	for _, txn := range transactions {
		if txn.CategoryName == "" {
			continue
		}
		if err := e.IndexTransaction(ctx, txn); err != nil {
			return err
		}
		indexed++
	}

	e.logger.WithField("indexed", indexed).Debug("Warmed similarity index")
	return nil
}

// suggestions returns candidate categories ordered by vote count, then
// name, capped at the configured maximum.
func (e *Engine) suggestions(counts map[string]int) []string {
	candidates := make([]string, 0, len(counts))
	for category := range counts {
		candidates = append(candidates, category)
	}

	sort.Slice(candidates, func(i, j int) bool {
		if counts[candidates[i]] != counts[candidates[j]] {
			return counts[candidates[i]] > counts[candidates[j]]
		}
		return candidates[i] < candidates[j]
	})

	if len(candidates) > e.config.MaxSuggestions {
		candidates = candidates[:e.config.MaxSuggestions]
	}
	return candidates
}

func toSimilarTransactions(matches []Match) []models.SimilarTransaction {
	similar := make([]models.SimilarTransaction, 0, len(matches))
	for _, m := range matches {
		similar = append(similar, models.SimilarTransaction{
			TransactionID: m.TransactionID,
			Merchant:      m.Merchant,
			Amount:        m.Amount,
			Category:      m.Category,
			Similarity:    m.Similarity,
		})
	}
	return similar
}

// needsReview builds a review result. Confidence stays at zero because an
// unassigned category has nothing to be confident about.
func needsReview(explanation string, similar []models.SimilarTransaction, suggestions []string) *models.CategorizationResult {
	return &models.CategorizationResult{
		Method:              models.MethodNeedsReview,
		Explanation:         explanation,
		SimilarTransactions: similar,
		Suggestions:         suggestions,
	}
}
