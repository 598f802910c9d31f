package categorizer

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
)

// Embedder turns composite transaction text into a dense vector. The
// engine treats the embedder as an unreliable external collaborator; any
// failure downgrades the transaction to manual review.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// hashEmbedderDim is the fixed dimensionality of the local embedder
const hashEmbedderDim = 256

// HashEmbedder is a deterministic local embedder based on token feature
// hashing. It captures exact and near-exact textual overlap, which is what
// statement text mostly offers, and it works offline with no model assets.
type HashEmbedder struct{}

// NewHashEmbedder creates a local feature-hashing embedder
func NewHashEmbedder() *HashEmbedder {
	return &HashEmbedder{}
}

// Embed maps each token and token bigram onto a fixed-size vector via FNV
// hashing, then L2-normalizes the result.
func (e *HashEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	vector := make([]float32, hashEmbedderDim)
	tokens := tokenize(text)

	for i, token := range tokens {
		addFeature(vector, token)
		if i+1 < len(tokens) {
			addFeature(vector, token+" "+tokens[i+1])
		}
	}

	var norm float64
	for _, v := range vector {
		norm += float64(v) * float64(v)
	}
	if norm > 0 {
		scale := float32(1 / math.Sqrt(norm))
		for i := range vector {
			vector[i] *= scale
		}
	}

	return vector, nil
}

func addFeature(vector []float32, feature string) {
	h := fnv.New32a()
	h.Write([]byte(feature))
	sum := h.Sum32()

	slot := sum % hashEmbedderDim
	// The next hash bit picks the sign, which keeps hash collisions from
	// always reinforcing each other.
	sign := float32(1)
	if (sum>>16)&1 == 1 {
		sign = -1
	}
	vector[slot] += sign
}

func tokenize(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !('a' <= r && r <= 'z') && !('0' <= r && r <= '9')
	})

	tokens := fields[:0]
	for _, f := range fields {
		if len(f) > 1 {
			tokens = append(tokens, f)
		}
	}
	return tokens
}
