// Package embedding turns event text into fixed-length vectors. Two
// backends are provided: a deterministic local hashing encoder and an
// OpenAI-compatible remote client. CachingProvider wraps either with a
// per-process cache keyed by normalized text.
package embedding

import (
	"context"
	"math"
	"strings"

	"github.com/pkg/errors"
)

// ErrEmptyText is returned when a provider is asked to embed empty or
// whitespace-only text. Callers are expected to filter such input before
// it reaches a backend.
var ErrEmptyText = errors.New("empty text")

// Provider is the vector embedding interface.
type Provider interface {
	// Embed generates a vector for a single text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch generates vectors for multiple texts.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions returns the vector dimension.
	Dimensions() int
}

// NormalizeText returns the canonical form of text used for cache keys:
// trimmed and lower-cased.
func NormalizeText(text string) string {
	return strings.ToLower(strings.TrimSpace(text))
}

// CosineSimilarity computes cosine similarity between two vectors.
// Mismatched lengths or zero-norm inputs yield 0.
func CosineSimilarity(a, b []float32) float64 {
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
