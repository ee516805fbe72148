package embedding

import (
	"context"
	"hash/fnv"
	"math"
	"strings"

	"github.com/pkg/errors"
)

// DefaultDimensions matches the compact sentence-embedding models
// commonly used for short calendar text.
const DefaultDimensions = 384

// Feature weights for the hashing encoder. Whole words dominate;
// character trigrams add partial credit for near-identical tokens.
const (
	wordFeatureWeight    = 1.0
	trigramFeatureWeight = 0.5
)

// HashingProvider is a deterministic local embedding backend. Word
// tokens and character trigrams are hashed onto signed dimensions and
// the result is L2-normalized, so cosine similarity reduces to a dot
// product. Vectors are stable across processes and builds, require no
// model files, and cost no I/O, which keeps the engine fully
// in-process.
type HashingProvider struct {
	dimensions int
}

// NewHashingProvider creates a hashing backend. A non-positive
// dimension selects DefaultDimensions.
func NewHashingProvider(dimensions int) *HashingProvider {
	if dimensions <= 0 {
		dimensions = DefaultDimensions
	}
	return &HashingProvider{dimensions: dimensions}
}

// Embed generates the feature-hashed vector for text.
func (p *HashingProvider) Embed(_ context.Context, text string) ([]float32, error) {
	normalized := NormalizeText(text)
	if normalized == "" {
		return nil, ErrEmptyText
	}
	return p.encode(normalized), nil
}

// EmbedBatch generates vectors for multiple texts.
func (p *HashingProvider) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, errors.New("no texts provided for embedding")
	}

	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		vec, err := p.Embed(ctx, text)
		if err != nil {
			return nil, errors.Wrapf(err, "text %d", i)
		}
		vectors[i] = vec
	}
	return vectors, nil
}

// Dimensions returns the vector dimension.
func (p *HashingProvider) Dimensions() int {
	return p.dimensions
}

// encode builds the vector for normalized text.
func (p *HashingProvider) encode(text string) []float32 {
	vec := make([]float32, p.dimensions)

	for _, word := range strings.Fields(text) {
		p.addFeature(vec, "w:"+word, wordFeatureWeight)

		runes := []rune(word)
		for i := 0; i+3 <= len(runes); i++ {
			p.addFeature(vec, "t:"+string(runes[i:i+3]), trigramFeatureWeight)
		}
	}

	// L2 normalize so downstream cosine is a plain dot product.
	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	if norm > 0 {
		inv := float32(1 / math.Sqrt(norm))
		for i := range vec {
			vec[i] *= inv
		}
	}

	return vec
}

// addFeature hashes one feature onto a dimension with a hash-derived
// sign. FNV-1a is stable across platforms, keeping vectors reproducible.
func (p *HashingProvider) addFeature(vec []float32, feature string, weight float32) {
	h := fnv.New64a()
	_, _ = h.Write([]byte(feature))
	sum := h.Sum64()

	idx := int(sum % uint64(p.dimensions))
	if sum&(1<<63) != 0 {
		weight = -weight
	}
	vec[idx] += weight
}
