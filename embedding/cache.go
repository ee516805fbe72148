package embedding

import (
	"context"
	"sync"

	"github.com/pkg/errors"
)

// CachingProvider wraps a backend Provider with a per-process vector
// cache keyed by NormalizeText(text). The cache never evicts: the set of
// distinct titles is bounded by the corpus the caller supplies, and the
// caller bounds the provider's lifetime.
type CachingProvider struct {
	backend Provider

	mu      sync.RWMutex
	vectors map[string][]float32

	statsMu sync.Mutex
	hits    int64
	misses  int64
}

// CacheStats is a snapshot of the embedding cache counters.
type CacheStats struct {
	Hits   int64 `json:"hits"`
	Misses int64 `json:"misses"`
	Size   int   `json:"size"`
}

// NewCachingProvider wraps backend with a cache.
func NewCachingProvider(backend Provider) *CachingProvider {
	return &CachingProvider{
		backend: backend,
		vectors: make(map[string][]float32),
	}
}

// Embed returns the cached vector for text, calling the backend on a
// miss. Empty or whitespace-only text is rejected before the backend is
// consulted.
func (c *CachingProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	key := NormalizeText(text)
	if key == "" {
		return nil, ErrEmptyText
	}

	c.mu.RLock()
	vec, ok := c.vectors[key]
	c.mu.RUnlock()
	if ok {
		c.recordHit()
		return vec, nil
	}
	c.recordMiss()

	vec, err := c.backend.Embed(ctx, text)
	if err != nil {
		return nil, errors.Wrap(err, "embed text")
	}

	c.mu.Lock()
	c.vectors[key] = vec
	c.mu.Unlock()
	return vec, nil
}

// EmbedBatch resolves each text against the cache and sends only the
// misses to the backend in one call, so index builds stay batched.
func (c *CachingProvider) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, errors.New("no texts provided for embedding")
	}

	vectors := make([][]float32, len(texts))

	// First pass: resolve cached entries and collect distinct misses.
	missing := make([]string, 0, len(texts))
	missingKeys := make(map[string]int)
	c.mu.RLock()
	for i, text := range texts {
		key := NormalizeText(text)
		if key == "" {
			c.mu.RUnlock()
			return nil, errors.Wrapf(ErrEmptyText, "text %d", i)
		}
		if vec, ok := c.vectors[key]; ok {
			vectors[i] = vec
			c.recordHit()
			continue
		}
		c.recordMiss()
		if _, seen := missingKeys[key]; !seen {
			missingKeys[key] = len(missing)
			missing = append(missing, text)
		}
	}
	c.mu.RUnlock()

	if len(missing) == 0 {
		return vectors, nil
	}

	fetched, err := c.backend.EmbedBatch(ctx, missing)
	if err != nil {
		return nil, errors.Wrap(err, "embed batch")
	}
	if len(fetched) != len(missing) {
		return nil, errors.Errorf("embedding count mismatch: got %d, want %d", len(fetched), len(missing))
	}

	c.mu.Lock()
	for key, pos := range missingKeys {
		c.vectors[key] = fetched[pos]
	}
	c.mu.Unlock()

	for i, text := range texts {
		if vectors[i] == nil {
			vectors[i] = fetched[missingKeys[NormalizeText(text)]]
		}
	}
	return vectors, nil
}

// Dimensions returns the backend's vector dimension.
func (c *CachingProvider) Dimensions() int {
	return c.backend.Dimensions()
}

// Stats returns the cache counters.
func (c *CachingProvider) Stats() CacheStats {
	c.statsMu.Lock()
	hits, misses := c.hits, c.misses
	c.statsMu.Unlock()

	c.mu.RLock()
	size := len(c.vectors)
	c.mu.RUnlock()

	return CacheStats{Hits: hits, Misses: misses, Size: size}
}

func (c *CachingProvider) recordHit() {
	c.statsMu.Lock()
	c.hits++
	c.statsMu.Unlock()
}

func (c *CachingProvider) recordMiss() {
	c.statsMu.Lock()
	c.misses++
	c.statsMu.Unlock()
}
