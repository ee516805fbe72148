package retrieval

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/hrygo/exemplar/embedding"
	"github.com/hrygo/exemplar/event"
	"github.com/hrygo/exemplar/internal/strutil"
	"github.com/hrygo/exemplar/metrics"
	"github.com/hrygo/exemplar/similarity"
	"github.com/hrygo/exemplar/vecindex"
)

// Service defaults. The thresholds are workload-tuned starting points,
// not derived values; override them per deployment through Config.
const (
	DefaultCacheCapacity      = 1000
	DefaultDiversityThreshold = 0.85
	DefaultMinSimilarity      = 0.65
	DefaultNoveltyThreshold   = 0.5
	DefaultNoveltySampleSize  = 10

	// diversityOversample widens the candidate pull for diversity
	// selection so enough survive the pairwise filter.
	diversityOversample = 3

	logTitleLimit = 50
)

// Config configures the production retrieval service.
type Config struct {
	// Embedder turns titles into vectors. Defaults to a cached
	// in-process hashing provider, so the service works with no
	// external embedding backend.
	Embedder embedding.Provider

	// Weights is the facet blend for the scorer. The zero value means
	// similarity.DefaultWeights(); anything else must validate.
	Weights similarity.Weights

	// CacheCapacity bounds the FIFO result cache (default 1000).
	CacheCapacity int

	// RerankFactor and MinCandidates tune the two-stage retriever.
	RerankFactor  int
	MinCandidates int

	// DiversityThreshold is the pairwise cosine ceiling for
	// FindSimilarWithDiversity (default 0.85).
	DiversityThreshold float64

	// MinSimilarity is the weak-match floor for
	// FindSimilarWithFallback (default 0.65).
	MinSimilarity float64

	// NoveltyThreshold and NoveltySampleSize tune DetectNovelEvent
	// (defaults 0.5 and 10).
	NoveltyThreshold  float64
	NoveltySampleSize int

	// ExactIndex forces brute-force vector search.
	ExactIndex bool

	// LSH tunes the approximate index when ExactIndex is false.
	LSH vecindex.LSHConfig

	// Metrics receives search and cache observations when set.
	Metrics *metrics.Exporter

	Logger *slog.Logger
}

// CacheStats is a snapshot of the service's search counters and result
// cache state.
type CacheStats struct {
	TotalSearches    int64         `json:"total_searches"`
	CacheHits        int64         `json:"cache_hits"`
	CacheMisses      int64         `json:"cache_misses"`
	HitRate          float64       `json:"hit_rate"`
	AvgSearchLatency time.Duration `json:"avg_search_latency"`
	Size             int           `json:"size"`
	Capacity         int           `json:"capacity"`
	Evictions        int64         `json:"evictions"`
}

// FallbackResult is the outcome of FindSimilarWithFallback. WeakMatch
// set means the top score fell below the configured floor; results are
// still returned so the caller can decide what to do with them.
type FallbackResult struct {
	Results   []SimilarEvent `json:"results"`
	TopScore  float64        `json:"top_score"`
	WeakMatch bool           `json:"weak_match"`
}

// Service is the production retrieval surface. It wraps the two-stage
// retriever with a bounded result cache, diversity-aware selection,
// similarity-floor fallback and novelty detection.
//
// The cache and the search counters are the only mutable state, both
// lock-guarded, so one Service instance serves concurrent callers.
// BuildIndex is the exception: it must not run concurrently with
// queries against the same instance.
type Service struct {
	retriever *Retriever
	embedder  embedding.Provider
	cache     *resultCache
	cfg       Config
	logger    *slog.Logger
	metrics   *metrics.Exporter

	statsMu       sync.Mutex
	totalSearches int64
	cacheHits     int64
	cacheMisses   int64
	searchTime    time.Duration
}

// NewService creates a Service. An invalid weight set fails here, at
// construction, never later.
func NewService(cfg Config) (*Service, error) {
	if cfg.Embedder == nil {
		cfg.Embedder = embedding.NewCachingProvider(embedding.NewHashingProvider(0))
	}
	if cfg.Weights == (similarity.Weights{}) {
		cfg.Weights = similarity.DefaultWeights()
	}
	if cfg.CacheCapacity <= 0 {
		cfg.CacheCapacity = DefaultCacheCapacity
	}
	if cfg.RerankFactor <= 0 {
		cfg.RerankFactor = DefaultRerankFactor
	}
	if cfg.MinCandidates <= 0 {
		cfg.MinCandidates = DefaultMinCandidates
	}
	if cfg.DiversityThreshold <= 0 {
		cfg.DiversityThreshold = DefaultDiversityThreshold
	}
	if cfg.MinSimilarity <= 0 {
		cfg.MinSimilarity = DefaultMinSimilarity
	}
	if cfg.NoveltyThreshold <= 0 {
		cfg.NoveltyThreshold = DefaultNoveltyThreshold
	}
	if cfg.NoveltySampleSize <= 0 {
		cfg.NoveltySampleSize = DefaultNoveltySampleSize
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	scorer, err := similarity.NewScorer(cfg.Embedder, cfg.Weights)
	if err != nil {
		return nil, errors.Wrap(err, "configure scorer")
	}

	retriever := NewRetriever(cfg.Embedder, scorer, RetrieverConfig{
		RerankFactor:  cfg.RerankFactor,
		MinCandidates: cfg.MinCandidates,
		ExactIndex:    cfg.ExactIndex,
		LSH:           cfg.LSH,
		Logger:        cfg.Logger,
	})

	return &Service{
		retriever: retriever,
		embedder:  cfg.Embedder,
		cache:     newResultCache(cfg.CacheCapacity),
		cfg:       cfg,
		logger:    cfg.Logger,
		metrics:   cfg.Metrics,
	}, nil
}

// BuildIndex indexes corpus and clears the result cache, since cached
// lists from the previous corpus are stale. Treat it as a one-time
// initialization barrier: do not run it concurrently with queries.
func (s *Service) BuildIndex(ctx context.Context, corpus []event.Event) error {
	start := time.Now()
	if err := s.retriever.BuildIndex(ctx, corpus); err != nil {
		return err
	}
	elapsed := time.Since(start)

	s.cache.clear()

	if s.metrics != nil {
		s.metrics.ObserveIndexBuild(elapsed, s.retriever.CorpusSize())
		s.metrics.SetCacheStats(s.cache.size(), s.cache.capacity, s.cache.evictions())
	}
	s.logger.InfoContext(ctx, "retrieval index built",
		"corpus_size", s.retriever.CorpusSize(),
		"elapsed", elapsed,
	)
	return nil
}

// FindSimilar returns the top k events most similar to query. With
// useCache a hit serves the cached list truncated to k. A cached list
// shorter than k is a miss and gets replaced, unless it covers the
// whole corpus, which satisfies any k.
func (s *Service) FindSimilar(ctx context.Context, query event.Event, k int, useCache bool) ([]SimilarEvent, error) {
	if k <= 0 {
		return nil, nil
	}

	key := cacheKey(query)
	if useCache {
		if cached, ok := s.cache.get(key); ok && (len(cached) >= k || len(cached) == s.retriever.CorpusSize()) {
			if len(cached) > k {
				cached = cached[:k]
			}
			s.recordHit()
			if s.metrics != nil {
				s.metrics.RecordSearch(true, 0, len(cached))
			}
			s.logger.DebugContext(ctx, "retrieval cache hit",
				"title", strutil.Truncate(query.Title, logTitleLimit),
				"k", k,
			)
			return cloneResults(cached), nil
		}
	}

	start := time.Now()
	results, err := s.retriever.Retrieve(ctx, query, k)
	if err != nil {
		return nil, err
	}
	elapsed := time.Since(start)
	s.recordMiss(elapsed)

	if useCache {
		s.cache.set(key, cloneResults(results))
	}
	if s.metrics != nil {
		s.metrics.RecordSearch(false, elapsed, len(results))
		s.metrics.SetCacheStats(s.cache.size(), s.cache.capacity, s.cache.evictions())
	}
	s.logger.DebugContext(ctx, "retrieval completed",
		"title", strutil.Truncate(query.Title, logTitleLimit),
		"k", k,
		"results", len(results),
		"elapsed", elapsed,
	)
	return results, nil
}

// FindSimilarWithDiversity retrieves k*3 candidates and greedily keeps
// those whose embedding cosine similarity to every already-kept result
// stays below diversityThreshold (non-positive means the configured
// default). Fewer than k results means the candidate pool ran out of
// sufficiently different events.
func (s *Service) FindSimilarWithDiversity(ctx context.Context, query event.Event, k int, diversityThreshold float64) ([]SimilarEvent, error) {
	if k <= 0 {
		return nil, nil
	}
	if diversityThreshold <= 0 {
		diversityThreshold = s.cfg.DiversityThreshold
	}

	candidates, err := s.FindSimilar(ctx, query, k*diversityOversample, true)
	if err != nil {
		return nil, err
	}

	kept := make([]SimilarEvent, 0, k)
	keptVectors := make([][]float32, 0, k)
	for _, cand := range candidates {
		vec, err := s.titleVector(ctx, cand.Event)
		if err != nil {
			return nil, err
		}

		diverse := true
		for _, kv := range keptVectors {
			if embedding.CosineSimilarity(vec, kv) >= diversityThreshold {
				diverse = false
				break
			}
		}
		if !diverse {
			continue
		}

		kept = append(kept, cand)
		keptVectors = append(keptVectors, vec)
		if len(kept) == k {
			break
		}
	}

	for i := range kept {
		kept[i].Rank = i + 1
	}
	s.logger.DebugContext(ctx, "diversity selection completed",
		"title", strutil.Truncate(query.Title, logTitleLimit),
		"candidates", len(candidates),
		"kept", len(kept),
		"threshold", diversityThreshold,
	)
	return kept, nil
}

// FindSimilarWithFallback retrieves normally and flags the result weak
// when the top score falls below minSimilarity (non-positive means the
// configured default). A weak match still returns results; the caller
// sees the score and decides whether to use them.
func (s *Service) FindSimilarWithFallback(ctx context.Context, query event.Event, k int, minSimilarity float64) (*FallbackResult, error) {
	if minSimilarity <= 0 {
		minSimilarity = s.cfg.MinSimilarity
	}

	results, err := s.FindSimilar(ctx, query, k, true)
	if err != nil {
		return nil, err
	}

	fr := &FallbackResult{Results: results}
	if len(results) > 0 {
		fr.TopScore = results[0].Score
	}
	fr.WeakMatch = fr.TopScore < minSimilarity

	if fr.WeakMatch {
		s.logger.DebugContext(ctx, "weak retrieval match",
			"title", strutil.Truncate(query.Title, logTitleLimit),
			"top_score", fr.TopScore,
			"min_similarity", minSimilarity,
		)
	}
	return fr, nil
}

// DetectNovelEvent samples the corpus around query and reports whether
// the average final score stays below threshold (non-positive means the
// configured default). Novel events have no reliable formatting
// precedent; upstream skips personalization for them.
func (s *Service) DetectNovelEvent(ctx context.Context, query event.Event, threshold float64) (bool, float64, error) {
	if threshold <= 0 {
		threshold = s.cfg.NoveltyThreshold
	}

	results, err := s.FindSimilar(ctx, query, s.cfg.NoveltySampleSize, true)
	if err != nil {
		return false, 0, err
	}
	if len(results) == 0 {
		return true, 0, nil
	}

	var sum float64
	for _, r := range results {
		sum += r.Score
	}
	avg := sum / float64(len(results))
	return avg < threshold, avg, nil
}

// GetCacheStats snapshots the search counters and cache state. Average
// latency covers cache misses only.
func (s *Service) GetCacheStats() CacheStats {
	s.statsMu.Lock()
	total := s.totalSearches
	hits := s.cacheHits
	misses := s.cacheMisses
	searchTime := s.searchTime
	s.statsMu.Unlock()

	hitRate := 0.0
	if total > 0 {
		hitRate = float64(hits) / float64(total)
	}
	var avg time.Duration
	if misses > 0 {
		avg = searchTime / time.Duration(misses)
	}

	return CacheStats{
		TotalSearches:    total,
		CacheHits:        hits,
		CacheMisses:      misses,
		HitRate:          hitRate,
		AvgSearchLatency: avg,
		Size:             s.cache.size(),
		Capacity:         s.cache.capacity,
		Evictions:        s.cache.evictions(),
	}
}

// ClearCache drops all cached result lists. The lifetime search
// counters stay.
func (s *Service) ClearCache() {
	s.cache.clear()
	if s.metrics != nil {
		s.metrics.SetCacheStats(s.cache.size(), s.cache.capacity, s.cache.evictions())
	}
}

func (s *Service) titleVector(ctx context.Context, ev event.Event) ([]float32, error) {
	if !ev.HasTitle() {
		return make([]float32, s.embedder.Dimensions()), nil
	}
	vec, err := s.embedder.Embed(ctx, ev.Title)
	if err != nil {
		return nil, errors.Wrap(err, "embed title")
	}
	return vec, nil
}

func (s *Service) recordHit() {
	s.statsMu.Lock()
	s.totalSearches++
	s.cacheHits++
	s.statsMu.Unlock()
}

func (s *Service) recordMiss(elapsed time.Duration) {
	s.statsMu.Lock()
	s.totalSearches++
	s.cacheMisses++
	s.searchTime += elapsed
	s.statsMu.Unlock()
}

func cloneResults(results []SimilarEvent) []SimilarEvent {
	out := make([]SimilarEvent, len(results))
	copy(out, results)
	return out
}
