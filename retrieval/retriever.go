// Package retrieval finds, for a newly extracted calendar event, the
// historical events most likely to share the user's formatting
// conventions. A two-stage retriever pairs approximate vector search
// with exact multi-facet rescoring; Service wraps it with caching,
// diversity selection, fallback widening and novelty detection.
package retrieval

import (
	"context"
	"log/slog"
	"sort"

	"github.com/pkg/errors"

	"github.com/hrygo/exemplar/embedding"
	"github.com/hrygo/exemplar/event"
	"github.com/hrygo/exemplar/similarity"
	"github.com/hrygo/exemplar/vecindex"
)

const (
	// DefaultRerankFactor oversamples stage-one candidates by this
	// multiple of k.
	DefaultRerankFactor = 4

	// DefaultMinCandidates floors the stage-one candidate count so
	// small k still sees a meaningful rerank pool.
	DefaultMinCandidates = 20
)

// SimilarEvent is one ranked retrieval result. Rank is the 1-based
// position in the returned ordering.
type SimilarEvent struct {
	Event     event.Event          `json:"event"`
	Score     float64              `json:"score"`
	Breakdown similarity.Breakdown `json:"breakdown"`
	Rank      int                  `json:"rank"`
}

// RetrieverConfig configures the two-stage retriever.
type RetrieverConfig struct {
	// RerankFactor multiplies k for the stage-one candidate pull
	// (default 4).
	RerankFactor int

	// MinCandidates is the stage-one floor (default 20).
	MinCandidates int

	// ExactIndex replaces the approximate index with brute force.
	// Evaluation runs use this to isolate scoring quality from
	// index recall.
	ExactIndex bool

	// LSH tunes the approximate index when ExactIndex is false.
	LSH vecindex.LSHConfig

	Logger *slog.Logger
}

// Retriever retrieves in two stages: the vector index pulls an
// oversampled candidate set ordered by embedding distance alone, then
// every candidate is re-scored exactly with the multi-facet scorer and
// the top k survive. Ties in final score keep their stage-one order.
//
// The index, corpus and title vectors are built once by BuildIndex and
// read-only afterwards. Rebuilding is the only way to change the
// corpus.
type Retriever struct {
	embedder embedding.Provider
	scorer   *similarity.Scorer
	cfg      RetrieverConfig
	logger   *slog.Logger

	corpus  []event.Event
	vectors [][]float32
	index   vecindex.Index
}

// NewRetriever creates a retriever. BuildIndex must run before
// Retrieve.
func NewRetriever(embedder embedding.Provider, scorer *similarity.Scorer, cfg RetrieverConfig) *Retriever {
	if cfg.RerankFactor <= 0 {
		cfg.RerankFactor = DefaultRerankFactor
	}
	if cfg.MinCandidates <= 0 {
		cfg.MinCandidates = DefaultMinCandidates
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	return &Retriever{
		embedder: embedder,
		scorer:   scorer,
		cfg:      cfg,
		logger:   cfg.Logger,
	}
}

// BuildIndex embeds every corpus title in one batched call and builds
// the vector index. An empty corpus is legal and yields a retriever
// that returns no results.
func (r *Retriever) BuildIndex(ctx context.Context, corpus []event.Event) error {
	events := make([]event.Event, len(corpus))
	copy(events, corpus)

	vectors := make([][]float32, len(events))

	// Embed only rows with a usable title; blank titles keep a zero
	// vector and score zero at query time.
	titles := make([]string, 0, len(events))
	rows := make([]int, 0, len(events))
	for i, ev := range events {
		if ev.HasTitle() {
			titles = append(titles, ev.Title)
			rows = append(rows, i)
		}
	}

	if len(titles) > 0 {
		embedded, err := r.embedder.EmbedBatch(ctx, titles)
		if err != nil {
			return errors.Wrap(err, "embed corpus titles")
		}
		for i, row := range rows {
			vectors[row] = embedded[i]
		}
	}
	dims := r.embedder.Dimensions()
	for i := range vectors {
		if vectors[i] == nil {
			vectors[i] = make([]float32, dims)
		}
	}

	var index vecindex.Index
	if r.cfg.ExactIndex {
		index = vecindex.NewFlat(vectors)
	} else {
		index = vecindex.NewLSH(vectors, r.cfg.LSH)
	}

	r.corpus = events
	r.vectors = vectors
	r.index = index

	r.logger.DebugContext(ctx, "retrieval index built",
		"corpus_size", len(events),
		"embedded", len(titles),
		"exact", r.cfg.ExactIndex,
	)
	return nil
}

// Retrieve returns the top k events most similar to query, ordered by
// final score descending. k larger than the corpus returns the whole
// corpus scored; an empty corpus returns nothing.
func (r *Retriever) Retrieve(ctx context.Context, query event.Event, k int) ([]SimilarEvent, error) {
	if k <= 0 || r.index == nil || r.index.Len() == 0 {
		return nil, nil
	}

	queryVec := make([]float32, r.embedder.Dimensions())
	if query.HasTitle() {
		vec, err := r.embedder.Embed(ctx, query.Title)
		if err != nil {
			return nil, errors.Wrap(err, "embed query title")
		}
		queryVec = vec
	}

	// Stage one: pull an oversampled candidate set by embedding
	// distance only.
	limit := k * r.cfg.RerankFactor
	if limit < r.cfg.MinCandidates {
		limit = r.cfg.MinCandidates
	}
	if limit > len(r.corpus) {
		limit = len(r.corpus)
	}
	candidates := r.index.Search(queryVec, limit)

	// Stage two: exact multi-facet rescoring of the candidates.
	results := make([]SimilarEvent, len(candidates))
	for i, cand := range candidates {
		score, breakdown := r.scorer.ScoreWithVectors(query, r.corpus[cand.Row], queryVec, r.vectors[cand.Row])
		results[i] = SimilarEvent{
			Event:     r.corpus[cand.Row],
			Score:     score,
			Breakdown: breakdown,
		}
	}

	// Stable sort keeps stage-one order for tied final scores.
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})

	if len(results) > k {
		results = results[:k]
	}
	for i := range results {
		results[i].Rank = i + 1
	}
	return results, nil
}

// CorpusSize returns the number of indexed events.
func (r *Retriever) CorpusSize() int {
	return len(r.corpus)
}
