// Package similarity scores how alike two calendar events are across
// four facets (semantic, length, keyword, temporal) and blends the
// facets into one final score with configurable weights.
package similarity

import (
	"context"
	"math"
	"strings"

	"github.com/pkg/errors"

	"github.com/hrygo/exemplar/embedding"
	"github.com/hrygo/exemplar/event"
)

// lengthDecayWords controls how fast length similarity decays per word
// of title-length difference.
const lengthDecayWords = 3.0

// Breakdown carries the per-facet scores next to the blended final
// score so a caller can explain a ranking.
type Breakdown struct {
	Semantic float64 `json:"semantic"`
	Length   float64 `json:"length"`
	Keyword  float64 `json:"keyword"`
	Temporal float64 `json:"temporal"`
	Final    float64 `json:"final"`
}

// Scorer computes multi-facet similarity between two events.
type Scorer struct {
	embedder embedding.Provider
	weights  Weights
}

// NewScorer builds a Scorer. An invalid weight set is a construction
// error, never a silent default.
func NewScorer(embedder embedding.Provider, weights Weights) (*Scorer, error) {
	if embedder == nil {
		return nil, errors.New("embedder is required")
	}
	if err := weights.Validate(); err != nil {
		return nil, err
	}
	return &Scorer{embedder: embedder, weights: weights}, nil
}

// Weights returns the configured facet blend.
func (s *Scorer) Weights() Weights {
	return s.weights
}

// Score compares query and candidate. If either title is blank the
// result is all zeros and no embedding is computed.
func (s *Scorer) Score(ctx context.Context, query, candidate event.Event) (float64, Breakdown, error) {
	if !query.HasTitle() || !candidate.HasTitle() {
		return 0, Breakdown{}, nil
	}

	queryVec, err := s.embedder.Embed(ctx, query.Title)
	if err != nil {
		return 0, Breakdown{}, errors.Wrap(err, "embed query title")
	}
	candidateVec, err := s.embedder.Embed(ctx, candidate.Title)
	if err != nil {
		return 0, Breakdown{}, errors.Wrap(err, "embed candidate title")
	}

	final, breakdown := s.ScoreWithVectors(query, candidate, queryVec, candidateVec)
	return final, breakdown, nil
}

// ScoreWithVectors scores with embeddings the caller already holds, so
// index-time vectors are not recomputed per comparison.
func (s *Scorer) ScoreWithVectors(query, candidate event.Event, queryVec, candidateVec []float32) (float64, Breakdown) {
	if !query.HasTitle() || !candidate.HasTitle() {
		return 0, Breakdown{}
	}

	b := Breakdown{
		Semantic: SemanticSimilarity(queryVec, candidateVec),
		Length:   LengthSimilarity(query.Title, candidate.Title),
		Keyword:  KeywordSimilarity(query.Title, candidate.Title),
		Temporal: TemporalSimilarity(query.IsAllDay, candidate.IsAllDay),
	}
	b.Final = s.weights.Semantic*b.Semantic +
		s.weights.Length*b.Length +
		s.weights.Keyword*b.Keyword +
		s.weights.Temporal*b.Temporal
	return b.Final, b
}

// SemanticSimilarity is cosine similarity clamped to [0,1]. Negative
// cosine counts as 0.
func SemanticSimilarity(a, b []float32) float64 {
	cos := embedding.CosineSimilarity(a, b)
	if cos < 0 {
		return 0
	}
	if cos > 1 {
		return 1
	}
	return cos
}

// LengthSimilarity decays exponentially with the absolute word-count
// difference of the two titles. Equal lengths score 1.0, a three-word
// difference about 0.37.
func LengthSimilarity(a, b string) float64 {
	diff := math.Abs(float64(wordCount(a) - wordCount(b)))
	return math.Exp(-diff / lengthDecayWords)
}

// KeywordSimilarity is the Jaccard overlap of the two titles' keyword
// sets.
func KeywordSimilarity(a, b string) float64 {
	return Jaccard(ExtractKeywords(a), ExtractKeywords(b))
}

// TemporalSimilarity is exactly 1.0 when the all-day flags agree and
// exactly 0.5 otherwise.
func TemporalSimilarity(a, b bool) float64 {
	if a == b {
		return 1.0
	}
	return 0.5
}

func wordCount(s string) int {
	return len(strings.Fields(s))
}
