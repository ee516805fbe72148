package similarity

import (
	"math"

	"github.com/pkg/errors"
)

// ErrInvalidWeights is returned when a Weights value fails validation.
var ErrInvalidWeights = errors.New("invalid similarity weights")

// WeightSumTolerance is how far the weight sum may drift from 1.0
// before validation rejects it.
const WeightSumTolerance = 0.01

// Default facet weights. Semantic similarity dominates; the other
// facets nudge the ranking.
const (
	DefaultSemanticWeight = 0.70
	DefaultLengthWeight   = 0.15
	DefaultKeywordWeight  = 0.10
	DefaultTemporalWeight = 0.05
)

// Weights blends the four similarity facets into a final score.
type Weights struct {
	Semantic float64 `json:"semantic"`
	Length   float64 `json:"length"`
	Keyword  float64 `json:"keyword"`
	Temporal float64 `json:"temporal"`
}

// DefaultWeights returns the standard facet blend.
func DefaultWeights() Weights {
	return Weights{
		Semantic: DefaultSemanticWeight,
		Length:   DefaultLengthWeight,
		Keyword:  DefaultKeywordWeight,
		Temporal: DefaultTemporalWeight,
	}
}

// Validate rejects negative weights and sums that drift more than
// WeightSumTolerance from 1.0.
func (w Weights) Validate() error {
	if w.Semantic < 0 || w.Length < 0 || w.Keyword < 0 || w.Temporal < 0 {
		return errors.Wrap(ErrInvalidWeights, "negative weight")
	}
	sum := w.Semantic + w.Length + w.Keyword + w.Temporal
	if math.Abs(sum-1.0) > WeightSumTolerance {
		return errors.Wrapf(ErrInvalidWeights, "weights sum to %.4f, want 1.0", sum)
	}
	return nil
}
