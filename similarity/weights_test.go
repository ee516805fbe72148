package similarity

import (
	"testing"

	"github.com/pkg/errors"
)

func TestWeights_Validate(t *testing.T) {
	tests := []struct {
		name    string
		weights Weights
		wantErr bool
	}{
		{
			name:    "defaults",
			weights: DefaultWeights(),
			wantErr: false,
		},
		{
			name:    "slight drift within tolerance",
			weights: Weights{Semantic: 0.695, Length: 0.15, Keyword: 0.10, Temporal: 0.05},
			wantErr: false,
		},
		{
			name:    "sum far below one",
			weights: Weights{Semantic: 0.60, Length: 0.15, Keyword: 0.10, Temporal: 0.05},
			wantErr: true,
		},
		{
			name:    "sum far above one",
			weights: Weights{Semantic: 0.70, Length: 0.30, Keyword: 0.10, Temporal: 0.05},
			wantErr: true,
		},
		{
			name:    "negative weight",
			weights: Weights{Semantic: 1.10, Length: -0.15, Keyword: 0.03, Temporal: 0.02},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.weights.Validate()
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidWeights) {
					t.Errorf("expected ErrInvalidWeights, got %v", err)
				}
				return
			}
			if err != nil {
				t.Errorf("expected valid weights, got %v", err)
			}
		})
	}
}

func TestDefaultWeights_SumToOne(t *testing.T) {
	w := DefaultWeights()
	sum := w.Semantic + w.Length + w.Keyword + w.Temporal
	if sum < 0.999 || sum > 1.001 {
		t.Errorf("expected default weights to sum to 1.0, got %f", sum)
	}
}
