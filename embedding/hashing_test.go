package embedding

import (
	"context"
	"math"
	"testing"

	"github.com/pkg/errors"
)

func TestHashingProvider_Deterministic(t *testing.T) {
	ctx := context.Background()
	p := NewHashingProvider(0)

	a, err := p.Embed(ctx, "MATH 0180 Homework 1")
	if err != nil {
		t.Fatalf("Embed failed: %v", err)
	}
	b, err := p.Embed(ctx, "MATH 0180 Homework 1")
	if err != nil {
		t.Fatalf("Embed failed: %v", err)
	}

	if len(a) != DefaultDimensions {
		t.Errorf("expected %d dimensions, got %d", DefaultDimensions, len(a))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("vectors differ at index %d: %f vs %f", i, a[i], b[i])
		}
	}
}

func TestHashingProvider_NormalizedInput(t *testing.T) {
	ctx := context.Background()
	p := NewHashingProvider(0)

	a, err := p.Embed(ctx, "Team Meeting")
	if err != nil {
		t.Fatalf("Embed failed: %v", err)
	}
	b, err := p.Embed(ctx, "  team meeting ")
	if err != nil {
		t.Fatalf("Embed failed: %v", err)
	}

	if CosineSimilarity(a, b) < 0.999999 {
		t.Error("expected identical vectors for case and whitespace variants")
	}
}

func TestHashingProvider_UnitNorm(t *testing.T) {
	ctx := context.Background()
	p := NewHashingProvider(128)

	vec, err := p.Embed(ctx, "Doctor Appointment")
	if err != nil {
		t.Fatalf("Embed failed: %v", err)
	}
	if len(vec) != 128 {
		t.Fatalf("expected 128 dimensions, got %d", len(vec))
	}

	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	norm = math.Sqrt(norm)
	if math.Abs(norm-1.0) > 1e-5 {
		t.Errorf("expected unit norm, got %f", norm)
	}
}

func TestHashingProvider_EmptyText(t *testing.T) {
	ctx := context.Background()
	p := NewHashingProvider(0)

	for _, text := range []string{"", "   ", "\t\n"} {
		_, err := p.Embed(ctx, text)
		if !errors.Is(err, ErrEmptyText) {
			t.Errorf("Embed(%q): expected ErrEmptyText, got %v", text, err)
		}
	}

	_, err := p.EmbedBatch(ctx, []string{"ok title", " "})
	if !errors.Is(err, ErrEmptyText) {
		t.Errorf("EmbedBatch with blank text: expected ErrEmptyText, got %v", err)
	}
}

// Shared words and trigrams should place related titles closer than
// unrelated ones.
func TestHashingProvider_RelatedTitlesCloser(t *testing.T) {
	ctx := context.Background()
	p := NewHashingProvider(0)

	base, err := p.Embed(ctx, "MATH 0180 Homework 1")
	if err != nil {
		t.Fatalf("Embed failed: %v", err)
	}
	related, err := p.Embed(ctx, "MATH 0180 Homework 2")
	if err != nil {
		t.Fatalf("Embed failed: %v", err)
	}
	unrelated, err := p.Embed(ctx, "Doctor Appointment")
	if err != nil {
		t.Fatalf("Embed failed: %v", err)
	}

	relSim := CosineSimilarity(base, related)
	unrelSim := CosineSimilarity(base, unrelated)
	if relSim <= unrelSim {
		t.Errorf("expected related similarity (%f) above unrelated (%f)", relSim, unrelSim)
	}
}

func TestHashingProvider_BatchMatchesSingle(t *testing.T) {
	ctx := context.Background()
	p := NewHashingProvider(0)

	texts := []string{"Team Meeting", "CSCI 0200 Lab", "Doctor Appointment"}
	batch, err := p.EmbedBatch(ctx, texts)
	if err != nil {
		t.Fatalf("EmbedBatch failed: %v", err)
	}
	if len(batch) != len(texts) {
		t.Fatalf("expected %d vectors, got %d", len(texts), len(batch))
	}

	for i, text := range texts {
		single, err := p.Embed(ctx, text)
		if err != nil {
			t.Fatalf("Embed failed: %v", err)
		}
		for j := range single {
			if single[j] != batch[i][j] {
				t.Fatalf("batch vector %d differs from single embed at index %d", i, j)
			}
		}
	}
}

func TestCosineSimilarity(t *testing.T) {
	a := []float32{1, 0, 0}
	b := []float32{1, 0, 0}
	c := []float32{-1, 0, 0}
	zero := []float32{0, 0, 0}

	if sim := CosineSimilarity(a, b); math.Abs(sim-1.0) > 1e-9 {
		t.Errorf("identical vectors: expected 1.0, got %f", sim)
	}
	if sim := CosineSimilarity(a, c); math.Abs(sim+1.0) > 1e-9 {
		t.Errorf("opposite vectors: expected -1.0, got %f", sim)
	}
	if sim := CosineSimilarity(a, zero); sim != 0 {
		t.Errorf("zero vector: expected 0, got %f", sim)
	}
	if sim := CosineSimilarity(a, []float32{1, 0}); sim != 0 {
		t.Errorf("mismatched dimensions: expected 0, got %f", sim)
	}
}
