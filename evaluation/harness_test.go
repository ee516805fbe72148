package evaluation

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hrygo/exemplar/event"
)

func TestNewHarness_Defaults(t *testing.T) {
	h := NewHarness(Config{})
	assert.Equal(t, DefaultK, h.cfg.K)
	assert.Equal(t, DefaultJaccardThreshold, h.cfg.JaccardThreshold)
}

// A query whose expected events dominate the corpus should score
// perfectly at a matching k.
func TestHarness_Evaluate_PerfectRetrieval(t *testing.T) {
	ctx := context.Background()
	h := NewHarness(Config{K: 3})

	queries := []event.Event{
		{ID: "q1", Title: "MATH 0180 Homework 4", IsAllDay: true, CalendarName: "School"},
	}

	m, err := h.Evaluate(ctx, mathCorpus(), queries)
	require.NoError(t, err)

	assert.NotEmpty(t, m.RunID)
	assert.Equal(t, 3, m.K)
	assert.Equal(t, 1, m.Queries)
	assert.Zero(t, m.Skipped)
	assert.InDelta(t, 1.0, m.PrecisionAtK, 1e-9)
	assert.InDelta(t, 1.0, m.RecallAtK, 1e-9)
	assert.InDelta(t, 1.0, m.MRR, 1e-9)
	assert.Greater(t, m.AvgSimilarity, 0.5)
}

func TestHarness_Evaluate_SkipsUnlabeledQueries(t *testing.T) {
	ctx := context.Background()
	h := NewHarness(Config{K: 3})

	queries := []event.Event{
		{ID: "q1", Title: "MATH 0180 Homework 4", IsAllDay: true, CalendarName: "School"},
		{ID: "q2", Title: "Yoga Class", IsAllDay: false, CalendarName: "Fitness"},
	}

	m, err := h.Evaluate(ctx, mathCorpus(), queries)
	require.NoError(t, err)

	assert.Equal(t, 1, m.Queries)
	assert.Equal(t, 1, m.Skipped)
}

func TestHarness_Evaluate_NoQueries(t *testing.T) {
	ctx := context.Background()
	h := NewHarness(Config{})

	m, err := h.Evaluate(ctx, mathCorpus(), nil)
	require.NoError(t, err)

	assert.Zero(t, m.Queries)
	assert.Zero(t, m.PrecisionAtK)
	assert.Zero(t, m.MRR)
}
