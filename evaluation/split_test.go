package evaluation

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hrygo/exemplar/event"
)

func homeworkSeries(n int) []event.Event {
	events := make([]event.Event, n)
	for i := range events {
		events[i] = event.Event{
			ID:           fmt.Sprintf("e%d", i),
			Title:        fmt.Sprintf("MATH 0180 Homework %d", i+1),
			IsAllDay:     true,
			CalendarName: "School",
		}
	}
	return events
}

func TestSplitTrainTest(t *testing.T) {
	events := homeworkSeries(10)

	train, test := SplitTrainTest(events, 0.8, 42)
	if len(train) != 8 || len(test) != 2 {
		t.Fatalf("expected 8/2 split, got %d/%d", len(train), len(test))
	}

	seen := make(map[string]bool)
	for _, ev := range append(append([]event.Event{}, train...), test...) {
		if seen[ev.ID] {
			t.Errorf("event %s appears twice", ev.ID)
		}
		seen[ev.ID] = true
	}
	if len(seen) != 10 {
		t.Errorf("expected every event in exactly one side, got %d distinct", len(seen))
	}
}

func TestSplitTrainTest_Deterministic(t *testing.T) {
	events := homeworkSeries(10)

	trainA, testA := SplitTrainTest(events, 0.8, 42)
	trainB, testB := SplitTrainTest(events, 0.8, 42)

	for i := range trainA {
		if trainA[i].ID != trainB[i].ID {
			t.Fatalf("train order differs at %d for equal seeds", i)
		}
	}
	for i := range testA {
		if testA[i].ID != testB[i].ID {
			t.Fatalf("test order differs at %d for equal seeds", i)
		}
	}
}

func TestSplitTrainTest_BadRatio(t *testing.T) {
	events := homeworkSeries(10)

	for _, ratio := range []float64{0, -0.5, 1, 1.5} {
		train, test := SplitTrainTest(events, ratio, 7)
		if len(train) != 8 || len(test) != 2 {
			t.Errorf("ratio %f: expected default 8/2 split, got %d/%d", ratio, len(train), len(test))
		}
	}
}

func TestSplitTrainTest_Empty(t *testing.T) {
	train, test := SplitTrainTest(nil, 0.8, 1)
	if len(train) != 0 || len(test) != 0 {
		t.Errorf("expected empty split, got %d/%d", len(train), len(test))
	}
}

// A corpus of interchangeable homework events should evaluate cleanly
// in every fold.
func TestHarness_CrossValidate(t *testing.T) {
	ctx := context.Background()
	h := NewHarness(Config{})
	events := homeworkSeries(10)

	folds, mean, err := h.CrossValidate(ctx, events, 5, 42)
	require.NoError(t, err)
	require.Len(t, folds, 5)

	for i, fm := range folds {
		assert.Equal(t, i, fm.Fold)
		assert.Equal(t, 2, fm.Queries+fm.Skipped, "each fold holds a fifth of the corpus")
		assert.InDelta(t, 1.0, fm.PrecisionAtK, 1e-9)
		assert.InDelta(t, 1.0, fm.MRR, 1e-9)
	}

	assert.Equal(t, 10, mean.Queries)
	assert.Zero(t, mean.Skipped)
	assert.InDelta(t, 1.0, mean.PrecisionAtK, 1e-9)
	// Each fold retrieves k=5 of its 8 expected train events.
	assert.InDelta(t, 5.0/8.0, mean.RecallAtK, 1e-9)
	assert.Greater(t, mean.AvgSimilarity, 0.5)
	assert.NotEmpty(t, mean.RunID)
}

func TestHarness_CrossValidate_TooFewEvents(t *testing.T) {
	h := NewHarness(Config{})

	_, _, err := h.CrossValidate(context.Background(), homeworkSeries(3), 5, 1)
	assert.Error(t, err)
}
