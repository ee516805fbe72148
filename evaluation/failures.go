package evaluation

import (
	"context"
	"sort"

	"github.com/lithammer/shortuuid/v4"
	"github.com/pkg/errors"

	"github.com/hrygo/exemplar/event"
	"github.com/hrygo/exemplar/retrieval"
)

// FailureCase pairs a low-precision query with what came back and what
// was expected, for manual inspection.
type FailureCase struct {
	CaseID      string                   `json:"case_id"`
	Query       event.Event              `json:"query"`
	Precision   float64                  `json:"precision"`
	Retrieved   []retrieval.SimilarEvent `json:"retrieved"`
	ExpectedIDs []string                 `json:"expected_ids"`
	MissedIDs   []string                 `json:"missed_ids"`
}

// AnalyzeFailureCases evaluates every query individually and returns
// the worst-precision cases first, at most limit of them (limit <= 0
// returns all). Queries without ground-truth matches are skipped.
func (h *Harness) AnalyzeFailureCases(ctx context.Context, corpus, queries []event.Event, limit int) ([]FailureCase, error) {
	svc, err := h.newService(ctx, corpus)
	if err != nil {
		return nil, err
	}

	var cases []FailureCase
	for _, query := range queries {
		expected := ExpectedMatches(query, corpus, h.cfg.JaccardThreshold)
		if len(expected) == 0 {
			continue
		}

		results, err := svc.FindSimilar(ctx, query, h.cfg.K, false)
		if err != nil {
			return nil, errors.Wrapf(err, "analyze query %q", query.Title)
		}

		hits := 0
		retrievedIDs := make(map[string]bool, len(results))
		for _, r := range results {
			retrievedIDs[r.Event.ID] = true
			if expected[r.Event.ID] {
				hits++
			}
		}
		precision := 0.0
		if len(results) > 0 {
			precision = float64(hits) / float64(len(results))
		}

		expectedIDs := make([]string, 0, len(expected))
		missedIDs := make([]string, 0)
		for id := range expected {
			expectedIDs = append(expectedIDs, id)
			if !retrievedIDs[id] {
				missedIDs = append(missedIDs, id)
			}
		}
		sort.Strings(expectedIDs)
		sort.Strings(missedIDs)

		cases = append(cases, FailureCase{
			CaseID:      shortuuid.New(),
			Query:       query,
			Precision:   precision,
			Retrieved:   results,
			ExpectedIDs: expectedIDs,
			MissedIDs:   missedIDs,
		})
	}

	sort.SliceStable(cases, func(i, j int) bool {
		return cases[i].Precision < cases[j].Precision
	})
	if limit > 0 && len(cases) > limit {
		cases = cases[:limit]
	}
	return cases, nil
}
