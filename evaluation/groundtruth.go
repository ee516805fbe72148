package evaluation

import (
	"github.com/hrygo/exemplar/event"
	"github.com/hrygo/exemplar/similarity"
)

// DefaultJaccardThreshold is the keyword-overlap floor above which two
// same-calendar events count as should-format-similarly.
const DefaultJaccardThreshold = 0.3

// ExpectedMatches returns the IDs of corpus events that should format
// like query: same calendar name (case-folded) and title keyword
// Jaccard overlap strictly above threshold. The query's own ID never
// matches itself.
//
// This is a labeling heuristic for offline evaluation, deliberately
// independent of the scorer's own keyword weight.
func ExpectedMatches(query event.Event, corpus []event.Event, threshold float64) map[string]bool {
	queryKeywords := similarity.ExtractKeywords(query.Title)
	queryCalendar := query.NormalizedCalendar()

	expected := make(map[string]bool)
	for _, cand := range corpus {
		if cand.ID != "" && cand.ID == query.ID {
			continue
		}
		if cand.NormalizedCalendar() != queryCalendar {
			continue
		}
		if similarity.Jaccard(queryKeywords, similarity.ExtractKeywords(cand.Title)) > threshold {
			expected[cand.ID] = true
		}
	}
	return expected
}
