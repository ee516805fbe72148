package evaluation

import (
	"fmt"
	"io"
	"strings"

	"github.com/hrygo/exemplar/internal/strutil"
)

const reportTitleLimit = 60

// WriteReport renders an evaluation run as GFM Markdown. folds and
// failures are optional sections; nil omits them.
func WriteReport(w io.Writer, m *Metrics, folds []FoldMetrics, failures []FailureCase) error {
	var err error
	p := func(format string, args ...any) {
		if err == nil {
			_, err = fmt.Fprintf(w, format, args...)
		}
	}

	p("# Retrieval Evaluation Report\n\n")
	p("Run `%s` at k=%d: %d queries evaluated, %d skipped (no ground truth).\n\n", m.RunID, m.K, m.Queries, m.Skipped)

	p("| Metric | Value |\n")
	p("| --- | --- |\n")
	p("| Precision@%d | %.4f |\n", m.K, m.PrecisionAtK)
	p("| Recall@%d | %.4f |\n", m.K, m.RecallAtK)
	p("| MRR | %.4f |\n", m.MRR)
	p("| Avg similarity | %.4f |\n", m.AvgSimilarity)

	if len(folds) > 0 {
		p("\n## Cross-Validation Folds\n\n")
		p("| Fold | Queries | Skipped | Precision@%d | Recall@%d | MRR |\n", m.K, m.K)
		p("| --- | --- | --- | --- | --- | --- |\n")
		for _, fm := range folds {
			p("| %d | %d | %d | %.4f | %.4f | %.4f |\n", fm.Fold, fm.Queries, fm.Skipped, fm.PrecisionAtK, fm.RecallAtK, fm.MRR)
		}
	}

	if len(failures) > 0 {
		p("\n## Worst Failure Cases\n")
		for _, fc := range failures {
			p("\n### %s: %q (precision %.2f)\n\n", fc.CaseID, strutil.Truncate(fc.Query.Title, reportTitleLimit), fc.Precision)
			p("- Expected: %s\n", joinOrDash(fc.ExpectedIDs))
			p("- Missed: %s\n", joinOrDash(fc.MissedIDs))
			if len(fc.Retrieved) > 0 {
				p("- Retrieved:\n")
				for _, r := range fc.Retrieved {
					p("  %d. %q (score %.3f)\n", r.Rank, strutil.Truncate(r.Event.Title, reportTitleLimit), r.Score)
				}
			}
		}
	}

	return err
}

func joinOrDash(ids []string) string {
	if len(ids) == 0 {
		return "-"
	}
	return strings.Join(ids, ", ")
}
