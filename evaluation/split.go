package evaluation

import (
	"context"
	"math/rand"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/hrygo/exemplar/event"
)

const (
	// DefaultTrainRatio is the train share of SplitTrainTest.
	DefaultTrainRatio = 0.8

	// DefaultFolds is the fold count for CrossValidate.
	DefaultFolds = 5

	// cvParallelism caps concurrent fold evaluations; each fold builds
	// its own index.
	cvParallelism = 4
)

// SplitTrainTest splits events into train and test sets after a seeded
// shuffle. The same (events, ratio, seed) always yields the same
// split. A ratio outside (0,1) means DefaultTrainRatio.
func SplitTrainTest(events []event.Event, ratio float64, seed int64) (train, test []event.Event) {
	if ratio <= 0 || ratio >= 1 {
		ratio = DefaultTrainRatio
	}

	shuffled := shuffleEvents(events, seed)
	cut := int(float64(len(shuffled)) * ratio)
	return shuffled[:cut], shuffled[cut:]
}

// FoldMetrics is one cross-validation fold's result.
type FoldMetrics struct {
	Fold int `json:"fold"`
	Metrics
}

// CrossValidate runs k-fold cross-validation: a seeded shuffle is
// striped into folds, each fold's stripe becomes the query set and a
// fresh index is built over the remainder. Returns per-fold metrics
// and their unweighted mean. folds below 2 means DefaultFolds; fewer
// events than folds is an error.
func (h *Harness) CrossValidate(ctx context.Context, events []event.Event, folds int, seed int64) ([]FoldMetrics, *Metrics, error) {
	if folds < 2 {
		folds = DefaultFolds
	}
	if len(events) < folds {
		return nil, nil, errors.Errorf("cross-validation needs at least %d events, have %d", folds, len(events))
	}

	shuffled := shuffleEvents(events, seed)

	results := make([]FoldMetrics, folds)
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(cvParallelism)
	for fold := 0; fold < folds; fold++ {
		fold := fold
		g.Go(func() error {
			train := make([]event.Event, 0, len(shuffled))
			test := make([]event.Event, 0, len(shuffled)/folds+1)
			for i, ev := range shuffled {
				if i%folds == fold {
					test = append(test, ev)
				} else {
					train = append(train, ev)
				}
			}

			svc, err := h.newService(ctx, train)
			if err != nil {
				return errors.Wrapf(err, "fold %d", fold)
			}
			m, err := h.EvaluateService(ctx, svc, train, test)
			if err != nil {
				return errors.Wrapf(err, "fold %d", fold)
			}
			results[fold] = FoldMetrics{Fold: fold, Metrics: *m}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	mean := &Metrics{RunID: uuid.New().String(), K: h.cfg.K}
	for _, fm := range results {
		mean.Queries += fm.Queries
		mean.Skipped += fm.Skipped
		mean.PrecisionAtK += fm.PrecisionAtK
		mean.RecallAtK += fm.RecallAtK
		mean.MRR += fm.MRR
		mean.AvgSimilarity += fm.AvgSimilarity
	}
	n := float64(folds)
	mean.PrecisionAtK /= n
	mean.RecallAtK /= n
	mean.MRR /= n
	mean.AvgSimilarity /= n

	h.logger.InfoContext(ctx, "cross-validation completed",
		"run_id", mean.RunID,
		"folds", folds,
		"mean_precision", mean.PrecisionAtK,
		"mean_recall", mean.RecallAtK,
		"mean_mrr", mean.MRR,
	)
	return results, mean, nil
}

func shuffleEvents(events []event.Event, seed int64) []event.Event {
	shuffled := make([]event.Event, len(events))
	copy(shuffled, events)
	rng := rand.New(rand.NewSource(seed))
	rng.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})
	return shuffled
}
