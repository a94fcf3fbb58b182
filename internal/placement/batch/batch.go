// Package batch drives placement.Model.Predict across many queries
// concurrently, bounding parallelism with an errgroup.
package batch

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"taxoplace/pkg/domain"
	"taxoplace/pkg/placement"
)

// Result pairs a query id with its outcome: Err is set for a failed
// placement, Prediction otherwise. A query not started before the context
// was cancelled keeps a zero Result.
type Result struct {
	QueryID    string
	Prediction domain.PredictionRecord
	Err        error
}

// Run predicts every query in queries against model, using at most
// concurrency simultaneous placements. A per-query failure is recorded
// in that query's Result rather than aborting the batch. Results are
// returned in the same order as queries.
func Run(ctx context.Context, model placement.Model, queries []placement.Query, sink domain.LogSink, concurrency int) ([]Result, error) {
	if concurrency < 1 {
		concurrency = 1
	}
	results := make([]Result, len(queries))
	var mu sync.Mutex

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	for i, q := range queries {
		i, q := i, q
		g.Go(func() error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}
			rec, err := model.Predict(q, sink)
			mu.Lock()
			results[i] = Result{QueryID: q.ID, Prediction: rec, Err: err}
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return results, fmt.Errorf("batch placement: %w", err)
	}
	return results, nil
}
