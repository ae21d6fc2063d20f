// Package pool runs independent per-row work across a bounded set of
// workers, keyed by input index so completion order never matters.
package pool

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// ProgressFunc receives the completed count and elapsed time after each row
// reaches a terminal state. Completed is monotonically increasing and hits
// total exactly once when every row finishes.
type ProgressFunc func(completed, total int, elapsed time.Duration)

// Options configures a run.
type Options struct {
	// Workers is the number of concurrent workers. Values < 1 mean 1.
	Workers int
	// OnProgress, if set, is invoked after each terminal row.
	OnProgress ProgressFunc
}

// Outcome is the terminal state of one row. Done is false only when the run
// was cancelled before the row was dispatched; such rows carry no partial
// value.
type Outcome[T any] struct {
	Index int
	Value T
	Err   error
	Done  bool
}

// Map processes total rows with fn under the configured worker bound and
// returns outcomes indexed by row. An error from fn marks that row failed
// but never aborts the run; only context cancellation stops dispatch, and
// the returned error is then ctx's error. Rows already in flight during
// cancellation run to completion.
func Map[T any](ctx context.Context, total int, opts Options, fn func(ctx context.Context, index int) (T, error)) ([]Outcome[T], error) {
	workers := opts.Workers
	if workers < 1 {
		workers = 1
	}

	outcomes := make([]Outcome[T], total)
	for i := range outcomes {
		outcomes[i].Index = i
	}

	start := time.Now()
	var mu sync.Mutex // guards completed + OnProgress ordering
	completed := 0

	g := &errgroup.Group{}
	g.SetLimit(workers)

	for i := 0; i < total; i++ {
		if ctx.Err() != nil {
			break
		}

		g.Go(func() error {
			value, err := fn(ctx, i)
			if err != nil && ctx.Err() != nil {
				// Abandoned mid-flight by cancellation. The row stays
				// absent; a half-resolved record must never surface.
				return nil
			}

			outcomes[i].Value = value
			outcomes[i].Err = err
			outcomes[i].Done = true

			mu.Lock()
			completed++
			done, elapsed := completed, time.Since(start)
			if opts.OnProgress != nil {
				opts.OnProgress(done, total, elapsed)
			}
			mu.Unlock()
			return nil
		})
	}

	_ = g.Wait() // workers never return errors; failures live in outcomes

	if err := ctx.Err(); err != nil {
		return outcomes, err
	}
	return outcomes, nil
}
