package concurrency

import (
	"context"
	"sync"
)

// ParallelOptions configures ProcessParallel.
type ParallelOptions struct {
	// MaxWorkers bounds the number of items processed at once.
	// Zero or negative means one worker per item.
	MaxWorkers int
}

// DefaultOptions runs every item at once.
func DefaultOptions() ParallelOptions {
	return ParallelOptions{}
}

// Result is the outcome of one item. Index is its position in the input.
type Result[R any] struct {
	Index int
	Value R
	Err   error
}

// ProcessParallel calls itemFunc for each item on a bounded pool of workers
// and blocks until every item has a result. Results are returned in input
// order regardless of completion order. Items not started before ctx is
// done get ctx.Err() as their error.
func ProcessParallel[T any, R any](
	ctx context.Context,
	items []T,
	opts ParallelOptions,
	itemFunc func(ctx context.Context, index int, item T) (R, error),
) []Result[R] {
	results := make([]Result[R], len(items))
	if len(items) == 0 {
		return results
	}

	workers := opts.MaxWorkers
	if workers <= 0 || workers > len(items) {
		workers = len(items)
	}

	jobs := make(chan int, len(items))
	for i := range items {
		jobs <- i
	}
	close(jobs)

	// each index is written by exactly one worker, so no lock is needed
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				results[i].Index = i
				if err := ctx.Err(); err != nil {
					results[i].Err = err
					continue
				}
				results[i].Value, results[i].Err = itemFunc(ctx, i, items[i])
			}
		}()
	}
	wg.Wait()

	return results
}

// Errors returns the non-nil errors of results, in input order.
func Errors[R any](results []Result[R]) []error {
	var errs []error
	for _, r := range results {
		if r.Err != nil {
			errs = append(errs, r.Err)
		}
	}
	return errs
}
