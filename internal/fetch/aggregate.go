package fetch

import (
	"context"
	"errors"

	"canvas-finder/internal/concurrency"
	"canvas-finder/internal/domain"
)

// Aggregator fetches many courses concurrently.
type Aggregator struct {
	Fetcher *Fetcher
	// MaxInFlight bounds concurrent course fetches; <=0 means unbounded.
	MaxInFlight int
}

// Aggregate runs one fetch per course and waits for all of them. Successes
// and failures keep configured course order. A failed course never affects
// the others. The error is non-nil only when ctx is done; the result then
// still carries the failures observed before cancellation.
func (a Aggregator) Aggregate(ctx context.Context, courses []domain.Course) (domain.AggregateResult, error) {
	results := concurrency.ProcessParallel(ctx, courses, concurrency.ParallelOptions{MaxWorkers: a.MaxInFlight},
		func(ctx context.Context, _ int, c domain.Course) (domain.CourseResult, error) {
			return a.Fetcher.FetchCourse(ctx, c)
		})

	var out domain.AggregateResult
	for i, r := range results {
		if r.Err == nil {
			out.Successes = append(out.Successes, r.Value)
			continue
		}
		if ctx.Err() != nil && isContextErr(r.Err) {
			continue
		}
		a.Fetcher.metrics.IncFailure("course")
		out.Failures = append(out.Failures, domain.CourseFailure{Course: courses[i], Err: r.Err})
	}
	a.Fetcher.metrics.SetCoursesFetched(len(out.Successes))

	if err := ctx.Err(); err != nil {
		return out, err
	}
	return out, nil
}

func isContextErr(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
