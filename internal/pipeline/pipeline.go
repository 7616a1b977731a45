package pipeline

import (
	"context"
	"io"

	"go.uber.org/zap"

	"canvas-finder/internal/canvas"
	"canvas-finder/internal/domain"
	"canvas-finder/internal/export"
	"canvas-finder/internal/fetch"
)

// Pipeline turns configured courses into the selectable listing.
type Pipeline struct {
	Aggregator fetch.Aggregator
	Log        *zap.Logger
}

// Summary describes a finished run.
type Summary struct {
	Lines         int
	Courses       int
	FailedCourses int
	FailedModules int
}

// Collect fetches every course and flattens the result. Failures go to the
// log; they never become records. On cancellation no records are returned.
func (p Pipeline) Collect(ctx context.Context, courses []domain.Course) ([]export.FlatRecord, Summary, error) {
	res, err := p.Aggregator.Aggregate(ctx, courses)
	sum := Report(p.logger(), res)
	if err != nil {
		return nil, sum, err
	}

	records := export.Format(res)
	sum.Lines = len(records)
	return records, sum, nil
}

// Run writes the listing to w once every course has been fetched. Nothing is
// written when ctx is cancelled before that point.
func (p Pipeline) Run(ctx context.Context, courses []domain.Course, w io.Writer) (Summary, error) {
	records, sum, err := p.Collect(ctx, courses)
	if err != nil {
		return sum, err
	}

	n, err := export.Emit(export.Lines(records), w)
	sum.Lines = n
	p.logger().Debug("listing written", zap.Int("lines", n), zap.Int("courses", sum.Courses))
	return sum, err
}

// Report logs one entry per failed course and counts module failures, which
// the fetcher has already logged.
func Report(log *zap.Logger, res domain.AggregateResult) Summary {
	sum := Summary{Courses: len(res.Successes), FailedCourses: len(res.Failures)}
	for _, f := range res.Failures {
		log.Error("course unavailable",
			zap.Int("course_id", f.Course.ID),
			zap.String("course", f.Course.Name),
			zap.Stringer("kind", canvas.KindOf(f.Err)),
			zap.Error(f.Err),
		)
	}
	for _, c := range res.Successes {
		for _, m := range c.Modules {
			if m.Err != nil {
				sum.FailedModules++
			}
		}
	}
	return sum
}

func (p Pipeline) logger() *zap.Logger {
	if p.Log == nil {
		return zap.NewNop()
	}
	return p.Log
}
