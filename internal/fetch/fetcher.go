package fetch

import (
	"cmp"
	"context"
	"fmt"
	"slices"

	"go.uber.org/zap"

	"canvas-finder/internal/canvas"
	"canvas-finder/internal/domain"
	"canvas-finder/internal/metrics"
)

// Source is the part of the Canvas API the fetcher needs.
// *canvas.Client implements it.
type Source interface {
	ListModules(ctx context.Context, courseID int) ([]domain.Module, error)
	ListModuleItems(ctx context.Context, courseID, moduleID int) ([]domain.ModuleItem, error)
}

var _ Source = (*canvas.Client)(nil)

// CourseUnavailableError is returned when a course's module list cannot be read.
type CourseUnavailableError struct {
	CourseID int
	Err      error
}

func (e *CourseUnavailableError) Error() string {
	return fmt.Sprintf("course %d unavailable: %v", e.CourseID, e.Err)
}

func (e *CourseUnavailableError) Unwrap() error { return e.Err }

type Fetcher struct {
	src     Source
	log     *zap.Logger
	metrics *metrics.Metrics
}

func NewFetcher(src Source, log *zap.Logger, m *metrics.Metrics) *Fetcher {
	if log == nil {
		log = zap.NewNop()
	}
	return &Fetcher{src: src, log: log, metrics: m}
}

// FetchCourse lists a course's modules (by position, then id) and the items
// of each module in server order. A module whose items cannot be fetched is
// kept with no items and its error; only a failed module list fails the course.
func (f *Fetcher) FetchCourse(ctx context.Context, course domain.Course) (domain.CourseResult, error) {
	log := f.log.With(zap.Int("course_id", course.ID), zap.String("course", course.Name))

	modules, err := f.src.ListModules(ctx, course.ID)
	if err != nil {
		return domain.CourseResult{}, &CourseUnavailableError{CourseID: course.ID, Err: err}
	}
	slices.SortStableFunc(modules, func(a, b domain.Module) int {
		if c := cmp.Compare(a.Position, b.Position); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})

	out := domain.CourseResult{
		Course:  course,
		Modules: make([]domain.ModuleResult, 0, len(modules)),
	}
	for _, m := range modules {
		items, err := f.src.ListModuleItems(ctx, course.ID, m.ID)
		if err != nil {
			if ctx.Err() != nil {
				return domain.CourseResult{}, &CourseUnavailableError{CourseID: course.ID, Err: ctx.Err()}
			}
			log.Warn("module items unavailable",
				zap.Int("module_id", m.ID),
				zap.String("module", m.Name),
				zap.Stringer("kind", canvas.KindOf(err)),
				zap.Error(err),
			)
			f.metrics.IncFailure("module")
			out.Modules = append(out.Modules, domain.ModuleResult{Module: m, Err: err})
			continue
		}
		out.Modules = append(out.Modules, domain.ModuleResult{Module: m, Items: items})
	}

	log.Debug("course fetched", zap.Int("modules", len(out.Modules)))
	return out, nil
}
