package fetch

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"canvas-finder/internal/canvas"
	"canvas-finder/internal/domain"
)

// fakeSource serves canned modules/items keyed by course and module id.
type fakeSource struct {
	mu         sync.Mutex
	modules    map[int][]domain.Module
	items      map[[2]int][]domain.ModuleItem
	moduleErrs map[int]error
	itemErrs   map[[2]int]error
	delay      map[int]time.Duration
	calls      []string
}

func newFakeSource() *fakeSource {
	return &fakeSource{
		modules:    map[int][]domain.Module{},
		items:      map[[2]int][]domain.ModuleItem{},
		moduleErrs: map[int]error{},
		itemErrs:   map[[2]int]error{},
		delay:      map[int]time.Duration{},
	}
}

func (f *fakeSource) ListModules(ctx context.Context, courseID int) ([]domain.Module, error) {
	f.mu.Lock()
	d := f.delay[courseID]
	f.calls = append(f.calls, "modules")
	f.mu.Unlock()

	if d > 0 {
		select {
		case <-time.After(d):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.moduleErrs[courseID]; err != nil {
		return nil, err
	}
	return append([]domain.Module(nil), f.modules[courseID]...), nil
}

func (f *fakeSource) ListModuleItems(ctx context.Context, courseID, moduleID int) ([]domain.ModuleItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "items")
	key := [2]int{courseID, moduleID}
	if err := f.itemErrs[key]; err != nil {
		return nil, err
	}
	return f.items[key], nil
}

func observedLogger() (*zap.Logger, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.WarnLevel)
	return zap.New(core), logs
}

func TestFetchCourseSortsModules(t *testing.T) {
	src := newFakeSource()
	src.modules[1] = []domain.Module{
		{ID: 30, Name: "C", Position: 2},
		{ID: 20, Name: "B", Position: 1},
		{ID: 10, Name: "A", Position: 1},
		{ID: 40, Name: "D", Position: 0},
	}
	src.items[[2]int{1, 10}] = []domain.ModuleItem{
		{ID: 3, Title: "third"}, {ID: 1, Title: "first"}, {ID: 2, Title: "second"},
	}

	res, err := NewFetcher(src, nil, nil).FetchCourse(context.Background(), domain.Course{ID: 1, Name: "Algebra"})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	wantOrder := []int{40, 10, 20, 30}
	if len(res.Modules) != len(wantOrder) {
		t.Fatalf("Expected %d modules, got %d", len(wantOrder), len(res.Modules))
	}
	for i, id := range wantOrder {
		if res.Modules[i].Module.ID != id {
			t.Errorf("position %d: expected module %d, got %d", i, id, res.Modules[i].Module.ID)
		}
	}

	// server order is authored order and must not be re-sorted
	items := res.Modules[1].Items
	if len(items) != 3 || items[0].Title != "third" || items[1].Title != "first" || items[2].Title != "second" {
		t.Errorf("Expected server item order, got %+v", items)
	}
	if res.Course.Name != "Algebra" {
		t.Errorf("Expected course to be carried through, got %+v", res.Course)
	}
}

func TestFetchCourseModuleFailureDegrades(t *testing.T) {
	src := newFakeSource()
	src.modules[1] = []domain.Module{{ID: 1, Name: "Ok", Position: 1}, {ID: 2, Name: "Broken", Position: 2}}
	src.items[[2]int{1, 1}] = []domain.ModuleItem{{ID: 9, Title: "Quiz"}}
	src.itemErrs[[2]int{1, 2}] = &canvas.Error{Kind: canvas.KindNotFound, StatusCode: 404}

	log, logs := observedLogger()
	res, err := NewFetcher(src, log, nil).FetchCourse(context.Background(), domain.Course{ID: 1, Name: "Bio"})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if len(res.Modules) != 2 {
		t.Fatalf("Expected 2 modules, got %d", len(res.Modules))
	}
	if res.Modules[1].Err == nil || len(res.Modules[1].Items) != 0 {
		t.Errorf("Expected broken module to carry its error and no items, got %+v", res.Modules[1])
	}
	if len(res.Modules[0].Items) != 1 {
		t.Errorf("Expected healthy module to keep its items")
	}

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("Expected 1 warning, got %d", len(entries))
	}
	ctx := entries[0].ContextMap()
	if entries[0].Level != zapcore.WarnLevel || ctx["module"] != "Broken" || ctx["course"] != "Bio" {
		t.Errorf("Unexpected warning entry: %+v %v", entries[0].Entry, ctx)
	}
}

func TestFetchCourseModuleListFailure(t *testing.T) {
	src := newFakeSource()
	src.moduleErrs[7] = &canvas.Error{Kind: canvas.KindAuth, StatusCode: 401}

	_, err := NewFetcher(src, nil, nil).FetchCourse(context.Background(), domain.Course{ID: 7, Name: "Chem"})
	var cerr *CourseUnavailableError
	if !errors.As(err, &cerr) {
		t.Fatalf("Expected *CourseUnavailableError, got %v", err)
	}
	if cerr.CourseID != 7 {
		t.Errorf("Expected course id 7, got %d", cerr.CourseID)
	}
	if canvas.KindOf(err) != canvas.KindAuth {
		t.Errorf("Expected the api error to be unwrappable, got %v", err)
	}
}

func TestFetchCourseZeroModules(t *testing.T) {
	src := newFakeSource()
	log, logs := observedLogger()

	res, err := NewFetcher(src, log, nil).FetchCourse(context.Background(), domain.Course{ID: 3, Name: "Empty"})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if len(res.Modules) != 0 {
		t.Errorf("Expected no modules, got %d", len(res.Modules))
	}
	if logs.Len() != 0 {
		t.Errorf("Expected no diagnostics, got %d", logs.Len())
	}
}

func TestFetchCourseModuleListBeforeItems(t *testing.T) {
	src := newFakeSource()
	src.modules[1] = []domain.Module{{ID: 1, Position: 1}, {ID: 2, Position: 2}}

	if _, err := NewFetcher(src, nil, nil).FetchCourse(context.Background(), domain.Course{ID: 1}); err != nil {
		t.Fatal(err)
	}
	want := []string{"modules", "items", "items"}
	if len(src.calls) != len(want) {
		t.Fatalf("Expected calls %v, got %v", want, src.calls)
	}
	for i := range want {
		if src.calls[i] != want[i] {
			t.Errorf("Expected calls %v, got %v", want, src.calls)
			break
		}
	}
}
