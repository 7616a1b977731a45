package fetch

import (
	"context"
	"errors"
	"testing"
	"time"

	"canvas-finder/internal/canvas"
	"canvas-finder/internal/domain"
)

func TestAggregatePreservesConfiguredOrder(t *testing.T) {
	src := newFakeSource()
	courses := []domain.Course{{ID: 1, Name: "One"}, {ID: 2, Name: "Two"}, {ID: 3, Name: "Three"}}
	// first configured course completes last
	src.delay[1] = 30 * time.Millisecond
	src.delay[2] = 10 * time.Millisecond

	agg := Aggregator{Fetcher: NewFetcher(src, nil, nil)}
	res, err := agg.Aggregate(context.Background(), courses)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if len(res.Successes) != 3 {
		t.Fatalf("Expected 3 successes, got %d", len(res.Successes))
	}
	for i, c := range courses {
		if res.Successes[i].Course != c {
			t.Errorf("position %d: expected %+v, got %+v", i, c, res.Successes[i].Course)
		}
	}
}

func TestAggregatePartialFailureIsolation(t *testing.T) {
	src := newFakeSource()
	src.modules[1] = []domain.Module{{ID: 1, Name: "m1", Position: 1}}
	src.modules[3] = []domain.Module{{ID: 3, Name: "m3", Position: 1}}
	src.moduleErrs[2] = &canvas.Error{Kind: canvas.KindNetwork, Err: errors.New("connection refused")}
	src.moduleErrs[4] = &canvas.Error{Kind: canvas.KindAuth, StatusCode: 403}

	courses := []domain.Course{{ID: 1, Name: "C1"}, {ID: 2, Name: "C2"}, {ID: 3, Name: "C3"}, {ID: 4, Name: "C4"}}
	res, err := Aggregator{Fetcher: NewFetcher(src, nil, nil), MaxInFlight: 2}.Aggregate(context.Background(), courses)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if len(res.Successes) != 2 || res.Successes[0].Course.ID != 1 || res.Successes[1].Course.ID != 3 {
		t.Errorf("Expected successes [1 3], got %+v", res.Successes)
	}
	if len(res.Failures) != 2 || res.Failures[0].Course.ID != 2 || res.Failures[1].Course.ID != 4 {
		t.Fatalf("Expected failures [2 4], got %+v", res.Failures)
	}
	if canvas.KindOf(res.Failures[1].Err) != canvas.KindAuth {
		t.Errorf("Expected auth failure for C4, got %v", res.Failures[1].Err)
	}
}

func TestAggregateCanceled(t *testing.T) {
	src := newFakeSource()
	src.delay[1] = time.Second
	src.moduleErrs[2] = &canvas.Error{Kind: canvas.KindNotFound, StatusCode: 404}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	courses := []domain.Course{{ID: 1, Name: "Slow"}, {ID: 2, Name: "Missing"}}
	res, err := Aggregator{Fetcher: NewFetcher(src, nil, nil)}.Aggregate(ctx, courses)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Expected context.DeadlineExceeded, got %v", err)
	}
	if len(res.Successes) != 0 {
		t.Errorf("Expected no successes, got %d", len(res.Successes))
	}
	// real failures observed before cancellation are still reported
	if len(res.Failures) != 1 || res.Failures[0].Course.ID != 2 {
		t.Errorf("Expected only the 404 failure, got %+v", res.Failures)
	}
}

func TestAggregateIsDeterministic(t *testing.T) {
	src := newFakeSource()
	for id := 1; id <= 5; id++ {
		src.modules[id] = []domain.Module{{ID: id * 10, Name: "m", Position: 1}}
		src.items[[2]int{id, id * 10}] = []domain.ModuleItem{{ID: id, Title: "t"}}
		src.delay[id] = time.Duration(6-id) * time.Millisecond
	}
	courses := []domain.Course{{ID: 1}, {ID: 2}, {ID: 3}, {ID: 4}, {ID: 5}}

	agg := Aggregator{Fetcher: NewFetcher(src, nil, nil)}
	first, _ := agg.Aggregate(context.Background(), courses)
	second, _ := agg.Aggregate(context.Background(), courses)

	if len(first.Successes) != len(second.Successes) {
		t.Fatalf("Expected equal result sizes")
	}
	for i := range first.Successes {
		if first.Successes[i].Course != second.Successes[i].Course {
			t.Errorf("Run results differ at %d", i)
		}
	}
}
