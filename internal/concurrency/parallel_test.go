package concurrency

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func TestDefaultOptions(t *testing.T) {
	if opts := DefaultOptions(); opts.MaxWorkers != 0 {
		t.Errorf("Expected MaxWorkers to be 0 (unbounded), got %d", opts.MaxWorkers)
	}
}

func TestProcessParallelEmpty(t *testing.T) {
	results := ProcessParallel(context.Background(), []int{}, DefaultOptions(), func(ctx context.Context, index int, item int) (string, error) {
		return "", nil
	})
	if len(results) != 0 {
		t.Errorf("Expected empty results for empty input, got %d items", len(results))
	}
}

func TestProcessParallelPreservesOrder(t *testing.T) {
	input := []int{1, 2, 3, 4, 5}

	// later items finish first
	results := ProcessParallel(context.Background(), input, DefaultOptions(), func(ctx context.Context, index int, item int) (string, error) {
		time.Sleep(time.Duration(len(input)-index) * 5 * time.Millisecond)
		return string(rune('a' + item - 1)), nil
	})

	expected := []string{"a", "b", "c", "d", "e"}
	for i, res := range results {
		if res.Index != i {
			t.Errorf("Expected index %d, got %d", i, res.Index)
		}
		if res.Err != nil {
			t.Errorf("Expected no error at %d, got %v", i, res.Err)
		}
		if res.Value != expected[i] {
			t.Errorf("Expected result at index %d to be %s, got %s", i, expected[i], res.Value)
		}
	}
}

func TestProcessParallelErrorsStayWithTheirItem(t *testing.T) {
	input := []int{1, 2, 3, 4, 5}
	results := ProcessParallel(context.Background(), input, ParallelOptions{MaxWorkers: 2}, func(ctx context.Context, index int, item int) (int, error) {
		if item%2 == 0 {
			return 0, errors.New("even number error")
		}
		return item * 10, nil
	})

	for i, res := range results {
		even := input[i]%2 == 0
		if even && res.Err == nil {
			t.Errorf("Expected error at index %d", i)
		}
		if !even && (res.Err != nil || res.Value != input[i]*10) {
			t.Errorf("Expected value %d at index %d, got %d (%v)", input[i]*10, i, res.Value, res.Err)
		}
	}
	if errs := Errors(results); len(errs) != 2 {
		t.Errorf("Expected 2 errors, got %d", len(errs))
	}
}

func TestProcessParallelRespectsMaxWorkers(t *testing.T) {
	var inFlight, peak int32
	input := make([]int, 12)

	ProcessParallel(context.Background(), input, ParallelOptions{MaxWorkers: 3}, func(ctx context.Context, index int, item int) (struct{}, error) {
		n := atomic.AddInt32(&inFlight, 1)
		for {
			p := atomic.LoadInt32(&peak)
			if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		atomic.AddInt32(&inFlight, -1)
		return struct{}{}, nil
	})

	if peak > 3 {
		t.Errorf("Expected at most 3 concurrent items, saw %d", peak)
	}
}

func TestProcessParallelCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var calls int32
	input := []int{1, 2, 3}
	results := ProcessParallel(ctx, input, DefaultOptions(), func(ctx context.Context, index int, item int) (string, error) {
		atomic.AddInt32(&calls, 1)
		return "x", nil
	})

	if len(results) != len(input) {
		t.Fatalf("Expected %d results, got %d", len(input), len(results))
	}
	if calls != 0 {
		t.Errorf("Expected no calls after cancellation, got %d", calls)
	}
	for i, res := range results {
		if !errors.Is(res.Err, context.Canceled) {
			t.Errorf("Expected context.Canceled at index %d, got %v", i, res.Err)
		}
	}
}
