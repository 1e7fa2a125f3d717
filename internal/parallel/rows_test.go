package parallel

import (
	"context"
	"errors"
	"sync"
	"testing"
)

func TestRowsCoversEveryRowOnce(t *testing.T) {
	for _, factor := range []int{1, 3, 8, 64} {
		Factor = factor
		for _, height := range []int{1, 2, 7, 100} {
			var mu sync.Mutex
			seen := make([]int, height)
			err := Rows(context.Background(), height, func(_ context.Context, y0, y1 int) error {
				mu.Lock()
				defer mu.Unlock()
				for y := y0; y < y1; y++ {
					seen[y]++
				}
				return nil
			})
			if err != nil {
				t.Fatalf("factor %d height %d: %v", factor, height, err)
			}
			for y, n := range seen {
				if n != 1 {
					t.Errorf("factor %d height %d: row %d visited %d times", factor, height, y, n)
				}
			}
		}
	}
}

func TestRowsReturnsError(t *testing.T) {
	Factor = 4
	boom := errors.New("boom")
	err := Rows(context.Background(), 10, func(_ context.Context, y0, _ int) error {
		if y0 == 0 {
			return boom
		}
		return nil
	})
	if !errors.Is(err, boom) {
		t.Errorf("err = %v, want boom", err)
	}
}

func TestRowsCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	for _, factor := range []int{1, 4} {
		Factor = factor
		err := Rows(ctx, 10, func(context.Context, int, int) error { return nil })
		if !errors.Is(err, context.Canceled) {
			t.Errorf("factor %d: err = %v, want context.Canceled", factor, err)
		}
	}
}

func TestRowsEmpty(t *testing.T) {
	called := false
	if err := Rows(context.Background(), 0, func(context.Context, int, int) error {
		called = true
		return nil
	}); err != nil {
		t.Fatal(err)
	}
	if called {
		t.Error("fn called for empty grid")
	}
}
