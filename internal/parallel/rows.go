// Package parallel splits per-row image work across goroutines.
package parallel

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// Factor caps the number of bands a grid is split into. Tests may lower it.
var Factor = runtime.GOMAXPROCS(0)

// Rows calls fn for contiguous row bands [y0, y1) covering [0, height).
// Bands run concurrently and must only write rows inside their own band.
// The first error cancels the remaining bands.
func Rows(ctx context.Context, height int, fn func(ctx context.Context, y0, y1 int) error) error {
	if height <= 0 {
		return nil
	}
	bands := max(1, min(Factor, height))
	if bands == 1 {
		if err := ctx.Err(); err != nil {
			return err
		}
		return fn(ctx, 0, height)
	}

	g, ctx := errgroup.WithContext(ctx)
	size := height / bands
	extra := height % bands
	y0 := 0
	for i := 0; i < bands; i++ {
		y1 := y0 + size
		if i < extra {
			y1++
		}
		from, to := y0, y1
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			return fn(ctx, from, to)
		})
		y0 = y1
	}
	return g.Wait()
}
