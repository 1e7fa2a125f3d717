package smoothing

import (
	"context"

	"github.com/Faultbox/depthmesh/internal/parallel"
	"github.com/Faultbox/depthmesh/internal/sensor"
)

const bandRadius = 2

// BandFill fills zero cells from a 5x5 window split into an inner band
// (the 8 adjacent cells) and an outer band (the 16 cells around it). When
// at least innerThreshold inner or outerThreshold outer neighbours are
// non-zero, the cell takes the most frequent neighbour depth; on ties the
// value seen first in row-major order wins. Non-zero cells are copied.
func BandFill(ctx context.Context, dst, src *sensor.DepthGrid, innerThreshold, outerThreshold int) error {
	if err := checkSizes(dst, src); err != nil {
		return err
	}
	w, h := src.Width, src.Height

	type bucket struct {
		depth uint16
		count int
	}

	return parallel.Rows(ctx, h, func(ctx context.Context, y0, y1 int) error {
		buckets := make([]bucket, 0, 24)
		for y := y0; y < y1; y++ {
			for x := 0; x < w; x++ {
				i := y*w + x
				if src.Data[i] != 0 {
					dst.Data[i] = src.Data[i]
					continue
				}

				buckets = buckets[:0]
				inner, outer := 0, 0
				for dy := -bandRadius; dy <= bandRadius; dy++ {
					yy := y + dy
					if yy < 0 || yy >= h {
						continue
					}
					for dx := -bandRadius; dx <= bandRadius; dx++ {
						xx := x + dx
						if (dx == 0 && dy == 0) || xx < 0 || xx >= w {
							continue
						}
						d := src.Data[yy*w+xx]
						if d == 0 {
							continue
						}

						found := false
						for b := range buckets {
							if buckets[b].depth == d {
								buckets[b].count++
								found = true
								break
							}
						}
						if !found {
							buckets = append(buckets, bucket{depth: d, count: 1})
						}

						if dx > -bandRadius && dx < bandRadius && dy > -bandRadius && dy < bandRadius {
							inner++
						} else {
							outer++
						}
					}
				}

				if inner < innerThreshold && outer < outerThreshold {
					dst.Data[i] = 0
					continue
				}
				var mode bucket
				for _, b := range buckets {
					if b.count > mode.count {
						mode = b
					}
				}
				dst.Data[i] = mode.depth
			}
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		return nil
	})
}
