package smoothing

import (
	"context"
	"math"

	"github.com/Faultbox/depthmesh/internal/parallel"
	"github.com/Faultbox/depthmesh/internal/sensor"
)

// Bilateral writes an edge-preserving blur of src into dst.
//
// Each cell averages a (2h+1)² window, h = round(kernelSize/2), with
// neighbour coordinates clamped to the grid. A neighbour at pixel distance s
// with depth difference v weighs 1/(exp(s²/2)·exp(v²/2)). The result is
// floored to whole millimetres.
func Bilateral(ctx context.Context, dst, src *sensor.DepthGrid, kernelSize int) error {
	if err := checkSizes(dst, src); err != nil {
		return err
	}
	half := int(math.Round(float64(kernelSize) / 2))
	if half <= 0 {
		copy(dst.Data, src.Data)
		return nil
	}

	side := 2*half + 1
	spatial := make([]float64, side*side)
	for dy := -half; dy <= half; dy++ {
		for dx := -half; dx <= half; dx++ {
			spatial[(dy+half)*side+dx+half] = math.Exp(-float64(dx*dx+dy*dy) / 2)
		}
	}

	w, h := src.Width, src.Height
	return parallel.Rows(ctx, h, func(ctx context.Context, y0, y1 int) error {
		for y := y0; y < y1; y++ {
			for x := 0; x < w; x++ {
				centre := float64(src.Data[y*w+x])

				// Accumulate differences from the centre so a flat
				// neighbourhood reproduces its depth exactly.
				var sum, weights float64
				for dy := -half; dy <= half; dy++ {
					yy := clamp(y+dy, 0, h-1)
					row := src.Data[yy*w:]
					for dx := -half; dx <= half; dx++ {
						v := float64(row[clamp(x+dx, 0, w-1)]) - centre
						wt := spatial[(dy+half)*side+dx+half] * math.Exp(-v*v/2)
						sum += wt * v
						weights += wt
					}
				}
				dst.Data[y*w+x] = uint16(math.Floor(centre + sum/weights))
			}
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		return nil
	})
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
