package smoothing

import (
	"context"
	"slices"

	"github.com/Faultbox/depthmesh/internal/parallel"
	"github.com/Faultbox/depthmesh/internal/sensor"
)

// neighbourhood holds the non-zero neighbours of one cell.
type neighbourhood struct {
	values   []uint16
	min, max uint16
	enclosed int // neighbours on the outer ring of the window
}

// collect gathers the non-zero cells of the closed square of radius r
// around (x0, y0), clipped to the grid, excluding the cell itself.
func (n *neighbourhood) collect(g *sensor.DepthGrid, x0, y0, r int) {
	n.values = n.values[:0]
	n.enclosed = 0
	n.min, n.max = 0xFFFF, 0

	ylo, yhi := max(0, y0-r), min(g.Height-1, y0+r)
	xlo, xhi := max(0, x0-r), min(g.Width-1, x0+r)
	for y := ylo; y <= yhi; y++ {
		row := g.Data[y*g.Width:]
		ring := y == y0-r || y == y0+r
		for x := xlo; x <= xhi; x++ {
			if x == x0 && y == y0 {
				continue
			}
			d := row[x]
			if d == 0 {
				continue
			}
			n.values = append(n.values, d)
			n.min = min(n.min, d)
			n.max = max(n.max, d)
			if ring || x == x0-r || x == x0+r {
				n.enclosed++
			}
		}
	}
}

// accept reports whether the neighbourhood is consistent enough to fill from.
func (n *neighbourhood) accept(opts Options) bool {
	count := len(n.values)
	return count > 0 &&
		int(n.max)-int(n.min) < opts.RangeThreshold &&
		count >= opts.MinNeighbors &&
		n.enclosed >= opts.MinEnclosed
}

// median returns the lower median. It reorders values.
func (n *neighbourhood) median() uint16 {
	slices.Sort(n.values)
	return n.values[(len(n.values)-1)/2]
}

// MedianFill runs one hole-fill/median pass of radius r from src into dst.
//
// With holesOnly set only zero cells are evaluated and everything else is
// copied. Otherwise every cell is evaluated. A cell whose neighbourhood is
// accepted becomes the neighbourhood median; a rejected cell keeps its
// input value, or becomes zero when opts.TrimRejected is set and holesOnly
// is not.
func MedianFill(ctx context.Context, dst, src *sensor.DepthGrid, r int, holesOnly bool, opts Options) error {
	if err := checkSizes(dst, src); err != nil {
		return err
	}
	trim := opts.TrimRejected && !holesOnly
	w := src.Width

	return parallel.Rows(ctx, src.Height, func(ctx context.Context, y0, y1 int) error {
		n := neighbourhood{values: make([]uint16, 0, (2*r+1)*(2*r+1))}
		for y := y0; y < y1; y++ {
			for x := 0; x < w; x++ {
				i := y*w + x
				in := src.Data[i]
				if holesOnly && in != 0 {
					dst.Data[i] = in
					continue
				}
				n.collect(src, x, y, r)
				switch {
				case n.accept(opts):
					dst.Data[i] = n.median()
				case trim:
					dst.Data[i] = 0
				default:
					dst.Data[i] = in
				}
			}
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		return nil
	})
}
