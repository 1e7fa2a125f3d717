// Package projection maps sampled depth cells to coloured points in world
// space.
package projection

import (
	"context"
	"errors"
	"image/color"

	"github.com/Faultbox/depthmesh/internal/parallel"
	"github.com/Faultbox/depthmesh/internal/sensor"
	"github.com/Faultbox/depthmesh/pkg/math"
)

// Point is one projected lattice cell. Position is in centimetres with X
// forward, Y right and Z up. Invalid points carry no data.
type Point struct {
	Position math.Vec3
	Color    color.RGBA
	Valid    bool
}

// Grid holds one Point per lattice cell, row-major.
type Grid struct {
	Cols   int
	Rows   int
	Points []Point
}

// Resize sets the grid dimensions, reusing storage when it is large enough.
func (g *Grid) Resize(cols, rows int) {
	n := cols * rows
	if cap(g.Points) < n {
		g.Points = make([]Point, n)
	}
	g.Points = g.Points[:n]
	g.Cols, g.Rows = cols, rows
}

// At returns lattice cell (i, j).
func (g *Grid) At(i, j int) Point {
	return g.Points[j*g.Cols+i]
}

// Options bounds which depth cells become points.
type Options struct {
	MinDistance float64 // metres, exclusive
	MaxDistance float64 // metres, inclusive
	// BodyMask selects body slots to keep when Input.BodyIndex is set.
	// Cells whose index is NoBody, out of range or masked off are dropped.
	BodyMask []bool
}

// DefaultOptions returns the distance window of a typical indoor sensor.
func DefaultOptions() Options {
	return Options{MinDistance: 0, MaxDistance: 2}
}

// Input bundles the grids of one frame. BodyIndex is optional.
type Input struct {
	Depth     *sensor.DepthGrid
	Color     *sensor.ColorGrid
	BodyIndex *sensor.BodyIndexGrid
}

// Projector turns depth cells into points through a CoordinateMapper, which
// must be safe for concurrent use.
type Projector struct {
	mapper sensor.CoordinateMapper
}

// New returns a projector using mapper.
func New(mapper sensor.CoordinateMapper) *Projector {
	return &Projector{mapper: mapper}
}

// ProjectCell projects depth cell (x, y).
func (p *Projector) ProjectCell(in Input, x, y int, opts Options) Point {
	if in.BodyIndex != nil {
		idx := in.BodyIndex.At(x, y)
		if idx == sensor.NoBody || int(idx) >= len(opts.BodyMask) || !opts.BodyMask[idx] {
			return Point{}
		}
	}

	d := in.Depth.At(x, y)
	cx, cy := p.mapper.DepthToColor(x, y, d)
	px, py := sensor.RoundPixel(cx), sensor.RoundPixel(cy)

	cam := p.mapper.DepthToCamera(x, y, d)
	dist := cam.Norm()
	if dist <= opts.MinDistance || dist > opts.MaxDistance {
		return Point{}
	}
	if px < 0 || px >= in.Color.Width || py < 0 || py >= in.Color.Height {
		return Point{}
	}

	c := in.Color.At(px, py)
	return Point{
		Position: sensor.ToWorld(cam),
		Color:    color.RGBA{R: c.R, G: c.G, B: c.B, A: 255},
		Valid:    true,
	}
}

// Project fills dst with one point per lattice cell.
func (p *Projector) Project(ctx context.Context, dst *Grid, in Input, lat Lattice, opts Options) error {
	if in.Depth == nil || in.Color == nil {
		return errors.New("projection needs depth and color grids")
	}
	if in.BodyIndex != nil && in.BodyIndex.Size() != in.Depth.Size() {
		return errors.New("body index grid does not match depth grid")
	}
	dst.Resize(lat.Cols, lat.Rows)

	return parallel.Rows(ctx, lat.Rows, func(ctx context.Context, j0, j1 int) error {
		for j := j0; j < j1; j++ {
			row := dst.Points[j*lat.Cols : (j+1)*lat.Cols]
			for i := range row {
				x, y := lat.Cell(i, j)
				row[i] = p.ProjectCell(in, x, y, opts)
			}
		}
		return ctx.Err()
	})
}
