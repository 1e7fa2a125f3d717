// Package smoothing denoises depth grids and fills small holes before they
// are projected into a mesh.
//
// Three filters are available: an edge-preserving bilateral filter, a
// two-pass hole fill with median smoothing, and a band/mode hole fill.
// Every filter reads a frozen input grid and writes a separate output grid,
// so rows can be processed in parallel.
package smoothing

import (
	"context"
	"fmt"

	"github.com/Faultbox/depthmesh/internal/sensor"
)

// Method selects the smoothing filter.
type Method string

const (
	MethodBilateral Method = "bilateral"
	MethodHoleFill  Method = "holefill"
	MethodBandMode  Method = "bandmode"
)

// ParseMethod validates a method name.
func ParseMethod(s string) (Method, error) {
	switch m := Method(s); m {
	case MethodBilateral, MethodHoleFill, MethodBandMode:
		return m, nil
	}
	return "", fmt.Errorf("unknown smoothing method %q", s)
}

// Options configures the filters. Distances are in cells, depths in millimetres.
type Options struct {
	Method Method

	// Bilateral
	KernelSize int

	// Hole fill + median
	HoleFillRadius  int
	SmoothingRadius int // <= 0 skips the median pass
	RangeThreshold  int // neighbours must span less than this
	MinNeighbors    int
	MinEnclosed     int // neighbours required on the outer ring
	TrimRejected    bool

	// Band mode
	InnerBandThreshold int
	OuterBandThreshold int
}

// DefaultOptions returns the filter defaults.
func DefaultOptions() Options {
	return Options{
		Method:             MethodBilateral,
		KernelSize:         4,
		HoleFillRadius:     10,
		SmoothingRadius:    2,
		RangeThreshold:     10,
		MinNeighbors:       2,
		MinEnclosed:        2,
		InnerBandThreshold: 2,
		OuterBandThreshold: 5,
	}
}

// Smoother owns the ping-pong output buffers for one depth stream.
type Smoother struct {
	width  int
	height int
	grids  [2]*sensor.DepthGrid
}

// New allocates a smoother for grids of the given size.
func New(width, height int) *Smoother {
	return &Smoother{
		width:  width,
		height: height,
		grids:  [2]*sensor.DepthGrid{sensor.NewDepthGrid(width, height), sensor.NewDepthGrid(width, height)},
	}
}

// Smooth filters in with the selected method. The returned grid belongs to
// the smoother and is overwritten by the next call; in is never modified.
func (s *Smoother) Smooth(ctx context.Context, in *sensor.DepthGrid, opts Options) (*sensor.DepthGrid, error) {
	if in.Width != s.width || in.Height != s.height {
		return nil, fmt.Errorf("smoother sized %dx%d, got %dx%d", s.width, s.height, in.Width, in.Height)
	}

	switch opts.Method {
	case MethodBilateral, "":
		if err := Bilateral(ctx, s.grids[0], in, opts.KernelSize); err != nil {
			return nil, err
		}
		return s.grids[0], nil

	case MethodHoleFill:
		if err := MedianFill(ctx, s.grids[0], in, opts.HoleFillRadius, true, opts); err != nil {
			return nil, err
		}
		if opts.SmoothingRadius <= 0 {
			return s.grids[0], nil
		}
		if err := MedianFill(ctx, s.grids[1], s.grids[0], opts.SmoothingRadius, false, opts); err != nil {
			return nil, err
		}
		return s.grids[1], nil

	case MethodBandMode:
		if err := BandFill(ctx, s.grids[0], in, opts.InnerBandThreshold, opts.OuterBandThreshold); err != nil {
			return nil, err
		}
		return s.grids[0], nil
	}
	return nil, fmt.Errorf("unknown smoothing method %q", opts.Method)
}

func checkSizes(dst, src *sensor.DepthGrid) error {
	if dst == src {
		return fmt.Errorf("smoothing in place is not supported")
	}
	if dst.Width != src.Width || dst.Height != src.Height {
		return fmt.Errorf("output %s does not match input %s", dst.Size(), src.Size())
	}
	return nil
}
