package pipeline

import (
	"fmt"
	"slices"
	"time"

	"github.com/Faultbox/depthmesh/internal/config"
	"github.com/Faultbox/depthmesh/internal/mesh"
	"github.com/Faultbox/depthmesh/internal/projection"
	"github.com/Faultbox/depthmesh/internal/smoothing"
	"github.com/Faultbox/depthmesh/internal/texture"
)

// Options are the per-cycle reconstruction settings. They may be changed
// while the session runs; each cycle reads one consistent copy.
type Options struct {
	TickRate int // background cycles per second

	Smoothing        bool
	SmoothingOptions smoothing.Options

	ViewportWidth  float64
	ViewportHeight float64
	Stride         int
	Projection     projection.Options
	MaxEdgeLength  float32

	// BodyTracking requests skeletons from sources that support them.
	BodyTracking bool
	// BodyMasking restricts the mesh to the bodies selected in
	// Projection.BodyMask. It must be set before Start to open the
	// body-index stream.
	BodyMasking bool

	PixelFormat texture.PixelFormat
	Alpha       uint8
}

// DefaultOptions returns the settings used when nothing is configured.
func DefaultOptions() Options {
	return Options{
		TickRate:         60,
		SmoothingOptions: smoothing.DefaultOptions(),
		ViewportWidth:    1,
		ViewportHeight:   1,
		Stride:           2,
		Projection:       projection.DefaultOptions(),
		MaxEdgeLength:    mesh.DefaultMaxEdgeLength,
		BodyTracking:     true,
		PixelFormat:      texture.FormatBGRA,
		Alpha:            255,
	}
}

// OptionsFromConfig converts loaded settings.
func OptionsFromConfig(cfg *config.Config) (Options, error) {
	opts := DefaultOptions()

	r := cfg.Reconstruction
	opts.TickRate = r.TickRate
	opts.ViewportWidth = r.ViewportWidth
	opts.ViewportHeight = r.ViewportHeight
	opts.Stride = r.Stride
	opts.Projection.MinDistance = r.MinDistance
	opts.Projection.MaxDistance = r.MaxDistance
	opts.MaxEdgeLength = r.MaxEdgeLength

	format, err := texture.ParsePixelFormat(r.PixelFormat)
	if err != nil {
		return Options{}, err
	}
	opts.PixelFormat = format

	s := cfg.Smoothing
	method, err := smoothing.ParseMethod(s.Method)
	if err != nil {
		return Options{}, err
	}
	opts.Smoothing = s.Enabled
	opts.SmoothingOptions = smoothing.Options{
		Method:             method,
		KernelSize:         s.KernelSize,
		HoleFillRadius:     s.HoleFillRadius,
		SmoothingRadius:    s.SmoothingRadius,
		RangeThreshold:     s.RangeThreshold,
		MinNeighbors:       s.MinNeighbors,
		MinEnclosed:        s.MinEnclosed,
		TrimRejected:       s.TrimRejected,
		InnerBandThreshold: s.InnerBandThreshold,
		OuterBandThreshold: s.OuterBandThreshold,
	}

	opts.BodyTracking = cfg.Body.Tracking
	opts.BodyMasking = cfg.Body.MaskEnabled
	opts.Projection.BodyMask = slices.Clone(cfg.Body.Mask)

	return opts, nil
}

func (o Options) tickInterval() time.Duration {
	if o.TickRate <= 0 {
		return time.Second / 60
	}
	return time.Second / time.Duration(o.TickRate)
}

func (o Options) clone() Options {
	o.Projection.BodyMask = slices.Clone(o.Projection.BodyMask)
	return o
}

func (o Options) String() string {
	method := "off"
	if o.Smoothing {
		method = string(o.SmoothingOptions.Method)
	}
	return fmt.Sprintf("tick=%dHz stride=%d viewport=%.2fx%.2f smoothing=%s", o.TickRate, o.Stride, o.ViewportWidth, o.ViewportHeight, method)
}
