// Package config handles loading and saving of reconstruction settings.
package config

import (
	"fmt"

	"go.uber.org/multierr"

	"github.com/Faultbox/depthmesh/internal/body"
)

// Source names.
const (
	SourceSynthetic = "synthetic"
	SourcePlayback  = "playback"
)

// Config holds all settings.
type Config struct {
	Sensor         SensorConfig         `yaml:"sensor"`
	Reconstruction ReconstructionConfig `yaml:"reconstruction"`
	Smoothing      SmoothingConfig      `yaml:"smoothing"`
	Body           BodyConfig           `yaml:"body"`
	Graphics       GraphicsConfig       `yaml:"graphics"`
	Logging        LoggingConfig        `yaml:"logging"`
}

// SensorConfig selects the frame source.
type SensorConfig struct {
	Source      string          `yaml:"source"`       // synthetic or playback
	PlaybackDir string          `yaml:"playback_dir"` // recording directory for playback
	Synthetic   SyntheticConfig `yaml:"synthetic"`
}

// SyntheticConfig shapes the generated scene.
type SyntheticConfig struct {
	DepthWidth  int     `yaml:"depth_width"`
	DepthHeight int     `yaml:"depth_height"`
	ColorWidth  int     `yaml:"color_width"`
	ColorHeight int     `yaml:"color_height"`
	FPS         float64 `yaml:"fps"`
	NoiseMM     int     `yaml:"noise_mm"`
	HoleRate    float64 `yaml:"hole_rate"`
	Seed        uint64  `yaml:"seed"`
}

// ReconstructionConfig holds projection and triangulation settings.
type ReconstructionConfig struct {
	TickRate       int     `yaml:"tick_rate"`       // background cycles per second
	ViewportWidth  float64 `yaml:"viewport_width"`  // fraction of the depth frame, 0..1
	ViewportHeight float64 `yaml:"viewport_height"` // fraction of the depth frame, 0..1
	MinDistance    float64 `yaml:"min_distance"`    // metres
	MaxDistance    float64 `yaml:"max_distance"`    // metres
	Stride         int     `yaml:"stride"`          // depth cells between lattice points
	MaxEdgeLength  float32 `yaml:"max_edge_length"` // centimetres
	PixelFormat    string  `yaml:"pixel_format"`    // camera buffer layout: bgra or rgba
}

// SmoothingConfig holds depth filter settings.
type SmoothingConfig struct {
	Enabled            bool   `yaml:"enabled"`
	Method             string `yaml:"method"` // bilateral, holefill or bandmode
	KernelSize         int    `yaml:"kernel_size"`
	HoleFillRadius     int    `yaml:"hole_fill_radius"`
	SmoothingRadius    int    `yaml:"smoothing_radius"`
	RangeThreshold     int    `yaml:"range_threshold"`
	MinNeighbors       int    `yaml:"min_neighbors"`
	MinEnclosed        int    `yaml:"min_enclosed"`
	TrimRejected       bool   `yaml:"trim_rejected"`
	InnerBandThreshold int    `yaml:"inner_band_threshold"`
	OuterBandThreshold int    `yaml:"outer_band_threshold"`
}

// BodyConfig controls skeleton tracking and body-index masking.
type BodyConfig struct {
	Tracking    bool   `yaml:"tracking"`
	MaskEnabled bool   `yaml:"mask_enabled"`
	Mask        []bool `yaml:"mask"` // one entry per body slot
}

// GraphicsConfig holds viewer window settings.
type GraphicsConfig struct {
	Width         int    `yaml:"width"`
	Height        int    `yaml:"height"`
	Fullscreen    bool   `yaml:"fullscreen"`
	VSync         bool   `yaml:"vsync"`
	FPSLimit      int    `yaml:"fps_limit"`
	ShowCamera    bool   `yaml:"show_camera"`
	ScreenshotDir string `yaml:"screenshot_dir"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level"`
	LogFile string `yaml:"log_file"`
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Sensor: SensorConfig{
			Source: SourceSynthetic,
			Synthetic: SyntheticConfig{
				DepthWidth:  512,
				DepthHeight: 424,
				ColorWidth:  640,
				ColorHeight: 480,
				FPS:         30,
				NoiseMM:     4,
				HoleRate:    0.01,
				Seed:        1,
			},
		},
		Reconstruction: ReconstructionConfig{
			TickRate:       60,
			ViewportWidth:  1,
			ViewportHeight: 1,
			MinDistance:    0,
			MaxDistance:    2,
			Stride:         2,
			MaxEdgeLength:  8,
			PixelFormat:    "bgra",
		},
		Smoothing: SmoothingConfig{
			Enabled:            false,
			Method:             "bilateral",
			KernelSize:         4,
			HoleFillRadius:     10,
			SmoothingRadius:    2,
			RangeThreshold:     10,
			MinNeighbors:       2,
			MinEnclosed:        2,
			InnerBandThreshold: 2,
			OuterBandThreshold: 5,
		},
		Body: BodyConfig{
			Tracking:    true,
			MaskEnabled: false,
			Mask:        make([]bool, body.Count),
		},
		Graphics: GraphicsConfig{
			Width:      1280,
			Height:     720,
			Fullscreen: false,
			VSync:      true,
			FPSLimit:   0,
			ShowCamera: true,
		},
		Logging: LoggingConfig{
			Level:   "info",
			LogFile: "",
		},
	}
}

// Validate reports every setting that cannot be used.
func (c *Config) Validate() error {
	var err error
	check := func(ok bool, format string, args ...any) {
		if !ok {
			err = multierr.Append(err, fmt.Errorf(format, args...))
		}
	}

	switch c.Sensor.Source {
	case SourceSynthetic:
		s := c.Sensor.Synthetic
		check(s.DepthWidth > 0 && s.DepthHeight > 0, "sensor.synthetic: invalid depth size %dx%d", s.DepthWidth, s.DepthHeight)
		check(s.ColorWidth > 0 && s.ColorHeight > 0, "sensor.synthetic: invalid color size %dx%d", s.ColorWidth, s.ColorHeight)
		check(s.HoleRate >= 0 && s.HoleRate < 1, "sensor.synthetic.hole_rate must be in [0, 1), got %v", s.HoleRate)
	case SourcePlayback:
		check(c.Sensor.PlaybackDir != "", "sensor.playback_dir is required for playback")
	default:
		check(false, "sensor.source: unknown source %q", c.Sensor.Source)
	}

	r := c.Reconstruction
	check(r.TickRate > 0, "reconstruction.tick_rate must be positive, got %d", r.TickRate)
	check(r.Stride > 0, "reconstruction.stride must be positive, got %d", r.Stride)
	check(r.MinDistance >= 0, "reconstruction.min_distance must not be negative, got %v", r.MinDistance)
	check(r.MaxDistance > r.MinDistance, "reconstruction.max_distance %v must exceed min_distance %v", r.MaxDistance, r.MinDistance)
	check(r.MaxEdgeLength > 0, "reconstruction.max_edge_length must be positive, got %v", r.MaxEdgeLength)
	check(r.PixelFormat == "bgra" || r.PixelFormat == "rgba", "reconstruction.pixel_format: unknown format %q", r.PixelFormat)

	s := c.Smoothing
	switch s.Method {
	case "bilateral", "holefill", "bandmode":
	default:
		check(false, "smoothing.method: unknown method %q", s.Method)
	}
	check(s.KernelSize >= 0, "smoothing.kernel_size must not be negative")
	check(s.HoleFillRadius >= 0, "smoothing.hole_fill_radius must not be negative")

	check(len(c.Body.Mask) <= body.Count, "body.mask has %d entries, at most %d body slots exist", len(c.Body.Mask), body.Count)

	return err
}
