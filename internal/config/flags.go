package config

import "flag"

var (
	flagConfig     = flag.String("config", "", "Path to config file")
	flagDebug      = flag.Bool("debug", false, "Enable debug logging")
	flagSource     = flag.String("source", "", "Frame source: synthetic or playback")
	flagPlayback   = flag.String("playback", "", "Recording directory (implies -source playback)")
	flagSmooth     = flag.Bool("smooth", false, "Enable depth smoothing")
	flagMethod     = flag.String("method", "", "Smoothing method: bilateral, holefill or bandmode")
	flagStride     = flag.Int("stride", 0, "Depth cells between mesh vertices")
	flagWindowed   = flag.Bool("windowed", false, "Run in windowed mode")
	flagFullscreen = flag.Bool("fullscreen", false, "Run in fullscreen mode")
	flagWidth      = flag.Int("width", 0, "Window width")
	flagHeight     = flag.Int("height", 0, "Window height")
)

// ParseFlags parses command-line flags. Call this early in main().
func ParseFlags() {
	flag.Parse()
}

// ConfigPath returns the explicit config path if provided via --config flag.
func ConfigPath() string {
	return *flagConfig
}

// applyFlags applies CLI flag overrides to the config.
func applyFlags(cfg *Config) {
	if *flagDebug {
		cfg.Logging.Level = "debug"
	}
	if *flagSource != "" {
		cfg.Sensor.Source = *flagSource
	}
	if *flagPlayback != "" {
		cfg.Sensor.Source = SourcePlayback
		cfg.Sensor.PlaybackDir = *flagPlayback
	}
	if *flagSmooth {
		cfg.Smoothing.Enabled = true
	}
	if *flagMethod != "" {
		cfg.Smoothing.Method = *flagMethod
	}
	if *flagStride > 0 {
		cfg.Reconstruction.Stride = *flagStride
	}
	if *flagWindowed {
		cfg.Graphics.Fullscreen = false
	}
	if *flagFullscreen {
		cfg.Graphics.Fullscreen = true
	}
	if *flagWidth > 0 {
		cfg.Graphics.Width = *flagWidth
	}
	if *flagHeight > 0 {
		cfg.Graphics.Height = *flagHeight
	}
}
