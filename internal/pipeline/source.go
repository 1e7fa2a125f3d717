package pipeline

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/Faultbox/depthmesh/internal/config"
	"github.com/Faultbox/depthmesh/internal/sensor"
	"github.com/Faultbox/depthmesh/internal/sensor/playback"
	"github.com/Faultbox/depthmesh/internal/sensor/synthetic"
)

// SourceFromConfig builds the frame source selected by the sensor settings.
func SourceFromConfig(cfg config.SensorConfig, log *zap.Logger) (sensor.FrameSource, error) {
	switch cfg.Source {
	case config.SourceSynthetic, "":
		s := cfg.Synthetic
		sc := synthetic.DefaultConfig()
		sc.Depth = sensor.Size{Width: s.DepthWidth, Height: s.DepthHeight}
		sc.Color = sensor.Size{Width: s.ColorWidth, Height: s.ColorHeight}
		sc.FPS = s.FPS
		sc.NoiseMM = s.NoiseMM
		sc.HoleRate = s.HoleRate
		sc.Seed = s.Seed
		return synthetic.New(sc), nil
	case config.SourcePlayback:
		return playback.New(cfg.PlaybackDir, log), nil
	}
	return nil, fmt.Errorf("unknown frame source %q", cfg.Source)
}
