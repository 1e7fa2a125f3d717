package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/Faultbox/depthmesh/internal/config"
	"github.com/Faultbox/depthmesh/internal/logger"
	"github.com/Faultbox/depthmesh/internal/pipeline"
	"github.com/Faultbox/depthmesh/internal/sensor"
	"github.com/Faultbox/depthmesh/internal/sensor/playback"
)

func cmdRecord(cfg *config.Config, args []string) (err error) {
	fs := flag.NewFlagSet("record", flag.ExitOnError)
	frames := fs.Int("frames", 100, "Number of frames to record")
	fs.Parse(args)

	if fs.NArg() < 1 {
		return errors.New("usage: meshtool record [-frames N] <dir>")
	}
	dir := fs.Arg(0)

	src, err := pipeline.SourceFromConfig(cfg.Sensor, logger.Named("sensor"))
	if err != nil {
		return err
	}
	desc, err := src.Open(context.Background(), sensor.OpenOptions{BodyIndex: cfg.Body.MaskEnabled})
	if err != nil {
		return multierr.Append(err, src.Close())
	}
	defer func() { err = multierr.Append(err, src.Close()) }()

	mapper, err := src.Mapper()
	if err != nil {
		return err
	}
	pinhole, ok := mapper.(*sensor.Pinhole)
	if !ok {
		return fmt.Errorf("source mapper %T cannot be recorded", mapper)
	}

	fps := cfg.Sensor.Synthetic.FPS
	if cfg.Sensor.Source == config.SourcePlayback {
		m, err := playback.LoadManifest(cfg.Sensor.PlaybackDir)
		if err != nil {
			return err
		}
		fps = m.FPS
	}
	w, err := playback.NewWriter(dir, playback.Manifest{FPS: fps, Mapper: *pinhole})
	if err != nil {
		return err
	}

	depth := sensor.NewDepthGrid(desc.Depth.Width, desc.Depth.Height)
	color := sensor.NewColorGrid(desc.Color.Width, desc.Color.Height)
	var bodyIndex *sensor.BodyIndexGrid
	if desc.BodyIndex.Cells() > 0 {
		bodyIndex = sensor.NewBodyIndexGrid(desc.BodyIndex.Width, desc.BodyIndex.Height)
	}

	for w.Frames() < *frames {
		if err := src.AcquireDepth(depth); err != nil {
			if errors.Is(err, sensor.ErrFrameNotReady) {
				time.Sleep(time.Millisecond)
				continue
			}
			return err
		}
		if err := src.AcquireColor(color); err != nil && !errors.Is(err, sensor.ErrFrameNotReady) {
			return err
		}
		if bodyIndex != nil {
			if err := src.AcquireBodyIndex(bodyIndex); err != nil && !errors.Is(err, sensor.ErrFrameNotReady) {
				return err
			}
		}
		if err := w.WriteFrame(depth, color, bodyIndex); err != nil {
			return fmt.Errorf("frame %d: %w", w.Frames(), err)
		}
	}

	logger.Info("recording written", zap.String("dir", dir), zap.Int("frames", w.Frames()))
	fmt.Printf("Recorded %d frames into %s\n", w.Frames(), dir)
	return nil
}

func cmdInfo(args []string) error {
	if len(args) < 1 {
		return errors.New("usage: meshtool info <dir>")
	}
	dir := args[0]

	m, err := playback.LoadManifest(dir)
	if err != nil {
		return err
	}
	src := playback.New(dir, nil)
	desc, err := src.Open(context.Background(), sensor.OpenOptions{})
	if err != nil {
		return err
	}
	defer src.Close()

	fmt.Printf("Recording: %s\n", dir)
	fmt.Printf("Frames:    %d at %.1f fps\n", src.FrameCount(), m.FPS)
	fmt.Printf("Depth:     %s  fx %.1f fy %.1f\n", desc.Depth, m.Mapper.Depth.Fx, m.Mapper.Depth.Fy)
	fmt.Printf("Color:     %s  fx %.1f fy %.1f\n", desc.Color, m.Mapper.Color.Fx, m.Mapper.Color.Fy)
	fmt.Printf("Baseline:  %.3f %.3f %.3f m\n", m.Mapper.Baseline.X, m.Mapper.Baseline.Y, m.Mapper.Baseline.Z)
	return nil
}
