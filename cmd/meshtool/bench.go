package main

import (
	"context"
	"flag"
	"fmt"
	"time"

	"github.com/montanaflynn/stats"
	"go.uber.org/zap"

	"github.com/Faultbox/depthmesh/internal/config"
	"github.com/Faultbox/depthmesh/internal/logger"
	"github.com/Faultbox/depthmesh/internal/pipeline"
)

// benchResult summarises one bench run.
type benchResult struct {
	Meshes        int
	BuildMeanMS   float64
	BuildMedianMS float64
	BuildP95MS    float64
	BuildMaxMS    float64
	TrianglesMean float64
}

func cmdBench(cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("bench", flag.ExitOnError)
	duration := fs.Duration("duration", 10*time.Second, "How long to run")
	fps := fs.Int("fps", cfg.Graphics.FPSLimit, "Consumer tick rate (0 = 60)")
	fs.Parse(args)

	opts, err := pipeline.OptionsFromConfig(cfg)
	if err != nil {
		return err
	}
	src, err := pipeline.SourceFromConfig(cfg.Sensor, logger.Named("sensor"))
	if err != nil {
		return err
	}

	recon := pipeline.New(src, opts, logger.Named("pipeline"))
	if err := recon.Start(context.Background()); err != nil {
		return err
	}

	builds, triangles := consume(recon, *duration, *fps)
	if err := recon.Stop(); err != nil {
		logger.Warn("stopping reconstruction", zap.Error(err))
	}

	res, err := summarise(builds, triangles)
	if err != nil {
		return err
	}
	s := recon.Stats()

	fmt.Printf("Source:     %s\n", cfg.Sensor.Source)
	fmt.Printf("Options:    %s\n", opts)
	fmt.Printf("Cycles:     %d (%d frames not ready, %d acquire errors)\n", s.Cycles, s.FramesNotReady, s.AcquireErrors)
	fmt.Printf("Meshes:     %d built, %d applied\n", s.MeshesBuilt, s.MeshesApplied)
	fmt.Printf("Build ms:   mean %.2f  median %.2f  p95 %.2f  max %.2f\n", res.BuildMeanMS, res.BuildMedianMS, res.BuildP95MS, res.BuildMaxMS)
	fmt.Printf("Triangles:  mean %.0f\n", res.TrianglesMean)

	logger.Info("bench finished",
		zap.Int("meshes", res.Meshes),
		zap.Float64("buildMeanMS", res.BuildMeanMS),
		zap.Float64("buildP95MS", res.BuildP95MS))
	return nil
}

// consume ticks like a display at fps for d and samples the build time and
// triangle count of every mesh it receives.
func consume(recon *pipeline.Reconstructor, d time.Duration, fps int) (builds, triangles []float64) {
	if fps <= 0 {
		fps = 60
	}
	ticker := time.NewTicker(time.Second / time.Duration(fps))
	defer ticker.Stop()
	deadline := time.After(d)

	var last uint64
	for {
		select {
		case <-deadline:
			return builds, triangles
		case <-ticker.C:
		}

		recon.Tick()
		if _, consumer := recon.Frames(); consumer != last {
			last = consumer
			s := recon.Stats()
			m, _ := recon.Mesh()
			builds = append(builds, float64(s.LastBuild)/float64(time.Millisecond))
			triangles = append(triangles, float64(m.TriangleCount()))
		}
	}
}

func summarise(builds, triangles []float64) (benchResult, error) {
	if len(builds) == 0 {
		return benchResult{}, fmt.Errorf("no meshes were produced")
	}
	var (
		res = benchResult{Meshes: len(builds)}
		err error
	)
	if res.BuildMeanMS, err = stats.Mean(builds); err != nil {
		return res, err
	}
	if res.BuildMedianMS, err = stats.Median(builds); err != nil {
		return res, err
	}
	if res.BuildP95MS, err = stats.Percentile(builds, 95); err != nil {
		return res, err
	}
	if res.BuildMaxMS, err = stats.Max(builds); err != nil {
		return res, err
	}
	if res.TrianglesMean, err = stats.Mean(triangles); err != nil {
		return res, err
	}
	return res, nil
}
