// Package main is the entry point for the depthmesh viewer.
package main

import (
	"context"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/Faultbox/depthmesh/internal/config"
	"github.com/Faultbox/depthmesh/internal/logger"
	"github.com/Faultbox/depthmesh/internal/pipeline"
	"github.com/Faultbox/depthmesh/internal/viewer"
)

func main() {
	config.ParseFlags()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Config error: %v\n", err)
		os.Exit(1)
	}

	if err := logger.Init(cfg.Logging.Level, cfg.Logging.LogFile); err != nil {
		fmt.Fprintf(os.Stderr, "Logger error: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("=== depthmesh viewer ===")
	logger.Sugar.Debugf("Config: %+v", cfg)

	if err := run(cfg); err != nil {
		logger.Error("viewer error", zap.Error(err))
		logger.Sync()
		os.Exit(1)
	}
	logger.Info("viewer closed normally")
}

func run(cfg *config.Config) error {
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
		return fmt.Errorf("starting reconstruction: %w", err)
	}
	defer func() {
		if err := recon.Stop(); err != nil {
			logger.Warn("stopping reconstruction", zap.Error(err))
		}
	}()

	v, err := viewer.New(cfg, recon)
	if err != nil {
		return err
	}
	defer v.Close()

	return v.Run()
}
