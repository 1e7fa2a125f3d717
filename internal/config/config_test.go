package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/multierr"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Sensor.Source != SourceSynthetic {
		t.Errorf("expected synthetic source, got %s", cfg.Sensor.Source)
	}
	if cfg.Reconstruction.TickRate != 60 {
		t.Errorf("expected tick rate 60, got %d", cfg.Reconstruction.TickRate)
	}
	if cfg.Reconstruction.Stride != 2 {
		t.Errorf("expected stride 2, got %d", cfg.Reconstruction.Stride)
	}
	if cfg.Reconstruction.MaxEdgeLength != 8 {
		t.Errorf("expected max edge length 8, got %v", cfg.Reconstruction.MaxEdgeLength)
	}
	if cfg.Reconstruction.MaxDistance != 2 {
		t.Errorf("expected max distance 2, got %v", cfg.Reconstruction.MaxDistance)
	}
	if cfg.Smoothing.Enabled {
		t.Error("expected smoothing disabled by default")
	}
	if cfg.Smoothing.KernelSize != 4 || cfg.Smoothing.HoleFillRadius != 10 || cfg.Smoothing.SmoothingRadius != 2 {
		t.Errorf("unexpected smoothing defaults: %+v", cfg.Smoothing)
	}
	if len(cfg.Body.Mask) != 6 {
		t.Errorf("expected 6 body mask slots, got %d", len(cfg.Body.Mask))
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("expected log level 'info', got %s", cfg.Logging.Level)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestLoadFromFile(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	yamlContent := `
sensor:
  source: playback
  playback_dir: /data/session1

reconstruction:
  tick_rate: 30
  viewport_width: 0.5
  stride: 4
  max_distance: 3.5

smoothing:
  enabled: true
  method: holefill
  trim_rejected: true

body:
  mask_enabled: true
  mask: [true, false, true]

logging:
  level: "debug"
  log_file: "depthmesh.log"
`
	if err := os.WriteFile(configPath, []byte(yamlContent), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg := Default()
	if err := loadFromFile(cfg, configPath); err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.Sensor.Source != SourcePlayback || cfg.Sensor.PlaybackDir != "/data/session1" {
		t.Errorf("unexpected sensor config: %+v", cfg.Sensor)
	}
	if cfg.Reconstruction.TickRate != 30 || cfg.Reconstruction.Stride != 4 {
		t.Errorf("unexpected reconstruction config: %+v", cfg.Reconstruction)
	}
	if cfg.Reconstruction.ViewportWidth != 0.5 || cfg.Reconstruction.ViewportHeight != 1 {
		t.Errorf("viewport = %v x %v", cfg.Reconstruction.ViewportWidth, cfg.Reconstruction.ViewportHeight)
	}
	if !cfg.Smoothing.Enabled || cfg.Smoothing.Method != "holefill" || !cfg.Smoothing.TrimRejected {
		t.Errorf("unexpected smoothing config: %+v", cfg.Smoothing)
	}
	// Values missing from the file keep their defaults.
	if cfg.Smoothing.HoleFillRadius != 10 {
		t.Errorf("expected default hole fill radius, got %d", cfg.Smoothing.HoleFillRadius)
	}
	if len(cfg.Body.Mask) != 3 || !cfg.Body.Mask[2] {
		t.Errorf("mask = %v", cfg.Body.Mask)
	}
	if cfg.Logging.LogFile != "depthmesh.log" {
		t.Errorf("expected log file 'depthmesh.log', got %s", cfg.Logging.LogFile)
	}
}

func TestLoadFromFileInvalid(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "invalid.yaml")
	invalidYAML := `
reconstruction:
  stride: not a number
  invalid syntax here
`
	if err := os.WriteFile(configPath, []byte(invalidYAML), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	if err := loadFromFile(Default(), configPath); err == nil {
		t.Error("expected error loading invalid YAML, got nil")
	}
}

func TestLoadFromFileMissing(t *testing.T) {
	if err := loadFromFile(Default(), "/nonexistent/path/config.yaml"); err == nil {
		t.Error("expected error loading missing file, got nil")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		errs   int
		want   string
	}{
		{"defaults", func(*Config) {}, 0, ""},
		{"unknown source", func(c *Config) { c.Sensor.Source = "usb" }, 1, "sensor.source"},
		{"playback without dir", func(c *Config) { c.Sensor.Source = SourcePlayback }, 1, "playback_dir"},
		{"bad stride", func(c *Config) { c.Reconstruction.Stride = 0 }, 1, "stride"},
		{"distance window", func(c *Config) { c.Reconstruction.MinDistance = 3 }, 1, "max_distance"},
		{"method", func(c *Config) { c.Smoothing.Method = "gauss" }, 1, "smoothing.method"},
		{"mask too long", func(c *Config) { c.Body.Mask = make([]bool, 7) }, 1, "body.mask"},
		{
			"several problems",
			func(c *Config) {
				c.Reconstruction.TickRate = 0
				c.Reconstruction.PixelFormat = "argb"
				c.Smoothing.KernelSize = -1
			},
			3, "tick_rate",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if got := len(multierr.Errors(err)); got != tt.errs {
				t.Fatalf("got %d errors (%v), want %d", got, err, tt.errs)
			}
			if tt.want != "" && !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q does not mention %q", err, tt.want)
			}
		})
	}
}

func TestConfigDir(t *testing.T) {
	dir := ConfigDir()
	if dir == "" {
		t.Error("ConfigDir returned empty string")
	}
	if !filepath.IsAbs(dir) {
		t.Errorf("ConfigDir should return absolute path, got %s", dir)
	}
}

func TestFindConfigFile(t *testing.T) {
	origDir, _ := os.Getwd()
	defer os.Chdir(origDir)

	tmpDir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(tmpDir, "xdg"))
	os.Chdir(tmpDir)

	if path := findConfigFile(); path != "" {
		t.Errorf("expected empty path when no config exists, got %s", path)
	}

	if err := os.WriteFile(filepath.Join(tmpDir, "config.yaml"), []byte("reconstruction:\n  stride: 3\n"), 0644); err != nil {
		t.Fatalf("failed to create test config: %v", err)
	}
	if path := findConfigFile(); path == "" {
		t.Error("expected to find config.yaml in current directory")
	}
}

func TestApplyFlags(t *testing.T) {
	tests := []struct {
		name     string
		setup    func()
		verify   func(*testing.T, *Config)
		teardown func()
	}{
		{
			name:  "debug flag",
			setup: func() { *flagDebug = true },
			verify: func(t *testing.T, cfg *Config) {
				if cfg.Logging.Level != "debug" {
					t.Errorf("expected log level 'debug', got %s", cfg.Logging.Level)
				}
			},
			teardown: func() { *flagDebug = false },
		},
		{
			name:  "playback flag",
			setup: func() { *flagPlayback = "/rec/a" },
			verify: func(t *testing.T, cfg *Config) {
				if cfg.Sensor.Source != SourcePlayback || cfg.Sensor.PlaybackDir != "/rec/a" {
					t.Errorf("unexpected sensor config: %+v", cfg.Sensor)
				}
			},
			teardown: func() { *flagPlayback = "" },
		},
		{
			name: "smoothing flags",
			setup: func() {
				*flagSmooth = true
				*flagMethod = "bandmode"
			},
			verify: func(t *testing.T, cfg *Config) {
				if !cfg.Smoothing.Enabled || cfg.Smoothing.Method != "bandmode" {
					t.Errorf("unexpected smoothing config: %+v", cfg.Smoothing)
				}
			},
			teardown: func() {
				*flagSmooth = false
				*flagMethod = ""
			},
		},
		{
			name:  "stride flag",
			setup: func() { *flagStride = 5 },
			verify: func(t *testing.T, cfg *Config) {
				if cfg.Reconstruction.Stride != 5 {
					t.Errorf("expected stride 5, got %d", cfg.Reconstruction.Stride)
				}
			},
			teardown: func() { *flagStride = 0 },
		},
		{
			name: "window flags",
			setup: func() {
				*flagFullscreen = true
				*flagWidth = 2560
				*flagHeight = 1440
			},
			verify: func(t *testing.T, cfg *Config) {
				if !cfg.Graphics.Fullscreen || cfg.Graphics.Width != 2560 || cfg.Graphics.Height != 1440 {
					t.Errorf("unexpected graphics config: %+v", cfg.Graphics)
				}
			},
			teardown: func() {
				*flagFullscreen = false
				*flagWidth = 0
				*flagHeight = 0
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.setup()
			defer tt.teardown()

			cfg := Default()
			applyFlags(cfg)
			tt.verify(t, cfg)
		})
	}
}

func TestLoadPriority(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	yamlContent := `
reconstruction:
  stride: 3
  tick_rate: 45
`
	if err := os.WriteFile(configPath, []byte(yamlContent), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	*flagConfig = configPath
	*flagStride = 6
	defer func() {
		*flagConfig = ""
		*flagStride = 0
	}()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}
	if cfg.Reconstruction.Stride != 6 {
		t.Errorf("expected stride 6 from flag, got %d", cfg.Reconstruction.Stride)
	}
	if cfg.Reconstruction.TickRate != 45 {
		t.Errorf("expected tick rate 45 from file, got %d", cfg.Reconstruction.TickRate)
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(configPath, []byte("reconstruction:\n  stride: -1\n"), 0644); err != nil {
		t.Fatal(err)
	}
	*flagConfig = configPath
	defer func() { *flagConfig = "" }()

	if _, err := Load(); err == nil {
		t.Error("expected validation error")
	}
}

func TestSaveToRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	cfg := Default()
	cfg.Smoothing.Method = "bandmode"
	cfg.Body.Mask[4] = true

	if err := cfg.SaveTo(path); err != nil {
		t.Fatalf("SaveTo: %v", err)
	}

	loaded := Default()
	if err := loadFromFile(loaded, path); err != nil {
		t.Fatalf("reload: %v", err)
	}
	if loaded.Smoothing.Method != "bandmode" || !loaded.Body.Mask[4] {
		t.Errorf("round trip lost settings: %+v %v", loaded.Smoothing, loaded.Body.Mask)
	}
}
