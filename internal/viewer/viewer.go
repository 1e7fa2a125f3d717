// Package viewer runs the interactive mesh viewer: the consumer side of the
// reconstruction pipeline.
package viewer

import (
	"fmt"
	"time"

	"github.com/veandco/go-sdl2/sdl"
	"go.uber.org/zap"

	"github.com/Faultbox/depthmesh/internal/config"
	"github.com/Faultbox/depthmesh/internal/engine/camera"
	"github.com/Faultbox/depthmesh/internal/engine/debug"
	"github.com/Faultbox/depthmesh/internal/engine/input"
	"github.com/Faultbox/depthmesh/internal/engine/lighting"
	"github.com/Faultbox/depthmesh/internal/engine/renderer"
	"github.com/Faultbox/depthmesh/internal/engine/window"
	"github.com/Faultbox/depthmesh/internal/logger"
	"github.com/Faultbox/depthmesh/internal/mesh"
	"github.com/Faultbox/depthmesh/internal/pipeline"
	"github.com/Faultbox/depthmesh/internal/smoothing"
)

const title = "depthmesh"

var methods = []smoothing.Method{smoothing.MethodBilateral, smoothing.MethodHoleFill, smoothing.MethodBandMode}

// Viewer shows the reconstructed mesh and the camera image.
type Viewer struct {
	cfg   *config.Config
	log   *zap.Logger
	recon *pipeline.Reconstructor

	window      *window.Window
	renderer    *renderer.Renderer
	input       *input.Input
	camera      *camera.OrbitCamera
	screenshots *debug.ScreenshotCapture

	running      bool
	showCamera   bool
	fitted       bool
	lastFrame uint64
}

// New opens the window and renderer. recon must already be started.
func New(cfg *config.Config, recon *pipeline.Reconstructor) (*Viewer, error) {
	v := &Viewer{
		cfg:         cfg,
		log:         logger.Named("viewer"),
		recon:       recon,
		input:       input.New(),
		camera:      camera.NewOrbitCamera(),
		screenshots: debug.NewScreenshotCapture(cfg.Graphics.ScreenshotDir, title),
		showCamera:  cfg.Graphics.ShowCamera,
	}

	var err error
	v.window, err = window.New(window.FromGraphics(title, cfg.Graphics))
	if err != nil {
		return nil, fmt.Errorf("failed to create window: %w", err)
	}

	// The renderer needs the GL context the window created.
	w, h := v.window.DrawableSize()
	v.renderer, err = renderer.New(renderer.Config{Width: w, Height: h, Light: lighting.Default()})
	if err != nil {
		v.window.Close()
		return nil, fmt.Errorf("failed to create renderer: %w", err)
	}

	v.log.Info("viewer initialized", zap.Int("width", w), zap.Int("height", h))
	return v, nil
}

// Run drives the render loop until the window closes.
func (v *Viewer) Run() error {
	v.running = true

	var frameLimit time.Duration
	if v.cfg.Graphics.FPSLimit > 0 {
		frameLimit = time.Second / time.Duration(v.cfg.Graphics.FPSLimit)
	}
	frameCount := 0
	fpsTimer := time.Now()

	v.log.Info("starting render loop")

	for v.running {
		frameStart := time.Now()

		if v.input.Update() {
			v.running = false
			break
		}
		v.handleEvents()

		v.recon.Tick()
		v.upload()
		v.render()
		v.window.SwapBuffers()

		frameCount++
		if time.Since(fpsTimer) >= time.Second {
			v.updateTitle(frameCount)
			frameCount = 0
			fpsTimer = time.Now()
		}

		if frameLimit > 0 {
			if rest := frameLimit - time.Since(frameStart); rest > 0 {
				time.Sleep(rest)
			}
		}
	}

	return nil
}

// Close releases the renderer and window.
func (v *Viewer) Close() {
	v.log.Info("closing viewer")

	if v.renderer != nil {
		v.renderer.Close()
	}
	if v.window != nil {
		v.window.Close()
	}
}

func (v *Viewer) handleEvents() {
	for _, event := range v.input.Events() {
		switch event.Type {
		case input.EventWindowResize:
			w, h := v.window.DrawableSize()
			v.renderer.Resize(w, h)
		case input.EventKeyDown:
			v.handleKey(event.Key)
		}
	}

	dx, dy := v.input.Drag()
	if dx != 0 || dy != 0 {
		v.camera.HandleDrag(dx, dy)
	}
	if wheel := v.input.Wheel(); wheel != 0 {
		v.camera.HandleZoom(wheel)
	}
}

func (v *Viewer) handleKey(key sdl.Scancode) {
	opts := v.recon.Options()

	switch key {
	case sdl.SCANCODE_S:
		opts.Smoothing = !opts.Smoothing
		v.cfg.Smoothing.Enabled = opts.Smoothing
		v.recon.SetOptions(opts)
		v.log.Info("smoothing toggled", zap.Bool("enabled", opts.Smoothing))

	case sdl.SCANCODE_M:
		next := methods[0]
		for i, m := range methods {
			if m == opts.SmoothingOptions.Method {
				next = methods[(i+1)%len(methods)]
			}
		}
		opts.SmoothingOptions.Method = next
		v.cfg.Smoothing.Method = string(next)
		v.recon.SetOptions(opts)
		v.log.Info("smoothing method", zap.String("method", string(next)))

	case sdl.SCANCODE_B:
		if v.recon.Description().BodyIndex.Cells() == 0 {
			v.log.Warn("body-index stream is closed; set body.mask_enabled and restart")
			return
		}
		opts.BodyMasking = !opts.BodyMasking
		v.cfg.Body.MaskEnabled = opts.BodyMasking
		v.recon.SetOptions(opts)
		v.log.Info("body mask toggled", zap.Bool("enabled", opts.BodyMasking))

	case sdl.SCANCODE_C:
		v.showCamera = !v.showCamera

	case sdl.SCANCODE_R:
		v.fitted = false

	case sdl.SCANCODE_F2:
		path, err := v.cfg.Save()
		if err != nil {
			v.log.Error("saving config", zap.Error(err))
			return
		}
		v.log.Info("config saved", zap.String("path", path))

	case sdl.SCANCODE_F11:
		pix, w, h := v.recon.CameraPixels()
		name, err := v.screenshots.CaptureCamera(pix, w, h, v.recon.CameraFormat())
		v.logCapture("camera image", name, err)

	case sdl.SCANCODE_F12:
		pix, w, h := v.renderer.ReadPixels()
		name, err := v.screenshots.CaptureFromPixels(pix, w, h)
		v.logCapture("screenshot", name, err)
	}
}

func (v *Viewer) logCapture(what, name string, err error) {
	if err != nil {
		v.log.Error("capture failed", zap.String("what", what), zap.Error(err))
		return
	}
	v.log.Info("captured", zap.String("what", what), zap.String("file", name))
}

// upload copies a newly published snapshot to the GPU.
func (v *Viewer) upload() {
	_, consumer := v.recon.Frames()
	if consumer == v.lastFrame {
		return
	}
	v.lastFrame = consumer

	m, ok := v.recon.Mesh()
	if !ok {
		return
	}
	v.renderer.UploadMesh(m)
	pix, w, h := v.recon.CameraPixels()
	v.renderer.UploadCamera(pix, w, h, v.recon.CameraFormat())

	if !v.fitted && !m.Empty() {
		v.fit(m.Bounds())
		v.fitted = true
	}
}

// fit aims the camera at a mesh-space box.
func (v *Viewer) fit(b mesh.Bounds) {
	lo := renderer.WorldToView.TransformVec3(b.Min)
	hi := renderer.WorldToView.TransformVec3(b.Max)
	v.camera.FitToBounds(lo.Min(hi), lo.Max(hi))
}

func (v *Viewer) render() {
	w, h := v.renderer.Size()
	aspect := float32(1)
	if h > 0 {
		aspect = float32(w) / float32(h)
	}

	v.renderer.Begin()
	v.renderer.DrawMesh(v.camera.ViewProjection(aspect))
	if v.showCamera {
		v.renderer.DrawCameraInset()
	}
}

func (v *Viewer) updateTitle(fps int) {
	s := v.recon.Stats()
	v.window.SetTitle(fmt.Sprintf("%s | %d fps | %d triangles | build %s", title, fps, s.Triangles, s.LastBuild.Round(time.Microsecond)))
	v.log.Debug("frame stats",
		zap.Int("fps", fps),
		zap.Int("triangles", s.Triangles),
		zap.Duration("lastBuild", s.LastBuild),
		zap.Uint64("meshesApplied", s.MeshesApplied))
}
