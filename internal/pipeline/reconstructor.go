// Package pipeline runs depth-to-mesh reconstruction on a background
// goroutine and hands finished meshes to a consumer without tearing.
//
// The background loop acquires frames, smooths, projects and triangulates
// them on private buffers, then stages the result and queues an apply
// command. The consumer calls Tick once per display frame; applying a
// command swaps the staged mesh, camera image and bodies into the visible
// snapshot together, so all three always come from the same cycle. A new
// mesh is only built once the consumer has taken the previous one, which
// keeps producer and consumer at most one frame apart.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/atomic"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/Faultbox/depthmesh/internal/body"
	"github.com/Faultbox/depthmesh/internal/logger"
	"github.com/Faultbox/depthmesh/internal/mesh"
	"github.com/Faultbox/depthmesh/internal/projection"
	"github.com/Faultbox/depthmesh/internal/sensor"
	"github.com/Faultbox/depthmesh/internal/smoothing"
	"github.com/Faultbox/depthmesh/internal/texture"
)

var (
	// ErrAlreadyStarted is returned by Start on a running reconstructor.
	ErrAlreadyStarted = errors.New("reconstructor already started")
	// ErrInvalidBody is returned for a body slot outside [0, body.Count).
	ErrInvalidBody = errors.New("invalid body index")
)

// Stats are running totals for the current session.
type Stats struct {
	Cycles         uint64
	MeshesBuilt    uint64
	MeshesApplied  uint64
	FramesNotReady uint64
	AcquireErrors  uint64
	BuildErrors    uint64
	LastBuild      time.Duration
	Triangles      int
}

type counters struct {
	cycles         atomic.Uint64
	built          atomic.Uint64
	applied        atomic.Uint64
	framesNotReady atomic.Uint64
	acquireErrors  atomic.Uint64
	buildErrors    atomic.Uint64
	lastBuild      atomic.Duration
	triangles      atomic.Int64
}

func (c *counters) reset() {
	c.cycles.Store(0)
	c.built.Store(0)
	c.applied.Store(0)
	c.framesNotReady.Store(0)
	c.acquireErrors.Store(0)
	c.buildErrors.Store(0)
	c.lastBuild.Store(0)
	c.triangles.Store(0)
}

// staged is the output of the newest completed cycle, waiting for Tick.
type staged struct {
	color  *sensor.ColorGrid
	bodies []body.Body
	mesh   *mesh.Mesh
}

// Reconstructor owns one sensor session, one background goroutine and the
// snapshot read by one consumer.
type Reconstructor struct {
	src sensor.FrameSource
	log *zap.Logger

	optsMu sync.RWMutex
	opts   Options

	running atomic.Bool
	cancel  context.CancelFunc
	done    chan struct{}
	queue   Queue
	stats   counters

	// Owned by the background goroutine while running.
	desc      sensor.Description
	depth     *sensor.DepthGrid
	color     *sensor.ColorGrid
	bodyIndex *sensor.BodyIndexGrid
	bodies    []body.Body
	tracking  bool
	smoother  *smoothing.Smoother
	projector *projection.Projector
	grid      projection.Grid
	back      *mesh.Mesh

	// mu guards the frame counters, the staged cycle and the visible snapshot.
	mu            sync.Mutex
	producer      uint64
	consumer      uint64
	staged        staged
	visible       *mesh.Mesh
	hasMesh       bool
	camera        *texture.Assembler
	visibleBodies []body.Body
}

// New returns an unstarted reconstructor reading from src. A nil log
// discards output.
func New(src sensor.FrameSource, opts Options, log *zap.Logger) *Reconstructor {
	return &Reconstructor{
		src:  src,
		log:  logger.OrNop(log),
		opts: opts.clone(),
	}
}

// Options returns a copy of the current settings.
func (r *Reconstructor) Options() Options {
	r.optsMu.RLock()
	defer r.optsMu.RUnlock()
	return r.opts.clone()
}

// SetOptions replaces the settings. The next cycle picks them up.
func (r *Reconstructor) SetOptions(opts Options) {
	r.optsMu.Lock()
	r.opts = opts.clone()
	r.optsMu.Unlock()
	r.log.Debug("options changed", zap.Stringer("options", opts))
}

// Running reports whether the background loop is active.
func (r *Reconstructor) Running() bool {
	return r.running.Load()
}

// Start opens the sensor session, allocates the frame buffers and starts
// the background loop. On failure everything opened is closed again and the
// reconstructor stays unstarted; session failures are *sensor.SessionError.
func (r *Reconstructor) Start(ctx context.Context) error {
	if r.running.Load() {
		return ErrAlreadyStarted
	}
	opts := r.Options()

	_, canTrack := r.src.(sensor.BodySource)
	openOpts := sensor.OpenOptions{
		BodyIndex: opts.BodyMasking,
		Bodies:    canTrack && opts.BodyTracking,
	}

	desc, err := r.src.Open(ctx, openOpts)
	if err != nil {
		return multierr.Append(err, r.src.Close())
	}

	mapper, err := r.src.Mapper()
	if err != nil {
		var se *sensor.SessionError
		if !errors.As(err, &se) {
			err = sensor.StageError(sensor.StageCoordinateMapper, err)
		}
		return multierr.Append(err, r.src.Close())
	}

	r.allocate(desc, mapper, opts)
	r.tracking = openOpts.Bodies

	r.stats.reset()
	loopCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	r.cancel = cancel
	r.done = make(chan struct{})
	r.running.Store(true)

	r.log.Info("reconstruction started",
		zap.Stringer("depth", desc.Depth),
		zap.Stringer("color", desc.Color),
		zap.Bool("bodyIndex", openOpts.BodyIndex),
		zap.Bool("bodies", openOpts.Bodies),
		zap.Stringer("options", opts))

	go r.loop(loopCtx)
	return nil
}

func (r *Reconstructor) allocate(desc sensor.Description, mapper sensor.CoordinateMapper, opts Options) {
	r.depth = sensor.NewDepthGrid(desc.Depth.Width, desc.Depth.Height)
	r.color = sensor.NewColorGrid(desc.Color.Width, desc.Color.Height)
	r.bodyIndex = nil
	if desc.BodyIndex.Cells() > 0 {
		r.bodyIndex = sensor.NewBodyIndexGrid(desc.BodyIndex.Width, desc.BodyIndex.Height)
	}
	r.bodies = body.NewSet()
	r.smoother = smoothing.New(desc.Depth.Width, desc.Depth.Height)
	r.projector = projection.New(mapper)
	r.back = &mesh.Mesh{}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.desc = desc
	r.producer, r.consumer = 0, 0
	r.staged = staged{
		color:  sensor.NewColorGrid(desc.Color.Width, desc.Color.Height),
		bodies: body.NewSet(),
		mesh:   &mesh.Mesh{},
	}
	r.visible = &mesh.Mesh{}
	r.hasMesh = false
	r.camera = texture.NewAssembler(opts.PixelFormat, opts.Alpha)
	r.visibleBodies = body.NewSet()
}

// Stop ends the background loop, waits for it and closes the session.
// Commands still queued are discarded; the visible snapshot stays readable.
func (r *Reconstructor) Stop() error {
	if !r.running.CompareAndSwap(true, false) {
		return nil
	}
	r.cancel()
	<-r.done
	r.queue.Clear()

	err := r.src.Close()
	s := r.Stats()
	r.log.Info("reconstruction stopped",
		zap.Uint64("cycles", s.Cycles),
		zap.Uint64("meshesBuilt", s.MeshesBuilt),
		zap.Uint64("meshesApplied", s.MeshesApplied),
		zap.Uint64("framesNotReady", s.FramesNotReady))
	return err
}

func (r *Reconstructor) loop(ctx context.Context) {
	defer close(r.done)

	for r.running.Load() {
		started := time.Now()
		opts := r.Options()
		r.cycle(ctx, opts)

		wait := opts.tickInterval() - time.Since(started)
		if wait <= 0 {
			if ctx.Err() != nil {
				return
			}
			continue
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(wait):
		}
	}
}

// cycle runs one background tick.
func (r *Reconstructor) cycle(ctx context.Context, opts Options) {
	r.stats.cycles.Inc()
	r.acquire()

	r.mu.Lock()
	doMesh := r.consumer >= r.producer
	r.mu.Unlock()

	if doMesh {
		started := time.Now()
		if err := r.build(ctx, opts); err != nil {
			if ctx.Err() == nil {
				r.stats.buildErrors.Inc()
				r.log.Warn("mesh build failed", zap.Error(err))
			}
			return
		}
		r.stats.lastBuild.Store(time.Since(started))
		r.stats.built.Inc()

		r.mu.Lock()
		r.staged.color.CopyFrom(r.color)
		body.CopySet(r.staged.bodies, r.bodies)
		r.back, r.staged.mesh = r.staged.mesh, r.back
		r.producer = r.consumer + 1
		r.mu.Unlock()
	}

	format, alpha := opts.PixelFormat, opts.Alpha
	r.queue.Push(func() { r.apply(doMesh, format, alpha) })
}

func (r *Reconstructor) acquire() {
	r.checkAcquire("depth", r.src.AcquireDepth(r.depth))
	r.checkAcquire("color", r.src.AcquireColor(r.color))
	if r.bodyIndex != nil {
		r.checkAcquire("bodyIndex", r.src.AcquireBodyIndex(r.bodyIndex))
	}
	if r.tracking {
		r.checkAcquire("bodies", r.src.(sensor.BodySource).AcquireBodies(r.bodies))
	}
}

func (r *Reconstructor) checkAcquire(stream string, err error) {
	switch {
	case err == nil:
	case errors.Is(err, sensor.ErrFrameNotReady):
		r.stats.framesNotReady.Inc()
		r.log.Debug("frame not ready, reusing previous", zap.String("stream", stream))
	default:
		r.stats.acquireErrors.Inc()
		r.log.Warn("frame acquisition failed", zap.String("stream", stream), zap.Error(err))
	}
}

// build smooths, projects and triangulates the private frame into r.back.
func (r *Reconstructor) build(ctx context.Context, opts Options) error {
	depth := r.depth
	if opts.Smoothing {
		smoothed, err := r.smoother.Smooth(ctx, depth, opts.SmoothingOptions)
		if err != nil {
			return fmt.Errorf("smoothing: %w", err)
		}
		depth = smoothed
	}

	lat := projection.NewLattice(depth.Width, depth.Height, opts.ViewportWidth, opts.ViewportHeight, opts.Stride)
	in := projection.Input{Depth: depth, Color: r.color}
	if opts.BodyMasking && r.bodyIndex != nil {
		in.BodyIndex = r.bodyIndex
	}
	if err := r.projector.Project(ctx, &r.grid, in, lat, opts.Projection); err != nil {
		return fmt.Errorf("projection: %w", err)
	}

	mesh.Triangulate(r.back, &r.grid, opts.MaxEdgeLength)
	r.stats.triangles.Store(int64(r.back.TriangleCount()))
	return nil
}

// apply runs on the consumer. A command carrying a mesh publishes the
// staged cycle; without one the visible snapshot already matches the newest
// staged cycle and nothing changes.
func (r *Reconstructor) apply(withMesh bool, format texture.PixelFormat, alpha uint8) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !withMesh || r.producer == r.consumer {
		return
	}

	if r.camera.Format() != format || r.camera.Alpha() != alpha {
		r.camera = texture.NewAssembler(format, alpha)
	}
	r.camera.Assemble(r.staged.color)
	body.CopySet(r.visibleBodies, r.staged.bodies)
	r.visible, r.staged.mesh = r.staged.mesh, r.visible
	r.hasMesh = true
	r.consumer = r.producer
	r.stats.applied.Inc()
}

// Tick applies every pending command. Call it once per display frame from
// the goroutine that reads the snapshot. It returns the number of commands
// run.
func (r *Reconstructor) Tick() int {
	return r.queue.Drain()
}

// Mesh returns the visible mesh and whether one has been published. The
// mesh is valid until the next Tick.
func (r *Reconstructor) Mesh() (*mesh.Mesh, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.visible, r.hasMesh
}

// CameraPixels returns the camera image of the visible cycle in the
// configured pixel format, with its size. The buffer is valid until the
// next Tick.
func (r *Reconstructor) CameraPixels() (pix []byte, width, height int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.camera == nil {
		return nil, 0, 0
	}
	return r.camera.Buffer()
}

// CameraFormat returns the layout of CameraPixels.
func (r *Reconstructor) CameraFormat() texture.PixelFormat {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.camera == nil {
		return r.Options().PixelFormat
	}
	return r.camera.Format()
}

// Body returns body slot i of the visible cycle. Its joints are valid until
// the next Tick.
func (r *Reconstructor) Body(i int) (body.Body, error) {
	if i < 0 || i >= body.Count {
		return body.Body{}, fmt.Errorf("%w: %d", ErrInvalidBody, i)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.visibleBodies == nil {
		return body.New(), nil
	}
	return r.visibleBodies[i], nil
}

// IsTracked reports whether body slot i is tracked.
func (r *Reconstructor) IsTracked(i int) (bool, error) {
	b, err := r.Body(i)
	return b.Tracked, err
}

// HandStates returns the left and right hand states of body slot i.
func (r *Reconstructor) HandStates(i int) (left, right body.HandState, err error) {
	b, err := r.Body(i)
	if err != nil {
		return body.HandUnknown, body.HandUnknown, err
	}
	return b.LeftHand, b.RightHand, nil
}

// Joint returns joint t of body slot i.
func (r *Reconstructor) Joint(i int, t body.JointType) (body.Joint, error) {
	b, err := r.Body(i)
	if err != nil {
		return body.Joint{}, err
	}
	j, ok := b.Joint(t)
	if !ok {
		return body.Joint{}, fmt.Errorf("invalid joint type %d", t)
	}
	return j, nil
}

// Frames returns the producer and consumer frame counters. The producer is
// never more than one frame ahead.
func (r *Reconstructor) Frames() (producer, consumer uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.producer, r.consumer
}

// Description returns the stream sizes of the current session.
func (r *Reconstructor) Description() sensor.Description {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.desc
}

// Stats returns the session totals.
func (r *Reconstructor) Stats() Stats {
	return Stats{
		Cycles:         r.stats.cycles.Load(),
		MeshesBuilt:    r.stats.built.Load(),
		MeshesApplied:  r.stats.applied.Load(),
		FramesNotReady: r.stats.framesNotReady.Load(),
		AcquireErrors:  r.stats.acquireErrors.Load(),
		BuildErrors:    r.stats.buildErrors.Load(),
		LastBuild:      r.stats.lastBuild.Load(),
		Triangles:      int(r.stats.triangles.Load()),
	}
}
