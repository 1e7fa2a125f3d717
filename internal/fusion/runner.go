package fusion

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/atomic"
	"go.uber.org/zap"

	"github.com/Faultbox/depthmesh/internal/logger"
	"github.com/Faultbox/depthmesh/internal/mesh"
)

// DefaultInterval is the pause between mesh extractions.
const DefaultInterval = 160 * time.Millisecond

// Runner extracts meshes from an engine on a background goroutine and
// keeps the newest one for the consumer.
type Runner struct {
	// Interval is the pause between extractions. Set it before Start.
	Interval time.Duration

	engine Engine
	params Params
	log    *zap.Logger

	running  atomic.Bool
	cancel   context.CancelFunc
	done     chan struct{}
	latest   chan *mesh.Mesh
	received atomic.Uint64
	rejected atomic.Uint64
}

// NewRunner returns an unstarted runner. A nil log discards output.
func NewRunner(engine Engine, params Params, log *zap.Logger) *Runner {
	return &Runner{
		Interval: DefaultInterval,
		engine:   engine,
		params:   params,
		log:      logger.OrNop(log),
		latest:   make(chan *mesh.Mesh, 1),
	}
}

// Start starts the engine and the extraction goroutine.
func (r *Runner) Start(ctx context.Context) error {
	if r.running.Load() {
		return errors.New("fusion runner already started")
	}
	if err := r.params.Validate(); err != nil {
		return fmt.Errorf("fusion params: %w", err)
	}
	if err := r.engine.Start(ctx, r.params); err != nil {
		return fmt.Errorf("starting fusion engine: %w", err)
	}

	loopCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	r.cancel = cancel
	r.done = make(chan struct{})
	r.running.Store(true)
	go r.run(loopCtx)

	r.log.Info("fusion started",
		zap.Float32("voxelsPerMeter", r.params.VoxelsPerMeter),
		zap.Int("voxelsX", r.params.VoxelCountX),
		zap.Duration("interval", r.Interval))
	return nil
}

// Stop stops the engine and waits for the extraction goroutine.
func (r *Runner) Stop() error {
	if !r.running.CompareAndSwap(true, false) {
		return nil
	}
	r.cancel()
	err := r.engine.Stop()
	<-r.done
	r.log.Info("fusion stopped",
		zap.Uint64("meshes", r.received.Load()),
		zap.Uint64("rejected", r.rejected.Load()))
	return err
}

// Poll returns the newest converted mesh not yet polled.
func (r *Runner) Poll() (*mesh.Mesh, bool) {
	select {
	case m := <-r.latest:
		return m, true
	default:
		return nil, false
	}
}

func (r *Runner) run(ctx context.Context) {
	defer close(r.done)

	for r.running.Load() {
		r.extract(ctx)

		select {
		case <-ctx.Done():
			return
		case <-time.After(r.Interval):
		}
	}
}

func (r *Runner) extract(ctx context.Context) {
	cm, err := r.engine.CalculateMesh(ctx)
	switch {
	case errors.Is(err, ErrNoMesh):
		return
	case err != nil:
		if ctx.Err() == nil {
			r.log.Warn("mesh extraction failed", zap.Error(err))
		}
		return
	}

	m, err := Convert(cm)
	cm.Release()
	if err != nil {
		r.rejected.Inc()
		r.log.Debug("fusion mesh rejected", zap.Error(err))
		return
	}
	r.received.Inc()
	r.publish(m)
}

// publish replaces any mesh the consumer has not taken yet.
func (r *Runner) publish(m *mesh.Mesh) {
	select {
	case <-r.latest:
	default:
	}
	select {
	case r.latest <- m:
	default:
	}
}
