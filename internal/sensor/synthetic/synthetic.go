// Package synthetic implements a sensor.FrameSource that renders a simple
// animated scene: a back wall and an orbiting sphere tracked as body 0.
package synthetic

import (
	"context"
	"errors"
	"math"
	"math/rand/v2"
	"time"

	"github.com/golang/geo/r3"

	"github.com/Faultbox/depthmesh/internal/body"
	"github.com/Faultbox/depthmesh/internal/sensor"
	dmath "github.com/Faultbox/depthmesh/pkg/math"
)

// ErrInjected is returned by Open when Config.FailStage names a stage.
var ErrInjected = errors.New("injected failure")

// Config describes the synthetic scene and stream timing.
type Config struct {
	Depth sensor.Size
	Color sensor.Size
	// FPS is the frame rate. When <= 0 every AcquireDepth yields a new frame.
	FPS float64
	// Seed makes noise and dropout reproducible per frame.
	Seed uint64
	// NoiseMM is the peak depth noise in millimetres.
	NoiseMM int
	// HoleRate is the fraction of depth cells dropped to zero.
	HoleRate float64
	// WallDistance is the distance of the back wall in metres.
	WallDistance float64
	// FailStage makes Open fail at the named sensor stage.
	FailStage string
	// Clock overrides time.Now.
	Clock func() time.Time
}

// DefaultConfig returns a scene sized like a time-of-flight sensor.
func DefaultConfig() Config {
	return Config{
		Depth:        sensor.Size{Width: 512, Height: 424},
		Color:        sensor.Size{Width: 640, Height: 480},
		FPS:          30,
		Seed:         1,
		NoiseMM:      4,
		HoleRate:     0.01,
		WallDistance: 1.8,
	}
}

const sphereRadius = 0.25

// Source is the synthetic frame source.
type Source struct {
	cfg    Config
	mapper *sensor.Pinhole
	opts   sensor.OpenOptions
	opened bool
	start  time.Time

	frame     int64
	lastDepth int64
	lastColor int64
	lastIndex int64
	lastBody  int64
}

// New returns an unopened source.
func New(cfg Config) *Source {
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	if cfg.WallDistance <= 0 {
		cfg.WallDistance = DefaultConfig().WallDistance
	}
	return &Source{
		cfg: cfg,
		mapper: &sensor.Pinhole{
			Depth: intrinsicsFor(cfg.Depth, 0.714),
			Color: intrinsicsFor(cfg.Color, 0.72),
		},
		lastDepth: -1,
		lastColor: -1,
		lastIndex: -1,
		lastBody:  -1,
	}
}

func intrinsicsFor(s sensor.Size, focal float64) sensor.Intrinsics {
	f := focal * float64(s.Width)
	return sensor.Intrinsics{
		Width:  s.Width,
		Height: s.Height,
		Fx:     f,
		Fy:     f,
		Ppx:    float64(s.Width) / 2,
		Ppy:    float64(s.Height) / 2,
	}
}

// Open implements sensor.FrameSource.
func (s *Source) Open(ctx context.Context, opts sensor.OpenOptions) (sensor.Description, error) {
	if err := ctx.Err(); err != nil {
		return sensor.Description{}, sensor.StageError(sensor.StageOpen, err)
	}

	stages := []string{sensor.StageOpen, sensor.StageDepthReader, sensor.StageColorReader}
	if opts.BodyIndex {
		stages = append(stages, sensor.StageBodyIndexReader)
	}
	if opts.Bodies {
		stages = append(stages, sensor.StageBodyReader)
	}
	for _, stage := range stages {
		if stage == s.cfg.FailStage {
			return sensor.Description{}, sensor.StageError(stage, ErrInjected)
		}
	}
	if err := s.mapper.CheckValid(); err != nil {
		return sensor.Description{}, sensor.StageError(sensor.StageOpen, err)
	}

	s.opts = opts
	s.opened = true
	s.start = s.cfg.Clock()

	desc := sensor.Description{Depth: s.cfg.Depth, Color: s.cfg.Color}
	if opts.BodyIndex {
		desc.BodyIndex = s.cfg.Depth
	}
	return desc, nil
}

// Mapper implements sensor.FrameSource.
func (s *Source) Mapper() (sensor.CoordinateMapper, error) {
	if s.cfg.FailStage == sensor.StageCoordinateMapper {
		return nil, ErrInjected
	}
	return s.mapper, nil
}

// Close implements sensor.FrameSource.
func (s *Source) Close() error {
	s.opened = false
	return nil
}

func (s *Source) currentFrame() int64 {
	if s.cfg.FPS <= 0 {
		return s.frame
	}
	return int64(s.cfg.Clock().Sub(s.start).Seconds() * s.cfg.FPS)
}

func (s *Source) frameTime(n int64) float64 {
	if s.cfg.FPS <= 0 {
		return float64(n) / 30
	}
	return float64(n) / s.cfg.FPS
}

// AcquireDepth implements sensor.FrameSource.
func (s *Source) AcquireDepth(dst *sensor.DepthGrid) error {
	if !s.opened {
		return errors.New("source not open")
	}
	if s.cfg.FPS <= 0 {
		s.frame++
	}
	n := s.currentFrame()
	if n == s.lastDepth {
		return sensor.ErrFrameNotReady
	}
	s.lastDepth = n

	centre := sphereCentre(s.frameTime(n))
	rng := rand.New(rand.NewPCG(s.cfg.Seed, uint64(n)))
	in := &s.mapper.Depth
	for y := 0; y < dst.Height; y++ {
		for x := 0; x < dst.Width; x++ {
			z, _ := s.castDepth(in, x, y, centre)
			if s.cfg.HoleRate > 0 && rng.Float64() < s.cfg.HoleRate {
				z = 0
			}
			if z > 0 && s.cfg.NoiseMM > 0 {
				z += rng.IntN(2*s.cfg.NoiseMM+1) - s.cfg.NoiseMM
			}
			dst.Data[y*dst.Width+x] = uint16(max(z, 0))
		}
	}
	return nil
}

// AcquireColor implements sensor.FrameSource.
func (s *Source) AcquireColor(dst *sensor.ColorGrid) error {
	if !s.opened {
		return errors.New("source not open")
	}
	n := s.currentFrame()
	if n == s.lastColor {
		return sensor.ErrFrameNotReady
	}
	s.lastColor = n

	centre := sphereCentre(s.frameTime(n))
	in := &s.mapper.Color
	for y := 0; y < dst.Height; y++ {
		for x := 0; x < dst.Width; x++ {
			dst.Pix[y*dst.Width+x] = s.shade(in, x, y, centre)
		}
	}
	return nil
}

// AcquireBodyIndex implements sensor.FrameSource.
func (s *Source) AcquireBodyIndex(dst *sensor.BodyIndexGrid) error {
	if !s.opened || !s.opts.BodyIndex {
		return errors.New("body index stream not open")
	}
	n := s.currentFrame()
	if n == s.lastIndex {
		return sensor.ErrFrameNotReady
	}
	s.lastIndex = n

	centre := sphereCentre(s.frameTime(n))
	in := &s.mapper.Depth
	for y := 0; y < dst.Height; y++ {
		for x := 0; x < dst.Width; x++ {
			idx := sensor.NoBody
			if _, onSphere := s.castDepth(in, x, y, centre); onSphere {
				idx = 0
			}
			dst.Data[y*dst.Width+x] = idx
		}
	}
	return nil
}

// AcquireBodies implements sensor.BodySource. Body 0 follows the sphere.
func (s *Source) AcquireBodies(dst []body.Body) error {
	if !s.opened || !s.opts.Bodies {
		return errors.New("body stream not open")
	}
	n := s.currentFrame()
	if n == s.lastBody {
		return sensor.ErrFrameNotReady
	}
	s.lastBody = n

	for i := range dst {
		dst[i].Reset()
	}
	if len(dst) == 0 {
		return nil
	}

	t := s.frameTime(n)
	centre := sphereCentre(t)
	b := &dst[0]
	b.Tracked = true
	b.LeftHand = body.HandOpen
	b.RightHand = body.HandClosed
	if int(t)%2 == 1 {
		b.LeftHand, b.RightHand = b.RightHand, b.LeftHand
	}
	turn := dmath.QuatFromAxisAngle(dmath.Vec3{Z: 1}, float32(t))
	for i := range b.Joints {
		offset := jointOffset(body.JointType(i))
		b.Joints[i].Position = sensor.ToWorld(centre.Add(offset))
		b.Joints[i].Orientation = turn
		b.Joints[i].State = body.Tracked
	}
	return nil
}

// jointOffset places joints on a vertical line through the sphere, spread
// left and right by side.
func jointOffset(j body.JointType) r3.Vector {
	switch j {
	case body.Head:
		return r3.Vector{Y: 0.4}
	case body.Neck, body.SpineShoulder:
		return r3.Vector{Y: 0.3}
	case body.SpineBase:
		return r3.Vector{Y: -0.3}
	case body.HandLeft, body.HandTipLeft, body.ThumbLeft, body.WristLeft, body.ElbowLeft, body.ShoulderLeft:
		return r3.Vector{X: -0.35}
	case body.HandRight, body.HandTipRight, body.ThumbRight, body.WristRight, body.ElbowRight, body.ShoulderRight:
		return r3.Vector{X: 0.35}
	case body.HipLeft, body.KneeLeft, body.AnkleLeft, body.FootLeft:
		return r3.Vector{X: -0.1, Y: -0.6}
	case body.HipRight, body.KneeRight, body.AnkleRight, body.FootRight:
		return r3.Vector{X: 0.1, Y: -0.6}
	default:
		return r3.Vector{}
	}
}

// sphereCentre orbits slowly in front of the wall.
func sphereCentre(t float64) r3.Vector {
	return r3.Vector{
		X: 0.3 * math.Sin(t*0.8),
		Y: 0.1 * math.Cos(t*0.8),
		Z: 1.1 + 0.15*math.Sin(t*0.5),
	}
}

// hitSphere returns the planar depth (metres) at which the ray through
// pixel (x, y) meets the sphere, or 0.
func hitSphere(ray, centre r3.Vector) float64 {
	a := ray.Dot(ray)
	b := -2 * ray.Dot(centre)
	c := centre.Dot(centre) - sphereRadius*sphereRadius
	disc := b*b - 4*a*c
	if disc < 0 {
		return 0
	}
	s := (-b - math.Sqrt(disc)) / (2 * a)
	if s <= 0 {
		return 0
	}
	return s
}

func pixelRay(in *sensor.Intrinsics, x, y int) r3.Vector {
	return in.PixelToPoint(float64(x), float64(y), 1)
}

// castDepth returns the depth in millimetres at (x, y) and whether it hit the sphere.
func (s *Source) castDepth(in *sensor.Intrinsics, x, y int, centre r3.Vector) (int, bool) {
	ray := pixelRay(in, x, y)
	if z := hitSphere(ray, centre); z > 0 {
		return int(math.Round(z * 1000)), true
	}
	return int(math.Round(s.cfg.WallDistance * 1000)), false
}

func (s *Source) shade(in *sensor.Intrinsics, x, y int, centre r3.Vector) sensor.BGRA {
	ray := pixelRay(in, x, y)
	if z := hitSphere(ray, centre); z > 0 {
		n := ray.Mul(z).Sub(centre).Normalize()
		light := math.Max(0.2, n.Dot(r3.Vector{X: -0.4, Y: 0.5, Z: -0.77}))
		return sensor.BGRA{B: 40, G: 60, R: uint8(55 + 200*light), A: 255}
	}

	// Checkerboard on the wall, 10 cm squares.
	hit := ray.Mul(s.cfg.WallDistance)
	cx := int(math.Floor(hit.X / 0.1))
	cy := int(math.Floor(hit.Y / 0.1))
	if (cx+cy)&1 == 0 {
		return sensor.BGRA{B: 200, G: 200, R: 200, A: 255}
	}
	return sensor.BGRA{B: 90, G: 120, R: 80, A: 255}
}
