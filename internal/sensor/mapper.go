package sensor

import (
	"errors"
	"fmt"
	"math"

	"github.com/golang/geo/r3"

	dmath "github.com/Faultbox/depthmesh/pkg/math"
)

// CoordinateMapper maps a depth cell and its reading to the matching colour
// pixel and to a camera-space point in metres (X right, Y up, Z forward).
type CoordinateMapper interface {
	DepthToColor(x, y int, depth uint16) (cx, cy float64)
	DepthToCamera(x, y int, depth uint16) r3.Vector
}

// ErrNoIntrinsics is returned when camera intrinsics are missing or invalid.
var ErrNoIntrinsics = errors.New("camera intrinsic parameters are not available")

// Intrinsics are pinhole parameters of one camera.
type Intrinsics struct {
	Width  int     `yaml:"width"`
	Height int     `yaml:"height"`
	Fx     float64 `yaml:"fx"`
	Fy     float64 `yaml:"fy"`
	Ppx    float64 `yaml:"ppx"`
	Ppy    float64 `yaml:"ppy"`
}

// CheckValid reports whether the intrinsics can be used for projection.
func (in *Intrinsics) CheckValid() error {
	if in == nil {
		return ErrNoIntrinsics
	}
	if in.Width <= 0 || in.Height <= 0 {
		return fmt.Errorf("%w: invalid size (%d, %d)", ErrNoIntrinsics, in.Width, in.Height)
	}
	if in.Fx <= 0 {
		return fmt.Errorf("%w: invalid focal length Fx = %v", ErrNoIntrinsics, in.Fx)
	}
	if in.Fy <= 0 {
		return fmt.Errorf("%w: invalid focal length Fy = %v", ErrNoIntrinsics, in.Fy)
	}
	return nil
}

// PixelToPoint back-projects pixel (x, y) at distance z (metres).
// Image y grows downwards; the returned Y grows upwards.
func (in *Intrinsics) PixelToPoint(x, y, z float64) r3.Vector {
	return r3.Vector{
		X: (x - in.Ppx) / in.Fx * z,
		Y: -(y - in.Ppy) / in.Fy * z,
		Z: z,
	}
}

// PointToPixel projects p onto the image plane without rounding. Points on
// the camera plane map to (-1, -1) so bounds checks reject them.
func (in *Intrinsics) PointToPixel(p r3.Vector) (float64, float64) {
	if p.Z == 0 {
		return -1, -1
	}
	return p.X/p.Z*in.Fx + in.Ppx, -p.Y/p.Z*in.Fy + in.Ppy
}

// Pinhole maps between a depth camera and a colour camera that share an
// orientation, offset by Baseline (metres, in depth camera space).
type Pinhole struct {
	Depth    Intrinsics `yaml:"depth"`
	Color    Intrinsics `yaml:"color"`
	Baseline r3.Vector  `yaml:"baseline"`
}

// CheckValid validates both cameras.
func (p *Pinhole) CheckValid() error {
	if err := p.Depth.CheckValid(); err != nil {
		return fmt.Errorf("depth: %w", err)
	}
	if err := p.Color.CheckValid(); err != nil {
		return fmt.Errorf("color: %w", err)
	}
	return nil
}

// DepthToCamera implements CoordinateMapper.
func (p *Pinhole) DepthToCamera(x, y int, depth uint16) r3.Vector {
	return p.Depth.PixelToPoint(float64(x), float64(y), float64(depth)/1000)
}

// DepthToColor implements CoordinateMapper.
func (p *Pinhole) DepthToColor(x, y int, depth uint16) (float64, float64) {
	if depth == 0 {
		return -1, -1
	}
	pt := p.DepthToCamera(x, y, depth).Sub(p.Baseline)
	return p.Color.PointToPixel(pt)
}

// ToWorld converts a camera-space point in metres to the output convention:
// centimetres with X forward, Y right, Z up.
func ToWorld(p r3.Vector) dmath.Vec3 {
	return dmath.Vec3{
		X: float32(p.Z * 100),
		Y: float32(p.X * 100),
		Z: float32(p.Y * 100),
	}
}

// RoundPixel rounds a colour coordinate half-up, as the projector does.
func RoundPixel(v float64) int {
	return int(math.Floor(v + 0.5))
}
