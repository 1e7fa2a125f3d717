// Package camera provides the orbit camera used to inspect meshes.
package camera

import (
	gomath "math"

	"github.com/Faultbox/depthmesh/pkg/math"
)

// OrbitCamera orbits around a center point in Y-up view space.
type OrbitCamera struct {
	Center math.Vec3

	Distance  float32 // from the center
	RotationX float32 // pitch, radians
	RotationY float32 // yaw, radians

	MinDistance float32
	MaxDistance float32
	MinPitch    float32
	MaxPitch    float32

	DragSensitivity float32
	ZoomSensitivity float32

	FovY float32 // radians
	Near float32
	Far  float32
}

// NewOrbitCamera returns a camera a couple of metres back from the origin,
// in centimetres.
func NewOrbitCamera() *OrbitCamera {
	return &OrbitCamera{
		Distance:        250.0,
		RotationX:       0.2,
		RotationY:       0.0,
		MinDistance:     20.0,
		MaxDistance:     2000.0,
		MinPitch:        -1.4,
		MaxPitch:        1.4,
		DragSensitivity: 0.005,
		ZoomSensitivity: 0.1,
		FovY:            float32(gomath.Pi / 4),
		Near:            1,
		Far:             5000,
	}
}

// Position returns the camera position.
func (c *OrbitCamera) Position() math.Vec3 {
	pitch, yaw := float64(c.RotationX), float64(c.RotationY)
	offset := math.Vec3{
		X: c.Distance * float32(gomath.Cos(pitch)*gomath.Sin(yaw)),
		Y: c.Distance * float32(gomath.Sin(pitch)),
		Z: c.Distance * float32(gomath.Cos(pitch)*gomath.Cos(yaw)),
	}
	return c.Center.Add(offset)
}

// ViewMatrix returns the view matrix for this camera.
func (c *OrbitCamera) ViewMatrix() math.Mat4 {
	return math.LookAt(c.Position(), c.Center, math.Vec3{Y: 1})
}

// ViewProjection returns projection * view for a viewport of the given
// aspect ratio.
func (c *OrbitCamera) ViewProjection(aspect float32) math.Mat4 {
	if aspect <= 0 {
		aspect = 1
	}
	return math.Perspective(c.FovY, aspect, c.Near, c.Far).Mul(c.ViewMatrix())
}

// HandleDrag updates rotation based on mouse drag delta.
func (c *OrbitCamera) HandleDrag(deltaX, deltaY float32) {
	c.RotationY -= deltaX * c.DragSensitivity
	c.RotationX += deltaY * c.DragSensitivity
	c.RotationX = clamp(c.RotationX, c.MinPitch, c.MaxPitch)
}

// HandleZoom updates distance based on scroll wheel delta.
func (c *OrbitCamera) HandleZoom(delta float32) {
	c.Distance -= delta * c.Distance * c.ZoomSensitivity
	c.Distance = clamp(c.Distance, c.MinDistance, c.MaxDistance)
}

// FitToBounds centres the camera on a box and backs off far enough to see
// all of it.
func (c *OrbitCamera) FitToBounds(lo, hi math.Vec3) {
	c.Center = lo.Add(hi).Scale(0.5)
	radius := hi.Sub(lo).Length() / 2
	d := radius / float32(gomath.Tan(float64(c.FovY)/2))
	c.Distance = clamp(d, c.MinDistance, c.MaxDistance)
	c.RotationX = 0.2
	c.RotationY = 0
}

func clamp(v, lo, hi float32) float32 {
	return max(lo, min(hi, v))
}
