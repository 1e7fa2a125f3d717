package camera

import (
	gomath "math"
	"testing"

	"github.com/Faultbox/depthmesh/pkg/math"
)

func near(a, b float32) bool {
	return gomath.Abs(float64(a-b)) < 1e-3
}

func TestPositionLooksDownMinusZ(t *testing.T) {
	c := NewOrbitCamera()
	c.RotationX, c.RotationY = 0, 0
	c.Distance = 100

	p := c.Position()
	if !near(p.X, 0) || !near(p.Y, 0) || !near(p.Z, 100) {
		t.Errorf("position = %+v, want (0, 0, 100)", p)
	}
}

func TestZoomClamps(t *testing.T) {
	tests := []struct {
		name  string
		delta float32
		steps int
		want  float32
	}{
		{"zoom in", 1, 100, 20},
		{"zoom out", -1, 100, 2000},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewOrbitCamera()
			for range tt.steps {
				c.HandleZoom(tt.delta)
			}
			if c.Distance != tt.want {
				t.Errorf("distance = %v, want %v", c.Distance, tt.want)
			}
		})
	}
}

func TestDragClampsPitch(t *testing.T) {
	c := NewOrbitCamera()
	c.HandleDrag(0, 10000)
	if c.RotationX != c.MaxPitch {
		t.Errorf("pitch = %v, want %v", c.RotationX, c.MaxPitch)
	}
	c.HandleDrag(200, -20000)
	if c.RotationX != c.MinPitch {
		t.Errorf("pitch = %v, want %v", c.RotationX, c.MinPitch)
	}
	if !near(c.RotationY, -1) {
		t.Errorf("yaw = %v, want -1", c.RotationY)
	}
}

func TestFitToBounds(t *testing.T) {
	c := NewOrbitCamera()
	c.FitToBounds(math.Vec3{X: -100, Y: -50, Z: -300}, math.Vec3{X: 100, Y: 50, Z: -100})

	want := math.Vec3{Y: 0, Z: -200}
	if !near(c.Center.X, want.X) || !near(c.Center.Y, want.Y) || !near(c.Center.Z, want.Z) {
		t.Errorf("center = %+v, want %+v", c.Center, want)
	}
	if c.Distance <= 150 {
		t.Errorf("distance %v too close to see a 300 cm box", c.Distance)
	}
}
