package math

import (
	"math"
	"testing"
)

func TestIdentity(t *testing.T) {
	m := Identity()
	if m[0] != 1 || m[5] != 1 || m[10] != 1 || m[15] != 1 {
		t.Error("Identity diagonal should be 1")
	}
	if m[1] != 0 || m[4] != 0 {
		t.Error("Identity off-diagonal should be 0")
	}
}

func TestMulIdentity(t *testing.T) {
	m := Translate(Vec3{1, 2, 3})
	result := m.Mul(Identity())

	if result != m {
		t.Errorf("M * I should equal M: got %v, want %v", result, m)
	}
}

func TestTranslateTransform(t *testing.T) {
	m := Translate(Vec3{10, 20, 30})
	got := m.TransformVec3(Vec3{1, 2, 3})

	if got != (Vec3{11, 22, 33}) {
		t.Errorf("TransformVec3 = %v, want (11, 22, 33)", got)
	}
}

func TestLookAtMovesEyeToOrigin(t *testing.T) {
	eye := Vec3{0, 0, 5}
	view := LookAt(eye, Vec3{}, Vec3{0, 1, 0})
	got := view.TransformVec3(eye)

	if got.Length() > 1e-5 {
		t.Errorf("eye in view space = %v, want origin", got)
	}

	// The target lies straight ahead on -Z.
	target := view.TransformVec3(Vec3{})
	if math.Abs(float64(target.Z+5)) > 1e-5 {
		t.Errorf("target in view space = %v, want z=-5", target)
	}
}

func TestPerspective(t *testing.T) {
	m := Perspective(float32(math.Pi/2), 1, 1, 100)

	if math.Abs(float64(m[0]-1)) > 1e-5 || math.Abs(float64(m[5]-1)) > 1e-5 {
		t.Errorf("90 degree fov should give unit focal terms, got %f %f", m[0], m[5])
	}
	if m[11] != -1 {
		t.Errorf("m[11] = %f, want -1", m[11])
	}
}
