package lighting

import (
	"math"
	"testing"

	dmath "github.com/Faultbox/depthmesh/pkg/math"
)

func near(a, b dmath.Vec3) bool {
	const eps = 1e-5
	return math.Abs(float64(a.X-b.X)) < eps &&
		math.Abs(float64(a.Y-b.Y)) < eps &&
		math.Abs(float64(a.Z-b.Z)) < eps
}

func TestSunDirection(t *testing.T) {
	tests := []struct {
		name          string
		azimuth, elev float32
		want          dmath.Vec3
	}{
		{"behind sensor", 0, 0, dmath.Vec3{X: -1}},
		{"overhead", 0, 90, dmath.Vec3{Z: 1}},
		{"left", 90, 0, dmath.Vec3{Y: -1}},
		{"front", 180, 0, dmath.Vec3{X: 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SunDirection(tt.azimuth, tt.elev)
			if !near(got, tt.want) {
				t.Errorf("SunDirection(%v, %v) = %+v, want %+v", tt.azimuth, tt.elev, got, tt.want)
			}
		})
	}
}

func TestDirectional(t *testing.T) {
	d := Default()
	if l := d.ToLight().Length(); math.Abs(float64(l-1)) > 1e-5 {
		t.Errorf("ToLight length = %v, want 1", l)
	}
	if !near(d.Ray(), d.ToLight().Scale(-1)) {
		t.Errorf("Ray = %+v, want the negated ToLight", d.Ray())
	}
	if d.ToLight().Z <= 0 {
		t.Error("default light should be above the horizon")
	}
}
