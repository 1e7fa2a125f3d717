// Package lighting provides the directional light used to shade meshes.
package lighting

import (
	"math"

	dmath "github.com/Faultbox/depthmesh/pkg/math"
)

// Directional is a light at infinity. Angles are in degrees in mesh space:
// azimuth 0 puts the light behind the sensor, 90 to its left; elevation is
// measured up from the horizontal plane.
type Directional struct {
	Azimuth   float32
	Elevation float32
	Ambient   float32 // 0..1, floor of the diffuse term
}

// Default returns a key light above and to the side of the sensor.
func Default() Directional {
	return Directional{Azimuth: 30, Elevation: 45, Ambient: 0.35}
}

// ToLight returns the unit vector pointing from a surface towards the light.
func (d Directional) ToLight() dmath.Vec3 {
	return SunDirection(d.Azimuth, d.Elevation)
}

// Ray returns the direction the light travels, the negation of ToLight.
func (d Directional) Ray() dmath.Vec3 {
	return d.ToLight().Scale(-1)
}

// SunDirection converts azimuth/elevation angles to a unit vector pointing
// towards the light in mesh space (X forward, Y right, Z up).
func SunDirection(azimuth, elevation float32) dmath.Vec3 {
	az := float64(azimuth) * math.Pi / 180.0
	el := float64(elevation) * math.Pi / 180.0

	return dmath.Vec3{
		X: float32(-math.Cos(el) * math.Cos(az)),
		Y: float32(-math.Cos(el) * math.Sin(az)),
		Z: float32(math.Sin(el)),
	}
}
