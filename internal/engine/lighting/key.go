// Package lighting provides the directional key light of the preview renderer.
package lighting

import (
	"github.com/chewxy/math32"

	"github.com/Faultbox/gltfview/pkg/math"
)

// Default key light angles and color.
const (
	DefaultAzimuth   = 45
	DefaultElevation = 50
)

// DefaultColor is the key light radiance multiplied into diffuse shading.
var DefaultColor = [3]float32{0.8, 0.8, 0.8}

// KeyLight holds a directional light expressed as angles in degrees.
type KeyLight struct {
	Azimuth   float32 // around +Y, 0 points at +Z
	Elevation float32 // above the horizon
	Color     [3]float32
}

// DefaultKeyLight returns the light used when nothing else is configured.
func DefaultKeyLight() KeyLight {
	return KeyLight{Azimuth: DefaultAzimuth, Elevation: DefaultElevation, Color: DefaultColor}
}

// Direction returns the unit vector pointing from the surface toward the light.
func (k KeyLight) Direction() math.Vec3 {
	return Direction(k.Azimuth, k.Elevation)
}

// Direction converts azimuth and elevation in degrees to a unit vector.
func Direction(azimuth, elevation float32) math.Vec3 {
	az := azimuth * math32.Pi / 180
	el := elevation * math32.Pi / 180
	return math.Vec3{
		X: math32.Cos(el) * math32.Sin(az),
		Y: math32.Sin(el),
		Z: math32.Cos(el) * math32.Cos(az),
	}
}
