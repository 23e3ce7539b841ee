// Package kernel holds the geometry primitives the rest of cityview is built
// on: vectors, collinearity and segment tests in the ground (X-Z) plane,
// ring simplification, ear-clipping triangulation, bounding boxes and
// principal-axis alignment of footprints.
//
// The ground plane is X-Z with Y up. A ring is counter-clockwise when it
// turns left viewed from +Y, which is the sign convention used by Orientation
// and SignedAreaXZ.
package kernel

import (
	"errors"
	"math"

	v3 "github.com/deadsy/sdfx/vec/v3"
)

// ErrGeometryDegenerate is returned when a ring or point set cannot produce
// usable geometry (too few points, no ear found in a full pass, zero spread).
var ErrGeometryDegenerate = errors.New("degenerate geometry")

// Vec3 is the vector type used throughout the kernel.
type Vec3 = v3.Vec

// V is shorthand for building a Vec3.
func V(x, y, z float64) Vec3 {
	return Vec3{X: x, Y: y, Z: z}
}

// Normalize returns v scaled to unit length. A zero vector is returned
// unchanged instead of producing NaNs.
func Normalize(v Vec3) Vec3 {
	l := v.Length()
	if l == 0 {
		return v
	}
	return Vec3{X: v.X / l, Y: v.Y / l, Z: v.Z / l}
}

// Lerp mixes a and b by t.
func Lerp(a, b Vec3, t float64) Vec3 {
	return Vec3{
		X: a.X + (b.X-a.X)*t,
		Y: a.Y + (b.Y-a.Y)*t,
		Z: a.Z + (b.Z-a.Z)*t,
	}
}

// IsFinite reports whether all components are finite.
func IsFinite(v Vec3) bool {
	return !math.IsNaN(v.X) && !math.IsInf(v.X, 0) &&
		!math.IsNaN(v.Y) && !math.IsInf(v.Y, 0) &&
		!math.IsNaN(v.Z) && !math.IsInf(v.Z, 0)
}

// Degrees converts radians to degrees.
func Degrees(rad float64) float64 {
	return rad * 180 / math.Pi
}

// Radians converts degrees to radians.
func Radians(deg float64) float64 {
	return deg * math.Pi / 180
}
