package kernel

import (
	"fmt"
	"math"

	"github.com/paulmach/orb"
)

// EarthRadius is the WGS84 equatorial radius in meters.
const EarthRadius = 6378137.0

// Projection maps a 2-D source coordinate onto the ground plane (y = 0).
type Projection func(p orb.Point) Vec3

// Mercator projects (lng, lat) in degrees to spherical Web Mercator meters.
// Northing maps to -Z so that north is away from a camera at yaw -90.
func Mercator(p orb.Point) Vec3 {
	x := EarthRadius * Radians(p.Lon())
	y := EarthRadius * math.Log(math.Tan(math.Pi/4+Radians(p.Lat())/2))
	return V(x, 0, -y)
}

// Planar places (x, y) directly at (x, 0, y) for data already in meters.
func Planar(p orb.Point) Vec3 {
	return V(p[0], 0, p[1])
}

// ProjectionByName resolves "mercator" or "planar".
func ProjectionByName(name string) (Projection, error) {
	switch name {
	case "", "mercator":
		return Mercator, nil
	case "planar":
		return Planar, nil
	}
	return nil, fmt.Errorf("kernel: unknown projection %q", name)
}

// ProjectRing applies proj to every point of ring.
func ProjectRing(ring orb.Ring, proj Projection) []Vec3 {
	out := make([]Vec3, len(ring))
	for i, p := range ring {
		out[i] = proj(p)
	}
	return out
}
