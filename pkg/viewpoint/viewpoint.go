// Package viewpoint enumerates the camera setups used to sample a mesh: a
// set of positions on or inside the mesh, each paired with a fan of yaw
// angles facing away from the nearest surface.
package viewpoint

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/chazu/cityview/pkg/kernel"
	"github.com/chazu/cityview/pkg/mesh"
)

var (
	ErrInvalidGranularity = errors.New("viewpoint: invalid granularity")
	ErrNoFootprint        = errors.New("viewpoint: mesh has no footprint")
)

// Setup is one camera placement. It is comparable and used as a map key;
// two setups are the same iff position and yaw are bit-identical.
type Setup struct {
	Position kernel.Vec3
	Yaw      float64
}

// Granularity is the sampling resolution: horizontal, vertical and depth
// position counts and the number of yaw angles per position.
type Granularity struct {
	H int `json:"h"`
	V int `json:"v"`
	D int `json:"d"`
	A int `json:"a"`
}

// GranularityFrom reads the [h, v, d, a] form used in configuration.
func GranularityFrom(g [4]int) Granularity {
	return Granularity{H: g[0], V: g[1], D: g[2], A: g[3]}
}

// Array is the inverse of GranularityFrom.
func (g Granularity) Array() [4]int {
	return [4]int{g.H, g.V, g.D, g.A}
}

// Validate rejects non-positive components.
func (g Granularity) Validate() error {
	if g.H <= 0 || g.V <= 0 || g.D <= 0 || g.A <= 0 {
		return fmt.Errorf("%w: %v", ErrInvalidGranularity, g.Array())
	}
	return nil
}

func (g Granularity) String() string {
	return fmt.Sprintf("[%d %d %d %d]", g.H, g.V, g.D, g.A)
}

// Mode selects where sample points are placed.
type Mode int

const (
	ModeAuto    Mode = iota // surface for extruded meshes, volume otherwise
	ModeSurface             // on the walls of the footprint
	ModeVolume              // on a lattice through the oriented bounds
)

func (mode Mode) String() string {
	switch mode {
	case ModeAuto:
		return "auto"
	case ModeSurface:
		return "surface"
	case ModeVolume:
		return "volume"
	default:
		return fmt.Sprintf("Mode(%d)", int(mode))
	}
}

// ParseMode resolves a mode name. The empty string is ModeAuto.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "auto":
		return ModeAuto, nil
	case "surface":
		return ModeSurface, nil
	case "volume":
		return ModeVolume, nil
	}
	return ModeAuto, fmt.Errorf("viewpoint: unknown mode %q", s)
}

// Resolve turns ModeAuto into a concrete mode for m.
func (mode Mode) Resolve(m *mesh.Mesh) Mode {
	if mode != ModeAuto {
		return mode
	}
	if m.Extruded {
		return ModeSurface
	}
	return ModeVolume
}

// Point is a sample position and the outward normal of the surface it was
// derived from.
type Point struct {
	Position kernel.Vec3
	Normal   kernel.Vec3
}

// Yaws returns a angles in degrees, spread over the half-turn centred on n.
func Yaws(n kernel.Vec3, a int) []float64 {
	base := kernel.Degrees(math.Atan2(n.Z, n.X))
	step := 180.0 / float64(a)
	out := make([]float64, a)
	for i := range out {
		out[i] = base - 90 + float64(i)*step
	}
	return out
}

// Generate produces the camera setups for m. The order is points in
// generation order, then yaws.
func Generate(m *mesh.Mesh, g Granularity, mode Mode) ([]Setup, error) {
	if err := g.Validate(); err != nil {
		return nil, err
	}
	if m == nil {
		return nil, fmt.Errorf("viewpoint: nil mesh: %w", ErrNoFootprint)
	}

	var (
		points []Point
		err    error
	)
	switch mode.Resolve(m) {
	case ModeSurface:
		points, err = SurfacePoints(m, g.H, g.V)
	case ModeVolume:
		points = VolumePoints(m.Oriented, g.H, g.V, g.D)
	default:
		err = fmt.Errorf("viewpoint: unknown mode %v", mode)
	}
	if err != nil {
		return nil, err
	}

	setups := make([]Setup, 0, len(points)*g.A)
	for _, p := range points {
		for _, yaw := range Yaws(p.Normal, g.A) {
			setups = append(setups, Setup{Position: p.Position, Yaw: yaw})
		}
	}
	return setups, nil
}

// Count is the number of setups Generate returns for a resolved mode.
func Count(g Granularity, mode Mode) int {
	if mode == ModeVolume {
		return g.H * g.V * g.D * g.A
	}
	return g.H * g.V * g.A
}
