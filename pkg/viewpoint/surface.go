package viewpoint

import (
	"fmt"

	"github.com/chazu/cityview/pkg/kernel"
	"github.com/chazu/cityview/pkg/mesh"
)

var up = kernel.V(0, 1, 0)

// SurfacePoints places h points around the footprint perimeter, each at the
// arc-length midpoint of one of h equal segments, and repeats them at v
// heights from the ground to the top of the mesh.
func SurfacePoints(m *mesh.Mesh, h, v int) ([]Point, error) {
	ring := m.BaseRing()
	n := len(ring)
	if n < 3 {
		return nil, fmt.Errorf("viewpoint: mesh %s has %d base vertices: %w", m.Name, n, ErrNoFootprint)
	}

	lengths := make([]float64, n)
	var perimeter float64
	for i := range ring {
		lengths[i] = ring[(i+1)%n].Sub(ring[i]).Length()
		perimeter += lengths[i]
	}
	if perimeter == 0 {
		return nil, fmt.Errorf("viewpoint: mesh %s has zero perimeter: %w", m.Name, ErrNoFootprint)
	}

	levels := kernel.Linspace(0, m.Height(), v)
	out := make([]Point, 0, h*v)
	edge, walked := 0, 0.0
	for k := 0; k < h; k++ {
		s := (float64(k) + 0.5) / float64(h) * perimeter
		for edge < n-1 && walked+lengths[edge] < s {
			walked += lengths[edge]
			edge++
		}
		a, b := ring[edge], ring[(edge+1)%n]
		t := 0.0
		if lengths[edge] > 0 {
			t = (s - walked) / lengths[edge]
		}
		foot := kernel.Lerp(a, b, t)
		normal := kernel.Normalize(kernel.Normalize(b.Sub(a)).Cross(up))

		for _, y := range levels {
			out = append(out, Point{
				Position: kernel.V(foot.X, foot.Y+y, foot.Z),
				Normal:   normal,
			})
		}
	}
	return out, nil
}
