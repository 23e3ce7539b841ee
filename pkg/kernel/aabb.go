package kernel

import (
	"math"

	"github.com/deadsy/sdfx/sdf"
)

// AABB is an axis-aligned bounding box.
type AABB struct {
	Min Vec3 `json:"min"`
	Max Vec3 `json:"max"`
}

// EmptyAABB returns a box that contains nothing; the first Extend sets both
// corners to that point.
func EmptyAABB() AABB {
	return AABB{
		Min: V(math.MaxFloat64, math.MaxFloat64, math.MaxFloat64),
		Max: V(-math.MaxFloat64, -math.MaxFloat64, -math.MaxFloat64),
	}
}

// BoundsOf returns the box spanning all points.
func BoundsOf(points []Vec3) AABB {
	b := EmptyAABB()
	for _, p := range points {
		b.Extend(p)
	}
	return b
}

// FromBox3 converts an sdfx box.
func FromBox3(b sdf.Box3) AABB {
	return AABB{Min: b.Min, Max: b.Max}
}

// Box3 converts the box to its sdfx counterpart.
func (b AABB) Box3() sdf.Box3 {
	return sdf.Box3{Min: b.Min, Max: b.Max}
}

// Extend grows the box to include p.
func (b *AABB) Extend(p Vec3) {
	b.Min = b.Min.Min(p)
	b.Max = b.Max.Max(p)
}

// Union grows the box to include o.
func (b *AABB) Union(o AABB) {
	if o.IsEmpty() {
		return
	}
	b.Extend(o.Min)
	b.Extend(o.Max)
}

// IsEmpty reports whether the box has never been extended.
func (b AABB) IsEmpty() bool {
	return b.Min.X > b.Max.X || b.Min.Y > b.Max.Y || b.Min.Z > b.Max.Z
}

// Contains reports whether p lies inside the box, boundary included.
func (b AABB) Contains(p Vec3) bool {
	return p.X >= b.Min.X && p.X <= b.Max.X &&
		p.Y >= b.Min.Y && p.Y <= b.Max.Y &&
		p.Z >= b.Min.Z && p.Z <= b.Max.Z
}

// Size returns the extent along each axis.
func (b AABB) Size() Vec3 {
	return b.Max.Sub(b.Min)
}

// Center returns the midpoint of the box.
func (b AABB) Center() Vec3 {
	return Lerp(b.Min, b.Max, 0.5)
}

// Corners returns the bottom face (y = min) counter-clockwise from Min
// followed by the top face in the same order.
func (b AABB) Corners() [8]Vec3 {
	lo, hi := b.Min, b.Max
	return [8]Vec3{
		lo,
		V(hi.X, lo.Y, lo.Z),
		V(hi.X, lo.Y, hi.Z),
		V(lo.X, lo.Y, hi.Z),
		V(lo.X, hi.Y, lo.Z),
		V(hi.X, hi.Y, lo.Z),
		hi,
		V(lo.X, hi.Y, hi.Z),
	}
}

// Subdivide splits the box into g*g*g equal voxels, ordered x outermost and
// z innermost.
func (b AABB) Subdivide(g int) []AABB {
	if g <= 0 {
		return nil
	}
	size := b.Size()
	step := V(size.X/float64(g), size.Y/float64(g), size.Z/float64(g))

	out := make([]AABB, 0, g*g*g)
	for x := 0; x < g; x++ {
		for y := 0; y < g; y++ {
			for z := 0; z < g; z++ {
				lo := b.Min.Add(V(float64(x)*step.X, float64(y)*step.Y, float64(z)*step.Z))
				out = append(out, AABB{Min: lo, Max: lo.Add(step)})
			}
		}
	}
	return out
}

// Centroids returns the centers of the voxels produced by Subdivide.
func (b AABB) Centroids(g int) []Vec3 {
	voxels := b.Subdivide(g)
	out := make([]Vec3, len(voxels))
	for i, v := range voxels {
		out[i] = v.Center()
	}
	return out
}
