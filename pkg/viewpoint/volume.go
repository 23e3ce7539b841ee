package viewpoint

import "github.com/chazu/cityview/pkg/kernel"

// Side-face normals of a box in its local frame, in tie-break order.
var sideNormals = [4]kernel.Vec3{
	{X: -1}, {X: 1}, {Z: -1}, {Z: 1},
}

// VolumePoints lays an h*v*d lattice through box, corners included, and
// gives each point the normal of its nearest vertical side face. Points are
// ordered with h outermost and d innermost.
func VolumePoints(box kernel.OrientedBox, h, v, d int) []Point {
	lo, size := box.Bounds.Min, box.Bounds.Size()
	xs := kernel.Linspace(0, 1, h)
	ys := kernel.Linspace(0, 1, v)
	zs := kernel.Linspace(0, 1, d)

	out := make([]Point, 0, h*v*d)
	for _, fx := range xs {
		for _, fy := range ys {
			for _, fz := range zs {
				local := kernel.V(lo.X+size.X*fx, lo.Y+size.Y*fy, lo.Z+size.Z*fz)
				out = append(out, Point{
					Position: box.ToWorld(local),
					Normal:   box.NormalToWorld(nearestSide(box.Bounds, local)),
				})
			}
		}
	}
	return out
}

func nearestSide(b kernel.AABB, p kernel.Vec3) kernel.Vec3 {
	dist := [4]float64{
		p.X - b.Min.X,
		b.Max.X - p.X,
		p.Z - b.Min.Z,
		b.Max.Z - p.Z,
	}
	best := 0
	for i := 1; i < len(dist); i++ {
		if dist[i] < dist[best] {
			best = i
		}
	}
	return sideNormals[best]
}
