package kernel

import "fmt"

// SimplifyRing drops points that add no shape to a closed ring. A point is
// dropped when it lies in the same direction from the last kept point as its
// successor does, which also removes near-duplicates. The wrap-around
// neighbours of the first and last points are checked too. The input is not
// modified.
func SimplifyRing(ring []Vec3) []Vec3 {
	n := len(ring)
	if n > 1 && ring[0] == ring[n-1] {
		n--
	}
	out := make([]Vec3, 0, n)
	for i := 0; i < n; i++ {
		cur := ring[i]
		if len(out) > 0 {
			prev := out[len(out)-1]
			next := ring[(i+1)%n]
			if Collinear(prev, cur, next) {
				continue
			}
		}
		out = append(out, cur)
	}

	for len(out) >= 3 && Collinear(out[len(out)-2], out[len(out)-1], out[0]) {
		out = out[:len(out)-1]
	}
	for len(out) >= 3 && Collinear(out[len(out)-1], out[0], out[1]) {
		out = out[1:]
	}
	return out
}

// SignedAreaXZ returns the signed area of the ring in the X-Z plane. It is
// positive for counter-clockwise rings.
func SignedAreaXZ(ring []Vec3) float64 {
	if len(ring) < 3 {
		return 0
	}
	var sum float64
	for i := 1; i+1 < len(ring); i++ {
		sum += Orientation(ring[0], ring[i], ring[i+1])
	}
	return sum / 2
}

// EnsureCCW returns the ring in counter-clockwise order, reversing a copy of
// it when necessary.
func EnsureCCW(ring []Vec3) []Vec3 {
	if SignedAreaXZ(ring) >= 0 {
		return ring
	}
	out := make([]Vec3, len(ring))
	for i, p := range ring {
		out[len(ring)-1-i] = p
	}
	return out
}

// Triangulate ear-clips a counter-clockwise ring and returns triangles as
// index triples into ring.
//
// An ear (a, b, c) of consecutive open vertices is clipped when it turns
// counter-clockwise and neither a-c nor b-c crosses any edge of the full
// ring. A pass over the open vertices that clips nothing stops the loop; the
// triangles found so far are returned along with ErrGeometryDegenerate.
func Triangulate(ring []Vec3) ([][3]int, error) {
	n := len(ring)
	if n < 3 {
		return nil, fmt.Errorf("triangulate: %d points: %w", n, ErrGeometryDegenerate)
	}

	crossesRing := func(a, b int) bool {
		for i := 0; i < n; i++ {
			if SegmentsIntersect(ring[a], ring[b], ring[i], ring[(i+1)%n]) {
				return true
			}
		}
		return false
	}

	open := make([]int, n)
	for i := range open {
		open[i] = i
	}
	tris := make([][3]int, 0, n-2)

	for len(open) >= 3 {
		before := len(open)
		for i := 0; i < len(open) && len(open) >= 3; i++ {
			mid := (i + 1) % len(open)
			i0, i1, i2 := open[i], open[mid], open[(i+2)%len(open)]

			if Orientation(ring[i0], ring[i1], ring[i2]) < 0 {
				continue
			}
			if crossesRing(i0, i2) || crossesRing(i1, i2) {
				continue
			}

			tris = append(tris, [3]int{i0, i1, i2})
			open = append(open[:mid], open[mid+1:]...)
		}
		if len(open) == before {
			return tris, fmt.Errorf("triangulate: no ear among %d open vertices: %w", len(open), ErrGeometryDegenerate)
		}
	}
	return tris, nil
}
