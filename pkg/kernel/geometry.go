package kernel

import "math"

// CollinearThreshold is the minimum dot product of the two normalized
// directions for three points to count as collinear.
const CollinearThreshold = 0.999

// Collinear reports whether q and r lie in effectively the same direction
// from p. A zero-length direction is degenerate and counts as collinear, so
// Collinear(p, q, p) is true for any q.
func Collinear(p, q, r Vec3) bool {
	a := q.Sub(p)
	b := r.Sub(p)
	if a.Length() == 0 || b.Length() == 0 {
		return true
	}
	return Normalize(a).Dot(Normalize(b)) >= CollinearThreshold
}

// Orientation returns the signed turn of p->q->r in the X-Z plane.
func Orientation(p, q, r Vec3) float64 {
	return (r.X-p.X)*(q.Z-p.Z) - (q.X-p.X)*(r.Z-p.Z)
}

// segmentEpsilon is the X-Z tolerance of onSegment, in model units.
const segmentEpsilon = 1e-9

// onSegment reports whether r lies within the x and z extents of segment
// p-q, inclusive per axis so horizontal and vertical segments can contain
// points. Points at either endpoint are excluded.
func onSegment(p, q, r Vec3) bool {
	within := func(a, b, v float64) bool {
		return math.Min(a, b)-segmentEpsilon <= v && v <= math.Max(a, b)+segmentEpsilon
	}
	if !within(p.X, q.X, r.X) || !within(p.Z, q.Z, r.Z) {
		return false
	}
	return !sameXZ(r, p) && !sameXZ(r, q)
}

func sameXZ(a, b Vec3) bool {
	return math.Abs(a.X-b.X) <= segmentEpsilon && math.Abs(a.Z-b.Z) <= segmentEpsilon
}

func opposite(a, b float64) bool {
	return (a > 0 && b < 0) || (a < 0 && b > 0)
}

// SegmentsIntersect reports whether segments p0-q0 and p1-q1 cross in the X-Z
// plane, either properly or by collinear overlap. Segments that only share an
// endpoint do not intersect.
func SegmentsIntersect(p0, q0, p1, q1 Vec3) bool {
	o0 := Orientation(p0, q0, p1)
	o1 := Orientation(p0, q0, q1)
	o2 := Orientation(p1, q1, p0)
	o3 := Orientation(p1, q1, q0)

	if opposite(o0, o1) && opposite(o2, o3) {
		return true
	}

	switch {
	case onSegment(p0, q0, p1) && Collinear(p0, q0, p1):
		return true
	case onSegment(p0, q0, q1) && Collinear(p0, q0, q1):
		return true
	case onSegment(p1, q1, p0) && Collinear(p1, q1, p0):
		return true
	case onSegment(p1, q1, q0) && Collinear(p1, q1, q0):
		return true
	}
	return false
}

// Linspace returns count evenly spaced values from min to max inclusive.
// The last value is exactly max.
func Linspace(min, max float64, count int) []float64 {
	if count <= 0 {
		return nil
	}
	if count == 1 {
		return []float64{min}
	}
	out := make([]float64, count)
	delta := (max - min) / float64(count-1)
	for i := 0; i < count-1; i++ {
		out[i] = min + delta*float64(i)
	}
	out[count-1] = max
	return out
}
