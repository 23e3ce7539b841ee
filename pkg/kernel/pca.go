package kernel

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// Frame is a rotation of the X-Z plane about a pivot. Local coordinates are
// the offsets from Mean projected on Axes, shifted back by Mean; Y passes
// through untouched.
type Frame struct {
	Mean [2]float64    `json:"mean"` // (x, z)
	Axes [2][2]float64 `json:"axes"` // unit (x, z) vectors, major first
}

// IdentityFrame leaves points where they are.
func IdentityFrame() Frame {
	return Frame{Axes: [2][2]float64{{1, 0}, {0, 1}}}
}

// ToLocal rotates p into the frame.
func (f Frame) ToLocal(p Vec3) Vec3 {
	cx, cz := p.X-f.Mean[0], p.Z-f.Mean[1]
	return V(
		f.Axes[0][0]*cx+f.Axes[0][1]*cz+f.Mean[0],
		p.Y,
		f.Axes[1][0]*cx+f.Axes[1][1]*cz+f.Mean[1],
	)
}

// ToWorld is the inverse of ToLocal.
func (f Frame) ToWorld(p Vec3) Vec3 {
	lx, lz := p.X-f.Mean[0], p.Z-f.Mean[1]
	return V(
		lx*f.Axes[0][0]+lz*f.Axes[1][0]+f.Mean[0],
		p.Y,
		lx*f.Axes[0][1]+lz*f.Axes[1][1]+f.Mean[1],
	)
}

// DirToWorld rotates a direction out of the frame.
func (f Frame) DirToWorld(d Vec3) Vec3 {
	return V(
		d.X*f.Axes[0][0]+d.Z*f.Axes[1][0],
		d.Y,
		d.X*f.Axes[0][1]+d.Z*f.Axes[1][1],
	)
}

// PCA is the principal-axis analysis of a point set in the X-Z plane.
type PCA struct {
	Frame
	Covariance [2][2]float64
	Values     [2]float64 // descending
}

// PCAXZ computes the mean, sample covariance and eigen decomposition of the
// X-Z coordinates of points. The major axis is oriented with a non-negative
// x component and the minor axis is its counter-clockwise perpendicular, so
// the frame is always a proper rotation.
func PCAXZ(points []Vec3) (PCA, error) {
	n := len(points)
	if n < 2 {
		return PCA{}, fmt.Errorf("pca: %d points: %w", n, ErrGeometryDegenerate)
	}

	var res PCA
	for _, p := range points {
		res.Mean[0] += p.X
		res.Mean[1] += p.Z
	}
	res.Mean[0] /= float64(n)
	res.Mean[1] /= float64(n)

	for _, p := range points {
		cx, cz := p.X-res.Mean[0], p.Z-res.Mean[1]
		res.Covariance[0][0] += cx * cx
		res.Covariance[0][1] += cx * cz
		res.Covariance[1][1] += cz * cz
	}
	res.Covariance[0][0] /= float64(n - 1)
	res.Covariance[0][1] /= float64(n - 1)
	res.Covariance[1][1] /= float64(n - 1)
	res.Covariance[1][0] = res.Covariance[0][1]

	cov := mat.NewSymDense(2, []float64{
		res.Covariance[0][0], res.Covariance[0][1],
		res.Covariance[1][0], res.Covariance[1][1],
	})
	var eig mat.EigenSym
	if ok := eig.Factorize(cov, true); !ok {
		return PCA{}, fmt.Errorf("pca: eigen decomposition failed: %w", ErrGeometryDegenerate)
	}
	values := eig.Values(nil) // ascending
	var vecs mat.Dense
	eig.VectorsTo(&vecs)

	res.Values = [2]float64{values[1], values[0]}
	major := [2]float64{vecs.At(0, 1), vecs.At(1, 1)}
	if major[0] < 0 || (major[0] == 0 && major[1] < 0) {
		major[0], major[1] = -major[0], -major[1]
	}
	res.Axes = [2][2]float64{major, {-major[1], major[0]}}
	return res, nil
}

// OrientedBox is a bounding box expressed in a rotated frame.
type OrientedBox struct {
	Bounds AABB  `json:"bounds"` // in frame-local coordinates
	Frame  Frame `json:"frame"`
}

// AxisAligned wraps a plain AABB.
func AxisAligned(b AABB) OrientedBox {
	return OrientedBox{Bounds: b, Frame: IdentityFrame()}
}

// AlignedBounds rotates points into their principal axes and bounds them
// there, giving a tighter fit than an axis-aligned pass for footprints that
// are not aligned with X and Z.
func AlignedBounds(points []Vec3) (OrientedBox, error) {
	pca, err := PCAXZ(points)
	if err != nil {
		return OrientedBox{}, err
	}
	b := EmptyAABB()
	for _, p := range points {
		b.Extend(pca.ToLocal(p))
	}
	return OrientedBox{Bounds: b, Frame: pca.Frame}, nil
}

// ToWorld maps a frame-local point to world space.
func (o OrientedBox) ToWorld(p Vec3) Vec3 {
	return o.Frame.ToWorld(p)
}

// NormalToWorld maps a frame-local direction to world space.
func (o OrientedBox) NormalToWorld(n Vec3) Vec3 {
	return o.Frame.DirToWorld(n)
}
