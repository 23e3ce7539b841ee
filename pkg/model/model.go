// Package model holds the ordered collection of meshes that make up a loaded
// city, a spatial index over their bounds and the picking-id encoding used to
// identify meshes from rendered pixels.
package model

import (
	"fmt"
	"log/slog"
	"sort"

	"github.com/dhconnelly/rtreego"

	"github.com/chazu/cityview/pkg/kernel"
	"github.com/chazu/cityview/pkg/mesh"
	"github.com/chazu/cityview/pkg/scene"
)

// boundsPad thickens boxes so that flat meshes still overlap queries.
const boundsPad = 1e-3

// entry adapts a mesh index to rtreego.Spatial.
type entry struct {
	index int
	rect  rtreego.Rect
}

func (e *entry) Bounds() rtreego.Rect { return e.rect }

var _ rtreego.Spatial = (*entry)(nil)

// Model is an ordered, append-only set of meshes. The position of a mesh in
// Meshes is its index for picking and for the sampling engine.
type Model struct {
	Meshes []*mesh.Mesh
	Origin kernel.Vec3

	tree   *rtreego.Rtree
	bounds kernel.AABB
}

// New returns an empty model.
func New(origin kernel.Vec3) *Model {
	return &Model{
		Origin: origin,
		tree:   rtreego.NewTree(3, 25, 50),
		bounds: kernel.EmptyAABB(),
	}
}

func toRect(b kernel.AABB, pad float64) rtreego.Rect {
	r, err := rtreego.NewRectFromPoints(
		rtreego.Point{b.Min.X - pad, b.Min.Y - pad, b.Min.Z - pad},
		rtreego.Point{b.Max.X + pad, b.Max.Y + pad, b.Max.Z + pad},
	)
	if err != nil {
		// Both points are always 3-D.
		panic(err)
	}
	return r
}

// Add appends m and returns its index.
func (mdl *Model) Add(m *mesh.Mesh) int {
	idx := len(mdl.Meshes)
	mdl.Meshes = append(mdl.Meshes, m)
	mdl.tree.Insert(&entry{index: idx, rect: toRect(m.Bounds, boundsPad)})
	mdl.bounds.Union(m.Bounds)
	return idx
}

// Len returns the number of meshes.
func (mdl *Model) Len() int {
	return len(mdl.Meshes)
}

// Mesh returns the mesh at index i.
func (mdl *Model) Mesh(i int) (*mesh.Mesh, bool) {
	if i < 0 || i >= len(mdl.Meshes) {
		return nil, false
	}
	return mdl.Meshes[i], true
}

// Bounds is the union of all mesh bounds. It is empty for an empty model.
func (mdl *Model) Bounds() kernel.AABB {
	return mdl.bounds
}

// Query returns, in ascending order, the indices of meshes whose bounds
// intersect box.
func (mdl *Model) Query(box kernel.AABB) []int {
	if box.IsEmpty() || mdl.tree.Size() == 0 {
		return nil
	}
	hits := mdl.tree.SearchIntersect(toRect(box, boundsPad))
	out := make([]int, 0, len(hits))
	for _, h := range hits {
		out = append(out, h.(*entry).index)
	}
	sort.Ints(out)
	return out
}

// Nearest returns the index of the mesh whose bounds are closest to p.
func (mdl *Model) Nearest(p kernel.Vec3) (int, bool) {
	if mdl.tree.Size() == 0 {
		return -1, false
	}
	hit := mdl.tree.NearestNeighbor(rtreego.Point{p.X, p.Y, p.Z})
	if hit == nil {
		return -1, false
	}
	return hit.(*entry).index, true
}

// Options controls Build.
type Options struct {
	Projection kernel.Projection
	Origin     kernel.Vec3
	Logger     *slog.Logger
}

// Build meshes every record and collects the ones that succeed. Records that
// fail are reported in the returned error slice and skipped.
func Build(polys []scene.Polygon, nodes []scene.Node, opts Options) (*Model, []error) {
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	mdl := New(opts.Origin)

	var errs []error
	keep := func(m *mesh.Mesh, err error, id string) {
		if err != nil {
			log.Warn("skipping record", "id", id, "err", err)
			errs = append(errs, err)
			return
		}
		mdl.Add(m)
	}
	for _, p := range polys {
		m, err := mesh.BuildPolygon(p, opts.Projection)
		keep(m, err, p.ID)
	}
	for _, n := range nodes {
		m, err := mesh.BuildNode(n)
		keep(m, err, n.ID)
	}

	log.Info("model built",
		"meshes", mdl.Len(),
		"skipped", len(errs),
		"polygons", len(polys),
		"nodes", len(nodes),
	)
	return mdl, errs
}

// String summarizes the model.
func (mdl *Model) String() string {
	return fmt.Sprintf("model(%d meshes)", mdl.Len())
}
