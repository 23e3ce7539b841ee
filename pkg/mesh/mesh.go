// Package mesh turns scene records into renderable triangle meshes: flat
// footprints, extruded buildings with smoothed lateral normals and merged
// scene-graph nodes. A Mesh is immutable once built.
package mesh

import (
	"errors"
	"fmt"

	"github.com/chazu/cityview/pkg/kernel"
	"github.com/chazu/cityview/pkg/scene"
)

// ErrEmptyMesh is returned when a record produces no triangles.
var ErrEmptyMesh = fmt.Errorf("mesh: no triangles: %w", kernel.ErrGeometryDegenerate)

// Vertex is a position with its (possibly zero) normal.
type Vertex struct {
	Position kernel.Vec3 `json:"position"`
	Normal   kernel.Vec3 `json:"normal"`
}

// Mesh is an indexed triangle mesh with its classification and bounds.
type Mesh struct {
	Name      string             `json:"name"`
	Category  scene.Category     `json:"category"`
	Vertices  []Vertex           `json:"vertices"`
	Indices   []uint32           `json:"indices"`
	BaseCount int                `json:"baseCount"` // footprint ring size; 0 for scene nodes
	Extruded  bool               `json:"extruded"`
	Bounds    kernel.AABB        `json:"bounds"`
	Oriented  kernel.OrientedBox `json:"oriented"`
	Color     Color              `json:"color"`
}

// TriangleCount returns the number of triangles.
func (m *Mesh) TriangleCount() int {
	return len(m.Indices) / 3
}

// BaseRing returns the footprint ring positions, counter-clockwise.
func (m *Mesh) BaseRing() []kernel.Vec3 {
	if m.BaseCount == 0 || m.BaseCount > len(m.Vertices) {
		return nil
	}
	out := make([]kernel.Vec3, m.BaseCount)
	for i := range out {
		out[i] = m.Vertices[i].Position
	}
	return out
}

// Height is the vertical extent of the mesh.
func (m *Mesh) Height() float64 {
	return m.Bounds.Max.Y - m.Bounds.Min.Y
}

// finish computes bounds and the oriented box, and rejects meshes with no
// triangles.
func (m *Mesh) finish() error {
	if len(m.Indices) == 0 {
		return ErrEmptyMesh
	}
	points := make([]kernel.Vec3, len(m.Vertices))
	for i, v := range m.Vertices {
		points[i] = v.Position
	}
	m.Bounds = kernel.BoundsOf(points)
	m.Oriented = kernel.AxisAligned(m.Bounds)
	if m.Category.Oriented() {
		if ob, err := kernel.AlignedBounds(points); err == nil {
			m.Oriented = ob
		}
	}
	return nil
}

// IsEmpty reports whether err came from a mesh with nothing to draw.
func IsEmpty(err error) bool {
	return errors.Is(err, ErrEmptyMesh)
}
