package mesh

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/chazu/cityview/pkg/kernel"
	"github.com/chazu/cityview/pkg/scene"
)

// BuildNode builds the mesh for a single scene node.
func BuildNode(n scene.Node) (*Mesh, error) {
	return MergeNodes(n.ID, []scene.Node{n})
}

// MergeNodes concatenates nodes into one mesh. Each node's vertices are
// transformed by its matrix and then converted from Z-up to Y-up by swapping
// Y and Z. The category and color come from the first node's metadata.
func MergeNodes(name string, nodes []scene.Node) (*Mesh, error) {
	if len(nodes) == 0 {
		return nil, fmt.Errorf("mesh: node %s: %w", name, ErrEmptyMesh)
	}
	cat, shade := nodes[0].Category()
	m := &Mesh{
		Name:     name,
		Category: cat,
		Color:    CategoryColor(cat, shade),
	}

	for _, n := range nodes {
		offset := uint32(len(m.Vertices))
		for _, idx := range n.Indices {
			if int(idx) >= len(n.Vertices) {
				return nil, fmt.Errorf("mesh: node %s: index %d out of range: %w",
					n.ID, idx, kernel.ErrGeometryDegenerate)
			}
			m.Indices = append(m.Indices, idx+offset)
		}

		xf := n.Transform
		if xf == (mgl64.Mat4{}) {
			xf = mgl64.Ident4()
		}
		rot := xf.Mat3()
		for i, p := range n.Vertices {
			pos := xf.Mul4x1(mgl64.Vec4{p.X, p.Y, p.Z, 1})
			v := Vertex{Position: kernel.V(pos[0], pos[2], pos[1])}
			if i < len(n.Normals) {
				nrm := rot.Mul3x1(mgl64.Vec3{n.Normals[i].X, n.Normals[i].Y, n.Normals[i].Z})
				v.Normal = kernel.Normalize(kernel.V(nrm[0], nrm[2], nrm[1]))
			}
			m.Vertices = append(m.Vertices, v)
		}
	}

	if err := m.finish(); err != nil {
		return nil, fmt.Errorf("mesh: node %s: %w", name, err)
	}
	return m, nil
}
