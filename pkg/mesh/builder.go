package mesh

import (
	"fmt"

	"github.com/chazu/cityview/pkg/kernel"
	"github.com/chazu/cityview/pkg/scene"
)

var up = kernel.V(0, 1, 0)

// BuildPolygon builds the mesh for one footprint record. Polygons with a
// height are extruded into buildings; the rest are flat caps on the ground.
func BuildPolygon(p scene.Polygon, proj kernel.Projection) (*Mesh, error) {
	if proj == nil {
		proj = kernel.Mercator
	}
	base := kernel.EnsureCCW(kernel.SimplifyRing(kernel.ProjectRing(p.Ring, proj)))

	var (
		m   *Mesh
		err error
	)
	if p.Height != nil {
		m, err = extrude(base, *p.Height)
	} else {
		m, err = flat(base, p.Category)
	}
	if err != nil {
		return nil, fmt.Errorf("mesh: polygon %s: %w", p.ID, err)
	}
	m.Name = p.ID
	if m.Category == scene.CategoryBuilding {
		m.Color = BuildingColor(p.ID)
	} else {
		m.Color = CategoryColor(m.Category, scene.ShadeNone)
	}
	if err := m.finish(); err != nil {
		return nil, fmt.Errorf("mesh: polygon %s: %w", p.ID, err)
	}
	return m, nil
}

func flat(base []kernel.Vec3, cat scene.Category) (*Mesh, error) {
	tris, err := kernel.Triangulate(base)
	if err != nil {
		return nil, err
	}
	m := &Mesh{
		Category:  cat,
		BaseCount: len(base),
		Vertices:  make([]Vertex, len(base)),
		Indices:   make([]uint32, 0, 3*len(tris)),
	}
	for i, p := range base {
		m.Vertices[i] = Vertex{Position: p}
	}
	m.Indices = appendTriangles(m.Indices, tris, 0)
	return m, nil
}

// extrude duplicates base at the given height, caps the top and walls every
// edge of the ring. Base vertices keep their slot indices; the top ring
// follows at an offset of len(base).
func extrude(base []kernel.Vec3, height float64) (*Mesh, error) {
	n := len(base)
	top := make([]kernel.Vec3, n)
	for i, p := range base {
		top[i] = kernel.V(p.X, p.Y+height, p.Z)
	}
	capTris, err := kernel.Triangulate(top)
	if err != nil {
		return nil, err
	}

	m := &Mesh{
		Category:  scene.CategoryBuilding,
		BaseCount: n,
		Extruded:  true,
		Vertices:  make([]Vertex, 2*n),
		Indices:   make([]uint32, 0, 3*len(capTris)+6*n),
	}
	for i := 0; i < n; i++ {
		m.Vertices[i] = Vertex{Position: base[i]}
		m.Vertices[n+i] = Vertex{Position: top[i], Normal: up}
	}
	m.Indices = appendTriangles(m.Indices, capTris, uint32(n))

	for i := 0; i < n; i++ {
		next := (i + 1) % n
		low, nextLow := uint32(i), uint32(next)
		hi, nextHi := uint32(n+i), uint32(n+next)
		m.Indices = append(m.Indices,
			hi, nextHi, nextLow,
			hi, nextLow, low,
		)

		face := wallNormal(base[i], base[next])
		for _, idx := range [4]uint32{low, nextLow, hi, nextHi} {
			m.Vertices[idx].Normal = m.Vertices[idx].Normal.Add(face)
		}
	}
	for i := range m.Vertices {
		m.Vertices[i].Normal = kernel.Normalize(m.Vertices[i].Normal)
	}
	return m, nil
}

// wallNormal is the outward normal of the wall on edge low-nextLow of a
// counter-clockwise ring. It depends only on the edge, so a zero height
// still yields unit normals.
func wallNormal(low, nextLow kernel.Vec3) kernel.Vec3 {
	along := kernel.Normalize(nextLow.Sub(low))
	return kernel.Normalize(along.Cross(up))
}

func appendTriangles(dst []uint32, tris [][3]int, offset uint32) []uint32 {
	for _, t := range tris {
		dst = append(dst, uint32(t[0])+offset, uint32(t[1])+offset, uint32(t[2])+offset)
	}
	return dst
}
