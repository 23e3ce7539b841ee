package mesh

// Buffers is the flat upload format: three floats per vertex for positions
// and normals, three indices per triangle.
type Buffers struct {
	Vertices []float32 `json:"vertices"` // [x0,y0,z0, x1,y1,z1, ...]
	Normals  []float32 `json:"normals"`  // [nx0,ny0,nz0, ...]
	Indices  []uint32  `json:"indices"`  // [i0,i1,i2, ...] triangles
	Name     string    `json:"name"`
}

// Buffers flattens the mesh, relative to origin.
func (m *Mesh) Buffers(origin [3]float64) Buffers {
	b := Buffers{
		Vertices: make([]float32, 0, 3*len(m.Vertices)),
		Normals:  make([]float32, 0, 3*len(m.Vertices)),
		Indices:  append([]uint32(nil), m.Indices...),
		Name:     m.Name,
	}
	for _, v := range m.Vertices {
		b.Vertices = append(b.Vertices,
			float32(v.Position.X-origin[0]),
			float32(v.Position.Y-origin[1]),
			float32(v.Position.Z-origin[2]),
		)
		b.Normals = append(b.Normals, float32(v.Normal.X), float32(v.Normal.Y), float32(v.Normal.Z))
	}
	return b
}

// VertexCount returns the number of vertices.
func (b *Buffers) VertexCount() int {
	return len(b.Vertices) / 3
}

// TriangleCount returns the number of triangles.
func (b *Buffers) TriangleCount() int {
	return len(b.Indices) / 3
}

// IsEmpty returns true if the buffers hold no geometry.
func (b *Buffers) IsEmpty() bool {
	return len(b.Vertices) == 0
}
