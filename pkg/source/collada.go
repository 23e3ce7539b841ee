package source

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"strconv"
	"strings"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/chazu/cityview/pkg/kernel"
	"github.com/chazu/cityview/pkg/scene"
)

// ---------------------------------------------------------------------------
// Document
// ---------------------------------------------------------------------------

type daeDocument struct {
	XMLName      xml.Name         `xml:"COLLADA"`
	Geometries   []daeGeometry    `xml:"library_geometries>geometry"`
	LibraryNodes []daeNode        `xml:"library_nodes>node"`
	Scenes       []daeVisualScene `xml:"library_visual_scenes>visual_scene"`
}

type daeGeometry struct {
	ID     string    `xml:"id,attr"`
	Meshes []daeMesh `xml:"mesh"`
}

type daeMesh struct {
	Sources   []daeSource    `xml:"source"`
	Vertices  daeVertices    `xml:"vertices"`
	Triangles []daeTriangles `xml:"triangles"`
}

type daeSource struct {
	ID     string `xml:"id,attr"`
	Floats struct {
		Count int    `xml:"count,attr"`
		Text  string `xml:",chardata"`
	} `xml:"float_array"`
	Accessor struct {
		Stride int `xml:"stride,attr"`
	} `xml:"technique_common>accessor"`
}

type daeVertices struct {
	ID     string     `xml:"id,attr"`
	Inputs []daeInput `xml:"input"`
}

type daeInput struct {
	Semantic string `xml:"semantic,attr"`
	Source   string `xml:"source,attr"`
	Offset   int    `xml:"offset,attr"`
}

type daeTriangles struct {
	Count  int        `xml:"count,attr"`
	Inputs []daeInput `xml:"input"`
	P      string     `xml:"p"`
}

type daeNode struct {
	ID        string        `xml:"id,attr"`
	Name      string        `xml:"name,attr"`
	Matrix    *string       `xml:"matrix"`
	Translate *string       `xml:"translate"`
	Geometry  []daeInstance `xml:"instance_geometry"`
	Instances []daeInstance `xml:"instance_node"`
	Children  []daeNode     `xml:"node"`
	Params    []daeParam    `xml:"extra>technique>param"`
}

type daeInstance struct {
	URL string `xml:"url,attr"`
}

type daeParam struct {
	Name  string `xml:"name,attr"`
	Value string `xml:",chardata"`
}

type daeVisualScene struct {
	ID    string    `xml:"id,attr"`
	Nodes []daeNode `xml:"node"`
}

// geometry is a resolved triangle soup: one vertex per <p> tuple.
type geometry struct {
	Vertices []kernel.Vec3
	Normals  []kernel.Vec3
	Indices  []uint32
}

func (g geometry) transformed(m mgl64.Mat4) geometry {
	rot := m.Mat3()
	out := geometry{
		Vertices: make([]kernel.Vec3, len(g.Vertices)),
		Indices:  g.Indices,
	}
	for i, v := range g.Vertices {
		p := m.Mul4x1(mgl64.Vec4{v.X, v.Y, v.Z, 1})
		out.Vertices[i] = kernel.V(p[0], p[1], p[2])
	}
	if len(g.Normals) > 0 {
		out.Normals = make([]kernel.Vec3, len(g.Normals))
		for i, n := range g.Normals {
			r := rot.Mul3x1(mgl64.Vec3{n.X, n.Y, n.Z})
			out.Normals[i] = kernel.Normalize(kernel.V(r[0], r[1], r[2]))
		}
	}
	return out
}

// ---------------------------------------------------------------------------
// Decoding
// ---------------------------------------------------------------------------

// decodeCollada resolves the geometry library, bakes library-node matrices
// into their geometry and emits one scene node per visual-scene node, plus
// one per geometry reached through an instance_node. Nodes come out in
// document order.
func decodeCollada(data []byte) ([]scene.Node, []error, error) {
	var doc daeDocument
	dec := xml.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(&doc); err != nil {
		return nil, nil, fmt.Errorf("source: collada: %w: %w", ErrInvalidInput, err)
	}

	var errs []error
	skip := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("source: collada: %w: %s", ErrInvalidInput, fmt.Sprintf(format, args...)))
	}

	geometries := make(map[string]geometry, len(doc.Geometries))
	for _, g := range doc.Geometries {
		geo, err := readGeometry(g)
		if err != nil {
			skip("geometry %s: %v", g.ID, err)
			continue
		}
		geometries[g.ID] = geo
	}

	groups := make(map[string][]geometry)
	for _, lib := range doc.LibraryNodes {
		for _, child := range lib.Children {
			if err := collectLibrary(child, mgl64.Ident4(), geometries, groups, lib.ID); err != nil {
				skip("library node %s: %v", lib.ID, err)
			}
		}
	}

	var nodes []scene.Node
	for _, vs := range doc.Scenes {
		for i, vn := range vs.Nodes {
			id := vn.ID
			if id == "" {
				id = fmt.Sprintf("%s/%d", vs.ID, i)
			}
			meta := make(map[string]string, len(vn.Params))
			for _, p := range vn.Params {
				meta[p.Name] = strings.TrimSpace(p.Value)
			}

			got, err := sceneNodes(id, vn, meta, geometries, groups)
			if err != nil {
				skip("node %s: %v", id, err)
				continue
			}
			nodes = append(nodes, got...)
		}
	}
	return nodes, errs, nil
}

func sceneNodes(id string, vn daeNode, meta map[string]string,
	geometries map[string]geometry, groups map[string][]geometry) ([]scene.Node, error) {
	var out []scene.Node

	if len(vn.Geometry) > 0 {
		n := scene.Node{ID: id, Transform: mgl64.Ident4(), Metadata: meta}
		if vn.Translate != nil {
			t, err := parseFloats(*vn.Translate, 3)
			if err != nil {
				return nil, fmt.Errorf("translate: %w", err)
			}
			n.Transform = mgl64.Translate3D(t[0], t[1], t[2])
		}
		for _, inst := range vn.Geometry {
			geo, ok := geometries[strings.TrimPrefix(inst.URL, "#")]
			if !ok {
				return nil, fmt.Errorf("unknown geometry %q", inst.URL)
			}
			appendGeometry(&n, geo)
		}
		out = append(out, n)
	}

	if vn.Matrix != nil {
		m, err := parseMatrix(*vn.Matrix)
		if err != nil {
			return nil, err
		}
		k := 0
		for _, child := range vn.Children {
			for _, inst := range child.Instances {
				group, ok := groups[strings.TrimPrefix(inst.URL, "#")]
				if !ok {
					return nil, fmt.Errorf("unknown library node %q", inst.URL)
				}
				for _, geo := range group {
					n := scene.Node{ID: fmt.Sprintf("%s/%d", id, k), Transform: m, Metadata: meta}
					appendGeometry(&n, geo)
					out = append(out, n)
					k++
				}
			}
		}
	}
	return out, nil
}

// collectLibrary walks a library node subtree, composing matrices, and files
// every instanced geometry under the library node id.
func collectLibrary(n daeNode, parent mgl64.Mat4, geometries map[string]geometry, groups map[string][]geometry, group string) error {
	xf := parent
	if n.Matrix != nil {
		m, err := parseMatrix(*n.Matrix)
		if err != nil {
			return err
		}
		xf = parent.Mul4(m)
	}
	for _, inst := range n.Geometry {
		geo, ok := geometries[strings.TrimPrefix(inst.URL, "#")]
		if !ok {
			return fmt.Errorf("unknown geometry %q", inst.URL)
		}
		groups[group] = append(groups[group], geo.transformed(xf))
	}
	for _, c := range n.Children {
		if err := collectLibrary(c, xf, geometries, groups, group); err != nil {
			return err
		}
	}
	return nil
}

func appendGeometry(n *scene.Node, geo geometry) {
	offset := uint32(len(n.Vertices))
	for _, idx := range geo.Indices {
		n.Indices = append(n.Indices, idx+offset)
	}
	n.Vertices = append(n.Vertices, geo.Vertices...)
	if len(geo.Normals) > 0 {
		n.Normals = append(n.Normals, geo.Normals...)
	}
}

// readGeometry merges every <triangles> of every mesh of g.
func readGeometry(g daeGeometry) (geometry, error) {
	var out geometry
	for _, m := range g.Meshes {
		sources := make(map[string][]kernel.Vec3, len(m.Sources))
		for _, s := range m.Sources {
			v, err := readSource(s)
			if err != nil {
				return geometry{}, fmt.Errorf("source %s: %w", s.ID, err)
			}
			sources[s.ID] = v
		}
		var positions []kernel.Vec3
		for _, in := range m.Vertices.Inputs {
			if in.Semantic == "POSITION" {
				positions = sources[strings.TrimPrefix(in.Source, "#")]
			}
		}

		for _, tri := range m.Triangles {
			if err := readTriangles(&out, tri, m.Vertices.ID, positions, sources); err != nil {
				return geometry{}, err
			}
		}
	}
	if len(out.Indices) == 0 {
		return geometry{}, fmt.Errorf("no triangles")
	}
	if len(out.Normals) != len(out.Vertices) {
		out.Normals = nil
	}
	return out, nil
}

func readTriangles(dst *geometry, tri daeTriangles, verticesID string,
	positions []kernel.Vec3, sources map[string][]kernel.Vec3) error {
	stride := 0
	posOffset, normOffset := -1, -1
	var normals []kernel.Vec3
	for _, in := range tri.Inputs {
		stride = max(stride, in.Offset+1)
		switch in.Semantic {
		case "VERTEX":
			if strings.TrimPrefix(in.Source, "#") != verticesID {
				return fmt.Errorf("VERTEX input %q does not name the mesh vertices", in.Source)
			}
			posOffset = in.Offset
		case "NORMAL":
			normals = sources[strings.TrimPrefix(in.Source, "#")]
			normOffset = in.Offset
		}
	}
	if posOffset < 0 {
		return fmt.Errorf("triangles without VERTEX input")
	}

	p, err := parseUints(tri.P)
	if err != nil {
		return err
	}
	if len(p)%(3*stride) != 0 {
		return fmt.Errorf("<p> has %d values, not a whole number of %d-input triangles", len(p), stride)
	}
	for i := 0; i < len(p); i += stride {
		pi := p[i+posOffset]
		if int(pi) >= len(positions) {
			return fmt.Errorf("position index %d out of range (%d)", pi, len(positions))
		}
		dst.Vertices = append(dst.Vertices, positions[pi])
		if normOffset >= 0 {
			ni := p[i+normOffset]
			if int(ni) >= len(normals) {
				return fmt.Errorf("normal index %d out of range (%d)", ni, len(normals))
			}
			dst.Normals = append(dst.Normals, normals[ni])
		}
		dst.Indices = append(dst.Indices, uint32(len(dst.Vertices)-1))
	}
	return nil
}

func readSource(s daeSource) ([]kernel.Vec3, error) {
	vals, err := parseFloats(s.Floats.Text, -1)
	if err != nil {
		return nil, err
	}
	if s.Floats.Count != 0 && s.Floats.Count != len(vals) {
		return nil, fmt.Errorf("float_array count %d, found %d", s.Floats.Count, len(vals))
	}
	stride := s.Accessor.Stride
	if stride == 0 {
		stride = 3
	}
	if stride < 3 {
		return nil, fmt.Errorf("stride %d, need at least 3", stride)
	}
	out := make([]kernel.Vec3, 0, len(vals)/stride)
	for i := 0; i+stride <= len(vals); i += stride {
		out = append(out, kernel.V(vals[i], vals[i+1], vals[i+2]))
	}
	return out, nil
}

// ---------------------------------------------------------------------------
// Text helpers
// ---------------------------------------------------------------------------

// parseMatrix reads a row-major 4x4 matrix.
func parseMatrix(s string) (mgl64.Mat4, error) {
	v, err := parseFloats(s, 16)
	if err != nil {
		return mgl64.Mat4{}, fmt.Errorf("matrix: %w", err)
	}
	return mgl64.Mat4FromRows(
		mgl64.Vec4{v[0], v[1], v[2], v[3]},
		mgl64.Vec4{v[4], v[5], v[6], v[7]},
		mgl64.Vec4{v[8], v[9], v[10], v[11]},
		mgl64.Vec4{v[12], v[13], v[14], v[15]},
	), nil
}

// parseFloats reads whitespace-separated floats; want < 0 accepts any count.
func parseFloats(s string, want int) ([]float64, error) {
	fields := strings.Fields(s)
	if want >= 0 && len(fields) != want {
		return nil, fmt.Errorf("%d values, want %d", len(fields), want)
	}
	out := make([]float64, len(fields))
	for i, f := range fields {
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func parseUints(s string) ([]uint32, error) {
	fields := strings.Fields(s)
	out := make([]uint32, len(fields))
	for i, f := range fields {
		v, err := strconv.ParseUint(f, 10, 32)
		if err != nil {
			return nil, err
		}
		out[i] = uint32(v)
	}
	return out, nil
}
