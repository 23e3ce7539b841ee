package scene

import (
	"github.com/go-gl/mathgl/mgl64"
	"github.com/paulmach/orb"

	"github.com/chazu/cityview/pkg/kernel"
)

// Polygon is one footprint read from a vector source. A nil Height means the
// polygon is drawn flat on the ground.
type Polygon struct {
	ID         string
	Ring       orb.Ring
	Height     *float64
	Category   Category
	Properties map[string]any
}

// Extruded reports whether the polygon carries a height.
func (p Polygon) Extruded() bool {
	return p.Height != nil
}

// Node is one pre-triangulated piece of a scene graph. Vertices are in the
// node's local, Z-up space; Transform maps them to the scene.
type Node struct {
	ID        string
	Vertices  []kernel.Vec3
	Normals   []kernel.Vec3 // optional, parallel to Vertices
	Indices   []uint32
	Transform mgl64.Mat4
	Metadata  map[string]string
}

// Category classifies the node from its metadata.
func (n Node) Category() (Category, Shade) {
	return Classify(n.Metadata)
}
