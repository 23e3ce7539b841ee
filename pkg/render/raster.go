package render

import (
	"fmt"
	"log/slog"

	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl64"

	"github.com/chazu/cityview/pkg/kernel"
	"github.com/chazu/cityview/pkg/mesh"
	"github.com/chazu/cityview/pkg/model"
)

// DefaultMaxPixels bounds the size of a single frame.
const DefaultMaxPixels = 4096 * 4096

// Rasterizer is a software implementation of Renderer. It draws flat
// colors with a depth test and no blending, so every pixel reads back as
// exactly one mesh color or the clear color.
type Rasterizer struct {
	model  *model.Model
	width  int
	height int

	// MaxPixels caps width*height; larger viewports fail with
	// ErrResourceFailure.
	MaxPixels int
	// Far bounds the culling query around the eye.
	Far float64

	log   *slog.Logger
	stats CullingStats
}

var _ Renderer = (*Rasterizer)(nil)

// CullingStats counts what the last pass drew.
type CullingStats struct {
	Candidates int
	Culled     int
	Drawn      int
	Triangles  int
}

// Option configures a Rasterizer.
type Option func(*Rasterizer)

// WithMaxPixels overrides DefaultMaxPixels.
func WithMaxPixels(n int) Option {
	return func(r *Rasterizer) { r.MaxPixels = n }
}

// WithLogger sets the logger for per-pass debug output.
func WithLogger(l *slog.Logger) Option {
	return func(r *Rasterizer) { r.log = l }
}

// NewRasterizer returns a rasterizer drawing mdl into a w x h viewport.
func NewRasterizer(mdl *model.Model, w, h int, opts ...Option) *Rasterizer {
	r := &Rasterizer{
		model:     mdl,
		width:     w,
		height:    h,
		MaxPixels: DefaultMaxPixels,
		Far:       1000,
		log:       slog.Default(),
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// SetModel swaps the model drawn by subsequent passes.
func (r *Rasterizer) SetModel(mdl *model.Model) {
	r.model = mdl
}

// SetViewport resizes subsequent frames.
func (r *Rasterizer) SetViewport(w, h int) {
	r.width, r.height = w, h
}

func (r *Rasterizer) ViewportSize() (int, int) {
	return r.width, r.height
}

// Stats returns the culling statistics of the last pass.
func (r *Rasterizer) Stats() CullingStats {
	return r.stats
}

func (r *Rasterizer) newFrame() (*Frame, error) {
	w, h := r.width, r.height
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("render: viewport %dx%d: %w", w, h, ErrResourceFailure)
	}
	if r.MaxPixels > 0 && w*h > r.MaxPixels {
		return nil, fmt.Errorf("render: viewport %dx%d exceeds %d pixels: %w", w, h, r.MaxPixels, ErrResourceFailure)
	}
	return NewFrame(w, h), nil
}

func (r *Rasterizer) RenderIdentificationPass(view, proj mgl64.Mat4) (*Frame, error) {
	f, err := r.newFrame()
	if err != nil {
		return nil, err
	}
	r.draw(f, view, proj, func(i int, m *mesh.Mesh) ([4]uint8, bool) {
		c, ok := mesh.IdentificationColor(m.Category)
		return c.RGBA8(), ok
	})
	return f, nil
}

func (r *Rasterizer) RenderPickingPass(view, proj mgl64.Mat4, x, y int) (int32, error) {
	f, err := r.newFrame()
	if err != nil {
		return model.NoPick, err
	}
	r.draw(f, view, proj, func(i int, m *mesh.Mesh) ([4]uint8, bool) {
		c := model.PickColor(i)
		return [4]uint8{c[0], c[1], c[2], 255}, true
	})
	rgb, err := f.RGB(x, y)
	if err != nil {
		return model.NoPick, err
	}
	return model.DecodePick(rgb), nil
}

// RenderDisplayPass draws every mesh in its display color over a slate
// background, with the mesh at index picked in red. A negative picked
// highlights nothing.
func (r *Rasterizer) RenderDisplayPass(view, proj mgl64.Mat4, picked int) (*Frame, error) {
	f, err := r.newFrame()
	if err != nil {
		return nil, err
	}
	f.Fill(mesh.ColorSlate.RGBA8())
	r.draw(f, view, proj, func(i int, m *mesh.Mesh) ([4]uint8, bool) {
		if i == picked {
			return mesh.ColorRed.RGBA8(), true
		}
		return m.Color.RGBA8(), true
	})
	return f, nil
}

type colorFunc func(i int, m *mesh.Mesh) ([4]uint8, bool)

func (r *Rasterizer) draw(f *Frame, view, proj mgl64.Mat4, color colorFunc) {
	r.stats = CullingStats{}
	if r.model == nil {
		return
	}
	eye := view.Inv().Col(3)
	reach := kernel.V(r.Far, r.Far, r.Far)
	center := kernel.V(eye[0], eye[1], eye[2])
	candidates := r.model.Query(kernel.AABB{Min: center.Sub(reach), Max: center.Add(reach)})
	r.stats.Candidates = len(candidates)

	mvp := proj.Mul4(view)
	for _, i := range candidates {
		m := r.model.Meshes[i]
		c, ok := color(i, m)
		if !ok {
			continue
		}
		if behind(view, m.Bounds) {
			r.stats.Culled++
			continue
		}
		r.stats.Drawn++
		r.drawMesh(f, mvp, m, c)
	}
	r.log.Debug("pass drawn",
		"candidates", r.stats.Candidates,
		"culled", r.stats.Culled,
		"drawn", r.stats.Drawn,
		"triangles", r.stats.Triangles,
	)
}

// behind reports whether every corner of b lies behind the near plane.
func behind(view mgl64.Mat4, b kernel.AABB) bool {
	for _, c := range b.Corners() {
		p := view.Mul4x1(mgl64.Vec4{c.X, c.Y, c.Z, 1})
		if p[2] < -nearPlane {
			return false
		}
	}
	return true
}

const nearPlane = 1e-6

func (r *Rasterizer) drawMesh(f *Frame, mvp mgl64.Mat4, m *mesh.Mesh, c [4]uint8) {
	clip := make([]mgl64.Vec4, len(m.Vertices))
	for i, v := range m.Vertices {
		p := v.Position
		clip[i] = mvp.Mul4x1(mgl64.Vec4{p.X, p.Y, p.Z, 1})
	}
	var poly [4]mgl64.Vec4
	for t := 0; t+2 < len(m.Indices); t += 3 {
		tri := [3]mgl64.Vec4{clip[m.Indices[t]], clip[m.Indices[t+1]], clip[m.Indices[t+2]]}
		n := clipNear(tri, &poly)
		for k := 1; k+1 < n; k++ {
			r.fill(f, poly[0], poly[k], poly[k+1], c)
			r.stats.Triangles++
		}
	}
}

// clipNear clips a clip-space triangle against z >= -w and writes the
// resulting convex polygon (0, 3 or 4 vertices) into out.
func clipNear(tri [3]mgl64.Vec4, out *[4]mgl64.Vec4) int {
	dist := func(v mgl64.Vec4) float64 { return v[2] + v[3] }
	n := 0
	for i := 0; i < 3; i++ {
		a, b := tri[i], tri[(i+1)%3]
		da, db := dist(a), dist(b)
		if da >= 0 {
			out[n] = a
			n++
		}
		if (da >= 0) != (db >= 0) {
			t := da / (da - db)
			out[n] = a.Add(b.Sub(a).Mul(t))
			n++
		}
	}
	return n
}

type screenVertex struct {
	x, y float64
	z    float32
}

func (r *Rasterizer) toScreen(v mgl64.Vec4, w, h int) screenVertex {
	inv := 1 / v[3]
	return screenVertex{
		x: (v[0]*inv + 1) * 0.5 * float64(w),
		y: (1 - v[1]*inv) * 0.5 * float64(h),
		z: float32((v[2]*inv + 1) * 0.5),
	}
}

func edge(a, b screenVertex, px, py float64) float64 {
	return (b.x-a.x)*(py-a.y) - (b.y-a.y)*(px-a.x)
}

// fill rasterizes one triangle with a less-than depth test. Both windings
// are drawn.
func (r *Rasterizer) fill(f *Frame, a, b, c mgl64.Vec4, color [4]uint8) {
	if a[3] <= 0 || b[3] <= 0 || c[3] <= 0 {
		return
	}
	w, h := f.Width, f.Height
	s0, s1, s2 := r.toScreen(a, w, h), r.toScreen(b, w, h), r.toScreen(c, w, h)

	area := edge(s0, s1, s2.x, s2.y)
	if area == 0 {
		return
	}

	minX := int(math32.Max(0, math32.Floor(float32(min(s0.x, s1.x, s2.x)))))
	maxX := int(math32.Min(float32(w-1), math32.Ceil(float32(max(s0.x, s1.x, s2.x)))))
	minY := int(math32.Max(0, math32.Floor(float32(min(s0.y, s1.y, s2.y)))))
	maxY := int(math32.Min(float32(h-1), math32.Ceil(float32(max(s0.y, s1.y, s2.y)))))

	for y := minY; y <= maxY; y++ {
		py := float64(y) + 0.5
		for x := minX; x <= maxX; x++ {
			px := float64(x) + 0.5
			w0 := edge(s1, s2, px, py) / area
			w1 := edge(s2, s0, px, py) / area
			w2 := edge(s0, s1, px, py) / area
			if w0 < 0 || w1 < 0 || w2 < 0 {
				continue
			}
			z := float32(w0)*s0.z + float32(w1)*s1.z + float32(w2)*s2.z
			if z < 0 || z > 1 {
				continue
			}
			i := y*w + x
			if z >= f.Depth[i] {
				continue
			}
			f.Depth[i] = z
			copy(f.Color[4*i:4*i+4], color[:])
		}
	}
}
