package model

import (
	"io"
	"log/slog"
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chazu/cityview/pkg/kernel"
	"github.com/chazu/cityview/pkg/mesh"
	"github.com/chazu/cityview/pkg/scene"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func box(x, z, size float64, h *float64) scene.Polygon {
	return scene.Polygon{
		ID:     "b",
		Ring:   orb.Ring{{x, z}, {x + size, z}, {x + size, z + size}, {x, z + size}, {x, z}},
		Height: h,
	}
}

func ptr(f float64) *float64 { return &f }

func testModel(t *testing.T) *Model {
	t.Helper()
	polys := []scene.Polygon{
		box(0, 0, 10, ptr(20)),
		box(100, 0, 10, nil),
		box(0, 100, 10, ptr(5)),
	}
	mdl, errs := Build(polys, nil, Options{Projection: kernel.Planar, Logger: quietLogger()})
	require.Empty(t, errs)
	require.Equal(t, 3, mdl.Len())
	return mdl
}

func TestBuildKeepsOrder(t *testing.T) {
	mdl := testModel(t)
	assert.True(t, mdl.Meshes[0].Extruded)
	assert.False(t, mdl.Meshes[1].Extruded)
	assert.Equal(t, scene.CategoryFlat, mdl.Meshes[1].Category)

	b := mdl.Bounds()
	assert.Equal(t, kernel.V(0, 0, 0), b.Min)
	assert.Equal(t, kernel.V(110, 20, 110), b.Max)
}

func TestBuildSkipsDegenerate(t *testing.T) {
	polys := []scene.Polygon{
		box(0, 0, 10, nil),
		{ID: "line", Ring: orb.Ring{{0, 0}, {5, 0}, {10, 0}, {0, 0}}},
		box(20, 0, 10, nil),
	}
	mdl, errs := Build(polys, nil, Options{Projection: kernel.Planar, Logger: quietLogger()})
	assert.Equal(t, 2, mdl.Len())
	require.Len(t, errs, 1)
	assert.ErrorIs(t, errs[0], kernel.ErrGeometryDegenerate)
}

func TestQuery(t *testing.T) {
	mdl := testModel(t)

	tests := []struct {
		name string
		box  kernel.AABB
		want []int
	}{
		{"everything", kernel.AABB{Min: kernel.V(-1, -1, -1), Max: kernel.V(200, 50, 200)}, []int{0, 1, 2}},
		{"first only", kernel.AABB{Min: kernel.V(2, 2, 2), Max: kernel.V(3, 3, 3)}, []int{0}},
		{"flat mesh", kernel.AABB{Min: kernel.V(101, 0, 1), Max: kernel.V(102, 0, 2)}, []int{1}},
		{"empty space", kernel.AABB{Min: kernel.V(50, 0, 50), Max: kernel.V(60, 10, 60)}, []int{}},
		{"empty box", kernel.EmptyAABB(), nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := mdl.Query(tt.box)
			if tt.want == nil {
				assert.Nil(t, got)
				return
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNearest(t *testing.T) {
	mdl := testModel(t)
	i, ok := mdl.Nearest(kernel.V(105, 0, -3))
	require.True(t, ok)
	assert.Equal(t, 1, i)

	_, ok = New(kernel.Vec3{}).Nearest(kernel.Vec3{})
	assert.False(t, ok)
}

func TestMeshLookup(t *testing.T) {
	mdl := testModel(t)
	m, ok := mdl.Mesh(2)
	require.True(t, ok)
	assert.Same(t, mdl.Meshes[2], m)

	_, ok = mdl.Mesh(3)
	assert.False(t, ok)
	_, ok = mdl.Mesh(-1)
	assert.False(t, ok)
}

func TestPickEncoding(t *testing.T) {
	tests := []struct {
		index int
		rgb   [3]uint8
	}{
		{0, [3]uint8{1, 0, 0}},
		{254, [3]uint8{255, 0, 0}},
		{255, [3]uint8{0, 1, 0}},
		{65535, [3]uint8{0, 0, 1}},
		{70000, [3]uint8{0x71, 0x11, 0x01}},
	}
	for _, tt := range tests {
		got := PickColor(tt.index)
		if got != tt.rgb {
			t.Errorf("PickColor(%d) = %v, want %v", tt.index, got, tt.rgb)
		}
		idx, ok := PickIndex(DecodePick(got))
		if !ok || idx != tt.index {
			t.Errorf("round trip of %d gave %d, %v", tt.index, idx, ok)
		}
	}

	_, ok := PickIndex(DecodePick([3]uint8{}))
	assert.False(t, ok, "black is the background")
}

func TestPicked(t *testing.T) {
	mdl := testModel(t)

	i, ok := mdl.Picked(PickID(1))
	assert.True(t, ok)
	assert.Equal(t, 1, i)

	_, ok = mdl.Picked(PickID(3))
	assert.False(t, ok)
	_, ok = mdl.Picked(NoPick)
	assert.False(t, ok)
}

func TestAddIndexes(t *testing.T) {
	mdl := New(kernel.V(1, 2, 3))
	m := &mesh.Mesh{Bounds: kernel.AABB{Min: kernel.V(0, 0, 0), Max: kernel.V(1, 1, 1)}}
	assert.Equal(t, 0, mdl.Add(m))
	assert.Equal(t, 1, mdl.Add(m))
	assert.Equal(t, []int{0, 1}, mdl.Query(m.Bounds))
	assert.Equal(t, "model(2 meshes)", mdl.String())
}
