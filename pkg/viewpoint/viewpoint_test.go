package viewpoint

import (
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chazu/cityview/pkg/kernel"
	"github.com/chazu/cityview/pkg/mesh"
	"github.com/chazu/cityview/pkg/scene"
)

func building(t *testing.T, h float64) *mesh.Mesh {
	t.Helper()
	m, err := mesh.BuildPolygon(scene.Polygon{
		ID:     "quad",
		Ring:   orb.Ring{{0, 0}, {10, 0}, {10, 10}, {0, 10}, {0, 0}},
		Height: &h,
	}, kernel.Planar)
	require.NoError(t, err)
	return m
}

func assertVec(t *testing.T, want, got kernel.Vec3) {
	t.Helper()
	assert.InDelta(t, want.X, got.X, 1e-9, "x")
	assert.InDelta(t, want.Y, got.Y, 1e-9, "y")
	assert.InDelta(t, want.Z, got.Z, 1e-9, "z")
}

func TestGranularityValidate(t *testing.T) {
	tests := []struct {
		g       Granularity
		wantErr bool
	}{
		{Granularity{2, 2, 2, 3}, false},
		{Granularity{1, 1, 1, 1}, false},
		{Granularity{0, 2, 2, 3}, true},
		{Granularity{2, 2, 2, 0}, true},
		{Granularity{2, -1, 2, 3}, true},
	}
	for _, tt := range tests {
		t.Run(tt.g.String(), func(t *testing.T) {
			err := tt.g.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidGranularity)
			} else {
				assert.NoError(t, err)
			}
		})
	}
	assert.Equal(t, Granularity{2, 2, 2, 3}, GranularityFrom([4]int{2, 2, 2, 3}))
}

func TestParseMode(t *testing.T) {
	for _, name := range []string{"auto", "surface", "volume"} {
		m, err := ParseMode(name)
		require.NoError(t, err)
		assert.Equal(t, name, m.String())
	}
	m, err := ParseMode("")
	require.NoError(t, err)
	assert.Equal(t, ModeAuto, m)

	_, err = ParseMode("orbit")
	assert.Error(t, err)
}

func TestYaws(t *testing.T) {
	assert.InDeltaSlice(t, []float64{-90, -30, 30}, Yaws(kernel.V(1, 0, 0), 3), 1e-9)
	assert.InDeltaSlice(t, []float64{0, 60, 120}, Yaws(kernel.V(0, 0, 1), 3), 1e-9)
	assert.InDeltaSlice(t, []float64{90, 180}, Yaws(kernel.V(-1, 0, 0), 2), 1e-9)
}

func TestGenerateCounts(t *testing.T) {
	m := building(t, 10)
	g := Granularity{2, 2, 2, 3}

	tests := []struct {
		mode Mode
		want int
	}{
		{ModeVolume, 24},
		{ModeSurface, 12},
		{ModeAuto, 12},
	}
	for _, tt := range tests {
		t.Run(tt.mode.String(), func(t *testing.T) {
			setups, err := Generate(m, g, tt.mode)
			require.NoError(t, err)
			assert.Len(t, setups, tt.want)
			assert.Equal(t, tt.want, Count(g, tt.mode.Resolve(m)))
		})
	}
}

func TestGenerateDeterministic(t *testing.T) {
	m := building(t, 10)
	for _, mode := range []Mode{ModeSurface, ModeVolume} {
		a, err := Generate(m, Granularity{3, 2, 2, 4}, mode)
		require.NoError(t, err)
		b, err := Generate(m, Granularity{3, 2, 2, 4}, mode)
		require.NoError(t, err)
		assert.Equal(t, a, b, mode.String())

		seen := make(map[Setup]int)
		for _, s := range a {
			seen[s]++
		}
		for s, n := range seen {
			assert.Equal(t, 1, n, "setup %+v repeated", s)
		}
	}
}

func TestGenerateErrors(t *testing.T) {
	m := building(t, 10)
	_, err := Generate(m, Granularity{2, 2, 2, 0}, ModeSurface)
	assert.ErrorIs(t, err, ErrInvalidGranularity)

	_, err = Generate(nil, Granularity{1, 1, 1, 1}, ModeSurface)
	assert.ErrorIs(t, err, ErrNoFootprint)

	node := &mesh.Mesh{Name: "node", Oriented: kernel.AxisAligned(kernel.AABB{Max: kernel.V(1, 1, 1)})}
	_, err = Generate(node, Granularity{1, 1, 1, 1}, ModeSurface)
	assert.ErrorIs(t, err, ErrNoFootprint)

	setups, err := Generate(node, Granularity{1, 1, 1, 1}, ModeAuto)
	require.NoError(t, err, "auto falls back to volume for meshes without a footprint")
	assert.Len(t, setups, 1)
}

func TestSurfacePoints(t *testing.T) {
	m := building(t, 10)
	points, err := SurfacePoints(m, 4, 2)
	require.NoError(t, err)
	require.Len(t, points, 8)

	// The ring runs (0,10) -> (10,10) -> (10,0) -> (0,0) after winding
	// normalization, so the first wall is z = 10.
	want := []Point{
		{kernel.V(5, 0, 10), kernel.V(0, 0, 1)},
		{kernel.V(5, 10, 10), kernel.V(0, 0, 1)},
		{kernel.V(10, 0, 5), kernel.V(1, 0, 0)},
		{kernel.V(10, 10, 5), kernel.V(1, 0, 0)},
		{kernel.V(5, 0, 0), kernel.V(0, 0, -1)},
		{kernel.V(5, 10, 0), kernel.V(0, 0, -1)},
		{kernel.V(0, 0, 5), kernel.V(-1, 0, 0)},
		{kernel.V(0, 10, 5), kernel.V(-1, 0, 0)},
	}
	for i, w := range want {
		assertVec(t, w.Position, points[i].Position)
		assertVec(t, w.Normal, points[i].Normal)
	}
}

func TestVolumePointsAxisAligned(t *testing.T) {
	box := kernel.AxisAligned(kernel.AABB{Min: kernel.V(0, 0, 0), Max: kernel.V(10, 10, 20)})
	points := VolumePoints(box, 2, 1, 2)
	require.Len(t, points, 4)

	want := []Point{
		{kernel.V(0, 0, 0), kernel.V(-1, 0, 0)},
		{kernel.V(0, 0, 20), kernel.V(-1, 0, 0)},
		{kernel.V(10, 0, 0), kernel.V(1, 0, 0)},
		{kernel.V(10, 0, 20), kernel.V(1, 0, 0)},
	}
	for i, w := range want {
		assertVec(t, w.Position, points[i].Position)
		assertVec(t, w.Normal, points[i].Normal)
	}
}

func TestVolumePointsNearestFace(t *testing.T) {
	box := kernel.AxisAligned(kernel.AABB{Min: kernel.V(0, 0, 0), Max: kernel.V(10, 4, 4)})
	points := VolumePoints(box, 5, 1, 3)
	// Middle of the lattice: x = 5, z = 2 is closest to the z faces.
	mid := points[2*3+1]
	assertVec(t, kernel.V(5, 0, 2), mid.Position)
	assertVec(t, kernel.V(0, 0, -1), mid.Normal)
}

func TestVolumePointsRotated(t *testing.T) {
	box := kernel.OrientedBox{
		Bounds: kernel.AABB{Min: kernel.V(0, 0, 0), Max: kernel.V(1, 0, 1)},
		Frame:  kernel.Frame{Axes: [2][2]float64{{0, 1}, {-1, 0}}},
	}
	points := VolumePoints(box, 2, 1, 1)
	require.Len(t, points, 2)
	assertVec(t, kernel.V(0, 0, 0), points[0].Position)
	assertVec(t, kernel.V(0, 0, -1), points[0].Normal)
	assertVec(t, kernel.V(0, 0, 1), points[1].Position)
	assertVec(t, kernel.V(0, 0, 1), points[1].Normal)
}
