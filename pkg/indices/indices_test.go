package indices

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chazu/cityview/pkg/camera"
	"github.com/chazu/cityview/pkg/experiment"
	"github.com/chazu/cityview/pkg/kernel"
	"github.com/chazu/cityview/pkg/mesh"
	"github.com/chazu/cityview/pkg/render"
	"github.com/chazu/cityview/pkg/scene"
	"github.com/chazu/cityview/pkg/viewpoint"
)

// ---------------------------------------------------------------------------
// Fakes
// ---------------------------------------------------------------------------

// fakeRenderer returns a 4x4 frame: the top half building red, one row
// amenity yellow, one row sky, all at a single depth.
type fakeRenderer struct {
	mu     sync.Mutex
	calls  int
	failAt int // 1-based call that fails; 0 never
	depth  float32
	hook   func(call int)
}

func (f *fakeRenderer) RenderIdentificationPass(view, proj mgl64.Mat4) (*render.Frame, error) {
	f.mu.Lock()
	f.calls++
	call := f.calls
	f.mu.Unlock()
	if f.hook != nil {
		f.hook(call)
	}
	if call == f.failAt {
		return nil, errors.New("framebuffer incomplete")
	}

	fr := render.NewFrame(4, 4)
	for i := 0; i < 16; i++ {
		c := fr.Color[4*i : 4*i+4]
		switch {
		case i < 8:
			copy(c, []uint8{255, 0, 0, 255})
		case i < 12:
			copy(c, []uint8{255, 255, 0, 255})
		}
		fr.Depth[i] = f.depth
	}
	return fr, nil
}

func (f *fakeRenderer) RenderPickingPass(view, proj mgl64.Mat4, x, y int) (int32, error) {
	return 0, nil
}

func (f *fakeRenderer) ViewportSize() (int, int) { return 4, 4 }

type memRecorder struct {
	perf    []experiment.PerformanceRow
	data    []experiment.DataRow
	dataErr error
}

func (m *memRecorder) AppendPerformance(r experiment.PerformanceRow) error {
	m.perf = append(m.perf, r)
	return nil
}

func (m *memRecorder) AppendData(r experiment.DataRow) error {
	if m.dataErr != nil {
		return m.dataErr
	}
	m.data = append(m.data, r)
	return nil
}

func tower(t *testing.T) *mesh.Mesh {
	t.Helper()
	h := 10.0
	m, err := mesh.BuildPolygon(scene.Polygon{
		ID:       "tower",
		Ring:     orb.Ring{{0, 0}, {10, 0}, {10, 10}, {0, 10}, {0, 0}},
		Height:   &h,
		Category: scene.CategoryBuilding,
	}, kernel.Planar)
	require.NoError(t, err)
	return m
}

func newEngine(r render.Renderer) (*Engine, *camera.Camera) {
	cam := camera.New(kernel.V(1, 2, 3))
	cam.SetPitch(-20)
	return New(r, cam), cam
}

var granularity = viewpoint.Granularity{H: 2, V: 2, D: 2, A: 3}

// ---------------------------------------------------------------------------
// Pure helpers
// ---------------------------------------------------------------------------

func TestClassifyPixel(t *testing.T) {
	tests := []struct {
		rgb  [3]uint8
		want Class
	}{
		{[3]uint8{255, 0, 0}, ClassBuilding},
		{[3]uint8{255, 255, 0}, ClassAmenity},
		{[3]uint8{255, 0, 255}, ClassLandmark},
		{[3]uint8{0, 255, 0}, ClassTree},
		{[3]uint8{0, 0, 255}, ClassWater},
		{[3]uint8{0, 0, 0}, ClassSky},
		{[3]uint8{254, 0, 0}, ClassSky},
		{[3]uint8{255, 255, 255}, ClassSky},
	}
	for _, tt := range tests {
		t.Run(tt.want.String(), func(t *testing.T) {
			assert.Equal(t, tt.want, ClassifyPixel(tt.rgb[0], tt.rgb[1], tt.rgb[2]))
		})
	}
	assert.Equal(t, "unknown", Class(9).String())
}

func TestLinearize(t *testing.T) {
	near, far := camera.Near, camera.Far
	assert.InDelta(t, near, Linearize(0, near, far), 1e-9)
	assert.InDelta(t, far, Linearize(1, near, far), 1e-6)
	for _, z := range []float64{1, 2.5, 20, 100, 999} {
		d := WindowDepth(z, near, far)
		assert.GreaterOrEqual(t, d, 0.0)
		assert.LessOrEqual(t, d, 1.0)
		assert.InDelta(t, z, Linearize(d, near, far), 1e-6)
	}
}

func TestCacheFootprint(t *testing.T) {
	c := NewCache()
	base := c.MeasureDelta()
	assert.Positive(t, base)

	a := viewpoint.Setup{Position: kernel.V(1, 0, 0), Yaw: 10}
	b := viewpoint.Setup{Position: kernel.V(1, 0, 0), Yaw: 20}
	c.Entry(a)
	c.Entry(a)
	c.Entry(b)
	assert.Equal(t, 2, c.Len())
	assert.Equal(t, 2*entrySize, c.MeasureDelta())
	assert.Zero(t, c.MeasureDelta())

	_, ok := c.Lookup(viewpoint.Setup{Yaw: 30})
	assert.False(t, ok)

	c.Reset()
	assert.Zero(t, c.Len())
	assert.Zero(t, c.MeasureDelta())
}

func TestCacheRecordConcurrent(t *testing.T) {
	c := NewCache()
	c.MeasureDelta()
	s := viewpoint.Setup{Position: kernel.V(0, 2, 0), Yaw: 90}

	const workers = 16
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.record(s, [NumClasses]uint64{ClassBuilding: 3, ClassSky: 1}, 12.5)
			c.MeasureDelta()
		}()
	}
	wg.Wait()

	got, ok := c.Lookup(s)
	require.True(t, ok)
	assert.Equal(t, workers, got.Samples)
	assert.Equal(t, uint64(3*workers), got.Color[ClassBuilding])
	assert.Equal(t, uint64(workers), got.Color[ClassSky])
	assert.Equal(t, 1, c.Len())
	assert.Zero(t, c.MeasureDelta(), "every delta already measured")
}

// ---------------------------------------------------------------------------
// Run
// ---------------------------------------------------------------------------

func TestRunVolume(t *testing.T) {
	r := &fakeRenderer{depth: float32(WindowDepth(20, camera.Near, camera.Far))}
	e, cam := newEngine(r)
	before := cam.Snapshot()
	m := tower(t)
	rec := &memRecorder{}

	res, err := e.Run(context.Background(), Request{
		Mesh:        m,
		PickedID:    7,
		Granularity: granularity,
		Mode:        viewpoint.ModeVolume,
		Experiment:  rec,
	})
	require.NoError(t, err)
	assert.Equal(t, 24, res.Setups)
	assert.Equal(t, 24, res.Total)
	assert.Len(t, res.Rows, 24)
	assert.Len(t, rec.data, 24)
	assert.Equal(t, 24, e.Cache().Len())
	assert.Equal(t, StateIdle, e.State())
	assert.Equal(t, before, cam.Snapshot(), "camera pose restored")

	require.Len(t, rec.perf, 1)
	perf := rec.perf[0]
	assert.Equal(t, int32(7), perf.BuildingID)
	assert.Equal(t, 24, perf.Setups)
	assert.GreaterOrEqual(t, perf.ExecutionTime, 0.0)
	assert.Equal(t, res.MemoryDelta, perf.MemoryUsage)
	assert.Positive(t, perf.MemoryUsage)

	setups, err := viewpoint.Generate(m, granularity, viewpoint.ModeVolume)
	require.NoError(t, err)
	for i, row := range rec.data {
		assert.Equal(t, int32(7), row.BuildingID)
		assert.Equal(t, m.Bounds.Min, row.Origin)
		assert.Equal(t, setups[i].Position.Sub(m.Bounds.Min), row.Position)
		assert.Equal(t, setups[i].Yaw, row.Yaw)
		assert.InDelta(t, 0.5, row.BuildingRate, 1e-12)
		assert.InDelta(t, 0.25, row.AmenityRate, 1e-12)
		assert.InDelta(t, 0.25, row.SkyRate, 1e-12)
		assert.Zero(t, row.LandmarkRate)
		assert.Zero(t, row.TreeRate)
		assert.Zero(t, row.WaterRate)
		assert.InDelta(t, 20, row.MinDepth, 1e-3)
		assert.InDelta(t, 20, row.MaxDepth, 1e-3)
		assert.InDelta(t, 20, row.AvgDepth, 1e-3)
	}
}

func TestRunAutoUsesSurface(t *testing.T) {
	e, _ := newEngine(&fakeRenderer{depth: 1})
	rec := &memRecorder{}
	res, err := e.Run(context.Background(), Request{Mesh: tower(t), Granularity: granularity, Experiment: rec})
	require.NoError(t, err)
	assert.Equal(t, 12, res.Setups)
}

func TestRunIdempotentCache(t *testing.T) {
	r := &fakeRenderer{depth: 0.5}
	e, _ := newEngine(r)
	m := tower(t)
	req := Request{Mesh: m, Granularity: granularity, Mode: viewpoint.ModeVolume}

	req.Experiment = &memRecorder{}
	_, err := e.Run(context.Background(), req)
	require.NoError(t, err)
	require.Equal(t, 24, e.Cache().Len())

	rec := &memRecorder{}
	req.Experiment = rec
	res, err := e.Run(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, 24, e.Cache().Len(), "no new entries")
	assert.Zero(t, res.MemoryDelta)
	require.Len(t, rec.perf, 1)
	assert.Zero(t, rec.perf[0].MemoryUsage)

	setups, err := viewpoint.Generate(m, granularity, viewpoint.ModeVolume)
	require.NoError(t, err)
	v, ok := e.Cache().Lookup(setups[0])
	require.True(t, ok)
	assert.Equal(t, 2, v.Samples)
	assert.Equal(t, uint64(16), v.Color[ClassBuilding])
	assert.Equal(t, uint64(8), v.Color[ClassAmenity])
	assert.Equal(t, uint64(8), v.Color[ClassSky])
}

func TestRunPreconditions(t *testing.T) {
	m := tower(t)
	tests := []struct {
		name string
		req  Request
		want error
	}{
		{"no mesh", Request{Granularity: granularity, Experiment: &memRecorder{}}, ErrInvalidState},
		{"no experiment", Request{Mesh: m, Granularity: granularity}, ErrInvalidState},
		{"bad granularity", Request{Mesh: m, Granularity: viewpoint.Granularity{H: 2, V: 2, D: 2}, Experiment: &memRecorder{}}, viewpoint.ErrInvalidGranularity},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &fakeRenderer{}
			e, _ := newEngine(r)
			_, err := e.Run(context.Background(), tt.req)
			assert.ErrorIs(t, err, tt.want)
			assert.Zero(t, r.calls)
			assert.Equal(t, StateIdle, e.State())
			if rec, ok := tt.req.Experiment.(*memRecorder); ok {
				assert.Empty(t, rec.perf)
			}
		})
	}
}

func TestRunAlreadyRunning(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	r := &fakeRenderer{depth: 1}
	r.hook = func(call int) {
		if call == 1 {
			close(started)
			<-release
		}
	}
	e, _ := newEngine(r)
	m := tower(t)

	done := make(chan error, 1)
	go func() {
		_, err := e.Run(context.Background(), Request{Mesh: m, Granularity: granularity, Experiment: &memRecorder{}})
		done <- err
	}()

	<-started
	assert.Equal(t, StateRunning, e.State())
	_, err := e.Run(context.Background(), Request{Mesh: m, Granularity: granularity, Experiment: &memRecorder{}})
	assert.ErrorIs(t, err, ErrAlreadyRunning)
	assert.ErrorIs(t, err, ErrInvalidState)
	assert.ErrorIs(t, e.SetRenderer(r), ErrAlreadyRunning)

	close(release)
	require.NoError(t, <-done)
	assert.Equal(t, StateIdle, e.State())
}

func TestRunRendererFailure(t *testing.T) {
	r := &fakeRenderer{depth: 1, failAt: 5}
	e, cam := newEngine(r)
	before := cam.Snapshot()
	rec := &memRecorder{}

	res, err := e.Run(context.Background(), Request{
		Mesh:        tower(t),
		PickedID:    3,
		Granularity: granularity,
		Mode:        viewpoint.ModeVolume,
		Experiment:  rec,
	})
	assert.ErrorIs(t, err, ErrResourceFailure)
	assert.Equal(t, 4, res.Setups)
	assert.Len(t, rec.data, 4)
	require.Len(t, rec.perf, 1, "performance row written on failure")
	assert.Equal(t, 4, rec.perf[0].Setups)
	assert.Equal(t, before, cam.Snapshot())
	assert.Equal(t, StateIdle, e.State())
}

func TestRunSinkFailure(t *testing.T) {
	e, _ := newEngine(&fakeRenderer{depth: 1})
	rec := &memRecorder{dataErr: errors.New("disk full")}
	res, err := e.Run(context.Background(), Request{Mesh: tower(t), Granularity: granularity, Experiment: rec})
	assert.ErrorIs(t, err, ErrResourceFailure)
	assert.Zero(t, res.Setups)
	require.Len(t, rec.perf, 1)
}

func TestRunCancelled(t *testing.T) {
	t.Run("before start", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		r := &fakeRenderer{depth: 1}
		e, _ := newEngine(r)
		rec := &memRecorder{}
		res, err := e.Run(ctx, Request{Mesh: tower(t), Granularity: granularity, Experiment: rec})
		assert.ErrorIs(t, err, context.Canceled)
		assert.Zero(t, res.Setups)
		assert.Zero(t, r.calls)
		assert.Len(t, rec.perf, 1)
	})

	t.Run("between setups", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		r := &fakeRenderer{depth: 1}
		r.hook = func(call int) {
			if call == 3 {
				cancel()
			}
		}
		e, cam := newEngine(r)
		before := cam.Snapshot()
		rec := &memRecorder{}
		res, err := e.Run(ctx, Request{Mesh: tower(t), Granularity: granularity, Experiment: rec})
		assert.ErrorIs(t, err, context.Canceled)
		assert.Equal(t, 3, res.Setups)
		assert.Len(t, rec.data, 3)
		require.Len(t, rec.perf, 1)
		assert.Equal(t, 3, rec.perf[0].Setups)
		assert.Equal(t, before, cam.Snapshot())
	})
}
