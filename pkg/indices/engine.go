// Package indices runs the view-sampling workflow: it walks the camera
// through every setup generated for a picked mesh, renders an
// identification pass at each, and records per-class pixel ratios and
// linearized depth statistics into a cache and an experiment.
package indices

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/chazu/cityview/pkg/camera"
	"github.com/chazu/cityview/pkg/experiment"
	"github.com/chazu/cityview/pkg/kernel"
	"github.com/chazu/cityview/pkg/mesh"
	"github.com/chazu/cityview/pkg/render"
	"github.com/chazu/cityview/pkg/viewpoint"
)

var (
	ErrInvalidState    = errors.New("indices: invalid state")
	ErrAlreadyRunning  = fmt.Errorf("%w: run already in progress", ErrInvalidState)
	ErrResourceFailure = errors.New("indices: resource failure")
)

// State is the engine lifecycle.
type State int32

const (
	StateIdle State = iota
	StateRunning
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}

// Camera is the part of the camera the engine drives.
type Camera interface {
	Snapshot() camera.Pose
	Restore(camera.Pose)
	SetPosition(kernel.Vec3)
	SetYaw(float64)
	View() mgl64.Mat4
	Projection(aspect float64) mgl64.Mat4
}

var _ Camera = (*camera.Camera)(nil)

// Recorder receives the rows of a run.
type Recorder interface {
	AppendPerformance(experiment.PerformanceRow) error
	AppendData(experiment.DataRow) error
}

var _ Recorder = (*experiment.Experiment)(nil)

// Request describes one sampling run.
type Request struct {
	Mesh        *mesh.Mesh
	PickedID    int32
	Granularity viewpoint.Granularity
	Mode        viewpoint.Mode
	Experiment  Recorder
}

// Result is returned by Run on every exit path, including failures.
type Result struct {
	Setups      int           // setups completed
	Total       int           // setups generated
	Elapsed     time.Duration
	MemoryDelta int64
	Rows        []experiment.DataRow
}

// Engine samples one mesh at a time. Run calls on an engine that is already
// running fail with ErrAlreadyRunning.
type Engine struct {
	renderer render.Renderer
	camera   Camera
	cache    *Cache
	state    atomic.Int32
	log      *slog.Logger

	Near, Far float64

	setups []viewpoint.Setup
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the engine logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.log = l }
}

// WithCache shares an existing cache.
func WithCache(c *Cache) Option {
	return func(e *Engine) { e.cache = c }
}

// New returns an idle engine.
func New(r render.Renderer, cam Camera, opts ...Option) *Engine {
	e := &Engine{
		renderer: r,
		camera:   cam,
		cache:    NewCache(),
		log:      slog.Default(),
		Near:     camera.Near,
		Far:      camera.Far,
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// State reports whether a run is in progress.
func (e *Engine) State() State {
	return State(e.state.Load())
}

// Cache returns the engine's index cache.
func (e *Engine) Cache() *Cache {
	return e.cache
}

// SetRenderer swaps the renderer. It fails while a run is in progress.
func (e *Engine) SetRenderer(r render.Renderer) error {
	if e.State() != StateIdle {
		return ErrAlreadyRunning
	}
	e.renderer = r
	return nil
}

// Run samples req.Mesh. Preconditions are checked before anything is
// touched. Once setups are generated, the camera pose is restored and a
// performance row is written on every exit, whether the run completes, is
// cancelled between setups, or fails.
func (e *Engine) Run(ctx context.Context, req Request) (res Result, err error) {
	if !e.state.CompareAndSwap(int32(StateIdle), int32(StateRunning)) {
		return res, ErrAlreadyRunning
	}
	defer e.state.Store(int32(StateIdle))

	switch {
	case req.Mesh == nil:
		return res, fmt.Errorf("%w: no mesh picked", ErrInvalidState)
	case req.Experiment == nil:
		return res, fmt.Errorf("%w: no experiment", ErrInvalidState)
	case e.renderer == nil || e.camera == nil:
		return res, fmt.Errorf("%w: no renderer or camera", ErrInvalidState)
	}
	setups, err := viewpoint.Generate(req.Mesh, req.Granularity, req.Mode)
	if err != nil {
		return res, err
	}
	e.setups = setups
	res.Total = len(setups)

	pose := e.camera.Snapshot()
	defer e.camera.Restore(pose)

	log := e.log.With("mesh", req.Mesh.Name, "picked", req.PickedID)
	log.Info("sampling started",
		"setups", len(setups),
		"granularity", req.Granularity.String(),
		"mode", req.Mode.Resolve(req.Mesh).String(),
	)

	start := time.Now()
	err = e.sampleAll(ctx, req, log, &res)
	res.Elapsed = time.Since(start)
	res.MemoryDelta = e.cache.MeasureDelta()
	e.setups = nil

	perf := experiment.PerformanceRow{
		BuildingID:    req.PickedID,
		Setups:        res.Setups,
		ExecutionTime: res.Elapsed.Seconds(),
		MemoryUsage:   res.MemoryDelta,
	}
	if perr := req.Experiment.AppendPerformance(perf); perr != nil {
		err = errors.Join(err, fmt.Errorf("indices: performance row: %w: %w", ErrResourceFailure, perr))
	}

	log.Info("sampling finished",
		"completed", res.Setups,
		"elapsed", res.Elapsed,
		"memory_delta", res.MemoryDelta,
		"err", err,
	)
	return res, err
}

func (e *Engine) sampleAll(ctx context.Context, req Request, log *slog.Logger, res *Result) error {
	origin := req.Mesh.Bounds.Min
	for i, setup := range e.setups {
		if err := ctx.Err(); err != nil {
			return err
		}

		row, err := e.sample(setup, origin, req.PickedID)
		if err != nil {
			return fmt.Errorf("indices: setup %d: %w: %w", i, ErrResourceFailure, err)
		}
		res.Rows = append(res.Rows, row)
		if err := req.Experiment.AppendData(row); err != nil {
			return fmt.Errorf("indices: setup %d: data row: %w: %w", i, ErrResourceFailure, err)
		}
		res.Setups++

		log.Debug("setup sampled",
			"index", i,
			"yaw", setup.Yaw,
			"building_rate", row.BuildingRate,
			"avg_depth", row.AvgDepth,
		)
	}
	return nil
}

func (e *Engine) sample(setup viewpoint.Setup, origin kernel.Vec3, picked int32) (experiment.DataRow, error) {
	e.camera.SetPosition(setup.Position)
	e.camera.SetYaw(setup.Yaw)

	w, h := e.renderer.ViewportSize()
	if w <= 0 || h <= 0 {
		return experiment.DataRow{}, fmt.Errorf("viewport %dx%d", w, h)
	}
	frame, err := e.renderer.RenderIdentificationPass(e.camera.View(), e.camera.Projection(float64(w)/float64(h)))
	if err != nil {
		return experiment.DataRow{}, err
	}
	pixels := frame.Pixels()
	if pixels == 0 {
		return experiment.DataRow{}, fmt.Errorf("empty frame")
	}

	counts := classify(frame)
	depth := depthStats(frame, e.Near, e.Far)

	e.cache.record(setup, counts, depth.Avg)

	rate := func(c Class) float64 { return float64(counts[c]) / float64(pixels) }
	return experiment.DataRow{
		BuildingID:   picked,
		Origin:       origin,
		Position:     setup.Position.Sub(origin),
		Yaw:          setup.Yaw,
		BuildingRate: rate(ClassBuilding),
		LandmarkRate: rate(ClassLandmark),
		AmenityRate:  rate(ClassAmenity),
		TreeRate:     rate(ClassTree),
		WaterRate:    rate(ClassWater),
		SkyRate:      rate(ClassSky),
		MinDepth:     depth.Min,
		MaxDepth:     depth.Max,
		AvgDepth:     depth.Avg,
	}, nil
}
