// Package session is the application context. A Session owns the loaded
// model and every collaborator that works on it: the camera, the software
// rasterizer, the sampling engine, the experiment registry and the script
// engine. The desktop shell and the batch runner both drive a Session.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/samber/lo"

	"github.com/chazu/cityview/pkg/camera"
	"github.com/chazu/cityview/pkg/config"
	"github.com/chazu/cityview/pkg/engine"
	"github.com/chazu/cityview/pkg/experiment"
	"github.com/chazu/cityview/pkg/indices"
	"github.com/chazu/cityview/pkg/kernel"
	"github.com/chazu/cityview/pkg/model"
	"github.com/chazu/cityview/pkg/render"
	"github.com/chazu/cityview/pkg/scene"
	"github.com/chazu/cityview/pkg/source"
	"github.com/chazu/cityview/pkg/viewpoint"
)

var (
	ErrNoModel = errors.New("session: no model loaded")
	ErrScript  = errors.New("session: script failed")
	ErrClosed  = errors.New("session: closed")
)

// Framing pose used after a model is loaded.
const (
	frameYaw   = camera.DefaultYaw
	framePitch = -20.0
)

// Session is safe for use from one UI goroutine plus background sampling.
// mu guards the selection and sampling settings; view serializes everything
// that moves the camera or renders. sampling is claimed by Sample before it
// blocks on either lock.
type Session struct {
	cfg config.Config
	log *slog.Logger

	store    *experiment.Store
	registry *experiment.Registry
	camera   *camera.Camera
	raster   *render.Rasterizer
	sampler  *indices.Engine
	scripts  *engine.Engine

	view     sync.Mutex
	sampling atomic.Bool

	mu          sync.Mutex
	model       *model.Model
	source      string
	selected    int
	granularity viewpoint.Granularity
	mode        viewpoint.Mode
	experiment  string
	closed      bool
}

// Option configures New.
type Option func(*Session)

// WithLogger replaces the logger built from the config.
func WithLogger(l *slog.Logger) Option {
	return func(s *Session) { s.log = l }
}

// New validates cfg and builds the collaborators: logger, experiment store
// and registry, camera, model, renderer, sampling engine, script engine.
func New(cfg config.Config, opts ...Option) (*Session, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	s := &Session{
		cfg:         cfg,
		selected:    -1,
		granularity: cfg.Granularity(),
		mode:        cfg.Mode(),
		experiment:  cfg.Sampling.Experiment,
	}
	for _, o := range opts {
		o(s)
	}
	if s.log == nil {
		s.log = cfg.NewLogger()
	}

	if path := cfg.Experiments.Database; path != "" {
		store, err := experiment.OpenStore(path)
		if err != nil {
			return nil, fmt.Errorf("session: %w", err)
		}
		s.store = store
	}
	s.registry = experiment.NewRegistry(experiment.Factory(cfg.Experiments.Dir, s.store), s.log)

	origin := cfg.Origin()
	s.camera = camera.New(origin)
	s.model = model.New(origin)
	s.raster = render.NewRasterizer(s.model, cfg.Viewport.Width, cfg.Viewport.Height,
		render.WithMaxPixels(cfg.Viewport.MaxPixels),
		render.WithLogger(s.log),
	)
	s.sampler = indices.New(s.raster, s.camera, indices.WithLogger(s.log))
	s.scripts = engine.NewEngine()

	s.log.Debug("session ready",
		"viewport", fmt.Sprintf("%dx%d", cfg.Viewport.Width, cfg.Viewport.Height),
		"experiments", cfg.Experiments.Dir,
		"database", cfg.Experiments.Database,
	)
	return s, nil
}

// Close flushes every experiment and closes the database. A second call
// is a no-op.
func (s *Session) Close() error {
	s.view.Lock()
	defer s.view.Unlock()
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true

	var errs []error
	errs = append(errs, s.registry.Close())
	if s.store != nil {
		errs = append(errs, s.store.Close())
	}
	s.model = nil
	s.selected = -1
	return errors.Join(errs...)
}

// Config returns the configuration the session was built with.
func (s *Session) Config() config.Config {
	return s.cfg
}

// Logger returns the session logger.
func (s *Session) Logger() *slog.Logger {
	return s.log
}

// ---------------------------------------------------------------------------
// Loading
// ---------------------------------------------------------------------------

// LoadReport summarizes a LoadModel call.
type LoadReport struct {
	Format   string
	Meshes   int
	Skipped  []error
	Warnings []string
}

// LoadModel replaces the model with the records of path and frames the
// camera on it. Records that fail to parse, validate or mesh are skipped
// and reported; the error is set only when the file cannot be read.
func (s *Session) LoadModel(path string) (LoadReport, error) {
	var rep LoadReport
	res, err := source.Load(path)
	if err != nil {
		return rep, err
	}
	mdl, errs := model.Build(res.Polygons, res.Nodes, model.Options{
		Projection: s.cfg.Projection(),
		Origin:     s.cfg.Origin(),
		Logger:     s.log,
	})

	rep.Format = res.Format.String()
	rep.Meshes = mdl.Len()
	rep.Skipped = append(res.Skipped, errs...)
	rep.Warnings = lo.Map(res.Warnings, func(w scene.ValidationError, _ int) string {
		return w.Error()
	})

	s.view.Lock()
	defer s.view.Unlock()
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return rep, ErrClosed
	}
	s.model = mdl
	s.source = path
	s.selected = -1
	s.raster.SetModel(mdl)
	s.frame(mdl.Bounds())

	s.log.Info("model loaded",
		"path", path,
		"format", rep.Format,
		"meshes", rep.Meshes,
		"skipped", len(rep.Skipped),
		"warnings", len(rep.Warnings),
	)
	return rep, nil
}

// frame places the camera in front of b, looking down at its center.
func (s *Session) frame(b kernel.AABB) {
	if b.IsEmpty() {
		return
	}
	size := b.Size()
	span := max(size.X, size.Z, 10)
	c := b.Center()
	s.camera.SetPosition(kernel.V(c.X, b.Max.Y+span/2, b.Max.Z+span))
	s.camera.SetYaw(frameYaw)
	s.camera.SetPitch(framePitch)
}

// Model returns the current model.
func (s *Session) Model() *model.Model {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.model
}

// ---------------------------------------------------------------------------
// Selection
// ---------------------------------------------------------------------------

// Pick renders the picking pass and selects the mesh under window pixel
// (x, y). Picking the selected mesh again, or the background, clears the
// selection. It returns the new selection.
func (s *Session) Pick(x, y int) (int, bool, error) {
	s.view.Lock()
	id, err := s.raster.RenderPickingPass(s.camera.View(), s.camera.Projection(s.aspect()), x, y)
	s.view.Unlock()
	if err != nil {
		return -1, false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.model == nil {
		return -1, false, ErrNoModel
	}
	i, ok := s.model.Picked(id)
	if !ok || i == s.selected {
		s.selected = -1
		s.log.Debug("selection cleared", "x", x, "y", y, "id", id)
		return -1, false, nil
	}
	s.selected = i
	s.log.Info("mesh picked", "index", i, "id", id, "name", s.model.Meshes[i].Name)
	return i, true, nil
}

// PickIndex selects mesh i directly. A negative i clears the selection.
func (s *Session) PickIndex(i int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.model == nil {
		return ErrNoModel
	}
	if i < 0 {
		s.selected = -1
		return nil
	}
	if i >= s.model.Len() {
		return fmt.Errorf("session: mesh index %d out of range [0, %d)", i, s.model.Len())
	}
	s.selected = i
	return nil
}

// Selected returns the selected mesh index.
func (s *Session) Selected() (int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selected, s.selected >= 0
}

// ---------------------------------------------------------------------------
// Settings
// ---------------------------------------------------------------------------

func (s *Session) SetGranularity(g viewpoint.Granularity) error {
	if err := g.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.granularity = g
	return nil
}

func (s *Session) SetMode(m viewpoint.Mode) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mode = m
}

// SetExperiment names the experiment that later samples are written to.
func (s *Session) SetExperiment(name string) error {
	if err := experiment.ValidateName(name); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.experiment = name
	return nil
}

// MoveCamera applies any subset of a pose.
func (s *Session) MoveCamera(m engine.CameraMove) {
	s.view.Lock()
	defer s.view.Unlock()
	if m.Position != nil {
		s.camera.SetPosition(*m.Position)
	}
	if m.Yaw != nil {
		s.camera.SetYaw(*m.Yaw)
	}
	if m.Pitch != nil {
		s.camera.SetPitch(*m.Pitch)
	}
}

// Pose returns the current camera pose.
func (s *Session) Pose() camera.Pose {
	s.view.Lock()
	defer s.view.Unlock()
	return s.camera.Snapshot()
}

func (s *Session) aspect() float64 {
	w, h := s.raster.ViewportSize()
	if h <= 0 {
		return 1
	}
	return float64(w) / float64(h)
}

// ---------------------------------------------------------------------------
// Sampling
// ---------------------------------------------------------------------------

// Sample runs the sampling engine on the selected mesh and writes its rows
// to the current experiment. A call made while another is in flight fails
// with indices.ErrAlreadyRunning instead of queueing.
func (s *Session) Sample(ctx context.Context) (indices.Result, error) {
	if !s.sampling.CompareAndSwap(false, true) {
		return indices.Result{}, indices.ErrAlreadyRunning
	}
	defer s.sampling.Store(false)

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return indices.Result{}, ErrClosed
	}
	req := indices.Request{
		PickedID:    model.PickID(s.selected),
		Granularity: s.granularity,
		Mode:        s.mode,
	}
	if s.model != nil && s.selected >= 0 {
		req.Mesh, _ = s.model.Mesh(s.selected)
	}
	name := s.experiment
	s.mu.Unlock()

	if req.Mesh == nil {
		return indices.Result{}, fmt.Errorf("%w: no mesh picked", indices.ErrInvalidState)
	}
	exp, err := s.registry.Get(name)
	if err != nil {
		return indices.Result{}, err
	}
	req.Experiment = exp

	s.view.Lock()
	defer s.view.Unlock()
	return s.sampler.Run(ctx, req)
}

// Screenshot renders the display pass and saves it under the screenshot
// directory as name, PNG unless name carries another image extension.
func (s *Session) Screenshot(name string) (string, error) {
	if err := experiment.ValidateName(name); err != nil {
		return "", fmt.Errorf("session: screenshot: %w", err)
	}
	s.mu.Lock()
	picked := s.selected
	s.mu.Unlock()

	s.view.Lock()
	f, err := s.raster.RenderDisplayPass(s.camera.View(), s.camera.Projection(s.aspect()), picked)
	s.view.Unlock()
	if err != nil {
		return "", err
	}
	path := filepath.Join(s.cfg.Screenshots.Dir, name)
	if filepath.Ext(path) == "" {
		path += ".png"
	}
	if err := render.WriteScreenshot(path, f); err != nil {
		return "", err
	}
	s.log.Info("screenshot saved", "path", path)
	return path, nil
}

// ---------------------------------------------------------------------------
// Status
// ---------------------------------------------------------------------------

// Status is a snapshot for display.
type Status struct {
	Source       string   `json:"source"`
	Meshes       int      `json:"meshes"`
	Selected     int      `json:"selected"`
	SelectedName string   `json:"selectedName,omitempty"`
	PickedID     int32    `json:"pickedId"`
	Granularity  [4]int   `json:"granularity"`
	Mode         string   `json:"mode"`
	Experiment   string   `json:"experiment"`
	Experiments  []string `json:"experiments"`
	State        string   `json:"state"`
	CacheEntries int      `json:"cacheEntries"`
	CacheBytes   int64    `json:"cacheBytes"`
}

func (s *Session) Status() Status {
	s.mu.Lock()
	st := Status{
		Source:      s.source,
		Selected:    s.selected,
		Granularity: s.granularity.Array(),
		Mode:        s.mode.String(),
		Experiment:  s.experiment,
	}
	if s.model != nil {
		st.Meshes = s.model.Len()
		if m, ok := s.model.Mesh(s.selected); ok {
			st.SelectedName = m.Name
			st.PickedID = model.PickID(s.selected)
		}
	}
	s.mu.Unlock()

	st.Experiments = s.registry.Names()
	st.State = s.sampler.State().String()
	st.CacheEntries = s.sampler.Cache().Len()
	st.CacheBytes = s.sampler.Cache().Footprint()
	return st
}
