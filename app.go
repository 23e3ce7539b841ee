package main

import (
	"context"

	"github.com/samber/lo"
	"github.com/wailsapp/wails/v2/pkg/runtime"

	"github.com/chazu/cityview/pkg/engine"
	"github.com/chazu/cityview/pkg/indices"
	"github.com/chazu/cityview/pkg/mesh"
	"github.com/chazu/cityview/pkg/model"
	"github.com/chazu/cityview/pkg/session"
	"github.com/chazu/cityview/pkg/viewpoint"
)

// App is the Wails backend. It exposes the session to the frontend via
// bindings. Every binding returns a value the frontend can render, with
// failures reported as messages rather than Go errors.
type App struct {
	ctx     context.Context
	session *session.Session
	editor  *engine.Engine
}

// MeshData is the JSON-serializable mesh format sent to the frontend.
// Positions are relative to the model origin.
type MeshData struct {
	mesh.Buffers
	Category string `json:"category"`
	Color    string `json:"color"`
	PickID   int32  `json:"pickId"`
}

// EvalErrorData is a JSON-serializable eval error for the frontend.
type EvalErrorData struct {
	Line    int    `json:"line"`
	Col     int    `json:"col"`
	Message string `json:"message"`
}

// LoadResult is returned by LoadModel.
type LoadResult struct {
	Format   string     `json:"format"`
	Meshes   []MeshData `json:"meshes"`
	Skipped  []string   `json:"skipped"`
	Warnings []string   `json:"warnings"`
	Error    string     `json:"error,omitempty"`
}

// PickResult is returned by Pick and PickIndex.
type PickResult struct {
	Index    int    `json:"index"`
	Selected bool   `json:"selected"`
	Name     string `json:"name,omitempty"`
	Error    string `json:"error,omitempty"`
}

// SampleResult summarizes one sampling run.
type SampleResult struct {
	Setups      int     `json:"setups"`
	Total       int     `json:"total"`
	ElapsedMs   float64 `json:"elapsedMs"`
	MemoryDelta int64   `json:"memoryDelta"`
	Error       string  `json:"error,omitempty"`
}

// PlanResult is the parsed form of a script, shown while editing.
type PlanResult struct {
	Steps  []string        `json:"steps"`
	Errors []EvalErrorData `json:"errors"`
}

// ScriptResult is returned by RunScript.
type ScriptResult struct {
	Steps       int             `json:"steps"`
	Samples     []SampleResult  `json:"samples"`
	Screenshots []string        `json:"screenshots"`
	Errors      []EvalErrorData `json:"errors"`
}

// NewApp wraps a session.
func NewApp(s *session.Session) *App {
	return &App{session: s, editor: engine.NewEngine()}
}

// startup is called by Wails on app startup. The context is saved
// so we can call Wails runtime methods later.
func (a *App) startup(ctx context.Context) {
	a.ctx = ctx
}

// shutdown flushes experiments when the window closes.
func (a *App) shutdown(ctx context.Context) {
	if err := a.session.Close(); err != nil {
		a.session.Logger().Error("session close", "err", err)
	}
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

// ---------------------------------------------------------------------------
// Model
// ---------------------------------------------------------------------------

// LoadModel replaces the model with the file at path and returns its
// meshes.
func (a *App) LoadModel(path string) LoadResult {
	result := LoadResult{
		Meshes:   []MeshData{},
		Skipped:  []string{},
		Warnings: []string{},
	}
	rep, err := a.session.LoadModel(path)
	if err != nil {
		result.Error = err.Error()
		return result
	}
	result.Format = rep.Format
	result.Meshes = a.Meshes()
	result.Skipped = lo.Map(rep.Skipped, func(err error, _ int) string { return err.Error() })
	result.Warnings = append(result.Warnings, rep.Warnings...)
	return result
}

// ChooseModel asks for a file with the native dialog and loads it. An
// empty result with no error means the dialog was cancelled.
func (a *App) ChooseModel() LoadResult {
	path, err := runtime.OpenFileDialog(a.ctx, runtime.OpenDialogOptions{
		Title: "Open city model",
		Filters: []runtime.FileFilter{
			{DisplayName: "City models (*.geojson, *.json, *.dae)", Pattern: "*.geojson;*.json;*.dae"},
		},
	})
	if err != nil {
		return LoadResult{Error: err.Error()}
	}
	if path == "" {
		return LoadResult{}
	}
	return a.LoadModel(path)
}

// Meshes returns every mesh of the current model in upload format.
func (a *App) Meshes() []MeshData {
	mdl := a.session.Model()
	if mdl == nil {
		return []MeshData{}
	}
	origin := [3]float64{mdl.Origin.X, mdl.Origin.Y, mdl.Origin.Z}
	return lo.Map(mdl.Meshes, func(m *mesh.Mesh, i int) MeshData {
		return MeshData{
			Buffers:  m.Buffers(origin),
			Category: m.Category.String(),
			Color:    m.Color.Hex(),
			PickID:   model.PickID(i),
		}
	})
}

// ---------------------------------------------------------------------------
// Selection and settings
// ---------------------------------------------------------------------------

// Pick selects the mesh under window pixel (x, y), or clears the selection.
func (a *App) Pick(x, y int) PickResult {
	i, ok, err := a.session.Pick(x, y)
	return a.pickResult(i, ok, err)
}

// PickIndex selects mesh i; a negative i clears the selection.
func (a *App) PickIndex(i int) PickResult {
	err := a.session.PickIndex(i)
	i, ok := a.session.Selected()
	return a.pickResult(i, ok, err)
}

func (a *App) pickResult(i int, ok bool, err error) PickResult {
	res := PickResult{Index: i, Selected: ok, Error: errString(err)}
	if mdl := a.session.Model(); ok && mdl != nil {
		if m, found := mdl.Mesh(i); found {
			res.Name = m.Name
		}
	}
	return res
}

// SetGranularity returns an error message, empty on success.
func (a *App) SetGranularity(h, v, d, yaws int) string {
	return errString(a.session.SetGranularity(viewpoint.Granularity{H: h, V: v, D: d, A: yaws}))
}

// SetMode accepts "surface", "volume" or "auto".
func (a *App) SetMode(name string) string {
	m, err := viewpoint.ParseMode(name)
	if err != nil {
		return err.Error()
	}
	a.session.SetMode(m)
	return ""
}

func (a *App) SetExperiment(name string) string {
	return errString(a.session.SetExperiment(name))
}

// Status reports the session state.
func (a *App) Status() session.Status {
	st := a.session.Status()
	if st.Experiments == nil {
		st.Experiments = []string{}
	}
	return st
}

// ---------------------------------------------------------------------------
// Sampling
// ---------------------------------------------------------------------------

// Sample runs the sampling engine on the selected mesh.
func (a *App) Sample() SampleResult {
	ctx := a.ctx
	if ctx == nil {
		ctx = context.Background()
	}
	return sampleResult(a.session.Sample(ctx))
}

func sampleResult(res indices.Result, err error) SampleResult {
	return SampleResult{
		Setups:      res.Setups,
		Total:       res.Total,
		ElapsedMs:   float64(res.Elapsed.Microseconds()) / 1000,
		MemoryDelta: res.MemoryDelta,
		Error:       errString(err),
	}
}

// Screenshot saves the current view and returns its path, or an error
// message prefixed with "error: ".
func (a *App) Screenshot(name string) string {
	path, err := a.session.Screenshot(name)
	if err != nil {
		return "error: " + err.Error()
	}
	return path
}

// ---------------------------------------------------------------------------
// Scripts
// ---------------------------------------------------------------------------

func evalErrors(errs []engine.EvalError) []EvalErrorData {
	return lo.Map(errs, func(e engine.EvalError, _ int) EvalErrorData {
		return EvalErrorData{Line: e.Line, Col: e.Col, Message: e.Message}
	})
}

// Evaluate parses a script without running it. This is the binding the
// editor calls as the user types.
func (a *App) Evaluate(source string) PlanResult {
	result := PlanResult{
		Steps:  []string{},
		Errors: []EvalErrorData{},
	}
	plan, errs, err := a.editor.Evaluate(source)
	if err != nil {
		result.Errors = append(result.Errors, EvalErrorData{Message: err.Error()})
		return result
	}
	if len(errs) > 0 {
		result.Errors = evalErrors(errs)
		return result
	}
	result.Steps = lo.Map(plan.Steps, func(s engine.Step, _ int) string { return s.String() })
	return result
}

// RunScript evaluates source and executes its plan against the session.
func (a *App) RunScript(source string) ScriptResult {
	ctx := a.ctx
	if ctx == nil {
		ctx = context.Background()
	}
	rep, err := a.session.RunScript(ctx, source)
	result := ScriptResult{
		Steps:       rep.Steps,
		Screenshots: append([]string{}, rep.Screenshots...),
		Errors:      evalErrors(rep.Errors),
		Samples: lo.Map(rep.Samples, func(r indices.Result, _ int) SampleResult {
			return sampleResult(r, nil)
		}),
	}
	if err != nil && len(rep.Errors) == 0 {
		result.Errors = append(result.Errors, EvalErrorData{Message: err.Error()})
	}
	return result
}
