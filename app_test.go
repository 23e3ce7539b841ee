package main

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/chazu/cityview/pkg/config"
	"github.com/chazu/cityview/pkg/session"
)

// newTestApp builds an App over a small off-screen session writing into a
// temp dir.
func newTestApp(t *testing.T) *App {
	t.Helper()
	dir := t.TempDir()
	cfg := config.Default()
	cfg.Input.Projection = "planar"
	cfg.Viewport = config.Viewport{Width: 64, Height: 64}
	cfg.Experiments.Dir = filepath.Join(dir, "experiments")
	cfg.Screenshots.Dir = filepath.Join(dir, "screenshots")

	s, err := session.New(cfg, session.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	if err != nil {
		t.Fatalf("session: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return NewApp(s)
}

// TestE2ELoadExample exercises the load path the Wails LoadModel binding
// takes: file -> records -> meshes -> upload buffers.
func TestE2ELoadExample(t *testing.T) {
	app := newTestApp(t)

	result := app.LoadModel("examples/city.geojson")
	if result.Error != "" {
		t.Fatalf("load error: %s", result.Error)
	}
	if result.Format != "geojson" {
		t.Errorf("format = %q, want geojson", result.Format)
	}

	// The point feature is skipped; tower, annex and ground survive.
	if len(result.Skipped) != 1 {
		t.Errorf("expected 1 skipped record, got %v", result.Skipped)
	}
	if len(result.Meshes) != 3 {
		t.Fatalf("expected 3 meshes, got %d", len(result.Meshes))
	}

	expected := []string{"tower", "annex", "ground"}
	for i, m := range result.Meshes {
		if m.Name != expected[i] {
			t.Errorf("mesh %d: name %q, want %q", i, m.Name, expected[i])
		}
		if m.PickID != int32(i+1) {
			t.Errorf("mesh %d: pick id %d, want %d", i, m.PickID, i+1)
		}
		if m.VertexCount() == 0 || len(m.Normals) != len(m.Vertices) {
			t.Errorf("mesh %q: %d vertices, %d normals", m.Name, len(m.Vertices), len(m.Normals))
		}
		if m.TriangleCount() == 0 {
			t.Errorf("mesh %q: no triangles", m.Name)
		}
		if m.Color == "" {
			t.Errorf("mesh %q: no color assigned", m.Name)
		}
	}

	if st := app.Status(); st.Meshes != 3 || st.Selected != -1 {
		t.Errorf("status after load: %+v", st)
	}
}

// TestE2ESweepScript runs the bundled script end to end.
func TestE2ESweepScript(t *testing.T) {
	app := newTestApp(t)
	if res := app.LoadModel("examples/city.geojson"); res.Error != "" {
		t.Fatalf("load error: %s", res.Error)
	}

	source, err := os.ReadFile("examples/sweep.lisp")
	if err != nil {
		t.Fatalf("failed to read sweep.lisp: %v", err)
	}

	result := app.RunScript(string(source))
	if len(result.Errors) > 0 {
		for _, e := range result.Errors {
			t.Errorf("script error (line %d): %s", e.Line, e.Message)
		}
		t.FailNow()
	}
	if result.Steps != 9 {
		t.Errorf("expected 9 steps, got %d", result.Steps)
	}
	if len(result.Samples) != 2 {
		t.Fatalf("expected 2 samples, got %d", len(result.Samples))
	}
	for i, s := range result.Samples {
		if s.Setups == 0 || s.Setups != s.Total {
			t.Errorf("sample %d: %d of %d setups", i, s.Setups, s.Total)
		}
	}
	if len(result.Screenshots) != 1 {
		t.Fatalf("expected 1 screenshot, got %v", result.Screenshots)
	}
	if _, err := os.Stat(result.Screenshots[0]); err != nil {
		t.Errorf("screenshot missing: %v", err)
	}

	st := app.Status()
	if st.Experiment != "sweep" || len(st.Experiments) != 1 {
		t.Errorf("status after script: %+v", st)
	}
	if st.SelectedName != "annex" {
		t.Errorf("selected %q, want annex", st.SelectedName)
	}
}

// TestE2EEmptySource ensures the editor binding handles empty input.
func TestE2EEmptySource(t *testing.T) {
	app := newTestApp(t)
	result := app.Evaluate("")

	if len(result.Errors) > 0 {
		t.Errorf("unexpected errors for empty source: %v", result.Errors)
	}
	if len(result.Steps) != 0 {
		t.Errorf("expected 0 steps for empty source, got %d", len(result.Steps))
	}
}

// TestE2ESyntaxError ensures eval errors are reported, not fatal errors.
func TestE2ESyntaxError(t *testing.T) {
	app := newTestApp(t)
	result := app.Evaluate("(experiment \"test\"")

	if len(result.Errors) == 0 {
		t.Fatal("expected eval errors for syntax error")
	}
	if len(result.Steps) != 0 {
		t.Errorf("expected 0 steps on error, got %d", len(result.Steps))
	}
}

// TestE2EEvaluateListsSteps checks the editor preview of a plan.
func TestE2EEvaluateListsSteps(t *testing.T) {
	app := newTestApp(t)
	result := app.Evaluate(`(granularity 1 2 3 4) (pick-mesh 0) (sample)`)

	if len(result.Errors) > 0 {
		t.Fatalf("unexpected errors: %v", result.Errors)
	}
	want := []string{"(granularity 1 2 3 4)", "(pick-mesh 0)", "(sample)"}
	if len(result.Steps) != len(want) {
		t.Fatalf("steps = %v, want %v", result.Steps, want)
	}
	for i := range want {
		if result.Steps[i] != want[i] {
			t.Errorf("step %d = %q, want %q", i, result.Steps[i], want[i])
		}
	}
}
