package engine

import (
	"strings"
	"testing"

	"github.com/chazu/cityview/pkg/kernel"
	"github.com/chazu/cityview/pkg/viewpoint"
)

func TestPreprocess(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		expect string
	}{
		{"keyword", `(mode :surface)`, `(mode "__kw_surface")`},
		{"several keywords", `(camera :yaw 90 :pitch -10)`, `(camera "__kw_yaw" 90 "__kw_pitch" -10)`},
		{"keyword inside string", `"a :keyword inside"`, `"a :keyword inside"`},
		{"escaped quote in string", `"say \"hi\" :x" :y`, `"say \"hi\" :x" "__kw_y"`},
		{"raw string", "`:raw-text`", "`:raw-text`"},
		{"assignment", `(def x := 10)`, `(def x := 10)`},
		{"kebab-case", `(pick-mesh 3)`, `(pick_mesh 3)`},
		{"minus", `(- 10 5)`, `(- 10 5)`},
		{"negative literal", `(vec3 0 -1 2)`, `(vec3 0 -1 2)`},
		{"double semicolon comment", ";; note :keyword\n(sample)", "// note :keyword\n(sample)"},
		{"single semicolon comment", `; simple`, `// simple`},
		{"hyphenated keyword", `:pick-mesh`, `"__kw_pick-mesh"`},
		{"unterminated string", `"open :x`, `"open :x`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := preprocessSource(tt.input); got != tt.expect {
				t.Errorf("preprocessSource(%q) = %q, want %q", tt.input, got, tt.expect)
			}
		})
	}
}

func TestEvaluatePlan(t *testing.T) {
	eng := NewEngine()

	source := `
; survey the tallest tower from the street
(experiment "midtown")
(granularity 2 2 2 3)
(mode :volume)
(pick 7)
(camera :position (vec3 10 1.5 -20) :yaw -90 :pitch 5)
(sample)
(pick-mesh 0)
(screenshot "tower")
`
	p, evalErrs, err := eng.Evaluate(source)
	if err != nil {
		t.Fatalf("fatal error: %v", err)
	}
	if len(evalErrs) > 0 {
		t.Fatalf("eval errors: %v", evalErrs)
	}

	want := []StepKind{StepExperiment, StepGranularity, StepMode, StepPick, StepCamera, StepSample, StepPickMesh, StepScreenshot}
	if p.Len() != len(want) {
		t.Fatalf("expected %d steps, got %d:\n%s", len(want), p.Len(), p)
	}
	for i, k := range want {
		if p.Steps[i].Kind != k {
			t.Errorf("step %d: kind %s, want %s", i, p.Steps[i].Kind, k)
		}
	}

	if p.Steps[0].Name != "midtown" {
		t.Errorf("experiment = %q", p.Steps[0].Name)
	}
	if g := p.Steps[1].Granularity; g != (viewpoint.Granularity{H: 2, V: 2, D: 2, A: 3}) {
		t.Errorf("granularity = %v", g)
	}
	if m := p.Steps[2].Mode; m != viewpoint.ModeVolume {
		t.Errorf("mode = %v", m)
	}
	if id := p.Steps[3].ID; id != 7 {
		t.Errorf("pick id = %d", id)
	}

	cam := p.Steps[4].Camera
	if cam.Position == nil || *cam.Position != kernel.V(10, 1.5, -20) {
		t.Errorf("camera position = %v", cam.Position)
	}
	if cam.Yaw == nil || *cam.Yaw != -90 {
		t.Errorf("camera yaw = %v", cam.Yaw)
	}
	if cam.Pitch == nil || *cam.Pitch != 5 {
		t.Errorf("camera pitch = %v", cam.Pitch)
	}
	if idx := p.Steps[6].Index; idx != 0 {
		t.Errorf("pick-mesh index = %d", idx)
	}
	if p.Steps[7].Name != "tower" {
		t.Errorf("screenshot = %q", p.Steps[7].Name)
	}
	if p.Count(StepSample) != 1 {
		t.Errorf("expected 1 sample step, got %d", p.Count(StepSample))
	}
}

func TestEvaluateVariables(t *testing.T) {
	eng := NewEngine()

	p, evalErrs, err := eng.Evaluate(`
(def h 3)
(def label "sweep")
(experiment label)
(granularity h h 1 4)
`)
	if err != nil {
		t.Fatalf("fatal error: %v", err)
	}
	if len(evalErrs) > 0 {
		t.Fatalf("eval errors: %v", evalErrs)
	}
	if p.Len() != 2 {
		t.Fatalf("expected 2 steps, got %d", p.Len())
	}
	if p.Steps[0].Name != "sweep" {
		t.Errorf("experiment = %q, want sweep", p.Steps[0].Name)
	}
	if g := p.Steps[1].Granularity; g != (viewpoint.Granularity{H: 3, V: 3, D: 1, A: 4}) {
		t.Errorf("granularity = %v", g)
	}
}

func TestBuiltinErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
	}{
		{"granularity arity", `(granularity 1 2 3)`},
		{"granularity zero", `(granularity 0 1 1 1)`},
		{"granularity fraction", `(granularity 1.5 1 1 1)`},
		{"unknown mode", `(mode :orbit)`},
		{"pick background", `(pick 0)`},
		{"negative mesh index", `(pick-mesh -1)`},
		{"empty camera", `(camera)`},
		{"unknown camera keyword", `(camera :roll 3)`},
		{"camera position not vec3", `(camera :position 3)`},
		{"empty experiment", `(experiment "")`},
		{"sample with argument", `(sample 1)`},
		{"short vec3", `(camera :position (vec3 1 2))`},
	}

	eng := NewEngine()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, evalErrs, err := eng.Evaluate(tt.src)
			if err != nil {
				t.Fatalf("expected non-fatal eval error, got fatal: %v", err)
			}
			if p != nil {
				t.Errorf("expected nil plan, got:\n%s", p)
			}
			if len(evalErrs) == 0 {
				t.Fatal("expected an eval error")
			}
		})
	}
}

func TestStepString(t *testing.T) {
	yaw := 45.0
	tests := []struct {
		step Step
		want string
	}{
		{Step{Kind: StepExperiment, Name: "a"}, `(experiment "a")`},
		{Step{Kind: StepGranularity, Granularity: viewpoint.Granularity{H: 1, V: 2, D: 3, A: 4}}, `(granularity 1 2 3 4)`},
		{Step{Kind: StepMode, Mode: viewpoint.ModeSurface}, `(mode :surface)`},
		{Step{Kind: StepPickMesh, Index: 2}, `(pick-mesh 2)`},
		{Step{Kind: StepCamera, Camera: CameraMove{Yaw: &yaw}}, `(camera :yaw 45)`},
		{Step{Kind: StepSample}, `(sample)`},
	}
	for _, tt := range tests {
		t.Run(tt.step.Kind.String(), func(t *testing.T) {
			if got := tt.step.String(); got != tt.want {
				t.Errorf("String() = %q, want %q", got, tt.want)
			}
		})
	}
	if !strings.HasPrefix(StepKind(99).String(), "StepKind(") {
		t.Error("unknown kinds should print their number")
	}
}
