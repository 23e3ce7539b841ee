package engine

import (
	"fmt"
	"strings"

	"github.com/chazu/cityview/pkg/kernel"
	"github.com/chazu/cityview/pkg/viewpoint"
)

// StepKind identifies what a plan step does.
type StepKind int

const (
	StepExperiment  StepKind = iota // select the experiment rows go to
	StepGranularity                 // set the sampling granularity
	StepMode                        // set the viewpoint mode
	StepPick                        // select a mesh by picking id
	StepPickMesh                    // select a mesh by model index
	StepCamera                      // move the camera
	StepSample                      // run the sampling engine on the selection
	StepScreenshot                  // save the current view
)

var stepKindNames = map[StepKind]string{
	StepExperiment:  "experiment",
	StepGranularity: "granularity",
	StepMode:        "mode",
	StepPick:        "pick",
	StepPickMesh:    "pick-mesh",
	StepCamera:      "camera",
	StepSample:      "sample",
	StepScreenshot:  "screenshot",
}

func (k StepKind) String() string {
	if s, ok := stepKindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("StepKind(%d)", int(k))
}

// CameraMove sets any subset of the camera pose.
type CameraMove struct {
	Position *kernel.Vec3 `json:"position,omitempty"`
	Yaw      *float64     `json:"yaw,omitempty"`
	Pitch    *float64     `json:"pitch,omitempty"`
}

// Step is one instruction of a plan. Only the fields of its kind are set.
type Step struct {
	Kind        StepKind              `json:"kind"`
	Name        string                `json:"name,omitempty"` // experiment or screenshot name
	Granularity viewpoint.Granularity `json:"granularity,omitzero"`
	Mode        viewpoint.Mode        `json:"mode,omitempty"`
	ID          int32                 `json:"id,omitempty"`    // picking id
	Index       int                   `json:"index,omitempty"` // mesh index
	Camera      CameraMove            `json:"camera,omitzero"`
}

func (s Step) String() string {
	switch s.Kind {
	case StepExperiment, StepScreenshot:
		return fmt.Sprintf("(%s %q)", s.Kind, s.Name)
	case StepGranularity:
		g := s.Granularity
		return fmt.Sprintf("(granularity %d %d %d %d)", g.H, g.V, g.D, g.A)
	case StepMode:
		return fmt.Sprintf("(mode :%s)", s.Mode)
	case StepPick:
		return fmt.Sprintf("(pick %d)", s.ID)
	case StepPickMesh:
		return fmt.Sprintf("(pick-mesh %d)", s.Index)
	case StepCamera:
		var b strings.Builder
		b.WriteString("(camera")
		if p := s.Camera.Position; p != nil {
			fmt.Fprintf(&b, " :position (vec3 %g %g %g)", p.X, p.Y, p.Z)
		}
		if s.Camera.Yaw != nil {
			fmt.Fprintf(&b, " :yaw %g", *s.Camera.Yaw)
		}
		if s.Camera.Pitch != nil {
			fmt.Fprintf(&b, " :pitch %g", *s.Camera.Pitch)
		}
		b.WriteString(")")
		return b.String()
	}
	return "(" + s.Kind.String() + ")"
}

// Plan is the ordered list of steps a script produced.
type Plan struct {
	Steps []Step `json:"steps"`
}

// NewPlan returns an empty plan.
func NewPlan() *Plan {
	return &Plan{}
}

func (p *Plan) add(s Step) {
	p.Steps = append(p.Steps, s)
}

// Len is the number of steps.
func (p *Plan) Len() int {
	return len(p.Steps)
}

// Count is the number of steps of kind k.
func (p *Plan) Count(k StepKind) int {
	n := 0
	for _, s := range p.Steps {
		if s.Kind == k {
			n++
		}
	}
	return n
}

func (p *Plan) String() string {
	lines := make([]string, len(p.Steps))
	for i, s := range p.Steps {
		lines[i] = s.String()
	}
	return strings.Join(lines, "\n")
}
