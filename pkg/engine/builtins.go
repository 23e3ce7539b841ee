package engine

import (
	"fmt"
	"math"
	"strings"

	zygo "github.com/glycerine/zygomys/zygo"

	"github.com/chazu/cityview/pkg/kernel"
	"github.com/chazu/cityview/pkg/viewpoint"
)

// ---------------------------------------------------------------------------
// Values passed between builtins
// ---------------------------------------------------------------------------

type sexpVec3 struct {
	vec kernel.Vec3
}

func (v *sexpVec3) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(vec3 %g %g %g)", v.vec.X, v.vec.Y, v.vec.Z)
}
func (v *sexpVec3) Type() *zygo.RegisteredType { return nil }

// sexpStep is what every plan builtin returns, so the REPL shows the step.
type sexpStep struct {
	step Step
}

func (s *sexpStep) SexpString(ps *zygo.PrintState) string { return s.step.String() }
func (s *sexpStep) Type() *zygo.RegisteredType          { return nil }

// ---------------------------------------------------------------------------
// Argument parsing
// ---------------------------------------------------------------------------

func keyword(s zygo.Sexp) (string, bool) {
	str, ok := s.(*zygo.SexpStr)
	if !ok || !strings.HasPrefix(str.S, kwPrefix) {
		return "", false
	}
	return strings.TrimPrefix(str.S, kwPrefix), true
}

type kwArgs struct {
	kw         map[string]zygo.Sexp
	positional []zygo.Sexp
}

// parseArgs splits args into keyword pairs and the remaining positionals.
// A trailing keyword without a value maps to SexpNull.
func parseArgs(args []zygo.Sexp) kwArgs {
	out := kwArgs{kw: make(map[string]zygo.Sexp)}
	for i := 0; i < len(args); i++ {
		name, ok := keyword(args[i])
		if !ok {
			out.positional = append(out.positional, args[i])
			continue
		}
		if i+1 < len(args) {
			out.kw[name] = args[i+1]
			i++
		} else {
			out.kw[name] = zygo.SexpNull
		}
	}
	return out
}

func (a kwArgs) unknown(allowed ...string) error {
	for k := range a.kw {
		found := false
		for _, name := range allowed {
			if k == name {
				found = true
				break
			}
		}
		if !found {
			return fmt.Errorf("unknown keyword :%s", k)
		}
	}
	return nil
}

func toFloat64(s zygo.Sexp) (float64, error) {
	switch v := s.(type) {
	case *zygo.SexpInt:
		return float64(v.Val), nil
	case *zygo.SexpFloat:
		return v.Val, nil
	}
	return 0, fmt.Errorf("expected number, got %T (%s)", s, s.SexpString(nil))
}

// toInt accepts integers and integral floats.
func toInt(s zygo.Sexp) (int, error) {
	switch v := s.(type) {
	case *zygo.SexpInt:
		return int(v.Val), nil
	case *zygo.SexpFloat:
		if v.Val == math.Trunc(v.Val) {
			return int(v.Val), nil
		}
		return 0, fmt.Errorf("expected integer, got %g", v.Val)
	}
	return 0, fmt.Errorf("expected integer, got %T (%s)", s, s.SexpString(nil))
}

func toString(s zygo.Sexp) (string, error) {
	if str, ok := s.(*zygo.SexpStr); ok {
		if name, ok := keyword(s); ok {
			return name, nil
		}
		return str.S, nil
	}
	return "", fmt.Errorf("expected string, got %T (%s)", s, s.SexpString(nil))
}

func toVec3(s zygo.Sexp) (kernel.Vec3, error) {
	if v, ok := s.(*sexpVec3); ok {
		return v.vec, nil
	}
	return kernel.Vec3{}, fmt.Errorf("expected vec3, got %T (%s)", s, s.SexpString(nil))
}

// ---------------------------------------------------------------------------
// Builtin registration
// ---------------------------------------------------------------------------

type builtin func(args []zygo.Sexp) (Step, error)

// registerBuiltins installs the plan builtins. Each appends one step to p
// in call order. Source must go through preprocessSource first.
func registerBuiltins(env *zygo.Zlisp, p *Plan) {
	add := func(name string, fn builtin) {
		env.AddFunction(name, func(env *zygo.Zlisp, _ string, args []zygo.Sexp) (zygo.Sexp, error) {
			step, err := fn(args)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("%s: %w", strings.ReplaceAll(name, "_", "-"), err)
			}
			p.add(step)
			return &sexpStep{step: step}, nil
		})
	}

	// (vec3 x y z) builds a value and adds no step.
	env.AddFunction("vec3", func(env *zygo.Zlisp, _ string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 3 {
			return zygo.SexpNull, fmt.Errorf("vec3: want 3 arguments, got %d", len(args))
		}
		var xyz [3]float64
		for i, a := range args {
			f, err := toFloat64(a)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("vec3: %c: %w", "xyz"[i], err)
			}
			xyz[i] = f
		}
		return &sexpVec3{vec: kernel.V(xyz[0], xyz[1], xyz[2])}, nil
	})

	// (experiment "name")
	add("experiment", func(args []zygo.Sexp) (Step, error) {
		name, err := oneString(args)
		if err != nil {
			return Step{}, err
		}
		if strings.TrimSpace(name) == "" {
			return Step{}, fmt.Errorf("empty name")
		}
		return Step{Kind: StepExperiment, Name: name}, nil
	})

	// (granularity h v d a)
	add("granularity", func(args []zygo.Sexp) (Step, error) {
		if len(args) != 4 {
			return Step{}, fmt.Errorf("want 4 arguments (h v d a), got %d", len(args))
		}
		var g [4]int
		for i, a := range args {
			n, err := toInt(a)
			if err != nil {
				return Step{}, fmt.Errorf("argument %d: %w", i+1, err)
			}
			g[i] = n
		}
		gran := viewpoint.GranularityFrom(g)
		if err := gran.Validate(); err != nil {
			return Step{}, err
		}
		return Step{Kind: StepGranularity, Granularity: gran}, nil
	})

	// (mode :surface)
	add("mode", func(args []zygo.Sexp) (Step, error) {
		name, err := oneString(args)
		if err != nil {
			return Step{}, err
		}
		m, err := viewpoint.ParseMode(name)
		if err != nil {
			return Step{}, err
		}
		return Step{Kind: StepMode, Mode: m}, nil
	})

	// (pick id)
	add("pick", func(args []zygo.Sexp) (Step, error) {
		if len(args) != 1 {
			return Step{}, fmt.Errorf("want 1 argument, got %d", len(args))
		}
		id, err := toInt(args[0])
		if err != nil {
			return Step{}, err
		}
		if id <= 0 || id > math.MaxInt32 {
			return Step{}, fmt.Errorf("picking id %d out of range", id)
		}
		return Step{Kind: StepPick, ID: int32(id)}, nil
	})

	// (pick-mesh index)
	add("pick_mesh", func(args []zygo.Sexp) (Step, error) {
		if len(args) != 1 {
			return Step{}, fmt.Errorf("want 1 argument, got %d", len(args))
		}
		i, err := toInt(args[0])
		if err != nil {
			return Step{}, err
		}
		if i < 0 {
			return Step{}, fmt.Errorf("negative index %d", i)
		}
		return Step{Kind: StepPickMesh, Index: i}, nil
	})

	// (camera :position (vec3 x y z) :yaw deg :pitch deg)
	add("camera", func(args []zygo.Sexp) (Step, error) {
		pa := parseArgs(args)
		if len(pa.positional) > 0 {
			return Step{}, fmt.Errorf("unexpected positional argument %s", pa.positional[0].SexpString(nil))
		}
		if err := pa.unknown("position", "yaw", "pitch"); err != nil {
			return Step{}, err
		}
		var mv CameraMove
		if v, ok := pa.kw["position"]; ok {
			p, err := toVec3(v)
			if err != nil {
				return Step{}, fmt.Errorf("position: %w", err)
			}
			mv.Position = &p
		}
		for name, dst := range map[string]**float64{"yaw": &mv.Yaw, "pitch": &mv.Pitch} {
			if v, ok := pa.kw[name]; ok {
				f, err := toFloat64(v)
				if err != nil {
					return Step{}, fmt.Errorf("%s: %w", name, err)
				}
				*dst = &f
			}
		}
		if mv.Position == nil && mv.Yaw == nil && mv.Pitch == nil {
			return Step{}, fmt.Errorf("nothing to set")
		}
		return Step{Kind: StepCamera, Camera: mv}, nil
	})

	// (sample)
	add("sample", func(args []zygo.Sexp) (Step, error) {
		if len(args) != 0 {
			return Step{}, fmt.Errorf("takes no arguments")
		}
		return Step{Kind: StepSample}, nil
	})

	// (screenshot "name")
	add("screenshot", func(args []zygo.Sexp) (Step, error) {
		name, err := oneString(args)
		if err != nil {
			return Step{}, err
		}
		return Step{Kind: StepScreenshot, Name: name}, nil
	})
}

func oneString(args []zygo.Sexp) (string, error) {
	if len(args) != 1 {
		return "", fmt.Errorf("want 1 argument, got %d", len(args))
	}
	return toString(args[0])
}
