package session

import (
	"context"
	"fmt"

	"github.com/chazu/cityview/pkg/engine"
	"github.com/chazu/cityview/pkg/indices"
)

// ScriptReport collects what a plan did. Steps counts the steps that ran
// to completion.
type ScriptReport struct {
	Plan        *engine.Plan
	Errors      []engine.EvalError
	Steps       int
	Samples     []indices.Result
	Screenshots []string
}

// RunScript evaluates src and executes the resulting plan. Script errors
// are returned in the report and wrapped in ErrScript.
func (s *Session) RunScript(ctx context.Context, src string) (ScriptReport, error) {
	plan, evalErrs, err := s.scripts.Evaluate(src)
	if err != nil {
		return ScriptReport{}, fmt.Errorf("%w: %w", ErrScript, err)
	}
	if len(evalErrs) > 0 {
		return ScriptReport{Errors: evalErrs}, fmt.Errorf("%w: %w", ErrScript, evalErrs[0])
	}
	return s.RunPlan(ctx, plan)
}

// RunPlan executes plan in order and stops at the first failing step.
// Sampling errors that still produced rows are reported with the partial
// result appended.
func (s *Session) RunPlan(ctx context.Context, plan *engine.Plan) (ScriptReport, error) {
	rep := ScriptReport{Plan: plan}
	if plan == nil {
		return rep, nil
	}
	for i, step := range plan.Steps {
		if err := ctx.Err(); err != nil {
			return rep, err
		}
		if err := s.runStep(ctx, step, &rep); err != nil {
			s.log.Warn("plan step failed", "step", i, "op", step.String(), "err", err)
			return rep, fmt.Errorf("session: step %d %s: %w", i, step, err)
		}
		rep.Steps++
	}
	s.log.Info("plan finished",
		"steps", rep.Steps,
		"samples", len(rep.Samples),
		"screenshots", len(rep.Screenshots),
	)
	return rep, nil
}

func (s *Session) runStep(ctx context.Context, step engine.Step, rep *ScriptReport) error {
	switch step.Kind {
	case engine.StepExperiment:
		return s.SetExperiment(step.Name)
	case engine.StepGranularity:
		return s.SetGranularity(step.Granularity)
	case engine.StepMode:
		s.SetMode(step.Mode)
		return nil
	case engine.StepPick:
		return s.pickID(step.ID)
	case engine.StepPickMesh:
		return s.PickIndex(step.Index)
	case engine.StepCamera:
		s.MoveCamera(step.Camera)
		return nil
	case engine.StepSample:
		res, err := s.Sample(ctx)
		if res.Total > 0 || err == nil {
			rep.Samples = append(rep.Samples, res)
		}
		return err
	case engine.StepScreenshot:
		path, err := s.Screenshot(step.Name)
		if err != nil {
			return err
		}
		rep.Screenshots = append(rep.Screenshots, path)
		return nil
	}
	return fmt.Errorf("session: unknown step kind %v", step.Kind)
}

// pickID selects the mesh with picking id id. Unlike Pick it never toggles.
func (s *Session) pickID(id int32) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.model == nil {
		return ErrNoModel
	}
	i, ok := s.model.Picked(id)
	if !ok {
		return fmt.Errorf("session: no mesh with picking id %d", id)
	}
	s.selected = i
	return nil
}
