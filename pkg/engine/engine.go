// Package engine evaluates experiment scripts. A script is a zygomys Lisp
// program whose builtins append steps to a Plan; the session then executes
// the plan against the loaded model.
//
//	(experiment "midtown")
//	(granularity 2 2 2 3)
//	(mode :volume)
//	(pick-mesh 0)
//	(sample)
package engine

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"sync"

	zygo "github.com/glycerine/zygomys/zygo"
)

// EvalError is a parse or runtime error in the script.
type EvalError struct {
	Line    int
	Col     int
	Message string
}

func (e EvalError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("line %d: %s", e.Line, e.Message)
	}
	return e.Message
}

// EvalResult bundles an evaluation for UI bindings.
type EvalResult struct {
	Plan   *Plan       `json:"plan"`
	Errors []EvalError `json:"errors"`
}

// Engine evaluates scripts. It is safe for concurrent use; every call gets
// a fresh sandbox, and only the newest call's result is returned.
type Engine struct {
	mu         sync.Mutex
	generation uint64
}

func NewEngine() *Engine {
	return &Engine{}
}

// Evaluate runs source and returns the plan it built.
//
//   - success: plan, nil, nil
//   - script error: nil, eval errors, nil
//   - timeout, panic or a superseded call: nil, nil, error
func (e *Engine) Evaluate(source string) (*Plan, []EvalError, error) {
	e.mu.Lock()
	e.generation++
	gen := e.generation
	e.mu.Unlock()

	ch := make(chan evalResult, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				ch <- evalResult{err: fmt.Errorf("engine: panic during evaluation: %v", r)}
			}
		}()
		p, errs := evaluate(source)
		ch <- evalResult{plan: p, errors: errs}
	}()

	return e.wait(ch, gen)
}

// EvaluateResult is Evaluate folded into one value for the UI.
func (e *Engine) EvaluateResult(source string) (EvalResult, error) {
	p, errs, err := e.Evaluate(source)
	return EvalResult{Plan: p, Errors: errs}, err
}

func evaluate(source string) (*Plan, []EvalError) {
	p := NewPlan()
	if strings.TrimSpace(source) == "" {
		return p, nil
	}

	env := zygo.NewZlispSandbox()
	defer env.Stop()
	registerBuiltins(env, p)

	if err := env.LoadString(preprocessSource(source)); err != nil {
		return nil, parseZygomysError(err)
	}
	if _, err := env.Run(); err != nil {
		return nil, parseZygomysError(err)
	}
	return p, nil
}

var (
	lineLong  = regexp.MustCompile(`(?i)(?:error )?on line (\d+):\s*(.*)`)
	lineShort = regexp.MustCompile(`(?i)^line (\d+):\s*(.*)`)
)

// parseZygomysError pulls the line number out of a zygomys error when the
// message carries one.
func parseZygomysError(err error) []EvalError {
	msg := err.Error()
	for _, re := range []*regexp.Regexp{lineLong, lineShort} {
		if m := re.FindStringSubmatch(msg); m != nil {
			line, _ := strconv.Atoi(m[1])
			return []EvalError{{Line: line, Message: strings.TrimSpace(m[2])}}
		}
	}
	return []EvalError{{Message: strings.TrimSpace(msg)}}
}
