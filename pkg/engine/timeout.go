package engine

import (
	"errors"
	"fmt"
	"time"
)

// EvalTimeout bounds a single evaluation.
const EvalTimeout = 5 * time.Second

var (
	ErrTimeout    = fmt.Errorf("engine: evaluation timed out after %s", EvalTimeout)
	ErrSuperseded = errors.New("engine: evaluation superseded by newer request")
)

type evalResult struct {
	plan   *Plan
	errors []EvalError
	err    error
}

// wait returns the result on ch unless EvalTimeout passes first or a newer
// evaluation has started since gen. A timed-out goroutine keeps running;
// its result is dropped into the buffered channel and never read.
func (e *Engine) wait(ch <-chan evalResult, gen uint64) (*Plan, []EvalError, error) {
	return waitWithTimeout(ch, gen, EvalTimeout, e.current)
}

func (e *Engine) current() uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.generation
}

func waitWithTimeout(ch <-chan evalResult, gen uint64, limit time.Duration, current func() uint64) (*Plan, []EvalError, error) {
	timer := time.NewTimer(limit)
	defer timer.Stop()

	select {
	case res := <-ch:
		if gen != current() {
			return nil, nil, ErrSuperseded
		}
		return res.plan, res.errors, res.err
	case <-timer.C:
		return nil, nil, ErrTimeout
	}
}
