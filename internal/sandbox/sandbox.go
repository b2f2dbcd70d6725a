// Package sandbox invokes a callable under a hard wall-clock timeout and
// keeps its failures from escaping into the fuzz loop.
//
// Go cannot forcibly kill a goroutine, so each call runs on its own
// goroutine with a cancellable context: well-behaved callables observe the
// context, and a callable that ignores it is abandoned once the budget
// elapses — its eventual result is discarded and the loop moves on. A
// timeout is reported by a dedicated flag on the outcome, never by
// matching error text.
package sandbox

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/funvibe/funfuzz/internal/value"
)

// Callable is a resolved target: the function under test or a validator.
// A callable signals a thrown error by panicking, which mirrors exception
// semantics of the dynamically-typed functions being fuzzed.
type Callable func(ctx context.Context, args []value.Value) value.Value

// ErrNotCallable is the fatal setup error for a missing target. It aborts
// the whole run before any generation happens.
var ErrNotCallable = errors.New("sandbox: target is not callable")

// Outcome is the captured result of one sandboxed call. Exactly one of
// the three shapes holds: a return value, Timeout, or Exception.
type Outcome struct {
	Value     value.Value
	Timeout   bool
	Exception bool
	Message   string
	Stack     string
	Elapsed   time.Duration
}

// Sandbox runs callables under a fixed per-call budget.
type Sandbox struct {
	budget time.Duration
}

// New builds a sandbox with the given per-call timeout budget.
func New(budget time.Duration) *Sandbox {
	return &Sandbox{budget: budget}
}

type callResult struct {
	val       value.Value
	exception bool
	message   string
	stack     string
}

// Run invokes fn with args. Arguments must already be deep-copied by the
// caller; the sandbox shares no mutable state with the loop beyond them.
func (s *Sandbox) Run(ctx context.Context, fn Callable, args []value.Value) (Outcome, error) {
	if fn == nil {
		return Outcome{}, ErrNotCallable
	}

	callCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	done := make(chan callResult, 1)
	start := time.Now()
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- callResult{
					exception: true,
					message:   panicMessage(r),
					stack:     string(debug.Stack()),
				}
			}
		}()
		done <- callResult{val: fn(callCtx, args)}
	}()

	timer := time.NewTimer(s.budget)
	defer timer.Stop()

	select {
	case res := <-done:
		out := Outcome{Elapsed: time.Since(start)}
		if res.exception {
			out.Exception = true
			out.Message = res.message
			out.Stack = res.stack
		} else {
			out.Value = res.val
		}
		return out, nil
	case <-timer.C:
		cancel()
		return Outcome{Timeout: true, Elapsed: time.Since(start)}, nil
	}
}

func panicMessage(r any) string {
	switch r := r.(type) {
	case error:
		return r.Error()
	case string:
		return r
	default:
		return fmt.Sprintf("%v", r)
	}
}
