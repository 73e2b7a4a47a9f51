package scheduler

import (
	"context"
	"errors"
	"fmt"
)

// PanicCode is the stop code recorded when a visit panics (EX_SOFTWARE).
const PanicCode = 70

var (
	// ErrCanceled is returned by Start when the run was canceled before the
	// graph drained and no visit stopped.
	ErrCanceled = errors.New("traversal canceled")

	// ErrStalled is returned by Start if nothing is in flight, nothing is
	// ready and nodes remain. Cycle validation in FromGraph makes this
	// unreachable for graphs it accepts.
	ErrStalled = errors.New("traversal stalled: nodes remain but none are ready")

	// ErrAlreadyStarted is returned by a second call to Start.
	ErrAlreadyStarted = errors.New("scheduler already started")
)

// VisitResult is the outcome of visiting one node: Continue, or Stop with a
// failure code. The zero value is Continue.
type VisitResult struct {
	stop bool
	code int
}

// Continue lets the traversal carry on past the visited node.
func Continue() VisitResult {
	return VisitResult{}
}

// Stop reports a failed visit with the given code.
func Stop(code int) VisitResult {
	return VisitResult{stop: true, code: code}
}

// Stopped returns the stop code and true for a Stop result.
func (r VisitResult) Stopped() (int, bool) {
	return r.code, r.stop
}

func (r VisitResult) String() string {
	if r.stop {
		return fmt.Sprintf("stop(%d)", r.code)
	}
	return "continue"
}

// Visitor is invoked once per node, from its own goroutine, after all of the
// node's dependencies have completed. It must return rather than block
// forever; ctx is the context passed to Start.
type Visitor func(ctx context.Context, node string) VisitResult

// StopError is the run failure returned by Start. Code is the code of the
// first Stop the coordinator observed.
type StopError struct {
	Code int
	Node string
}

func (e *StopError) Error() string {
	if e.Node != "" {
		return fmt.Sprintf("traversal stopped by %s with code %d", e.Node, e.Code)
	}
	return fmt.Sprintf("traversal stopped with code %d", e.Code)
}
