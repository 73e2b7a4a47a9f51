package scheduler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"monorun/internal/graph"
	"sync"
)

const DefaultConcurrency = 5

var errCanceledByCaller = errors.New("canceled by caller")

type options struct {
	concurrency int
	earlyExit   bool
	logger      *slog.Logger
}

type Option func(*options)

// WithConcurrency bounds the number of visits in flight. 1 runs serially.
func WithConcurrency(n int) Option {
	return func(o *options) {
		o.concurrency = n
	}
}

// WithEarlyExit selects the failure policy. When true (the default), the first
// Stop halts admission and only in-flight visits finish. When false, a
// stopped node still counts as completed and the whole graph drains.
func WithEarlyExit(enabled bool) Option {
	return func(o *options) {
		o.earlyExit = enabled
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// Scheduler visits every node of a graph once, in dependency order, with at
// most concurrency visits in flight.
type Scheduler struct {
	graph       *graph.Graph
	visit       Visitor
	concurrency int
	earlyExit   bool
	log         *slog.Logger

	cancelOnce sync.Once
	cancelCh   chan struct{}

	mu      sync.Mutex
	started bool
}

// FromGraph validates g and returns a Scheduler for it. Graphs containing a
// cycle of any length are rejected with *graph.CycleError; such a graph
// would otherwise leave the cycle's nodes pending forever.
func FromGraph(g *graph.Graph, visit Visitor, opts ...Option) (*Scheduler, error) {
	if g == nil {
		return nil, errors.New("graph is nil")
	}
	if visit == nil {
		return nil, errors.New("visitor is nil")
	}

	o := &options{concurrency: DefaultConcurrency, earlyExit: true}
	for _, apply := range opts {
		if apply != nil {
			apply(o)
		}
	}
	if o.concurrency <= 0 {
		return nil, fmt.Errorf("concurrency must be >= 1, got %d", o.concurrency)
	}
	if o.logger == nil {
		o.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	if err := g.Validate(); err != nil {
		return nil, err
	}

	return &Scheduler{
		graph:       g,
		visit:       visit,
		concurrency: o.concurrency,
		earlyExit:   o.earlyExit,
		log:         o.logger,
		cancelCh:    make(chan struct{}),
	}, nil
}

// Cancel stops admission of new visits. In-flight visits run to completion
// and Start returns once they have. Safe to call more than once and from any
// goroutine.
func (s *Scheduler) Cancel() {
	s.cancelOnce.Do(func() { close(s.cancelCh) })
}

type completion struct {
	node   string
	result VisitResult
}

// Start runs the traversal and blocks until it ends. It returns nil when every
// node was visited and continued, a *StopError with the first stop code when
// any visit stopped, or ErrCanceled when Cancel or ctx ended the run first.
//
// Canceling ctx behaves like Cancel; ctx is also handed to every visit, so a
// visitor that honors it will finish early.
func (s *Scheduler) Start(ctx context.Context) error {
	if ctx == nil {
		return errors.New("context is nil")
	}
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return ErrAlreadyStarted
	}
	s.started = true
	s.mu.Unlock()

	state := NewState(s.graph)
	done := make(chan completion)
	visiting := make(map[string]struct{}, s.concurrency)
	capacity := s.concurrency

	var (
		failed      bool
		failureCode int
		failureNode string
		canceled    bool
		cause       error
	)

	admit := func(nodes []string) {
		for _, node := range nodes {
			visiting[node] = struct{}{}
			s.log.Debug("admitting node", "node", node, "in_flight", len(visiting))
			go s.run(ctx, node, done)
		}
	}
	// observeCancel zeroes capacity once ctx or Cancel has fired. Checked
	// before every admission, not only when the select picks a cancel case.
	observeCancel := func() {
		if canceled {
			return
		}
		if err := ctx.Err(); err != nil {
			cause = err
		} else {
			select {
			case <-s.cancelCh:
				cause = errCanceledByCaller
			default:
				return
			}
		}
		canceled = true
		capacity = 0
		s.log.Debug("traversal canceled", "in_flight", len(visiting), "cause", cause)
	}
	available := func() int {
		observeCancel()
		return capacity - len(visiting)
	}

	s.log.Debug("traversal starting", "nodes", s.graph.Len(), "concurrency", s.concurrency, "early_exit", s.earlyExit)
	admit(state.Poll(available()))

	ctxDone := ctx.Done()
	cancelCh := s.cancelCh
	for len(visiting) > 0 {
		select {
		case c := <-done:
			delete(visiting, c.node)

			code, stopped := c.result.Stopped()
			if !stopped {
				s.log.Debug("node completed", "node", c.node)
				admit(state.Poll(available(), c.node))
				continue
			}

			s.log.Debug("node stopped", "node", c.node, "code", code)
			if !failed {
				failed = true
				failureCode = code
				failureNode = c.node
			}
			if s.earlyExit {
				capacity = 0
				continue
			}
			admit(state.Poll(available(), c.node))

		case <-ctxDone:
			ctxDone = nil
			observeCancel()

		case <-cancelCh:
			cancelCh = nil
			observeCancel()
		}
	}

	switch {
	case failed:
		return &StopError{Code: failureCode, Node: failureNode}
	case state.Remaining() == 0:
		s.log.Debug("traversal finished", "nodes", s.graph.Len())
		return nil
	case canceled:
		return fmt.Errorf("%w: %w", ErrCanceled, cause)
	default:
		return fmt.Errorf("%w (%d remaining)", ErrStalled, state.Remaining())
	}
}

// run invokes the visitor and reports its result. A panicking visit is
// reported as Stop(PanicCode).
func (s *Scheduler) run(ctx context.Context, node string, done chan<- completion) {
	result := Stop(PanicCode)
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("visit panicked", "node", node, "panic", r)
		}
		done <- completion{node: node, result: result}
	}()
	result = s.visit(ctx, node)
}
