package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"monorun/internal/config"
	"monorun/internal/metrics"
	"monorun/internal/output"
	"monorun/internal/runner"
	"monorun/internal/scheduler"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Exit code contract:
// 0   = every package succeeded (or was skipped)
// N   = exit code of the first failing package, clamped to 1..255
// 3   = fatal error (the run did not start)
// 130 = canceled by signal or timeout with no package failure
const (
	ExitOK       = 0
	ExitFailure  = 1
	ExitFatal    = 3
	ExitCanceled = 130
)

func exitCodeForRun(err error) int {
	if err == nil {
		return ExitOK
	}
	var stop *scheduler.StopError
	if errors.As(err, &stop) {
		if stop.Code < 1 || stop.Code > 255 {
			return ExitFailure
		}
		return stop.Code
	}
	if errors.Is(err, scheduler.ErrCanceled) {
		return ExitCanceled
	}
	return ExitFatal
}

func setupOutputManager(cfg *config.Config, stdout io.Writer) (*output.Manager, error) {
	outMgr := output.NewManager()

	// Console Sink
	if !cfg.Output.NoConsole {
		if err := outMgr.AddSink(output.NewConsoleSink(stdout, cfg.Output.ConsoleFormat, !cfg.Output.NoColor)); err != nil {
			outMgr.Close()
			return nil, err
		}
	}

	// Emit Sinks (additional structured streams)
	for _, emit := range cfg.Output.Emit {
		es, err := output.NewEmitSink(stdout, emit)
		if err != nil {
			outMgr.Close()
			return nil, err
		}
		if err := outMgr.AddSink(es); err != nil {
			outMgr.Close()
			return nil, err
		}
	}

	// File Sink
	if cfg.Output.Out != "" {
		fs, err := output.NewFileSink(cfg.Output.Out, cfg.Output.OutFormat)
		if err != nil {
			outMgr.Close()
			return nil, err
		}
		if err := outMgr.AddSink(fs); err != nil {
			outMgr.Close()
			return nil, err
		}
	}

	// Report Sink
	if cfg.Output.Report != "" {
		rs, err := output.NewReportSink(cfg.Output.Report)
		if err != nil {
			outMgr.Close()
			return nil, err
		}
		if err := outMgr.AddSink(rs); err != nil {
			outMgr.Close()
			return nil, err
		}
	}

	return outMgr, nil
}

// eventObserver turns runner callbacks into output events and remembers which
// packages finished.
type eventObserver struct {
	runID string
	out   *output.Manager
	log   *slog.Logger

	mu       sync.Mutex
	finished map[string]bool
}

func (o *eventObserver) PackageStarted(name string) {
	o.write(output.Event{Type: output.EventPackageStarted, RunID: o.runID, Package: name})
}

func (o *eventObserver) PackageFinished(r output.Result) {
	o.mu.Lock()
	o.finished[r.Package] = true
	o.mu.Unlock()
	o.write(output.Finished(o.runID, r))
}

func (o *eventObserver) wasFinished(name string) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.finished[name]
}

func (o *eventObserver) write(e output.Event) {
	if err := o.out.Write(e); err != nil {
		o.log.Warn("output sink failed", "event", e.Type, "error", err)
	}
}

type Engine struct {
	Stdout io.Writer
	Stderr io.Writer
	Logger *slog.Logger

	// newVisitor is a test seam. If nil, Engine visits packages with a
	// runner.Runner.
	newVisitor func(cfg *config.Config, op runner.Operation, plan *Plan, observers ...runner.Observer) (scheduler.Visitor, error)
}

func NewEngine(logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Engine{Stdout: os.Stdout, Stderr: os.Stderr, Logger: logger}
}

func (e *Engine) status(cfg *config.Config, format string, args ...any) {
	if cfg.Output.NoConsole {
		return
	}
	fmt.Fprintf(e.Stderr, format+"\n", args...)
}

func (e *Engine) visitor(cfg *config.Config, op runner.Operation, plan *Plan, observers ...runner.Observer) (scheduler.Visitor, error) {
	if e.newVisitor != nil {
		return e.newVisitor(cfg, op, plan, observers...)
	}
	opts := []runner.Option{
		runner.WithOutput(e.Stdout, e.Stderr),
		runner.WithColor(!cfg.Output.NoColor),
		runner.WithLogger(e.Logger),
	}
	for _, o := range observers {
		opts = append(opts, runner.WithObserver(o))
	}
	r, err := runner.New(op, cfg.Workspace.PackageManager, plan.Packages, opts...)
	if err != nil {
		return nil, err
	}
	return r.Visit, nil
}

func (e *Engine) maybeDryRun(cfg *config.Config, plan *Plan) bool {
	if !cfg.Runtime.DryRun {
		return false
	}
	for i, name := range scheduler.Order(plan.Graph) {
		fmt.Fprintf(e.Stdout, "%d. %s\n", i+1, name)
	}
	return true
}

// Run executes op across the workspace described by cfg and returns the
// process exit code.
func (e *Engine) Run(ctx context.Context, cfg *config.Config, op runner.Operation) int {
	if e.Stdout == nil {
		e.Stdout = os.Stdout
	}
	if e.Stderr == nil {
		e.Stderr = os.Stderr
	}
	if e.Logger == nil {
		e.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	if err := op.Validate(); err != nil {
		fmt.Fprintf(e.Stderr, "Error: %v\n", err)
		return ExitFatal
	}

	e.status(cfg, "Discovering packages...")
	plan, err := LoadPlan(ctx, cfg)
	if err != nil {
		fmt.Fprintf(e.Stderr, "Error loading workspace: %v\n", err)
		return ExitFatal
	}
	e.status(cfg, "Found %d packages.", plan.Graph.Len())

	if e.maybeDryRun(cfg, plan) {
		return ExitOK
	}

	outMgr, err := setupOutputManager(cfg, e.Stdout)
	if err != nil {
		fmt.Fprintf(e.Stderr, "Error creating output sinks: %v\n", err)
		return ExitFatal
	}
	defer func() {
		if err := outMgr.Close(); err != nil {
			e.Logger.Warn("closing output sinks", "error", err)
		}
	}()

	runID := uuid.NewString()
	log := e.Logger.With("run_id", runID)
	recorder := metrics.New()
	events := &eventObserver{runID: runID, out: outMgr, log: log, finished: make(map[string]bool)}

	visit, err := e.visitor(cfg, op, plan, events, recorder)
	if err != nil {
		fmt.Fprintf(e.Stderr, "Error: %v\n", err)
		return ExitFatal
	}
	s, err := scheduler.FromGraph(plan.Graph, visit,
		scheduler.WithConcurrency(cfg.Runtime.Concurrency),
		scheduler.WithEarlyExit(!cfg.Runtime.KeepGoing),
		scheduler.WithLogger(log),
	)
	if err != nil {
		fmt.Fprintf(e.Stderr, "Error: %v\n", err)
		return ExitFatal
	}

	runCtx, cancel := context.WithTimeout(ctx, cfg.Runtime.Timeout)
	defer cancel()

	events.write(output.Event{Type: output.EventRunStarted, RunID: runID, Operation: op.String(), Packages: plan.Graph.Len()})
	log.Info("run started", "operation", op.String(), "packages", plan.Graph.Len(), "concurrency", cfg.Runtime.Concurrency, "keep_going", cfg.Runtime.KeepGoing)

	start := time.Now()
	runErr := s.Start(runCtx)
	elapsed := time.Since(start)

	// Packages the traversal never admitted.
	for _, name := range plan.Graph.Names() {
		if events.wasFinished(name) {
			continue
		}
		events.write(output.Finished(runID, output.Result{Package: name, Status: output.StatusSkipped, Message: "not started"}))
	}

	code := exitCodeForRun(runErr)
	switch {
	case runErr == nil:
	case code == ExitCanceled:
		log.Warn("run canceled", "cause", runErr)
	case code == ExitFatal:
		log.Error("run aborted", "error", runErr)
	default:
		log.Info("run failed", "error", runErr)
	}

	recorder.RunFinished(elapsed, code)
	if cfg.Runtime.MetricsFile != "" {
		if err := recorder.WriteFile(cfg.Runtime.MetricsFile); err != nil {
			log.Warn("writing metrics file", "path", cfg.Runtime.MetricsFile, "error", err)
		}
	}

	events.write(output.Event{Type: output.EventRunFinished, RunID: runID, ExitCode: code})
	return code
}
