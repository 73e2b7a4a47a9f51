package runner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"monorun/internal/output"
	"monorun/internal/scheduler"
	"monorun/internal/workspace"
	"os"
	"os/exec"
	"sync"
	"time"
)

// NotFoundCode is the stop code for a command that could not be started.
const NotFoundCode = 127

// waitDelay bounds how long Run waits for output pipes after the process
// exits or is killed.
const waitDelay = 5 * time.Second

// execCommandContext is a variable to allow substitution in tests.
var execCommandContext = exec.CommandContext

// Observer is told about every package the runner visits. Calls arrive from
// many goroutines.
type Observer interface {
	PackageStarted(name string)
	PackageFinished(r output.Result)
}

type Option func(*Runner)

// WithOutput sets where package stdout and stderr go (default os.Stdout and
// os.Stderr).
func WithOutput(stdout, stderr io.Writer) Option {
	return func(r *Runner) {
		r.stdout = stdout
		r.stderr = stderr
	}
}

func WithColor(enabled bool) Option {
	return func(r *Runner) {
		r.colorize = enabled
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(r *Runner) {
		r.log = l
	}
}

func WithObserver(o Observer) Option {
	return func(r *Runner) {
		if o != nil {
			r.observers = append(r.observers, o)
		}
	}
}

// Runner runs one Operation per package. Its Visit method is a
// scheduler.Visitor.
type Runner struct {
	op        Operation
	pm        string
	packages  map[string]workspace.Package
	observers []Observer
	stdout    io.Writer
	stderr    io.Writer
	colorize  bool
	log       *slog.Logger
}

func New(op Operation, packageManager string, pkgs []workspace.Package, opts ...Option) (*Runner, error) {
	if err := op.Validate(); err != nil {
		return nil, err
	}
	if packageManager == "" && op.Kind != KindExec {
		return nil, errors.New("package manager must not be empty")
	}

	r := &Runner{
		op:       op,
		pm:       packageManager,
		packages: make(map[string]workspace.Package, len(pkgs)),
		stdout:   os.Stdout,
		stderr:   os.Stderr,
		log:      slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, p := range pkgs {
		r.packages[p.Name] = p
	}
	for _, apply := range opts {
		if apply != nil {
			apply(r)
		}
	}
	if r.stdout == nil {
		r.stdout = io.Discard
	}
	if r.stderr == nil {
		r.stderr = r.stdout
	}
	// One lock for both streams: they are usually the same terminal.
	mu := &sync.Mutex{}
	r.stdout = &lockedWriter{mu: mu, w: r.stdout}
	r.stderr = &lockedWriter{mu: mu, w: r.stderr}
	return r, nil
}

// Visit runs the operation in the named package. A zero exit is Continue; a
// non-zero exit is Stop with that code; a command that cannot be started is
// Stop(127). A package without the needed script is skipped and counts as
// Continue. A command killed because ctx ended also returns Continue: the
// scheduler has stopped admitting by then and the run reports cancellation.
func (r *Runner) Visit(ctx context.Context, name string) scheduler.VisitResult {
	pkg, ok := r.packages[name]
	res := output.Result{Package: name, Dir: pkg.Dir}

	r.started(name)
	defer func() { r.finished(res) }()

	if !ok {
		res.Status = output.StatusFailed
		res.ExitCode = 1
		res.Message = "package not found in workspace"
		return scheduler.Stop(res.ExitCode)
	}

	argv, ok := r.op.Command(r.pm, pkg)
	if !ok {
		res.Status = output.StatusSkipped
		res.Message = fmt.Sprintf("no %q script", r.op.Script)
		r.log.Debug("skipping package", "package", name, "reason", res.Message)
		return scheduler.Continue()
	}

	prefix := prefixColor(name, r.colorize).Sprintf("[%s]", name) + " "
	stdout := newPrefixWriter(r.stdout, prefix)
	stderr := newPrefixWriter(r.stderr, prefix)

	cmd := execCommandContext(ctx, argv[0], argv[1:]...)
	cmd.Dir = pkg.Dir
	cmd.Env = append(os.Environ(), "MONORUN_PACKAGE="+name)
	cmd.Stdout = stdout
	cmd.Stderr = stderr
	cmd.WaitDelay = waitDelay

	r.log.Debug("running", "package", name, "dir", pkg.Dir, "argv", argv)
	start := time.Now()
	runErr := cmd.Run()
	res.Duration = time.Since(start).Milliseconds()
	_ = stdout.Flush()
	_ = stderr.Flush()

	var exitErr *exec.ExitError
	switch {
	case runErr == nil:
		res.Status = output.StatusOK
		return scheduler.Continue()
	case ctx.Err() != nil:
		res.Status = output.StatusCanceled
		res.Message = ctx.Err().Error()
		return scheduler.Continue()
	case errors.As(runErr, &exitErr):
		res.Status = output.StatusFailed
		res.ExitCode = exitErr.ExitCode()
		if res.ExitCode <= 0 {
			// Killed by a signal.
			res.ExitCode = 1
			res.Message = exitErr.String()
		}
		return scheduler.Stop(res.ExitCode)
	default:
		res.Status = output.StatusFailed
		res.ExitCode = NotFoundCode
		res.Message = runErr.Error()
		r.log.Error("command could not be started", "package", name, "argv", argv, "error", runErr)
		return scheduler.Stop(res.ExitCode)
	}
}

func (r *Runner) started(name string) {
	for _, o := range r.observers {
		o.PackageStarted(name)
	}
}

func (r *Runner) finished(res output.Result) {
	for _, o := range r.observers {
		o.PackageFinished(res)
	}
}
