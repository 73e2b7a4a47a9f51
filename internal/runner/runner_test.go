package runner

import (
	"bytes"
	"context"
	"monorun/internal/output"
	"monorun/internal/workspace"
	"os"
	"os/exec"
	"path/filepath"
	"reflect"
	"strings"
	"sync"
	"testing"
	"time"
)

type recordingObserver struct {
	mu       sync.Mutex
	started  []string
	finished []output.Result
}

func (o *recordingObserver) PackageStarted(name string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.started = append(o.started, name)
}

func (o *recordingObserver) PackageFinished(r output.Result) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.finished = append(o.finished, r)
}

func requireShell(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
}

func testPackage(t *testing.T, name string, scripts map[string]string) workspace.Package {
	t.Helper()
	return workspace.Package{
		Name:     name,
		Dir:      t.TempDir(),
		Manifest: &workspace.Manifest{Name: name, Scripts: scripts},
	}
}

func newTestRunner(t *testing.T, op Operation, pkgs []workspace.Package, obs Observer) (*Runner, *bytes.Buffer) {
	t.Helper()
	var out bytes.Buffer
	r, err := New(op, "npm", pkgs, WithOutput(&out, &out), WithColor(false), WithObserver(obs))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return r, &out
}

func TestVisit_SuccessStreamsPrefixedOutput(t *testing.T) {
	requireShell(t)
	pkg := testPackage(t, "@acme/ui", nil)
	obs := &recordingObserver{}
	r, out := newTestRunner(t, Exec("sh", "-c", "echo hello; echo oops 1>&2; printf tail"), []workspace.Package{pkg}, obs)

	res := r.Visit(context.Background(), "@acme/ui")
	if _, stopped := res.Stopped(); stopped {
		t.Fatalf("expected continue, got %v", res)
	}

	for _, want := range []string{"[@acme/ui] hello\n", "[@acme/ui] oops\n", "[@acme/ui] tail\n"} {
		if !strings.Contains(out.String(), want) {
			t.Fatalf("output missing %q; got %q", want, out.String())
		}
	}
	if !reflect.DeepEqual(obs.started, []string{"@acme/ui"}) {
		t.Fatalf("started = %v", obs.started)
	}
	if len(obs.finished) != 1 || obs.finished[0].Status != output.StatusOK || obs.finished[0].Dir != pkg.Dir {
		t.Fatalf("finished = %+v", obs.finished)
	}
}

func TestVisit_RunsInPackageDir(t *testing.T) {
	requireShell(t)
	pkg := testPackage(t, "a", nil)
	if err := os.WriteFile(filepath.Join(pkg.Dir, "marker"), nil, 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	r, out := newTestRunner(t, Exec("sh", "-c", `test -f marker && echo inside; echo "pkg=$MONORUN_PACKAGE"`), []workspace.Package{pkg}, nil)

	r.Visit(context.Background(), "a")
	if !strings.Contains(out.String(), "[a] inside\n") {
		t.Fatalf("expected command to run in package dir, got %q", out.String())
	}
	if !strings.Contains(out.String(), "[a] pkg=a\n") {
		t.Fatalf("expected MONORUN_PACKAGE in env, got %q", out.String())
	}
}

func TestVisit_NonZeroExitStops(t *testing.T) {
	requireShell(t)
	obs := &recordingObserver{}
	r, _ := newTestRunner(t, Exec("sh", "-c", "exit 3"), []workspace.Package{testPackage(t, "a", nil)}, obs)

	code, stopped := r.Visit(context.Background(), "a").Stopped()
	if !stopped || code != 3 {
		t.Fatalf("expected stop(3), got stopped=%v code=%d", stopped, code)
	}
	if got := obs.finished[0]; got.Status != output.StatusFailed || got.ExitCode != 3 {
		t.Fatalf("unexpected result: %+v", got)
	}
}

func TestVisit_MissingCommandStops127(t *testing.T) {
	obs := &recordingObserver{}
	r, _ := newTestRunner(t, Exec("monorun-test-no-such-binary"), []workspace.Package{testPackage(t, "a", nil)}, obs)

	code, stopped := r.Visit(context.Background(), "a").Stopped()
	if !stopped || code != NotFoundCode {
		t.Fatalf("expected stop(%d), got stopped=%v code=%d", NotFoundCode, stopped, code)
	}
	if obs.finished[0].Message == "" {
		t.Fatalf("expected a failure message")
	}
}

func TestVisit_UnknownPackageStops(t *testing.T) {
	r, _ := newTestRunner(t, Install(), nil, nil)
	if code, stopped := r.Visit(context.Background(), "ghost").Stopped(); !stopped || code != 1 {
		t.Fatalf("expected stop(1), got stopped=%v code=%d", stopped, code)
	}
}

func TestVisit_MissingScriptSkips(t *testing.T) {
	orig := execCommandContext
	t.Cleanup(func() { execCommandContext = orig })
	execCommandContext = func(ctx context.Context, name string, args ...string) *exec.Cmd {
		t.Fatalf("no command must run for a skipped package, got %s %v", name, args)
		return nil
	}

	obs := &recordingObserver{}
	pkg := testPackage(t, "docs", map[string]string{"build": "tsc"})
	r, _ := newTestRunner(t, Test("test"), []workspace.Package{pkg}, obs)

	if _, stopped := r.Visit(context.Background(), "docs").Stopped(); stopped {
		t.Fatalf("skipped package must continue")
	}
	if got := obs.finished[0]; got.Status != output.StatusSkipped || !strings.Contains(got.Message, `"test"`) {
		t.Fatalf("unexpected result: %+v", got)
	}
}

func TestVisit_UsesPackageManager(t *testing.T) {
	requireShell(t)
	orig := execCommandContext
	t.Cleanup(func() { execCommandContext = orig })

	var got []string
	execCommandContext = func(ctx context.Context, name string, args ...string) *exec.Cmd {
		got = append([]string{name}, args...)
		return exec.CommandContext(ctx, "sh", "-c", "exit 0")
	}

	pkg := testPackage(t, "a", map[string]string{"codegen": "graphql-codegen"})
	r, err := New(Codegen("codegen"), "pnpm", []workspace.Package{pkg}, WithOutput(&bytes.Buffer{}, nil))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	r.Visit(context.Background(), "a")

	if want := []string{"pnpm", "run", "codegen"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("argv = %v, want %v", got, want)
	}
}

func TestVisit_CanceledContinues(t *testing.T) {
	requireShell(t)
	obs := &recordingObserver{}
	r, _ := newTestRunner(t, Exec("sh", "-c", "exec sleep 5"), []workspace.Package{testPackage(t, "a", nil)}, obs)

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(50*time.Millisecond, cancel)

	start := time.Now()
	if _, stopped := r.Visit(ctx, "a").Stopped(); stopped {
		t.Fatalf("canceled visit must not record a failure")
	}
	if elapsed := time.Since(start); elapsed > 4*time.Second {
		t.Fatalf("cancellation did not kill the command (took %v)", elapsed)
	}
	if got := obs.finished[0]; got.Status != output.StatusCanceled {
		t.Fatalf("unexpected result: %+v", got)
	}
}

func TestNew_Validation(t *testing.T) {
	if _, err := New(Exec(), "npm", nil); err == nil {
		t.Fatalf("expected error for empty exec command")
	}
	if _, err := New(Test(" "), "npm", nil); err == nil {
		t.Fatalf("expected error for empty script")
	}
	if _, err := New(Install(), "", nil); err == nil {
		t.Fatalf("expected error for empty package manager")
	}
	if _, err := New(Operation{Kind: "deploy"}, "npm", nil); err == nil {
		t.Fatalf("expected error for unknown operation")
	}
}

func TestOperation_Command(t *testing.T) {
	pkg := workspace.Package{Name: "a", Manifest: &workspace.Manifest{Scripts: map[string]string{"test": "jest"}}}
	tests := []struct {
		name   string
		op     Operation
		want   []string
		wantOK bool
	}{
		{"install", Install(), []string{"yarn", "install"}, true},
		{"test", Test("test"), []string{"yarn", "run", "test"}, true},
		{"codegen missing", Codegen("codegen"), nil, false},
		{"exec", Exec("make", "lint"), []string{"make", "lint"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := tt.op.Command("yarn", pkg)
			if ok != tt.wantOK || !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("Command() = %v, %v; want %v, %v", got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestPrefixWriter_SplitsAcrossWrites(t *testing.T) {
	var out bytes.Buffer
	w := newPrefixWriter(&out, "[p] ")
	for _, chunk := range []string{"par", "tial\nsec", "ond\n", "last"} {
		if _, err := w.Write([]byte(chunk)); err != nil {
			t.Fatalf("Write: %v", err)
		}
	}
	if got := out.String(); got != "[p] partial\n[p] second\n" {
		t.Fatalf("before flush = %q", got)
	}
	if err := w.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	if got := out.String(); got != "[p] partial\n[p] second\n[p] last\n" {
		t.Fatalf("after flush = %q", got)
	}
}

func TestPrefixColor_Stable(t *testing.T) {
	a := prefixColor("@acme/ui", true).Sprint("x")
	b := prefixColor("@acme/ui", true).Sprint("x")
	if a != b {
		t.Fatalf("color must be stable per name: %q vs %q", a, b)
	}
	if plain := prefixColor("@acme/ui", false).Sprint("x"); plain != "x" {
		t.Fatalf("disabled color must be plain, got %q", plain)
	}
}
