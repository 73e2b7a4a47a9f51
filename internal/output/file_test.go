package output

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNewFileSink_InferFormat(t *testing.T) {
	dir := t.TempDir()
	for ext, want := range map[string]string{".json": "json", ".ndjson": "ndjson", ".jsonl": "ndjson"} {
		s, err := NewFileSink(filepath.Join(dir, "out"+ext), "")
		if err != nil {
			t.Fatalf("NewFileSink(%s) returned error: %v", ext, err)
		}
		if s.format != want {
			t.Fatalf("format for %s = %q, want %q", ext, s.format, want)
		}
		_ = s.Close()
	}
}

func TestNewFileSink_UnknownExtension_Errors_WhenFormatOmitted(t *testing.T) {
	_, err := NewFileSink(filepath.Join(t.TempDir(), "out.unknown"), "")
	if err == nil {
		t.Fatalf("expected error, got nil")
	}
	if !strings.Contains(err.Error(), "cannot infer output format") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestNewFileSink_UnsupportedFormat_Errors(t *testing.T) {
	_, err := NewFileSink(filepath.Join(t.TempDir(), "out.json"), "xml")
	if err == nil {
		t.Fatalf("expected error, got nil")
	}
	if !strings.Contains(err.Error(), "unsupported output format") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestNewFileSink_CreatesParentDirectories(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "deeper", "out.json")
	s, err := NewFileSink(path, "")
	if err != nil {
		t.Fatalf("NewFileSink failed: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("expected output file: %v", err)
	}
}

func TestFileSink_JSON_AggregatesResults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.json")

	s, err := NewFileSink(path, "json")
	if err != nil {
		t.Fatalf("NewFileSink failed: %v", err)
	}
	writeRun(t, s)
	if err := s.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}

	var got Report
	if err := json.Unmarshal(b, &got); err != nil {
		t.Fatalf("Unmarshal failed: %v\nbody=%s", err, string(b))
	}
	if len(got.Results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(got.Results))
	}
	if got.Results[0].Package != "a" || got.Results[1].Package != "b" {
		t.Fatalf("unexpected results order/content: %#v", got.Results)
	}
	if got.Results[0].Duration != 12 {
		t.Fatalf("duration not preserved: %#v", got.Results[0])
	}
}

func TestFileSink_NDJSON_StreamsEvents(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.ndjson")

	s, err := NewFileSink(path, "")
	if err != nil {
		t.Fatalf("NewFileSink failed: %v", err)
	}
	if err := s.Write(Event{Type: EventRunStarted, RunID: "run-1"}); err != nil {
		t.Fatalf("Write event failed: %v", err)
	}
	if err := s.Write(Finished("run-1", Result{Package: "a", Status: StatusOK})); err != nil {
		t.Fatalf("Write result failed: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(b)), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 ndjson lines, got %d\nbody=%s", len(lines), string(b))
	}

	var e2 Event
	if err := json.Unmarshal([]byte(lines[1]), &e2); err != nil {
		t.Fatalf("Unmarshal line 2 failed: %v", err)
	}
	if e2.Type != EventPackageFinished || e2.Result == nil || e2.Result.Package != "a" {
		t.Fatalf("unexpected package.finished event: %#v", e2)
	}
}

func TestReportSink_Markdown(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.md")
	s, err := NewReportSink(path)
	if err != nil {
		t.Fatalf("NewReportSink failed: %v", err)
	}
	writeRun(t, s)
	if err := s.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	body := string(b)
	for _, want := range []string{
		"# monorun report",
		"- Operation: `codegen`",
		"- Run: `run-1`",
		"- Exit code: 2",
		"- Packages: 2 (1 ok, 1 failed, 0 skipped, 0 canceled)",
		"- **b**: exit code 2",
		"| a | OK | 12ms | 0 |",
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("report missing %q; got:\n%s", want, body)
		}
	}
	// Slowest package first.
	if strings.Index(body, "| a |") > strings.Index(body, "| b |") {
		t.Fatalf("expected a (12ms) before b (0s):\n%s", body)
	}
}

func TestReportSink_PathRequired(t *testing.T) {
	if _, err := NewReportSink(""); err == nil {
		t.Fatalf("expected error, got nil")
	}
}
