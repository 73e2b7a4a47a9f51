package output

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"
	"time"
)

// ReportSink writes a Markdown run report on Close.
type ReportSink struct {
	path     string
	file     *os.File
	mu       sync.Mutex
	runID    string
	op       string
	results  []Result
	exitCode int
	finished bool
}

func NewReportSink(path string) (*ReportSink, error) {
	if path == "" {
		return nil, fmt.Errorf("report path required")
	}

	f, err := createWithParents(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create report file: %w", err)
	}

	return &ReportSink{path: path, file: f}, nil
}

func (s *ReportSink) Write(v any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := v.(Event)
	if !ok {
		return nil
	}
	switch e.Type {
	case EventRunStarted:
		s.runID = e.RunID
		s.op = e.Operation
	case EventPackageFinished:
		if e.Result != nil {
			s.results = append(s.results, *e.Result)
		}
	case EventRunFinished:
		s.exitCode = e.ExitCode
		s.finished = true
	}
	return nil
}

func (s *ReportSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var b strings.Builder
	b.WriteString("# monorun report\n\n")
	if s.op != "" {
		fmt.Fprintf(&b, "- Operation: `%s`\n", s.op)
	}
	if s.runID != "" {
		fmt.Fprintf(&b, "- Run: `%s`\n", s.runID)
	}
	if s.finished {
		fmt.Fprintf(&b, "- Exit code: %d\n", s.exitCode)
	}

	sum := Summarize(s.results)
	fmt.Fprintf(&b, "- Packages: %d (%d ok, %d failed, %d skipped, %d canceled)\n\n",
		sum.Total, sum.OK, sum.Failed, sum.Skipped, sum.Canceled)

	if len(sum.Failures) > 0 {
		b.WriteString("## Failures\n\n")
		for _, r := range s.results {
			if r.Status != StatusFailed {
				continue
			}
			fmt.Fprintf(&b, "- **%s**: exit code %d", r.Package, r.ExitCode)
			if r.Message != "" {
				fmt.Fprintf(&b, " - %s", r.Message)
			}
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	// Slowest first; the table is meant for spotting bottlenecks.
	rows := append([]Result(nil), s.results...)
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].Duration > rows[j].Duration })

	b.WriteString("## Packages\n\n")
	b.WriteString("| Package | Status | Duration | Exit code |\n")
	b.WriteString("|---|---|---|---|\n")
	for _, r := range rows {
		fmt.Fprintf(&b, "| %s | %s | %s | %d |\n", r.Package, r.Status, time.Duration(r.Duration)*time.Millisecond, r.ExitCode)
	}

	_, err := s.file.WriteString(b.String())
	if closeErr := s.file.Close(); closeErr != nil && err == nil {
		err = closeErr
	}
	return err
}
