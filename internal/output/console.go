package output

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"
)

type ConsoleSink struct {
	writer io.Writer
	format string // "text", "ndjson"
	mu     sync.Mutex

	ok, failed, skipped, bold *color.Color
	results                   []Result
}

func NewConsoleSink(w io.Writer, format string, colorize bool) *ConsoleSink {
	if w == nil {
		w = os.Stdout
	}
	if format == "" {
		format = "text"
	}

	s := &ConsoleSink{
		writer:  w,
		format:  format,
		ok:      color.New(color.FgGreen),
		failed:  color.New(color.FgRed, color.Bold),
		skipped: color.New(color.FgYellow),
		bold:    color.New(color.Bold),
	}
	for _, c := range []*color.Color{s.ok, s.failed, s.skipped, s.bold} {
		if colorize {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	return s
}

func (s *ConsoleSink) Write(v any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writeLocked(v)
}

func (s *ConsoleSink) writeLocked(v any) error {
	switch s.format {
	case "ndjson":
		return encodeEvent(s.writer, v)
	case "text":
		e, ok := v.(Event)
		if !ok {
			return nil
		}
		switch e.Type {
		case EventPackageFinished:
			if e.Result == nil {
				return nil
			}
			s.results = append(s.results, *e.Result)
			return s.printResult(*e.Result)
		case EventRunFinished:
			return s.printSummary()
		default:
			// Start events are implied by the prefixed command output.
			return nil
		}
	default:
		return fmt.Errorf("unsupported console format: %s", s.format)
	}
}

func (s *ConsoleSink) statusColor(st Status) *color.Color {
	switch st {
	case StatusOK:
		return s.ok
	case StatusFailed:
		return s.failed
	default:
		return s.skipped
	}
}

func (s *ConsoleSink) printResult(r Result) error {
	line := fmt.Sprintf("%s %s", s.statusColor(r.Status).Sprintf("[%s]", r.Status), r.Package)
	if r.Status == StatusOK || r.Status == StatusFailed {
		line += fmt.Sprintf(" (%s)", (time.Duration(r.Duration) * time.Millisecond).String())
	}
	if r.Status == StatusFailed && r.ExitCode != 0 {
		line += fmt.Sprintf(" exit code %d", r.ExitCode)
	}
	if r.Message != "" {
		line += " - " + r.Message
	}
	if _, err := fmt.Fprintln(s.writer, line); err != nil {
		return err
	}
	return flushIfPossible(s.writer)
}

func (s *ConsoleSink) printSummary() error {
	sum := Summarize(s.results)
	parts := []string{s.ok.Sprintf("%d ok", sum.OK)}
	if sum.Failed > 0 {
		parts = append(parts, s.failed.Sprintf("%d failed", sum.Failed))
	}
	if sum.Skipped > 0 {
		parts = append(parts, s.skipped.Sprintf("%d skipped", sum.Skipped))
	}
	if sum.Canceled > 0 {
		parts = append(parts, s.skipped.Sprintf("%d canceled", sum.Canceled))
	}
	if _, err := fmt.Fprintf(s.writer, "%s %s\n", s.bold.Sprintf("%d packages:", sum.Total), strings.Join(parts, ", ")); err != nil {
		return err
	}
	if len(sum.Failures) > 0 {
		if _, err := fmt.Fprintf(s.writer, "failed: %s\n", strings.Join(sum.Failures, ", ")); err != nil {
			return err
		}
	}
	return flushIfPossible(s.writer)
}

func (s *ConsoleSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.format != "text" && s.format != "ndjson" {
		return fmt.Errorf("unsupported console format: %s", s.format)
	}
	return nil
}
