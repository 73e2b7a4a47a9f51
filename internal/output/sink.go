package output

import (
	"encoding/json"
	"io"
)

// Sink is a destination for run events.
type Sink interface {
	Write(v any) error
	Close() error
}

type flusher interface {
	Flush() error
}

func flushIfPossible(w io.Writer) error {
	f, ok := w.(flusher)
	if !ok {
		return nil
	}
	return f.Flush()
}

// encodeEvent writes an Event as one NDJSON line; other values are ignored.
func encodeEvent(w io.Writer, v any) error {
	e, ok := v.(Event)
	if !ok {
		return nil
	}
	if err := json.NewEncoder(w).Encode(e); err != nil {
		return err
	}
	return flushIfPossible(w)
}

// aggregate builds a Report from the event stream for JSON mode.
type aggregate struct {
	report Report
}

func (a *aggregate) observe(v any) {
	e, ok := v.(Event)
	if !ok {
		return
	}
	switch e.Type {
	case EventRunStarted:
		a.report.RunID = e.RunID
		a.report.Operation = e.Operation
	case EventPackageFinished:
		if e.Result != nil {
			a.report.Results = append(a.report.Results, *e.Result)
		}
	case EventRunFinished:
		a.report.ExitCode = e.ExitCode
	}
}

func (a *aggregate) encode(w io.Writer) error {
	if a.report.Results == nil {
		a.report.Results = []Result{}
	}
	a.report.Summary = Summarize(a.report.Results)
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(a.report); err != nil {
		return err
	}
	return flushIfPossible(w)
}
