package output

const (
	EventRunStarted      = "run.started"
	EventPackageStarted  = "package.started"
	EventPackageFinished = "package.finished"
	EventRunFinished     = "run.finished"
)

// Event is a lifecycle record. Every sink receives the same Event stream:
// - run.started
// - package.started
// - package.finished (carries the Result)
// - run.finished (carries the exit code)
//
// NDJSON sinks write each Event as one line; JSON sinks aggregate the
// Results into a Report.
type Event struct {
	Type      string  `json:"type"`
	RunID     string  `json:"run_id,omitempty"`
	Operation string  `json:"operation,omitempty"`
	Package   string  `json:"package,omitempty"`
	Result    *Result `json:"result,omitempty"`
	Packages  int     `json:"packages,omitempty"`
	ExitCode  int     `json:"exit_code,omitempty"`
}

// Finished wraps a Result in a package.finished event.
func Finished(runID string, r Result) Event {
	return Event{Type: EventPackageFinished, RunID: runID, Package: r.Package, Result: &r}
}
