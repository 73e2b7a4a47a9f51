package output

type Status string

const (
	StatusOK       Status = "OK"
	StatusFailed   Status = "FAILED"
	StatusSkipped  Status = "SKIPPED"
	StatusCanceled Status = "CANCELED"
)

// Result is the outcome of visiting one package.
type Result struct {
	Package  string `json:"package"`
	Dir      string `json:"dir,omitempty"`
	Status   Status `json:"status"`
	ExitCode int    `json:"exit_code,omitempty"`
	// Duration is the wall time of the package command in milliseconds.
	Duration int64  `json:"duration_ms"`
	Message  string `json:"message,omitempty"`
}

// Summary counts results by status.
type Summary struct {
	Total    int      `json:"total"`
	OK       int      `json:"ok"`
	Failed   int      `json:"failed"`
	Skipped  int      `json:"skipped"`
	Canceled int      `json:"canceled"`
	Failures []string `json:"failures,omitempty"`
}

func Summarize(results []Result) Summary {
	s := Summary{Total: len(results)}
	for _, r := range results {
		switch r.Status {
		case StatusOK:
			s.OK++
		case StatusFailed:
			s.Failed++
			s.Failures = append(s.Failures, r.Package)
		case StatusSkipped:
			s.Skipped++
		case StatusCanceled:
			s.Canceled++
		}
	}
	return s
}

// Report is the JSON aggregate document.
type Report struct {
	RunID     string   `json:"run_id,omitempty"`
	Operation string   `json:"operation,omitempty"`
	ExitCode  int      `json:"exit_code"`
	Results   []Result `json:"results"`
	Summary   Summary  `json:"summary"`
}
