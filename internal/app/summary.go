package app

import (
	"encoding/json"
	"io"
	"time"
)

// Step names, in execution order.
const (
	StepBucket          = "bucket"
	StepCatalogDatabase = "catalog_database"
	StepFetch           = "fetch"
	StepUpload          = "upload"
	StepCatalogTable    = "catalog_table"
	StepQueryConfig     = "query_config"
)

// Exit codes returned by Summary.ExitCode.
const (
	ExitOK      = 0
	ExitFatal   = 1
	ExitPartial = 3
)

// Status is the outcome of one step.
type Status string

// Step outcomes.
const (
	StatusOK      Status = "ok"
	StatusFailed  Status = "failed"
	StatusSkipped Status = "skipped"
)

// StepResult is the outcome of one workflow step.
type StepResult struct {
	Name     string
	Status   Status
	Detail   string
	Err      error
	Duration time.Duration
}

// MarshalJSON renders the error as a string.
func (r StepResult) MarshalJSON() ([]byte, error) {
	out := struct {
		Name       string `json:"name"`
		Status     Status `json:"status"`
		Detail     string `json:"detail,omitempty"`
		Error      string `json:"error,omitempty"`
		DurationMS int64  `json:"duration_ms"`
	}{
		Name:       r.Name,
		Status:     r.Status,
		Detail:     r.Detail,
		DurationMS: r.Duration.Milliseconds(),
	}
	if r.Err != nil {
		out.Error = r.Err.Error()
	}
	return json.Marshal(out)
}

// Summary aggregates the step results of one run.
type Summary struct {
	RunID          string       `json:"run_id"`
	StartedAt      time.Time    `json:"started_at"`
	FinishedAt     time.Time    `json:"finished_at"`
	RecordsFetched int          `json:"records_fetched"`
	BytesUploaded  int          `json:"bytes_uploaded"`
	QueryID        string       `json:"query_execution_id,omitempty"`
	Aborted        bool         `json:"aborted"`
	Steps          []StepResult `json:"steps"`
}

// Step returns the result of the named step, if it ran.
func (s *Summary) Step(name string) (StepResult, bool) {
	for _, r := range s.Steps {
		if r.Name == name {
			return r, true
		}
	}
	return StepResult{}, false
}

// Failed returns the failed steps in execution order.
func (s *Summary) Failed() []StepResult {
	var out []StepResult
	for _, r := range s.Steps {
		if r.Status == StatusFailed {
			out = append(out, r)
		}
	}
	return out
}

// OK reports whether the run completed with no failed step.
func (s *Summary) OK() bool {
	return !s.Aborted && len(s.Failed()) == 0
}

// ExitCode maps the summary to a process exit code. Recoverable failures
// only change the code when strict is set.
func (s *Summary) ExitCode(strict bool) int {
	switch {
	case s.Aborted:
		return ExitFatal
	case strict && len(s.Failed()) > 0:
		return ExitPartial
	default:
		return ExitOK
	}
}

// WriteJSON writes the summary as indented JSON.
func (s *Summary) WriteJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(s)
}
