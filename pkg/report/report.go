package report

import (
	"time"

	"github.com/fuzzall/fuzzall/internal/scanner"
)

// Handler consumes reports which the scheduler emits as jobs change
// state. Completions of concurrent jobs may arrive in any order.
type Handler interface {
	Handle(report *Report) error
}

type Status string

const (
	StatusPending   Status = "PENDING"
	StatusRunning   Status = "RUNNING"
	StatusSucceeded Status = "SUCCEEDED"
	StatusFailed    Status = "FAILED"
)

// Terminal returns whether the status is a final job state.
func (s Status) Terminal() bool {
	return s == StatusSucceeded || s == StatusFailed
}

// Report describes one state change of one job.
type Report struct {
	Target     *scanner.Target `json:"target"`
	Status     Status          `json:"status"`
	LogPath    string          `json:"log_path,omitempty"`
	StartedAt  time.Time       `json:"started_at,omitempty"`
	FinishedAt time.Time       `json:"finished_at,omitempty"`
	// Error holds the failure cause for failed jobs. For fuzzing
	// processes which exited non-zero this is just the exit status, the
	// interesting part is in the log file. For jobs which could not be
	// launched at all it is the only information there is.
	Error string `json:"error,omitempty"`
}

// Duration returns the wall-clock time the job ran, for display
// purposes only.
func (r *Report) Duration() time.Duration {
	if r.StartedAt.IsZero() || r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// Summary holds the final counts of one orchestrator run.
type Summary struct {
	Total     int `json:"total"`
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
}

// Skipped returns the number of targets which were discovered but
// never launched because admission stopped after a failure.
func (s *Summary) Skipped() int {
	return s.Total - s.Succeeded - s.Failed
}

// Success reports whether the run as a whole succeeded. Skipped
// targets don't count as failures.
func (s *Summary) Success() bool {
	return s.Failed == 0
}
