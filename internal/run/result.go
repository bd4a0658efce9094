package run

import (
	"fmt"
	"time"
)

// Status is the lifecycle state recorded for a run.
type Status string

const (
	StatusCreated  Status = "Created"
	StatusFinished Status = "Finished"
	StatusFailed   Status = "Failed"
	StatusTimeout  Status = "Timeout"
	StatusError    Status = "Error"
	StatusCanceled Status = "Canceled"
)

// Kill reasons recorded when the process was stopped by the orchestrator.
const (
	KillReasonTimeout  = "timeout"
	KillReasonCanceled = "canceled"
)

// Result is the outcome of one run.
type Result struct {
	Status     Status
	ExitCode   int
	StartedAt  time.Time
	EndedAt    time.Time
	Duration   time.Duration
	Error      string
	KillReason string

	err error
}

// Err returns nil for a finished run, otherwise an error wrapping one of
// ErrExecutionFailure, ErrTimeout, ErrCanceled or ErrNotStarted.
func (r *Result) Err() error {
	if r == nil {
		return nil
	}
	return r.err
}

func (r *Result) fail(status Status, err error) {
	r.Status = status
	r.err = err
	if err != nil {
		r.Error = err.Error()
	}
}

func (r *Result) String() string {
	if r == nil {
		return string(StatusCreated)
	}
	if r.Error != "" {
		return fmt.Sprintf("%s (exit %d): %s", r.Status, r.ExitCode, r.Error)
	}
	return fmt.Sprintf("%s (exit %d)", r.Status, r.ExitCode)
}
