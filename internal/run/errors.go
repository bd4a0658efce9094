package run

import "errors"

var (
	// ErrExecutionFailure marks a simulator that exited non-zero.
	ErrExecutionFailure = errors.New("run execution failed")
	// ErrTimeout marks a simulator killed after exceeding its timeout.
	ErrTimeout = errors.New("run timed out")
	// ErrCanceled marks a run stopped because the whole batch was canceled.
	ErrCanceled = errors.New("run canceled")
	// ErrNotStarted marks a run whose process could not be launched.
	ErrNotStarted = errors.New("run could not be started")

	ErrInvalidDescriptor = errors.New("invalid run descriptor")
)
