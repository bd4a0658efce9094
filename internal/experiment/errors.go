package experiment

import "errors"

var (
	// ErrUnknownKernelVersion is returned when no kernel artifact is
	// registered for the requested version.
	ErrUnknownKernelVersion = errors.New("unknown kernel version")
	// ErrDuplicateOutputDir is returned when two points map to the same
	// output directory.
	ErrDuplicateOutputDir = errors.New("duplicate output directory")
	ErrInvalidEnvironment = errors.New("invalid experiment environment")
	ErrInvalidFilter      = errors.New("invalid sweep filter")
)
