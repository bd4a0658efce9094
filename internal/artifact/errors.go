package artifact

import "errors"

var (
	// ErrCyclicDependency is returned when an artifact would, directly or
	// transitively, depend on itself.
	ErrCyclicDependency = errors.New("cyclic artifact dependency")
	// ErrUnknownInput is returned when an input was not registered in the
	// same registry.
	ErrUnknownInput = errors.New("input artifact not registered")
	ErrUnknownKind  = errors.New("unknown artifact kind")
	ErrInvalidSpec  = errors.New("invalid artifact spec")
)
