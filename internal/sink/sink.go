// Package sink provides append-only destinations for the JSON records the
// orchestrator produces: artifact provenance records and run results.
package sink

import (
	"context"
	"errors"
)

// Kind tags the type of a record.
type Kind string

const (
	KindArtifact Kind = "artifact"
	KindRun      Kind = "run"
)

// Record is one serialized JSON document headed for a sink.
type Record struct {
	Kind Kind
	// Key identifies the record within its kind (artifact or run id).
	Key     string
	Payload []byte
}

// Sink accepts records. Implementations must be safe for concurrent use.
type Sink interface {
	Write(ctx context.Context, rec Record) error
	Close() error
}

// Multi fans every record out to all of its sinks.
type Multi []Sink

// Write writes rec to every sink, joining any errors.
func (m Multi) Write(ctx context.Context, rec Record) error {
	var errs []error
	for _, s := range m {
		if err := s.Write(ctx, rec); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Close closes every sink, joining any errors.
func (m Multi) Close() error {
	var errs []error
	for _, s := range m {
		if err := s.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Discard drops every record.
type Discard struct{}

func (Discard) Write(context.Context, Record) error { return nil }
func (Discard) Close() error                        { return nil }
