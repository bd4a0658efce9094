package sink

import (
	"context"
	"fmt"
	"io"
	"sync"
)

// Writer prints each record payload as a single line, optionally limited to
// a set of kinds.
type Writer struct {
	mu    sync.Mutex
	w     io.Writer
	kinds map[Kind]struct{}
}

// NewWriter returns a Writer sink. With no kinds given every record is printed.
func NewWriter(w io.Writer, kinds ...Kind) *Writer {
	s := &Writer{w: w}
	if len(kinds) > 0 {
		s.kinds = make(map[Kind]struct{}, len(kinds))
		for _, k := range kinds {
			s.kinds[k] = struct{}{}
		}
	}
	return s
}

func (s *Writer) Write(_ context.Context, rec Record) error {
	if s.kinds != nil {
		if _, ok := s.kinds[rec.Kind]; !ok {
			return nil
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := fmt.Fprintf(s.w, "%s\n", rec.Payload); err != nil {
		return fmt.Errorf("writing %s record %s: %w", rec.Kind, rec.Key, err)
	}
	return nil
}

func (s *Writer) Close() error { return nil }
