package sink

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// File appends records to one JSON-lines file per kind inside a directory,
// e.g. artifacts.jsonl and runs.jsonl.
type File struct {
	mu    sync.Mutex
	dir   string
	files map[Kind]*os.File
}

// NewFile creates the directory if needed. Files are opened lazily.
func NewFile(dir string) (*File, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating sink directory %s: %w", dir, err)
	}
	return &File{dir: dir, files: make(map[Kind]*os.File)}, nil
}

// Path returns the file records of the given kind are appended to.
func (s *File) Path(kind Kind) string {
	return filepath.Join(s.dir, string(kind)+"s.jsonl")
}

func (s *File) Write(_ context.Context, rec Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, ok := s.files[rec.Kind]
	if !ok {
		var err error
		f, err = os.OpenFile(s.Path(rec.Kind), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return fmt.Errorf("opening %s sink file: %w", rec.Kind, err)
		}
		s.files[rec.Kind] = f
	}

	line := make([]byte, 0, len(rec.Payload)+1)
	line = append(append(line, rec.Payload...), '\n')
	if _, err := f.Write(line); err != nil {
		return fmt.Errorf("appending %s record %s: %w", rec.Kind, rec.Key, err)
	}
	return nil
}

func (s *File) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var firstErr error
	for kind, f := range s.files {
		if err := f.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		delete(s.files, kind)
	}
	return firstErr
}
