package artifact

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/specialistvlad/bootsweep/internal/ctxlog"
	"github.com/specialistvlad/bootsweep/internal/metrics"
	"github.com/specialistvlad/bootsweep/internal/sink"
)

// Recorder receives the provenance record of each registered artifact.
type Recorder interface {
	Write(ctx context.Context, rec sink.Record) error
}

// Registry holds every artifact registered during startup.
type Registry struct {
	mu      sync.RWMutex
	byID    map[uuid.UUID]*Artifact
	byName  map[string][]*Artifact
	ordered []*Artifact

	recorder Recorder
	now      func() time.Time
}

// Option configures a Registry.
type Option func(*Registry)

// WithRecorder sets where provenance records are written. The default
// discards them.
func WithRecorder(rec Recorder) Option {
	return func(r *Registry) { r.recorder = rec }
}

// WithClock overrides the registration timestamp source.
func WithClock(now func() time.Time) Option {
	return func(r *Registry) { r.now = now }
}

// NewRegistry creates an empty registry.
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		byID:     make(map[uuid.UUID]*Artifact),
		byName:   make(map[string][]*Artifact),
		recorder: sink.Discard{},
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register validates spec, assigns an id, records the provenance record and
// returns the immutable artifact. The record is written before the artifact
// becomes visible; if the recorder fails nothing is registered.
func (r *Registry) Register(ctx context.Context, spec Spec) (*Artifact, error) {
	logger := ctxlog.FromContext(ctx)

	if err := r.validate(spec); err != nil {
		return nil, err
	}

	a := &Artifact{
		ID:            uuid.New(),
		Name:          spec.Name,
		Kind:          spec.Kind,
		Path:          spec.Path,
		Cwd:           spec.Cwd,
		Command:       spec.Command,
		Documentation: spec.Documentation,
		Inputs:        append([]*Artifact(nil), spec.Inputs...),
		Hash:          provenanceHash(spec),
		RegisteredAt:  r.now().UTC(),
	}

	payload, err := json.Marshal(a)
	if err != nil {
		return nil, fmt.Errorf("encoding provenance record for %s: %w", a, err)
	}
	if err := r.recorder.Write(ctx, sink.Record{Kind: sink.KindArtifact, Key: a.ID.String(), Payload: payload}); err != nil {
		return nil, fmt.Errorf("recording provenance for %s: %w", a, err)
	}

	r.mu.Lock()
	r.byID[a.ID] = a
	r.byName[a.Name] = append(r.byName[a.Name], a)
	r.ordered = append(r.ordered, a)
	r.mu.Unlock()

	metrics.RecordArtifact(string(a.Kind))
	logger.Debug("Artifact registered.", "id", a.ID, "name", a.Name, "kind", a.Kind, "path", a.Path, "inputs", len(a.Inputs))
	return a, nil
}

func (r *Registry) validate(spec Spec) error {
	var missing []string
	if strings.TrimSpace(spec.Name) == "" {
		missing = append(missing, "name")
	}
	if strings.TrimSpace(spec.Path) == "" {
		missing = append(missing, "path")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", ErrInvalidSpec, strings.Join(missing, ", "))
	}
	if !spec.Kind.Valid() {
		return fmt.Errorf("%w: %q for artifact %q", ErrUnknownKind, spec.Kind, spec.Name)
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	for i, in := range spec.Inputs {
		if in == nil {
			return fmt.Errorf("%w: input %d of %q is nil", ErrUnknownInput, i, spec.Name)
		}
		if got, ok := r.byID[in.ID]; !ok || got != in {
			return fmt.Errorf("%w: %s (input of %q)", ErrUnknownInput, in, spec.Name)
		}
	}
	return checkAcyclic(spec.Inputs)
}

// checkAcyclic walks the closure of inputs. Registered artifacts can only
// reference earlier registrations, so a cycle means an Artifact was mutated
// after registration.
func checkAcyclic(inputs []*Artifact) error {
	const (
		visiting = 1
		done     = 2
	)
	state := make(map[*Artifact]int)
	var visit func(a *Artifact) error
	visit = func(a *Artifact) error {
		switch state[a] {
		case done:
			return nil
		case visiting:
			return fmt.Errorf("%w: involving %s", ErrCyclicDependency, a)
		}
		state[a] = visiting
		for _, in := range a.Inputs {
			if err := visit(in); err != nil {
				return err
			}
		}
		state[a] = done
		return nil
	}
	for _, in := range inputs {
		if err := visit(in); err != nil {
			return err
		}
	}
	return nil
}

// Get returns the artifact with the given id.
func (r *Registry) Get(id uuid.UUID) (*Artifact, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.byID[id]
	return a, ok
}

// Lookup returns every artifact registered under name, in registration
// order. Names are not unique: a repository and the binary built from it
// commonly share one.
func (r *Registry) Lookup(name string) []*Artifact {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]*Artifact(nil), r.byName[name]...)
}

// All returns every artifact in registration order.
func (r *Registry) All() []*Artifact {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]*Artifact(nil), r.ordered...)
}

// Len returns the number of registered artifacts.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.ordered)
}
