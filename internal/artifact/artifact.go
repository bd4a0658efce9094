package artifact

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Spec is the caller-supplied description of an artifact to register.
type Spec struct {
	Name          string
	Kind          Kind
	Path          string
	Cwd           string
	Command       string
	Documentation string
	Inputs        []*Artifact
}

// Artifact is an immutable, registered provenance record. Fields must not be
// modified after Register returns it.
type Artifact struct {
	ID            uuid.UUID
	Name          string
	Kind          Kind
	Path          string
	Cwd           string
	Command       string
	Documentation string
	Inputs        []*Artifact
	// Hash is derived from the provenance fields and the input hashes, so two
	// identical declarations hash identically across processes.
	Hash         string
	RegisteredAt time.Time
}

// String returns "name (kind)".
func (a *Artifact) String() string {
	if a == nil {
		return "<nil>"
	}
	return a.Name + " (" + string(a.Kind) + ")"
}

// provenanceHash hashes the declaration. Inputs contribute their own hashes
// in order, which makes the hash cover the whole upstream chain.
func provenanceHash(spec Spec) string {
	h := sha256.New()
	for _, field := range []string{string(spec.Kind), spec.Name, spec.Path, spec.Cwd, spec.Command} {
		h.Write([]byte(field))
		h.Write([]byte{0})
	}
	for _, in := range spec.Inputs {
		h.Write([]byte(in.Hash))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}

// inputRef is how an input appears inside a provenance record.
type inputRef struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
	Type Kind      `json:"type"`
	Path string    `json:"path"`
	Hash string    `json:"hash"`
}

type record struct {
	ID            uuid.UUID  `json:"_id"`
	Name          string     `json:"name"`
	Type          Kind       `json:"type"`
	Path          string     `json:"path"`
	Cwd           string     `json:"cwd"`
	Command       string     `json:"command"`
	Documentation string     `json:"documentation"`
	Inputs        []inputRef `json:"inputs"`
	Hash          string     `json:"hash"`
	RegisteredAt  time.Time  `json:"registered_at"`
}

// MarshalJSON encodes the provenance record. Inputs are expanded to small
// reference objects rather than embedded recursively.
func (a *Artifact) MarshalJSON() ([]byte, error) {
	rec := record{
		ID:            a.ID,
		Name:          a.Name,
		Type:          a.Kind,
		Path:          a.Path,
		Cwd:           a.Cwd,
		Command:       a.Command,
		Documentation: a.Documentation,
		Inputs:        make([]inputRef, 0, len(a.Inputs)),
		Hash:          a.Hash,
		RegisteredAt:  a.RegisteredAt,
	}
	for _, in := range a.Inputs {
		rec.Inputs = append(rec.Inputs, inputRef{ID: in.ID, Name: in.Name, Type: in.Kind, Path: in.Path, Hash: in.Hash})
	}
	return json.Marshal(rec)
}
