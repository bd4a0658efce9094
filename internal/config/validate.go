package config

import (
	"errors"
	"fmt"

	"github.com/specialistvlad/bootsweep/internal/artifact"
)

var (
	ErrDuplicateID      = errors.New("duplicate declaration")
	ErrUnknownReference = errors.New("reference to undeclared artifact")
	ErrMissingBlock     = errors.New("missing required block")
)

// Index returns the declarations keyed by id.
func (m *Model) Index() map[string]*Artifact {
	out := make(map[string]*Artifact, len(m.Artifacts))
	for _, a := range m.Artifacts {
		out[a.ID] = a
	}
	return out
}

// KernelVersions returns the declared versions in declaration order.
func (m *Model) KernelVersions() []string {
	out := make([]string, 0, len(m.Kernels))
	for _, k := range m.Kernels {
		out = append(out, k.Version)
	}
	return out
}

// Validate checks references, uniqueness and acyclicity, and fills in the
// default kernel list of the sweep.
func (m *Model) Validate() error {
	if m.Sweep == nil {
		return fmt.Errorf("%w: sweep", ErrMissingBlock)
	}
	if m.Experiment == nil {
		return fmt.Errorf("%w: experiment", ErrMissingBlock)
	}

	index := make(map[string]*Artifact, len(m.Artifacts))
	for _, a := range m.Artifacts {
		if prev, dup := index[a.ID]; dup {
			return fmt.Errorf("%w: artifact %q at %s, first declared at %s", ErrDuplicateID, a.ID, a.DeclRange, prev.DeclRange)
		}
		index[a.ID] = a
	}
	for _, a := range m.Artifacts {
		for _, in := range a.Inputs {
			if _, ok := index[in]; !ok {
				return fmt.Errorf("%w: %q is an input of %q", ErrUnknownReference, in, a.ID)
			}
		}
	}

	versions := make(map[string]bool, len(m.Kernels))
	for _, k := range m.Kernels {
		if versions[k.Version] {
			return fmt.Errorf("%w: kernel version %q", ErrDuplicateID, k.Version)
		}
		versions[k.Version] = true
		if _, ok := index[k.ArtifactID]; !ok {
			return fmt.Errorf("%w: %q for kernel %s", ErrUnknownReference, k.ArtifactID, k.Version)
		}
	}

	e := m.Experiment
	for field, id := range map[string]string{
		"simulator":        e.Simulator,
		"simulator_mesi":   e.SimulatorMESI,
		"simulator_source": e.SimulatorSource,
		"experiments":      e.Experiments,
		"disk_image":       e.DiskImage,
	} {
		if id == "" {
			continue
		}
		if _, ok := index[id]; !ok {
			return fmt.Errorf("%w: experiment.%s = %q", ErrUnknownReference, field, id)
		}
	}

	if len(m.Sweep.Kernels) == 0 {
		m.Sweep.Kernels = m.KernelVersions()
	}

	_, err := m.ArtifactOrder()
	return err
}

// ArtifactOrder returns the declarations ordered so that every input comes
// before the artifacts that use it. Cycles are reported with their path.
func (m *Model) ArtifactOrder() ([]*Artifact, error) {
	g := artifact.NewGraph()
	index := m.Index()
	for _, a := range m.Artifacts {
		g.AddNode(a.ID)
	}
	for _, a := range m.Artifacts {
		for _, in := range a.Inputs {
			if err := g.AddEdge(in, a.ID); err != nil {
				return nil, fmt.Errorf("artifact %q: %w", a.ID, err)
			}
		}
	}
	ids, err := g.TopologicalOrder()
	if err != nil {
		return nil, err
	}
	out := make([]*Artifact, 0, len(ids))
	for _, id := range ids {
		out = append(out, index[id])
	}
	return out, nil
}
