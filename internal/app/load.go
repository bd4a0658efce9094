package app

import (
	"fmt"

	"github.com/specialistvlad/bootsweep/internal/artifact"
	"github.com/specialistvlad/bootsweep/internal/experiment"
)

// materialize registers every declared artifact in dependency order and
// builds the run factory and the selected sweep points.
func (a *App) materialize() error {
	logger := a.logger
	model := a.model

	order, err := model.ArtifactOrder()
	if err != nil {
		return fmt.Errorf("failed to order artifacts: %w", err)
	}

	a.registry = artifact.NewRegistry(artifact.WithRecorder(a.sink))
	byID := make(map[string]*artifact.Artifact, len(order))
	for _, decl := range order {
		kind, err := artifact.ParseKind(decl.Kind)
		if err != nil {
			return fmt.Errorf("artifact %q at %s: %w", decl.ID, decl.DeclRange, err)
		}
		inputs := make([]*artifact.Artifact, 0, len(decl.Inputs))
		for _, in := range decl.Inputs {
			inputs = append(inputs, byID[in])
		}
		reg, err := a.registry.Register(a.ctx, artifact.Spec{
			Name:          decl.Name,
			Kind:          kind,
			Path:          decl.Path,
			Cwd:           decl.Cwd,
			Command:       decl.Command,
			Documentation: decl.Documentation,
			Inputs:        inputs,
		})
		if err != nil {
			return fmt.Errorf("failed to register artifact %q: %w", decl.ID, err)
		}
		byID[decl.ID] = reg
	}
	logger.Info("Artifacts registered.", "count", a.registry.Len())

	kernels := make(map[string]*artifact.Artifact, len(model.Kernels))
	for _, k := range model.Kernels {
		kernels[k.Version] = byID[k.ArtifactID]
	}

	e := model.Experiment
	a.factory, err = experiment.NewFactory(experiment.Environment{
		Label:           e.Label,
		ResultsRoot:     e.ResultsRoot,
		Tag:             e.Tag,
		ConfigScript:    e.ConfigScript,
		KernelRoot:      e.KernelRoot,
		DiskImagePath:   e.DiskImagePath,
		Timeout:         e.Timeout,
		MESIProtocol:    e.MESIProtocol,
		Simulator:       byID[e.Simulator],
		SimulatorMESI:   byID[e.SimulatorMESI],
		SimulatorSource: byID[e.SimulatorSource],
		Experiments:     byID[e.Experiments],
		DiskImage:       byID[e.DiskImage],
		Kernels:         kernels,
	})
	if err != nil {
		return err
	}

	sweep := experiment.Sweep{
		Kernels:   model.Sweep.Kernels,
		BootTypes: model.Sweep.BootTypes,
		CPUTypes:  model.Sweep.CPUTypes,
		NumCPUs:   model.Sweep.NumCPUs,
		MemTypes:  model.Sweep.MemTypes,
	}
	filter, err := experiment.ParseFilter(a.config.Only)
	if err != nil {
		return err
	}
	a.points = filter.Apply(sweep.Points())
	logger.Info("Sweep expanded.", "points", sweep.Len(), "selected", len(a.points))
	return nil
}
