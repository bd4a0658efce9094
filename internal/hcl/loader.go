package hcl

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/specialistvlad/bootsweep/internal/config"
	"github.com/specialistvlad/bootsweep/internal/ctxlog"
	"github.com/specialistvlad/bootsweep/internal/fsutil"
)

// ErrNoFiles is returned when none of the given paths holds an .hcl file.
var ErrNoFiles = errors.New("no .hcl files found")

// Loader is the HCL implementation of config.Loader.
type Loader struct{}

// NewLoader creates a new HCL configuration loader.
func NewLoader() *Loader {
	return &Loader{}
}

var _ config.Loader = (*Loader)(nil)

// Load parses every .hcl file under paths and returns the validated model.
// Blocks may be spread across files in any order; artifact references are
// resolved after all files are read.
func (l *Loader) Load(ctx context.Context, paths ...string) (*config.Model, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("HCL loader started.", "path_count", len(paths))

	files, err := fsutil.FindFilesByExtension(paths, ".hcl")
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("%w in %v", ErrNoFiles, paths)
	}
	logger.Debug("Discovered HCL files.", "count", len(files))

	parser := hclparse.NewParser()
	var all fileRoot
	for _, file := range files {
		hclFile, diags := parser.ParseHCLFile(file)
		if diags.HasErrors() {
			return nil, fmt.Errorf("failed to parse HCL file %s: %w", file, diags)
		}
		var root fileRoot
		if diags := gohcl.DecodeBody(hclFile.Body, nil, &root); diags.HasErrors() {
			return nil, fmt.Errorf("failed to decode HCL file %s: %w", file, diags)
		}
		all.Artifacts = append(all.Artifacts, root.Artifacts...)
		all.Kernels = append(all.Kernels, root.Kernels...)
		all.Sweeps = append(all.Sweeps, root.Sweeps...)
		all.Experiments = append(all.Experiments, root.Experiments...)
	}

	model, err := l.translate(ctx, &all)
	if err != nil {
		return nil, err
	}
	if err := model.Validate(); err != nil {
		return nil, err
	}

	logger.Debug("HCL loading complete.",
		"artifacts", len(model.Artifacts),
		"kernels", len(model.Kernels),
		"points", len(model.Sweep.Kernels)*len(model.Sweep.BootTypes)*len(model.Sweep.CPUTypes)*len(model.Sweep.NumCPUs)*len(model.Sweep.MemTypes),
	)
	return model, nil
}

func (l *Loader) translate(ctx context.Context, root *fileRoot) (*config.Model, error) {
	logger := ctxlog.FromContext(ctx)
	model := &config.Model{}

	// Only artifact blocks are referenceable; kernel images are reached
	// through their version.
	var ids []string
	for _, a := range root.Artifacts {
		ids = append(ids, a.ID)
	}
	evalCtx := artifactEvalContext(ids)

	for _, a := range root.Artifacts {
		decl, err := translateArtifact(a, evalCtx)
		if err != nil {
			return nil, err
		}
		model.Artifacts = append(model.Artifacts, decl)
	}
	for _, k := range root.Kernels {
		decls, kernels, err := translateKernel(k, evalCtx)
		if err != nil {
			return nil, err
		}
		logger.Debug("Expanded kernel block.", "kernel", k.ID, "versions", len(k.Versions))
		model.Artifacts = append(model.Artifacts, decls...)
		model.Kernels = append(model.Kernels, kernels...)
	}

	switch len(root.Sweeps) {
	case 0:
	case 1:
		s := root.Sweeps[0]
		model.Sweep = &config.Sweep{
			Kernels:   s.Kernels,
			BootTypes: s.BootTypes,
			CPUTypes:  s.CPUTypes,
			NumCPUs:   s.NumCPUs,
			MemTypes:  s.MemTypes,
		}
	default:
		return nil, fmt.Errorf("duplicate sweep block at %s", root.Sweeps[1].Body.MissingItemRange())
	}

	switch len(root.Experiments) {
	case 0:
	case 1:
		e, err := translateExperiment(root.Experiments[0], evalCtx)
		if err != nil {
			return nil, err
		}
		model.Experiment = e
	default:
		return nil, fmt.Errorf("duplicate experiment block at %s", root.Experiments[1].Body.MissingItemRange())
	}
	return model, nil
}

func translateArtifact(a *artifactBlock, evalCtx *hcl.EvalContext) (*config.Artifact, error) {
	inputs, err := evalStringList(a.Inputs, evalCtx, "inputs")
	if err != nil {
		return nil, fmt.Errorf("artifact %q: %w", a.ID, err)
	}
	return &config.Artifact{
		ID:            a.ID,
		Name:          a.Name,
		Kind:          a.Kind,
		Path:          a.Path,
		Cwd:           a.Cwd,
		Command:       a.Command,
		Documentation: a.Documentation,
		Inputs:        inputs,
		DeclRange:     a.Body.MissingItemRange().String(),
	}, nil
}

// KernelArtifactID is the declaration id given to one version of a kernel
// block.
func KernelArtifactID(blockID, version string) string {
	return fmt.Sprintf("kernel.%s[%s]", blockID, version)
}

func translateKernel(k *kernelBlock, evalCtx *hcl.EvalContext) ([]*config.Artifact, []*config.Kernel, error) {
	if len(k.Versions) == 0 {
		return nil, nil, fmt.Errorf("kernel %q: versions must not be empty", k.ID)
	}
	var decls []*config.Artifact
	var kernels []*config.Kernel
	for _, v := range k.Versions {
		vctx := withVersion(evalCtx, v)
		decl := &config.Artifact{
			ID:        KernelArtifactID(k.ID, v),
			Kind:      "kernel-image",
			DeclRange: k.Body.MissingItemRange().String(),
		}
		for _, f := range []struct {
			name string
			expr hcl.Expression
			dst  *string
		}{
			{"name", k.Name, &decl.Name},
			{"path", k.Path, &decl.Path},
			{"cwd", k.Cwd, &decl.Cwd},
			{"command", k.Command, &decl.Command},
			{"documentation", k.Documentation, &decl.Documentation},
		} {
			s, err := evalString(f.expr, vctx, f.name)
			if err != nil {
				return nil, nil, fmt.Errorf("kernel %q version %s: %w", k.ID, v, err)
			}
			*f.dst = s
		}
		inputs, err := evalStringList(k.Inputs, vctx, "inputs")
		if err != nil {
			return nil, nil, fmt.Errorf("kernel %q version %s: %w", k.ID, v, err)
		}
		decl.Inputs = inputs
		decls = append(decls, decl)
		kernels = append(kernels, &config.Kernel{Version: v, ArtifactID: decl.ID})
	}
	return decls, kernels, nil
}

func translateExperiment(e *experimentBlock, evalCtx *hcl.EvalContext) (*config.Experiment, error) {
	out := &config.Experiment{
		Label:         e.Label,
		ResultsRoot:   e.ResultsRoot,
		Tag:           e.Tag,
		ConfigScript:  e.ConfigScript,
		KernelRoot:    e.KernelRoot,
		DiskImagePath: e.DiskImagePath,
		MESIProtocol:  e.MESIProtocol,
	}
	if e.Timeout != "" {
		d, err := time.ParseDuration(e.Timeout)
		if err != nil {
			return nil, fmt.Errorf("experiment: invalid timeout %q: %w", e.Timeout, err)
		}
		if d <= 0 {
			return nil, fmt.Errorf("experiment: timeout must be positive, got %q", e.Timeout)
		}
		out.Timeout = d
	}
	for _, f := range []struct {
		name string
		expr hcl.Expression
		dst  *string
	}{
		{"simulator", e.Simulator, &out.Simulator},
		{"simulator_mesi", e.SimulatorMESI, &out.SimulatorMESI},
		{"simulator_source", e.SimulatorSource, &out.SimulatorSource},
		{"experiments", e.Experiments, &out.Experiments},
		{"disk_image", e.DiskImage, &out.DiskImage},
	} {
		s, err := evalString(f.expr, evalCtx, f.name)
		if err != nil {
			return nil, fmt.Errorf("experiment: %w", err)
		}
		*f.dst = s
	}
	return out, nil
}
