package experiment

import (
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/specialistvlad/bootsweep/internal/artifact"
	"github.com/specialistvlad/bootsweep/internal/ctxlog"
	"github.com/specialistvlad/bootsweep/internal/run"
)

// Reference values of the boot-exit experiment.
const (
	DefaultResultsRoot  = "results/run_exit"
	DefaultTag          = "boot-exit"
	DefaultTimeout      = 6 * time.Hour
	DefaultMESIProtocol = "MESI_Two_Level"
)

// Environment is the fixed part of every run in an experiment. It is built
// once at startup and read-only afterwards.
type Environment struct {
	Label         string
	ResultsRoot   string
	Tag           string
	ConfigScript  string
	KernelRoot    string
	DiskImagePath string
	Timeout       time.Duration
	// MESIProtocol is the memory type that needs the MESI simulator build.
	MESIProtocol string

	Simulator       *artifact.Artifact
	SimulatorMESI   *artifact.Artifact
	SimulatorSource *artifact.Artifact
	Experiments     *artifact.Artifact
	DiskImage       *artifact.Artifact
	// Kernels maps a kernel version to its image artifact.
	Kernels map[string]*artifact.Artifact
}

// Factory builds run descriptors for one Environment.
type Factory struct {
	env Environment
}

// NewFactory fills in reference defaults and validates env.
func NewFactory(env Environment) (*Factory, error) {
	if env.ResultsRoot == "" {
		env.ResultsRoot = DefaultResultsRoot
	}
	if env.Tag == "" {
		env.Tag = DefaultTag
	}
	if env.Timeout == 0 {
		env.Timeout = DefaultTimeout
	}
	if env.MESIProtocol == "" {
		env.MESIProtocol = DefaultMESIProtocol
	}
	if env.DiskImagePath == "" && env.DiskImage != nil {
		env.DiskImagePath = env.DiskImage.Path
	}

	var problems []string
	if env.Simulator == nil {
		problems = append(problems, "simulator artifact is required")
	}
	if env.SimulatorMESI == nil {
		problems = append(problems, "MESI simulator artifact is required")
	}
	if env.ConfigScript == "" {
		problems = append(problems, "config script is required")
	}
	if env.KernelRoot == "" {
		problems = append(problems, "kernel root is required")
	}
	if env.DiskImagePath == "" {
		problems = append(problems, "disk image path is required")
	}
	if env.Timeout < 0 {
		problems = append(problems, "timeout must be positive")
	}
	if len(env.Kernels) == 0 {
		problems = append(problems, "at least one kernel is required")
	}
	if len(problems) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrInvalidEnvironment, strings.Join(problems, "; "))
	}
	return &Factory{env: env}, nil
}

// Environment returns the effective environment, defaults applied.
func (f *Factory) Environment() Environment { return f.env }

// OutputDir returns the result directory of one point. The field order is
// relied on by result tooling and must not change:
// <root>/vmlinux-<kernel>/<tag>/<cpu>/<mem>/<cores>/<boot>.
func OutputDir(root, tag string, p run.Parameters) string {
	return path.Join(root, "vmlinux-"+p.KernelVersion, tag, p.CPUType, p.MemType, p.NumCPUs, p.BootType)
}

// CreateRun builds the descriptor for one point of the sweep.
func (f *Factory) CreateRun(kernelVersion, bootType, cpuType, numCPUs, memType string) (*run.Descriptor, error) {
	return f.Create(run.Parameters{
		KernelVersion: kernelVersion,
		BootType:      bootType,
		CPUType:       cpuType,
		NumCPUs:       numCPUs,
		MemType:       memType,
	})
}

// Create is CreateRun taking the point as a value.
func (f *Factory) Create(p run.Parameters) (*run.Descriptor, error) {
	sim := f.env.Simulator
	if p.MemType == f.env.MESIProtocol {
		sim = f.env.SimulatorMESI
	}

	kernel, ok := f.env.Kernels[p.KernelVersion]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownKernelVersion, p.KernelVersion)
	}

	return run.New(run.Spec{
		Name:            f.env.Label,
		SimulatorPath:   sim.Path,
		ConfigScript:    f.env.ConfigScript,
		OutputDir:       OutputDir(f.env.ResultsRoot, f.env.Tag, p),
		Simulator:       sim,
		SimulatorSource: f.env.SimulatorSource,
		Experiments:     f.env.Experiments,
		KernelPath:      path.Join(f.env.KernelRoot, "vmlinux-"+p.KernelVersion),
		DiskImagePath:   f.env.DiskImagePath,
		Kernel:          kernel,
		DiskImage:       f.env.DiskImage,
		Parameters:      p,
		Timeout:         f.env.Timeout,
	})
}

// CreateAll builds one descriptor per point, in order. It fails on the first
// error and refuses points that collapse onto the same output directory.
func (f *Factory) CreateAll(ctx context.Context, points []run.Parameters) ([]*run.Descriptor, error) {
	logger := ctxlog.FromContext(ctx)

	seen := make(map[string]run.Parameters, len(points))
	out := make([]*run.Descriptor, 0, len(points))
	for _, p := range points {
		d, err := f.Create(p)
		if err != nil {
			return nil, fmt.Errorf("creating run for %s: %w", p, err)
		}
		if prev, dup := seen[d.OutputDir]; dup {
			return nil, fmt.Errorf("%w: %s is shared by (%s) and (%s)", ErrDuplicateOutputDir, d.OutputDir, prev, p)
		}
		seen[d.OutputDir] = p
		out = append(out, d)
	}
	logger.Debug("Run descriptors created.", "count", len(out))
	return out, nil
}
