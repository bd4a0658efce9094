package run

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/specialistvlad/bootsweep/internal/artifact"
)

// Parameters is one point of the sweep.
type Parameters struct {
	KernelVersion string `json:"kernel_version"`
	BootType      string `json:"boot_type"`
	CPUType       string `json:"cpu_type"`
	NumCPUs       string `json:"num_cpus"`
	MemType       string `json:"mem_type"`
}

func (p Parameters) String() string {
	return fmt.Sprintf("kernel=%s boot=%s cpu=%s cpus=%s mem=%s",
		p.KernelVersion, p.BootType, p.CPUType, p.NumCPUs, p.MemType)
}

// Spec holds everything needed to construct a Descriptor. Artifacts are
// provenance only; the paths are what gets executed.
type Spec struct {
	Name            string
	SimulatorPath   string
	ConfigScript    string
	OutputDir       string
	Simulator       *artifact.Artifact
	SimulatorSource *artifact.Artifact
	Experiments     *artifact.Artifact
	KernelPath      string
	DiskImagePath   string
	Kernel          *artifact.Artifact
	DiskImage       *artifact.Artifact
	Parameters      Parameters
	Timeout         time.Duration
}

// Descriptor is a fully resolved simulator execution. It is consumed once
// by Execute, after which Result is set.
type Descriptor struct {
	Spec

	ID uuid.UUID
	// Params are the trailing positional arguments: cpu, mem, cores, boot.
	Params []string
	Hash   string

	Result *Result
}

// New validates spec and returns a Descriptor with a fresh id.
func New(spec Spec) (*Descriptor, error) {
	var missing []string
	for _, f := range []struct{ name, val string }{
		{"simulator path", spec.SimulatorPath},
		{"config script", spec.ConfigScript},
		{"output dir", spec.OutputDir},
	} {
		if strings.TrimSpace(f.val) == "" {
			missing = append(missing, f.name)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: missing %s", ErrInvalidDescriptor, strings.Join(missing, ", "))
	}
	if spec.Timeout <= 0 {
		return nil, fmt.Errorf("%w: timeout must be positive, got %s", ErrInvalidDescriptor, spec.Timeout)
	}

	d := &Descriptor{
		Spec: spec,
		ID:   uuid.New(),
		Params: []string{
			spec.Parameters.CPUType,
			spec.Parameters.MemType,
			spec.Parameters.NumCPUs,
			spec.Parameters.BootType,
		},
	}
	d.Hash = d.computeHash()
	return d, nil
}

// Command returns the simulator argv, program first.
func (d *Descriptor) Command() []string {
	argv := []string{
		d.SimulatorPath,
		"-re",
		"--outdir=" + d.OutputDir,
		d.ConfigScript,
		d.KernelPath,
		d.DiskImagePath,
	}
	return append(argv, d.Params...)
}

func (d *Descriptor) String() string {
	return d.Name + " " + d.OutputDir
}

func (d *Descriptor) computeHash() string {
	h := sha256.New()
	for _, arg := range d.Command() {
		h.Write([]byte(arg))
		h.Write([]byte{0})
	}
	for _, a := range d.artifacts() {
		if a != nil {
			h.Write([]byte(a.Hash))
		}
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}

func (d *Descriptor) artifacts() []*artifact.Artifact {
	return []*artifact.Artifact{d.Simulator, d.SimulatorSource, d.Experiments, d.Kernel, d.DiskImage}
}
