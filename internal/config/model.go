package config

import (
	"context"
	"time"
)

// Loader reads configuration from files or directories into a Model.
type Loader interface {
	Load(ctx context.Context, paths ...string) (*Model, error)
}

// Model is the whole experiment configuration.
type Model struct {
	// Artifacts in declaration order, kernel images included.
	Artifacts  []*Artifact
	Kernels    []*Kernel
	Sweep      *Sweep
	Experiment *Experiment
}

// Artifact declares one artifact. Inputs hold the ids of other
// declarations.
type Artifact struct {
	ID            string
	Name          string
	Kind          string
	Path          string
	Cwd           string
	Command       string
	Documentation string
	Inputs        []string
	// DeclRange is where the declaration came from, for error messages.
	DeclRange string
}

// Kernel binds a kernel version to the artifact declaring its image.
type Kernel struct {
	Version    string
	ArtifactID string
}

// Sweep lists the values of each dimension. Empty Kernels means every
// declared kernel version.
type Sweep struct {
	Kernels   []string
	BootTypes []string
	CPUTypes  []string
	NumCPUs   []string
	MemTypes  []string
}

// Experiment holds the constants shared by every run. Artifact fields are
// declaration ids.
type Experiment struct {
	Label           string
	ResultsRoot     string
	Tag             string
	ConfigScript    string
	KernelRoot      string
	DiskImagePath   string
	Timeout         time.Duration
	MESIProtocol    string
	Simulator       string
	SimulatorMESI   string
	SimulatorSource string
	Experiments     string
	DiskImage       string
}
