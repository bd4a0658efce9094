package hcl

import (
	"github.com/hashicorp/hcl/v2"
)

// fileRoot decodes every top-level block an experiment file may contain.
type fileRoot struct {
	Artifacts   []*artifactBlock   `hcl:"artifact,block"`
	Kernels     []*kernelBlock     `hcl:"kernel,block"`
	Sweeps      []*sweepBlock      `hcl:"sweep,block"`
	Experiments []*experimentBlock `hcl:"experiment,block"`
	Remain      hcl.Body           `hcl:",remain"`
}

type artifactBlock struct {
	ID            string         `hcl:"id,label"`
	Name          string         `hcl:"name"`
	Kind          string         `hcl:"kind"`
	Path          string         `hcl:"path"`
	Cwd           string         `hcl:"cwd,optional"`
	Command       string         `hcl:"command,optional"`
	Documentation string         `hcl:"documentation,optional"`
	Inputs        hcl.Expression `hcl:"inputs,optional"`
	Body          hcl.Body       `hcl:",body"`
}

// kernelBlock declares one kernel image per version. Every expression except
// versions may use ${version}.
type kernelBlock struct {
	ID            string         `hcl:"id,label"`
	Versions      []string       `hcl:"versions"`
	Name          hcl.Expression `hcl:"name"`
	Path          hcl.Expression `hcl:"path"`
	Cwd           hcl.Expression `hcl:"cwd,optional"`
	Command       hcl.Expression `hcl:"command,optional"`
	Documentation hcl.Expression `hcl:"documentation,optional"`
	Inputs        hcl.Expression `hcl:"inputs,optional"`
	Body          hcl.Body       `hcl:",body"`
}

type sweepBlock struct {
	Kernels   []string `hcl:"kernels,optional"`
	BootTypes []string `hcl:"boot_types"`
	CPUTypes  []string `hcl:"cpu_types"`
	NumCPUs   []string `hcl:"num_cpus"`
	MemTypes  []string `hcl:"mem_types"`
	Body      hcl.Body `hcl:",body"`
}

type experimentBlock struct {
	Label         string `hcl:"label,optional"`
	ResultsRoot   string `hcl:"results_root,optional"`
	Tag           string `hcl:"tag,optional"`
	ConfigScript  string `hcl:"config_script"`
	KernelRoot    string `hcl:"kernel_root"`
	DiskImagePath string `hcl:"disk_image_path,optional"`
	Timeout       string `hcl:"timeout,optional"`
	MESIProtocol  string `hcl:"mesi_protocol,optional"`

	Simulator       hcl.Expression `hcl:"simulator"`
	SimulatorMESI   hcl.Expression `hcl:"simulator_mesi"`
	SimulatorSource hcl.Expression `hcl:"simulator_source,optional"`
	Experiments     hcl.Expression `hcl:"experiments,optional"`
	DiskImage       hcl.Expression `hcl:"disk_image,optional"`

	Body hcl.Body `hcl:",body"`
}
