package run

import (
	"encoding/json"
	"time"

	"github.com/specialistvlad/bootsweep/internal/artifact"
)

// record is the serialized form of a run. Field names follow the gem5art
// run documents so existing result tooling can read them.
type record struct {
	ID                   string     `json:"_id"`
	Name                 string     `json:"name"`
	SimulatorBinary      string     `json:"gem5_binary"`
	RunScript            string     `json:"run_script"`
	OutputDir            string     `json:"outdir"`
	LinuxBinary          string     `json:"linux_binary"`
	DiskImage            string     `json:"disk_image"`
	SimulatorArtifact    string     `json:"gem5_artifact"`
	SimulatorGitArtifact string     `json:"gem5_git_artifact"`
	RunScriptGitArtifact string     `json:"run_script_git_artifact"`
	LinuxBinaryArtifact  string     `json:"linux_binary_artifact"`
	DiskImageArtifact    string     `json:"disk_image_artifact"`
	Params               []string   `json:"params"`
	Parameters           Parameters `json:"parameters"`
	Command              []string   `json:"command"`
	Timeout              float64    `json:"timeout"`
	Hash                 string     `json:"hash"`
	Status               Status     `json:"status"`
	ReturnCode           *int       `json:"return_code"`
	KillReason           string     `json:"kill_reason,omitempty"`
	Error                string     `json:"error,omitempty"`
	StartTime            *time.Time `json:"start_time"`
	EndTime              *time.Time `json:"end_time"`
	RunningTime          float64    `json:"running_time"`
}

// DumpsJSON serializes the descriptor together with its result, if any. A
// run that has not executed yet is reported with status Created.
func (d *Descriptor) DumpsJSON() ([]byte, error) {
	rec := record{
		ID:                   d.ID.String(),
		Name:                 d.Name,
		SimulatorBinary:      d.SimulatorPath,
		RunScript:            d.ConfigScript,
		OutputDir:            d.OutputDir,
		LinuxBinary:          d.KernelPath,
		DiskImage:            d.DiskImagePath,
		SimulatorArtifact:    artifactID(d.Simulator),
		SimulatorGitArtifact: artifactID(d.SimulatorSource),
		RunScriptGitArtifact: artifactID(d.Experiments),
		LinuxBinaryArtifact:  artifactID(d.Kernel),
		DiskImageArtifact:    artifactID(d.DiskImage),
		Params:               d.Params,
		Parameters:           d.Parameters,
		Command:              d.Command(),
		Timeout:              d.Timeout.Seconds(),
		Hash:                 d.Hash,
		Status:               StatusCreated,
	}
	if r := d.Result; r != nil {
		rec.Status = r.Status
		code := r.ExitCode
		rec.ReturnCode = &code
		rec.KillReason = r.KillReason
		rec.Error = r.Error
		if !r.StartedAt.IsZero() {
			rec.StartTime = &r.StartedAt
		}
		if !r.EndedAt.IsZero() {
			rec.EndTime = &r.EndedAt
		}
		rec.RunningTime = r.Duration.Seconds()
	}
	return json.Marshal(rec)
}

func artifactID(a *artifact.Artifact) string {
	if a == nil {
		return ""
	}
	return a.ID.String()
}
