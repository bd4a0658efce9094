package artifact

import (
	"fmt"
	"strings"
)

// Kind tags what sort of build product an artifact is.
type Kind string

const (
	Binary          Kind = "binary"
	GitRepo         Kind = "git-repo"
	DiskImage       Kind = "disk-image"
	SimulatorBinary Kind = "simulator-binary"
	KernelImage     Kind = "kernel-image"
)

// kindAliases maps the tags used by older gem5art launch scripts onto kinds.
var kindAliases = map[string]Kind{
	"binary":           Binary,
	"git-repo":         GitRepo,
	"git repo":         GitRepo,
	"disk-image":       DiskImage,
	"disk image":       DiskImage,
	"simulator-binary": SimulatorBinary,
	"gem5 binary":      SimulatorBinary,
	"kernel-image":     KernelImage,
	"kernel":           KernelImage,
}

// ParseKind accepts the canonical kind names and the legacy gem5art tags.
func ParseKind(s string) (Kind, error) {
	if k, ok := kindAliases[strings.ToLower(strings.TrimSpace(s))]; ok {
		return k, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownKind, s)
}

// Valid reports whether k is one of the canonical kinds.
func (k Kind) Valid() bool {
	switch k {
	case Binary, GitRepo, DiskImage, SimulatorBinary, KernelImage:
		return true
	}
	return false
}
