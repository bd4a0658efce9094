package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRun_ShouldExit(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	args := []string{"-h"}
	out := &bytes.Buffer{}

	// --- Act ---
	err := run(context.Background(), out, &bytes.Buffer{}, args)

	// --- Assert ---
	require.NoError(t, err, "run() should return a nil error when shouldExit is true")
	require.Contains(t, out.String(), "Usage:", "Expected help text to be printed to the output buffer")
}

func TestRun_ParseError(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	args := []string{"--this-is-not-a-valid-flag"}
	out := &bytes.Buffer{}

	// --- Act ---
	err := run(context.Background(), out, &bytes.Buffer{}, args)

	// --- Assert ---
	require.Error(t, err, "run() should return an error when argument parsing fails")
	require.Contains(t, err.Error(), "flag provided but not defined: -this-is-not-a-valid-flag")
}

func TestRun_LoadError(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	invalidHCL := `
		artifact "gem5" {
			name = "gem5"
		// Missing closing brace here
	`
	filePath := filepath.Join(t.TempDir(), "main.hcl")
	require.NoError(t, os.WriteFile(filePath, []byte(invalidHCL), 0600))

	// --- Act ---
	err := run(context.Background(), &bytes.Buffer{}, &bytes.Buffer{}, []string{filePath})

	// --- Assert ---
	require.Error(t, err)
	assert.Contains(t, err.Error(), "startup failed")
}

func TestRun_DryRun(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	dir := t.TempDir()
	experiment := `
artifact "gem5" {
  name = "gem5"
  kind = "gem5 binary"
  path = "gem5/build/X86/gem5.opt"
}
artifact "disk" {
  name = "boot-disk"
  kind = "disk image"
  path = "disk-image/boot-exit"
}
kernel "vmlinux" {
  versions = ["5.2.3"]
  name     = "vmlinux-${version}"
  path     = "linux-stable/vmlinux-${version}"
}
sweep {
  boot_types = ["init", "systemd"]
  cpu_types  = ["atomic"]
  num_cpus   = [1, 2]
  mem_types  = ["classic"]
}
experiment {
  results_root   = "` + filepath.ToSlash(filepath.Join(dir, "results")) + `"
  config_script  = "configs-boot-tests/run_exit.py"
  kernel_root    = "linux-stable"
  simulator      = artifact.gem5
  simulator_mesi = artifact.gem5
  disk_image     = artifact.disk
}
`
	filePath := filepath.Join(dir, "boot.hcl")
	require.NoError(t, os.WriteFile(filePath, []byte(experiment), 0600))
	out := &bytes.Buffer{}

	// --- Act ---
	err := run(context.Background(), out, &bytes.Buffer{}, []string{"-dry-run", "-workers", "2", filePath})

	// --- Assert ---
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 4, "one record per sweep point")
	for _, line := range lines {
		var rec map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &rec))
		assert.Equal(t, "Created", rec["status"])
	}
}
