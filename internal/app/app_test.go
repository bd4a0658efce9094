package app

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/specialistvlad/bootsweep/internal/executor"
	"github.com/specialistvlad/bootsweep/internal/hcl"
	"github.com/specialistvlad/bootsweep/internal/run"
	"github.com/specialistvlad/bootsweep/internal/sink"
	"github.com/specialistvlad/bootsweep/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type captureSink struct {
	mu      sync.Mutex
	records []sink.Record
	closed  bool
}

func (c *captureSink) Write(_ context.Context, rec sink.Record) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.records = append(c.records, rec)
	return nil
}

func (c *captureSink) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *captureSink) count(kind sink.Kind) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, r := range c.records {
		if r.Kind == kind {
			n++
		}
	}
	return n
}

const testArtifacts = `
artifact "gem5_repo" {
  name = "gem5"
  kind = "git repo"
  path = "gem5/"
}
artifact "gem5_binary" {
  name   = "gem5"
  kind   = "gem5 binary"
  path   = "gem5/build/X86/gem5.opt"
  inputs = [artifact.gem5_repo]
}
artifact "gem5_binary_mesi" {
  name   = "gem5"
  kind   = "gem5 binary"
  path   = "gem5/build/X86_MESI_Two_Level/gem5.opt"
  inputs = [artifact.gem5_repo]
}
artifact "disk_image" {
  name = "boot-disk"
  kind = "disk image"
  path = "disk-image/boot-exit/boot-exit-image/boot-exit"
}
kernel "vmlinux" {
  versions = ["5.2.3", "4.9.186"]
  name     = "vmlinux-${version}"
  path     = "linux-stable/vmlinux-${version}"
}
sweep {
  boot_types = ["init", "systemd"]
  cpu_types  = ["atomic", "o3"]
  num_cpus   = [1]
  mem_types  = ["classic", "MESI_Two_Level"]
}
`

// experimentFiles returns an experiment whose results land under root.
func experimentFiles(root string) map[string]string {
	return map[string]string{
		"artifacts.hcl": testArtifacts,
		"experiment.hcl": fmt.Sprintf(`
experiment {
  label            = "boot experiment"
  results_root     = %q
  config_script    = "configs-boot-tests/run_exit.py"
  kernel_root      = "linux-stable"
  timeout          = "1m"
  simulator        = artifact.gem5_binary
  simulator_mesi   = artifact.gem5_binary_mesi
  simulator_source = artifact.gem5_repo
  disk_image       = artifact.disk_image
}
`, filepath.ToSlash(root)),
	}
}

type harness struct {
	app    *App
	runner *testutil.FakeRunner
	sink   *captureSink
	out    *testutil.SafeBuffer
	logs   *testutil.SafeBuffer
}

func newHarness(t *testing.T, mutate func(cfg *Config)) *harness {
	t.Helper()
	dir := testutil.WriteFiles(t, experimentFiles(filepath.Join(t.TempDir(), "results")))
	cfg, err := NewConfig(Config{
		ExperimentPath: dir,
		LogLevel:       "debug",
		LogFormat:      "text",
		WorkerCount:    2,
	})
	require.NoError(t, err)
	if mutate != nil {
		mutate(cfg)
	}

	h := &harness{
		runner: testutil.NewFakeRunner(5 * time.Millisecond),
		sink:   &captureSink{},
		out:    &testutil.SafeBuffer{},
		logs:   &testutil.SafeBuffer{},
	}
	a, err := NewApp(context.Background(), h.out, cfg, hcl.NewLoader(),
		WithRunner(h.runner),
		WithSink(h.sink),
		WithLogOutput(h.logs),
	)
	require.NoError(t, err)
	t.Cleanup(func() { a.Close() })
	h.app = a

	if os.Getenv("BOOTSWEEP_TEST_LOGS") == "true" {
		t.Cleanup(func() { t.Logf("--- Full Log Output for %s ---\n%s", t.Name(), h.logs.String()) })
	}
	return h
}

func TestNewConfig(t *testing.T) {
	_, err := NewConfig(Config{})
	assert.Error(t, err)
	_, err = NewConfig(Config{ExperimentPath: "x", WorkerCount: -1})
	assert.Error(t, err)
	_, err = NewConfig(Config{ExperimentPath: "x", HealthcheckPort: 70000})
	assert.Error(t, err)

	cfg, err := NewConfig(Config{ExperimentPath: "x"})
	require.NoError(t, err)
	assert.Equal(t, "x", cfg.ExperimentPath)
}

func TestNewApp_RegistersArtifacts(t *testing.T) {
	h := newHarness(t, nil)

	// 4 artifacts plus two kernel images.
	assert.Equal(t, 6, h.app.Registry().Len())
	assert.Equal(t, 6, h.sink.count(sink.KindArtifact))
	assert.Len(t, h.app.Points(), 16)

	kernels := h.app.Registry().Lookup("vmlinux-4.9.186")
	require.Len(t, kernels, 1)
	assert.Equal(t, "linux-stable/vmlinux-4.9.186", kernels[0].Path)
}

func TestRun_ExecutesEverySelectedPoint(t *testing.T) {
	// --- Arrange ---
	resultsDir := t.TempDir()
	h := newHarness(t, func(cfg *Config) {
		cfg.ResultsDir = resultsDir
		cfg.PrintRecords = true
	})

	// --- Act ---
	err := h.app.Run(context.Background())

	// --- Assert ---
	require.NoError(t, err)
	reports := h.app.Reports()
	require.Len(t, reports, 16)
	for _, r := range reports {
		assert.Equal(t, run.StatusFinished, r.Result.Status)
		if r.Descriptor.Parameters.MemType == "MESI_Two_Level" {
			assert.Equal(t, "gem5/build/X86_MESI_Two_Level/gem5.opt", r.Descriptor.SimulatorPath)
		} else {
			assert.Equal(t, "gem5/build/X86/gem5.opt", r.Descriptor.SimulatorPath)
		}
	}
	assert.Equal(t, 16, h.runner.Calls())
	assert.LessOrEqual(t, h.runner.Peak(), 2)
	assert.Equal(t, 16, h.sink.count(sink.KindRun))

	// One JSON line per run on the output.
	lines := strings.Split(strings.TrimSpace(h.out.String()), "\n")
	assert.Len(t, lines, 16)

	data, err := os.ReadFile(filepath.Join(resultsDir, "runs.jsonl"))
	require.NoError(t, err)
	assert.Len(t, strings.Split(strings.TrimSpace(string(data)), "\n"), 16)
	_, err = os.Stat(filepath.Join(resultsDir, "artifacts.jsonl"))
	assert.NoError(t, err)

	assert.Contains(t, h.logs.String(), "Sweep finished.")
}

func TestRun_FailuresDoNotFailTheBatch(t *testing.T) {
	h := newHarness(t, nil)
	h.runner.ExitCode = func(cmd executor.Command) int {
		if strings.Contains(filepath.ToSlash(cmd.OutputDir), "/o3/") {
			return 1
		}
		return 0
	}

	require.NoError(t, h.app.Run(context.Background()))

	failed := 0
	for _, r := range h.app.Reports() {
		if r.Result.Status == run.StatusFailed {
			failed++
		}
	}
	assert.Equal(t, 8, failed)
}

func TestRun_OnlyFilter(t *testing.T) {
	h := newHarness(t, func(cfg *Config) {
		cfg.Only = []string{"kernel=5.2.3", "mem=MESI_Two_Level"}
	})

	require.NoError(t, h.app.Run(context.Background()))
	assert.Len(t, h.app.Reports(), 4)
	for _, r := range h.app.Reports() {
		assert.Equal(t, "5.2.3", r.Descriptor.Parameters.KernelVersion)
	}
}

func TestRun_DryRun(t *testing.T) {
	h := newHarness(t, func(cfg *Config) { cfg.DryRun = true })

	require.NoError(t, h.app.Run(context.Background()))
	assert.Zero(t, h.runner.Calls())
	assert.Len(t, h.app.Reports(), 16)
	assert.Equal(t, 16, h.sink.count(sink.KindRun))
}

func TestNewApp_Errors(t *testing.T) {
	tests := []struct {
		name    string
		files   map[string]string
		only    []string
		wantMsg string
	}{
		{
			name:    "syntax error",
			files:   map[string]string{"main.hcl": `artifact "a" {`},
			wantMsg: "failed to load experiment",
		},
		{
			name: "unknown artifact kind",
			files: func() map[string]string {
				f := experimentFiles(t.TempDir())
				f["extra.hcl"] = `artifact "tarball" {
  name = "t"
  kind = "tarball"
  path = "t.tgz"
}`
				return f
			}(),
			wantMsg: "unknown artifact kind",
		},
		{
			name:    "bad filter",
			files:   experimentFiles(t.TempDir()),
			only:    []string{"disk=x"},
			wantMsg: "invalid sweep filter",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := testutil.WriteFiles(t, tt.files)
			cfg := &Config{ExperimentPath: dir, Only: tt.only}

			_, err := NewApp(context.Background(), io.Discard, cfg, hcl.NewLoader())
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantMsg)
		})
	}
}

func TestHealthEndpoints(t *testing.T) {
	a := &App{ctx: context.Background(), config: &Config{}}
	srv := httptest.NewServer(a.healthMux())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "OK\n", string(body))

	resp, err = http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	body, _ = io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "bootsweep_runs_in_flight")
}

func TestHealthCheckServer_Disabled(t *testing.T) {
	a := &App{ctx: context.Background(), config: &Config{}}

	addr, err := a.healthCheckServer()
	require.NoError(t, err)
	assert.Empty(t, addr)
	assert.NoError(t, a.closeHealthCheckServer())
}
