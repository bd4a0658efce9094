package scheduler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/specialistvlad/bootsweep/internal/executor"
	"github.com/specialistvlad/bootsweep/internal/run"
	"github.com/specialistvlad/bootsweep/internal/sink"
	"github.com/specialistvlad/bootsweep/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type captureRecorder struct {
	mu      sync.Mutex
	records []sink.Record
	err     error
}

func (c *captureRecorder) Write(_ context.Context, rec sink.Record) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.records = append(c.records, rec)
	return c.err
}

func (c *captureRecorder) Records() []sink.Record {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]sink.Record(nil), c.records...)
}

// newBatch builds n descriptors with distinct output dirs under a temp root.
func newBatch(t *testing.T, n int, timeout time.Duration) []*run.Descriptor {
	t.Helper()
	root := filepath.ToSlash(t.TempDir())
	descs := make([]*run.Descriptor, 0, n)
	for i := 0; i < n; i++ {
		p := run.Parameters{
			KernelVersion: "5.2.3",
			BootType:      "init",
			CPUType:       "atomic",
			NumCPUs:       fmt.Sprint(i + 1),
			MemType:       "classic",
		}
		d, err := run.New(run.Spec{
			Name:          "boot experiment",
			SimulatorPath: "gem5/build/X86/gem5.opt",
			ConfigScript:  "configs-boot-tests/run_exit.py",
			OutputDir:     path.Join(root, "vmlinux-5.2.3/boot-exit/atomic/classic", p.NumCPUs, "init"),
			KernelPath:    "linux-stable/vmlinux-5.2.3",
			DiskImagePath: "disk-image/boot-exit/boot-exit-image/boot-exit",
			Parameters:    p,
			Timeout:       timeout,
		})
		require.NoError(t, err)
		descs = append(descs, d)
	}
	return descs
}

func TestDefaultWorkers(t *testing.T) {
	assert.GreaterOrEqual(t, DefaultWorkers(), 1)
}

func TestNew_PoolConstruction(t *testing.T) {
	runner := testutil.NewFakeRunner(0)

	_, err := New(runner, 0)
	assert.ErrorIs(t, err, ErrPoolConstruction)
	_, err = New(runner, -4)
	assert.ErrorIs(t, err, ErrPoolConstruction)
	_, err = New(nil, 2)
	assert.ErrorIs(t, err, ErrPoolConstruction)

	_, err = New(nil, 2, WithDryRun(true))
	assert.NoError(t, err, "dry run needs no runner")
}

func TestRunAll_RejectsBadBatches(t *testing.T) {
	ctx := context.Background()
	runner := testutil.NewFakeRunner(0)

	t.Run("duplicate output dirs", func(t *testing.T) {
		descs := newBatch(t, 3, time.Minute)
		descs[2].OutputDir = descs[0].OutputDir

		reports, err := RunAll(ctx, descs, 2, runner)
		assert.ErrorIs(t, err, ErrDuplicateOutputDir)
		assert.Nil(t, reports)
		assert.Zero(t, runner.Calls())
	})

	t.Run("nil descriptor", func(t *testing.T) {
		descs := append(newBatch(t, 1, time.Minute), nil)

		_, err := RunAll(ctx, descs, 2, runner)
		assert.ErrorIs(t, err, ErrPoolConstruction)
		assert.Zero(t, runner.Calls())
	})

	t.Run("empty batch", func(t *testing.T) {
		reports, err := RunAll(ctx, nil, 2, runner)
		require.NoError(t, err)
		assert.Empty(t, reports)
	})
}

func TestRunAll_EveryRunReportsOnce(t *testing.T) {
	// --- Arrange ---
	const n, workers = 12, 3
	descs := newBatch(t, n, time.Minute)
	runner := testutil.NewFakeRunner(30 * time.Millisecond)
	rec := &captureRecorder{}

	// --- Act ---
	reports, err := RunAll(context.Background(), descs, workers, runner, WithRecorder(rec))

	// --- Assert ---
	require.NoError(t, err)
	require.Len(t, reports, n)
	for i, r := range reports {
		assert.Same(t, descs[i], r.Descriptor, "reports must follow submission order")
		require.NotNil(t, r.Result)
		assert.Equal(t, run.StatusFinished, r.Result.Status)
		assert.NotEmpty(t, r.Record)
	}
	assert.Equal(t, n, runner.Calls())
	assert.LessOrEqual(t, runner.Peak(), workers)
	assert.Len(t, runner.ExecutionTimes, n)

	records := rec.Records()
	require.Len(t, records, n)
	keys := make(map[string]bool)
	for _, r := range records {
		assert.Equal(t, sink.KindRun, r.Kind)
		keys[r.Key] = true
	}
	assert.Len(t, keys, n, "no duplicate records")
}

func TestRunAll_RunsInParallel(t *testing.T) {
	descs := newBatch(t, 4, time.Minute)
	runner := testutil.NewFakeRunner(200 * time.Millisecond)

	start := time.Now()
	_, err := RunAll(context.Background(), descs, 4, runner)
	require.NoError(t, err)

	assert.Less(t, time.Since(start), 700*time.Millisecond)
	assert.Greater(t, runner.Peak(), 1)
}

func TestRunAll_FailuresAreIsolated(t *testing.T) {
	descs := newBatch(t, 6, time.Minute)
	failing := descs[2].OutputDir
	runner := testutil.NewFakeRunner(10 * time.Millisecond)
	runner.ExitCode = func(cmd executor.Command) int {
		if filepath.ToSlash(cmd.OutputDir) == failing {
			return 1
		}
		return 0
	}

	reports, err := RunAll(context.Background(), descs, 2, runner)
	require.NoError(t, err, "a failed run must not fail the batch")

	for i, r := range reports {
		if i == 2 {
			assert.Equal(t, run.StatusFailed, r.Result.Status)
			assert.ErrorIs(t, r.Result.Err(), run.ErrExecutionFailure)
			continue
		}
		assert.Equal(t, run.StatusFinished, r.Result.Status, "run %d", i)
	}
	assert.Equal(t, map[run.Status]int{run.StatusFinished: 5, run.StatusFailed: 1}, Summary(reports))
}

func TestRunAll_TimeoutIsIsolated(t *testing.T) {
	descs := newBatch(t, 3, time.Minute)
	descs[1].Timeout = 20 * time.Millisecond
	runner := testutil.NewFakeRunner(150 * time.Millisecond)

	reports, err := RunAll(context.Background(), descs, 3, runner)
	require.NoError(t, err)

	assert.Equal(t, run.StatusFinished, reports[0].Result.Status)
	assert.Equal(t, run.StatusTimeout, reports[1].Result.Status)
	assert.Equal(t, run.KillReasonTimeout, reports[1].Result.KillReason)
	assert.Equal(t, run.StatusFinished, reports[2].Result.Status)
}

func TestRunAll_Cancellation(t *testing.T) {
	descs := newBatch(t, 3, time.Hour)
	started := make(chan string, len(descs))
	runner := testutil.NewFakeRunner(time.Hour)
	runner.Started = started
	ctx, cancel := context.WithCancel(context.Background())

	go func() {
		<-started
		cancel()
	}()
	reports, err := RunAll(ctx, descs, 1, runner)
	require.NoError(t, err)

	require.Len(t, reports, 3)
	for _, r := range reports {
		assert.Equal(t, run.StatusCanceled, r.Result.Status)
	}
	assert.Equal(t, 1, runner.Calls(), "queued runs must not start after cancellation")
}

func TestRunAll_RecorderErrorsAreNotFatal(t *testing.T) {
	descs := newBatch(t, 2, time.Minute)
	rec := &captureRecorder{err: errors.New("collection server down")}
	logs := &testutil.SafeBuffer{}
	ctx := testutil.ContextWithLogger(context.Background(), logs)

	reports, err := RunAll(ctx, descs, 2, testutil.NewFakeRunner(0), WithRecorder(rec))
	require.NoError(t, err)

	for _, r := range reports {
		assert.Equal(t, run.StatusFinished, r.Result.Status)
	}
	assert.Contains(t, logs.String(), "Failed to record run.")
}

func TestRunAll_DryRun(t *testing.T) {
	descs := newBatch(t, 4, time.Minute)
	rec := &captureRecorder{}

	reports, err := RunAll(context.Background(), descs, 2, nil, WithDryRun(true), WithRecorder(rec))
	require.NoError(t, err)

	require.Len(t, reports, 4)
	for _, r := range reports {
		assert.Nil(t, r.Result)
		var decoded map[string]any
		require.NoError(t, json.Unmarshal(r.Record, &decoded))
		assert.Equal(t, "Created", decoded["status"])
		assert.True(t, strings.HasSuffix(decoded["outdir"].(string), "/init"))
	}
	assert.Len(t, rec.Records(), 4)
	assert.Equal(t, map[run.Status]int{run.StatusCreated: 4}, Summary(reports))
}
