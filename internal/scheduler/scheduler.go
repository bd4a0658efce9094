package scheduler

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/specialistvlad/bootsweep/internal/ctxlog"
	"github.com/specialistvlad/bootsweep/internal/executor"
	"github.com/specialistvlad/bootsweep/internal/metrics"
	"github.com/specialistvlad/bootsweep/internal/run"
	"github.com/specialistvlad/bootsweep/internal/sink"
)

var (
	// ErrPoolConstruction is returned when the worker pool cannot be built.
	// No run has started when it is returned.
	ErrPoolConstruction = errors.New("cannot construct worker pool")
	// ErrDuplicateOutputDir is returned when two descriptors in a batch
	// share an output directory. No run has started when it is returned.
	ErrDuplicateOutputDir = errors.New("duplicate output directory in batch")
)

// DefaultWorkers is half the available CPUs, at least one.
func DefaultWorkers() int {
	return max(1, runtime.NumCPU()/2)
}

// Recorder receives the serialized record of each completed run.
type Recorder interface {
	Write(ctx context.Context, rec sink.Record) error
}

// Report is what one run produced. Reports are returned in submission order.
type Report struct {
	Descriptor *run.Descriptor
	// Result is nil in dry-run mode.
	Result *run.Result
	// Record is the JSON document that was sent to the recorder.
	Record []byte
}

// Scheduler runs batches of descriptors.
type Scheduler struct {
	runner   executor.ProcessRunner
	workers  int
	recorder Recorder
	dryRun   bool
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithRecorder sets where run records go. The default discards them.
func WithRecorder(r Recorder) Option {
	return func(s *Scheduler) { s.recorder = r }
}

// WithDryRun makes RunAll record every descriptor without executing it.
func WithDryRun(dryRun bool) Option {
	return func(s *Scheduler) { s.dryRun = dryRun }
}

// New builds a scheduler with maxWorkers workers. runner may be nil only in
// dry-run mode.
func New(runner executor.ProcessRunner, maxWorkers int, opts ...Option) (*Scheduler, error) {
	s := &Scheduler{runner: runner, workers: maxWorkers, recorder: sink.Discard{}}
	for _, opt := range opts {
		opt(s)
	}
	if s.workers < 1 {
		return nil, fmt.Errorf("%w: worker count must be at least 1, got %d", ErrPoolConstruction, s.workers)
	}
	if s.runner == nil && !s.dryRun {
		return nil, fmt.Errorf("%w: no process runner", ErrPoolConstruction)
	}
	if s.recorder == nil {
		s.recorder = sink.Discard{}
	}
	return s, nil
}

// RunAll is a convenience wrapper around New and Scheduler.RunAll.
func RunAll(ctx context.Context, descs []*run.Descriptor, maxWorkers int, runner executor.ProcessRunner, opts ...Option) ([]Report, error) {
	s, err := New(runner, maxWorkers, opts...)
	if err != nil {
		return nil, err
	}
	return s.RunAll(ctx, descs)
}

type job struct {
	index int
	desc  *run.Descriptor
}

// RunAll executes every descriptor and blocks until all have reported. The
// error is non-nil only if the batch could not start; individual run
// failures are in the reports. If ctx is canceled, queued runs are reported
// as canceled without starting and running processes are killed.
func (s *Scheduler) RunAll(ctx context.Context, descs []*run.Descriptor) ([]Report, error) {
	logger := ctxlog.FromContext(ctx)

	if err := validateBatch(descs); err != nil {
		return nil, err
	}
	reports := make([]Report, len(descs))
	if len(descs) == 0 {
		return reports, nil
	}

	queue := make(chan job, len(descs))
	for i, d := range descs {
		queue <- job{index: i, desc: d}
	}
	close(queue)
	if !s.dryRun {
		metrics.RunsQueued(len(descs))
	}

	workers := min(s.workers, len(descs))
	var wg sync.WaitGroup
	wg.Add(len(descs))

	logger.Info("Starting worker pool.", "workers", workers, "runs", len(descs), "dry_run", s.dryRun)
	for i := 0; i < workers; i++ {
		go s.worker(ctx, queue, reports, &wg, i)
	}

	logger.Info("Waiting for all runs to report...")
	wg.Wait()
	logger.Info("All runs reported.", "runs", len(descs))
	return reports, nil
}

// worker drains the queue. Each report slot is written by exactly one
// worker.
func (s *Scheduler) worker(ctx context.Context, queue <-chan job, reports []Report, wg *sync.WaitGroup, workerID int) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Worker started.", "workerID", workerID)

	for j := range queue {
		jobCtx, workerLogger := ctxlog.With(ctx, "workerID", workerID, "outdir", j.desc.OutputDir)
		report := Report{Descriptor: j.desc}

		if s.dryRun {
			workerLogger.Debug("Dry run, recording descriptor only.")
		} else {
			started := ctx.Err() == nil
			if started {
				metrics.RunStarted()
			} else {
				workerLogger.Warn("Context canceled, skipping run.")
			}
			begin := time.Now()
			report.Result = j.desc.Execute(jobCtx, s.runner)
			metrics.RunFinished(string(report.Result.Status), time.Since(begin), started)
			if err := report.Result.Err(); err != nil {
				workerLogger.Warn("Run did not finish cleanly.", "status", report.Result.Status, "error", err)
			}
		}

		report.Record = s.record(jobCtx, j.desc)
		reports[j.index] = report
		wg.Done()
	}
	logger.Debug("Worker finished.", "workerID", workerID)
}

// record serializes the run and forwards it. Recorder failures are logged;
// they never change the outcome of the run.
func (s *Scheduler) record(ctx context.Context, d *run.Descriptor) []byte {
	logger := ctxlog.FromContext(ctx)
	payload, err := d.DumpsJSON()
	if err != nil {
		logger.Error("Failed to encode run record.", "error", err)
		return nil
	}
	if err := s.recorder.Write(ctx, sink.Record{Kind: sink.KindRun, Key: d.ID.String(), Payload: payload}); err != nil {
		logger.Error("Failed to record run.", "error", err)
	}
	return payload
}

func validateBatch(descs []*run.Descriptor) error {
	seen := make(map[string]int, len(descs))
	for i, d := range descs {
		if d == nil {
			return fmt.Errorf("%w: descriptor %d is nil", ErrPoolConstruction, i)
		}
		if prev, dup := seen[d.OutputDir]; dup {
			return fmt.Errorf("%w: %s (descriptors %d and %d)", ErrDuplicateOutputDir, d.OutputDir, prev, i)
		}
		seen[d.OutputDir] = i
	}
	return nil
}

// Summary counts reports by status. Dry-run reports count as Created.
func Summary(reports []Report) map[run.Status]int {
	out := make(map[run.Status]int)
	for _, r := range reports {
		if r.Result == nil {
			out[run.StatusCreated]++
			continue
		}
		out[r.Result.Status]++
	}
	return out
}
