package app

import (
	"context"
	"fmt"

	"github.com/specialistvlad/bootsweep/internal/ctxlog"
	"github.com/specialistvlad/bootsweep/internal/run"
	"github.com/specialistvlad/bootsweep/internal/scheduler"
)

// Run builds one descriptor per selected sweep point and executes them all.
// It returns an error only if the batch could not be started; failed runs
// are reported, not returned.
func (a *App) Run(ctx context.Context) error {
	logger := a.logger
	ctx = ctxlog.WithLogger(ctx, logger)
	logger.Debug("App.Run method started.")

	if _, err := a.healthCheckServer(); err != nil {
		return err
	}
	defer a.closeHealthCheckServer()

	descs, err := a.factory.CreateAll(ctx, a.points)
	if err != nil {
		return fmt.Errorf("failed to create runs: %w", err)
	}
	if len(descs) == 0 {
		logger.Warn("No sweep points selected, execution not required.")
		return nil
	}

	workers := a.config.WorkerCount
	if workers == 0 {
		workers = scheduler.DefaultWorkers()
	}
	sched, err := scheduler.New(a.runner, workers,
		scheduler.WithRecorder(a.sink),
		scheduler.WithDryRun(a.config.DryRun),
	)
	if err != nil {
		return err
	}

	logger.Info("🚀 Starting boot test sweep...", "runs", len(descs), "workers", workers)
	reports, err := sched.RunAll(ctx, descs)
	if err != nil {
		return fmt.Errorf("execution failed: %w", err)
	}
	a.reports = reports

	summary := scheduler.Summary(reports)
	var args []any
	for _, status := range []run.Status{run.StatusFinished, run.StatusFailed, run.StatusTimeout, run.StatusError, run.StatusCanceled, run.StatusCreated} {
		if n := summary[status]; n > 0 {
			args = append(args, string(status), n)
		}
	}
	logger.Info("🏁 Sweep finished.", args...)
	if ctx.Err() != nil {
		logger.Warn("Sweep was interrupted; unfinished runs are reported as canceled.")
	}
	return nil
}
