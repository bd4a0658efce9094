package run

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/specialistvlad/bootsweep/internal/ctxlog"
	"github.com/specialistvlad/bootsweep/internal/executor"
)

// InfoFile is written into the output directory after every run.
const InfoFile = "info.json"

// Execute runs the simulator through runner, bounded by the descriptor's
// timeout, and stores the outcome in d.Result. Failures are captured in the
// Result and never returned; the caller decides what to do with them.
func (d *Descriptor) Execute(ctx context.Context, runner executor.ProcessRunner) *Result {
	ctx, logger := ctxlog.With(ctx, "run", d.Name, "outdir", d.OutputDir)
	res := &Result{}
	d.Result = res

	if err := ctx.Err(); err != nil {
		res.KillReason = KillReasonCanceled
		res.fail(StatusCanceled, fmt.Errorf("%w before start: %w", ErrCanceled, err))
		return res
	}

	if err := os.MkdirAll(filepath.FromSlash(d.OutputDir), 0o755); err != nil {
		res.ExitCode = executor.ExitCodeNotStarted
		res.fail(StatusError, fmt.Errorf("%w: creating output dir: %w", ErrNotStarted, err))
		d.writeInfo(ctx)
		return res
	}

	runCtx, cancel := context.WithTimeoutCause(ctx, d.Timeout, ErrTimeout)
	defer cancel()

	argv := d.Command()
	res.StartedAt = time.Now().UTC()
	logger.Info("Run started.", "timeout", d.Timeout)
	code, err := runner.Run(runCtx, executor.Command{
		Path:      argv[0],
		Args:      argv[1:],
		OutputDir: filepath.FromSlash(d.OutputDir),
	})
	res.EndedAt = time.Now().UTC()
	res.Duration = res.EndedAt.Sub(res.StartedAt)
	res.ExitCode = code

	switch {
	case runCtx.Err() != nil && ctx.Err() != nil:
		res.KillReason = KillReasonCanceled
		res.fail(StatusCanceled, fmt.Errorf("%w: %w", ErrCanceled, ctx.Err()))
	case errors.Is(context.Cause(runCtx), ErrTimeout):
		res.KillReason = KillReasonTimeout
		res.fail(StatusTimeout, fmt.Errorf("%w after %s", ErrTimeout, d.Timeout))
	case err != nil:
		// Launch failures are not simulator failures; keep them apart.
		res.fail(StatusError, fmt.Errorf("%w: %w", ErrNotStarted, err))
	case code != 0:
		res.fail(StatusFailed, fmt.Errorf("%w: exit status %d", ErrExecutionFailure, code))
	default:
		res.Status = StatusFinished
	}

	logger.Info("Run completed.", "status", res.Status, "exit_code", res.ExitCode, "duration", res.Duration)
	d.writeInfo(ctx)
	return res
}

func (d *Descriptor) writeInfo(ctx context.Context) {
	logger := ctxlog.FromContext(ctx)
	data, err := d.DumpsJSON()
	if err != nil {
		logger.Error("Failed to encode run record.", "error", err)
		return
	}
	path := filepath.Join(filepath.FromSlash(d.OutputDir), InfoFile)
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		logger.Warn("Failed to write run info.", "path", path, "error", err)
	}
}
