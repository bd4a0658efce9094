// Package executor starts simulator processes on behalf of the scheduler.
package executor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"syscall"
	"time"

	"github.com/specialistvlad/bootsweep/internal/ctxlog"
)

// ExitCodeNotStarted is reported when the binary could not be started at
// all, mirroring the shell's "command not found" status.
const ExitCodeNotStarted = 127

// Log file names written into a command's output directory.
const (
	StdoutFile = "bootsweep.out"
	StderrFile = "bootsweep.err"
)

// ErrNotStarted wraps failures to launch the process.
var ErrNotStarted = errors.New("process could not be started")

// Command is one process invocation.
type Command struct {
	Path string
	Args []string
	// OutputDir receives the captured stdout and stderr. Empty discards both.
	OutputDir string
}

// ProcessRunner runs a command to completion. The returned error is non-nil
// only when the process could not be started or was killed because ctx ended;
// a non-zero exit status is reported through the exit code alone.
type ProcessRunner interface {
	Run(ctx context.Context, cmd Command) (exitCode int, err error)
}

// ExecRunner runs commands as child processes in their own process group so
// that killing a run also kills anything the simulator spawned.
type ExecRunner struct {
	// WaitDelay bounds how long Run waits for output pipes after a kill.
	WaitDelay time.Duration
}

// NewExecRunner returns an ExecRunner with default settings.
func NewExecRunner() *ExecRunner {
	return &ExecRunner{WaitDelay: 10 * time.Second}
}

// Run implements ProcessRunner.
func (r *ExecRunner) Run(ctx context.Context, c Command) (int, error) {
	logger := ctxlog.FromContext(ctx)

	stdout, stderr, closeLogs, err := openLogs(c.OutputDir)
	if err != nil {
		return ExitCodeNotStarted, fmt.Errorf("%w: %w", ErrNotStarted, err)
	}
	defer closeLogs()

	cmd := exec.CommandContext(ctx, c.Path, c.Args...)
	cmd.Stdout = stdout
	cmd.Stderr = stderr
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		// Negative pid signals the whole group.
		return syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
	}
	cmd.WaitDelay = r.WaitDelay

	if err := cmd.Start(); err != nil {
		return ExitCodeNotStarted, fmt.Errorf("%w: %s: %w", ErrNotStarted, c.Path, err)
	}
	logger.Debug("Process started.", "pid", cmd.Process.Pid, "path", c.Path)

	err = cmd.Wait()
	if ctxErr := ctx.Err(); ctxErr != nil {
		code := -1
		if cmd.ProcessState != nil {
			code = cmd.ProcessState.ExitCode()
		}
		return code, fmt.Errorf("process killed: %w", context.Cause(ctx))
	}
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return exitErr.ExitCode(), nil
		}
		return ExitCodeNotStarted, fmt.Errorf("%w: %w", ErrNotStarted, err)
	}
	return 0, nil
}

func openLogs(dir string) (stdout, stderr io.Writer, closeFn func(), err error) {
	if dir == "" {
		return io.Discard, io.Discard, func() {}, nil
	}
	out, err := os.Create(filepath.Join(dir, StdoutFile))
	if err != nil {
		return nil, nil, nil, err
	}
	errFile, err := os.Create(filepath.Join(dir, StderrFile))
	if err != nil {
		out.Close()
		return nil, nil, nil, err
	}
	return out, errFile, func() {
		out.Close()
		errFile.Close()
	}, nil
}
