package testutil

import (
	"context"
	"sync"
	"time"

	"github.com/specialistvlad/bootsweep/internal/executor"
)

// FakeRunner is a scripted executor.ProcessRunner for tests. It records the
// execution window of every command and the peak number of commands that
// ran at the same time.
type FakeRunner struct {
	// Sleep is how long each command "runs" unless ctx ends first.
	Sleep time.Duration
	// ExitCode decides the exit status per command. Nil means 0.
	ExitCode func(cmd executor.Command) int
	// Started, if set, receives the output dir of every command as it starts.
	Started chan<- string

	mu             sync.Mutex
	ExecutionTimes map[string]*ExecutionRecord
	running        int
	peak           int
	calls          int
}

// NewFakeRunner returns a runner whose commands sleep for d and exit 0.
func NewFakeRunner(d time.Duration) *FakeRunner {
	return &FakeRunner{Sleep: d, ExecutionTimes: make(map[string]*ExecutionRecord)}
}

// Run implements executor.ProcessRunner.
func (f *FakeRunner) Run(ctx context.Context, cmd executor.Command) (int, error) {
	f.mu.Lock()
	f.calls++
	f.running++
	if f.running > f.peak {
		f.peak = f.running
	}
	start := time.Now()
	f.mu.Unlock()

	if f.Started != nil {
		f.Started <- cmd.OutputDir
	}

	var err error
	timer := time.NewTimer(f.Sleep)
	select {
	case <-timer.C:
	case <-ctx.Done():
		timer.Stop()
		err = context.Cause(ctx)
	}

	f.mu.Lock()
	f.running--
	if f.ExecutionTimes == nil {
		f.ExecutionTimes = make(map[string]*ExecutionRecord)
	}
	f.ExecutionTimes[cmd.OutputDir] = &ExecutionRecord{Start: start, End: time.Now()}
	f.mu.Unlock()

	if err != nil {
		return -1, err
	}
	if f.ExitCode != nil {
		return f.ExitCode(cmd), nil
	}
	return 0, nil
}

// Peak returns the highest number of commands observed running at once.
func (f *FakeRunner) Peak() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.peak
}

// Calls returns how many commands were run.
func (f *FakeRunner) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}
