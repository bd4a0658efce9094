package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/specialistvlad/bootsweep/internal/artifact"
	"github.com/specialistvlad/bootsweep/internal/config"
	"github.com/specialistvlad/bootsweep/internal/ctxlog"
	"github.com/specialistvlad/bootsweep/internal/executor"
	"github.com/specialistvlad/bootsweep/internal/experiment"
	"github.com/specialistvlad/bootsweep/internal/run"
	"github.com/specialistvlad/bootsweep/internal/scheduler"
	"github.com/specialistvlad/bootsweep/internal/sink"
)

// App encapsulates the application's dependencies, configuration, and lifecycle.
type App struct {
	outW   io.Writer
	logW   io.Writer
	ctx    context.Context
	logger *slog.Logger
	config *Config

	model    *config.Model
	registry *artifact.Registry
	factory  *experiment.Factory
	points   []run.Parameters
	sink     sink.Sink
	runner   executor.ProcessRunner
	reports  []scheduler.Report

	httpServer *http.Server
}

// Option customizes an App. Options exist mostly for tests.
type Option func(*App)

// WithRunner replaces the os/exec process runner.
func WithRunner(r executor.ProcessRunner) Option {
	return func(a *App) { a.runner = r }
}

// WithSink adds a sink next to the configured ones.
func WithSink(s sink.Sink) Option {
	return func(a *App) {
		if a.sink == nil {
			a.sink = s
			return
		}
		a.sink = sink.Multi{a.sink, s}
	}
}

// WithLogOutput sends logs somewhere other than outW.
func WithLogOutput(w io.Writer) Option {
	return func(a *App) { a.logW = w }
}

// NewApp is the constructor for the main application. It loads the
// experiment, opens the sinks and registers every artifact, so that any
// configuration problem surfaces before a single run is scheduled.
func NewApp(ctx context.Context, outW io.Writer, cfg *Config, loader config.Loader, opts ...Option) (*App, error) {
	a := &App{outW: outW, logW: outW, config: cfg, runner: executor.NewExecRunner()}
	for _, opt := range opts {
		opt(a)
	}
	// Injected sinks are attached after the configured ones are opened.
	injected := a.sink
	a.sink = nil

	a.logger = newLogger(cfg.LogLevel, cfg.LogFormat, a.logW)
	a.ctx = ctxlog.WithLogger(ctx, a.logger)
	a.logger.Debug("Logger configured successfully.")

	model, err := loader.Load(a.ctx, cfg.ExperimentPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load experiment: %w", err)
	}
	a.model = model
	a.logger.Debug("Experiment loaded.", "artifacts", len(model.Artifacts), "kernels", len(model.Kernels))

	configured, err := a.openSinks()
	if err != nil {
		return nil, err
	}
	a.sink = configured
	if injected != nil {
		a.sink = sink.Multi{configured, injected}
	}

	if err := a.materialize(); err != nil {
		a.sink.Close()
		return nil, err
	}
	return a, nil
}

// Registry returns the artifact registry. This is primarily for testing.
func (a *App) Registry() *artifact.Registry { return a.registry }

// Points returns the sweep points selected for this run.
func (a *App) Points() []run.Parameters { return a.points }

// Reports returns the reports of the last Run.
func (a *App) Reports() []scheduler.Report { return a.reports }

// Close releases the sinks.
func (a *App) Close() error {
	if a.sink == nil {
		return nil
	}
	return a.sink.Close()
}
