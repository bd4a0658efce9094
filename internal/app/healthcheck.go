package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/specialistvlad/bootsweep/internal/ctxlog"
	"github.com/specialistvlad/bootsweep/internal/metrics"
)

// healthHandler answers liveness probes.
func (app *App) healthHandler(w http.ResponseWriter, r *http.Request) {
	logger := ctxlog.FromContext(app.ctx)
	logger.Debug("Health check endpoint hit.", "remote_addr", r.RemoteAddr, "path", r.URL.Path)
	w.WriteHeader(http.StatusOK)
	fmt.Fprintln(w, "OK")
}

func (app *App) healthMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", app.healthHandler)
	mux.Handle("/metrics", metrics.Handler())
	return mux
}

// healthCheckServer starts the health and metrics server. It returns the
// bound address, or "" when the server is disabled.
func (app *App) healthCheckServer() (string, error) {
	logger := ctxlog.FromContext(app.ctx)
	logger.Debug("Configuring health check server.")
	if app.config.HealthcheckPort <= 0 {
		logger.Debug("Health check server not started: disabled")
		return "", nil
	}

	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", app.config.HealthcheckPort))
	if err != nil {
		return "", fmt.Errorf("health check server: %w", err)
	}
	app.httpServer = &http.Server{
		Handler:           app.healthMux(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	addr := ln.Addr().String()
	go func() {
		logger.Info("🩺 Health check server starting", "address", addr, "paths", []string{"/health", "/metrics"})
		// Serve returns ErrServerClosed on graceful shutdown.
		if err := app.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Health check server failed unexpectedly", "error", err)
		}
	}()
	return addr, nil
}

func (app *App) closeHealthCheckServer() error {
	logger := ctxlog.FromContext(app.ctx)
	if app.httpServer == nil {
		logger.Debug("Health check server was not running.")
		return nil
	}

	// The app context may already be canceled; shutdown gets its own budget.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(app.ctx), 5*time.Second)
	defer cancel()

	logger.Info("🩺 Shutting down health check server...")
	if err := app.httpServer.Shutdown(ctx); err != nil {
		logger.Error("Health check server shutdown failed", "error", err)
		return err
	}
	app.httpServer = nil
	logger.Debug("Health check server shut down gracefully.")
	return nil
}
