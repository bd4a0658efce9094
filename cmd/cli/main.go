package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/specialistvlad/bootsweep/internal/app"
	"github.com/specialistvlad/bootsweep/internal/cli"
	"github.com/specialistvlad/bootsweep/internal/hcl"
)

// main is the entrypoint for the bootsweep application.
func main() {
	// Use a minimal logger until the full one is configured.
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})))

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		slog.Warn("Failed to load .env file.", "error", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := run(ctx, os.Stdout, os.Stderr, os.Args[1:])
	stop()

	if err != nil {
		var exitErr *cli.ExitError
		if errors.As(err, &exitErr) {
			fmt.Fprintln(os.Stderr, exitErr.Message)
			os.Exit(exitErr.Code)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// run encapsulates the main application logic for easier testing and error handling.
// Run records go to outW, logs to logW.
func run(ctx context.Context, outW, logW io.Writer, args []string) error {
	appConfig, shouldExit, err := cli.Parse(args, outW)
	if err != nil {
		return err
	}
	if shouldExit {
		return nil
	}

	loader := hcl.NewLoader()
	sweepApp, err := app.NewApp(ctx, outW, appConfig, loader, app.WithLogOutput(logW))
	if err != nil {
		return fmt.Errorf("startup failed: %w", err)
	}
	defer sweepApp.Close()

	return sweepApp.Run(ctx)
}
