// Command curvematch selects the ideal function that best fits each training
// series, classifies the test points against the selected functions and
// writes the mapping to the configured database and chart directory.
//
// All settings come from the environment (and an optional .env file); see
// internal/config for the variables.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/JonMunkholm/curvematch/internal/config"
	"github.com/JonMunkholm/curvematch/internal/core"
	"github.com/JonMunkholm/curvematch/internal/loader"
	"github.com/JonMunkholm/curvematch/internal/logging"
	"github.com/JonMunkholm/curvematch/internal/plot"
	"github.com/JonMunkholm/curvematch/internal/store"
	"github.com/JonMunkholm/curvematch/internal/web"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		slog.Error("curvematch failed", "error", err)
		fmt.Fprintln(os.Stderr, core.FormatUserError(err))
		stop()
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	// Overload lets .env win over the inherited environment.
	envErr := godotenv.Overload()

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)
	if envErr != nil {
		slog.Debug("no .env file found, using environment variables")
	}
	slog.Debug("configuration loaded", "config", cfg.String())

	core.PersistTimeout = cfg.Database.WriteTimeout

	db, err := store.Open(ctx, cfg.Database)
	if err != nil {
		return err
	}
	if db != nil {
		defer db.Close()
	}

	in, err := loader.LoadInputs(ctx, loader.Paths{
		Training: cfg.Data.TrainingCSV,
		Ideal:    cfg.Data.IdealCSV,
		Test:     cfg.Data.TestCSV,
	}, cfg.Match.TrainingSeries)
	if err != nil {
		return err
	}

	var persist core.Store
	if db != nil {
		persist = db
	}
	result, err := core.NewService(persist, cfg.Options()).Run(ctx, in.Training, in.Candidates, in.Points)
	if err != nil {
		return err
	}

	ctx = logging.WithRunID(ctx, result.Info.ID.String())
	log := logging.FromContext(ctx)

	plotOpts := plot.Options{Width: cfg.Chart.Width, Height: cfg.Chart.Height}
	if cfg.Chart.Enabled {
		paths, err := plot.WriteAll(cfg.Chart.OutputDir, result, plotOpts)
		if err != nil {
			return err
		}
		log.Info("charts written", "dir", cfg.Chart.OutputDir, "files", len(paths))
	}

	log.Info("run complete",
		"accepted", result.Stats.Accepted,
		"test_points", result.Stats.Total,
		"result_table", cfg.Database.ResultTable,
	)

	if !cfg.Server.Enabled {
		return nil
	}
	return serve(ctx, web.NewServer(result, cfg.Server, plotOpts), cfg.Server)
}

// serve runs the report server until ctx is cancelled.
func serve(ctx context.Context, srv *web.Server, cfg config.ServerConfig) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("report server: %w", err)
	case <-ctx.Done():
	}

	slog.Info("shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
