package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/growthlabs/dispatcher/config"
	"github.com/growthlabs/dispatcher/internal/adapters/dispatchrunner"
	"github.com/growthlabs/dispatcher/internal/adapters/fetcher"
	"github.com/growthlabs/dispatcher/internal/adapters/reaper"
	"github.com/growthlabs/dispatcher/internal/core"
	"github.com/growthlabs/dispatcher/internal/observability/statsd"
)

// DispatcherConfig contains configuration for the dispatch worker pool.
type DispatcherConfig struct {
	DB       *sql.DB
	Logger   *slog.Logger
	Worker   config.WorkerConfig
	Provider core.ScrapeProvider
	Metrics  statsd.Sink
}

// RunDispatcher starts the dispatch worker pool.
func RunDispatcher(ctx context.Context, cfg DispatcherConfig) error {
	runner, err := dispatchrunner.NewRunner(dispatchrunner.RunnerOptions{
		DB:           cfg.DB,
		Logger:       cfg.Logger,
		Lease:        cfg.Worker.JobLease,
		Concurrency:  cfg.Worker.Concurrency,
		PollInterval: cfg.Worker.PollInterval,
		Provider:     cfg.Provider,
		Metrics:      cfg.Metrics,
	})
	if err != nil {
		return fmt.Errorf("create dispatch runner: %w", err)
	}

	return runner.Run(ctx)
}

// RunFetcher starts the snapshot fetcher loop on an already-wired runner.
func RunFetcher(ctx context.Context, runner *fetcher.Runner) error {
	if runner == nil {
		return errors.New("fetcher runner is not configured")
	}
	return runner.Run(ctx)
}

// ReaperConfig contains configuration for the reaper.
type ReaperConfig struct {
	DB      *sql.DB
	Logger  *slog.Logger
	Config  config.ReaperConfig
	Metrics statsd.Sink
}

// RunReaper starts the reaper service.
func RunReaper(ctx context.Context, cfg ReaperConfig) error {
	runner, err := reaper.NewRunner(reaper.RunnerOptions{
		DB:      cfg.DB,
		Config:  cfg.Config,
		Logger:  cfg.Logger,
		Metrics: cfg.Metrics,
	})
	if err != nil {
		return fmt.Errorf("create reaper runner: %w", err)
	}

	return runner.Run(ctx)
}
