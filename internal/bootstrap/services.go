package bootstrap

import (
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/growthlabs/dispatcher/config"
	"github.com/growthlabs/dispatcher/internal/adapters/brightdata"
	"github.com/growthlabs/dispatcher/internal/adapters/fetcher"
	"github.com/growthlabs/dispatcher/internal/core"
	"github.com/growthlabs/dispatcher/internal/data"
	"github.com/growthlabs/dispatcher/internal/domain/normalize"
	"github.com/growthlabs/dispatcher/internal/domain/sentiment"
	"github.com/growthlabs/dispatcher/internal/observability/statsd"
	"github.com/growthlabs/dispatcher/internal/service"
)

// ServiceContainer holds all application services.
type ServiceContainer struct {
	Jobs    *service.JobService
	Targets *service.TargetService
	Inbox   *service.InboxService
	Ingest  *service.IngestService

	// Provider is nil when no API token is configured; the HTTP service can
	// run without one, the dispatcher and fetcher cannot.
	Provider core.ScrapeProvider

	// Fetcher runs snapshot retrieval passes. Backs both the fetcher loop
	// and the on-demand admin endpoint. Nil without a provider.
	Fetcher *fetcher.Runner

	Observability ObservabilityContainer
}

// ObservabilityContainer groups shared observability dependencies.
type ObservabilityContainer struct {
	MetricsSink   *statsd.Client
	MetricsConfig config.ObservabilityMetricsConfig
}

// ServiceDeps groups dependencies for service initialization.
type ServiceDeps struct {
	Config      *config.AppConfig
	DB          *sql.DB
	RedisClient redis.UniversalClient
	Logger      *slog.Logger
}

// serviceRepositories groups data adapters backing service ports.
type serviceRepositories struct {
	DB          *sql.DB
	Redis       redis.UniversalClient
	JobRepo     *data.JobRepo
	TargetRepo  *data.TargetRepo
	SyncRunRepo *data.SyncRunRepo
	ResultRepo  *data.ResultRepo
	CacheRepo   *data.RedisCacheRepo
}

// buildObservability configures the metrics sink.
func buildObservability(logger *slog.Logger, cfg config.ObservabilityConfig) ObservabilityContainer {
	obsLogger := logger
	if obsLogger == nil {
		obsLogger = slog.Default()
	}

	var metricsSink *statsd.Client
	if cfg.Metrics.IsEnabled() {
		client, err := statsd.NewClient(statsd.Config{
			Enabled: true,
			Address: cfg.Metrics.StatsdAddress,
			Prefix:  "dispatcher",
			Logger:  obsLogger,
		})
		if err != nil {
			obsLogger.Error("failed to initialise statsd client", "error", err)
		} else {
			metricsSink = client
		}
	}

	return ObservabilityContainer{
		MetricsSink:   metricsSink,
		MetricsConfig: cfg.Metrics,
	}
}

// buildRepositories builds repositories backing service ports; no business rules here.
func buildRepositories(db *sql.DB, redisClient redis.UniversalClient, logger *slog.Logger) *serviceRepositories {
	repoCfg := data.RepoConfig{Logger: logger}
	repos := &serviceRepositories{
		DB:          db,
		Redis:       redisClient,
		JobRepo:     data.NewJobRepo(db, repoCfg),
		TargetRepo:  data.NewTargetRepo(db, repoCfg),
		SyncRunRepo: data.NewSyncRunRepo(db, repoCfg),
		ResultRepo:  data.NewResultRepo(db, repoCfg),
	}
	if redisClient != nil {
		repos.CacheRepo = data.NewRedisCacheRepo(redisClient)
	}
	return repos
}

// buildProvider constructs the scrape provider client when a token is
// configured. HTTP-only deployments may legitimately run without one.
func buildProvider(cfg config.BrightDataConfig) (core.ScrapeProvider, error) {
	if cfg.APIToken == "" {
		return nil, nil //nolint:nilnil // absence of a provider is a valid configuration
	}
	client, err := brightdata.NewClient(brightdata.Config{
		APIToken:    cfg.APIToken,
		BaseURL:     cfg.BaseURL,
		Timeout:     cfg.Timeout,
		MaxAttempts: cfg.MaxAttempts,
	})
	if err != nil {
		return nil, fmt.Errorf("create provider client: %w", err)
	}
	return client, nil
}

// NewServices wires repositories, the provider client, and domain services.
func NewServices(deps *ServiceDeps) (ServiceContainer, error) {
	if deps == nil || deps.Config == nil {
		return ServiceContainer{}, fmt.Errorf("service deps with config are required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	cfg := deps.Config

	observability := buildObservability(logger, cfg.Observability)
	repos := buildRepositories(deps.DB, deps.RedisClient, logger)

	provider, err := buildProvider(cfg.Provider)
	if err != nil {
		return ServiceContainer{}, err
	}

	jobs := service.MustNewJobService(service.JobServiceOptions{
		Repo:         repos.JobRepo,
		DefaultLease: cfg.Worker.JobLease,
		Logger:       logger,
	})

	targets := service.MustNewTargetService(service.TargetServiceOptions{
		DB:        repos.DB,
		Targets:   repos.TargetRepo,
		SyncRuns:  repos.SyncRunRepo,
		Jobs:      repos.JobRepo,
		DatasetID: cfg.Provider.DatasetID,
		Logger:    logger,
	})

	normalizer := normalize.NewNormalizer(normalize.NormalizerOptions{
		Analyzer: sentiment.NewAnalyzer(sentiment.AnalyzerOptions{
			Margin: cfg.Results.SentimentMargin,
		}),
	})
	ingest := service.MustNewIngestService(service.IngestServiceOptions{
		Results:     repos.ResultRepo,
		Normalizer:  normalizer,
		Jobs:        repos.JobRepo,
		DedupeByURL: cfg.Results.DedupeByURL,
		Logger:      logger,
	})

	inboxOpts := service.InboxServiceOptions{
		SyncRuns:   repos.SyncRunRepo,
		Jobs:       repos.JobRepo,
		Results:    repos.ResultRepo,
		SummaryTTL: cfg.Cache.SummaryTTL,
		Logger:     logger,
	}
	if repos.CacheRepo != nil {
		inboxOpts.Cache = repos.CacheRepo
	}
	inbox := service.MustNewInboxService(inboxOpts)

	container := ServiceContainer{
		Jobs:          jobs,
		Targets:       targets,
		Inbox:         inbox,
		Ingest:        ingest,
		Provider:      provider,
		Observability: observability,
	}

	if provider != nil {
		runner, runnerErr := fetcher.NewRunner(fetcher.RunnerOptions{
			DB:       deps.DB,
			Config:   cfg.Fetcher,
			Logger:   logger,
			Provider: provider,
			Ingest:   ingest,
			Metrics:  observability.MetricsSink,
		})
		if runnerErr != nil {
			return ServiceContainer{}, fmt.Errorf("create fetcher runner: %w", runnerErr)
		}
		container.Fetcher = runner
	}

	return container, nil
}
