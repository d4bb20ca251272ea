package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ServiceMode represents the available service modes.
type ServiceMode string

const (
	// ServiceModeHTTP runs the HTTP server.
	ServiceModeHTTP ServiceMode = "http"
	// ServiceModeDispatcher runs the dispatch worker.
	ServiceModeDispatcher ServiceMode = "dispatcher"
	// ServiceModeFetcher runs the snapshot fetcher loop.
	ServiceModeFetcher ServiceMode = "fetcher"
	// ServiceModeReaper runs the job reaper for cleanup.
	ServiceModeReaper ServiceMode = "reaper"
)

// ValidServiceModes returns all valid service mode names.
func ValidServiceModes() []ServiceMode {
	return []ServiceMode{
		ServiceModeHTTP,
		ServiceModeDispatcher,
		ServiceModeFetcher,
		ServiceModeReaper,
	}
}

// ParseServices parses a comma-delimited string of service names and returns the enabled services.
// It validates that all service names are valid and returns an error if any are invalid.
func ParseServices(servicesStr string) (map[ServiceMode]bool, error) {
	services := make(map[ServiceMode]bool)

	if servicesStr == "" {
		return services, errors.New("at least one service must be specified")
	}

	parts := strings.Split(servicesStr, ",")
	for _, part := range parts {
		serviceName := strings.TrimSpace(part)
		if serviceName == "" {
			continue
		}

		mode := ServiceMode(serviceName)
		switch mode {
		case ServiceModeHTTP, ServiceModeDispatcher, ServiceModeFetcher, ServiceModeReaper:
			services[mode] = true
		default:
			return nil, fmt.Errorf(
				"invalid service name: %q (valid options: http, dispatcher, fetcher, reaper)",
				serviceName,
			)
		}
	}

	if len(services) == 0 {
		return nil, errors.New("at least one valid service must be specified")
	}

	return services, nil
}

// WorkerConfig contains dispatch worker configuration.
type WorkerConfig struct {
	// Concurrency is the number of worker goroutines claiming jobs.
	Concurrency int `env:"WORKER_CONCURRENCY" envDefault:"5"`

	// PollInterval is the fallback tick when no job notification arrives.
	PollInterval time.Duration `env:"WORKER_POLL_INTERVAL" envDefault:"2s"`

	// JobLease is how long a claimed job stays leased before the reaper may
	// requeue it.
	JobLease time.Duration `env:"WORKER_JOB_LEASE" envDefault:"2m"`
}

// Sanitize applies guardrails to worker configuration values.
func (w *WorkerConfig) Sanitize() {
	if w.Concurrency < 1 {
		w.Concurrency = 1
	}
	if w.PollInterval < 100*time.Millisecond {
		w.PollInterval = 100 * time.Millisecond
	}
	if w.JobLease < 10*time.Second {
		w.JobLease = 10 * time.Second
	}
}

// FetcherConfig contains snapshot fetcher configuration.
type FetcherConfig struct {
	// Interval is the fetcher tick interval.
	Interval time.Duration `env:"FETCHER_INTERVAL" envDefault:"15s"`

	// BatchSize is the number of unfetched jobs examined per tick.
	BatchSize int `env:"FETCHER_BATCH_SIZE" envDefault:"10"`

	// Concurrency bounds in-flight snapshot downloads within a tick.
	Concurrency int `env:"FETCHER_CONCURRENCY" envDefault:"4"`
}

// Sanitize applies guardrails to fetcher configuration values.
func (f *FetcherConfig) Sanitize() {
	if f.Interval < time.Second {
		f.Interval = time.Second
	}
	if f.BatchSize < 1 {
		f.BatchSize = 1
	}
	if f.Concurrency < 1 {
		f.Concurrency = 1
	}
}

// ReaperConfig contains job reaper service configuration.
type ReaperConfig struct {
	// Interval is the reaper tick interval.
	Interval time.Duration `env:"REAPER_INTERVAL" envDefault:"5m"`

	// SuccessMaxAge is the maximum age for success jobs before deletion.
	SuccessMaxAge time.Duration `env:"REAPER_SUCCESS_MAX_AGE" envDefault:"168h"` // 7 days

	// ErrorMaxAge is the maximum age for error jobs before deletion.
	ErrorMaxAge time.Duration `env:"REAPER_ERROR_MAX_AGE" envDefault:"168h"` // 7 days

	// BatchSize is the maximum number of rows to process per operation.
	// Batching prevents long locks and I/O spikes on large tables.
	BatchSize int `env:"REAPER_BATCH_SIZE" envDefault:"1000"`
}

// Sanitize applies guardrails to reaper configuration values.
func (r *ReaperConfig) Sanitize() {
	if r.Interval < 1*time.Minute {
		r.Interval = 1 * time.Minute
	}
	if r.SuccessMaxAge < 1*time.Hour {
		r.SuccessMaxAge = 1 * time.Hour
	}
	if r.ErrorMaxAge < 1*time.Hour {
		r.ErrorMaxAge = 1 * time.Hour
	}
	if r.BatchSize < 1 {
		r.BatchSize = 1
	}
	if r.BatchSize > 10000 {
		r.BatchSize = 10000
	}
}

// ResultsConfig contains result normalization configuration.
type ResultsConfig struct {
	// DedupeByURL drops records whose (job, url) pair was already stored.
	DedupeByURL bool `env:"RESULTS_DEDUPE_BY_URL" envDefault:"true"`

	// SentimentMargin is the count difference required before a record
	// leaves neutral. The margin applies symmetrically to both polarities.
	SentimentMargin int `env:"RESULTS_SENTIMENT_MARGIN" envDefault:"1"`
}

// Sanitize applies guardrails to results configuration values.
func (r *ResultsConfig) Sanitize() {
	if r.SentimentMargin < 1 {
		r.SentimentMargin = 1
	}
}
