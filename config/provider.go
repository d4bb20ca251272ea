package config

import (
	"strings"
	"time"
)

// BrightDataConfig contains the scrape provider configuration.
type BrightDataConfig struct {
	// APIToken authenticates against the provider API. Required whenever
	// the dispatcher or fetcher service runs.
	APIToken string `env:"TOKEN"`

	// DatasetID is the SERP dataset used for cohort scrape jobs. A sync with
	// this unset still records the job, but directly in error status.
	DatasetID string `env:"DATASET_SEARCH"`

	// BaseURL is the dataset API root.
	BaseURL string `env:"BASE_URL" envDefault:"https://api.brightdata.com/datasets/v3"`

	// Timeout bounds a single provider HTTP attempt.
	Timeout time.Duration `env:"TIMEOUT" envDefault:"120s"`

	// MaxAttempts is the number of trigger attempts before a job goes to
	// terminal error.
	MaxAttempts int `env:"MAX_ATTEMPTS" envDefault:"3"`
}

// Sanitize applies guardrails to provider configuration values.
func (b *BrightDataConfig) Sanitize() {
	b.BaseURL = strings.TrimRight(strings.TrimSpace(b.BaseURL), "/")
	if b.Timeout <= 0 {
		b.Timeout = 120 * time.Second
	}
	if b.MaxAttempts < 1 {
		b.MaxAttempts = 1
	}
	if b.MaxAttempts > 10 {
		b.MaxAttempts = 10
	}
}
