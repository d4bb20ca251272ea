// Package mocks provides mock implementations for testing the dispatcher job system.
//
// This package uses go.uber.org/mock (gomock) to generate type-safe mocks for our repository interfaces.
// The mocks are generated using go:generate directives and provide a fluent API for setting up test expectations.
//
// To regenerate mocks after interface changes, run:
//
//	go generate ./internal/mocks
//
// Usage in tests:
//
//	ctrl := gomock.NewController(t)
//	defer ctrl.Finish()
//	mockRepo := mocks.NewMockJobRepository(ctrl)
//	mockRepo.EXPECT().Create(gomock.Any(), gomock.Any()).Return(job, nil)
package mocks

// Generate mock for JobRepository interface from internal/core package.
//go:generate go run go.uber.org/mock/mockgen -package=mocks -destination=job_repository_mock.go github.com/growthlabs/dispatcher/internal/core JobRepository

// Generate mock for JobRepositoryTx interface from internal/core package.
//go:generate go run go.uber.org/mock/mockgen -package=mocks -destination=job_repository_tx_mock.go github.com/growthlabs/dispatcher/internal/core JobRepositoryTx

// Generate mock for TargetRepository interface from internal/core package.
//go:generate go run go.uber.org/mock/mockgen -package=mocks -destination=target_repository_mock.go github.com/growthlabs/dispatcher/internal/core TargetRepository

// Generate mock for SyncRunRepository interface from internal/core package.
//go:generate go run go.uber.org/mock/mockgen -package=mocks -destination=sync_run_repository_mock.go github.com/growthlabs/dispatcher/internal/core SyncRunRepository

// Generate mock for ResultRepository interface from internal/core package.
//go:generate go run go.uber.org/mock/mockgen -package=mocks -destination=result_repository_mock.go github.com/growthlabs/dispatcher/internal/core ResultRepository

// Generate mock for ScrapeProvider interface from internal/core package.
//go:generate go run go.uber.org/mock/mockgen -package=mocks -destination=scrape_provider_mock.go github.com/growthlabs/dispatcher/internal/core ScrapeProvider

// Generate mock for SummaryCache interface from internal/core package.
//go:generate go run go.uber.org/mock/mockgen -package=mocks -destination=summary_cache_mock.go github.com/growthlabs/dispatcher/internal/core SummaryCache

// Generate mock for ReaperRepository interface from internal/core package.
//go:generate go run go.uber.org/mock/mockgen -package=mocks -destination=reaper_repository_mock.go github.com/growthlabs/dispatcher/internal/core ReaperRepository
