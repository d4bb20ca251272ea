package reaper

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/growthlabs/dispatcher/config"
	"github.com/growthlabs/dispatcher/internal/mocks"
)

func TestNewRunner_Validation(t *testing.T) {
	_, err := NewRunner(RunnerOptions{})
	require.Error(t, err, "needs a DB or an injected repository")
}

func TestNewRunner_AcceptsInjectedRepo(t *testing.T) {
	ctrl := gomock.NewController(t)
	repo := mocks.NewMockReaperRepository(ctrl)

	runner, err := NewRunner(RunnerOptions{
		Repo:   repo,
		Config: config.ReaperConfig{Interval: time.Minute, BatchSize: 100},
	})
	require.NoError(t, err)
	require.NotNil(t, runner)
}

func TestRunner_Run_TicksUntilCancelled(t *testing.T) {
	ctrl := gomock.NewController(t)
	repo := mocks.NewMockReaperRepository(ctrl)

	var once sync.Once
	firstPass := make(chan struct{})
	repo.EXPECT().
		RequeueExpired(gomock.Any()).
		DoAndReturn(func(context.Context) (int64, error) {
			once.Do(func() { close(firstPass) })
			return 0, nil
		}).
		MinTimes(1)
	repo.EXPECT().
		DeleteOldJobs(gomock.Any(), gomock.Any()).
		Return(int64(0), nil).
		AnyTimes()

	runner, err := NewRunner(RunnerOptions{
		Repo: repo,
		Config: config.ReaperConfig{
			Interval:      20 * time.Millisecond,
			SuccessMaxAge: time.Hour,
			ErrorMaxAge:   time.Hour,
			BatchSize:     100,
		},
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	runDone := make(chan error, 1)
	go func() { runDone <- runner.Run(ctx) }()

	select {
	case <-firstPass:
	case <-time.After(2 * time.Second):
		t.Fatal("cleanup pass never ran")
	}

	cancel()
	select {
	case err := <-runDone:
		require.NoError(t, err, "cancellation is a graceful stop")
	case <-time.After(2 * time.Second):
		t.Fatal("runner did not stop")
	}
}
