package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/growthlabs/dispatcher/config"
	"github.com/growthlabs/dispatcher/internal/core"
	"github.com/growthlabs/dispatcher/internal/domain/model"
	"github.com/growthlabs/dispatcher/internal/mocks"
)

func newTestReaperService(t *testing.T, repo core.ReaperRepository) *ReaperService {
	t.Helper()
	svc, err := NewReaperService(ReaperServiceOptions{
		Repo: repo,
		Config: config.ReaperConfig{
			Interval:      time.Minute,
			SuccessMaxAge: time.Hour,
			ErrorMaxAge:   2 * time.Hour,
			BatchSize:     100,
		},
	})
	require.NoError(t, err)
	return svc
}

func TestNewReaperService_RequiresRepo(t *testing.T) {
	_, err := NewReaperService(ReaperServiceOptions{})
	require.Error(t, err)
}

func TestReaperService_RunCleanup(t *testing.T) {
	ctrl := gomock.NewController(t)
	repo := mocks.NewMockReaperRepository(ctrl)
	svc := newTestReaperService(t, repo)

	repo.EXPECT().RequeueExpired(gomock.Any()).Return(int64(2), nil)
	repo.EXPECT().
		DeleteOldJobs(gomock.Any(), core.DeleteOldJobsParams{
			Status:    model.JobStatusSuccess,
			MaxAge:    time.Hour,
			BatchSize: 100,
		}).
		Return(int64(0), nil)
	repo.EXPECT().
		DeleteOldJobs(gomock.Any(), core.DeleteOldJobsParams{
			Status:    model.JobStatusError,
			MaxAge:    2 * time.Hour,
			BatchSize: 100,
		}).
		Return(int64(0), nil)

	require.NoError(t, svc.runCleanup(context.Background()))
}

func TestReaperService_DeleteLoopsUntilDrained(t *testing.T) {
	ctrl := gomock.NewController(t)
	repo := mocks.NewMockReaperRepository(ctrl)
	svc := newTestReaperService(t, repo)

	gomock.InOrder(
		repo.EXPECT().
			DeleteOldJobs(gomock.Any(), gomock.Any()).
			Return(int64(100), nil),
		repo.EXPECT().
			DeleteOldJobs(gomock.Any(), gomock.Any()).
			Return(int64(37), nil),
		repo.EXPECT().
			DeleteOldJobs(gomock.Any(), gomock.Any()).
			Return(int64(0), nil),
	)

	count, err := svc.deleteOldSuccessJobs(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(137), count)
}

func TestReaperService_RunCleanupAggregatesErrors(t *testing.T) {
	ctrl := gomock.NewController(t)
	repo := mocks.NewMockReaperRepository(ctrl)
	svc := newTestReaperService(t, repo)

	repo.EXPECT().RequeueExpired(gomock.Any()).Return(int64(0), errors.New("lock contention"))
	repo.EXPECT().DeleteOldJobs(gomock.Any(), gomock.Any()).Return(int64(0), nil).Times(2)

	err := svc.runCleanup(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "requeue expired jobs")
}

func TestReaperService_RunStopsOnCancel(t *testing.T) {
	ctrl := gomock.NewController(t)
	repo := mocks.NewMockReaperRepository(ctrl)
	svc := newTestReaperService(t, repo)

	repo.EXPECT().RequeueExpired(gomock.Any()).Return(int64(0), nil).AnyTimes()
	repo.EXPECT().DeleteOldJobs(gomock.Any(), gomock.Any()).Return(int64(0), nil).AnyTimes()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err, "graceful shutdown returns nil")
	case <-time.After(2 * time.Second):
		t.Fatal("reaper did not stop")
	}
}
