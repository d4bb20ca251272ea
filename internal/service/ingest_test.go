package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/growthlabs/dispatcher/internal/core"
	"github.com/growthlabs/dispatcher/internal/data"
	"github.com/growthlabs/dispatcher/internal/domain/model"
	apperrors "github.com/growthlabs/dispatcher/internal/errors"
	"github.com/growthlabs/dispatcher/internal/mocks"
)

type ingestTestDeps struct {
	results *mocks.MockResultRepository
	jobs    *mocks.MockJobRepository
}

func newTestIngestService(t *testing.T, dedupe bool) (*IngestService, ingestTestDeps) {
	t.Helper()
	ctrl := gomock.NewController(t)
	deps := ingestTestDeps{
		results: mocks.NewMockResultRepository(ctrl),
		jobs:    mocks.NewMockJobRepository(ctrl),
	}

	svc, err := NewIngestService(IngestServiceOptions{
		Results:     deps.results,
		Jobs:        deps.jobs,
		DedupeByURL: dedupe,
	})
	require.NoError(t, err)
	return svc, deps
}

func TestNewIngestService_RequiresResults(t *testing.T) {
	_, err := NewIngestService(IngestServiceOptions{})
	require.Error(t, err)
}

func TestIngestSnapshot_NormalizesAndStores(t *testing.T) {
	svc, deps := newTestIngestService(t, true)

	records := []json.RawMessage{
		json.RawMessage(`{"title":"Devpost review","snippet":"great and helpful","url":"https://reddit.com/r/x"}`),
		json.RawMessage(`{"title":"","snippet":""}`),
	}

	deps.results.EXPECT().
		InsertBatch(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, params core.InsertResultsParams) (int, error) {
			assert.Equal(t, "job-1", params.JobID)
			assert.Equal(t, "snap-1", params.SnapshotID)
			assert.True(t, params.DedupeByURL)
			require.Len(t, params.Results, 1, "empty records are skipped")
			assert.Equal(t, model.SourceReddit, params.Results[0].SourceClass)
			return 1, nil
		})

	written, err := svc.IngestSnapshot(context.Background(), "job-1", "snap-1", records)
	require.NoError(t, err)
	assert.Equal(t, 1, written)
}

func TestIngestSnapshot_NoUsableRecordsSkipsInsert(t *testing.T) {
	svc, _ := newTestIngestService(t, true)

	records := []json.RawMessage{
		json.RawMessage(`{"title":"","snippet":""}`),
		json.RawMessage(`not json`),
	}

	written, err := svc.IngestSnapshot(context.Background(), "job-1", "snap-1", records)
	require.NoError(t, err)
	assert.Zero(t, written)
}

func TestIngestSnapshot_InsertErrorSurfaces(t *testing.T) {
	svc, deps := newTestIngestService(t, false)

	deps.results.EXPECT().
		InsertBatch(gomock.Any(), gomock.Any()).
		Return(0, errors.New("deadlock detected"))

	_, err := svc.IngestSnapshot(context.Background(), "job-1", "snap-1", []json.RawMessage{
		json.RawMessage(`{"title":"Devpost experience","text":"bad bug"}`),
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "insert results")
}

func TestIngestPushed_ResolvesJobAndMarksFetched(t *testing.T) {
	svc, deps := newTestIngestService(t, true)

	records := []json.RawMessage{
		json.RawMessage(`{"title":"Devpost review","snippet":"love it"}`),
	}

	deps.jobs.EXPECT().
		GetBySnapshotID(gomock.Any(), "snap-1").
		Return(&model.Job{ID: "job-1", Status: model.JobStatusSuccess}, nil)
	deps.results.EXPECT().InsertBatch(gomock.Any(), gomock.Any()).Return(1, nil)
	deps.jobs.EXPECT().MarkFetched(gomock.Any(), "job-1").Return(true, nil)

	written, err := svc.IngestPushed(context.Background(), "snap-1", records)
	require.NoError(t, err)
	assert.Equal(t, 1, written)
}

func TestIngestPushed_UnknownSnapshotIsNotFound(t *testing.T) {
	svc, deps := newTestIngestService(t, true)

	deps.jobs.EXPECT().
		GetBySnapshotID(gomock.Any(), "snap-missing").
		Return(nil, data.ErrJobNotFound)
	// No inserts and no fetch marker for an unclaimed snapshot.

	_, err := svc.IngestPushed(context.Background(), "snap-missing", []json.RawMessage{
		json.RawMessage(`{"title":"x","snippet":"y"}`),
	})
	require.Error(t, err)
	assert.True(t, apperrors.IsNotFound(err))
}

func TestIngestPushed_RequiresSnapshotID(t *testing.T) {
	svc, _ := newTestIngestService(t, true)

	_, err := svc.IngestPushed(context.Background(), "", nil)
	require.Error(t, err)
	assert.True(t, apperrors.IsValidation(err))
}
