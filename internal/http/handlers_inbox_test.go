package httpx

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/growthlabs/dispatcher/internal/data"
	"github.com/growthlabs/dispatcher/internal/domain/model"
	"github.com/growthlabs/dispatcher/internal/mocks"
	"github.com/growthlabs/dispatcher/internal/service"
)

type inboxHandlerDeps struct {
	syncRuns *mocks.MockSyncRunRepository
	jobs     *mocks.MockJobRepository
	results  *mocks.MockResultRepository
}

func newInboxHandlersWithMocks(
	t *testing.T,
	defaultLimit int,
) (*InboxHandlers, *inboxHandlerDeps, *gomock.Controller) {
	t.Helper()
	ctrl := gomock.NewController(t)
	deps := &inboxHandlerDeps{
		syncRuns: mocks.NewMockSyncRunRepository(ctrl),
		jobs:     mocks.NewMockJobRepository(ctrl),
		results:  mocks.NewMockResultRepository(ctrl),
	}
	svc := service.MustNewInboxService(service.InboxServiceOptions{
		SyncRuns:     deps.syncRuns,
		Jobs:         deps.jobs,
		Results:      deps.results,
		TimeProvider: data.NewFixedTimeProvider(time.Date(2025, 8, 28, 12, 0, 0, 0, time.UTC)),
	})
	return &InboxHandlers{Svc: svc, DefaultLimit: defaultLimit}, deps, ctrl
}

func TestGetInbox_Success(t *testing.T) {
	h, deps, ctrl := newInboxHandlersWithMocks(t, 50)
	defer ctrl.Finish()

	runID := "run-1"
	deps.syncRuns.EXPECT().
		ListRecent(gomock.Any(), 50).
		Return([]*model.SyncRun{{ID: runID, Window: "7d", Mode: "replace", Inserted: 3}}, nil)
	deps.jobs.EXPECT().
		ListByRunIDs(gomock.Any(), []string{runID}).
		Return([]*model.Job{{ID: "job-1", RunID: &runID, Type: model.JobTypeScrapeTrigger, Status: model.JobStatusSuccess}}, nil)
	deps.results.EXPECT().
		ListByJobIDs(gomock.Any(), []string{"job-1"}).
		Return([]*model.Result{{ID: "res-1", JobID: "job-1", SourceClass: model.SourceReddit, Sentiment: model.SentimentNegative}}, nil)
	deps.results.EXPECT().
		SummarizeSince(gomock.Any(), time.Date(2025, 8, 27, 12, 0, 0, 0, time.UTC)).
		Return(&model.SentimentSummary{Positive: 4, Negative: 2, Neutral: 9}, nil)

	r := httptest.NewRequest(http.MethodGet, "/inbox", nil)
	w := httptest.NewRecorder()

	h.Get(w, r)

	resp := w.Result()
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var got model.InboxResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	require.Len(t, got.Runs, 1)
	assert.Equal(t, runID, got.Runs[0].ID)
	require.Len(t, got.Runs[0].Jobs, 1)
	assert.Equal(t, "job-1", got.Runs[0].Jobs[0].ID)
	require.Len(t, got.Runs[0].Jobs[0].Results, 1)
	assert.Equal(t, model.SentimentNegative, got.Runs[0].Jobs[0].Results[0].Sentiment)
	assert.Equal(t, model.SentimentSummary{Positive: 4, Negative: 2, Neutral: 9}, got.Summary)
}

func TestGetInbox_LimitQueryParam(t *testing.T) {
	h, deps, ctrl := newInboxHandlersWithMocks(t, 50)
	defer ctrl.Finish()

	deps.syncRuns.EXPECT().ListRecent(gomock.Any(), 5).Return([]*model.SyncRun{}, nil)
	deps.results.EXPECT().
		SummarizeSince(gomock.Any(), gomock.Any()).
		Return(&model.SentimentSummary{}, nil)

	r := httptest.NewRequest(http.MethodGet, "/inbox?limit=5", nil)
	w := httptest.NewRecorder()

	h.Get(w, r)

	resp := w.Result()
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var got model.InboxResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	assert.Empty(t, got.Runs)
	assert.NotNil(t, got.Runs)
}

func TestGetInbox_ServiceError(t *testing.T) {
	h, deps, ctrl := newInboxHandlersWithMocks(t, 50)
	defer ctrl.Finish()

	deps.syncRuns.EXPECT().ListRecent(gomock.Any(), 50).Return(nil, assert.AnError)

	r := httptest.NewRequest(http.MethodGet, "/inbox", nil)
	w := httptest.NewRecorder()

	h.Get(w, r)

	resp := w.Result()
	defer resp.Body.Close()
	require.Equal(t, http.StatusInternalServerError, resp.StatusCode)

	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "inbox_failed", body["error"])
}
