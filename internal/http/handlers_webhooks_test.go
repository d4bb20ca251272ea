package httpx

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/growthlabs/dispatcher/internal/data"
	"github.com/growthlabs/dispatcher/internal/domain/model"
	"github.com/growthlabs/dispatcher/internal/mocks"
	"github.com/growthlabs/dispatcher/internal/service"
)

type webhookHandlerDeps struct {
	jobs    *mocks.MockJobRepository
	results *mocks.MockResultRepository
}

func newWebhookHandlersWithMocks(
	t *testing.T,
) (*WebhookHandlers, *webhookHandlerDeps, *gomock.Controller) {
	t.Helper()
	ctrl := gomock.NewController(t)
	deps := &webhookHandlerDeps{
		jobs:    mocks.NewMockJobRepository(ctrl),
		results: mocks.NewMockResultRepository(ctrl),
	}
	svc := service.MustNewIngestService(service.IngestServiceOptions{
		Results:     deps.results,
		Jobs:        deps.jobs,
		DedupeByURL: true,
	})
	return &WebhookHandlers{Ingest: svc}, deps, ctrl
}

func webhookRecord(url, title, text string) string {
	b, _ := json.Marshal(map[string]string{"url": url, "title": title, "snippet": text})
	return string(b)
}

func TestWebhookPush_Success(t *testing.T) {
	h, deps, ctrl := newWebhookHandlersWithMocks(t)
	defer ctrl.Finish()

	deps.jobs.EXPECT().
		GetBySnapshotID(gomock.Any(), "snap-1").
		Return(&model.Job{ID: "job-1", Status: model.JobStatusSuccess}, nil)
	deps.results.EXPECT().
		InsertBatch(gomock.Any(), gomock.Any()).
		Return(1, nil)
	deps.jobs.EXPECT().MarkFetched(gomock.Any(), "job-1").Return(true, nil)

	body := `{"snapshot_id":"snap-1","records":[` +
		webhookRecord("https://reddit.com/r/hackathons/1", "great prizes", "really enjoyed it") +
		`]}`
	r := httptest.NewRequest(http.MethodPost, "/webhooks/brightdata", bytes.NewBufferString(body))
	w := httptest.NewRecorder()

	h.Push(w, r)

	resp := w.Result()
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var got map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	assert.Equal(t, true, got["ok"])
	assert.Equal(t, float64(1), got["received"])
}

func TestWebhookPush_AcceptsIDAndDataSpellings(t *testing.T) {
	h, deps, ctrl := newWebhookHandlersWithMocks(t)
	defer ctrl.Finish()

	deps.jobs.EXPECT().
		GetBySnapshotID(gomock.Any(), "snap-alt").
		Return(&model.Job{ID: "job-2", Status: model.JobStatusSuccess}, nil)
	deps.results.EXPECT().
		InsertBatch(gomock.Any(), gomock.Any()).
		Return(1, nil)
	deps.jobs.EXPECT().MarkFetched(gomock.Any(), "job-2").Return(true, nil)

	body := `{"id":"snap-alt","data":[` +
		webhookRecord("https://devpost.com/software/x", "rules complaint", "disqualified unfairly") +
		`]}`
	r := httptest.NewRequest(http.MethodPost, "/webhooks/brightdata", bytes.NewBufferString(body))
	w := httptest.NewRecorder()

	h.Push(w, r)

	resp := w.Result()
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestWebhookPush_UnknownSnapshotReturns404(t *testing.T) {
	h, deps, ctrl := newWebhookHandlersWithMocks(t)
	defer ctrl.Finish()

	deps.jobs.EXPECT().
		GetBySnapshotID(gomock.Any(), "snap-unknown").
		Return(nil, data.ErrJobNotFound)

	body := `{"snapshot_id":"snap-unknown","records":[{"url":"https://example.com"}]}`
	r := httptest.NewRequest(http.MethodPost, "/webhooks/brightdata", bytes.NewBufferString(body))
	w := httptest.NewRecorder()

	h.Push(w, r)

	resp := w.Result()
	defer resp.Body.Close()
	require.Equal(t, http.StatusNotFound, resp.StatusCode)

	var got map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	assert.Equal(t, "not_found", got["error"])
}

func TestWebhookPush_MissingSnapshotID(t *testing.T) {
	h, _, ctrl := newWebhookHandlersWithMocks(t)
	defer ctrl.Finish()

	body := `{"records":[{"url":"https://example.com"}]}`
	r := httptest.NewRequest(http.MethodPost, "/webhooks/brightdata", bytes.NewBufferString(body))
	w := httptest.NewRecorder()

	h.Push(w, r)

	resp := w.Result()
	defer resp.Body.Close()
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	var got map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	assert.Equal(t, "validation_failed", got["error"])
}

func TestWebhookPush_InvalidJSON(t *testing.T) {
	h, _, ctrl := newWebhookHandlersWithMocks(t)
	defer ctrl.Finish()

	r := httptest.NewRequest(http.MethodPost, "/webhooks/brightdata", bytes.NewBufferString("{bad"))
	w := httptest.NewRecorder()

	h.Push(w, r)

	resp := w.Result()
	defer resp.Body.Close()
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestWebhookPush_ToleratesExtraProviderFields(t *testing.T) {
	h, deps, ctrl := newWebhookHandlersWithMocks(t)
	defer ctrl.Finish()

	deps.jobs.EXPECT().
		GetBySnapshotID(gomock.Any(), "snap-extra").
		Return(&model.Job{ID: "job-3", Status: model.JobStatusSuccess}, nil)
	deps.jobs.EXPECT().MarkFetched(gomock.Any(), "job-3").Return(true, nil)

	// No usable records means no insert, but the job is still marked fetched.
	body := `{"snapshot_id":"snap-extra","status":"ready","records":[]}`
	r := httptest.NewRequest(http.MethodPost, "/webhooks/brightdata", bytes.NewBufferString(body))
	w := httptest.NewRecorder()

	h.Push(w, r)

	resp := w.Result()
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var got map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	assert.Equal(t, float64(0), got["received"])
}
