package httpx

import (
	"encoding/json"
	"net/http"

	apperrors "github.com/growthlabs/dispatcher/internal/errors"
	"github.com/growthlabs/dispatcher/internal/service"
)

// WebhookHandlers accepts asynchronous result pushes from the scrape provider.
type WebhookHandlers struct {
	Ingest *service.IngestService
}

// providerPushPayload tolerates both field spellings the provider uses.
type providerPushPayload struct {
	SnapshotID string            `json:"snapshot_id"`
	ID         string            `json:"id"`
	Records    []json.RawMessage `json:"records"`
	Data       []json.RawMessage `json:"data"`
}

func (p *providerPushPayload) snapshotID() string {
	if p.SnapshotID != "" {
		return p.SnapshotID
	}
	return p.ID
}

func (p *providerPushPayload) records() []json.RawMessage {
	if len(p.Records) > 0 {
		return p.Records
	}
	return p.Data
}

// Push handles POST /webhooks/brightdata. Records are keyed to their job via
// the snapshot id; an id no job claims yields 404 and no writes.
func (h *WebhookHandlers) Push(w http.ResponseWriter, r *http.Request) {
	var payload providerPushPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		WriteError(w, ErrorParams{Code: http.StatusBadRequest, ErrCode: "invalid_json", Err: err})
		return
	}

	snapshotID := payload.snapshotID()
	if snapshotID == "" {
		WriteAppError(w, apperrors.Validation("snapshot_id is required"))
		return
	}

	received, err := h.Ingest.IngestPushed(r.Context(), snapshotID, payload.records())
	if err != nil {
		WriteAppError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]any{"ok": true, "received": received})
}
