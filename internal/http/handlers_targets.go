package httpx

import (
	"net/http"

	"github.com/growthlabs/dispatcher/internal/domain/model"
	"github.com/growthlabs/dispatcher/internal/service"
)

// TargetHandlers provides HTTP handlers for cohort synchronization.
type TargetHandlers struct {
	Svc *service.TargetService
}

// syncResponse is the wire shape both sync endpoints return.
type syncResponse struct {
	OK       bool   `json:"ok"`
	RunID    string `json:"run_id"`
	JobID    string `json:"job_id,omitempty"`
	Inserted int    `json:"inserted"`
	Removed  int    `json:"removed"`
}

// Sync handles POST /targets/sync: an explicit insert/remove delta.
func (h *TargetHandlers) Sync(w http.ResponseWriter, r *http.Request) {
	var req model.SyncTargetsRequest
	if !DecodeJSON(w, r, &req) {
		return
	}

	outcome, err := h.Svc.SyncTargets(r.Context(), &req)
	if err != nil {
		WriteError(w, ErrorParams{Code: http.StatusBadRequest, ErrCode: "sync_failed", Err: err})
		return
	}
	writeSyncOutcome(w, outcome)
}

// BulkSync handles POST /targets/bulk_sync: full cohort replacement.
func (h *TargetHandlers) BulkSync(w http.ResponseWriter, r *http.Request) {
	var req model.BulkSyncRequest
	if !DecodeJSON(w, r, &req) {
		return
	}

	outcome, err := h.Svc.BulkSync(r.Context(), &req)
	if err != nil {
		WriteError(w, ErrorParams{Code: http.StatusBadRequest, ErrCode: "bulk_sync_failed", Err: err})
		return
	}
	writeSyncOutcome(w, outcome)
}

func writeSyncOutcome(w http.ResponseWriter, outcome *model.SyncOutcome) {
	WriteJSON(w, http.StatusOK, syncResponse{
		OK:       true,
		RunID:    outcome.RunID,
		JobID:    outcome.JobID,
		Inserted: outcome.Inserted,
		Removed:  outcome.Removed,
	})
}
