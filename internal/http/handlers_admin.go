package httpx

import (
	"context"
	"net/http"
)

// SnapshotFetcher runs one snapshot retrieval pass on demand.
type SnapshotFetcher interface {
	RunOnce(ctx context.Context) (int, error)
}

// AdminHandlers provides secret-gated operational endpoints.
type AdminHandlers struct {
	Fetcher SnapshotFetcher
}

// FetchSnapshots handles POST /admin/fetch-snapshots: trigger one fetch pass
// immediately instead of waiting for the background tick.
func (h *AdminHandlers) FetchSnapshots(w http.ResponseWriter, r *http.Request) {
	if h.Fetcher == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	fetched, err := h.Fetcher.RunOnce(r.Context())
	if err != nil {
		WriteError(w, ErrorParams{Code: http.StatusInternalServerError, ErrCode: "fetch_failed", Err: err})
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"ok": true, "fetched": fetched})
}
