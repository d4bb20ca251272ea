package httpx

import (
	"net/http"

	"github.com/growthlabs/dispatcher/internal/service"
)

// InboxHandlers provides the HTTP handler for the inbox read model.
type InboxHandlers struct {
	Svc          *service.InboxService
	DefaultLimit int
}

// Get handles GET /inbox: recent sync runs with nested jobs and results plus
// the 24h sentiment rollup. The service clamps the limit.
func (h *InboxHandlers) Get(w http.ResponseWriter, r *http.Request) {
	limit := parseIntQuery(r, "limit", h.DefaultLimit)

	resp, err := h.Svc.GetInbox(r.Context(), limit)
	if err != nil {
		WriteError(w, ErrorParams{Code: http.StatusInternalServerError, ErrCode: "inbox_failed", Err: err})
		return
	}
	WriteJSON(w, http.StatusOK, resp)
}
