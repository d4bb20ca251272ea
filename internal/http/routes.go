package httpx

import (
	"log/slog"
	"net/http"

	"github.com/growthlabs/dispatcher/internal/service"
)

// RouterServices holds all the services needed by the HTTP router.
type RouterServices struct {
	Jobs    *service.JobService
	Targets *service.TargetService
	Inbox   *service.InboxService
	Ingest  *service.IngestService

	// Fetcher powers the on-demand snapshot fetch endpoint. Optional; the
	// endpoint answers 204 when the fetcher runs in another process.
	Fetcher SnapshotFetcher

	// Secret gates the mutating and inspection endpoints.
	Secret string

	// InboxDefaultLimit is used when the caller passes no ?limit=.
	InboxDefaultLimit int

	Logger *slog.Logger
}

// NewRouter creates and configures the dispatcher HTTP router.
func NewRouter(services RouterServices) http.Handler {
	mux := http.NewServeMux()

	guard := RequireSecret(services.Secret)

	targetHandlers := &TargetHandlers{Svc: services.Targets}
	mux.Handle("POST /targets/sync", guard(http.HandlerFunc(targetHandlers.Sync)))
	mux.Handle("POST /targets/bulk_sync", guard(http.HandlerFunc(targetHandlers.BulkSync)))

	jobHandlers := &JobHandlers{Svc: services.Jobs}
	mux.Handle("GET /jobs/stats", guard(http.HandlerFunc(jobHandlers.Stats)))
	mux.Handle("GET /jobs/{id}", guard(http.HandlerFunc(jobHandlers.GetByID)))
	mux.Handle("GET /jobs/{id}/status", guard(http.HandlerFunc(jobHandlers.GetStatus)))

	adminHandlers := &AdminHandlers{Fetcher: services.Fetcher}
	mux.Handle("POST /admin/fetch-snapshots", guard(http.HandlerFunc(adminHandlers.FetchSnapshots)))

	// The inbox and the provider webhook are intentionally unauthenticated;
	// exposure is controlled at the network layer.
	inboxHandlers := &InboxHandlers{Svc: services.Inbox, DefaultLimit: services.InboxDefaultLimit}
	mux.HandleFunc("GET /inbox", inboxHandlers.Get)

	webhookHandlers := &WebhookHandlers{Ingest: services.Ingest}
	mux.HandleFunc("POST /webhooks/brightdata", webhookHandlers.Push)

	mux.Handle("GET /healthz", http.HandlerFunc(healthHandler))
	mux.Handle("HEAD /healthz", http.HandlerFunc(healthHandler))

	logger := services.Logger
	if logger == nil {
		logger = slog.Default()
	}

	var handler http.Handler = mux
	handler = Logging(logger)(handler)
	handler = Recover(logger)(handler)
	return handler
}
