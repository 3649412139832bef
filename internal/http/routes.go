package httpx

import (
	"log/slog"
	"net/http"

	"github.com/genrelay/genrelay/internal/core"
	"github.com/genrelay/genrelay/internal/service"
)

// RouterServices holds all the services needed by the HTTP router.
type RouterServices struct {
	Submitter *service.SubmitterService
	Callbacks *service.CallbackService
	Jobs      core.JobRepository
	// CallbackToken, when set, is required on provider callback requests.
	CallbackToken string
	Logger        *slog.Logger
}

// NewRouter creates and configures a new HTTP router.
func NewRouter(services RouterServices) http.Handler {
	mux := http.NewServeMux()

	jobHandlers := &JobHandlers{Submitter: services.Submitter, Jobs: services.Jobs}
	callbackHandlers := &CallbackHandlers{Svc: services.Callbacks, Logger: services.Logger}

	registerJobRoutes(mux, jobHandlers)
	registerCallbackRoutes(mux, callbackHandlers, services.CallbackToken)
	mux.Handle("GET /healthz", http.HandlerFunc(healthHandler))
	mux.Handle("HEAD /healthz", http.HandlerFunc(healthHandler))

	var handler http.Handler = mux
	if services.Logger != nil {
		handler = Logging(services.Logger)(handler)
		handler = Recover(services.Logger)(handler)
	}
	return handler
}

func registerJobRoutes(mux *http.ServeMux, h *JobHandlers) {
	mux.HandleFunc("POST /api/jobs", h.CreateJob)
	mux.HandleFunc("GET /api/jobs/stats", h.Stats)
	mux.HandleFunc("GET /api/jobs/{id}", h.GetJob)
}

func registerCallbackRoutes(mux *http.ServeMux, h *CallbackHandlers, token string) {
	guarded := RequireCallbackToken(token)(http.HandlerFunc(h.Receive))
	mux.Handle("POST /api/callbacks/generation", guarded)
}
