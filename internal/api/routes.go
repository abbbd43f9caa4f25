package api

import (
	"net/http"

	"salonpost/internal/health"
	"salonpost/internal/job"
	"salonpost/internal/observability"
)

// RouterConfig holds dependencies for the router.
type RouterConfig struct {
	JobService    *job.Service
	Accounts      AccountStore
	Metrics       *observability.Metrics
	HealthChecker *health.Checker
	APIKey        string
}

// NewRouter creates a new HTTP router with all routes configured.
func NewRouter(cfg RouterConfig) http.Handler {
	handler := NewHandler(cfg.JobService, cfg.HealthChecker, cfg.Accounts)

	mux := http.NewServeMux()

	// Health check endpoints (liveness/readiness probes) - no auth required
	mux.HandleFunc("GET /livez", handler.Livez)
	mux.HandleFunc("GET /readyz", handler.Readyz)

	// Job endpoints - auth required
	authMiddleware := AuthMiddleware(cfg.APIKey)
	mux.Handle("POST /v1/jobs", authMiddleware(http.HandlerFunc(handler.CreateJob)))
	mux.Handle("GET /v1/jobs", authMiddleware(http.HandlerFunc(handler.ListJobs)))
	mux.Handle("GET /v1/jobs/{jobId}", authMiddleware(http.HandlerFunc(handler.GetJob)))
	mux.Handle("GET /v1/jobs/{jobId}/items", authMiddleware(http.HandlerFunc(handler.GetJobItems)))
	mux.Handle("POST /v1/jobs/{jobId}/interrupt", authMiddleware(http.HandlerFunc(handler.InterruptJob)))
	mux.Handle("POST /v1/jobs/{jobId}/resume", authMiddleware(http.HandlerFunc(handler.ResumeJob)))

	// Account endpoints - auth required
	if cfg.Accounts != nil {
		mux.Handle("PUT /v1/accounts/{accountId}", authMiddleware(http.HandlerFunc(handler.SaveAccount)))
		mux.Handle("GET /v1/accounts/{accountId}", authMiddleware(http.HandlerFunc(handler.GetAccount)))
	}

	// Apply middleware chain (order matters: outermost first)
	var h http.Handler = mux
	h = ContentTypeMiddleware()(h)
	if cfg.Metrics != nil {
		h = MetricsMiddleware(cfg.Metrics)(h)
	}
	h = LoggingMiddleware()(h)
	h = RecoveryMiddleware()(h)

	return h
}
