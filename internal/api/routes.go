package api

import (
	"net/http"

	"steward/internal/container"
	"steward/internal/health"
	"steward/internal/observability"
)

// RouterConfig holds dependencies for the router.
type RouterConfig struct {
	ContainerService *container.Service
	Metrics          *observability.Metrics
	HealthChecker    *health.Checker
	APIKey           string
}

// NewRouter creates a new HTTP router with all routes configured.
func NewRouter(cfg RouterConfig) http.Handler {
	handler := NewHandler(cfg.ContainerService, cfg.Metrics, cfg.HealthChecker)

	mux := http.NewServeMux()

	// Health check endpoints (liveness/readiness probes) - no auth required
	mux.HandleFunc("GET /livez", handler.Livez)
	mux.HandleFunc("GET /readyz", handler.Readyz)

	// Container endpoints - auth required
	authMiddleware := AuthMiddleware(cfg.APIKey)
	mux.Handle("POST /v1/containers", authMiddleware(http.HandlerFunc(handler.CreateContainer)))
	mux.Handle("GET /v1/containers", authMiddleware(http.HandlerFunc(handler.ListContainers)))
	mux.Handle("GET /v1/containers/{containerId}", authMiddleware(http.HandlerFunc(handler.GetContainer)))
	mux.Handle("DELETE /v1/containers/{containerId}", authMiddleware(http.HandlerFunc(handler.DeleteContainer)))

	// Apply middleware chain (order matters: outermost first)
	var h http.Handler = mux
	h = ContentTypeMiddleware()(h)
	h = CORSMiddleware()(h)
	if cfg.Metrics != nil {
		h = MetricsMiddleware(cfg.Metrics)(h)
	}
	h = LoggingMiddleware()(h)
	h = RecoveryMiddleware()(h)

	return h
}
