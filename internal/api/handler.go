// Package api provides the HTTP API handlers and routing for the container service.
package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"steward/internal/apperrors"
	"steward/internal/container"
	"steward/internal/health"
	"steward/internal/observability"
)

// maxRequestBodySize limits request body to 1MB to prevent memory exhaustion
const maxRequestBodySize = 1 << 20 // 1 MB

// Handler contains HTTP handlers for the container API
type Handler struct {
	svc     *container.Service
	metrics *observability.Metrics
	health  *health.Checker
}

// NewHandler creates a new API handler
func NewHandler(svc *container.Service, metrics *observability.Metrics, healthChecker *health.Checker) *Handler {
	return &Handler{
		svc:     svc,
		metrics: metrics,
		health:  healthChecker,
	}
}

// CreateContainer handles POST /v1/containers.
// The record is persisted as Pending; the reconciler provisions the actual
// workload on a later tick, so the response only promises intent.
func (h *Handler) CreateContainer(w http.ResponseWriter, r *http.Request) {
	// Limit request body size to prevent memory exhaustion
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)

	var req container.CreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	rec, err := h.svc.Create(r.Context(), &req)
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	h.writeJSON(w, http.StatusCreated, rec)
}

// ListContainers handles GET /v1/containers
func (h *Handler) ListContainers(w http.ResponseWriter, r *http.Request) {
	resp, err := h.svc.List(r.Context())
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	h.writeJSON(w, http.StatusOK, resp)
}

// GetContainer handles GET /v1/containers/{containerId}
func (h *Handler) GetContainer(w http.ResponseWriter, r *http.Request) {
	containerID := r.PathValue("containerId")
	if containerID == "" {
		h.writeError(w, http.StatusBadRequest, "Container ID is required")
		return
	}

	rec, err := h.svc.Get(r.Context(), containerID)
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	h.writeJSON(w, http.StatusOK, rec)
}

// DeleteContainer handles DELETE /v1/containers/{containerId}.
// Removal is asynchronous: the record is marked Removing and returned, and
// the reconciler tears the workload down on a later tick.
func (h *Handler) DeleteContainer(w http.ResponseWriter, r *http.Request) {
	containerID := r.PathValue("containerId")
	if containerID == "" {
		h.writeError(w, http.StatusBadRequest, "Container ID is required")
		return
	}

	rec, err := h.svc.MarkForRemoval(r.Context(), containerID)
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	h.writeJSON(w, http.StatusAccepted, rec)
}

// Livez handles GET /livez - liveness probe.
// Returns 200 if the process is alive. Does not check dependencies.
func (h *Handler) Livez(w http.ResponseWriter, r *http.Request) {
	response := h.health.Liveness(r.Context())
	h.writeJSON(w, http.StatusOK, response)
}

// Readyz handles GET /readyz - readiness probe.
// Returns 200 if the service is ready to accept traffic.
// Returns 503 if the record store or the runtime driver is unavailable.
func (h *Handler) Readyz(w http.ResponseWriter, r *http.Request) {
	response := h.health.Readiness(r.Context())

	status := http.StatusOK
	if !response.IsHealthy() {
		status = http.StatusServiceUnavailable
	}

	h.writeJSON(w, status, response)
}

// writeJSON writes a JSON response
func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

// writeError writes an error response
func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}

// handleError handles errors from service layer with appropriate HTTP status codes.
func (h *Handler) handleError(w http.ResponseWriter, r *http.Request, err error) {
	status := apperrors.HTTPStatus(err)
	if status >= 500 {
		slog.Error("Internal error", "error", err, "path", r.URL.Path)
	} else {
		slog.Warn("Client error", "error", err, "path", r.URL.Path, "status", status)
	}
	h.writeError(w, status, err.Error())
}
