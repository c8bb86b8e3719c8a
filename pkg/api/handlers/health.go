package handlers

import (
	"net/http"
	"time"

	"github.com/identd/mongoauth/pkg/identity"
)

// HealthHandler handles health check API endpoints.
type HealthHandler struct {
	store identity.Store
}

// NewHealthHandler creates a new HealthHandler. The store may be nil,
// in which case readiness only reports process liveness.
func NewHealthHandler(store identity.Store) *HealthHandler {
	return &HealthHandler{store: store}
}

// HealthResponse is the response body for health endpoints.
type HealthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Error     string    `json:"error,omitempty"`
}

// Liveness handles GET /health.
// Always returns 200 while the process is running.
func (h *HealthHandler) Liveness(w http.ResponseWriter, r *http.Request) {
	WriteJSONOK(w, HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC(),
	})
}

// Readiness handles GET /health/ready.
// Returns 200 when the directory backend is reachable, 503 otherwise.
func (h *HealthHandler) Readiness(w http.ResponseWriter, r *http.Request) {
	if h.store == nil {
		WriteJSONOK(w, HealthResponse{
			Status:    "healthy",
			Timestamp: time.Now().UTC(),
		})
		return
	}

	if err := h.store.Ping(r.Context()); err != nil {
		WriteJSON(w, http.StatusServiceUnavailable, HealthResponse{
			Status:    "unhealthy",
			Timestamp: time.Now().UTC(),
			Error:     err.Error(),
		})
		return
	}

	WriteJSONOK(w, HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC(),
	})
}
