package handlers

import (
	"net/http"
	"time"

	"github.com/goclaw/recall/pkg/api/response"
	"github.com/goclaw/recall/pkg/session"
	"github.com/goclaw/recall/pkg/version"
)

// HealthHandler handles health check endpoints.
type HealthHandler struct {
	registry *session.Registry
	started  time.Time
}

// NewHealthHandler creates a new health handler.
func NewHealthHandler(registry *session.Registry) *HealthHandler {
	return &HealthHandler{
		registry: registry,
		started:  time.Now(),
	}
}

// Health handles the /health endpoint (liveness probe).
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, http.StatusOK, map[string]string{
		"status": "ok",
	})
}

// Ready handles the /ready endpoint (readiness probe).
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	if h.registry == nil {
		response.JSON(w, http.StatusServiceUnavailable, map[string]bool{
			"ready": false,
		})
		return
	}
	response.JSON(w, http.StatusOK, map[string]bool{
		"ready": true,
	})
}

// Status handles the /status endpoint (detailed status).
func (h *HealthHandler) Status(w http.ResponseWriter, r *http.Request) {
	sessions := []string{}
	if h.registry != nil {
		sessions = h.registry.SessionIDs()
	}
	response.JSON(w, http.StatusOK, map[string]interface{}{
		"status":         "ok",
		"version":        version.Version,
		"uptime_seconds": int(time.Since(h.started).Seconds()),
		"sessions":       sessions,
	})
}
