package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/goclaw/recall/pkg/api/events"
	"github.com/goclaw/recall/pkg/api/response"
	"github.com/goclaw/recall/pkg/metrics"
	"github.com/goclaw/recall/pkg/session"
)

// CheckpointHandler handles checkpoint API endpoints.
type CheckpointHandler struct {
	registry    *session.Registry
	broadcaster *events.Broadcaster
	metrics     *metrics.Manager
	logger      handlerLogger
}

// NewCheckpointHandler creates a new checkpoint handler.
func NewCheckpointHandler(registry *session.Registry, broadcaster *events.Broadcaster, m *metrics.Manager, log handlerLogger) *CheckpointHandler {
	if m == nil {
		m = metrics.NoOpManager()
	}
	return &CheckpointHandler{
		registry:    registry,
		broadcaster: broadcaster,
		metrics:     m,
		logger:      log,
	}
}

type createCheckpointRequest struct {
	Description string `json:"description,omitempty"`
}

type restoreResponse struct {
	CheckpointID string    `json:"checkpoint_id"`
	EntryCount   int       `json:"entry_count"`
	Timestamp    time.Time `json:"timestamp"`
}

// Create handles POST /api/v1/memory/{sessionID}/checkpoints
func (h *CheckpointHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	mgr, ok := h.session(w, r)
	if !ok {
		return
	}

	var req createCheckpointRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			response.Error(w, http.StatusBadRequest, response.ErrCodeBadRequest, "Invalid request body", getRequestID(ctx))
			return
		}
	}

	meta, err := mgr.Checkpoint(ctx, req.Description)
	if err != nil {
		h.metrics.RecordCheckpointSave(mgr.SessionID(), "error")
		h.logger.Error("Failed to create checkpoint", "session_id", mgr.SessionID(), "error", err)
		response.HandleError(w, err, getRequestID(ctx))
		return
	}

	h.metrics.RecordCheckpointSave(mgr.SessionID(), "ok")
	if h.broadcaster != nil {
		h.broadcaster.BroadcastCheckpointCreated(mgr.SessionID(), meta.ID, meta.EntryCount)
	}

	response.JSON(w, http.StatusCreated, meta)
}

// List handles GET /api/v1/memory/{sessionID}/checkpoints
func (h *CheckpointHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	mgr, ok := h.session(w, r)
	if !ok {
		return
	}

	cps := mgr.Checkpoints()
	if cps == nil {
		response.Error(w, http.StatusServiceUnavailable, response.ErrCodeServiceUnavailable, "Checkpointing is disabled", getRequestID(ctx))
		return
	}

	metas, err := cps.List(ctx)
	if err != nil {
		h.logger.Error("Failed to list checkpoints", "session_id", mgr.SessionID(), "error", err)
		response.HandleError(w, err, getRequestID(ctx))
		return
	}

	response.JSON(w, http.StatusOK, map[string]interface{}{
		"checkpoints": metas,
		"count":       len(metas),
	})
}

// Restore handles POST /api/v1/memory/{sessionID}/checkpoints/{id}/restore
func (h *CheckpointHandler) Restore(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	mgr, ok := h.session(w, r)
	if !ok {
		return
	}

	id := chi.URLParam(r, "id")
	meta, err := mgr.Restore(ctx, id)
	if err != nil {
		h.metrics.RecordCheckpointRestore(mgr.SessionID(), "error")
		h.logger.Error("Failed to restore checkpoint", "session_id", mgr.SessionID(), "checkpoint_id", id, "error", err)
		response.HandleError(w, err, getRequestID(ctx))
		return
	}

	h.metrics.RecordCheckpointRestore(mgr.SessionID(), "ok")
	h.metrics.SetMemoryEntries(mgr.SessionID(), mgr.Store().Len())
	if h.broadcaster != nil {
		h.broadcaster.BroadcastMemoryRestored(mgr.SessionID(), meta.ID, meta.EntryCount)
	}

	response.JSON(w, http.StatusOK, restoreResponse{
		CheckpointID: meta.ID,
		EntryCount:   meta.EntryCount,
		Timestamp:    meta.Timestamp,
	})
}

// Delete handles DELETE /api/v1/memory/{sessionID}/checkpoints/{id}
func (h *CheckpointHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	mgr, ok := h.session(w, r)
	if !ok {
		return
	}

	cps := mgr.Checkpoints()
	if cps == nil {
		response.Error(w, http.StatusServiceUnavailable, response.ErrCodeServiceUnavailable, "Checkpointing is disabled", getRequestID(ctx))
		return
	}

	id := chi.URLParam(r, "id")
	if err := cps.Delete(ctx, id); err != nil {
		response.HandleError(w, err, getRequestID(ctx))
		return
	}

	response.JSON(w, http.StatusOK, deleteResponse{Deleted: 1})
}

// Stats handles GET /api/v1/memory/{sessionID}/checkpoints/stats
func (h *CheckpointHandler) Stats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	mgr, ok := h.session(w, r)
	if !ok {
		return
	}

	cps := mgr.Checkpoints()
	if cps == nil {
		response.Error(w, http.StatusServiceUnavailable, response.ErrCodeServiceUnavailable, "Checkpointing is disabled", getRequestID(ctx))
		return
	}

	stats, err := cps.Stats(ctx)
	if err != nil {
		h.logger.Error("Failed to read checkpoint stats", "session_id", mgr.SessionID(), "error", err)
		response.HandleError(w, err, getRequestID(ctx))
		return
	}

	response.JSON(w, http.StatusOK, stats)
}

func (h *CheckpointHandler) session(w http.ResponseWriter, r *http.Request) (*session.Manager, bool) {
	ctx := r.Context()
	sessionID := chi.URLParam(r, "sessionID")
	if sessionID == "" {
		response.Error(w, http.StatusBadRequest, response.ErrCodeBadRequest, "Session ID is required", getRequestID(ctx))
		return nil, false
	}

	mgr, err := h.registry.GetOrCreate(sessionID)
	if err != nil {
		h.logger.Error("Failed to resolve session", "session_id", sessionID, "error", err)
		response.HandleError(w, err, getRequestID(ctx))
		return nil, false
	}
	return mgr, true
}
