// Package handlers provides HTTP request handlers.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/goclaw/recall/pkg/api/events"
	"github.com/goclaw/recall/pkg/api/middleware"
	"github.com/goclaw/recall/pkg/api/response"
	"github.com/goclaw/recall/pkg/memory"
	"github.com/goclaw/recall/pkg/metrics"
	"github.com/goclaw/recall/pkg/session"
)

// MemoryHandler handles memory-related API endpoints.
type MemoryHandler struct {
	registry    *session.Registry
	broadcaster *events.Broadcaster
	metrics     *metrics.Manager
	logger      handlerLogger
}

type handlerLogger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// NewMemoryHandler creates a new memory handler.
func NewMemoryHandler(registry *session.Registry, broadcaster *events.Broadcaster, m *metrics.Manager, log handlerLogger) *MemoryHandler {
	if m == nil {
		m = metrics.NoOpManager()
	}
	return &MemoryHandler{
		registry:    registry,
		broadcaster: broadcaster,
		metrics:     m,
		logger:      log,
	}
}

// --- Request/Response types ---

type rememberResponse struct {
	ID string `json:"id"`
}

type updateEntryRequest struct {
	Content    *string           `json:"content,omitempty"`
	Importance *float64          `json:"importance,omitempty"`
	Metadata   map[string]string `json:"metadata,omitempty"`
	Tags       []string          `json:"tags,omitempty"`
}

type deleteResponse struct {
	Deleted int `json:"deleted"`
}

type statsResponse struct {
	memory.Stats
	Layers map[string]int `json:"layers"`
}

// StoreEntry handles POST /api/v1/memory/{sessionID}
func (h *MemoryHandler) StoreEntry(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	mgr, ok := h.session(w, r)
	if !ok {
		return
	}

	var req session.RememberRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, http.StatusBadRequest, response.ErrCodeBadRequest, "Invalid request body", getRequestID(ctx))
		return
	}
	if req.Content == "" {
		response.Error(w, http.StatusBadRequest, response.ErrCodeValidationFailed, "Content is required", getRequestID(ctx))
		return
	}

	id, err := mgr.Remember(ctx, req)
	if err != nil {
		h.logger.Error("Failed to store entry", "session_id", mgr.SessionID(), "error", err)
		response.HandleError(w, err, getRequestID(ctx))
		return
	}

	h.metrics.SetMemoryEntries(mgr.SessionID(), mgr.Store().Len())
	if h.broadcaster != nil {
		layer := req.Layer
		if layer == "" {
			layer = session.LayerWorking
		}
		if entry, ok := mgr.Store().GetEntry(id); ok {
			h.broadcaster.BroadcastEntryAdded(mgr.SessionID(), id, layer, entry.Timestamp)
		}
	}

	response.JSON(w, http.StatusCreated, rememberResponse{ID: id})
}

// SearchEntries handles GET /api/v1/memory/{sessionID}/search
func (h *MemoryHandler) SearchEntries(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	mgr, ok := h.session(w, r)
	if !ok {
		return
	}

	query := r.URL.Query().Get("query")
	if query == "" {
		response.Error(w, http.StatusBadRequest, response.ErrCodeValidationFailed, "Query parameter is required", getRequestID(ctx))
		return
	}

	limit := 10
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}

	start := time.Now()
	results, err := mgr.Recall(ctx, query, limit)
	if err != nil {
		h.metrics.RecordSearch(mgr.SessionID(), "error", time.Since(start))
		h.logger.Error("Failed to search entries", "session_id", mgr.SessionID(), "error", err)
		response.HandleError(w, err, getRequestID(ctx))
		return
	}
	h.metrics.RecordSearch(mgr.SessionID(), "ok", time.Since(start))

	response.JSON(w, http.StatusOK, map[string]interface{}{
		"results": results,
		"count":   len(results),
	})
}

// GetEntry handles GET /api/v1/memory/{sessionID}/entries/{id}
func (h *MemoryHandler) GetEntry(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	mgr, ok := h.session(w, r)
	if !ok {
		return
	}

	id := chi.URLParam(r, "id")
	entry, found := mgr.Store().GetEntry(id)
	if !found {
		response.Error(w, http.StatusNotFound, response.ErrCodeNotFound, "Entry not found", getRequestID(ctx))
		return
	}

	response.JSON(w, http.StatusOK, entry)
}

// UpdateEntry handles PUT /api/v1/memory/{sessionID}/entries/{id}
func (h *MemoryHandler) UpdateEntry(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	mgr, ok := h.session(w, r)
	if !ok {
		return
	}

	var req updateEntryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, http.StatusBadRequest, response.ErrCodeBadRequest, "Invalid request body", getRequestID(ctx))
		return
	}

	id := chi.URLParam(r, "id")
	err := mgr.Store().UpdateEntry(ctx, id, memory.UpdateRequest{
		Content:    req.Content,
		Importance: req.Importance,
		Metadata:   req.Metadata,
		Tags:       req.Tags,
	})
	if err != nil {
		if !errors.Is(err, memory.ErrNotFound) {
			h.logger.Error("Failed to update entry", "session_id", mgr.SessionID(), "entry_id", id, "error", err)
		}
		response.HandleError(w, err, getRequestID(ctx))
		return
	}

	entry, _ := mgr.Store().GetEntry(id)
	response.JSON(w, http.StatusOK, entry)
}

// DeleteEntry handles DELETE /api/v1/memory/{sessionID}/entries/{id}
func (h *MemoryHandler) DeleteEntry(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	mgr, ok := h.session(w, r)
	if !ok {
		return
	}

	id := chi.URLParam(r, "id")
	if !mgr.Forget(id) {
		response.Error(w, http.StatusNotFound, response.ErrCodeNotFound, "Entry not found", getRequestID(ctx))
		return
	}

	h.metrics.SetMemoryEntries(mgr.SessionID(), mgr.Store().Len())
	if h.broadcaster != nil {
		h.broadcaster.BroadcastEntryRemoved(mgr.SessionID(), id)
	}

	response.JSON(w, http.StatusOK, deleteResponse{Deleted: 1})
}

// ListEntries handles GET /api/v1/memory/{sessionID}/entries
func (h *MemoryHandler) ListEntries(w http.ResponseWriter, r *http.Request) {
	mgr, ok := h.session(w, r)
	if !ok {
		return
	}

	entries := mgr.Store().ExportEntries()

	limit := 20
	offset := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			offset = n
		}
	}

	total := len(entries)
	if offset > total {
		offset = total
	}
	end := offset + limit
	if end > total {
		end = total
	}

	response.JSON(w, http.StatusOK, map[string]interface{}{
		"entries": entries[offset:end],
		"total":   total,
		"limit":   limit,
		"offset":  offset,
	})
}

// ExportEntries handles GET /api/v1/memory/{sessionID}/export
func (h *MemoryHandler) ExportEntries(w http.ResponseWriter, r *http.Request) {
	mgr, ok := h.session(w, r)
	if !ok {
		return
	}

	entries := mgr.Store().ExportEntries()
	response.JSON(w, http.StatusOK, map[string]interface{}{
		"entries": entries,
		"count":   len(entries),
	})
}

type importRequest struct {
	Entries []*memory.Entry `json:"entries"`
}

type importResponse struct {
	Imported int `json:"imported"`
}

// ImportEntries handles POST /api/v1/memory/{sessionID}/import
// The previous store contents are replaced wholesale.
func (h *MemoryHandler) ImportEntries(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	mgr, ok := h.session(w, r)
	if !ok {
		return
	}

	var req importRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, http.StatusBadRequest, response.ErrCodeBadRequest, "Invalid request body", getRequestID(ctx))
		return
	}

	if err := mgr.Store().ImportEntries(ctx, req.Entries); err != nil {
		h.logger.Error("Failed to import entries", "session_id", mgr.SessionID(), "error", err)
		response.HandleError(w, err, getRequestID(ctx))
		return
	}

	h.metrics.SetMemoryEntries(mgr.SessionID(), mgr.Store().Len())
	response.JSON(w, http.StatusOK, importResponse{Imported: len(req.Entries)})
}

// GetStats handles GET /api/v1/memory/{sessionID}/stats
func (h *MemoryHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	mgr, ok := h.session(w, r)
	if !ok {
		return
	}

	response.JSON(w, http.StatusOK, statsResponse{
		Stats:  mgr.Store().Stats(),
		Layers: mgr.LayerCounts(),
	})
}

// ClearLayer handles DELETE /api/v1/memory/{sessionID}/layers/{layer}
func (h *MemoryHandler) ClearLayer(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	mgr, ok := h.session(w, r)
	if !ok {
		return
	}

	layer := chi.URLParam(r, "layer")
	removed, err := mgr.ClearLayer(layer)
	if err != nil {
		response.HandleError(w, err, getRequestID(ctx))
		return
	}

	h.metrics.SetMemoryEntries(mgr.SessionID(), mgr.Store().Len())
	response.JSON(w, http.StatusOK, deleteResponse{Deleted: removed})
}

// ClearWorking handles DELETE /api/v1/memory/{sessionID}
// Only the working layer is cleared; durable layers need an explicit
// layer path.
func (h *MemoryHandler) ClearWorking(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	mgr, ok := h.session(w, r)
	if !ok {
		return
	}

	removed, err := mgr.ClearWorking()
	if err != nil {
		response.HandleError(w, err, getRequestID(ctx))
		return
	}

	h.metrics.SetMemoryEntries(mgr.SessionID(), mgr.Store().Len())
	response.JSON(w, http.StatusOK, deleteResponse{Deleted: removed})
}

// session resolves the session manager for the request, writing an
// error response on failure.
func (h *MemoryHandler) session(w http.ResponseWriter, r *http.Request) (*session.Manager, bool) {
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

func getRequestID(ctx context.Context) string {
	return middleware.GetRequestID(ctx)
}
