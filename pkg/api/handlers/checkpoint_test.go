package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goclaw/recall/pkg/api/events"
	"github.com/goclaw/recall/pkg/checkpoint"
)

func setupCheckpointHandlers(t *testing.T) (*MemoryHandler, *CheckpointHandler) {
	t.Helper()
	registry := testRegistry(t, t.TempDir())
	broadcaster := events.NewBroadcaster()
	return NewMemoryHandler(registry, broadcaster, nil, &nopLogger{}),
		NewCheckpointHandler(registry, broadcaster, nil, &nopLogger{})
}

func createTestCheckpoint(t *testing.T, h *CheckpointHandler, sessionID, description string) checkpoint.Metadata {
	t.Helper()
	body, _ := json.Marshal(createCheckpointRequest{Description: description})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/memory/"+sessionID+"/checkpoints", bytes.NewReader(body))
	req = withChiURLParam(req, "sessionID", sessionID)
	w := httptest.NewRecorder()

	h.Create(w, req)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var meta checkpoint.Metadata
	require.NoError(t, json.NewDecoder(w.Body).Decode(&meta))
	return meta
}

func TestCheckpointHandler_Create(t *testing.T) {
	mh, ch := setupCheckpointHandlers(t)
	storeTestEntry(t, mh, "session-1", "a fact worth keeping")

	meta := createTestCheckpoint(t, ch, "session-1", "before refactor")

	assert.NotEmpty(t, meta.ID)
	assert.Equal(t, "before refactor", meta.Description)
	assert.Equal(t, 1, meta.EntryCount)
	assert.Equal(t, "session-1", meta.SessionID)
}

func TestCheckpointHandler_Create_EmptyBody(t *testing.T) {
	mh, ch := setupCheckpointHandlers(t)
	storeTestEntry(t, mh, "session-1", "a fact")

	req := httptest.NewRequest(http.MethodPost, "/api/v1/memory/session-1/checkpoints", nil)
	req = withChiURLParam(req, "sessionID", "session-1")
	w := httptest.NewRecorder()

	ch.Create(w, req)

	assert.Equal(t, http.StatusCreated, w.Code, w.Body.String())
}

func TestCheckpointHandler_List(t *testing.T) {
	mh, ch := setupCheckpointHandlers(t)
	storeTestEntry(t, mh, "session-1", "a fact")
	createTestCheckpoint(t, ch, "session-1", "first")
	createTestCheckpoint(t, ch, "session-1", "second")

	req := httptest.NewRequest(http.MethodGet, "/api/v1/memory/session-1/checkpoints", nil)
	req = withChiURLParam(req, "sessionID", "session-1")
	w := httptest.NewRecorder()

	ch.List(w, req)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp struct {
		Checkpoints []checkpoint.Metadata `json:"checkpoints"`
		Count       int                   `json:"count"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, 2, resp.Count)
}

func TestCheckpointHandler_Restore(t *testing.T) {
	mh, ch := setupCheckpointHandlers(t)
	storeTestEntry(t, mh, "session-1", "the fact to restore")
	meta := createTestCheckpoint(t, ch, "session-1", "snapshot")

	// Mutate state after the snapshot.
	storeTestEntry(t, mh, "session-1", "an entry added afterwards")

	req := httptest.NewRequest(http.MethodPost, "/api/v1/memory/session-1/checkpoints/"+meta.ID+"/restore", nil)
	req = withChiURLParam(req, "sessionID", "session-1")
	req = withChiURLParam(req, "id", meta.ID)
	w := httptest.NewRecorder()

	ch.Restore(w, req)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp restoreResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, meta.ID, resp.CheckpointID)
	assert.Equal(t, 1, resp.EntryCount)

	mgr, ok := ch.registry.Get("session-1")
	require.True(t, ok)
	assert.Equal(t, 1, mgr.Store().Len())
}

func TestCheckpointHandler_Restore_NotFound(t *testing.T) {
	_, ch := setupCheckpointHandlers(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/memory/session-1/checkpoints/missing/restore", nil)
	req = withChiURLParam(req, "sessionID", "session-1")
	req = withChiURLParam(req, "id", "missing")
	w := httptest.NewRecorder()

	ch.Restore(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code, w.Body.String())
}

func TestCheckpointHandler_Delete(t *testing.T) {
	mh, ch := setupCheckpointHandlers(t)
	storeTestEntry(t, mh, "session-1", "a fact")
	meta := createTestCheckpoint(t, ch, "session-1", "doomed")

	req := httptest.NewRequest(http.MethodDelete, "/api/v1/memory/session-1/checkpoints/"+meta.ID, nil)
	req = withChiURLParam(req, "sessionID", "session-1")
	req = withChiURLParam(req, "id", meta.ID)
	w := httptest.NewRecorder()

	ch.Delete(w, req)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = httptest.NewRecorder()
	ch.Delete(w, req)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCheckpointHandler_Stats(t *testing.T) {
	mh, ch := setupCheckpointHandlers(t)
	storeTestEntry(t, mh, "session-1", "a fact")
	createTestCheckpoint(t, ch, "session-1", "one")

	req := httptest.NewRequest(http.MethodGet, "/api/v1/memory/session-1/checkpoints/stats", nil)
	req = withChiURLParam(req, "sessionID", "session-1")
	w := httptest.NewRecorder()

	ch.Stats(w, req)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var stats checkpoint.Stats
	require.NoError(t, json.NewDecoder(w.Body).Decode(&stats))
	assert.Equal(t, 1, stats.Count)
	assert.Greater(t, stats.TotalSize, int64(0))
}

func TestCheckpointHandler_DisabledWithoutDir(t *testing.T) {
	registry := testRegistry(t, "")
	ch := NewCheckpointHandler(registry, nil, nil, &nopLogger{})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/memory/session-1/checkpoints", nil)
	req = withChiURLParam(req, "sessionID", "session-1")
	w := httptest.NewRecorder()

	ch.List(w, req)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code, w.Body.String())
}
