// Package session layers conversational memory semantics on top of the
// core store: entries are tagged with a session id and a memory layer,
// and the store is checkpointed automatically as it grows.
package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/goclaw/recall/pkg/checkpoint"
	"github.com/goclaw/recall/pkg/memory"
)

// Memory layers, ordered roughly by volatility. Working memory holds
// the current task context and is the only layer cleared by default.
const (
	LayerWorking    = "working"
	LayerEpisodic   = "episodic"
	LayerSemantic   = "semantic"
	LayerReflection = "reflection"
)

// DefaultCheckpointInterval is how many adds trigger an automatic
// checkpoint.
const DefaultCheckpointInterval = 25

// ValidLayer reports whether name is a known memory layer.
func ValidLayer(name string) bool {
	switch name {
	case LayerWorking, LayerEpisodic, LayerSemantic, LayerReflection:
		return true
	}
	return false
}

// RememberRequest describes one memory to record.
type RememberRequest struct {
	Content    string            `json:"content"`
	Layer      string            `json:"layer,omitempty"`
	Importance float64           `json:"importance,omitempty"`
	Role       string            `json:"role,omitempty"`
	Metadata   map[string]string `json:"metadata,omitempty"`
	Tags       []string          `json:"tags,omitempty"`
}

// Manager binds one session id to a store and a checkpoint manager.
type Manager struct {
	mu          sync.Mutex
	sessionID   string
	store       *memory.Store
	checkpoints *checkpoint.Manager
	logger      memory.Logger
	interval    int
	sinceSave   int
}

// Option configures a Manager.
type Option func(*Manager)

// WithLogger attaches a logger.
func WithLogger(l memory.Logger) Option {
	return func(m *Manager) {
		if l != nil {
			m.logger = l
		}
	}
}

// WithCheckpointInterval overrides how many adds trigger an automatic
// checkpoint. Zero or negative disables auto-checkpointing.
func WithCheckpointInterval(n int) Option {
	return func(m *Manager) { m.interval = n }
}

// NewManager creates a session manager. The checkpoint manager may be
// nil, which disables checkpointing entirely.
func NewManager(sessionID string, store *memory.Store, checkpoints *checkpoint.Manager, opts ...Option) (*Manager, error) {
	if sessionID == "" {
		return nil, fmt.Errorf("%w: session id is required", memory.ErrInvalidConfig)
	}
	if store == nil {
		return nil, fmt.Errorf("%w: store is required", memory.ErrInvalidConfig)
	}
	m := &Manager{
		sessionID:   sessionID,
		store:       store,
		checkpoints: checkpoints,
		interval:    DefaultCheckpointInterval,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// SessionID returns the session id this manager serves.
func (m *Manager) SessionID() string { return m.sessionID }

// Store exposes the underlying memory store.
func (m *Manager) Store() *memory.Store { return m.store }

// Checkpoints exposes the checkpoint manager, nil when checkpointing
// is disabled.
func (m *Manager) Checkpoints() *checkpoint.Manager { return m.checkpoints }

// Remember records one memory, tagging it with the session id and
// layer. An empty layer defaults to working memory.
func (m *Manager) Remember(ctx context.Context, req RememberRequest) (string, error) {
	layer := req.Layer
	if layer == "" {
		layer = LayerWorking
	}
	if !ValidLayer(layer) {
		return "", fmt.Errorf("%w: unknown layer %q", memory.ErrInvalidConfig, layer)
	}

	meta := make(map[string]string, len(req.Metadata)+3)
	for k, v := range req.Metadata {
		meta[k] = v
	}
	meta[memory.MetaLayer] = layer
	meta[memory.MetaSessionID] = m.sessionID
	if req.Role != "" {
		meta[memory.MetaRole] = req.Role
	}

	id, err := m.store.AddEntry(ctx, memory.AddRequest{
		Content:    req.Content,
		Importance: req.Importance,
		Metadata:   meta,
		Tags:       req.Tags,
	})
	if err != nil {
		return "", err
	}

	if err := m.maybeCheckpoint(ctx); err != nil && m.logger != nil {
		m.logger.Warn("auto checkpoint failed", "session_id", m.sessionID, "error", err)
	}
	return id, nil
}

// Recall searches the session's memory.
func (m *Manager) Recall(ctx context.Context, query string, limit int) ([]*memory.SearchResult, error) {
	return m.store.Search(ctx, query, limit)
}

// Forget removes one entry by id.
func (m *Manager) Forget(id string) bool {
	return m.store.RemoveEntry(id)
}

// ClearLayer removes all entries in one layer and returns how many
// were dropped. Entries without a layer tag count as working memory.
func (m *Manager) ClearLayer(layer string) (int, error) {
	if !ValidLayer(layer) {
		return 0, fmt.Errorf("%w: unknown layer %q", memory.ErrInvalidConfig, layer)
	}

	removed := 0
	for _, entry := range m.store.ExportEntries() {
		got := entry.Metadata[memory.MetaLayer]
		if got == "" {
			got = LayerWorking
		}
		if got == layer && m.store.RemoveEntry(entry.ID) {
			removed++
		}
	}
	if m.logger != nil {
		m.logger.Info("cleared memory layer",
			"session_id", m.sessionID, "layer", layer, "removed", removed)
	}
	return removed, nil
}

// ClearWorking clears the working layer. Longer-lived layers require
// an explicit ClearLayer call.
func (m *Manager) ClearWorking() (int, error) {
	return m.ClearLayer(LayerWorking)
}

// Checkpoint snapshots the current store state with a description.
func (m *Manager) Checkpoint(ctx context.Context, description string) (*checkpoint.Metadata, error) {
	if m.checkpoints == nil {
		return nil, fmt.Errorf("%w: checkpointing disabled", memory.ErrInvalidConfig)
	}
	meta, err := m.checkpoints.Save(ctx, m.store.ExportEntries(), checkpoint.Metadata{
		Description: description,
		SessionID:   m.sessionID,
	})
	if err != nil {
		return nil, err
	}
	m.mu.Lock()
	m.sinceSave = 0
	m.mu.Unlock()
	return meta, nil
}

// Restore replaces the store contents with the named checkpoint.
func (m *Manager) Restore(ctx context.Context, checkpointID string) (*checkpoint.Metadata, error) {
	if m.checkpoints == nil {
		return nil, fmt.Errorf("%w: checkpointing disabled", memory.ErrInvalidConfig)
	}
	doc, err := m.checkpoints.Load(ctx, checkpointID)
	if err != nil {
		return nil, err
	}
	if err := m.store.ImportEntries(ctx, doc.Entries); err != nil {
		return nil, fmt.Errorf("restore checkpoint %s: %w", checkpointID, err)
	}
	if m.logger != nil {
		m.logger.Info("restored checkpoint",
			"session_id", m.sessionID,
			"checkpoint_id", checkpointID,
			"entries", len(doc.Entries),
		)
	}
	return &doc.Metadata, nil
}

// LayerCounts returns the number of entries per layer.
func (m *Manager) LayerCounts() map[string]int {
	counts := map[string]int{}
	for _, entry := range m.store.ExportEntries() {
		layer := entry.Metadata[memory.MetaLayer]
		if layer == "" {
			layer = LayerWorking
		}
		counts[layer]++
	}
	return counts
}

func (m *Manager) maybeCheckpoint(ctx context.Context) error {
	if m.checkpoints == nil || m.interval <= 0 {
		return nil
	}
	m.mu.Lock()
	m.sinceSave++
	due := m.sinceSave >= m.interval
	if due {
		m.sinceSave = 0
	}
	m.mu.Unlock()
	if !due {
		return nil
	}

	_, err := m.checkpoints.Save(ctx, m.store.ExportEntries(), checkpoint.Metadata{
		Description: fmt.Sprintf("auto checkpoint at %s", time.Now().UTC().Format(time.RFC3339)),
		SessionID:   m.sessionID,
	})
	return err
}
