package session

import (
	"fmt"
	"path/filepath"
	"sync"

	"github.com/goclaw/recall/pkg/checkpoint"
	"github.com/goclaw/recall/pkg/memory"
)

// Registry hands out one Manager per session id, each with its own
// store and checkpoint subdirectory, sharing a single embedder.
type Registry struct {
	mu       sync.Mutex
	sessions map[string]*Manager

	params         memory.Params
	embedder       memory.Embedder
	checkpointDir  string
	interval       int
	maxCheckpoints int
	logger         memory.Logger
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithRegistryLogger attaches a logger passed down to every session.
func WithRegistryLogger(l memory.Logger) RegistryOption {
	return func(r *Registry) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithRegistryCheckpointInterval sets the auto-checkpoint interval for
// new sessions.
func WithRegistryCheckpointInterval(n int) RegistryOption {
	return func(r *Registry) { r.interval = n }
}

// WithRegistryMaxCheckpoints sets the checkpoint retention limit for
// new sessions. Zero or negative disables pruning.
func WithRegistryMaxCheckpoints(n int) RegistryOption {
	return func(r *Registry) { r.maxCheckpoints = n }
}

// NewRegistry creates a session registry. checkpointDir may be empty
// to disable checkpointing for all sessions.
func NewRegistry(params memory.Params, embedder memory.Embedder, checkpointDir string, opts ...RegistryOption) (*Registry, error) {
	if embedder == nil {
		return nil, fmt.Errorf("%w: embedder is required", memory.ErrInvalidConfig)
	}
	r := &Registry{
		sessions:       map[string]*Manager{},
		params:         params,
		embedder:       embedder,
		checkpointDir:  checkpointDir,
		interval:       DefaultCheckpointInterval,
		maxCheckpoints: checkpoint.DefaultMaxCheckpoints,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// GetOrCreate returns the manager for sessionID, creating it on first
// use.
func (r *Registry) GetOrCreate(sessionID string) (*Manager, error) {
	if sessionID == "" {
		return nil, fmt.Errorf("%w: session id is required", memory.ErrInvalidConfig)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if m, ok := r.sessions[sessionID]; ok {
		return m, nil
	}

	var storeOpts []memory.StoreOption
	if r.logger != nil {
		storeOpts = append(storeOpts, memory.WithLogger(r.logger))
	}
	store, err := memory.NewStore(r.params, r.embedder, storeOpts...)
	if err != nil {
		return nil, fmt.Errorf("create store for session %s: %w", sessionID, err)
	}

	var checkpoints *checkpoint.Manager
	if r.checkpointDir != "" {
		cpOpts := []checkpoint.Option{checkpoint.WithMaxCheckpoints(r.maxCheckpoints)}
		if r.logger != nil {
			cpOpts = append(cpOpts, checkpoint.WithLogger(r.logger))
		}
		checkpoints, err = checkpoint.NewManager(filepath.Join(r.checkpointDir, sessionID), cpOpts...)
		if err != nil {
			return nil, fmt.Errorf("create checkpoints for session %s: %w", sessionID, err)
		}
	}

	var mgrOpts []Option
	if r.logger != nil {
		mgrOpts = append(mgrOpts, WithLogger(r.logger))
	}
	mgrOpts = append(mgrOpts, WithCheckpointInterval(r.interval))

	m, err := NewManager(sessionID, store, checkpoints, mgrOpts...)
	if err != nil {
		return nil, err
	}
	r.sessions[sessionID] = m
	return m, nil
}

// Get returns the manager for sessionID if it exists.
func (r *Registry) Get(sessionID string) (*Manager, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.sessions[sessionID]
	return m, ok
}

// Remove drops a session from the registry. Checkpoint files on disk
// are left intact.
func (r *Registry) Remove(sessionID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sessions[sessionID]; !ok {
		return false
	}
	delete(r.sessions, sessionID)
	return true
}

// SessionIDs lists the ids of all live sessions.
func (r *Registry) SessionIDs() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make([]string, 0, len(r.sessions))
	for id := range r.sessions {
		ids = append(ids, id)
	}
	return ids
}
