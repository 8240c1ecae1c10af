// Package checkpoint persists memory store snapshots as JSON files.
package checkpoint

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/goclaw/recall/pkg/memory"
)

const (
	// DefaultDir is the default checkpoint directory.
	DefaultDir = ".recall/checkpoints"
	// DefaultMaxCheckpoints is the default retention limit.
	DefaultMaxCheckpoints = 10

	fileExt = ".json"
)

var (
	// ErrNotFound indicates that no checkpoint exists for the given id.
	ErrNotFound = errors.New("checkpoint: not found")
)

// Metadata describes a stored checkpoint without its entry payload.
type Metadata struct {
	ID          string    `json:"id"`
	Description string    `json:"description,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
	EntryCount  int       `json:"entry_count"`
	SessionID   string    `json:"session_id,omitempty"`
	GitBranch   string    `json:"git_branch,omitempty"`
	GitCommit   string    `json:"git_commit,omitempty"`
}

// Data is the full on-disk checkpoint document.
type Data struct {
	Metadata Metadata        `json:"metadata"`
	Entries  []*memory.Entry `json:"entries"`
	Config   map[string]any  `json:"config,omitempty"`
}

// Stats summarizes the checkpoint directory.
type Stats struct {
	Count     int       `json:"count"`
	TotalSize int64     `json:"total_size_bytes"`
	Oldest    time.Time `json:"oldest,omitempty"`
	Newest    time.Time `json:"newest,omitempty"`
}

// Manager writes, lists, restores and prunes checkpoint files in a
// single directory. One checkpoint is one JSON file named by its id.
type Manager struct {
	dir    string
	max    int
	logger memory.Logger
	now    func() time.Time
}

// Option configures a Manager.
type Option func(*Manager)

// WithLogger attaches a logger for prune and skip diagnostics.
func WithLogger(l memory.Logger) Option {
	return func(m *Manager) {
		if l != nil {
			m.logger = l
		}
	}
}

// WithMaxCheckpoints overrides the retention limit. Zero or negative
// disables pruning.
func WithMaxCheckpoints(n int) Option {
	return func(m *Manager) { m.max = n }
}

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		if now != nil {
			m.now = now
		}
	}
}

// NewManager creates a checkpoint manager rooted at dir, creating the
// directory if needed.
func NewManager(dir string, opts ...Option) (*Manager, error) {
	if dir == "" {
		dir = DefaultDir
	}
	m := &Manager{
		dir: dir,
		max: DefaultMaxCheckpoints,
		now: time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create checkpoint dir: %w", err)
	}
	return m, nil
}

// Dir returns the checkpoint directory.
func (m *Manager) Dir() string { return m.dir }

// Save writes a checkpoint of the given entries and returns its
// metadata. The file is written to a temp path first and renamed into
// place so a crash never leaves a half-written checkpoint behind.
func (m *Manager) Save(ctx context.Context, entries []*memory.Entry, meta Metadata) (*Metadata, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	if meta.ID == "" {
		meta.ID = newID(m.now())
	}
	if meta.Timestamp.IsZero() {
		meta.Timestamp = m.now().UTC()
	}
	meta.EntryCount = len(entries)

	doc := Data{Metadata: meta, Entries: entries}
	data, err := json.MarshalIndent(&doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("serialize checkpoint %s: %w", meta.ID, err)
	}

	path := m.path(meta.ID)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return nil, fmt.Errorf("write checkpoint %s: %w", meta.ID, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return nil, fmt.Errorf("commit checkpoint %s: %w", meta.ID, err)
	}

	if m.logger != nil {
		m.logger.Info("checkpoint saved",
			"id", meta.ID,
			"entries", meta.EntryCount,
			"session_id", meta.SessionID,
		)
	}

	if err := m.prune(); err != nil && m.logger != nil {
		m.logger.Warn("checkpoint prune failed", "error", err)
	}
	return &meta, nil
}

// Load reads one checkpoint by id.
func (m *Manager) Load(ctx context.Context, id string) (*Data, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	raw, err := os.ReadFile(m.path(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return nil, fmt.Errorf("read checkpoint %s: %w", id, err)
	}

	var doc Data
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("deserialize checkpoint %s: %w", id, err)
	}
	return &doc, nil
}

// List returns metadata for all checkpoints, newest first. Files that
// fail to parse are skipped with a warning rather than failing the
// whole listing.
func (m *Manager) List(ctx context.Context) ([]Metadata, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	dirents, err := os.ReadDir(m.dir)
	if err != nil {
		return nil, fmt.Errorf("read checkpoint dir: %w", err)
	}

	var metas []Metadata
	for _, de := range dirents {
		if de.IsDir() || !strings.HasSuffix(de.Name(), fileExt) {
			continue
		}
		raw, err := os.ReadFile(filepath.Join(m.dir, de.Name()))
		if err != nil {
			if m.logger != nil {
				m.logger.Warn("skipping unreadable checkpoint", "file", de.Name(), "error", err)
			}
			continue
		}
		var doc Data
		if err := json.Unmarshal(raw, &doc); err != nil {
			if m.logger != nil {
				m.logger.Warn("skipping corrupt checkpoint", "file", de.Name(), "error", err)
			}
			continue
		}
		metas = append(metas, doc.Metadata)
	}

	sort.SliceStable(metas, func(i, j int) bool {
		return metas[i].Timestamp.After(metas[j].Timestamp)
	})
	return metas, nil
}

// Latest returns the most recent checkpoint's metadata.
func (m *Manager) Latest(ctx context.Context) (*Metadata, error) {
	metas, err := m.List(ctx)
	if err != nil {
		return nil, err
	}
	if len(metas) == 0 {
		return nil, ErrNotFound
	}
	return &metas[0], nil
}

// Delete removes one checkpoint file.
func (m *Manager) Delete(ctx context.Context, id string) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	if err := os.Remove(m.path(id)); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return fmt.Errorf("delete checkpoint %s: %w", id, err)
	}
	return nil
}

// Stats reports count, disk usage and the time range of stored
// checkpoints.
func (m *Manager) Stats(ctx context.Context) (*Stats, error) {
	metas, err := m.List(ctx)
	if err != nil {
		return nil, err
	}

	stats := &Stats{Count: len(metas)}
	for i, meta := range metas {
		if fi, err := os.Stat(m.path(meta.ID)); err == nil {
			stats.TotalSize += fi.Size()
		}
		if i == 0 {
			stats.Newest = meta.Timestamp
		}
		if i == len(metas)-1 {
			stats.Oldest = meta.Timestamp
		}
	}
	return stats, nil
}

// prune removes the oldest checkpoints beyond the retention limit.
func (m *Manager) prune() error {
	if m.max <= 0 {
		return nil
	}
	metas, err := m.List(context.Background())
	if err != nil {
		return err
	}
	for _, meta := range metas[min(m.max, len(metas)):] {
		if err := os.Remove(m.path(meta.ID)); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("prune checkpoint %s: %w", meta.ID, err)
		}
		if m.logger != nil {
			m.logger.Debug("pruned checkpoint", "id", meta.ID)
		}
	}
	return nil
}

func (m *Manager) path(id string) string {
	return filepath.Join(m.dir, id+fileExt)
}

// newID builds a sortable checkpoint id from the timestamp plus a
// short random suffix to disambiguate saves within the same second.
func newID(now time.Time) string {
	return fmt.Sprintf("%s-%s",
		now.UTC().Format("20060102-150405"),
		uuid.NewString()[:8],
	)
}
