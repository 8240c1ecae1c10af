package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// DefaultDimension is the default embedding dimensionality.
const DefaultDimension = 384

// defaultSearchLimit applies when a caller passes limit <= 0.
const defaultSearchLimit = 10

// Params holds the construction-time tuning knobs of a Store.
type Params struct {
	// Dimension is the embedding dimensionality enforced on every vector
	// entering the store.
	Dimension int

	// RRFK is the Reciprocal Rank Fusion constant.
	RRFK float64

	// Weights are the per-signal fusion weights.
	Weights Weights

	// RecencyDecay is the per-day recency decay factor.
	RecencyDecay float64

	// BM25K1 and BM25B are the BM25 scoring parameters.
	BM25K1 float64
	BM25B  float64
}

// DefaultParams returns the standard engine parameters.
func DefaultParams() Params {
	return Params{
		Dimension:    DefaultDimension,
		RRFK:         DefaultRRFK,
		Weights:      DefaultWeights(),
		RecencyDecay: DefaultRecencyDecay,
		BM25K1:       DefaultBM25K1,
		BM25B:        DefaultBM25B,
	}
}

func (p Params) validate() error {
	if p.Dimension <= 0 {
		return fmt.Errorf("%w: dimension must be > 0, got %d", ErrInvalidConfig, p.Dimension)
	}
	if p.RecencyDecay < 0 {
		return fmt.Errorf("%w: recency decay must be >= 0, got %v", ErrInvalidConfig, p.RecencyDecay)
	}
	if p.BM25K1 <= 0 {
		return fmt.Errorf("%w: bm25 k1 must be > 0, got %v", ErrInvalidConfig, p.BM25K1)
	}
	if p.BM25B < 0 || p.BM25B > 1 {
		return fmt.Errorf("%w: bm25 b must be in [0,1], got %v", ErrInvalidConfig, p.BM25B)
	}
	return nil
}

// AddRequest describes a new entry. Embedding is optional; when nil the
// store generates one from Content.
type AddRequest struct {
	Content    string
	Embedding  []float32
	Timestamp  time.Time
	Importance float64
	Metadata   map[string]string
	Tags       []string
}

// UpdateRequest describes a partial entry update. Nil fields are left
// untouched; a non-nil Metadata or Tags replaces the previous value.
type UpdateRequest struct {
	Content    *string
	Timestamp  *time.Time
	Importance *float64
	Metadata   map[string]string
	Tags       []string
}

// Store owns the entry collection and its derived BM25 statistics, and
// answers hybrid searches over them. All methods are safe for concurrent
// use; Search holds the read lock for its full scan and must not overlap
// mutations.
type Store struct {
	mu sync.RWMutex

	params   Params
	embedder Embedder
	logger   Logger
	recency  *RecencyScorer
	fuser    *Fuser
	bm25     *BM25Stats

	entries map[string]*Entry
	// order preserves insertion order so repeated searches over the same
	// corpus produce identical rankings.
	order []string

	now func() time.Time
}

// StoreOption configures a Store at construction.
type StoreOption func(*Store)

// WithLogger sets the store's logger.
func WithLogger(l Logger) StoreOption {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithClock replaces the wall clock used for recency scoring and default
// timestamps. Intended for tests.
func WithClock(now func() time.Time) StoreOption {
	return func(s *Store) {
		s.recency.WithClock(now)
		s.now = now
	}
}

// NewStore creates a store. The embedder is required; invalid parameters
// are rejected here rather than producing silently wrong rankings later.
func NewStore(params Params, embedder Embedder, opts ...StoreOption) (*Store, error) {
	if err := params.validate(); err != nil {
		return nil, err
	}
	if embedder == nil {
		return nil, fmt.Errorf("%w: embedder is required", ErrInvalidConfig)
	}
	if embedder.Dimension() != params.Dimension {
		return nil, fmt.Errorf("%w: embedder produces %d-dim vectors, store expects %d",
			ErrInvalidConfig, embedder.Dimension(), params.Dimension)
	}

	fuser, err := NewFuser(params.RRFK, params.Weights)
	if err != nil {
		return nil, err
	}

	s := &Store{
		params:   params,
		embedder: embedder,
		logger:   nopLogger{},
		recency:  NewRecencyScorer(params.RecencyDecay),
		fuser:    fuser,
		bm25:     NewBM25Stats(params.BM25K1, params.BM25B),
		entries:  make(map[string]*Entry),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// AddEntry stores a new entry and returns its id. When the request carries
// no embedding one is generated; a failing embedder fails the whole add.
func (s *Store) AddEntry(ctx context.Context, req AddRequest) (string, error) {
	vec, err := s.resolveEmbedding(ctx, req.Content, req.Embedding)
	if err != nil {
		return "", err
	}

	entry := &Entry{
		ID:         uuid.New().String(),
		Content:    req.Content,
		Embedding:  vec,
		Timestamp:  req.Timestamp,
		Importance: req.Importance,
		Metadata:   req.Metadata,
		Tags:       req.Tags,
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = s.now()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries[entry.ID] = entry.Clone()
	s.order = append(s.order, entry.ID)
	s.bm25.IndexDocument(entry.ID, entry.Content)

	s.logger.Debug("entry added", "entry_id", entry.ID, "importance", entry.Importance)
	return entry.ID, nil
}

// UpdateEntry applies a partial update. A content change regenerates the
// embedding and re-indexes BM25 statistics for the entry. Returns
// ErrNotFound for an unknown id.
func (s *Store) UpdateEntry(ctx context.Context, id string, req UpdateRequest) error {
	// Embed outside the lock; fail before mutating anything.
	var newVec []float32
	if req.Content != nil {
		var err error
		newVec, err = s.resolveEmbedding(ctx, *req.Content, nil)
		if err != nil {
			return err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	if req.Content != nil {
		entry.Content = *req.Content
		entry.Embedding = newVec
		s.bm25.IndexDocument(id, entry.Content)
	}
	if req.Timestamp != nil {
		entry.Timestamp = *req.Timestamp
	}
	if req.Importance != nil {
		entry.Importance = *req.Importance
	}
	if req.Metadata != nil {
		entry.Metadata = req.Metadata
	}
	if req.Tags != nil {
		entry.Tags = req.Tags
	}
	return nil
}

// RemoveEntry deletes an entry and its BM25 statistics. Returns false if
// the id was absent; a missing id is not an error for removal.
func (s *Store) RemoveEntry(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.entries[id]; !ok {
		return false
	}
	delete(s.entries, id)
	s.bm25.RemoveDocument(id)
	for i, oid := range s.order {
		if oid == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return true
}

// GetEntry returns a copy of the entry, or ok=false when absent.
func (s *Store) GetEntry(id string) (*Entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entry, ok := s.entries[id]
	if !ok {
		return nil, false
	}
	return entry.Clone(), true
}

// Search scores every live entry on all four signals, fuses the rankings,
// and returns the top limit results. An empty corpus yields an empty
// result, not an error. limit <= 0 defaults to 10.
func (s *Store) Search(ctx context.Context, query string, limit int) ([]*SearchResult, error) {
	if limit <= 0 {
		limit = defaultSearchLimit
	}

	s.mu.RLock()
	empty := len(s.entries) == 0
	s.mu.RUnlock()
	if empty {
		return nil, nil
	}

	// Query embedding happens outside the read lock; it may hit the network.
	queryVec, err := s.resolveEmbedding(ctx, query, nil)
	if err != nil {
		return nil, err
	}
	queryTerms := Tokenize(query)

	s.mu.RLock()
	defer s.mu.RUnlock()

	results := make([]*SearchResult, 0, len(s.order))
	for _, id := range s.order {
		entry := s.entries[id]
		results = append(results, &SearchResult{
			Entry:           entry.Clone(),
			BM25Score:       s.bm25.Score(queryTerms, id),
			VectorScore:     CosineSimilarity(queryVec, entry.Embedding),
			RecencyScore:    s.recency.Score(entry.Timestamp),
			ImportanceScore: entry.Importance,
		})
	}

	return s.fuser.Fuse(results, limit), nil
}

// Clear empties the entry collection and all derived statistics.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = make(map[string]*Entry)
	s.order = nil
	s.bm25.Reset()
}

// ExportEntries returns copies of all live entries in insertion order.
func (s *Store) ExportEntries() []*Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*Entry, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.entries[id].Clone())
	}
	return out
}

// ImportEntries replaces the store's contents with the given entries,
// re-indexing each and generating embeddings only for entries that lack
// one. Embedding failures abort the import before any state is replaced.
func (s *Store) ImportEntries(ctx context.Context, entries []*Entry) error {
	prepared := make([]*Entry, 0, len(entries))
	for _, e := range entries {
		clone := e.Clone()
		if clone.ID == "" {
			clone.ID = uuid.New().String()
		}
		vec, err := s.resolveEmbedding(ctx, clone.Content, clone.Embedding)
		if err != nil {
			return fmt.Errorf("import entry %s: %w", clone.ID, err)
		}
		clone.Embedding = vec
		prepared = append(prepared, clone)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries = make(map[string]*Entry, len(prepared))
	s.order = s.order[:0]
	s.bm25.Reset()
	for _, e := range prepared {
		s.entries[e.ID] = e
		s.order = append(s.order, e.ID)
		s.bm25.IndexDocument(e.ID, e.Content)
	}

	s.logger.Info("entries imported", "count", len(prepared))
	return nil
}

// Stats returns aggregate statistics for the store.
func (s *Store) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Stats{
		EntryCount:     len(s.entries),
		AvgDocLength:   s.bm25.AvgDocLength(),
		VocabularySize: s.bm25.VocabularySize(),
	}
}

// Len returns the number of live entries.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// resolveEmbedding returns the supplied vector after a dimension check, or
// generates one from text when vec is nil.
func (s *Store) resolveEmbedding(ctx context.Context, text string, vec []float32) ([]float32, error) {
	if vec == nil {
		generated, err := s.embedder.Embed(ctx, text)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrEmbedding, err)
		}
		vec = generated
	}
	if len(vec) != s.params.Dimension {
		return nil, fmt.Errorf("%w: expected %d, got %d", ErrDimensionMismatch, s.params.Dimension, len(vec))
	}
	return vec, nil
}
