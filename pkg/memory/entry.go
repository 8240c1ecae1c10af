package memory

import "time"

// Well-known metadata keys. The metadata bag is otherwise opaque to the
// engine; callers may add their own keys alongside these.
const (
	MetaLayer     = "layer"
	MetaSessionID = "session_id"
	MetaRole      = "role"
	MetaGitBranch = "git_branch"
)

// Entry is the atomic unit of stored knowledge.
type Entry struct {
	// ID is the unique identifier, assigned at creation and immutable.
	ID string `json:"id"`

	// Content is the raw text of the entry.
	Content string `json:"content"`

	// Embedding is the vector for semantic retrieval. Generated on add
	// when the caller does not supply one.
	Embedding []float32 `json:"embedding,omitempty"`

	// Timestamp is the creation or last-relevant time, used for recency
	// scoring.
	Timestamp time.Time `json:"timestamp"`

	// Importance is a caller-assigned priority in [0, 1]. The engine does
	// not clamp it; out-of-range values flow into scoring as-is.
	Importance float64 `json:"importance"`

	// Metadata holds arbitrary key-value pairs for higher-level filtering.
	Metadata map[string]string `json:"metadata,omitempty"`

	// Tags are optional caller-defined labels.
	Tags []string `json:"tags,omitempty"`
}

// Clone returns a deep copy of the entry.
func (e *Entry) Clone() *Entry {
	if e == nil {
		return nil
	}
	clone := *e
	if e.Embedding != nil {
		clone.Embedding = append([]float32(nil), e.Embedding...)
	}
	if e.Metadata != nil {
		clone.Metadata = make(map[string]string, len(e.Metadata))
		for k, v := range e.Metadata {
			clone.Metadata[k] = v
		}
	}
	if e.Tags != nil {
		clone.Tags = append([]string(nil), e.Tags...)
	}
	return &clone
}

// SearchResult wraps an entry with its per-signal raw scores, the fused
// combined score, and its final 1-based rank. Produced per search call,
// never persisted.
type SearchResult struct {
	Entry *Entry `json:"entry"`

	BM25Score       float64 `json:"bm25_score"`
	VectorScore     float64 `json:"vector_score"`
	RecencyScore    float64 `json:"recency_score"`
	ImportanceScore float64 `json:"importance_score"`

	// Combined is the RRF-fused score across the four signals.
	Combined float64 `json:"combined"`

	// Rank is assigned after the final sort, starting at 1.
	Rank int `json:"rank"`
}

// Stats holds aggregate statistics about a store.
type Stats struct {
	// EntryCount is the number of live entries.
	EntryCount int `json:"entry_count"`

	// AvgDocLength is the mean token count across live entries.
	AvgDocLength float64 `json:"avg_doc_length"`

	// VocabularySize is the number of distinct indexed terms.
	VocabularySize int `json:"vocabulary_size"`
}
