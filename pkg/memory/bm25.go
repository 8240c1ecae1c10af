package memory

import (
	"math"
	"sync"
)

// Default BM25 parameters.
const (
	DefaultBM25K1 = 1.5
	DefaultBM25B  = 0.75
)

// BM25Stats maintains the incremental statistics needed for BM25 scoring:
// per-term document frequency, per-document term frequencies, and the
// running average document length. It is derived state, rebuilt alongside
// the entry collection that owns it.
type BM25Stats struct {
	mu sync.RWMutex

	k1 float64
	b  float64

	// docFreq counts how many documents contain each term. A term whose
	// count drops to zero is removed entirely.
	docFreq map[string]int

	// termFreqs holds per-document term frequencies.
	termFreqs map[string]map[string]int

	// docLengths holds per-document token counts.
	docLengths map[string]int

	totalLen int
}

// NewBM25Stats creates an empty statistics store with the given parameters.
func NewBM25Stats(k1, b float64) *BM25Stats {
	return &BM25Stats{
		k1:         k1,
		b:          b,
		docFreq:    make(map[string]int),
		termFreqs:  make(map[string]map[string]int),
		docLengths: make(map[string]int),
	}
}

// IndexDocument tokenizes content and records its term statistics under id.
// Indexing an id that is already present replaces its previous statistics.
func (s *BM25Stats) IndexDocument(id, content string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.termFreqs[id]; exists {
		s.removeLocked(id)
	}

	tokens := Tokenize(content)
	freqs := make(map[string]int, len(tokens))
	for _, tok := range tokens {
		freqs[tok]++
	}

	s.termFreqs[id] = freqs
	s.docLengths[id] = len(tokens)
	s.totalLen += len(tokens)

	for term := range freqs {
		s.docFreq[term]++
	}
}

// RemoveDocument removes the statistics recorded for id. Removing an
// unknown id is a no-op.
func (s *BM25Stats) RemoveDocument(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.removeLocked(id)
}

func (s *BM25Stats) removeLocked(id string) {
	freqs, exists := s.termFreqs[id]
	if !exists {
		return
	}

	for term := range freqs {
		if n := s.docFreq[term]; n > 1 {
			s.docFreq[term] = n - 1
		} else {
			delete(s.docFreq, term)
		}
	}

	s.totalLen -= s.docLengths[id]
	delete(s.termFreqs, id)
	delete(s.docLengths, id)
}

// Score computes the BM25 score of the document id against queryTerms.
// Terms absent from the corpus contribute zero. Unknown ids score zero.
func (s *BM25Stats) Score(queryTerms []string, id string) float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()

	freqs, exists := s.termFreqs[id]
	if !exists {
		return 0
	}

	n := float64(len(s.termFreqs))
	avgDL := s.avgDocLengthLocked()
	docLen := float64(s.docLengths[id])

	score := 0.0
	for _, term := range queryTerms {
		tf := float64(freqs[term])
		if tf == 0 {
			continue
		}
		df := float64(s.docFreq[term])
		if df == 0 {
			continue
		}

		idf := math.Log((n-df+0.5)/(df+0.5) + 1.0)

		// Length normalization collapses to 1 when the corpus is empty.
		norm := 1.0
		if avgDL > 0 {
			norm = 1 - s.b + s.b*docLen/avgDL
		}
		score += idf * tf * (s.k1 + 1) / (tf + s.k1*norm)
	}

	return score
}

// AvgDocLength returns the mean token count across indexed documents,
// zero for an empty corpus.
func (s *BM25Stats) AvgDocLength() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.avgDocLengthLocked()
}

func (s *BM25Stats) avgDocLengthLocked() float64 {
	if len(s.docLengths) == 0 {
		return 0
	}
	return float64(s.totalLen) / float64(len(s.docLengths))
}

// DocFreq returns the number of documents containing term.
func (s *BM25Stats) DocFreq(term string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.docFreq[term]
}

// VocabularySize returns the number of distinct indexed terms.
func (s *BM25Stats) VocabularySize() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.docFreq)
}

// Len returns the number of indexed documents.
func (s *BM25Stats) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.termFreqs)
}

// Reset drops all statistics.
func (s *BM25Stats) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docFreq = make(map[string]int)
	s.termFreqs = make(map[string]map[string]int)
	s.docLengths = make(map[string]int)
	s.totalLen = 0
}
