package memory

import (
	"errors"
	"math"
	"testing"
)

func fuseInput() []*SearchResult {
	// a leads on bm25, b leads on vector, c leads on recency and importance.
	return []*SearchResult{
		{Entry: &Entry{ID: "a"}, BM25Score: 5.0, VectorScore: 0.1, RecencyScore: 0.5, ImportanceScore: 0.5},
		{Entry: &Entry{ID: "b"}, BM25Score: 1.0, VectorScore: 0.9, RecencyScore: 0.4, ImportanceScore: 0.4},
		{Entry: &Entry{ID: "c"}, BM25Score: 0.0, VectorScore: 0.2, RecencyScore: 0.9, ImportanceScore: 0.9},
	}
}

func TestFuserCombinedScore(t *testing.T) {
	fuser, err := NewFuser(DefaultRRFK, DefaultWeights())
	if err != nil {
		t.Fatal(err)
	}

	results := fuser.Fuse(fuseInput(), 10)
	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}

	// Every entry is rank 0 in some signals and lower in others; with unit
	// weights the combined score is a sum of four reciprocal ranks.
	for _, r := range results {
		if r.Combined <= 0 {
			t.Errorf("entry %s: non-positive combined score %v", r.Entry.ID, r.Combined)
		}
		max := 4.0 / DefaultRRFK
		if r.Combined > max {
			t.Errorf("entry %s: combined score %v exceeds theoretical max %v", r.Entry.ID, r.Combined, max)
		}
	}

	// Ranks are 1-based and follow the sort order.
	for i, r := range results {
		if r.Rank != i+1 {
			t.Errorf("result %d: rank = %d, want %d", i, r.Rank, i+1)
		}
		if i > 0 && results[i-1].Combined < r.Combined {
			t.Errorf("results not sorted descending at %d", i)
		}
	}

	// c tops two signals and should beat b, which tops only one.
	pos := map[string]int{}
	for i, r := range results {
		pos[r.Entry.ID] = i
	}
	if pos["c"] > pos["b"] {
		t.Errorf("expected c (two top signals) ahead of b, got order %v", pos)
	}
}

func TestFuserWeightMonotonicity(t *testing.T) {
	base, err := NewFuser(DefaultRRFK, DefaultWeights())
	if err != nil {
		t.Fatal(err)
	}
	boosted, err := NewFuser(DefaultRRFK, Weights{BM25: 1, Vector: 5, Recency: 1, Importance: 1})
	if err != nil {
		t.Fatal(err)
	}

	rankOf := func(results []*SearchResult, id string) int {
		for _, r := range results {
			if r.Entry.ID == id {
				return r.Rank
			}
		}
		t.Fatalf("entry %s missing from results", id)
		return 0
	}

	// b is uniquely top-ranked on the vector signal; boosting that weight
	// must improve (or at worst preserve at the top) its overall rank.
	before := rankOf(base.Fuse(fuseInput(), 10), "b")
	after := rankOf(boosted.Fuse(fuseInput(), 10), "b")
	if after > before {
		t.Errorf("boosting vector weight worsened b's rank: %d -> %d", before, after)
	}
	if after != 1 {
		t.Errorf("expected b to reach rank 1 under 5x vector weight, got %d", after)
	}
}

func TestFuserTruncation(t *testing.T) {
	fuser, _ := NewFuser(DefaultRRFK, DefaultWeights())
	results := fuser.Fuse(fuseInput(), 2)
	if len(results) != 2 {
		t.Fatalf("expected 2 results after truncation, got %d", len(results))
	}
	if results[0].Rank != 1 || results[1].Rank != 2 {
		t.Errorf("ranks after truncation = %d, %d", results[0].Rank, results[1].Rank)
	}
}

func TestFuserStableTiebreak(t *testing.T) {
	fuser, _ := NewFuser(DefaultRRFK, DefaultWeights())

	// Identical raw scores: insertion order decides every signal ranking,
	// so the first entry keeps the better reciprocal ranks.
	tied := []*SearchResult{
		{Entry: &Entry{ID: "first"}, BM25Score: 1, VectorScore: 1, RecencyScore: 1, ImportanceScore: 1},
		{Entry: &Entry{ID: "second"}, BM25Score: 1, VectorScore: 1, RecencyScore: 1, ImportanceScore: 1},
	}
	results := fuser.Fuse(tied, 10)
	if results[0].Entry.ID != "first" {
		t.Errorf("expected insertion order tiebreak, got %s first", results[0].Entry.ID)
	}
}

func TestFuserEmptyInput(t *testing.T) {
	fuser, _ := NewFuser(DefaultRRFK, DefaultWeights())
	if got := fuser.Fuse(nil, 10); got != nil {
		t.Errorf("expected nil for empty input, got %v", got)
	}
}

func TestNewFuserRejectsInvalidConfig(t *testing.T) {
	if _, err := NewFuser(0, DefaultWeights()); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("zero rrf constant: got %v, want ErrInvalidConfig", err)
	}
	if _, err := NewFuser(-1, DefaultWeights()); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("negative rrf constant: got %v, want ErrInvalidConfig", err)
	}
	if _, err := NewFuser(60, Weights{BM25: -0.5, Vector: 1, Recency: 1, Importance: 1}); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("negative weight: got %v, want ErrInvalidConfig", err)
	}
}

func TestFuserReciprocalRankValues(t *testing.T) {
	// Single signal dominance: with only bm25 weighted, combined scores
	// must equal 1/(rank+k) exactly.
	fuser, err := NewFuser(60, Weights{BM25: 1})
	if err != nil {
		t.Fatal(err)
	}
	results := fuser.Fuse(fuseInput(), 10)
	for i, r := range results {
		want := 1.0 / (float64(i) + 60)
		if math.Abs(r.Combined-want) > 1e-12 {
			t.Errorf("rank %d combined = %v, want %v", i+1, r.Combined, want)
		}
	}
	if results[0].Entry.ID != "a" {
		t.Errorf("expected bm25 leader first, got %s", results[0].Entry.ID)
	}
}
