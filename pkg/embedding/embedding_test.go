package embedding

import (
	"context"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"
	"time"

	"github.com/goclaw/recall/pkg/memory"
)

func TestHashEmbedderDeterministic(t *testing.T) {
	e := NewHashEmbedder(64)
	ctx := context.Background()

	a, err := e.Embed(ctx, "rotate api tokens monthly")
	if err != nil {
		t.Fatal(err)
	}
	b, err := e.Embed(ctx, "rotate api tokens monthly")
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(a, b) {
		t.Error("identical text must produce identical vectors")
	}
	if len(a) != 64 {
		t.Errorf("dimension = %d, want 64", len(a))
	}
}

func TestHashEmbedderNormalized(t *testing.T) {
	e := NewHashEmbedder(32)
	vec, err := e.Embed(context.Background(), "some words to hash into buckets")
	if err != nil {
		t.Fatal(err)
	}

	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	if math.Abs(norm-1) > 1e-6 {
		t.Errorf("expected unit norm, got %v", math.Sqrt(norm))
	}
}

func TestHashEmbedderSimilarity(t *testing.T) {
	e := NewHashEmbedder(128)
	ctx := context.Background()

	a, _ := e.Embed(ctx, "database connection pool settings")
	b, _ := e.Embed(ctx, "database connection pool tuning")
	c, _ := e.Embed(ctx, "birthday cake recipe")

	simAB := memory.CosineSimilarity(a, b)
	simAC := memory.CosineSimilarity(a, c)
	if simAB <= simAC {
		t.Errorf("overlapping text should be more similar: ab=%v ac=%v", simAB, simAC)
	}
}

func TestHashEmbedderEmptyText(t *testing.T) {
	e := NewHashEmbedder(16)
	vec, err := e.Embed(context.Background(), "")
	if err != nil {
		t.Fatal(err)
	}
	if len(vec) != 16 {
		t.Errorf("dimension = %d, want 16", len(vec))
	}
	for i, v := range vec {
		if v != 0 {
			t.Fatalf("expected zero vector for empty text, got %v at %d", v, i)
		}
	}
}

func TestOllamaEmbedder(t *testing.T) {
	vec := make([]float32, 8)
	vec[0] = 1

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/embeddings" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		var req ollamaRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatal(err)
		}
		if req.Prompt != "hello" {
			t.Errorf("prompt = %q, want hello", req.Prompt)
		}
		json.NewEncoder(w).Encode(ollamaResponse{Embedding: vec})
	}))
	defer srv.Close()

	e := NewOllamaEmbedder(srv.URL, "all-minilm", 8)
	got, err := e.Embed(context.Background(), "hello")
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(got, vec) {
		t.Errorf("embedding = %v, want %v", got, vec)
	}
}

func TestOllamaEmbedderDimensionMismatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(ollamaResponse{Embedding: []float32{1, 2, 3}})
	}))
	defer srv.Close()

	e := NewOllamaEmbedder(srv.URL, "all-minilm", 8)
	if _, err := e.Embed(context.Background(), "hello"); err == nil {
		t.Error("expected error on dimension mismatch")
	}
}

func TestOllamaEmbedderServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not found", http.StatusNotFound)
	}))
	defer srv.Close()

	e := NewOllamaEmbedder(srv.URL, "missing-model", 8)
	if _, err := e.Embed(context.Background(), "hello"); err == nil {
		t.Error("expected error on non-200 response")
	}
}

type captureRecorder struct {
	calls     int
	lastTimed time.Duration
}

func (r *captureRecorder) RecordEmbedding(d time.Duration) {
	r.calls++
	r.lastTimed = d
}

func TestWithMetricsRecordsEveryCall(t *testing.T) {
	rec := &captureRecorder{}
	e := WithMetrics(NewHashEmbedder(16), rec)
	ctx := context.Background()

	vec, err := e.Embed(ctx, "instrumented call")
	if err != nil {
		t.Fatal(err)
	}
	if len(vec) != 16 || e.Dimension() != 16 {
		t.Errorf("wrapper changed dimensions: len=%d dim=%d", len(vec), e.Dimension())
	}
	if rec.calls != 1 {
		t.Errorf("recorder calls = %d, want 1", rec.calls)
	}
	if rec.lastTimed < 0 {
		t.Errorf("negative duration recorded: %v", rec.lastTimed)
	}

	// Failures are timed as well.
	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	if _, err := e.Embed(cancelled, "never embedded"); err == nil {
		t.Error("expected error from cancelled context")
	}
	if rec.calls != 2 {
		t.Errorf("recorder calls = %d, want 2", rec.calls)
	}
}

func TestWithMetricsNilRecorderPassthrough(t *testing.T) {
	inner := NewHashEmbedder(8)
	if got := WithMetrics(inner, nil); got != memory.Embedder(inner) {
		t.Error("nil recorder should return the inner embedder unchanged")
	}
}

func TestNewProviderSelection(t *testing.T) {
	if _, err := New("ollama", "", "", 384); err != nil {
		t.Errorf("ollama provider: %v", err)
	}
	if _, err := New("hash", "", "", 384); err != nil {
		t.Errorf("hash provider: %v", err)
	}
	if _, err := New("", "", "", 384); err != nil {
		t.Errorf("default provider: %v", err)
	}
	if _, err := New("quantum", "", "", 384); err == nil {
		t.Error("expected error for unknown provider")
	}
}
