package embedding

import (
	"context"
	"time"

	"github.com/goclaw/recall/pkg/memory"
)

// Recorder receives the duration of each embedding call.
type Recorder interface {
	RecordEmbedding(duration time.Duration)
}

// WithMetrics wraps an embedder so every Embed call reports its
// duration to the recorder. Failed calls are timed too.
func WithMetrics(inner memory.Embedder, rec Recorder) memory.Embedder {
	if rec == nil {
		return inner
	}
	return &instrumentedEmbedder{inner: inner, rec: rec}
}

type instrumentedEmbedder struct {
	inner memory.Embedder
	rec   Recorder
}

func (e *instrumentedEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	start := time.Now()
	vec, err := e.inner.Embed(ctx, text)
	e.rec.RecordEmbedding(time.Since(start))
	return vec, err
}

func (e *instrumentedEmbedder) Dimension() int { return e.inner.Dimension() }
