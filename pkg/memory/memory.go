// Package memory implements the Recall hybrid retrieval engine: an in-memory
// store that ranks entries by fusing BM25 lexical scores, embedding cosine
// similarity, recency decay, and caller-assigned importance with Reciprocal
// Rank Fusion.
package memory

import (
	"context"
	"errors"
)

// Sentinel errors for the memory engine.
var (
	ErrNotFound          = errors.New("memory: entry not found")
	ErrDimensionMismatch = errors.New("memory: vector dimension mismatch")
	ErrEmbedding         = errors.New("memory: embedding generation failed")
	ErrInvalidConfig     = errors.New("memory: invalid configuration")
)

// Embedder maps text to a fixed-length vector. It is a required dependency
// of the Store: there is no fallback embedder, random or otherwise.
type Embedder interface {
	// Embed returns the embedding vector for the given text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// Dimension returns the length of vectors produced by Embed.
	Dimension() int
}

// Logger is the minimal logging interface used by the engine.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// nopLogger discards all log output.
type nopLogger struct{}

func (nopLogger) Debug(msg string, args ...any) {}
func (nopLogger) Info(msg string, args ...any)  {}
func (nopLogger) Warn(msg string, args ...any)  {}
func (nopLogger) Error(msg string, args ...any) {}
