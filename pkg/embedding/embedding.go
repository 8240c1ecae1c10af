// Package embedding provides memory.Embedder implementations: an HTTP
// client for Ollama-style embedding endpoints and a deterministic
// local embedder for offline and test use.
package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"hash/fnv"
	"io"
	"math"
	"net/http"
	"time"

	"github.com/goclaw/recall/pkg/memory"
)

const (
	// DefaultOllamaURL is the conventional local Ollama address.
	DefaultOllamaURL = "http://localhost:11434"
	// DefaultOllamaModel is a small model with 384-dim vectors.
	DefaultOllamaModel = "all-minilm"

	defaultTimeout = 30 * time.Second
)

// OllamaEmbedder calls an Ollama embeddings endpoint.
type OllamaEmbedder struct {
	baseURL   string
	model     string
	dimension int
	client    *http.Client
}

type ollamaRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

type ollamaResponse struct {
	Embedding []float32 `json:"embedding"`
}

// NewOllamaEmbedder creates an Ollama-backed embedder. The dimension
// must match what the model actually produces; mismatches surface as
// errors from Embed.
func NewOllamaEmbedder(baseURL, model string, dimension int) *OllamaEmbedder {
	if baseURL == "" {
		baseURL = DefaultOllamaURL
	}
	if model == "" {
		model = DefaultOllamaModel
	}
	if dimension <= 0 {
		dimension = memory.DefaultDimension
	}
	return &OllamaEmbedder{
		baseURL:   baseURL,
		model:     model,
		dimension: dimension,
		client:    &http.Client{Timeout: defaultTimeout},
	}
}

// Embed requests a vector for text.
func (e *OllamaEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	body, err := json.Marshal(ollamaRequest{Model: e.model, Prompt: text})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+"/api/embeddings", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ollama request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("ollama error %d: %s", resp.StatusCode, string(b))
	}

	var result ollamaResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, err
	}
	if len(result.Embedding) != e.dimension {
		return nil, fmt.Errorf("ollama returned %d dims, expected %d", len(result.Embedding), e.dimension)
	}
	return result.Embedding, nil
}

// Dimension returns the configured vector size.
func (e *OllamaEmbedder) Dimension() int { return e.dimension }

// HashEmbedder maps text to a fixed-size vector by hashing tokens into
// buckets. It carries no semantics beyond lexical overlap, but it is
// deterministic, dependency-free and good enough for offline use.
type HashEmbedder struct {
	dimension int
}

// NewHashEmbedder creates a feature-hashing embedder.
func NewHashEmbedder(dimension int) *HashEmbedder {
	if dimension <= 0 {
		dimension = memory.DefaultDimension
	}
	return &HashEmbedder{dimension: dimension}
}

// Embed hashes each token into a bucket and L2-normalizes the result.
func (e *HashEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	vec := make([]float32, e.dimension)
	for _, token := range memory.Tokenize(text) {
		h := fnv.New32a()
		h.Write([]byte(token))
		sum := h.Sum32()
		bucket := int(sum % uint32(e.dimension))
		// Top bit decides the sign so unrelated tokens can cancel
		// instead of all pulling the same way.
		if sum&0x80000000 != 0 {
			vec[bucket] -= 1
		} else {
			vec[bucket] += 1
		}
	}

	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	if norm > 0 {
		scale := float32(1 / math.Sqrt(norm))
		for i := range vec {
			vec[i] *= scale
		}
	}
	return vec, nil
}

// Dimension returns the configured vector size.
func (e *HashEmbedder) Dimension() int { return e.dimension }

// New builds an embedder from a provider name. Supported providers are
// "ollama" and "hash".
func New(provider, baseURL, model string, dimension int) (memory.Embedder, error) {
	switch provider {
	case "ollama":
		return NewOllamaEmbedder(baseURL, model, dimension), nil
	case "hash", "":
		return NewHashEmbedder(dimension), nil
	default:
		return nil, fmt.Errorf("%w: unknown embedding provider %q", memory.ErrInvalidConfig, provider)
	}
}
