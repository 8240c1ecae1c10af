// Package config provides configuration management for Recall.
package config

import (
	"time"
)

// Config is the global configuration for Recall.
type Config struct {
	// App is the application configuration.
	App AppConfig `mapstructure:"app" validate:"required"`

	// Server is the HTTP server configuration.
	Server ServerConfig `mapstructure:"server" validate:"required"`

	// Log is the logging configuration.
	Log LogConfig `mapstructure:"log" validate:"required"`

	// Memory is the retrieval engine configuration.
	Memory MemoryConfig `mapstructure:"memory"`

	// Embedding is the embedding provider configuration.
	Embedding EmbeddingConfig `mapstructure:"embedding"`

	// Checkpoint is the snapshot persistence configuration.
	Checkpoint CheckpointConfig `mapstructure:"checkpoint"`

	// Session is the session layer configuration.
	Session SessionConfig `mapstructure:"session"`

	// Metrics is the observability configuration.
	Metrics MetricsConfig `mapstructure:"metrics"`

	// Tracing is the distributed tracing configuration.
	Tracing TracingConfig `mapstructure:"tracing"`
}

// AppConfig holds application metadata and settings.
type AppConfig struct {
	// Name is the application name.
	Name string `mapstructure:"name" validate:"required"`

	// Version is the application version.
	Version string `mapstructure:"version"`

	// Environment is the runtime environment (development, staging, production).
	Environment string `mapstructure:"environment" validate:"oneof=development staging production"`

	// Debug enables debug mode with verbose logging.
	Debug bool `mapstructure:"debug"`
}

// ServerConfig holds the HTTP server configuration.
type ServerConfig struct {
	// Host is the bind address.
	Host string `mapstructure:"host"`

	// Port is the HTTP API port.
	Port int `mapstructure:"port" validate:"required,min=1,max=65535"`

	// HTTP is the HTTP server configuration.
	HTTP HTTPConfig `mapstructure:"http"`

	// CORS is the CORS configuration.
	CORS CORSConfig `mapstructure:"cors"`

	// RateLimit is the per-client request rate limit configuration.
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
}

// HTTPConfig holds HTTP-specific settings.
type HTTPConfig struct {
	// ReadTimeout is the maximum duration for reading the entire request.
	ReadTimeout time.Duration `mapstructure:"read_timeout"`

	// WriteTimeout is the maximum duration before timing out writes.
	WriteTimeout time.Duration `mapstructure:"write_timeout"`

	// IdleTimeout is the maximum amount of time to wait for the next request.
	IdleTimeout time.Duration `mapstructure:"idle_timeout"`

	// ShutdownTimeout is the maximum duration to wait for graceful shutdown.
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`

	// RequestTimeout bounds request handling end to end.
	RequestTimeout time.Duration `mapstructure:"request_timeout"`

	// MaxHeaderBytes limits the size of request headers.
	MaxHeaderBytes int `mapstructure:"max_header_bytes"`
}

// CORSConfig holds CORS settings.
type CORSConfig struct {
	// Enabled enables CORS support.
	Enabled bool `mapstructure:"enabled"`

	// AllowedOrigins is the list of allowed origins.
	AllowedOrigins []string `mapstructure:"allowed_origins"`

	// AllowedMethods is the list of allowed HTTP methods.
	AllowedMethods []string `mapstructure:"allowed_methods"`

	// AllowedHeaders is the list of allowed headers.
	AllowedHeaders []string `mapstructure:"allowed_headers"`

	// AllowCredentials indicates whether credentials are allowed.
	AllowCredentials bool `mapstructure:"allow_credentials"`

	// MaxAge is the maximum age of CORS preflight cache in seconds.
	MaxAge int `mapstructure:"max_age"`
}

// RateLimitConfig holds request rate limit settings.
type RateLimitConfig struct {
	// Enabled enables rate limiting.
	Enabled bool `mapstructure:"enabled"`

	// RequestsPerSecond is the sustained request rate.
	RequestsPerSecond float64 `mapstructure:"requests_per_second" validate:"min=0"`

	// Burst is the maximum burst size.
	Burst int `mapstructure:"burst" validate:"min=0"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	// Level is the log level (debug, info, warn, error).
	Level string `mapstructure:"level" validate:"oneof=debug info warn error"`

	// Format is the output format (json, text).
	Format string `mapstructure:"format" validate:"oneof=json text"`

	// Output is the output destination (stdout, stderr, or file path).
	Output string `mapstructure:"output"`
}

// MemoryConfig holds retrieval engine settings.
type MemoryConfig struct {
	// Dimension is the embedding vector size.
	Dimension int `mapstructure:"dimension" validate:"min=1"`

	// RRFK is the reciprocal rank fusion smoothing constant.
	RRFK float64 `mapstructure:"rrf_k" validate:"gt=0"`

	// RecencyDecay controls how fast recency scores fall per day of age.
	RecencyDecay float64 `mapstructure:"recency_decay" validate:"gte=0"`

	// BM25K1 is the BM25 term frequency saturation parameter.
	BM25K1 float64 `mapstructure:"bm25_k1" validate:"gte=0"`

	// BM25B is the BM25 length normalization parameter.
	BM25B float64 `mapstructure:"bm25_b" validate:"gte=0,lte=1"`

	// Weights are the per-signal fusion weights.
	Weights WeightsConfig `mapstructure:"weights"`
}

// WeightsConfig holds fusion signal weights.
type WeightsConfig struct {
	// BM25 weighs the lexical signal.
	BM25 float64 `mapstructure:"bm25" validate:"gte=0"`

	// Vector weighs the semantic signal.
	Vector float64 `mapstructure:"vector" validate:"gte=0"`

	// Recency weighs the freshness signal.
	Recency float64 `mapstructure:"recency" validate:"gte=0"`

	// Importance weighs the caller-assigned importance signal.
	Importance float64 `mapstructure:"importance" validate:"gte=0"`
}

// EmbeddingConfig holds embedding provider settings.
type EmbeddingConfig struct {
	// Provider selects the embedder implementation (ollama, hash).
	Provider string `mapstructure:"provider" validate:"oneof=ollama hash"`

	// BaseURL is the provider endpoint for HTTP providers.
	BaseURL string `mapstructure:"base_url"`

	// Model is the embedding model name.
	Model string `mapstructure:"model"`
}

// CheckpointConfig holds snapshot persistence settings.
type CheckpointConfig struct {
	// Dir is the checkpoint directory.
	Dir string `mapstructure:"dir"`

	// MaxCheckpoints is the retention limit per session.
	MaxCheckpoints int `mapstructure:"max_checkpoints" validate:"min=0"`
}

// SessionConfig holds session layer settings.
type SessionConfig struct {
	// CheckpointInterval is how many adds trigger an auto checkpoint.
	// Zero disables auto-checkpointing.
	CheckpointInterval int `mapstructure:"checkpoint_interval" validate:"min=0"`
}

// MetricsConfig holds Prometheus metrics settings.
type MetricsConfig struct {
	// Enabled enables the metrics endpoint.
	Enabled bool `mapstructure:"enabled"`

	// Path is the metrics endpoint path.
	Path string `mapstructure:"path"`

	// Port is the standalone metrics server port.
	Port int `mapstructure:"port" validate:"min=0,max=65535"`
}

// TracingConfig holds distributed tracing settings.
type TracingConfig struct {
	// Enabled enables trace export.
	Enabled bool `mapstructure:"enabled"`

	// Endpoint is the OTLP gRPC collector endpoint.
	Endpoint string `mapstructure:"endpoint"`

	// SampleRate is the trace sampling ratio in [0,1].
	SampleRate float64 `mapstructure:"sample_rate" validate:"gte=0,lte=1"`
}
