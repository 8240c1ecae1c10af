// Package metrics provides Prometheus metrics instrumentation for Recall.
package metrics

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Manager manages all Prometheus metrics for Recall.
type Manager struct {
	registry *prometheus.Registry
	enabled  bool

	// Memory metrics
	memoryEntries    *prometheus.GaugeVec
	searches         *prometheus.CounterVec
	searchDuration   prometheus.Histogram
	embedDuration    prometheus.Histogram
	checkpointSaves  *prometheus.CounterVec
	checkpointLoads  *prometheus.CounterVec

	// HTTP metrics
	httpRequests    *prometheus.CounterVec
	httpDuration    *prometheus.HistogramVec
	httpConnections prometheus.Gauge
}

// Config holds metrics configuration.
type Config struct {
	Enabled bool
	Port    int
	Path    string

	SearchDurationBuckets []float64
	EmbedDurationBuckets  []float64
	HTTPDurationBuckets   []float64
}

// DefaultConfig returns default metrics configuration.
func DefaultConfig() Config {
	return Config{
		Enabled:               true,
		Port:                  9091,
		Path:                  "/metrics",
		SearchDurationBuckets: []float64{0.0001, 0.001, 0.01, 0.05, 0.1, 0.5, 1, 5},
		EmbedDurationBuckets:  []float64{0.001, 0.01, 0.05, 0.1, 0.5, 1, 5, 30},
		HTTPDurationBuckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
	}
}

// NewManager creates a new metrics manager.
func NewManager(cfg Config) *Manager {
	if !cfg.Enabled {
		return &Manager{enabled: false}
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	m := &Manager{
		registry: registry,
		enabled:  true,
	}

	m.initMemoryMetrics(cfg)
	m.initHTTPMetrics(cfg)

	return m
}

// Enabled returns whether metrics collection is enabled.
func (m *Manager) Enabled() bool {
	return m.enabled
}

// Handler returns the HTTP handler for the metrics endpoint.
func (m *Manager) Handler() http.Handler {
	if !m.enabled {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		})
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// StartServer starts the metrics HTTP server on the configured port.
func (m *Manager) StartServer(ctx context.Context, port int, path string) error {
	if !m.enabled {
		return nil
	}

	mux := http.NewServeMux()
	mux.Handle(path, m.Handler())

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: mux,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	return server.ListenAndServe()
}

// NoOpManager returns a no-op metrics manager for when metrics are disabled.
func NoOpManager() *Manager {
	return &Manager{enabled: false}
}

// initMemoryMetrics initializes retrieval engine metrics.
func (m *Manager) initMemoryMetrics(cfg Config) {
	m.memoryEntries = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "recall_memory_entries",
			Help: "Current number of entries in the memory store",
		},
		[]string{"session"},
	)

	m.searches = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recall_searches_total",
			Help: "Total number of memory searches",
		},
		[]string{"session", "status"},
	)

	m.searchDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "recall_search_duration_seconds",
			Help:    "Memory search duration in seconds",
			Buckets: cfg.SearchDurationBuckets,
		},
	)

	m.embedDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "recall_embed_duration_seconds",
			Help:    "Embedding generation duration in seconds",
			Buckets: cfg.EmbedDurationBuckets,
		},
	)

	m.checkpointSaves = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recall_checkpoint_saves_total",
			Help: "Total number of checkpoint saves",
		},
		[]string{"session", "status"},
	)

	m.checkpointLoads = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recall_checkpoint_restores_total",
			Help: "Total number of checkpoint restores",
		},
		[]string{"session", "status"},
	)

	m.registry.MustRegister(m.memoryEntries)
	m.registry.MustRegister(m.searches)
	m.registry.MustRegister(m.searchDuration)
	m.registry.MustRegister(m.embedDuration)
	m.registry.MustRegister(m.checkpointSaves)
	m.registry.MustRegister(m.checkpointLoads)
}

// SetMemoryEntries records the current store size for a session.
func (m *Manager) SetMemoryEntries(session string, count int) {
	if !m.enabled {
		return
	}
	m.memoryEntries.WithLabelValues(session).Set(float64(count))
}

// RecordSearch records one search with its outcome and duration.
func (m *Manager) RecordSearch(session, status string, duration time.Duration) {
	if !m.enabled {
		return
	}
	m.searches.WithLabelValues(session, status).Inc()
	m.searchDuration.Observe(duration.Seconds())
}

// RecordEmbedding records the duration of one embedding call.
func (m *Manager) RecordEmbedding(duration time.Duration) {
	if !m.enabled {
		return
	}
	m.embedDuration.Observe(duration.Seconds())
}

// RecordCheckpointSave records a checkpoint save attempt.
func (m *Manager) RecordCheckpointSave(session, status string) {
	if !m.enabled {
		return
	}
	m.checkpointSaves.WithLabelValues(session, status).Inc()
}

// RecordCheckpointRestore records a checkpoint restore attempt.
func (m *Manager) RecordCheckpointRestore(session, status string) {
	if !m.enabled {
		return
	}
	m.checkpointLoads.WithLabelValues(session, status).Inc()
}
