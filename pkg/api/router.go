// Package api provides HTTP API server components.
package api

import (
	"github.com/go-chi/chi/v5"

	"github.com/goclaw/recall/config"
	"github.com/goclaw/recall/pkg/api/handlers"
	"github.com/goclaw/recall/pkg/api/middleware"
	"github.com/goclaw/recall/pkg/logger"
)

// Handlers holds all HTTP handlers.
type Handlers struct {
	// Memory handles entry storage and retrieval endpoints.
	Memory *handlers.MemoryHandler

	// Checkpoint handles snapshot endpoints.
	Checkpoint *handlers.CheckpointHandler

	// Health handles health check endpoints.
	Health *handlers.HealthHandler

	// WebSocket streams memory events.
	WebSocket *handlers.WebSocketHandler

	// Metrics is the optional metrics recorder.
	Metrics middleware.MetricsRecorder
}

// NewRouter creates a new chi router with middleware and routes.
func NewRouter(cfg *config.Config, log logger.Logger, handlers *Handlers) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(log))
	r.Use(middleware.Recovery(log))

	if handlers.Metrics != nil {
		r.Use(middleware.Metrics(handlers.Metrics))
	}

	r.Use(middleware.CORS(&cfg.Server.CORS))

	if cfg.Server.RateLimit.Enabled {
		limiter := middleware.NewRateLimiter(
			cfg.Server.RateLimit.RequestsPerSecond,
			cfg.Server.RateLimit.Burst,
		)
		r.Use(middleware.RateLimit(limiter))
	}

	r.Use(middleware.Timeout(cfg.Server.HTTP.RequestTimeout))

	RegisterRoutes(r, handlers)

	return r
}

// RegisterRoutes registers all API routes.
func RegisterRoutes(r chi.Router, handlers *Handlers) {
	r.Route("/api/v1", func(r chi.Router) {
		if handlers.Memory != nil {
			r.Route("/memory/{sessionID}", func(r chi.Router) {
				r.Post("/", handlers.Memory.StoreEntry)
				r.Delete("/", handlers.Memory.ClearWorking)
				r.Get("/search", handlers.Memory.SearchEntries)
				r.Get("/entries", handlers.Memory.ListEntries)
				r.Get("/entries/{id}", handlers.Memory.GetEntry)
				r.Put("/entries/{id}", handlers.Memory.UpdateEntry)
				r.Delete("/entries/{id}", handlers.Memory.DeleteEntry)
				r.Get("/stats", handlers.Memory.GetStats)
				r.Get("/export", handlers.Memory.ExportEntries)
				r.Post("/import", handlers.Memory.ImportEntries)
				r.Delete("/layers/{layer}", handlers.Memory.ClearLayer)

				if handlers.Checkpoint != nil {
					r.Route("/checkpoints", func(r chi.Router) {
						r.Post("/", handlers.Checkpoint.Create)
						r.Get("/", handlers.Checkpoint.List)
						r.Get("/stats", handlers.Checkpoint.Stats)
						r.Post("/{id}/restore", handlers.Checkpoint.Restore)
						r.Delete("/{id}", handlers.Checkpoint.Delete)
					})
				}
			})
		}
	})

	// Health check routes (not versioned)
	if handlers.Health != nil {
		r.Get("/health", handlers.Health.Health)
		r.Get("/ready", handlers.Health.Ready)
		r.Get("/status", handlers.Health.Status)
	}

	// Event streaming
	if handlers.WebSocket != nil {
		r.Get("/ws/events", handlers.WebSocket.ServeHTTP)
	}
}
