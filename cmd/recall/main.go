package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/goclaw/recall/config"
	"github.com/goclaw/recall/pkg/api"
	"github.com/goclaw/recall/pkg/api/events"
	"github.com/goclaw/recall/pkg/api/handlers"
	"github.com/goclaw/recall/pkg/embedding"
	"github.com/goclaw/recall/pkg/logger"
	"github.com/goclaw/recall/pkg/memory"
	"github.com/goclaw/recall/pkg/metrics"
	"github.com/goclaw/recall/pkg/session"
	"github.com/goclaw/recall/pkg/telemetry/tracing"
	"github.com/goclaw/recall/pkg/version"
)

var (
	configPath  = flag.String("config", "", "Path to configuration file")
	versionFlag = flag.Bool("version", false, "Print version information")
	helpFlag    = flag.Bool("help", false, "Print help information")

	// CLI overrides
	appName    = flag.String("app-name", "", "Override app name")
	serverPort = flag.Int("port", 0, "Override server port")
	logLevel   = flag.String("log-level", "", "Override log level")
	debugMode  = flag.Bool("debug", false, "Enable debug mode")
)

func main() {
	flag.Parse()

	// Print help
	if *helpFlag {
		printHelp()
		os.Exit(0)
	}

	// Print version
	if *versionFlag {
		printVersion()
		os.Exit(0)
	}

	// Build CLI overrides map
	overrides := buildOverrides()

	// Load configuration
	cfg, err := config.Load(*configPath, overrides)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration:\n%s\n", err)
		os.Exit(1)
	}

	// Initialize logger with configuration
	logCfg := &logger.Config{
		Level:  logger.ParseLevel(cfg.Log.Level),
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	}
	if cfg.App.Debug || *debugMode {
		logCfg.Level = logger.DebugLevel
	}
	log := logger.New(logCfg)
	logger.SetGlobal(log)

	log.Info("Starting Recall",
		"version", version.Version,
		"commit", version.Commit,
		"build_date", version.BuildDate,
		"app", cfg.App.Name,
		"environment", cfg.App.Environment,
	)

	// Create root context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Setup graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	// Initialize tracing
	shutdownTracing, err := tracing.Init(ctx, cfg.Tracing, cfg.App.Name, version.Version)
	if err != nil {
		log.Error("Failed to initialize tracing", "error", err)
		os.Exit(1)
	}

	// Initialize metrics manager
	metricsCfg := metrics.DefaultConfig()
	metricsCfg.Enabled = cfg.Metrics.Enabled
	metricsCfg.Port = cfg.Metrics.Port
	metricsCfg.Path = cfg.Metrics.Path
	metricsManager := metrics.NewManager(metricsCfg)

	// Start metrics server if enabled
	if metricsManager.Enabled() {
		go func() {
			log.Info("Starting metrics server", "port", cfg.Metrics.Port, "path", cfg.Metrics.Path)
			if err := metricsManager.StartServer(ctx, cfg.Metrics.Port, cfg.Metrics.Path); err != nil {
				log.Error("Metrics server error", "error", err)
			}
		}()
	}

	// Initialize the embedding provider
	embedder, err := embedding.New(cfg.Embedding.Provider, cfg.Embedding.BaseURL, cfg.Embedding.Model, cfg.Memory.Dimension)
	if err != nil {
		log.Error("Failed to create embedder", "error", err)
		os.Exit(1)
	}
	embedder = embedding.WithMetrics(embedder, metricsManager)
	log.Info("Initialized embedding provider",
		"provider", cfg.Embedding.Provider,
		"dimension", cfg.Memory.Dimension,
	)

	// Initialize the session registry
	params := memory.Params{
		Dimension:    cfg.Memory.Dimension,
		RRFK:         cfg.Memory.RRFK,
		RecencyDecay: cfg.Memory.RecencyDecay,
		BM25K1:       cfg.Memory.BM25K1,
		BM25B:        cfg.Memory.BM25B,
		Weights: memory.Weights{
			BM25:       cfg.Memory.Weights.BM25,
			Vector:     cfg.Memory.Weights.Vector,
			Recency:    cfg.Memory.Weights.Recency,
			Importance: cfg.Memory.Weights.Importance,
		},
	}
	registry, err := session.NewRegistry(params, embedder, cfg.Checkpoint.Dir,
		session.WithRegistryLogger(log),
		session.WithRegistryCheckpointInterval(cfg.Session.CheckpointInterval),
		session.WithRegistryMaxCheckpoints(cfg.Checkpoint.MaxCheckpoints),
	)
	if err != nil {
		log.Error("Failed to create session registry", "error", err)
		os.Exit(1)
	}
	if cfg.Checkpoint.Dir != "" {
		log.Info("Checkpointing enabled", "dir", cfg.Checkpoint.Dir, "max_checkpoints", cfg.Checkpoint.MaxCheckpoints)
	} else {
		log.Warn("Checkpointing disabled: no checkpoint directory configured")
	}

	// Initialize event streaming
	broadcaster := events.NewBroadcaster()
	wsHandler := handlers.NewWebSocketHandler(log, handlers.WebSocketConfig{
		AllowedOrigins: cfg.Server.CORS.AllowedOrigins,
	})

	// Forward in-process events to websocket subscribers.
	eventCh := broadcaster.Subscribe(64)
	go func() {
		for event := range eventCh {
			_ = wsHandler.Broadcast(handlers.EventMessage{
				Type:      event.Type,
				Timestamp: event.Timestamp,
				Payload:   event.Payload,
			})
		}
	}()

	// Initialize HTTP server with handlers
	memoryHandler := handlers.NewMemoryHandler(registry, broadcaster, metricsManager, log)
	checkpointHandler := handlers.NewCheckpointHandler(registry, broadcaster, metricsManager, log)
	healthHandler := handlers.NewHealthHandler(registry)

	apiHandlers := &api.Handlers{
		Memory:     memoryHandler,
		Checkpoint: checkpointHandler,
		Health:     healthHandler,
		WebSocket:  wsHandler,
		Metrics:    metricsManager,
	}

	httpServer := api.NewHTTPServer(cfg, log, apiHandlers)

	// Start HTTP server in a separate goroutine
	serverErrChan := make(chan error, 1)
	go func() {
		log.Info("Starting HTTP server", "address", fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port))
		if err := httpServer.Start(); err != nil {
			serverErrChan <- err
		}
	}()

	log.Info("Recall is running",
		"http_port", cfg.Server.Port,
		"metrics_port", cfg.Metrics.Port,
	)
	log.Info("Press Ctrl+C to stop")

	// Wait for shutdown signal or server error
	select {
	case sig := <-sigChan:
		log.Info("Received shutdown signal", "signal", sig)
	case err := <-serverErrChan:
		log.Error("HTTP server error", "error", err)
	case <-ctx.Done():
		log.Info("Context cancelled")
	}

	// Graceful shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.HTTP.ShutdownTimeout)
	defer shutdownCancel()

	// Shutdown HTTP server first
	log.Info("Shutting down HTTP server")
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error("Error shutting down HTTP server", "error", err)
	}

	// Stop event streaming
	broadcaster.Close()
	wsHandler.Close()

	// Flush traces
	if err := shutdownTracing(shutdownCtx); err != nil {
		log.Error("Error shutting down tracing", "error", err)
	}

	log.Info("Recall stopped gracefully")
}

func buildOverrides() map[string]interface{} {
	overrides := make(map[string]interface{})

	if *appName != "" {
		overrides["app.name"] = *appName
	}
	if *serverPort != 0 {
		overrides["server.port"] = *serverPort
	}
	if *logLevel != "" {
		overrides["log.level"] = *logLevel
	}
	if *debugMode {
		overrides["app.debug"] = true
	}

	return overrides
}

func printVersion() {
	fmt.Printf("Recall - Hybrid Memory Retrieval Engine\n")
	fmt.Printf("Version:    %s\n", version.Version)
	fmt.Printf("Commit:     %s\n", version.Commit)
	fmt.Printf("Build Date: %s\n", version.BuildDate)
}

func printHelp() {
	fmt.Printf("Recall - Hybrid memory retrieval engine with BM25, vector, recency and importance fusion\n\n")
	fmt.Printf("Usage: recall [options]\n\n")
	fmt.Printf("Options:\n")
	flag.PrintDefaults()
	fmt.Printf("\nExamples:\n")
	fmt.Printf("  recall                                    # Run with default config\n")
	fmt.Printf("  recall -config config.yaml                # Use specific config file\n")
	fmt.Printf("  recall -port 9090 -log-level debug        # Override specific options\n")
	fmt.Printf("  recall -version                           # Print version info\n")
}
