// Kestrel - Sector-aware fraud risk scoring.
// Copyright (c) 2025 openrisk-labs
// Licensed under the Apache License 2.0

package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/openrisk-labs/kestrel/internal/api"
	"github.com/openrisk-labs/kestrel/internal/bus"
	"github.com/openrisk-labs/kestrel/internal/cache"
	"github.com/openrisk-labs/kestrel/internal/config"
	"github.com/openrisk-labs/kestrel/internal/domain"
	"github.com/openrisk-labs/kestrel/internal/orchestrator"
	"github.com/openrisk-labs/kestrel/internal/precheck"
	"github.com/openrisk-labs/kestrel/internal/prompt"
	"github.com/openrisk-labs/kestrel/internal/provider"
	"github.com/openrisk-labs/kestrel/internal/retrieval"
	"github.com/openrisk-labs/kestrel/internal/rules"
	"github.com/openrisk-labs/kestrel/internal/worker"
	"github.com/openrisk-labs/kestrel/internal/workflow"
)

// Version information (set via ldflags)
var (
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"
)

func main() {
	// Load configuration: defaults, optional YAML file, env overrides
	cfg, err := config.Load(os.Getenv("KESTREL_CONFIG"))
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	setupLogger(cfg.Logging)

	slog.Info("starting kestrel",
		"version", Version,
		"commit", Commit,
		"build_date", BuildDate,
	)

	slog.Info("configuration loaded",
		"retrieval", cfg.Retrieval.Driver,
		"cache", cfg.Cache.Type,
		"eventbus", cfg.EventBus.Type,
		"sectors", len(cfg.Sectors),
	)

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		slog.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	// Initialize Cache
	cacheImpl, err := cache.New(cfg.Cache)
	if err != nil {
		slog.Error("failed to initialize cache", "error", err)
		os.Exit(1)
	}
	defer cacheImpl.Close()
	slog.Info("cache initialized", "type", cfg.Cache.Type)

	// Initialize pattern retrieval
	searcher, err := retrieval.New(cfg.Retrieval, cacheImpl)
	if err != nil {
		slog.Error("failed to initialize pattern retrieval", "error", err)
		os.Exit(1)
	}
	defer searcher.Close()
	slog.Info("pattern retrieval initialized", "driver", cfg.Retrieval.Driver)

	// Initialize EventBus
	busImpl, err := bus.New(cfg.EventBus)
	if err != nil {
		slog.Error("failed to initialize event bus", "error", err)
		os.Exit(1)
	}
	defer busImpl.Close()
	slog.Info("event bus initialized", "type", cfg.EventBus.Type)

	// Initialize scoring overlay engine and load configured rules
	engine, err := rules.NewEngine(100)
	if err != nil {
		slog.Error("failed to initialize rule engine", "error", err)
		os.Exit(1)
	}
	defer engine.Close()

	if err := engine.LoadRules(cfg.OverlayRules); err != nil {
		slog.Error("failed to load overlay rules", "error", err)
		os.Exit(1)
	}
	slog.Info("overlay engine initialized", "rules_count", engine.RulesCount())

	// Initialize provider registry and orchestrator
	registry := provider.NewRegistry(cfg.Providers)
	orch := orchestrator.New(registry, cfg.Retry)
	slog.Info("model orchestrator initialized", "max_retries", cfg.Retry.MaxRetries)

	// Initialize the analysis pipeline
	controller := workflow.New(workflow.Options{
		Checker:  precheck.New(cfg.SanctionedJurisdictions),
		Overlay:  engine,
		Searcher: searcher,
		Prompts:  prompt.NewBuilder(cfg.SanctionedJurisdictions),
		Orch:     orch,
		Sectors:  cfg.Sectors,
		Bus:      busImpl,
		TopK:     cfg.Retrieval.TopK,
	})

	// Initialize async worker
	asyncWorker := worker.NewWorker(busImpl, controller)
	if err := asyncWorker.Start(); err != nil {
		slog.Error("failed to start analysis worker", "error", err)
		os.Exit(1)
	}

	// Initialize Server
	srv := api.NewServer(cfg.Server, controller, searcher, cacheImpl, busImpl, engine, Version)

	// Start Server in goroutine
	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			slog.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	slog.Info("kestrel is ready",
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
	)

	printBanner(cfg, Version)

	// Wait for shutdown signal
	<-ctx.Done()
	slog.Info("shutting down...")

	// Stop async worker first
	if err := asyncWorker.Stop(); err != nil {
		slog.Error("failed to stop analysis worker", "error", err)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
	}

	slog.Info("kestrel shutdown complete")
}

func setupLogger(cfg domain.LoggingConfig) {
	level := slog.LevelInfo
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	if os.Getenv("KESTREL_DEBUG") == "true" {
		level = slog.LevelDebug
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if cfg.Format == "text" {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	slog.SetDefault(slog.New(handler))
}

func printBanner(cfg *domain.Config, version string) {
	fmt.Println()
	fmt.Println("  ╔═══════════════════════════════════════════╗")
	fmt.Println("  ║               🦅 KESTREL                  ║")
	fmt.Println("  ║      Fraud Risk Scoring Engine            ║")
	fmt.Println("  ║      A score for every sector.            ║")
	fmt.Println("  ╚═══════════════════════════════════════════╝")
	fmt.Println()
	fmt.Printf("  Version:  %s\n", version)
	fmt.Printf("  Server:   http://%s:%d\n", cfg.Server.Host, cfg.Server.Port)
	fmt.Println()
	fmt.Println("  Endpoints:")
	fmt.Println("    POST /api/v1/detect         - Score a record")
	fmt.Println("    POST /api/v1/detect/async   - Queue a record for scoring")
	fmt.Println("    POST /api/v1/patterns       - Add a fraud pattern")
	fmt.Println("    GET  /api/v1/patterns/count - Count stored patterns")
	fmt.Println("    GET  /api/v1/rules          - List overlay rules")
	fmt.Println("    POST /api/v1/rules          - Load an overlay rule")
	fmt.Println("    GET  /health                - Health check")
	fmt.Println()
}
