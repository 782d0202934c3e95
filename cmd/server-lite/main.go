// The lite server runs the whole pipeline in one process: SQLite for the
// catalog and results, in-memory progress, no PostgreSQL or Redis.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/genome-trait-server/internal/analysis"
	"github.com/genome-trait-server/internal/api"
	"github.com/genome-trait-server/internal/catalog"
	"github.com/genome-trait-server/internal/config"
	"github.com/genome-trait-server/internal/queue"
	"github.com/genome-trait-server/internal/results"
)

func main() {
	cfg := config.LoadLiteConfig()

	if err := cfg.EnsureDataDir(); err != nil {
		log.Fatalf("Failed to create data directory: %v", err)
	}

	logger := config.NewLogger(config.LoggingConfig{
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
	})
	log.Printf("Starting genome trait server (lite) on port %d, data in %s", cfg.HTTPPort, cfg.DataDir)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		log.Println("Shutdown signal received, gracefully shutting down...")
		cancel()
	}()

	catalogStore, err := catalog.NewSQLiteStore(cfg.CatalogPath(), catalog.Config{}, logger)
	if err != nil {
		log.Fatalf("Failed to open catalog database: %v", err)
	}
	defer catalogStore.Close()

	resultsStore, err := results.NewSQLiteStore(cfg.ResultsDBPath(), logger)
	if err != nil {
		log.Fatalf("Failed to open results database: %v", err)
	}
	defer resultsStore.Close()

	analyzer := analysis.New(catalogStore, analysis.Config{
		BatchSize: cfg.BatchSize,
		Workers:   cfg.Workers,
	}, logger)

	bus := queue.NewMemoryProgressBus()
	worker := queue.NewWorker(nil, analyzer, resultsStore, bus, queue.WorkerConfig{}, logger)
	runner := queue.NewInlineRunner(worker)

	server := api.NewServer(api.Options{
		Store:    resultsStore,
		Jobs:     runner,
		Progress: bus,
		Upload:   config.UploadConfig{MaxFileSizeMB: 50},
		Logger:   logger,
	})

	if err := server.Start(ctx, config.ServerConfig{
		Host:         "127.0.0.1",
		Port:         cfg.HTTPPort,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}); err != nil {
		log.Fatalf("Server failed: %v", err)
	}

	// Let in-flight analyses finish before closing the stores.
	runner.Wait()

	log.Println("Server stopped")
}
