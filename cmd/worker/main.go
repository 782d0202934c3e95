package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"

	"github.com/genome-trait-server/internal/analysis"
	"github.com/genome-trait-server/internal/catalog"
	"github.com/genome-trait-server/internal/config"
	"github.com/genome-trait-server/internal/database"
	"github.com/genome-trait-server/internal/queue"
	"github.com/genome-trait-server/internal/results"
)

func main() {
	configManager, err := config.NewManager()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	if err := configManager.Validate(); err != nil {
		log.Fatalf("Configuration validation failed: %v", err)
	}

	cfg := configManager.GetConfig()
	logger := config.NewLogger(cfg.Logging)
	log.Println("Starting genome trait analysis worker")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		log.Println("Shutdown signal received, gracefully shutting down...")
		cancel()
	}()

	db, err := database.NewConnection(ctx, configManager.DatabaseConfig(), logger)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	redisOpts, err := redis.ParseURL(cfg.Redis.URL)
	if err != nil {
		log.Fatalf("Invalid Redis URL: %v", err)
	}
	redisOpts.PoolSize = cfg.Redis.PoolSize
	redisOpts.PoolTimeout = cfg.Redis.PoolTimeout
	redisOpts.MaxRetries = cfg.Redis.MaxRetries
	redisClient := redis.NewClient(redisOpts)
	defer redisClient.Close()

	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}

	catalogStore, err := catalog.NewPostgresStore(db.Pool, catalog.Config{
		QueryTimeout: cfg.Analysis.QueryTimeout,
		CacheSize:    cfg.Analysis.CacheSize,
	}, logger)
	if err != nil {
		log.Fatalf("Failed to create catalog store: %v", err)
	}

	resultsStore := results.NewPostgresStore(db.Pool, logger)

	// Runs abandoned by an unclean shutdown stay in a non-terminal state
	// forever; fail them on startup so clients are not left polling.
	if marked, err := resultsStore.MarkStale(ctx, 2*cfg.Analysis.JobTimeout); err != nil {
		logger.WithError(err).Warn("Failed to mark stale analyses")
	} else if marked > 0 {
		logger.WithField("count", marked).Warn("Marked stale analyses as failed")
	}

	analyzer := analysis.New(catalogStore, analysis.Config{
		BatchSize: cfg.Analysis.BatchSize,
		Workers:   cfg.Analysis.Workers,
	}, logger)

	worker := queue.NewWorker(
		queue.New(redisClient, cfg.Redis.QueueKey, logger),
		analyzer,
		resultsStore,
		queue.NewProgressPublisher(redisClient),
		queue.WorkerConfig{JobTimeout: cfg.Analysis.JobTimeout},
		logger,
	)

	if err := worker.Run(ctx); err != nil && err != context.Canceled {
		log.Fatalf("Worker failed: %v", err)
	}

	log.Println("Worker stopped")
}
