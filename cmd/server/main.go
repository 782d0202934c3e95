package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"

	"github.com/genome-trait-server/internal/api"
	"github.com/genome-trait-server/internal/config"
	"github.com/genome-trait-server/internal/database"
	"github.com/genome-trait-server/internal/queue"
	"github.com/genome-trait-server/internal/results"
	"github.com/genome-trait-server/pkg/cache"
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
	log.Printf("Starting genome trait server on %s:%d", cfg.Server.Host, cfg.Server.Port)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		log.Println("Shutdown signal received, gracefully shutting down...")
		cancel()
	}()

	dbConfig := configManager.DatabaseConfig()
	db, err := database.NewConnection(ctx, dbConfig, logger)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	migrator, err := database.NewMigrationRunner(dbConfig.URL(), cfg.Database.MigrationsPath, logger)
	if err != nil {
		log.Fatalf("Failed to initialize migrations: %v", err)
	}
	if err := migrator.Up(ctx); err != nil {
		log.Fatalf("Failed to apply migrations: %v", err)
	}
	migrator.Close()

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

	server := api.NewServer(api.Options{
		Store:    results.NewPostgresStore(db.Pool, logger),
		Jobs:     queue.New(redisClient, cfg.Redis.QueueKey, logger),
		Progress: queue.NewProgressPublisher(redisClient),
		Cache:    cache.NewWithClient(redisClient, cfg.Redis.CacheTTL),
		Upload:   cfg.Upload,
		Logger:   logger,
		Debug:    !configManager.IsProduction(),
	})

	if err := server.Start(ctx, cfg.Server); err != nil {
		log.Fatalf("Server failed: %v", err)
	}

	log.Println("Server stopped")
}
