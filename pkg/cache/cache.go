// Package cache provides a Redis-backed read cache for finished analysis
// views, shielding the results store from repeated polling while a user
// browses category pages.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/genome-trait-server/internal/domain"
)

// Config holds cache client settings.
type Config struct {
	RedisURL    string
	PoolSize    int
	PoolTimeout time.Duration
	MaxRetries  int
	DefaultTTL  time.Duration
}

// Client wraps a Redis client with typed get/set helpers.
type Client struct {
	redis      *redis.Client
	defaultTTL time.Duration
}

// New creates a cache client and verifies connectivity.
func New(config Config) (*Client, error) {
	opts, err := redis.ParseURL(config.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("parsing Redis URL: %w", err)
	}

	if config.PoolSize > 0 {
		opts.PoolSize = config.PoolSize
	}
	if config.PoolTimeout > 0 {
		opts.PoolTimeout = config.PoolTimeout
	}
	if config.MaxRetries > 0 {
		opts.MaxRetries = config.MaxRetries
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connecting to Redis: %w", err)
	}

	ttl := config.DefaultTTL
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}

	return &Client{
		redis:      client,
		defaultTTL: ttl,
	}, nil
}

// NewWithClient wraps an existing Redis client, used when the API shares
// one connection pool between the queue and the cache.
func NewWithClient(client *redis.Client, defaultTTL time.Duration) *Client {
	if defaultTTL <= 0 {
		defaultTTL = 15 * time.Minute
	}
	return &Client{redis: client, defaultTTL: defaultTTL}
}

// Redis exposes the underlying client for collaborators that need raw
// access (the job queue, the progress pub/sub).
func (c *Client) Redis() *redis.Client {
	return c.redis
}

func analysisKey(id string) string {
	return "genome:analysis:record:" + id
}

func pageKey(id, category string, offset, limit int, minImportance *float64) string {
	threshold := 0.0
	if minImportance != nil {
		threshold = *minImportance
	}
	return fmt.Sprintf("genome:analysis:page:%s:%s:%d:%d:%g", id, category, offset, limit, threshold)
}

// GetAnalysis retrieves a cached analysis record. The second return value
// reports a cache hit.
func (c *Client) GetAnalysis(ctx context.Context, id string) (*domain.AnalysisRecord, bool, error) {
	val, err := c.redis.Get(ctx, analysisKey(id)).Result()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("getting cached analysis: %w", err)
	}

	var record domain.AnalysisRecord
	if err := json.Unmarshal([]byte(val), &record); err != nil {
		return nil, false, fmt.Errorf("unmarshaling cached analysis: %w", err)
	}
	return &record, true, nil
}

// SetAnalysis caches an analysis record. Only terminal states are worth
// caching; in-flight records change too quickly.
func (c *Client) SetAnalysis(ctx context.Context, record *domain.AnalysisRecord) error {
	if record.Status != domain.StatusCompleted && record.Status != domain.StatusError {
		return nil
	}

	payload, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshaling analysis record: %w", err)
	}
	if err := c.redis.Set(ctx, analysisKey(record.ID), payload, c.defaultTTL).Err(); err != nil {
		return fmt.Errorf("caching analysis record: %w", err)
	}
	return nil
}

// GetCategoryPage retrieves a cached category page.
func (c *Client) GetCategoryPage(ctx context.Context, id, category string, offset, limit int, minImportance *float64) (*domain.CategoryPage, bool, error) {
	val, err := c.redis.Get(ctx, pageKey(id, category, offset, limit, minImportance)).Result()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("getting cached page: %w", err)
	}

	var page domain.CategoryPage
	if err := json.Unmarshal([]byte(val), &page); err != nil {
		return nil, false, fmt.Errorf("unmarshaling cached page: %w", err)
	}
	return &page, true, nil
}

// SetCategoryPage caches one page of category results. Pages are only
// cached once the run is terminal; a page read mid-run would otherwise be
// served stale until the TTL expires.
func (c *Client) SetCategoryPage(ctx context.Context, id string, status domain.AnalysisStatus, page *domain.CategoryPage, minImportance *float64) error {
	if status != domain.StatusCompleted && status != domain.StatusError {
		return nil
	}

	payload, err := json.Marshal(page)
	if err != nil {
		return fmt.Errorf("marshaling category page: %w", err)
	}
	key := pageKey(id, page.Category, page.Offset, page.Limit, minImportance)
	if err := c.redis.Set(ctx, key, payload, c.defaultTTL).Err(); err != nil {
		return fmt.Errorf("caching category page: %w", err)
	}
	return nil
}

// Close releases the underlying Redis connection pool.
func (c *Client) Close() error {
	return c.redis.Close()
}
