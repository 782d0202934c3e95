package config

import (
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// LiteConfig is a simplified configuration for standalone operation. It
// requires no PostgreSQL or Redis: results land in an embedded SQLite
// database and analyses run in-process.
type LiteConfig struct {
	// Data storage
	DataDir       string // Base directory for data files
	CatalogDBPath string // Pre-loaded catalog database; defaults to DataDir/catalog.db

	// Pipeline settings
	BatchSize int           // Variants per catalog round trip
	Workers   int           // Concurrent match batches
	CacheTTL  time.Duration // Result cache TTL

	// HTTP settings
	HTTPPort int

	// Logging
	LogLevel  string // debug, info, warn, error
	LogFormat string // json, text
}

// DefaultLiteConfig returns a configuration with sensible defaults.
func DefaultLiteConfig() *LiteConfig {
	homeDir, _ := os.UserHomeDir()
	dataDir := filepath.Join(homeDir, ".genome-trait-server")

	return &LiteConfig{
		DataDir:   dataDir,
		BatchSize: 10000,
		Workers:   4,
		CacheTTL:  15 * time.Minute,
		HTTPPort:  8080,
		LogLevel:  "info",
		LogFormat: "json",
	}
}

// LoadLiteConfig loads configuration from environment variables, falling
// back to defaults.
func LoadLiteConfig() *LiteConfig {
	cfg := DefaultLiteConfig()

	if v := os.Getenv("GENOME_DATA_DIR"); v != "" {
		cfg.DataDir = v
	}
	if v := os.Getenv("GENOME_CATALOG_DB"); v != "" {
		cfg.CatalogDBPath = v
	}

	if v := os.Getenv("GENOME_BATCH_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.BatchSize = n
		}
	}
	if v := os.Getenv("GENOME_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Workers = n
		}
	}
	if v := os.Getenv("GENOME_CACHE_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.CacheTTL = d
		}
	}

	if v := os.Getenv("GENOME_HTTP_PORT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.HTTPPort = n
		}
	}

	if v := os.Getenv("GENOME_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("GENOME_LOG_FORMAT"); v != "" {
		cfg.LogFormat = v
	}

	return cfg
}

// ResultsDBPath returns the path to the results SQLite database.
func (c *LiteConfig) ResultsDBPath() string {
	return filepath.Join(c.DataDir, "results.db")
}

// CatalogPath returns the configured catalog database path, defaulting to
// a catalog.db file in the data directory.
func (c *LiteConfig) CatalogPath() string {
	if c.CatalogDBPath != "" {
		return c.CatalogDBPath
	}
	return filepath.Join(c.DataDir, "catalog.db")
}

// UploadDir returns the directory for uploaded genotype files.
func (c *LiteConfig) UploadDir() string {
	return filepath.Join(c.DataDir, "uploads")
}

// EnsureDataDir creates the data directory if it doesn't exist.
func (c *LiteConfig) EnsureDataDir() error {
	if err := os.MkdirAll(c.DataDir, 0755); err != nil {
		return err
	}
	return os.MkdirAll(c.UploadDir(), 0755)
}
