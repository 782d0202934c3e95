// Package config provides configuration management for the annotation
// server and worker processes.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/genome-trait-server/internal/database"
)

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
}

// DatabaseConfig holds PostgreSQL settings.
type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	Database        string        `mapstructure:"database"`
	Username        string        `mapstructure:"username"`
	Password        string        `mapstructure:"password"`
	SSLMode         string        `mapstructure:"ssl_mode"`
	MaxConns        int32         `mapstructure:"max_conns"`
	MinConns        int32         `mapstructure:"min_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
	MigrationsPath  string        `mapstructure:"migrations_path"`
}

// RedisConfig holds queue and cache transport settings.
type RedisConfig struct {
	URL         string        `mapstructure:"url"`
	QueueKey    string        `mapstructure:"queue_key"`
	PoolSize    int           `mapstructure:"pool_size"`
	PoolTimeout time.Duration `mapstructure:"pool_timeout"`
	MaxRetries  int           `mapstructure:"max_retries"`
	CacheTTL    time.Duration `mapstructure:"cache_ttl"`
}

// AnalysisConfig holds pipeline tuning.
type AnalysisConfig struct {
	BatchSize    int           `mapstructure:"batch_size"`
	Workers      int           `mapstructure:"workers"`
	QueryTimeout time.Duration `mapstructure:"query_timeout"`
	CacheSize    int           `mapstructure:"cache_size"`
	JobTimeout   time.Duration `mapstructure:"job_timeout"`
}

// UploadConfig holds upload handling limits.
type UploadConfig struct {
	MaxFileSizeMB     int     `mapstructure:"max_file_size_mb"`
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
	Burst             int     `mapstructure:"burst"`
}

// LoggingConfig holds logger settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Config is the full process configuration.
type Config struct {
	Environment string         `mapstructure:"environment"`
	Server      ServerConfig   `mapstructure:"server"`
	Database    DatabaseConfig `mapstructure:"database"`
	Redis       RedisConfig    `mapstructure:"redis"`
	Analysis    AnalysisConfig `mapstructure:"analysis"`
	Upload      UploadConfig   `mapstructure:"upload"`
	Logging     LoggingConfig  `mapstructure:"logging"`
}

// Manager loads and validates configuration via Viper.
type Manager struct {
	config *Config
}

// NewManager creates a configuration manager.
func NewManager() (*Manager, error) {
	m := &Manager{}
	if err := m.loadConfig(); err != nil {
		return nil, fmt.Errorf("loading configuration: %w", err)
	}
	return m, nil
}

func (m *Manager) loadConfig() error {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	viper.AddConfigPath("/etc/genome-trait-server/")

	viper.SetEnvPrefix("GENOME")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	m.setDefaults()

	// The config file is optional; defaults and env vars suffice.
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("reading config file: %w", err)
		}
	}

	config := &Config{}
	if err := viper.Unmarshal(config); err != nil {
		return fmt.Errorf("unmarshaling config: %w", err)
	}

	m.config = config
	return nil
}

func (m *Manager) setDefaults() {
	viper.SetDefault("environment", "development")

	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.read_timeout", "30s")
	viper.SetDefault("server.write_timeout", "30s")
	viper.SetDefault("server.idle_timeout", "120s")

	viper.SetDefault("database.host", "localhost")
	viper.SetDefault("database.port", 5432)
	viper.SetDefault("database.database", "genome_traits")
	viper.SetDefault("database.username", "postgres")
	viper.SetDefault("database.password", "")
	viper.SetDefault("database.ssl_mode", "disable")
	viper.SetDefault("database.max_conns", 25)
	viper.SetDefault("database.min_conns", 5)
	viper.SetDefault("database.conn_max_lifetime", "1h")
	viper.SetDefault("database.conn_max_idle_time", "30m")
	viper.SetDefault("database.migrations_path", "migrations")

	viper.SetDefault("redis.url", "redis://localhost:6379")
	viper.SetDefault("redis.queue_key", "genome:analysis:jobs")
	viper.SetDefault("redis.pool_size", 10)
	viper.SetDefault("redis.pool_timeout", "4s")
	viper.SetDefault("redis.max_retries", 3)
	viper.SetDefault("redis.cache_ttl", "15m")

	viper.SetDefault("analysis.batch_size", 10000)
	viper.SetDefault("analysis.workers", 4)
	viper.SetDefault("analysis.query_timeout", "30s")
	viper.SetDefault("analysis.cache_size", 65536)
	viper.SetDefault("analysis.job_timeout", "15m")

	viper.SetDefault("upload.max_file_size_mb", 50)
	viper.SetDefault("upload.requests_per_second", 2)
	viper.SetDefault("upload.burst", 5)

	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "json")
}

// GetConfig returns the complete configuration.
func (m *Manager) GetConfig() *Config {
	return m.config
}

// DatabaseConfig converts the configured settings into the connection
// pool's config type.
func (m *Manager) DatabaseConfig() database.Config {
	db := m.config.Database
	return database.Config{
		Host:        db.Host,
		Port:        db.Port,
		Database:    db.Database,
		Username:    db.Username,
		Password:    db.Password,
		MaxConns:    db.MaxConns,
		MinConns:    db.MinConns,
		MaxConnLife: db.ConnMaxLifetime,
		MaxConnIdle: db.ConnMaxIdleTime,
		SSLMode:     db.SSLMode,
	}
}

// Reload reloads the configuration.
func (m *Manager) Reload() error {
	return m.loadConfig()
}

// Validate validates the configuration.
func (m *Manager) Validate() error {
	config := m.config

	if config.Server.Port <= 0 || config.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", config.Server.Port)
	}

	if config.Database.Host == "" {
		return fmt.Errorf("database host is required")
	}
	if config.Database.Database == "" {
		return fmt.Errorf("database name is required")
	}
	if config.Database.Username == "" {
		return fmt.Errorf("database username is required")
	}

	if config.Redis.URL == "" {
		return fmt.Errorf("redis URL is required")
	}

	if config.Analysis.BatchSize <= 0 {
		return fmt.Errorf("invalid analysis batch size: %d", config.Analysis.BatchSize)
	}
	if config.Analysis.Workers <= 0 {
		return fmt.Errorf("invalid analysis worker count: %d", config.Analysis.Workers)
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true, "fatal": true, "panic": true,
	}
	if !validLogLevels[strings.ToLower(config.Logging.Level)] {
		return fmt.Errorf("invalid log level: %s", config.Logging.Level)
	}

	return nil
}

// IsProduction returns true if running in production mode.
func (m *Manager) IsProduction() bool {
	return strings.ToLower(m.config.Environment) == "production"
}
