package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds all service settings, populated from environment variables.
// Both binaries share one config: the API server ignores the Kafka settings
// and the worker ignores the HTTP query settings.
type Config struct {
	HTTPAddr        string        `envconfig:"HTTP_ADDR" default:":8080"`
	LogLevel        string        `envconfig:"LOG_LEVEL" default:"info"`
	LogFormat       string        `envconfig:"LOG_FORMAT" default:"json"`
	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"10s"`

	// Query API.
	CORSOrigins        []string      `envconfig:"CORS_ORIGINS" default:"*"`
	RateLimitPerMinute int           `envconfig:"RATE_LIMIT_PER_MINUTE" default:"5"`
	CacheTTL           time.Duration `envconfig:"CACHE_TTL" default:"5m"`
	DemoMode           bool          `envconfig:"DEMO_MODE" default:"false"`

	// Forecast store.
	StoreBaseURL  string        `envconfig:"STORE_BASE_URL" default:"http://localhost:9000"`
	StoreTimeout  time.Duration `envconfig:"STORE_TIMEOUT" default:"15s"`
	StoreCycleTTL time.Duration `envconfig:"STORE_CYCLE_TTL" default:"5m"`

	// Redis (query cache and rate limit counters).
	RedisAddr     string `envconfig:"REDIS_ADDR" default:"localhost:6379"`
	RedisPassword string `envconfig:"REDIS_PASSWORD" default:""`
	RedisDB       int    `envconfig:"REDIS_DB" default:"0"`

	// Mapbox geocoding.
	MapboxToken     string        `envconfig:"MAPBOX_TOKEN" default:""`
	MapboxTimeout   time.Duration `envconfig:"MAPBOX_TIMEOUT" default:"5s"`
	MapboxCacheSize int           `envconfig:"MAPBOX_CACHE_SIZE" default:"1000"`

	// Kafka (worker pipeline).
	KafkaBrokers       []string      `envconfig:"KAFKA_BROKERS" default:"localhost:9092"`
	KafkaSourceTopic   string        `envconfig:"KAFKA_SOURCE_TOPIC" default:"forecast-point-series"`
	KafkaSinkTopic     string        `envconfig:"KAFKA_SINK_TOPIC" default:"event-timings"`
	KafkaGroupID       string        `envconfig:"KAFKA_GROUP_ID" default:"forecast-timing-worker"`
	BatchSize          int           `envconfig:"BATCH_SIZE" default:"50"`
	BatchFlushInterval time.Duration `envconfig:"BATCH_FLUSH_INTERVAL" default:"500ms"`
}

// Load reads configuration from environment variables, applying defaults where
// unset, and validates the result.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	if cfg.ShutdownTimeout <= 0 {
		return nil, errors.New("SHUTDOWN_TIMEOUT must be positive")
	}
	if cfg.RateLimitPerMinute <= 0 {
		return nil, errors.New("RATE_LIMIT_PER_MINUTE must be positive")
	}
	if cfg.CacheTTL <= 0 {
		return nil, errors.New("CACHE_TTL must be positive")
	}
	if cfg.StoreTimeout <= 0 || cfg.StoreCycleTTL <= 0 {
		return nil, errors.New("STORE_TIMEOUT and STORE_CYCLE_TTL must be positive")
	}
	if cfg.MapboxTimeout <= 0 {
		return nil, errors.New("MAPBOX_TIMEOUT must be positive")
	}
	if cfg.MapboxCacheSize <= 0 {
		return nil, errors.New("MAPBOX_CACHE_SIZE must be positive")
	}
	if !cfg.DemoMode && cfg.StoreBaseURL == "" {
		return nil, errors.New("STORE_BASE_URL is required outside demo mode")
	}
	if len(cfg.KafkaBrokers) == 0 {
		return nil, errors.New("KAFKA_BROKERS is required")
	}
	if cfg.KafkaSourceTopic == "" {
		return nil, errors.New("KAFKA_SOURCE_TOPIC is required")
	}
	if cfg.KafkaSinkTopic == "" {
		return nil, errors.New("KAFKA_SINK_TOPIC is required")
	}
	if cfg.BatchSize <= 0 {
		return nil, errors.New("BATCH_SIZE must be positive")
	}
	if cfg.BatchFlushInterval <= 0 {
		return nil, errors.New("BATCH_FLUSH_INTERVAL must be positive")
	}

	return &cfg, nil
}

// GeocodingEnabled reports whether place-name queries can be served.
func (c *Config) GeocodingEnabled() bool {
	return c.MapboxToken != ""
}
