// Package rediscache backs the query result cache and the per-IP rate
// limiter with Redis.
package rediscache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/whenwx/forecast-timing-service/internal/config"
)

// NewRedisClient builds a go-redis client from config and verifies
// connectivity.
func NewRedisClient(ctx context.Context, cfg *config.Config) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return client, nil
}

// QueryCache stores serialized query responses keyed by the quantized query
// parameters. Entries expire after the configured TTL so results never
// outlive a forecast cycle refresh.
type QueryCache struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewQueryCache creates a query result cache.
func NewQueryCache(rdb *redis.Client, ttl time.Duration) *QueryCache {
	return &QueryCache{rdb: rdb, ttl: ttl}
}

// QueryKey builds the cache key for a timing query. Coordinates and the
// threshold are quantized to 4 decimal places so equivalent float encodings
// share an entry.
func QueryKey(lat, lon float64, variable string, threshold float64, operator string) string {
	return fmt.Sprintf("query:%.4f:%.4f:%s:%.4f:%s", lat, lon, variable, threshold, operator)
}

// Get unmarshals a cached response into dest. The second return is false on
// a miss.
func (c *QueryCache) Get(ctx context.Context, key string, dest any) (bool, error) {
	data, err := c.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("cache get: %w", err)
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return false, fmt.Errorf("cache get: decode: %w", err)
	}
	return true, nil
}

// Set stores a response under key for the cache TTL.
func (c *QueryCache) Set(ctx context.Context, key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("cache set: encode: %w", err)
	}
	if err := c.rdb.Set(ctx, key, data, c.ttl).Err(); err != nil {
		return fmt.Errorf("cache set: %w", err)
	}
	return nil
}
