// Command api serves the forecast timing query API: given a location and a
// threshold condition (or a named event), it reports when the condition first
// occurs in the latest forecast cycle, how long it lasts, and when it occurs
// next.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/whenwx/forecast-timing-service/internal/adapter/geocode"
	"github.com/whenwx/forecast-timing-service/internal/adapter/httpapi"
	"github.com/whenwx/forecast-timing-service/internal/adapter/rediscache"
	"github.com/whenwx/forecast-timing-service/internal/adapter/store"
	"github.com/whenwx/forecast-timing-service/internal/config"
	"github.com/whenwx/forecast-timing-service/internal/domain"
	"github.com/whenwx/forecast-timing-service/internal/observability"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	var provider store.SeriesProvider
	if cfg.DemoMode {
		provider = store.NewDemoProvider()
		logger.Info("demo mode enabled, serving synthetic forecasts")
	} else {
		provider = store.NewClient(cfg.StoreBaseURL, cfg.StoreTimeout, cfg.StoreCycleTTL, metrics, logger)
		logger.Info("forecast store client configured", "base_url", cfg.StoreBaseURL)
	}

	// Redis backs the query cache and rate limit counters. If it is
	// unreachable the API still serves queries, uncached and unlimited.
	var cache *rediscache.QueryCache
	var limiter rediscache.RateLimitStore
	connectCtx, cancelConnect := context.WithTimeout(context.Background(), 5*time.Second)
	rdb, err := rediscache.NewRedisClient(connectCtx, cfg)
	cancelConnect()
	if err != nil {
		logger.Warn("redis unavailable, query cache and rate limiting disabled", "error", err)
	} else {
		cache = rediscache.NewQueryCache(rdb, cfg.CacheTTL)
		limiter = rediscache.NewRateLimiter(rdb)
		logger.Info("redis connected", "addr", cfg.RedisAddr, "cache_ttl", cfg.CacheTTL)
	}

	// Geocoding is feature-flagged via MAPBOX_TOKEN.
	var geocoder domain.Geocoder
	if cfg.GeocodingEnabled() {
		client := geocode.NewClient(cfg.MapboxToken, cfg.MapboxTimeout, metrics, logger)
		geocoder = geocode.NewCachedGeocoder(client, cfg.MapboxCacheSize, metrics)
		metrics.GeocodeEnabled.Set(1)
		logger.Info("geocoding enabled", "cache_size", cfg.MapboxCacheSize, "timeout", cfg.MapboxTimeout)
	} else {
		logger.Info("geocoding disabled")
	}

	timezones, err := httpapi.NewTimezoneResolver()
	if err != nil {
		logger.Warn("timezone resolver unavailable, responses omit local timezone", "error", err)
	}

	srv := httpapi.NewServer(cfg, httpapi.Dependencies{
		Provider:  provider,
		Cache:     cache,
		RateLimit: limiter,
		Geocoder:  geocoder,
		Timezones: timezones,
		Metrics:   metrics,
		Logger:    logger,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if rdb != nil {
		if err := rdb.Close(); err != nil {
			logger.Error("redis close error", "error", err)
		}
	}

	logger.Info("shutdown complete")
}
