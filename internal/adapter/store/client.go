package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/sony/gobreaker/v2"

	"github.com/whenwx/forecast-timing-service/internal/domain"
	"github.com/whenwx/forecast-timing-service/internal/observability"
)

// RetryPolicy configures retry behavior for store requests.
type RetryPolicy struct {
	MaxRetries int
	MinWait    time.Duration
	MaxWait    time.Duration
}

// DefaultRetryPolicy returns the defaults used in production.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries: 3,
		MinWait:    250 * time.Millisecond,
		MaxWait:    5 * time.Second,
	}
}

// Client fetches point forecast series over HTTP from the forecast store
// service. Requests go through a circuit breaker and are retried on 429/5xx.
// The latest cycle init time is cached for a configurable TTL so the common
// query path costs one request, not two.
type Client struct {
	baseURL    string
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker[*http.Response]
	retry      RetryPolicy
	cycleTTL   time.Duration
	metrics    *observability.Metrics
	logger     *slog.Logger
	sleepFn    func(time.Duration)

	mu        sync.Mutex
	initTime  time.Time
	fetchedAt time.Time
}

// ClientOption is a functional option for configuring a Client.
type ClientOption func(*Client)

// WithSleepFunc overrides the sleep between retries. Intended for tests.
func WithSleepFunc(fn func(time.Duration)) ClientOption {
	return func(c *Client) {
		c.sleepFn = fn
	}
}

// WithRetryPolicy overrides the default retry policy.
func WithRetryPolicy(p RetryPolicy) ClientOption {
	return func(c *Client) {
		c.retry = p
	}
}

// NewClient creates a forecast store client.
func NewClient(baseURL string, timeout, cycleTTL time.Duration, metrics *observability.Metrics, logger *slog.Logger, opts ...ClientOption) *Client {
	cb := gobreaker.NewCircuitBreaker[*http.Response](gobreaker.Settings{
		Name:        "forecast-store",
		MaxRequests: 1,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures > 5
		},
	})

	c := &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
		breaker:    cb,
		retry:      DefaultRetryPolicy(),
		cycleTTL:   cycleTTL,
		metrics:    metrics,
		logger:     logger,
		sleepFn:    time.Sleep,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// cycleResponse is the store's latest-cycle payload.
type cycleResponse struct {
	InitTime time.Time `json:"init_time"`
}

// LatestInitTime returns the init time of the store's most recent forecast
// cycle. The value is cached for the configured TTL.
func (c *Client) LatestInitTime(ctx context.Context) (time.Time, error) {
	c.mu.Lock()
	if !c.initTime.IsZero() && domain.Now().Sub(c.fetchedAt) < c.cycleTTL {
		cached := c.initTime
		c.mu.Unlock()
		return cached, nil
	}
	c.mu.Unlock()

	body, err := c.get(ctx, c.baseURL+"/v1/cycles/latest")
	if err != nil {
		return time.Time{}, fmt.Errorf("latest cycle: %w", err)
	}

	var cycle cycleResponse
	if err := json.Unmarshal(body, &cycle); err != nil {
		return time.Time{}, fmt.Errorf("latest cycle: decode: %w", err)
	}
	if cycle.InitTime.IsZero() {
		return time.Time{}, fmt.Errorf("latest cycle: store returned zero init time")
	}

	c.mu.Lock()
	c.initTime = cycle.InitTime
	c.fetchedAt = domain.Now()
	c.mu.Unlock()

	return cycle.InitTime, nil
}

// Series implements SeriesProvider. Derived variables fetch each component
// store series and combine them.
func (c *Client) Series(ctx context.Context, lat, lon float64, variable string) (domain.PointSeries, error) {
	cfg, ok := domain.LookupVariable(variable)
	if !ok {
		return domain.PointSeries{}, fmt.Errorf("store: unknown variable %q", variable)
	}

	initTime, err := c.LatestInitTime(ctx)
	if err != nil {
		return domain.PointSeries{}, err
	}

	parts := make([]domain.PointSeries, 0, len(cfg.StoreVariables))
	for _, storeVar := range cfg.StoreVariables {
		pt, err := c.fetchSeries(ctx, lat, lon, storeVar, initTime)
		if err != nil {
			return domain.PointSeries{}, err
		}
		parts = append(parts, pt)
	}

	if !cfg.Derived {
		return parts[0], nil
	}

	// The only derived variable today is wind speed from 10u/10v.
	derived, err := domain.DeriveWindSpeed(parts[0].Series, parts[1].Series)
	if err != nil {
		return domain.PointSeries{}, fmt.Errorf("store: derive %s: %w", variable, err)
	}
	return domain.PointSeries{Geo: parts[0].Geo, Series: derived}, nil
}

func (c *Client) fetchSeries(ctx context.Context, lat, lon float64, storeVar string, initTime time.Time) (domain.PointSeries, error) {
	params := url.Values{
		"lat":       {strconv.FormatFloat(lat, 'f', 4, 64)},
		"lon":       {strconv.FormatFloat(lon, 'f', 4, 64)},
		"variable":  {storeVar},
		"init_time": {initTime.UTC().Format(time.RFC3339)},
	}

	body, err := c.get(ctx, c.baseURL+"/v1/series?"+params.Encode())
	if err != nil {
		return domain.PointSeries{}, fmt.Errorf("fetch %s series: %w", storeVar, err)
	}

	pt, err := domain.ParseRawSeries(domain.RawEvent{Value: body})
	if err != nil {
		return domain.PointSeries{}, fmt.Errorf("fetch %s series: %w", storeVar, err)
	}
	return pt, nil
}

// get performs a GET through the circuit breaker with retries on 429/5xx.
// 404 maps to ErrNoData; breaker-open and exhausted retries map to
// ErrUnavailable.
func (c *Client) get(ctx context.Context, fullURL string) ([]byte, error) {
	var lastStatus int

	maxAttempts := 1 + c.retry.MaxRetries
	for attempt := 0; attempt < maxAttempts; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
		if err != nil {
			return nil, fmt.Errorf("create request: %w", err)
		}

		start := time.Now()
		resp, err := c.breaker.Execute(func() (*http.Response, error) {
			r, doErr := c.httpClient.Do(req)
			if doErr != nil {
				return nil, doErr
			}
			// 429 and 5xx count as failures for the breaker.
			if r.StatusCode == http.StatusTooManyRequests || r.StatusCode >= 500 {
				return r, fmt.Errorf("store returned %d", r.StatusCode)
			}
			return r, nil
		})
		c.metrics.StoreDuration.Observe(time.Since(start).Seconds())

		if err == nil {
			defer resp.Body.Close()

			if resp.StatusCode == http.StatusNotFound {
				c.metrics.StoreFetches.WithLabelValues("error").Inc()
				io.Copy(io.Discard, resp.Body)
				return nil, ErrNoData
			}
			if resp.StatusCode != http.StatusOK {
				c.metrics.StoreFetches.WithLabelValues("error").Inc()
				body, _ := io.ReadAll(resp.Body)
				return nil, fmt.Errorf("store returned %d: %s", resp.StatusCode, body)
			}

			body, err := io.ReadAll(resp.Body)
			if err != nil {
				c.metrics.StoreFetches.WithLabelValues("error").Inc()
				return nil, fmt.Errorf("read response: %w", err)
			}
			c.metrics.StoreFetches.WithLabelValues("success").Inc()
			return body, nil
		}

		var retryAfter time.Duration
		if resp != nil {
			lastStatus = resp.StatusCode
			retryAfter = parseRetryAfter(resp.Header.Get("Retry-After"))
			io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
		}

		// Breaker open means the store has been failing; do not retry.
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			c.metrics.StoreFetches.WithLabelValues("error").Inc()
			return nil, fmt.Errorf("%w: circuit breaker open", ErrUnavailable)
		}

		if attempt < maxAttempts-1 {
			wait := c.backoff(attempt)
			if retryAfter > wait {
				wait = retryAfter
			}
			c.logger.Debug("retrying store request", "attempt", attempt+1, "status", lastStatus, "wait", wait)
			c.sleepFn(wait)
		}
	}

	c.metrics.StoreFetches.WithLabelValues("error").Inc()
	if lastStatus != 0 {
		return nil, fmt.Errorf("%w: status %d after %d attempts", ErrUnavailable, lastStatus, maxAttempts)
	}
	return nil, fmt.Errorf("%w: request failed after %d attempts", ErrUnavailable, maxAttempts)
}

func (c *Client) backoff(attempt int) time.Duration {
	wait := c.retry.MinWait << attempt
	if wait > c.retry.MaxWait {
		wait = c.retry.MaxWait
	}
	return wait
}

func parseRetryAfter(header string) time.Duration {
	if header == "" {
		return 0
	}
	seconds, err := strconv.Atoi(header)
	if err != nil || seconds <= 0 {
		return 0
	}
	return time.Duration(seconds) * time.Second
}
