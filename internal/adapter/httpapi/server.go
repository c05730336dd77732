// Package httpapi exposes the timing query API: resolve a threshold
// condition at a point against the latest forecast cycle and report when it
// first occurs, for how long, and when it occurs next.
package httpapi

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/whenwx/forecast-timing-service/internal/adapter/rediscache"
	"github.com/whenwx/forecast-timing-service/internal/adapter/store"
	"github.com/whenwx/forecast-timing-service/internal/config"
	"github.com/whenwx/forecast-timing-service/internal/domain"
	"github.com/whenwx/forecast-timing-service/internal/observability"
)

// ReadinessChecker reports whether the service is ready to serve traffic.
type ReadinessChecker interface {
	CheckReadiness(ctx context.Context) error
}

// Dependencies carries the collaborators the server routes requests to.
// Cache, RateLimit, Geocoder, and Timezones are optional; missing ones
// disable the corresponding behavior rather than failing requests.
type Dependencies struct {
	Provider  store.SeriesProvider
	Cache     *rediscache.QueryCache
	RateLimit rediscache.RateLimitStore
	Geocoder  domain.Geocoder
	Timezones TimezoneResolver
	Ready     ReadinessChecker
	Metrics   *observability.Metrics
	Logger    *slog.Logger
}

// Server exposes the query API plus health, readiness, and metrics routes.
type Server struct {
	httpServer *http.Server
	deps       Dependencies
	validate   *validator.Validate
	cfg        *config.Config
	logger     *slog.Logger
}

// NewServer creates the API server and mounts all routes.
func NewServer(cfg *config.Config, deps Dependencies) *Server {
	s := &Server{
		deps:     deps,
		validate: validator.New(),
		cfg:      cfg,
		logger:   deps.Logger,
	}

	r := chi.NewRouter()
	r.Use(s.requestID)
	r.Use(s.cors)

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.With(s.rateLimit).Get("/query", s.handleQuery)
		r.Get("/events", s.handleEvents)
		r.Get("/variables", s.handleVariables)
	})

	s.httpServer = &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.deps.Ready == nil {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := s.deps.Ready.CheckReadiness(ctx); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "not ready",
			"error":  err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // best-effort response write
}

// errorBody is the envelope for all non-2xx responses.
type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorBody{Error: errorDetail{Code: code, Message: message}})
}
