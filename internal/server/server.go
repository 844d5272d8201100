// Package server exposes the analysis pipeline over HTTP with gin.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/abelbrown/viralscope/internal/logging"
	"github.com/abelbrown/viralscope/internal/metrics"
	"github.com/abelbrown/viralscope/internal/otel"
	"github.com/abelbrown/viralscope/internal/store"
)

// Config represents server configuration
type Config struct {
	Addr         string
	Version      string
	GinMode      string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
	// RateLimit is analyze requests per second per client; 0 disables the gate
	RateLimit float64
	RateBurst int
}

// writeSlack is added on top of the analysis worst case for encoding and
// writing the response.
const writeSlack = 30 * time.Second

// DefaultConfig returns default server configuration. The WriteTimeout
// default is a floor; FitAnalysis raises it to the analysis worst case.
func DefaultConfig() Config {
	return Config{
		Addr:         ":8080",
		Version:      "dev",
		GinMode:      gin.ReleaseMode,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 5 * time.Minute,
		IdleTimeout:  120 * time.Second,
		RateLimit:    1,
		RateBurst:    5,
	}
}

// FitAnalysis raises WriteTimeout so the server does not cut off an analysis
// that can run for worst. It never lowers a longer timeout.
func (c *Config) FitAnalysis(worst time.Duration) {
	c.WriteTimeout = max(c.WriteTimeout, worst+writeSlack)
}

// Deps are the collaborators behind the handlers. Analyzer is required.
type Deps struct {
	Analyzer Analyzer
	History  History
	Saved    store.SavedStore
	Metrics  *metrics.Collector
	Events   *otel.Logger
	Ring     *otel.RingBuffer
}

// Server owns the gin engine and the HTTP listener.
type Server struct {
	cfg      Config
	engine   *gin.Engine
	analyzer Analyzer
	history  History
	saved    store.SavedStore
	metrics  *metrics.Collector
	events   *otel.Logger
	ring     *otel.RingBuffer
	gate     *Gate
	started  time.Time
}

// New builds the router with common middleware and all routes.
func New(cfg Config, deps Deps) *Server {
	if cfg.GinMode != "" {
		gin.SetMode(cfg.GinMode)
	}
	s := &Server{
		cfg:      cfg,
		analyzer: deps.Analyzer,
		history:  deps.History,
		saved:    deps.Saved,
		metrics:  deps.Metrics,
		events:   deps.Events,
		ring:     deps.Ring,
		gate:     NewGate(cfg.RateLimit, cfg.RateBurst),
		started:  time.Now(),
	}

	r := gin.New()
	r.Use(RequestID())
	r.Use(Logging())
	r.Use(Recovery())
	r.Use(CORS())
	r.Use(s.metrics.Middleware())

	r.GET("/health", s.health)
	if s.metrics != nil {
		r.GET("/metrics", s.metrics.Handler())
	}

	api := r.Group("/api")
	{
		api.GET("/providers", s.providers)
		api.GET("/posts", s.posts)
		api.POST("/analyze", s.gate.Middleware(s.metrics, s.events), s.analyze)
		api.GET("/analyses/:postId", s.analyses)
		api.GET("/saved/:user", s.listSaved)
		api.POST("/saved/:user", s.save)
		api.DELETE("/saved/:user/:id", s.deleteSaved)
		api.GET("/events", s.listEvents)
	}

	s.engine = r
	return s
}

// Handler returns the HTTP handler, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:         s.cfg.Addr,
		Handler:      s.engine,
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
		IdleTimeout:  s.cfg.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logging.Info("Starting HTTP server", "addr", s.cfg.Addr, "version", s.cfg.Version)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("listen %s: %w", s.cfg.Addr, err)
		}
		return nil
	case <-ctx.Done():
	}

	logging.Info("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	logging.Info("Server stopped")
	return nil
}
