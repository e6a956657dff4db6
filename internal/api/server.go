// Package api hosts match sessions over HTTP. The engine itself is pure; this
// package owns the committed state of each match and feeds it back to the
// resolver one play at a time.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/MJE43/gridiron-dice/internal/config"
	"github.com/MJE43/gridiron-dice/internal/match"
	"github.com/MJE43/gridiron-dice/internal/play"
)

const (
	shutdownGrace         = 5 * time.Second
	defaultRequestTimeout = 10 * time.Second
	defaultMaxSessions    = 256
)

// Server handles HTTP requests
type Server struct {
	sessions     *Registry
	resolver     play.Resolver
	errorHandler *ErrorHandler
	logger       *zap.Logger
	metrics      *Metrics
	cfg          config.Config
	startTime    time.Time
}

// NewServer creates a new API server
func NewServer(cfg config.Config, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("api")
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = defaultRequestTimeout
	}
	if cfg.MaxSessions <= 0 {
		cfg.MaxSessions = defaultMaxSessions
	}

	s := &Server{
		sessions:     NewRegistry(cfg.MaxSessions),
		resolver:     play.Resolver{Entries: match.UUIDSource{}},
		errorHandler: NewErrorHandler(logger),
		logger:       logger,
		metrics:      NewMetrics(),
		cfg:          cfg,
		startTime:    time.Now(),
	}

	logger.Info("server initialised",
		zap.String("engine_version", EngineVersion),
		zap.String("state_version", match.Version),
		zap.Int("max_sessions", cfg.MaxSessions),
	)
	return s
}

// Routes sets up the HTTP routes with proper middleware
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.LoggingMiddleware)
	r.Use(s.errorHandler.RecoveryHandler)
	r.Use(middleware.Timeout(s.cfg.RequestTimeout))
	r.Use(s.CORSMiddleware)

	r.Get("/health", s.handleHealthCheck)
	r.Get("/health/live", s.handleLiveness)
	r.Get("/metrics", s.handleMetrics)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/rules", s.handleRules)
		r.Get("/matches", s.handleListMatches)
		r.Post("/matches", s.handleCreateMatch)
		r.Get("/matches/{id}", s.handleGetMatch)
		r.Delete("/matches/{id}", s.handleDeleteMatch)
		r.Post("/matches/{id}/plays", s.handlePlay)
		r.Post("/matches/{id}/chaos", s.handleChaos)
	})

	return r
}

// Serve answers requests on ln until ctx is cancelled, then drains in-flight
// requests.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.Routes(),
		ReadHeaderTimeout: s.cfg.RequestTimeout,
		ReadTimeout:       s.cfg.RequestTimeout,
		WriteTimeout:      2 * s.cfg.RequestTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", zap.String("addr", ln.Addr().String()))
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	s.logger.Info("shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// ListenAndServe binds cfg.Addr and serves until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// writeJSON writes a JSON response with proper headers
func (s *Server) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Engine-Version", EngineVersion)
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Error("encode response", zap.Error(err))
	}
}
