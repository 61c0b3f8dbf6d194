// Package server exposes the assistant over HTTP for the browser extension.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"go.opentelemetry.io/otel/trace"

	"video-assistant/internal/assistant"
	"video-assistant/internal/telemetry"
)

// ServiceName is reported by the health endpoint
const ServiceName = "YouTube AI Assistant API"

const (
	defaultMaxBodyBytes = 64 * 1024
	shutdownTimeout     = 10 * time.Second
)

// Config configures the HTTP server
type Config struct {
	Addr           string
	Assistant      *assistant.Assistant
	AllowedOrigins []string
	MaxBodyBytes   int64

	Tracer  trace.Tracer
	Metrics *telemetry.Metrics
	Logger  *slog.Logger
}

// Server is the HTTP front of the assistant
type Server struct {
	cfg    Config
	logger *slog.Logger
}

// New creates a server
func New(cfg Config) *Server {
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = defaultMaxBodyBytes
	}
	if cfg.Tracer == nil {
		cfg.Tracer = telemetry.Noop().Tracer
	}
	if cfg.Metrics == nil {
		cfg.Metrics = telemetry.NoopMetrics()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Server{
		cfg:    cfg,
		logger: logger.With(slog.String("component", "server")),
	}
}

// Handler returns the routed and wrapped handler
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /ask", s.handleAsk)
	mux.HandleFunc("GET /transcript/{videoID}", s.handleTranscript)
	mux.HandleFunc("GET /conversations/{videoID}/{userID}", s.handleConversation)
	mux.HandleFunc("DELETE /conversations/{videoID}/{userID}", s.handleClearConversation)
	mux.HandleFunc("GET /memory/stats", s.handleMemoryStats)
	mux.HandleFunc("POST /memory/cleanup", s.handleMemoryCleanup)
	mux.HandleFunc("GET /health", s.handleHealth)

	return chain(mux,
		Instrument(s.cfg.Tracer, s.cfg.Metrics, s.logger),
		CORS(s.cfg.AllowedOrigins),
		LimitBody(s.cfg.MaxBodyBytes),
	)
}

// Run serves until ctx is done, then shuts down gracefully
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", slog.String("addr", s.cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("listen on %s: %w", s.cfg.Addr, err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	s.logger.Info("shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
