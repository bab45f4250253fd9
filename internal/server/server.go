// Package server hosts the minimal HTTP surface of the indexer: the WebSocket
// endpoint for real-time clients and a health check. The REST query API lives
// in a separate service that reads the same tables.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/lumenfi/perpindex/internal/server/ws"
)

// Config holds the HTTP server configuration.
type Config struct {
	Host string
	Port int
}

// Pinger reports the liveness of one backing dependency.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Health aggregates the dependencies surfaced by the health endpoint.
type Health struct {
	Postgres   Pinger
	Redis      Pinger
	Checkpoint func(ctx context.Context) (uint64, error)
}

// Server is the HTTP + WebSocket server for the indexer.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
}

// NewServer creates a Server with the WebSocket hub and health check mounted.
func NewServer(cfg Config, hub *ws.Hub, health Health, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", healthHandler(health, logger))
	mux.HandleFunc("GET /ws", hub.HandleWS)

	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{
		httpServer: srv,
		logger:     logger,
	}
}

// Start begins listening for HTTP requests. It blocks until the server
// encounters an error or is shut down.
func (s *Server) Start() error {
	s.logger.Info("server: starting",
		slog.String("addr", s.httpServer.Addr),
	)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server: listen: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server, waiting for in-flight requests
// to complete within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("server: shutting down")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server: shutdown: %w", err)
	}
	return nil
}

// healthHandler reports dependency liveness and the current checkpoint.
func healthHandler(health Health, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		status := map[string]any{"status": "ok"}
		healthy := true

		if health.Postgres != nil {
			if err := health.Postgres.Ping(ctx); err != nil {
				status["postgres"] = err.Error()
				healthy = false
			} else {
				status["postgres"] = "ok"
			}
		}
		if health.Redis != nil {
			if err := health.Redis.Ping(ctx); err != nil {
				status["redis"] = err.Error()
				healthy = false
			} else {
				status["redis"] = "ok"
			}
		}
		if health.Checkpoint != nil {
			if height, err := health.Checkpoint(ctx); err == nil {
				status["last_processed_block"] = height
			}
		}

		w.Header().Set("Content-Type", "application/json")
		if !healthy {
			status["status"] = "degraded"
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		if err := json.NewEncoder(w).Encode(status); err != nil {
			logger.Error("server: write health response", slog.String("error", err.Error()))
		}
	}
}
