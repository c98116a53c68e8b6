// Package server exposes the runner's operational HTTP API: health,
// the current device directory, and Prometheus metrics. An embedding
// host does not use this package; it exists for the standalone runner.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/soltegren/poedeck/internal/deckmod"
	"github.com/soltegren/poedeck/internal/version"
)

// Server is the runner's operational HTTP server.
type Server struct {
	httpServer *http.Server
	module     *deckmod.Module
	metrics    *prometheus.Registry
	logger     *zap.Logger
	mux        *http.ServeMux
}

// New creates a new Server instance serving the given module's state
// and metrics on addr.
func New(addr string, module *deckmod.Module, logger *zap.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		module:  module,
		metrics: prometheus.NewRegistry(),
		logger:  logger,
		mux:     mux,
	}

	s.metrics.MustRegister(module.Metrics().Collectors()...)
	s.registerRoutes()

	return s
}

// registerRoutes sets up the API and metrics routes.
func (s *Server) registerRoutes() {
	s.mux.HandleFunc("GET /api/v1/health", s.handleHealth)
	s.mux.HandleFunc("GET /api/v1/devices", s.handleDevices)
	s.mux.HandleFunc("/api/", s.handleUnknown)
	s.mux.Handle("GET /metrics", promhttp.HandlerFor(s.metrics, promhttp.HandlerOpts{}))
}

// Start begins serving HTTP requests.
func (s *Server) Start() error {
	s.logger.Info("starting HTTP server", zap.String("addr", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("HTTP server error: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP server")
	return s.httpServer.Shutdown(ctx)
}

// handleHealth returns the runner health status.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Poedeck-Version", version.Short())
	json.NewEncoder(w).Encode(map[string]interface{}{
		"status":  "ok",
		"service": "poedeck",
		"version": version.Map(),
	})
}

// handleDevices returns the device directory of the active controller
// session.
func (s *Server) handleDevices(w http.ResponseWriter, r *http.Request) {
	devices, ok := s.module.Devices()
	if !ok {
		ServiceUnavailable(w, "module has no active controller session", r.URL.Path)
		return
	}

	type deviceResponse struct {
		MAC   string `json:"mac"`
		Kind  string `json:"kind"`
		Name  string `json:"name"`
		Model string `json:"model,omitempty"`
	}
	out := make([]deviceResponse, 0, len(devices))
	for _, d := range devices {
		out = append(out, deviceResponse{
			MAC:   d.MAC,
			Kind:  string(d.Kind),
			Name:  d.Name,
			Model: d.Model,
		})
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Poedeck-Version", version.Short())
	json.NewEncoder(w).Encode(out)
}

// handleUnknown keeps unknown API paths on the problem+json contract
// instead of the plain-text default.
func (s *Server) handleUnknown(w http.ResponseWriter, r *http.Request) {
	NotFound(w, "no such endpoint", r.URL.Path)
}
