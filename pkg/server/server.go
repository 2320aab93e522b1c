// Package server wires the inbound HTTP surface: the health and metrics
// endpoints, the operator API, and the catch-all proxy route, behind the
// middleware chain.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"ccg-hq/gateway/pkg/api"
	"ccg-hq/gateway/pkg/config"
	"ccg-hq/gateway/pkg/gateway"
	"ccg-hq/gateway/pkg/server/middleware"
)

// Server is the gateway's HTTP server.
type Server struct {
	config       config.ServerConfig
	proxyHandler *gateway.Handler
	operatorAPI  *api.API
	registry     *prometheus.Registry

	httpServer   *http.Server
	shutdownOnce sync.Once
	mu           sync.RWMutex
	isRunning    bool
}

// NewServer creates the server around the proxy handler and operator API.
func NewServer(cfg config.ServerConfig, proxyHandler *gateway.Handler, operatorAPI *api.API, registry *prometheus.Registry) *Server {
	return &Server{
		config:       cfg,
		proxyHandler: proxyHandler,
		operatorAPI:  operatorAPI,
		registry:     registry,
	}
}

// Start starts the HTTP server and blocks until the context is cancelled,
// a shutdown signal arrives, or the listener fails.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return fmt.Errorf("server is already running")
	}
	s.isRunning = true
	s.mu.Unlock()

	s.httpServer = &http.Server{
		Addr:    s.config.ListenAddress(),
		Handler: s.Handler(),
		// No read/write timeouts here: streaming responses are bounded by
		// the gateway's own idle deadline, not the connection's.
	}

	errChan := make(chan error, 1)
	go func() {
		slog.Info("gateway listening", "address", s.config.ListenAddress())

		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- fmt.Errorf("server error: %w", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	select {
	case <-ctx.Done():
		slog.Info("context cancelled, initiating shutdown")
		return s.Shutdown(context.Background())
	case sig := <-sigChan:
		slog.Info("received shutdown signal", "signal", sig.String())
		return s.Shutdown(context.Background())
	case err := <-errChan:
		return err
	}
}

// Shutdown gracefully drains and stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		s.mu.Lock()
		if !s.isRunning {
			s.mu.Unlock()
			return
		}
		s.mu.Unlock()

		slog.Info("initiating graceful shutdown", "timeout", s.config.ShutdownTimeout.String())

		shutdownCtx, cancel := context.WithTimeout(ctx, s.config.ShutdownTimeout)
		defer cancel()

		if s.httpServer != nil {
			if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
				slog.Error("error during server shutdown", "error", err)
				shutdownErr = fmt.Errorf("server shutdown error: %w", err)
			}
		}

		s.mu.Lock()
		s.isRunning = false
		s.mu.Unlock()

		slog.Info("gateway stopped")
	})

	return shutdownErr
}

// Handler builds the full route table and middleware chain.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		fmt.Fprint(w, "ok")
	})

	if s.registry != nil {
		mux.Handle("GET /metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))
	}

	if s.operatorAPI != nil {
		s.operatorAPI.Register(mux)
	}

	// Everything else is proxied.
	mux.Handle("/", s.proxyHandler)

	var handler http.Handler = mux
	handler = middleware.CORSMiddleware(handler)
	handler = middleware.RequestIDMiddleware(handler)
	handler = middleware.LoggingMiddleware(handler)
	handler = middleware.RecoveryMiddleware(handler)

	return handler
}

// IsRunning reports whether the server is accepting requests.
func (s *Server) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}
