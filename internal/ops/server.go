// Package ops serves the worker's operational endpoints: a liveness
// probe and the Prometheus scrape target. The listener runs beside the
// crawl and never influences the job outcome.
package ops

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Server exposes GET /healthz and GET /metrics on a dedicated address.
type Server struct {
	router chi.Router
	srv    *http.Server
	logger *zap.Logger
	addr   string
}

// New constructs a Server with its routes registered. It does not
// start listening; call Start for that.
func New(addr string, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{logger: logger}

	r := chi.NewRouter()
	r.Get("/healthz", s.healthz)
	r.Get("/metrics", promhttp.Handler().ServeHTTP)
	s.router = r

	s.srv = &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// Handler returns the router for use with httptest.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Addr returns the bound listen address. It is empty until Start
// succeeds, and resolves ":0" to the port the kernel picked.
func (s *Server) Addr() string {
	return s.addr
}

// Start binds the listener and begins serving in a background
// goroutine. The bind happens synchronously so the caller learns
// immediately when the address is unusable.
func (s *Server) Start() error {
	listener, err := net.Listen("tcp", s.srv.Addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.srv.Addr, err)
	}
	s.addr = listener.Addr().String()
	s.logger.Info("Starting ops server", zap.String("addr", s.addr))
	go func() {
		serveErr := s.srv.Serve(listener)
		if serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			s.logger.Error("Ops server failed", zap.Error(serveErr))
		}
	}()
	return nil
}

// Shutdown stops the listener and waits for in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	if err := s.srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown ops server: %w", err)
	}
	return nil
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte(`{"status":"ok"}`)); err != nil {
		s.logger.Error("Failed to write health response", zap.Error(err))
	}
}
