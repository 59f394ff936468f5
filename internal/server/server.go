package server

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/chatlytics/logmonitor/internal/health"
	"github.com/chatlytics/logmonitor/internal/logging"
)

// Server is the optional ops HTTP listener exposing /metrics and /healthz.
// The monitor itself never listens; this surface is opt-in and off by
// default.
type Server struct {
	srv    *http.Server
	logger *logging.Logger
}

// Config holds server configuration
type Config struct {
	Address  string
	Registry *prometheus.Registry
	Checker  *health.Checker
	Logger   *logging.Logger
}

// New creates a new ops server
func New(cfg Config) *Server {
	mux := http.NewServeMux()

	if cfg.Registry != nil {
		mux.Handle("/metrics", promhttp.HandlerFor(cfg.Registry, promhttp.HandlerOpts{
			EnableOpenMetrics: true,
		}))
	}
	if cfg.Checker != nil {
		mux.Handle("/healthz", cfg.Checker.Handler())
		mux.Handle("/readyz", cfg.Checker.Handler())
	}

	return &Server{
		srv: &http.Server{
			Addr:         cfg.Address,
			Handler:      mux,
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 10 * time.Second,
		},
		logger: cfg.Logger.WithComponent("server"),
	}
}

// Start starts serving in a background goroutine
func (s *Server) Start() {
	go func() {
		s.logger.Info().Str("address", s.srv.Addr).Msg("Ops server listening")
		if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error().Err(err).Msg("Ops server failed")
		}
	}()
}

// Stop shuts the server down gracefully
func (s *Server) Stop(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
