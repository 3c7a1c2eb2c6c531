// Package api exposes the detector over HTTP: event ingestion, alert
// queries and acknowledgement, enrichment status, health, and metrics.
// Transport detail stays here; the engine packages know nothing about
// HTTP.
package api

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dd0wney/cluso-sentinel/pkg/config"
	"github.com/dd0wney/cluso-sentinel/pkg/detect"
	"github.com/dd0wney/cluso-sentinel/pkg/enrichment"
	"github.com/dd0wney/cluso-sentinel/pkg/health"
	"github.com/dd0wney/cluso-sentinel/pkg/logging"
	"github.com/dd0wney/cluso-sentinel/pkg/metrics"
	"github.com/dd0wney/cluso-sentinel/pkg/store"
)

// Server is the HTTP API server.
type Server struct {
	dispatcher *detect.Dispatcher
	edges      store.EdgeStore
	alerts     store.AlertStore
	enrich     *enrichment.Manager
	checker    *health.Checker
	logger     logging.Logger
	metrics    *metrics.Registry
	cfg        config.AppConfig
}

// NewServer creates the API server around an already-wired engine.
func NewServer(
	dispatcher *detect.Dispatcher,
	edges store.EdgeStore,
	alerts store.AlertStore,
	enrich *enrichment.Manager,
	checker *health.Checker,
	logger logging.Logger,
	reg *metrics.Registry,
	cfg config.AppConfig,
) *Server {
	return &Server{
		dispatcher: dispatcher,
		edges:      edges,
		alerts:     alerts,
		enrich:     enrich,
		checker:    checker,
		logger:     logger,
		metrics:    reg,
		cfg:        cfg,
	}
}

// Handler builds the full route table with middleware applied.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /ingest/event", s.handleIngest)
	mux.HandleFunc("GET /alerts", s.handleListAlerts)
	mux.HandleFunc("GET /alerts/{id}", s.handleGetAlert)
	mux.HandleFunc("POST /alerts/{id}/ack", s.handleAckAlert)
	mux.HandleFunc("GET /enrichment/status", s.handleEnrichmentStatus)

	mux.HandleFunc("GET /health", s.checker.HTTPHandler())
	mux.HandleFunc("GET /health/ready", s.checker.ReadinessHandler())
	mux.HandleFunc("GET /health/live", s.checker.LivenessHandler())
	mux.Handle("GET /metrics", promhttp.HandlerFor(
		s.metrics.GetPrometheusRegistry(),
		promhttp.HandlerOpts{},
	))

	return s.panicRecoveryMiddleware(s.loggingMiddleware(s.metricsMiddleware(mux)))
}
