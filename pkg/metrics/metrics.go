// Package metrics holds the Prometheus registry for the detector.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Registry holds all metrics for the application.
type Registry struct {
	// HTTP metrics
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge

	// Ingest / dispatch metrics
	EdgesIngestedTotal  *prometheus.CounterVec
	DispatchDuration    prometheus.Histogram
	DispatchesTotal     *prometheus.CounterVec
	DetectionDuration   *prometheus.HistogramVec
	DetectionErrors     *prometheus.CounterVec
	AlertsFiredTotal    *prometheus.CounterVec

	// Graph metrics
	GraphNodesTotal prometheus.Gauge
	GraphEdgesTotal prometheus.Gauge

	// Enrichment metrics
	EnrichmentRefreshTotal    *prometheus.CounterVec
	EnrichmentSnapshotAge     prometheus.Gauge
	EnrichmentVaultHosts      prometheus.Gauge
	EnrichmentCriticalAccounts prometheus.Gauge

	registry *prometheus.Registry
}

var (
	defaultRegistry *Registry
	once            sync.Once
)

// DefaultRegistry returns the global metrics registry.
func DefaultRegistry() *Registry {
	once.Do(func() {
		defaultRegistry = NewRegistry()
	})
	return defaultRegistry
}

// NewRegistry creates a new metrics registry with all metrics initialized.
func NewRegistry() *Registry {
	reg := prometheus.NewRegistry()

	r := &Registry{
		registry: reg,
	}

	r.initHTTPMetrics()
	r.initEngineMetrics()
	r.initEnrichmentMetrics()

	return r
}

// GetPrometheusRegistry returns the underlying Prometheus registry.
func (r *Registry) GetPrometheusRegistry() *prometheus.Registry {
	return r.registry
}
