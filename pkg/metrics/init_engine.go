package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func (r *Registry) initEngineMetrics() {
	r.EdgesIngestedTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "sentinel_edges_ingested_total",
			Help: "Total number of auth edges ingested",
		},
		[]string{"raw_source", "edge_type"},
	)

	r.DispatchDuration = promauto.With(r.registry).NewHistogram(
		prometheus.HistogramOpts{
			Name:    "sentinel_dispatch_duration_seconds",
			Help:    "End-to-end dispatch duration (graph update plus all detections)",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0},
		},
	)

	r.DispatchesTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "sentinel_dispatches_total",
			Help: "Total number of dispatch calls",
		},
		[]string{"status"},
	)

	r.DetectionDuration = promauto.With(r.registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sentinel_detection_duration_seconds",
			Help:    "Per-detection evaluation duration",
			Buckets: []float64{0.0001, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5},
		},
		[]string{"detection"},
	)

	r.DetectionErrors = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "sentinel_detection_errors_total",
			Help: "Detections that failed and were isolated by the dispatcher",
		},
		[]string{"detection"},
	)

	r.AlertsFiredTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "sentinel_alerts_fired_total",
			Help: "Alerts fired by detection type and severity",
		},
		[]string{"detection", "severity"},
	)

	r.GraphNodesTotal = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "sentinel_graph_nodes_total",
			Help: "Distinct nodes in the auth graph",
		},
	)

	r.GraphEdgesTotal = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "sentinel_graph_edges_total",
			Help: "Edges in the auth graph, parallel edges included",
		},
	)
}

func (r *Registry) initEnrichmentMetrics() {
	r.EnrichmentRefreshTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "sentinel_enrichment_refresh_total",
			Help: "Enrichment refresh attempts by outcome",
		},
		[]string{"status"},
	)

	r.EnrichmentSnapshotAge = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "sentinel_enrichment_snapshot_age_seconds",
			Help: "Age of the currently published enrichment snapshot",
		},
	)

	r.EnrichmentVaultHosts = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "sentinel_enrichment_vault_hosts",
			Help: "Hosts with vault keytab entries in the current snapshot",
		},
	)

	r.EnrichmentCriticalAccounts = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "sentinel_enrichment_critical_accounts",
			Help: "Accounts in the critical-account catalogue in the current snapshot",
		},
	)
}
