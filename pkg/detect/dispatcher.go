package detect

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/dd0wney/cluso-sentinel/pkg/config"
	"github.com/dd0wney/cluso-sentinel/pkg/enrichment"
	"github.com/dd0wney/cluso-sentinel/pkg/graph"
	"github.com/dd0wney/cluso-sentinel/pkg/logging"
	"github.com/dd0wney/cluso-sentinel/pkg/metrics"
	"github.com/dd0wney/cluso-sentinel/pkg/model"
	"github.com/dd0wney/cluso-sentinel/pkg/pubsub"
)

// AlertTopic is the pubsub topic fired alerts are published on.
const AlertTopic = "alerts"

// Dispatcher orchestrates the detections for each ingested edge: update
// the auth graph, fetch the current enrichment snapshot, run every
// enabled detection in fixed order, and aggregate fired alerts. A failing
// detection is isolated: it is logged and counted, and the remaining
// detections still run.
//
// The update-graph-then-detect pipeline is serialized process-wide, so a
// dispatch always observes a consistent graph. This trades throughput for
// correctness, which is acceptable at the edge volumes the detector
// targets.
type Dispatcher struct {
	mu         sync.Mutex
	graph      *graph.Graph
	detections []Detection
	enrich     *enrichment.Manager
	logger     logging.Logger
	metrics    *metrics.Registry
	bus        *pubsub.PubSub
}

// NewDispatcher wires the four detections in their fixed order. bus may
// be nil when no in-process subscriber is interested in fired alerts.
func NewDispatcher(cfg config.AppConfig, enrich *enrichment.Manager, logger logging.Logger, reg *metrics.Registry, bus *pubsub.PubSub) *Dispatcher {
	return &Dispatcher{
		graph: graph.New(),
		detections: []Detection{
			NewPrivEsc(cfg.PrivilegeEscalation),
			NewAuthBurst(cfg.AuthBurst, NewBurstState()),
			NewAuthChain(cfg.AuthChain),
			NewKeytabSmuggling(cfg.KeytabSmuggling),
		},
		enrich:  enrich,
		logger:  logger,
		metrics: reg,
		bus:     bus,
	}
}

// Warm seeds the live graph from the persisted edge history. Call once at
// startup before serving ingests.
func (d *Dispatcher) Warm(edges []model.AuthEdge) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.graph = graph.Build(edges)
	d.metrics.GraphNodesTotal.Set(float64(d.graph.NodeCount()))
	d.metrics.GraphEdgesTotal.Set(float64(d.graph.EdgeCount()))
}

// Graph returns the live graph. The returned value must only be read.
func (d *Dispatcher) Graph() *graph.Graph {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.graph
}

// GraphNodeCount reports the live node count without handing out the
// graph. Safe to call concurrently with Dispatch.
func (d *Dispatcher) GraphNodeCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.graph.NodeCount()
}

// Dispatch inserts the new edge into the graph and runs all enabled
// detections against it. The returned alerts are in stable detection
// order (A, B, C, D). The caller persists them.
//
// Once the edge has been inserted and Detection B's window mutated, the
// work is not rolled back on caller cancellation.
func (d *Dispatcher) Dispatch(ctx context.Context, edge model.AuthEdge) ([]model.Alert, error) {
	start := time.Now()

	snap, err := d.enrich.Current()
	if err != nil {
		d.metrics.DispatchesTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("dispatch rejected: %w", err)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	d.graph.Insert(edge)
	d.metrics.GraphNodesTotal.Set(float64(d.graph.NodeCount()))
	d.metrics.GraphEdgesTotal.Set(float64(d.graph.EdgeCount()))

	var alerts []model.Alert
	for _, det := range d.detections {
		if !det.Enabled() {
			continue
		}
		results := d.runDetection(ctx, det, edge, snap)
		for _, r := range results {
			alert := model.NewAlert(r)
			alerts = append(alerts, alert)
			d.metrics.AlertsFiredTotal.WithLabelValues(string(r.DetectionType), r.Severity.String()).Inc()
			d.logger.Info("alert fired",
				logging.String("detection", string(r.DetectionType)),
				logging.String("severity", r.Severity.String()),
				logging.String("host_id", r.HostID),
				logging.String("edge_id", edge.ID),
			)
			if d.bus != nil {
				d.bus.Publish(AlertTopic, alert)
			}
		}
	}

	d.metrics.DispatchesTotal.WithLabelValues("ok").Inc()
	d.metrics.DispatchDuration.Observe(time.Since(start).Seconds())
	return alerts, nil
}

// runDetection evaluates one detection, converting a panic or error into
// an isolated internal failure so the remaining detections still run.
func (d *Dispatcher) runDetection(ctx context.Context, det Detection, edge model.AuthEdge, snap *enrichment.Snapshot) (results []model.DetectionResult) {
	name := string(det.Type())
	start := time.Now()
	defer func() {
		d.metrics.DetectionDuration.WithLabelValues(name).Observe(time.Since(start).Seconds())
		if r := recover(); r != nil {
			results = nil
			d.metrics.DetectionErrors.WithLabelValues(name).Inc()
			d.logger.Error("detection panicked",
				logging.String("detection", name),
				logging.String("panic", fmt.Sprint(r)),
				logging.String("edge_id", edge.ID),
			)
		}
	}()

	results, err := det.Detect(ctx, edge, d.graph, snap)
	if err != nil {
		d.metrics.DetectionErrors.WithLabelValues(name).Inc()
		d.logger.Error("detection failed",
			logging.String("detection", name),
			logging.Error(err),
			logging.String("edge_id", edge.ID),
		)
		return nil
	}
	return results
}
