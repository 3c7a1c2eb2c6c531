// Package detect implements the four detection algorithms and the event
// dispatcher that orchestrates them. Detections share a uniform contract:
// given the newly ingested edge, the current auth graph, and the current
// enrichment snapshot, return zero or more results. The set of detections
// is closed; the dispatcher runs them from a fixed, ordered list.
package detect

import (
	"context"

	"github.com/dd0wney/cluso-sentinel/pkg/enrichment"
	"github.com/dd0wney/cluso-sentinel/pkg/graph"
	"github.com/dd0wney/cluso-sentinel/pkg/model"
)

// Detection is the contract every detector implements.
type Detection interface {
	// Type names the detection in alerts and metrics.
	Type() model.DetectionType
	// Enabled reports whether the detection should run at all. A disabled
	// detection contributes nothing to dispatcher output or timing.
	Enabled() bool
	// Detect evaluates the new edge. Implementations must not retain the
	// snapshot beyond the call.
	Detect(ctx context.Context, edge model.AuthEdge, g *graph.Graph, snap *enrichment.Snapshot) ([]model.DetectionResult, error)
}
