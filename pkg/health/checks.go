package health

import (
	"context"
	"fmt"
	"time"
)

// DatabaseCheck reports connectivity of a store backend.
func DatabaseCheck(ping func(ctx context.Context) error) CheckFunc {
	return func() Check {
		check := Check{Name: "database"}

		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()

		if err := ping(ctx); err != nil {
			check.Status = StatusUnhealthy
			check.Message = err.Error()
		} else {
			check.Status = StatusHealthy
			check.Message = "Connected"
		}
		return check
	}
}

// EnrichmentCheck reports readiness and staleness of the enrichment
// snapshot. The snapshot is degraded once it is older than three refresh
// intervals, meaning at least two consecutive refreshes have failed.
func EnrichmentCheck(ready func() bool, lastRefreshed func() time.Time, interval time.Duration) CheckFunc {
	return func() Check {
		check := Check{Name: "enrichment", Details: make(map[string]any)}

		if !ready() {
			check.Status = StatusUnhealthy
			check.Message = "Initial enrichment load not complete"
			return check
		}

		age := time.Since(lastRefreshed())
		check.Details["snapshot_age_seconds"] = int(age.Seconds())

		if age > 3*interval {
			check.Status = StatusDegraded
			check.Message = fmt.Sprintf("Snapshot stale (%s old)", age.Round(time.Second))
		} else {
			check.Status = StatusHealthy
			check.Message = "Snapshot current"
		}
		return check
	}
}

// GraphCheck reports the size of the live auth graph. The graph is
// degraded once it approaches the chain-detection bail-out cap, since
// Detection C stops walking beyond it.
func GraphCheck(nodeCount func() int, maxGraphNodes int) CheckFunc {
	return func() Check {
		check := Check{Name: "graph", Details: make(map[string]any)}

		nodes := nodeCount()
		check.Details["nodes"] = nodes
		check.Details["max_graph_nodes"] = maxGraphNodes

		switch {
		case nodes > maxGraphNodes:
			check.Status = StatusDegraded
			check.Message = "Graph exceeds chain-detection cap; auth_chain is bailing out"
		case nodes > maxGraphNodes*9/10:
			check.Status = StatusDegraded
			check.Message = "Graph approaching chain-detection cap"
		default:
			check.Status = StatusHealthy
		}
		return check
	}
}
