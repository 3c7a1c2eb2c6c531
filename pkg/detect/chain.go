package detect

import (
	"context"
	"fmt"

	"github.com/dd0wney/cluso-sentinel/pkg/config"
	"github.com/dd0wney/cluso-sentinel/pkg/enrichment"
	"github.com/dd0wney/cluso-sentinel/pkg/graph"
	"github.com/dd0wney/cluso-sentinel/pkg/model"
)

// AuthChain is Detection C: walks the auth graph from the new edge's
// destination node and fires once for every simple path longer than the
// configured hop threshold. The walk is an iterative DFS with an explicit
// frame stack, so deep or adversarial graphs cannot exhaust the call
// stack. A node already on the current path is never extended, which
// bounds the walk on cyclic graphs.
type AuthChain struct {
	cfg config.ChainConfig
}

// NewAuthChain creates Detection C with the given config.
func NewAuthChain(cfg config.ChainConfig) *AuthChain {
	return &AuthChain{cfg: cfg}
}

func (d *AuthChain) Type() model.DetectionType { return model.DetectAuthChain }

func (d *AuthChain) Enabled() bool { return true }

func (d *AuthChain) Detect(_ context.Context, edge model.AuthEdge, g *graph.Graph, _ *enrichment.Snapshot) ([]model.DetectionResult, error) {
	if g.NodeCount() > d.cfg.MaxGraphNodes {
		// Safety bail-out: graph too large to walk on the request path.
		return nil, nil
	}

	origin := edge.DstNodeID
	if !g.HasNode(origin) {
		return nil, nil
	}

	// Only explore paths that could exceed the limit.
	cutoff := d.cfg.MaxChainLength + 1

	var results []model.DetectionResult
	for _, path := range simplePathsFrom(g, origin, cutoff) {
		hops := len(path) - 1
		if hops <= d.cfg.MaxChainLength {
			continue
		}
		hostID, ok := g.NodeHost(origin)
		if !ok || hostID == "" {
			hostID = edge.HostID
		}
		results = append(results, model.DetectionResult{
			DetectionType: model.DetectAuthChain,
			Severity:      model.SeverityHigh,
			EdgeIDs:       collectEdgeIDs(g, path),
			NodeIDs:       path,
			HostID:        hostID,
			Description: fmt.Sprintf("Excessive auth chain from %s: %d hops (threshold: %d)",
				origin, hops, d.cfg.MaxChainLength),
			Metadata: map[string]any{
				"path":          path,
				"hop_count":     hops,
				"starting_node": origin,
			},
		})
	}
	return results, nil
}

// dfsFrame is one unit of pending traversal work.
type dfsFrame struct {
	node string
	path []string
}

// simplePathsFrom enumerates every simple path from source with at least
// one edge and at most cutoff hops. Enumeration order is deterministic
// for a given graph because neighbor order is first-seen insertion order.
func simplePathsFrom(g *graph.Graph, source string, cutoff int) [][]string {
	var paths [][]string

	stack := []dfsFrame{{node: source, path: []string{source}}}

	for len(stack) > 0 {
		frame := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if len(frame.path) > 1 {
			paths = append(paths, frame.path)
		}
		if len(frame.path)-1 >= cutoff {
			continue
		}

		onPath := make(map[string]bool, len(frame.path))
		for _, n := range frame.path {
			onPath[n] = true
		}
		for _, neighbor := range g.OutNeighbors(frame.node) {
			if onPath[neighbor] {
				continue
			}
			next := make([]string, len(frame.path)+1)
			copy(next, frame.path)
			next[len(frame.path)] = neighbor
			stack = append(stack, dfsFrame{node: neighbor, path: next})
		}
	}

	return paths
}

// collectEdgeIDs extracts one edge ID per hop; parallel edges contribute
// their earliest-inserted ID.
func collectEdgeIDs(g *graph.Graph, path []string) []string {
	ids := make([]string, 0, len(path)-1)
	for i := 0; i+1 < len(path); i++ {
		if edges := g.EdgesBetween(path[i], path[i+1]); len(edges) > 0 {
			ids = append(ids, edges[0].ID)
		}
	}
	return ids
}
