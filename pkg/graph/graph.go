// Package graph holds the in-memory directed multigraph of authentication
// events. The graph is always a deterministic function of the edge
// collection it was built from: Build on a slice of edges and a sequence
// of Insert calls in the same order produce identical graphs.
package graph

import (
	"github.com/dd0wney/cluso-sentinel/pkg/model"
)

// nodeInfo carries the derived attributes of a vertex. Privilege is the
// maximum tier seen across all edges touching the node, so a later
// low-privilege event never downgrades it.
type nodeInfo struct {
	id        string
	privilege float64
	hostID    string
}

// Graph is a directed multigraph keyed by string node ID. Node IDs are
// interned to dense indices so adjacency lists are plain int slices.
// Graph is not safe for concurrent mutation; the dispatcher serializes
// inserts.
type Graph struct {
	index map[string]int // node ID → arena index
	nodes []nodeInfo
	edges []model.AuthEdge

	outEdges [][]int // arena index → indices into edges, insertion order
	inEdges  [][]int

	outNeighbors [][]int          // arena index → successor indices, first-seen order
	outSeen      []map[int]bool   // dedup sets backing outNeighbors
}

// New returns an empty graph.
func New() *Graph {
	return &Graph{index: make(map[string]int)}
}

// Build constructs a graph from an ordered edge collection. It is pure and
// total: every well-formed edge is inserted, duplicates and parallel edges
// included.
func Build(edges []model.AuthEdge) *Graph {
	g := New()
	for _, e := range edges {
		g.Insert(e)
	}
	return g
}

// Insert appends one edge to the graph, creating both endpoint nodes if
// they are not present yet.
func (g *Graph) Insert(e model.AuthEdge) {
	src := g.intern(e.SrcNodeID, e.SrcPrivilege, e.HostID)
	dst := g.intern(e.DstNodeID, e.DstPrivilege, e.HostID)

	edgeIdx := len(g.edges)
	g.edges = append(g.edges, e)

	g.outEdges[src] = append(g.outEdges[src], edgeIdx)
	g.inEdges[dst] = append(g.inEdges[dst], edgeIdx)

	if !g.outSeen[src][dst] {
		g.outSeen[src][dst] = true
		g.outNeighbors[src] = append(g.outNeighbors[src], dst)
	}
}

// intern returns the arena index for nodeID, allocating it on first sight
// and raising the stored privilege tier to the maximum seen.
func (g *Graph) intern(nodeID string, privilege float64, hostID string) int {
	if idx, ok := g.index[nodeID]; ok {
		if privilege > g.nodes[idx].privilege {
			g.nodes[idx].privilege = privilege
		}
		return idx
	}
	idx := len(g.nodes)
	g.index[nodeID] = idx
	g.nodes = append(g.nodes, nodeInfo{id: nodeID, privilege: privilege, hostID: hostID})
	g.outEdges = append(g.outEdges, nil)
	g.inEdges = append(g.inEdges, nil)
	g.outNeighbors = append(g.outNeighbors, nil)
	g.outSeen = append(g.outSeen, make(map[int]bool))
	return idx
}

// HasNode reports whether nodeID appears in the graph.
func (g *Graph) HasNode(nodeID string) bool {
	_, ok := g.index[nodeID]
	return ok
}

// NodeCount returns the number of distinct vertices.
func (g *Graph) NodeCount() int { return len(g.nodes) }

// EdgeCount returns the number of edges, parallel edges included.
func (g *Graph) EdgeCount() int { return len(g.edges) }

// NodeIDs returns all vertex IDs in first-seen order.
func (g *Graph) NodeIDs() []string {
	ids := make([]string, len(g.nodes))
	for i, n := range g.nodes {
		ids[i] = n.id
	}
	return ids
}

// NodePrivilege returns the maximum privilege tier observed for a node.
func (g *Graph) NodePrivilege(nodeID string) (float64, bool) {
	idx, ok := g.index[nodeID]
	if !ok {
		return 0, false
	}
	return g.nodes[idx].privilege, true
}

// NodeHost returns the host a node was first observed on.
func (g *Graph) NodeHost(nodeID string) (string, bool) {
	idx, ok := g.index[nodeID]
	if !ok {
		return "", false
	}
	return g.nodes[idx].hostID, true
}

// OutNeighbors returns the distinct successor IDs of nodeID in first-seen
// order. The order is stable for a given insertion sequence, which keeps
// DFS path enumeration deterministic.
func (g *Graph) OutNeighbors(nodeID string) []string {
	idx, ok := g.index[nodeID]
	if !ok {
		return nil
	}
	out := make([]string, len(g.outNeighbors[idx]))
	for i, n := range g.outNeighbors[idx] {
		out[i] = g.nodes[n].id
	}
	return out
}

// OutEdges returns every edge leaving nodeID in insertion order.
func (g *Graph) OutEdges(nodeID string) []model.AuthEdge {
	idx, ok := g.index[nodeID]
	if !ok {
		return nil
	}
	out := make([]model.AuthEdge, len(g.outEdges[idx]))
	for i, e := range g.outEdges[idx] {
		out[i] = g.edges[e]
	}
	return out
}

// InEdges returns every edge arriving at nodeID in insertion order.
func (g *Graph) InEdges(nodeID string) []model.AuthEdge {
	idx, ok := g.index[nodeID]
	if !ok {
		return nil
	}
	out := make([]model.AuthEdge, len(g.inEdges[idx]))
	for i, e := range g.inEdges[idx] {
		out[i] = g.edges[e]
	}
	return out
}

// EdgesBetween returns all parallel edges from src to dst in insertion
// order. Empty when no such edge exists.
func (g *Graph) EdgesBetween(src, dst string) []model.AuthEdge {
	idx, ok := g.index[src]
	if !ok {
		return nil
	}
	var out []model.AuthEdge
	for _, e := range g.outEdges[idx] {
		if g.edges[e].DstNodeID == dst {
			out = append(out, g.edges[e])
		}
	}
	return out
}

// Edges returns the full edge collection in insertion order.
func (g *Graph) Edges() []model.AuthEdge {
	out := make([]model.AuthEdge, len(g.edges))
	copy(out, g.edges)
	return out
}
