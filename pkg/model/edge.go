package model

import (
	"time"

	"github.com/google/uuid"
)

// EdgeType classifies how an authentication hop was made.
type EdgeType string

const (
	EdgeSSH   EdgeType = "ssh"
	EdgeKinit EdgeType = "kinit"
	EdgeSu    EdgeType = "su"
)

// RawSource identifies which ingest adapter produced an edge.
type RawSource string

const (
	SourceCrowdStrike RawSource = "crowdstrike"
	SourceUnixAuth    RawSource = "unix_auth"
)

// MetaKeytabPath is the metadata key carrying the keytab file used for a
// kinit edge.
const MetaKeytabPath = "keytab_path"

// AuthEdge is a single directed authentication event from one identity to
// another. Edges are immutable once created; they are the unit of ingestion
// and the only input the graph is built from.
type AuthEdge struct {
	ID           string         `json:"id"`
	SrcNodeID    string         `json:"src_node_id"`
	DstNodeID    string         `json:"dst_node_id"`
	EdgeType     EdgeType       `json:"edge_type"`
	SrcPrivilege float64        `json:"src_privilege"`
	DstPrivilege float64        `json:"dst_privilege"`
	Timestamp    time.Time      `json:"timestamp"`
	SessionID    string         `json:"session_id,omitempty"`
	HostID       string         `json:"host_id"`
	RawSource    RawSource      `json:"raw_source"`
	Metadata     map[string]any `json:"metadata,omitempty"`
	AuthSuccess  bool           `json:"auth_success"`
}

// NewAuthEdge returns an AuthEdge with a fresh ID and the current time.
// Callers fill in the remaining fields before handing it to the engine.
func NewAuthEdge() AuthEdge {
	return AuthEdge{
		ID:        uuid.NewString(),
		Timestamp: time.Now().UTC(),
		Metadata:  make(map[string]any),
	}
}

// KeytabPath returns the keytab file referenced by this edge, if any.
func (e *AuthEdge) KeytabPath() (string, bool) {
	if e.Metadata == nil {
		return "", false
	}
	v, ok := e.Metadata[MetaKeytabPath]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	if !ok || s == "" {
		return "", false
	}
	return s, true
}

// NodeKind distinguishes account vertices from host vertices.
type NodeKind string

const (
	NodeAccount NodeKind = "account"
	NodeHost    NodeKind = "host"
)

// KindOfNode infers a node's kind from its ID prefix ("account:" vs
// "host:"). Unprefixed IDs are treated as accounts.
func KindOfNode(nodeID string) NodeKind {
	if len(nodeID) >= 5 && nodeID[:5] == "host:" {
		return NodeHost
	}
	return NodeAccount
}
