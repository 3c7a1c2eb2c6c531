package ingest

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/dd0wney/cluso-sentinel/pkg/model"
)

// FalconEvent is the subset of a CrowdStrike Falcon event stream payload
// the detector consumes.
type FalconEvent struct {
	EventID      string    `json:"event_id"`
	EventType    string    `json:"event_type"` // e.g. "UserLogon", "SudoCommand"
	SrcAccount   string    `json:"src_account"`
	DstAccount   string    `json:"dst_account"`
	Hostname     string    `json:"hostname"`
	RemoteHost   string    `json:"remote_host,omitempty"`
	Process      string    `json:"process,omitempty"`
	CommandLine  string    `json:"command_line,omitempty"`
	SrcPrivilege float64   `json:"src_privilege"`
	DstPrivilege float64   `json:"dst_privilege"`
	Timestamp    time.Time `json:"timestamp"`
	Success      bool      `json:"success"`
}

// CrowdStrike normalizes Falcon events into auth edges.
type CrowdStrike struct{}

// NewCrowdStrike creates the Falcon adapter.
func NewCrowdStrike() *CrowdStrike { return &CrowdStrike{} }

// NormalizeJSON decodes a raw Falcon payload and normalizes it.
func (c *CrowdStrike) NormalizeJSON(data []byte) (model.AuthEdge, error) {
	var ev FalconEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		return model.AuthEdge{}, fmt.Errorf("failed to decode falcon event: %w", err)
	}
	return c.Normalize(ev)
}

// Normalize converts one Falcon event into an AuthEdge.
func (c *CrowdStrike) Normalize(ev FalconEvent) (model.AuthEdge, error) {
	edge := newEdge(model.SourceCrowdStrike, ev.Timestamp)
	edge.HostID = "host:" + ev.Hostname
	edge.SrcPrivilege = ev.SrcPrivilege
	edge.DstPrivilege = ev.DstPrivilege
	edge.AuthSuccess = ev.Success
	edge.Metadata["falcon_event_id"] = ev.EventID
	if ev.Process != "" {
		edge.Metadata["process"] = ev.Process
	}
	if ev.CommandLine != "" {
		edge.Metadata["command_line"] = ev.CommandLine
	}

	switch ev.EventType {
	case "SudoCommand", "UserImpersonation":
		edge.EdgeType = model.EdgeSu
		edge.SrcNodeID = "account:" + ev.SrcAccount
		edge.DstNodeID = "account:" + ev.DstAccount
	case "RemoteLogon":
		edge.EdgeType = model.EdgeSSH
		edge.SrcNodeID = "host:" + ev.Hostname
		edge.DstNodeID = "host:" + ev.RemoteHost
		edge.Metadata["remote_host"] = ev.RemoteHost
	case "UserLogon":
		edge.EdgeType = model.EdgeSSH
		edge.SrcNodeID = "account:" + ev.SrcAccount
		edge.DstNodeID = "host:" + ev.Hostname
	default:
		return model.AuthEdge{}, fmt.Errorf("unsupported falcon event type %q", ev.EventType)
	}

	if err := ValidateEdge(&edge); err != nil {
		return model.AuthEdge{}, err
	}
	return edge, nil
}
