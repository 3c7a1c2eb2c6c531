package detect

import (
	"context"
	"fmt"
	"math"

	"github.com/dd0wney/cluso-sentinel/pkg/config"
	"github.com/dd0wney/cluso-sentinel/pkg/enrichment"
	"github.com/dd0wney/cluso-sentinel/pkg/graph"
	"github.com/dd0wney/cluso-sentinel/pkg/model"
)

// PrivEsc is Detection A: fires when an edge carries a higher destination
// privilege tier than its source tier. Pure per-edge check, no state.
type PrivEsc struct {
	cfg config.PrivEscConfig
}

// NewPrivEsc creates Detection A with the given config.
func NewPrivEsc(cfg config.PrivEscConfig) *PrivEsc {
	return &PrivEsc{cfg: cfg}
}

func (d *PrivEsc) Type() model.DetectionType { return model.DetectPrivilegeEscalation }

func (d *PrivEsc) Enabled() bool { return d.cfg.Enabled }

func (d *PrivEsc) Detect(_ context.Context, edge model.AuthEdge, _ *graph.Graph, _ *enrichment.Snapshot) ([]model.DetectionResult, error) {
	delta := edge.DstPrivilege - edge.SrcPrivilege
	if delta <= 0 {
		return nil, nil
	}

	return []model.DetectionResult{{
		DetectionType: model.DetectPrivilegeEscalation,
		Severity:      d.severity(delta),
		EdgeIDs:       []string{edge.ID},
		NodeIDs:       []string{edge.SrcNodeID, edge.DstNodeID},
		HostID:        edge.HostID,
		Description: fmt.Sprintf("Privilege escalation on %s: %.2f -> %.2f (+%.2f) via %s",
			edge.HostID, edge.SrcPrivilege, edge.DstPrivilege, delta, edge.EdgeType),
		Metadata: map[string]any{
			"delta":         math.Round(delta*10000) / 10000,
			"edge_type":     string(edge.EdgeType),
			"src_privilege": edge.SrcPrivilege,
			"dst_privilege": edge.DstPrivilege,
		},
	}}, nil
}

// severity bands the privilege delta; a larger delta never maps to a
// lower severity.
func (d *PrivEsc) severity(delta float64) model.Severity {
	b := d.cfg.Bands
	switch {
	case delta < b.Medium:
		return model.SeverityLow
	case delta < b.High:
		return model.SeverityMedium
	case delta < b.Critical:
		return model.SeverityHigh
	default:
		return model.SeverityCritical
	}
}
