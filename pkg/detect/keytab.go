package detect

import (
	"context"
	"fmt"

	"github.com/dd0wney/cluso-sentinel/pkg/config"
	"github.com/dd0wney/cluso-sentinel/pkg/enrichment"
	"github.com/dd0wney/cluso-sentinel/pkg/graph"
	"github.com/dd0wney/cluso-sentinel/pkg/model"
)

// KeytabSmuggling is Detection D: fires when a confirmed kinit success
// used a keytab that is not registered in the vault at all, or is
// registered but not expected on the host where it was used. A host with
// no vault entry is treated fail-closed: every keytab on it is
// unexpected.
type KeytabSmuggling struct {
	cfg config.KeytabSmugglingConfig
}

// NewKeytabSmuggling creates Detection D with the given config.
func NewKeytabSmuggling(cfg config.KeytabSmugglingConfig) *KeytabSmuggling {
	return &KeytabSmuggling{cfg: cfg}
}

func (d *KeytabSmuggling) Type() model.DetectionType { return model.DetectKeytabSmuggling }

func (d *KeytabSmuggling) Enabled() bool { return d.cfg.Enabled }

func (d *KeytabSmuggling) Detect(_ context.Context, edge model.AuthEdge, _ *graph.Graph, snap *enrichment.Snapshot) ([]model.DetectionResult, error) {
	if edge.EdgeType != model.EdgeKinit || !edge.AuthSuccess {
		return nil, nil
	}
	keytabPath, ok := edge.KeytabPath()
	if !ok {
		// No keytab path surfaced, nothing to evaluate.
		return nil, nil
	}

	inVault := snap.Vault.IsKeytabInVault(keytabPath)
	inExpectedLocation := snap.Vault.IsKeytabExpected(edge.HostID, keytabPath)

	if inVault && inExpectedLocation {
		return nil, nil
	}

	reason := fmt.Sprintf("keytab '%s' not expected on %s", keytabPath, edge.HostID)
	if !inVault {
		reason = "keytab not registered in vault"
	}

	isCritical := snap.Accounts.IsCritical(edge.SrcNodeID)
	severity := model.SeverityHigh
	if isCritical {
		severity = model.SeverityCritical
	}

	return []model.DetectionResult{{
		DetectionType: model.DetectKeytabSmuggling,
		Severity:      severity,
		EdgeIDs:       []string{edge.ID},
		NodeIDs:       []string{edge.SrcNodeID, edge.DstNodeID},
		HostID:        edge.HostID,
		Description: fmt.Sprintf("Keytab smuggling on %s: %s (account: %s)",
			edge.HostID, reason, edge.SrcNodeID),
		Metadata: map[string]any{
			"keytab_path":          keytabPath,
			"in_vault":             inVault,
			"in_expected_location": inExpectedLocation,
			"account_is_critical":  isCritical,
		},
	}}, nil
}
