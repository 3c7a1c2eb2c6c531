package detect

import (
	"context"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/dd0wney/cluso-sentinel/pkg/config"
	"github.com/dd0wney/cluso-sentinel/pkg/graph"
	"github.com/dd0wney/cluso-sentinel/pkg/model"
)

func newPrivEsc() *PrivEsc {
	return NewPrivEsc(config.Default().PrivilegeEscalation)
}

func TestPrivEsc_NoEscalationNoResult(t *testing.T) {
	d := newPrivEsc()
	g := graph.New()
	snap := testSnapshot(t)

	for _, tc := range []struct {
		name     string
		src, dst float64
	}{
		{"equal tiers", 0.5, 0.5},
		{"downgrade", 0.8, 0.2},
	} {
		t.Run(tc.name, func(t *testing.T) {
			edge := sshEdge("account:alice", "host:web-01", tc.src, tc.dst)
			results, err := d.Detect(context.Background(), edge, g, snap)
			if err != nil {
				t.Fatalf("Detect() error = %v", err)
			}
			if len(results) != 0 {
				t.Errorf("Detect() fired on non-escalation: %+v", results)
			}
		})
	}
}

func TestPrivEsc_SeverityBands(t *testing.T) {
	d := newPrivEsc()
	g := graph.New()
	snap := testSnapshot(t)

	tests := []struct {
		name     string
		src, dst float64
		want     model.Severity
	}{
		{"small delta is low", 0.1, 0.25, model.SeverityLow},
		{"medium band", 0.1, 0.4, model.SeverityMedium},
		{"high band", 0.1, 0.7, model.SeverityHigh},
		{"critical band", 0.1, 0.95, model.SeverityCritical},
		{"critical at full jump", 0.0, 1.0, model.SeverityCritical},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			edge := sshEdge("account:alice", "host:web-01", tc.src, tc.dst)
			results, err := d.Detect(context.Background(), edge, g, snap)
			if err != nil {
				t.Fatalf("Detect() error = %v", err)
			}
			if len(results) != 1 {
				t.Fatalf("Detect() returned %d results, want 1", len(results))
			}
			if results[0].Severity != tc.want {
				t.Errorf("Severity = %s, want %s", results[0].Severity, tc.want)
			}
		})
	}
}

func TestPrivEsc_ResultShape(t *testing.T) {
	d := newPrivEsc()
	edge := sshEdge("account:alice", "host:web-01", 0.2, 0.9)

	results, err := d.Detect(context.Background(), edge, graph.New(), testSnapshot(t))
	if err != nil {
		t.Fatalf("Detect() error = %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("Detect() returned %d results, want 1", len(results))
	}

	r := results[0]
	if r.DetectionType != model.DetectPrivilegeEscalation {
		t.Errorf("DetectionType = %s", r.DetectionType)
	}
	if len(r.EdgeIDs) != 1 || r.EdgeIDs[0] != edge.ID {
		t.Errorf("EdgeIDs = %v, want [%s]", r.EdgeIDs, edge.ID)
	}
	if r.HostID != edge.HostID {
		t.Errorf("HostID = %s, want %s", r.HostID, edge.HostID)
	}
	if r.Metadata["delta"] != 0.7 {
		t.Errorf("Metadata[delta] = %v, want 0.7", r.Metadata["delta"])
	}
}

func TestPrivEsc_Disabled(t *testing.T) {
	cfg := config.Default().PrivilegeEscalation
	cfg.Enabled = false
	d := NewPrivEsc(cfg)
	if d.Enabled() {
		t.Error("Enabled() = true for disabled detection")
	}
}

// Severity is monotonic in the privilege delta: a larger jump never maps
// to a lower severity.
func TestPrivEsc_SeverityMonotonic_Property(t *testing.T) {
	d := newPrivEsc()

	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("larger delta never lowers severity", prop.ForAll(
		func(a, b float64) bool {
			lo, hi := a, b
			if lo > hi {
				lo, hi = hi, lo
			}
			return d.severity(lo) <= d.severity(hi)
		},
		gen.Float64Range(0, 1),
		gen.Float64Range(0, 1),
	))

	properties.TestingRun(t)
}
