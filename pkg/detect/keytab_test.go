package detect

import (
	"context"
	"testing"

	"github.com/dd0wney/cluso-sentinel/pkg/config"
	"github.com/dd0wney/cluso-sentinel/pkg/graph"
	"github.com/dd0wney/cluso-sentinel/pkg/model"
)

func newKeytabSmuggling() *KeytabSmuggling {
	return NewKeytabSmuggling(config.KeytabSmugglingConfig{Enabled: true})
}

func TestKeytabSmuggling_ExpectedKeytabSilent(t *testing.T) {
	d := newKeytabSmuggling()
	edge := kinitEdge("account:alice", "host:web-01", "/etc/keytabs/web.keytab")

	results, err := d.Detect(context.Background(), edge, graph.New(), testSnapshot(t))
	if err != nil {
		t.Fatalf("Detect() error = %v", err)
	}
	if len(results) != 0 {
		t.Errorf("Detect() fired on an expected keytab: %+v", results)
	}
}

func TestKeytabSmuggling_UnregisteredKeytab(t *testing.T) {
	d := newKeytabSmuggling()
	edge := kinitEdge("account:alice", "host:web-01", "/tmp/stolen.keytab")

	results, err := d.Detect(context.Background(), edge, graph.New(), testSnapshot(t))
	if err != nil {
		t.Fatalf("Detect() error = %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("Detect() returned %d results, want 1", len(results))
	}

	r := results[0]
	if r.Severity != model.SeverityHigh {
		t.Errorf("Severity = %s, want high", r.Severity)
	}
	if r.Metadata["in_vault"] != false {
		t.Error("in_vault = true for unregistered keytab")
	}
	wantDesc := "Keytab smuggling on host:web-01: keytab not registered in vault (account: account:alice)"
	if r.Description != wantDesc {
		t.Errorf("Description = %q, want %q", r.Description, wantDesc)
	}
}

func TestKeytabSmuggling_WrongHost(t *testing.T) {
	d := newKeytabSmuggling()
	// db keytab used on the web host: registered, but misplaced.
	edge := kinitEdge("account:alice", "host:web-01", "/etc/keytabs/db.keytab")

	results, err := d.Detect(context.Background(), edge, graph.New(), testSnapshot(t))
	if err != nil {
		t.Fatalf("Detect() error = %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("Detect() returned %d results, want 1", len(results))
	}

	r := results[0]
	if r.Metadata["in_vault"] != true {
		t.Error("in_vault = false for a registered keytab")
	}
	if r.Metadata["in_expected_location"] != false {
		t.Error("in_expected_location = true on the wrong host")
	}
}

func TestKeytabSmuggling_HostWithoutVaultEntryFailsClosed(t *testing.T) {
	d := newKeytabSmuggling()
	// host:bastion has no vault entry, so even a registered keytab is
	// unexpected there.
	edge := kinitEdge("account:alice", "host:bastion", "/etc/keytabs/web.keytab")

	results, err := d.Detect(context.Background(), edge, graph.New(), testSnapshot(t))
	if err != nil {
		t.Fatalf("Detect() error = %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("Detect() returned %d results, want 1 (fail-closed)", len(results))
	}
}

func TestKeytabSmuggling_CriticalAccountEscalates(t *testing.T) {
	d := newKeytabSmuggling()
	edge := kinitEdge("account:root", "host:web-01", "/tmp/stolen.keytab")

	results, err := d.Detect(context.Background(), edge, graph.New(), testSnapshot(t))
	if err != nil {
		t.Fatalf("Detect() error = %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("Detect() returned %d results, want 1", len(results))
	}
	if results[0].Severity != model.SeverityCritical {
		t.Errorf("Severity = %s, want critical for a critical account", results[0].Severity)
	}
}

func TestKeytabSmuggling_GateConditions(t *testing.T) {
	d := newKeytabSmuggling()
	snap := testSnapshot(t)

	failedKinit := kinitEdge("account:alice", "host:web-01", "/tmp/stolen.keytab")
	failedKinit.AuthSuccess = false

	sshWithKeytab := kinitEdge("account:alice", "host:web-01", "/tmp/stolen.keytab")
	sshWithKeytab.EdgeType = model.EdgeSSH

	noKeytab := kinitEdge("account:alice", "host:web-01", "")

	for _, tc := range []struct {
		name string
		edge model.AuthEdge
	}{
		{"failed kinit", failedKinit},
		{"non-kinit edge", sshWithKeytab},
		{"kinit without keytab path", noKeytab},
	} {
		t.Run(tc.name, func(t *testing.T) {
			results, err := d.Detect(context.Background(), tc.edge, graph.New(), snap)
			if err != nil {
				t.Fatalf("Detect() error = %v", err)
			}
			if len(results) != 0 {
				t.Errorf("Detect() fired: %+v", results)
			}
		})
	}
}
