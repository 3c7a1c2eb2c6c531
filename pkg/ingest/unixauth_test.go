package ingest

import (
	"testing"
	"time"

	"github.com/dd0wney/cluso-sentinel/pkg/model"
)

var logTime = time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

func newTestUnixAuth() *UnixAuth {
	return NewUnixAuth("host:web-01", &StaticPrivileges{
		Tiers: map[string]float64{
			"account:alice": 0.2,
			"account:root":  1.0,
			"host:web-01":   0.5,
		},
		Default: 0.1,
	})
}

func TestUnixAuth_SSHAccepted(t *testing.T) {
	u := newTestUnixAuth()
	line := "Mar 15 12:00:00 web-01 sshd[4321]: Accepted publickey for alice from 10.0.0.5 port 55110 ssh2"

	edge, ok, err := u.Parse(line, logTime)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if !ok {
		t.Fatal("Parse() did not recognize an sshd accepted line")
	}

	if edge.EdgeType != model.EdgeSSH {
		t.Errorf("EdgeType = %s, want ssh", edge.EdgeType)
	}
	if edge.SrcNodeID != "account:alice" || edge.DstNodeID != "host:web-01" {
		t.Errorf("edge = %s -> %s", edge.SrcNodeID, edge.DstNodeID)
	}
	if edge.SrcPrivilege != 0.2 || edge.DstPrivilege != 0.5 {
		t.Errorf("privileges = %v -> %v, want 0.2 -> 0.5", edge.SrcPrivilege, edge.DstPrivilege)
	}
	if edge.Metadata["auth_method"] != "publickey" {
		t.Errorf("auth_method = %v, want publickey", edge.Metadata["auth_method"])
	}
	if edge.Metadata["source_addr"] != "10.0.0.5" {
		t.Errorf("source_addr = %v, want 10.0.0.5", edge.Metadata["source_addr"])
	}
	if !edge.Timestamp.Equal(logTime) {
		t.Errorf("Timestamp = %v, want %v", edge.Timestamp, logTime)
	}
}

func TestUnixAuth_KinitWithKeytab(t *testing.T) {
	u := newTestUnixAuth()
	line := "Mar 15 12:00:01 web-01 kinit[777]: TGT obtained for svc-deploy@EXAMPLE.COM using keytab /etc/keytabs/deploy.keytab"

	edge, ok, err := u.Parse(line, logTime)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if !ok {
		t.Fatal("Parse() did not recognize a kinit line")
	}

	if edge.EdgeType != model.EdgeKinit {
		t.Errorf("EdgeType = %s, want kinit", edge.EdgeType)
	}
	if edge.DstNodeID != "account:svc-deploy" {
		t.Errorf("DstNodeID = %s, want account:svc-deploy", edge.DstNodeID)
	}
	keytab, found := edge.KeytabPath()
	if !found || keytab != "/etc/keytabs/deploy.keytab" {
		t.Errorf("KeytabPath() = %q, %v", keytab, found)
	}
	if edge.Metadata["realm"] != "EXAMPLE.COM" {
		t.Errorf("realm = %v, want EXAMPLE.COM", edge.Metadata["realm"])
	}
}

func TestUnixAuth_KinitWithoutKeytab(t *testing.T) {
	u := newTestUnixAuth()
	line := "Mar 15 12:00:01 web-01 kinit[777]: TGT obtained for alice@EXAMPLE.COM"

	edge, ok, err := u.Parse(line, logTime)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if !ok {
		t.Fatal("Parse() did not recognize a keytab-less kinit line")
	}
	if _, found := edge.KeytabPath(); found {
		t.Error("KeytabPath() found a keytab on a password kinit")
	}
}

func TestUnixAuth_SuSession(t *testing.T) {
	u := newTestUnixAuth()
	line := "Mar 15 12:00:02 web-01 su[999]: (to root) alice on pts/1"

	edge, ok, err := u.Parse(line, logTime)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if !ok {
		t.Fatal("Parse() did not recognize an su line")
	}

	if edge.EdgeType != model.EdgeSu {
		t.Errorf("EdgeType = %s, want su", edge.EdgeType)
	}
	if edge.SrcNodeID != "account:alice" || edge.DstNodeID != "account:root" {
		t.Errorf("edge = %s -> %s, want account:alice -> account:root", edge.SrcNodeID, edge.DstNodeID)
	}
	if edge.SrcPrivilege != 0.2 || edge.DstPrivilege != 1.0 {
		t.Errorf("privileges = %v -> %v, want 0.2 -> 1.0", edge.SrcPrivilege, edge.DstPrivilege)
	}
}

func TestUnixAuth_UnrelatedLineIgnored(t *testing.T) {
	u := newTestUnixAuth()
	lines := []string{
		"Mar 15 12:00:03 web-01 CRON[100]: (root) CMD (run-parts /etc/cron.hourly)",
		"Mar 15 12:00:04 web-01 sshd[4322]: Failed password for invalid user admin from 10.0.0.9",
		"",
	}

	for _, line := range lines {
		if _, ok, err := u.Parse(line, logTime); err != nil || ok {
			t.Errorf("Parse(%q) = ok=%v err=%v, want ignored", line, ok, err)
		}
	}
}

func TestStaticPrivileges_DefaultForUnknown(t *testing.T) {
	p := &StaticPrivileges{Tiers: map[string]float64{"account:alice": 0.2}, Default: 0.05}
	if got := p.PrivilegeOf("account:ghost"); got != 0.05 {
		t.Errorf("PrivilegeOf(unknown) = %v, want default 0.05", got)
	}
	if got := p.PrivilegeOf("account:alice"); got != 0.2 {
		t.Errorf("PrivilegeOf(known) = %v, want 0.2", got)
	}
}
