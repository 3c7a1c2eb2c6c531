package detect

import (
	"testing"
	"time"

	"github.com/dd0wney/cluso-sentinel/pkg/enrichment"
	"github.com/dd0wney/cluso-sentinel/pkg/model"
)

var testBaseTime = time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

func edgeAt(src, dst string, edgeType model.EdgeType, ts time.Time) model.AuthEdge {
	e := model.NewAuthEdge()
	e.SrcNodeID = src
	e.DstNodeID = dst
	e.EdgeType = edgeType
	e.HostID = "host:web-01"
	e.Timestamp = ts
	e.AuthSuccess = true
	return e
}

func sshEdge(src, dst string, srcPriv, dstPriv float64) model.AuthEdge {
	e := edgeAt(src, dst, model.EdgeSSH, testBaseTime)
	e.SrcPrivilege = srcPriv
	e.DstPrivilege = dstPriv
	return e
}

func kinitEdge(src, dst, keytabPath string) model.AuthEdge {
	e := edgeAt(src, dst, model.EdgeKinit, testBaseTime)
	e.HostID = dst
	if keytabPath != "" {
		e.Metadata = map[string]any{model.MetaKeytabPath: keytabPath}
	}
	return e
}

func testSnapshot(t *testing.T) *enrichment.Snapshot {
	t.Helper()
	return &enrichment.Snapshot{
		Vault: enrichment.NewVaultCache(enrichment.VaultData{
			"host:web-01": {"/etc/keytabs/web.keytab"},
			"host:db-01":  {"/etc/keytabs/db.keytab"},
		}),
		Accounts: enrichment.NewAccountsCache(enrichment.AccountsData{
			"account:root": {
				AccountID:   "account:root",
				AccountType: enrichment.AccountRoot,
				IsCritical:  true,
			},
			"account:alice": {
				AccountID:   "account:alice",
				AccountType: enrichment.AccountHuman,
				IsCritical:  false,
			},
		}),
	}
}
