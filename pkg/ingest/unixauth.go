package ingest

import (
	"regexp"
	"time"

	"github.com/dd0wney/cluso-sentinel/pkg/model"
)

// UnixAuth normalizes auth.log / PAM / kinit lines into auth edges. The
// adapter is told which host the log came from; privilege tiers come
// from the resolver since log lines do not carry them.
type UnixAuth struct {
	hostID    string
	privilege PrivilegeResolver
}

// NewUnixAuth creates the Unix auth adapter for one host's log stream.
func NewUnixAuth(hostID string, privilege PrivilegeResolver) *UnixAuth {
	return &UnixAuth{hostID: hostID, privilege: privilege}
}

var (
	sshdAcceptedRe = regexp.MustCompile(`sshd\[\d+\]: Accepted (\S+) for (\S+) from (\S+)`)
	kinitRe        = regexp.MustCompile(`kinit\[\d+\]: TGT obtained for (\S+)@(\S+)(?: using keytab (\S+))?`)
	suSessionRe    = regexp.MustCompile(`su\[\d+\]: \(to (\S+)\) (\S+) on`)
)

// Parse normalizes one log line. It returns false when the line is not
// an auth event the detector models.
func (u *UnixAuth) Parse(line string, ts time.Time) (model.AuthEdge, bool, error) {
	if m := sshdAcceptedRe.FindStringSubmatch(line); m != nil {
		account := "account:" + m[2]
		edge := newEdge(model.SourceUnixAuth, ts)
		edge.EdgeType = model.EdgeSSH
		edge.SrcNodeID = account
		edge.DstNodeID = u.hostID
		edge.HostID = u.hostID
		edge.SrcPrivilege = u.privilege.PrivilegeOf(account)
		edge.DstPrivilege = u.privilege.PrivilegeOf(u.hostID)
		edge.AuthSuccess = true
		edge.Metadata["log_line"] = line
		edge.Metadata["pam_service"] = "sshd"
		edge.Metadata["auth_method"] = m[1]
		edge.Metadata["source_addr"] = m[3]
		if err := ValidateEdge(&edge); err != nil {
			return model.AuthEdge{}, false, err
		}
		return edge, true, nil
	}

	if m := kinitRe.FindStringSubmatch(line); m != nil {
		principal := "account:" + m[1]
		edge := newEdge(model.SourceUnixAuth, ts)
		edge.EdgeType = model.EdgeKinit
		edge.SrcNodeID = u.hostID
		edge.DstNodeID = principal
		edge.HostID = u.hostID
		edge.SrcPrivilege = u.privilege.PrivilegeOf(u.hostID)
		edge.DstPrivilege = u.privilege.PrivilegeOf(principal)
		edge.AuthSuccess = true
		edge.Metadata["log_line"] = line
		edge.Metadata["pam_service"] = "krb5"
		edge.Metadata["realm"] = m[2]
		if m[3] != "" {
			edge.Metadata[model.MetaKeytabPath] = m[3]
		}
		if err := ValidateEdge(&edge); err != nil {
			return model.AuthEdge{}, false, err
		}
		return edge, true, nil
	}

	if m := suSessionRe.FindStringSubmatch(line); m != nil {
		target := "account:" + m[1]
		source := "account:" + m[2]
		edge := newEdge(model.SourceUnixAuth, ts)
		edge.EdgeType = model.EdgeSu
		edge.SrcNodeID = source
		edge.DstNodeID = target
		edge.HostID = u.hostID
		edge.SrcPrivilege = u.privilege.PrivilegeOf(source)
		edge.DstPrivilege = u.privilege.PrivilegeOf(target)
		edge.AuthSuccess = true
		edge.Metadata["log_line"] = line
		edge.Metadata["pam_service"] = "su"
		if err := ValidateEdge(&edge); err != nil {
			return model.AuthEdge{}, false, err
		}
		return edge, true, nil
	}

	return model.AuthEdge{}, false, nil
}
