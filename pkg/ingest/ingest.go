// Package ingest normalizes raw telemetry into AuthEdge values. Two
// adapters exist: CrowdStrike Falcon event payloads and Unix auth.log /
// PAM / kinit lines. Each adapter validates its output edge before it
// reaches the engine, which assumes normalization has already happened.
package ingest

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/dd0wney/cluso-sentinel/pkg/model"
)

var validate = validator.New()

// edgeCheck mirrors the AuthEdge fields the engine relies on.
type edgeCheck struct {
	SrcNodeID    string  `validate:"required"`
	DstNodeID    string  `validate:"required"`
	EdgeType     string  `validate:"required,oneof=ssh kinit su"`
	SrcPrivilege float64 `validate:"gte=0,lte=1"`
	DstPrivilege float64 `validate:"gte=0,lte=1"`
	HostID       string  `validate:"required"`
	RawSource    string  `validate:"required,oneof=crowdstrike unix_auth"`
}

// ValidateEdge checks that a normalized edge satisfies the engine's
// input contract.
func ValidateEdge(e *model.AuthEdge) error {
	check := edgeCheck{
		SrcNodeID:    e.SrcNodeID,
		DstNodeID:    e.DstNodeID,
		EdgeType:     string(e.EdgeType),
		SrcPrivilege: e.SrcPrivilege,
		DstPrivilege: e.DstPrivilege,
		HostID:       e.HostID,
		RawSource:    string(e.RawSource),
	}
	if err := validate.Struct(&check); err != nil {
		return fmt.Errorf("invalid auth edge: %w", err)
	}
	if e.Timestamp.IsZero() {
		return fmt.Errorf("invalid auth edge: missing timestamp")
	}
	return nil
}

// PrivilegeResolver supplies privilege tiers for node IDs when the raw
// telemetry does not carry them. Tier scoring itself happens upstream;
// the resolver is only a lookup.
type PrivilegeResolver interface {
	PrivilegeOf(nodeID string) float64
}

// StaticPrivileges is a fixed-table PrivilegeResolver. Unknown nodes get
// the Default tier.
type StaticPrivileges struct {
	Tiers   map[string]float64
	Default float64
}

func (s *StaticPrivileges) PrivilegeOf(nodeID string) float64 {
	if tier, ok := s.Tiers[nodeID]; ok {
		return tier
	}
	return s.Default
}

// newEdge seeds an AuthEdge with identity and timestamp.
func newEdge(src model.RawSource, ts time.Time) model.AuthEdge {
	e := model.NewAuthEdge()
	e.RawSource = src
	if !ts.IsZero() {
		e.Timestamp = ts
	}
	return e
}
