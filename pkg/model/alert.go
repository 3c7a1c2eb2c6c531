package model

import (
	"time"

	"github.com/google/uuid"
)

// DetectionType names one of the four detections.
type DetectionType string

const (
	DetectPrivilegeEscalation DetectionType = "privilege_escalation"
	DetectAuthBurst           DetectionType = "auth_burst"
	DetectAuthChain           DetectionType = "auth_chain"
	DetectKeytabSmuggling     DetectionType = "keytab_smuggling"
)

// Severity is an ordered alert severity scale.
type Severity int

const (
	SeverityLow Severity = iota
	SeverityMedium
	SeverityHigh
	SeverityCritical
)

// String returns the wire representation of a severity.
func (s Severity) String() string {
	switch s {
	case SeverityLow:
		return "low"
	case SeverityMedium:
		return "medium"
	case SeverityHigh:
		return "high"
	case SeverityCritical:
		return "critical"
	default:
		return "unknown"
	}
}

// ParseSeverity converts a wire string to a Severity. Unrecognized input
// maps to SeverityLow.
func ParseSeverity(s string) Severity {
	switch s {
	case "critical":
		return SeverityCritical
	case "high":
		return SeverityHigh
	case "medium":
		return SeverityMedium
	default:
		return SeverityLow
	}
}

// MarshalJSON encodes the severity as its string form.
func (s Severity) MarshalJSON() ([]byte, error) {
	return []byte(`"` + s.String() + `"`), nil
}

// UnmarshalJSON decodes a severity from its string form.
func (s *Severity) UnmarshalJSON(data []byte) error {
	str := string(data)
	if len(str) >= 2 && str[0] == '"' {
		str = str[1 : len(str)-1]
	}
	*s = ParseSeverity(str)
	return nil
}

// DetectionResult is the internal output of a single detection. The
// dispatcher converts results to Alerts before returning them.
type DetectionResult struct {
	DetectionType DetectionType
	Severity      Severity
	EdgeIDs       []string
	NodeIDs       []string
	HostID        string
	Description   string
	Metadata      map[string]any
}

// Alert is a fired detection result, handed to the alert store for
// persistence. The engine never mutates an alert after returning it;
// Acknowledged is flipped later through the store.
type Alert struct {
	ID            string         `json:"id"`
	DetectionType DetectionType  `json:"detection_type"`
	Severity      Severity       `json:"severity"`
	TriggeredAt   time.Time      `json:"triggered_at"`
	EdgeIDs       []string       `json:"edge_ids"`
	NodeIDs       []string       `json:"node_ids"`
	HostID        string         `json:"host_id"`
	Description   string         `json:"description"`
	Metadata      map[string]any `json:"metadata,omitempty"`
	Acknowledged  bool           `json:"acknowledged"`
}

// NewAlert converts a DetectionResult into a persistable Alert.
func NewAlert(r DetectionResult) Alert {
	return Alert{
		ID:            uuid.NewString(),
		DetectionType: r.DetectionType,
		Severity:      r.Severity,
		TriggeredAt:   time.Now().UTC(),
		EdgeIDs:       r.EdgeIDs,
		NodeIDs:       r.NodeIDs,
		HostID:        r.HostID,
		Description:   r.Description,
		Metadata:      r.Metadata,
	}
}
