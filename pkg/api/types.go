package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/dd0wney/cluso-sentinel/pkg/logging"
	"github.com/dd0wney/cluso-sentinel/pkg/model"
)

// ErrorResponse is the standard error envelope.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    int    `json:"code"`
}

// IngestRequest carries one raw auth event in the generic edge form.
// Source-specific formats (CrowdStrike, unix auth lines) are normalized
// before reaching this endpoint by the ingest adapters.
type IngestRequest struct {
	EdgeType     string         `json:"edge_type"`
	SrcNodeID    string         `json:"src_node_id"`
	DstNodeID    string         `json:"dst_node_id"`
	SrcPrivilege float64        `json:"src_privilege"`
	DstPrivilege float64        `json:"dst_privilege"`
	Timestamp    string         `json:"timestamp,omitempty"`
	SessionID    string         `json:"session_id,omitempty"`
	HostID       string         `json:"host_id"`
	RawSource    string         `json:"raw_source,omitempty"`
	AuthSuccess  *bool          `json:"auth_success,omitempty"`
	Metadata     map[string]any `json:"metadata,omitempty"`
}

// IngestResponse reports the stored edge and any alerts it fired.
type IngestResponse struct {
	EdgeID string        `json:"edge_id"`
	Alerts []model.Alert `json:"alerts"`
}

// AlertListResponse wraps a page of alerts.
type AlertListResponse struct {
	Alerts []model.Alert `json:"alerts"`
	Count  int           `json:"count"`
	Offset int           `json:"offset"`
}

// AckResponse confirms an acknowledgement.
type AckResponse struct {
	ID           string `json:"id"`
	Acknowledged bool   `json:"acknowledged"`
}

// EnrichmentStatusResponse reports cache state for operators.
type EnrichmentStatusResponse struct {
	Ready            bool   `json:"ready"`
	LastRefreshed    string `json:"last_refreshed,omitempty"`
	VaultHosts       int    `json:"vault_hosts"`
	CriticalAccounts int    `json:"critical_accounts"`
}

// sanitizeError logs the full error and returns a client-safe message.
func (s *Server) sanitizeError(err error, operation string) string {
	if err == nil {
		return ""
	}
	s.logger.Error("request failed",
		logging.String("operation", operation),
		logging.Error(err),
	)
	return fmt.Sprintf("%s failed", operation)
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Error("encoding response", logging.Error(err))
	}
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, ErrorResponse{
		Error:   http.StatusText(status),
		Message: message,
		Code:    status,
	})
}
