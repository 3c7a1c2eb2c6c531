package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/dd0wney/cluso-sentinel/pkg/ingest"
	"github.com/dd0wney/cluso-sentinel/pkg/logging"
	"github.com/dd0wney/cluso-sentinel/pkg/model"
)

// handleIngest accepts one auth event, persists it, and runs the
// detection pipeline. A dispatch failure rejects the event outright:
// no partial alerts are stored or returned.
func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	var req IngestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	edge, err := s.edgeFromRequest(req)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := ingest.ValidateEdge(&edge); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	ctx := r.Context()
	if err := s.edges.Insert(ctx, edge); err != nil {
		s.respondError(w, http.StatusInternalServerError, s.sanitizeError(err, "edge insert"))
		return
	}

	alerts, err := s.dispatcher.Dispatch(ctx, edge)
	if err != nil {
		s.respondError(w, http.StatusServiceUnavailable, s.sanitizeError(err, "event dispatch"))
		return
	}

	for _, a := range alerts {
		if err := s.alerts.Insert(ctx, a); err != nil {
			s.logger.Error("persisting alert",
				logging.String("alert_id", a.ID),
				logging.Error(err),
			)
		}
	}

	s.metrics.EdgesIngestedTotal.WithLabelValues(string(edge.RawSource), string(edge.EdgeType)).Inc()
	s.respondJSON(w, http.StatusCreated, IngestResponse{
		EdgeID: edge.ID,
		Alerts: alerts,
	})
}

// edgeFromRequest maps the wire form onto a model edge, filling
// defaults for the optional fields.
func (s *Server) edgeFromRequest(req IngestRequest) (model.AuthEdge, error) {
	edge := model.NewAuthEdge()
	edge.EdgeType = model.EdgeType(req.EdgeType)
	edge.SrcNodeID = req.SrcNodeID
	edge.DstNodeID = req.DstNodeID
	edge.SrcPrivilege = req.SrcPrivilege
	edge.DstPrivilege = req.DstPrivilege
	edge.SessionID = req.SessionID
	edge.HostID = req.HostID
	edge.Metadata = req.Metadata

	edge.RawSource = model.RawSource(req.RawSource)
	if req.RawSource == "" {
		edge.RawSource = model.SourceUnixAuth
	}

	edge.AuthSuccess = true
	if req.AuthSuccess != nil {
		edge.AuthSuccess = *req.AuthSuccess
	}

	if req.Timestamp != "" {
		ts, err := time.Parse(time.RFC3339, req.Timestamp)
		if err != nil {
			return model.AuthEdge{}, err
		}
		edge.Timestamp = ts.UTC()
	}
	return edge, nil
}
