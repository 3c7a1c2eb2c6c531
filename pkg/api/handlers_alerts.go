package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/dd0wney/cluso-sentinel/pkg/model"
	"github.com/dd0wney/cluso-sentinel/pkg/store"
)

func (s *Server) handleListAlerts(w http.ResponseWriter, r *http.Request) {
	filter, err := alertFilterFromQuery(r)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	alerts, err := s.alerts.List(r.Context(), filter)
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, s.sanitizeError(err, "alert list"))
		return
	}

	s.respondJSON(w, http.StatusOK, AlertListResponse{
		Alerts: alerts,
		Count:  len(alerts),
		Offset: filter.Offset,
	})
}

func (s *Server) handleGetAlert(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	alert, err := s.alerts.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrAlertNotFound) {
			s.respondError(w, http.StatusNotFound, "alert not found")
			return
		}
		s.respondError(w, http.StatusInternalServerError, s.sanitizeError(err, "alert get"))
		return
	}
	s.respondJSON(w, http.StatusOK, alert)
}

func (s *Server) handleAckAlert(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := s.alerts.Acknowledge(r.Context(), id); err != nil {
		if errors.Is(err, store.ErrAlertNotFound) {
			s.respondError(w, http.StatusNotFound, "alert not found")
			return
		}
		s.respondError(w, http.StatusInternalServerError, s.sanitizeError(err, "alert ack"))
		return
	}
	s.respondJSON(w, http.StatusOK, AckResponse{ID: id, Acknowledged: true})
}

func alertFilterFromQuery(r *http.Request) (store.AlertFilter, error) {
	var filter store.AlertFilter
	q := r.URL.Query()

	filter.DetectionType = model.DetectionType(q.Get("detection_type"))

	if v := q.Get("since"); v != "" {
		ts, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return filter, errors.New("invalid since timestamp, want RFC3339")
		}
		filter.Since = ts
	}

	if v := q.Get("acknowledged"); v != "" {
		ack, err := strconv.ParseBool(v)
		if err != nil {
			return filter, errors.New("invalid acknowledged flag")
		}
		filter.Acknowledged = &ack
	}

	if v := q.Get("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return filter, errors.New("invalid offset")
		}
		filter.Offset = n
	}

	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return filter, errors.New("invalid limit")
		}
		filter.Limit = n
	}

	return filter, nil
}
