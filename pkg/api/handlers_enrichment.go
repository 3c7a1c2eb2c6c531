package api

import (
	"net/http"
	"time"
)

// handleEnrichmentStatus reports the state of the enrichment cache.
// A not-yet-ready cache is still a 200: operators poll this endpoint
// during startup.
func (s *Server) handleEnrichmentStatus(w http.ResponseWriter, r *http.Request) {
	resp := EnrichmentStatusResponse{Ready: s.enrich.Ready()}

	if snap, err := s.enrich.Current(); err == nil {
		resp.VaultHosts = snap.Vault.HostCount()
		resp.CriticalAccounts = snap.Accounts.Count()
	}
	if ts := s.enrich.LastRefreshed(); !ts.IsZero() {
		resp.LastRefreshed = ts.UTC().Format(time.RFC3339)
	}

	s.respondJSON(w, http.StatusOK, resp)
}
