package api

import (
	"net/http"
	"strconv"
)

func (s *Server) handleTransformStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"queue_depth": s.orchestrator.QueueDepth(),
		"stats":       s.orchestrator.Stats(),
	})
}

// handleListCMSEntries lists entries available for ingest by slug.
func (s *Server) handleListCMSEntries(w http.ResponseWriter, r *http.Request) {
	client := s.orchestrator.CMSClient()
	if client == nil {
		jsonError(w, "cms source not configured", http.StatusServiceUnavailable)
		return
	}

	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}

	entries, err := client.ListEntries(r.Context(), limit)
	if err != nil {
		s.log.Error("list cms entries failed", "error", err)
		jsonError(w, "failed to list cms entries: "+err.Error(), http.StatusBadGateway)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"entries": entries})
}
