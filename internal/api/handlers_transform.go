package api

import (
	"net/http"
)

// handleTransform transforms an uploaded document synchronously.
func (s *Server) handleTransform(w http.ResponseWriter, r *http.Request) {
	if err := s.parseForm(w, r); err != nil {
		jsonError(w, err.Error(), errorStatus(err))
		return
	}
	defer cleanupForm(r)

	up, err := s.readUpload(r)
	if err != nil {
		jsonError(w, err.Error(), errorStatus(err))
		return
	}
	opts, err := transformOptions(r)
	if err != nil {
		jsonError(w, err.Error(), errorStatus(err))
		return
	}

	out, err := s.orchestrator.Transform(r.Context(), up.docType, up.data, opts)
	if err != nil {
		code := errorStatus(err)
		if code == http.StatusInternalServerError {
			s.log.Error("transform failed", "filename", up.filename, "document_type", up.docType, "error", err)
		}
		jsonError(w, err.Error(), code)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"doc_id":   out.DocID,
		"cached":   out.Cached,
		"document": out.Document,
	})
}
