package api

import (
	"net/http"
	"strconv"

	"github.com/dgallion1/ubreader/internal/doctree"
	"github.com/dgallion1/ubreader/internal/outline"
	"github.com/go-chi/chi/v5"
)

// handleGetDocument returns a transformed document by ID.
func (s *Server) handleGetDocument(w http.ResponseWriter, r *http.Request) {
	doc, ok := s.lookupDocument(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

// handleGetOutline returns the sections and reading passages of a document.
// passage_tokens and overlap override the configured passage size.
func (s *Server) handleGetOutline(w http.ResponseWriter, r *http.Request) {
	cfg := outline.Config{PassageTokens: s.cfg.PassageTokens}
	q := r.URL.Query()
	if v := q.Get("passage_tokens"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.PassageTokens = n
		}
	}
	if v := q.Get("overlap"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Overlap = n
		}
	}

	doc, ok := s.lookupDocument(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, outline.Build(doc.Content, cfg))
}

func (s *Server) lookupDocument(w http.ResponseWriter, r *http.Request) (*doctree.TransformedDocument, bool) {
	docID := chi.URLParam(r, "docID")
	doc, ok, err := s.orchestrator.Document(r.Context(), docID)
	if err != nil {
		s.log.Error("document lookup failed", "doc_id", docID, "error", err)
		jsonError(w, "document lookup failed", http.StatusInternalServerError)
		return nil, false
	}
	if !ok {
		jsonError(w, "document not found", http.StatusNotFound)
		return nil, false
	}
	return doc, true
}
