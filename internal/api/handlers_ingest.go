package api

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/dgallion1/ubreader/internal/pipeline"
	"github.com/go-chi/chi/v5"
)

// handleIngest queues either an uploaded file or a CMS entry (cms_slug).
func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	if err := s.parseForm(w, r); err != nil {
		jsonError(w, err.Error(), errorStatus(err))
		return
	}
	defer cleanupForm(r)

	opts, err := transformOptions(r)
	if err != nil {
		jsonError(w, err.Error(), errorStatus(err))
		return
	}

	var job *pipeline.Job
	if slug := strings.TrimSpace(r.FormValue("cms_slug")); slug != "" {
		job = pipeline.NewCMSJob(slug, opts)
	} else {
		up, err := s.readUpload(r)
		if err != nil {
			jsonError(w, err.Error(), errorStatus(err))
			return
		}
		job = pipeline.NewUploadJob(up.filename, up.docType, up.data, opts)
	}

	if err := s.orchestrator.Submit(job); err != nil {
		code := errorStatus(err)
		if code == http.StatusInternalServerError {
			code = http.StatusServiceUnavailable
		}
		jsonError(w, err.Error(), code)
		return
	}

	snap := job.Snapshot()
	writeJSON(w, http.StatusAccepted, map[string]any{
		"job_id":   snap.ID,
		"doc_id":   snap.DocID,
		"status":   snap.Status,
		"poll_url": fmt.Sprintf("/api/ingest/%s/status", snap.ID),
	})
}

func (s *Server) handleIngestStatus(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")
	job := s.orchestrator.GetJob(jobID)
	if job == nil {
		jsonError(w, "job not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, job.Snapshot())
}
