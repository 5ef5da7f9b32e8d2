package pipeline

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/dgallion1/ubreader/internal/doctree"
	"github.com/dgallion1/ubreader/internal/parser"
	"github.com/dgallion1/ubreader/internal/transform"
	"github.com/google/uuid"
)

// JobStatus represents the state of an ingest job.
type JobStatus string

const (
	StatusQueued      JobStatus = "queued"
	StatusFetching    JobStatus = "fetching"
	StatusParsing     JobStatus = "parsing"
	StatusNormalizing JobStatus = "normalizing"
	StatusEnriching   JobStatus = "enriching"
	StatusValidating  JobStatus = "validating"
	StatusCompleted   JobStatus = "completed"
	StatusFailed      JobStatus = "failed"
)

// Terminal reports whether no further transitions will happen.
func (s JobStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// statusForStage maps a transformation stage to the job status shown while it runs.
func statusForStage(s transform.Stage) JobStatus {
	switch s {
	case transform.StageParse:
		return StatusParsing
	case transform.StageNormalize:
		return StatusNormalizing
	case transform.StageEnrich:
		return StatusEnriching
	case transform.StageValidate:
		return StatusValidating
	}
	return StatusQueued
}

// Source kinds.
const (
	SourceUpload = "upload"
	SourceCMS    = "cms"
)

// Job tracks the state of a single document ingest.
type Job struct {
	mu sync.Mutex

	ID    string `json:"job_id"`
	DocID string `json:"doc_id"`

	Status JobStatus `json:"status"`
	Phase  string    `json:"phase"`

	Source       string                   `json:"source"`
	Filename     string                   `json:"filename,omitempty"`
	CMSSlug      string                   `json:"cms_slug,omitempty"`
	DocumentType parser.DocumentType      `json:"document_type"`
	Options      doctree.TransformOptions `json:"options"`

	Cached    bool      `json:"cached"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Internal: not serialized.
	fileData []byte
	errors   []string
}

// NewUploadJob creates a queued job for an uploaded payload. Its document ID
// is known up front.
func NewUploadJob(filename string, docType parser.DocumentType, data []byte, opts doctree.TransformOptions) *Job {
	now := time.Now()
	return &Job{
		ID:           uuid.NewString(),
		DocID:        DocumentID(docType, opts, data),
		Status:       StatusQueued,
		Phase:        "queued",
		Source:       SourceUpload,
		Filename:     filename,
		DocumentType: docType,
		Options:      opts,
		CreatedAt:    now,
		UpdatedAt:    now,
		fileData:     data,
	}
}

// NewCMSJob creates a queued job that fetches its payload from the CMS. The
// document type and ID are filled in once the entry is fetched.
func NewCMSJob(slug string, opts doctree.TransformOptions) *Job {
	now := time.Now()
	return &Job{
		ID:        uuid.NewString(),
		Status:    StatusQueued,
		Phase:     "queued",
		Source:    SourceCMS,
		CMSSlug:   slug,
		Options:   opts,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// JobStore is a thread-safe in-memory job registry with TTL eviction.
type JobStore struct {
	mu   sync.Mutex
	jobs map[string]*Job
	ttl  time.Duration
}

func NewJobStore(ttl time.Duration) *JobStore {
	return &JobStore{
		jobs: make(map[string]*Job),
		ttl:  ttl,
	}
}

func (s *JobStore) Put(job *Job) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[job.ID] = job
}

func (s *JobStore) Get(id string) *Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.jobs[id]
}

// Len returns the number of tracked jobs.
func (s *JobStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.jobs)
}

// Cleanup removes finished jobs that have not changed within the TTL.
func (s *JobStore) Cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	for id, job := range s.jobs {
		job.mu.Lock()
		stale := job.Status.Terminal() && now.Sub(job.UpdatedAt) > s.ttl
		job.mu.Unlock()
		if stale {
			delete(s.jobs, id)
		}
	}
}

// SetStatus updates job status atomically.
func (j *Job) SetStatus(status JobStatus, phase string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Status = status
	j.Phase = phase
	j.UpdatedAt = time.Now()
}

// AddError records an error.
func (j *Job) AddError(err string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.errors = append(j.errors, err)
	j.UpdatedAt = time.Now()
}

// SetSource records the payload fetched for a CMS job along with the options
// merged from the entry, and derives the document ID from them.
func (j *Job) SetSource(docType parser.DocumentType, data []byte, opts doctree.TransformOptions) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.DocumentType = docType
	j.Options = opts
	j.fileData = data
	j.DocID = DocumentID(docType, opts, data)
	j.UpdatedAt = time.Now()
}

// Input returns what the job will transform.
func (j *Job) Input() (parser.DocumentType, doctree.TransformOptions, []byte) {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.DocumentType, j.Options, j.fileData
}

// SetCached marks the job as served from the document cache.
func (j *Job) SetCached() {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Cached = true
}

// ReleaseFileData drops the payload once it is no longer needed.
func (j *Job) ReleaseFileData() {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.fileData = nil
}

// JobSnapshot is a read-only, JSON-safe copy of job state.
type JobSnapshot struct {
	ID           string              `json:"job_id"`
	DocID        string              `json:"doc_id,omitempty"`
	Status       JobStatus           `json:"status"`
	Phase        string              `json:"phase"`
	Source       string              `json:"source"`
	Filename     string              `json:"filename,omitempty"`
	CMSSlug      string              `json:"cms_slug,omitempty"`
	DocumentType parser.DocumentType `json:"document_type,omitempty"`
	Cached       bool                `json:"cached"`
	Errors       []string            `json:"errors"`
	CreatedAt    time.Time           `json:"created_at"`
	UpdatedAt    time.Time           `json:"updated_at"`
}

// Snapshot returns a JSON-safe copy of the job state.
func (j *Job) Snapshot() JobSnapshot {
	j.mu.Lock()
	defer j.mu.Unlock()
	errs := append([]string{}, j.errors...)
	return JobSnapshot{
		ID:           j.ID,
		DocID:        j.DocID,
		Status:       j.Status,
		Phase:        j.Phase,
		Source:       j.Source,
		Filename:     j.Filename,
		CMSSlug:      j.CMSSlug,
		DocumentType: j.DocumentType,
		Cached:       j.Cached,
		Errors:       errs,
		CreatedAt:    j.CreatedAt,
		UpdatedAt:    j.UpdatedAt,
	}
}

// ContentHashHex computes SHA-256 of content and returns hex string.
func ContentHashHex(data []byte) string {
	h := sha256.Sum256(data)
	return fmt.Sprintf("%x", h[:])
}

// DocumentID identifies the output of transforming data as docType with
// opts. Identical inputs map to the same ID, so it doubles as the cache key.
func DocumentID(docType parser.DocumentType, opts doctree.TransformOptions, data []byte) string {
	// Map keys are sorted by encoding/json, so the encoding is stable.
	optJSON, _ := json.Marshal(opts)
	buf := make([]byte, 0, len(docType)+len(optJSON)+len(data)+2)
	buf = append(buf, docType...)
	buf = append(buf, 0)
	buf = append(buf, optJSON...)
	buf = append(buf, 0)
	buf = append(buf, data...)
	return ContentHashHex(buf)
}
