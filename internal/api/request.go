package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/dgallion1/ubreader/internal/doctree"
	"github.com/dgallion1/ubreader/internal/parser"
	"github.com/dgallion1/ubreader/internal/pipeline"
	"github.com/dgallion1/ubreader/internal/transform"
)

// errRequest marks problems with the request itself.
var errRequest = errors.New("bad request")

type upload struct {
	filename string
	docType  parser.DocumentType
	data     []byte
}

// parseForm accepts multipart and urlencoded bodies up to the upload limit.
// Callers must call cleanupForm when done.
func (s *Server) parseForm(w http.ResponseWriter, r *http.Request) error {
	// Extra 1MB for form overhead.
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes+1024*1024)

	err := r.ParseMultipartForm(32 << 20)
	if err != nil && !errors.Is(err, http.ErrNotMultipart) {
		return fmt.Errorf("%w: invalid form: %s", errRequest, err)
	}
	return nil
}

func cleanupForm(r *http.Request) {
	if r.MultipartForm != nil {
		r.MultipartForm.RemoveAll()
	}
}

// readUpload reads the "file" part. The document type comes from the
// document_type field, else from the file extension.
func (s *Server) readUpload(r *http.Request) (*upload, error) {
	file, header, err := r.FormFile("file")
	if err != nil {
		return nil, fmt.Errorf("%w: file is required: %s", errRequest, err)
	}
	defer file.Close()

	filename := sanitizeFilename(header.Filename)

	var docType parser.DocumentType
	if v := r.FormValue("document_type"); v != "" {
		docType, err = parser.ParseType(v)
	} else {
		docType, err = parser.TypeForFile(filename)
	}
	if err != nil {
		return nil, err
	}

	data, err := io.ReadAll(io.LimitReader(file, s.cfg.MaxUploadBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	if int64(len(data)) > s.cfg.MaxUploadBytes {
		return nil, fmt.Errorf("%w: file exceeds max size (%d bytes)", errRequest, s.cfg.MaxUploadBytes)
	}

	return &upload{filename: filename, docType: docType, data: data}, nil
}

// transformOptions reads the optional sanitize, extract_metadata,
// publication_type and metadata (a JSON object) fields.
func transformOptions(r *http.Request) (doctree.TransformOptions, error) {
	opts := doctree.DefaultOptions()

	for field, dst := range map[string]*bool{
		"sanitize":         &opts.Sanitize,
		"extract_metadata": &opts.ExtractMetadata,
	} {
		v := r.FormValue(field)
		if v == "" {
			continue
		}
		b, err := strconv.ParseBool(v)
		if err != nil {
			return opts, fmt.Errorf("%w: %s must be a boolean", errRequest, field)
		}
		*dst = b
	}

	pt, err := doctree.ParsePublicationType(r.FormValue("publication_type"))
	if err != nil {
		return opts, fmt.Errorf("%w: %s", errRequest, err)
	}
	opts.PublicationType = pt

	if v := r.FormValue("metadata"); v != "" {
		if err := json.Unmarshal([]byte(v), &opts.Metadata); err != nil {
			return opts, fmt.Errorf("%w: metadata must be a JSON object", errRequest)
		}
	}
	return opts, nil
}

// errorStatus maps an error to the HTTP status reported for it.
func errorStatus(err error) int {
	var maxBytes *http.MaxBytesError
	switch {
	case errors.As(err, &maxBytes):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, errRequest),
		errors.Is(err, parser.ErrUnsupportedType),
		errors.Is(err, parser.ErrPayloadMismatch),
		errors.Is(err, pipeline.ErrCMSDisabled):
		return http.StatusBadRequest
	case errors.Is(err, transform.ErrInvalidStructure):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	writeJSON(w, code, map[string]string{"error": msg})
}

func sanitizeFilename(name string) string {
	// Strip path components, keep only the base name.
	name = filepath.Base(name)
	name = strings.ReplaceAll(name, "/", "_")
	name = strings.ReplaceAll(name, "\\", "_")
	name = strings.ReplaceAll(name, "..", "_")
	if name == "" || name == "." {
		name = "unnamed"
	}
	return name
}
