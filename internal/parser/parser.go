package parser

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/dgallion1/ubreader/internal/doctree"
)

// DocumentType names a source format.
type DocumentType string

const (
	TypeMarkdown   DocumentType = "markdown"
	TypePerplexity DocumentType = "perplexity"
	TypeDOCX       DocumentType = "docx"
	TypeHTML       DocumentType = "html"
	TypePDF        DocumentType = "pdf"
	TypeText       DocumentType = "text"
	TypeCSV        DocumentType = "csv"
)

var (
	ErrUnsupportedType = errors.New("unsupported document type")
	ErrPayloadMismatch = errors.New("payload does not match document type")
)

// Binary reports whether the type is parsed from a binary payload.
func (t DocumentType) Binary() bool {
	return t == TypeDOCX || t == TypePDF
}

// Source is the raw input of a transformation: either text or binary.
type Source struct {
	data   []byte
	binary bool
}

func TextSource(s string) Source   { return Source{data: []byte(s)} }
func BinarySource(b []byte) Source { return Source{data: b, binary: true} }
func (s Source) IsBinary() bool    { return s.binary }
func (s Source) Bytes() []byte     { return s.data }
func (s Source) String() string    { return string(s.data) }
func (s Source) Len() int          { return len(s.data) }

// Result is what a format adapter hands to the rest of the pipeline.
type Result struct {
	Content *doctree.Node
	HTML    string
	Text    string
	Fields  map[string]any
}

// Parser converts a source payload into the internal document tree.
type Parser interface {
	Parse(ctx context.Context, src Source) (*Result, error)
}

// Options tunes the adapters that need it.
type Options struct {
	Log                  *slog.Logger
	PDFFallbackPdftotext bool
}

// SniffSource wraps data as the payload kind t expects, unless the content
// clearly belongs to the other kind: text under a binary type, or a
// recognized binary signature (zip, pdf, images) under a text type. Those
// fail CheckPayload instead of being misparsed. Unrecognized bytes, such as
// stray control characters, never make a text payload binary.
func SniffSource(t DocumentType, data []byte) Source {
	ct := http.DetectContentType(data)
	isText := strings.HasPrefix(ct, "text/")
	if t.Binary() {
		if isText {
			return TextSource(string(data))
		}
		return BinarySource(data)
	}
	if !isText && ct != "application/octet-stream" {
		return BinarySource(data)
	}
	return TextSource(string(data))
}

// CheckPayload rejects a source whose kind does not match the document type.
func CheckPayload(t DocumentType, src Source) error {
	if t.Binary() && !src.IsBinary() {
		return fmt.Errorf("%w: %s requires a binary payload", ErrPayloadMismatch, t)
	}
	if !t.Binary() && src.IsBinary() {
		return fmt.Errorf("%w: %s requires a text payload", ErrPayloadMismatch, t)
	}
	return nil
}

// ForType returns the parser for a document type.
func ForType(t DocumentType, opts Options) (Parser, error) {
	log := opts.Log
	if log == nil {
		log = slog.Default()
	}
	switch t {
	case TypeMarkdown:
		return NewMarkdownParser(), nil
	case TypePerplexity:
		// Perplexity exports have no dedicated adapter yet and are read as Markdown.
		return NewMarkdownParser(), nil
	case TypeDOCX:
		return &DOCXParser{log: log}, nil
	case TypeHTML:
		return &HTMLParser{}, nil
	case TypePDF:
		return &PDFParser{FallbackPdftotext: opts.PDFFallbackPdftotext}, nil
	case TypeText:
		return &TextParser{}, nil
	case TypeCSV:
		return &CSVParser{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedType, string(t))
	}
}

// SupportedExtensions maps file extensions to the document type used for them.
var SupportedExtensions = map[string]DocumentType{
	".md":       TypeMarkdown,
	".markdown": TypeMarkdown,
	".docx":     TypeDOCX,
	".html":     TypeHTML,
	".htm":      TypeHTML,
	".pdf":      TypePDF,
	".txt":      TypeText,
	".csv":      TypeCSV,
}

// TypeForFile returns the document type for a filename.
func TypeForFile(filename string) (DocumentType, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	if t, ok := SupportedExtensions[ext]; ok {
		return t, nil
	}
	return "", fmt.Errorf("%w: extension %q", ErrUnsupportedType, ext)
}

// ParseType validates a document type name.
func ParseType(s string) (DocumentType, error) {
	t := DocumentType(strings.ToLower(strings.TrimSpace(s)))
	switch t {
	case TypeMarkdown, TypePerplexity, TypeDOCX, TypeHTML, TypePDF, TypeText, TypeCSV:
		return t, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedType, s)
}
