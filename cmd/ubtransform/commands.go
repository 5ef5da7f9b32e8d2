package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"

	"github.com/dgallion1/ubreader/internal/doctree"
	"github.com/dgallion1/ubreader/internal/outline"
	"github.com/dgallion1/ubreader/internal/parser"
	"github.com/dgallion1/ubreader/internal/transform"
)

// TransformCmd transforms one file.
type TransformCmd struct {
	File            string `arg:"" type:"existingfile" help:"Source document"`
	Type            string `short:"t" help:"Document type; defaults to one derived from the file extension"`
	PublicationType string `short:"p" name:"publication-type" help:"scientific, lectionary, ubgems or ubcatechism"`
	NoSanitize      bool   `name:"no-sanitize" help:"Skip sanitization"`
	NoMetadata      bool   `name:"no-metadata" help:"Do not extract or derive metadata"`
	Outline         bool   `help:"Include the section outline and reading passages"`
	PassageTokens   int    `name:"passage-tokens" default:"500" help:"Target passage size for --outline"`
	PDFTools        bool   `name:"pdftotext" help:"Fall back to pdftotext when the PDF library fails"`
	Compact         bool   `help:"Print compact JSON"`
}

type transformOutput struct {
	Document *doctree.TransformedDocument `json:"document"`
	Outline  *outline.Outline             `json:"outline,omitempty"`
}

func (c *TransformCmd) Run(g *Globals) error {
	data, err := os.ReadFile(c.File)
	if err != nil {
		return fmt.Errorf("read %s: %w", c.File, err)
	}
	return c.run(g.Ctx, g.Log, data, os.Stdout)
}

func (c *TransformCmd) run(ctx context.Context, log *slog.Logger, data []byte, w io.Writer) error {
	docType, err := c.documentType()
	if err != nil {
		return err
	}
	opts, err := c.options()
	if err != nil {
		return err
	}

	t := transform.New(log, nil, parser.Options{Log: log, PDFFallbackPdftotext: c.PDFTools})
	doc, err := t.TransformWithProgress(ctx, parser.SniffSource(docType, data), docType, &opts, func(s transform.Stage) {
		log.Debug("stage", "stage", s, "file", c.File)
	})
	if err != nil {
		return fmt.Errorf("transform %s: %w", c.File, err)
	}

	out := transformOutput{Document: doc}
	if c.Outline {
		out.Outline = outline.Build(doc.Content, outline.Config{PassageTokens: c.PassageTokens})
	}

	enc := json.NewEncoder(w)
	if !c.Compact {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(out)
}

func (c *TransformCmd) documentType() (parser.DocumentType, error) {
	if c.Type != "" {
		return parser.ParseType(c.Type)
	}
	return parser.TypeForFile(c.File)
}

func (c *TransformCmd) options() (doctree.TransformOptions, error) {
	opts := doctree.DefaultOptions()
	opts.Sanitize = !c.NoSanitize
	opts.ExtractMetadata = !c.NoMetadata

	pt, err := doctree.ParsePublicationType(c.PublicationType)
	if err != nil {
		return opts, err
	}
	opts.PublicationType = pt
	return opts, nil
}

// TypesCmd lists what the transformer accepts.
type TypesCmd struct{}

func (c *TypesCmd) Run(g *Globals) error {
	return listTypes(os.Stdout)
}

func listTypes(w io.Writer) error {
	byType := map[parser.DocumentType][]string{}
	for ext, t := range parser.SupportedExtensions {
		byType[t] = append(byType[t], ext)
	}
	types := []parser.DocumentType{
		parser.TypeMarkdown, parser.TypePerplexity, parser.TypeDOCX, parser.TypeHTML,
		parser.TypePDF, parser.TypeText, parser.TypeCSV,
	}
	for _, t := range types {
		exts := byType[t]
		sort.Strings(exts)
		if _, err := fmt.Fprintf(w, "%-11s %v\n", t, exts); err != nil {
			return err
		}
	}
	return nil
}
