package parser

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/dgallion1/ubreader/internal/doctree"
	pdflib "github.com/ledongthuc/pdf"
)

// PDFParser extracts the text layer of a PDF. When the embedded reader fails
// and FallbackPdftotext is set, the pdftotext binary is tried instead.
type PDFParser struct {
	FallbackPdftotext bool
}

func (p *PDFParser) Parse(ctx context.Context, src Source) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	text, err := extractPDFText(src.Bytes())
	if err != nil && p.FallbackPdftotext {
		text, err = extractPdftotext(ctx, src.Bytes())
	}
	if err != nil {
		return nil, fmt.Errorf("extract pdf text: %w", err)
	}

	pages := splitPages(text)
	return &Result{
		Content: pdfTree(pages),
		Text:    strings.TrimSpace(strings.ReplaceAll(text, "\f", "\n\n")),
		Fields:  map[string]any{"pages": len(pages)},
	}, nil
}

// pdfTree turns page text into paragraphs, with a thematic break between
// pages that have content.
func pdfTree(pages []string) *doctree.Node {
	root := doctree.NewRoot()
	for _, page := range pages {
		paras := splitParagraphs(page)
		if len(paras) == 0 {
			continue
		}
		if len(root.Children) > 0 {
			root.Children = append(root.Children, &doctree.Node{Type: doctree.TypeThematicBreak})
		}
		for _, para := range paras {
			root.Children = append(root.Children, &doctree.Node{
				Type:     doctree.TypeParagraph,
				Children: []*doctree.Node{doctree.Text(para)},
			})
		}
	}
	return root
}

func extractPDFText(data []byte) (string, error) {
	reader, err := pdflib.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", err
	}

	var buf strings.Builder
	numPages := reader.NumPage()
	for i := 1; i <= numPages; i++ {
		if i > 1 {
			buf.WriteString("\f")
		}
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		buf.WriteString(text)
	}
	return buf.String(), nil
}

// extractPdftotext needs the document on disk.
func extractPdftotext(ctx context.Context, data []byte) (string, error) {
	tmp, err := os.CreateTemp("", "ubreader-pdf-*.pdf")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return "", fmt.Errorf("write temp file: %w", err)
	}
	tmp.Close()

	out, err := exec.CommandContext(ctx, "pdftotext", "-layout", tmpPath, "-").Output()
	if err != nil {
		return "", fmt.Errorf("pdftotext: %w", err)
	}
	return string(out), nil
}

func splitPages(text string) []string {
	return strings.Split(text, "\f")
}
