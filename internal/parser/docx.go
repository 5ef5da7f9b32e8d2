package parser

import (
	"bytes"
	"context"
	"fmt"
	"html"
	"log/slog"
	"regexp"
	"strconv"
	"strings"

	"github.com/dgallion1/ubreader/internal/doctree"
	"github.com/fumiama/go-docx"
)

// DOCXParser handles .docx files. It renders the document to HTML and raw
// text, then rebuilds a flat tree from the HTML's paragraph and heading tags.
// Inline marks, nested lists and tables are not reconstructed.
type DOCXParser struct {
	log *slog.Logger
}

var (
	docxBlockRe = regexp.MustCompile(`(?is)<(p|h[1-6])(?:\s[^>]*)?>(.*?)</(?:p|h[1-6])>`)
	docxTagRe   = regexp.MustCompile(`<[^>]+>`)
)

func (p *DOCXParser) Parse(ctx context.Context, src Source) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data := src.Bytes()
	doc, err := docx.Parse(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("parse docx: %w", err)
	}

	htmlOut, rawText := renderDOCX(doc)

	return &Result{
		Content: docxTreeFromHTML(htmlOut),
		HTML:    htmlOut,
		Text:    rawText,
		Fields:  p.extractMetadata(rawText),
	}, nil
}

// renderDOCX produces the HTML and raw text views of the document body.
func renderDOCX(doc *docx.Docx) (string, string) {
	var htmlBuf strings.Builder
	var paragraphs []string

	for _, item := range doc.Document.Body.Items {
		para, ok := item.(*docx.Paragraph)
		if !ok {
			continue
		}
		text := docxParagraphText(para)
		if text == "" {
			continue
		}
		paragraphs = append(paragraphs, text)

		tag := "p"
		if level := docxHeadingLevel(para); level > 0 {
			tag = "h" + strconv.Itoa(level)
		}
		fmt.Fprintf(&htmlBuf, "<%s>%s</%s>", tag, html.EscapeString(text), tag)
	}

	return htmlBuf.String(), strings.Join(paragraphs, "\n\n")
}

// docxTreeFromHTML scans serialized HTML for block tags.
func docxTreeFromHTML(s string) *doctree.Node {
	root := doctree.NewRoot()
	for _, m := range docxBlockRe.FindAllStringSubmatch(s, -1) {
		tag := strings.ToLower(m[1])
		text := strings.TrimSpace(html.UnescapeString(docxTagRe.ReplaceAllString(m[2], "")))
		if text == "" {
			continue
		}
		node := &doctree.Node{Type: doctree.TypeParagraph, Children: []*doctree.Node{doctree.Text(text)}}
		if tag != "p" {
			node.Type = doctree.TypeHeading
			node.Depth = int(tag[1] - '0')
		}
		root.Children = append(root.Children, node)
	}
	return root
}

// extractMetadata takes the first non-empty line as the title and the first
// non-empty "Author:" or "By " line after it as the author. Failures degrade to no
// metadata.
func (p *DOCXParser) extractMetadata(text string) (fields map[string]any) {
	fields = map[string]any{}
	defer func() {
		if r := recover(); r != nil {
			p.log.Warn("docx metadata extraction failed", "error", fmt.Sprint(r))
			fields = map[string]any{}
		}
	}()

	var lines []string
	for _, line := range strings.Split(text, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}
	if len(lines) == 0 {
		return fields
	}

	fields["title"] = lines[0]
	for _, line := range lines[1:] {
		var author string
		switch {
		case strings.HasPrefix(line, "Author:"):
			author = strings.TrimSpace(strings.TrimPrefix(line, "Author:"))
		case strings.HasPrefix(line, "By "):
			author = strings.TrimSpace(strings.TrimPrefix(line, "By "))
		default:
			continue
		}
		if author != "" {
			fields["author"] = author
			break
		}
	}
	return fields
}

func docxHeadingLevel(para *docx.Paragraph) int {
	if para.Properties == nil || para.Properties.Style == nil {
		return 0
	}
	style := strings.ToLower(strings.ReplaceAll(para.Properties.Style.Val, " ", ""))
	if style == "title" {
		return 1
	}
	if !strings.HasPrefix(style, "heading") {
		return 0
	}
	level, err := strconv.Atoi(strings.TrimPrefix(style, "heading"))
	if err != nil || level < 1 || level > 6 {
		return 0
	}
	return level
}

// docxParagraphText joins the text of a paragraph's runs, including the runs
// wrapped in hyperlinks.
func docxParagraphText(para *docx.Paragraph) string {
	var buf strings.Builder
	for _, child := range para.Children {
		switch c := child.(type) {
		case *docx.Run:
			writeRunText(&buf, c)
		case *docx.Hyperlink:
			writeRunText(&buf, &c.Run)
		}
	}
	return strings.TrimSpace(buf.String())
}

func writeRunText(buf *strings.Builder, run *docx.Run) {
	for _, rc := range run.Children {
		if t, ok := rc.(*docx.Text); ok {
			buf.WriteString(t.Text)
		}
	}
}
