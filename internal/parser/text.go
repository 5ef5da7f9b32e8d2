package parser

import (
	"bufio"
	"context"
	"strings"

	"github.com/dgallion1/ubreader/internal/doctree"
)

// TextParser handles plain text. Blank lines separate paragraphs.
type TextParser struct{}

func (p *TextParser) Parse(ctx context.Context, src Source) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	root := doctree.NewRoot()
	for _, para := range splitParagraphs(src.String()) {
		root.Children = append(root.Children, &doctree.Node{
			Type:     doctree.TypeParagraph,
			Children: []*doctree.Node{doctree.Text(para)},
		})
	}

	return &Result{
		Content: root,
		Text:    src.String(),
		Fields:  map[string]any{},
	}, nil
}

// splitParagraphs groups non-blank lines. Whitespace-only lines count as blank.
func splitParagraphs(text string) []string {
	scanner := bufio.NewScanner(strings.NewReader(text))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var paragraphs []string
	var current strings.Builder

	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), " \t\r")
		if strings.TrimSpace(line) == "" {
			if current.Len() > 0 {
				paragraphs = append(paragraphs, current.String())
				current.Reset()
			}
			continue
		}
		if current.Len() > 0 {
			current.WriteString("\n")
		}
		current.WriteString(line)
	}
	if current.Len() > 0 {
		paragraphs = append(paragraphs, current.String())
	}
	return paragraphs
}
