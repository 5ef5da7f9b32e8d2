package parser

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/dgallion1/ubreader/internal/doctree"
	"github.com/dgallion1/ubreader/internal/frontmatter"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	extast "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/text"
)

// MarkdownParser handles Markdown using goldmark with the GFM extensions.
type MarkdownParser struct {
	md goldmark.Markdown
}

func NewMarkdownParser() *MarkdownParser {
	return &MarkdownParser{
		md: goldmark.New(
			goldmark.WithExtensions(extension.GFM),
		),
	}
}

func (p *MarkdownParser) Parse(ctx context.Context, src Source) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	fields, body := frontmatter.Extract(src.String())
	source := []byte(body)

	doc := p.md.Parser().Parse(text.NewReader(source))

	var buf bytes.Buffer
	if err := p.md.Renderer().Render(&buf, source, doc); err != nil {
		return nil, fmt.Errorf("render markdown: %w", err)
	}

	root := doctree.NewRoot()
	root.Children = (&mdConverter{src: source}).children(doc)

	res := &Result{
		Content: root,
		HTML:    buf.String(),
		Text:    body,
		Fields:  make(map[string]any, len(fields)),
	}
	for k, v := range fields {
		res.Fields[k] = v
	}
	return res, nil
}

// mdConverter copies the recognized subset of goldmark's AST into doctree nodes.
type mdConverter struct {
	src []byte
}

// children converts the children of n, merging adjacent text nodes.
func (c *mdConverter) children(n ast.Node) []*doctree.Node {
	out := []*doctree.Node{}
	for child := n.FirstChild(); child != nil; child = child.NextSibling() {
		for _, node := range c.convert(child) {
			if node.Type == doctree.TypeText && len(out) > 0 && out[len(out)-1].Type == doctree.TypeText {
				out[len(out)-1].Value += node.Value
				continue
			}
			out = append(out, node)
		}
	}
	return out
}

func (c *mdConverter) convert(n ast.Node) []*doctree.Node {
	switch node := n.(type) {
	case *ast.Heading:
		return one(&doctree.Node{Type: doctree.TypeHeading, Depth: node.Level, Children: c.children(node)})

	case *ast.Paragraph, *ast.TextBlock:
		return one(&doctree.Node{Type: doctree.TypeParagraph, Children: c.children(node)})

	case *ast.Text:
		out := []*doctree.Node{doctree.Text(string(node.Segment.Value(c.src)))}
		switch {
		case node.HardLineBreak():
			out = append(out, &doctree.Node{Type: doctree.TypeBreak})
		case node.SoftLineBreak():
			out[0].Value += "\n"
		}
		return out

	case *ast.String:
		return one(doctree.Text(string(node.Value)))

	case *ast.List:
		list := &doctree.Node{Type: doctree.TypeList, Ordered: node.IsOrdered(), Children: c.children(node)}
		if node.IsOrdered() {
			start := node.Start
			list.Start = &start
		}
		return one(list)

	case *ast.ListItem:
		item := &doctree.Node{Type: doctree.TypeListItem}
		if box := taskCheckBox(node); box != nil {
			checked := box.IsChecked
			item.Checked = &checked
		}
		item.Children = c.children(node)
		return one(item)

	case *extast.TaskCheckBox:
		return nil

	case *ast.Link:
		return one(&doctree.Node{
			Type:     doctree.TypeLink,
			URL:      string(node.Destination),
			Title:    string(node.Title),
			Children: c.children(node),
		})

	case *ast.AutoLink:
		url := string(node.URL(c.src))
		if node.AutoLinkType == ast.AutoLinkEmail && !strings.HasPrefix(strings.ToLower(url), "mailto:") {
			url = "mailto:" + url
		}
		return one(&doctree.Node{
			Type:     doctree.TypeLink,
			URL:      url,
			Children: []*doctree.Node{doctree.Text(string(node.Label(c.src)))},
		})

	case *ast.Image:
		alt := doctree.PlainText(&doctree.Node{Type: doctree.TypeParagraph, Children: c.children(node)})
		return one(&doctree.Node{
			Type:  doctree.TypeImage,
			URL:   string(node.Destination),
			Title: string(node.Title),
			Alt:   alt,
		})

	case *ast.FencedCodeBlock:
		code := &doctree.Node{Type: doctree.TypeCode, Value: c.lines(node)}
		if lang := node.Language(c.src); lang != nil {
			code.Lang = string(lang)
		}
		if node.Info != nil {
			info := strings.TrimSpace(string(node.Info.Segment.Value(c.src)))
			if _, meta, ok := strings.Cut(info, " "); ok {
				code.Meta = strings.TrimSpace(meta)
			}
		}
		return one(code)

	case *ast.CodeBlock:
		return one(&doctree.Node{Type: doctree.TypeCode, Value: c.lines(node)})

	case *ast.CodeSpan:
		return one(&doctree.Node{Type: doctree.TypeInlineCode, Value: doctree.PlainText(&doctree.Node{
			Type:     doctree.TypeParagraph,
			Children: c.children(node),
		})})

	case *ast.Blockquote:
		return one(&doctree.Node{Type: doctree.TypeBlockquote, Children: c.children(node)})

	case *ast.Emphasis:
		t := doctree.TypeEmphasis
		if node.Level >= 2 {
			t = doctree.TypeStrong
		}
		return one(&doctree.Node{Type: t, Children: c.children(node)})

	case *ast.ThematicBreak:
		return one(&doctree.Node{Type: doctree.TypeThematicBreak})

	case *ast.HTMLBlock:
		value := c.lines(node)
		if node.HasClosure() {
			value += "\n" + strings.TrimRight(string(node.ClosureLine.Value(c.src)), "\n")
		}
		return one(&doctree.Node{Type: doctree.TypeHTML, Value: value})

	case *ast.RawHTML:
		var sb strings.Builder
		for i := 0; i < node.Segments.Len(); i++ {
			seg := node.Segments.At(i)
			sb.Write(seg.Value(c.src))
		}
		return one(&doctree.Node{Type: doctree.TypeHTML, Value: sb.String()})

	case *extast.Strikethrough:
		return one(&doctree.Node{Type: doctree.TypeDelete, Children: c.children(node)})

	case *extast.Table:
		align := make([]string, len(node.Alignments))
		for i, a := range node.Alignments {
			if a != extast.AlignNone {
				align[i] = a.String()
			}
		}
		return one(&doctree.Node{Type: doctree.TypeTable, Align: align, Children: c.children(node)})

	case *extast.TableHeader, *extast.TableRow:
		return one(&doctree.Node{Type: doctree.TypeTableRow, Children: c.children(node)})

	case *extast.TableCell:
		return one(&doctree.Node{Type: doctree.TypeTableCell, Children: c.children(node)})

	default:
		// Unrecognized nodes are unwrapped so their content survives.
		return c.children(n)
	}
}

// lines joins the raw source lines of a block without the final newline.
func (c *mdConverter) lines(n ast.Node) string {
	var buf bytes.Buffer
	lines := n.Lines()
	for i := 0; i < lines.Len(); i++ {
		line := lines.At(i)
		buf.Write(line.Value(c.src))
	}
	return strings.TrimSuffix(buf.String(), "\n")
}

func taskCheckBox(item *ast.ListItem) *extast.TaskCheckBox {
	first := item.FirstChild()
	if first == nil {
		return nil
	}
	box, _ := first.FirstChild().(*extast.TaskCheckBox)
	return box
}

func one(n *doctree.Node) []*doctree.Node {
	return []*doctree.Node{n}
}
