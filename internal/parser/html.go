package parser

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/dgallion1/ubreader/internal/doctree"
	"golang.org/x/net/html"
)

// HTMLParser handles HTML bodies as delivered by the CMS.
type HTMLParser struct{}

var spaceRe = regexp.MustCompile(`\s+`)

func (p *HTMLParser) Parse(ctx context.Context, src Source) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	doc, err := html.Parse(strings.NewReader(src.String()))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	root := doctree.NewRoot()
	body := findBody(doc)
	if body == nil {
		body = doc
	}
	root.Children = blockChildren(body)

	return &Result{
		Content: root,
		HTML:    src.String(),
		Text:    strings.TrimSpace(textContent(body)),
		Fields:  htmlMetadata(doc),
	}, nil
}

// htmlMetadata reads <title> and the author/description/keywords meta tags.
func htmlMetadata(doc *html.Node) map[string]any {
	fields := map[string]any{}
	q := goquery.NewDocumentFromNode(doc)

	if title := strings.TrimSpace(q.Find("head title").First().Text()); title != "" {
		fields["title"] = title
	}
	for name, key := range map[string]string{
		"author":      "author",
		"description": "description",
		"keywords":    "tags",
	} {
		content := strings.TrimSpace(q.Find(`meta[name="` + name + `"]`).First().AttrOr("content", ""))
		if content != "" {
			fields[key] = content
		}
	}
	return fields
}

func isBlock(tag string) bool {
	switch tag {
	case "p", "h1", "h2", "h3", "h4", "h5", "h6", "ul", "ol", "li", "blockquote", "pre",
		"hr", "table", "thead", "tbody", "tfoot", "tr", "td", "th",
		"div", "section", "article", "main", "aside", "figure", "figcaption":
		return true
	}
	return false
}

func skipped(tag string) bool {
	switch tag {
	case "script", "style", "nav", "footer", "header", "noscript", "template", "head":
		return true
	}
	return false
}

// blockChildren converts the children of n in a block context. Runs of
// inline content are wrapped in paragraphs.
func blockChildren(n *html.Node) []*doctree.Node {
	out := []*doctree.Node{}
	var pending []*html.Node

	flush := func() {
		if len(pending) == 0 {
			return
		}
		inline := inlineNodes(pending)
		pending = nil
		if para := paragraph(inline); para != nil {
			out = append(out, para)
		}
	}

	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && skipped(c.Data) {
			continue
		}
		if c.Type == html.ElementNode && isBlock(c.Data) {
			flush()
			out = append(out, blockNode(c)...)
			continue
		}
		if c.Type == html.TextNode || c.Type == html.ElementNode {
			pending = append(pending, c)
		}
	}
	flush()
	return out
}

func blockNode(n *html.Node) []*doctree.Node {
	switch n.Data {
	case "h1", "h2", "h3", "h4", "h5", "h6":
		depth := int(n.Data[1] - '0')
		inline := trimInline(inlineChildren(n))
		if len(inline) == 0 {
			return nil
		}
		return one(&doctree.Node{Type: doctree.TypeHeading, Depth: depth, Children: inline})

	case "p":
		if para := paragraph(inlineChildren(n)); para != nil {
			return one(para)
		}
		return nil

	case "ul", "ol":
		list := &doctree.Node{Type: doctree.TypeList, Ordered: n.Data == "ol", Children: []*doctree.Node{}}
		if list.Ordered {
			start := 1
			if v, err := strconv.Atoi(attr(n, "start")); err == nil {
				start = v
			}
			list.Start = &start
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if c.Type == html.ElementNode && c.Data == "li" {
				list.Children = append(list.Children, &doctree.Node{Type: doctree.TypeListItem, Children: blockChildren(c)})
			}
		}
		return one(list)

	case "li":
		return one(&doctree.Node{Type: doctree.TypeListItem, Children: blockChildren(n)})

	case "blockquote":
		return one(&doctree.Node{Type: doctree.TypeBlockquote, Children: blockChildren(n)})

	case "pre":
		code := &doctree.Node{Type: doctree.TypeCode, Value: strings.TrimSuffix(textContent(n), "\n")}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if c.Type == html.ElementNode && c.Data == "code" {
				for _, class := range strings.Fields(attr(c, "class")) {
					if lang, ok := strings.CutPrefix(class, "language-"); ok {
						code.Lang = lang
					}
				}
			}
		}
		return one(code)

	case "hr":
		return one(&doctree.Node{Type: doctree.TypeThematicBreak})

	case "table":
		table := &doctree.Node{Type: doctree.TypeTable, Children: []*doctree.Node{}}
		collectRows(n, table)
		return one(table)

	case "tr":
		return one(tableRow(n))

	case "td", "th":
		return one(&doctree.Node{Type: doctree.TypeTableCell, Children: trimInline(inlineChildren(n))})

	default:
		// Generic containers are unwrapped.
		return blockChildren(n)
	}
}

func collectRows(n *html.Node, table *doctree.Node) {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != html.ElementNode {
			continue
		}
		switch c.Data {
		case "thead", "tbody", "tfoot":
			collectRows(c, table)
		case "tr":
			table.Children = append(table.Children, tableRow(c))
		}
	}
}

func tableRow(n *html.Node) *doctree.Node {
	row := &doctree.Node{Type: doctree.TypeTableRow, Children: []*doctree.Node{}}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && (c.Data == "td" || c.Data == "th") {
			row.Children = append(row.Children, &doctree.Node{Type: doctree.TypeTableCell, Children: trimInline(inlineChildren(c))})
		}
	}
	return row
}

func inlineChildren(n *html.Node) []*doctree.Node {
	var nodes []*html.Node
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		nodes = append(nodes, c)
	}
	return inlineNodes(nodes)
}

// inlineNodes converts a run of inline HTML nodes, merging adjacent text.
func inlineNodes(nodes []*html.Node) []*doctree.Node {
	out := []*doctree.Node{}
	push := func(n *doctree.Node) {
		if n.Type == doctree.TypeText && len(out) > 0 && out[len(out)-1].Type == doctree.TypeText {
			out[len(out)-1].Value += n.Value
			return
		}
		out = append(out, n)
	}

	for _, c := range nodes {
		switch c.Type {
		case html.TextNode:
			if v := spaceRe.ReplaceAllString(c.Data, " "); v != "" {
				push(doctree.Text(v))
			}
		case html.ElementNode:
			if skipped(c.Data) {
				continue
			}
			for _, n := range inlineNode(c) {
				push(n)
			}
		}
	}
	return out
}

func inlineNode(n *html.Node) []*doctree.Node {
	switch n.Data {
	case "a":
		return one(&doctree.Node{Type: doctree.TypeLink, URL: attr(n, "href"), Title: attr(n, "title"), Children: inlineChildren(n)})
	case "img":
		return one(&doctree.Node{Type: doctree.TypeImage, URL: attr(n, "src"), Title: attr(n, "title"), Alt: attr(n, "alt")})
	case "strong", "b":
		return one(&doctree.Node{Type: doctree.TypeStrong, Children: inlineChildren(n)})
	case "em", "i":
		return one(&doctree.Node{Type: doctree.TypeEmphasis, Children: inlineChildren(n)})
	case "del", "s", "strike":
		return one(&doctree.Node{Type: doctree.TypeDelete, Children: inlineChildren(n)})
	case "code":
		return one(&doctree.Node{Type: doctree.TypeInlineCode, Value: textContent(n)})
	case "br":
		return one(&doctree.Node{Type: doctree.TypeBreak})
	default:
		return inlineChildren(n)
	}
}

// paragraph wraps inline content, dropping whitespace-only runs.
func paragraph(inline []*doctree.Node) *doctree.Node {
	inline = trimInline(inline)
	if len(inline) == 0 {
		return nil
	}
	return &doctree.Node{Type: doctree.TypeParagraph, Children: inline}
}

// trimInline strips leading and trailing whitespace from the edge text nodes.
func trimInline(inline []*doctree.Node) []*doctree.Node {
	if len(inline) > 0 && inline[0].Type == doctree.TypeText {
		inline[0].Value = strings.TrimLeft(inline[0].Value, " ")
		if inline[0].Value == "" {
			inline = inline[1:]
		}
	}
	if n := len(inline); n > 0 && inline[n-1].Type == doctree.TypeText {
		inline[n-1].Value = strings.TrimRight(inline[n-1].Value, " ")
		if inline[n-1].Value == "" {
			inline = inline[:n-1]
		}
	}
	return inline
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func textContent(n *html.Node) string {
	var buf strings.Builder
	var extract func(*html.Node)
	extract = func(n *html.Node) {
		if n.Type == html.ElementNode && skipped(n.Data) {
			return
		}
		if n.Type == html.TextNode {
			buf.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			extract(c)
		}
	}
	extract(n)
	return buf.String()
}

func findBody(n *html.Node) *html.Node {
	if n.Type == html.ElementNode && n.Data == "body" {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if b := findBody(c); b != nil {
			return b
		}
	}
	return nil
}
