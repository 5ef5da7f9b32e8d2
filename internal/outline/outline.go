package outline

import (
	"strconv"
	"strings"

	"github.com/dgallion1/ubreader/internal/doctree"
	"golang.org/x/net/html"
)

// Config controls how section text is cut into reading passages.
type Config struct {
	PassageTokens int // Target passage size in tokens.
	Overlap       int // Tokens repeated at the start of the next passage.
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		PassageTokens: 500,
		Overlap:       0,
	}
}

// Section is one heading of the document and the text up to the next heading.
type Section struct {
	Index      int      `json:"index"`
	Anchor     string   `json:"anchor"`
	Title      string   `json:"title"`
	Depth      int      `json:"depth"`
	Breadcrumb []string `json:"breadcrumb"`
	Words      int      `json:"words"`
	Tokens     int      `json:"tokens"`
}

// Passage is a reader-sized slice of section text.
type Passage struct {
	Index      int      `json:"index"`
	Anchor     string   `json:"anchor,omitempty"`
	Breadcrumb []string `json:"breadcrumb,omitempty"`
	Text       string   `json:"text"`
	Tokens     int      `json:"tokens"`
}

// Outline is the navigation structure of a transformed document. Text before
// the first heading belongs to the preamble.
type Outline struct {
	PreambleWords int       `json:"preambleWords"`
	Sections      []Section `json:"sections"`
	Passages      []Passage `json:"passages"`
}

// Build walks the top-level blocks of root and groups them under headings.
func Build(root *doctree.Node, cfg Config) *Outline {
	if cfg.PassageTokens <= 0 {
		cfg.PassageTokens = DefaultConfig().PassageTokens
	}
	if cfg.Overlap < 0 {
		cfg.Overlap = 0
	}

	out := &Outline{Sections: []Section{}, Passages: []Passage{}}
	if root == nil {
		return out
	}

	type open struct {
		depth int
		title string
	}
	var stack []open
	anchors := map[string]int{}

	var preamble []string
	var body []string
	current := -1

	flush := func() {
		var text string
		if current < 0 {
			text = strings.Join(preamble, "\n\n")
			out.PreambleWords = len(strings.Fields(text))
			out.Passages = appendPassages(out.Passages, Section{}, text, cfg)
			return
		}
		text = strings.Join(body, "\n\n")
		sec := &out.Sections[current]
		sec.Words = len(strings.Fields(text))
		sec.Tokens = EstimateTokens(text)
		out.Passages = appendPassages(out.Passages, *sec, text, cfg)
		body = nil
	}

	for _, n := range root.Children {
		if n == nil {
			continue
		}
		if n.Type != doctree.TypeHeading {
			if t := blockText(n); t != "" {
				if current < 0 {
					preamble = append(preamble, t)
				} else {
					body = append(body, t)
				}
			}
			continue
		}

		flush()

		title := strings.TrimSpace(readableText(n))
		for len(stack) > 0 && stack[len(stack)-1].depth >= n.Depth {
			stack = stack[:len(stack)-1]
		}
		stack = append(stack, open{depth: n.Depth, title: title})

		bc := make([]string, len(stack))
		for i, o := range stack {
			bc[i] = o.title
		}

		out.Sections = append(out.Sections, Section{
			Index:      len(out.Sections),
			Anchor:     uniqueAnchor(anchors, title),
			Title:      title,
			Depth:      n.Depth,
			Breadcrumb: bc,
		})
		current = len(out.Sections) - 1
	}
	flush()

	for i := range out.Passages {
		out.Passages[i].Index = i
	}
	return out
}

func appendPassages(dst []Passage, sec Section, text string, cfg Config) []Passage {
	if text == "" {
		return dst
	}
	parts := []string{text}
	if EstimateTokens(text) > cfg.PassageTokens {
		parts = splitText(text, cfg.PassageTokens, cfg.Overlap)
	}
	for _, part := range parts {
		dst = append(dst, Passage{
			Anchor:     sec.Anchor,
			Breadcrumb: copyBreadcrumb(sec.Breadcrumb),
			Text:       part,
			Tokens:     EstimateTokens(part),
		})
	}
	return dst
}

// blockText renders a block as plain text, separating nested blocks with
// blank lines.
func blockText(n *doctree.Node) string {
	switch n.Type {
	case doctree.TypeParagraph, doctree.TypeHeading, doctree.TypeTableCell, doctree.TypeCode:
		return strings.TrimSpace(readableText(n))
	case doctree.TypeText:
		return strings.TrimSpace(html.UnescapeString(n.Value))
	case doctree.TypeHTML, doctree.TypeThematicBreak:
		return ""
	case doctree.TypeTableRow:
		var cells []string
		for _, c := range n.Children {
			if t := blockText(c); t != "" {
				cells = append(cells, t)
			}
		}
		return strings.Join(cells, " ")
	}
	var parts []string
	for _, c := range n.Children {
		if c == nil {
			continue
		}
		if t := blockText(c); t != "" {
			parts = append(parts, t)
		}
	}
	return strings.Join(parts, "\n\n")
}

// readableText is doctree.PlainText with the entity escaping of sanitized
// text values undone. Code values are never escaped and pass through as is.
func readableText(n *doctree.Node) string {
	var sb strings.Builder
	doctree.Walk(n, func(c *doctree.Node) bool {
		switch c.Type {
		case doctree.TypeText:
			sb.WriteString(html.UnescapeString(c.Value))
		case doctree.TypeInlineCode, doctree.TypeCode:
			sb.WriteString(c.Value)
		case doctree.TypeBreak:
			sb.WriteString("\n")
		case doctree.TypeImage:
			sb.WriteString(c.Alt)
		}
		return true
	})
	return sb.String()
}

func uniqueAnchor(seen map[string]int, title string) string {
	base := Slugify(title)
	if base == "" {
		base = "section"
	}
	seen[base]++
	if n := seen[base]; n > 1 {
		return base + "-" + strconv.Itoa(n)
	}
	return base
}

func copyBreadcrumb(bc []string) []string {
	if len(bc) == 0 {
		return nil
	}
	out := make([]string, len(bc))
	copy(out, bc)
	return out
}
