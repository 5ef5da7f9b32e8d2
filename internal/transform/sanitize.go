package transform

import (
	"regexp"
	"strings"

	"github.com/dgallion1/ubreader/internal/doctree"
	"github.com/microcosm-cc/bluemonday"
)

var (
	entityRe       = regexp.MustCompile(`^&(?:#[0-9]+|#[xX][0-9a-fA-F]+|[A-Za-z][A-Za-z0-9]*);`)
	dangerousURLRe = regexp.MustCompile(`(?i)^\s*(?:javascript|data):`)

	// bluemonday policies are safe for concurrent use once built.
	htmlPolicy = bluemonday.UGCPolicy()
)

// SanitizeContent returns a copy of root that is safe to render. Text values
// have markup characters escaped, script and data URLs are replaced with "#",
// and raw HTML nodes are filtered through the UGC policy. Applying it twice
// gives the same tree as applying it once.
func SanitizeContent(root *doctree.Node) *doctree.Node {
	out := root.Clone()
	doctree.Walk(out, func(n *doctree.Node) bool {
		switch n.Type {
		case doctree.TypeText:
			n.Value = EscapeText(n.Value)
		case doctree.TypeLink, doctree.TypeImage:
			if dangerousURLRe.MatchString(n.URL) {
				n.URL = "#"
			}
		case doctree.TypeHTML:
			n.Value = htmlPolicy.Sanitize(n.Value)
		}
		return true
	})
	return out
}

// SanitizeHTML filters rendered document HTML.
func SanitizeHTML(s string) string {
	if s == "" {
		return ""
	}
	return htmlPolicy.Sanitize(s)
}

// EscapeText escapes <, > and any & that does not already start a character
// reference.
func EscapeText(s string) string {
	if !strings.ContainsAny(s, "<>&") {
		return s
	}
	var sb strings.Builder
	sb.Grow(len(s) + 8)
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '<':
			sb.WriteString("&lt;")
		case '>':
			sb.WriteString("&gt;")
		case '&':
			if entityRe.MatchString(s[i:]) {
				sb.WriteByte('&')
			} else {
				sb.WriteString("&amp;")
			}
		default:
			sb.WriteByte(s[i])
		}
	}
	return sb.String()
}
