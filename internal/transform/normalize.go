package transform

import (
	"path"
	"regexp"
	"strings"

	"github.com/dgallion1/ubreader/internal/doctree"
	"golang.org/x/text/unicode/norm"
)

const defaultImageAlt = "Image"

var (
	schemeRe     = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9+.-]*:`)
	bareDomainRe = regexp.MustCompile(`(?i)^(?:www\.[^/?#\s]+|[a-z0-9-]+(?:\.[a-z0-9-]+)*\.([a-z]{2,}))(?::\d+)?(?:[/?#]|$)`)
)

// File extensions that look like top-level domains in a bare relative path.
var fileExtensions = map[string]bool{
	"md": true, "markdown": true, "html": true, "htm": true, "txt": true, "csv": true,
	"pdf": true, "docx": true, "png": true, "jpg": true, "jpeg": true, "gif": true,
	"svg": true, "webp": true, "css": true, "js": true, "json": true, "xml": true,
}

// NormalizeContent returns a corrected deep copy of root. Heading depths are
// clamped to 1..6, images without alt text get one, link and image URLs are
// trimmed with protocol-relative URLs upgraded to https, and text values are
// put in Unicode NFC form. It never fails.
func NormalizeContent(root *doctree.Node) *doctree.Node {
	out := root.Clone()
	doctree.Walk(out, func(n *doctree.Node) bool {
		switch n.Type {
		case doctree.TypeHeading:
			n.Depth = min(max(n.Depth, 1), 6)
		case doctree.TypeImage:
			n.URL = upgradeProtocolRelative(strings.TrimSpace(n.URL))
			if strings.TrimSpace(n.Alt) == "" {
				n.Alt = defaultImageAlt
				if t := strings.TrimSpace(n.Title); t != "" {
					n.Alt = t
				}
			}
		case doctree.TypeLink:
			n.URL = upgradeProtocolRelative(strings.TrimSpace(n.URL))
		case doctree.TypeText:
			n.Value = norm.NFC.String(n.Value)
		}
		return true
	})
	return out
}

// StandardizeHeadingHierarchy removes skipped levels among the top-level
// headings: a heading may be at most one level deeper than the one before it.
func StandardizeHeadingHierarchy(root *doctree.Node) *doctree.Node {
	out := root.Clone()
	if out == nil {
		return nil
	}
	prev := 0
	for _, n := range out.Children {
		if n == nil || n.Type != doctree.TypeHeading {
			continue
		}
		n.Depth = max(n.Depth, 1)
		if n.Depth > prev+1 {
			n.Depth = prev + 1
		}
		prev = n.Depth
	}
	return out
}

// NormalizeLinks rewrites protocol-relative and bare-domain link and image
// URLs anywhere in the tree to absolute https URLs.
func NormalizeLinks(root *doctree.Node) *doctree.Node {
	out := root.Clone()
	doctree.Walk(out, func(n *doctree.Node) bool {
		if n.Type == doctree.TypeLink || n.Type == doctree.TypeImage {
			n.URL = absoluteURL(n.URL)
		}
		return true
	})
	return out
}

// NormalizeImages makes every image URL absolute or root-relative and
// guarantees non-empty alt text.
func NormalizeImages(root *doctree.Node) *doctree.Node {
	out := root.Clone()
	doctree.Walk(out, func(n *doctree.Node) bool {
		if n.Type != doctree.TypeImage {
			return true
		}
		u := upgradeProtocolRelative(strings.TrimSpace(n.URL))
		if u != "" && !schemeRe.MatchString(u) && !strings.HasPrefix(u, "/") {
			u = "/" + strings.TrimPrefix(u, "./")
		}
		n.URL = u
		n.Alt = imageAlt(n)
		return true
	})
	return out
}

func imageAlt(n *doctree.Node) string {
	if alt := strings.TrimSpace(n.Alt); alt != "" {
		return alt
	}
	if title := strings.TrimSpace(n.Title); title != "" {
		return title
	}
	p := n.URL
	if i := strings.IndexAny(p, "?#"); i >= 0 {
		p = p[:i]
	}
	base := path.Base(p)
	if stem := strings.TrimSuffix(base, path.Ext(base)); stem != "" && stem != "." && stem != "/" {
		return stem
	}
	return defaultImageAlt
}

func upgradeProtocolRelative(u string) string {
	if strings.HasPrefix(u, "//") {
		return "https:" + u
	}
	return u
}

func absoluteURL(raw string) string {
	u := upgradeProtocolRelative(strings.TrimSpace(raw))
	switch {
	case u == "",
		strings.HasPrefix(u, "/"),
		strings.HasPrefix(u, "#"),
		strings.HasPrefix(u, "?"),
		strings.HasPrefix(u, "."):
		return u
	}
	// Checked before the scheme test so that host:port is not read as a scheme.
	m := bareDomainRe.FindStringSubmatch(u)
	if m == nil || (m[1] != "" && fileExtensions[strings.ToLower(m[1])]) {
		return u
	}
	return "https://" + u
}
