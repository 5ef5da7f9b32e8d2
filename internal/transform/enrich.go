package transform

import (
	"strings"

	"github.com/dgallion1/ubreader/internal/doctree"
)

// EnrichMetadata merges metadata into a copy of d. Precedence, lowest first:
// values derived from the content, values extracted by the parser, and the
// caller's opts.Metadata. With ExtractMetadata off only the caller's values
// are kept.
func EnrichMetadata(d doctree.Draft, opts doctree.TransformOptions) doctree.Draft {
	out := d.Clone()
	fields := out.Fields

	if !opts.ExtractMetadata {
		fields = make(map[string]any, len(opts.Metadata))
	} else {
		if !hasValue(fields, "title") {
			if title := firstHeading(out.Content); title != "" {
				fields["title"] = title
			}
		}
		if _, ok := fields["wordCount"]; !ok {
			if n := wordCount(out.Content); n > 0 {
				fields["wordCount"] = n
			}
		}
	}

	for k, v := range opts.Metadata {
		fields[k] = v
	}
	out.Fields = fields
	return out
}

func hasValue(fields map[string]any, key string) bool {
	v, ok := fields[key]
	if !ok || v == nil {
		return false
	}
	if s, isString := v.(string); isString {
		return strings.TrimSpace(s) != ""
	}
	return true
}

func firstHeading(root *doctree.Node) string {
	var title string
	doctree.Walk(root, func(n *doctree.Node) bool {
		if title != "" {
			return false
		}
		if n.Type == doctree.TypeHeading {
			title = strings.TrimSpace(doctree.PlainText(n))
			return false
		}
		return true
	})
	return title
}

func wordCount(root *doctree.Node) int {
	n := 0
	doctree.Walk(root, func(c *doctree.Node) bool {
		if c.Type == doctree.TypeText {
			n += len(strings.Fields(c.Value))
		}
		return true
	})
	return n
}
