package transform

import (
	"strings"
	"testing"

	"github.com/dgallion1/ubreader/internal/doctree"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEscapeText(t *testing.T) {
	tests := map[string]string{
		"plain":                     "plain",
		"a < b > c":                 "a &lt; b &gt; c",
		"Tom & Jerry":               "Tom &amp; Jerry",
		"already &amp; escaped":     "already &amp; escaped",
		"numeric &#169; &#xA9;":     "numeric &#169; &#xA9;",
		"named &copy; ok":           "named &copy; ok",
		"dangling &":                "dangling &amp;",
		"not entity &#; &x y;":      "not entity &amp;#; &amp;x y;",
		"<script>alert(1)</script>": "&lt;script&gt;alert(1)&lt;/script&gt;",
	}
	for in, want := range tests {
		assert.Equal(t, want, EscapeText(in), in)
	}
}

func sampleTree() *doctree.Node {
	return tree(
		heading(1, "Tom & Jerry <3"),
		&doctree.Node{Type: doctree.TypeParagraph, Children: []*doctree.Node{
			doctree.Text("a &amp; b & c <b>"),
			{Type: doctree.TypeLink, URL: "javascript:alert(1)", Children: []*doctree.Node{doctree.Text("click")}},
			{Type: doctree.TypeLink, URL: "  JavaScript:void(0)"},
			{Type: doctree.TypeImage, URL: "javascript:alert(1)", Alt: "x"},
			{Type: doctree.TypeImage, URL: "DATA:image/png;base64,AAAA", Alt: "y"},
			{Type: doctree.TypeLink, URL: "https://example.org/?a=1&b=2"},
		}},
		&doctree.Node{Type: doctree.TypeCode, Value: "if a < b && c {}"},
	)
}

func TestSanitizeContent_Idempotent(t *testing.T) {
	once := SanitizeContent(sampleTree())
	twice := SanitizeContent(once)
	assert.Equal(t, once, twice)
}

func TestSanitizeContent_NeutralizesDangerousURLs(t *testing.T) {
	out := SanitizeContent(sampleTree())
	p := out.Children[1]

	assert.Equal(t, "#", p.Children[1].URL)
	assert.Equal(t, "#", p.Children[2].URL)
	assert.Equal(t, "#", p.Children[3].URL)
	assert.Equal(t, "#", p.Children[4].URL)
	assert.Equal(t, "https://example.org/?a=1&b=2", p.Children[5].URL)
}

func TestSanitizeContent_EscapesTextOnly(t *testing.T) {
	in := sampleTree()
	out := SanitizeContent(in)

	assert.Equal(t, "Tom &amp; Jerry &lt;3", out.Children[0].Children[0].Value)
	assert.Equal(t, "a &amp; b &amp; c &lt;b&gt;", out.Children[1].Children[0].Value)
	assert.Equal(t, "if a < b && c {}", out.Children[2].Value, "code is not text")
	assert.Equal(t, "Tom & Jerry <3", in.Children[0].Children[0].Value, "input must not be mutated")
}

func TestSanitizeContent_RawHTML(t *testing.T) {
	out := SanitizeContent(tree(&doctree.Node{Type: doctree.TypeHTML, Value: `<p onclick="x()">hi</p><script>alert(1)</script>`}))
	v := out.Children[0].Value
	assert.Contains(t, v, "<p>hi</p>")
	assert.NotContains(t, v, "script")
	assert.NotContains(t, v, "onclick")
}

func TestSanitizeHTML(t *testing.T) {
	assert.Equal(t, "", SanitizeHTML(""))
	out := SanitizeHTML("<h1>Hello</h1>\n<p>World</p>\n<script>bad()</script>")
	require.True(t, strings.Contains(out, "<h1>Hello</h1>"))
	assert.Contains(t, out, "<p>World</p>")
	assert.NotContains(t, out, "bad()")
}
