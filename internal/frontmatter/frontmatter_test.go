package frontmatter

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestExtract_NoFrontmatter_ReturnsInputUnchanged(t *testing.T) {
	input := "# Title\n\nHello\n"

	fields, body := Extract(input)
	require.Empty(t, fields)
	require.NotNil(t, fields)
	require.Equal(t, input, body)
}

func TestExtract_SplitsFieldsAndBody(t *testing.T) {
	fields, body := Extract("---\ntitle: T\nauthor: Jane Doe\n---\nBODY")

	require.Equal(t, map[string]string{"title": "T", "author": "Jane Doe"}, fields)
	require.Equal(t, "BODY", body)
}

func TestExtract_SplitsOnFirstColonOnly(t *testing.T) {
	fields, _ := Extract("---\nsubtitle:  Paper 1: The Universal Father \n---\n")

	require.Equal(t, "Paper 1: The Universal Father", fields["subtitle"])
}

func TestExtract_IgnoresLinesWithoutColon(t *testing.T) {
	fields, body := Extract("---\njust words\ntitle: X\n: nokey\n---\nrest\n")

	require.Equal(t, map[string]string{"title": "X"}, fields)
	require.Equal(t, "rest\n", body)
}

func TestExtract_MustStartAtBeginning(t *testing.T) {
	input := "\n---\ntitle: T\n---\nBODY"

	fields, body := Extract(input)
	require.Empty(t, fields)
	require.Equal(t, input, body)
}

func TestExtract_UnclosedBlockIsNotFrontmatter(t *testing.T) {
	input := "---\ntitle: T\nno closer here\n"

	fields, body := Extract(input)
	require.Empty(t, fields)
	require.Equal(t, input, body)
}

func TestExtract_CRLF(t *testing.T) {
	fields, body := Extract("---\r\ntitle: T\r\n---\r\nBODY")

	require.Equal(t, "T", fields["title"])
	require.Equal(t, "BODY", body)
}

func TestExtract_CloserAtEndOfInput(t *testing.T) {
	fields, body := Extract("---\ntags: a, b\n---")

	require.Equal(t, "a, b", fields["tags"])
	require.Equal(t, "", body)
}
