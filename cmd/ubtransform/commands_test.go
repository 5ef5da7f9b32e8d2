package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/dgallion1/ubreader/internal/parser"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func TestTransformCmd_Markdown(t *testing.T) {
	cmd := &TransformCmd{File: "paper.md", PublicationType: "scientific", Outline: true, PassageTokens: 50, Compact: true}

	var buf bytes.Buffer
	require.NoError(t, cmd.run(context.Background(), quietLogger(), []byte("---\nauthor: Ann\n---\n# Title\n\nBody text."), &buf))

	var out struct {
		Document struct {
			PublicationType string         `json:"publicationType"`
			Metadata        map[string]any `json:"metadata"`
			HTML            string         `json:"html"`
		} `json:"document"`
		Outline *struct {
			Sections []struct {
				Anchor string `json:"anchor"`
			} `json:"sections"`
		} `json:"outline"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &out))
	assert.Equal(t, "scientific", out.Document.PublicationType)
	assert.Equal(t, "Ann", out.Document.Metadata["author"])
	assert.Equal(t, "Title", out.Document.Metadata["title"])
	assert.Contains(t, out.Document.HTML, "<h1>Title</h1>")
	require.NotNil(t, out.Outline)
	require.Len(t, out.Outline.Sections, 1)
	assert.Equal(t, "title", out.Outline.Sections[0].Anchor)
}

func TestTransformCmd_OutlineReadsUnescapedText(t *testing.T) {
	cmd := &TransformCmd{File: "qa.md", Outline: true, PassageTokens: 50, Compact: true}

	var buf bytes.Buffer
	require.NoError(t, cmd.run(context.Background(), quietLogger(), []byte("# Q&A\n\nFaith & hope"), &buf))

	var out struct {
		Outline struct {
			Sections []struct {
				Title  string `json:"title"`
				Anchor string `json:"anchor"`
			} `json:"sections"`
			Passages []struct {
				Text string `json:"text"`
			} `json:"passages"`
		} `json:"outline"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &out))
	require.Len(t, out.Outline.Sections, 1)
	assert.Equal(t, "Q&A", out.Outline.Sections[0].Title)
	assert.Equal(t, "q-a", out.Outline.Sections[0].Anchor)
	require.Len(t, out.Outline.Passages, 1)
	assert.Equal(t, "Faith & hope", out.Outline.Passages[0].Text)
}

func TestTransformCmd_NoMetadata(t *testing.T) {
	cmd := &TransformCmd{File: "notes.txt", NoMetadata: true}

	var buf bytes.Buffer
	require.NoError(t, cmd.run(context.Background(), quietLogger(), []byte("Just text."), &buf))
	assert.NotContains(t, buf.String(), `"outline"`)

	var out map[string]map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &out))
	assert.Empty(t, out["document"]["metadata"])
}

func TestTransformCmd_Errors(t *testing.T) {
	ctx := context.Background()
	var buf bytes.Buffer

	err := (&TransformCmd{File: "notes.rtf"}).run(ctx, quietLogger(), []byte("x"), &buf)
	assert.ErrorIs(t, err, parser.ErrUnsupportedType)

	err = (&TransformCmd{File: "notes.md", Type: "docx"}).run(ctx, quietLogger(), []byte("x"), &buf)
	assert.ErrorIs(t, err, parser.ErrPayloadMismatch)

	err = (&TransformCmd{File: "notes.md", PublicationType: "novel"}).run(ctx, quietLogger(), []byte("x"), &buf)
	assert.Error(t, err)
	assert.Zero(t, buf.Len())
}

func TestListTypes(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, listTypes(&buf))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 7)
	assert.True(t, strings.HasPrefix(lines[0], "markdown"))
	assert.Contains(t, lines[0], ".markdown .md")
	assert.Contains(t, lines[1], "perplexity")
}
