package parser

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/dgallion1/ubreader/internal/doctree"
	"github.com/fumiama/go-docx"
)

func TestDOCXTreeFromHTML_ParagraphsAndHeadings(t *testing.T) {
	root := docxTreeFromHTML(`<h1>Paper 1</h1><p>The <strong>Universal</strong> Father</p><p class="x">A &amp; B</p><h3>Section</h3><p>  </p>`)

	if root.Type != doctree.TypeRoot {
		t.Fatalf("expected root, got %s", root.Type)
	}
	if len(root.Children) != 4 {
		t.Fatalf("expected 4 blocks, got %d", len(root.Children))
	}

	want := []struct {
		typ   string
		depth int
		text  string
	}{
		{doctree.TypeHeading, 1, "Paper 1"},
		{doctree.TypeParagraph, 0, "The Universal Father"},
		{doctree.TypeParagraph, 0, "A & B"},
		{doctree.TypeHeading, 3, "Section"},
	}
	for i, w := range want {
		n := root.Children[i]
		if n.Type != w.typ || n.Depth != w.depth {
			t.Errorf("block %d: expected %s/%d, got %s/%d", i, w.typ, w.depth, n.Type, n.Depth)
		}
		if got := doctree.PlainText(n); got != w.text {
			t.Errorf("block %d: expected text %q, got %q", i, w.text, got)
		}
	}
}

func TestDOCXTreeFromHTML_DropsUnaddressedStructure(t *testing.T) {
	root := docxTreeFromHTML(`<ul><li>item</li></ul><table><tr><td>cell</td></tr></table>`)
	if len(root.Children) != 0 {
		t.Errorf("expected lists and tables to be dropped, got %d blocks", len(root.Children))
	}
	if root.Children == nil {
		t.Error("expected non-nil children on an empty root")
	}
}

func TestDOCXExtractMetadata(t *testing.T) {
	p := &DOCXParser{log: slog.New(slog.NewTextHandler(io.Discard, nil))}

	tests := []struct {
		name   string
		text   string
		title  any
		author any
	}{
		{"title and author", "\n  The Urantia Papers \n\nAuthor: A. Reader\n\nBody", "The Urantia Papers", "A. Reader"},
		{"by line", "Title\n\nIntro\n\nBy Jane Roe", "Title", "Jane Roe"},
		{"empty author line skipped", "Title\n\nAuthor:\n\nBy Jane Roe", "Title", "Jane Roe"},
		{"no author", "Only a title", "Only a title", nil},
		{"empty", "", nil, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fields := p.extractMetadata(tt.text)
			if fields["title"] != tt.title {
				t.Errorf("expected title %v, got %v", tt.title, fields["title"])
			}
			if fields["author"] != tt.author {
				t.Errorf("expected author %v, got %v", tt.author, fields["author"])
			}
		})
	}
}

func TestDOCXParser_RejectsGarbage(t *testing.T) {
	p, err := ForType(TypeDOCX, Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := p.Parse(context.Background(), BinarySource([]byte("not a zip archive"))); err == nil {
		t.Error("expected error for invalid docx payload")
	}
}

func TestDOCXParser_HonoursCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	p := &DOCXParser{log: slog.Default()}
	if _, err := p.Parse(ctx, BinarySource(nil)); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestDOCXParagraphText_IncludesHyperlinks(t *testing.T) {
	text := func(s string) *docx.Text { return &docx.Text{Text: s} }
	para := &docx.Paragraph{Children: []interface{}{
		&docx.Run{Children: []interface{}{text("See ")}},
		&docx.Hyperlink{ID: "rId4", Run: docx.Run{Children: []interface{}{text("Paper 12")}}},
		&docx.Run{Children: []interface{}{text(" for more.")}},
	}}

	if got := docxParagraphText(para); got != "See Paper 12 for more." {
		t.Errorf("docxParagraphText = %q", got)
	}
}
