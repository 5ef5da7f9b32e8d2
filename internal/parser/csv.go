package parser

import (
	"context"
	"encoding/csv"
	"fmt"
	"strings"

	"github.com/dgallion1/ubreader/internal/doctree"
)

// CSVParser turns a CSV file into a single table. The first record is the
// header row.
type CSVParser struct{}

func (p *CSVParser) Parse(ctx context.Context, src Source) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	reader := csv.NewReader(strings.NewReader(src.String()))
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse csv: %w", err)
	}

	root := doctree.NewRoot()
	res := &Result{Content: root, Text: src.String(), Fields: map[string]any{}}
	if len(records) == 0 {
		return res, nil
	}

	width := 0
	for _, rec := range records {
		width = max(width, len(rec))
	}

	table := &doctree.Node{
		Type:     doctree.TypeTable,
		Align:    make([]string, width),
		Children: make([]*doctree.Node, 0, len(records)),
	}
	for _, rec := range records {
		row := &doctree.Node{Type: doctree.TypeTableRow, Children: make([]*doctree.Node, 0, width)}
		for i := 0; i < width; i++ {
			cell := &doctree.Node{Type: doctree.TypeTableCell, Children: []*doctree.Node{}}
			if i < len(rec) && rec[i] != "" {
				cell.Children = append(cell.Children, doctree.Text(rec[i]))
			}
			row.Children = append(row.Children, cell)
		}
		table.Children = append(table.Children, row)
	}
	root.Children = append(root.Children, table)

	res.Fields["columns"] = records[0]
	res.Fields["rows"] = len(records) - 1
	return res, nil
}
