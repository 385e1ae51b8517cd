package cli

import (
	"fmt"
	"io"
	"strings"
)

// Table renders rows under a header line. Created via Output.Table().
type Table struct {
	out     *Output
	meta    Meta
	headers []string
	rows    [][]any
}

// Row adds a row. Values can be any type.
func (t *Table) Row(values ...any) *Table {
	t.rows = append(t.rows, values)
	return t
}

// Render outputs the table in the configured format.
func (t *Table) Render() error {
	return t.out.Render(t)
}

// Meta returns the metadata.
func (t *Table) Meta() Meta {
	return t.meta
}

// RenderText writes the table with padded columns.
func (t *Table) RenderText(w io.Writer) error {
	if len(t.rows) == 0 {
		_, err := fmt.Fprintln(w, t.out.styles.faint.Render("(none)"))
		return err
	}

	widths := make([]int, len(t.headers))
	for i, h := range t.headers {
		widths[i] = len(h)
	}
	cells := make([][]string, len(t.rows))
	for ri, row := range t.rows {
		cells[ri] = make([]string, len(t.headers))
		for ci := range t.headers {
			if ci < len(row) {
				cells[ri][ci] = formatValue(row[ci])
			}
			if len(cells[ri][ci]) > widths[ci] {
				widths[ci] = len(cells[ri][ci])
			}
		}
	}

	var header strings.Builder
	for ci, h := range t.headers {
		header.WriteString(pad(strings.ToUpper(h), widths[ci]))
		if ci < len(t.headers)-1 {
			header.WriteString("  ")
		}
	}
	if _, err := fmt.Fprintln(w, t.out.styles.header.Render(header.String())); err != nil {
		return err
	}

	for _, row := range cells {
		var line strings.Builder
		for ci, cell := range row {
			line.WriteString(pad(cell, widths[ci]))
			if ci < len(row)-1 {
				line.WriteString("  ")
			}
		}
		if _, err := fmt.Fprintln(w, strings.TrimRight(line.String(), " ")); err != nil {
			return err
		}
	}
	return nil
}

// RenderJSON returns the rows as a list of objects keyed by header.
func (t *Table) RenderJSON() any {
	result := make([]map[string]any, 0, len(t.rows))
	for _, row := range t.rows {
		obj := make(map[string]any, len(t.headers))
		for ci, h := range t.headers {
			if ci < len(row) {
				obj[toJSONKey(h)] = row[ci]
			}
		}
		result = append(result, obj)
	}
	return result
}

func pad(s string, width int) string {
	if len(s) >= width {
		return s
	}
	return s + strings.Repeat(" ", width-len(s))
}
