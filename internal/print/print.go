package print

import (
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/bgunnarsson/sqlkit/internal/db"
)

// RenderRecord prints one row vertically, one "column: value" per line.
// A nil row prints "(no row)".
func RenderRecord(w io.Writer, cols []string, row map[string]any, opts Options) {
	if row == nil {
		fmt.Fprintln(w, "(no row)")
		return
	}
	if len(cols) == 0 {
		cols = sortedKeys(row)
	}

	width := 0
	for _, c := range cols {
		width = max(width, lipgloss.Width(c))
	}
	for _, c := range cols {
		v := row[c]
		fmt.Fprintf(w, "%s : %s\n", opts.header(padRight(c, width)), opts.cell(v, FormatCell(v)))
	}
}

// RenderList prints key => value pairs ordered by key.
func RenderList(w io.Writer, list map[string]any, opts Options) {
	keys := sortedKeys(list)
	width := 0
	for _, k := range keys {
		width = max(width, lipgloss.Width(k))
	}
	for _, k := range keys {
		v := list[k]
		fmt.Fprintf(w, "%s => %s\n", opts.header(padRight(k, width)), opts.cell(v, FormatCell(v)))
	}
}

// RenderColumns prints the schema of a table as a grid.
func RenderColumns(w io.Writer, cols []db.Column, opts Options) {
	rows := &db.Rows{
		Columns: []db.Column{{Name: "Field"}, {Name: "Type"}, {Name: "Null"}, {Name: "Key"}, {Name: "Default"}, {Name: "Extra"}},
	}
	for _, c := range cols {
		var def any
		if c.Default != nil {
			def = *c.Default
		}
		rows.Data = append(rows.Data, db.Row{c.Name, c.Type, yesNo(c.Null), keyMark(c.Key), def, c.Extra})
	}
	RenderTable(w, rows, opts)
}

// RenderLog prints executed statements numbered from 1.
func RenderLog(w io.Writer, queries []string) {
	if len(queries) == 0 {
		return
	}
	digits := len(fmt.Sprint(len(queries)))
	for i, q := range queries {
		fmt.Fprintf(w, "%*d. %s\n", digits, i+1, strings.TrimSpace(q))
	}
}

func yesNo(b bool) string {
	if b {
		return "YES"
	}
	return "NO"
}

func keyMark(b bool) string {
	if b {
		return "PRI"
	}
	return ""
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
