// Package print renders query results as plain text for the non-interactive
// command line.
package print

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/goccy/go-json"

	"github.com/bgunnarsson/sqlkit/internal/db"
)

type Options struct {
	MaxWidth int  // max width for each column, 0 = 40
	Color    bool // bold headers and dim NULLs
}

var (
	headerStyle = lipgloss.NewStyle().Bold(true)
	nullStyle   = lipgloss.NewStyle().Faint(true)
)

func (o Options) header(s string) string {
	if !o.Color {
		return s
	}
	return headerStyle.Render(s)
}

func (o Options) cell(v any, s string) string {
	if !o.Color || v != nil {
		return s
	}
	return nullStyle.Render(s)
}

// RenderTable draws rows as an ASCII grid.
func RenderTable(w io.Writer, rows *db.Rows, opts Options) {
	if opts.MaxWidth <= 0 {
		opts.MaxWidth = 40
	}

	cols := len(rows.Columns)
	if cols == 0 {
		fmt.Fprintln(w, "(no columns)")
		return
	}

	widths := make([]int, cols)
	for i, col := range rows.Columns {
		widths[i] = min(lipgloss.Width(col.Name), opts.MaxWidth)
	}
	for _, r := range rows.Data {
		for i := 0; i < cols && i < len(r); i++ {
			widths[i] = max(widths[i], min(lipgloss.Width(FormatCell(r[i])), opts.MaxWidth))
		}
	}

	sep := func(ch string) string {
		var b strings.Builder
		b.WriteString("+")
		for _, wd := range widths {
			b.WriteString(strings.Repeat(ch, wd+2))
			b.WriteString("+")
		}
		return b.String()
	}

	writeRow := func(cells []string, style func(i int, s string) string) {
		var b strings.Builder
		b.WriteString("|")
		for i, c := range cells {
			b.WriteString(" ")
			b.WriteString(style(i, padRight(truncate(c, widths[i]), widths[i])))
			b.WriteString(" |")
		}
		fmt.Fprintln(w, b.String())
	}

	fmt.Fprintln(w, sep("-"))
	header := make([]string, cols)
	for i, col := range rows.Columns {
		header[i] = col.Name
	}
	writeRow(header, func(_ int, s string) string { return opts.header(s) })
	fmt.Fprintln(w, sep("="))

	for _, r := range rows.Data {
		cells := make([]string, cols)
		for i := 0; i < cols && i < len(r); i++ {
			cells[i] = FormatCell(r[i])
		}
		writeRow(cells, func(i int, s string) string {
			if i < len(r) {
				return opts.cell(r[i], s)
			}
			return s
		})
	}
	fmt.Fprintln(w, sep("-"))
	fmt.Fprintf(w, "%d row(s)\n", len(rows.Data))
}

// FormatCell renders a scanned value the way the table shows it.
func FormatCell(v any) string {
	if v == nil {
		return "NULL"
	}
	switch t := v.(type) {
	case []byte:
		s := string(t)
		if isPrintable(s) {
			return s
		}
		return fmt.Sprintf("<blob %d bytes>", len(t))
	case int64:
		return strconv.FormatInt(t, 10)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case json.Number:
		return t.String()
	case map[string]any, []any:
		b, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprint(t)
		}
		return string(b)
	default:
		return fmt.Sprint(t)
	}
}

func isPrintable(s string) bool {
	for _, r := range s {
		if r < 32 && r != '\n' && r != '\t' {
			return false
		}
	}
	return true
}

func padRight(s string, w int) string {
	if n := lipgloss.Width(s); n < w {
		return s + strings.Repeat(" ", w-n)
	}
	return s
}

// truncate cuts s to w runes, marking the cut with "...".
func truncate(s string, w int) string {
	r := []rune(s)
	if len(r) <= w {
		return s
	}
	if w <= 3 {
		return string(r[:w])
	}
	return string(r[:w-3]) + "..."
}
