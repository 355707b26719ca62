// Package ui is the interactive table browser.
package ui

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"github.com/bgunnarsson/sqlkit/internal/client"
	"github.com/bgunnarsson/sqlkit/internal/db"
	"github.com/bgunnarsson/sqlkit/internal/print"
)

const (
	pageMain     = "main"
	pageRow      = "rowDetail"
	pageHelp     = "help"
	pageLog      = "queryLog"
	pageDescribe = "describe"

	maxColWidth = 40
	browseLimit = 100
)

type uiState struct {
	ctx   context.Context
	c     *client.Client
	label string

	app    *tview.Application
	pages  *tview.Pages
	tables *tview.List
	result *tview.Table
	query  *tview.InputField
	status *tview.TextView

	lastRows *db.Rows
}

// Run starts the browser on c and blocks until the user quits.
func Run(ctx context.Context, c *client.Client, label string) error {
	s := &uiState{
		ctx:   ctx,
		c:     c,
		label: label,
		app:   tview.NewApplication(),
	}

	setupTheme()
	s.app.SetRoot(s.buildLayout(), true).EnableMouse(true)
	s.app.SetFocus(s.tables)
	s.app.SetInputCapture(s.handleKey)

	_ = s.loadTables()
	return s.app.Run()
}

func (s *uiState) handleKey(ev *tcell.EventKey) *tcell.EventKey {
	front, _ := s.pages.GetFrontPage()
	focus := s.app.GetFocus()

	if front != pageMain {
		switch {
		case ev.Key() == tcell.KeyEsc,
			ev.Key() == tcell.KeyEnter,
			isCtrlKey(ev, tcell.KeyCtrlQ, 'q'),
			isCtrlKey(ev, 0, '/'):
			s.closeOverlay(front)
			return nil
		}
		return ev
	}

	switch {
	case isCtrlKey(ev, tcell.KeyCtrlH, 'h'):
		s.app.SetFocus(s.tables)
	case isCtrlKey(ev, tcell.KeyCtrlL, 'l'):
		s.app.SetFocus(s.result)
	case isCtrlKey(ev, tcell.KeyCtrlJ, 'j'):
		s.app.SetFocus(s.query)
	case isCtrlKey(ev, tcell.KeyCtrlK, 'k'):
		s.app.SetFocus(s.status)
	case isCtrlKey(ev, tcell.KeyCtrlQ, 'q') || ev.Key() == tcell.KeyCtrlC:
		s.app.Stop()
	case isCtrlKey(ev, 0, ':') && focus != s.query:
		s.app.SetFocus(s.query)
	case isCtrlKey(ev, tcell.KeyCtrlR, 'r'):
		_ = s.loadTables()
	case isCtrlKey(ev, tcell.KeyCtrlG, 'g'):
		s.showQueryLog()
	case isCtrlKey(ev, tcell.KeyCtrlD, 'd') && focus == s.tables:
		s.describeSelected()
	case isCtrlKey(ev, 0, '/'):
		s.showHelp()
	case ev.Key() == tcell.KeyEnter && focus == s.result:
		s.expandCurrentRow()
	default:
		return ev
	}
	return nil
}

// Catppuccin Mocha.
func setupTheme() {
	tview.Styles.PrimitiveBackgroundColor = tcell.NewRGBColor(30, 30, 46)    // base
	tview.Styles.ContrastBackgroundColor = tcell.NewRGBColor(49, 50, 68)     // surface0
	tview.Styles.MoreContrastBackgroundColor = tcell.NewRGBColor(69, 71, 90) // surface1
	tview.Styles.BorderColor = tcell.NewRGBColor(89, 91, 114)
	tview.Styles.PrimaryTextColor = tcell.NewRGBColor(205, 214, 244)
	tview.Styles.SecondaryTextColor = tcell.NewRGBColor(166, 173, 200)
	tview.Styles.TertiaryTextColor = tcell.NewRGBColor(147, 153, 178)
	tview.Styles.TitleColor = tcell.NewRGBColor(137, 220, 235)
	tview.Styles.GraphicsColor = tcell.NewRGBColor(89, 91, 114)
}

func (s *uiState) buildLayout() tview.Primitive {
	header := tview.NewTextView().
		SetTextAlign(tview.AlignLeft).
		SetDynamicColors(true).
		SetText(fmt.Sprintf("[::b]SQLKIT[-]  [#C0A1F0]%s[-]", strings.ToUpper(s.label)))
	header.SetBorder(true)
	header.SetBorderPadding(0, 0, 1, 1)
	header.SetTitle(" Connection ")

	s.tables = tview.NewList().ShowSecondaryText(false)
	s.tables.SetBorder(true)
	s.tables.SetTitle(" Tables ")
	s.tables.SetDoneFunc(func() {
		s.app.SetFocus(s.query)
	})
	s.tables.SetSelectedFunc(func(_ int, table, _ string, _ rune) {
		if table == "" {
			return
		}
		sql := s.browseSQL(table)
		s.query.SetText(sql)
		s.runQuery(sql)
	})

	helpBox := tview.NewTextView().
		SetDynamicColors(true).
		SetText(" Help: Ctrl+/  Log: Ctrl+G")
	helpBox.SetBorder(true)

	s.result = tview.NewTable().
		SetBorders(true).
		SetFixed(1, 0)
	s.result.SetBorder(true)
	s.result.SetTitle(" Results ")
	s.result.SetSelectable(true, true)

	s.query = tview.NewInputField().
		SetLabel("> ").
		SetFieldWidth(0)
	s.query.SetBorder(true)
	s.query.SetTitle(" Query (Enter to run) ")
	s.query.SetDoneFunc(func(key tcell.Key) {
		if key != tcell.KeyEnter {
			return
		}
		if sql := strings.TrimSpace(s.query.GetText()); sql != "" {
			s.runQuery(sql)
		}
	})

	s.status = tview.NewTextView().SetDynamicColors(true)
	s.status.SetBorder(true)
	s.status.SetTitle(" Status ")

	left := tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(header, 3, 0, false).
		AddItem(s.tables, 0, 1, true).
		AddItem(helpBox, 3, 0, false)

	main := tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(s.result, 0, 1, false).
		AddItem(s.query, 3, 0, false).
		AddItem(s.status, 3, 0, false)

	content := tview.NewFlex().
		AddItem(left, 30, 0, true).
		AddItem(main, 0, 1, false)

	s.pages = tview.NewPages().AddPage(pageMain, content, true, true)
	return s.pages
}

// browseSQL is the first page of a table in the connection's dialect.
func (s *uiState) browseSQL(table string) string {
	d, err := s.c.Dialect(s.ctx)
	if err != nil {
		return "SELECT * FROM " + table
	}
	if d.LimitOne == "" {
		return fmt.Sprintf("SELECT TOP %d * FROM %s", browseLimit, d.QuoteIdent(table))
	}
	return fmt.Sprintf("SELECT * FROM %s LIMIT %d", d.QuoteIdent(table), browseLimit)
}

func (s *uiState) loadTables() error {
	s.setStatus("[yellow]Loading tables…[-]")

	tables, err := s.c.Tables(s.ctx)
	if err != nil {
		s.setError("Error loading tables", err)
		return err
	}

	s.tables.Clear()
	for _, t := range tables {
		if name := strings.TrimSpace(t); name != "" {
			s.tables.AddItem(name, "", 0, nil)
		}
	}

	if s.tables.GetItemCount() == 0 {
		s.setStatus("[gray]No tables found.[-]")
		return nil
	}
	s.tables.SetCurrentItem(0)
	s.setStatus("[green]Tables loaded. Enter browses, Ctrl+D describes.[-]")
	return nil
}

func (s *uiState) runQuery(sql string) {
	start := time.Now()
	s.setStatus(fmt.Sprintf("[yellow]Running query…[-] [gray]%s[-]", truncateInline(sql, 80)))

	rows, err := s.c.Query(s.ctx, sql)
	if err != nil {
		s.setError("Query error", err)
		return
	}

	s.renderRows(rows)
	s.setStatus(fmt.Sprintf(
		"[green]Query OK[-] [gray](%d rows, %s)[-]",
		len(rows.Data),
		time.Since(start).Truncate(time.Millisecond),
	))
}

func (s *uiState) renderRows(rows *db.Rows) {
	s.result.Clear()
	s.lastRows = rows
	if len(rows.Columns) == 0 {
		return
	}

	widths := columnWidths(rows, 200)

	for i, col := range rows.Columns {
		s.result.SetCell(0, i, tview.NewTableCell(padRight(col.Name, widths[i])).
			SetSelectable(false).
			SetAttributes(tcell.AttrBold))
	}

	for r, row := range rows.Data {
		for i := 0; i < len(widths) && i < len(row); i++ {
			text := print.FormatCell(row[i])
			display := text
			if runeLen(display) > maxColWidth {
				display = truncateRunes(display, maxColWidth-1) + "…"
			}

			align := tview.AlignLeft
			if looksNumeric(text) {
				align = tview.AlignRight
			}
			cell := tview.NewTableCell(padRight(display, widths[i])).
				SetAlign(align).
				SetSelectable(true)
			if r%2 == 1 {
				cell.SetBackgroundColor(tcell.NewRGBColor(24, 24, 37)) // mantle
			}
			s.result.SetCell(r+1, i, cell)
		}
	}

	s.result.ScrollToBeginning()
}

// columnWidths sizes each column from its header and the first sample rows.
func columnWidths(rows *db.Rows, sample int) []int {
	widths := make([]int, len(rows.Columns))
	for i, col := range rows.Columns {
		widths[i] = min(runeLen(col.Name), maxColWidth)
	}
	for _, row := range rows.Data[:min(sample, len(rows.Data))] {
		for i := 0; i < len(widths) && i < len(row); i++ {
			widths[i] = max(widths[i], min(runeLen(print.FormatCell(row[i])), maxColWidth))
		}
	}
	return widths
}

func (s *uiState) expandCurrentRow() {
	if s.lastRows == nil {
		return
	}
	r, _ := s.result.GetSelection()
	r-- // header
	if r < 0 || r >= len(s.lastRows.Data) {
		return
	}
	s.showOverlay(pageRow, " Row detail ", rowDetail(s.lastRows, r), false)
}

func rowDetail(rows *db.Rows, r int) string {
	var b strings.Builder
	for i, col := range rows.Columns {
		val := "NULL"
		if i < len(rows.Data[r]) {
			val = print.FormatCell(rows.Data[r][i])
		}
		fmt.Fprintf(&b, "%s:\n  %s\n\n", col.Name, val)
	}
	return b.String()
}

func (s *uiState) describeSelected() {
	if s.tables.GetItemCount() == 0 {
		return
	}
	table, _ := s.tables.GetItemText(s.tables.GetCurrentItem())
	cols, err := s.c.Describe(s.ctx, table)
	if err != nil {
		s.setError("Describe error", err)
		return
	}
	var b strings.Builder
	print.RenderColumns(&b, cols, print.Options{})
	s.showOverlay(pageDescribe, " "+table+" ", b.String(), false)
}

func (s *uiState) showQueryLog() {
	var b strings.Builder
	print.RenderLog(&b, s.c.QueryLog())
	if b.Len() == 0 {
		b.WriteString("No queries yet.")
	}
	s.showOverlay(pageLog, " Query log ", b.String(), false)
}

func (s *uiState) showHelp() {
	const helpText = `
[::b]Global[-]
  Ctrl+Q / Ctrl+C   Quit
  Ctrl+/            Toggle this help
  Ctrl+G            Query log
  Ctrl+R            Reload tables

[::b]Navigation[-]
  ↑ / ↓             Move in lists/tables
  Ctrl+h            Focus tables (left)
  Ctrl+l            Focus results (right)
  Ctrl+j            Focus query (down)
  Ctrl+k            Focus status (up)

[::b]Tables pane[-]
  Enter             Browse the first 100 rows
  Ctrl+D            Describe columns

[::b]Results pane[-]
  Enter             Expand current row

[::b]Query input[-]
  Enter             Run SQL in the input
  Ctrl+:            Focus query from anywhere

Overlays close with ESC, Enter, Ctrl+Q, or Ctrl+/.`

	s.showOverlay(pageHelp, " Help ", helpText, true)
}

// showOverlay opens a centered, scrollable text page above the browser.
func (s *uiState) showOverlay(name, title, body string, colors bool) {
	txt := tview.NewTextView().
		SetDynamicColors(colors).
		SetScrollable(true).
		SetWrap(true).
		SetWordWrap(true)
	txt.SetText(body)

	frame := tview.NewFrame(txt).
		SetBorders(0, 0, 1, 1, 1, 1)
	frame.SetBorder(true).
		SetTitle(title).
		SetTitleAlign(tview.AlignLeft)

	modal := tview.NewFlex().
		AddItem(nil, 0, 1, false).
		AddItem(
			tview.NewFlex().SetDirection(tview.FlexRow).
				AddItem(nil, 0, 1, false).
				AddItem(frame, 0, 3, true).
				AddItem(nil, 0, 1, false),
			0, 3, true,
		).
		AddItem(nil, 0, 1, false)

	s.pages.AddAndSwitchToPage(name, modal, true)
	s.app.SetFocus(txt)
}

func (s *uiState) closeOverlay(name string) {
	s.pages.RemovePage(name)
	s.pages.SwitchToPage(pageMain)
	s.app.SetFocus(s.result)
}

func (s *uiState) setStatus(msg string) {
	if s.status != nil {
		s.status.SetText(msg)
	}
}

func (s *uiState) setError(prefix string, err error) {
	s.setStatus(fmt.Sprintf("[red]%s (%s):[-] %s", prefix, client.KindOf(err), tview.Escape(err.Error())))
}

// isCtrlKey checks for Ctrl+<ch>, handling both KeyCtrlX and rune+modifier.
func isCtrlKey(ev *tcell.EventKey, key tcell.Key, ch rune) bool {
	if key != 0 && ev.Key() == key {
		return true
	}
	return ev.Rune() == ch && (ev.Modifiers()&tcell.ModCtrl) != 0
}

func truncateInline(s string, n int) string {
	if n <= 0 || len(s) <= n {
		return s
	}
	if n <= 3 {
		return s[:n]
	}
	return s[:n-3] + "..."
}

func runeLen(s string) int {
	return utf8.RuneCountInString(s)
}

func truncateRunes(s string, n int) string {
	if n <= 0 {
		return ""
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

func padRight(s string, width int) string {
	if n := runeLen(s); n < width {
		return s + strings.Repeat(" ", width-n)
	}
	return s
}

func looksNumeric(s string) bool {
	s = strings.TrimSpace(s)
	hasDigit := false
	for i, r := range s {
		switch {
		case r == '+' || r == '-':
			if i != 0 {
				return false
			}
		case r == '.' || r == ',':
		case unicode.IsDigit(r):
			hasDigit = true
		default:
			return false
		}
	}
	return hasDigit
}
