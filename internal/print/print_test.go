package print

import (
	"bytes"
	"strings"
	"testing"

	"github.com/bgunnarsson/sqlkit/internal/db"
)

func TestRenderTable(t *testing.T) {
	rows := &db.Rows{
		Columns: []db.Column{{Name: "id"}, {Name: "name"}},
		Data: []db.Row{
			{int64(1), "Ann"},
			{int64(22), nil},
		},
	}
	var buf bytes.Buffer
	RenderTable(&buf, rows, Options{})

	want := strings.Join([]string{
		"+----+------+",
		"| id | name |",
		"+====+======+",
		"| 1  | Ann  |",
		"| 22 | NULL |",
		"+----+------+",
		"2 row(s)",
		"",
	}, "\n")
	if buf.String() != want {
		t.Errorf("got:\n%s\nwant:\n%s", buf.String(), want)
	}
}

func TestRenderTableTruncates(t *testing.T) {
	rows := &db.Rows{
		Columns: []db.Column{{Name: "v"}},
		Data:    []db.Row{{"abcdefghijkl"}},
	}
	var buf bytes.Buffer
	RenderTable(&buf, rows, Options{MaxWidth: 6})
	if !strings.Contains(buf.String(), "| abc... |") {
		t.Errorf("got:\n%s", buf.String())
	}
}

func TestRenderTableNoColumns(t *testing.T) {
	var buf bytes.Buffer
	RenderTable(&buf, &db.Rows{}, Options{})
	if buf.String() != "(no columns)\n" {
		t.Errorf("got %q", buf.String())
	}
}

func TestFormatCell(t *testing.T) {
	tests := []struct {
		in   any
		want string
	}{
		{nil, "NULL"},
		{[]byte("hi"), "hi"},
		{[]byte{0, 1, 2}, "<blob 3 bytes>"},
		{int64(-4), "-4"},
		{2.50, "2.5"},
		{map[string]any{"a": 1}, `{"a":1}`},
		{true, "true"},
	}
	for _, tt := range tests {
		if got := FormatCell(tt.in); got != tt.want {
			t.Errorf("FormatCell(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestRenderRecord(t *testing.T) {
	var buf bytes.Buffer
	RenderRecord(&buf, []string{"id", "email"}, map[string]any{"id": int64(3), "email": nil}, Options{})
	want := "id    : 3\nemail : NULL\n"
	if buf.String() != want {
		t.Errorf("got %q, want %q", buf.String(), want)
	}

	buf.Reset()
	RenderRecord(&buf, nil, nil, Options{})
	if buf.String() != "(no row)\n" {
		t.Errorf("nil row: %q", buf.String())
	}
}

func TestRenderList(t *testing.T) {
	var buf bytes.Buffer
	RenderList(&buf, map[string]any{"b": "two", "a": "one"}, Options{})
	if buf.String() != "a => one\nb => two\n" {
		t.Errorf("got %q", buf.String())
	}
}

func TestRenderColumns(t *testing.T) {
	def := "'x'"
	var buf bytes.Buffer
	RenderColumns(&buf, []db.Column{
		{Name: "id", Type: "INTEGER", Key: true},
		{Name: "tag", Type: "TEXT", Null: true, Default: &def},
	}, Options{})
	out := buf.String()
	for _, want := range []string{"| id    | INTEGER | NO   | PRI |", "| tag   | TEXT    | YES  |     | 'x'"} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %q in:\n%s", want, out)
		}
	}
}

func TestRenderLog(t *testing.T) {
	var buf bytes.Buffer
	qs := make([]string, 10)
	for i := range qs {
		qs[i] = "SELECT 1"
	}
	RenderLog(&buf, qs)
	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if lines[0] != " 1. SELECT 1" || lines[9] != "10. SELECT 1" {
		t.Errorf("got %q", lines)
	}
}
