package app

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"

	"github.com/bgunnarsson/sqlkit/internal/client"
	"github.com/bgunnarsson/sqlkit/internal/config"
	"github.com/bgunnarsson/sqlkit/internal/placeholder"
	"github.com/bgunnarsson/sqlkit/internal/sqlval"
)

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

type testDB struct {
	t    *testing.T
	path string
}

func newTestDB(t *testing.T) *testDB {
	d := &testDB{t: t, path: filepath.Join(t.TempDir(), "app.db")}
	d.run("-shape", "exec", "-q", "CREATE TABLE users (id INTEGER PRIMARY KEY, name TEXT, role TEXT)")
	return d
}

// run parses args like the command line does and returns what was printed.
func (d *testDB) run(args ...string) string {
	d.t.Helper()
	out, err := d.try(args...)
	if err != nil {
		d.t.Fatalf("%v: %v", args, err)
	}
	return out
}

func (d *testDB) try(args ...string) (string, error) {
	d.t.Helper()
	cfg, err := config.Parse(append([]string{"-dsn", d.path}, args...), func(string) string { return "" }, io.Discard)
	if err != nil {
		d.t.Fatalf("parse %v: %v", args, err)
	}
	var buf bytes.Buffer
	err = RunNonInteractive(context.Background(), cfg, quiet, &buf, false)
	return buf.String(), err
}

func TestSaveAndQuery(t *testing.T) {
	d := newTestDB(t)

	out := d.run("-save", "users", "-record", `{"name": "Ann", "role": "admin", "extra": 1}`)
	if !strings.HasPrefix(out, "insert users ") || !strings.Contains(out, "id: 1}") {
		t.Errorf("save output = %q", out)
	}

	out = d.run("-save", "users", "-record", `{"id": 1, "role": "owner"}`)
	if !strings.HasPrefix(out, "update users ") {
		t.Errorf("update output = %q", out)
	}

	out = d.run("-shape", "one", "-q", "SELECT role FROM users WHERE id = ?", "-arg", "1")
	if out != "owner\n" {
		t.Errorf("one = %q", out)
	}

	out = d.run("-shape", "row", "-q", "SELECT name, role FROM users WHERE name = :name", "-arg", "name=Ann")
	if out != "name : Ann\nrole : owner\n" {
		t.Errorf("row = %q", out)
	}
}

func TestShapes(t *testing.T) {
	d := newTestDB(t)
	d.run("-shape", "exec", "-q", "INSERT INTO users (name, role) VALUES ('a', 'x'), ('b', 'y')")

	if out := d.run("-shape", "col", "-q", "SELECT name FROM users ORDER BY id"); out != "a\nb\n" {
		t.Errorf("col = %q", out)
	}
	if out := d.run("-shape", "list", "-q", "SELECT id, name, role FROM users", "-join", "/"); out != "1 => a/x\n2 => b/y\n" {
		t.Errorf("list = %q", out)
	}
	out := d.run("-q", "SELECT id, name FROM users ORDER BY id")
	if !strings.Contains(out, "| 2  | b    |") || !strings.HasSuffix(out, "2 row(s)\n") {
		t.Errorf("all =\n%s", out)
	}
	if out := d.run(); !strings.Contains(out, "| users ") {
		t.Errorf("tables =\n%s", out)
	}
	if out := d.run("-describe", "users"); !strings.Contains(out, "| id    | INTEGER | ") {
		t.Errorf("describe =\n%s", out)
	}
}

func TestQueryLogFlag(t *testing.T) {
	d := newTestDB(t)
	out := d.run("-log", "-shape", "one", "-q", "SELECT ? + ?", "-arg", "2", "-arg", "3")
	if !strings.Contains(out, "1. SELECT 2 + 3 LIMIT 1") {
		t.Errorf("log missing:\n%s", out)
	}
}

func TestErrors(t *testing.T) {
	d := newTestDB(t)

	_, err := d.try("-q", "SELECT ?, ?", "-arg", "1")
	if client.KindOf(err) != client.KindPlaceholderCount {
		t.Errorf("mismatch kind = %v (%v)", client.KindOf(err), err)
	}
	_, err = d.try("-describe", "nope")
	if client.KindOf(err) != client.KindUnknownTable {
		t.Errorf("describe kind = %v (%v)", client.KindOf(err), err)
	}
	if _, err := d.try("-enum", "users"); err == nil {
		t.Error("-enum without a column should fail")
	}
	if _, err := d.try("-shape", "cube", "-q", "SELECT 1"); err == nil {
		t.Error("unknown shape should fail")
	}
	if _, err := d.try("-save", "users", "-record", `{"a": {"b": 1}}`); err == nil {
		t.Error("nested record should fail")
	}
}

func TestCachedQuery(t *testing.T) {
	d := newTestDB(t)
	cacheDir := t.TempDir()
	d.run("-shape", "exec", "-q", "INSERT INTO users (name) VALUES ('a')")

	first := d.run("-cache-dir", cacheDir, "-shape", "one", "-q", "SELECT COUNT(*) FROM users")
	d.run("-shape", "exec", "-q", "INSERT INTO users (name) VALUES ('b')")
	second := d.run("-cache-dir", cacheDir, "-shape", "one", "-q", "SELECT COUNT(*) FROM users")

	if first != "1\n" || second != "1\n" {
		t.Errorf("first=%q second=%q, want the cached count", first, second)
	}
	if out := d.run("-shape", "one", "-q", "SELECT COUNT(*) FROM users"); out != "2\n" {
		t.Errorf("uncached = %q", out)
	}
}

func TestArgValue(t *testing.T) {
	tests := []struct {
		in   string
		want sqlval.Value
	}{
		{"12", sqlval.Int(12)},
		{"null", sqlval.Null{}},
		{"true", sqlval.Bool(true)},
		{"Ann", sqlval.String("Ann")},
		{`"42"`, sqlval.String("42")},
		{"12abc", sqlval.String("12abc")},
		{"", sqlval.String("")},
	}
	for _, tt := range tests {
		if got := argValue(tt.in); got != tt.want {
			t.Errorf("argValue(%q) = %#v, want %#v", tt.in, got, tt.want)
		}
	}
	if got, _ := argValue("2.5").(sqlval.Number); got.String() != "2.5" {
		t.Errorf("float = %v", got)
	}
}

func TestQueryArgs(t *testing.T) {
	tests := []struct {
		name  string
		q     string
		raw   []string
		named bool
		err   bool
	}{
		{"named pairs", "SELECT :a", []string{"a=1"}, true, false},
		{"named missing value", "SELECT :a, :b", []string{"a=1", "2"}, false, true},
		{"colon in literal", "SELECT * FROM t WHERE url = 'a:b' AND id = ?", []string{"1"}, false, false},
		{"question mark wins", "SELECT :a FROM t WHERE x = ?", []string{"k=v"}, false, false},
		{"no pairs stays positional", "SELECT :a", []string{"1"}, false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args, err := queryArgs(tt.q, tt.raw)
			if (err != nil) != tt.err {
				t.Fatalf("err = %v", err)
			}
			if tt.err {
				return
			}
			_, isNamed := args[0].(placeholder.Named)
			if isNamed != tt.named {
				t.Errorf("args = %#v, named = %v", args, isNamed)
			}
		})
	}

	if args, _ := queryArgs("SELECT 1", nil); args != nil {
		t.Errorf("no args = %v", args)
	}
}

func TestQueryWithColonLiteral(t *testing.T) {
	d := newTestDB(t)
	d.run("-shape", "exec", "-q", "INSERT INTO users (name, role) VALUES ('a:b', 'x')")
	out := d.run("-shape", "one", "-q", "SELECT role FROM users WHERE name = 'a:b' AND id = ?", "-arg", "1")
	if out != "x\n" {
		t.Errorf("one = %q", out)
	}
}
