package client

import (
	"context"
	"errors"
	"fmt"

	"github.com/bgunnarsson/sqlkit/internal/db"
	"github.com/bgunnarsson/sqlkit/internal/db/mysql"
)

// fakeDB speaks the MySQL dialect and answers queries from canned results so
// tests can assert on the exact SQL text the client produces.
type fakeDB struct {
	tables  map[string][]db.Column
	results map[string]*db.Rows
	fail    map[string]error
	lastID  int64

	ran    []string
	closed bool
}

func newFakeDB() *fakeDB {
	return &fakeDB{
		tables:  make(map[string][]db.Column),
		results: make(map[string]*db.Rows),
		fail:    make(map[string]error),
	}
}

func (f *fakeDB) Close() error {
	f.closed = true
	return nil
}

func (f *fakeDB) Dialect() db.Dialect {
	return db.Dialect{
		Name:        "mysql",
		LimitOne:    "LIMIT 1",
		UpdateLimit: true,
		EmptyInsert: " () VALUES ()",
		Begin:       "START TRANSACTION",
		QuoteIdent:  db.QuoteWith("`", "`"),
	}
}

func (f *fakeDB) ListTables(context.Context) ([]string, error) {
	var out []string
	for name := range f.tables {
		out = append(out, name)
	}
	return out, nil
}

func (f *fakeDB) DescribeTable(_ context.Context, table string) ([]db.Column, error) {
	cols, ok := f.tables[table]
	if !ok {
		return nil, fmt.Errorf("%w: %s", db.ErrUnknownTable, table)
	}
	return cols, nil
}

func (f *fakeDB) Query(_ context.Context, sql string, _ ...any) (*db.Rows, error) {
	f.ran = append(f.ran, sql)
	if err := f.fail[sql]; err != nil {
		return nil, err
	}
	if rows, ok := f.results[sql]; ok {
		return rows, nil
	}
	return &db.Rows{}, nil
}

func (f *fakeDB) Exec(_ context.Context, sql string, _ ...any) (db.Result, error) {
	f.ran = append(f.ran, sql)
	if err := f.fail[sql]; err != nil {
		return db.Result{}, err
	}
	return db.Result{RowsAffected: 1}, nil
}

func (f *fakeDB) LastInsertID(context.Context) (int64, error) { return f.lastID, nil }

func (f *fakeDB) EscapeString(s string) string { return mysql.EscapeBackslash(s) }

func (f *fakeDB) count(sql string, n int64) {
	f.results[sql] = &db.Rows{
		Columns: []db.Column{{Name: "COUNT(*)"}},
		Data:    []db.Row{{n}},
	}
}

func newFakeClient(f *fakeDB, opts ...Option) *Client {
	return New(func(context.Context) (db.DB, error) { return f, nil }, opts...)
}

var errRefused = errors.New("connection refused")

func failingOpen(context.Context) (db.DB, error) { return nil, errRefused }

var usersTable = []db.Column{
	{Name: "id", Type: "int(11)", Key: true, Extra: "auto_increment"},
	{Name: "name", Type: "varchar(64)"},
	{Name: "email", Type: "varchar(128)", Null: true},
	{Name: "status", Type: "enum('active','it''s off','x,y')"},
}
