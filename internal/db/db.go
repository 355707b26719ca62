package db

import (
	"context"
	"errors"
)

// ErrUnknownTable is returned by DescribeTable when the table does not exist.
var ErrUnknownTable = errors.New("unknown table")

type Column struct {
	Name    string
	Type    string
	Key     bool // member of the primary key
	Null    bool
	Default *string
	Extra   string
}

type Row []any

type Rows struct {
	Columns []Column
	Data    []Row
}

// Result is what a statement that returns no rows reports back.
type Result struct {
	RowsAffected int64
}

// Dialect holds the SQL spelling differences between backends.
type Dialect struct {
	Name string
	// LimitOne is appended to single-row reads; empty when unsupported.
	LimitOne string
	// UpdateLimit reports whether UPDATE accepts a trailing LIMIT 1.
	UpdateLimit bool
	// EmptyInsert follows "INSERT INTO t" when no columns are given.
	EmptyInsert string
	Begin       string
	QuoteIdent  func(name string) string
}

type DB interface {
	Close() error
	Dialect() Dialect
	ListTables(ctx context.Context) ([]string, error)
	DescribeTable(ctx context.Context, table string) ([]Column, error)
	Query(ctx context.Context, sql string, args ...any) (*Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (Result, error)
	// LastInsertID returns the id generated by the most recent INSERT.
	LastInsertID(ctx context.Context) (int64, error)
	// EscapeString escapes s for use inside a quoted literal.
	EscapeString(s string) string
}

// PrimaryKeys returns the names of the key columns in schema order.
func PrimaryKeys(cols []Column) []string {
	var keys []string
	for _, c := range cols {
		if c.Key {
			keys = append(keys, c.Name)
		}
	}
	return keys
}
