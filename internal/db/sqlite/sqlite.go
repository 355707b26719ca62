package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite" // register driver

	"github.com/bgunnarsson/sqlkit/internal/db"
)

type SqliteDB struct {
	*db.Conn
}

func Open(ctx context.Context, path string) (*SqliteDB, error) {
	if path == "" {
		return nil, fmt.Errorf("empty sqlite path")
	}

	conn, err := db.OpenConn(ctx, "sqlite", path, db.NormalizeText)
	if err != nil {
		return nil, err
	}

	// Enable foreign keys.
	if _, err := conn.Exec(ctx, `PRAGMA foreign_keys = ON;`); err != nil {
		_ = conn.Close()
		return nil, err
	}

	return &SqliteDB{Conn: conn}, nil
}

func (s *SqliteDB) Dialect() db.Dialect {
	return db.Dialect{
		Name:        "sqlite",
		LimitOne:    "LIMIT 1",
		EmptyInsert: " DEFAULT VALUES",
		Begin:       "BEGIN",
		QuoteIdent:  quoteIdent,
	}
}

func (s *SqliteDB) ListTables(ctx context.Context) ([]string, error) {
	// Use sqlite_master (works everywhere), include tables + views,
	// hide internal sqlite_% objects.
	const q = `
		SELECT name
		FROM sqlite_master
		WHERE type IN ('table', 'view')
		  AND name NOT LIKE 'sqlite_%'
		ORDER BY lower(name);
	`
	return s.Strings(ctx, q)
}

func (s *SqliteDB) DescribeTable(ctx context.Context, table string) ([]db.Column, error) {
	q := fmt.Sprintf("PRAGMA table_info(%s);", quoteIdent(table))
	cols, err := s.Describe(ctx, q, scanColumn)
	if err != nil {
		return nil, err
	}
	// PRAGMA table_info is silent about missing tables
	if len(cols) == 0 {
		return nil, db.WrapUnknownTable(table, nil)
	}
	return cols, nil
}

func scanColumn(rows *sqlx.Rows) (db.Column, error) {
	var cid int
	var name, ctype string
	var notnull, pk int
	var dflt sql.NullString
	if err := rows.Scan(&cid, &name, &ctype, &notnull, &dflt, &pk); err != nil {
		return db.Column{}, err
	}

	col := db.Column{
		Name: name,
		Type: ctype,
		Key:  pk > 0,
		Null: notnull == 0,
	}
	if dflt.Valid {
		col.Default = &dflt.String
	}
	return col, nil
}

func (s *SqliteDB) EscapeString(str string) string {
	return strings.ReplaceAll(str, "'", "''")
}

// very basic identifier quoting – enough for sqlite
func quoteIdent(id string) string {
	return `"` + strings.ReplaceAll(id, `"`, `""`) + `"`
}
