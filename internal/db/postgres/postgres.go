package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib" // register pgx stdlib driver
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/bgunnarsson/sqlkit/internal/db"
)

type PostgresDB struct {
	*db.Conn
}

func Open(ctx context.Context, dsn string) (*PostgresDB, error) {
	if dsn == "" {
		return nil, fmt.Errorf("empty postgres DSN")
	}

	conn, err := db.OpenConn(ctx, "pgx", dsn, db.NormalizeText)
	if err != nil {
		return nil, err
	}
	return &PostgresDB{Conn: conn}, nil
}

// DSN builds a postgres URL from discrete connection settings.
func DSN(host string, port int, user, password, database string) string {
	u := url.URL{
		Scheme:   "postgres",
		Host:     host,
		Path:     "/" + database,
		RawQuery: "sslmode=disable",
	}
	if port > 0 {
		u.Host = net.JoinHostPort(host, strconv.Itoa(port))
	}
	if password != "" {
		u.User = url.UserPassword(user, password)
	} else if user != "" {
		u.User = url.User(user)
	}
	return u.String()
}

func (p *PostgresDB) Dialect() db.Dialect {
	return db.Dialect{
		Name:        "postgres",
		LimitOne:    "LIMIT 1",
		EmptyInsert: " DEFAULT VALUES",
		Begin:       "BEGIN",
		QuoteIdent:  quoteIdent,
	}
}

// quoteIdent quotes each dotted part, so "schema.table" stays qualified.
func quoteIdent(name string) string {
	parts := strings.Split(name, ".")
	for i, part := range parts {
		parts[i] = pq.QuoteIdentifier(part)
	}
	return strings.Join(parts, ".")
}

func (p *PostgresDB) ListTables(ctx context.Context) ([]string, error) {
	const q = `
SELECT table_schema || '.' || table_name AS name
FROM information_schema.tables
WHERE table_type = 'BASE TABLE'
  AND table_schema NOT IN ('pg_catalog', 'information_schema')
ORDER BY table_schema, table_name;
`
	return p.Strings(ctx, q)
}

// DescribeTable returns the columns with primary-key membership.
// Accepts either "table" or "schema.table".
func (p *PostgresDB) DescribeTable(ctx context.Context, table string) ([]db.Column, error) {
	schema := "public"
	name := table
	if dot := strings.Index(table, "."); dot != -1 {
		schema = table[:dot]
		name = table[dot+1:]
	}

	const q = `
SELECT c.column_name, c.data_type, c.is_nullable, c.column_default,
       EXISTS (
         SELECT 1
         FROM information_schema.table_constraints tc
         JOIN information_schema.key_column_usage kcu
           ON tc.constraint_name = kcu.constraint_name
          AND tc.table_schema = kcu.table_schema
          AND tc.table_name = kcu.table_name
         WHERE tc.constraint_type = 'PRIMARY KEY'
           AND tc.table_schema = c.table_schema
           AND tc.table_name = c.table_name
           AND kcu.column_name = c.column_name
       ) AS is_key
FROM information_schema.columns c
WHERE c.table_schema = $1
  AND c.table_name = $2
ORDER BY c.ordinal_position;
`
	cols, err := p.Describe(ctx, q, scanColumn, schema, name)
	if err != nil {
		if isUndefinedTable(err) {
			return nil, db.WrapUnknownTable(table, err)
		}
		return nil, err
	}
	if len(cols) == 0 {
		return nil, db.WrapUnknownTable(table, nil)
	}
	return cols, nil
}

func scanColumn(rows *sqlx.Rows) (db.Column, error) {
	var name, typ, nullable string
	var dflt sql.NullString
	var key bool
	if err := rows.Scan(&name, &typ, &nullable, &dflt, &key); err != nil {
		return db.Column{}, err
	}

	col := db.Column{
		Name: name,
		Type: typ,
		Key:  key,
		Null: nullable == "YES",
	}
	if dflt.Valid {
		col.Default = &dflt.String
		if strings.HasPrefix(dflt.String, "nextval(") {
			col.Extra = "auto_increment"
		}
	}
	return col, nil
}

func isUndefinedTable(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UndefinedTable
}

// LastInsertID reads the session's most recent sequence value.
// It reports 0 when no sequence has been used yet.
func (p *PostgresDB) LastInsertID(ctx context.Context) (int64, error) {
	var id int64
	err := p.QueryScalar(ctx, &id, "SELECT lastval()")
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.ObjectNotInPrerequisiteState {
			return 0, nil
		}
		return 0, err
	}
	return id, nil
}

// EscapeString assumes standard_conforming_strings, the server default.
func (p *PostgresDB) EscapeString(s string) string {
	return strings.ReplaceAll(s, "'", "''")
}
