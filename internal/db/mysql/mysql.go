package mysql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"

	"github.com/bgunnarsson/sqlkit/internal/db"
)

const errNoSuchTable = 1146

type MysqlDB struct {
	*db.Conn
	noBackslashEscapes bool
}

func Open(ctx context.Context, dsn string) (*MysqlDB, error) {
	if dsn == "" {
		return nil, fmt.Errorf("empty mysql DSN")
	}

	conn, err := db.OpenConn(ctx, "mysql", dsn, db.NormalizeText)
	if err != nil {
		return nil, err
	}

	m := &MysqlDB{Conn: conn}

	// escaping rules follow the session's sql_mode
	var mode string
	if err := conn.QueryScalar(ctx, &mode, "SELECT @@SESSION.sql_mode"); err != nil {
		conn.Close()
		return nil, err
	}
	m.noBackslashEscapes = strings.Contains(strings.ToUpper(mode), "NO_BACKSLASH_ESCAPES")

	return m, nil
}

// DSN builds a go-sql-driver DSN from discrete connection settings.
func DSN(host string, port int, user, password, database string) string {
	cfg := mysql.NewConfig()
	cfg.User = user
	cfg.Passwd = password
	cfg.Net = "tcp"
	cfg.Addr = host
	if port > 0 {
		cfg.Addr = net.JoinHostPort(host, strconv.Itoa(port))
	}
	cfg.DBName = database
	return cfg.FormatDSN()
}

// --- db.DB implementation ---

func (m *MysqlDB) Dialect() db.Dialect {
	return db.Dialect{
		Name:        "mysql",
		LimitOne:    "LIMIT 1",
		UpdateLimit: true,
		EmptyInsert: " () VALUES ()",
		Begin:       "START TRANSACTION",
		QuoteIdent:  db.QuoteWith("`", "`"),
	}
}

func (m *MysqlDB) ListTables(ctx context.Context) ([]string, error) {
	const q = `
SELECT table_name
FROM information_schema.tables
WHERE table_type = 'BASE TABLE'
  AND table_schema = DATABASE()
ORDER BY table_name;
`
	return m.Strings(ctx, q)
}

func (m *MysqlDB) DescribeTable(ctx context.Context, table string) ([]db.Column, error) {
	q := "SHOW COLUMNS FROM " + m.Dialect().QuoteIdent(table)
	cols, err := m.Describe(ctx, q, scanColumn)
	if err != nil {
		var myErr *mysql.MySQLError
		if errors.As(err, &myErr) && myErr.Number == errNoSuchTable {
			return nil, db.WrapUnknownTable(table, err)
		}
		return nil, err
	}
	if len(cols) == 0 {
		return nil, db.WrapUnknownTable(table, nil)
	}
	return cols, nil
}

// SHOW COLUMNS yields Field, Type, Null, Key, Default, Extra.
func scanColumn(rows *sqlx.Rows) (db.Column, error) {
	var field, typ, null, key, extra string
	var dflt sql.NullString
	if err := rows.Scan(&field, &typ, &null, &key, &dflt, &extra); err != nil {
		return db.Column{}, err
	}

	col := db.Column{
		Name:  field,
		Type:  typ,
		Key:   key == "PRI",
		Null:  null == "YES",
		Extra: extra,
	}
	if dflt.Valid {
		col.Default = &dflt.String
	}
	return col, nil
}

func (m *MysqlDB) EscapeString(s string) string {
	if m.noBackslashEscapes {
		return strings.ReplaceAll(s, "'", "''")
	}
	return EscapeBackslash(s)
}

// EscapeBackslash escapes the same characters as mysql_real_escape_string.
func EscapeBackslash(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 2)
	for i := 0; i < len(s); i++ {
		switch c := s[i]; c {
		case 0:
			b.WriteString(`\0`)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\\':
			b.WriteString(`\\`)
		case '\'':
			b.WriteString(`\'`)
		case '"':
			b.WriteString(`\"`)
		case '\032':
			b.WriteString(`\Z`)
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}
