package mssql

import (
	"context"
	"database/sql"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"

	"github.com/jmoiron/sqlx"
	_ "github.com/microsoft/go-mssqldb"
	"github.com/microsoft/go-mssqldb/azuread"

	"github.com/bgunnarsson/sqlkit/internal/db"
)

type MssqlDB struct {
	*db.Conn
}

// Open opens a MSSQL connection.
// If the DSN contains "fedauth=", we use the Azure AD driver (azuresql)
// so things like ActiveDirectoryInteractive / AzCli work.
func Open(ctx context.Context, dsn string) (*MssqlDB, error) {
	if dsn == "" {
		return nil, fmt.Errorf("empty mssql DSN")
	}

	driverName := "sqlserver"
	if strings.Contains(strings.ToLower(dsn), "fedauth=") {
		driverName = azuread.DriverName // "azuresql"
	}

	conn, err := db.OpenConn(ctx, driverName, dsn, normalize)
	if err != nil {
		return nil, err
	}
	return &MssqlDB{Conn: conn}, nil
}

// DSN builds a sqlserver:// URL from discrete connection settings.
func DSN(host string, port int, user, password, database string) string {
	u := url.URL{
		Scheme: "sqlserver",
		Host:   host,
		User:   url.UserPassword(user, password),
	}
	if port > 0 {
		u.Host = net.JoinHostPort(host, strconv.Itoa(port))
	}
	if database != "" {
		u.RawQuery = url.Values{"database": {database}}.Encode()
	}
	return u.String()
}

// --- db.DB implementation ---

// No LimitOne: TOP must precede the select list and cannot be appended.
func (m *MssqlDB) Dialect() db.Dialect {
	return db.Dialect{
		Name:        "mssql",
		EmptyInsert: " DEFAULT VALUES",
		Begin:       "BEGIN TRANSACTION",
		QuoteIdent:  db.QuoteWith("[", "]"),
	}
}

func (m *MssqlDB) ListTables(ctx context.Context) ([]string, error) {
	const q = `
SELECT TABLE_SCHEMA + '.' + TABLE_NAME AS name
FROM INFORMATION_SCHEMA.TABLES
WHERE TABLE_TYPE = 'BASE TABLE'
ORDER BY TABLE_SCHEMA, TABLE_NAME;
`
	return m.Strings(ctx, q)
}

// DescribeTable returns the columns with primary-key membership.
// Accepts either "table" or "schema.table".
func (m *MssqlDB) DescribeTable(ctx context.Context, table string) ([]db.Column, error) {
	schema := "dbo"
	name := table
	if dot := strings.Index(table, "."); dot != -1 {
		schema = table[:dot]
		name = table[dot+1:]
	}

	const q = `
SELECT c.COLUMN_NAME, c.DATA_TYPE, c.IS_NULLABLE, c.COLUMN_DEFAULT,
       CASE WHEN EXISTS (
         SELECT 1
         FROM INFORMATION_SCHEMA.TABLE_CONSTRAINTS tc
         JOIN INFORMATION_SCHEMA.KEY_COLUMN_USAGE kcu
           ON tc.CONSTRAINT_NAME = kcu.CONSTRAINT_NAME
          AND tc.TABLE_SCHEMA = kcu.TABLE_SCHEMA
         WHERE tc.CONSTRAINT_TYPE = 'PRIMARY KEY'
           AND tc.TABLE_SCHEMA = c.TABLE_SCHEMA
           AND tc.TABLE_NAME = c.TABLE_NAME
           AND kcu.COLUMN_NAME = c.COLUMN_NAME
       ) THEN 1 ELSE 0 END AS IS_KEY,
       COLUMNPROPERTY(OBJECT_ID(c.TABLE_SCHEMA + '.' + c.TABLE_NAME), c.COLUMN_NAME, 'IsIdentity') AS IS_IDENTITY
FROM INFORMATION_SCHEMA.COLUMNS c
WHERE c.TABLE_SCHEMA = @p1 AND c.TABLE_NAME = @p2
ORDER BY c.ORDINAL_POSITION;
`
	cols, err := m.Describe(ctx, q, scanColumn, schema, name)
	if err != nil {
		return nil, err
	}
	// INFORMATION_SCHEMA never errors for a missing table, it is just empty
	if len(cols) == 0 {
		return nil, db.WrapUnknownTable(table, nil)
	}
	return cols, nil
}

func scanColumn(rows *sqlx.Rows) (db.Column, error) {
	var name, typ, nullable string
	var dflt sql.NullString
	var key int
	var identity sql.NullInt64
	if err := rows.Scan(&name, &typ, &nullable, &dflt, &key, &identity); err != nil {
		return db.Column{}, err
	}

	col := db.Column{
		Name: name,
		Type: typ,
		Key:  key == 1,
		Null: nullable == "YES",
	}
	if dflt.Valid {
		col.Default = &dflt.String
	}
	if identity.Valid && identity.Int64 == 1 {
		col.Extra = "identity"
	}
	return col, nil
}

// LastInsertID reads @@IDENTITY, which survives across batches on the
// same session unlike SCOPE_IDENTITY().
func (m *MssqlDB) LastInsertID(ctx context.Context) (int64, error) {
	var id sql.NullInt64
	if err := m.QueryScalar(ctx, &id, "SELECT CAST(@@IDENTITY AS BIGINT)"); err != nil {
		return 0, err
	}
	return id.Int64, nil
}

func (m *MssqlDB) EscapeString(s string) string {
	return strings.ReplaceAll(s, "'", "''")
}

func normalize(v any, dbType string) any {
	switch x := v.(type) {
	case []byte:
		// NEVER string() binary; it wrecks the table.
		switch dbType {
		case "uniqueidentifier":
			return formatUniqueIdentifier(x)
		case "varchar", "char", "text", "nvarchar", "nchar", "ntext", "decimal", "money", "smallmoney":
			return string(x)
		default:
			// safe hex representation for any other binary
			return fmt.Sprintf("0x%x", x)
		}
	default:
		return db.NormalizeText(v, dbType)
	}
}

func formatUniqueIdentifier(b []byte) string {
	if len(b) != 16 {
		return fmt.Sprintf("%x", b)
	}

	return fmt.Sprintf("%02x%02x%02x%02x-%02x%02x-%02x%02x-%02x%02x-%02x%02x%02x%02x%02x%02x",
		b[3], b[2], b[1], b[0],
		b[5], b[4],
		b[7], b[6],
		b[8], b[9],
		b[10], b[11], b[12], b[13], b[14], b[15],
	)
}
