package db

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
)

// Normalizer converts a scanned driver value into something printable.
// dbType is the lower-cased database type name of the column.
type Normalizer func(v any, dbType string) any

// Conn is a single dedicated connection shared by the driver packages.
// Session state (transactions, lastval, @@IDENTITY) stays on it.
type Conn struct {
	db        *sqlx.DB
	conn      *sqlx.Conn
	normalize Normalizer
	lastID    int64
}

func OpenConn(ctx context.Context, driverName, dsn string, normalize Normalizer) (*Conn, error) {
	sqldb, err := sqlx.Open(driverName, dsn)
	if err != nil {
		return nil, err
	}

	// one connection owned by the client, no pool
	sqldb.SetMaxOpenConns(1)
	sqldb.SetMaxIdleConns(1)

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	conn, err := sqldb.Connx(ctx)
	if err != nil {
		sqldb.Close()
		return nil, err
	}
	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		sqldb.Close()
		return nil, err
	}

	return &Conn{db: sqldb, conn: conn, normalize: normalize}, nil
}

func (c *Conn) Close() error {
	if c == nil || c.db == nil {
		return nil
	}
	cerr := c.conn.Close()
	if err := c.db.Close(); err != nil {
		return err
	}
	return cerr
}

func (c *Conn) Exec(ctx context.Context, sqlQuery string, args ...any) (Result, error) {
	res, err := c.conn.ExecContext(ctx, sqlQuery, args...)
	if err != nil {
		return Result{}, err
	}

	// the id of the latest statement only; drivers without LastInsertId
	// support report an error here, which reads as no id
	id, err := res.LastInsertId()
	if err != nil {
		id = 0
	}
	c.lastID = id

	affected, _ := res.RowsAffected()
	return Result{RowsAffected: affected}, nil
}

func (c *Conn) LastInsertID(_ context.Context) (int64, error) {
	return c.lastID, nil
}

// QueryScalar runs a query expected to yield one value and scans it into dest.
func (c *Conn) QueryScalar(ctx context.Context, dest any, sqlQuery string, args ...any) error {
	return c.conn.QueryRowxContext(ctx, sqlQuery, args...).Scan(dest)
}

// Strings runs a query and collects its first column as strings.
func (c *Conn) Strings(ctx context.Context, sqlQuery string, args ...any) ([]string, error) {
	rows, err := c.conn.QueryxContext(ctx, sqlQuery, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		out = append(out, name)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// Describe runs an introspection query and hands each row to scan.
func (c *Conn) Describe(ctx context.Context, sqlQuery string, scan func(*sqlx.Rows) (Column, error), args ...any) ([]Column, error) {
	rows, err := c.conn.QueryxContext(ctx, sqlQuery, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var cols []Column
	for rows.Next() {
		col, err := scan(rows)
		if err != nil {
			return nil, err
		}
		cols = append(cols, col)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return cols, nil
}

func (c *Conn) Query(ctx context.Context, sqlQuery string, args ...any) (*Rows, error) {
	rows, err := c.conn.QueryxContext(ctx, sqlQuery, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	colNames, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	colTypes, err := rows.ColumnTypes()
	if err != nil {
		return nil, err
	}

	header := make([]Column, len(colNames))
	dbTypes := make([]string, len(colNames))
	for i, name := range colNames {
		if i < len(colTypes) && colTypes[i] != nil {
			dbTypes[i] = strings.ToLower(colTypes[i].DatabaseTypeName())
		}
		header[i] = Column{
			Name: name,
			Type: dbTypes[i],
		}
	}

	var data []Row
	for rows.Next() {
		values, err := rows.SliceScan()
		if err != nil {
			return nil, err
		}

		if c.normalize != nil {
			for i, v := range values {
				values[i] = c.normalize(v, dbTypes[i])
			}
		}

		data = append(data, Row(values))
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return &Rows{
		Columns: header,
		Data:    data,
	}, nil
}

// NormalizeText turns []byte into string and times into RFC 3339 text.
func NormalizeText(v any, _ string) any {
	switch x := v.(type) {
	case []byte:
		return string(x)
	case time.Time:
		return x.Format(time.RFC3339Nano)
	default:
		return x
	}
}

// QuoteWith returns an identifier quoter using left/right delimiters,
// doubling the right delimiter inside names. Dotted names are quoted per part.
func QuoteWith(left, right string) func(string) string {
	return func(name string) string {
		parts := strings.Split(name, ".")
		for i, p := range parts {
			parts[i] = left + strings.ReplaceAll(p, right, right+right) + right
		}
		return strings.Join(parts, ".")
	}
}

// WrapUnknownTable marks err as an unknown-table failure for table.
func WrapUnknownTable(table string, err error) error {
	if err == nil {
		return fmt.Errorf("%w: %s", ErrUnknownTable, table)
	}
	return fmt.Errorf("%w: %s: %v", ErrUnknownTable, table, err)
}
