package sqlite

import (
	"context"
	"errors"
	"testing"

	"github.com/bgunnarsson/sqlkit/internal/db"
)

func openMemory(t *testing.T) *SqliteDB {
	t.Helper()
	sdb, err := Open(context.Background(), ":memory:")
	if err != nil {
		t.Fatalf("Failed to open sqlite: %v", err)
	}
	t.Cleanup(func() { sdb.Close() })
	return sdb
}

func TestDescribeTable(t *testing.T) {
	ctx := context.Background()
	sdb := openMemory(t)

	if _, err := sdb.Exec(ctx, `CREATE TABLE users (id INTEGER PRIMARY KEY, name TEXT NOT NULL, email TEXT DEFAULT 'none')`); err != nil {
		t.Fatal(err)
	}

	cols, err := sdb.DescribeTable(ctx, "users")
	if err != nil {
		t.Fatalf("DescribeTable: %v", err)
	}
	if len(cols) != 3 {
		t.Fatalf("expected 3 columns, got %d", len(cols))
	}
	if !cols[0].Key || cols[1].Key || cols[2].Key {
		t.Errorf("key flags = %v %v %v", cols[0].Key, cols[1].Key, cols[2].Key)
	}
	if cols[1].Null {
		t.Error("name should be NOT NULL")
	}
	if cols[2].Default == nil || *cols[2].Default != "'none'" {
		t.Errorf("email default = %v", cols[2].Default)
	}
	if keys := db.PrimaryKeys(cols); len(keys) != 1 || keys[0] != "id" {
		t.Errorf("PrimaryKeys = %v", keys)
	}
}

func TestDescribeUnknownTable(t *testing.T) {
	sdb := openMemory(t)
	_, err := sdb.DescribeTable(context.Background(), "nope")
	if !errors.Is(err, db.ErrUnknownTable) {
		t.Fatalf("err = %v, want ErrUnknownTable", err)
	}
}

func TestExecAndQuery(t *testing.T) {
	ctx := context.Background()
	sdb := openMemory(t)

	_, _ = sdb.Exec(ctx, `CREATE TABLE notes (id INTEGER PRIMARY KEY AUTOINCREMENT, body TEXT)`)
	if _, err := sdb.Exec(ctx, `INSERT INTO notes (body) VALUES ('first')`); err != nil {
		t.Fatal(err)
	}
	res, err := sdb.Exec(ctx, `INSERT INTO notes (body) VALUES ('second')`)
	if err != nil {
		t.Fatal(err)
	}
	if res.RowsAffected != 1 {
		t.Errorf("RowsAffected = %d", res.RowsAffected)
	}

	id, err := sdb.LastInsertID(ctx)
	if err != nil || id != 2 {
		t.Errorf("LastInsertID = %d, %v", id, err)
	}

	rows, err := sdb.Query(ctx, `SELECT id, body FROM notes ORDER BY id`)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows.Columns) != 2 || rows.Columns[1].Name != "body" {
		t.Errorf("columns = %+v", rows.Columns)
	}
	if len(rows.Data) != 2 || rows.Data[1][1] != "second" {
		t.Errorf("data = %v", rows.Data)
	}

	tables, err := sdb.ListTables(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(tables) != 1 || tables[0] != "notes" {
		t.Errorf("tables = %v", tables)
	}
}

func TestQuoteIdent(t *testing.T) {
	if got := quoteIdent(`a"b`); got != `"a""b"` {
		t.Errorf("got %s", got)
	}
}
