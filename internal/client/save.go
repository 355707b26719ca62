package client

import (
	"context"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/bgunnarsson/sqlkit/internal/db"
	"github.com/bgunnarsson/sqlkit/internal/record"
	"github.com/bgunnarsson/sqlkit/internal/sqlval"
)

// Op is the statement Save decided on.
type Op int

const (
	OpInsert Op = iota + 1
	OpUpdate
)

func (o Op) String() string {
	switch o {
	case OpInsert:
		return "insert"
	case OpUpdate:
		return "update"
	default:
		return "none"
	}
}

type saveOptions struct {
	where string
	keys  []string
}

type SaveOption func(o *saveOptions)

// WithWhere replaces the key equality in the WHERE of an UPDATE. The
// existence check still matches on the keys; only a table without keys is
// checked against clause instead.
func WithWhere(clause string) SaveOption {
	return func(o *saveOptions) {
		o.where = clause
	}
}

// WithPrimaryKeys overrides the key columns read from the table schema.
func WithPrimaryKeys(keys ...string) SaveOption {
	return func(o *saveOptions) {
		o.keys = keys
	}
}

// Save inserts rec into table, or updates the existing row when every key
// column has a non-empty value and a row with those values exists. Record
// entries that are not columns of table are ignored.
//
// After an INSERT into a table with a single key that rec left empty, the
// generated id is written back into rec.
func (c *Client) Save(ctx context.Context, table string, rec *record.Record, opts ...SaveOption) (Op, error) {
	var o saveOptions
	for _, opt := range opts {
		opt(&o)
	}

	d, err := c.Dialect(ctx)
	if err != nil {
		return 0, err
	}
	cols, err := c.Describe(ctx, table)
	if err != nil {
		return 0, err
	}

	keys := o.keys
	if len(keys) == 0 {
		keys = db.PrimaryKeys(cols)
	}

	op, err := c.inferOp(ctx, d, table, rec, keys, o.where)
	if err != nil {
		return 0, err
	}

	var (
		names  []string
		values []string
		sets   []string
	)
	for _, col := range cols {
		v, ok := rec.Get(col.Name)
		if !ok {
			continue
		}
		lit := sqlval.Escape(v, c.db, true)
		if op == OpUpdate {
			if !slices.Contains(keys, col.Name) {
				sets = append(sets, d.QuoteIdent(col.Name)+" = "+lit)
			}
			continue
		}
		if v.IsEmpty() && slices.Contains(keys, col.Name) {
			// left for the database to generate
			continue
		}
		names = append(names, d.QuoteIdent(col.Name))
		values = append(values, lit)
	}

	if op == OpUpdate {
		if len(sets) == 0 {
			c.logger.Debug("nothing to update", "table", table)
			return op, nil
		}
		where := o.where
		if where == "" {
			where = c.keyEquality(d, rec, keys)
		}
		q := fmt.Sprintf("UPDATE %s SET %s WHERE %s", d.QuoteIdent(table), strings.Join(sets, ", "), where)
		if d.UpdateLimit {
			q += " LIMIT 1"
		}
		_, err := c.exec(ctx, q)
		return op, err
	}

	q := "INSERT INTO " + d.QuoteIdent(table)
	if len(names) == 0 {
		q += d.EmptyInsert
	} else {
		q += fmt.Sprintf(" (%s) VALUES (%s)", strings.Join(names, ", "), strings.Join(values, ", "))
	}
	if _, err := c.exec(ctx, q); err != nil {
		return op, err
	}

	if len(keys) == 1 && rec.Empty(keys[0]) {
		id, err := c.db.LastInsertID(ctx)
		if err != nil {
			return op, fmt.Errorf("reading generated id for %s: %w", table, err)
		}
		if id != 0 {
			rec.Set(keys[0], sqlval.Int(id))
		}
	}
	return op, nil
}

func (c *Client) inferOp(ctx context.Context, d db.Dialect, table string, rec *record.Record, keys []string, where string) (Op, error) {
	if len(keys) == 0 && where == "" {
		return OpInsert, nil
	}
	for _, k := range keys {
		if rec.Empty(k) {
			return OpInsert, nil
		}
	}

	cond := where
	if len(keys) > 0 {
		cond = c.keyEquality(d, rec, keys)
	}
	q := withLimitOne(fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE %s", d.QuoteIdent(table), cond), d)
	n, err := c.one(ctx, q)
	if err != nil {
		return 0, err
	}
	count, ok := toInt64(n)
	if !ok {
		return 0, fmt.Errorf("existence check on %s returned %v (%T), not a count", table, n, n)
	}
	if count == 0 {
		return OpInsert, nil
	}
	return OpUpdate, nil
}

func (c *Client) keyEquality(d db.Dialect, rec *record.Record, keys []string) string {
	conds := make([]string, 0, len(keys))
	for _, k := range keys {
		v, _ := rec.Get(k)
		conds = append(conds, d.QuoteIdent(k)+" = "+sqlval.Escape(v, c.db, true))
	}
	return strings.Join(conds, " AND ")
}

func toInt64(v any) (int64, bool) {
	switch x := v.(type) {
	case int64:
		return x, true
	case int:
		return int64(x), true
	case int32:
		return int64(x), true
	case uint64:
		return int64(x), true
	case float64:
		return int64(x), true
	case []byte:
		n, err := strconv.ParseInt(string(x), 10, 64)
		return n, err == nil
	case string:
		n, err := strconv.ParseInt(x, 10, 64)
		return n, err == nil
	default:
		return 0, false
	}
}
