package client

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/bgunnarsson/sqlkit/internal/db"
)

// GetAll returns every row keyed by column name.
func (c *Client) GetAll(ctx context.Context, q string, args ...any) ([]map[string]any, error) {
	sqlText, err := c.Replace(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	return c.all(ctx, sqlText)
}

// GetRow returns the first row, or nil when there is none. The dialect's
// limit clause is appended unless q already limits its result.
func (c *Client) GetRow(ctx context.Context, q string, args ...any) (map[string]any, error) {
	sqlText, err := c.replaceLimited(ctx, q, args)
	if err != nil {
		return nil, err
	}
	return c.row(ctx, sqlText)
}

// GetOne returns the first column of the first row, or nil.
func (c *Client) GetOne(ctx context.Context, q string, args ...any) (any, error) {
	sqlText, err := c.replaceLimited(ctx, q, args)
	if err != nil {
		return nil, err
	}
	return c.one(ctx, sqlText)
}

// GetCol returns the first column of every row.
func (c *Client) GetCol(ctx context.Context, q string, args ...any) ([]any, error) {
	sqlText, err := c.Replace(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	return c.col(ctx, sqlText)
}

// ListMode selects how GetList builds the value for each key.
type ListMode struct {
	row bool
	sep *string
}

var (
	// ListValue maps the first column to the second.
	ListValue = ListMode{}
	// ListRow maps the first column to the whole row.
	ListRow = ListMode{row: true}
)

func (m ListMode) key() string {
	switch {
	case m.row:
		return "list:row"
	case m.sep != nil:
		return "list:join:" + *m.sep
	default:
		return "list"
	}
}

// ListJoin maps the first column to the remaining columns joined by sep.
func ListJoin(sep string) ListMode {
	return ListMode{sep: &sep}
}

// GetList builds a map keyed by the text of each row's first column.
// Later rows overwrite earlier ones with the same key.
func (c *Client) GetList(ctx context.Context, q string, mode ListMode, args ...any) (map[string]any, error) {
	sqlText, err := c.Replace(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	return c.list(ctx, sqlText, mode)
}

func (c *Client) all(ctx context.Context, sqlText string) ([]map[string]any, error) {
	rows, err := c.query(ctx, sqlText)
	if err != nil {
		return nil, err
	}
	out := make([]map[string]any, 0, len(rows.Data))
	for _, r := range rows.Data {
		out = append(out, rowMap(rows.Columns, r))
	}
	return out, nil
}

func (c *Client) row(ctx context.Context, sqlText string) (map[string]any, error) {
	rows, err := c.query(ctx, sqlText)
	if err != nil || len(rows.Data) == 0 {
		return nil, err
	}
	return rowMap(rows.Columns, rows.Data[0]), nil
}

func (c *Client) one(ctx context.Context, sqlText string) (any, error) {
	rows, err := c.query(ctx, sqlText)
	if err != nil || len(rows.Data) == 0 || len(rows.Data[0]) == 0 {
		return nil, err
	}
	return rows.Data[0][0], nil
}

func (c *Client) col(ctx context.Context, sqlText string) ([]any, error) {
	rows, err := c.query(ctx, sqlText)
	if err != nil {
		return nil, err
	}
	out := make([]any, 0, len(rows.Data))
	for _, r := range rows.Data {
		if len(r) > 0 {
			out = append(out, r[0])
		}
	}
	return out, nil
}

func (c *Client) list(ctx context.Context, sqlText string, mode ListMode) (map[string]any, error) {
	rows, err := c.query(ctx, sqlText)
	if err != nil {
		return nil, err
	}

	out := make(map[string]any, len(rows.Data))
	for _, r := range rows.Data {
		if len(r) == 0 {
			continue
		}
		key := text(r[0])
		switch {
		case mode.row:
			out[key] = rowMap(rows.Columns, r)
		case mode.sep != nil:
			parts := make([]string, 0, len(r)-1)
			for _, v := range r[1:] {
				parts = append(parts, text(v))
			}
			out[key] = strings.Join(parts, *mode.sep)
		case len(r) > 1:
			out[key] = r[1]
		default:
			out[key] = nil
		}
	}
	return out, nil
}

func rowMap(cols []db.Column, r db.Row) map[string]any {
	m := make(map[string]any, len(cols))
	for i, col := range cols {
		if i < len(r) {
			m[col.Name] = r[i]
		}
	}
	return m
}

func text(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case []byte:
		return string(x)
	default:
		return fmt.Sprint(x)
	}
}

var (
	hasLimit      = regexp.MustCompile(`(?i)\blimit\b`)
	noLimitPrefix = regexp.MustCompile(`(?i)^\s*(describe|desc|show|pragma|explain)\b`)
	trailingSemis = regexp.MustCompile(`[\s;]+$`)
)

// withLimitOne appends the dialect's limit clause to a template that has no
// LIMIT anywhere. Introspection statements are left alone.
func withLimitOne(q string, d db.Dialect) string {
	if d.LimitOne == "" || hasLimit.MatchString(q) || noLimitPrefix.MatchString(q) {
		return q
	}
	return trailingSemis.ReplaceAllString(q, "") + " " + d.LimitOne
}

func (c *Client) replaceLimited(ctx context.Context, q string, args []any) (string, error) {
	d, err := c.Dialect(ctx)
	if err != nil {
		return "", err
	}
	return c.Replace(ctx, withLimitOne(q, d), args...)
}
