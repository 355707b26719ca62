package client

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/bgunnarsson/sqlkit/internal/db"
)

// Describe returns the columns of table. The result is kept for the lifetime
// of the client; later schema changes are not picked up.
func (c *Client) Describe(ctx context.Context, table string) ([]db.Column, error) {
	if cols, ok := c.schemas[table]; ok {
		return cols, nil
	}
	if err := c.Connect(ctx); err != nil {
		return nil, err
	}

	c.queries = append(c.queries, "DESCRIBE "+table)
	cols, err := c.db.DescribeTable(ctx, table)
	if err != nil {
		return nil, c.failed("DESCRIBE "+table, err)
	}
	c.schemas[table] = cols
	return cols, nil
}

var enumType = regexp.MustCompile(`(?is)^\s*enum\s*\((.*)\)\s*$`)

// Enum returns the allowed values of an enum column in declaration order.
func (c *Client) Enum(ctx context.Context, table, column string) ([]string, error) {
	cols, err := c.Describe(ctx, table)
	if err != nil {
		return nil, err
	}
	for _, col := range cols {
		if col.Name != column {
			continue
		}
		m := enumType.FindStringSubmatch(col.Type)
		if m == nil {
			return nil, fmt.Errorf("%s.%s is %s: %w", table, column, col.Type, ErrNotEnum)
		}
		return parseEnumValues(m[1])
	}
	return nil, fmt.Errorf("no column %s in table %s", column, table)
}

// parseEnumValues splits 'a','b''c' into its quoted members.
func parseEnumValues(s string) ([]string, error) {
	var (
		out []string
		b   strings.Builder
	)
	i := 0
	for i < len(s) {
		switch s[i] {
		case ' ', '\t', '\n', ',':
			i++
			continue
		case '\'':
		default:
			return nil, fmt.Errorf("malformed enum list %q", s)
		}

		i++
		b.Reset()
		closed := false
		for i < len(s) {
			ch := s[i]
			if ch == '\\' && i+1 < len(s) {
				b.WriteByte(s[i+1])
				i += 2
				continue
			}
			if ch == '\'' {
				if i+1 < len(s) && s[i+1] == '\'' {
					b.WriteByte('\'')
					i += 2
					continue
				}
				i++
				closed = true
				break
			}
			b.WriteByte(ch)
			i++
		}
		if !closed {
			return nil, fmt.Errorf("unterminated enum value in %q", s)
		}
		out = append(out, b.String())
	}
	return out, nil
}
