// Package client wraps a single database connection with value escaping,
// placeholder substitution, result shaping and insert-or-update saving.
//
// A Client owns its connection and opens it on first use. It is not safe for
// concurrent use.
package client

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"regexp"

	"github.com/bgunnarsson/sqlkit/internal/cache"
	"github.com/bgunnarsson/sqlkit/internal/config"
	"github.com/bgunnarsson/sqlkit/internal/db"
	"github.com/bgunnarsson/sqlkit/internal/db/drivers"
	"github.com/bgunnarsson/sqlkit/internal/placeholder"
	"github.com/bgunnarsson/sqlkit/internal/sqlval"
)

// OpenFunc establishes the connection the first time the client needs it.
type OpenFunc func(ctx context.Context) (db.DB, error)

type Client struct {
	open    OpenFunc
	db      db.DB
	dialect db.Dialect
	logger  *slog.Logger
	cache   cache.Store

	// table name -> columns, filled on first use and never invalidated
	schemas map[string][]db.Column
	queries []string
	inTx    bool
}

type Option func(c *Client)

func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		c.logger = l
	}
}

func WithCache(s cache.Store) Option {
	return func(c *Client) {
		c.cache = s
	}
}

func New(open OpenFunc, opts ...Option) *Client {
	c := &Client{
		open:    open,
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
		schemas: make(map[string][]db.Column),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Open returns a client that connects with cfg when first used.
func Open(cfg config.DB, opts ...Option) *Client {
	return New(func(ctx context.Context) (db.DB, error) {
		return drivers.Open(ctx, cfg)
	}, opts...)
}

// Connect opens the connection if it is not open yet.
func (c *Client) Connect(ctx context.Context) error {
	if c.db != nil {
		return nil
	}

	conn, err := c.open(ctx)
	if err != nil {
		c.logger.Error("could not connect", "err", err)
		return fmt.Errorf("%w: %w", ErrConnection, err)
	}

	c.db = conn
	c.dialect = conn.Dialect()
	c.logger.Debug("connected", "driver", c.dialect.Name)
	return nil
}

func (c *Client) Close() error {
	if c.db == nil {
		return nil
	}
	err := c.db.Close()
	c.db = nil
	c.inTx = false
	return err
}

// Dialect connects if needed and returns the backend's SQL dialect.
func (c *Client) Dialect(ctx context.Context) (db.Dialect, error) {
	if err := c.Connect(ctx); err != nil {
		return db.Dialect{}, err
	}
	return c.dialect, nil
}

// Escape renders v as a quoted SQL literal.
func (c *Client) Escape(ctx context.Context, v any) (string, error) {
	return c.escape(ctx, v, true)
}

// EscapeRaw is Escape without the surrounding quotes on strings.
func (c *Client) EscapeRaw(ctx context.Context, v any) (string, error) {
	return c.escape(ctx, v, false)
}

func (c *Client) escape(ctx context.Context, v any, quote bool) (string, error) {
	if err := c.Connect(ctx); err != nil {
		return "", err
	}
	val, err := sqlval.From(v)
	if err != nil {
		return "", err
	}
	return sqlval.Escape(val, c.db, quote), nil
}

// Replace substitutes args into q and returns the final SQL. With no args q
// is returned unchanged. A single placeholder.Named or map[string]any
// argument selects the :name grammar; anything else is positional.
func (c *Client) Replace(ctx context.Context, q string, args ...any) (string, error) {
	a, err := toArgs(args)
	if err != nil {
		return "", err
	}
	if a == nil {
		return q, nil
	}
	if err := c.Connect(ctx); err != nil {
		return "", err
	}
	return placeholder.Substitute(q, a, c.db)
}

func toArgs(args []any) (placeholder.Args, error) {
	if len(args) == 0 {
		return nil, nil
	}

	if len(args) == 1 {
		switch a := args[0].(type) {
		case placeholder.Named:
			return a, nil
		case placeholder.Positional:
			return a, nil
		case map[string]any:
			named := make(placeholder.Named, len(a))
			for k, v := range a {
				val, err := sqlval.From(v)
				if err != nil {
					return nil, fmt.Errorf("placeholder %s: %w", k, err)
				}
				named[k] = val
			}
			return named, nil
		}
	}

	pos := make(placeholder.Positional, len(args))
	for i, v := range args {
		val, err := sqlval.From(v)
		if err != nil {
			return nil, fmt.Errorf("placeholder %d: %w", i+1, err)
		}
		pos[i] = val
	}
	return pos, nil
}

// Query substitutes args into q and runs it, returning all rows.
func (c *Client) Query(ctx context.Context, q string, args ...any) (*db.Rows, error) {
	sqlText, err := c.Replace(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	return c.query(ctx, sqlText)
}

// Exec substitutes args into q and runs it as a statement without rows.
func (c *Client) Exec(ctx context.Context, q string, args ...any) (db.Result, error) {
	sqlText, err := c.Replace(ctx, q, args...)
	if err != nil {
		return db.Result{}, err
	}
	return c.exec(ctx, sqlText)
}

// query and exec take final SQL; nothing is substituted.
func (c *Client) query(ctx context.Context, sqlText string) (*db.Rows, error) {
	if err := c.Connect(ctx); err != nil {
		return nil, err
	}
	c.queries = append(c.queries, sqlText)

	rows, err := c.db.Query(ctx, sqlText)
	if err != nil {
		return nil, c.failed(sqlText, err)
	}
	return rows, nil
}

func (c *Client) exec(ctx context.Context, sqlText string) (db.Result, error) {
	if err := c.Connect(ctx); err != nil {
		return db.Result{}, err
	}
	c.queries = append(c.queries, sqlText)

	res, err := c.db.Exec(ctx, sqlText)
	if err != nil {
		return db.Result{}, c.failed(sqlText, err)
	}
	return res, nil
}

func (c *Client) failed(sqlText string, err error) error {
	c.logger.Warn("query failed", "query", sqlText, "err", err)
	return &QueryError{Query: sqlText, Err: err}
}

// Queries returns every SQL statement run so far, in order.
func (c *Client) Queries() []string {
	out := make([]string, len(c.queries))
	copy(out, c.queries)
	return out
}

var indentRun = regexp.MustCompile(`\n +`)

// QueryLog is Queries with indented line breaks folded into single spaces.
func (c *Client) QueryLog() []string {
	out := make([]string, len(c.queries))
	for i, q := range c.queries {
		out[i] = indentRun.ReplaceAllString(q, " ")
	}
	return out
}

func (c *Client) Tables(ctx context.Context) ([]string, error) {
	if err := c.Connect(ctx); err != nil {
		return nil, err
	}
	tables, err := c.db.ListTables(ctx)
	if err != nil {
		return nil, c.failed("-- list tables", err)
	}
	return tables, nil
}
