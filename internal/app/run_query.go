package app

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strings"

	"github.com/goccy/go-json"

	"github.com/bgunnarsson/sqlkit/internal/client"
	"github.com/bgunnarsson/sqlkit/internal/config"
	"github.com/bgunnarsson/sqlkit/internal/db"
	"github.com/bgunnarsson/sqlkit/internal/placeholder"
	"github.com/bgunnarsson/sqlkit/internal/print"
	"github.com/bgunnarsson/sqlkit/internal/record"
	"github.com/bgunnarsson/sqlkit/internal/sqlval"
)

// RunNonInteractive performs the single action cfg asks for and writes the
// result to out. Without an action it lists the tables.
func RunNonInteractive(ctx context.Context, cfg config.Config, logger *slog.Logger, out io.Writer, color bool) error {
	s, err := openSession(cfg, logger)
	if err != nil {
		return err
	}
	defer s.Close()

	r := &runner{s: s, c: s.client, cfg: cfg, out: out, opts: print.Options{MaxWidth: 60, Color: color}}

	switch {
	case cfg.Describe != "":
		err = r.describe(ctx)
	case cfg.Enum != "":
		err = r.enum(ctx)
	case cfg.Save != "":
		err = r.save(ctx)
	case cfg.Query != "":
		err = r.query(ctx)
	default:
		err = r.tables(ctx)
	}

	if cfg.ShowLog {
		fmt.Fprintln(out)
		print.RenderLog(out, r.c.QueryLog())
	}
	return err
}

type runner struct {
	s    *session
	c    *client.Client
	cfg  config.Config
	out  io.Writer
	opts print.Options
}

func (r *runner) tables(ctx context.Context) error {
	tables, err := r.c.Tables(ctx)
	if err != nil {
		return err
	}
	rows := &db.Rows{Columns: []db.Column{{Name: "table"}}}
	for _, t := range tables {
		rows.Data = append(rows.Data, db.Row{t})
	}
	print.RenderTable(r.out, rows, r.opts)
	return nil
}

func (r *runner) describe(ctx context.Context) error {
	cols, err := r.c.Describe(ctx, r.cfg.Describe)
	if err != nil {
		return err
	}
	print.RenderColumns(r.out, cols, r.opts)
	return nil
}

func (r *runner) enum(ctx context.Context) error {
	i := strings.LastIndexByte(r.cfg.Enum, '.')
	if i <= 0 || i == len(r.cfg.Enum)-1 {
		return fmt.Errorf("-enum wants table.column, got %q", r.cfg.Enum)
	}
	values, err := r.c.Enum(ctx, r.cfg.Enum[:i], r.cfg.Enum[i+1:])
	if err != nil {
		return err
	}
	for _, v := range values {
		fmt.Fprintln(r.out, v)
	}
	return nil
}

func (r *runner) save(ctx context.Context) error {
	rec, err := decodeRecord(r.cfg.Record)
	if err != nil {
		return err
	}
	op, err := r.c.Save(ctx, r.cfg.Save, rec)
	if err != nil {
		return err
	}
	fmt.Fprintf(r.out, "%s %s %s\n", op, r.cfg.Save, rec)
	return nil
}

func (r *runner) query(ctx context.Context) error {
	args, err := queryArgs(r.cfg.Query, r.cfg.Args)
	if err != nil {
		return err
	}

	shape := r.cfg.Shape
	if shape == "exec" {
		res, err := r.c.Exec(ctx, r.cfg.Query, args...)
		if err != nil {
			return err
		}
		fmt.Fprintf(r.out, "%d row(s) affected\n", res.RowsAffected)
		return nil
	}

	if !r.s.cached {
		if shape == "all" || shape == "" {
			rows, err := r.c.Query(ctx, r.cfg.Query, args...)
			if err != nil {
				return err
			}
			print.RenderTable(r.out, rows, r.opts)
			return nil
		}
		return r.shaped(ctx, r.c, shape, args)
	}
	return r.shaped(ctx, r.c.Cached("", r.cfg.Cache.TTL), shape, args)
}

// reader is the set of shaped reads shared by the client and its cached view.
type reader interface {
	GetAll(ctx context.Context, q string, args ...any) ([]map[string]any, error)
	GetRow(ctx context.Context, q string, args ...any) (map[string]any, error)
	GetOne(ctx context.Context, q string, args ...any) (any, error)
	GetCol(ctx context.Context, q string, args ...any) ([]any, error)
	GetList(ctx context.Context, q string, mode client.ListMode, args ...any) (map[string]any, error)
}

var (
	_ reader = (*client.Client)(nil)
	_ reader = (*client.Cached)(nil)
)

func (r *runner) shaped(ctx context.Context, rd reader, shape string, args []any) error {
	q := r.cfg.Query
	switch shape {
	case "", "all":
		all, err := rd.GetAll(ctx, q, args...)
		if err != nil {
			return err
		}
		print.RenderTable(r.out, rowsFromMaps(all), r.opts)
	case "row":
		row, err := rd.GetRow(ctx, q, args...)
		if err != nil {
			return err
		}
		print.RenderRecord(r.out, nil, row, r.opts)
	case "one":
		v, err := rd.GetOne(ctx, q, args...)
		if err != nil {
			return err
		}
		fmt.Fprintln(r.out, print.FormatCell(v))
	case "col":
		col, err := rd.GetCol(ctx, q, args...)
		if err != nil {
			return err
		}
		for _, v := range col {
			fmt.Fprintln(r.out, print.FormatCell(v))
		}
	case "list":
		mode := client.ListValue
		if r.cfg.ListJoin != "" {
			mode = client.ListJoin(r.cfg.ListJoin)
		}
		list, err := rd.GetList(ctx, q, mode, args...)
		if err != nil {
			return err
		}
		print.RenderList(r.out, list, r.opts)
	default:
		return fmt.Errorf("unknown shape %q", shape)
	}
	return nil
}

// rowsFromMaps rebuilds a grid from shaped rows. Column order is lost in
// the maps, so columns come out sorted by name.
func rowsFromMaps(all []map[string]any) *db.Rows {
	rows := &db.Rows{}
	if len(all) == 0 {
		return rows
	}
	var names []string
	for k := range all[0] {
		names = append(names, k)
	}
	slices.Sort(names)
	for _, n := range names {
		rows.Columns = append(rows.Columns, db.Column{Name: n})
	}
	for _, m := range all {
		row := make(db.Row, len(names))
		for i, n := range names {
			row[i] = m[n]
		}
		rows.Data = append(rows.Data, row)
	}
	return rows
}

// queryArgs turns -arg flags into client arguments. A template with :name
// tokens and no ? takes name=value pairs when any are given; anything else
// is positional, so a colon inside a literal does not switch grammars.
func queryArgs(q string, raw []string) ([]any, error) {
	if len(raw) == 0 {
		return nil, nil
	}

	if usesNamed(q, raw) {
		named := make(placeholder.Named, len(raw))
		for _, a := range raw {
			k, v, ok := strings.Cut(a, "=")
			if !ok {
				return nil, fmt.Errorf("-arg %q: want name=value for a :name query", a)
			}
			named[k] = argValue(v)
		}
		return []any{named}, nil
	}

	pos := make(placeholder.Positional, len(raw))
	for i, a := range raw {
		pos[i] = argValue(a)
	}
	return []any{pos}, nil
}

func usesNamed(q string, raw []string) bool {
	if strings.Contains(q, "?") || len(placeholder.Names(q)) == 0 {
		return false
	}
	return slices.ContainsFunc(raw, func(a string) bool {
		return strings.Contains(a, "=")
	})
}

// argValue reads a JSON scalar (number, true, false, null) and treats any
// other text as a string.
func argValue(s string) sqlval.Value {
	dec := json.NewDecoder(strings.NewReader(s))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil || dec.More() {
		return sqlval.String(s)
	}
	switch x := v.(type) {
	case nil:
		return sqlval.Null{}
	case bool:
		return sqlval.Bool(x)
	case string:
		return sqlval.String(x)
	case json.Number:
		if val, err := numberValue(x); err == nil {
			return val
		}
	}
	return sqlval.String(s)
}

func numberValue(n json.Number) (sqlval.Value, error) {
	if i, err := n.Int64(); err == nil {
		return sqlval.Int(i), nil
	}
	f, err := n.Float64()
	if err != nil {
		return nil, err
	}
	return sqlval.Float(f)
}

// decodeRecord parses a JSON object into a record. Numbers keep their
// integer form when they have one.
func decodeRecord(raw string) (*record.Record, error) {
	dec := json.NewDecoder(bytes.NewReader([]byte(raw)))
	dec.UseNumber()
	var m map[string]any
	if err := dec.Decode(&m); err != nil {
		return nil, fmt.Errorf("-record: %w", err)
	}
	for k, v := range m {
		conv, err := jsonValue(v)
		if err != nil {
			return nil, fmt.Errorf("-record %s: %w", k, err)
		}
		m[k] = conv
	}
	return record.FromMap(m)
}

func jsonValue(v any) (any, error) {
	switch x := v.(type) {
	case json.Number:
		return numberValue(x)
	case []any:
		out := make(sqlval.List, len(x))
		for i, item := range x {
			conv, err := jsonValue(item)
			if err != nil {
				return nil, err
			}
			val, err := sqlval.From(conv)
			if err != nil {
				return nil, err
			}
			out[i] = val
		}
		return out, nil
	case map[string]any:
		return nil, fmt.Errorf("%w: nested object", sqlval.ErrUnsupported)
	default:
		return v, nil
	}
}
