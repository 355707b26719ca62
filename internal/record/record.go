package record

import (
	"fmt"
	"reflect"
	"slices"
	"strings"

	"github.com/iancoleman/strcase"

	"github.com/bgunnarsson/sqlkit/internal/sqlval"
)

// Record is an insertion-ordered mapping from column name to value.
// The zero value is an empty record ready to use.
type Record struct {
	keys   []string
	values map[string]sqlval.Value
}

// New builds a record from alternating name/value pairs.
func New(pairs ...any) (*Record, error) {
	if len(pairs)%2 != 0 {
		return nil, fmt.Errorf("odd number of arguments to record.New")
	}
	r := &Record{}
	for i := 0; i < len(pairs); i += 2 {
		name, ok := pairs[i].(string)
		if !ok {
			return nil, fmt.Errorf("column name at position %d is %T, not string", i, pairs[i])
		}
		if err := r.SetAny(name, pairs[i+1]); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// FromMap builds a record with keys in sorted order.
func FromMap(m map[string]any) (*Record, error) {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	r := &Record{}
	for _, k := range keys {
		if err := r.SetAny(k, m[k]); err != nil {
			return nil, err
		}
	}
	return r, nil
}

func (r *Record) Set(name string, v sqlval.Value) {
	if r.values == nil {
		r.values = make(map[string]sqlval.Value)
	}
	if _, ok := r.values[name]; !ok {
		r.keys = append(r.keys, name)
	}
	if v == nil {
		v = sqlval.Null{}
	}
	r.values[name] = v
}

func (r *Record) SetAny(name string, v any) error {
	val, err := sqlval.From(v)
	if err != nil {
		return fmt.Errorf("column %s: %w", name, err)
	}
	r.Set(name, val)
	return nil
}

func (r *Record) Get(name string) (sqlval.Value, bool) {
	v, ok := r.values[name]
	return v, ok
}

func (r *Record) Has(name string) bool {
	_, ok := r.values[name]
	return ok
}

// Empty reports whether name is absent or holds an empty value.
func (r *Record) Empty(name string) bool {
	v, ok := r.values[name]
	return !ok || v.IsEmpty()
}

func (r *Record) Delete(name string) {
	if _, ok := r.values[name]; !ok {
		return
	}
	delete(r.values, name)
	for i, k := range r.keys {
		if k == name {
			r.keys = append(r.keys[:i], r.keys[i+1:]...)
			break
		}
	}
}

// Keys returns the column names in insertion order.
func (r *Record) Keys() []string {
	out := make([]string, len(r.keys))
	copy(out, r.keys)
	return out
}

func (r *Record) Len() int {
	return len(r.keys)
}

func (r *Record) String() string {
	var b strings.Builder
	b.WriteString("{")
	for i, k := range r.keys {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(k)
		b.WriteString(": ")
		b.WriteString(sqlval.Escape(r.values[k], sqlval.DoubleQuotes, true))
	}
	b.WriteString("}")
	return b.String()
}

// FromStruct converts a struct (or pointer to one) into a record.
//
// The column name comes from the `db` tag, or the snake_case field name when
// there is no tag. `db:"-"` skips a field, and a field tagged auto (for
// example `db:"id,auto"`) is left out while it holds its zero value so the
// database can generate it.
func FromStruct(v any) (*Record, error) {
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Ptr {
		if rv.IsNil() {
			return nil, fmt.Errorf("nil %T", v)
		}
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct {
		return nil, fmt.Errorf("expecting struct, got %s", rv.Kind())
	}

	rt := rv.Type()
	r := &Record{}
	for i := 0; i < rt.NumField(); i++ {
		field := rt.Field(i)
		if !field.IsExported() {
			continue
		}

		name, auto := parseTag(field.Tag.Get("db"))
		if name == "-" {
			continue
		}
		if name == "" {
			name = strcase.ToSnake(field.Name)
		}

		fv := rv.Field(i)
		if auto && fv.IsZero() {
			continue
		}
		if err := r.SetAny(name, fv.Interface()); err != nil {
			return nil, err
		}
	}
	return r, nil
}

func parseTag(tag string) (name string, auto bool) {
	parts := strings.Split(tag, ",")
	name = strings.TrimSpace(parts[0])
	for _, p := range parts[1:] {
		if strings.EqualFold(strings.TrimSpace(p), "auto") {
			auto = true
		}
	}
	return name, auto
}
