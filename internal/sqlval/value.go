package sqlval

import (
	"database/sql/driver"
	"errors"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"time"
)

// Value is a literal that can be escaped into SQL text.
// The set of implementations is closed: Null, Bool, Number, String and List.
type Value interface {
	isValue()
	// IsEmpty reports whether the value counts as "not set" for key checks.
	IsEmpty() bool
}

type Null struct{}

type Bool bool

// Number holds the literal text of an integer or finite float.
type Number struct {
	text string
}

type String string

type List []Value

func (Null) isValue()   {}
func (Bool) isValue()   {}
func (Number) isValue() {}
func (String) isValue() {}
func (List) isValue()   {}

func (Null) IsEmpty() bool     { return true }
func (b Bool) IsEmpty() bool   { return !bool(b) }
func (n Number) IsEmpty() bool { return n.isZero() }
func (l List) IsEmpty() bool   { return len(l) == 0 }

// "0" is empty too: keys arriving from form input are strings.
func (s String) IsEmpty() bool { return s == "" || s == "0" }

func Int(i int64) Number {
	return Number{text: strconv.FormatInt(i, 10)}
}

func Uint(u uint64) Number {
	return Number{text: strconv.FormatUint(u, 10)}
}

// Float returns an error for NaN and infinities, which have no SQL literal.
func Float(f float64) (Number, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return Number{}, fmt.Errorf("%w: %v", ErrUnsupported, f)
	}
	return Number{text: strconv.FormatFloat(f, 'g', -1, 64)}, nil
}

func (n Number) String() string {
	if n.text == "" {
		return "0"
	}
	return n.text
}

func (n Number) isZero() bool {
	if n.text == "" {
		return true
	}
	f, err := strconv.ParseFloat(n.text, 64)
	return err == nil && f == 0
}

// Int64 returns the number as an integer when it has an integral form.
func (n Number) Int64() (int64, bool) {
	i, err := strconv.ParseInt(n.String(), 10, 64)
	return i, err == nil
}

// ErrUnsupported is returned for Go values with no SQL literal form.
var ErrUnsupported = errors.New("unsupported value")

// From converts a Go value into a Value.
func From(v any) (Value, error) {
	switch x := v.(type) {
	case nil:
		return Null{}, nil
	case Value:
		return x, nil
	case bool:
		return Bool(x), nil
	case int:
		return Int(int64(x)), nil
	case int8:
		return Int(int64(x)), nil
	case int16:
		return Int(int64(x)), nil
	case int32:
		return Int(int64(x)), nil
	case int64:
		return Int(x), nil
	case uint:
		return Uint(uint64(x)), nil
	case uint8:
		return Uint(uint64(x)), nil
	case uint16:
		return Uint(uint64(x)), nil
	case uint32:
		return Uint(uint64(x)), nil
	case uint64:
		return Uint(x), nil
	case float32:
		return Float(float64(x))
	case float64:
		return Float(x)
	case string:
		return String(x), nil
	case []byte:
		return String(x), nil
	case time.Time:
		return String(x.Format("2006-01-02 15:04:05.999999")), nil
	case driver.Valuer:
		if rv := reflect.ValueOf(x); rv.Kind() == reflect.Pointer && rv.IsNil() {
			return Null{}, nil
		}
		dv, err := x.Value()
		if err != nil {
			return nil, err
		}
		return From(dv)
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Ptr:
		if rv.IsNil() {
			return Null{}, nil
		}
		return From(rv.Elem().Interface())
	case reflect.Slice, reflect.Array:
		out := make(List, rv.Len())
		for i := 0; i < rv.Len(); i++ {
			item, err := From(rv.Index(i).Interface())
			if err != nil {
				return nil, err
			}
			out[i] = item
		}
		return out, nil
	// named scalar types, e.g. type Status string
	case reflect.String:
		return String(rv.String()), nil
	case reflect.Bool:
		return Bool(rv.Bool()), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return Int(rv.Int()), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return Uint(rv.Uint()), nil
	case reflect.Float32, reflect.Float64:
		return Float(rv.Float())
	}

	return nil, fmt.Errorf("%w: %T", ErrUnsupported, v)
}

// MustFrom is From for values known to be convertible, such as literals in tests.
func MustFrom(v any) Value {
	val, err := From(v)
	if err != nil {
		panic(err)
	}
	return val
}
