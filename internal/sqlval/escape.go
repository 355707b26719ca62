package sqlval

import "strings"

// StringEscaper neutralises quote characters in a raw string using the
// rules of the connected database. It never adds the surrounding quotes.
type StringEscaper interface {
	EscapeString(s string) string
}

// EscaperFunc adapts a plain function to StringEscaper.
type EscaperFunc func(string) string

func (f EscaperFunc) EscapeString(s string) string { return f(s) }

// DoubleQuotes is the standard SQL escaper: single quotes are doubled.
var DoubleQuotes = EscaperFunc(func(s string) string {
	return strings.ReplaceAll(s, "'", "''")
})

// Escape renders v as SQL literal text. Strings are wrapped in single quotes
// when quote is true; list elements are always quoted.
func Escape(v Value, esc StringEscaper, quote bool) string {
	switch x := v.(type) {
	case nil, Null:
		return "NULL"
	case Bool:
		if x {
			return "1"
		}
		return "0"
	case Number:
		return x.String()
	case List:
		parts := make([]string, len(x))
		for i, item := range x {
			parts[i] = Escape(item, esc, true)
		}
		return "(" + strings.Join(parts, ", ") + ")"
	case String:
		s := esc.EscapeString(string(x))
		if quote {
			return "'" + s + "'"
		}
		return s
	}
	// unreachable for the closed set above
	return "NULL"
}
