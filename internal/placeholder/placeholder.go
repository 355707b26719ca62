// Package placeholder substitutes escaped values into SQL templates.
//
// Two grammars are supported. Positional templates use "?" and take values
// left to right. Named templates use ":name" tokens and take values from a
// mapping. A template uses one grammar; mixing them is not detected.
package placeholder

import (
	"errors"
	"fmt"
	"strings"

	"github.com/bgunnarsson/sqlkit/internal/sqlval"
)

// ErrCountMismatch is matched by every *CountError.
var ErrCountMismatch = errors.New("placeholder count mismatch")

// CountError reports a positional template whose "?" count differs from the
// number of supplied values.
type CountError struct {
	Template string
	Want     int
	Got      int
	Values   []sqlval.Value
}

func (e *CountError) Error() string {
	dump := "empty values"
	if len(e.Values) > 0 {
		parts := make([]string, len(e.Values))
		for i, v := range e.Values {
			parts[i] = sqlval.Escape(v, sqlval.DoubleQuotes, true)
		}
		dump = "values [" + strings.Join(parts, ", ") + "]"
	}
	return fmt.Sprintf("%d %s do not match %d placeholders in query %q", e.Got, dump, e.Want, e.Template)
}

func (e *CountError) Is(target error) bool {
	return target == ErrCountMismatch
}

// Args is either Positional or Named.
type Args interface {
	isArgs()
}

type Positional []sqlval.Value

// Named maps placeholder names to values. Keys may carry the leading colon.
type Named map[string]sqlval.Value

func (Positional) isArgs() {}
func (Named) isArgs()      {}

// Substitute returns template with each placeholder replaced by its escaped
// value. Substituted text is never scanned again.
func Substitute(template string, args Args, esc sqlval.StringEscaper) (string, error) {
	switch a := args.(type) {
	case nil:
		return template, nil
	case Positional:
		return substitutePositional(template, a, esc)
	case Named:
		return substituteNamed(template, a, esc), nil
	}
	return "", fmt.Errorf("unknown placeholder arguments %T", args)
}

func substitutePositional(template string, values Positional, esc sqlval.StringEscaper) (string, error) {
	parts := strings.Split(template, "?")
	if len(parts)-1 != len(values) {
		return "", &CountError{
			Template: template,
			Want:     len(parts) - 1,
			Got:      len(values),
			Values:   values,
		}
	}

	var b strings.Builder
	b.Grow(len(template) + 8*len(values))
	for i, v := range values {
		b.WriteString(parts[i])
		b.WriteString(sqlval.Escape(v, esc, true))
	}
	b.WriteString(parts[len(parts)-1])
	return b.String(), nil
}

func substituteNamed(template string, values Named, esc sqlval.StringEscaper) string {
	if len(values) == 0 {
		return template
	}

	escaped := make(map[string]string, len(values))
	for k, v := range values {
		escaped[strings.TrimPrefix(k, ":")] = sqlval.Escape(v, esc, true)
	}

	var b strings.Builder
	b.Grow(len(template))
	n := len(template)
	for i := 0; i < n; {
		c := template[i]
		if c != ':' {
			b.WriteByte(c)
			i++
			continue
		}

		// "::" is a cast, not a token
		if i+1 < n && template[i+1] == ':' {
			b.WriteString("::")
			i += 2
			continue
		}

		j := i + 1
		if j < n && isIdentStart(template[j]) {
			j++
			for j < n && isIdentChar(template[j]) {
				j++
			}
		}

		name := template[i+1 : j]
		if repl, ok := escaped[name]; ok && name != "" {
			b.WriteString(repl)
		} else {
			b.WriteString(template[i:j])
		}
		i = j
	}
	return b.String()
}

// Names lists the distinct named tokens of a template in order of first use.
func Names(template string) []string {
	var out []string
	seen := make(map[string]bool)
	n := len(template)
	for i := 0; i < n; i++ {
		if template[i] != ':' {
			continue
		}
		if i+1 < n && template[i+1] == ':' {
			i++
			continue
		}
		j := i + 1
		if j >= n || !isIdentStart(template[j]) {
			continue
		}
		for j < n && isIdentChar(template[j]) {
			j++
		}
		name := template[i+1 : j]
		if !seen[name] {
			seen[name] = true
			out = append(out, name)
		}
		i = j - 1
	}
	return out
}

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentChar(c byte) bool {
	return isIdentStart(c) || (c >= '0' && c <= '9')
}
