package client

import (
	"errors"
	"fmt"

	"github.com/bgunnarsson/sqlkit/internal/db"
	"github.com/bgunnarsson/sqlkit/internal/placeholder"
)

var (
	// ErrConnection wraps every failure to establish the connection.
	ErrConnection = errors.New("could not connect")

	// ErrQuery is matched by every *QueryError.
	ErrQuery = errors.New("query failed")

	// ErrNotEnum is returned by Enum for columns of any other type.
	ErrNotEnum = errors.New("column is not an enum")
)

// QueryError is a statement the database refused. It is expected and
// recoverable: the client logs it and hands it back to the caller.
type QueryError struct {
	Query string
	Err   error
}

func (e *QueryError) Error() string {
	return fmt.Sprintf("query failed: %v (query: %s)", e.Err, e.Query)
}

func (e *QueryError) Unwrap() error { return e.Err }

func (e *QueryError) Is(target error) bool { return target == ErrQuery }

type Kind int

const (
	KindNone Kind = iota
	KindConnection
	KindPlaceholderCount
	KindUnknownTable
	KindQuery
	KindOther
)

func (k Kind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindConnection:
		return "connection"
	case KindPlaceholderCount:
		return "placeholder count"
	case KindUnknownTable:
		return "unknown table"
	case KindQuery:
		return "query"
	default:
		return "other"
	}
}

// KindOf classifies an error returned by the client so callers can switch
// on it instead of reading messages.
func KindOf(err error) Kind {
	switch {
	case err == nil:
		return KindNone
	case errors.Is(err, ErrConnection):
		return KindConnection
	case errors.Is(err, placeholder.ErrCountMismatch):
		return KindPlaceholderCount
	case errors.Is(err, db.ErrUnknownTable):
		return KindUnknownTable
	case errors.Is(err, ErrQuery):
		return KindQuery
	default:
		return KindOther
	}
}
