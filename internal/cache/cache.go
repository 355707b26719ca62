// Package cache stores query results for a limited time.
//
// A Store is a plain byte store with expiry. Remember layers the
// compute-on-miss behaviour on top and encodes values as JSON, so numbers
// read back from a hit are json.Number.
package cache

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/zeebo/xxh3"
)

// ErrStore wraps failures of the backing store during Remember. The computed
// value is still returned alongside it.
var ErrStore = errors.New("cache store")

type Store interface {
	// Get returns ok=false on a miss or an expired entry.
	Get(ctx context.Context, key string) (value []byte, ok bool, err error)
	// Set stores value; ttl <= 0 means no expiry.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// Key returns name when it is set, otherwise a hash of the final SQL text.
func Key(name, sql string) string {
	if name != "" {
		return name
	}
	return fmt.Sprintf("%016x", xxh3.HashString(sql))
}

// Remember returns the cached value for key, or computes, stores and returns it.
func Remember[T any](ctx context.Context, store Store, key string, ttl time.Duration, compute func() (T, error)) (T, error) {
	var zero T

	raw, ok, err := store.Get(ctx, key)
	if err != nil {
		err = fmt.Errorf("%w: get %s: %v", ErrStore, key, err)
	} else if ok {
		var v T
		dec := json.NewDecoder(bytes.NewReader(raw))
		dec.UseNumber()
		if derr := dec.Decode(&v); derr == nil {
			return v, nil
		}
		// undecodable entries are recomputed and overwritten
	}

	v, cerr := compute()
	if cerr != nil {
		return zero, cerr
	}

	data, merr := json.Marshal(v)
	if merr != nil {
		return v, fmt.Errorf("%w: encode %s: %v", ErrStore, key, merr)
	}
	if serr := store.Set(ctx, key, data, ttl); serr != nil {
		return v, fmt.Errorf("%w: set %s: %v", ErrStore, key, serr)
	}
	return v, err
}
