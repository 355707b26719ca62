package client

import (
	"context"
	"errors"
	"time"

	"github.com/bgunnarsson/sqlkit/internal/cache"
)

// Cached is a read-only view of a client whose results are kept in the
// client's cache store. A hit is returned as stored without checking the
// database; numbers in a hit come back as json.Number.
type Cached struct {
	c    *Client
	name string
	ttl  time.Duration
}

// Cached returns a view that caches under name, or under a hash of the final
// SQL when name is empty. ttl <= 0 keeps entries until they are removed.
// Without a store the view reads straight from the database.
func (c *Client) Cached(name string, ttl time.Duration) *Cached {
	return &Cached{c: c, name: name, ttl: ttl}
}

func (v *Cached) GetAll(ctx context.Context, q string, args ...any) ([]map[string]any, error) {
	sqlText, err := v.c.Replace(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	return remember(ctx, v, "all", sqlText, func() ([]map[string]any, error) {
		return v.c.all(ctx, sqlText)
	})
}

func (v *Cached) GetRow(ctx context.Context, q string, args ...any) (map[string]any, error) {
	sqlText, err := v.c.replaceLimited(ctx, q, args)
	if err != nil {
		return nil, err
	}
	return remember(ctx, v, "row", sqlText, func() (map[string]any, error) {
		return v.c.row(ctx, sqlText)
	})
}

func (v *Cached) GetOne(ctx context.Context, q string, args ...any) (any, error) {
	sqlText, err := v.c.replaceLimited(ctx, q, args)
	if err != nil {
		return nil, err
	}
	return remember(ctx, v, "one", sqlText, func() (any, error) {
		return v.c.one(ctx, sqlText)
	})
}

func (v *Cached) GetCol(ctx context.Context, q string, args ...any) ([]any, error) {
	sqlText, err := v.c.Replace(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	return remember(ctx, v, "col", sqlText, func() ([]any, error) {
		return v.c.col(ctx, sqlText)
	})
}

func (v *Cached) GetList(ctx context.Context, q string, mode ListMode, args ...any) (map[string]any, error) {
	sqlText, err := v.c.Replace(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	return remember(ctx, v, mode.key(), sqlText, func() (map[string]any, error) {
		return v.c.list(ctx, sqlText, mode)
	})
}

func (v *Cached) key(shape, sqlText string) string {
	if v.name != "" {
		return v.name
	}
	return cache.Key("", shape+"\x00"+sqlText)
}

func remember[T any](ctx context.Context, v *Cached, shape, sqlText string, compute func() (T, error)) (T, error) {
	if v.c.cache == nil {
		return compute()
	}
	key := v.key(shape, sqlText)
	out, err := cache.Remember(ctx, v.c.cache, key, v.ttl, compute)
	if errors.Is(err, cache.ErrStore) {
		v.c.logger.Warn("cache unavailable", "key", key, "err", err)
		return out, nil
	}
	return out, err
}
