package cache

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps entries in Redis under a key prefix and lets Redis
// handle expiry.
type RedisStore struct {
	rc     redis.UniversalClient
	prefix string
}

func NewRedisStore(rc redis.UniversalClient, prefix string) *RedisStore {
	return &RedisStore{rc: rc, prefix: prefix}
}

// DialRedis connects to a single Redis server at addr.
func DialRedis(addr, prefix string) *RedisStore {
	rc := redis.NewUniversalClient(&redis.UniversalOptions{
		Addrs: []string{addr},
	})
	return NewRedisStore(rc, prefix)
}

func (s *RedisStore) key(k string) string {
	if s.prefix == "" {
		return k
	}
	return s.prefix + ":" + k
}

func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	val, err := s.rc.Get(ctx, s.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return val, true, nil
}

func (s *RedisStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl < 0 {
		ttl = 0
	}
	return s.rc.Set(ctx, s.key(key), value, ttl).Err()
}

func (s *RedisStore) Delete(ctx context.Context, key string) error {
	return s.rc.Del(ctx, s.key(key)).Err()
}

func (s *RedisStore) Close() error {
	return s.rc.Close()
}
