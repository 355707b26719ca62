package cache

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/go-git/go-billy/v6/memfs"
	"github.com/go-git/go-billy/v6/util"
)

func newTestStore() (*FileStore, *time.Time) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	s := NewFileStore(memfs.New())
	s.now = func() time.Time { return now }
	return s, &now
}

func TestKey(t *testing.T) {
	if Key("users", "SELECT 1") != "users" {
		t.Error("explicit name should win")
	}
	a := Key("", "SELECT * FROM users WHERE id = 1")
	b := Key("", "SELECT * FROM users WHERE id = 2")
	if a == b || len(a) != 16 {
		t.Errorf("hash keys %q %q", a, b)
	}
	if a != Key("", "SELECT * FROM users WHERE id = 1") {
		t.Error("hash key is not stable")
	}
}

func TestFileStore(t *testing.T) {
	ctx := context.Background()
	s, now := newTestStore()

	if _, ok, err := s.Get(ctx, "k"); ok || err != nil {
		t.Fatalf("empty store: ok=%v err=%v", ok, err)
	}

	if err := s.Set(ctx, "k", []byte("v1"), time.Minute); err != nil {
		t.Fatal(err)
	}
	v, ok, err := s.Get(ctx, "k")
	if err != nil || !ok || string(v) != "v1" {
		t.Fatalf("Get = %q, %v, %v", v, ok, err)
	}

	*now = now.Add(2 * time.Minute)
	if _, ok, _ := s.Get(ctx, "k"); ok {
		t.Error("entry should have expired")
	}

	if err := s.Set(ctx, "forever", []byte("v"), 0); err != nil {
		t.Fatal(err)
	}
	*now = now.Add(1000 * time.Hour)
	if _, ok, _ := s.Get(ctx, "forever"); !ok {
		t.Error("ttl 0 should never expire")
	}

	if err := s.Delete(ctx, "forever"); err != nil {
		t.Fatal(err)
	}
	if err := s.Delete(ctx, "forever"); err != nil {
		t.Errorf("deleting a missing key: %v", err)
	}
	if _, ok, _ := s.Get(ctx, "forever"); ok {
		t.Error("deleted entry still present")
	}
}

func TestFileStoreUnsafeNames(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore()
	if err := s.Set(ctx, "../users/list?x=1", []byte("v"), 0); err != nil {
		t.Fatal(err)
	}
	if _, ok, _ := s.Get(ctx, "../users/list?x=1"); !ok {
		t.Error("entry not found")
	}
}

func TestRemember(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore()

	calls := 0
	compute := func() ([]map[string]any, error) {
		calls++
		return []map[string]any{{"id": 7, "name": "Ann"}}, nil
	}

	first, err := Remember(ctx, s, "users", time.Minute, compute)
	if err != nil {
		t.Fatal(err)
	}
	second, err := Remember(ctx, s, "users", time.Minute, compute)
	if err != nil {
		t.Fatal(err)
	}

	if calls != 1 {
		t.Errorf("compute called %d times, want 1", calls)
	}
	if fmt.Sprint(first[0]["id"]) != "7" || fmt.Sprint(second[0]["id"]) != "7" || second[0]["name"] != "Ann" {
		t.Errorf("first=%v second=%v", first, second)
	}
}

func TestRememberComputeError(t *testing.T) {
	s, _ := newTestStore()
	boom := errors.New("boom")
	_, err := Remember(context.Background(), s, "k", 0, func() (int, error) { return 0, boom })
	if !errors.Is(err, boom) {
		t.Errorf("err = %v", err)
	}
	if _, ok, _ := s.Get(context.Background(), "k"); ok {
		t.Error("failed computation must not be cached")
	}
}

type failingStore struct{}

func (failingStore) Get(context.Context, string) ([]byte, bool, error) {
	return nil, false, errors.New("down")
}
func (failingStore) Set(context.Context, string, []byte, time.Duration) error {
	return errors.New("down")
}
func (failingStore) Delete(context.Context, string) error { return nil }

func TestRememberStoreFailureStillReturnsValue(t *testing.T) {
	v, err := Remember(context.Background(), failingStore{}, "k", 0, func() (string, error) { return "fresh", nil })
	if v != "fresh" {
		t.Errorf("v = %q", v)
	}
	if !errors.Is(err, ErrStore) {
		t.Errorf("err = %v, want ErrStore", err)
	}
}

func TestRedisStoreKey(t *testing.T) {
	s := &RedisStore{prefix: "sqk"}
	if s.key("abc") != "sqk:abc" {
		t.Errorf("key = %s", s.key("abc"))
	}
	s.prefix = ""
	if s.key("abc") != "abc" {
		t.Errorf("key = %s", s.key("abc"))
	}
}

func TestFileStoreIgnoresForeignEntry(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore()
	if err := s.Set(ctx, "b", []byte("b's value"), 0); err != nil {
		t.Fatal(err)
	}

	// put b's entry where a would be stored, as a hash collision would
	data, err := util.ReadFile(s.fs, s.path("b"))
	if err != nil {
		t.Fatal(err)
	}
	if err := util.WriteFile(s.fs, s.path("a"), data, 0o644); err != nil {
		t.Fatal(err)
	}

	if v, ok, err := s.Get(ctx, "a"); ok || err != nil {
		t.Errorf("Get(a) = %q, %v, %v; want a miss", v, ok, err)
	}
}
