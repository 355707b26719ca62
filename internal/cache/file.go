package cache

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/go-git/go-billy/v6"
	"github.com/go-git/go-billy/v6/osfs"
	"github.com/go-git/go-billy/v6/util"
	"github.com/goccy/go-json"
	"github.com/zeebo/xxh3"
)

// FileStore keeps one JSON file per key on a billy filesystem.
type FileStore struct {
	fs  billy.Filesystem
	now func() time.Time
}

type fileEntry struct {
	Key     string    `json:"key"`
	Expires time.Time `json:"expires,omitempty"`
	Value   []byte    `json:"value"`
}

func NewFileStore(fs billy.Filesystem) *FileStore {
	return &FileStore{fs: fs, now: time.Now}
}

// NewDirStore stores entries under dir on the local disk.
func NewDirStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return NewFileStore(osfs.New(dir)), nil
}

// Keys are hashed so that any name is a safe file name.
func (s *FileStore) path(key string) string {
	return fmt.Sprintf("%016x.json", xxh3.HashString(key))
}

func (s *FileStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	data, err := util.ReadFile(s.fs, s.path(key))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, false, nil
		}
		return nil, false, err
	}

	var e fileEntry
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, false, fmt.Errorf("corrupt cache entry %s: %w", key, err)
	}
	if e.Key != key {
		// another key hashed to the same file name
		return nil, false, nil
	}
	if !e.Expires.IsZero() && !s.now().Before(e.Expires) {
		_ = s.fs.Remove(s.path(key))
		return nil, false, nil
	}
	return e.Value, true, nil
}

func (s *FileStore) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	e := fileEntry{Key: key, Value: value}
	if ttl > 0 {
		e.Expires = s.now().Add(ttl)
	}

	data, err := json.Marshal(e)
	if err != nil {
		return err
	}
	return util.WriteFile(s.fs, s.path(key), data, 0o644)
}

func (s *FileStore) Delete(_ context.Context, key string) error {
	err := s.fs.Remove(s.path(key))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}
