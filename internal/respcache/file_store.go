package respcache

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/gofrs/flock"

	"autocap/internal/fileutil"
)

const (
	lockSuffix     = ".lock"
	lockRetryDelay = 50 * time.Millisecond
)

// FileStore keeps one file per key in a directory. Per-key locks use an
// advisory lock file next to the entry so separate processes sharing the
// directory also serialize.
type FileStore struct {
	dir   string
	locks keyLocks
}

// NewFileStore creates the directory when needed.
func NewFileStore(dir string) (*FileStore, error) {
	dir = strings.TrimSpace(dir)
	if dir == "" {
		return nil, errors.New("respcache: file store directory required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("respcache: create cache dir: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

// Dir returns the backing directory.
func (s *FileStore) Dir() string { return s.dir }

func (s *FileStore) path(key string) (string, error) {
	if key == "" || key != filepath.Base(key) || key == "." || key == ".." {
		return "", fmt.Errorf("respcache: key %q is not a plain file name", key)
	}
	return filepath.Join(s.dir, key), nil
}

func (s *FileStore) Get(_ context.Context, key string) ([]byte, error) {
	path, err := s.path(key)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("respcache: read %s: %w", key, err)
	}
	return data, nil
}

func (s *FileStore) Put(_ context.Context, key string, value []byte) error {
	path, err := s.path(key)
	if err != nil {
		return err
	}
	if err := fileutil.WriteFileAtomic(path, value, 0o644); err != nil {
		return fmt.Errorf("respcache: write %s: %w", key, err)
	}
	return nil
}

func (s *FileStore) Lock(ctx context.Context, key string) (func(), error) {
	path, err := s.path(key)
	if err != nil {
		return nil, err
	}
	release, err := s.locks.lock(ctx, key)
	if err != nil {
		return nil, err
	}
	fileLock := flock.New(path + lockSuffix)
	ok, err := fileLock.TryLockContext(ctx, lockRetryDelay)
	if err != nil {
		release()
		return nil, fmt.Errorf("respcache: lock %s: %w", key, err)
	}
	if !ok {
		release()
		return nil, fmt.Errorf("respcache: lock %s: not acquired", key)
	}
	return func() {
		_ = fileLock.Unlock()
		release()
	}, nil
}

func (s *FileStore) Keys(_ context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("respcache: list cache dir: %w", err)
	}
	keys := make([]string, 0, len(entries))
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || strings.HasSuffix(name, lockSuffix) || strings.HasSuffix(name, ".tmp") || strings.HasPrefix(name, ".") {
			continue
		}
		keys = append(keys, name)
	}
	sort.Strings(keys)
	return keys, nil
}

func (s *FileStore) Close() error { return nil }
