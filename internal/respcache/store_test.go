package respcache

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"testing"
	"time"
)

func storeFactories() map[string]func(t *testing.T) Store {
	return map[string]func(t *testing.T) Store{
		"memory": func(t *testing.T) Store { return NewMemoryStore() },
		"file": func(t *testing.T) Store {
			s, err := NewFileStore(t.TempDir())
			if err != nil {
				t.Fatalf("NewFileStore: %v", err)
			}
			return s
		},
		"sqlite": func(t *testing.T) Store {
			s, err := OpenSQLite(filepath.Join(t.TempDir(), "cache.db"))
			if err != nil {
				t.Fatalf("OpenSQLite: %v", err)
			}
			return s
		},
		"badger": func(t *testing.T) Store {
			s, err := OpenBadger(BadgerOptions{InMemory: true})
			if err != nil {
				t.Fatalf("OpenBadger: %v", err)
			}
			return s
		},
	}
}

func TestStoreContract(t *testing.T) {
	for name, factory := range storeFactories() {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			store := factory(t)
			t.Cleanup(func() { _ = store.Close() })

			if _, err := store.Get(ctx, "missing.json"); !errors.Is(err, ErrNotFound) {
				t.Fatalf("expected ErrNotFound, got %v", err)
			}
			if err := store.Put(ctx, "b.json", []byte(`{"v":1}`)); err != nil {
				t.Fatalf("Put: %v", err)
			}
			if err := store.Put(ctx, "a.json", []byte(`{"v":2}`)); err != nil {
				t.Fatalf("Put: %v", err)
			}
			if err := store.Put(ctx, "b.json", []byte(`{"v":3}`)); err != nil {
				t.Fatalf("Put overwrite: %v", err)
			}
			got, err := store.Get(ctx, "b.json")
			if err != nil {
				t.Fatalf("Get: %v", err)
			}
			if string(got) != `{"v":3}` {
				t.Fatalf("Get = %q", got)
			}
			keys, err := store.Keys(ctx)
			if err != nil {
				t.Fatalf("Keys: %v", err)
			}
			if !slices.Equal(keys, []string{"a.json", "b.json"}) {
				t.Fatalf("Keys = %v", keys)
			}
		})
	}
}

func TestStoreLockIsExclusive(t *testing.T) {
	for name, factory := range storeFactories() {
		t.Run(name, func(t *testing.T) {
			store := factory(t)
			t.Cleanup(func() { _ = store.Close() })

			unlock, err := store.Lock(context.Background(), "job.json")
			if err != nil {
				t.Fatalf("Lock: %v", err)
			}
			ctx, cancel := context.WithTimeout(context.Background(), 40*time.Millisecond)
			defer cancel()
			if _, err := store.Lock(ctx, "job.json"); err == nil {
				t.Fatal("second Lock on the same key should block")
			}
			other, err := store.Lock(context.Background(), "other.json")
			if err != nil {
				t.Fatalf("Lock on a different key: %v", err)
			}
			other()
			unlock()
			unlock()

			again, err := store.Lock(context.Background(), "job.json")
			if err != nil {
				t.Fatalf("Lock after release: %v", err)
			}
			again()
		})
	}
}

func TestFileStoreIgnoresLockAndTempFiles(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	store, err := NewFileStore(dir)
	if err != nil {
		t.Fatal(err)
	}
	unlock, err := store.Lock(ctx, "entry.json")
	if err != nil {
		t.Fatal(err)
	}
	unlock()
	if err := store.Put(ctx, "entry.json", []byte("1")); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, ".entry.json-123.tmp"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	keys, err := store.Keys(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if !slices.Equal(keys, []string{"entry.json"}) {
		t.Fatalf("Keys = %v", keys)
	}
}

func TestFileStoreRejectsPathKeys(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	if err := store.Put(context.Background(), "../escape.json", []byte("x")); err == nil {
		t.Fatal("expected error for path key")
	}
}
