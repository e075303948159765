package testsupport

import (
	"testing"

	"autocap/internal/config"
	"autocap/internal/respcache"
)

// MustOpenCache opens the response cache selected by cfg and registers cleanup.
func MustOpenCache(t testing.TB, cfg *config.Config) *respcache.Cache {
	t.Helper()

	store, err := respcache.OpenStore(cfg, nil)
	if err != nil {
		t.Fatalf("respcache.OpenStore: %v", err)
	}
	cache := respcache.New(store, nil)
	t.Cleanup(func() {
		_ = cache.Close()
	})
	return cache
}
