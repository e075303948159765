package respcache

import (
	"fmt"
	"log/slog"
	"path/filepath"

	"autocap/internal/config"
)

// OpenStore builds the store selected by cache.backend rooted at paths.cache_dir.
func OpenStore(cfg *config.Config, logger *slog.Logger) (Store, error) {
	dir := cfg.Paths.CacheDir
	switch cfg.Cache.Backend {
	case config.CacheBackendFile, "":
		return NewFileStore(dir)
	case config.CacheBackendSQLite:
		return OpenSQLite(filepath.Join(dir, "cache.db"))
	case config.CacheBackendBadger:
		return OpenBadger(BadgerOptions{Dir: filepath.Join(dir, "badger"), Logger: logger})
	case config.CacheBackendMemory:
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("respcache: unknown backend %q", cfg.Cache.Backend)
	}
}
