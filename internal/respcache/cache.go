package respcache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"autocap/internal/logging"
)

// Source tells whether a memoized value was read back or freshly computed.
type Source int

const (
	SourceFresh Source = iota
	SourceCache
)

func (s Source) String() string {
	if s == SourceCache {
		return "cache"
	}
	return "fresh"
}

// Result carries a memoized value with its key and origin.
type Result[T any] struct {
	Value  T
	Key    string
	Source Source
}

// Cache binds a Store to JSON encoding and hit/miss logging.
type Cache struct {
	store  Store
	logger *slog.Logger
}

// New wraps store. A nil logger discards cache logs.
func New(store Store, logger *slog.Logger) *Cache {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Cache{store: store, logger: logging.NewComponentLogger(logger, "cache")}
}

// Store returns the underlying store.
func (c *Cache) Store() Store { return c.store }

// Keys lists every stored key.
func (c *Cache) Keys(ctx context.Context) ([]string, error) {
	return c.store.Keys(ctx)
}

// Close releases the store.
func (c *Cache) Close() error {
	if c == nil || c.store == nil {
		return nil
	}
	return c.store.Close()
}

func keepAll[T any](T) bool { return true }

// Memoize returns the stored value for pattern+params, or calls fn and stores
// its result. Concurrent callers for the same key may both run fn; use Once
// when fn has side effects.
func Memoize[T any](ctx context.Context, c *Cache, pattern Pattern, params Params, fn func(context.Context) (T, error)) (Result[T], error) {
	return MemoizeIf(ctx, c, pattern, params, keepAll[T], fn)
}

// MemoizeIf is Memoize with a predicate deciding whether a value is worth
// persisting. Values rejected by keep are returned but not stored, and a
// stored value keep rejects is treated as a miss, so the next call runs fn
// again.
func MemoizeIf[T any](ctx context.Context, c *Cache, pattern Pattern, params Params, keep func(T) bool, fn func(context.Context) (T, error)) (Result[T], error) {
	key, err := pattern.Key(params)
	if err != nil {
		return Result[T]{}, err
	}
	return memoizeKey(ctx, c, key, keep, fn)
}

// Once behaves like Memoize but holds the per-key lock from lookup through
// store, so fn runs at most once per key.
func Once[T any](ctx context.Context, c *Cache, pattern Pattern, params Params, fn func(context.Context) (T, error)) (Result[T], error) {
	key, err := pattern.Key(params)
	if err != nil {
		return Result[T]{}, err
	}
	unlock, err := c.store.Lock(ctx, key)
	if err != nil {
		return Result[T]{}, fmt.Errorf("respcache: lock %s: %w", key, err)
	}
	defer unlock()
	return memoizeKey(ctx, c, key, keepAll[T], fn)
}

// Wrap returns fn memoized under pattern, deriving params from the argument.
func Wrap[P, T any](c *Cache, pattern Pattern, params func(P) Params, fn func(context.Context, P) (T, error)) func(context.Context, P) (Result[T], error) {
	return func(ctx context.Context, arg P) (Result[T], error) {
		return Memoize(ctx, c, pattern, params(arg), func(ctx context.Context) (T, error) {
			return fn(ctx, arg)
		})
	}
}

func memoizeKey[T any](ctx context.Context, c *Cache, key string, keep func(T) bool, fn func(context.Context) (T, error)) (Result[T], error) {
	data, err := c.store.Get(ctx, key)
	switch {
	case err == nil:
		var value T
		decodeErr := json.Unmarshal(data, &value)
		switch {
		case decodeErr == nil && keep(value):
			c.logger.Debug("cache hit", logging.String("key", key))
			return Result[T]{Value: value, Key: key, Source: SourceCache}, nil
		case decodeErr == nil:
			c.logger.Debug("cached value rejected; recomputing", logging.String("key", key))
		default:
			logging.WarnWithContext(c.logger, "cache entry unreadable; recomputing", "cache_entry_corrupt",
				logging.String("key", key),
				logging.String(logging.FieldErrorHint, "delete the entry if this repeats"),
				logging.String(logging.FieldImpact, "the remote call is repeated"),
				logging.Error(decodeErr),
			)
		}
	case errors.Is(err, ErrNotFound):
		c.logger.Debug("cache miss", logging.String("key", key))
	default:
		return Result[T]{}, err
	}

	value, err := fn(ctx)
	if err != nil {
		return Result[T]{}, err
	}
	if !keep(value) {
		return Result[T]{Value: value, Key: key, Source: SourceFresh}, nil
	}
	encoded, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return Result[T]{}, fmt.Errorf("respcache: encode %s: %w", key, err)
	}
	if err := c.store.Put(ctx, key, encoded); err != nil {
		return Result[T]{}, err
	}
	return Result[T]{Value: value, Key: key, Source: SourceFresh}, nil
}
