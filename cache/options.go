package cache

import (
	"fmt"
	"log/slog"
	"time"
)

const (
	// DefaultDedupingInterval is how long a fetched entry is considered fresh for new subscribers.
	DefaultDedupingInterval = 2 * time.Second
	// DefaultFetchTimeout bounds a single fetch.
	DefaultFetchTimeout = 30 * time.Second
)

// WithLogger sets the cache logger.
func WithLogger(logger *slog.Logger) func(*Cache) error {
	return func(cache *Cache) error {
		if logger != nil {
			cache.logger = logger
		}
		return nil
	}
}

// WithDedupingInterval sets how long an entry stays fresh after a fetch.
// A subscriber arriving after that triggers a background revalidation.
// Zero revalidates on every subscription.
func WithDedupingInterval(interval time.Duration) func(*Cache) error {
	return func(cache *Cache) error {
		if interval < 0 {
			return fmt.Errorf("deduping interval cannot be negative, got %s", interval)
		}
		cache.dedupingInterval = interval
		return nil
	}
}

// WithRevalidateOnSubscribe controls whether a stale entry is refetched when a new subscriber arrives.
// When disabled, entries are only refetched by Invalidate.
func WithRevalidateOnSubscribe(enabled bool) func(*Cache) error {
	return func(cache *Cache) error {
		cache.revalidateOnSubscribe = enabled
		return nil
	}
}

// WithFetchTimeout bounds every fetch.
func WithFetchTimeout(timeout time.Duration) func(*Cache) error {
	return func(cache *Cache) error {
		if timeout <= 0 {
			return fmt.Errorf("fetch timeout must be positive, got %s", timeout)
		}
		cache.fetchTimeout = timeout
		return nil
	}
}

// WithEvictUnused drops an entry once its last subscriber is gone and no fetch is running.
// By default entries are kept warm for the lifetime of the cache.
func WithEvictUnused() func(*Cache) error {
	return func(cache *Cache) error {
		cache.keepWarm = false
		return nil
	}
}

// WithErrorHandler registers fn to receive every failed fetch.
func WithErrorHandler(fn func(key string, err error)) func(*Cache) error {
	return func(cache *Cache) error {
		cache.onError = fn
		return nil
	}
}

// WithClock sets the function used to stamp fetches.
func WithClock(now func() time.Time) func(*Cache) error {
	return func(cache *Cache) error {
		if now == nil {
			return fmt.Errorf("clock cannot be nil")
		}
		cache.now = now
		return nil
	}
}
