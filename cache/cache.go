package cache

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

var (
	// ErrInvalidJSON is returned when a fetcher or a mutation provides a document that is not JSON.
	ErrInvalidJSON = errors.New("document is not valid JSON")

	errFlightGone = errors.New("fetch already finished")
)

// Fetcher loads the document of a resource path.
type Fetcher interface {
	Fetch(ctx context.Context, key string) ([]byte, error)
}

// FetcherFunc adapts a function to the Fetcher interface.
type FetcherFunc func(ctx context.Context, key string) ([]byte, error)

// Fetch implements the Fetcher interface.
func (f FetcherFunc) Fetch(ctx context.Context, key string) ([]byte, error) {
	return f(ctx, key)
}

type entry struct {
	key       string
	data      json.RawMessage
	err       error
	fetchedAt time.Time
	version   uint64
	fetched   bool // a fetch result or a mutation has been applied

	// generation is bumped by Invalidate and Mutate; a fetch is applied only
	// if the generation it was launched in is still current.
	generation uint64
	flight     string // singleflight key of the running fetch, empty when idle
	pending    bool   // an invalidation arrived while a fetch was running

	subscribers map[*Subscription]struct{}
}

// Cache is a keyed cache of remote documents. It is safe for concurrent use.
type Cache struct {
	fetcher               Fetcher
	logger                *slog.Logger
	dedupingInterval      time.Duration
	revalidateOnSubscribe bool
	fetchTimeout          time.Duration
	keepWarm              bool
	onError               func(key string, err error)
	now                   func() time.Time

	group  singleflight.Group
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu       sync.Mutex
	entries  map[string]*entry
	version  uint64
	launches uint64
	closed   bool
}

// New creates a Cache that loads documents through fetcher.
func New(fetcher Fetcher, options ...func(*Cache) error) (*Cache, error) {
	if fetcher == nil {
		return nil, errors.New("cache needs a fetcher")
	}

	ctx, cancel := context.WithCancel(context.Background())
	cache := &Cache{
		fetcher:               fetcher,
		logger:                slog.Default(),
		dedupingInterval:      DefaultDedupingInterval,
		revalidateOnSubscribe: true,
		fetchTimeout:          DefaultFetchTimeout,
		keepWarm:              true,
		now:                   time.Now,
		ctx:                   ctx,
		cancel:                cancel,
		entries:               make(map[string]*entry),
	}

	for _, option := range options {
		if err := option(cache); err != nil {
			cancel()
			return nil, fmt.Errorf("applying option on cache : %w", err)
		}
	}
	return cache, nil
}

// Subscribe registers interest in key and returns a subscription whose channel
// immediately holds the current snapshot. The first subscriber of an unfetched
// key starts a fetch; later subscribers share it. A stale entry is revalidated
// in the background while its data stays visible.
func (cache *Cache) Subscribe(key string) *Subscription {
	cache.mu.Lock()
	defer cache.mu.Unlock()

	e := cache.entryFor(key)
	sub := &Subscription{
		cache:   cache,
		key:     key,
		updates: make(chan Snapshot, 1),
	}
	e.subscribers[sub] = struct{}{}

	if e.flight == "" && cache.shouldRevalidate(e) {
		cache.launch(e)
		return sub
	}

	sub.deliver(cache.snapshot(e))
	return sub
}

// Get returns the snapshot of key, waiting for a fetch when nothing has been
// fetched yet or one is already running. The returned error is the snapshot's
// fetch error, or the context error when ctx is done first.
func (cache *Cache) Get(ctx context.Context, key string) (Snapshot, error) {
	for {
		cache.mu.Lock()
		e := cache.entryFor(key)

		if e.flight == "" && !e.pending && e.fetched {
			snapshot := cache.snapshot(e)
			cache.evictIfUnused(e)
			cache.mu.Unlock()
			return snapshot, snapshot.Err
		}

		if cache.closed {
			cache.mu.Unlock()
			return Snapshot{Key: key}, errors.New("cache is closed")
		}

		var results <-chan singleflight.Result
		if e.flight != "" {
			results = cache.group.DoChan(e.flight, func() (any, error) { return nil, errFlightGone })
		} else {
			results = cache.launch(e)
		}
		cache.mu.Unlock()

		select {
		case <-ctx.Done():
			return Snapshot{Key: key}, fmt.Errorf("waiting for %s : %w", key, ctx.Err())
		case result := <-results:
			if result.Err != nil {
				continue
			}
			outcome := result.Val.(fetchOutcome)
			if outcome.applied {
				return outcome.snapshot, outcome.snapshot.Err
			}
			// superseded by an invalidation or a mutation, look again
		}
	}
}

// Peek returns the current snapshot of key without subscribing or fetching.
func (cache *Cache) Peek(key string) (Snapshot, bool) {
	cache.mu.Lock()
	defer cache.mu.Unlock()

	e, ok := cache.entries[key]
	if !ok {
		return Snapshot{Key: key}, false
	}
	return cache.snapshot(e), true
}

// Invalidate marks the snapshot of key as outdated and starts exactly one new
// fetch whose result is broadcast to every subscriber. The previous data stays
// visible until that fetch completes. When a fetch is already running its
// result is discarded and the new fetch starts as soon as it returns.
func (cache *Cache) Invalidate(key string) {
	cache.mu.Lock()
	defer cache.mu.Unlock()

	if cache.closed {
		return
	}

	e := cache.entryFor(key)
	e.generation++

	if e.flight != "" {
		e.pending = true
		cache.broadcast(e)
		return
	}
	cache.launch(e)
}

// Mutate replaces the document of key locally and broadcasts it without fetching.
// A fetch running at that moment is discarded.
func (cache *Cache) Mutate(key string, data []byte) error {
	if !json.Valid(data) {
		return fmt.Errorf("mutating %s : %w", key, ErrInvalidJSON)
	}

	cache.mu.Lock()
	defer cache.mu.Unlock()

	e := cache.entryFor(key)
	e.generation++
	cache.version++

	e.data = bytes.Clone(data)
	e.err = nil
	e.fetched = true
	e.fetchedAt = cache.now()
	e.version = cache.version

	cache.broadcast(e)
	cache.evictIfUnused(e)
	return nil
}

// Close cancels running fetches and waits for them to return.
// Results arriving after Close are discarded.
func (cache *Cache) Close() {
	cache.mu.Lock()
	cache.closed = true
	cache.mu.Unlock()

	cache.cancel()
	cache.wg.Wait()
}

type fetchOutcome struct {
	snapshot Snapshot
	applied  bool
}

// entryFor returns the entry of key, creating it if needed. The caller must hold cache.mu.
func (cache *Cache) entryFor(key string) *entry {
	e, ok := cache.entries[key]
	if !ok {
		e = &entry{
			key:         key,
			subscribers: make(map[*Subscription]struct{}),
		}
		cache.entries[key] = e
	}
	return e
}

func (cache *Cache) shouldRevalidate(e *entry) bool {
	if cache.closed {
		return false
	}
	if !e.fetched {
		return true
	}
	return cache.revalidateOnSubscribe && cache.now().Sub(e.fetchedAt) >= cache.dedupingInterval
}

// launch starts a fetch for e in the current generation. The caller must hold
// cache.mu and e must have no fetch running.
func (cache *Cache) launch(e *entry) <-chan singleflight.Result {
	cache.launches++
	flight := fmt.Sprintf("%s#%d", e.key, cache.launches)
	generation := e.generation

	e.flight = flight
	e.pending = false

	cache.wg.Add(1)
	results := cache.group.DoChan(flight, func() (any, error) {
		defer cache.wg.Done()
		return cache.run(e, flight, generation), nil
	})

	cache.broadcast(e)
	return results
}

// run performs one fetch and applies its result if it is still current.
// e.flight is cleared before run returns, so while it is set the singleflight
// key is registered and can be joined.
func (cache *Cache) run(e *entry, flight string, generation uint64) fetchOutcome {
	ctx, cancel := context.WithTimeout(cache.ctx, cache.fetchTimeout)
	defer cancel()

	start := cache.now()
	data, err := cache.fetcher.Fetch(ctx, e.key)
	if err == nil && !json.Valid(data) {
		err = fmt.Errorf("fetching %s : %w", e.key, ErrInvalidJSON)
	}

	cache.mu.Lock()

	if e.flight == flight {
		e.flight = ""
	}

	if cache.closed || e.generation != generation {
		cache.logger.Debug("discarding superseded fetch", "key", e.key)
		if e.flight == "" && e.pending && !cache.closed && cache.entries[e.key] == e {
			cache.launch(e)
		} else {
			cache.broadcast(e)
		}
		snapshot := cache.snapshot(e)
		cache.mu.Unlock()
		return fetchOutcome{snapshot: snapshot}
	}

	cache.version++
	e.version = cache.version
	e.fetched = true
	e.fetchedAt = cache.now()
	if err != nil {
		e.err = err
	} else {
		e.data = data
		e.err = nil
	}

	snapshot := cache.snapshot(e)
	cache.broadcast(e)
	cache.evictIfUnused(e)
	cache.mu.Unlock()

	if err != nil {
		cache.logger.Warn("fetching resource", "key", e.key, "error", err)
		if cache.onError != nil {
			cache.onError(e.key, err)
		}
	} else {
		cache.logger.Debug("fetched resource", "key", e.key, "version", snapshot.Version, "duration", snapshot.FetchedAt.Sub(start))
	}

	return fetchOutcome{snapshot: snapshot, applied: true}
}

// snapshot copies e. The caller must hold cache.mu.
func (cache *Cache) snapshot(e *entry) Snapshot {
	validating := e.flight != "" || e.pending
	return Snapshot{
		Key:          e.key,
		Data:         bytes.Clone(e.data),
		Err:          e.err,
		IsLoading:    validating && len(e.data) == 0,
		IsValidating: validating,
		FetchedAt:    e.fetchedAt,
		Version:      e.version,
	}
}

// broadcast delivers the current snapshot of e to its subscribers. The caller must hold cache.mu.
func (cache *Cache) broadcast(e *entry) {
	if len(e.subscribers) == 0 {
		return
	}
	snapshot := cache.snapshot(e)
	for sub := range e.subscribers {
		sub.deliver(snapshot)
	}
}

// evictIfUnused drops e when the cache does not keep entries warm and e is idle
// without subscribers. The caller must hold cache.mu.
func (cache *Cache) evictIfUnused(e *entry) {
	if cache.keepWarm || len(e.subscribers) > 0 || e.flight != "" || e.pending {
		return
	}
	if cache.entries[e.key] == e {
		delete(cache.entries, e.key)
	}
}
