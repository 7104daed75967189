package cache

// Subscription receives the snapshots of one key.
// Only the latest snapshot is buffered: a slow reader skips intermediate ones.
type Subscription struct {
	cache   *Cache
	key     string
	updates chan Snapshot
	closed  bool // guarded by cache.mu
}

// Key returns the key the subscription is registered for.
func (sub *Subscription) Key() string {
	return sub.key
}

// Updates returns the channel snapshots are delivered on. It is closed by Close.
func (sub *Subscription) Updates() <-chan Snapshot {
	return sub.updates
}

// Close unsubscribes. It is safe to call more than once.
func (sub *Subscription) Close() {
	cache := sub.cache
	cache.mu.Lock()
	defer cache.mu.Unlock()

	if sub.closed {
		return
	}
	sub.closed = true

	if e, ok := cache.entries[sub.key]; ok {
		delete(e.subscribers, sub)
		cache.evictIfUnused(e)
	}
	close(sub.updates)
}

// deliver replaces any undelivered snapshot with snapshot. The caller must hold cache.mu.
func (sub *Subscription) deliver(snapshot Snapshot) {
	if sub.closed {
		return
	}

	select {
	case <-sub.updates:
	default:
	}
	sub.updates <- snapshot
}
