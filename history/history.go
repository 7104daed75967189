// Package history implements the visitor's durable activity log: a bounded,
// newest-first sequence of activity records rewritten in full to local storage
// on every append.
package history

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/tfkr-ae/explorer/domain"
)

const (
	// StorageKey is the key under which the serialized log is persisted.
	StorageKey = "viewHistory"
	// MaxEntries is the default number of records kept.
	MaxEntries = 50
)

// Log is the durable activity log of one storage origin.
// The persisted sequence is loaded lazily on first access and mirrored in memory.
type Log struct {
	store  domain.StorageRepository
	logger *slog.Logger
	limit  int

	mu        sync.Mutex
	loaded    bool
	records   []domain.ActivityRecord
	observers map[int]func([]domain.ActivityRecord)
	nextID    int
}

// New creates a Log persisted through store. A nil store keeps the log in memory only.
func New(store domain.StorageRepository, options ...func(*Log) error) (*Log, error) {
	log := &Log{
		store:     store,
		logger:    slog.Default(),
		limit:     MaxEntries,
		observers: make(map[int]func([]domain.ActivityRecord)),
	}

	for _, option := range options {
		if err := option(log); err != nil {
			return nil, fmt.Errorf("applying option on activity log : %w", err)
		}
	}
	return log, nil
}

// WithLogger sets the logger used to report unreadable or unwritable storage.
func WithLogger(logger *slog.Logger) func(*Log) error {
	return func(log *Log) error {
		if logger != nil {
			log.logger = logger
		}
		return nil
	}
}

// WithLimit sets the maximum number of records kept.
func WithLimit(limit int) func(*Log) error {
	return func(log *Log) error {
		if limit < 1 {
			return fmt.Errorf("history limit must be positive, got %d", limit)
		}
		log.limit = limit
		return nil
	}
}

// Limit returns the maximum number of records kept.
func (log *Log) Limit() int {
	return log.limit
}

// Append prepends record, drops whatever exceeds the limit, writes the whole
// sequence back to storage and returns a copy of the new sequence.
//
// A failed write is logged and otherwise ignored: the in-memory sequence stays
// authoritative for the lifetime of the process.
// Observers are notified before Append returns and must not call back into the Log.
func (log *Log) Append(record domain.ActivityRecord) []domain.ActivityRecord {
	log.mu.Lock()
	defer log.mu.Unlock()

	log.load()

	next := make([]domain.ActivityRecord, 0, min(len(log.records)+1, log.limit))
	next = append(next, record)
	next = append(next, log.records[:min(len(log.records), log.limit-1)]...)
	log.records = next

	log.persist()

	snapshot := slices.Clone(log.records)
	log.notify(snapshot)
	return snapshot
}

// Records returns a copy of the current sequence, newest first.
func (log *Log) Records() []domain.ActivityRecord {
	log.mu.Lock()
	defer log.mu.Unlock()

	log.load()
	return slices.Clone(log.records)
}

// Len returns the number of records currently held.
func (log *Log) Len() int {
	log.mu.Lock()
	defer log.mu.Unlock()

	log.load()
	return len(log.records)
}

// OnChange registers fn to receive the complete sequence after every change.
// It returns a function that removes the observer.
func (log *Log) OnChange(fn func([]domain.ActivityRecord)) (remove func()) {
	log.mu.Lock()
	defer log.mu.Unlock()

	id := log.nextID
	log.nextID++
	log.observers[id] = fn

	return func() {
		log.mu.Lock()
		defer log.mu.Unlock()
		delete(log.observers, id)
	}
}

// Clear empties the log and deletes the persisted sequence.
func (log *Log) Clear() error {
	log.mu.Lock()
	defer log.mu.Unlock()

	log.loaded = true
	log.records = nil
	log.notify([]domain.ActivityRecord{})

	if log.store == nil {
		return nil
	}

	err := log.store.DeleteValue(StorageKey)
	if err != nil && !errors.Is(err, domain.ErrKeyNotFound) {
		return fmt.Errorf("clearing activity log : %w", err)
	}
	return nil
}

// load reads the persisted sequence once. Absent or corrupt payloads load as empty.
// The caller must hold log.mu.
func (log *Log) load() {
	if log.loaded {
		return
	}
	log.loaded = true
	log.records = nil

	if log.store == nil {
		return
	}

	raw, err := log.store.GetValue(StorageKey)
	if err != nil {
		if !errors.Is(err, domain.ErrKeyNotFound) {
			log.logger.Warn("reading activity log", "error", err)
		}
		return
	}

	var records []domain.ActivityRecord
	if err := json.Unmarshal([]byte(raw), &records); err != nil {
		log.logger.Warn("discarding corrupt activity log", "error", err)
		return
	}

	if len(records) > log.limit {
		records = records[:log.limit]
	}
	log.records = records
}

// persist rewrites the whole sequence. The caller must hold log.mu.
func (log *Log) persist() {
	if log.store == nil {
		return
	}

	payload, err := json.Marshal(log.records)
	if err != nil {
		log.logger.Warn("encoding activity log", "error", err)
		return
	}

	if err := log.store.SetValue(StorageKey, string(payload)); err != nil {
		log.logger.Warn("writing activity log", "error", err, "entries", len(log.records))
	}
}

func (log *Log) notify(records []domain.ActivityRecord) {
	for _, observer := range log.observers {
		observer(slices.Clone(records))
	}
}
