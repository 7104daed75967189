// Package session resolves the visitor's durable session identity.
//
// The identity is a random UUID written once under StorageKey and read back
// on every later call. It is never regenerated while the storage keeps it.
package session

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/tfkr-ae/explorer/domain"
)

// StorageKey is the key under which the identity is persisted.
const StorageKey = "sessionId"

// Manager owns the session identity of one storage origin.
type Manager struct {
	store  domain.StorageRepository
	logger *slog.Logger
	newID  func() (uuid.UUID, error)

	mu sync.Mutex
	id string // in-memory mirror, set after the first successful resolution
}

// NewManager creates a Manager on top of store. A nil store is accepted and
// behaves like unavailable storage: GetOrCreate returns an empty identity.
func NewManager(store domain.StorageRepository, options ...func(*Manager) error) (*Manager, error) {
	manager := &Manager{
		store:  store,
		logger: slog.Default(),
		newID:  uuid.NewRandom,
	}

	for _, option := range options {
		if err := option(manager); err != nil {
			return nil, fmt.Errorf("applying option on session manager : %w", err)
		}
	}
	return manager, nil
}

// WithLogger sets the logger used to report storage failures.
func WithLogger(logger *slog.Logger) func(*Manager) error {
	return func(manager *Manager) error {
		if logger != nil {
			manager.logger = logger
		}
		return nil
	}
}

// WithIDGenerator replaces the UUID generator.
func WithIDGenerator(generator func() (uuid.UUID, error)) func(*Manager) error {
	return func(manager *Manager) error {
		if generator == nil {
			return errors.New("id generator cannot be nil")
		}
		manager.newID = generator
		return nil
	}
}

// GetOrCreate returns the session identity, creating and persisting it on first use.
// It returns an empty string when the storage cannot be read or written; nothing
// is cached in that case so a later call may still succeed.
func (manager *Manager) GetOrCreate() string {
	manager.mu.Lock()
	defer manager.mu.Unlock()

	if manager.id != "" {
		return manager.id
	}

	if manager.store == nil {
		return ""
	}

	stored, err := manager.store.GetValue(StorageKey)
	switch {
	case err == nil && stored != "":
		manager.id = stored
		return stored
	case err != nil && !errors.Is(err, domain.ErrKeyNotFound):
		manager.logger.Warn("reading session id", "error", err)
		return ""
	}

	id, err := manager.newID()
	if err != nil {
		manager.logger.Warn("generating session id", "error", err)
		return ""
	}

	if err := manager.store.SetValue(StorageKey, id.String()); err != nil {
		manager.logger.Warn("writing session id", "error", err)
		return ""
	}

	manager.id = id.String()
	manager.logger.Debug("created session id", "session_id", manager.id)
	return manager.id
}

// Clear deletes the persisted identity so the next GetOrCreate creates a new one.
func (manager *Manager) Clear() error {
	manager.mu.Lock()
	defer manager.mu.Unlock()

	manager.id = ""
	if manager.store == nil {
		return nil
	}

	err := manager.store.DeleteValue(StorageKey)
	if err != nil && !errors.Is(err, domain.ErrKeyNotFound) {
		return fmt.Errorf("clearing session id : %w", err)
	}
	return nil
}
