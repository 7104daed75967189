package domain

import "errors"

var (
	// ErrKeyNotFound is returned by a StorageRepository when nothing is stored under a key.
	ErrKeyNotFound = errors.New("no value stored for key")
)

// StorageRepository defines the durable key/value storage of the visitor's machine.
// It plays the role of a browser's local storage: small string values under fixed keys,
// surviving restarts of the process until the storage itself is cleared.
type StorageRepository interface {
	// GetValue returns the value stored under key.
	// It returns ErrKeyNotFound if the key has never been written or was deleted.
	GetValue(key string) (string, error)

	// SetValue creates or replaces the value stored under key.
	SetValue(key string, value string) error

	// DeleteValue removes the value stored under key.
	// It returns ErrKeyNotFound if there was nothing to delete.
	DeleteValue(key string) error
}
