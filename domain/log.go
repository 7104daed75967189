package domain

import (
	"time"

	"github.com/google/uuid"
)

// LogRepository defines the interface for managing persisted diagnostics.
// It provides methods for persisting and retrieving log entries.
type LogRepository interface {
	// InsertLog saves a new log entry to the repository.
	InsertLog(log *Log) error
	// GetLogs retrieves the most recent log entries, newest first. A limit <= 0 returns all entries.
	GetLogs(limit int) ([]*Log, error)
	// CountLogs returns the number of stored log entries.
	CountLogs() (int, error)
}

// Log represents a single diagnostic entry, recorded when an auxiliary path
// (activity sync, refresh mutation, background fetch) absorbs an error.
type Log struct {
	ID        uuid.UUID      // Unique identifier for the log entry.
	Timestamp time.Time      // The time at which the log entry was created.
	Level     string         // The severity level of the log (DEBUG, INFO, WARN, ERROR).
	Message   string         // The main content of the log message.
	Context   map[string]any // A map of additional key-value data for structured logging.
	SessionID *string        // An optional session identity the entry relates to.
	Resource  *string        // An optional resource path (cache key) the entry relates to.
}
