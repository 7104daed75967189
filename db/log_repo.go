package db

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/tfkr-ae/explorer/domain"
)

var _ domain.LogRepository = (*Repository)(nil)

// dbLog represents a log entry as stored in the database.
type dbLog struct {
	ID        uuid.UUID      `db:"id"`         // Unique identifier for the log entry.
	Timestamp time.Time      `db:"timestamp"`  // The time at which the log entry was created.
	Level     string         `db:"level"`      // The severity level of the log.
	Message   string         `db:"message"`    // The main content of the log message.
	Context   Metadata       `db:"context"`    // A map of additional key-value data for structured logging.
	SessionID sql.NullString `db:"session_id"` // An optional session identity.
	Resource  sql.NullString `db:"resource"`   // An optional resource path.
}

// toDomainLog converts a dbLog to a domain.Log.
func toDomainLog(dbLog *dbLog) *domain.Log {
	log := &domain.Log{
		ID:        dbLog.ID,
		Timestamp: dbLog.Timestamp,
		Level:     dbLog.Level,
		Message:   dbLog.Message,
		Context:   map[string]any(dbLog.Context),
	}

	if dbLog.SessionID.Valid {
		sessionID := dbLog.SessionID.String
		log.SessionID = &sessionID
	}

	if dbLog.Resource.Valid {
		resource := dbLog.Resource.String
		log.Resource = &resource
	}

	return log
}

// fromDomainLog converts a domain.Log to a dbLog.
func fromDomainLog(log *domain.Log) *dbLog {
	dbLog := &dbLog{
		ID:        log.ID,
		Timestamp: log.Timestamp,
		Level:     log.Level,
		Message:   log.Message,
		Context:   Metadata(log.Context),
	}

	if log.SessionID != nil {
		dbLog.SessionID = sql.NullString{String: *log.SessionID, Valid: true}
	}

	if log.Resource != nil {
		dbLog.Resource = sql.NullString{String: *log.Resource, Valid: true}
	}

	return dbLog
}

// InsertLog saves a new log entry to the database.
func (repo *Repository) InsertLog(log *domain.Log) error {
	dbLog := fromDomainLog(log)
	query := `INSERT INTO logs (id, level, timestamp, message, context, session_id, resource)
	          VALUES (:id, :level, :timestamp, :message, :context, :session_id, :resource)`

	_, err := repo.dbConn.NamedExec(query, dbLog)
	if err != nil {
		return fmt.Errorf("inserting log %s: %w", log.ID, err)
	}

	return nil
}

// GetLogs retrieves log entries from the database, newest first.
// A limit <= 0 returns every entry.
func (repo *Repository) GetLogs(limit int) ([]*domain.Log, error) {
	var dbLogs []*dbLog
	query := `SELECT id, timestamp, level, message, context, session_id, resource
	          FROM logs ORDER BY timestamp DESC, id DESC`

	var err error
	if limit > 0 {
		err = repo.dbConn.Select(&dbLogs, query+` LIMIT ?`, limit)
	} else {
		err = repo.dbConn.Select(&dbLogs, query)
	}
	if err != nil {
		return nil, fmt.Errorf("fetching logs: %w", err)
	}

	domainLogs := make([]*domain.Log, len(dbLogs))
	for i, dbLog := range dbLogs {
		domainLogs[i] = toDomainLog(dbLog)
	}

	return domainLogs, nil
}

// CountLogs returns the total number of log entries stored in the repository.
func (repo *Repository) CountLogs() (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM logs`

	err := repo.dbConn.Get(&count, query)
	if err != nil {
		return 0, fmt.Errorf("getting log count: %w", err)
	}

	return count, nil
}
