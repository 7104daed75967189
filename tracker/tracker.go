package tracker

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/tfkr-ae/explorer/domain"
)

// SessionResolver resolves the visitor's session identity. An empty identity means none is available.
type SessionResolver interface {
	GetOrCreate() string
}

// Appender is the local activity log.
type Appender interface {
	Append(record domain.ActivityRecord) []domain.ActivityRecord
}

// RecordForwarder hands a record to the remote store without waiting.
type RecordForwarder interface {
	Forward(record domain.ActivityRecord)
}

// Tracker is the entry point for recording page views.
type Tracker struct {
	sessions  SessionResolver
	log       Appender
	forwarder RecordForwarder
	logger    *slog.Logger
	now       func() time.Time
}

// New creates a Tracker. forwarder may be nil, in which case views are only kept locally.
func New(sessions SessionResolver, log Appender, forwarder RecordForwarder, options ...func(*Tracker) error) (*Tracker, error) {
	if sessions == nil || log == nil {
		return nil, fmt.Errorf("tracker needs a session resolver and an activity log")
	}

	tracker := &Tracker{
		sessions:  sessions,
		log:       log,
		forwarder: forwarder,
		logger:    slog.Default(),
		now:       time.Now,
	}

	for _, option := range options {
		if err := option(tracker); err != nil {
			return nil, fmt.Errorf("applying option on tracker : %w", err)
		}
	}
	return tracker, nil
}

// WithLogger sets the tracker logger.
func WithLogger(logger *slog.Logger) func(*Tracker) error {
	return func(tracker *Tracker) error {
		if logger != nil {
			tracker.logger = logger
		}
		return nil
	}
}

// WithClock sets the function used to stamp records.
func WithClock(now func() time.Time) func(*Tracker) error {
	return func(tracker *Tracker) error {
		if now == nil {
			return fmt.Errorf("clock cannot be nil")
		}
		tracker.now = now
		return nil
	}
}

// TrackView records a view of path.
// Without a session identity it does nothing. Every call creates a new record,
// repeated views of the same path are all kept. The local append completes
// before TrackView returns; the remote send does not.
func (tracker *Tracker) TrackView(path string, attributes map[string]any) {
	sessionID := tracker.sessions.GetOrCreate()
	if sessionID == "" {
		tracker.logger.Debug("no session id, view not tracked", "path", path)
		return
	}

	record := domain.NewActivityRecord(sessionID, path, attributes, tracker.now())
	tracker.log.Append(record)

	if tracker.forwarder != nil {
		tracker.forwarder.Forward(record)
	}
}
