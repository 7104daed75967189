// Package explorer wires the client-side activity tracking and refresh coordination
// of the catalog explorer. It is decoupled from any user interface and provides the
// operations a view needs: recording page views, reading remote resources through a
// shared cache and refreshing them on demand.
//
// The core functionality includes:
//   - Session identity persisted on the local machine
//   - Durable, bounded activity log mirrored to the remote store
//   - Coalescing cache of remote documents with invalidation
//   - Refresh coordinators for navigation, category and product resources
//   - SQLite storage for the session, the activity log and diagnostics
package explorer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/tfkr-ae/explorer/api"
	"github.com/tfkr-ae/explorer/cache"
	"github.com/tfkr-ae/explorer/core"
	"github.com/tfkr-ae/explorer/domain"
	"github.com/tfkr-ae/explorer/history"
	"github.com/tfkr-ae/explorer/refresh"
	"github.com/tfkr-ae/explorer/session"
	"github.com/tfkr-ae/explorer/tracker"
)

// closeTimeout bounds how long Close waits for pending activity records to reach the remote store.
const closeTimeout = 2 * time.Second

// ErrClosed is returned by operations invoked after Close.
var ErrClosed = errors.New("explorer is closed")

// Repository defines the methods consumed by the explorer to interact with the SQLite backend.
type Repository interface {
	domain.StorageRepository
	domain.LogRepository
	Close() error
}

// Explorer is the central coordinator of the client. It owns the session, the activity log,
// the resource cache and the refresh coordinators, and records diagnostics through DBWriteChannel.
type Explorer struct {
	ConfigDir      string                      // The configuration directory holding config.yaml and the database
	Config         *Config                     // The explorer configuration
	Repo           Repository                  // DB Repository Interface, nil keeps everything in memory
	Logger         *slog.Logger                // Structured logger shared by every component
	API            *api.Client                 // Client of the remote catalog service
	Sessions       *session.Manager            // Session identity manager
	History        *history.Log                // Durable activity log
	Forwarder      *tracker.Forwarder          // Fire-and-forget sync of activity records
	Tracker        *tracker.Tracker            // Page view tracker
	Cache          *cache.Cache                // Reactive cache of remote resources
	Refreshers     *refresh.Registry           // One refresh coordinator per resource
	DBWriteChannel chan *domain.Log            // DB Write Channel
	OnLog          func(log *domain.Log) error // Function to be ran on each diagnostic entry

	cacheOptions []func(*cache.Cache) error
	writerDone   chan struct{}

	mu        sync.RWMutex
	closed    bool
	closeOnce sync.Once
	closeErr  error
}

// New creates a new Explorer, applies the provided options and wires every component
// that was not supplied by an option. Missing configuration falls back to DefaultConfig.
// The repository is closed if New fails.
func New(options ...func(*Explorer) error) (*Explorer, error) {
	explorer := &Explorer{
		Logger:         slog.Default(),
		DBWriteChannel: make(chan *domain.Log, 64),
		writerDone:     make(chan struct{}),
	}

	err := explorer.WithOptions(options...)
	if err == nil {
		err = explorer.wire()
	}
	if err != nil {
		if explorer.Repo != nil {
			explorer.Repo.Close()
		}
		return nil, err
	}

	go explorer.WriteToDB()
	return explorer, nil
}

// WithOptions applies a series of configuration functions to the explorer instance.
func (explorer *Explorer) WithOptions(options ...func(*Explorer) error) error {
	for _, option := range options {
		err := option(explorer)
		if err != nil {
			return fmt.Errorf("applying option on explorer : %w", err)
		}
	}
	return nil
}

func (explorer *Explorer) wire() error {
	if explorer.Config == nil {
		explorer.Config = DefaultConfig()
	}
	cfg := explorer.Config

	if explorer.API == nil {
		client, err := api.New(cfg.APIURL,
			api.WithTimeout(cfg.RequestTimeout),
			api.WithLogger(explorer.Logger),
			api.WithUserAgent(cfg.UserAgent),
		)
		if err != nil {
			return fmt.Errorf("creating api client : %w", err)
		}
		explorer.API = client
	}

	var store domain.StorageRepository
	if explorer.Repo != nil {
		store = explorer.Repo
	}

	sessions, err := session.NewManager(store, session.WithLogger(explorer.Logger))
	if err != nil {
		return err
	}
	explorer.Sessions = sessions

	activity, err := history.New(store,
		history.WithLogger(explorer.Logger),
		history.WithLimit(cfg.HistoryLimit),
	)
	if err != nil {
		return err
	}
	explorer.History = activity

	forwarder, err := tracker.NewForwarder(explorer.API,
		tracker.WithForwarderLogger(explorer.Logger),
		tracker.WithForwardTimeout(cfg.RequestTimeout),
		tracker.WithErrorHandler(explorer.forwardFailed),
	)
	if err != nil {
		return err
	}
	explorer.Forwarder = forwarder

	views, err := tracker.New(sessions, activity, forwarder, tracker.WithLogger(explorer.Logger))
	if err != nil {
		return err
	}
	explorer.Tracker = views

	cacheOptions := []func(*cache.Cache) error{
		cache.WithLogger(explorer.Logger),
		cache.WithDedupingInterval(cfg.DedupingInterval),
		cache.WithFetchTimeout(cfg.RequestTimeout),
		cache.WithErrorHandler(explorer.fetchFailed),
	}
	resources, err := cache.New(explorer.API, append(cacheOptions, explorer.cacheOptions...)...)
	if err != nil {
		return err
	}
	explorer.Cache = resources

	registry, err := refresh.NewRegistry(explorer.API, resources,
		refresh.WithLogger(explorer.Logger),
		refresh.WithTimeout(cfg.RequestTimeout),
		refresh.WithErrorHandler(explorer.refreshFailed),
	)
	if err != nil {
		resources.Close()
		return err
	}
	explorer.Refreshers = registry
	return nil
}

// TrackView records that the visitor viewed path. See tracker.Tracker.TrackView.
func (explorer *Explorer) TrackView(path string, attributes map[string]any) {
	explorer.Tracker.TrackView(path, attributes)
}

// SessionID returns the visitor's session identity, creating it on first use.
func (explorer *Explorer) SessionID() string {
	return explorer.Sessions.GetOrCreate()
}

// Records returns the local activity log, newest first.
func (explorer *Explorer) Records() []domain.ActivityRecord {
	return explorer.History.Records()
}

// Subscribe registers interest in a resource path. The caller must Close the subscription.
func (explorer *Explorer) Subscribe(key string) *cache.Subscription {
	return explorer.Cache.Subscribe(key)
}

// Get returns the current snapshot of a resource path, fetching it if needed.
func (explorer *Explorer) Get(ctx context.Context, key string) (cache.Snapshot, error) {
	return explorer.Cache.Get(ctx, key)
}

// Invalidate marks a resource path stale and revalidates it.
func (explorer *Explorer) Invalidate(key string) {
	explorer.Cache.Invalidate(key)
}

// NavigationRefresher returns the refresh coordinator of the navigation list.
func (explorer *Explorer) NavigationRefresher() (*refresh.Coordinator, error) {
	return explorer.Refreshers.Navigation()
}

// CategoryRefresher returns the refresh coordinator of a category.
func (explorer *Explorer) CategoryRefresher(categoryID, slug string) (*refresh.Coordinator, error) {
	return explorer.Refreshers.Category(categoryID, slug)
}

// ProductRefresher returns the refresh coordinator of a product.
func (explorer *Explorer) ProductRefresher(productID string) (*refresh.Coordinator, error) {
	return explorer.Refreshers.Product(productID)
}

// Logs returns the most recent diagnostics, newest first. A limit <= 0 returns all of them.
func (explorer *Explorer) Logs(limit int) ([]*domain.Log, error) {
	if explorer.Repo == nil {
		return nil, errors.New("no repository configured")
	}
	logs, err := explorer.Repo.GetLogs(limit)
	if err != nil {
		return nil, fmt.Errorf("getting logs : %w", err)
	}
	return logs, nil
}

// WriteToDB persists every entry received on DBWriteChannel until the channel is closed.
func (explorer *Explorer) WriteToDB() {
	defer close(explorer.writerDone)

	for log := range explorer.DBWriteChannel {
		if explorer.Repo != nil {
			if err := explorer.Repo.InsertLog(log); err != nil {
				explorer.Logger.Error("inserting log", "error", err)
			}
		}
		if explorer.OnLog != nil {
			if err := explorer.OnLog(log); err != nil {
				explorer.Logger.Error("log handler", "error", err)
			}
		}
	}
}

// WriteLog records a diagnostic entry. The entry is handed to the DB writer without
// blocking and is dropped if the writer is behind.
func (explorer *Explorer) WriteLog(level string, message string, options ...func(log *domain.Log) error) error {
	switch level {
	case "DEBUG":
	case "INFO":
	case "WARN":
	case "ERROR":
	default:
		return fmt.Errorf("level should be either: DEBUG, INFO, WARN, ERROR")
	}

	id, err := uuid.NewV7()
	if err != nil {
		return fmt.Errorf("generating new uuid : %w", err)
	}
	log := &domain.Log{
		ID:        id,
		Level:     level,
		Message:   message,
		Timestamp: time.Now(),
	}
	for _, option := range options {
		err := option(log)
		if err != nil {
			return fmt.Errorf("applying log option : %w", err)
		}
	}

	explorer.mu.RLock()
	defer explorer.mu.RUnlock()
	if explorer.closed {
		return ErrClosed
	}

	select {
	case explorer.DBWriteChannel <- log:
	default:
		explorer.Logger.Warn("dropping log entry, writer is behind", "message", message)
	}
	return nil
}

// Close waits briefly for pending activity records, stops the cache, flushes
// the diagnostics and closes the repository. It is safe to call more than once.
func (explorer *Explorer) Close() error {
	explorer.closeOnce.Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), closeTimeout)
		defer cancel()
		if err := explorer.Forwarder.Wait(ctx); err != nil {
			explorer.Logger.Warn("waiting for activity sync", "error", err)
		}

		explorer.Cache.Close()

		explorer.mu.Lock()
		explorer.closed = true
		close(explorer.DBWriteChannel)
		explorer.mu.Unlock()
		<-explorer.writerDone

		if explorer.Repo != nil {
			if err := explorer.Repo.Close(); err != nil {
				explorer.closeErr = fmt.Errorf("closing explorer : %w", err)
			}
		}
	})
	return explorer.closeErr
}

func (explorer *Explorer) forwardFailed(record domain.ActivityRecord, err error) {
	explorer.WriteLog("WARN", "forwarding activity record",
		core.LogWithError(err),
		core.LogWithSessionID(record.SessionID),
		core.LogWithResource(record.Path),
	)
}

func (explorer *Explorer) fetchFailed(key string, err error) {
	explorer.WriteLog("WARN", "fetching resource",
		core.LogWithError(err),
		core.LogWithResource(key),
	)
}

func (explorer *Explorer) refreshFailed(key string, err error) {
	explorer.WriteLog("ERROR", "refreshing resource",
		core.LogWithError(err),
		core.LogWithResource(key),
	)
}
