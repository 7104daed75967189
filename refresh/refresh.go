// Package refresh drives user-triggered refreshes of remote resources.
//
// A Coordinator belongs to one resource instance. It calls the backend
// mutation that rescrapes the resource and, once that succeeds, invalidates the
// resource's cache key so the fresh data is fetched and broadcast. While a
// mutation runs, further refresh requests for the same resource are rejected.
package refresh

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// DefaultTimeout bounds a mutation. A mutation that exceeds it counts as failed.
const DefaultTimeout = 30 * time.Second

// ErrInFlight is returned by Refresh when a refresh of the same resource is already running.
var ErrInFlight = errors.New("refresh already in flight")

// State is the refresh state of a resource.
type State int32

const (
	Idle State = iota
	InFlight
	Succeeded
	Failed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case InFlight:
		return "in flight"
	case Succeeded:
		return "succeeded"
	case Failed:
		return "failed"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}

// Mutation asks the backend to refresh a resource.
type Mutation func(ctx context.Context) error

// Invalidator is the part of the cache a coordinator needs.
type Invalidator interface {
	Invalidate(key string)
}

// Coordinator serializes refreshes of one resource.
type Coordinator struct {
	key     string
	mutate  Mutation
	cache   Invalidator
	timeout time.Duration
	logger  *slog.Logger
	onError func(key string, err error)

	state atomic.Int32

	mu      sync.Mutex
	lastErr error
	hooks   []func(State)
}

// New creates a Coordinator that runs mutate and then invalidates key in cache.
func New(key string, mutate Mutation, cache Invalidator, options ...func(*Coordinator) error) (*Coordinator, error) {
	if mutate == nil || cache == nil {
		return nil, fmt.Errorf("refresh of %s needs a mutation and a cache", key)
	}

	coordinator := &Coordinator{
		key:     key,
		mutate:  mutate,
		cache:   cache,
		timeout: DefaultTimeout,
		logger:  slog.Default(),
	}

	for _, option := range options {
		if err := option(coordinator); err != nil {
			return nil, fmt.Errorf("applying option on refresh of %s : %w", key, err)
		}
	}
	return coordinator, nil
}

// WithLogger sets the coordinator logger.
func WithLogger(logger *slog.Logger) func(*Coordinator) error {
	return func(coordinator *Coordinator) error {
		if logger != nil {
			coordinator.logger = logger
		}
		return nil
	}
}

// WithTimeout bounds every mutation.
func WithTimeout(timeout time.Duration) func(*Coordinator) error {
	return func(coordinator *Coordinator) error {
		if timeout <= 0 {
			return fmt.Errorf("refresh timeout must be positive, got %s", timeout)
		}
		coordinator.timeout = timeout
		return nil
	}
}

// WithErrorHandler registers fn to receive every failed mutation after it has been logged.
func WithErrorHandler(fn func(key string, err error)) func(*Coordinator) error {
	return func(coordinator *Coordinator) error {
		coordinator.onError = fn
		return nil
	}
}

// WithStateHook registers fn to receive every state transition.
func WithStateHook(fn func(State)) func(*Coordinator) error {
	return func(coordinator *Coordinator) error {
		if fn != nil {
			coordinator.hooks = append(coordinator.hooks, fn)
		}
		return nil
	}
}

// Key returns the cache key the coordinator invalidates.
func (coordinator *Coordinator) Key() string {
	return coordinator.key
}

// State returns the current state. The refresh action should be disabled while it is InFlight.
func (coordinator *Coordinator) State() State {
	return State(coordinator.state.Load())
}

// LastError returns the error of the last refresh, or nil if it succeeded.
func (coordinator *Coordinator) LastError() error {
	coordinator.mu.Lock()
	defer coordinator.mu.Unlock()
	return coordinator.lastErr
}

// OnStateChange registers fn to receive every state transition.
func (coordinator *Coordinator) OnStateChange(fn func(State)) {
	coordinator.mu.Lock()
	defer coordinator.mu.Unlock()
	coordinator.hooks = append(coordinator.hooks, fn)
}

// Refresh runs the mutation and, on success, invalidates the cache key.
// It returns ErrInFlight without doing anything when a refresh is already running.
// On failure the cache is left untouched and the mutation error is returned.
// There is no cancellation: the timeout is the only bound on the mutation.
func (coordinator *Coordinator) Refresh(ctx context.Context) error {
	if !coordinator.state.CompareAndSwap(int32(Idle), int32(InFlight)) {
		return ErrInFlight
	}
	coordinator.notify(InFlight)

	mutationCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), coordinator.timeout)
	defer cancel()

	err := coordinator.mutate(mutationCtx)

	coordinator.mu.Lock()
	coordinator.lastErr = err
	coordinator.mu.Unlock()

	if err != nil {
		coordinator.logger.Warn("refreshing resource", "key", coordinator.key, "error", err)
		if coordinator.onError != nil {
			coordinator.onError(coordinator.key, err)
		}
		coordinator.finish(Failed)
		return fmt.Errorf("refreshing %s : %w", coordinator.key, err)
	}

	coordinator.cache.Invalidate(coordinator.key)
	coordinator.logger.Debug("refreshed resource", "key", coordinator.key)
	coordinator.finish(Succeeded)
	return nil
}

// finish publishes the outcome and returns to Idle.
func (coordinator *Coordinator) finish(outcome State) {
	coordinator.state.Store(int32(outcome))
	coordinator.notify(outcome)
	coordinator.state.Store(int32(Idle))
	coordinator.notify(Idle)
}

func (coordinator *Coordinator) notify(state State) {
	coordinator.mu.Lock()
	hooks := make([]func(State), len(coordinator.hooks))
	copy(hooks, coordinator.hooks)
	coordinator.mu.Unlock()

	for _, hook := range hooks {
		hook(state)
	}
}
