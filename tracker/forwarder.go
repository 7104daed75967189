package tracker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/tfkr-ae/explorer/domain"
)

// DefaultForwardTimeout bounds a single remote send.
const DefaultForwardTimeout = 30 * time.Second

// Sender delivers a view-history payload to the remote store.
type Sender interface {
	PostViewHistory(ctx context.Context, payload domain.ViewHistoryPayload) error
}

// Forwarder sends activity records to the remote store without blocking the caller.
type Forwarder struct {
	sender  Sender
	logger  *slog.Logger
	timeout time.Duration
	onError func(record domain.ActivityRecord, err error)

	wg sync.WaitGroup
}

// NewForwarder creates a Forwarder that delivers through sender.
func NewForwarder(sender Sender, options ...func(*Forwarder) error) (*Forwarder, error) {
	if sender == nil {
		return nil, errors.New("forwarder needs a sender")
	}

	forwarder := &Forwarder{
		sender:  sender,
		logger:  slog.Default(),
		timeout: DefaultForwardTimeout,
	}

	for _, option := range options {
		if err := option(forwarder); err != nil {
			return nil, fmt.Errorf("applying option on forwarder : %w", err)
		}
	}
	return forwarder, nil
}

// WithForwarderLogger sets the logger used to report failed sends.
func WithForwarderLogger(logger *slog.Logger) func(*Forwarder) error {
	return func(forwarder *Forwarder) error {
		if logger != nil {
			forwarder.logger = logger
		}
		return nil
	}
}

// WithForwardTimeout bounds every send.
func WithForwardTimeout(timeout time.Duration) func(*Forwarder) error {
	return func(forwarder *Forwarder) error {
		if timeout <= 0 {
			return fmt.Errorf("forward timeout must be positive, got %s", timeout)
		}
		forwarder.timeout = timeout
		return nil
	}
}

// WithErrorHandler registers fn to receive every failed send after it has been logged.
func WithErrorHandler(fn func(record domain.ActivityRecord, err error)) func(*Forwarder) error {
	return func(forwarder *Forwarder) error {
		forwarder.onError = fn
		return nil
	}
}

// Forward sends record in a new goroutine and returns immediately.
// The outcome is never reported to the caller.
func (forwarder *Forwarder) Forward(record domain.ActivityRecord) {
	forwarder.wg.Add(1)
	go func() {
		defer forwarder.wg.Done()

		ctx, cancel := context.WithTimeout(context.Background(), forwarder.timeout)
		defer cancel()

		err := forwarder.sender.PostViewHistory(ctx, record.Payload())
		if err == nil {
			return
		}

		forwarder.logger.Warn("forwarding view history", "error", err, "path", record.Path, "session_id", record.SessionID)
		if forwarder.onError != nil {
			forwarder.onError(record, err)
		}
	}()
}

// Wait blocks until every send started so far has finished or ctx is done.
func (forwarder *Forwarder) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		forwarder.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("waiting for pending forwards : %w", ctx.Err())
	}
}
