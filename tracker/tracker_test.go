package tracker

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/tfkr-ae/explorer/api"
	"github.com/tfkr-ae/explorer/domain"
	"github.com/tfkr-ae/explorer/history"
)

type staticSession string

func (s staticSession) GetOrCreate() string { return string(s) }

// countingForwarder records forwarded records without sending them anywhere.
type countingForwarder struct {
	mu      sync.Mutex
	records []domain.ActivityRecord
}

func (f *countingForwarder) Forward(record domain.ActivityRecord) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.records = append(f.records, record)
}

// failingStore fails every storage operation.
type failingStore struct{}

func (failingStore) GetValue(string) (string, error) { return "", errForced }
func (failingStore) SetValue(string, string) error   { return errForced }
func (failingStore) DeleteValue(string) error        { return errForced }

func TestTracker_TrackView(t *testing.T) {
	fixedTime := time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return fixedTime }

	t.Run("should append the record first in the log and forward it", func(t *testing.T) {
		log, _ := history.New(nil)
		forwarder := &countingForwarder{}
		tracker, err := New(staticSession("sid"), log, forwarder, WithClock(clock))
		if err != nil {
			t.Fatalf("\nwanted:\nnil\ngot:\n%v", err)
		}

		tracker.TrackView("/categories/fiction", map[string]any{"categoryId": 7})

		records := log.Records()
		if len(records) != 1 {
			t.Fatalf("\nwanted:\n1\ngot:\n%d", len(records))
		}

		got := records[0]
		if got.Path != "/categories/fiction" || got.SessionID != "sid" || !got.OccurredAt.Equal(fixedTime) {
			t.Fatalf("\nwanted:\n/categories/fiction sid %v\ngot:\n%v", fixedTime, got)
		}
		if id, _ := got.Attribute("categoryId"); id != 7 {
			t.Fatalf("\nwanted:\n7\ngot:\n%v", id)
		}

		if len(forwarder.records) != 1 || forwarder.records[0].Path != got.Path {
			t.Fatalf("\nwanted:\n1 forwarded record\ngot:\n%v", forwarder.records)
		}
	})

	t.Run("should do nothing without a session id", func(t *testing.T) {
		log, _ := history.New(nil)
		forwarder := &countingForwarder{}
		tracker, _ := New(staticSession(""), log, forwarder)

		tracker.TrackView("/", map[string]any{"page": "home"})

		if log.Len() != 0 || len(forwarder.records) != 0 {
			t.Fatalf("\nwanted:\nno records\ngot:\n%d logged %d forwarded", log.Len(), len(forwarder.records))
		}
	})

	t.Run("should record repeated views of the same path", func(t *testing.T) {
		log, _ := history.New(nil)
		tracker, _ := New(staticSession("sid"), log, nil)

		tracker.TrackView("/products/42", nil)
		tracker.TrackView("/products/42", nil)

		if log.Len() != 2 {
			t.Fatalf("\nwanted:\n2\ngot:\n%d", log.Len())
		}
	})

	t.Run("should log views in call order", func(t *testing.T) {
		log, _ := history.New(nil)
		tracker, _ := New(staticSession("sid"), log, nil)

		tracker.TrackView("/", nil)
		tracker.TrackView("/categories/fiction", nil)
		tracker.TrackView("/products/42", nil)

		records := log.Records()
		want := []string{"/products/42", "/categories/fiction", "/"}
		for i, path := range want {
			if records[i].Path != path {
				t.Fatalf("\nwanted:\n%s\ngot:\n%s", path, records[i].Path)
			}
		}
	})

	t.Run("should not panic or block when storage is unavailable", func(t *testing.T) {
		log, _ := history.New(failingStore{})
		forwarder := &countingForwarder{}
		tracker, _ := New(staticSession("sid"), log, forwarder)

		done := make(chan struct{})
		go func() {
			defer close(done)
			tracker.TrackView("/", map[string]any{"page": "home"})
		}()

		select {
		case <-done:
		case <-time.After(time.Second):
			t.Fatalf("\nwanted:\nTrackView to return\ngot:\nblocked")
		}

		if log.Len() != 1 {
			t.Fatalf("\nwanted:\n1 in-memory record\ngot:\n%d", log.Len())
		}
	})

	t.Run("should absorb a 500 from the remote store", func(t *testing.T) {
		var mu sync.Mutex
		var posts int
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			mu.Lock()
			posts++
			mu.Unlock()
			http.Error(w, `{"message":"boom"}`, http.StatusInternalServerError)
		}))
		defer server.Close()

		client, err := api.New(server.URL)
		if err != nil {
			t.Fatalf("\nwanted:\nnil\ngot:\n%v", err)
		}

		failures := make(chan error, 1)
		forwarder, _ := NewForwarder(client, WithErrorHandler(func(record domain.ActivityRecord, err error) {
			failures <- err
		}))

		log, _ := history.New(nil)
		tracker, _ := New(staticSession("sid"), log, forwarder)

		tracker.TrackView("/products/42", map[string]any{"productId": "42"})

		if err := forwarder.Wait(context.Background()); err != nil {
			t.Fatalf("\nwanted:\nnil\ngot:\n%v", err)
		}

		select {
		case err := <-failures:
			if err == nil {
				t.Fatalf("\nwanted:\na status error\ngot:\nnil")
			}
		default:
			t.Fatalf("\nwanted:\na recorded failure\ngot:\nnone")
		}

		if log.Len() != 1 {
			t.Fatalf("\nwanted:\n1\ngot:\n%d", log.Len())
		}

		mu.Lock()
		defer mu.Unlock()
		if posts != 1 {
			t.Fatalf("\nwanted:\n1 post\ngot:\n%d", posts)
		}
	})
}

func TestNew(t *testing.T) {
	t.Run("should require a session resolver and a log", func(t *testing.T) {
		if _, err := New(nil, nil, nil); err == nil {
			t.Fatalf("\nwanted:\nerror\ngot:\nnil")
		}
	})
}
