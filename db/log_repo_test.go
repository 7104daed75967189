package db

import (
	"reflect"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/tfkr-ae/explorer/domain"
)

func TestLogRepo_GetLogs(t *testing.T) {
	t.Run("should return 0 logs if there are none", func(t *testing.T) {
		repo, teardown := setupTestDB(t)
		defer teardown()

		got, err := repo.GetLogs(0)
		if err != nil {
			t.Fatalf("\nwanted:\nnil\ngot:\n%v", err)
		}

		if len(got) != 0 {
			t.Fatalf("\nwanted:\n0\ngot:\n%d", len(got))
		}
	})

	t.Run("should return the entries newest first with optional fields", func(t *testing.T) {
		repo, teardown := setupTestDB(t)
		defer teardown()

		fixedTime := time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)
		sessionID := "4b7c2a8e-8f55-4a36-9d8e-2f1f6a7b8c9d"
		resource := "/products/42"

		logs := []*domain.Log{
			{
				ID:        uuid.MustParse("00000000-0000-0000-0000-000000000001"),
				Timestamp: fixedTime,
				Level:     "INFO",
				Message:   "Log message 1",
				Context:   make(map[string]any),
			},
			{
				ID:        uuid.MustParse("00000000-0000-0000-0000-000000000002"),
				Timestamp: fixedTime.Add(time.Second),
				Level:     "ERROR",
				Message:   "refresh failed",
				Context:   map[string]any{"status": "500 Internal Server Error"},
				SessionID: &sessionID,
				Resource:  &resource,
			},
		}

		for _, logEntry := range logs {
			if err := repo.InsertLog(logEntry); err != nil {
				t.Fatalf("inserting log: %v", err)
			}
		}

		got, err := repo.GetLogs(0)
		if err != nil {
			t.Fatalf("\nwanted:\nnil\ngot:\n%v", err)
		}

		want := []*domain.Log{logs[1], logs[0]}
		if !reflect.DeepEqual(want, got) {
			t.Fatalf("\nwanted:\n%v\ngot:\n%v", want, got)
		}
	})

	t.Run("should honour the limit", func(t *testing.T) {
		repo, teardown := setupTestDB(t)
		defer teardown()

		base := time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)
		for i := range 5 {
			err := repo.InsertLog(&domain.Log{
				ID:        uuid.New(),
				Timestamp: base.Add(time.Duration(i) * time.Minute),
				Level:     "WARN",
				Message:   "sync failed",
			})
			if err != nil {
				t.Fatalf("inserting log: %v", err)
			}
		}

		got, err := repo.GetLogs(2)
		if err != nil {
			t.Fatalf("\nwanted:\nnil\ngot:\n%v", err)
		}
		if len(got) != 2 {
			t.Fatalf("\nwanted:\n2\ngot:\n%d", len(got))
		}
		if !got[0].Timestamp.Equal(base.Add(4 * time.Minute)) {
			t.Fatalf("\nwanted:\n%v\ngot:\n%v", base.Add(4*time.Minute), got[0].Timestamp)
		}
	})

	t.Run("should insert a log with nil context", func(t *testing.T) {
		repo, teardown := setupTestDB(t)
		defer teardown()

		log := &domain.Log{
			ID:        uuid.MustParse("00000000-0000-0000-0000-000000000001"),
			Timestamp: time.Now().UTC(),
			Level:     "INFO",
			Message:   "Log message with nil context",
			Context:   nil,
		}

		if err := repo.InsertLog(log); err != nil {
			t.Fatalf("inserting log: %v", err)
		}

		got, err := repo.GetLogs(0)
		if err != nil {
			t.Fatalf("\nwanted:\nnil\ngot:\n%v", err)
		}

		if len(got) != 1 {
			t.Fatalf("\nwanted:\n1\ngot:\n%d", len(got))
		}

		if got[0].Context == nil {
			t.Fatalf("\nwanted:\nnon-nil empty map\ngot:\nnil")
		}

		if got[0].SessionID != nil || got[0].Resource != nil {
			t.Fatalf("\nwanted:\nnil optional fields\ngot:\n%v %v", got[0].SessionID, got[0].Resource)
		}
	})
}

func TestLogRepo_CountLogs(t *testing.T) {
	t.Run("should count inserted logs", func(t *testing.T) {
		repo, teardown := setupTestDB(t)
		defer teardown()

		for range 3 {
			err := repo.InsertLog(&domain.Log{
				ID:        uuid.New(),
				Timestamp: time.Now().UTC(),
				Level:     "ERROR",
				Message:   "view history sync failed",
			})
			if err != nil {
				t.Fatalf("inserting log: %v", err)
			}
		}

		got, err := repo.CountLogs()
		if err != nil {
			t.Fatalf("\nwanted:\nnil\ngot:\n%v", err)
		}
		if got != 3 {
			t.Fatalf("\nwanted:\n3\ngot:\n%d", got)
		}
	})
}
