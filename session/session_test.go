package session

import (
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/tfkr-ae/explorer/domain"
)

var errForced = errors.New("forced error")

// memoryStore is a domain.StorageRepository with switchable failures.
type memoryStore struct {
	mu       sync.Mutex
	values   map[string]string
	getErr   error
	setErr   error
	setCalls int
}

func newMemoryStore() *memoryStore {
	return &memoryStore{values: make(map[string]string)}
}

func (s *memoryStore) GetValue(key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.getErr != nil {
		return "", s.getErr
	}
	value, ok := s.values[key]
	if !ok {
		return "", domain.ErrKeyNotFound
	}
	return value, nil
}

func (s *memoryStore) SetValue(key string, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.setCalls++
	if s.setErr != nil {
		return s.setErr
	}
	s.values[key] = value
	return nil
}

func (s *memoryStore) DeleteValue(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.values[key]; !ok {
		return domain.ErrKeyNotFound
	}
	delete(s.values, key)
	return nil
}

func TestManager_GetOrCreate(t *testing.T) {
	t.Run("should create a uuid on an empty store and return it again", func(t *testing.T) {
		store := newMemoryStore()
		manager, err := NewManager(store)
		if err != nil {
			t.Fatalf("\nwanted:\nnil\ngot:\n%v", err)
		}

		first := manager.GetOrCreate()
		if _, err := uuid.Parse(first); err != nil {
			t.Fatalf("\nwanted:\na uuid\ngot:\n%q", first)
		}

		second := manager.GetOrCreate()
		if first != second {
			t.Fatalf("\nwanted:\n%q\ngot:\n%q", first, second)
		}

		if store.values[StorageKey] != first {
			t.Fatalf("\nwanted:\n%q\ngot:\n%q", first, store.values[StorageKey])
		}

		if store.setCalls != 1 {
			t.Fatalf("\nwanted:\n1 storage write\ngot:\n%d", store.setCalls)
		}
	})

	t.Run("should return the stored identity unchanged from a new manager", func(t *testing.T) {
		store := newMemoryStore()
		store.values[StorageKey] = "existing-session"

		manager, _ := NewManager(store)
		got := manager.GetOrCreate()

		if got != "existing-session" {
			t.Fatalf("\nwanted:\n%q\ngot:\n%q", "existing-session", got)
		}
		if store.setCalls != 0 {
			t.Fatalf("\nwanted:\n0 storage writes\ngot:\n%d", store.setCalls)
		}
	})

	t.Run("should treat an empty stored value as absent", func(t *testing.T) {
		store := newMemoryStore()
		store.values[StorageKey] = ""

		manager, _ := NewManager(store, WithIDGenerator(func() (uuid.UUID, error) {
			return uuid.MustParse("6f1b0c55-5c7e-4d8a-9b1e-1f2a3b4c5d6e"), nil
		}))

		got := manager.GetOrCreate()
		if got != "6f1b0c55-5c7e-4d8a-9b1e-1f2a3b4c5d6e" {
			t.Fatalf("\nwanted:\n%q\ngot:\n%q", "6f1b0c55-5c7e-4d8a-9b1e-1f2a3b4c5d6e", got)
		}
	})

	t.Run("should return an empty identity when the store cannot be read", func(t *testing.T) {
		store := newMemoryStore()
		store.getErr = errForced

		manager, _ := NewManager(store)
		if got := manager.GetOrCreate(); got != "" {
			t.Fatalf("\nwanted:\nempty identity\ngot:\n%q", got)
		}
		if store.setCalls != 0 {
			t.Fatalf("\nwanted:\n0 storage writes\ngot:\n%d", store.setCalls)
		}
	})

	t.Run("should return an empty identity when the store cannot be written and recover later", func(t *testing.T) {
		store := newMemoryStore()
		store.setErr = errForced

		manager, _ := NewManager(store)
		if got := manager.GetOrCreate(); got != "" {
			t.Fatalf("\nwanted:\nempty identity\ngot:\n%q", got)
		}

		store.setErr = nil
		got := manager.GetOrCreate()
		if got == "" {
			t.Fatalf("\nwanted:\na new identity\ngot:\nempty")
		}
	})

	t.Run("should return an empty identity for a nil store", func(t *testing.T) {
		manager, _ := NewManager(nil)
		if got := manager.GetOrCreate(); got != "" {
			t.Fatalf("\nwanted:\nempty identity\ngot:\n%q", got)
		}
	})

	t.Run("should return an empty identity when the generator fails", func(t *testing.T) {
		manager, _ := NewManager(newMemoryStore(), WithIDGenerator(func() (uuid.UUID, error) {
			return uuid.Nil, errForced
		}))
		if got := manager.GetOrCreate(); got != "" {
			t.Fatalf("\nwanted:\nempty identity\ngot:\n%q", got)
		}
	})

	t.Run("should create exactly one identity under concurrent calls", func(t *testing.T) {
		store := newMemoryStore()
		manager, _ := NewManager(store)

		var wg sync.WaitGroup
		results := make([]string, 20)
		for i := range results {
			wg.Add(1)
			go func() {
				defer wg.Done()
				results[i] = manager.GetOrCreate()
			}()
		}
		wg.Wait()

		for _, got := range results {
			if got != results[0] {
				t.Fatalf("\nwanted:\n%q\ngot:\n%q", results[0], got)
			}
		}
		if store.setCalls != 1 {
			t.Fatalf("\nwanted:\n1 storage write\ngot:\n%d", store.setCalls)
		}
	})
}

func TestManager_Clear(t *testing.T) {
	t.Run("should create a new identity after clearing", func(t *testing.T) {
		store := newMemoryStore()
		manager, _ := NewManager(store)

		first := manager.GetOrCreate()
		if err := manager.Clear(); err != nil {
			t.Fatalf("\nwanted:\nnil\ngot:\n%v", err)
		}

		if _, ok := store.values[StorageKey]; ok {
			t.Fatalf("\nwanted:\nno stored identity\ngot:\n%q", store.values[StorageKey])
		}

		second := manager.GetOrCreate()
		if second == "" || second == first {
			t.Fatalf("\nwanted:\na new identity\ngot:\n%q", second)
		}
	})

	t.Run("should not fail when there is nothing to clear", func(t *testing.T) {
		manager, _ := NewManager(newMemoryStore())
		if err := manager.Clear(); err != nil {
			t.Fatalf("\nwanted:\nnil\ngot:\n%v", err)
		}
	})
}

func TestWithIDGenerator(t *testing.T) {
	t.Run("should reject a nil generator", func(t *testing.T) {
		_, err := NewManager(newMemoryStore(), WithIDGenerator(nil))
		if err == nil {
			t.Fatalf("\nwanted:\nerror\ngot:\nnil")
		}
	})
}
