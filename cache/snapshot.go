package cache

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// ErrNoData is returned by Snapshot.Decode when nothing has been fetched yet.
var ErrNoData = errors.New("no data cached for key")

// Snapshot is an immutable view of one cache entry.
type Snapshot struct {
	Key          string          // Resource path the entry belongs to.
	Data         json.RawMessage // Last successfully fetched document, nil until the first success.
	Err          error           // Error of the last fetch, nil after a success.
	IsLoading    bool            // A fetch is running and there is no data to show yet.
	IsValidating bool            // A fetch is running, with or without data.
	FetchedAt    time.Time       // Completion time of the last applied fetch.
	Version      uint64          // Increases every time a fetch result or a mutation is applied.
}

// HasData reports whether the snapshot holds a document.
func (s Snapshot) HasData() bool {
	return len(s.Data) > 0
}

// Decode unmarshals the cached document into v.
func (s Snapshot) Decode(v any) error {
	if !s.HasData() {
		return fmt.Errorf("decoding %s : %w", s.Key, ErrNoData)
	}
	if err := json.Unmarshal(s.Data, v); err != nil {
		return fmt.Errorf("decoding %s : %w", s.Key, err)
	}
	return nil
}
