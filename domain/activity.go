package domain

import (
	"encoding/json"
	"fmt"
	"maps"
	"time"
)

// ActivityRecord represents one navigation or milestone event (viewing the home page,
// a category or a product), stamped with the visitor's session identity.
// A record is immutable once created: the constructor and the accessors copy the attributes.
type ActivityRecord struct {
	SessionID  string         // Session identity of the visitor that produced the event.
	Path       string         // Route that was viewed, e.g. "/categories/fiction".
	OccurredAt time.Time      // The time at which the record was appended.
	attributes map[string]any // Scalar attributes describing the view (categoryId, productTitle, ...).
}

// NewActivityRecord creates a record for path with a private copy of attributes.
// A "path" attribute is kept and overrides the route in PathJSON, the page stays path.
func NewActivityRecord(sessionID, path string, attributes map[string]any, occurredAt time.Time) ActivityRecord {
	attrs := make(map[string]any, len(attributes))
	maps.Copy(attrs, attributes)

	return ActivityRecord{
		SessionID:  sessionID,
		Path:       path,
		OccurredAt: occurredAt,
		attributes: attrs,
	}
}

// Attributes returns a copy of the record's attributes.
func (r ActivityRecord) Attributes() map[string]any {
	attrs := make(map[string]any, len(r.attributes))
	maps.Copy(attrs, r.attributes)
	return attrs
}

// Attribute returns a single attribute value.
func (r ActivityRecord) Attribute(name string) (any, bool) {
	value, ok := r.attributes[name]
	return value, ok
}

// PathJSON returns the "pathJson" object sent to the remote store: the path
// merged with the attributes, attributes winning on conflict.
func (r ActivityRecord) PathJSON() map[string]any {
	pathJSON := make(map[string]any, len(r.attributes)+1)
	pathJSON["path"] = r.Path
	maps.Copy(pathJSON, r.attributes)
	return pathJSON
}

// Payload returns the body accepted by the remote view-history endpoint.
func (r ActivityRecord) Payload() ViewHistoryPayload {
	return ViewHistoryPayload{
		SessionID: r.SessionID,
		PathJSON:  r.PathJSON(),
		Page:      r.Path,
	}
}

// ViewHistoryPayload is the wire format of POST /view-history.
type ViewHistoryPayload struct {
	SessionID string         `json:"sessionId"`
	PathJSON  map[string]any `json:"pathJson"`
	Page      string         `json:"page"`
}

// storedActivityRecord is the format of a record inside the persisted activity log.
// It is the remote payload plus the append time.
type storedActivityRecord struct {
	SessionID  string         `json:"sessionId"`
	PathJSON   map[string]any `json:"pathJson"`
	Page       string         `json:"page"`
	OccurredAt time.Time      `json:"occurredAt,omitzero"`
}

// MarshalJSON implements the json.Marshaler interface.
func (r ActivityRecord) MarshalJSON() ([]byte, error) {
	return json.Marshal(storedActivityRecord{
		SessionID:  r.SessionID,
		PathJSON:   r.PathJSON(),
		Page:       r.Path,
		OccurredAt: r.OccurredAt,
	})
}

// UnmarshalJSON implements the json.Unmarshaler interface.
// The path is taken from page and falls back to pathJson.path. A pathJson.path
// that differs from the page is kept as an attribute.
func (r *ActivityRecord) UnmarshalJSON(data []byte) error {
	var stored storedActivityRecord
	if err := json.Unmarshal(data, &stored); err != nil {
		return fmt.Errorf("unmarshalling activity record : %w", err)
	}

	path := stored.Page
	if p, ok := stored.PathJSON["path"].(string); ok && path == "" {
		path = p
	}
	if p, ok := stored.PathJSON["path"].(string); ok && p == path {
		delete(stored.PathJSON, "path")
	}

	*r = NewActivityRecord(stored.SessionID, path, stored.PathJSON, stored.OccurredAt)
	return nil
}
