package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/tfkr-ae/explorer/domain"
	"gopkg.in/yaml.v3"
)

// OutputFormatter writes command results as text, JSON or YAML.
type OutputFormatter struct {
	Format string
	Writer io.Writer
}

// Print writes data in the configured format. text renders the text format.
func (f *OutputFormatter) Print(data any, text func(w io.Writer) error) error {
	switch f.Format {
	case "json":
		encoder := json.NewEncoder(f.Writer)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(data); err != nil {
			return fmt.Errorf("encoding json output : %w", err)
		}
		return nil
	case "yaml":
		encoder := yaml.NewEncoder(f.Writer)
		encoder.SetIndent(2)
		if err := encoder.Encode(data); err != nil {
			return fmt.Errorf("encoding yaml output : %w", err)
		}
		return encoder.Close()
	default:
		return text(f.Writer)
	}
}

// historyEntry is the output form of an activity record.
type historyEntry struct {
	SessionID  string         `json:"session_id" yaml:"session_id"`
	Path       string         `json:"path" yaml:"path"`
	Attributes map[string]any `json:"attributes" yaml:"attributes"`
	OccurredAt *time.Time     `json:"occurred_at,omitempty" yaml:"occurred_at,omitempty"`
}

func newHistoryEntry(record domain.ActivityRecord) historyEntry {
	entry := historyEntry{
		SessionID:  record.SessionID,
		Path:       record.Path,
		Attributes: record.Attributes(),
	}
	if !record.OccurredAt.IsZero() {
		occurredAt := record.OccurredAt
		entry.OccurredAt = &occurredAt
	}
	return entry
}

// logEntry is the output form of a persisted diagnostic.
type logEntry struct {
	ID        string         `json:"id" yaml:"id"`
	Timestamp time.Time      `json:"timestamp" yaml:"timestamp"`
	Level     string         `json:"level" yaml:"level"`
	Message   string         `json:"message" yaml:"message"`
	Context   map[string]any `json:"context,omitempty" yaml:"context,omitempty"`
	SessionID string         `json:"session_id,omitempty" yaml:"session_id,omitempty"`
	Resource  string         `json:"resource,omitempty" yaml:"resource,omitempty"`
}

func newLogEntry(log *domain.Log) logEntry {
	entry := logEntry{
		ID:        log.ID.String(),
		Timestamp: log.Timestamp,
		Level:     log.Level,
		Message:   log.Message,
		Context:   log.Context,
	}
	if log.SessionID != nil {
		entry.SessionID = *log.SessionID
	}
	if log.Resource != nil {
		entry.Resource = *log.Resource
	}
	return entry
}
