// Package core provides option functions shared by the packages that record diagnostics.
// This file contains option functions for customizing log entries.
package core

import (
	"maps"

	"github.com/tfkr-ae/explorer/domain"
)

// LogWithContext is an option to add a context map to a log entry.
// Keys already present on the entry are overwritten.
func LogWithContext(context map[string]any) func(log *domain.Log) error {
	return func(log *domain.Log) error {
		if log.Context == nil {
			log.Context = make(map[string]any, len(context))
		}
		maps.Copy(log.Context, context)
		return nil
	}
}

// LogWithError is an option to record err under the "error" context key.
func LogWithError(err error) func(log *domain.Log) error {
	return func(log *domain.Log) error {
		if err == nil {
			return nil
		}
		return LogWithContext(map[string]any{"error": err.Error()})(log)
	}
}

// LogWithSessionID is an option to associate a log entry with a visitor session.
func LogWithSessionID(sessionID string) func(log *domain.Log) error {
	return func(log *domain.Log) error {
		if sessionID != "" {
			log.SessionID = &sessionID
		}
		return nil
	}
}

// LogWithResource is an option to associate a log entry with a resource path.
func LogWithResource(resource string) func(log *domain.Log) error {
	return func(log *domain.Log) error {
		if resource != "" {
			log.Resource = &resource
		}
		return nil
	}
}
