// Package db provides the local persistence layer of the explorer client.
// It is the durable storage of the visitor's machine: the session identity and
// the serialized activity log live here as key/value pairs, next to the
// diagnostics recorded when auxiliary paths absorb errors.
//
// This package is responsible for:
// - Establishing the SQLite connection and applying the embedded goose migrations (`db.go`).
// - Implementing domain.StorageRepository on the `storage` table (`storage_repo.go`).
// - Implementing domain.LogRepository on the `logs` table (`log_repo.go`).
// - Converting between domain structs and database rows, using `sql.Null*` types for nullable columns (`types.go`).
package db
