// Package domain defines the core data structures of the explorer client.
// It contains the activity records kept in the local history, the catalog
// read models returned by the remote service, and the repository interfaces
// that describe the durable local storage.
//
// This package has no knowledge of SQLite, HTTP or the terminal UI. The db
// package implements the repositories, the api package produces the catalog
// models, and everything else consumes them through these types.
package domain
