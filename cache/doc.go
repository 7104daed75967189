// Package cache is the process-wide cache of remote resources.
//
// Entries are keyed by the resource path and hold the raw JSON of the last
// successful fetch, the last error and a loading flag. Consumers never touch
// entries directly: they Subscribe to a key and receive snapshots, or ask for
// a refetch with Invalidate.
//
// At most one fetch per key is in flight. Subscribers and Get callers that
// arrive while it runs share its result. Invalidate starts a newer fetch and
// results of older fetches are discarded, so only the newest fetch for a key
// is ever applied. A failed fetch is broadcast with the previous data kept.
package cache
