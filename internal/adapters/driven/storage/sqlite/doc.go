// Package sqlite provides the durable on-device storage adapter.
//
// This adapter uses modernc.org/sqlite, a pure Go SQLite
// implementation that requires no cgo, so the binary stays fully
// cross-compilable. The database lives in the user data directory and
// holds the replicated document set plus the replication checkpoints.
package sqlite
