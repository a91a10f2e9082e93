// Package sqlite provides a SQLite-based implementation of driven port interfaces.
//
// This adapter uses modernc.org/sqlite, a pure Go SQLite implementation that requires
// no CGO, enabling easy cross-compilation. It implements several interfaces
// through a single database connection:
//
//   - VectorStore: collections of fingerprinted passages and their vectors
//   - StatsStore: usage counters, keyword counts and answer feedback
//   - SyncHistoryStore: outcomes of past sync cycles
//
// Vectors are stored as little-endian float32 blobs. Search runs against an
// in-memory flat index that Collection.Load rebuilds from the table.
//
// # Schema
//
// The database schema is managed through versioned migrations stored in the
// migrations/ directory. Each migration is a pair of .up.sql and .down.sql files.
//
// # Thread Safety
//
// All operations are thread-safe. The store uses database-level locking provided
// by SQLite in WAL mode.
package sqlite
