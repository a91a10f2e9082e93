package driven

import (
	"context"

	"github.com/custodia-labs/sitesage/internal/core/domain"
)

// VectorStore manages named collections of indexed passages.
// Connectivity failures are returned, never swallowed.
type VectorStore interface {
	// HasCollection reports whether the named collection exists.
	HasCollection(ctx context.Context, name string) (bool, error)

	// CreateCollection defines the schema and index for a new collection.
	// Returns domain.ErrAlreadyExists if it exists.
	CreateCollection(ctx context.Context, spec domain.CollectionSpec) (Collection, error)

	// OpenCollection returns a handle to an existing collection.
	// Returns domain.ErrNotFound if it does not exist.
	// Handles are cached: the same name returns the same handle.
	OpenCollection(ctx context.Context, name string) (Collection, error)

	// Close releases resources.
	Close() error
}

// Collection is the set of IndexEntry rows for one corpus source.
type Collection interface {
	// Spec returns the collection's schema.
	Spec() domain.CollectionSpec

	// BulkInsert appends all entries of the batch atomically.
	// A fingerprint already stored, or repeated in the batch, is an error.
	BulkInsert(ctx context.Context, batch *domain.EntryBatch) error

	// Delete removes a single entry by fingerprint. Missing keys are ignored.
	Delete(ctx context.Context, fingerprint string) error

	// ListFingerprints scans every stored primary key.
	ListFingerprints(ctx context.Context) (map[string]struct{}, error)

	// Count returns the number of stored entries.
	Count(ctx context.Context) (int, error)

	// Load makes the current rows searchable. Must follow every sync.
	Load(ctx context.Context) error

	// Loaded reports whether Load has been called on this handle.
	Loaded() bool

	// Search returns up to k nearest entries by the collection metric.
	// Before the first Load it returns an empty result.
	Search(ctx context.Context, vector []float32, k int) ([]domain.SearchHit, error)
}
