package driven

import (
	"context"

	"github.com/custodia-labs/sitesage/internal/core/domain"
)

// SyncHistoryStore persists the outcome of sync cycles.
type SyncHistoryStore interface {
	// RecordRun stores a finished run.
	RecordRun(ctx context.Context, run domain.SyncRun) error

	// LastRun returns the most recent run for a collection.
	// Returns nil and no error if none exists.
	LastRun(ctx context.Context, collection string) (*domain.SyncRun, error)

	// ListRuns returns recent runs, most recent first.
	ListRuns(ctx context.Context, collection string, limit int) ([]domain.SyncRun, error)

	// PruneHistory keeps the most recent keep runs per collection.
	PruneHistory(ctx context.Context, keep int) error
}
