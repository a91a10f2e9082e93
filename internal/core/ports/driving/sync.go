package driving

import (
	"context"

	"github.com/custodia-labs/sitesage/internal/core/domain"
)

// CorpusSynchronizer reconciles the vector index with the live website.
type CorpusSynchronizer interface {
	// Sync runs one synchronisation cycle.
	// Returns domain.ErrSyncInProgress if another cycle is running.
	Sync(ctx context.Context) (*domain.SyncReport, error)

	// Status returns the current sync state.
	Status(ctx context.Context) (*SyncStatus, error)
}

// SyncStatus represents the current state of synchronisation.
type SyncStatus struct {
	// Collection is the collection being synchronised.
	Collection string `json:"collection"`

	// Running indicates if sync is currently in progress.
	Running bool `json:"running"`

	// Phase is the current step of a running sync.
	Phase domain.SyncPhase `json:"phase"`

	// LastReport is the outcome of the last completed sync, if any.
	LastReport *domain.SyncReport `json:"last_report,omitempty"`

	// LastError is the error of the last failed sync, if any.
	LastError string `json:"last_error,omitempty"`
}
