package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/custodia-labs/sitesage/internal/core/domain"
	"github.com/custodia-labs/sitesage/internal/core/ports/driven"
)

// Ensure SyncHistoryStore implements the interface.
var _ driven.SyncHistoryStore = (*SyncHistoryStore)(nil)

// SyncHistoryStore is an in-memory implementation of driven.SyncHistoryStore.
type SyncHistoryStore struct {
	mu   sync.Mutex
	runs map[string][]domain.SyncRun
}

// NewSyncHistoryStore creates an empty history store.
func NewSyncHistoryStore() *SyncHistoryStore {
	return &SyncHistoryStore{runs: make(map[string][]domain.SyncRun)}
}

// RecordRun stores a finished run.
func (s *SyncHistoryStore) RecordRun(_ context.Context, run domain.SyncRun) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	runs := append([]domain.SyncRun{run}, s.runs[run.Collection]...)
	// Newest first.
	sort.SliceStable(runs, func(i, j int) bool { return runs[i].StartedAt.After(runs[j].StartedAt) })
	s.runs[run.Collection] = runs
	return nil
}

// LastRun returns the most recent run, or nil if none exists.
func (s *SyncHistoryStore) LastRun(ctx context.Context, collection string) (*domain.SyncRun, error) {
	runs, _ := s.ListRuns(ctx, collection, 1)
	if len(runs) == 0 {
		return nil, nil
	}
	return &runs[0], nil
}

// ListRuns returns recent runs, most recent first.
func (s *SyncHistoryStore) ListRuns(_ context.Context, collection string, limit int) ([]domain.SyncRun, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	runs := s.runs[collection]
	if limit >= 0 && len(runs) > limit {
		runs = runs[:limit]
	}
	return append([]domain.SyncRun(nil), runs...), nil
}

// PruneHistory keeps the most recent keep runs per collection.
func (s *SyncHistoryStore) PruneHistory(_ context.Context, keep int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for name, runs := range s.runs {
		if len(runs) > keep {
			s.runs[name] = append([]domain.SyncRun(nil), runs[:keep]...)
		}
	}
	return nil
}
