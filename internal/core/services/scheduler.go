package services

import (
	"context"
	"sync"
	"time"

	"github.com/custodia-labs/sitesage/internal/core/ports/driving"
	"github.com/custodia-labs/sitesage/internal/logger"
)

var _ driving.Scheduler = (*Scheduler)(nil)

// Scheduler re-syncs the corpus at a fixed interval.
// It is a pure core service with no external control API.
type Scheduler struct {
	interval time.Duration
	syncer   driving.CorpusSynchronizer

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// NewScheduler creates a scheduler. A non-positive interval disables it.
func NewScheduler(interval time.Duration, syncer driving.CorpusSynchronizer) *Scheduler {
	return &Scheduler{
		interval: interval,
		syncer:   syncer,
	}
}

// Enabled reports whether the scheduler has work to do.
func (s *Scheduler) Enabled() bool {
	return s.interval > 0 && s.syncer != nil
}

// Start begins the scheduler loop. This method blocks until Stop is called
// or ctx ends. A disabled scheduler returns immediately.
func (s *Scheduler) Start(ctx context.Context) error {
	if !s.Enabled() {
		return nil
	}

	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return nil // Already running
	}
	s.running = true
	s.stopCh = make(chan struct{})
	s.doneCh = make(chan struct{})
	stopCh, doneCh := s.stopCh, s.doneCh
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
		close(doneCh)
	}()

	logger.Info("Scheduler: syncing every %s", s.interval)
	return s.run(ctx, stopCh)
}

// Stop gracefully shuts down the scheduler and waits for a running sync.
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	close(s.stopCh)
	doneCh := s.doneCh
	s.mu.Unlock()

	<-doneCh
	return nil
}

// run is the main scheduler loop.
func (s *Scheduler) run(ctx context.Context, stopCh <-chan struct{}) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-stopCh:
			return nil
		case <-ticker.C:
			s.runSync(ctx)
		}
	}
}

// runSync executes one cycle. A cycle already in progress is skipped quietly.
func (s *Scheduler) runSync(ctx context.Context) {
	_, err := s.syncer.Sync(ctx)
	switch {
	case err == nil:
	case IsSyncSkippable(err):
		logger.Debug("Scheduler: sync already running, skipped")
	default:
		logger.Error("scheduled sync: %v", err)
	}
}
