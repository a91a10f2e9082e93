package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sitesage/internal/core/domain"
)

func TestNewScheduler(t *testing.T) {
	scheduler := NewScheduler(time.Hour, &mockSyncer{})

	require.NotNil(t, scheduler)
	assert.True(t, scheduler.Enabled())
}

func TestScheduler_DisabledReturnsImmediately(t *testing.T) {
	tests := []struct {
		name      string
		scheduler *Scheduler
	}{
		{"zero interval", NewScheduler(0, &mockSyncer{})},
		{"negative interval", NewScheduler(-time.Minute, &mockSyncer{})},
		{"no synchronizer", NewScheduler(time.Minute, nil)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.False(t, tt.scheduler.Enabled())
			assert.NoError(t, tt.scheduler.Start(context.Background()))
		})
	}
}

func TestScheduler_RunsSyncOnEachTick(t *testing.T) {
	syncer := &mockSyncer{}
	scheduler := NewScheduler(10*time.Millisecond, syncer)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_ = scheduler.Start(ctx)
	}()

	assert.Eventually(t, func() bool { return syncer.calls.Load() >= 2 }, 2*time.Second, 5*time.Millisecond)

	require.NoError(t, scheduler.Stop())
	wg.Wait()
}

func TestScheduler_StopWithoutStart(t *testing.T) {
	scheduler := NewScheduler(time.Hour, &mockSyncer{})

	// Stop without starting should be safe
	err := scheduler.Stop()
	require.NoError(t, err)
}

func TestScheduler_ContextCancelEndsLoop(t *testing.T) {
	scheduler := NewScheduler(time.Hour, &mockSyncer{})
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- scheduler.Start(ctx) }()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler did not stop on context cancel")
	}
	assert.NoError(t, scheduler.Stop())
}

func TestScheduler_DoubleStart(t *testing.T) {
	scheduler := NewScheduler(time.Hour, &mockSyncer{})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_ = scheduler.Start(ctx)
	}()

	time.Sleep(50 * time.Millisecond)

	// Second start should return immediately (already running)
	err := scheduler.Start(context.Background())
	assert.NoError(t, err)

	require.NoError(t, scheduler.Stop())
	wg.Wait()
}

func TestScheduler_KeepsRunningAfterErrors(t *testing.T) {
	for _, syncErr := range []error{domain.ErrSyncInProgress, errors.New("crawl failed")} {
		t.Run(syncErr.Error(), func(t *testing.T) {
			syncer := &mockSyncer{err: syncErr}
			scheduler := NewScheduler(10*time.Millisecond, syncer)

			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			var wg sync.WaitGroup
			wg.Add(1)
			go func() {
				defer wg.Done()
				_ = scheduler.Start(ctx)
			}()

			assert.Eventually(t, func() bool { return syncer.calls.Load() >= 3 }, 2*time.Second, 5*time.Millisecond)

			require.NoError(t, scheduler.Stop())
			wg.Wait()
		})
	}
}
