package cli

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sitesage/internal/adapters/driving/tui"
)

func stubTUI(t *testing.T, fn func(app *tui.App) error) {
	t.Helper()
	original := runTUI
	runTUI = fn
	t.Cleanup(func() { runTUI = original })
}

func TestChatCmd_RequiresQueryService(t *testing.T) {
	cleanup := setupTestServices(Services{})
	defer cleanup()
	stubTUI(t, func(*tui.App) error {
		t.Fatal("tui must not start without a query service")
		return nil
	})

	_, err := execute("chat")

	require.Error(t, err)
	assert.ErrorIs(t, err, tui.ErrMissingQueryService)
}

func TestChatCmd_RunsApp(t *testing.T) {
	cleanup := setupTestServices(Services{Query: &mockQueryService{}, Stats: &mockStatsService{}})
	defer cleanup()

	var got *tui.App
	stubTUI(t, func(app *tui.App) error {
		got = app
		return nil
	})

	_, err := execute("chat")

	require.NoError(t, err)
	require.NotNil(t, got)
	assert.False(t, got.Ready())
}

func TestChatCmd_PropagatesRunError(t *testing.T) {
	cleanup := setupTestServices(Services{Query: &mockQueryService{}})
	defer cleanup()
	stubTUI(t, func(*tui.App) error { return errors.New("no tty") })

	_, err := execute("chat")

	assert.EqualError(t, err, "TUI error: no tty")
}

func TestChatCmd_StartsScheduler(t *testing.T) {
	sched := &stubScheduler{enabled: true, started: make(chan struct{})}
	cleanup := setupTestServices(Services{Query: &mockQueryService{}, Scheduler: sched})
	defer cleanup()
	stubTUI(t, func(*tui.App) error {
		<-sched.started
		return nil
	})

	_, err := execute("chat")

	require.NoError(t, err)
	assert.True(t, sched.stopped)
}

func TestChatCmd_RejectsArgs(t *testing.T) {
	cleanup := setupTestServices(Services{Query: &mockQueryService{}})
	defer cleanup()
	stubTUI(t, func(*tui.App) error { return nil })

	_, err := execute("chat", "extra")

	assert.Error(t, err)
}
