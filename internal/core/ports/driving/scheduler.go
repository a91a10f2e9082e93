package driving

import "context"

// Scheduler runs background re-syncs for long-running commands.
type Scheduler interface {
	// Start begins running scheduled tasks.
	// Blocks until context is cancelled or Stop is called.
	Start(ctx context.Context) error

	// Stop gracefully stops all running tasks.
	Stop() error

	// Enabled reports whether a schedule is configured.
	Enabled() bool
}
