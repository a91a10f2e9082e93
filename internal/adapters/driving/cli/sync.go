package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/sitesage/internal/core/domain"
	"github.com/custodia-labs/sitesage/internal/core/ports/driving"
)

var syncJSON bool

// statusPollInterval is how often sync progress is refreshed.
var statusPollInterval = 500 * time.Millisecond

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Synchronise the index with the website",
	Long: `Crawls the configured website and brings the vector index up to date.
The first run builds the collection. Later runs embed only new passages
and delete passages that disappeared from the site.`,
	Args: cobra.NoArgs,
	RunE: runSync,
}

var syncStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the last sync outcome",
	Args:  cobra.NoArgs,
	RunE:  runSyncStatus,
}

func init() {
	syncCmd.Flags().BoolVar(&syncJSON, "json", false, "output the report as JSON")
	syncCmd.AddCommand(syncStatusCmd)
	rootCmd.AddCommand(syncCmd)
}

func runSync(cmd *cobra.Command, _ []string) error {
	if synchronizer == nil {
		return errors.New("sync service not configured")
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	if !syncJSON {
		cmd.Println("Synchronising...")
	}

	report, err := syncWithProgress(ctx, cmd, synchronizer, !syncJSON)
	if errors.Is(err, domain.ErrSyncInProgress) {
		return errors.New("another sync is already running")
	}
	if err != nil {
		return fmt.Errorf("sync failed: %w", err)
	}

	if syncJSON {
		return printJSON(cmd, report)
	}
	printSyncReport(cmd, report)
	return nil
}

// syncWithProgress runs sync while displaying phase changes.
func syncWithProgress(
	ctx context.Context,
	cmd *cobra.Command,
	syncer driving.CorpusSynchronizer,
	showProgress bool,
) (*domain.SyncReport, error) {
	type result struct {
		report *domain.SyncReport
		err    error
	}

	// Start sync in goroutine
	done := make(chan result, 1)
	go func() {
		report, err := syncer.Sync(ctx)
		done <- result{report, err}
	}()

	ticker := time.NewTicker(statusPollInterval)
	defer ticker.Stop()

	lastPhase := domain.PhaseIdle
	for {
		select {
		case r := <-done:
			return r.report, r.err
		case <-ticker.C:
			if !showProgress {
				continue
			}
			// Best effort: a failed status read only skips this update.
			status, err := syncer.Status(ctx)
			if err == nil && status != nil && status.Running && status.Phase != lastPhase {
				cmd.Printf("  %s...\n", status.Phase)
				lastPhase = status.Phase
			}
		}
	}
}

func runSyncStatus(cmd *cobra.Command, _ []string) error {
	if synchronizer == nil {
		return errors.New("sync service not configured")
	}

	status, err := synchronizer.Status(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to read sync status: %w", err)
	}

	cmd.Printf("Collection: %s\n", status.Collection)
	if status.Running {
		cmd.Printf("Running: yes (%s)\n", status.Phase)
	} else {
		cmd.Println("Running: no")
	}
	if status.LastError != "" {
		cmd.Printf("Last error: %s\n", status.LastError)
	}
	if status.LastReport != nil {
		cmd.Println()
		printSyncReport(cmd, status.LastReport)
	} else if status.LastError == "" {
		cmd.Println("No sync has completed yet.")
	}
	return nil
}

func printSyncReport(cmd *cobra.Command, r *domain.SyncReport) {
	if r == nil {
		return
	}
	cmd.Printf("Collection %s synchronised (%s).\n", r.Collection, r.Mode)
	cmd.Printf("  Documents: %d\n", r.Documents)
	cmd.Printf("  Passages:  %d\n", r.Passages)
	cmd.Printf("  Inserted:  %d\n", r.Inserted)
	cmd.Printf("  Deleted:   %d\n", r.Deleted)
	cmd.Printf("  Unchanged: %d\n", r.Unchanged)
	cmd.Printf("  Took:      %s\n", r.Duration.Round(time.Millisecond))
	if !r.Changed() {
		cmd.Println("Index already up to date.")
	}
}

func printJSON(cmd *cobra.Command, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal output: %w", err)
	}
	cmd.Println(string(data))
	return nil
}
