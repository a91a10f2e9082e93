// Package cli provides the cobra command tree for SiteSage.
package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/sitesage/internal/core/ports/driving"
	"github.com/custodia-labs/sitesage/internal/logger"
)

// version is set at build time via -ldflags.
var version = "dev"

// Services wired by the composition root.
var (
	queryService    driving.QueryService
	synchronizer    driving.CorpusSynchronizer
	settingsService driving.SettingsService
	statsService    driving.StatsService
	syncScheduler   driving.Scheduler
)

var verboseFlag bool

var rootCmd = &cobra.Command{
	Use:   "sitesage",
	Short: "Answer questions from a website",
	Long: `SiteSage crawls a website, keeps a vector index of its passages in sync,
and answers questions using only passages that pass a relevance threshold.

Run "sitesage sync" once to build the index, then "sitesage ask".`,
	SilenceUsage: true,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		logger.SetVerbose(verboseFlag)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verboseFlag, "verbose", "v", false, "print progress and debug logs")
}

// Services holds the driving ports the commands call.
type Services struct {
	Query     driving.QueryService
	Sync      driving.CorpusSynchronizer
	Settings  driving.SettingsService
	Stats     driving.StatsService
	Scheduler driving.Scheduler
}

// SetServices injects the services used by the commands.
func SetServices(s Services) {
	queryService = s.Query
	synchronizer = s.Sync
	settingsService = s.Settings
	statsService = s.Stats
	syncScheduler = s.Scheduler
}

// SetVersion sets the version reported by "sitesage version".
func SetVersion(v string) {
	if v != "" {
		version = v
	}
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// ExecuteContext runs the root command with ctx, which commands receive
// through cmd.Context().
func ExecuteContext(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}
