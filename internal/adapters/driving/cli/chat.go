package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/sitesage/internal/adapters/driving/tui"
)

// runTUI starts the program; tests replace it to avoid taking the terminal.
var runTUI = func(app *tui.App) error {
	return app.Run()
}

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Chat with the website in a terminal UI",
	Long: `Opens an interactive chat. Type a question and press enter; rate each
answer with ctrl+g (good) or ctrl+b (bad) to feed the quality metrics shown
by "sitesage stats".

When scheduler.interval is set the index is re-synced in the background
while the chat is open.`,
	Args: cobra.NoArgs,
	RunE: runChat,
}

func init() {
	rootCmd.AddCommand(chatCmd)
}

func runChat(cmd *cobra.Command, _ []string) error {
	app, err := tui.NewApp(&tui.Ports{
		Query: queryService,
		Stats: statsService,
	})
	if err != nil {
		return fmt.Errorf("failed to create TUI: %w", err)
	}

	// Long-running like mcp serve, so background sync applies here too
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()
	stopBackground := startBackgroundSync(ctx, false)
	defer stopBackground()

	if err := runTUI(app.WithContext(ctx)); err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}
	return nil
}
