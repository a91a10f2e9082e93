package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/sitesage/internal/adapters/driving/mcp"
	"github.com/custodia-labs/sitesage/internal/core/services"
	"github.com/custodia-labs/sitesage/internal/logger"
)

// HTTP port range probed by --http.
const (
	httpPortStart = 8080
	httpPortEnd   = 8099
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "MCP server commands",
	Long:  `Commands for the Model Context Protocol (MCP) server integration.`,
}

var mcpServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the MCP server",
	Long: `Start the Model Context Protocol server for AI assistant integration.

By default, the server communicates over stdio using JSON-RPC and can be
used with Claude Desktop and other MCP-compatible AI assistants.

Use --port to start an HTTP server instead, or --http to pick the first
free port between 8080 and 8099.

When scheduler.interval is set, the index is re-synced in the background
while the server runs. --resync also runs one sync at start-up.

Examples:
  # Stdio mode (default, for Claude Desktop)
  sitesage mcp serve

  # HTTP mode (for MCP Inspector, remote access)
  sitesage mcp serve --port 8080

Claude Desktop configuration (claude_desktop_config.json):
  {
    "mcpServers": {
      "sitesage": {
        "command": "/path/to/sitesage",
        "args": ["mcp", "serve"]
      }
    }
  }`,
	RunE: runMCPServe,
}

func init() {
	mcpServeCmd.Flags().IntP("port", "p", 0, "HTTP port (0 = use stdio)")
	mcpServeCmd.Flags().Bool("http", false, "serve HTTP on the first free port from 8080")
	mcpServeCmd.Flags().Bool("resync", false, "sync the index once at start-up")
	mcpCmd.AddCommand(mcpServeCmd)
	rootCmd.AddCommand(mcpCmd)
}

func runMCPServe(cmd *cobra.Command, _ []string) error {
	port, err := cmd.Flags().GetInt("port")
	if err != nil {
		return fmt.Errorf("getting port flag: %w", err)
	}
	useHTTP, err := cmd.Flags().GetBool("http")
	if err != nil {
		return fmt.Errorf("getting http flag: %w", err)
	}
	resync, err := cmd.Flags().GetBool("resync")
	if err != nil {
		return fmt.Errorf("getting resync flag: %w", err)
	}

	if useHTTP && port == 0 {
		port, err = services.FindAvailablePort(httpPortStart, httpPortEnd)
		if err != nil {
			return err
		}
	}

	ports := &mcp.Ports{
		Query:    queryService,
		Sync:     synchronizer,
		Stats:    statsService,
		Settings: settingsService,
	}

	server, err := mcp.NewServer(ports)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	stopBackground := startBackgroundSync(ctx, resync)
	defer stopBackground()

	if port > 0 {
		addr := fmt.Sprintf(":%d", port)
		fmt.Fprintf(cmd.OutOrStdout(), "MCP server listening on http://localhost%s\n", addr)
		return server.RunHTTP(ctx, addr)
	}

	return server.Run(ctx)
}

// startBackgroundSync runs the optional start-up sync and the scheduler.
// The returned func stops the scheduler.
func startBackgroundSync(ctx context.Context, resync bool) func() {
	syncer, sched := synchronizer, syncScheduler

	if resync && syncer != nil {
		go func() {
			if _, err := syncer.Sync(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("start-up sync: %v", err)
			}
		}()
	}

	if sched == nil || !sched.Enabled() {
		return func() {}
	}

	go func() {
		// Scheduler errors shouldn't stop the server
		if err := sched.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("scheduler stopped: %v", err)
		}
	}()
	return func() {
		if err := sched.Stop(); err != nil {
			logger.Warn("stopping scheduler: %v", err)
		}
	}
}
