// Package mcp provides an MCP (Model Context Protocol) server adapter for SiteSage.
// It lets AI assistants ask grounded questions about the synced website and
// trigger re-syncs.
package mcp

import "errors"

// ErrMissingQueryService is returned when the query service is not provided.
var ErrMissingQueryService = errors.New("mcp: query service is required")

// errSyncUnavailable is returned by sync tools when no synchronizer is wired.
var errSyncUnavailable = errors.New("mcp: sync is not available")
