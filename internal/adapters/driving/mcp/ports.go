package mcp

import (
	"github.com/custodia-labs/sitesage/internal/core/ports/driving"
)

// Ports aggregates all driving port interfaces required by the MCP server.
// This provides a single injection point for dependency injection.
type Ports struct {
	// Query answers questions and retrieves passages.
	Query driving.QueryService

	// Sync refreshes the corpus.
	Sync driving.CorpusSynchronizer

	// Stats records usage and feedback.
	Stats driving.StatsService

	// Settings exposes the active configuration.
	Settings driving.SettingsService
}

// Validate ensures all required ports are set.
// Returns an error if any required port is nil.
func (p *Ports) Validate() error {
	if p.Query == nil {
		return ErrMissingQueryService
	}
	// Sync, Stats and Settings are optional; their tools report unavailability.
	return nil
}
