// Package tui provides an interactive terminal chat for SiteSage.
// It is a driving adapter, like the CLI and the MCP server.
package tui

import (
	"github.com/custodia-labs/sitesage/internal/core/ports/driving"
)

// Ports aggregates the driving ports the TUI calls.
type Ports struct {
	// Query answers questions. Required.
	Query driving.QueryService

	// Stats records answer ratings. Optional.
	Stats driving.StatsService
}

// Validate ensures the required ports are set.
func (p *Ports) Validate() error {
	if p == nil {
		return ErrInvalidPorts
	}
	if p.Query == nil {
		return ErrMissingQueryService
	}
	return nil
}
