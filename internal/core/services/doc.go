// Package services implements the driving port interfaces.
// Services contain the core business logic and orchestrate
// calls to driven ports (adapters).
//
// Services depend only on ports; concrete stores, crawlers and
// model clients are injected by the composition root.
package services
