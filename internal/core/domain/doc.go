// Package domain defines the core business entities for SiteSage.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - RawDocument: A fetched page before cleaning
//   - Document: A cleaned page with title and source URL
//   - Passage: A chunk of cleaned text ready for embedding
//   - IndexEntry: A persisted passage keyed by its fingerprint
//   - RetrievedPassage: A scored passage returned by a query
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
