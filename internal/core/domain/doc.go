// Package domain defines the core business entities for vidrag.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - Record: A chunk of a support page together with its embedding
//   - QueryResult: A stored chunk ranked against a query
//   - AppSettings: Configuration for providers, storage and retrieval
//   - PipelineReport: The outcome of a video processing run
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
