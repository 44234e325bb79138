// Package services defines shared utilities consumed by the resolution engine,
// the download orchestrator, and the transfer and directory adapters.
//
// Key responsibilities:
//   - Context helpers that stamp batch, task, and avatar identifiers for
//     logging.
//   - Structured error markers plus the Wrap helper that tag failures with the
//     taxonomy the orchestrator records on tasks (transfer, permission, write,
//     timeout) and the resolution-only malformed-source marker.
//
// Use these helpers when wiring new adapters so error classification and
// observability stay uniform across the pipeline.
package services
