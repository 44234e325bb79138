// Package main hosts the avatardl CLI entrypoint and command graph.
//
// The Cobra command tree loads configuration and the avatar catalog, resolves
// records into file descriptors, and drives the batch download orchestrator
// against a locked output directory. Batch outcomes are journaled so they can
// be inspected later with the history commands.
//
// Keep this package lean: behaviour belongs in the internal packages and is
// surfaced here through commands and flags.
package main
