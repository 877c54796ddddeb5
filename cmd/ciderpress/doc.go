// Package main hosts the CiderPress CLI entrypoint and command graph.
//
// The Cobra-based command tree translates terminal invocations into
// migration batches, transcription runs, catalog queries, duration
// maintenance, and configuration scaffolding. It centralizes configuration
// resolution, run locking, and structured logging setup so subcommands can
// focus on user experience instead of wiring.
//
// Keep this package lean: add new functionality by extending the internal
// packages first, then surface it through dedicated commands or flags here.
package main
