// Package services defines shared utilities consumed by the migration and
// transcription pipelines and their external integrations.
//
// Key responsibilities:
//   - Context helpers that stamp slice IDs, step names, and correlation
//     identifiers for logging.
//   - Structured error markers plus the Wrap helper that classify failures
//     into per-slice errors versus batch-aborting ones.
//
// Use these helpers when wiring new pipeline logic so operational behaviour
// (error handling, observability) stays uniform across the codebase.
package services
