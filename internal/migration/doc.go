// Package migration moves voice-memo audio out of the platform-managed
// source tree into managed storage and catalogs every new file.
//
// A run is idempotent: the catalog's filename uniqueness is the sole
// deduplication key, so already-cataloged files are skipped. Each new file
// gets a verified byte copy, a best-effort duration probe, a recording-date
// lookup, and a transcription cost estimate before its catalog insert.
// Single-file failures increment an error counter and the batch continues;
// only an unusable source root aborts the run.
package migration
