// Package ffprobe provides a typed wrapper around ffprobe JSON output.
//
// This package has no project-specific dependencies and could be extracted
// as a standalone library.
//
// Key types:
//   - Result: parsed ffprobe output containing streams and format metadata
//   - Stream: individual stream properties including time-base fields
//   - Format: container-level metadata (duration, size, bitrate)
//
// Primary entry points:
//   - Inspect: executes ffprobe and returns parsed Result
//   - ProbeDuration: best-effort audio duration with explicit unknown state
//
// Duration resolution prefers the container-level value and falls back to the
// best audio stream's own duration through its time base, since many voice
// containers omit format-level duration metadata.
package ffprobe
