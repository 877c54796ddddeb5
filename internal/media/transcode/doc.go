// Package transcode shells out to ffmpeg to prepare audio for the speech
// engine: full decode-and-resample to 16 kHz mono s16le WAV, and fast
// stream-copy extraction of a leading prefix for auto-naming.
//
// Outputs land in a configurable work directory under collision-free
// generated names; callers own cleanup of the returned paths.
package transcode
