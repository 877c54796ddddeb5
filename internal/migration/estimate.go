package migration

import "math"

// Transcription cost model: 35 seconds of processing per 600 seconds of
// audio. The size fallback assumes roughly one minute of voice audio per
// mebibyte, which holds for the m4a files the source tree produces.
const (
	processingSecondsPerWindow = 35.0
	audioWindowSeconds         = 600.0
	bytesPerAudioMinute        = 1048576.0
)

// EstimateSeconds computes estimated_time_to_transcribe. When the probed
// duration is known it is authoritative; otherwise the file size stands in.
// The result is never below one second.
func EstimateSeconds(fileSizeBytes int64, durationSeconds *float64) int64 {
	if durationSeconds != nil {
		seconds := int64(math.Ceil(*durationSeconds / audioWindowSeconds * processingSecondsPerWindow))
		return max(1, seconds)
	}
	audioMinutes := float64(fileSizeBytes) / bytesPerAudioMinute
	seconds := int64(math.Round(audioMinutes / 10.0 * processingSecondsPerWindow))
	return max(1, seconds)
}
