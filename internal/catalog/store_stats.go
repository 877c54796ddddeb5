package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// DefaultThroughput is the assumed transcription rate in bytes of audio per
// second of processing, used before any history exists.
const DefaultThroughput = 34000.0

// HistoricalThroughput computes bytes of audio processed per second of
// transcription time over all past successful runs. The second return is
// false when no usable history exists; callers then fall back to
// DefaultThroughput.
func (s *Store) HistoricalThroughput(ctx context.Context) (float64, bool, error) {
	ctx = ensureContext(ctx)
	var totalBytes, totalSeconds sql.NullFloat64
	err := s.db.QueryRowContext(ctx,
		`SELECT SUM(audio_file_size), SUM(transcription_time_taken)
         FROM slices
         WHERE transcribed = 1
           AND transcription_time_taken > 0
           AND audio_file_size > 0`,
	).Scan(&totalBytes, &totalSeconds)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return 0, false, fmt.Errorf("historical throughput: %w", err)
	}
	if !totalBytes.Valid || !totalSeconds.Valid || totalSeconds.Float64 <= 0 {
		return 0, false, nil
	}
	return totalBytes.Float64 / totalSeconds.Float64, true, nil
}

// Stats aggregates catalog-wide counts for reporting.
func (s *Store) Stats(ctx context.Context) (*Stats, error) {
	ctx = ensureContext(ctx)
	stats := &Stats{}

	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(1),
                COALESCE(SUM(transcribed), 0),
                COALESCE(SUM(audio_file_size), 0),
                COALESCE(MAX(audio_file_size), 0)
         FROM slices`,
	).Scan(&stats.TotalSlices, &stats.TranscribedCount, &stats.TotalBytes, &stats.LargestBytes)
	if err != nil {
		return nil, fmt.Errorf("aggregate totals: %w", err)
	}
	if stats.TotalSlices > 0 {
		stats.AverageBytes = stats.TotalBytes / stats.TotalSlices
	}

	err = s.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(CASE WHEN audio_time_length_seconds < 60 THEN 1 ELSE 0 END), 0),
                COALESCE(SUM(CASE WHEN audio_time_length_seconds >= 60 AND audio_time_length_seconds < 600 THEN 1 ELSE 0 END), 0),
                COALESCE(SUM(CASE WHEN audio_time_length_seconds >= 600 AND audio_time_length_seconds < 3600 THEN 1 ELSE 0 END), 0),
                COALESCE(SUM(CASE WHEN audio_time_length_seconds >= 3600 THEN 1 ELSE 0 END), 0),
                COALESCE(SUM(CASE WHEN audio_time_length_seconds IS NULL THEN 1 ELSE 0 END), 0)
         FROM slices`,
	).Scan(&stats.UnderMinute, &stats.UnderTenMin, &stats.UnderHour, &stats.OverHour, &stats.NoDuration)
	if err != nil {
		return nil, fmt.Errorf("duration buckets: %w", err)
	}

	var totalAudio, totalTaken sql.NullFloat64
	err = s.db.QueryRowContext(ctx,
		`SELECT SUM(audio_time_length_seconds), SUM(transcription_time_taken)
         FROM slices
         WHERE transcribed = 1
           AND transcription_time_taken > 0
           AND audio_time_length_seconds > 0`,
	).Scan(&totalAudio, &totalTaken)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("observed cost: %w", err)
	}
	if totalAudio.Valid && totalTaken.Valid && totalAudio.Float64 > 0 {
		stats.AvgSecondsPerTenMinutes = totalTaken.Float64 / totalAudio.Float64 * 600
	}

	return stats, nil
}
