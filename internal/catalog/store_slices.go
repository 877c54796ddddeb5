package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

const sliceColumns = "id, original_audio_file_name, title, transcribed, audio_file_size, audio_file_type, estimated_time_to_transcribe, audio_time_length_seconds, transcription, transcription_time_taken, transcription_word_count, transcription_model, recording_date, created_at, updated_at"

func scanSlice(scanner interface{ Scan(dest ...any) error }) (*Slice, error) {
	var (
		id            int64
		fileName      string
		title         sql.NullString
		transcribed   int64
		fileSize      int64
		fileType      string
		estimated     int64
		duration      sql.NullFloat64
		transcription sql.NullString
		timeTaken     sql.NullFloat64
		wordCount     sql.NullInt64
		model         sql.NullString
		recordingRaw  sql.NullString
		createdRaw    string
		updatedRaw    string
	)

	if err := scanner.Scan(
		&id,
		&fileName,
		&title,
		&transcribed,
		&fileSize,
		&fileType,
		&estimated,
		&duration,
		&transcription,
		&timeTaken,
		&wordCount,
		&model,
		&recordingRaw,
		&createdRaw,
		&updatedRaw,
	); err != nil {
		return nil, err
	}

	slice := &Slice{
		ID:               id,
		FileName:         fileName,
		Title:            title.String,
		Transcribed:      transcribed != 0,
		AudioFileSize:    fileSize,
		AudioFileType:    fileType,
		EstimatedSeconds: estimated,
		CreatedAt:        parseTimestamp(createdRaw),
		UpdatedAt:        parseTimestamp(updatedRaw),
	}
	if duration.Valid {
		v := duration.Float64
		slice.DurationSeconds = &v
	}
	if transcription.Valid {
		v := transcription.String
		slice.Transcription = &v
	}
	if timeTaken.Valid {
		v := timeTaken.Float64
		slice.TranscribeSeconds = &v
	}
	if wordCount.Valid {
		v := wordCount.Int64
		slice.WordCount = &v
	}
	if model.Valid {
		v := model.String
		slice.Model = &v
	}
	if recordingRaw.Valid {
		if ts, err := time.Parse(time.RFC3339Nano, recordingRaw.String); err == nil {
			slice.RecordingDate = &ts
		}
	}
	return slice, nil
}

func parseTimestamp(raw string) time.Time {
	if ts, err := time.Parse(time.RFC3339Nano, raw); err == nil {
		return ts
	}
	return time.Time{}
}

func formatTimestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// Exists reports whether a slice with the given filename is already cataloged.
// The filename is the sole deduplication key during migration.
func (s *Store) Exists(ctx context.Context, fileName string) (bool, error) {
	ctx = ensureContext(ctx)
	var count int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(1) FROM slices WHERE original_audio_file_name = ?", fileName,
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("check existence: %w", err)
	}
	return count > 0, nil
}

// Insert creates a new slice record. The insert is all-or-nothing; a filename
// collision surfaces as ErrConflict.
func (s *Store) Insert(ctx context.Context, slice *Slice) (*Slice, error) {
	if slice == nil {
		return nil, errors.New("slice is nil")
	}
	now := time.Now().UTC()
	timestamp := formatTimestamp(now)
	if slice.EstimatedSeconds < 1 {
		slice.EstimatedSeconds = 1
	}

	res, err := s.execWithRetry(
		ctx,
		`INSERT INTO slices (
            original_audio_file_name, title, transcribed, audio_file_size,
            audio_file_type, estimated_time_to_transcribe,
            audio_time_length_seconds, recording_date, created_at, updated_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		slice.FileName,
		nullableString(slice.Title),
		boolToInt(slice.Transcribed),
		slice.AudioFileSize,
		slice.AudioFileType,
		slice.EstimatedSeconds,
		nullableFloat(slice.DurationSeconds),
		nullableTime(slice.RecordingDate),
		timestamp,
		timestamp,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("%w: %s", ErrConflict, slice.FileName)
		}
		return nil, fmt.Errorf("insert slice: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(ctx, id)
}

// GetByID fetches a slice by identifier. Absence is ErrNotFound.
func (s *Store) GetByID(ctx context.Context, id int64) (*Slice, error) {
	ctx = ensureContext(ctx)
	row := s.db.QueryRowContext(ctx, `SELECT `+sliceColumns+` FROM slices WHERE id = ?`, id)
	slice, err := scanSlice(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: id %d", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("get slice: %w", err)
	}
	return slice, nil
}

// Rename changes a slice's filename after verifying no other slice holds the
// target name. On conflict both records are left unchanged.
func (s *Store) Rename(ctx context.Context, id int64, newFileName string) error {
	ctx = ensureContext(ctx)

	var otherID int64
	err := s.db.QueryRowContext(ctx,
		"SELECT id FROM slices WHERE original_audio_file_name = ? AND id != ?", newFileName, id,
	).Scan(&otherID)
	switch {
	case err == nil:
		return fmt.Errorf("%w: %s (slice %d)", ErrConflict, newFileName, otherID)
	case errors.Is(err, sql.ErrNoRows):
		// target name is free
	default:
		return fmt.Errorf("check rename target: %w", err)
	}

	res, err := s.execWithRetry(ctx,
		"UPDATE slices SET original_audio_file_name = ?, updated_at = ? WHERE id = ?",
		newFileName, formatTimestamp(time.Now()), id,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: %s", ErrConflict, newFileName)
		}
		return fmt.Errorf("rename slice: %w", err)
	}
	return requireRow(res, id)
}

// SetTitle updates a slice's human label.
func (s *Store) SetTitle(ctx context.Context, id int64, title string) error {
	res, err := s.execWithRetry(ctx,
		"UPDATE slices SET title = ?, updated_at = ? WHERE id = ?",
		nullableString(title), formatTimestamp(time.Now()), id,
	)
	if err != nil {
		return fmt.Errorf("set title: %w", err)
	}
	return requireRow(res, id)
}

// ListAll returns every slice ordered by id.
func (s *Store) ListAll(ctx context.Context) ([]*Slice, error) {
	return s.list(ctx, `SELECT `+sliceColumns+` FROM slices ORDER BY id`)
}

// ListUntranscribed returns slices awaiting transcription, ordered by id.
func (s *Store) ListUntranscribed(ctx context.Context) ([]*Slice, error) {
	return s.list(ctx,
		`SELECT `+sliceColumns+` FROM slices WHERE transcribed = 0 AND audio_file_type != ? ORDER BY id`,
		TextSliceType,
	)
}

// ListMissingDuration returns audio slices with no probed duration.
func (s *Store) ListMissingDuration(ctx context.Context) ([]*Slice, error) {
	return s.list(ctx,
		`SELECT `+sliceColumns+` FROM slices WHERE audio_time_length_seconds IS NULL AND audio_file_type != ? ORDER BY id`,
		TextSliceType,
	)
}

// ListMissingRecordingDate returns slices with no recording date.
func (s *Store) ListMissingRecordingDate(ctx context.Context) ([]*Slice, error) {
	return s.list(ctx, `SELECT `+sliceColumns+` FROM slices WHERE recording_date IS NULL ORDER BY id`)
}

func (s *Store) list(ctx context.Context, query string, args ...any) ([]*Slice, error) {
	ctx = ensureContext(ctx)
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list slices: %w", err)
	}
	defer rows.Close()

	var slices []*Slice
	for rows.Next() {
		slice, err := scanSlice(rows)
		if err != nil {
			return nil, fmt.Errorf("scan slice: %w", err)
		}
		slices = append(slices, slice)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate slices: %w", err)
	}
	return slices, nil
}

// UpdateTranscription persists a successful transcription as one atomic
// write: transcript text, elapsed seconds, word count, model, transcribed=1.
func (s *Store) UpdateTranscription(ctx context.Context, id int64, text string, elapsedSeconds float64, wordCount int64, model string) error {
	res, err := s.execWithRetry(ctx,
		`UPDATE slices SET
            transcribed = 1,
            transcription = ?,
            transcription_time_taken = ?,
            transcription_word_count = ?,
            transcription_model = ?,
            updated_at = ?
        WHERE id = ?`,
		text, elapsedSeconds, wordCount, model, formatTimestamp(time.Now()), id,
	)
	if err != nil {
		return fmt.Errorf("update transcription: %w", err)
	}
	return requireRow(res, id)
}

// UpdateDuration stores a probed duration for a slice.
func (s *Store) UpdateDuration(ctx context.Context, id int64, seconds float64) error {
	res, err := s.execWithRetry(ctx,
		"UPDATE slices SET audio_time_length_seconds = ?, updated_at = ? WHERE id = ?",
		seconds, formatTimestamp(time.Now()), id,
	)
	if err != nil {
		return fmt.Errorf("update duration: %w", err)
	}
	return requireRow(res, id)
}

// corruptDurationThreshold marks stored durations over 24 hours as implausible.
const corruptDurationThreshold = 86400

// ClearCorruptDurations nulls implausible stored durations so the next
// population pass can re-probe them. Returns the number of repaired rows.
func (s *Store) ClearCorruptDurations(ctx context.Context) (int64, error) {
	res, err := s.execWithRetry(ctx,
		"UPDATE slices SET audio_time_length_seconds = NULL, updated_at = ? WHERE audio_time_length_seconds > ?",
		formatTimestamp(time.Now()), corruptDurationThreshold,
	)
	if err != nil {
		return 0, fmt.Errorf("clear corrupt durations: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return affected, nil
}

func (s *Store) SetRecordingDate(ctx context.Context, id int64, recordedAt time.Time) error {
	res, err := s.execWithRetry(ctx,
		"UPDATE slices SET recording_date = ?, updated_at = ? WHERE id = ?",
		formatTimestamp(recordedAt), formatTimestamp(time.Now()), id,
	)
	if err != nil {
		return fmt.Errorf("set recording date: %w", err)
	}
	return requireRow(res, id)
}

func requireRow(res sql.Result, id int64) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: id %d", ErrNotFound, id)
	}
	return nil
}

func boolToInt(b bool) int64 {
	if b {
		return 1
	}
	return 0
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func nullableFloat(value *float64) any {
	if value == nil {
		return nil
	}
	return *value
}

func nullableTime(value *time.Time) any {
	if value == nil {
		return nil
	}
	return formatTimestamp(*value)
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
