package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// appleEpochOffset converts the source index's timestamp base (seconds since
// 2001-01-01) to Unix seconds.
const appleEpochOffset = 978307200

// ImportRecordingDates copies recording timestamps from the source tree's
// metadata index into the catalog's side table. Rows already imported are
// left alone. Returns the number of new rows.
func (s *Store) ImportRecordingDates(ctx context.Context, indexPath string) (int64, error) {
	ctx = ensureContext(ctx)

	if _, err := s.db.ExecContext(ctx, "ATTACH DATABASE ? AS source_index", indexPath); err != nil {
		return 0, fmt.Errorf("attach source index: %w", err)
	}
	defer func() {
		_, _ = s.db.ExecContext(ctx, "DETACH DATABASE source_index")
	}()

	var tableExists int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(1) FROM source_index.sqlite_master WHERE type='table' AND name='ZCLOUDRECORDING'",
	).Scan(&tableExists)
	if err != nil {
		return 0, fmt.Errorf("inspect source index: %w", err)
	}
	if tableExists == 0 {
		return 0, nil
	}

	res, err := s.execWithRetry(ctx,
		`INSERT OR IGNORE INTO recording_dates (path, recorded_at)
         SELECT ZPATH, strftime('%Y-%m-%dT%H:%M:%SZ', ZDATE + ?, 'unixepoch')
         FROM source_index.ZCLOUDRECORDING
         WHERE ZPATH IS NOT NULL AND ZDATE IS NOT NULL`,
		appleEpochOffset,
	)
	if err != nil {
		return 0, fmt.Errorf("import recording dates: %w", err)
	}
	imported, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return imported, nil
}

// LookupRecordingDate finds the original recording timestamp for a filename.
// The side table stores relative paths, so matching is by path suffix. A miss
// returns (nil, nil); it is a normal outcome, not an error.
func (s *Store) LookupRecordingDate(ctx context.Context, fileName string) (*time.Time, error) {
	ctx = ensureContext(ctx)
	var raw string
	err := s.db.QueryRowContext(ctx,
		"SELECT recorded_at FROM recording_dates WHERE path LIKE '%' || ? LIMIT 1",
		fileName,
	).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("lookup recording date: %w", err)
	}
	ts, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil, nil
	}
	return &ts, nil
}

// BackfillRecordingDates fills recording_date for slices missing it using the
// imported side table. Returns the number of slices updated.
func (s *Store) BackfillRecordingDates(ctx context.Context) (int64, error) {
	slices, err := s.ListMissingRecordingDate(ctx)
	if err != nil {
		return 0, err
	}

	var updated int64
	for _, slice := range slices {
		ts, err := s.LookupRecordingDate(ctx, slice.FileName)
		if err != nil {
			return updated, err
		}
		if ts == nil {
			continue
		}
		if err := s.SetRecordingDate(ctx, slice.ID, *ts); err != nil {
			return updated, err
		}
		updated++
	}
	return updated, nil
}
