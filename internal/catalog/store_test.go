package catalog_test

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"

	_ "modernc.org/sqlite"

	"ciderpress/internal/catalog"
	"ciderpress/internal/testsupport"
)

func TestInsertAndGetRoundTrip(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	duration := 125.5
	inserted, err := store.Insert(ctx, &catalog.Slice{
		FileName:         "20240101 120000.m4a",
		Title:            "Morning memo",
		AudioFileSize:    2 << 20,
		AudioFileType:    "m4a",
		EstimatedSeconds: 8,
		DurationSeconds:  &duration,
	})
	if err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if inserted.ID == 0 {
		t.Fatal("expected assigned id")
	}

	got, err := store.GetByID(ctx, inserted.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.FileName != "20240101 120000.m4a" {
		t.Fatalf("unexpected filename: %q", got.FileName)
	}
	if got.Title != "Morning memo" {
		t.Fatalf("unexpected title: %q", got.Title)
	}
	if got.Transcribed {
		t.Fatal("expected transcribed false")
	}
	if got.DurationSeconds == nil || *got.DurationSeconds != 125.5 {
		t.Fatalf("unexpected duration: %v", got.DurationSeconds)
	}
	if got.Transcription != nil {
		t.Fatal("expected no transcription yet")
	}
	if got.CreatedAt.IsZero() || got.UpdatedAt.IsZero() {
		t.Fatal("expected timestamps to be set")
	}
}

func TestInsertEnforcesMinimumEstimate(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	slice, err := store.Insert(context.Background(), &catalog.Slice{
		FileName:      "tiny.m4a",
		AudioFileType: "m4a",
	})
	if err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if slice.EstimatedSeconds < 1 {
		t.Fatalf("expected estimate >= 1, got %d", slice.EstimatedSeconds)
	}
}

func TestExistsAndDuplicateInsert(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	testsupport.NewSlice(t, store, "a.m4a", 1024)

	exists, err := store.Exists(ctx, "a.m4a")
	if err != nil {
		t.Fatalf("Exists: %v", err)
	}
	if !exists {
		t.Fatal("expected a.m4a to exist")
	}
	exists, err = store.Exists(ctx, "b.m4a")
	if err != nil {
		t.Fatalf("Exists: %v", err)
	}
	if exists {
		t.Fatal("expected b.m4a to be absent")
	}

	if _, err := store.Insert(ctx, &catalog.Slice{FileName: "a.m4a", AudioFileType: "m4a"}); !errors.Is(err, catalog.ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
}

func TestGetByIDNotFound(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	if _, err := store.GetByID(context.Background(), 999); !errors.Is(err, catalog.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestRenameUniqueness(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	first := testsupport.NewSlice(t, store, "first.m4a", 1024)
	second := testsupport.NewSlice(t, store, "second.m4a", 1024)

	err := store.Rename(ctx, second.ID, "first.m4a")
	if !errors.Is(err, catalog.ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}

	// both records unchanged after the conflict
	got, err := store.GetByID(ctx, second.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.FileName != "second.m4a" {
		t.Fatalf("conflict mutated record: %q", got.FileName)
	}
	got, err = store.GetByID(ctx, first.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.FileName != "first.m4a" {
		t.Fatalf("conflict mutated record: %q", got.FileName)
	}

	if err := store.Rename(ctx, second.ID, "renamed.m4a"); err != nil {
		t.Fatalf("Rename: %v", err)
	}
	got, err = store.GetByID(ctx, second.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.FileName != "renamed.m4a" {
		t.Fatalf("unexpected filename after rename: %q", got.FileName)
	}

	if err := store.Rename(ctx, 999, "ghost.m4a"); !errors.Is(err, catalog.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestUpdateTranscriptionIsAtomicWrite(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	slice := testsupport.NewSlice(t, store, "memo.m4a", 4096)

	if err := store.UpdateTranscription(ctx, slice.ID, "hello world again", 12.5, 3, "base.en"); err != nil {
		t.Fatalf("UpdateTranscription: %v", err)
	}

	got, err := store.GetByID(ctx, slice.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if !got.Transcribed {
		t.Fatal("expected transcribed true")
	}
	if got.Transcription == nil || *got.Transcription != "hello world again" {
		t.Fatalf("unexpected transcription: %v", got.Transcription)
	}
	if got.TranscribeSeconds == nil || *got.TranscribeSeconds != 12.5 {
		t.Fatalf("unexpected elapsed: %v", got.TranscribeSeconds)
	}
	if got.WordCount == nil || *got.WordCount != 3 {
		t.Fatalf("unexpected word count: %v", got.WordCount)
	}
	if got.Model == nil || *got.Model != "base.en" {
		t.Fatalf("unexpected model: %v", got.Model)
	}
}

func TestCorruptDurationRepairRoundTrip(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	slice := testsupport.NewSlice(t, store, "long.m4a", 4096)
	if err := store.UpdateDuration(ctx, slice.ID, 100000); err != nil {
		t.Fatalf("UpdateDuration: %v", err)
	}
	sane := testsupport.NewSlice(t, store, "sane.m4a", 4096)
	if err := store.UpdateDuration(ctx, sane.ID, 300); err != nil {
		t.Fatalf("UpdateDuration: %v", err)
	}

	repaired, err := store.ClearCorruptDurations(ctx)
	if err != nil {
		t.Fatalf("ClearCorruptDurations: %v", err)
	}
	if repaired != 1 {
		t.Fatalf("expected 1 repaired row, got %d", repaired)
	}

	missing, err := store.ListMissingDuration(ctx)
	if err != nil {
		t.Fatalf("ListMissingDuration: %v", err)
	}
	if len(missing) != 1 || missing[0].ID != slice.ID {
		t.Fatalf("unexpected missing-duration set: %+v", missing)
	}

	// a later population pass restores a plausible value
	if err := store.UpdateDuration(ctx, slice.ID, 5400); err != nil {
		t.Fatalf("UpdateDuration: %v", err)
	}
	got, err := store.GetByID(ctx, slice.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.DurationSeconds == nil || *got.DurationSeconds != 5400 {
		t.Fatalf("unexpected duration after repopulation: %v", got.DurationSeconds)
	}
}

func TestHistoricalThroughput(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	if _, ok, err := store.HistoricalThroughput(ctx); err != nil || ok {
		t.Fatalf("expected no history, got ok=%v err=%v", ok, err)
	}

	first := testsupport.NewSlice(t, store, "one.m4a", 100000)
	second := testsupport.NewSlice(t, store, "two.m4a", 200000)
	if err := store.UpdateTranscription(ctx, first.ID, "text", 10, 1, "base.en"); err != nil {
		t.Fatalf("UpdateTranscription: %v", err)
	}
	if err := store.UpdateTranscription(ctx, second.ID, "text", 20, 1, "base.en"); err != nil {
		t.Fatalf("UpdateTranscription: %v", err)
	}

	rate, ok, err := store.HistoricalThroughput(ctx)
	if err != nil {
		t.Fatalf("HistoricalThroughput: %v", err)
	}
	if !ok {
		t.Fatal("expected history")
	}
	if rate != 10000 {
		t.Fatalf("expected 300000/30 = 10000 B/s, got %f", rate)
	}
}

func TestStatsBuckets(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	short := testsupport.NewSlice(t, store, "short.m4a", 1000)
	medium := testsupport.NewSlice(t, store, "medium.m4a", 3000)
	testsupport.NewSlice(t, store, "unknown.m4a", 2000)

	if err := store.UpdateDuration(ctx, short.ID, 30); err != nil {
		t.Fatalf("UpdateDuration: %v", err)
	}
	if err := store.UpdateDuration(ctx, medium.ID, 1200); err != nil {
		t.Fatalf("UpdateDuration: %v", err)
	}

	stats, err := store.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.TotalSlices != 3 {
		t.Fatalf("unexpected total: %d", stats.TotalSlices)
	}
	if stats.TotalBytes != 6000 || stats.AverageBytes != 2000 || stats.LargestBytes != 3000 {
		t.Fatalf("unexpected byte stats: %+v", stats)
	}
	if stats.UnderMinute != 1 || stats.UnderHour != 1 || stats.NoDuration != 1 {
		t.Fatalf("unexpected buckets: %+v", stats)
	}
}

func TestRecordingDateImportLookupBackfill(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	indexPath := filepath.Join(t.TempDir(), "CloudRecordings.db")
	writeSourceIndex(t, indexPath, map[string]float64{
		"Recordings/20240101 120000.m4a": 757425600, // 2025-01-01T12:00:00Z in source epoch
	})

	imported, err := store.ImportRecordingDates(ctx, indexPath)
	if err != nil {
		t.Fatalf("ImportRecordingDates: %v", err)
	}
	if imported != 1 {
		t.Fatalf("expected 1 imported row, got %d", imported)
	}

	ts, err := store.LookupRecordingDate(ctx, "20240101 120000.m4a")
	if err != nil {
		t.Fatalf("LookupRecordingDate: %v", err)
	}
	if ts == nil {
		t.Fatal("expected recording date")
	}
	want := time.Unix(757425600+978307200, 0).UTC()
	if !ts.Equal(want) {
		t.Fatalf("unexpected timestamp: got %v want %v", ts, want)
	}

	if miss, err := store.LookupRecordingDate(ctx, "nope.m4a"); err != nil || miss != nil {
		t.Fatalf("expected miss, got %v err=%v", miss, err)
	}

	slice := testsupport.NewSlice(t, store, "20240101 120000.m4a", 1024)
	updated, err := store.BackfillRecordingDates(ctx)
	if err != nil {
		t.Fatalf("BackfillRecordingDates: %v", err)
	}
	if updated != 1 {
		t.Fatalf("expected 1 backfilled slice, got %d", updated)
	}
	got, err := store.GetByID(ctx, slice.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.RecordingDate == nil || !got.RecordingDate.Equal(want) {
		t.Fatalf("unexpected recording date: %v", got.RecordingDate)
	}
}

func TestImportRecordingDatesToleratesMissingTable(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	indexPath := filepath.Join(t.TempDir(), "empty.db")
	db, err := sql.Open("sqlite", indexPath)
	if err != nil {
		t.Fatalf("open index: %v", err)
	}
	if _, err := db.Exec("CREATE TABLE other (id INTEGER)"); err != nil {
		t.Fatalf("create table: %v", err)
	}
	db.Close()

	imported, err := store.ImportRecordingDates(context.Background(), indexPath)
	if err != nil {
		t.Fatalf("ImportRecordingDates: %v", err)
	}
	if imported != 0 {
		t.Fatalf("expected 0 imported rows, got %d", imported)
	}
}

func writeSourceIndex(t *testing.T, path string, rows map[string]float64) {
	t.Helper()

	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("open source index: %v", err)
	}
	defer db.Close()

	if _, err := db.Exec("CREATE TABLE ZCLOUDRECORDING (Z_PK INTEGER PRIMARY KEY, ZDATE REAL, ZPATH TEXT)"); err != nil {
		t.Fatalf("create ZCLOUDRECORDING: %v", err)
	}
	for zpath, zdate := range rows {
		if _, err := db.Exec("INSERT INTO ZCLOUDRECORDING (ZDATE, ZPATH) VALUES (?, ?)", zdate, zpath); err != nil {
			t.Fatalf("insert row: %v", err)
		}
	}
}
