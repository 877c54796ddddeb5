package migration_test

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"testing"

	_ "modernc.org/sqlite"

	"ciderpress/internal/migration"
	"ciderpress/internal/progress"
	"ciderpress/internal/services"
	"ciderpress/internal/testsupport"
)

func TestRunCopiesNewFilesAndSkipsCataloged(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	testsupport.WriteFile(t, filepath.Join(cfg.Paths.SourceRoot, "a.m4a"), 1<<20)
	testsupport.WriteFile(t, filepath.Join(cfg.Paths.SourceRoot, "b.m4a"), 2<<20)
	testsupport.WriteFile(t, filepath.Join(cfg.Paths.SourceRoot, "c.m4a"), 1<<20)
	testsupport.NewSlice(t, store, "c.m4a", 1<<20)

	cell := &progress.Cell[progress.MigrationProgress]{}
	engine := migration.New(cfg, store, cell, nil)
	summary, err := engine.Run(ctx)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if summary.Copied != 2 || summary.Skipped != 1 || summary.Errors != 0 {
		t.Fatalf("unexpected summary: %+v", summary)
	}
	// total covers everything the scan found, skipped files included
	if summary.TotalBytes != 4<<20 {
		t.Fatalf("unexpected total bytes: %d", summary.TotalBytes)
	}

	slices, err := store.ListAll(ctx)
	if err != nil {
		t.Fatalf("ListAll: %v", err)
	}
	if len(slices) != 3 {
		t.Fatalf("expected 3 catalog records, got %d", len(slices))
	}

	var estA, estB int64
	for _, s := range slices {
		switch s.FileName {
		case "a.m4a":
			estA = s.EstimatedSeconds
		case "b.m4a":
			estB = s.EstimatedSeconds
		}
		if s.EstimatedSeconds < 1 {
			t.Fatalf("estimate below minimum for %s: %d", s.FileName, s.EstimatedSeconds)
		}
	}
	// duration is unknown for synthetic files, so the estimate grows with size
	if estB <= estA {
		t.Fatalf("expected estimate to grow with size: a=%d b=%d", estA, estB)
	}

	for _, name := range []string{"a.m4a", "b.m4a"} {
		if _, err := os.Stat(filepath.Join(cfg.AudioDir(), name)); err != nil {
			t.Fatalf("expected managed copy of %s: %v", name, err)
		}
	}

	if _, active := cell.Snapshot(); active {
		t.Fatal("progress cell left active after Run")
	}
}

func TestRunIsIdempotent(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	testsupport.WriteFile(t, filepath.Join(cfg.Paths.SourceRoot, "a.m4a"), 100)

	engine := migration.New(cfg, store, nil, nil)
	if _, err := engine.Run(ctx); err != nil {
		t.Fatalf("first Run: %v", err)
	}
	summary, err := engine.Run(ctx)
	if err != nil {
		t.Fatalf("second Run: %v", err)
	}
	if summary.Copied != 0 || summary.Skipped != 1 {
		t.Fatalf("expected pure skip on rerun, got %+v", summary)
	}

	slices, err := store.ListAll(ctx)
	if err != nil {
		t.Fatalf("ListAll: %v", err)
	}
	if len(slices) != 1 {
		t.Fatalf("rerun duplicated records: %d", len(slices))
	}
}

func TestRunMissingSourceRootIsConfigurationError(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	cfg.Paths.SourceRoot = filepath.Join(t.TempDir(), "gone")

	engine := migration.New(cfg, store, nil, nil)
	_, err := engine.Run(context.Background())
	if err == nil {
		t.Fatal("expected error for missing source root")
	}
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration marker, got %v", err)
	}
}

func TestRunEmitsEvents(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	testsupport.WriteFile(t, filepath.Join(cfg.Paths.SourceRoot, "a.m4a"), 100)

	engine := migration.New(cfg, store, nil, nil)
	var events []migration.Event
	engine.Sink = func(ev migration.Event) { events = append(events, ev) }

	if _, err := engine.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	sawCopied, sawCompleted := false, false
	for _, ev := range events {
		switch ev.Type {
		case migration.EventFileCopied:
			sawCopied = true
			if ev.File != "a.m4a" {
				t.Fatalf("unexpected file in event: %q", ev.File)
			}
		case migration.EventBatchCompleted:
			sawCompleted = true
		}
	}
	if !sawCopied || !sawCompleted {
		t.Fatalf("missing events: copied=%v completed=%v (%+v)", sawCopied, sawCompleted, events)
	}
}

func TestRunPopulatesRecordingDatesFromIndex(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	testsupport.WriteFile(t, filepath.Join(cfg.Paths.SourceRoot, "memo.m4a"), 100)
	writeIndex(t, cfg.IndexPath(), "Recordings/memo.m4a", 700000000)

	engine := migration.New(cfg, store, nil, nil)
	if _, err := engine.Run(ctx); err != nil {
		t.Fatalf("Run: %v", err)
	}

	slices, err := store.ListAll(ctx)
	if err != nil {
		t.Fatalf("ListAll: %v", err)
	}
	if len(slices) != 1 {
		t.Fatalf("expected 1 slice, got %d", len(slices))
	}
	if slices[0].RecordingDate == nil {
		t.Fatal("expected recording date from index")
	}
}

func TestRunAbortsWhenIndexUnreadable(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	testsupport.WriteFile(t, filepath.Join(cfg.Paths.SourceRoot, "a.m4a"), 100)
	// index present but not a database
	indexPath := cfg.IndexPath()
	if err := os.MkdirAll(filepath.Dir(indexPath), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(indexPath, []byte("not a database"), 0o644); err != nil {
		t.Fatalf("write index: %v", err)
	}

	engine := migration.New(cfg, store, nil, nil)
	_, err := engine.Run(context.Background())
	if err == nil {
		t.Fatal("expected error for unreadable index")
	}
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration marker, got %v", err)
	}

	slices, err := store.ListAll(context.Background())
	if err != nil {
		t.Fatalf("ListAll: %v", err)
	}
	if len(slices) != 0 {
		t.Fatalf("no slices should be cataloged after an aborted run, got %d", len(slices))
	}
}

// writeIndex builds a minimal source metadata index with one recording row.
func writeIndex(t *testing.T, path, zpath string, zdate float64) {
	t.Helper()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("open index: %v", err)
	}
	defer db.Close()
	if _, err := db.Exec("CREATE TABLE ZCLOUDRECORDING (Z_PK INTEGER PRIMARY KEY, ZDATE REAL, ZPATH TEXT)"); err != nil {
		t.Fatalf("create table: %v", err)
	}
	if _, err := db.Exec("INSERT INTO ZCLOUDRECORDING (ZDATE, ZPATH) VALUES (?, ?)", zdate, zpath); err != nil {
		t.Fatalf("insert: %v", err)
	}
}
