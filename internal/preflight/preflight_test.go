package preflight_test

import (
	"os"
	"path/filepath"
	"testing"

	"ciderpress/internal/preflight"
	"ciderpress/internal/testsupport"
)

func TestInspectSourceRootNotFound(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Paths.SourceRoot = filepath.Join(t.TempDir(), "missing")

	if status := preflight.InspectSourceRoot(cfg); status != preflight.SourceNotFound {
		t.Fatalf("expected not found, got %s", status)
	}
}

func TestInspectSourceRootPermissionDenied(t *testing.T) {
	if os.Getuid() == 0 {
		t.Skip("permission checks are meaningless as root")
	}
	cfg := testsupport.NewConfig(t)
	root := filepath.Join(t.TempDir(), "locked")
	if err := os.MkdirAll(root, 0o000); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	t.Cleanup(func() { _ = os.Chmod(root, 0o755) })
	cfg.Paths.SourceRoot = root

	if status := preflight.InspectSourceRoot(cfg); status != preflight.SourcePermissionDenied {
		t.Fatalf("expected permission denied, got %s", status)
	}
}

func TestInspectSourceRootNoRecordings(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	if err := os.MkdirAll(cfg.Paths.SourceRoot, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	testsupport.WriteFile(t, filepath.Join(cfg.Paths.SourceRoot, "notes.txt"), 10)

	if status := preflight.InspectSourceRoot(cfg); status != preflight.SourceNoRecordings {
		t.Fatalf("expected no recordings, got %s", status)
	}
}

func TestInspectSourceRootMissingIndexIsNotBlocking(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	testsupport.WriteFile(t, filepath.Join(cfg.Paths.SourceRoot, "memo.m4a"), 100)

	status := preflight.InspectSourceRoot(cfg)
	if status != preflight.SourceNoIndexFound {
		t.Fatalf("expected no index, got %s", status)
	}
	if status.Blocking() {
		t.Fatal("missing index must not block migration")
	}
}

func TestInspectSourceRootValid(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	testsupport.WriteFile(t, filepath.Join(cfg.Paths.SourceRoot, "nested", "memo.M4A"), 100)
	testsupport.WriteFile(t, cfg.IndexPath(), 10)

	if status := preflight.InspectSourceRoot(cfg); status != preflight.SourceValid {
		t.Fatalf("expected valid, got %s", status)
	}
	if status := preflight.InspectSourceRoot(cfg); status.Blocking() {
		t.Fatal("valid source must not block")
	}
}

func TestRunAllReportsSourceAndStorage(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	testsupport.WriteFile(t, filepath.Join(cfg.Paths.SourceRoot, "memo.m4a"), 100)
	testsupport.WriteFile(t, cfg.IndexPath(), 10)
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}

	results := preflight.RunAll(cfg)
	if len(results) < 2 {
		t.Fatalf("expected at least source and storage results, got %d", len(results))
	}
	if results[0].Name != "Source root" || !results[0].Passed {
		t.Fatalf("unexpected source result: %+v", results[0])
	}
	if results[1].Name != "Managed storage" || !results[1].Passed {
		t.Fatalf("unexpected storage result: %+v", results[1])
	}
}
