package testsupport

import (
	"context"
	"testing"

	"ciderpress/internal/catalog"
	"ciderpress/internal/config"
)

// MustOpenStore opens a catalog.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *catalog.Store {
	t.Helper()

	store, err := catalog.Open(cfg)
	if err != nil {
		t.Fatalf("catalog.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// NewSlice inserts a minimal audio slice for tests using the provided store.
func NewSlice(t testing.TB, store *catalog.Store, fileName string, sizeBytes int64) *catalog.Slice {
	t.Helper()

	slice, err := store.Insert(context.Background(), &catalog.Slice{
		FileName:         fileName,
		AudioFileSize:    sizeBytes,
		AudioFileType:    "m4a",
		EstimatedSeconds: 1,
	})
	if err != nil {
		t.Fatalf("store.Insert: %v", err)
	}
	return slice
}
