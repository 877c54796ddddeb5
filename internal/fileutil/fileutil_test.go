package fileutil

import (
	"os"
	"path/filepath"
	"testing"
)

func TestCopyFile(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src.txt")
	dst := filepath.Join(dir, "dst.txt")

	content := []byte("hello world")
	if err := os.WriteFile(src, content, 0o644); err != nil {
		t.Fatal(err)
	}

	if err := CopyFile(src, dst); err != nil {
		t.Fatal(err)
	}

	got, err := os.ReadFile(dst)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != string(content) {
		t.Fatalf("content mismatch: got %q, want %q", got, content)
	}
}

func TestCopyFileVerified(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src.m4a")
	dst := filepath.Join(dir, "dst.m4a")

	content := []byte("verified copy content")
	if err := os.WriteFile(src, content, 0o644); err != nil {
		t.Fatal(err)
	}

	written, err := CopyFileVerified(src, dst)
	if err != nil {
		t.Fatal(err)
	}
	if written != int64(len(content)) {
		t.Fatalf("expected %d bytes written, got %d", len(content), written)
	}

	got, err := os.ReadFile(dst)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != string(content) {
		t.Fatalf("content mismatch: got %q, want %q", got, content)
	}
}

func TestCopyFileVerified_ChecksDestinationOnDisk(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src.m4a")
	dst := filepath.Join(dir, "dst.m4a")

	if err := os.WriteFile(src, []byte("on-disk verification"), 0o644); err != nil {
		t.Fatal(err)
	}

	written, err := CopyFileVerified(src, dst)
	if err != nil {
		t.Fatal(err)
	}

	info, err := os.Stat(dst)
	if err != nil {
		t.Fatalf("destination missing after verified copy: %v", err)
	}
	if info.Size() != written {
		t.Fatalf("destination size %d, want %d", info.Size(), written)
	}

	srcSum, err := HashFile(src)
	if err != nil {
		t.Fatal(err)
	}
	dstSum, err := HashFile(dst)
	if err != nil {
		t.Fatal(err)
	}
	if string(srcSum) != string(dstSum) {
		t.Fatal("destination hash does not match source")
	}
}

func TestCopyFileVerified_MissingSource(t *testing.T) {
	dir := t.TempDir()

	if _, err := CopyFileVerified(filepath.Join(dir, "nonexistent"), filepath.Join(dir, "dst.m4a")); err == nil {
		t.Fatal("expected error for missing source")
	}
}
