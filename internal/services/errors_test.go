package services_test

import (
	"errors"
	"strings"
	"testing"

	"ciderpress/internal/services"
)

func TestWrapIncludesContext(t *testing.T) {
	base := errors.New("boom")
	err := services.Wrap(services.ErrExternalTool, "transcode", "convert", "failed", base)
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected marker to be retained, got %v", err)
	}
	if !errors.Is(err, base) {
		t.Fatalf("expected wrapped error to contain base error, got %v", err)
	}
	msg := err.Error()
	for _, fragment := range []string{"transcode", "convert", "failed"} {
		if !strings.Contains(msg, fragment) {
			t.Fatalf("expected %q in error string %q", fragment, msg)
		}
	}
}

func TestWrapDefaultsMarkerAndDetail(t *testing.T) {
	err := services.Wrap(nil, "", "", "", nil)
	if !errors.Is(err, services.ErrTransient) {
		t.Fatalf("expected transient marker, got %v", err)
	}
	if !strings.Contains(err.Error(), "service failure") {
		t.Fatalf("expected default detail, got %q", err.Error())
	}
}

func TestAbortsBatch(t *testing.T) {
	cfgErr := services.Wrap(services.ErrConfiguration, "transcribe", "setup", "missing model", nil)
	if !services.AbortsBatch(cfgErr) {
		t.Fatal("expected configuration error to abort batch")
	}

	toolErr := services.Wrap(services.ErrExternalTool, "transcribe", "run", "engine exited", errors.New("exit 1"))
	if services.AbortsBatch(toolErr) {
		t.Fatal("expected external tool error to be recorded per slice")
	}
	if services.AbortsBatch(nil) {
		t.Fatal("expected nil error not to abort")
	}
}
