package transcriber_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"ciderpress/internal/catalog"
	"ciderpress/internal/config"
	"ciderpress/internal/progress"
	"ciderpress/internal/services"
	"ciderpress/internal/testsupport"
	"ciderpress/internal/transcriber"
)

// scriptedEngine replays canned events instead of spawning a subprocess.
type scriptedEngine struct {
	segments []string
	err      error
	paths    []string
	models   []string
}

func (e *scriptedEngine) Transcribe(ctx context.Context, audioPath, model string, sink transcriber.EventSink) error {
	e.paths = append(e.paths, audioPath)
	e.models = append(e.models, model)
	for _, s := range e.segments {
		sink(transcriber.Event{Kind: transcriber.EventSegment, Text: s})
	}
	return e.err
}

// seedAudioSlice catalogs a slice and drops a matching file into managed
// storage. The .wav name keeps the orchestrator away from ffmpeg.
func seedAudioSlice(t *testing.T, cfg *config.Config, store *catalog.Store, name string, size int64) *catalog.Slice {
	t.Helper()
	testsupport.WriteFile(t, filepath.Join(cfg.AudioDir(), name), size)
	return testsupport.NewSlice(t, store, name, size)
}

func TestRunTranscribesUntranscribedSlices(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}

	slice := seedAudioSlice(t, cfg, store, "memo.wav", 2048)
	engine := &scriptedEngine{segments: []string{"remember to", "buy apples"}}

	cell := &progress.Cell[progress.TranscriptionProgress]{}
	orch := transcriber.NewOrchestrator(cfg, store, engine, cell, nil)
	summary, err := orch.Run(ctx, nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.Completed != 1 || summary.Failed != 0 {
		t.Fatalf("unexpected summary: %+v", summary)
	}
	if len(engine.paths) != 1 || filepath.Base(engine.paths[0]) != "memo.wav" {
		t.Fatalf("engine saw wrong audio: %v", engine.paths)
	}
	if engine.models[0] != cfg.Engine.Model {
		t.Fatalf("engine saw model %q, want %q", engine.models[0], cfg.Engine.Model)
	}

	updated, err := store.GetByID(ctx, slice.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if !updated.Transcribed {
		t.Fatal("slice not marked transcribed")
	}
	if updated.Transcription == nil || *updated.Transcription != "remember to buy apples" {
		t.Fatalf("unexpected transcript: %v", updated.Transcription)
	}
	if updated.WordCount == nil || *updated.WordCount != 4 {
		t.Fatalf("unexpected word count: %v", updated.WordCount)
	}
	if updated.Model == nil || *updated.Model != cfg.Engine.Model {
		t.Fatalf("unexpected model: %v", updated.Model)
	}

	if _, active := cell.Snapshot(); active {
		t.Fatal("progress cell left active after Run")
	}
}

func TestRunContinuesPastSingleSliceFailure(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}

	// cataloged but the managed file is gone
	missing := testsupport.NewSlice(t, store, "gone.wav", 100)
	good := seedAudioSlice(t, cfg, store, "ok.wav", 100)

	engine := &scriptedEngine{segments: []string{"hello"}}
	orch := transcriber.NewOrchestrator(cfg, store, engine, nil, nil)
	summary, err := orch.Run(ctx, []int64{missing.ID, good.ID})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.Completed != 1 || summary.Failed != 1 {
		t.Fatalf("unexpected summary: %+v", summary)
	}

	updated, err := store.GetByID(ctx, good.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if !updated.Transcribed {
		t.Fatal("surviving slice not transcribed")
	}
	still, err := store.GetByID(ctx, missing.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if still.Transcribed {
		t.Fatal("failed slice must stay untranscribed")
	}
}

func TestRunEngineFailureLeavesSliceUntranscribed(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}

	slice := seedAudioSlice(t, cfg, store, "bad.wav", 100)
	engine := &scriptedEngine{
		segments: []string{"partial"},
		err:      services.Wrap(services.ErrExternalTool, "transcribe", "engine", "decode failed", nil),
	}

	orch := transcriber.NewOrchestrator(cfg, store, engine, nil, nil)
	summary, err := orch.Run(ctx, nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.Completed != 0 || summary.Failed != 1 {
		t.Fatalf("unexpected summary: %+v", summary)
	}

	updated, err := store.GetByID(ctx, slice.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if updated.Transcribed || updated.Transcription != nil {
		t.Fatal("partial engine output must not be saved")
	}
}

func TestRunElapsedCoversConversion(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}

	// slow conversion path: the .m4a forces a transcode through the stub
	writeStub(t, "ffmpeg", "#!/bin/sh\nsleep 1\nfor a; do last=$a; done\nprintf 'RIFFdata' > \"$last\"\n")
	slice := seedAudioSlice(t, cfg, store, "memo.m4a", 100)

	engine := &scriptedEngine{segments: []string{"hello"}}
	orch := transcriber.NewOrchestrator(cfg, store, engine, nil, nil)
	summary, err := orch.Run(ctx, []int64{slice.ID})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.Completed != 1 {
		t.Fatalf("unexpected summary: %+v", summary)
	}

	updated, err := store.GetByID(ctx, slice.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if updated.TranscribeSeconds == nil || *updated.TranscribeSeconds < 1 {
		t.Fatalf("stored time must include conversion, got %v", updated.TranscribeSeconds)
	}
}

func TestRunUnknownIDFailsFast(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	orch := transcriber.NewOrchestrator(cfg, store, &scriptedEngine{}, nil, nil)
	_, err := orch.Run(context.Background(), []int64{4242})
	if err == nil {
		t.Fatal("expected error for unknown slice id")
	}
	if !errors.Is(err, catalog.ErrNotFound) {
		t.Fatalf("expected catalog.ErrNotFound, got %v", err)
	}
}

func TestRunForwardsEngineEvents(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}
	seedAudioSlice(t, cfg, store, "memo.wav", 100)

	engine := &scriptedEngine{segments: []string{"one", "two"}}
	orch := transcriber.NewOrchestrator(cfg, store, engine, nil, nil)
	var seen []transcriber.Event
	orch.Sink = func(ev transcriber.Event) { seen = append(seen, ev) }

	if _, err := orch.Run(context.Background(), nil); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(seen) != 2 || seen[0].Text != "one" || seen[1].Text != "two" {
		t.Fatalf("events not forwarded in order: %+v", seen)
	}
}

func TestAutoNameRenamesFileAndRecord(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}
	stubFFmpeg(t)

	slice := seedAudioSlice(t, cfg, store, "memo.wav", 2048)
	engine := &scriptedEngine{segments: []string{"grocery list", "for saturday"}}

	orch := transcriber.NewOrchestrator(cfg, store, engine, nil, nil)
	summary, err := orch.AutoName(ctx, []int64{slice.ID})
	if err != nil {
		t.Fatalf("AutoName: %v", err)
	}
	if summary.Completed != 1 || summary.Failed != 0 {
		t.Fatalf("unexpected summary: %+v", summary)
	}

	updated, err := store.GetByID(ctx, slice.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if updated.FileName != "grocery list for saturday.wav" {
		t.Fatalf("unexpected file name: %q", updated.FileName)
	}
	if _, err := os.Stat(filepath.Join(cfg.AudioDir(), updated.FileName)); err != nil {
		t.Fatalf("renamed file missing on disk: %v", err)
	}
	if _, err := os.Stat(filepath.Join(cfg.AudioDir(), "memo.wav")); !os.IsNotExist(err) {
		t.Fatal("old file should be gone")
	}
	if updated.Title == "" {
		t.Fatal("expected title set from derived name")
	}
}

func TestAutoNameConflictCountsAsFailure(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}
	stubFFmpeg(t)

	seedAudioSlice(t, cfg, store, "taken.wav", 100)
	slice := seedAudioSlice(t, cfg, store, "memo.wav", 100)
	engine := &scriptedEngine{segments: []string{"taken"}}

	orch := transcriber.NewOrchestrator(cfg, store, engine, nil, nil)
	summary, err := orch.AutoName(ctx, []int64{slice.ID})
	if err != nil {
		t.Fatalf("AutoName: %v", err)
	}
	if summary.Failed != 1 {
		t.Fatalf("expected conflict to count as failure: %+v", summary)
	}

	updated, err := store.GetByID(ctx, slice.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if updated.FileName != "memo.wav" {
		t.Fatalf("conflicting rename must leave record untouched, got %q", updated.FileName)
	}
}

func TestAutoNameFallsBackToSliceID(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}
	stubFFmpeg(t)

	slice := seedAudioSlice(t, cfg, store, "memo.wav", 100)
	engine := &scriptedEngine{} // no speech in the prefix

	orch := transcriber.NewOrchestrator(cfg, store, engine, nil, nil)
	if _, err := orch.AutoName(ctx, []int64{slice.ID}); err != nil {
		t.Fatalf("AutoName: %v", err)
	}

	updated, err := store.GetByID(ctx, slice.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	want := "Slice " + strconv.FormatInt(slice.ID, 10) + ".wav"
	if updated.FileName != want {
		t.Fatalf("got %q, want %q", updated.FileName, want)
	}
}

func TestPopulateDurationsCountsUnprobeableFiles(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}

	// synthetic bytes, so ffprobe (stubbed or real) reports nothing usable
	stubFFprobe(t)
	seedAudioSlice(t, cfg, store, "memo.wav", 100)

	orch := transcriber.NewOrchestrator(cfg, store, &scriptedEngine{}, nil, nil)
	summary, err := orch.PopulateDurations(ctx)
	if err != nil {
		t.Fatalf("PopulateDurations: %v", err)
	}
	if summary.Completed != 0 || summary.Failed != 1 {
		t.Fatalf("unexpected summary: %+v", summary)
	}
}

func TestRepairDurationsClearsImplausibleValues(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	slice := testsupport.NewSlice(t, store, "memo.m4a", 100)
	if err := store.UpdateDuration(ctx, slice.ID, 2_000_000); err != nil {
		t.Fatalf("UpdateDuration: %v", err)
	}

	orch := transcriber.NewOrchestrator(cfg, store, &scriptedEngine{}, nil, nil)
	cleared, err := orch.RepairDurations(ctx)
	if err != nil {
		t.Fatalf("RepairDurations: %v", err)
	}
	if cleared != 1 {
		t.Fatalf("expected 1 cleared duration, got %d", cleared)
	}

	updated, err := store.GetByID(ctx, slice.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if updated.DurationSeconds != nil {
		t.Fatalf("duration not cleared: %v", *updated.DurationSeconds)
	}
}

// stubFFmpeg installs an ffmpeg that copies nothing but creates its output
// argument, enough for prefix extraction in tests.
func stubFFmpeg(t *testing.T) {
	t.Helper()
	writeStub(t, "ffmpeg", "#!/bin/sh\nfor a; do last=$a; done\nprintf 'RIFFdata' > \"$last\"\n")
}

// stubFFprobe installs an ffprobe that always fails, forcing the unknown
// duration path.
func stubFFprobe(t *testing.T) {
	t.Helper()
	writeStub(t, "ffprobe", "#!/bin/sh\nexit 1\n")
}

func writeStub(t *testing.T, name, script string) {
	t.Helper()
	binDir := t.TempDir()
	if err := os.WriteFile(filepath.Join(binDir, name), []byte(script), 0o755); err != nil {
		t.Fatalf("write stub %s: %v", name, err)
	}
	t.Setenv("PATH", binDir+string(os.PathListSeparator)+os.Getenv("PATH"))
}
