package migration

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"ciderpress/internal/catalog"
	"ciderpress/internal/config"
	"ciderpress/internal/fileutil"
	"ciderpress/internal/logging"
	"ciderpress/internal/media/ffprobe"
	"ciderpress/internal/preflight"
	"ciderpress/internal/progress"
	"ciderpress/internal/services"
	"ciderpress/internal/textutil"
)

// Event describes one significant migration step for an external observer.
type Event struct {
	Type  string
	File  string
	Bytes int64
}

// Event types emitted to the sink.
const (
	EventFileCopied     = "file_copied"
	EventFileSkipped    = "file_skipped"
	EventFileFailed     = "file_failed"
	EventBatchCompleted = "batch_completed"
)

// Summary reports the outcome of one migration run. TotalBytes is the
// combined size of every audio file the scan discovered, cataloged or not.
type Summary struct {
	Copied     int
	Skipped    int
	Errors     int
	TotalBytes int64
}

// Engine migrates voice-memo audio from the source tree into managed
// storage, cataloging each new file.
type Engine struct {
	cfg      *config.Config
	store    *catalog.Store
	progress *progress.Cell[progress.MigrationProgress]
	logger   *slog.Logger
	// Sink receives events after each significant step. Optional; the
	// engine never depends on how (or whether) events are rendered.
	Sink func(Event)
}

// New constructs a migration engine. The cell receives batch progress for
// observers; a nil cell gets a private, unobserved one.
func New(cfg *config.Config, store *catalog.Store, cell *progress.Cell[progress.MigrationProgress], logger *slog.Logger) *Engine {
	if cell == nil {
		cell = &progress.Cell[progress.MigrationProgress]{}
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Engine{
		cfg:      cfg,
		store:    store,
		progress: cell,
		logger:   logging.NewComponentLogger(logger, "migration"),
	}
}

func (e *Engine) emit(ev Event) {
	if e.Sink != nil {
		e.Sink(ev)
	}
}

type candidate struct {
	path string
	name string
	size int64
}

// Preview compares the source tree against the catalog without copying
// anything: how many audio files the scan finds, their combined size, and
// how many are not yet cataloged.
type Preview struct {
	SourceFiles   int
	SourceBytes   int64
	NewFiles      int
	CatalogSlices int64
}

// Inspect scans the source tree and reports what a migration run would do.
func (e *Engine) Inspect(ctx context.Context) (Preview, error) {
	if status := preflight.InspectSourceRoot(e.cfg); status.Blocking() {
		return Preview{}, services.Wrap(services.ErrConfiguration, "migration", "preflight",
			fmt.Sprintf("source root %s: %s", e.cfg.Paths.SourceRoot, status), nil)
	}

	candidates, _ := e.scan(e.logger)
	preview := Preview{SourceFiles: len(candidates)}
	for _, c := range candidates {
		preview.SourceBytes += c.size
		exists, err := e.store.Exists(ctx, c.name)
		if err != nil {
			return Preview{}, err
		}
		if !exists {
			preview.NewFiles++
		}
	}

	stats, err := e.store.Stats(ctx)
	if err != nil {
		return Preview{}, err
	}
	preview.CatalogSlices = stats.TotalSlices
	return preview, nil
}

// Run executes one migration batch. Single-file failures are counted and
// skipped; only source-level problems (missing or unreadable root) abort the
// run. The shared progress snapshot is cleared on every exit path.
func (e *Engine) Run(ctx context.Context) (Summary, error) {
	ctx = services.WithRequestID(ctx, uuid.NewString())
	log := logging.WithContext(ctx, e.logger)

	defer e.progress.Clear()
	e.progress.Begin(progress.MigrationProgress{
		CurrentStep: "initializing",
		StartedAt:   time.Now(),
	})

	if status := preflight.InspectSourceRoot(e.cfg); status.Blocking() {
		log.Error("source root unusable",
			logging.String("source_root", e.cfg.Paths.SourceRoot),
			logging.String("status", status.String()))
		return Summary{}, services.Wrap(services.ErrConfiguration, "migration", "preflight",
			fmt.Sprintf("source root %s: %s", e.cfg.Paths.SourceRoot, status), nil)
	}

	if err := e.cfg.EnsureDirectories(); err != nil {
		return Summary{}, services.Wrap(services.ErrConfiguration, "migration", "prepare storage", "", err)
	}

	if err := e.importIndex(ctx, log); err != nil {
		return Summary{}, err
	}

	e.setStep("scanning source tree")
	candidates, accessErrors := e.scan(log)
	log.Info("scan complete",
		logging.Int("candidates", len(candidates)),
		logging.Int("access_errors", accessErrors))

	summary := Summary{Errors: accessErrors}
	for _, c := range candidates {
		summary.TotalBytes += c.size
	}
	e.progress.Update(func(p *progress.MigrationProgress) {
		p.TotalRecordings = len(candidates)
		p.TotalBytes = summary.TotalBytes
		p.FailedRecordings = accessErrors
	})

	for _, c := range candidates {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		e.migrateOne(ctx, log, c, &summary)
	}

	e.setStep("completed")
	e.emit(Event{Type: EventBatchCompleted, Bytes: summary.TotalBytes})
	log.Info("migration finished",
		logging.Int("copied", summary.Copied),
		logging.Int("skipped", summary.Skipped),
		logging.Int("errors", summary.Errors),
		logging.Int64("bytes", summary.TotalBytes))
	return summary, nil
}

// RetitleUntitled derives a title for every slice that has none, from its
// file name and recording date. Returns how many titles were written.
func (e *Engine) RetitleUntitled(ctx context.Context) (int, error) {
	slices, err := e.store.ListAll(ctx)
	if err != nil {
		return 0, err
	}
	updated := 0
	for _, s := range slices {
		if strings.TrimSpace(s.Title) != "" {
			continue
		}
		title := textutil.DeriveTitle(s.FileName, s.RecordingDate)
		if err := e.store.SetTitle(ctx, s.ID, title); err != nil {
			return updated, err
		}
		updated++
	}
	if updated > 0 {
		e.logger.Info("titles derived", logging.Int("count", updated))
	}
	return updated, nil
}

// importIndex copies recording timestamps out of the source metadata index
// and backfills slices cataloged before the index was available. A source
// tree without an index just costs recording dates; an index that exists
// but cannot be read aborts the run, because every later lookup would fail
// the same way.
func (e *Engine) importIndex(ctx context.Context, log *slog.Logger) error {
	e.setStep("importing recording index")
	indexPath := e.cfg.IndexPath()
	if _, err := os.Stat(indexPath); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			log.Warn("recording index absent", logging.String("path", indexPath))
			return nil
		}
		return services.Wrap(services.ErrConfiguration, "migration", "import index",
			fmt.Sprintf("recording index %s", indexPath), err)
	}
	imported, err := e.store.ImportRecordingDates(ctx, indexPath)
	if err != nil {
		return services.Wrap(services.ErrConfiguration, "migration", "import index",
			fmt.Sprintf("recording index %s", indexPath), err)
	}
	backfilled, err := e.store.BackfillRecordingDates(ctx)
	if err != nil {
		log.Warn("recording date backfill failed", logging.Error(err))
	}
	log.Info("recording index imported",
		logging.Int64("rows", imported),
		logging.Int64("backfilled", backfilled))
	return nil
}

// scan walks the source tree collecting audio files by extension. Unreadable
// entries are counted, never fatal.
func (e *Engine) scan(log *slog.Logger) ([]candidate, int) {
	var (
		candidates   []candidate
		accessErrors int
	)
	allowed := make(map[string]struct{}, len(e.cfg.Migration.AudioExtensions))
	for _, ext := range e.cfg.Migration.AudioExtensions {
		allowed[ext] = struct{}{}
	}

	_ = filepath.WalkDir(e.cfg.Paths.SourceRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			accessErrors++
			log.Warn("cannot access source entry", logging.String("path", path), logging.Error(err))
			return nil
		}
		if d.IsDir() {
			return nil
		}
		ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
		if _, ok := allowed[ext]; !ok {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			accessErrors++
			log.Warn("cannot stat source file", logging.String("path", path), logging.Error(err))
			return nil
		}
		candidates = append(candidates, candidate{
			path: path,
			name: d.Name(),
			size: info.Size(),
		})
		return nil
	})
	return candidates, accessErrors
}

func (e *Engine) migrateOne(ctx context.Context, log *slog.Logger, c candidate, summary *Summary) {
	e.progress.Update(func(p *progress.MigrationProgress) {
		p.CurrentFile = c.name
		p.CurrentStep = "checking catalog"
	})

	exists, err := e.store.Exists(ctx, c.name)
	if err != nil {
		e.recordFailure(log, c, summary, err)
		return
	}
	if exists {
		summary.Skipped++
		e.progress.Update(func(p *progress.MigrationProgress) {
			p.ProcessedRecordings++
			p.ProcessedBytes += c.size
		})
		e.emit(Event{Type: EventFileSkipped, File: c.name, Bytes: c.size})
		return
	}

	e.progress.Update(func(p *progress.MigrationProgress) {
		p.CurrentStep = "copying"
	})
	dest := filepath.Join(e.cfg.AudioDir(), c.name)
	written, err := fileutil.CopyFileVerified(c.path, dest)
	if err != nil {
		e.recordFailure(log, c, summary, fmt.Errorf("verified copy: %w", err))
		return
	}

	e.progress.Update(func(p *progress.MigrationProgress) {
		p.CurrentStep = "probing duration"
	})
	var duration *float64
	if seconds, ok := ffprobe.ProbeDuration(ctx, e.cfg.FFprobeBinary(), dest); ok {
		duration = &seconds
	} else {
		log.Warn("duration unknown", logging.String("file", c.name))
	}

	recordedAt, err := e.store.LookupRecordingDate(ctx, c.name)
	if err != nil {
		log.Warn("recording date lookup failed", logging.String("file", c.name), logging.Error(err))
		recordedAt = nil
	}

	slice := &catalog.Slice{
		FileName:         c.name,
		Title:            textutil.DeriveTitle(c.name, recordedAt),
		AudioFileSize:    written,
		AudioFileType:    strings.TrimPrefix(strings.ToLower(filepath.Ext(c.name)), "."),
		EstimatedSeconds: EstimateSeconds(written, duration),
		DurationSeconds:  duration,
		RecordingDate:    recordedAt,
	}
	if _, err := e.store.Insert(ctx, slice); err != nil {
		// remove the orphaned copy so a later run retries cleanly
		_ = os.Remove(dest)
		e.recordFailure(log, c, summary, fmt.Errorf("insert slice: %w", err))
		return
	}

	summary.Copied++
	e.progress.Update(func(p *progress.MigrationProgress) {
		p.ProcessedRecordings++
		p.ProcessedBytes += written
	})
	e.emit(Event{Type: EventFileCopied, File: c.name, Bytes: written})
	log.Info("migrated", logging.String("file", c.name), logging.Int64("bytes", written))
}

func (e *Engine) recordFailure(log *slog.Logger, c candidate, summary *Summary, err error) {
	summary.Errors++
	e.progress.Update(func(p *progress.MigrationProgress) {
		p.ProcessedRecordings++
		p.FailedRecordings++
	})
	e.emit(Event{Type: EventFileFailed, File: c.name, Bytes: c.size})
	log.Error("file migration failed", logging.String("file", c.name), logging.Error(err))
}

func (e *Engine) setStep(step string) {
	e.progress.Update(func(p *progress.MigrationProgress) {
		p.CurrentStep = step
	})
}
