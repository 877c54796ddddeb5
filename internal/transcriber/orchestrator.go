package transcriber

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"ciderpress/internal/catalog"
	"ciderpress/internal/config"
	"ciderpress/internal/logging"
	"ciderpress/internal/media/ffprobe"
	"ciderpress/internal/media/transcode"
	"ciderpress/internal/progress"
	"ciderpress/internal/services"
	"ciderpress/internal/textutil"
)

// Summary reports the outcome of one transcription or auto-naming batch.
type Summary struct {
	Completed int
	Failed    int
	// ElapsedSeconds is total processing time across completed slices,
	// format conversion included.
	ElapsedSeconds float64
}

// Orchestrator runs transcription batches: it pulls slices from the catalog,
// prepares their audio, drives the speech engine, and writes results back in
// a single catalog update per slice. Slices are processed strictly one at a
// time; the engine saturates the machine on its own.
type Orchestrator struct {
	cfg        *config.Config
	store      *catalog.Store
	engine     Engine
	transcoder *transcode.Transcoder
	progress   *progress.Cell[progress.TranscriptionProgress]
	logger     *slog.Logger
	// Sink receives engine events as they stream in. Optional.
	Sink EventSink
}

// NewOrchestrator builds an orchestrator around the given speech engine; the
// caller chooses and configures the engine adapter. The cell receives batch
// progress for observers; a nil cell gets a private, unobserved one.
func NewOrchestrator(cfg *config.Config, store *catalog.Store, engine Engine, cell *progress.Cell[progress.TranscriptionProgress], logger *slog.Logger) *Orchestrator {
	if cell == nil {
		cell = &progress.Cell[progress.TranscriptionProgress]{}
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Orchestrator{
		cfg:    cfg,
		store:  store,
		engine: engine,
		transcoder: &transcode.Transcoder{
			Binary: cfg.FFmpegBinary(),
		},
		progress: cell,
		logger:   logging.NewComponentLogger(logger, "transcriber"),
	}
}

func (o *Orchestrator) emit(ev Event) {
	if o.Sink != nil {
		o.Sink(ev)
	}
}

// Run transcribes the given slices, or every untranscribed audio slice when
// ids is empty. Single-slice failures are counted and the batch continues;
// only failures that would repeat identically for every slice abort it.
func (o *Orchestrator) Run(ctx context.Context, ids []int64) (Summary, error) {
	ctx = services.WithRequestID(ctx, uuid.NewString())
	slices, err := o.resolveTargets(ctx, ids)
	if err != nil {
		return Summary{}, err
	}

	defer o.progress.Clear()
	rate := o.throughput(ctx)
	o.progress.Begin(progress.TranscriptionProgress{
		TotalSlices:           len(slices),
		EstimatedTotalSeconds: batchEstimate(slices, rate),
		BytesPerSecond:        rate,
		StartedAt:             time.Now(),
	})

	var summary Summary
	for _, slice := range slices {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		itemCtx := services.WithSliceID(ctx, slice.ID)
		elapsed, err := o.transcribeOne(itemCtx, slice, rate)
		if err != nil {
			summary.Failed++
			o.progress.Update(func(p *progress.TranscriptionProgress) {
				p.FailedSlices++
			})
			logging.WithContext(itemCtx, o.logger).Error("slice failed", logging.Error(err))
			if services.AbortsBatch(err) {
				return summary, err
			}
			continue
		}
		summary.Completed++
		summary.ElapsedSeconds += elapsed
		o.progress.Update(func(p *progress.TranscriptionProgress) {
			p.CompletedSlices++
		})
	}

	o.logger.Info("transcription batch finished",
		logging.Int("completed", summary.Completed),
		logging.Int("failed", summary.Failed),
		logging.Float64("processing_seconds", summary.ElapsedSeconds))
	return summary, nil
}

// resolveTargets loads the slices a batch should process. Explicit ids are
// fetched individually so a bad id fails fast rather than mid-batch.
func (o *Orchestrator) resolveTargets(ctx context.Context, ids []int64) ([]*catalog.Slice, error) {
	if len(ids) == 0 {
		return o.store.ListUntranscribed(ctx)
	}
	slices := make([]*catalog.Slice, 0, len(ids))
	for _, id := range ids {
		slice, err := o.store.GetByID(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("resolve slice %d: %w", id, err)
		}
		slices = append(slices, slice)
	}
	return slices, nil
}

// throughput returns the historical byte rate, falling back to the default
// when no completed transcriptions exist yet.
func (o *Orchestrator) throughput(ctx context.Context) float64 {
	rate, ok, err := o.store.HistoricalThroughput(ctx)
	if err != nil {
		o.logger.Warn("throughput query failed", logging.Error(err))
		return catalog.DefaultThroughput
	}
	if !ok {
		return catalog.DefaultThroughput
	}
	return rate
}

func batchEstimate(slices []*catalog.Slice, rate float64) float64 {
	var total float64
	for _, s := range slices {
		total += sliceEstimate(s, rate)
	}
	return total
}

// sliceEstimate prefers the stored per-slice estimate; a slice cataloged
// without one falls back to size over the historical rate.
func sliceEstimate(s *catalog.Slice, rate float64) float64 {
	if s.EstimatedSeconds > 0 {
		return float64(s.EstimatedSeconds)
	}
	if rate <= 0 {
		rate = catalog.DefaultThroughput
	}
	return float64(s.AudioFileSize) / rate
}

// transcribeOne processes a single slice end to end and returns the seconds
// spent, conversion and engine run combined; that figure seeds the stored
// throughput, so it has to cover everything a future slice will pay for.
// The catalog is updated exactly once, after the engine run completes, so a
// crash mid-run leaves the slice untranscribed and eligible for the next
// batch.
func (o *Orchestrator) transcribeOne(ctx context.Context, slice *catalog.Slice, rate float64) (float64, error) {
	o.progress.Update(func(p *progress.TranscriptionProgress) {
		p.CurrentSliceID = slice.ID
		p.CurrentSliceName = slice.DisplayName()
		p.CurrentStep = "preparing audio"
		p.CurrentFileBytes = slice.AudioFileSize
		p.CurrentEstimatedSeconds = sliceEstimate(slice, rate)
		p.CurrentStartedAt = time.Now()
	})

	audioPath := slice.AudioPath(o.cfg.AudioDir())
	if _, err := os.Stat(audioPath); err != nil {
		return 0, services.Wrap(services.ErrNotFound, "transcribe", "locate audio",
			fmt.Sprintf("audio file for slice %d", slice.ID), err)
	}

	start := time.Now()
	enginePath, cleanup, err := o.prepareAudio(ctx, audioPath)
	if err != nil {
		return 0, err
	}
	defer cleanup()

	o.progress.Update(func(p *progress.TranscriptionProgress) {
		p.CurrentStep = "transcribing"
	})
	text, err := o.runEngine(ctx, enginePath)
	if err != nil {
		return 0, err
	}
	elapsed := time.Since(start).Seconds()

	o.progress.Update(func(p *progress.TranscriptionProgress) {
		p.CurrentStep = "saving"
	})
	words := textutil.CountWords(text)
	if err := o.store.UpdateTranscription(ctx, slice.ID, text, elapsed, words, o.cfg.Engine.Model); err != nil {
		return 0, fmt.Errorf("save transcription for slice %d: %w", slice.ID, err)
	}

	logging.WithContext(ctx, o.logger).Info("slice transcribed",
		logging.Float64("processing_seconds", elapsed),
		logging.Int64("words", words))
	return elapsed, nil
}

// prepareAudio hands back a path the engine can consume, converting to the
// canonical format when the managed copy is not already in it. The cleanup
// function removes any intermediate file.
func (o *Orchestrator) prepareAudio(ctx context.Context, audioPath string) (string, func(), error) {
	if transcode.IsCanonical(audioPath) {
		return audioPath, func() {}, nil
	}
	converted, err := o.transcoder.ConvertToCanonical(ctx, audioPath)
	if err != nil {
		return "", nil, err
	}
	return converted, func() { _ = os.Remove(converted) }, nil
}

// runEngine drives one engine invocation and joins the streamed segments
// into the final transcript.
func (o *Orchestrator) runEngine(ctx context.Context, audioPath string) (string, error) {
	var segments []string
	sink := func(ev Event) {
		if ev.Kind == EventSegment {
			if text := strings.TrimSpace(ev.Text); text != "" {
				segments = append(segments, text)
			}
		}
		o.emit(ev)
	}

	if err := o.engine.Transcribe(ctx, audioPath, o.cfg.Engine.Model, sink); err != nil {
		return "", err
	}
	return strings.Join(segments, " "), nil
}

// AutoName transcribes a short leading prefix of each slice and renames the
// managed file after the opening words. Slices whose derived name collides
// with an existing file are counted as failures and left untouched.
func (o *Orchestrator) AutoName(ctx context.Context, ids []int64) (Summary, error) {
	ctx = services.WithRequestID(ctx, uuid.NewString())
	slices, err := o.resolveTargets(ctx, ids)
	if err != nil {
		return Summary{}, err
	}

	defer o.progress.Clear()
	o.progress.Begin(progress.TranscriptionProgress{
		TotalSlices: len(slices),
		StartedAt:   time.Now(),
	})

	var summary Summary
	for _, slice := range slices {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		itemCtx := services.WithSliceID(ctx, slice.ID)
		if err := o.autoNameOne(itemCtx, slice); err != nil {
			summary.Failed++
			o.progress.Update(func(p *progress.TranscriptionProgress) {
				p.FailedSlices++
			})
			logging.WithContext(itemCtx, o.logger).Error("auto-name failed", logging.Error(err))
			if services.AbortsBatch(err) {
				return summary, err
			}
			continue
		}
		summary.Completed++
		o.progress.Update(func(p *progress.TranscriptionProgress) {
			p.CompletedSlices++
		})
	}
	return summary, nil
}

func (o *Orchestrator) autoNameOne(ctx context.Context, slice *catalog.Slice) error {
	o.progress.Update(func(p *progress.TranscriptionProgress) {
		p.CurrentSliceID = slice.ID
		p.CurrentSliceName = slice.DisplayName()
		p.CurrentStep = "extracting prefix"
		p.CurrentStartedAt = time.Now()
	})

	audioPath := slice.AudioPath(o.cfg.AudioDir())
	if _, err := os.Stat(audioPath); err != nil {
		return services.Wrap(services.ErrNotFound, "auto-name", "locate audio",
			fmt.Sprintf("audio file for slice %d", slice.ID), err)
	}

	prefix, err := o.transcoder.ExtractPrefix(ctx, audioPath, o.cfg.Naming.PrefixSeconds)
	if err != nil {
		return err
	}
	defer os.Remove(prefix)

	enginePath, cleanup, err := o.prepareAudio(ctx, prefix)
	if err != nil {
		return err
	}
	defer cleanup()

	o.progress.Update(func(p *progress.TranscriptionProgress) {
		p.CurrentStep = "transcribing prefix"
	})
	text, err := o.runEngine(ctx, enginePath)
	if err != nil {
		return err
	}

	name := textutil.TranscriptName(text, slice.ID)
	newFileName := name + filepath.Ext(slice.FileName)
	if newFileName == slice.FileName {
		return nil
	}

	o.progress.Update(func(p *progress.TranscriptionProgress) {
		p.CurrentStep = "renaming"
	})
	if err := o.store.Rename(ctx, slice.ID, newFileName); err != nil {
		return fmt.Errorf("rename slice %d to %q: %w", slice.ID, newFileName, err)
	}
	newPath := filepath.Join(o.cfg.AudioDir(), newFileName)
	if err := os.Rename(audioPath, newPath); err != nil {
		// put the record back so catalog and disk stay consistent
		if revertErr := o.store.Rename(ctx, slice.ID, slice.FileName); revertErr != nil {
			logging.WithContext(ctx, o.logger).Error("rename revert failed", logging.Error(revertErr))
		}
		return fmt.Errorf("move audio for slice %d: %w", slice.ID, err)
	}
	if err := o.store.SetTitle(ctx, slice.ID, name); err != nil {
		logging.WithContext(ctx, o.logger).Warn("title update failed", logging.Error(err))
	}

	logging.WithContext(ctx, o.logger).Info("slice renamed",
		logging.String("file", newFileName))
	return nil
}

// PopulateDurations probes audio length for every slice cataloged without
// one and stores what it finds. Files that cannot be probed are counted and
// left for a later pass.
func (o *Orchestrator) PopulateDurations(ctx context.Context) (Summary, error) {
	slices, err := o.store.ListMissingDuration(ctx)
	if err != nil {
		return Summary{}, err
	}

	var summary Summary
	for _, slice := range slices {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		audioPath := slice.AudioPath(o.cfg.AudioDir())
		seconds, ok := ffprobe.ProbeDuration(ctx, o.cfg.FFprobeBinary(), audioPath)
		if !ok {
			summary.Failed++
			o.logger.Warn("duration probe failed",
				logging.Int64("slice_id", slice.ID),
				logging.String("file", slice.FileName))
			continue
		}
		if err := o.store.UpdateDuration(ctx, slice.ID, seconds); err != nil {
			summary.Failed++
			o.logger.Error("duration update failed",
				logging.Int64("slice_id", slice.ID),
				logging.Error(err))
			continue
		}
		summary.Completed++
	}

	o.logger.Info("duration pass finished",
		logging.Int("updated", summary.Completed),
		logging.Int("failed", summary.Failed))
	return summary, nil
}

// RepairDurations drops stored durations that exceed the plausibility
// threshold so the next populate pass can re-probe them.
func (o *Orchestrator) RepairDurations(ctx context.Context) (int64, error) {
	cleared, err := o.store.ClearCorruptDurations(ctx)
	if err != nil {
		return 0, err
	}
	if cleared > 0 {
		o.logger.Info("corrupt durations cleared", logging.Int64("count", cleared))
	}
	return cleared, nil
}
