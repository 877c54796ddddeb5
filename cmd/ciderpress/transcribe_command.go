package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"ciderpress/internal/catalog"
	"ciderpress/internal/config"
	"ciderpress/internal/services/whisper"
	"ciderpress/internal/transcriber"
)

// speechEngine builds the configured engine adapter. Orchestrators never
// pick an engine themselves; the command layer wires external tools.
func speechEngine(cfg *config.Config) transcriber.Engine {
	return &whisper.Engine{
		Binary:   cfg.Engine.Binary,
		Language: cfg.Engine.Language,
	}
}

func newTranscribeCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool
	var quiet bool

	cmd := &cobra.Command{
		Use:   "transcribe [slice-id...]",
		Short: "Transcribe cataloged audio slices",
		Long: `Transcribe the given slices, or every untranscribed audio slice when no
ids are passed. Slices are processed one at a time; each finished transcript
is written to the catalog in a single update.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseSliceIDs(args)
			if err != nil {
				return err
			}
			return ctx.withBatchLock(func(cfg *config.Config, store *catalog.Store) error {
				out := cmd.OutOrStdout()
				orch := transcriber.NewOrchestrator(cfg, store, speechEngine(cfg), ctx.transcriptionProgress, ctx.loggerValue())
				if !quiet && !jsonOutput {
					orch.Sink = func(ev transcriber.Event) {
						switch ev.Kind {
						case transcriber.EventSegment:
							fmt.Fprintln(out, ev.Text)
						case transcriber.EventDownload:
							// the stream already carries a percentage
							fmt.Fprintf(out, "  model download %s (%.0f%%)\n", ev.Status, ev.Progress)
						}
					}
				}

				summary, err := orch.Run(cmd.Context(), ids)
				if err != nil {
					return err
				}

				if jsonOutput {
					return writeJSON(cmd, summary)
				}
				fmt.Fprintf(out, "Transcription complete: %d done, %d failed (processing time %s)\n",
					summary.Completed, summary.Failed, formatSeconds(summary.ElapsedSeconds))
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit the run summary as JSON")
	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "Suppress streamed transcript output")
	return cmd
}
