package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"ciderpress/internal/catalog"
	"ciderpress/internal/config"
	"ciderpress/internal/migration"
)

func newMigrateCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool
	var quiet bool
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Copy new voice memos into managed storage and catalog them",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withBatchLock(func(cfg *config.Config, store *catalog.Store) error {
				out := cmd.OutOrStdout()
				engine := migration.New(cfg, store, ctx.migrationProgress, ctx.loggerValue())
				if dryRun {
					preview, err := engine.Inspect(cmd.Context())
					if err != nil {
						return err
					}
					if jsonOutput {
						return writeJSON(cmd, preview)
					}
					fmt.Fprintf(out, "Source: %d audio files (%s), %d not yet cataloged\n",
						preview.SourceFiles, formatBytes(preview.SourceBytes), preview.NewFiles)
					fmt.Fprintf(out, "Catalog: %d slices\n", preview.CatalogSlices)
					return nil
				}
				if !quiet && !jsonOutput {
					engine.Sink = func(ev migration.Event) {
						switch ev.Type {
						case migration.EventFileCopied:
							fmt.Fprintf(out, "  copied  %s (%s)\n", ev.File, formatBytes(ev.Bytes))
						case migration.EventFileSkipped:
							fmt.Fprintf(out, "  skipped %s\n", ev.File)
						case migration.EventFileFailed:
							fmt.Fprintf(out, "  failed  %s\n", ev.File)
						}
					}
				}

				summary, err := engine.Run(cmd.Context())
				if err != nil {
					return err
				}

				if jsonOutput {
					return writeJSON(cmd, summary)
				}
				fmt.Fprintf(out, "Migration complete: %d copied, %d skipped, %d errors (%s)\n",
					summary.Copied, summary.Skipped, summary.Errors, formatBytes(summary.TotalBytes))
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit the run summary as JSON")
	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "Suppress per-file output")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Report what would be migrated without copying")
	return cmd
}
