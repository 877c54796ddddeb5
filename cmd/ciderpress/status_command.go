package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"ciderpress/internal/catalog"
	"ciderpress/internal/config"
	"ciderpress/internal/preflight"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Check the environment and summarize the catalog",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, store *catalog.Store) error {
				results := preflight.RunAll(cfg)
				pending, err := store.ListUntranscribed(cmd.Context())
				if err != nil {
					return err
				}
				stats, err := store.Stats(cmd.Context())
				if err != nil {
					return err
				}

				if jsonOutput {
					return writeJSON(cmd, map[string]any{
						"checks":             results,
						"pending_slices":     len(pending),
						"total_slices":       stats.TotalSlices,
						"transcribed_slices": stats.TranscribedCount,
					})
				}

				out := cmd.OutOrStdout()
				colorize := shouldColorize(out)
				for _, line := range renderSectionHeader("Environment", colorize) {
					fmt.Fprintln(out, line)
				}
				allPassed := true
				for _, res := range results {
					kind := statusOK
					if !res.Passed {
						kind = statusError
						allPassed = false
					}
					fmt.Fprintln(out, renderStatusLine(res.Name, kind, res.Detail, colorize))
				}

				fmt.Fprintln(out)
				for _, line := range renderSectionHeader("Catalog", colorize) {
					fmt.Fprintln(out, line)
				}
				fmt.Fprintln(out, renderStatusLine("Slices", statusInfo,
					fmt.Sprintf("%d total, %d transcribed", stats.TotalSlices, stats.TranscribedCount), colorize))
				pendingKind := statusOK
				if len(pending) > 0 {
					pendingKind = statusWarn
				}
				fmt.Fprintln(out, renderStatusLine("Pending", pendingKind,
					fmt.Sprintf("%d slices awaiting transcription", len(pending)), colorize))

				if !allPassed {
					return fmt.Errorf("one or more environment checks failed")
				}
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit status as JSON")
	return cmd
}
