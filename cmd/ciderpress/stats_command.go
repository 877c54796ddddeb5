package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"ciderpress/internal/catalog"
	"ciderpress/internal/config"
)

func newStatsCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show catalog-wide statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, store *catalog.Store) error {
				stats, err := store.Stats(cmd.Context())
				if err != nil {
					return err
				}
				if jsonOutput {
					return writeJSON(cmd, stats)
				}

				out := cmd.OutOrStdout()
				fmt.Fprintln(out, renderTable(
					[]string{"Metric", "Value"},
					[][]string{
						{"Total slices", fmt.Sprintf("%d", stats.TotalSlices)},
						{"Transcribed", fmt.Sprintf("%d", stats.TranscribedCount)},
						{"Total audio", formatBytes(stats.TotalBytes)},
						{"Average file", formatBytes(stats.AverageBytes)},
						{"Largest file", formatBytes(stats.LargestBytes)},
					},
					[]columnAlignment{alignLeft, alignRight},
				))

				fmt.Fprintln(out)
				fmt.Fprintln(out, renderTable(
					[]string{"Length", "Slices"},
					[][]string{
						{"under 1 min", fmt.Sprintf("%d", stats.UnderMinute)},
						{"1-10 min", fmt.Sprintf("%d", stats.UnderTenMin)},
						{"10-60 min", fmt.Sprintf("%d", stats.UnderHour)},
						{"over 1 hour", fmt.Sprintf("%d", stats.OverHour)},
						{"unknown", fmt.Sprintf("%d", stats.NoDuration)},
					},
					[]columnAlignment{alignLeft, alignRight},
				))

				if stats.AvgSecondsPerTenMinutes > 0 {
					fmt.Fprintf(out, "\nObserved cost: %s per 10 minutes of audio\n",
						formatSeconds(stats.AvgSecondsPerTenMinutes))
				}
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit stats as JSON")
	return cmd
}
