package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"ciderpress/internal/catalog"
	"ciderpress/internal/config"
	"ciderpress/internal/transcriber"
)

func newDurationsCommand(ctx *commandContext) *cobra.Command {
	durationsCmd := &cobra.Command{
		Use:   "durations",
		Short: "Maintain stored audio durations",
	}

	durationsCmd.AddCommand(newDurationsPopulateCommand(ctx))
	durationsCmd.AddCommand(newDurationsRepairCommand(ctx))

	return durationsCmd
}

func newDurationsPopulateCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "populate",
		Short: "Probe and store length for slices missing one",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withBatchLock(func(cfg *config.Config, store *catalog.Store) error {
				// duration passes never invoke the speech engine
				orch := transcriber.NewOrchestrator(cfg, store, nil, nil, ctx.loggerValue())
				summary, err := orch.PopulateDurations(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Durations populated: %d updated, %d unprobeable\n",
					summary.Completed, summary.Failed)
				return nil
			})
		},
	}
}

func newDurationsRepairCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "repair",
		Short: "Clear implausible stored durations so they can be re-probed",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withBatchLock(func(cfg *config.Config, store *catalog.Store) error {
				orch := transcriber.NewOrchestrator(cfg, store, nil, nil, ctx.loggerValue())
				cleared, err := orch.RepairDurations(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Cleared %d implausible durations\n", cleared)
				return nil
			})
		},
	}
}
