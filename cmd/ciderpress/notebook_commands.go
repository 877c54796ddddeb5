package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"ciderpress/internal/catalog"
	"ciderpress/internal/config"
	"ciderpress/internal/services/notebook"
)

func newNotebookCommand(ctx *commandContext) *cobra.Command {
	notebookCmd := &cobra.Command{
		Use:   "notebook",
		Short: "Sync transcriptions to an external notebook",
	}

	notebookCmd.AddCommand(newNotebookListCommand(ctx))
	notebookCmd.AddCommand(newNotebookSyncCommand(ctx))

	return notebookCmd
}

func notebookClient(cfg *config.Config) (*notebook.Client, error) {
	if !cfg.Notebook.Enabled {
		return nil, fmt.Errorf("notebook sync is disabled; enable it in the [notebook] config section")
	}
	return &notebook.Client{Binary: cfg.Notebook.Binary}, nil
}

func newNotebookListCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List available notebooks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			client, err := notebookClient(cfg)
			if err != nil {
				return err
			}
			notebooks, err := client.ListNotebooks(cmd.Context())
			if err != nil {
				return err
			}
			if jsonOutput {
				return writeJSON(cmd, notebooks)
			}

			rows := make([][]string, 0, len(notebooks))
			for _, nb := range notebooks {
				rows = append(rows, []string{nb.ID, nb.Title})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"ID", "Title"}, rows, []columnAlignment{alignLeft, alignLeft}))
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit notebooks as JSON")
	return cmd
}

func newNotebookSyncCommand(ctx *commandContext) *cobra.Command {
	var notebookID string
	var withAudio bool

	cmd := &cobra.Command{
		Use:   "sync <slice-id...>",
		Short: "Push slice transcriptions to a notebook",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseSliceIDs(args)
			if err != nil {
				return err
			}
			return ctx.withStore(func(cfg *config.Config, store *catalog.Store) error {
				client, err := notebookClient(cfg)
				if err != nil {
					return err
				}
				target := strings.TrimSpace(notebookID)
				if target == "" {
					target = cfg.Notebook.NotebookID
				}
				if target == "" {
					return fmt.Errorf("no notebook id given and none configured")
				}

				out := cmd.OutOrStdout()
				for _, id := range ids {
					slice, err := store.GetByID(cmd.Context(), id)
					if err != nil {
						return err
					}
					if slice.Transcription == nil {
						return fmt.Errorf("slice %d has no transcription to sync", id)
					}
					text := fmt.Sprintf("%s\n\n%s", slice.DisplayName(), *slice.Transcription)
					if err := client.AddText(cmd.Context(), target, text); err != nil {
						return fmt.Errorf("sync slice %d: %w", id, err)
					}
					if withAudio {
						if audioPath := slice.AudioPath(cfg.AudioDir()); audioPath != "" {
							if err := client.AddAudio(cmd.Context(), target, audioPath); err != nil {
								return fmt.Errorf("sync audio for slice %d: %w", id, err)
							}
						}
					}
					fmt.Fprintf(out, "Synced slice #%d to notebook %s\n", id, target)
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&notebookID, "notebook", "n", "", "Target notebook id (defaults to configured)")
	cmd.Flags().BoolVar(&withAudio, "audio", false, "Also upload the audio file")
	return cmd
}
