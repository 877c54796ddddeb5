package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"ciderpress/internal/catalog"
	"ciderpress/internal/config"
	"ciderpress/internal/migration"
	"ciderpress/internal/textutil"
	"ciderpress/internal/transcriber"
)

func newSlicesCommand(ctx *commandContext) *cobra.Command {
	slicesCmd := &cobra.Command{
		Use:   "slices",
		Short: "Inspect and manage cataloged slices",
	}

	slicesCmd.AddCommand(newSlicesListCommand(ctx))
	slicesCmd.AddCommand(newSlicesShowCommand(ctx))
	slicesCmd.AddCommand(newSlicesRenameCommand(ctx))
	slicesCmd.AddCommand(newSlicesAutoNameCommand(ctx))
	slicesCmd.AddCommand(newSlicesAddTextCommand(ctx))
	slicesCmd.AddCommand(newSlicesRetitleCommand(ctx))

	return slicesCmd
}

func newSlicesListCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool
	var pendingOnly bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List cataloged slices",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, store *catalog.Store) error {
				var (
					slices []*catalog.Slice
					err    error
				)
				if pendingOnly {
					slices, err = store.ListUntranscribed(cmd.Context())
				} else {
					slices, err = store.ListAll(cmd.Context())
				}
				if err != nil {
					return err
				}

				if jsonOutput {
					return writeJSON(cmd, slices)
				}

				rows := make([][]string, 0, len(slices))
				for _, s := range slices {
					duration := "-"
					if s.DurationSeconds != nil {
						duration = formatSeconds(*s.DurationSeconds)
					}
					rows = append(rows, []string{
						fmt.Sprintf("%d", s.ID),
						s.DisplayName(),
						s.AudioFileType,
						formatBytes(s.AudioFileSize),
						duration,
						yesNo(s.Transcribed),
					})
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable(
					[]string{"ID", "Name", "Type", "Size", "Length", "Transcribed"},
					rows,
					[]columnAlignment{alignRight, alignLeft, alignLeft, alignRight, alignRight, alignLeft},
				))
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit slices as JSON")
	cmd.Flags().BoolVar(&pendingOnly, "pending", false, "Only slices awaiting transcription")
	return cmd
}

func newSlicesShowCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "show <slice-id>",
		Short: "Show one slice, including its transcription",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseSliceIDs(args)
			if err != nil {
				return err
			}
			return ctx.withStore(func(cfg *config.Config, store *catalog.Store) error {
				slice, err := store.GetByID(cmd.Context(), ids[0])
				if err != nil {
					return err
				}
				if jsonOutput {
					return writeJSON(cmd, slice)
				}

				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Slice #%d: %s\n", slice.ID, slice.DisplayName())
				fmt.Fprintf(out, "  File:        %s (%s, %s)\n", slice.FileName, slice.AudioFileType, formatBytes(slice.AudioFileSize))
				if slice.DurationSeconds != nil {
					fmt.Fprintf(out, "  Length:      %s\n", formatSeconds(*slice.DurationSeconds))
				}
				if slice.RecordingDate != nil {
					fmt.Fprintf(out, "  Recorded:    %s\n", slice.RecordingDate.Format("2006-01-02 15:04"))
				}
				fmt.Fprintf(out, "  Transcribed: %s\n", yesNo(slice.Transcribed))
				if slice.Transcribed {
					if slice.Model != nil {
						fmt.Fprintf(out, "  Model:       %s\n", *slice.Model)
					}
					if slice.WordCount != nil {
						fmt.Fprintf(out, "  Words:       %d\n", *slice.WordCount)
					}
					if slice.TranscribeSeconds != nil {
						fmt.Fprintf(out, "  Engine time: %s\n", formatSeconds(*slice.TranscribeSeconds))
					}
					if slice.Transcription != nil {
						fmt.Fprintf(out, "\n%s\n", *slice.Transcription)
					}
				}
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit the slice as JSON")
	return cmd
}

func newSlicesRenameCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "rename <slice-id> <new-file-name>",
		Short: "Rename a slice's managed audio file",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseSliceIDs(args[:1])
			if err != nil {
				return err
			}
			newName := strings.TrimSpace(args[1])
			if newName == "" || newName != filepath.Base(newName) {
				return fmt.Errorf("invalid file name %q", args[1])
			}
			return ctx.withBatchLock(func(cfg *config.Config, store *catalog.Store) error {
				slice, err := store.GetByID(cmd.Context(), ids[0])
				if err != nil {
					return err
				}
				if slice.FileName == newName {
					return nil
				}
				if err := store.Rename(cmd.Context(), slice.ID, newName); err != nil {
					return err
				}
				oldPath := slice.AudioPath(cfg.AudioDir())
				if oldPath != "" {
					newPath := filepath.Join(cfg.AudioDir(), newName)
					if err := os.Rename(oldPath, newPath); err != nil {
						if revertErr := store.Rename(cmd.Context(), slice.ID, slice.FileName); revertErr != nil {
							return fmt.Errorf("move audio: %w (catalog revert also failed: %v)", err, revertErr)
						}
						return fmt.Errorf("move audio: %w", err)
					}
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Renamed slice #%d to %s\n", slice.ID, newName)
				return nil
			})
		},
	}
}

func newSlicesAutoNameCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "autoname [slice-id...]",
		Short: "Name slices after the opening words of their audio",
		Long: `Transcribe a short leading prefix of each slice and rename the managed
file after what was said. Without ids, every untranscribed audio slice is
processed.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseSliceIDs(args)
			if err != nil {
				return err
			}
			return ctx.withBatchLock(func(cfg *config.Config, store *catalog.Store) error {
				orch := transcriber.NewOrchestrator(cfg, store, speechEngine(cfg), ctx.transcriptionProgress, ctx.loggerValue())
				summary, err := orch.AutoName(cmd.Context(), ids)
				if err != nil {
					return err
				}
				if jsonOutput {
					return writeJSON(cmd, summary)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Auto-naming complete: %d renamed, %d failed\n",
					summary.Completed, summary.Failed)
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit the run summary as JSON")
	return cmd
}

func newSlicesRetitleCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "retitle",
		Short: "Derive titles for untitled slices from their file names",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, store *catalog.Store) error {
				engine := migration.New(cfg, store, nil, ctx.loggerValue())
				updated, err := engine.RetitleUntitled(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Derived %d titles\n", updated)
				return nil
			})
		},
	}
}

func newSlicesAddTextCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "add-text <title> <text>",
		Short: "Catalog a text-only slice with no backing audio",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			title := strings.TrimSpace(args[0])
			text := strings.TrimSpace(args[1])
			if title == "" || text == "" {
				return fmt.Errorf("title and text must not be empty")
			}
			return ctx.withStore(func(cfg *config.Config, store *catalog.Store) error {
				slice, err := store.Insert(cmd.Context(), &catalog.Slice{
					FileName:      title,
					Title:         title,
					AudioFileType: catalog.TextSliceType,
				})
				if err != nil {
					return err
				}
				words := textutil.CountWords(text)
				if err := store.UpdateTranscription(cmd.Context(), slice.ID, text, 0, words, "manual"); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Added text slice #%d (%d words)\n", slice.ID, words)
				return nil
			})
		},
	}
}
