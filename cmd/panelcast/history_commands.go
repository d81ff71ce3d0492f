package main

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"panelcast/internal/history"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	historyCmd := &cobra.Command{
		Use:   "history",
		Short: "Inspect recorded runs",
	}

	historyCmd.AddCommand(newHistoryListCommand(ctx))
	historyCmd.AddCommand(newHistoryShowCommand(ctx))
	historyCmd.AddCommand(newHistoryPruneCommand(ctx))

	return historyCmd
}

func newHistoryListCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recent runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withHistory(func(store *history.Store) error {
				runs, err := store.ListRuns(cmd.Context(), limit)
				if err != nil {
					return err
				}
				if jsonOutput {
					views := make([]runJSON, 0, len(runs))
					for _, run := range runs {
						views = append(views, toRunJSON(run))
					}
					return writeJSON(cmd, views)
				}

				out := cmd.OutOrStdout()
				if len(runs) == 0 {
					fmt.Fprintln(out, "No runs recorded")
					return nil
				}
				rows := make([][]string, 0, len(runs))
				for _, run := range runs {
					rows = append(rows, []string{
						shortID(run.ID),
						run.Command,
						humanize.Time(run.StartedAt),
						string(run.Status),
						formatElapsed(run),
						formatSeconds(run.FinalDuration),
					})
				}
				fmt.Fprint(out, renderTable(
					[]column{left("Run"), left("Command"), left("Started"), left("Status"), right("Elapsed"), right("Final")},
					rows,
				))
				return nil
			})
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of runs to list")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}

func newHistoryShowCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "show <run-id>",
		Short: "Show one run and its chapter outcomes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withHistory(func(store *history.Store) error {
				run, err := store.GetRun(cmd.Context(), args[0])
				if err != nil {
					return fmt.Errorf("run %s: %w", args[0], err)
				}
				if jsonOutput {
					return writeJSON(cmd, toRunJSON(run))
				}
				printRun(cmd.OutOrStdout(), run)
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}

func newHistoryPruneCommand(ctx *commandContext) *cobra.Command {
	var olderThan time.Duration

	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Delete runs older than a cutoff",
		RunE: func(cmd *cobra.Command, args []string) error {
			if olderThan <= 0 {
				return errors.New("--older-than must be positive")
			}
			return ctx.withHistory(func(store *history.Store) error {
				removed, err := store.Prune(cmd.Context(), time.Now().Add(-olderThan))
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed %d runs\n", removed)
				return nil
			})
		},
	}

	cmd.Flags().DurationVar(&olderThan, "older-than", 30*24*time.Hour, "Remove runs started longer ago than this")
	return cmd
}

func printRun(out io.Writer, run history.Run) {
	fmt.Fprintln(out, renderField("Run", run.ID))
	fmt.Fprintln(out, renderField("Command", run.Command))
	fmt.Fprintln(out, renderField("Status", string(run.Status)))
	fmt.Fprintln(out, renderField("Started", run.StartedAt.Local().Format(time.DateTime)))
	if run.Finished() {
		fmt.Fprintln(out, renderField("Elapsed", formatElapsed(run)))
	}
	if run.FinalOutput != "" {
		fmt.Fprintln(out, renderField("Final video", fmt.Sprintf("%s (%.2fs)", run.FinalOutput, run.FinalDuration)))
	}
	if run.Error != "" {
		fmt.Fprintln(out, renderField("Error", run.Error))
	}
	if len(run.Chapters) == 0 {
		return
	}

	fmt.Fprintln(out)
	rows := make([][]string, 0, len(run.Chapters))
	for _, ch := range run.Chapters {
		status := ch.State
		switch {
		case ch.ErrorCode != "":
			status = fmt.Sprintf("failed (%s)", ch.ErrorCode)
		case ch.Skipped:
			status = "skipped"
		}
		rows = append(rows, []string{
			ch.Chapter,
			status,
			fmt.Sprint(ch.Pages),
			fmt.Sprint(ch.Synthesized),
			fmt.Sprint(ch.Repaired),
			formatSeconds(ch.Duration),
			ch.Elapsed.Round(time.Millisecond).String(),
		})
	}
	fmt.Fprint(out, renderTable(chapterColumns, rows))
	for _, ch := range run.Chapters {
		if ch.Error != "" {
			fmt.Fprintf(out, "%s: %s\n", ch.Chapter, ch.Error)
		}
	}
}

func formatElapsed(run history.Run) string {
	if !run.Finished() {
		return "-"
	}
	return run.Elapsed().Round(time.Second).String()
}

func shortID(id string) string {
	id = strings.TrimSpace(id)
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
