package main

import (
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/gofrs/flock"
	"github.com/spf13/cobra"

	"panelcast/internal/staging"
)

func newStagingCommand(ctx *commandContext) *cobra.Command {
	stagingCmd := &cobra.Command{
		Use:   "staging",
		Short: "Manage work directories",
	}

	stagingCmd.AddCommand(newStagingListCommand(ctx))
	stagingCmd.AddCommand(newStagingCleanCommand(ctx))

	return stagingCmd
}

func newStagingListCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List chapter and finalize work directories",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			dirs, err := staging.ListDirectories(cfg.Paths.WorkDir)
			if err != nil {
				return fmt.Errorf("list work directories: %w", err)
			}

			if jsonOutput {
				if dirs == nil {
					dirs = []staging.DirInfo{}
				}
				var totalSize int64
				for _, dir := range dirs {
					totalSize += dir.Size
				}
				return writeJSON(cmd, map[string]any{
					"work_dir":         cfg.Paths.WorkDir,
					"directories":      dirs,
					"total_size_bytes": totalSize,
				})
			}

			out := cmd.OutOrStdout()
			if len(dirs) == 0 {
				fmt.Fprintln(out, "No work directories found")
				return nil
			}
			fmt.Fprintf(out, "Work directory: %s\n\n", cfg.Paths.WorkDir)

			var totalSize int64
			rows := make([][]string, 0, len(dirs))
			for _, dir := range dirs {
				age := time.Since(dir.ModTime).Truncate(time.Minute)
				totalSize += dir.Size
				rows = append(rows, []string{dir.Name, dir.Kind, formatAge(age), humanize.Bytes(uint64(dir.Size))})
			}
			fmt.Fprint(out, renderTable(
				[]column{left("Directory"), left("Kind"), right("Age"), right("Size")},
				rows,
				fmt.Sprintf("%d directories", len(dirs)), "", "", humanize.Bytes(uint64(totalSize)),
			))
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}

func newStagingCleanCommand(ctx *commandContext) *cobra.Command {
	var cleanAll bool

	cmd := &cobra.Command{
		Use:   "clean",
		Short: "Remove stale work directories and partial outputs",
		Long: `Remove temp_<chapter> and finalize_<run> work directories older than
workflow.stale_work_dir_hours, plus any *.partial.mp4 left by an interrupted run.

Use --all to remove every work directory regardless of age. Cleaning refuses to
run while another panelcast run holds the lock.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.logger()
			if err != nil {
				return err
			}
			if err := cfg.EnsureDirectories(); err != nil {
				return fmt.Errorf("ensure directories: %w", err)
			}

			lock := flock.New(cfg.LockPath())
			ok, err := lock.TryLock()
			if err != nil {
				return fmt.Errorf("acquire lock: %w", err)
			}
			if !ok {
				return errors.New("a panelcast run is in progress; try again when it finishes")
			}
			defer func() { _ = lock.Unlock() }()

			maxAge := cfg.StaleWorkAge()
			if cleanAll {
				maxAge = 0
			}
			result := staging.CleanStale(cmd.Context(), cfg.Paths.WorkDir, maxAge, logger)
			partials := staging.CleanPartials(cmd.Context(), []string{cfg.Paths.ChapterVideosDir, filepath.Dir(cfg.Paths.FinalOutput)}, logger)
			result.Merge(partials)
			return printStagingCleanResult(cmd, result)
		},
	}

	cmd.Flags().BoolVar(&cleanAll, "all", false, "Remove every work directory regardless of age")
	return cmd
}

func printStagingCleanResult(cmd *cobra.Command, result staging.CleanupResult) error {
	out := cmd.OutOrStdout()
	if len(result.Removed) == 0 && len(result.Errors) == 0 {
		fmt.Fprintln(out, "Nothing to clean")
		return nil
	}
	for _, path := range result.Removed {
		fmt.Fprintf(out, "Removed %s\n", path)
	}
	if len(result.Errors) > 0 {
		fmt.Fprintf(out, "Removed %d entries, %d errors\n", len(result.Removed), len(result.Errors))
		for _, e := range result.Errors {
			fmt.Fprintf(out, "  Error: %s: %v\n", e.Path, e.Error)
		}
		return nil
	}
	fmt.Fprintf(out, "Removed %d entries, reclaimed %s\n", len(result.Removed), humanize.Bytes(uint64(result.ReclaimedBytes)))
	return nil
}

func formatAge(d time.Duration) string {
	if d < time.Hour {
		return fmt.Sprintf("%dm", int(d.Minutes()))
	}
	if d < 24*time.Hour {
		return fmt.Sprintf("%dh", int(d.Hours()))
	}
	days := int(d.Hours() / 24)
	return fmt.Sprintf("%dd", days)
}
