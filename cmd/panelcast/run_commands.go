package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"panelcast/internal/pipeline"
)

func newRunCommand(ctx *commandContext) *cobra.Command {
	var opts pipeline.Options

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Assemble new chapters, then build the final video",
		Long: `Assemble every chapter that has no video yet, standardize all chapter videos
to the configured spec, and concatenate them into the final output.

Chapters whose video already exists are skipped, so an interrupted run resumes
where it stopped. When no chapter changed and the final video exists, the run
does nothing.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			r, closer, err := ctx.newPipeline(cmd, opts.DryRun)
			if err != nil {
				return err
			}
			defer closer()

			summary, runErr := r.Run(cmd.Context(), opts)
			printRunResult(cmd, summary, runErr)
			return runErr
		},
	}

	cmd.Flags().BoolVar(&opts.DryRun, "dry-run", false, "Print the plan and the commands that would run without encoding")
	cmd.Flags().BoolVar(&opts.Overwrite, "overwrite", false, "Replace an existing final video")
	return cmd
}

func newChaptersCommand(ctx *commandContext) *cobra.Command {
	var opts pipeline.Options

	cmd := &cobra.Command{
		Use:   "chapters",
		Short: "Assemble chapter videos only",
		RunE: func(cmd *cobra.Command, args []string) error {
			r, closer, err := ctx.newPipeline(cmd, opts.DryRun)
			if err != nil {
				return err
			}
			defer closer()

			summary, runErr := r.RunChapters(cmd.Context(), opts)
			printRunResult(cmd, summary, runErr)
			return runErr
		},
	}

	cmd.Flags().BoolVar(&opts.DryRun, "dry-run", false, "Print the plan and the commands that would run without encoding")
	return cmd
}

func newFinalizeCommand(ctx *commandContext) *cobra.Command {
	var opts pipeline.Options

	cmd := &cobra.Command{
		Use:   "finalize",
		Short: "Standardize existing chapter videos and build the final video",
		RunE: func(cmd *cobra.Command, args []string) error {
			r, closer, err := ctx.newPipeline(cmd, opts.DryRun)
			if err != nil {
				return err
			}
			defer closer()

			summary, runErr := r.Finalize(cmd.Context(), opts)
			printRunResult(cmd, summary, runErr)
			return runErr
		},
	}

	cmd.Flags().BoolVar(&opts.DryRun, "dry-run", false, "Print the commands that would run without encoding")
	cmd.Flags().BoolVar(&opts.Overwrite, "overwrite", false, "Replace an existing final video")
	return cmd
}

func newAnalyzeCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "analyze",
		Short: "Report how each chapter video differs from the target spec",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			r, closer, err := ctx.newPipeline(cmd, true)
			if err != nil {
				return err
			}
			defer closer()

			analysis, err := r.Analyze(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Target: %s\n\n", cfg.VideoSpec())
			printAnalysis(out, analysis, shouldColorize(out))
			return nil
		},
	}
}

func printRunResult(cmd *cobra.Command, summary pipeline.Summary, runErr error) {
	out := cmd.OutOrStdout()
	colorize := shouldColorize(out)

	if summary.DryRun {
		if runErr != nil {
			return
		}
		printPlan(out, summary, colorize)
		if len(summary.Analysis) > 0 {
			fmt.Fprintln(out)
			printAnalysis(out, summary.Analysis, colorize)
		}
		return
	}
	if summary.RunID == "" {
		return
	}

	if summary.Command != "finalize" {
		printChapterSummary(out, summary, colorize)
	}
	switch {
	case summary.Final != nil:
		fmt.Fprintln(out)
		printFinalReport(out, *summary.Final, colorize)
	case summary.FinalSkipped:
		fmt.Fprintln(out, renderStatusLine("Final video", statusOK, "up to date", colorize))
	}
	fmt.Fprintf(out, "\nRun %s finished in %s\n", summary.RunID, summary.Elapsed.Round(10*time.Millisecond))
}
