package main

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"panelcast/internal/chapter"
	"panelcast/internal/concat"
	"panelcast/internal/pipeline"
	"panelcast/internal/services"
	"panelcast/internal/standardize"
	"panelcast/internal/textutil"
)

func printPlan(out io.Writer, summary pipeline.Summary, colorize bool) {
	printSection(out, "Plan", colorize)
	fmt.Fprintln(out, renderField("To process", fmt.Sprint(len(summary.ToProcess))))
	for _, ch := range summary.ToProcess {
		fmt.Fprintf(out, "%s  - %s\n", statusIndent, ch.Name)
	}
	fmt.Fprintln(out, renderField("Already done", fmt.Sprint(len(summary.ToSkip))))
	for _, ch := range summary.ToSkip {
		fmt.Fprintf(out, "%s  - %s\n", statusIndent, ch.Name)
	}
	if !summary.AudioAvailable && summary.Command != "finalize" {
		fmt.Fprintln(out, renderStatusLine("Narration", statusWarn, "directory missing; every page is silent", colorize))
	}
	for _, failed := range summary.FailedChapters() {
		fmt.Fprintln(out, renderStatusLine(failed.Chapter.Name, statusError, failed.Err.Error(), colorize))
	}

	fmt.Fprintln(out)
	printSection(out, "Commands", colorize)
	if len(summary.Commands) == 0 {
		fmt.Fprintln(out, "Nothing to run")
		return
	}
	for _, cmd := range summary.Commands {
		fmt.Fprintln(out, cmd.String())
	}
}

func printChapterSummary(out io.Writer, summary pipeline.Summary, colorize bool) {
	printSection(out, "Chapters", colorize)
	if len(summary.Outcomes) > 0 {
		var pages, silent, repaired int
		var duration float64
		rows := make([][]string, 0, len(summary.Outcomes))
		for _, o := range summary.Outcomes {
			pages += o.Pages
			silent += o.Synthesized
			repaired += o.Repaired
			duration += o.Duration
			rows = append(rows, []string{
				o.Chapter.Name,
				outcomeStatus(o),
				fmt.Sprint(o.Pages),
				fmt.Sprint(o.Synthesized),
				fmt.Sprint(o.Repaired),
				formatSeconds(o.Duration),
				o.Elapsed.Round(time.Millisecond).String(),
			})
		}
		fmt.Fprint(out, renderTable(chapterColumns, rows,
			"Total", "", fmt.Sprint(pages), fmt.Sprint(silent), fmt.Sprint(repaired), formatSeconds(duration),
			summary.Elapsed.Round(time.Millisecond).String(),
		))
	}
	fmt.Fprint(out, renderTable(
		[]column{right("Processed"), right("Skipped"), right("Failed"), right("Chapter videos"), left("Output directory")},
		[][]string{{
			fmt.Sprint(summary.Processed),
			fmt.Sprint(summary.Skipped),
			fmt.Sprint(summary.Failed),
			fmt.Sprint(summary.ChapterVideos),
			summary.OutputDir,
		}},
	))
	for _, failed := range summary.FailedChapters() {
		fmt.Fprintln(out, renderStatusLine(failed.Chapter.Name, statusError, failed.Err.Error(), colorize))
	}
}

func outcomeStatus(o chapter.Outcome) string {
	switch {
	case o.Err != nil:
		return fmt.Sprintf("failed (%s)", services.ErrorCode(o.Err))
	case o.Skipped:
		return "skipped"
	default:
		return string(o.State)
	}
}

func printAnalysis(out io.Writer, analysis []standardize.Analysis, colorize bool) {
	printSection(out, "Chapter video analysis", colorize)
	for _, a := range analysis {
		name := filepath.Base(a.File)
		if len(a.Issues) == 0 {
			fmt.Fprintln(out, renderStatusLine(name, statusOK, a.Info.Resolution(), colorize))
			continue
		}
		fmt.Fprintln(out, renderStatusLine(name, statusWarn, strings.Join(standardize.Strings(a.Issues), ", "), colorize))
	}
	needs := 0
	for _, a := range analysis {
		if len(a.Issues) > 0 {
			needs++
		}
	}
	fmt.Fprintf(out, "\n%d of %d chapter videos need standardizing\n", needs, len(analysis))
}

func printFinalReport(out io.Writer, report concat.Report, colorize bool) {
	printSection(out, "Final video", colorize)
	fmt.Fprintln(out, renderField("Path", report.Output))
	fmt.Fprintln(out, renderField("Duration", fmt.Sprintf("%.2fs (%.2f minutes)", report.Info.Duration, concat.Minutes(report.Info.Duration))))
	fmt.Fprintln(out, renderField("Resolution", report.Info.Resolution()))
	fmt.Fprintln(out, renderField("Audio", textutil.Ternary(report.Info.HasAudio, "Yes", "No")))

	switch {
	case !report.SyncKnown:
		fmt.Fprintln(out, renderStatusLine("A/V sync", statusWarn, "unknown", colorize))
	case report.SyncGood():
		fmt.Fprintln(out, renderStatusLine("A/V sync", statusOK, fmt.Sprintf("Good (%.3fs)", report.SyncDelta), colorize))
	default:
		fmt.Fprintln(out, renderStatusLine("A/V sync", statusWarn, fmt.Sprintf("Check (%.3fs)", report.SyncDelta), colorize))
	}

	fmt.Fprintln(out, renderField("Audio stream", audioCodec(report.AudioStreams)))
	fmt.Fprintln(out, renderField("Video streams", fmt.Sprint(report.VideoStreams)))
	fmt.Fprintln(out, renderField("Size", humanize.Bytes(uint64(max(report.SizeBytes, 0)))))
}

// audioCodec picks the codec from the first index,codec,duration,start row.
func audioCodec(rows string) string {
	first, _, _ := strings.Cut(strings.TrimSpace(rows), "\n")
	fields := strings.Split(first, ",")
	if len(fields) < 2 || strings.TrimSpace(fields[1]) == "" {
		return "none"
	}
	return strings.TrimSpace(fields[1])
}

func formatSeconds(seconds float64) string {
	if seconds <= 0 {
		return "-"
	}
	return fmt.Sprintf("%.1fs", seconds)
}
