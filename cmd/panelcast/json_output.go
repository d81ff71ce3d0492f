package main

import (
	"encoding/json"
	"time"

	"github.com/spf13/cobra"

	"panelcast/internal/history"
)

// writeJSON encodes v as indented JSON to the command's stdout.
func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

type runJSON struct {
	RunID          string        `json:"run_id"`
	Command        string        `json:"command"`
	Status         string        `json:"status"`
	StartedAt      time.Time     `json:"started_at"`
	FinishedAt     *time.Time    `json:"finished_at,omitempty"`
	ElapsedSeconds float64       `json:"elapsed_seconds,omitempty"`
	FinalOutput    string        `json:"final_output,omitempty"`
	FinalDuration  float64       `json:"final_duration_seconds,omitempty"`
	Error          string        `json:"error,omitempty"`
	Chapters       []chapterJSON `json:"chapters,omitempty"`
}

type chapterJSON struct {
	Chapter         string  `json:"chapter"`
	State           string  `json:"state"`
	Skipped         bool    `json:"skipped"`
	Pages           int     `json:"pages"`
	Synthesized     int     `json:"synthesized"`
	Repaired        int     `json:"repaired"`
	DurationSeconds float64 `json:"duration_seconds"`
	ElapsedSeconds  float64 `json:"elapsed_seconds"`
	ErrorCode       string  `json:"error_code,omitempty"`
	Error           string  `json:"error,omitempty"`
}

func toRunJSON(run history.Run) runJSON {
	view := runJSON{
		RunID:          run.ID,
		Command:        run.Command,
		Status:         string(run.Status),
		StartedAt:      run.StartedAt,
		ElapsedSeconds: run.Elapsed().Seconds(),
		FinalOutput:    run.FinalOutput,
		FinalDuration:  run.FinalDuration,
		Error:          run.Error,
	}
	if !run.FinishedAt.IsZero() {
		finished := run.FinishedAt
		view.FinishedAt = &finished
	}
	for _, ch := range run.Chapters {
		view.Chapters = append(view.Chapters, chapterJSON{
			Chapter:         ch.Chapter,
			State:           ch.State,
			Skipped:         ch.Skipped,
			Pages:           ch.Pages,
			Synthesized:     ch.Synthesized,
			Repaired:        ch.Repaired,
			DurationSeconds: ch.Duration,
			ElapsedSeconds:  ch.Elapsed.Seconds(),
			ErrorCode:       ch.ErrorCode,
			Error:           ch.Error,
		})
	}
	return view
}
