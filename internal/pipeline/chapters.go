package pipeline

import (
	"context"
	"errors"
	"fmt"

	"panelcast/internal/chapter"
	"panelcast/internal/layout"
	"panelcast/internal/logging"
	"panelcast/internal/services"
)

// ErrChaptersFailed reports that at least one chapter ended in the Failed
// state. The final video is not assembled from an incomplete chapter set.
var ErrChaptersFailed = errors.New("chapters failed")

// RunChapters assembles every chapter that has no output yet.
func (r *Runner) RunChapters(ctx context.Context, opts Options) (Summary, error) {
	var summary Summary
	ctx, s, err := r.begin(ctx, "chapters", opts)
	if err != nil {
		return summary, err
	}
	err = r.chapters(ctx, s, &summary)
	r.end(ctx, s, &summary, err)
	return summary, err
}

// Run assembles chapters, then standardizes and concatenates them into the
// final output.
func (r *Runner) Run(ctx context.Context, opts Options) (Summary, error) {
	var summary Summary
	ctx, s, err := r.begin(ctx, "run", opts)
	if err != nil {
		return summary, err
	}
	err = r.chapters(ctx, s, &summary)
	if err == nil {
		err = r.finalize(ctx, s, opts, &summary, summary.Processed == 0)
	}
	r.end(ctx, s, &summary, err)
	return summary, err
}

func (r *Runner) chapters(ctx context.Context, s *session, summary *Summary) error {
	ctx = services.WithStage(ctx, "chapters")
	logger := logging.WithContext(ctx, r.logger)

	chapters, err := r.layout.Chapters()
	if err != nil {
		return err
	}
	summary.OutputDir = r.cfg.Paths.ChapterVideosDir
	summary.AudioAvailable = r.layout.AudioAvailable()
	if !summary.AudioAvailable {
		logging.WarnWithContext(logger, "narration directory not found", "audio_root_missing",
			logging.String("audio_dir", r.cfg.Paths.AudioDir),
			logging.String(logging.FieldImpact, "every page gets a silent clip"),
			logging.String(logging.FieldErrorHint, "set paths.audio_dir to the narration root"),
			logging.Alert("silent_run"),
		)
	}

	for _, ch := range chapters {
		if ch.Done() {
			summary.ToSkip = append(summary.ToSkip, ch)
		} else {
			summary.ToProcess = append(summary.ToProcess, ch)
		}
	}
	logger.Info("chapter plan",
		logging.Int("chapters", len(chapters)),
		logging.Int("to_process", len(summary.ToProcess)),
		logging.Int("to_skip", len(summary.ToSkip)),
		logging.Any("process", chapterNames(summary.ToProcess)),
	)

	if s.dryRun {
		return r.planChapters(ctx, summary)
	}

	if len(summary.ToProcess) == 0 {
		logger.Info("no new chapters to assemble",
			logging.Args(logging.DecisionAttrs("chapter_plan", "noop", "all chapter videos exist")...)...,
		)
	}
	for _, ch := range chapters {
		if err := ctx.Err(); err != nil {
			return err
		}
		out := r.assembler.Assemble(ctx, ch)
		summary.add(out)
		r.recordChapter(ctx, s, out)
		if out.Fatal() {
			return out.Err
		}
	}

	videos, err := r.layout.ChapterVideos()
	if err == nil {
		summary.ChapterVideos = len(videos)
	}
	if summary.Failed > 0 {
		return fmt.Errorf("%w: %d of %d", ErrChaptersFailed, summary.Failed, len(chapters))
	}
	return nil
}

func (r *Runner) planChapters(ctx context.Context, summary *Summary) error {
	for _, ch := range summary.ToProcess {
		cmds, err := r.assembler.Plan(ctx, ch)
		if err != nil {
			if errors.Is(err, services.ErrProbeUnavailable) || ctx.Err() != nil {
				return err
			}
			logging.WarnWithContext(logging.WithContext(ctx, r.logger), "chapter cannot be planned", "plan_failed",
				logging.String(logging.FieldChapter, ch.Name),
				logging.Error(err),
			)
			summary.add(chapter.Outcome{Chapter: ch, State: chapter.StateFailed, Err: err})
			continue
		}
		summary.Commands = append(summary.Commands, cmds...)
	}
	return nil
}

func chapterNames(chapters []layout.Chapter) []string {
	names := make([]string, 0, len(chapters))
	for _, ch := range chapters {
		names = append(names, ch.Name)
	}
	return names
}
