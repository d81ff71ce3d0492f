package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"panelcast/internal/concat"
	"panelcast/internal/fileutil"
	"panelcast/internal/logging"
	"panelcast/internal/services"
	"panelcast/internal/staging"
	"panelcast/internal/standardize"
)

// ErrFinalExists reports that the final output is already present and
// overwriting was not requested.
var ErrFinalExists = errors.New("final output exists")

// Finalize standardizes every chapter video and concatenates them into the
// final output.
func (r *Runner) Finalize(ctx context.Context, opts Options) (Summary, error) {
	var summary Summary
	ctx, s, err := r.begin(ctx, "finalize", opts)
	if err != nil {
		return summary, err
	}
	err = r.finalize(ctx, s, opts, &summary, false)
	r.end(ctx, s, &summary, err)
	return summary, err
}

// Analyze probes every chapter video and reports how it differs from the
// VideoSpec. Nothing is written.
func (r *Runner) Analyze(ctx context.Context) ([]standardize.Analysis, error) {
	files, err := r.layout.ChapterVideos()
	if err != nil {
		return nil, err
	}
	return r.standardizer.Analyze(services.WithStage(ctx, "analyze"), files)
}

// finalize runs the standardize-all and final concat stages. When
// skipExisting is set an existing final output ends the stage quietly, which
// keeps a re-run with nothing new a no-op.
func (r *Runner) finalize(ctx context.Context, s *session, opts Options, summary *Summary, skipExisting bool) error {
	ctx = services.WithStage(ctx, "finalize")
	logger := logging.WithContext(ctx, r.logger)
	output := r.cfg.Paths.FinalOutput

	if fileutil.IsFile(output) && !opts.Overwrite && !r.cfg.Workflow.OverwriteFinal {
		if skipExisting {
			summary.FinalSkipped = true
			logger.Info("final video already exists",
				logging.Args(append(logging.DecisionAttrs("finalize", "skip", "output exists and no chapter changed"),
					logging.String("output", output),
				)...)...,
			)
			return nil
		}
		return services.Wrap(services.ErrValidation, "finalize", "overwrite guard",
			output+" exists; pass --overwrite or set workflow.overwrite_final", ErrFinalExists)
	}

	files, err := r.layout.ChapterVideos()
	if s.dryRun && (err != nil || len(files) == 0) {
		logger.Info("no chapter videos to finalize yet", logging.String("dir", r.cfg.Paths.ChapterVideosDir))
		return nil
	}
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return services.Wrap(services.ErrNotFound, "finalize", "list chapter videos",
			"no chapter videos in "+r.cfg.Paths.ChapterVideosDir, nil)
	}
	summary.ChapterVideos = len(files)

	analysis, err := r.standardizer.Analyze(ctx, files)
	if err != nil {
		return err
	}
	summary.Analysis = analysis
	r.logAnalysis(ctx, analysis)

	workDir := filepath.Join(r.cfg.Paths.WorkDir, staging.FinalizeDirPrefix+s.runID)
	if s.dryRun {
		r.planFinalize(summary, analysis, workDir, output)
		return nil
	}

	if err := os.MkdirAll(workDir, 0o755); err != nil {
		return services.Wrap(services.ErrConfiguration, "finalize", "create work dir", workDir, err)
	}
	defer func() {
		if err := os.RemoveAll(workDir); err != nil {
			logging.WarnWithContext(logger, "failed to remove finalize work dir", "cleanup_failed",
				logging.String("work_dir", workDir),
				logging.Error(err),
				logging.String(logging.FieldImpact, "stale files remain until the next cleanup"),
			)
		}
	}()

	for _, file := range files {
		if err := ctx.Err(); err != nil {
			return err
		}
		res, err := r.standardizer.Standardize(ctx, file, workDir)
		if err != nil {
			return fmt.Errorf("standardize %s: %w", filepath.Base(file), err)
		}
		summary.Standardized = append(summary.Standardized, res)
		summary.FinalInputs = append(summary.FinalInputs, res.Output)
	}
	logger.Info("chapter videos standardized",
		logging.Int("files", len(files)),
		logging.Int("re_encoded", summary.RestandardizeCount()),
	)

	report, err := r.finalizer.Concatenate(ctx, summary.FinalInputs, output, workDir)
	if err != nil {
		return err
	}
	summary.Final = &report
	sync := "unknown"
	if report.SyncKnown {
		sync = fmt.Sprintf("%.3fs", report.SyncDelta)
	}
	logger.Info("final video created",
		logging.String(logging.FieldEventType, "final_complete"),
		logging.String("output", report.Output),
		logging.Float64("duration_seconds", report.Info.Duration),
		logging.Float64("duration_minutes", concat.Minutes(report.Info.Duration)),
		logging.String("resolution", report.Info.Resolution()),
		logging.String("sync_delta", sync),
		logging.Int64("output_size_bytes", report.SizeBytes),
	)
	return nil
}

func (r *Runner) logAnalysis(ctx context.Context, analysis []standardize.Analysis) {
	logger := logging.WithContext(ctx, r.logger)
	for _, a := range analysis {
		status := "ok"
		if len(a.Issues) > 0 {
			status = strings.Join(standardize.Strings(a.Issues), ", ")
		}
		logger.Info("chapter video analysis",
			logging.String("file", filepath.Base(a.File)),
			logging.String("resolution", a.Info.Resolution()),
			logging.Bool("has_audio", a.Info.HasAudio),
			logging.String("issues", status),
		)
	}
}

func (r *Runner) planFinalize(summary *Summary, analysis []standardize.Analysis, workDir, output string) {
	for _, a := range analysis {
		if len(a.Issues) == 0 {
			summary.FinalInputs = append(summary.FinalInputs, a.File)
			continue
		}
		target := standardize.OutputPath(workDir, a.File)
		summary.Commands = append(summary.Commands, r.builder.Standardize(a.File, target, a.Info.HasAudio))
		summary.FinalInputs = append(summary.FinalInputs, target)
	}
	manifest := filepath.Join(workDir, "final_concat_list.txt")
	summary.Commands = append(summary.Commands, r.builder.FinalConcat(manifest, fileutil.PartialPath(output)))
}
