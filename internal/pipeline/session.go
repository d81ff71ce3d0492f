package pipeline

import (
	"context"
	"errors"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"

	"panelcast/internal/chapter"
	"panelcast/internal/history"
	"panelcast/internal/logging"
	"panelcast/internal/preflight"
	"panelcast/internal/services"
	"panelcast/internal/staging"
)

// session is one locked pipeline invocation.
type session struct {
	runID   string
	command string
	started time.Time
	dryRun  bool
	lock    *flock.Flock
}

// begin prepares the workspace and returns a context stamped with the run ID.
// Dry runs skip the lock, cleanup, and history so they never write anything.
func (r *Runner) begin(ctx context.Context, command string, opts Options) (context.Context, *session, error) {
	s := &session{
		runID:   r.newRunID(),
		command: command,
		started: time.Now(),
		dryRun:  opts.DryRun,
	}
	ctx = services.WithRunID(ctx, s.runID)
	logger := logging.WithContext(ctx, r.logger)
	if s.dryRun {
		logger.Info("dry run started", logging.String("command", command))
		return ctx, s, nil
	}

	if err := r.cfg.EnsureDirectories(); err != nil {
		return ctx, nil, services.Wrap(services.ErrConfiguration, "pipeline", "prepare directories", "", err)
	}
	if err := preflight.Err(preflight.RunAll(ctx, r.cfg)); err != nil {
		return ctx, nil, err
	}

	s.lock = flock.New(r.cfg.LockPath())
	ok, err := s.lock.TryLock()
	if err != nil {
		return ctx, nil, services.Wrap(services.ErrConfiguration, "pipeline", "acquire lock", r.cfg.LockPath(), err)
	}
	if !ok {
		return ctx, nil, services.Wrap(services.ErrConfiguration, "pipeline", "acquire lock",
			"another panelcast run holds "+r.cfg.LockPath(), nil)
	}

	r.cleanup(ctx)
	if r.history != nil {
		if err := r.history.StartRun(ctx, s.runID, command, s.started); err != nil {
			r.warnHistory(ctx, "start run", err)
		}
	}
	logger.Info("run started",
		logging.String(logging.FieldEventType, "run_start"),
		logging.String("command", command),
		logging.String("video_spec", r.cfg.VideoSpec().String()),
	)
	return ctx, s, nil
}

// end releases the lock and stamps the run's terminal status.
func (r *Runner) end(ctx context.Context, s *session, summary *Summary, runErr error) {
	if s == nil {
		return
	}
	summary.RunID = s.runID
	summary.Command = s.command
	summary.DryRun = s.dryRun
	summary.Elapsed = time.Since(s.started)
	if s.dryRun {
		return
	}
	defer func() {
		if err := s.lock.Unlock(); err != nil {
			logging.WarnWithContext(logging.WithContext(ctx, r.logger), "failed to release run lock", "lock_release_failed",
				logging.String("lock", r.cfg.LockPath()),
				logging.Error(err),
			)
		}
	}()

	logger := logging.WithContext(ctx, r.logger)
	if runErr != nil {
		logging.ErrorWithContext(logger, "run failed", "run_failed",
			logging.Error(runErr),
			logging.String(logging.FieldErrorCode, services.ErrorCode(runErr)),
			logging.Duration("elapsed", summary.Elapsed),
		)
	} else {
		logger.Info("run completed",
			logging.String(logging.FieldEventType, "run_complete"),
			logging.Int("processed", summary.Processed),
			logging.Int("skipped", summary.Skipped),
			logging.Int("failed", summary.Failed),
			logging.Duration("elapsed", summary.Elapsed),
		)
	}

	if r.history == nil {
		return
	}
	done := history.Completion{Err: runErr}
	if errors.Is(runErr, context.Canceled) {
		done.Status = history.RunStatusCanceled
	}
	if summary.Final != nil {
		done.FinalOutput = summary.Final.Output
		done.FinalDuration = summary.Final.Info.Duration
	}
	// Record even when the run was canceled.
	if err := r.history.FinishRun(context.WithoutCancel(ctx), s.runID, time.Now(), done); err != nil {
		r.warnHistory(ctx, "finish run", err)
	}
}

func (r *Runner) cleanup(ctx context.Context) {
	logger := logging.WithContext(ctx, r.logger)
	stale := staging.CleanStale(ctx, r.cfg.Paths.WorkDir, r.cfg.StaleWorkAge(), logger)
	partials := staging.CleanPartials(ctx, []string{
		r.cfg.Paths.ChapterVideosDir,
		filepath.Dir(r.cfg.Paths.FinalOutput),
	}, logger)
	if removed := len(stale.Removed) + len(partials.Removed); removed > 0 {
		logger.Info("cleaned leftovers from earlier runs",
			logging.Int("work_dirs", len(stale.Removed)),
			logging.Int("partial_outputs", len(partials.Removed)),
		)
	}
}

func (r *Runner) recordChapter(ctx context.Context, s *session, out chapter.Outcome) {
	if r.history == nil || s == nil || s.dryRun {
		return
	}
	if err := r.history.RecordChapter(context.WithoutCancel(ctx), s.runID, historyResult(out)); err != nil {
		r.warnHistory(ctx, "record chapter", err)
	}
}

func (r *Runner) warnHistory(ctx context.Context, op string, err error) {
	logging.WarnWithContext(logging.WithContext(ctx, r.logger), "history update failed", "history_write_failed",
		logging.String("operation", op),
		logging.Error(err),
		logging.String(logging.FieldImpact, "run is unaffected; history list may be incomplete"),
		logging.String(logging.FieldErrorHint, "check state_dir permissions or delete the history database"),
	)
}
