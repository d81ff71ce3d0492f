package segment

import (
	"context"
	"log/slog"

	"panelcast/internal/fileutil"
	"panelcast/internal/logging"
	"panelcast/internal/media/ffmpeg"
	"panelcast/internal/media/runner"
	"panelcast/internal/services"
)

// AudioChecker reports whether a media file carries an audio stream.
type AudioChecker interface {
	HasAudio(ctx context.Context, path string) (bool, error)
}

// Auditor verifies segments carry audio and repairs those that do not.
type Auditor struct {
	checker AudioChecker
	runner  runner.Runner
	builder ffmpeg.Builder
	logger  *slog.Logger
}

// NewAuditor constructs an auditor.
func NewAuditor(checker AudioChecker, r runner.Runner, builder ffmpeg.Builder, logger *slog.Logger) *Auditor {
	return &Auditor{
		checker: checker,
		runner:  r,
		builder: builder,
		logger:  logging.NewComponentLogger(logger, "audit"),
	}
}

// Ensure returns seg once it is known to carry audio. A segment without audio
// is re-encoded once with an explicitly mapped null source; if it still has
// none the error wraps ErrAudioMissingAfterRepair.
func (a *Auditor) Ensure(ctx context.Context, seg Segment) (Segment, error) {
	ok, err := a.checker.HasAudio(ctx, seg.Path)
	if err != nil {
		return Segment{}, err
	}
	if ok {
		return seg, nil
	}

	logger := logging.WithContext(ctx, a.logger)
	logger.Info("segment missing audio; repairing",
		logging.Args(append(logging.DecisionAttrs("segment_repair", "repair", "no audio stream"),
			logging.String("segment", seg.Path),
		)...)...,
	)

	cmd := a.builder.RepairSegment(seg.Frame, seg.Duration, seg.Path)
	if err := encode(ctx, a.runner, cmd, seg.Path, "repair"); err != nil {
		return Segment{}, err
	}
	seg.Repaired = true

	ok, err = a.checker.HasAudio(ctx, seg.Path)
	if err != nil {
		return Segment{}, err
	}
	if !ok {
		_ = fileutil.RemoveIfExists(seg.Path)
		return Segment{}, services.Wrap(services.ErrAudioMissingAfterRepair, "segment", "audit", seg.Path, nil)
	}
	return seg, nil
}
