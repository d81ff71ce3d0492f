package segment

import (
	"context"
	"errors"
	"log/slog"
	"path/filepath"

	"panelcast/internal/audio"
	"panelcast/internal/fileutil"
	"panelcast/internal/layout"
	"panelcast/internal/logging"
	"panelcast/internal/media/ffmpeg"
	"panelcast/internal/media/runner"
	"panelcast/internal/services"
)

// Segment is one encoded page.
type Segment struct {
	Page     layout.Page
	Frame    string
	Path     string
	Duration float64
	Audio    audio.ResolvedAudio
	Repaired bool
}

// FramePath is where the composed frame for page is written.
func FramePath(workDir string, page layout.Page) string {
	return filepath.Join(workDir, "processed_"+page.Base()+".png")
}

// OutputPath is where the segment for page is written.
func OutputPath(workDir string, page layout.Page) string {
	return filepath.Join(workDir, "segment_"+page.Base()+".mp4")
}

// Synthesizer encodes page segments.
type Synthesizer struct {
	runner  runner.Runner
	builder ffmpeg.Builder
	logger  *slog.Logger
}

// NewSynthesizer constructs a synthesizer.
func NewSynthesizer(r runner.Runner, builder ffmpeg.Builder, logger *slog.Logger) *Synthesizer {
	return &Synthesizer{
		runner:  r,
		builder: builder,
		logger:  logging.NewComponentLogger(logger, "segment"),
	}
}

// Build encodes the frame already rendered at FramePath with the resolved
// audio. A failed encode removes any partial output.
func (s *Synthesizer) Build(ctx context.Context, page layout.Page, resolved audio.ResolvedAudio, workDir string) (Segment, error) {
	seg := Segment{
		Page:     page,
		Frame:    FramePath(workDir, page),
		Path:     OutputPath(workDir, page),
		Duration: resolved.Duration,
		Audio:    resolved,
	}
	cmd := s.builder.Segment(seg.Frame, resolved.Path, seg.Duration, seg.Path)
	if err := encode(ctx, s.runner, cmd, seg.Path, "encode"); err != nil {
		return Segment{}, err
	}

	logging.WithContext(ctx, s.logger).Debug("segment encoded",
		logging.String("output", seg.Path),
		logging.Float64("duration_seconds", seg.Duration),
		logging.String("audio_source", string(resolved.Kind)),
	)
	return seg, nil
}

func encode(ctx context.Context, r runner.Runner, cmd runner.Command, output, operation string) error {
	res, err := r.Run(ctx, cmd, 0)
	if err == nil && res.OK() {
		return nil
	}
	_ = fileutil.RemoveIfExists(output)
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	if err != nil {
		return services.Wrap(services.ErrEncodeFailure, "segment", operation, output, err)
	}
	return services.Wrap(services.ErrEncodeFailure, "segment", operation, output, errors.New(ffmpeg.Diagnostic(res.Stderr)))
}
