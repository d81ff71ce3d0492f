package standardize

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"panelcast/internal/fileutil"
	"panelcast/internal/logging"
	"panelcast/internal/media/ffmpeg"
	"panelcast/internal/media/ffprobe"
	"panelcast/internal/media/runner"
	"panelcast/internal/services"
)

// Prober is the ffprobe surface the standardizer uses.
type Prober interface {
	Probe(ctx context.Context, path string) (ffprobe.MediaInfo, error)
	HasAudio(ctx context.Context, path string) (bool, error)
}

// Result describes what happened to one chapter video.
type Result struct {
	Source       string
	Output       string
	Standardized bool
	Issues       []Issue
	Info         ffprobe.MediaInfo
}

// Analysis is the pre-standardize report entry for one file.
type Analysis struct {
	File   string
	Info   ffprobe.MediaInfo
	Issues []Issue
}

// Standardizer re-encodes chapter videos that do not match the VideoSpec.
type Standardizer struct {
	runner  runner.Runner
	prober  Prober
	builder ffmpeg.Builder
	logger  *slog.Logger
}

// New constructs a standardizer targeting builder's VideoSpec.
func New(r runner.Runner, prober Prober, builder ffmpeg.Builder, logger *slog.Logger) *Standardizer {
	return &Standardizer{
		runner:  r,
		prober:  prober,
		builder: builder,
		logger:  logging.NewComponentLogger(logger, "standardize"),
	}
}

// OutputPath is where the standardized copy of path is written.
func OutputPath(workDir, path string) string {
	return filepath.Join(workDir, "std_"+filepath.Base(path))
}

// Analyze probes each file and lists its issues without changing anything.
func (s *Standardizer) Analyze(ctx context.Context, files []string) ([]Analysis, error) {
	spec := s.builder.Spec()
	out := make([]Analysis, 0, len(files))
	for _, file := range files {
		info, err := s.prober.Probe(ctx, file)
		if err != nil {
			return nil, err
		}
		out = append(out, Analysis{File: file, Info: info, Issues: Analyze(info, spec)})
	}
	return out, nil
}

// Standardize returns path unchanged when it already matches the VideoSpec,
// otherwise the path of a re-encoded copy in workDir that has been verified to
// carry audio.
func (s *Standardizer) Standardize(ctx context.Context, path, workDir string) (Result, error) {
	logger := logging.WithContext(ctx, s.logger).With(logging.String("source", filepath.Base(path)))

	info, err := s.prober.Probe(ctx, path)
	if err != nil {
		return Result{}, err
	}
	issues := Analyze(info, s.builder.Spec())
	if len(issues) == 1 && issues[0].Kind == IssueUnreadable {
		return Result{}, services.Wrap(services.ErrValidation, "standardize", "probe", fmt.Sprintf("%s could not be analyzed", path), nil)
	}
	if len(issues) == 0 {
		logger.Info("already standardized",
			logging.Args(logging.DecisionAttrs("standardize", "pass_through", "matches target spec")...)...,
		)
		return Result{Source: path, Output: path, Info: info}, nil
	}

	reasons := Reasons(issues)
	logger.Info("standardizing chapter video",
		logging.Args(logging.DecisionAttrs("standardize", "re_encode", strings.Join(reasons, ", "))...)...,
	)

	output := OutputPath(workDir, path)
	cmd := s.builder.Standardize(path, output, info.HasAudio)
	res, runErr := s.runner.Run(ctx, cmd, 0)
	if runErr != nil || !res.OK() {
		_ = fileutil.RemoveIfExists(output)
		if ctxErr := ctx.Err(); ctxErr != nil {
			return Result{}, ctxErr
		}
		cause := runErr
		if cause == nil {
			cause = errors.New(ffmpeg.Diagnostic(res.Stderr))
		}
		return Result{}, services.Wrap(services.ErrEncodeFailure, "standardize", "re-encode", path, cause)
	}

	ok, err := s.prober.HasAudio(ctx, output)
	if err != nil {
		return Result{}, err
	}
	if !ok {
		_ = fileutil.RemoveIfExists(output)
		return Result{}, services.Wrap(services.ErrValidation, "standardize", "verify", fmt.Sprintf("%s has no audio after standardization", output), nil)
	}

	logger.Info("chapter video standardized", logging.String("output", output))
	return Result{Source: path, Output: output, Standardized: true, Issues: issues, Info: info}, nil
}
