package concat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"path/filepath"
	"strings"
	"time"

	"panelcast/internal/fileutil"
	"panelcast/internal/logging"
	"panelcast/internal/media/ffmpeg"
	"panelcast/internal/media/ffprobe"
	"panelcast/internal/media/runner"
	"panelcast/internal/services"
)

// SyncTolerance is the largest container/audio duration gap reported as good.
const SyncTolerance = 0.1

// MediaProber is the ffprobe surface the finalizer uses.
type MediaProber interface {
	AudioVerifier
	Duration(ctx context.Context, path string) (ffprobe.DurationResult, error)
	Probe(ctx context.Context, path string) (ffprobe.MediaInfo, error)
	AudioStreams(ctx context.Context, path string) (string, error)
	Inspect(ctx context.Context, path string) (ffprobe.Result, error)
}

// Report describes the finished final video.
type Report struct {
	Output           string
	Inputs           int
	ExpectedDuration float64
	Info             ffprobe.MediaInfo
	SyncDelta        float64
	SyncKnown        bool
	AudioStreams     string
	VideoStreams     int
	SizeBytes        int64
	Elapsed          time.Duration
}

// SyncGood reports whether the measured drift is at most SyncTolerance.
func (r Report) SyncGood() bool {
	return r.SyncKnown && r.SyncDelta <= SyncTolerance
}

// Finalizer concatenates standardized chapter videos into the final output.
type Finalizer struct {
	runner   runner.Runner
	prober   MediaProber
	builder  ffmpeg.Builder
	logger   *slog.Logger
	progress func(total float64) Progress
	sampler  *logging.ProgressSampler
}

// FinalizerOption configures a Finalizer.
type FinalizerOption func(*Finalizer)

// WithProgress installs a progress factory called with the expected total
// seconds before ffmpeg starts.
func WithProgress(factory func(total float64) Progress) FinalizerOption {
	return func(f *Finalizer) {
		if factory != nil {
			f.progress = factory
		}
	}
}

// NewFinalizer constructs a finalizer.
func NewFinalizer(r runner.Runner, prober MediaProber, builder ffmpeg.Builder, logger *slog.Logger, opts ...FinalizerOption) *Finalizer {
	f := &Finalizer{
		runner:   r,
		prober:   prober,
		builder:  builder,
		logger:   logging.NewComponentLogger(logger, "finalize"),
		progress: func(float64) Progress { return nopProgress{} },
		sampler:  logging.NewProgressSampler(10, 30*time.Second),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Concatenate stream-copies files, in order, into output. The encode writes a
// partial file that is renamed into place only after verification, so output
// either exists complete or not at all. Failures wrap ErrFinalProcess or
// ErrConcatVerification.
func (f *Finalizer) Concatenate(ctx context.Context, files []string, output, workDir string) (Report, error) {
	logger := logging.WithContext(ctx, f.logger)
	started := time.Now()

	manifest, err := BuildManifest(ctx, files, f.prober, filepath.Join(workDir, "final_concat_list.txt"))
	if err != nil {
		return Report{}, err
	}

	var total float64
	for _, file := range manifest.Entries {
		res, err := f.prober.Duration(ctx, file)
		if err != nil {
			return Report{}, err
		}
		if res.Status == ffprobe.DurationValid {
			total += res.Seconds
		}
	}
	logger.Info("final concatenation started",
		logging.Int("inputs", len(manifest.Entries)),
		logging.Float64("expected_duration_seconds", total),
		logging.String("output", output),
	)

	tracker := ffmpeg.NewProgressTracker(total)
	progress := f.progress(total)
	f.sampler.Reset()
	partial := fileutil.PartialPath(output)
	cmd := f.builder.FinalConcat(manifest.Path, partial)
	res, runErr := f.runner.Stream(ctx, cmd, func(line string) {
		if _, ok := tracker.Observe(line); !ok {
			return
		}
		progress.Update(tracker.Position())
		if pct := tracker.Percent(); f.sampler.ShouldLog(pct) {
			logger.Info("final concatenation progress",
				logging.Float64(logging.FieldProgressPercent, pct),
				logging.Float64("position_seconds", tracker.Position()),
				logging.String(logging.FieldProgressStage, "concat"),
			)
		}
	})
	progress.Finish()

	if runErr != nil || !res.OK() {
		_ = fileutil.RemoveIfExists(partial)
		if ctxErr := ctx.Err(); ctxErr != nil {
			return Report{}, ctxErr
		}
		cause := runErr
		if cause == nil {
			cause = errors.New(strings.Join(ffmpeg.StderrTail(res.Stderr, ffmpeg.DiagnosticTailLines), "\n"))
		}
		return Report{}, services.Wrap(services.ErrFinalProcess, "finalize", "concat",
			fmt.Sprintf("%s (exit %d)", output, res.ExitCode), cause)
	}

	report, err := f.report(ctx, partial, len(manifest.Entries), total)
	if err != nil {
		return Report{}, err
	}
	if err := fileutil.Commit(partial, output); err != nil {
		return Report{}, services.Wrap(services.ErrFinalProcess, "finalize", "commit output", output, err)
	}
	report.Output = output
	report.SizeBytes = fileutil.Size(output)
	report.Elapsed = time.Since(started)
	return report, nil
}

func (f *Finalizer) report(ctx context.Context, output string, inputs int, expected float64) (Report, error) {
	info, err := f.prober.Probe(ctx, output)
	if err != nil {
		return Report{}, err
	}
	streams, err := f.prober.AudioStreams(ctx, output)
	if err != nil {
		return Report{}, err
	}
	report := Report{
		Output:           output,
		Inputs:           inputs,
		ExpectedDuration: expected,
		Info:             info,
		AudioStreams:     streams,
		SizeBytes:        fileutil.Size(output),
	}
	report.SyncDelta, report.SyncKnown = info.SyncDelta()
	inspected, err := f.prober.Inspect(ctx, output)
	switch {
	case err == nil:
		report.VideoStreams = inspected.VideoStreamCount()
		if report.VideoStreams != 1 {
			return Report{}, f.reject(output, fmt.Sprintf("%s has %d video streams, want 1", output, report.VideoStreams))
		}
	case errors.Is(err, services.ErrProbeUnavailable):
		return Report{}, err
	default:
		logging.WarnWithContext(logging.WithContext(ctx, f.logger), "final stream listing failed", "final_inspect_failed",
			logging.String("output", output),
			logging.Error(err),
			logging.String(logging.FieldImpact, "video stream count not verified"),
		)
	}
	if !info.HasAudio {
		return Report{}, f.reject(output, fmt.Sprintf("%s has no audio stream", output))
	}
	return report, nil
}

func (f *Finalizer) reject(output, reason string) error {
	_ = fileutil.RemoveIfExists(output)
	return services.Wrap(services.ErrFinalProcess, "finalize", "verify output", reason, nil)
}

// Minutes returns seconds as fractional minutes, rounded to two places.
func Minutes(seconds float64) float64 {
	return math.Round(seconds/60*100) / 100
}
