package audio

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"path/filepath"

	"panelcast/internal/config"
	"panelcast/internal/layout"
	"panelcast/internal/logging"
	"panelcast/internal/media/ffmpeg"
	"panelcast/internal/media/ffprobe"
	"panelcast/internal/media/runner"
	"panelcast/internal/services"
)

// Kind identifies where a page's audio comes from.
type Kind string

const (
	// KindReal is the page's own narration clip.
	KindReal Kind = "real"
	// KindSynthesized is a generated silent clip.
	KindSynthesized Kind = "synthesized"
	// KindNone means no clip; the segment encoder injects null audio inline.
	KindNone Kind = "none"
)

// ResolvedAudio is the audio decision for one page.
type ResolvedAudio struct {
	Kind     Kind
	Path     string
	Duration float64
	// Reason names the policy branch that produced the decision.
	Reason string
}

// Policy holds the duration rules.
type Policy struct {
	FallbackSeconds float64
	MinSeconds      float64
}

// PolicyFromConfig reads the audio policy from configuration.
func PolicyFromConfig(cfg *config.Config) Policy {
	return Policy{
		FallbackSeconds: cfg.Audio.FallbackDurationSeconds,
		MinSeconds:      cfg.Audio.MinDurationSeconds,
	}
}

// DurationProber is the subset of ffprobe the resolver needs.
type DurationProber interface {
	Duration(ctx context.Context, path string) (ffprobe.DurationResult, error)
}

// Resolver applies the audio policy to pages.
type Resolver struct {
	prober  DurationProber
	runner  runner.Runner
	builder ffmpeg.Builder
	policy  Policy
	logger  *slog.Logger
}

// NewResolver constructs a resolver. Silent clips are encoded through r with
// builder.
func NewResolver(prober DurationProber, r runner.Runner, builder ffmpeg.Builder, policy Policy, logger *slog.Logger) *Resolver {
	if policy.FallbackSeconds <= 0 {
		policy.FallbackSeconds = 1.0
	}
	if policy.MinSeconds <= 0 {
		policy.MinSeconds = 0.1
	}
	return &Resolver{
		prober:  prober,
		runner:  r,
		builder: builder,
		policy:  policy,
		logger:  logging.NewComponentLogger(logger, "audio"),
	}
}

// Resolve picks the audio source and duration for page, encoding a silent
// clip into workDir when the policy calls for one. Only a probe that cannot
// run at all is returned as an error.
func (r *Resolver) Resolve(ctx context.Context, page layout.Page, workDir string) (ResolvedAudio, error) {
	decision, err := r.Preview(ctx, page, workDir)
	if err != nil || decision.Kind != KindSynthesized {
		return decision, err
	}
	return r.silent(ctx, decision)
}

// Preview applies the policy without encoding anything. A synthesized
// decision names the silent clip Resolve would write.
func (r *Resolver) Preview(ctx context.Context, page layout.Page, workDir string) (ResolvedAudio, error) {
	logger := logging.WithContext(ctx, r.logger)
	synthesized := func(reason string) ResolvedAudio {
		return ResolvedAudio{
			Kind:     KindSynthesized,
			Path:     SilentPath(workDir, page),
			Duration: r.policy.FallbackSeconds,
			Reason:   reason,
		}
	}

	if page.AudioPath == "" {
		return synthesized("no narration file"), nil
	}

	res, err := r.prober.Duration(ctx, page.AudioPath)
	if err != nil {
		return ResolvedAudio{}, err
	}

	switch res.Status {
	case ffprobe.DurationValid:
		return ResolvedAudio{
			Kind:     KindReal,
			Path:     page.AudioPath,
			Duration: math.Max(res.Seconds, r.policy.MinSeconds),
			Reason:   "measured",
		}, nil
	case ffprobe.DurationZero:
		return synthesized("zero duration"), nil
	case ffprobe.DurationInvalid:
		invalid := services.Wrap(services.ErrInvalidAudio, "audio", "probe duration", page.AudioPath, errors.New(res.Detail))
		logging.WarnWithContext(logger, "narration clip is corrupt; substituting silence", "invalid_audio",
			logging.String("audio_path", page.AudioPath),
			logging.Error(invalid),
			logging.String(logging.FieldErrorCode, services.ErrorCode(invalid)),
			logging.String(logging.FieldErrorHint, "re-generate the narration clip"),
			logging.String(logging.FieldImpact, "page plays silently for the fallback duration"),
			logging.Alert("corrupt_narration"),
		)
		return synthesized("invalid audio"), nil
	default:
		logging.WarnWithContext(logger, "narration duration unavailable; using fallback", "audio_duration_unavailable",
			logging.String("audio_path", page.AudioPath),
			logging.String("detail", res.Detail),
			logging.Float64("duration_seconds", r.policy.FallbackSeconds),
		)
		return ResolvedAudio{
			Kind:     KindReal,
			Path:     page.AudioPath,
			Duration: r.policy.FallbackSeconds,
			Reason:   "duration unavailable",
		}, nil
	}
}

// SilentPath is where the silent clip for page is written.
func SilentPath(workDir string, page layout.Page) string {
	return filepath.Join(workDir, "silent_"+page.Base()+".aac")
}

func (r *Resolver) silent(ctx context.Context, decision ResolvedAudio) (ResolvedAudio, error) {
	logger := logging.WithContext(ctx, r.logger)
	cmd := r.builder.SilentAudio(decision.Duration, decision.Path)

	res, err := r.runner.Run(ctx, cmd, 0)
	if err != nil || !res.OK() {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ResolvedAudio{}, ctxErr
		}
		detail := ffmpeg.Diagnostic(res.Stderr)
		if err != nil {
			detail = err.Error()
		}
		logging.WarnWithContext(logger, "silent clip generation failed; segment will carry inline null audio", "silent_audio_failed",
			logging.String("output", decision.Path),
			logging.String("stderr_tail", detail),
			logging.String(logging.FieldErrorHint, "check ffmpeg lavfi support"),
		)
		return ResolvedAudio{Kind: KindNone, Duration: decision.Duration, Reason: decision.Reason}, nil
	}

	logger.Info("silent audio substituted",
		logging.Args(append(logging.DecisionAttrs("audio_source", string(KindSynthesized), decision.Reason),
			logging.Float64("duration_seconds", decision.Duration),
		)...)...,
	)
	return decision, nil
}
