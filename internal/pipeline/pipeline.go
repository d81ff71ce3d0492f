package pipeline

import (
	"log/slog"

	"github.com/google/uuid"

	"panelcast/internal/chapter"
	"panelcast/internal/concat"
	"panelcast/internal/config"
	"panelcast/internal/history"
	"panelcast/internal/layout"
	"panelcast/internal/logging"
	"panelcast/internal/media/ffmpeg"
	"panelcast/internal/media/ffprobe"
	"panelcast/internal/media/runner"
	"panelcast/internal/standardize"
)

// Options control a single pipeline invocation.
type Options struct {
	// DryRun lists the plan and the commands that would run without encoding
	// or touching the filesystem.
	DryRun bool
	// Overwrite allows finalize to replace an existing final output.
	Overwrite bool
}

// Option configures a Runner.
type Option func(*Runner)

// WithHistory records runs in store. A nil store disables recording.
func WithHistory(store *history.Store) Option {
	return func(r *Runner) {
		r.history = store
	}
}

// WithPageProgress forwards a per-chapter page progress factory to the
// chapter assembler.
func WithPageProgress(factory func(ch layout.Chapter) chapter.PageProgress) Option {
	return func(r *Runner) {
		r.chapterOpts = append(r.chapterOpts, chapter.WithPageProgress(factory))
	}
}

// WithFinalProgress forwards a progress factory to the final concatenation.
func WithFinalProgress(factory func(total float64) concat.Progress) Option {
	return func(r *Runner) {
		r.finalOpts = append(r.finalOpts, concat.WithProgress(factory))
	}
}

// WithRunIDs overrides run ID generation.
func WithRunIDs(next func() string) Option {
	return func(r *Runner) {
		if next != nil {
			r.newRunID = next
		}
	}
}

// Runner drives chapters, standardization, and final concatenation.
type Runner struct {
	cfg          *config.Config
	tools        runner.Runner
	prober       *ffprobe.Prober
	builder      ffmpeg.Builder
	layout       layout.Layout
	assembler    *chapter.Assembler
	standardizer *standardize.Standardizer
	finalizer    *concat.Finalizer
	history      *history.Store
	logger       *slog.Logger
	newRunID     func() string

	chapterOpts []chapter.Option
	finalOpts   []concat.FinalizerOption
}

// New wires a pipeline from configuration. tools executes every ffmpeg and
// ffprobe invocation.
func New(cfg *config.Config, tools runner.Runner, logger *slog.Logger, opts ...Option) *Runner {
	if logger == nil {
		logger = logging.NewNop()
	}
	r := &Runner{
		cfg:      cfg,
		tools:    tools,
		layout:   layout.New(cfg),
		builder:  ffmpeg.NewBuilder(cfg.FFmpegBinary(), cfg.VideoSpec()),
		logger:   logging.NewComponentLogger(logger, "pipeline"),
		newRunID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(r)
	}
	r.prober = ffprobe.NewFromConfig(cfg, tools, logger)
	r.assembler = chapter.NewAssembler(cfg, tools, r.prober, logger, r.chapterOpts...)
	r.standardizer = standardize.New(tools, r.prober, r.builder, logger)
	r.finalizer = concat.NewFinalizer(tools, r.prober, r.builder, logger, r.finalOpts...)
	return r
}

// Layout exposes the input layout the runner operates on.
func (r *Runner) Layout() layout.Layout {
	return r.layout
}
