package chapter

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"panelcast/internal/audio"
	"panelcast/internal/composite"
	"panelcast/internal/concat"
	"panelcast/internal/config"
	"panelcast/internal/fileutil"
	"panelcast/internal/layout"
	"panelcast/internal/logging"
	"panelcast/internal/media/ffmpeg"
	"panelcast/internal/media/ffprobe"
	"panelcast/internal/media/runner"
	"panelcast/internal/segment"
	"panelcast/internal/services"
	"panelcast/internal/staging"
)

// Outcome is the result of assembling one chapter.
type Outcome struct {
	Chapter     layout.Chapter
	State       State
	History     []State
	Skipped     bool
	Pages       int
	Synthesized int
	Repaired    int
	Duration    float64
	Elapsed     time.Duration
	Err         error
}

// Fatal reports whether the failure must stop the whole run rather than just
// this chapter.
func (o Outcome) Fatal() bool {
	if o.Err == nil {
		return false
	}
	return errors.Is(o.Err, services.ErrProbeUnavailable) ||
		errors.Is(o.Err, context.Canceled) ||
		errors.Is(o.Err, context.DeadlineExceeded)
}

// PageProgress observes finished pages within a chapter.
type PageProgress interface {
	PageDone()
	Finish()
}

type nopPageProgress struct{}

func (nopPageProgress) PageDone() {}
func (nopPageProgress) Finish()   {}

// Option configures an Assembler.
type Option func(*Assembler)

// WithPageProgress installs a per-chapter progress factory.
func WithPageProgress(factory func(ch layout.Chapter) PageProgress) Option {
	return func(a *Assembler) {
		if factory != nil {
			a.progress = factory
		}
	}
}

// Assembler turns chapters into chapter videos.
type Assembler struct {
	layout    layout.Layout
	spec      config.VideoSpec
	composite composite.Options
	workRoot  string
	workers   int

	runner   runner.Runner
	prober   *ffprobe.Prober
	builder  ffmpeg.Builder
	resolver *audio.Resolver
	synth    *segment.Synthesizer
	auditor  *segment.Auditor
	progress func(ch layout.Chapter) PageProgress
	logger   *slog.Logger
}

// NewAssembler wires an assembler from configuration.
func NewAssembler(cfg *config.Config, r runner.Runner, prober *ffprobe.Prober, logger *slog.Logger, opts ...Option) *Assembler {
	spec := cfg.VideoSpec()
	builder := ffmpeg.NewBuilder(cfg.FFmpegBinary(), spec)
	workers := cfg.Workflow.PageWorkers
	if workers < 1 {
		workers = 1
	}
	a := &Assembler{
		layout:    layout.New(cfg),
		spec:      spec,
		composite: composite.OptionsFromConfig(cfg),
		workRoot:  cfg.Paths.WorkDir,
		workers:   workers,
		runner:    r,
		prober:    prober,
		builder:   builder,
		resolver:  audio.NewResolver(prober, r, builder, audio.PolicyFromConfig(cfg), logger),
		synth:     segment.NewSynthesizer(r, builder, logger),
		auditor:   segment.NewAuditor(prober, r, builder, logger),
		progress:  func(layout.Chapter) PageProgress { return nopPageProgress{} },
		logger:    logging.NewComponentLogger(logger, "chapter"),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// WorkDir returns the temp directory used while assembling ch.
func (a *Assembler) WorkDir(ch layout.Chapter) string {
	return filepath.Join(a.workRoot, staging.ChapterDirPrefix+ch.Name)
}

// Assemble drives ch through the state machine. An existing output short
// circuits to Done without touching it.
func (a *Assembler) Assemble(ctx context.Context, ch layout.Chapter) Outcome {
	started := time.Now()
	ctx = services.WithStage(services.WithChapter(ctx, ch.Name), "assemble")
	logger := logging.WithContext(ctx, a.logger)
	m := NewMachine()
	out := Outcome{Chapter: ch}

	finish := func() Outcome {
		out.State = m.State()
		out.History = m.History()
		out.Skipped = m.Skipped()
		out.Err = m.Err()
		out.Elapsed = time.Since(started)
		return out
	}
	fail := func(err error) Outcome {
		reached := m.State()
		m.Fail(err)
		logging.ErrorWithContext(logger, "chapter failed", "chapter_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorCode, services.ErrorCode(err)),
			logging.String("failed_in", string(reached)),
			logging.String(logging.FieldErrorHint, "fix the reported file and re-run; finished chapters are skipped"),
		)
		return finish()
	}

	if ch.Done() {
		_ = m.Fire(EventOutputExists)
		logger.Info("chapter video already exists",
			logging.Args(append(logging.DecisionAttrs("chapter_assembly", "skip", "output exists"),
				logging.String("output", ch.Output),
			)...)...,
		)
		return finish()
	}

	if err := a.layout.LoadPages(&ch); err != nil {
		return fail(err)
	}
	out.Chapter = ch
	out.Pages = len(ch.Pages)
	_ = m.Fire(EventImagesFound)
	logger.Info("processing chapter", logging.Int("pages", len(ch.Pages)), logging.String("label", ch.Label))

	workDir := a.WorkDir(ch)
	if err := os.MkdirAll(workDir, 0o755); err != nil {
		return fail(services.Wrap(services.ErrConfiguration, "chapter", "create work dir", workDir, err))
	}
	defer func() {
		if err := os.RemoveAll(workDir); err != nil {
			logging.WarnWithContext(logger, "failed to remove chapter work dir", "cleanup_failed",
				logging.String("work_dir", workDir),
				logging.Error(err),
				logging.String(logging.FieldImpact, "stale files remain until the next cleanup"),
			)
		}
	}()

	segments, err := a.buildSegments(ctx, ch, workDir)
	if err != nil {
		return fail(err)
	}
	paths := make([]string, 0, len(segments))
	for _, seg := range segments {
		paths = append(paths, seg.Path)
		out.Duration += seg.Duration
		if seg.Audio.Kind != audio.KindReal {
			out.Synthesized++
		}
		if seg.Repaired {
			out.Repaired++
		}
	}
	_ = m.Fire(EventSegmentsBuilt)

	partial := fileutil.PartialPath(ch.Output)
	if err := a.concatenate(ctx, paths, workDir, partial); err != nil {
		return fail(err)
	}
	_ = m.Fire(EventConcatenated)

	ok, err := a.prober.HasAudio(ctx, partial)
	if err == nil && !ok {
		err = services.Wrap(services.ErrConcatVerification, "chapter", "verify output", fmt.Sprintf("%s has no audio stream", partial), nil)
	}
	if err == nil {
		if commitErr := fileutil.Commit(partial, ch.Output); commitErr != nil {
			err = services.Wrap(services.ErrConcatVerification, "chapter", "commit output", ch.Output, commitErr)
		}
	}
	if err != nil {
		_ = fileutil.RemoveIfExists(partial)
		return fail(err)
	}
	_ = m.Fire(EventVerified)

	logger.Info("chapter video created",
		logging.String("output", ch.Output),
		logging.Int("pages", out.Pages),
		logging.Float64("duration_seconds", out.Duration),
		logging.Int64("output_size_bytes", fileutil.Size(ch.Output)),
		logging.Int("silent_pages", out.Synthesized),
		logging.Int("repaired_segments", out.Repaired),
	)
	return finish()
}

func (a *Assembler) buildSegments(ctx context.Context, ch layout.Chapter, workDir string) ([]segment.Segment, error) {
	progress := a.progress(ch)
	defer progress.Finish()

	segments := make([]segment.Segment, len(ch.Pages))
	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.workers)
	for i, page := range ch.Pages {
		g.Go(func() error {
			seg, err := a.buildPage(gctx, page, workDir)
			if err != nil {
				return err
			}
			segments[i] = seg
			mu.Lock()
			progress.PageDone()
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return segments, nil
}

func (a *Assembler) buildPage(ctx context.Context, page layout.Page, workDir string) (segment.Segment, error) {
	ctx = services.WithPage(ctx, page.Base())

	if err := composite.Render(page.ImagePath, segment.FramePath(workDir, page), a.spec, a.composite); err != nil {
		return segment.Segment{}, err
	}
	resolved, err := a.resolver.Resolve(ctx, page, workDir)
	if err != nil {
		return segment.Segment{}, err
	}
	seg, err := a.synth.Build(ctx, page, resolved, workDir)
	if err != nil {
		return segment.Segment{}, err
	}
	return a.auditor.Ensure(ctx, seg)
}

func (a *Assembler) concatenate(ctx context.Context, segments []string, workDir, output string) error {
	manifest, err := concat.BuildManifest(ctx, segments, nil, filepath.Join(workDir, "concat_list.txt"))
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(output), 0o755); err != nil {
		return services.Wrap(services.ErrConfiguration, "chapter", "create output dir", filepath.Dir(output), err)
	}
	res, err := a.runner.Run(ctx, a.builder.ChapterConcat(manifest.Path, output), 0)
	if err == nil && res.OK() {
		return nil
	}
	_ = fileutil.RemoveIfExists(output)
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	if err == nil {
		err = errors.New(ffmpeg.Diagnostic(res.Stderr))
	}
	return services.Wrap(services.ErrEncodeFailure, "chapter", "concat", output, err)
}

// Plan lists the commands assembling ch would run, without encoding. Audio
// durations are still measured so the listed segment lengths are real.
func (a *Assembler) Plan(ctx context.Context, ch layout.Chapter) ([]runner.Command, error) {
	if err := a.layout.LoadPages(&ch); err != nil {
		return nil, err
	}
	workDir := a.WorkDir(ch)
	cmds := make([]runner.Command, 0, len(ch.Pages)+1)
	for _, page := range ch.Pages {
		decision, err := a.resolver.Preview(ctx, page, workDir)
		if err != nil {
			return nil, err
		}
		if decision.Kind == audio.KindSynthesized {
			cmds = append(cmds, a.builder.SilentAudio(decision.Duration, decision.Path))
		}
		cmds = append(cmds, a.builder.Segment(segment.FramePath(workDir, page), decision.Path, decision.Duration, segment.OutputPath(workDir, page)))
	}
	cmds = append(cmds, a.builder.ChapterConcat(filepath.Join(workDir, "concat_list.txt"), fileutil.PartialPath(ch.Output)))
	return cmds, nil
}
