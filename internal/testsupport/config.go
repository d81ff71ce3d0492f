package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"panelcast/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// Input directories are created; outputs are left for the code under test.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.ImagesDir = filepath.Join(base, "chapters-panels")
	cfgVal.Paths.AudioDir = filepath.Join(base, "chapters-panels-speech")
	cfgVal.Paths.ChapterVideosDir = filepath.Join(base, "chapter-videos")
	cfgVal.Paths.FinalOutput = filepath.Join(base, "complete_video.mp4")
	cfgVal.Paths.WorkDir = filepath.Join(base, "work")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Paths.StateDir = filepath.Join(base, "state")
	cfgVal.Logging.File = false
	// Keep composites cheap in tests.
	cfgVal.Video.Width = 64
	cfgVal.Video.Height = 36
	cfgVal.Composite.BlurRadius = 4
	cfgVal.Composite.BackgroundDownscale = 2

	for _, dir := range []string{cfgVal.Paths.ImagesDir, cfgVal.Paths.AudioDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			t.Fatalf("mkdir %s: %v", dir, err)
		}
	}

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}
	for _, opt := range opts {
		opt(builder)
	}
	return builder.cfg
}

// WithVideo overrides the target VideoSpec dimensions and frame rate.
func WithVideo(width, height, fps int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Video.Width = width
		b.cfg.Video.Height = height
		b.cfg.Video.FPS = fps
	}
}

// WithPageWorkers sets the per-chapter page worker count.
func WithPageWorkers(n int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Workflow.PageWorkers = n
	}
}

// WithoutAudioDir removes the narration root so runs fall back to silence.
func WithoutAudioDir() ConfigOption {
	return func(b *configBuilder) {
		if err := os.RemoveAll(b.cfg.Paths.AudioDir); err != nil {
			b.t.Fatalf("remove audio dir: %v", err)
		}
	}
}

// WithStubbedBinaries writes stub executables for the provided names and
// prepends them to PATH. If names is empty, ffmpeg and ffprobe are stubbed.
func WithStubbedBinaries(names ...string) ConfigOption {
	return func(b *configBuilder) {
		if len(names) == 0 {
			names = []string{"ffmpeg", "ffprobe"}
		}
		binDir := filepath.Join(b.baseDir, "bin")
		if err := os.MkdirAll(binDir, 0o755); err != nil {
			b.t.Fatalf("mkdir bin dir: %v", err)
		}
		script := []byte("#!/bin/sh\nexit 0\n")
		for _, name := range names {
			target := filepath.Join(binDir, name)
			if err := os.WriteFile(target, script, 0o755); err != nil {
				b.t.Fatalf("write stub %s: %v", name, err)
			}
		}
		b.t.Setenv("PATH", binDir+string(os.PathListSeparator)+os.Getenv("PATH"))
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.StateDir)
}
