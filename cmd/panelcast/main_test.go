package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"panelcast/internal/config"
	"panelcast/internal/testsupport"
)

type cliTestEnv struct {
	cfg        *config.Config
	configPath string
}

func setupCLITestEnv(t *testing.T, opts ...testsupport.ConfigOption) *cliTestEnv {
	t.Helper()
	cfg := testsupport.NewConfig(t, append([]testsupport.ConfigOption{testsupport.WithStubbedBinaries()}, opts...)...)
	t.Setenv("HOME", filepath.Join(testsupport.BaseDir(cfg), "home"))
	configPath := filepath.Join(testsupport.BaseDir(cfg), "panelcast.toml")
	writeTestConfig(t, configPath, cfg)
	return &cliTestEnv{cfg: cfg, configPath: configPath}
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	content := fmt.Sprintf(`[paths]
images_dir = %q
audio_dir = %q
chapter_videos_dir = %q
final_output = %q
work_dir = %q
state_dir = %q
log_dir = %q

[video]
width = %d
height = %d
fps = %d

[tools]
ffmpeg_binary = %q
ffprobe_binary = %q

[composite]
blur_radius = %g
background_downscale = %d

[logging]
level = "error"
file = false
`,
		cfg.Paths.ImagesDir,
		cfg.Paths.AudioDir,
		cfg.Paths.ChapterVideosDir,
		cfg.Paths.FinalOutput,
		cfg.Paths.WorkDir,
		cfg.Paths.StateDir,
		cfg.Paths.LogDir,
		cfg.Video.Width,
		cfg.Video.Height,
		cfg.Video.FPS,
		cfg.Tools.FFmpegBinary,
		cfg.Tools.FFprobeBinary,
		cfg.Composite.BlurRadius,
		cfg.Composite.BackgroundDownscale,
	)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func runCLI(t *testing.T, args []string, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	var flags []string
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}

func TestConfigInitAndValidate(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"config", "validate"}, env.configPath)
	if err != nil {
		t.Fatalf("config validate: %v", err)
	}
	requireContains(t, out, "Configuration valid")
	requireContains(t, out, env.cfg.Paths.ImagesDir)

	target := filepath.Join(t.TempDir(), "config.toml")
	out, _, err = runCLI(t, []string{"config", "init", "--path", target}, "")
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	requireContains(t, out, "Wrote sample configuration")
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("expected config file at %s: %v", target, err)
	}

	if _, _, err := runCLI(t, []string{"config", "init", "--path", target}, ""); err == nil {
		t.Fatal("expected init to refuse an existing file")
	}
	out, _, err = runCLI(t, []string{"config", "validate"}, target)
	if err != nil {
		t.Fatalf("validate sample: %v", err)
	}
	requireContains(t, out, "1920x1080@60fps 24000Hz/2ch")
}

func TestConfigValidateRejectsBadValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.toml")
	if err := os.WriteFile(path, []byte("[video]\nwidth = 1921\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	_, _, err := runCLI(t, []string{"config", "validate"}, path)
	if err == nil || !strings.Contains(err.Error(), "even") {
		t.Fatalf("expected odd width to be rejected, got %v", err)
	}
}

func TestDepsCommand(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"deps"}, env.configPath)
	if err != nil {
		t.Fatalf("deps: %v", err)
	}
	requireContains(t, out, "FFmpeg")
	requireContains(t, out, "FFprobe")
	requireContains(t, out, "available")

	env.cfg.Tools.FFmpegBinary = "panelcast-no-such-ffmpeg"
	writeTestConfig(t, env.configPath, env.cfg)
	out, _, err = runCLI(t, []string{"deps"}, env.configPath)
	if err == nil || !strings.Contains(err.Error(), "panelcast-no-such-ffmpeg") {
		t.Fatalf("expected missing ffmpeg error, got %v", err)
	}
	requireContains(t, out, "missing")
}

func TestRunDryRunPrintsPlan(t *testing.T) {
	env := setupCLITestEnv(t)
	testsupport.WritePages(t, env.cfg.Paths.ImagesDir, "chapter_1", 2)

	out, _, err := runCLI(t, []string{"run", "--dry-run"}, env.configPath)
	if err != nil {
		t.Fatalf("run --dry-run: %v", err)
	}
	requireContains(t, out, "chapter_1")
	requireContains(t, out, "anullsrc")
	requireContains(t, out, "segment_page_002.mp4")
	requireContains(t, out, "chapter_1.partial.mp4")

	for _, path := range []string{env.cfg.Paths.ChapterVideosDir, env.cfg.Paths.StateDir} {
		if _, err := os.Stat(path); !os.IsNotExist(err) {
			t.Fatalf("dry run created %s", path)
		}
	}
}

func TestAnalyzeWithoutChapterVideos(t *testing.T) {
	env := setupCLITestEnv(t)
	_, _, err := runCLI(t, []string{"analyze"}, env.configPath)
	if err == nil || !strings.Contains(err.Error(), "not found") {
		t.Fatalf("expected missing chapter videos error, got %v", err)
	}
}

func TestFinalizeRefusesExistingOutput(t *testing.T) {
	env := setupCLITestEnv(t)
	testsupport.WriteFile(t, env.cfg.Paths.FinalOutput, 16)

	_, _, err := runCLI(t, []string{"finalize"}, env.configPath)
	if err == nil || !strings.Contains(err.Error(), "--overwrite") {
		t.Fatalf("expected overwrite guard, got %v", err)
	}
}

func TestHistoryCommands(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"history", "list"}, env.configPath)
	if err != nil {
		t.Fatalf("history list: %v", err)
	}
	requireContains(t, out, "No runs recorded")

	store := testsupport.MustOpenHistory(t, env.cfg)
	started := time.Now().Add(-time.Minute)
	if err := store.StartRun(t.Context(), "7c9e6679-7425-40de-944b-e07fc1f90ae7", "run", started); err != nil {
		t.Fatalf("StartRun: %v", err)
	}

	out, _, err = runCLI(t, []string{"history", "list"}, env.configPath)
	if err != nil {
		t.Fatalf("history list: %v", err)
	}
	requireContains(t, out, "7c9e6679")
	requireContains(t, out, "running")

	out, _, err = runCLI(t, []string{"history", "show", "7c9e"}, env.configPath)
	if err != nil {
		t.Fatalf("history show: %v", err)
	}
	requireContains(t, out, "7c9e6679-7425-40de-944b-e07fc1f90ae7")

	out, _, err = runCLI(t, []string{"history", "show", "7c9e", "--json"}, env.configPath)
	if err != nil {
		t.Fatalf("history show --json: %v", err)
	}
	var view struct {
		RunID   string `json:"run_id"`
		Command string `json:"command"`
		Status  string `json:"status"`
	}
	if err := json.Unmarshal([]byte(out), &view); err != nil {
		t.Fatalf("decode %q: %v", out, err)
	}
	if view.RunID != "7c9e6679-7425-40de-944b-e07fc1f90ae7" || view.Command != "run" || view.Status != "running" {
		t.Fatalf("unexpected run view: %+v", view)
	}

	if _, _, err := runCLI(t, []string{"history", "show", "ffff"}, env.configPath); err == nil {
		t.Fatal("expected unknown run to fail")
	}
}

func TestStagingListAndClean(t *testing.T) {
	env := setupCLITestEnv(t)
	workDir := filepath.Join(env.cfg.Paths.WorkDir, "temp_chapter_3")
	testsupport.WriteFile(t, filepath.Join(workDir, "segment_page_001.mp4"), 2048)
	partial := filepath.Join(env.cfg.Paths.ChapterVideosDir, "chapter_3.partial.mp4")
	testsupport.WriteFile(t, partial, 64)

	out, _, err := runCLI(t, []string{"staging", "list"}, env.configPath)
	if err != nil {
		t.Fatalf("staging list: %v", err)
	}
	requireContains(t, out, "temp_chapter_3")

	out, _, err = runCLI(t, []string{"staging", "clean"}, env.configPath)
	if err != nil {
		t.Fatalf("staging clean: %v", err)
	}
	requireContains(t, out, "chapter_3.partial.mp4")
	if _, err := os.Stat(workDir); err != nil {
		t.Fatalf("recent work dir should survive a plain clean: %v", err)
	}

	out, _, err = runCLI(t, []string{"staging", "clean", "--all"}, env.configPath)
	if err != nil {
		t.Fatalf("staging clean --all: %v", err)
	}
	requireContains(t, out, "temp_chapter_3")
	if _, err := os.Stat(workDir); !os.IsNotExist(err) {
		t.Fatal("work dir should be removed by --all")
	}
}
