package preflight

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"panelcast/internal/services"
	"panelcast/internal/testsupport"
)

func TestCheckDirectoryAccess_OK(t *testing.T) {
	dir := t.TempDir()
	result := CheckDirectoryAccess("test", dir)
	if !result.Passed {
		t.Fatalf("expected pass for temp dir, got: %s", result.Detail)
	}
}

func TestCheckDirectoryAccess_NotExist(t *testing.T) {
	result := CheckDirectoryAccess("test", filepath.Join(t.TempDir(), "nope"))
	if result.Passed {
		t.Fatal("expected failure for missing dir")
	}
	if result.Detail == "" {
		t.Fatal("expected non-empty detail")
	}
}

func TestCheckDirectoryAccess_NotDir(t *testing.T) {
	f := filepath.Join(t.TempDir(), "file.txt")
	if err := os.WriteFile(f, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	result := CheckDirectoryAccess("test", f)
	if result.Passed {
		t.Fatal("expected failure for file path")
	}
}

func TestCheckOptionalDirectory_Missing(t *testing.T) {
	result := CheckOptionalDirectory("audio", filepath.Join(t.TempDir(), "nope"))
	if !result.Passed || !result.Optional {
		t.Fatalf("missing optional dir should pass, got %+v", result)
	}
	if !strings.Contains(result.Detail, "silent audio") {
		t.Fatalf("unexpected detail: %s", result.Detail)
	}
}

func TestRunAll_NilConfig(t *testing.T) {
	if results := RunAll(context.Background(), nil); results != nil {
		t.Fatal("expected nil results for nil config")
	}
}

func TestRunAll_Ready(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithStubbedBinaries())
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}

	results := RunAll(context.Background(), cfg)
	if len(results) != 6 {
		t.Fatalf("expected 6 results, got %d", len(results))
	}
	for _, r := range results {
		if !r.Passed {
			t.Errorf("check %q failed: %s", r.Name, r.Detail)
		}
	}
	if err := Err(results); err != nil {
		t.Fatalf("Err = %v", err)
	}
}

func TestRunAll_MissingAudioIsNotFatal(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithStubbedBinaries(), testsupport.WithoutAudioDir())
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}
	if err := Err(RunAll(context.Background(), cfg)); err != nil {
		t.Fatalf("missing audio root must not fail preflight: %v", err)
	}
}

func TestErrReportsMissingBinaryAndImages(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Tools.FFmpegBinary = "panelcast-no-such-ffmpeg"
	cfg.Paths.ImagesDir = filepath.Join(testsupport.BaseDir(cfg), "missing-images")
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}

	results := RunAll(context.Background(), cfg)
	err := Err(results)
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected ErrConfiguration, got %v", err)
	}
	for _, want := range []string{"Images directory", "panelcast-no-such-ffmpeg"} {
		if !strings.Contains(err.Error(), want) {
			t.Fatalf("error %q should mention %q", err, want)
		}
	}
	if len(Failures(results)) < 2 {
		t.Fatalf("expected at least 2 failures, got %+v", Failures(results))
	}
}

func TestCheckCreatableDirectory(t *testing.T) {
	base := t.TempDir()

	existing := CheckCreatableDirectory("out", base)
	if !existing.Passed || existing.Degraded {
		t.Fatalf("existing writable dir should pass cleanly, got %+v", existing)
	}

	missing := CheckCreatableDirectory("out", filepath.Join(base, "a", "b"))
	if !missing.Passed || !missing.Degraded {
		t.Fatalf("missing dir under writable parent should pass degraded, got %+v", missing)
	}
	if !strings.Contains(missing.Detail, "will be created") {
		t.Fatalf("unexpected detail: %s", missing.Detail)
	}

	file := filepath.Join(base, "file.txt")
	if err := os.WriteFile(file, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if got := CheckCreatableDirectory("out", file); got.Passed {
		t.Fatalf("regular file should fail, got %+v", got)
	}
}
