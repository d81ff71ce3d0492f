package audio_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"panelcast/internal/audio"
	"panelcast/internal/config"
	"panelcast/internal/layout"
	"panelcast/internal/media/ffmpeg"
	"panelcast/internal/media/ffprobe"
	"panelcast/internal/media/runner"
	"panelcast/internal/services"
	"panelcast/internal/testsupport"
)

func newResolver(r runner.Runner) *audio.Resolver {
	spec := config.DefaultVideoSpec()
	return audio.NewResolver(ffprobe.New(r), r, ffmpeg.NewBuilder("ffmpeg", spec), audio.Policy{FallbackSeconds: 1.0, MinSeconds: 0.1}, nil)
}

func TestResolvePolicy(t *testing.T) {
	dir := t.TempDir()
	workDir := filepath.Join(dir, "work")
	narration := func(name string, m testsupport.Media) string {
		path := filepath.Join(dir, "audio", name)
		testsupport.WriteMedia(t, path, m)
		return path
	}
	corrupt := narration("corrupt.mp3", testsupport.Media{Corrupt: true})

	tests := []struct {
		name     string
		audio    string
		kind     audio.Kind
		duration float64
	}{
		{"measured", narration("page_1.mp3", testsupport.NarrationMedia(2.0)), audio.KindReal, 2.0},
		{"corrupt", corrupt, audio.KindSynthesized, 1.0},
		{"missing", "", audio.KindSynthesized, 1.0},
		{"zero", narration("zero.mp3", testsupport.NarrationMedia(0)), audio.KindSynthesized, 1.0},
		{"clamped", narration("short.wav", testsupport.NarrationMedia(0.04)), audio.KindReal, 0.1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sim := testsupport.NewMediaSim()
			page := layout.Page{Chapter: "chapter_1", Index: 1, File: tt.name + ".png", AudioPath: tt.audio}
			got, err := newResolver(sim).Resolve(context.Background(), page, workDir)
			if err != nil {
				t.Fatalf("Resolve: %v", err)
			}
			if got.Kind != tt.kind || got.Duration != tt.duration {
				t.Fatalf("Resolve = %+v, want kind %s duration %v", got, tt.kind, tt.duration)
			}
			if tt.kind == audio.KindSynthesized {
				want := filepath.Join(workDir, "silent_"+tt.name+".aac")
				if got.Path != want {
					t.Fatalf("silent path = %q, want %q", got.Path, want)
				}
				if m := testsupport.ReadMedia(t, got.Path); !m.HasAudio || m.Duration != 1.0 {
					t.Fatalf("silent clip = %+v", m)
				}
			}
		})
	}
}

func TestResolveDurationUnavailableKeepsClip(t *testing.T) {
	fake := testsupport.NewFakeRunner()
	fake.OnArgs(testsupport.Fail(1, "something unexpected happened\n"), "format=duration")
	page := layout.Page{File: "page_1.png", AudioPath: "/narration/page_1.mp3"}

	got, err := newResolver(fake).Resolve(context.Background(), page, t.TempDir())
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if got.Kind != audio.KindReal || got.Path != page.AudioPath || got.Duration != 1.0 {
		t.Fatalf("Resolve = %+v", got)
	}
}

func TestResolveSilentFailureFallsBackToInline(t *testing.T) {
	fake := testsupport.NewFakeRunner()
	fake.On(testsupport.IsEncode, testsupport.Fail(1, "Unknown input format: 'lavfi'\n"))
	page := layout.Page{File: "page_3.png"}

	got, err := newResolver(fake).Resolve(context.Background(), page, t.TempDir())
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if got.Kind != audio.KindNone || got.Path != "" || got.Duration != 1.0 {
		t.Fatalf("Resolve = %+v", got)
	}
}

func TestResolveProbeUnavailable(t *testing.T) {
	sim := testsupport.NewMediaSim()
	sim.ProbeMissing = true
	page := layout.Page{File: "page_1.png", AudioPath: "/narration/page_1.mp3"}

	_, err := newResolver(sim).Resolve(context.Background(), page, t.TempDir())
	if !errors.Is(err, services.ErrProbeUnavailable) {
		t.Fatalf("expected ErrProbeUnavailable, got %v", err)
	}
	if services.Scope(err) != services.ScopeRun {
		t.Fatalf("scope = %s", services.Scope(err))
	}
}

func TestResolveThreePageScenario(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "page_1.mp3")
	bad := filepath.Join(dir, "page_2.mp3")
	testsupport.WriteMedia(t, good, testsupport.NarrationMedia(2.0))
	testsupport.WriteFile(t, bad, 64)

	sim := testsupport.NewMediaSim()
	resolver := newResolver(sim)
	pages := []layout.Page{
		{File: "page_1.png", AudioPath: good},
		{File: "page_2.png", AudioPath: bad},
		{File: "page_3.png"},
	}
	var durations []float64
	for _, page := range pages {
		got, err := resolver.Resolve(context.Background(), page, dir)
		if err != nil {
			t.Fatalf("Resolve %s: %v", page.File, err)
		}
		durations = append(durations, got.Duration)
	}
	want := []float64{2.0, 1.0, 1.0}
	for i := range want {
		if durations[i] != want[i] {
			t.Fatalf("durations = %v, want %v", durations, want)
		}
	}
	if n := sim.CountCalls(testsupport.IsEncode); n != 2 {
		t.Fatalf("silent encodes = %d, want 2", n)
	}
}

func TestPreviewDoesNotEncode(t *testing.T) {
	sim := testsupport.NewMediaSim()
	workDir := t.TempDir()
	page := layout.Page{File: "page_4.png"}

	got, err := newResolver(sim).Preview(context.Background(), page, workDir)
	if err != nil {
		t.Fatalf("Preview: %v", err)
	}
	if got.Kind != audio.KindSynthesized || got.Path != audio.SilentPath(workDir, page) {
		t.Fatalf("Preview = %+v", got)
	}
	if n := sim.CountCalls(testsupport.IsEncode); n != 0 {
		t.Fatalf("Preview ran %d encodes", n)
	}
}
