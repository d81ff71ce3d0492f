package ffprobe_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"panelcast/internal/media/ffprobe"
	"panelcast/internal/media/runner"
	"panelcast/internal/services"
	"panelcast/internal/testsupport"
)

func TestDurationClassification(t *testing.T) {
	tests := []struct {
		name    string
		handler testsupport.Handler
		status  ffprobe.DurationStatus
		seconds float64
	}{
		{"valid", testsupport.Respond("2.345000\n"), ffprobe.DurationValid, 2.345},
		{"zero", testsupport.Respond("0.000000\n"), ffprobe.DurationZero, 0},
		{"invalid data", testsupport.Fail(1, "x.mp3: Invalid data found when processing input"), ffprobe.DurationInvalid, 0},
		{"unseekable", testsupport.Fail(1, "Could not seek to position"), ffprobe.DurationInvalid, 0},
		{"other diagnostic", testsupport.Fail(1, "Permission denied"), ffprobe.DurationUnavailable, 0},
		{"empty", testsupport.Respond(""), ffprobe.DurationUnavailable, 0},
		{"not a number", testsupport.Respond("N/A\n"), ffprobe.DurationUnavailable, 0},
		{"timeout", testsupport.Error(runner.ErrTimeout), ffprobe.DurationUnavailable, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := testsupport.NewFakeRunner().OnArgs(tt.handler, "format=duration")
			got, err := ffprobe.New(fake).Duration(context.Background(), "page.mp3")
			if err != nil {
				t.Fatalf("Duration returned error: %v", err)
			}
			if got.Status != tt.status || got.Seconds != tt.seconds {
				t.Fatalf("Duration = %+v, want status %s seconds %v", got, tt.status, tt.seconds)
			}
		})
	}
}

func TestDurationProbeUnavailableIsFatal(t *testing.T) {
	fake := testsupport.NewFakeRunner().OnArgs(testsupport.Error(runner.ErrStart), "format=duration")
	_, err := ffprobe.New(fake).Duration(context.Background(), "page.mp3")
	if !errors.Is(err, services.ErrProbeUnavailable) {
		t.Fatalf("expected ErrProbeUnavailable, got %v", err)
	}
	if services.Scope(err) != services.ScopeRun {
		t.Fatalf("scope = %s, want run", services.Scope(err))
	}
}

func TestHasAudio(t *testing.T) {
	tests := []struct {
		name    string
		handler testsupport.Handler
		want    bool
	}{
		{"present", testsupport.Respond("aac\n"), true},
		{"absent", testsupport.Respond(""), false},
		{"non-zero exit", testsupport.Fail(1, "boom"), false},
		{"timeout", testsupport.Error(runner.ErrTimeout), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := testsupport.NewFakeRunner().OnArgs(tt.handler, "-select_streams a:0", "stream=codec_name")
			got, err := ffprobe.New(fake).HasAudio(context.Background(), "seg.mp4")
			if err != nil {
				t.Fatalf("HasAudio returned error: %v", err)
			}
			if got != tt.want {
				t.Fatalf("HasAudio = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestProbeParsesStreams(t *testing.T) {
	fake := testsupport.NewFakeRunner().
		OnArgs(testsupport.Respond("12.500000\n"), "format=duration").
		OnArgs(testsupport.Respond("h264,1280,720,30000/1001\n"), "-select_streams v:0").
		OnArgs(testsupport.Respond("aac,48000,1,12.400000,128000\n"), "-select_streams a:0")

	info, err := ffprobe.New(fake).Probe(context.Background(), "chapter_1.mp4")
	if err != nil {
		t.Fatalf("Probe returned error: %v", err)
	}
	if info.Duration != 12.5 || info.Width != 1280 || info.Height != 720 || info.VideoCodec != "h264" {
		t.Fatalf("unexpected video info: %+v", info)
	}
	if info.FPS < 29.96 || info.FPS > 29.98 {
		t.Fatalf("fps = %v", info.FPS)
	}
	if !info.HasAudio || info.SampleRate != 48000 || info.Channels != 1 || info.AudioDuration != 12.4 {
		t.Fatalf("unexpected audio info: %+v", info)
	}
	if delta, ok := info.SyncDelta(); !ok || delta < 0.099 || delta > 0.101 {
		t.Fatalf("sync delta = %v,%v", delta, ok)
	}
	if len(info.Warnings) != 0 {
		t.Fatalf("unexpected warnings: %v", info.Warnings)
	}
}

func TestProbeSubstitutesDefaults(t *testing.T) {
	fake := testsupport.NewFakeRunner().
		OnArgs(testsupport.Respond("oops\n"), "format=duration").
		OnArgs(testsupport.Respond("h264,,abc,0/0\n"), "-select_streams v:0").
		OnArgs(testsupport.Error(runner.ErrTimeout), "-select_streams a:0")

	info, err := ffprobe.New(fake).Probe(context.Background(), "odd.mp4")
	if err != nil {
		t.Fatalf("Probe returned error: %v", err)
	}
	if info.Width != ffprobe.DefaultWidth || info.Height != ffprobe.DefaultHeight || info.FPS != ffprobe.DefaultFPS {
		t.Fatalf("expected defaults, got %+v", info)
	}
	if info.HasAudio {
		t.Fatal("timed out audio query should report no audio")
	}
	if len(info.Warnings) < 4 {
		t.Fatalf("expected warnings for each degraded field, got %v", info.Warnings)
	}
}

func TestProbeAudioDefaultsAndMissingDuration(t *testing.T) {
	fake := testsupport.NewFakeRunner().
		OnArgs(testsupport.Respond("3.0\n"), "format=duration").
		OnArgs(testsupport.Respond(""), "-select_streams v:0").
		OnArgs(testsupport.Respond("aac,,,N/A,N/A\n"), "-select_streams a:0")

	info, err := ffprobe.New(fake).Probe(context.Background(), "clip.m4a")
	if err != nil {
		t.Fatalf("Probe returned error: %v", err)
	}
	if info.HasVideo {
		t.Fatal("no video stream expected")
	}
	if info.SampleRate != ffprobe.DefaultSampleRate || info.Channels != ffprobe.DefaultChannels {
		t.Fatalf("audio defaults not applied: %+v", info)
	}
	if _, ok := info.SyncDelta(); ok {
		t.Fatal("sync delta requires a reported audio duration")
	}
}

func TestParseFrameRate(t *testing.T) {
	tests := []struct {
		in   string
		want float64
		ok   bool
	}{
		{"60/1", 60, true},
		{"30", 30, true},
		{"25/0", ffprobe.DefaultFPS, false},
		{"", ffprobe.DefaultFPS, false},
		{"x/y", ffprobe.DefaultFPS, false},
	}
	for _, tt := range tests {
		got, ok := ffprobe.ParseFrameRate(tt.in)
		if got != tt.want || ok != tt.ok {
			t.Fatalf("ParseFrameRate(%q) = %v,%v want %v,%v", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}

func TestInspectCountsStreamsFromSimulatedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "final.mp4")
	testsupport.WriteMedia(t, path, testsupport.ChapterMedia(1920, 1080, "60/1", 8, true))

	result, err := ffprobe.New(testsupport.NewMediaSim()).Inspect(context.Background(), path)
	if err != nil {
		t.Fatalf("Inspect returned error: %v", err)
	}
	if result.VideoStreamCount() != 1 || result.AudioStreamCount() != 1 {
		t.Fatalf("streams: video=%d audio=%d", result.VideoStreamCount(), result.AudioStreamCount())
	}
	if result.Format.Duration != "8.000000" {
		t.Fatalf("format duration = %q", result.Format.Duration)
	}
}
