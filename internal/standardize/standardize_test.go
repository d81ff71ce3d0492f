package standardize_test

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"panelcast/internal/config"
	"panelcast/internal/fileutil"
	"panelcast/internal/media/ffmpeg"
	"panelcast/internal/media/ffprobe"
	"panelcast/internal/services"
	"panelcast/internal/standardize"
	"panelcast/internal/testsupport"
)

func TestAnalyze(t *testing.T) {
	spec := config.DefaultVideoSpec()
	matching := ffprobe.MediaInfo{
		Duration: 10, Width: 1920, Height: 1080, FPS: 60, HasVideo: true,
		HasAudio: true, SampleRate: 24000, Channels: 2, AudioDuration: 10,
	}
	with := func(mutate func(*ffprobe.MediaInfo)) ffprobe.MediaInfo {
		info := matching
		mutate(&info)
		return info
	}

	tests := []struct {
		name string
		info ffprobe.MediaInfo
		want []string
	}{
		{"matching", matching, []string{}},
		{"fps within tolerance", with(func(i *ffprobe.MediaInfo) { i.FPS = 59.94 }), []string{}},
		{"sync drift at tolerance", with(func(i *ffprobe.MediaInfo) { i.AudioDuration = 9.95 }), []string{}},
		{"no audio", with(func(i *ffprobe.MediaInfo) { i.HasAudio = false; i.SampleRate = 0 }), []string{"No audio"}},
		{"sync drift", with(func(i *ffprobe.MediaInfo) { i.AudioDuration = 9.75 }), []string{"A/V sync issue (0.250s)"}},
		{"resolution and fps", with(func(i *ffprobe.MediaInfo) { i.Width, i.Height, i.FPS = 1280, 720, 30 }), []string{"Resolution: 1280x720", "FPS: 30.0"}},
		{"audio format", with(func(i *ffprobe.MediaInfo) { i.SampleRate, i.Channels = 44100, 1 }), []string{"Sample rate: 44100Hz", "Channels: 1"}},
		{"unreadable", ffprobe.MediaInfo{}, []string{"Failed to analyze"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := standardize.Strings(standardize.Analyze(tt.info, spec))
			if !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("Analyze = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestReasonNamesTarget(t *testing.T) {
	issue := standardize.Issue{Kind: standardize.IssueResolution, Observed: "1280x720", Target: "1920x1080"}
	if got := issue.Reason(); got != "resolution (1280x720 -> 1920x1080)" {
		t.Fatalf("Reason = %q", got)
	}
}

func newStandardizer(sim *testsupport.MediaSim) *standardize.Standardizer {
	return standardize.New(sim, ffprobe.New(sim), ffmpeg.NewBuilder("ffmpeg", config.DefaultVideoSpec()), nil)
}

func TestStandardizeTwoChapterScenario(t *testing.T) {
	dir := t.TempDir()
	workDir := filepath.Join(dir, "work")
	small := filepath.Join(dir, "chapter_1.mp4")
	ready := filepath.Join(dir, "chapter_2.mp4")
	testsupport.WriteMedia(t, small, testsupport.ChapterMedia(1280, 720, "30/1", 4, false))
	testsupport.WriteMedia(t, ready, testsupport.ChapterMedia(1920, 1080, "60/1", 6, true))
	before, err := os.ReadFile(ready)
	if err != nil {
		t.Fatal(err)
	}

	sim := testsupport.NewMediaSim()
	s := newStandardizer(sim)
	ctx := context.Background()

	first, err := s.Standardize(ctx, small, workDir)
	if err != nil {
		t.Fatalf("Standardize small: %v", err)
	}
	if !first.Standardized || first.Output != filepath.Join(workDir, "std_chapter_1.mp4") {
		t.Fatalf("result = %+v", first)
	}
	got := testsupport.ReadMedia(t, first.Output)
	if got.Width != 1920 || got.Height != 1080 || got.FrameRate != "60/1" || !got.HasAudio || got.Duration != 4 || got.AudioDuration != 4 {
		t.Fatalf("standardized media = %+v", got)
	}
	if n := sim.CountCalls(testsupport.ArgsContain("-f lavfi", "-map 0:v:0 -map 1:a:0 -shortest")); n != 1 {
		t.Fatalf("null audio injection encodes = %d", n)
	}

	second, err := s.Standardize(ctx, ready, workDir)
	if err != nil {
		t.Fatalf("Standardize ready: %v", err)
	}
	if second.Standardized || second.Output != ready {
		t.Fatalf("matching file should pass through, got %+v", second)
	}
	after, err := os.ReadFile(ready)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(before, after) {
		t.Fatal("pass-through must not modify the file")
	}
	if n := sim.CountCalls(testsupport.IsEncode); n != 1 {
		t.Fatalf("encodes = %d, want 1", n)
	}
}

func TestStandardizeFailures(t *testing.T) {
	tests := []struct {
		name    string
		setup   func(*testsupport.MediaSim)
		wantErr error
	}{
		{
			name:    "encode exits non-zero",
			setup:   func(s *testsupport.MediaSim) { s.FailWhen = testsupport.IsEncode },
			wantErr: services.ErrEncodeFailure,
		},
		{
			name: "audio missing after encode",
			setup: func(s *testsupport.MediaSim) {
				s.DropAudioWhen = testsupport.IsEncode
				s.DropMappedAudio = true
			},
			wantErr: services.ErrValidation,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			src := filepath.Join(dir, "chapter_1.mp4")
			testsupport.WriteMedia(t, src, testsupport.ChapterMedia(1280, 720, "30/1", 4, false))
			sim := testsupport.NewMediaSim()
			tt.setup(sim)

			_, err := newStandardizer(sim).Standardize(context.Background(), src, dir)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("error = %v, want %v", err, tt.wantErr)
			}
			if fileutil.IsFile(standardize.OutputPath(dir, src)) {
				t.Fatal("failed output must be removed")
			}
		})
	}
}

func TestAnalyzeFiles(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "chapter_1.mp4")
	broken := filepath.Join(dir, "chapter_2.mp4")
	testsupport.WriteMedia(t, good, testsupport.ChapterMedia(1920, 1080, "60/1", 4, true))
	testsupport.WriteFile(t, broken, 32)

	report, err := newStandardizer(testsupport.NewMediaSim()).Analyze(context.Background(), []string{good, broken})
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if len(report) != 2 || len(report[0].Issues) != 0 {
		t.Fatalf("report = %+v", report)
	}
	if got := standardize.Strings(report[1].Issues); !reflect.DeepEqual(got, []string{"Failed to analyze"}) {
		t.Fatalf("broken file issues = %q", got)
	}
}
