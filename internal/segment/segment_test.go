package segment_test

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"panelcast/internal/audio"
	"panelcast/internal/config"
	"panelcast/internal/fileutil"
	"panelcast/internal/layout"
	"panelcast/internal/media/ffmpeg"
	"panelcast/internal/media/ffprobe"
	"panelcast/internal/media/runner"
	"panelcast/internal/segment"
	"panelcast/internal/services"
	"panelcast/internal/testsupport"
)

type fixture struct {
	sim     *testsupport.MediaSim
	synth   *segment.Synthesizer
	auditor *segment.Auditor
	workDir string
	page    layout.Page
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	sim := testsupport.NewMediaSim()
	spec := config.VideoSpec{Width: 64, Height: 36, FPS: 30, SampleRate: 24000, Channels: 2, AudioBitrate: "128k", KeyframeSecs: 2}
	builder := ffmpeg.NewBuilder("ffmpeg", spec)
	workDir := t.TempDir()
	page := layout.Page{Chapter: "chapter_1", Index: 1, File: "page_001.png"}
	testsupport.WritePNG(t, segment.FramePath(workDir, page), 64, 36)
	return fixture{
		sim:     sim,
		synth:   segment.NewSynthesizer(sim, builder, nil),
		auditor: segment.NewAuditor(ffprobe.New(sim), sim, builder, nil),
		workDir: workDir,
		page:    page,
	}
}

func isSegmentEncode(cmd runner.Command) bool {
	return testsupport.IsEncode(cmd) && testsupport.ArgsContain("-loop 1")(cmd)
}

func TestBuildEncodesResolvedDuration(t *testing.T) {
	f := newFixture(t)
	narration := filepath.Join(f.workDir, "page_001.mp3")
	testsupport.WriteMedia(t, narration, testsupport.NarrationMedia(2.5))

	seg, err := f.synth.Build(context.Background(), f.page, audio.ResolvedAudio{Kind: audio.KindReal, Path: narration, Duration: 2.5}, f.workDir)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if seg.Path != filepath.Join(f.workDir, "segment_page_001.mp4") {
		t.Fatalf("segment path = %q", seg.Path)
	}
	got := testsupport.ReadMedia(t, seg.Path)
	if got.Duration != 2.5 || got.Width != 64 || !got.HasAudio || got.FrameRate != "30/1" {
		t.Fatalf("segment media = %+v", got)
	}
	calls := f.sim.Calls()
	if len(calls) != 1 || !testsupport.ArgsContain("-i "+narration, "-t 2.5")(calls[0]) {
		t.Fatalf("unexpected commands: %v", calls)
	}
}

func TestBuildWithoutAudioUsesInlineNullSource(t *testing.T) {
	f := newFixture(t)
	if _, err := f.synth.Build(context.Background(), f.page, audio.ResolvedAudio{Kind: audio.KindNone, Duration: 1}, f.workDir); err != nil {
		t.Fatalf("Build: %v", err)
	}
	if n := f.sim.CountCalls(testsupport.ArgsContain("-f lavfi -i anullsrc=channel_layout=stereo:sample_rate=24000")); n != 1 {
		t.Fatalf("inline null source encodes = %d", n)
	}
}

func TestBuildFailureRemovesPartial(t *testing.T) {
	f := newFixture(t)
	f.sim.FailWhen = isSegmentEncode

	_, err := f.synth.Build(context.Background(), f.page, audio.ResolvedAudio{Kind: audio.KindNone, Duration: 1}, f.workDir)
	if !errors.Is(err, services.ErrEncodeFailure) {
		t.Fatalf("expected ErrEncodeFailure, got %v", err)
	}
	if !strings.Contains(err.Error(), "Conversion failed!") {
		t.Fatalf("error should carry stderr tail: %v", err)
	}
	if fileutil.IsFile(segment.OutputPath(f.workDir, f.page)) {
		t.Fatal("partial segment should be removed")
	}
}

func TestEnsureRepairsOnce(t *testing.T) {
	tests := []struct {
		name       string
		dropAudio  bool
		dropMapped bool
		wantErr    error
		wantRepair bool
		wantEnc    int
	}{
		{name: "audio present", wantEnc: 1},
		{name: "repaired", dropAudio: true, wantRepair: true, wantEnc: 2},
		{name: "still silent", dropAudio: true, dropMapped: true, wantErr: services.ErrAudioMissingAfterRepair, wantEnc: 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			if tt.dropAudio {
				f.sim.DropAudioWhen = isSegmentEncode
				f.sim.DropMappedAudio = tt.dropMapped
			}
			ctx := context.Background()
			seg, err := f.synth.Build(ctx, f.page, audio.ResolvedAudio{Kind: audio.KindNone, Duration: 1}, f.workDir)
			if err != nil {
				t.Fatalf("Build: %v", err)
			}
			seg, err = f.auditor.Ensure(ctx, seg)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("Ensure error = %v, want %v", err, tt.wantErr)
				}
				if services.Scope(err) != services.ScopeChapter {
					t.Fatalf("scope = %s", services.Scope(err))
				}
			} else {
				if err != nil {
					t.Fatalf("Ensure: %v", err)
				}
				if seg.Repaired != tt.wantRepair {
					t.Fatalf("repaired = %v", seg.Repaired)
				}
				if !testsupport.ReadMedia(t, seg.Path).HasAudio {
					t.Fatal("segment should carry audio")
				}
			}
			if n := f.sim.CountCalls(isSegmentEncode); n != tt.wantEnc {
				t.Fatalf("encodes = %d, want %d", n, tt.wantEnc)
			}
			if tt.wantRepair || tt.wantErr != nil {
				if n := f.sim.CountCalls(testsupport.ArgsContain("-map 0:v:0 -map 1:a:0")); n != 1 {
					t.Fatalf("repair encodes = %d, want 1", n)
				}
			}
		})
	}
}
