package ffmpeg

import (
	"reflect"
	"strings"
	"testing"

	"panelcast/internal/config"
)

func TestSilentAudioCommand(t *testing.T) {
	b := NewBuilder("", config.DefaultVideoSpec())
	cmd := b.SilentAudio(1.0, "/tmp/silent_p1.aac")
	want := []string{
		"-y", "-f", "lavfi", "-i", "anullsrc=channel_layout=stereo:sample_rate=24000", "-t", "1",
		"-c:a", "aac", "-b:a", "128k", "-ar", "24000", "-ac", "2",
		"-avoid_negative_ts", "make_zero", "/tmp/silent_p1.aac",
	}
	if cmd.Name != "ffmpeg" {
		t.Fatalf("binary = %q", cmd.Name)
	}
	if !reflect.DeepEqual(cmd.Args, want) {
		t.Fatalf("args =\n%q\nwant\n%q", cmd.Args, want)
	}
}

func TestSegmentCommandWithAudio(t *testing.T) {
	b := NewBuilder("ffmpeg", config.DefaultVideoSpec())
	cmd := b.Segment("frame.png", "page.mp3", 2.5, "segment.mp4")
	want := []string{
		"-y", "-loop", "1", "-framerate", "60", "-i", "frame.png",
		"-i", "page.mp3",
		"-c:v", "libx264", "-c:a", "aac", "-b:a", "128k", "-ar", "24000", "-ac", "2",
		"-pix_fmt", "yuv420p", "-t", "2.5",
		"-avoid_negative_ts", "make_zero", "-fflags", "+genpts", "-r", "60",
		"segment.mp4",
	}
	if !reflect.DeepEqual(cmd.Args, want) {
		t.Fatalf("args =\n%q\nwant\n%q", cmd.Args, want)
	}
}

func TestSegmentCommandInlineSilence(t *testing.T) {
	b := NewBuilder("ffmpeg", config.DefaultVideoSpec())
	cmd := b.Segment("frame.png", "", 1, "segment.mp4")
	line := strings.Join(cmd.Args, " ")
	if !strings.Contains(line, "-f lavfi -i anullsrc=channel_layout=stereo:sample_rate=24000") {
		t.Fatalf("expected inline null source, got %s", line)
	}
	if strings.Contains(line, "-map") {
		t.Fatalf("initial encode should rely on default mapping, got %s", line)
	}
}

func TestRepairSegmentMapsStreamsExplicitly(t *testing.T) {
	b := NewBuilder("ffmpeg", config.DefaultVideoSpec())
	line := strings.Join(b.RepairSegment("frame.png", 3, "segment.mp4").Args, " ")
	for _, want := range []string{"-f lavfi -i anullsrc", "-t 3 -map 0:v:0 -map 1:a:0", "-r 60 segment.mp4"} {
		if !strings.Contains(line, want) {
			t.Fatalf("repair command missing %q: %s", want, line)
		}
	}
}

func TestConcatCommands(t *testing.T) {
	b := NewBuilder("ffmpeg", config.DefaultVideoSpec())
	chapter := b.ChapterConcat("list.txt", "out.mp4")
	wantChapter := []string{
		"-f", "concat", "-safe", "0", "-i", "list.txt",
		"-c:v", "copy", "-c:a", "copy", "-avoid_negative_ts", "make_zero",
		"-fflags", "+genpts", "-movflags", "+faststart", "-y", "out.mp4",
	}
	if !reflect.DeepEqual(chapter.Args, wantChapter) {
		t.Fatalf("chapter concat args = %q", chapter.Args)
	}
	final := strings.Join(b.FinalConcat("list.txt", "final.mp4").Args, " ")
	if !strings.HasSuffix(final, "-map 0:v:0 -map 0:a:0 -y final.mp4") {
		t.Fatalf("final concat should map first streams only: %s", final)
	}
}

func TestStandardizeCommand(t *testing.T) {
	spec := config.DefaultVideoSpec()
	b := NewBuilder("ffmpeg", spec)

	withAudio := strings.Join(b.Standardize("in.mp4", "std_in.mp4", true).Args, " ")
	for _, want := range []string{
		"-i in.mp4 -y -c:v libx264",
		"scale=1920:1080:force_original_aspect_ratio=decrease,pad=1920:1080:(ow-iw)/2:(oh-ih)/2,setsar=1",
		"-r 60 -pix_fmt yuv420p -profile:v high -level 4.0 -preset medium -crf 18 -vsync cfr",
		"-force_key_frames expr:gte(t,n_forced*2)",
		"-af aresample=async=1:min_hard_comp=0.100000:first_pts=0",
		"-fflags +genpts+igndts -movflags +faststart -max_muxing_queue_size 2048 std_in.mp4",
	} {
		if !strings.Contains(withAudio, want) {
			t.Fatalf("standardize missing %q:\n%s", want, withAudio)
		}
	}
	if strings.Contains(withAudio, "anullsrc") {
		t.Fatalf("audio present; null source must not be injected: %s", withAudio)
	}

	noAudio := strings.Join(b.Standardize("in.mp4", "std_in.mp4", false).Args, " ")
	if !strings.Contains(noAudio, "-i in.mp4 -y -f lavfi -i anullsrc") || !strings.Contains(noAudio, "-map 0:v:0 -map 1:a:0") {
		t.Fatalf("missing audio should inject and map null source: %s", noAudio)
	}
	if strings.Contains(noAudio, "aresample") {
		t.Fatalf("resample filter only applies to existing audio: %s", noAudio)
	}
	if !strings.Contains(noAudio, "-map 1:a:0 -shortest -avoid_negative_ts") {
		t.Fatalf("injected null audio must end with the video: %s", noAudio)
	}
	if strings.Contains(withAudio, "-shortest") {
		t.Fatalf("-shortest only bounds injected null audio: %s", withAudio)
	}
}

func TestNullAudioSourceLayouts(t *testing.T) {
	spec := config.DefaultVideoSpec()
	spec.Channels = 1
	spec.SampleRate = 48000
	if got := NullAudioSource(spec); got != "anullsrc=channel_layout=mono:sample_rate=48000" {
		t.Fatalf("NullAudioSource = %q", got)
	}
}
