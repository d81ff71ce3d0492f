package ffmpeg

import (
	"fmt"
	"strconv"
	"strings"

	"panelcast/internal/config"
	"panelcast/internal/media/runner"
)

// Builder produces ffmpeg invocations for one VideoSpec.
type Builder struct {
	binary string
	spec   config.VideoSpec
}

// NewBuilder returns a builder for binary (default "ffmpeg") and spec.
func NewBuilder(binary string, spec config.VideoSpec) Builder {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		binary = "ffmpeg"
	}
	return Builder{binary: binary, spec: spec}
}

// Spec returns the VideoSpec commands are built for.
func (b Builder) Spec() config.VideoSpec { return b.spec }

// NullAudioSource is the lavfi source for a silent track matching spec.
func NullAudioSource(spec config.VideoSpec) string {
	return fmt.Sprintf("anullsrc=channel_layout=%s:sample_rate=%d", channelLayout(spec.Channels), spec.SampleRate)
}

func channelLayout(channels int) string {
	switch channels {
	case 1:
		return "mono"
	case 2:
		return "stereo"
	case 6:
		return "5.1"
	case 8:
		return "7.1"
	default:
		return fmt.Sprintf("%dc", channels)
	}
}

// FormatSeconds renders a duration argument for -t.
func FormatSeconds(seconds float64) string {
	return strconv.FormatFloat(seconds, 'f', -1, 64)
}

func (b Builder) audioCodecArgs() []string {
	return []string{
		"-c:a", "aac",
		"-b:a", b.spec.AudioBitrate,
		"-ar", strconv.Itoa(b.spec.SampleRate),
		"-ac", strconv.Itoa(b.spec.Channels),
	}
}

// SilentAudio generates a silent AAC clip of the given duration.
func (b Builder) SilentAudio(duration float64, output string) runner.Command {
	args := []string{"-y", "-f", "lavfi", "-i", NullAudioSource(b.spec), "-t", FormatSeconds(duration)}
	args = append(args, b.audioCodecArgs()...)
	args = append(args, "-avoid_negative_ts", "make_zero", output)
	return runner.Command{Name: b.binary, Args: args}
}

// Segment loops one frame for duration seconds and muxes it with audio. An
// empty audio path uses an inline null audio source instead.
func (b Builder) Segment(frame, audio string, duration float64, output string) runner.Command {
	args := b.loopedFrameInput(frame)
	if strings.TrimSpace(audio) != "" {
		args = append(args, "-i", audio)
	} else {
		args = append(args, "-f", "lavfi", "-i", NullAudioSource(b.spec))
	}
	args = append(args, b.segmentEncodeArgs(duration, false)...)
	args = append(args, output)
	return runner.Command{Name: b.binary, Args: args}
}

// RepairSegment re-encodes a segment with an explicit null audio input and
// explicit stream mapping (video from input 0, audio from input 1).
func (b Builder) RepairSegment(frame string, duration float64, output string) runner.Command {
	args := b.loopedFrameInput(frame)
	args = append(args, "-f", "lavfi", "-i", NullAudioSource(b.spec))
	args = append(args, b.segmentEncodeArgs(duration, true)...)
	args = append(args, output)
	return runner.Command{Name: b.binary, Args: args}
}

func (b Builder) loopedFrameInput(frame string) []string {
	return []string{"-y", "-loop", "1", "-framerate", strconv.Itoa(b.spec.FPS), "-i", frame}
}

func (b Builder) segmentEncodeArgs(duration float64, explicitMap bool) []string {
	args := []string{"-c:v", "libx264"}
	args = append(args, b.audioCodecArgs()...)
	args = append(args, "-pix_fmt", "yuv420p", "-t", FormatSeconds(duration))
	if explicitMap {
		args = append(args, "-map", "0:v:0", "-map", "1:a:0", "-shortest")
	}
	return append(args,
		"-avoid_negative_ts", "make_zero",
		"-fflags", "+genpts",
		"-r", strconv.Itoa(b.spec.FPS),
	)
}

// ChapterConcat stream-copies the files listed in manifest into output.
func (b Builder) ChapterConcat(manifest, output string) runner.Command {
	args := concatInput(manifest)
	args = append(args, concatFlags()...)
	args = append(args, "-y", output)
	return runner.Command{Name: b.binary, Args: args}
}

// FinalConcat stream-copies standardized chapter videos, keeping only the
// first video and first audio stream.
func (b Builder) FinalConcat(manifest, output string) runner.Command {
	args := concatInput(manifest)
	args = append(args, concatFlags()...)
	args = append(args, "-map", "0:v:0", "-map", "0:a:0", "-y", output)
	return runner.Command{Name: b.binary, Args: args}
}

func concatInput(manifest string) []string {
	return []string{"-f", "concat", "-safe", "0", "-i", manifest}
}

func concatFlags() []string {
	return []string{
		"-c:v", "copy",
		"-c:a", "copy",
		"-avoid_negative_ts", "make_zero",
		"-fflags", "+genpts",
		"-movflags", "+faststart",
	}
}

// Standardize re-encodes input to the builder's spec. When hasAudio is false a
// null audio track is injected, mapped explicitly, and cut at the end of the
// video with -shortest since anullsrc never ends on its own.
func (b Builder) Standardize(input, output string, hasAudio bool) runner.Command {
	w, h := b.spec.Width, b.spec.Height
	args := []string{"-i", input, "-y"}
	if !hasAudio {
		args = append(args, "-f", "lavfi", "-i", NullAudioSource(b.spec))
	}
	args = append(args,
		"-c:v", "libx264",
		"-vf", fmt.Sprintf("scale=%d:%d:force_original_aspect_ratio=decrease,pad=%d:%d:(ow-iw)/2:(oh-ih)/2,setsar=1", w, h, w, h),
		"-r", strconv.Itoa(b.spec.FPS),
		"-pix_fmt", "yuv420p",
		"-profile:v", "high",
		"-level", "4.0",
		"-preset", "medium",
		"-crf", "18",
		"-vsync", "cfr",
		"-force_key_frames", fmt.Sprintf("expr:gte(t,n_forced*%d)", b.spec.KeyframeSecs),
	)
	args = append(args, b.audioCodecArgs()...)
	if hasAudio {
		args = append(args, "-af", "aresample=async=1:min_hard_comp=0.100000:first_pts=0")
	} else {
		args = append(args, "-map", "0:v:0", "-map", "1:a:0", "-shortest")
	}
	args = append(args,
		"-avoid_negative_ts", "make_zero",
		"-fflags", "+genpts+igndts",
		"-movflags", "+faststart",
		"-max_muxing_queue_size", "2048",
		output,
	)
	return runner.Command{Name: b.binary, Args: args}
}
