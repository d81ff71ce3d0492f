package testsupport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"math"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	_ "image/png"

	"panelcast/internal/media/runner"
)

// Media describes the properties a simulated media file reports to ffprobe.
// MediaSim stores it as JSON inside the file itself so renames and copies
// keep their properties.
type Media struct {
	Duration      float64 `json:"duration"`
	Width         int     `json:"width,omitempty"`
	Height        int     `json:"height,omitempty"`
	FrameRate     string  `json:"frame_rate,omitempty"`
	VideoCodec    string  `json:"video_codec,omitempty"`
	HasVideo      bool    `json:"has_video"`
	HasAudio      bool    `json:"has_audio"`
	AudioCodec    string  `json:"audio_codec,omitempty"`
	SampleRate    int     `json:"sample_rate,omitempty"`
	Channels      int     `json:"channels,omitempty"`
	AudioDuration float64 `json:"audio_duration,omitempty"`
	Corrupt       bool    `json:"corrupt,omitempty"`
}

// ChapterMedia returns a video, optionally with an audio track matching its duration.
func ChapterMedia(width, height int, fps string, duration float64, withAudio bool) Media {
	m := Media{
		Duration:   duration,
		Width:      width,
		Height:     height,
		FrameRate:  fps,
		VideoCodec: "h264",
		HasVideo:   true,
	}
	if withAudio {
		m.HasAudio = true
		m.AudioCodec = "aac"
		m.SampleRate = 24000
		m.Channels = 2
		m.AudioDuration = duration
	}
	return m
}

// NarrationMedia returns an audio-only clip.
func NarrationMedia(duration float64) Media {
	return Media{Duration: duration, HasAudio: true, AudioCodec: "mp3", SampleRate: 24000, Channels: 2, AudioDuration: duration}
}

// MediaSim is a runner.Runner that interprets the ffmpeg and ffprobe command
// lines the pipeline emits against files on disk.
type MediaSim struct {
	mu    sync.Mutex
	calls []runner.Command

	// ProbeMissing makes every ffprobe invocation fail to start.
	ProbeMissing bool
	// FailWhen makes matching ffmpeg invocations exit 1 after leaving a
	// truncated output behind.
	FailWhen func(runner.Command) bool
	// DropAudioWhen makes matching encodes silently omit the audio stream
	// unless streams are mapped explicitly.
	DropAudioWhen func(runner.Command) bool
	// DropMappedAudio also drops audio from explicitly mapped encodes.
	DropMappedAudio bool
}

// NewMediaSim returns a simulator with no injected faults.
func NewMediaSim() *MediaSim {
	return &MediaSim{}
}

// WriteMedia creates path holding m.
func WriteMedia(t testing.TB, path string, m Media) {
	t.Helper()
	if err := writeMedia(path, m); err != nil {
		t.Fatalf("write media %s: %v", path, err)
	}
}

// ReadMedia decodes the simulated properties stored at path.
func ReadMedia(t testing.TB, path string) Media {
	t.Helper()
	m, err := readMedia(path)
	if err != nil {
		t.Fatalf("read media %s: %v", path, err)
	}
	return m
}

func writeMedia(path string, m Media) error {
	data, err := json.Marshal(m)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func readMedia(path string) (Media, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Media{}, err
	}
	var m Media
	if err := json.Unmarshal(data, &m); err != nil {
		return Media{}, fmt.Errorf("invalid media: %w", err)
	}
	return m, nil
}

// Calls returns a copy of the recorded invocations.
func (s *MediaSim) Calls() []runner.Command {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]runner.Command(nil), s.calls...)
}

// CountCalls returns how many recorded invocations match.
func (s *MediaSim) CountCalls(match func(runner.Command) bool) int {
	count := 0
	for _, cmd := range s.Calls() {
		if match(cmd) {
			count++
		}
	}
	return count
}

// IsEncode matches ffmpeg invocations.
func IsEncode(cmd runner.Command) bool {
	return strings.Contains(filepath.Base(cmd.Name), "ffmpeg")
}

func (s *MediaSim) Run(ctx context.Context, cmd runner.Command, _ time.Duration) (runner.Result, error) {
	if err := ctx.Err(); err != nil {
		return runner.Result{ExitCode: -1}, err
	}
	s.mu.Lock()
	s.calls = append(s.calls, cmd)
	s.mu.Unlock()

	if IsEncode(cmd) {
		return s.encode(cmd), nil
	}
	if s.ProbeMissing {
		return runner.Result{ExitCode: -1}, fmt.Errorf("%w: %s: executable file not found in $PATH", runner.ErrStart, cmd.Name)
	}
	return s.probe(cmd), nil
}

func (s *MediaSim) Stream(ctx context.Context, cmd runner.Command, onLine func(string)) (runner.Result, error) {
	res, err := s.Run(ctx, cmd, 0)
	if onLine != nil {
		runner.ScanLines(strings.NewReader(res.Stderr), onLine)
	}
	return res, err
}

func (s *MediaSim) probe(cmd runner.Command) runner.Result {
	path := OutputPath(cmd)
	m, err := readMedia(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return runner.Result{ExitCode: 1, Stderr: path + ": No such file or directory\n"}
		}
		return runner.Result{ExitCode: 1, Stderr: path + ": Invalid data found when processing input\n"}
	}
	if m.Corrupt {
		return runner.Result{ExitCode: 1, Stderr: path + ": Invalid data found when processing input\n"}
	}

	switch entries := argAfter(cmd.Args, "-show_entries"); {
	case entries == "format=duration":
		return runner.Result{Stdout: fmt.Sprintf("%.6f\n", m.Duration)}
	case hasArg(cmd.Args, "-show_streams"):
		return runner.Result{Stdout: probeJSON(path, m)}
	case argAfter(cmd.Args, "-select_streams") == "v:0":
		if !m.HasVideo {
			return runner.Result{}
		}
		return runner.Result{Stdout: fmt.Sprintf("%s,%d,%d,%s\n", m.VideoCodec, m.Width, m.Height, m.FrameRate)}
	case !m.HasAudio:
		return runner.Result{}
	case entries == "stream=codec_name":
		return runner.Result{Stdout: m.AudioCodec + "\n"}
	case strings.HasPrefix(entries, "stream=codec_name,sample_rate"):
		duration := "N/A"
		if m.AudioDuration > 0 {
			duration = fmt.Sprintf("%.6f", m.AudioDuration)
		}
		return runner.Result{Stdout: fmt.Sprintf("%s,%d,%d,%s,128000\n", m.AudioCodec, m.SampleRate, m.Channels, duration)}
	case strings.HasPrefix(entries, "stream=index"):
		return runner.Result{Stdout: fmt.Sprintf("1,%s,%.6f,0.000000\n", m.AudioCodec, m.AudioDuration)}
	default:
		return runner.Result{ExitCode: 1, Stderr: "unsupported probe: " + strings.Join(cmd.Args, " ")}
	}
}

func probeJSON(path string, m Media) string {
	type stream struct {
		Index     int    `json:"index"`
		CodecType string `json:"codec_type"`
		CodecName string `json:"codec_name"`
	}
	var streams []stream
	if m.HasVideo {
		streams = append(streams, stream{Index: len(streams), CodecType: "video", CodecName: m.VideoCodec})
	}
	if m.HasAudio {
		streams = append(streams, stream{Index: len(streams), CodecType: "audio", CodecName: m.AudioCodec})
	}
	payload := map[string]any{
		"streams": streams,
		"format": map[string]any{
			"filename":   path,
			"nb_streams": len(streams),
			"duration":   fmt.Sprintf("%.6f", m.Duration),
		},
	}
	data, _ := json.Marshal(payload)
	return string(data)
}

var scaleFilter = regexp.MustCompile(`scale=(\d+):(\d+)`)

func (s *MediaSim) encode(cmd runner.Command) runner.Result {
	output := OutputPath(cmd)
	if s.FailWhen != nil && s.FailWhen(cmd) {
		_ = os.WriteFile(output, []byte("trunc"), 0o644)
		return runner.Result{ExitCode: 1, Stderr: "Error while encoding\nConversion failed!\n"}
	}

	inputs := argsAfter(cmd.Args, "-i")
	explicitMap := hasArg(cmd.Args, "-map")
	dropAudio := s.DropAudioWhen != nil && s.DropAudioWhen(cmd) && (!explicitMap || s.DropMappedAudio)
	sampleRate, _ := strconv.Atoi(argAfter(cmd.Args, "-ar"))
	channels, _ := strconv.Atoi(argAfter(cmd.Args, "-ac"))
	var stderr string

	var out Media
	switch {
	case argAfter(cmd.Args, "-f") == "concat":
		var err error
		out, stderr, err = concatMedia(inputs[0], explicitMap)
		if err != nil {
			return runner.Result{ExitCode: 1, Stderr: err.Error() + "\n"}
		}
	case hasArg(cmd.Args, "-loop"):
		duration, _ := strconv.ParseFloat(argAfter(cmd.Args, "-t"), 64)
		frame, err := os.Open(inputs[0])
		if err != nil {
			return runner.Result{ExitCode: 1, Stderr: inputs[0] + ": No such file or directory\n"}
		}
		cfg, _, err := image.DecodeConfig(frame)
		frame.Close()
		if err != nil {
			return runner.Result{ExitCode: 1, Stderr: inputs[0] + ": Invalid data found when processing input\n"}
		}
		out = Media{
			Duration:   duration,
			Width:      cfg.Width,
			Height:     cfg.Height,
			FrameRate:  argAfter(cmd.Args, "-r") + "/1",
			VideoCodec: "h264",
			HasVideo:   true,
			HasAudio:   true,
			AudioCodec: "aac", SampleRate: sampleRate, Channels: channels,
			AudioDuration: duration,
		}
	case argAfter(cmd.Args, "-vf") != "":
		src, err := readMedia(inputs[0])
		if err != nil {
			return runner.Result{ExitCode: 1, Stderr: inputs[0] + ": Invalid data found when processing input\n"}
		}
		match := scaleFilter.FindStringSubmatch(argAfter(cmd.Args, "-vf"))
		w, _ := strconv.Atoi(match[1])
		h, _ := strconv.Atoi(match[2])
		duration := src.Duration
		if hasArg(cmd.Args, "lavfi") {
			limit, err := strconv.ParseFloat(argAfter(cmd.Args, "-t"), 64)
			switch {
			case err == nil && limit > 0:
				duration = math.Min(duration, limit)
			case !hasArg(cmd.Args, "-shortest"):
				return runner.Result{ExitCode: 1, Stderr: "anullsrc: unbounded lavfi input, output never ends\n"}
			}
		}
		out = Media{
			Duration:   duration,
			Width:      w,
			Height:     h,
			FrameRate:  argAfter(cmd.Args, "-r") + "/1",
			VideoCodec: "h264",
			HasVideo:   true,
			HasAudio:   true,
			AudioCodec: "aac", SampleRate: sampleRate, Channels: channels,
			AudioDuration: duration,
		}
	default:
		duration, _ := strconv.ParseFloat(argAfter(cmd.Args, "-t"), 64)
		out = Media{Duration: duration, HasAudio: true, AudioCodec: "aac", SampleRate: sampleRate, Channels: channels, AudioDuration: duration}
	}

	if dropAudio {
		out.HasAudio = false
		out.AudioCodec, out.SampleRate, out.Channels, out.AudioDuration = "", 0, 0, 0
	}
	if err := writeMedia(output, out); err != nil {
		return runner.Result{ExitCode: 1, Stderr: err.Error()}
	}
	return runner.Result{Stderr: stderr}
}

func concatMedia(manifest string, explicitMap bool) (Media, string, error) {
	data, err := os.ReadFile(manifest)
	if err != nil {
		return Media{}, "", fmt.Errorf("%s: No such file or directory", manifest)
	}
	var out Media
	var progress strings.Builder
	for i, line := range strings.Split(strings.TrimSpace(string(data)), "\n") {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, "file '") || !strings.HasSuffix(line, "'") {
			return Media{}, "", fmt.Errorf("%s: Invalid data found when processing input", manifest)
		}
		path := strings.ReplaceAll(line[len("file '"):len(line)-1], `'"'"'`, "'")
		m, err := readMedia(path)
		if err != nil {
			return Media{}, "", fmt.Errorf("Impossible to open '%s'", path)
		}
		if i == 0 {
			out = m
			out.Duration, out.AudioDuration = 0, 0
		}
		out.Duration += m.Duration
		out.AudioDuration += m.AudioDuration
		fmt.Fprintf(&progress, "frame=%d size=N/A time=%s bitrate=N/A speed=10x\r", i, clock(out.Duration))
	}
	if explicitMap && !out.HasAudio {
		return Media{}, "", errors.New("Stream map '0:a:0' matches no streams.")
	}
	return out, progress.String() + "\n", nil
}

func clock(seconds float64) string {
	h := int(seconds) / 3600
	m := (int(seconds) % 3600) / 60
	s := seconds - float64(h*3600+m*60)
	return fmt.Sprintf("%02d:%02d:%05.2f", h, m, s)
}

func hasArg(args []string, flag string) bool {
	for _, arg := range args {
		if arg == flag {
			return true
		}
	}
	return false
}

func argAfter(args []string, flag string) string {
	for i := 0; i < len(args)-1; i++ {
		if args[i] == flag {
			return args[i+1]
		}
	}
	return ""
}

func argsAfter(args []string, flag string) []string {
	var values []string
	for i := 0; i < len(args)-1; i++ {
		if args[i] == flag {
			values = append(values, args[i+1])
		}
	}
	return values
}
