package ffprobe

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"
	"time"

	"panelcast/internal/config"
	"panelcast/internal/logging"
	"panelcast/internal/media/runner"
	"panelcast/internal/services"
)

// Defaults substituted when ffprobe cannot report a field.
const (
	DefaultWidth      = 1920
	DefaultHeight     = 1080
	DefaultFrameRate  = "60/1"
	DefaultFPS        = 60.0
	DefaultVideoCodec = "h264"
	DefaultAudioCodec = "aac"
	DefaultSampleRate = 24000
	DefaultChannels   = 2
)

const (
	defaultProbeTimeout      = 10 * time.Second
	defaultAudioCheckTimeout = 5 * time.Second
)

// Markers ffprobe prints for corrupt or unseekable input.
var invalidDataMarkers = []string{"Invalid data found", "Could not seek"}

// MediaInfo is a freshly probed snapshot of a media file.
type MediaInfo struct {
	Path       string
	Duration   float64
	Width      int
	Height     int
	FrameRate  string
	FPS        float64
	VideoCodec string
	HasVideo   bool

	HasAudio   bool
	AudioCodec string
	SampleRate int
	Channels   int
	// AudioDuration is the first audio stream's own duration, 0 when ffprobe
	// does not report one.
	AudioDuration float64

	// Warnings lists fields that fell back to defaults.
	Warnings []string
}

// Resolution renders WxH.
func (m MediaInfo) Resolution() string {
	return fmt.Sprintf("%dx%d", m.Width, m.Height)
}

// SyncDelta returns |container duration - audio duration| when the audio
// stream reports its own duration.
func (m MediaInfo) SyncDelta() (float64, bool) {
	if !m.HasAudio || m.AudioDuration <= 0 {
		return 0, false
	}
	return math.Abs(m.Duration - m.AudioDuration), true
}

// DurationStatus classifies the outcome of a duration query.
type DurationStatus string

const (
	// DurationValid means ffprobe reported a positive duration.
	DurationValid DurationStatus = "valid"
	// DurationZero means ffprobe reported a duration of zero.
	DurationZero DurationStatus = "zero"
	// DurationInvalid means ffprobe flagged the data as corrupt or unseekable.
	DurationInvalid DurationStatus = "invalid"
	// DurationUnavailable covers timeouts, unexpected diagnostics, and
	// unparseable output.
	DurationUnavailable DurationStatus = "unavailable"
)

// DurationResult is the classified answer to a duration query.
type DurationResult struct {
	Seconds float64
	Status  DurationStatus
	Detail  string
}

// Prober issues ffprobe queries.
type Prober struct {
	runner            runner.Runner
	binary            string
	timeout           time.Duration
	audioCheckTimeout time.Duration
	logger            *slog.Logger
}

// Option configures a Prober.
type Option func(*Prober)

// WithBinary overrides the ffprobe executable.
func WithBinary(binary string) Option {
	return func(p *Prober) {
		if b := strings.TrimSpace(binary); b != "" {
			p.binary = b
		}
	}
}

// WithTimeouts overrides the per-query and audio-check bounds.
func WithTimeouts(probe, audioCheck time.Duration) Option {
	return func(p *Prober) {
		if probe > 0 {
			p.timeout = probe
		}
		if audioCheck > 0 {
			p.audioCheckTimeout = audioCheck
		}
	}
}

// WithLogger sets the logger used for degraded-query warnings.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Prober) {
		p.logger = logging.NewComponentLogger(logger, "ffprobe")
	}
}

// New constructs a prober that runs commands through r.
func New(r runner.Runner, opts ...Option) *Prober {
	p := &Prober{
		runner:            r,
		binary:            "ffprobe",
		timeout:           defaultProbeTimeout,
		audioCheckTimeout: defaultAudioCheckTimeout,
		logger:            logging.NewComponentLogger(nil, "ffprobe"),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// NewFromConfig builds a prober using configured binary and timeouts.
func NewFromConfig(cfg *config.Config, r runner.Runner, logger *slog.Logger) *Prober {
	return New(r,
		WithBinary(cfg.FFprobeBinary()),
		WithTimeouts(cfg.ProbeTimeout(), cfg.AudioCheckTimeout()),
		WithLogger(logger),
	)
}

// Duration queries the container duration of path and classifies the result.
// The error is non-nil only when ffprobe cannot be started or ctx ends.
func (p *Prober) Duration(ctx context.Context, path string) (DurationResult, error) {
	res, err := p.query(ctx, path, p.timeout,
		"-v", "error", "-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1", path)
	if err != nil {
		if errors.Is(err, services.ErrProbeTimeout) {
			return DurationResult{Status: DurationUnavailable, Detail: "duration query timed out"}, nil
		}
		return DurationResult{}, err
	}
	return classifyDuration(res), nil
}

func classifyDuration(res runner.Result) DurationResult {
	if diag := strings.TrimSpace(res.Stderr); diag != "" {
		for _, marker := range invalidDataMarkers {
			if strings.Contains(diag, marker) {
				return DurationResult{Status: DurationInvalid, Detail: firstLine(diag)}
			}
		}
		return DurationResult{Status: DurationUnavailable, Detail: firstLine(diag)}
	}
	if !res.OK() {
		return DurationResult{Status: DurationUnavailable, Detail: fmt.Sprintf("ffprobe exited %d", res.ExitCode)}
	}
	value := firstLine(res.Stdout)
	if value == "" {
		return DurationResult{Status: DurationUnavailable, Detail: "empty duration"}
	}
	seconds, err := strconv.ParseFloat(value, 64)
	if err != nil || math.IsNaN(seconds) || math.IsInf(seconds, 0) {
		return DurationResult{Status: DurationUnavailable, Detail: fmt.Sprintf("invalid duration %q", value)}
	}
	if seconds <= 0 {
		return DurationResult{Seconds: 0, Status: DurationZero}
	}
	return DurationResult{Seconds: seconds, Status: DurationValid}
}

// HasAudio reports whether path carries at least one audio stream. Timeouts
// and non-zero exits count as no audio.
func (p *Prober) HasAudio(ctx context.Context, path string) (bool, error) {
	res, err := p.query(ctx, path, p.audioCheckTimeout,
		"-v", "error", "-select_streams", "a:0",
		"-show_entries", "stream=codec_name", "-of", "csv=p=0", path)
	if err != nil {
		if errors.Is(err, services.ErrProbeTimeout) {
			p.warn(ctx, path, "audio check timed out; treating as missing audio")
			return false, nil
		}
		return false, err
	}
	return res.OK() && strings.TrimSpace(res.Stdout) != "", nil
}

// AudioStreams lists every audio stream as ffprobe CSV rows
// (index,codec,duration,start_time). Empty when none are found.
func (p *Prober) AudioStreams(ctx context.Context, path string) (string, error) {
	res, err := p.query(ctx, path, p.timeout,
		"-v", "error", "-select_streams", "a",
		"-show_entries", "stream=index,codec_name,duration,start_time",
		"-of", "csv=p=0", path)
	if err != nil {
		if errors.Is(err, services.ErrProbeTimeout) {
			return "", nil
		}
		return "", err
	}
	if !res.OK() {
		return "", nil
	}
	return strings.TrimSpace(res.Stdout), nil
}

// Probe gathers duration, video, and audio properties. Each query is
// independent; missing or unparseable fields take documented defaults.
func (p *Prober) Probe(ctx context.Context, path string) (MediaInfo, error) {
	info := MediaInfo{
		Path:       path,
		Width:      DefaultWidth,
		Height:     DefaultHeight,
		FrameRate:  DefaultFrameRate,
		FPS:        DefaultFPS,
		VideoCodec: DefaultVideoCodec,
	}

	duration, err := p.Duration(ctx, path)
	if err != nil {
		return MediaInfo{}, err
	}
	if duration.Status == DurationValid {
		info.Duration = duration.Seconds
	} else if duration.Status != DurationZero {
		info.Warnings = append(info.Warnings, "duration: "+duration.Detail)
	}

	if err := p.probeVideo(ctx, &info); err != nil {
		return MediaInfo{}, err
	}
	if err := p.probeAudio(ctx, &info); err != nil {
		return MediaInfo{}, err
	}

	for _, warning := range info.Warnings {
		p.warn(ctx, path, warning)
	}
	return info, nil
}

func (p *Prober) probeVideo(ctx context.Context, info *MediaInfo) error {
	res, err := p.query(ctx, info.Path, p.timeout,
		"-v", "error", "-select_streams", "v:0",
		"-show_entries", "stream=width,height,r_frame_rate,codec_name",
		"-of", "csv=s=,:p=0:nk=1", info.Path)
	if err != nil {
		if errors.Is(err, services.ErrProbeTimeout) {
			info.Warnings = append(info.Warnings, "video: query timed out")
			return nil
		}
		return err
	}
	line := firstLine(res.Stdout)
	if line == "" {
		info.Warnings = append(info.Warnings, "video: no stream info")
		return nil
	}
	info.HasVideo = true
	parseVideoFields(info, strings.Split(line, ","))
	return nil
}

// parseVideoFields reads codec,width,height,r_frame_rate, the order ffprobe
// emits them in.
func parseVideoFields(info *MediaInfo, fields []string) {
	field := func(i int) string {
		if i < len(fields) {
			return strings.TrimSpace(fields[i])
		}
		return ""
	}
	if len(fields) > 3 && field(0) != "" {
		info.VideoCodec = field(0)
	} else {
		info.Warnings = append(info.Warnings, "video: codec unavailable")
	}
	if w, ok := parseDigits(field(1)); ok {
		info.Width = w
	} else {
		info.Warnings = append(info.Warnings, fmt.Sprintf("video: width %q unavailable", field(1)))
	}
	if h, ok := parseDigits(field(2)); ok {
		info.Height = h
	} else {
		info.Warnings = append(info.Warnings, fmt.Sprintf("video: height %q unavailable", field(2)))
	}
	if rate := field(3); rate != "" {
		info.FrameRate = rate
	}
	fps, ok := ParseFrameRate(info.FrameRate)
	if !ok {
		info.Warnings = append(info.Warnings, fmt.Sprintf("video: frame rate %q unavailable", info.FrameRate))
	}
	info.FPS = fps
}

func (p *Prober) probeAudio(ctx context.Context, info *MediaInfo) error {
	res, err := p.query(ctx, info.Path, p.timeout,
		"-v", "error", "-select_streams", "a:0",
		"-show_entries", "stream=codec_name,sample_rate,channels,duration,bit_rate",
		"-of", "csv=s=,:p=0:nk=1", info.Path)
	if err != nil {
		if errors.Is(err, services.ErrProbeTimeout) {
			info.Warnings = append(info.Warnings, "audio: query timed out")
			return nil
		}
		return err
	}
	line := firstLine(res.Stdout)
	if line == "" {
		return nil
	}
	info.HasAudio = true
	parseAudioFields(info, strings.Split(line, ","))
	return nil
}

// parseAudioFields reads codec,sample_rate,channels,duration,bit_rate.
func parseAudioFields(info *MediaInfo, fields []string) {
	field := func(i int) string {
		if i < len(fields) {
			return strings.TrimSpace(fields[i])
		}
		return ""
	}
	info.AudioCodec = DefaultAudioCodec
	info.SampleRate = DefaultSampleRate
	info.Channels = DefaultChannels
	if codec := field(0); codec != "" {
		info.AudioCodec = codec
	}
	if rate, ok := parseDigits(field(1)); ok {
		info.SampleRate = rate
	} else {
		info.Warnings = append(info.Warnings, fmt.Sprintf("audio: sample rate %q unavailable", field(1)))
	}
	if ch, ok := parseDigits(field(2)); ok {
		info.Channels = ch
	} else {
		info.Warnings = append(info.Warnings, fmt.Sprintf("audio: channels %q unavailable", field(2)))
	}
	if d, err := strconv.ParseFloat(field(3), 64); err == nil && d > 0 && !math.IsInf(d, 0) {
		info.AudioDuration = d
	}
}

// ParseFrameRate converts "num/den" or a plain number to frames per second.
// Unparseable or zero-denominator input yields DefaultFPS and false.
func ParseFrameRate(value string) (float64, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return DefaultFPS, false
	}
	if num, den, ok := strings.Cut(value, "/"); ok {
		n, errN := strconv.ParseFloat(num, 64)
		d, errD := strconv.ParseFloat(den, 64)
		if errN != nil || errD != nil || d == 0 {
			return DefaultFPS, false
		}
		return n / d, true
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return DefaultFPS, false
	}
	return f, true
}

func parseDigits(value string) (int, bool) {
	if value == "" {
		return 0, false
	}
	for _, r := range value {
		if r < '0' || r > '9' {
			return 0, false
		}
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, false
	}
	return n, true
}

// query runs one ffprobe invocation, mapping start failures to
// ErrProbeUnavailable and deadline expiry to ErrProbeTimeout.
func (p *Prober) query(ctx context.Context, path string, timeout time.Duration, args ...string) (runner.Result, error) {
	res, err := p.runner.Run(ctx, runner.Command{Name: p.binary, Args: args}, timeout)
	switch {
	case err == nil:
		return res, nil
	case errors.Is(err, runner.ErrStart):
		return res, services.Wrap(services.ErrProbeUnavailable, "probe", p.binary, path, err)
	case errors.Is(err, runner.ErrTimeout):
		return res, services.Wrap(services.ErrProbeTimeout, "probe", p.binary, path, err)
	default:
		return res, err
	}
}

func (p *Prober) warn(ctx context.Context, path, detail string) {
	logging.WarnWithContext(logging.WithContext(ctx, p.logger), "probe degraded to defaults", "probe_degraded",
		logging.String("file_path", path),
		logging.String("reason", detail),
		logging.String(logging.FieldErrorHint, "inspect the file with ffprobe"),
		logging.String(logging.FieldImpact, "default values substituted"),
	)
}
