package config

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains input, output, and working directory configuration.
type Paths struct {
	ImagesDir        string `toml:"images_dir"`
	AudioDir         string `toml:"audio_dir"`
	ChapterVideosDir string `toml:"chapter_videos_dir"`
	FinalOutput      string `toml:"final_output"`
	WorkDir          string `toml:"work_dir"`
	LogDir           string `toml:"log_dir"`
	StateDir         string `toml:"state_dir"`
}

// Video declares the target encode parameters every chapter must match.
type Video struct {
	Width                   int    `toml:"width"`
	Height                  int    `toml:"height"`
	FPS                     int    `toml:"fps"`
	SampleRate              int    `toml:"sample_rate"`
	Channels                int    `toml:"channels"`
	AudioBitrate            string `toml:"audio_bitrate"`
	KeyframeIntervalSeconds int    `toml:"keyframe_interval_seconds"`
}

// Tools contains external binary names and probe time limits.
type Tools struct {
	FFmpegBinary             string `toml:"ffmpeg_binary"`
	FFprobeBinary            string `toml:"ffprobe_binary"`
	ProbeTimeoutSeconds      int    `toml:"probe_timeout_seconds"`
	AudioCheckTimeoutSeconds int    `toml:"audio_check_timeout_seconds"`
}

// Audio contains the narration lookup and silent substitution policy.
type Audio struct {
	Extensions              []string `toml:"extensions"`
	FallbackDurationSeconds float64  `toml:"fallback_duration_seconds"`
	MinDurationSeconds      float64  `toml:"min_duration_seconds"`
}

// Composite controls the blurred-background frame composite.
type Composite struct {
	BlurRadius          float64 `toml:"blur_radius"`
	BackgroundDownscale int     `toml:"background_downscale"`
}

// Workflow contains run orchestration settings.
type Workflow struct {
	PageWorkers       int  `toml:"page_workers"`
	StaleWorkDirHours int  `toml:"stale_work_dir_hours"`
	OverwriteFinal    bool `toml:"overwrite_final"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format     string `toml:"format"`
	Level      string `toml:"level"`
	File       bool   `toml:"file"`
	MaxSizeMB  int    `toml:"max_size_mb"`
	MaxBackups int    `toml:"max_backups"`
	MaxAgeDays int    `toml:"max_age_days"`
}

// History controls the sqlite run ledger.
type History struct {
	Enabled bool `toml:"enabled"`
}

// Config encapsulates all configuration values for panelcast.
//
// Configuration sections by subsystem:
//   - Paths: page images, narration audio, chapter videos, final output, work/log/state dirs
//   - Video: target VideoSpec used by the synthesizer and standardizer
//   - Tools: ffmpeg/ffprobe binaries and probe timeouts
//   - Audio: narration extensions and silent fallback durations
//   - Composite: blurred background parameters
//   - Workflow: page worker pool and stale work cleanup
//   - Logging: log format, level, and rotating file sink
//   - History: run ledger toggle
type Config struct {
	Paths     Paths     `toml:"paths"`
	Video     Video     `toml:"video"`
	Tools     Tools     `toml:"tools"`
	Audio     Audio     `toml:"audio"`
	Composite Composite `toml:"composite"`
	Workflow  Workflow  `toml:"workflow"`
	Logging   Logging   `toml:"logging"`
	History   History   `toml:"history"`
}

// VideoSpec is the process-wide target all chapter videos are normalized to.
type VideoSpec struct {
	Width        int
	Height       int
	FPS          int
	SampleRate   int
	Channels     int
	AudioBitrate string
	KeyframeSecs int
}

// DefaultVideoSpec returns the repository default target spec.
func DefaultVideoSpec() VideoSpec {
	cfg := Default()
	return cfg.VideoSpec()
}

// VideoSpec returns the target encode parameters as an immutable value.
func (c *Config) VideoSpec() VideoSpec {
	return VideoSpec{
		Width:        c.Video.Width,
		Height:       c.Video.Height,
		FPS:          c.Video.FPS,
		SampleRate:   c.Video.SampleRate,
		Channels:     c.Video.Channels,
		AudioBitrate: c.Video.AudioBitrate,
		KeyframeSecs: c.Video.KeyframeIntervalSeconds,
	}
}

// String renders the target format the way it appears in logs and reports.
func (s VideoSpec) String() string {
	return fmt.Sprintf("%dx%d@%dfps %dHz/%dch", s.Width, s.Height, s.FPS, s.SampleRate, s.Channels)
}

// ProbeTimeout returns the wall-clock limit for metadata queries.
func (c *Config) ProbeTimeout() time.Duration {
	return time.Duration(c.Tools.ProbeTimeoutSeconds) * time.Second
}

// AudioCheckTimeout returns the wall-clock limit for audio stream presence checks.
func (c *Config) AudioCheckTimeout() time.Duration {
	return time.Duration(c.Tools.AudioCheckTimeoutSeconds) * time.Second
}

// StaleWorkAge returns the age after which abandoned work directories are removed.
func (c *Config) StaleWorkAge() time.Duration {
	return time.Duration(c.Workflow.StaleWorkDirHours) * time.Hour
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/panelcast/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		info, err := os.Stat(expanded)
		if err != nil {
			if os.IsNotExist(err) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config %q: %w", expanded, err)
		}
		if info.IsDir() {
			return "", false, fmt.Errorf("config path %q is a directory", expanded)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("panelcast.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the directories the pipeline writes into. The
// images directory is an input and is never created.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.ChapterVideosDir, c.Paths.WorkDir, c.Paths.StateDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	if c.Logging.File && strings.TrimSpace(c.Paths.LogDir) != "" {
		if err := os.MkdirAll(c.Paths.LogDir, 0o755); err != nil {
			return fmt.Errorf("create log directory %q: %w", c.Paths.LogDir, err)
		}
	}
	if dir := filepath.Dir(c.Paths.FinalOutput); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create final output directory %q: %w", dir, err)
		}
	}
	return nil
}

// FFmpegBinary returns the ffmpeg executable name.
func (c *Config) FFmpegBinary() string {
	if bin := strings.TrimSpace(c.Tools.FFmpegBinary); bin != "" {
		return bin
	}
	return defaultFFmpegBinary
}

// FFprobeBinary returns the ffprobe executable name used for media inspection.
func (c *Config) FFprobeBinary() string {
	if bin := strings.TrimSpace(c.Tools.FFprobeBinary); bin != "" {
		return bin
	}
	return defaultFFprobeBinary
}

// HistoryPath returns the sqlite run ledger location.
func (c *Config) HistoryPath() string {
	return filepath.Join(c.Paths.StateDir, "history.db")
}

// LockPath returns the run lock file location.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.StateDir, "panelcast.lock")
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
