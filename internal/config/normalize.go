package config

import (
	"fmt"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeVideo()
	c.normalizeTools()
	c.normalizeAudio()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	fields := []struct {
		key      string
		value    *string
		fallback string
	}{
		{"paths.images_dir", &c.Paths.ImagesDir, defaultImagesDir},
		{"paths.audio_dir", &c.Paths.AudioDir, defaultAudioDir},
		{"paths.chapter_videos_dir", &c.Paths.ChapterVideosDir, defaultChapterVideosDir},
		{"paths.final_output", &c.Paths.FinalOutput, defaultFinalOutput},
		{"paths.work_dir", &c.Paths.WorkDir, defaultWorkDir},
		{"paths.log_dir", &c.Paths.LogDir, defaultLogDir},
		{"paths.state_dir", &c.Paths.StateDir, defaultStateDir},
	}
	for _, field := range fields {
		trimmed := strings.TrimSpace(*field.value)
		if trimmed == "" {
			trimmed = field.fallback
		}
		expanded, err := expandPath(trimmed)
		if err != nil {
			return fmt.Errorf("%s: %w", field.key, err)
		}
		*field.value = expanded
	}
	return nil
}

func (c *Config) normalizeVideo() {
	c.Video.AudioBitrate = strings.TrimSpace(c.Video.AudioBitrate)
	if c.Video.AudioBitrate == "" {
		c.Video.AudioBitrate = defaultAudioBitrate
	}
	if c.Video.KeyframeIntervalSeconds <= 0 {
		c.Video.KeyframeIntervalSeconds = defaultKeyframeIntervalSeconds
	}
}

func (c *Config) normalizeTools() {
	c.Tools.FFmpegBinary = strings.TrimSpace(c.Tools.FFmpegBinary)
	if c.Tools.FFmpegBinary == "" {
		c.Tools.FFmpegBinary = defaultFFmpegBinary
	}
	c.Tools.FFprobeBinary = strings.TrimSpace(c.Tools.FFprobeBinary)
	if c.Tools.FFprobeBinary == "" {
		c.Tools.FFprobeBinary = defaultFFprobeBinary
	}
}

func (c *Config) normalizeAudio() {
	if len(c.Audio.Extensions) == 0 {
		c.Audio.Extensions = append([]string(nil), defaultAudioExtensions...)
		return
	}
	exts := make([]string, 0, len(c.Audio.Extensions))
	seen := make(map[string]struct{}, len(c.Audio.Extensions))
	for _, ext := range c.Audio.Extensions {
		normalized := strings.ToLower(strings.TrimSpace(ext))
		if normalized == "" {
			continue
		}
		if !strings.HasPrefix(normalized, ".") {
			normalized = "." + normalized
		}
		if _, exists := seen[normalized]; exists {
			continue
		}
		seen[normalized] = struct{}{}
		exts = append(exts, normalized)
	}
	if len(exts) == 0 {
		exts = append(exts, defaultAudioExtensions...)
	}
	c.Audio.Extensions = exts
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if c.Logging.MaxSizeMB <= 0 {
		c.Logging.MaxSizeMB = defaultLogMaxSizeMB
	}
	if c.Logging.MaxBackups < 0 {
		c.Logging.MaxBackups = 0
	}
	if c.Logging.MaxAgeDays < 0 {
		c.Logging.MaxAgeDays = 0
	}
}
