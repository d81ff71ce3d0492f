package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateVideo(); err != nil {
		return err
	}
	if err := c.validateTools(); err != nil {
		return err
	}
	if err := c.validateAudio(); err != nil {
		return err
	}
	if err := c.validateComposite(); err != nil {
		return err
	}
	if err := c.validateWorkflow(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validatePaths() error {
	if c.Paths.ImagesDir == c.Paths.ChapterVideosDir {
		return errors.New("paths.images_dir and paths.chapter_videos_dir must differ")
	}
	if !strings.EqualFold(filepath.Ext(c.Paths.FinalOutput), ".mp4") {
		return fmt.Errorf("paths.final_output must be an .mp4 file, got %q", c.Paths.FinalOutput)
	}
	return nil
}

func (c *Config) validateVideo() error {
	v := c.Video
	if v.Width <= 0 || v.Height <= 0 {
		return fmt.Errorf("video.width and video.height must be positive (got %dx%d)", v.Width, v.Height)
	}
	if v.Width%2 != 0 || v.Height%2 != 0 {
		return fmt.Errorf("video.width and video.height must be even for yuv420p (got %dx%d)", v.Width, v.Height)
	}
	if v.FPS <= 0 {
		return errors.New("video.fps must be positive")
	}
	if v.SampleRate <= 0 {
		return errors.New("video.sample_rate must be positive")
	}
	if v.Channels < 1 || v.Channels > 8 {
		return fmt.Errorf("video.channels must be between 1 and 8 (got %d)", v.Channels)
	}
	return nil
}

func (c *Config) validateTools() error {
	if c.Tools.ProbeTimeoutSeconds <= 0 {
		return errors.New("tools.probe_timeout_seconds must be positive")
	}
	if c.Tools.AudioCheckTimeoutSeconds <= 0 {
		return errors.New("tools.audio_check_timeout_seconds must be positive")
	}
	return nil
}

func (c *Config) validateAudio() error {
	if c.Audio.FallbackDurationSeconds <= 0 {
		return errors.New("audio.fallback_duration_seconds must be positive")
	}
	if c.Audio.MinDurationSeconds <= 0 {
		return errors.New("audio.min_duration_seconds must be positive")
	}
	return nil
}

func (c *Config) validateComposite() error {
	if c.Composite.BlurRadius < 0 {
		return errors.New("composite.blur_radius must not be negative")
	}
	if c.Composite.BackgroundDownscale < 1 {
		return errors.New("composite.background_downscale must be at least 1")
	}
	return nil
}

func (c *Config) validateWorkflow() error {
	if c.Workflow.PageWorkers < 1 {
		return errors.New("workflow.page_workers must be at least 1")
	}
	if c.Workflow.StaleWorkDirHours < 0 {
		return errors.New("workflow.stale_work_dir_hours must not be negative")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn, or error, got %q", c.Logging.Level)
	}
	return nil
}
