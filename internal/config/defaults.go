package config

const (
	defaultImagesDir               = "chapters-panels"
	defaultAudioDir                = "chapters-panels-speech"
	defaultChapterVideosDir        = "chapter-videos"
	defaultFinalOutput             = "complete_video.mp4"
	defaultWorkDir                 = "."
	defaultStateDir                = ".panelcast"
	defaultLogDir                  = ".panelcast/logs"
	defaultWidth                   = 1920
	defaultHeight                  = 1080
	defaultFPS                     = 60
	defaultSampleRate              = 24000
	defaultChannels                = 2
	defaultAudioBitrate            = "128k"
	defaultKeyframeIntervalSeconds = 2
	defaultFFmpegBinary            = "ffmpeg"
	defaultFFprobeBinary           = "ffprobe"
	defaultProbeTimeoutSeconds     = 10
	defaultAudioCheckTimeout       = 5
	defaultFallbackDuration        = 1.0
	defaultMinDuration             = 0.1
	defaultBlurRadius              = 200
	defaultBackgroundDownscale     = 8
	defaultPageWorkers             = 1
	defaultStaleWorkDirHours       = 24
	defaultLogFormat               = "console"
	defaultLogLevel                = "info"
	defaultLogMaxSizeMB            = 20
	defaultLogMaxBackups           = 5
	defaultLogMaxAgeDays           = 30
)

var defaultAudioExtensions = []string{".mp3", ".wav", ".ogg", ".m4a"}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			ImagesDir:        defaultImagesDir,
			AudioDir:         defaultAudioDir,
			ChapterVideosDir: defaultChapterVideosDir,
			FinalOutput:      defaultFinalOutput,
			WorkDir:          defaultWorkDir,
			LogDir:           defaultLogDir,
			StateDir:         defaultStateDir,
		},
		Video: Video{
			Width:                   defaultWidth,
			Height:                  defaultHeight,
			FPS:                     defaultFPS,
			SampleRate:              defaultSampleRate,
			Channels:                defaultChannels,
			AudioBitrate:            defaultAudioBitrate,
			KeyframeIntervalSeconds: defaultKeyframeIntervalSeconds,
		},
		Tools: Tools{
			FFmpegBinary:             defaultFFmpegBinary,
			FFprobeBinary:            defaultFFprobeBinary,
			ProbeTimeoutSeconds:      defaultProbeTimeoutSeconds,
			AudioCheckTimeoutSeconds: defaultAudioCheckTimeout,
		},
		Audio: Audio{
			Extensions:              append([]string(nil), defaultAudioExtensions...),
			FallbackDurationSeconds: defaultFallbackDuration,
			MinDurationSeconds:      defaultMinDuration,
		},
		Composite: Composite{
			BlurRadius:          defaultBlurRadius,
			BackgroundDownscale: defaultBackgroundDownscale,
		},
		Workflow: Workflow{
			PageWorkers:       defaultPageWorkers,
			StaleWorkDirHours: defaultStaleWorkDirHours,
		},
		Logging: Logging{
			Format:     defaultLogFormat,
			Level:      defaultLogLevel,
			File:       true,
			MaxSizeMB:  defaultLogMaxSizeMB,
			MaxBackups: defaultLogMaxBackups,
			MaxAgeDays: defaultLogMaxAgeDays,
		},
		History: History{
			Enabled: true,
		},
	}
}
