package config

const (
	defaultPresetsRoot         = "~/.local/share/clipforge/presets"
	defaultOutputDir           = "~/clipforge/output"
	defaultLogDir              = "~/.local/share/clipforge/logs"
	defaultStateDir            = "~/.local/share/clipforge/state"
	defaultWorkDir             = "~/.local/share/clipforge/work"
	defaultFFmpegBinary        = "ffmpeg"
	defaultFFprobeBinary       = "ffprobe"
	defaultFFmpegTimeout       = 600
	defaultOutputFormat        = "mp4"
	defaultQuality             = "high"
	defaultPausePollInterval   = 1
	defaultDeleteRetryAttempts = 3
	defaultDeleteRetryDelay    = 1
	defaultPlan                = "basic"
	defaultLogFormat           = "console"
	defaultLogLevel            = "info"
	defaultMinFreeDiskGiB      = 2
	defaultMaxMemoryPercent    = 95.0
)

// PlanDailyLimit returns the built-in daily ceiling for a plan tier.
func PlanDailyLimit(plan string) int {
	switch plan {
	case "pro":
		return 200
	default:
		return 50
	}
}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			PresetsRoot: defaultPresetsRoot,
			OutputDir:   defaultOutputDir,
			LogDir:      defaultLogDir,
			StateDir:    defaultStateDir,
			WorkDir:     defaultWorkDir,
		},
		FFmpeg: FFmpeg{
			Binary:         defaultFFmpegBinary,
			FFprobeBinary:  defaultFFprobeBinary,
			TimeoutSeconds: defaultFFmpegTimeout,
		},
		Processing: Processing{
			OutputFormat:        defaultOutputFormat,
			Quality:             defaultQuality,
			SkipProcessed:       true,
			PausePollInterval:   defaultPausePollInterval,
			DeleteRetryAttempts: defaultDeleteRetryAttempts,
			DeleteRetryDelay:    defaultDeleteRetryDelay,
		},
		Quota: Quota{
			Plan: defaultPlan,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
		Preflight: Preflight{
			MinFreeDiskGiB:   defaultMinFreeDiskGiB,
			MaxMemoryPercent: defaultMaxMemoryPercent,
		},
	}
}
