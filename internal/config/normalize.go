package config

import (
	"fmt"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeFFmpeg()
	c.normalizeProcessing()
	c.normalizeQuota()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if c.Paths.PresetsRoot, err = expandPath(c.Paths.PresetsRoot); err != nil {
		return fmt.Errorf("paths.presets_root: %w", err)
	}
	if c.Paths.OutputDir, err = expandPath(c.Paths.OutputDir); err != nil {
		return fmt.Errorf("paths.output_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if c.Paths.StateDir, err = expandPath(c.Paths.StateDir); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	if c.Paths.WorkDir, err = expandPath(c.Paths.WorkDir); err != nil {
		return fmt.Errorf("paths.work_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeFFmpeg() {
	if strings.TrimSpace(c.FFmpeg.Binary) == "" {
		c.FFmpeg.Binary = defaultFFmpegBinary
	}
	if strings.TrimSpace(c.FFmpeg.FFprobeBinary) == "" {
		c.FFmpeg.FFprobeBinary = defaultFFprobeBinary
	}
	if c.FFmpeg.TimeoutSeconds == 0 {
		c.FFmpeg.TimeoutSeconds = defaultFFmpegTimeout
	}
}

func (c *Config) normalizeProcessing() {
	c.Processing.OutputFormat = strings.ToLower(strings.TrimSpace(c.Processing.OutputFormat))
	if c.Processing.OutputFormat == "" {
		c.Processing.OutputFormat = defaultOutputFormat
	}
	c.Processing.Quality = strings.ToLower(strings.TrimSpace(c.Processing.Quality))
	if c.Processing.Quality == "" {
		c.Processing.Quality = defaultQuality
	}
	if c.Processing.PausePollInterval == 0 {
		c.Processing.PausePollInterval = defaultPausePollInterval
	}
	if c.Processing.DeleteRetryAttempts == 0 {
		c.Processing.DeleteRetryAttempts = defaultDeleteRetryAttempts
	}
	if c.Processing.DeleteRetryDelay == 0 {
		c.Processing.DeleteRetryDelay = defaultDeleteRetryDelay
	}
}

func (c *Config) normalizeQuota() {
	c.Quota.Plan = strings.ToLower(strings.TrimSpace(c.Quota.Plan))
	if c.Quota.Plan == "" {
		c.Quota.Plan = defaultPlan
	}
	if c.Quota.DailyLimit == 0 {
		c.Quota.DailyLimit = PlanDailyLimit(c.Quota.Plan)
	}
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
}
