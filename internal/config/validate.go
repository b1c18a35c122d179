package config

import (
	"errors"
	"fmt"
)

var knownPlans = map[string]struct{}{
	"basic": {},
	"pro":   {},
}

var knownQualities = map[string]struct{}{
	"low":    {},
	"medium": {},
	"high":   {},
}

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateFFmpeg(); err != nil {
		return err
	}
	if err := c.validateProcessing(); err != nil {
		return err
	}
	if err := c.validateQuota(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return c.validatePreflight()
}

func (c *Config) validateFFmpeg() error {
	if c.FFmpeg.TimeoutSeconds <= 0 {
		return errors.New("ffmpeg.timeout_seconds must be positive")
	}
	return nil
}

func (c *Config) validateProcessing() error {
	if _, ok := knownQualities[c.Processing.Quality]; !ok {
		return fmt.Errorf("processing.quality must be one of low, medium, high (got %q)", c.Processing.Quality)
	}
	if c.Processing.PausePollInterval <= 0 {
		return errors.New("processing.pause_poll_interval must be positive")
	}
	if c.Processing.DeleteRetryAttempts <= 0 {
		return errors.New("processing.delete_retry_attempts must be positive")
	}
	if c.Processing.DeleteRetryDelay < 0 {
		return errors.New("processing.delete_retry_delay must be >= 0")
	}
	return nil
}

func (c *Config) validateQuota() error {
	if _, ok := knownPlans[c.Quota.Plan]; !ok {
		return fmt.Errorf("quota.plan must be one of basic, pro (got %q)", c.Quota.Plan)
	}
	if c.Quota.DailyLimit <= 0 {
		return errors.New("quota.daily_limit must be positive")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json (got %q)", c.Logging.Format)
	}
	return nil
}

func (c *Config) validatePreflight() error {
	if c.Preflight.MinFreeDiskGiB < 0 {
		return errors.New("preflight.min_free_disk_gib must be >= 0")
	}
	if c.Preflight.MaxMemoryPercent < 0 || c.Preflight.MaxMemoryPercent > 100 {
		return errors.New("preflight.max_memory_percent must be between 0 and 100")
	}
	return nil
}
