// Package batch runs an ordered list of processing jobs strictly
// sequentially on a background worker. Results are emitted in submission
// order; cancellation and pause take effect at job boundaries only.
package batch

import (
	"errors"
	"time"

	"clipforge/internal/preset"
)

// Status of one processed job.
type Status string

const (
	StatusSuccess Status = "success"
	StatusFailed  Status = "failed"
	StatusSkipped Status = "skipped"
	// StatusCancelled marks jobs that were enqueued but never started
	// because the run was cancelled at a job boundary.
	StatusCancelled Status = "cancelled"
)

// Tier identifies which execution path produced a successful result. The
// fallback chain silently changes the visual output, so the tier is always
// disclosed instead of collapsing every success into one status.
type Tier string

const (
	TierPreset       Tier = "preset"
	TierDefaultEdit  Tier = "default_edit"
	TierDegradedEdit Tier = "degraded_edit"
	TierCopy         Tier = "copy"
	TierReencode     Tier = "reencode"
)

// Job is one unit of work: a source file and its destination.
type Job struct {
	Source      string
	Destination string
	// IsDualVideo marks a job whose preset merges a secondary clip; the
	// secondary path is injected into the merge operation at dispatch time.
	IsDualVideo   bool
	SecondaryPath string
}

// Settings bundle the per-run options shared by every job.
type Settings struct {
	// Preset to apply; nil means no preset is configured.
	Preset *preset.Preset
	// ApplyDefaultEdit requests the fallback edit pipeline when no preset
	// is configured. Without it, preset-less jobs copy or re-encode.
	ApplyDefaultEdit bool
	Quality          string
	DeleteSource     bool
	SkipProcessed    bool
	// PausePollInterval is how long the worker sleeps between pause checks.
	PausePollInterval time.Duration
	// DeleteRetry governs source deletion after a successful edit.
	DeleteRetry RetryPolicy
}

// ProcessResult is the outcome of one job.
type ProcessResult struct {
	Job           Job
	Status        Status
	Tier          Tier
	Message       string
	Duration      time.Duration
	SourceDeleted bool
}

// Summary aggregates a finished run.
type Summary struct {
	Total           int
	Succeeded       int
	Failed          int
	Skipped         int
	Cancelled       int
	TotalDuration   time.Duration
	AverageDuration time.Duration
	WasCancelled    bool
	// Err is set only for store-level failures that abort the run; per-job
	// errors never land here.
	Err error
}

// RetryPolicy is a fixed-delay retry schedule. Sleep is injectable so tests
// run without real time passing.
type RetryPolicy struct {
	Attempts int
	Delay    time.Duration
	Sleep    func(time.Duration)
}

// Do runs op up to Attempts times, sleeping Delay between failures, and
// returns the last error. An error wrapped with Permanent is returned
// immediately without further attempts.
func (p RetryPolicy) Do(op func() error) error {
	attempts := p.Attempts
	if attempts <= 0 {
		attempts = 1
	}
	sleep := p.Sleep
	if sleep == nil {
		sleep = time.Sleep
	}
	var err error
	for i := 0; i < attempts; i++ {
		if err = op(); err == nil {
			return nil
		}
		var perm *permanentError
		if errors.As(err, &perm) {
			return perm.err
		}
		if i < attempts-1 {
			sleep(p.Delay)
		}
	}
	return err
}

type permanentError struct{ err error }

func (e *permanentError) Error() string { return e.err.Error() }

func (e *permanentError) Unwrap() error { return e.err }

// Permanent marks an error as not worth retrying.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}
