package batch

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"clipforge/internal/backend"
	"clipforge/internal/engine"
	"clipforge/internal/history"
	"clipforge/internal/logging"
	"clipforge/internal/quota"
	"clipforge/internal/services"
	"clipforge/internal/tracking"
)

const defaultPausePoll = time.Second

// Runner drives a batch on a single background worker.
type Runner struct {
	engine   *engine.Engine
	backend  backend.Backend
	tracking tracking.Store
	quota    quota.Store
	history  *history.Store
	logger   *slog.Logger

	lockPath string
	paused   atomic.Bool
}

// Option configures the runner.
type Option func(*Runner)

// WithRunLock enables a file lock guarding the state directory so two runs
// never mutate the tracking and quota files concurrently.
func WithRunLock(path string) Option {
	return func(r *Runner) { r.lockPath = path }
}

// WithHistory enables run recording. History failures are logged, never
// fatal.
func WithHistory(store *history.Store) Option {
	return func(r *Runner) { r.history = store }
}

func New(eng *engine.Engine, b backend.Backend, trackingStore tracking.Store, quotaStore quota.Store, logger *slog.Logger, opts ...Option) *Runner {
	if logger == nil {
		logger = logging.NewNop()
	}
	r := &Runner{
		engine:   eng,
		backend:  b,
		tracking: trackingStore,
		quota:    quotaStore,
		logger:   logging.NewComponentLogger(logger, "batch"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Pause stops the worker before the next job until Resume is called.
func (r *Runner) Pause() { r.paused.Store(true) }

// Resume lets a paused worker continue.
func (r *Runner) Resume() { r.paused.Store(false) }

// IsPaused reports the pause flag.
func (r *Runner) IsPaused() bool { return r.paused.Load() }

// Start validates quota, truncates the job list to the remaining daily
// allowance, and launches the worker goroutine. Results arrive in
// submission order; the summary channel yields exactly one value after the
// results channel closes.
func (r *Runner) Start(ctx context.Context, jobs []Job, settings Settings) (<-chan ProcessResult, <-chan Summary, error) {
	var runLock *flock.Flock
	if r.lockPath != "" {
		if err := os.MkdirAll(filepath.Dir(r.lockPath), 0o755); err != nil {
			return nil, nil, fmt.Errorf("create lock directory: %w", err)
		}
		runLock = flock.New(r.lockPath)
		locked, err := runLock.TryLock()
		if err != nil {
			return nil, nil, services.Wrap(services.ErrTransient, "batch", "start", "acquire run lock", err)
		}
		if !locked {
			return nil, nil, services.Wrap(services.ErrFileLock, "batch", "start",
				"another run holds the state lock", nil)
		}
	}
	unlock := func() {
		if runLock != nil {
			_ = runLock.Unlock()
		}
	}

	remaining, err := r.quota.Remaining()
	if err != nil {
		unlock()
		return nil, nil, err
	}
	if remaining == 0 {
		unlock()
		return nil, nil, services.Wrap(services.ErrQuotaExceeded, "batch", "start",
			"daily processing limit reached", nil)
	}
	if len(jobs) > remaining {
		r.logger.Warn("job list truncated to remaining quota",
			logging.String(logging.FieldEventType, "quota_truncated"),
			logging.Int("submitted", len(jobs)),
			logging.Int("allowed", remaining))
		jobs = jobs[:remaining]
	}

	results := make(chan ProcessResult, len(jobs))
	summaries := make(chan Summary, 1)
	go func() {
		defer unlock()
		r.run(ctx, jobs, settings, results, summaries)
	}()
	return results, summaries, nil
}

// folderTally tracks per-folder outcomes so folder status can be finalized
// after the run.
type folderTally struct {
	succeeded int
	failed    int
}

func (r *Runner) run(ctx context.Context, jobs []Job, settings Settings, results chan<- ProcessResult, summaries chan<- Summary) {
	runID := uuid.NewString()
	startedAt := time.Now()
	poll := settings.PausePollInterval
	if poll <= 0 {
		poll = defaultPausePoll
	}

	summary := Summary{}
	touched := make(map[string]*folderTally)
	var recorded []history.Result
	cancelledAt := -1

	r.logger.Info("batch started",
		logging.String(logging.FieldRunID, runID),
		logging.Int("jobs", len(jobs)))

jobs:
	for i, job := range jobs {
		if ctx.Err() != nil {
			summary.WasCancelled = true
			cancelledAt = i
			break
		}
		for r.paused.Load() {
			if ctx.Err() != nil {
				summary.WasCancelled = true
				cancelledAt = i
				break jobs
			}
			time.Sleep(poll)
		}

		result, fatal := r.processJob(ctx, job, settings, touched)
		if fatal != nil {
			summary.Err = fatal
			r.logger.Error("state store failure; aborting batch",
				logging.String(logging.FieldRunID, runID),
				logging.Error(fatal))
			break
		}

		summary.Total++
		summary.TotalDuration += result.Duration
		switch result.Status {
		case StatusSuccess:
			summary.Succeeded++
		case StatusFailed:
			summary.Failed++
		case StatusSkipped:
			summary.Skipped++
		}
		r.logJob(runID, result)
		recorded = append(recorded, history.Result{
			RunID:       runID,
			Position:    i,
			Source:      job.Source,
			Destination: job.Destination,
			Status:      string(result.Status),
			Tier:        string(result.Tier),
			Message:     result.Message,
			DurationSec: result.Duration.Seconds(),
		})
		results <- result
	}

	// Jobs enqueued but never started still get a terminal result so the
	// caller sees every submitted job accounted for.
	if cancelledAt >= 0 {
		for i := cancelledAt; i < len(jobs); i++ {
			result := ProcessResult{
				Job:     jobs[i],
				Status:  StatusCancelled,
				Message: "run cancelled before this job started",
			}
			summary.Total++
			summary.Cancelled++
			r.logJob(runID, result)
			recorded = append(recorded, history.Result{
				RunID:       runID,
				Position:    i,
				Source:      jobs[i].Source,
				Destination: jobs[i].Destination,
				Status:      string(result.Status),
				Message:     result.Message,
			})
			results <- result
		}
	}

	if done := summary.Succeeded + summary.Failed + summary.Skipped; done > 0 {
		summary.AverageDuration = summary.TotalDuration / time.Duration(done)
	}

	r.finalizeFolders(touched, &summary)
	r.recordHistory(runID, startedAt, settings, summary, recorded)

	r.logger.Info("batch finished",
		logging.String(logging.FieldRunID, runID),
		logging.Int("succeeded", summary.Succeeded),
		logging.Int("failed", summary.Failed),
		logging.Int("skipped", summary.Skipped),
		logging.Bool("cancelled", summary.WasCancelled))

	close(results)
	summaries <- summary
	close(summaries)
}

func (r *Runner) logJob(runID string, result ProcessResult) {
	attrs := []logging.Attr{
		logging.String(logging.FieldRunID, runID),
		logging.String("source", result.Job.Source),
		logging.String("status", string(result.Status)),
		logging.Duration("duration", result.Duration),
	}
	if result.Tier != "" {
		attrs = append(attrs, logging.String("tier", string(result.Tier)))
	}
	if result.Message != "" {
		attrs = append(attrs, logging.String("detail", result.Message))
	}
	r.logger.Info("job finished", logging.Args(attrs...)...)
}

// finalizeFolders writes terminal folder states. Folders that only produced
// skips keep their existing completed state.
func (r *Runner) finalizeFolders(touched map[string]*folderTally, summary *Summary) {
	for folder, tally := range touched {
		var err error
		switch {
		case tally.failed > 0:
			err = r.tracking.Fail(folder)
		case tally.succeeded > 0:
			err = r.tracking.Complete(folder)
		}
		if err != nil && summary.Err == nil {
			summary.Err = err
		}
	}
}

func (r *Runner) recordHistory(runID string, startedAt time.Time, settings Settings, summary Summary, results []history.Result) {
	if r.history == nil {
		return
	}
	presetName := ""
	if settings.Preset != nil {
		presetName = settings.Preset.Name
	}
	finished := time.Now()
	run := history.Run{
		ID:          runID,
		PresetName:  presetName,
		StartedAt:   startedAt,
		FinishedAt:  finished,
		Total:       summary.Total,
		Succeeded:   summary.Succeeded,
		Failed:      summary.Failed,
		Skipped:     summary.Skipped,
		Cancelled:   summary.WasCancelled,
		DurationSec: finished.Sub(startedAt).Seconds(),
	}
	if err := r.history.RecordRun(context.Background(), run, results); err != nil {
		r.logger.Warn("could not record run history",
			logging.String(logging.FieldRunID, runID),
			logging.Error(err),
			logging.String(logging.FieldImpact, "run missing from history listings"))
	}
}
