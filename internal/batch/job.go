package batch

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"clipforge/internal/backend"
	"clipforge/internal/engine"
	"clipforge/internal/fileutil"
	"clipforge/internal/logging"
	"clipforge/internal/preset"
	"clipforge/internal/registry"
	"clipforge/internal/services"
	"clipforge/internal/tracking"
)

// processJob runs one job through the tier chain. The returned error is
// reserved for store-level failures that abort the whole run; every
// execution failure becomes a Failed result instead.
func (r *Runner) processJob(ctx context.Context, job Job, settings Settings, touched map[string]*folderTally) (ProcessResult, error) {
	folder := filepath.Dir(job.Destination)
	start := time.Now()

	if settings.SkipProcessed {
		entry, ok, err := r.tracking.Get(folder)
		if err != nil {
			return ProcessResult{}, err
		}
		if ok && entry.Status == tracking.StatusCompleted {
			return ProcessResult{
				Job:      job,
				Status:   StatusSkipped,
				Message:  "destination folder already completed",
				Duration: time.Since(start),
			}, nil
		}
	}

	tally, seen := touched[folder]
	if !seen {
		if err := r.tracking.Begin(folder); err != nil {
			return ProcessResult{}, err
		}
		tally = &folderTally{}
		touched[folder] = tally
	}

	tier, err := r.execute(ctx, job, settings)
	if err != nil {
		tally.failed++
		return ProcessResult{
			Job:      job,
			Status:   StatusFailed,
			Message:  services.Message(err),
			Duration: time.Since(start),
		}, nil
	}

	sourceDeleted := false
	if settings.DeleteSource {
		// In-place edits keep the (now replaced) source; the secondary of a
		// dual job is an extra input and is removed either way.
		if job.Source != job.Destination {
			sourceDeleted = r.deleteWithRetry(job.Source, settings.DeleteRetry)
		}
		if job.IsDualVideo && job.SecondaryPath != "" {
			r.deleteWithRetry(job.SecondaryPath, settings.DeleteRetry)
		}
	}

	if err := r.tracking.RecordSuccess(folder); err != nil {
		return ProcessResult{}, err
	}
	if err := r.quota.RecordProcessed(); err != nil {
		return ProcessResult{}, err
	}

	tally.succeeded++
	return ProcessResult{
		Job:           job,
		Status:        StatusSuccess,
		Tier:          tier,
		Duration:      time.Since(start),
		SourceDeleted: sourceDeleted,
	}, nil
}

// execute walks the tier chain: preset, default edit, degraded edit, and
// finally plain copy or re-encode for jobs that request no edit at all.
func (r *Runner) execute(ctx context.Context, job Job, settings Settings) (Tier, error) {
	if settings.Preset != nil {
		p := settings.Preset.Clone()
		if job.IsDualVideo {
			injectSecondary(p, job.SecondaryPath)
		}
		err := r.engine.Apply(ctx, p, job.Source, job.Destination, settings.Quality, r.stepProgress(job))
		if err == nil {
			return TierPreset, nil
		}
		if ctx.Err() != nil {
			return "", err
		}
		r.logger.Warn("preset failed; falling back to default edit",
			logging.String("source", job.Source),
			logging.String("preset", p.Name),
			logging.Error(err))
		return r.defaultEdit(ctx, job, settings)
	}

	if !settings.ApplyDefaultEdit {
		if fileutil.SameContainer(job.Source, job.Destination) {
			if err := fileutil.CopyFileVerified(job.Source, job.Destination); err != nil {
				return "", err
			}
			return TierCopy, nil
		}
		convert := &preset.Preset{Name: "convert", SchemaVersion: preset.SchemaV2}
		if err := r.engine.Apply(ctx, convert, job.Source, job.Destination, settings.Quality, nil); err != nil {
			return "", err
		}
		return TierReencode, nil
	}

	return r.defaultEdit(ctx, job, settings)
}

// defaultEdit runs the fixed fallback pipeline, retrying once without the
// audio chain when the backend rejects the filter graph. In-place targets
// go through the same temp-sibling swap as preset application.
func (r *Runner) defaultEdit(ctx context.Context, job Job, settings Settings) (Tier, error) {
	info, err := r.backend.Probe(ctx, job.Source)
	if err != nil {
		return "", err
	}

	target := job.Destination
	inPlace := job.Source == job.Destination
	if inPlace {
		tmp, err := fileutil.TempSibling(job.Destination)
		if err != nil {
			return "", err
		}
		target = tmp
	}

	tier := TierDefaultEdit
	err = r.backend.DefaultEdit(ctx, job.Source, target, settings.Quality, info.HasAudio)
	if err != nil && info.HasAudio && backend.IsFilterArgumentError(err) {
		r.logger.Warn("filter graph rejected; retrying without audio chain",
			logging.String("source", job.Source),
			logging.Error(err))
		tier = TierDegradedEdit
		err = r.backend.DefaultEdit(ctx, job.Source, target, settings.Quality, false)
	}
	if err != nil {
		if inPlace {
			_ = os.Remove(target)
		}
		return "", err
	}

	if inPlace {
		if err := fileutil.ReplaceFile(target, job.Destination); err != nil {
			return "", err
		}
	}
	return tier, nil
}

// deleteWithRetry removes a source file after a successful edit and reports
// whether it succeeded. Only lock-style transients are retried; a missing
// file will not reappear, so it fails immediately. Either way the failure is
// logged as a warning, the output is kept, and the job stays successful.
func (r *Runner) deleteWithRetry(path string, policy RetryPolicy) bool {
	err := policy.Do(func() error {
		if err := os.Remove(path); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return Permanent(err)
			}
			return err
		}
		return nil
	})
	if err != nil {
		r.logger.Warn("could not delete source file",
			logging.String(logging.FieldEventType, "source_delete_failed"),
			logging.String("path", path),
			logging.Error(err),
			logging.String(logging.FieldImpact, "edited output kept; source remains on disk"))
		return false
	}
	return true
}

// injectSecondary sets the merge operation's secondary path right before
// dispatch so presets stay reusable across dual-video jobs.
func injectSecondary(p *preset.Preset, secondary string) {
	for i := range p.Operations {
		if p.Operations[i].Name != registry.OpDualVideoMerge {
			continue
		}
		if p.Operations[i].Params == nil {
			p.Operations[i].Params = make(map[string]any, 1)
		}
		p.Operations[i].Params["secondary_video_path"] = secondary
	}
}

func (r *Runner) stepProgress(job Job) engine.Progress {
	return func(step, total int, label string) {
		r.logger.Info("processing step",
			logging.String("source", job.Source),
			logging.String("step", label),
			logging.Int("position", step),
			logging.Int("of", total))
	}
}
