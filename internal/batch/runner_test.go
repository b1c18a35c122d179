package batch

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"clipforge/internal/backend"
	"clipforge/internal/engine"
	"clipforge/internal/params"
	"clipforge/internal/preset"
	"clipforge/internal/quota"
	"clipforge/internal/registry"
	"clipforge/internal/services"
	"clipforge/internal/tracking"
)

type fakeHandle struct{ source string }

func (h *fakeHandle) Source() string { return h.source }

// fakeBackend scripts per-call behavior for the tier chain.
type fakeBackend struct {
	mu sync.Mutex

	hasAudio bool

	applied       []params.Map
	appliedOps    []string
	failApply     bool
	exportCount   int
	defaultCalls  []bool // withAudio flag per DefaultEdit call
	failFirstEdit error  // returned by the first DefaultEdit call only
	editStarted   chan struct{}
	editBlocks    bool
}

func (f *fakeBackend) Probe(ctx context.Context, path string) (backend.MediaInfo, error) {
	return backend.MediaInfo{Width: 1920, Height: 1080, Duration: 10, HasAudio: f.hasAudio}, nil
}

func (f *fakeBackend) Open(ctx context.Context, path string) (backend.Handle, error) {
	return &fakeHandle{source: path}, nil
}

func (f *fakeBackend) Signature(operation string) (params.Signature, bool) {
	return params.Signature{CatchAll: true}, true
}

func (f *fakeBackend) Apply(ctx context.Context, h backend.Handle, operation string, p params.Map) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failApply {
		return fmt.Errorf("backend rejected %s", operation)
	}
	f.appliedOps = append(f.appliedOps, operation)
	f.applied = append(f.applied, p)
	return nil
}

func (f *fakeBackend) Export(ctx context.Context, h backend.Handle, destination, quality string) (int64, error) {
	f.mu.Lock()
	f.exportCount++
	f.mu.Unlock()
	data := []byte("exported")
	if err := os.WriteFile(destination, data, 0o644); err != nil {
		return 0, err
	}
	return int64(len(data)), nil
}

func (f *fakeBackend) Close(h backend.Handle) error { return nil }

func (f *fakeBackend) DefaultEdit(ctx context.Context, source, destination, quality string, withAudio bool) error {
	f.mu.Lock()
	f.defaultCalls = append(f.defaultCalls, withAudio)
	calls := len(f.defaultCalls)
	failErr := f.failFirstEdit
	f.mu.Unlock()

	if f.editStarted != nil {
		f.editStarted <- struct{}{}
	}
	if f.editBlocks {
		<-ctx.Done()
		return ctx.Err()
	}
	if calls == 1 && failErr != nil {
		return failErr
	}
	return os.WriteFile(destination, []byte("default-edited"), 0o644)
}

func (f *fakeBackend) RunFilterGraph(ctx context.Context, args []string) (int, string, error) {
	return 0, "", nil
}

type fixture struct {
	runner   *Runner
	backend  *fakeBackend
	tracking *tracking.MemoryStore
	quota    *quota.MemoryStore
}

func newFixture(t *testing.T, fake *fakeBackend, quotaLimit int) *fixture {
	t.Helper()
	trackingStore := tracking.NewMemoryStore()
	quotaStore := quota.NewMemoryStore(quotaLimit)
	eng := engine.New(fake, registry.New(), nil)
	return &fixture{
		runner:   New(eng, fake, trackingStore, quotaStore, nil),
		backend:  fake,
		tracking: trackingStore,
		quota:    quotaStore,
	}
}

func makeJobs(t *testing.T, count int, destDir string) []Job {
	t.Helper()
	srcDir := t.TempDir()
	jobs := make([]Job, 0, count)
	for i := 0; i < count; i++ {
		source := filepath.Join(srcDir, fmt.Sprintf("clip%d.mp4", i))
		if err := os.WriteFile(source, []byte(fmt.Sprintf("video %d", i)), 0o644); err != nil {
			t.Fatalf("write source: %v", err)
		}
		jobs = append(jobs, Job{Source: source, Destination: filepath.Join(destDir, fmt.Sprintf("clip%d.mp4", i))})
	}
	return jobs
}

func collect(t *testing.T, results <-chan ProcessResult, summaries <-chan Summary) ([]ProcessResult, Summary) {
	t.Helper()
	var out []ProcessResult
	for result := range results {
		out = append(out, result)
	}
	select {
	case summary := <-summaries:
		return out, summary
	case <-time.After(5 * time.Second):
		t.Fatal("no summary emitted")
		return nil, Summary{}
	}
}

func TestCopyTierProcessesInSubmissionOrder(t *testing.T) {
	fx := newFixture(t, &fakeBackend{}, 50)
	destDir := t.TempDir()
	jobs := makeJobs(t, 3, destDir)

	results, summaries, err := fx.runner.Start(context.Background(), jobs, Settings{Quality: "high"})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	out, summary := collect(t, results, summaries)

	if len(out) != 3 {
		t.Fatalf("results = %d, want 3", len(out))
	}
	for i, result := range out {
		if result.Job.Source != jobs[i].Source {
			t.Errorf("result %d out of order: %s", i, result.Job.Source)
		}
		if result.Status != StatusSuccess || result.Tier != TierCopy {
			t.Errorf("result %d = %s/%s, want success/copy", i, result.Status, result.Tier)
		}
		data, err := os.ReadFile(result.Job.Destination)
		if err != nil || string(data) != fmt.Sprintf("video %d", i) {
			t.Errorf("destination %d content = %q, err %v", i, data, err)
		}
	}
	if summary.Succeeded != 3 || summary.Failed != 0 || summary.WasCancelled {
		t.Errorf("summary = %+v", summary)
	}
	if fx.quota.Processed != 3 {
		t.Errorf("quota processed = %d, want 3", fx.quota.Processed)
	}
}

func TestReencodeWhenContainersDiffer(t *testing.T) {
	fx := newFixture(t, &fakeBackend{}, 50)
	source := filepath.Join(t.TempDir(), "clip.avi")
	if err := os.WriteFile(source, []byte("avi"), 0o644); err != nil {
		t.Fatalf("write source: %v", err)
	}
	jobs := []Job{{Source: source, Destination: filepath.Join(t.TempDir(), "clip.mp4")}}

	results, summaries, err := fx.runner.Start(context.Background(), jobs, Settings{Quality: "high"})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	out, _ := collect(t, results, summaries)
	if len(out) != 1 || out[0].Tier != TierReencode {
		t.Errorf("results = %+v, want reencode tier", out)
	}
	if fx.backend.exportCount != 1 {
		t.Errorf("export count = %d, want 1", fx.backend.exportCount)
	}
}

func TestQuotaPreTruncation(t *testing.T) {
	fx := newFixture(t, &fakeBackend{}, 200)
	fx.quota.Processed = 199

	jobs := makeJobs(t, 5, t.TempDir())
	results, summaries, err := fx.runner.Start(context.Background(), jobs, Settings{})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	out, summary := collect(t, results, summaries)

	// 199 of 200 used: at most 1 of the 5 jobs runs; the rest are absent,
	// not skipped.
	if len(out) != 1 {
		t.Fatalf("results = %d, want 1", len(out))
	}
	if summary.Total != 1 || summary.Skipped != 0 {
		t.Errorf("summary = %+v", summary)
	}
}

func TestQuotaExhaustedRefusesStart(t *testing.T) {
	fx := newFixture(t, &fakeBackend{}, 10)
	fx.quota.Processed = 10

	_, _, err := fx.runner.Start(context.Background(), makeJobs(t, 2, t.TempDir()), Settings{})
	if !errors.Is(err, services.ErrQuotaExceeded) {
		t.Errorf("expected ErrQuotaExceeded, got %v", err)
	}
}

func TestIdempotentResumeSkipsCompletedFolders(t *testing.T) {
	fx := newFixture(t, &fakeBackend{}, 50)
	destDir := t.TempDir()
	jobs := makeJobs(t, 2, destDir)
	settings := Settings{SkipProcessed: true}

	results, summaries, err := fx.runner.Start(context.Background(), jobs, settings)
	if err != nil {
		t.Fatalf("first Start: %v", err)
	}
	first, _ := collect(t, results, summaries)
	for _, result := range first {
		if result.Status != StatusSuccess {
			t.Fatalf("first run result = %+v", result)
		}
	}

	// Second run over the same folder: everything skipped, no edits.
	results, summaries, err = fx.runner.Start(context.Background(), jobs, settings)
	if err != nil {
		t.Fatalf("second Start: %v", err)
	}
	second, summary := collect(t, results, summaries)
	if len(second) != 2 {
		t.Fatalf("second run results = %d, want 2", len(second))
	}
	for _, result := range second {
		if result.Status != StatusSkipped {
			t.Errorf("second run result = %s, want skipped", result.Status)
		}
	}
	if summary.Skipped != 2 || summary.Succeeded != 0 {
		t.Errorf("summary = %+v", summary)
	}
	if fx.quota.Processed != 2 {
		t.Errorf("quota should not move on skips: %d", fx.quota.Processed)
	}
}

func TestDualVideoSecondaryInjection(t *testing.T) {
	fake := &fakeBackend{}
	fx := newFixture(t, fake, 50)
	jobs := makeJobs(t, 1, t.TempDir())
	jobs[0].IsDualVideo = true
	jobs[0].SecondaryPath = "/b.mp4"

	p := &preset.Preset{
		Name:          "Merge",
		SchemaVersion: preset.SchemaV2,
		Operations: []preset.Operation{
			{Name: "dual_video_merge", Params: map[string]any{"layout": "top_bottom"}},
		},
	}
	results, summaries, err := fx.runner.Start(context.Background(), jobs, Settings{Preset: p})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	out, _ := collect(t, results, summaries)
	if len(out) != 1 || out[0].Status != StatusSuccess || out[0].Tier != TierPreset {
		t.Fatalf("results = %+v", out)
	}

	if len(fake.applied) != 1 {
		t.Fatalf("applied = %d operations", len(fake.applied))
	}
	got, _ := fake.applied[0]["secondary_video_path"].Str()
	if got != "/b.mp4" {
		t.Errorf("secondary_video_path = %q, want /b.mp4", got)
	}
	// The shared preset itself must stay untouched.
	if _, ok := p.Operations[0].Params["secondary_video_path"]; ok {
		t.Error("injection leaked into the shared preset")
	}
}

func TestPresetFailureFallsBackToDefaultEdit(t *testing.T) {
	fake := &fakeBackend{failApply: true, hasAudio: true}
	fx := newFixture(t, fake, 50)
	jobs := makeJobs(t, 1, t.TempDir())

	p := &preset.Preset{
		Name:          "Broken At Runtime",
		SchemaVersion: preset.SchemaV2,
		Operations:    []preset.Operation{{Name: "rotate", Params: map[string]any{"angle": 90}}},
	}
	results, summaries, err := fx.runner.Start(context.Background(), jobs, Settings{Preset: p})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	out, _ := collect(t, results, summaries)
	if len(out) != 1 || out[0].Status != StatusSuccess {
		t.Fatalf("results = %+v", out)
	}
	if out[0].Tier != TierDefaultEdit {
		t.Errorf("tier = %s, want default_edit", out[0].Tier)
	}
	if len(fake.defaultCalls) != 1 || !fake.defaultCalls[0] {
		t.Errorf("default edit calls = %v, want one call with audio", fake.defaultCalls)
	}
}

func TestDegradedRetryDropsAudioChain(t *testing.T) {
	fake := &fakeBackend{
		hasAudio:      true,
		failFirstEdit: &backend.FilterError{Operation: "default_edit", Err: errors.New("bad graph")},
	}
	fx := newFixture(t, fake, 50)
	jobs := makeJobs(t, 1, t.TempDir())

	results, summaries, err := fx.runner.Start(context.Background(), jobs, Settings{ApplyDefaultEdit: true})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	out, _ := collect(t, results, summaries)
	if len(out) != 1 || out[0].Status != StatusSuccess {
		t.Fatalf("results = %+v", out)
	}
	if out[0].Tier != TierDegradedEdit {
		t.Errorf("tier = %s, want degraded_edit", out[0].Tier)
	}
	if len(fake.defaultCalls) != 2 || !fake.defaultCalls[0] || fake.defaultCalls[1] {
		t.Errorf("default edit calls = %v, want [true false]", fake.defaultCalls)
	}
}

func TestDeleteSourceAfterSuccess(t *testing.T) {
	fx := newFixture(t, &fakeBackend{}, 50)
	jobs := makeJobs(t, 1, t.TempDir())

	settings := Settings{
		DeleteSource: true,
		DeleteRetry:  RetryPolicy{Attempts: 3, Delay: time.Second, Sleep: func(time.Duration) {}},
	}
	results, summaries, err := fx.runner.Start(context.Background(), jobs, settings)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	out, _ := collect(t, results, summaries)
	if out[0].Status != StatusSuccess || !out[0].SourceDeleted {
		t.Fatalf("result = %+v", out[0])
	}
	if _, err := os.Stat(jobs[0].Source); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("source should be deleted, stat err = %v", err)
	}
}

func TestDeletionFailureKeepsJobSuccessful(t *testing.T) {
	fx := newFixture(t, &fakeBackend{}, 50)

	// A non-empty directory cannot be removed with os.Remove, so deletion
	// fails on every attempt. The zero-op preset keeps the backend from ever
	// reading the source.
	srcDir := filepath.Join(t.TempDir(), "stubborn.mp4")
	if err := os.MkdirAll(filepath.Join(srcDir, "inner"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	jobs := []Job{{Source: srcDir, Destination: filepath.Join(t.TempDir(), "out.mp4")}}

	var slept []time.Duration
	settings := Settings{
		Preset:       &preset.Preset{Name: "Passthrough", SchemaVersion: preset.SchemaV2},
		DeleteSource: true,
		DeleteRetry:  RetryPolicy{Attempts: 3, Delay: time.Second, Sleep: func(d time.Duration) { slept = append(slept, d) }},
	}
	results, summaries, err := fx.runner.Start(context.Background(), jobs, settings)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	out, _ := collect(t, results, summaries)

	if out[0].Status != StatusSuccess || out[0].SourceDeleted {
		t.Errorf("deletion failure must not fail the job: %+v", out[0])
	}
	if len(slept) != 2 {
		t.Errorf("expected 2 sleeps between 3 attempts, got %d", len(slept))
	}
	if _, err := os.Stat(jobs[0].Source); err != nil {
		t.Errorf("source should remain: %v", err)
	}
	if _, err := os.Stat(jobs[0].Destination); err != nil {
		t.Errorf("output should be kept: %v", err)
	}
}

func TestInPlaceDualJobDeletesSecondary(t *testing.T) {
	fx := newFixture(t, &fakeBackend{}, 50)

	dir := t.TempDir()
	source := filepath.Join(dir, "primary.mp4")
	secondary := filepath.Join(dir, "overlay.mp4")
	for _, path := range []string{source, secondary} {
		if err := os.WriteFile(path, []byte("clip"), 0o644); err != nil {
			t.Fatalf("write input: %v", err)
		}
	}
	jobs := []Job{{Source: source, Destination: source, IsDualVideo: true, SecondaryPath: secondary}}

	settings := Settings{
		Preset:       &preset.Preset{Name: "Passthrough", SchemaVersion: preset.SchemaV2},
		DeleteSource: true,
		DeleteRetry:  RetryPolicy{Attempts: 3, Sleep: func(time.Duration) {}},
	}
	results, summaries, err := fx.runner.Start(context.Background(), jobs, settings)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	out, _ := collect(t, results, summaries)

	if out[0].Status != StatusSuccess || out[0].SourceDeleted {
		t.Fatalf("result = %+v", out[0])
	}
	// The edited file stays in place; only the extra input goes away.
	if _, err := os.Stat(source); err != nil {
		t.Errorf("in-place source must survive: %v", err)
	}
	if _, err := os.Stat(secondary); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("secondary should be deleted, stat err = %v", err)
	}
}

func TestDeleteMissingFileDoesNotRetry(t *testing.T) {
	fx := newFixture(t, &fakeBackend{}, 50)

	var slept []time.Duration
	policy := RetryPolicy{Attempts: 3, Delay: time.Second, Sleep: func(d time.Duration) { slept = append(slept, d) }}
	if fx.runner.deleteWithRetry(filepath.Join(t.TempDir(), "vanished.mp4"), policy) {
		t.Error("deleting a missing file should report failure")
	}
	if len(slept) != 0 {
		t.Errorf("missing file should not be retried, slept %v", slept)
	}
}

func TestTrackingStoreErrorAbortsRun(t *testing.T) {
	fx := newFixture(t, &fakeBackend{}, 50)
	fx.tracking.FailWrites = true
	jobs := makeJobs(t, 3, t.TempDir())

	results, summaries, err := fx.runner.Start(context.Background(), jobs, Settings{})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	out, summary := collect(t, results, summaries)
	if summary.Err == nil {
		t.Error("store failure should surface in summary")
	}
	if len(out) != 0 {
		t.Errorf("no results expected after immediate store failure, got %d", len(out))
	}
}

func TestCancellationStopsAtJobBoundary(t *testing.T) {
	fake := &fakeBackend{editStarted: make(chan struct{}, 1), editBlocks: true}
	fx := newFixture(t, fake, 50)
	jobs := makeJobs(t, 3, t.TempDir())

	ctx, cancel := context.WithCancel(context.Background())
	results, summaries, err := fx.runner.Start(ctx, jobs, Settings{ApplyDefaultEdit: true})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}

	<-fake.editStarted // first job is mid-edit
	cancel()

	out, summary := collect(t, results, summaries)
	if !summary.WasCancelled {
		t.Error("summary should report cancellation")
	}

	// Every enqueued job gets exactly one terminal result: the in-flight
	// job fails, the never-started jobs come back cancelled.
	if len(out) != 3 {
		t.Fatalf("results = %d, want one per enqueued job", len(out))
	}
	if out[0].Status != StatusFailed {
		t.Errorf("in-flight job = %s, want failed", out[0].Status)
	}
	for i, result := range out[1:] {
		if result.Status != StatusCancelled {
			t.Errorf("unstarted job %d = %s, want cancelled", i+2, result.Status)
		}
		if result.Job.Source != jobs[i+1].Source {
			t.Errorf("cancelled result %d out of order: %s", i+2, result.Job.Source)
		}
	}
	if summary.Total != 3 || summary.Failed != 1 || summary.Cancelled != 2 {
		t.Errorf("summary = %+v, want 1 failed and 2 cancelled of 3", summary)
	}
	if len(fake.defaultCalls) != 1 {
		t.Errorf("later jobs must not start, calls = %d", len(fake.defaultCalls))
	}
}

func TestPauseHoldsWorkerBetweenJobs(t *testing.T) {
	fx := newFixture(t, &fakeBackend{}, 50)
	jobs := makeJobs(t, 1, t.TempDir())

	fx.runner.Pause()
	results, summaries, err := fx.runner.Start(context.Background(), jobs, Settings{PausePollInterval: 5 * time.Millisecond})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}

	select {
	case result := <-results:
		t.Fatalf("job ran while paused: %+v", result)
	case <-time.After(50 * time.Millisecond):
	}

	fx.runner.Resume()
	out, summary := collect(t, results, summaries)
	if len(out) != 1 || out[0].Status != StatusSuccess {
		t.Errorf("results after resume = %+v", out)
	}
	if summary.WasCancelled {
		t.Errorf("summary = %+v", summary)
	}
}
