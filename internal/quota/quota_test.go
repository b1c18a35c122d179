package quota

import (
	"path/filepath"
	"testing"
	"time"
)

func newStore(t *testing.T, path, plan string, limit int) *FileStore {
	t.Helper()
	store, err := NewFileStore(path, plan, limit, nil)
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	return store
}

func TestRemainingCountsDown(t *testing.T) {
	store := newStore(t, filepath.Join(t.TempDir(), "quota.json"), "basic", 50)

	remaining, err := store.Remaining()
	if err != nil || remaining != 50 {
		t.Fatalf("Remaining = %d, %v; want 50", remaining, err)
	}
	for i := 0; i < 3; i++ {
		if err := store.RecordProcessed(); err != nil {
			t.Fatalf("RecordProcessed: %v", err)
		}
	}
	if remaining, _ = store.Remaining(); remaining != 47 {
		t.Errorf("Remaining = %d, want 47", remaining)
	}
}

func TestNearLimitLeavesOne(t *testing.T) {
	store := newStore(t, filepath.Join(t.TempDir(), "quota.json"), "pro", 200)
	for i := 0; i < 199; i++ {
		if err := store.RecordProcessed(); err != nil {
			t.Fatalf("RecordProcessed: %v", err)
		}
	}
	remaining, err := store.Remaining()
	if err != nil {
		t.Fatalf("Remaining: %v", err)
	}
	if remaining != 1 {
		t.Errorf("Remaining = %d, want 1", remaining)
	}
}

func TestDailyReset(t *testing.T) {
	store := newStore(t, filepath.Join(t.TempDir(), "quota.json"), "basic", 50)
	day := time.Date(2026, 8, 28, 23, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return day }

	for i := 0; i < 10; i++ {
		if err := store.RecordProcessed(); err != nil {
			t.Fatalf("RecordProcessed: %v", err)
		}
	}
	if remaining, _ := store.Remaining(); remaining != 40 {
		t.Fatalf("Remaining = %d, want 40", remaining)
	}

	store.now = func() time.Time { return day.Add(2 * time.Hour) } // next day
	remaining, err := store.Remaining()
	if err != nil {
		t.Fatalf("Remaining after rollover: %v", err)
	}
	if remaining != 50 {
		t.Errorf("Remaining = %d, want 50 after reset", remaining)
	}
	state, _ := store.State()
	if state.ProcessedToday != 0 || state.LastResetDate != "2026-08-29" {
		t.Errorf("state after reset = %+v", state)
	}
}

func TestPersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "quota.json")
	store := newStore(t, path, "basic", 50)
	for i := 0; i < 5; i++ {
		if err := store.RecordProcessed(); err != nil {
			t.Fatalf("RecordProcessed: %v", err)
		}
	}

	reopened := newStore(t, path, "basic", 50)
	if remaining, _ := reopened.Remaining(); remaining != 45 {
		t.Errorf("Remaining after reopen = %d, want 45", remaining)
	}
}

func TestConfiguredLimitOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "quota.json")
	store := newStore(t, path, "basic", 50)
	if err := store.RecordProcessed(); err != nil {
		t.Fatalf("RecordProcessed: %v", err)
	}

	// Plan upgrade: the file keeps the counter, config supplies the limit.
	upgraded := newStore(t, path, "pro", 200)
	if remaining, _ := upgraded.Remaining(); remaining != 199 {
		t.Errorf("Remaining = %d, want 199", remaining)
	}
	state, _ := upgraded.State()
	if state.Plan != "pro" {
		t.Errorf("plan = %q, want pro", state.Plan)
	}
}

func TestRemainingNeverNegative(t *testing.T) {
	store := newStore(t, filepath.Join(t.TempDir(), "quota.json"), "basic", 2)
	for i := 0; i < 4; i++ {
		if err := store.RecordProcessed(); err != nil {
			t.Fatalf("RecordProcessed: %v", err)
		}
	}
	if remaining, _ := store.Remaining(); remaining != 0 {
		t.Errorf("Remaining = %d, want 0", remaining)
	}
}
