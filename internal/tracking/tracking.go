// Package tracking persists per-folder processing state so interrupted batch
// runs can resume without repeating completed folders. It is the only state
// that survives process restarts.
package tracking

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"clipforge/internal/logging"
)

// Status of a tracked folder.
type Status string

const (
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// Entry is the durable record for one destination folder.
type Entry struct {
	Status          Status     `json:"status"`
	StartedAt       time.Time  `json:"started_at"`
	CompletedAt     *time.Time `json:"completed_at,omitempty"`
	VideosProcessed int        `json:"videos_processed"`
}

// Store is the folder-tracking contract the batch orchestrator depends on.
// Every mutation is durable before it returns.
type Store interface {
	Get(folder string) (Entry, bool, error)
	Begin(folder string) error
	RecordSuccess(folder string) error
	Complete(folder string) error
	Fail(folder string) error
}

// FileStore keeps the whole document in memory and rewrites the JSON file on
// every transition. Single writer assumed; the run lock enforces that.
type FileStore struct {
	path   string
	logger *slog.Logger

	mu      sync.Mutex
	entries map[string]Entry

	now func() time.Time
}

// NewFileStore loads existing state from path, starting empty when the file
// does not exist yet.
func NewFileStore(path string, logger *slog.Logger) (*FileStore, error) {
	if logger == nil {
		logger = logging.NewNop()
	}
	s := &FileStore{
		path:    path,
		logger:  logging.NewComponentLogger(logger, "tracking"),
		entries: make(map[string]Entry),
		now:     time.Now,
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return s, nil
		}
		return nil, fmt.Errorf("read tracking file: %w", err)
	}
	if len(data) > 0 {
		if err := json.Unmarshal(data, &s.entries); err != nil {
			return nil, fmt.Errorf("parse tracking file: %w", err)
		}
	}
	s.logger.Debug("loaded tracking state",
		logging.Int("folders", len(s.entries)),
		logging.String("path", path))
	return s, nil
}

func (s *FileStore) Get(folder string) (Entry, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.entries[folder]
	return entry, ok, nil
}

// Begin marks a folder in progress. An already-tracked folder keeps its
// original start time and processed count.
func (s *FileStore) Begin(folder string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.entries[folder]
	if !ok {
		entry = Entry{StartedAt: s.now().UTC()}
	}
	entry.Status = StatusInProgress
	entry.CompletedAt = nil
	s.entries[folder] = entry
	return s.save()
}

func (s *FileStore) RecordSuccess(folder string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry := s.entries[folder]
	entry.VideosProcessed++
	if entry.Status == "" {
		entry.Status = StatusInProgress
		entry.StartedAt = s.now().UTC()
	}
	s.entries[folder] = entry
	return s.save()
}

func (s *FileStore) Complete(folder string) error {
	return s.transition(folder, StatusCompleted)
}

func (s *FileStore) Fail(folder string) error {
	return s.transition(folder, StatusFailed)
}

func (s *FileStore) transition(folder string, status Status) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.entries[folder]
	if !ok {
		entry = Entry{StartedAt: s.now().UTC()}
	}
	entry.Status = status
	if status == StatusCompleted {
		now := s.now().UTC()
		entry.CompletedAt = &now
	}
	s.entries[folder] = entry
	return s.save()
}

// save rewrites the whole document atomically. Callers hold the mutex.
func (s *FileStore) save() error {
	data, err := json.MarshalIndent(s.entries, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal tracking state: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create tracking directory: %w", err)
	}
	tmpPath := s.path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}

var _ Store = (*FileStore)(nil)

// MemoryStore is a test double that never touches disk.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]Entry
	// FailWrites makes every mutation error, for propagation tests.
	FailWrites bool
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]Entry)}
}

var errMemoryWrite = errors.New("tracking store write refused")

func (m *MemoryStore) Get(folder string) (Entry, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	entry, ok := m.entries[folder]
	return entry, ok, nil
}

func (m *MemoryStore) Begin(folder string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailWrites {
		return errMemoryWrite
	}
	entry, ok := m.entries[folder]
	if !ok {
		entry = Entry{StartedAt: time.Now().UTC()}
	}
	entry.Status = StatusInProgress
	entry.CompletedAt = nil
	m.entries[folder] = entry
	return nil
}

func (m *MemoryStore) RecordSuccess(folder string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailWrites {
		return errMemoryWrite
	}
	entry := m.entries[folder]
	entry.VideosProcessed++
	m.entries[folder] = entry
	return nil
}

func (m *MemoryStore) Complete(folder string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailWrites {
		return errMemoryWrite
	}
	entry := m.entries[folder]
	entry.Status = StatusCompleted
	now := time.Now().UTC()
	entry.CompletedAt = &now
	m.entries[folder] = entry
	return nil
}

func (m *MemoryStore) Fail(folder string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailWrites {
		return errMemoryWrite
	}
	entry := m.entries[folder]
	entry.Status = StatusFailed
	m.entries[folder] = entry
	return nil
}

var _ Store = (*MemoryStore)(nil)
