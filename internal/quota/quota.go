// Package quota enforces the daily ceiling on successfully processed videos.
// The counter resets the first time the date differs from the recorded reset
// date and only ever increases within a day.
package quota

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

const dateLayout = "2006-01-02"

// State mirrors the on-disk quota document.
type State struct {
	Plan           string `json:"user_plan"`
	DailyLimit     int    `json:"daily_limit"`
	ProcessedToday int    `json:"videos_processed_today"`
	LastResetDate  string `json:"last_reset_date"`
}

// Store is the quota contract the batch orchestrator depends on.
type Store interface {
	// Remaining reports how many more videos may be processed today,
	// applying the daily reset first.
	Remaining() (int, error)
	// RecordProcessed counts one successfully completed job.
	RecordProcessed() error
	State() (State, error)
}

// FileStore persists the quota as a single JSON document rewritten on every
// mutation.
type FileStore struct {
	path   string
	logger *slog.Logger

	mu    sync.Mutex
	state State

	now func() time.Time
}

// NewFileStore loads quota state from path; a missing file initializes from
// the given plan and limit.
func NewFileStore(path, plan string, dailyLimit int, logger *slog.Logger) (*FileStore, error) {
	if logger == nil {
		logger = logging.NewNop()
	}
	s := &FileStore{
		path:   path,
		logger: logging.NewComponentLogger(logger, "quota"),
		now:    time.Now,
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("read quota file: %w", err)
		}
		s.state = State{Plan: plan, DailyLimit: dailyLimit, LastResetDate: s.now().Format(dateLayout)}
		return s, nil
	}
	if err := json.Unmarshal(data, &s.state); err != nil {
		return nil, fmt.Errorf("parse quota file: %w", err)
	}
	// Configuration wins over stale file contents for plan and limit.
	s.state.Plan = plan
	s.state.DailyLimit = dailyLimit
	return s, nil
}

// resetIfNewDay zeroes the counter when the date has rolled over. Callers
// hold the mutex.
func (s *FileStore) resetIfNewDay() error {
	today := s.now().Format(dateLayout)
	if s.state.LastResetDate == today {
		return nil
	}
	s.logger.Info("daily quota reset",
		logging.String(logging.FieldEventType, "quota_reset"),
		logging.String("previous_date", s.state.LastResetDate),
		logging.Int("processed", s.state.ProcessedToday))
	s.state.ProcessedToday = 0
	s.state.LastResetDate = today
	return s.save()
}

func (s *FileStore) Remaining() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.resetIfNewDay(); err != nil {
		return 0, err
	}
	remaining := s.state.DailyLimit - s.state.ProcessedToday
	if remaining < 0 {
		remaining = 0
	}
	return remaining, nil
}

func (s *FileStore) RecordProcessed() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.resetIfNewDay(); err != nil {
		return err
	}
	s.state.ProcessedToday++
	return s.save()
}

func (s *FileStore) State() (State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.resetIfNewDay(); err != nil {
		return State{}, err
	}
	return s.state, nil
}

// save rewrites the document atomically. Callers hold the mutex.
func (s *FileStore) save() error {
	data, err := json.MarshalIndent(s.state, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal quota state: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create quota directory: %w", err)
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

// MemoryStore is a test double holding quota state without disk I/O.
type MemoryStore struct {
	mu sync.Mutex
	// Limit and Processed are readable after a run for assertions.
	Limit     int
	Processed int
	// FailWrites makes RecordProcessed error, for propagation tests.
	FailWrites bool
}

func NewMemoryStore(limit int) *MemoryStore {
	return &MemoryStore{Limit: limit}
}

func (m *MemoryStore) Remaining() (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	remaining := m.Limit - m.Processed
	if remaining < 0 {
		remaining = 0
	}
	return remaining, nil
}

func (m *MemoryStore) RecordProcessed() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailWrites {
		return errors.New("quota store write refused")
	}
	m.Processed++
	return nil
}

func (m *MemoryStore) State() (State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return State{Plan: "test", DailyLimit: m.Limit, ProcessedToday: m.Processed}, nil
}

var _ Store = (*MemoryStore)(nil)
