// Package storage persists reboot state and its audit trail to a JSON
// file on disk. Writes go through a temp file and rename so a crash
// mid-write never corrupts the store.
package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"rebootreminder/internal/models"
)

type document struct {
	State         *models.RebootState              `json:"state,omitempty"`
	History       []models.RebootHistory           `json:"history"`
	Notifications []models.Notification            `json:"notifications"`
	Interactions  []models.NotificationInteraction `json:"interactions"`
}

// Store is a file-backed store for the reminder service. All methods
// are safe for concurrent use.
type Store struct {
	path   string
	logger *slog.Logger

	mu  sync.RWMutex
	doc document
}

// Open loads the store from path, creating an empty store when the
// file does not exist yet.
func Open(path string, logger *slog.Logger) (*Store, error) {
	s := &Store{path: path, logger: logger}

	content, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		return s, nil
	case err != nil:
		return nil, fmt.Errorf("open store: %w", err)
	}

	if err := json.Unmarshal(content, &s.doc); err != nil {
		return nil, fmt.Errorf("parse store %s: %w", path, err)
	}
	return s, nil
}

// CurrentState returns a copy of the persisted state, or false when no
// state has been saved yet.
func (s *Store) CurrentState() (*models.RebootState, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.doc.State == nil {
		return nil, false
	}
	return copyState(s.doc.State), true
}

// SaveState persists the state record and its source list atomically.
func (s *Store) SaveState(state *models.RebootState) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.doc.State = copyState(state)
	return s.persist()
}

// AppendHistory records a completed reboot.
func (s *Store) AppendHistory(h models.RebootHistory) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.doc.History = append(s.doc.History, h)
	return s.persist()
}

// AppendNotification records a surfaced reminder.
func (s *Store) AppendNotification(n models.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.doc.Notifications = append(s.doc.Notifications, n)
	return s.persist()
}

// AppendInteraction records a user response to a notification.
func (s *Store) AppendInteraction(i models.NotificationInteraction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.doc.Interactions = append(s.doc.Interactions, i)
	return s.persist()
}

// History returns the most recent reboot records, newest last. A limit
// of 0 returns everything.
func (s *Store) History(limit int) []models.RebootHistory {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return tail(s.doc.History, limit)
}

// Notifications returns the most recent notification records, newest
// last. A limit of 0 returns everything.
func (s *Store) Notifications(limit int) []models.Notification {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return tail(s.doc.Notifications, limit)
}

// Interactions returns the most recent interaction records, newest
// last. A limit of 0 returns everything.
func (s *Store) Interactions(limit int) []models.NotificationInteraction {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return tail(s.doc.Interactions, limit)
}

// persist writes the document to disk. Callers must hold the write lock.
func (s *Store) persist() error {
	content, err := json.MarshalIndent(&s.doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encode store: %w", err)
	}

	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create store dir: %w", err)
		}
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, content, 0o644); err != nil {
		return fmt.Errorf("write store: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replace store: %w", err)
	}
	return nil
}

func copyState(state *models.RebootState) *models.RebootState {
	cp := *state
	cp.Sources = append([]models.RebootSource(nil), state.Sources...)
	cp.RebootRequiredSince = copyTimePtr(state.RebootRequiredSince)
	cp.LastRebootTime = copyTimePtr(state.LastRebootTime)
	cp.NextReminderTime = copyTimePtr(state.NextReminderTime)
	cp.ScheduledRebootTime = copyTimePtr(state.ScheduledRebootTime)
	return &cp
}

func copyTimePtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	cp := *t
	return &cp
}

func tail[T any](items []T, limit int) []T {
	if limit <= 0 || limit >= len(items) {
		return append([]T(nil), items...)
	}
	return append([]T(nil), items[len(items)-limit:]...)
}
