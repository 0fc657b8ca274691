package userstore

import (
	"database/sql"
	"errors"
	"fmt"
	"strconv"

	"github.com/franz/crate/internal/store"
)

// GetSetting returns the stored value, or "" when the key is unset
func (s *Store) GetSetting(key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.getSetting(key)
}

func (s *Store) getSetting(key string) (string, error) {
	var value string
	err := s.db.Get(&value, "SELECT value FROM settings WHERE key = ?", key)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to get setting %s: %w", key, err)
	}
	return value, nil
}

// SetSetting stores a value
func (s *Store) SetSetting(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.setSetting(key, value)
}

func (s *Store) setSetting(key, value string) error {
	_, err := s.db.Exec(`
		INSERT INTO settings (key, value, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`, key, value, s.nowMillis())
	if err != nil {
		return fmt.Errorf("failed to set setting %s: %w", key, err)
	}
	return nil
}

// DeleteSetting removes a key
func (s *Store) DeleteSetting(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.Exec("DELETE FROM settings WHERE key = ?", key); err != nil {
		return fmt.Errorf("failed to delete setting %s: %w", key, err)
	}
	return nil
}

// LastCollectionUpdate returns the collection's "last updated" marker, or 0
func (s *Store) LastCollectionUpdate(collectionID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	value, err := s.getSetting(store.MarkerKey(collectionID))
	if err != nil || value == "" {
		return 0, err
	}
	ms, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("bad marker for collection %s: %w", collectionID, err)
	}
	return ms, nil
}

// SetLastCollectionUpdate stores the collection's "last updated" marker
func (s *Store) SetLastCollectionUpdate(collectionID string, ms int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.setSetting(store.MarkerKey(collectionID), strconv.FormatInt(ms, 10))
}
