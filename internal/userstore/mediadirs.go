package userstore

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/jmoiron/sqlx"
)

// MediaDir is a whitelisted or blacklisted scan root
type MediaDir struct {
	Path        string `db:"path" json:"path" yaml:"path"`
	Blacklisted bool   `db:"blacklisted" json:"blacklisted" yaml:"blacklisted"`
}

// AddMediaDir whitelists path. Entries below path are dropped first, and
// nothing is stored when a parent already whitelists it.
func (s *Store) AddMediaDir(path string) error {
	path = filepath.Clean(path)

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.transaction(func(tx *sqlx.Tx) error {
		if err := deleteSubtreeTx(tx, path); err != nil {
			return err
		}
		ok, err := isWhitelistedTx(tx, path)
		if err != nil || ok {
			return err
		}
		return insertMediaDirTx(tx, path, false)
	})
}

// RemoveMediaDir drops path and the entries below it. When a parent still
// whitelists path, path is blacklisted instead.
func (s *Store) RemoveMediaDir(path string) error {
	path = filepath.Clean(path)

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.transaction(func(tx *sqlx.Tx) error {
		if err := deleteSubtreeTx(tx, path); err != nil {
			return err
		}
		ok, err := isWhitelistedTx(tx, path)
		if err != nil || !ok {
			return err
		}
		return insertMediaDirTx(tx, path, true)
	})
}

// MediaDirs lists whitelisted (or blacklisted) paths
func (s *Store) MediaDirs(blacklisted bool) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	paths := []string{}
	if err := s.db.Select(&paths, "SELECT path FROM media_dirs WHERE blacklisted = ? ORDER BY path", blacklisted); err != nil {
		return nil, fmt.Errorf("failed to list media dirs: %w", err)
	}
	return paths, nil
}

// IsMediaDirWhitelisted reports whether path is scanned: it or a parent is
// whitelisted, and no blacklisted parent sits deeper than the closest
// whitelisted one.
func (s *Store) IsMediaDirWhitelisted(path string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var ok bool
	err := s.transaction(func(tx *sqlx.Tx) error {
		var err error
		ok, err = isWhitelistedTx(tx, filepath.Clean(path))
		return err
	})
	return ok, err
}

func isWhitelistedTx(tx *sqlx.Tx, path string) (bool, error) {
	var dirs []MediaDir
	if err := tx.Select(&dirs, "SELECT path, blacklisted FROM media_dirs"); err != nil {
		return false, fmt.Errorf("failed to read media dirs: %w", err)
	}

	whiteDepth, blackDepth := -1, -1
	for _, d := range dirs {
		if !isWithin(path, d.Path) {
			continue
		}
		depth := strings.Count(d.Path, string(filepath.Separator))
		if d.Blacklisted {
			blackDepth = max(blackDepth, depth)
		} else {
			if d.Path == path {
				return true, nil
			}
			whiteDepth = max(whiteDepth, depth)
		}
	}

	if whiteDepth < 0 {
		return false, nil
	}
	return whiteDepth > blackDepth, nil
}

func deleteSubtreeTx(tx *sqlx.Tx, path string) error {
	var paths []string
	if err := tx.Select(&paths, "SELECT path FROM media_dirs"); err != nil {
		return fmt.Errorf("failed to read media dirs: %w", err)
	}
	for _, p := range paths {
		if !isWithin(p, path) {
			continue
		}
		if _, err := tx.Exec("DELETE FROM media_dirs WHERE path = ?", p); err != nil {
			return fmt.Errorf("failed to remove media dir %s: %w", p, err)
		}
	}
	return nil
}

func insertMediaDirTx(tx *sqlx.Tx, path string, blacklisted bool) error {
	_, err := tx.Exec(`
		INSERT INTO media_dirs (path, blacklisted) VALUES (?, ?)
		ON CONFLICT(path) DO UPDATE SET blacklisted = excluded.blacklisted
	`, path, blacklisted)
	if err != nil {
		return fmt.Errorf("failed to store media dir %s: %w", path, err)
	}
	return nil
}

// isWithin reports whether path equals dir or lies below it
func isWithin(path, dir string) bool {
	if path == dir {
		return true
	}
	if dir == string(filepath.Separator) {
		return strings.HasPrefix(path, dir)
	}
	return strings.HasPrefix(path, dir+string(filepath.Separator))
}
