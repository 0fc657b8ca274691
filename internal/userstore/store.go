// Package userstore persists user data that lives outside any collection:
// playlists, loved tracks, search history, the operation log, media
// directories and settings.
package userstore

import (
	"fmt"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite" // SQLite driver

	"github.com/franz/crate/internal/util"
)

const currentSchemaVersion = 1

// Store is the user database. Every public method holds mu.
type Store struct {
	mu   sync.Mutex
	db   *sqlx.DB
	path string
	now  func() time.Time
}

// Open opens or creates the user database at path
func Open(path string) (*Store, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)", path)
	db, err := sqlx.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open user database: %w", err)
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	s := &Store{db: db, path: path, now: time.Now}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migration failed: %w", err)
	}
	return s, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}

// Path returns the database file path
func (s *Store) Path() string {
	return s.path
}

// CheckIntegrity runs PRAGMA integrity_check on the database
func (s *Store) CheckIntegrity() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var result string
	if err := s.db.Get(&result, "PRAGMA integrity_check"); err != nil {
		return fmt.Errorf("integrity check query failed: %w", err)
	}
	if result != "ok" {
		return fmt.Errorf("%w: integrity check failed: %s", util.ErrCorrupt, result)
	}
	return nil
}

func (s *Store) migrate() error {
	var exists int
	if err := s.db.Get(&exists, `
		SELECT COUNT(*) FROM sqlite_master
		WHERE type='table' AND name='schema_version'
	`); err != nil {
		return err
	}

	version := 0
	if exists > 0 {
		if err := s.db.Get(&version, "SELECT COALESCE(MAX(version), 0) FROM schema_version"); err != nil {
			return err
		}
	}
	if version >= currentSchemaVersion {
		return nil
	}

	return s.transaction(func(tx *sqlx.Tx) error {
		if _, err := tx.Exec(schemaV1); err != nil {
			return fmt.Errorf("failed to apply schema v1: %w", err)
		}
		_, err := tx.Exec("INSERT OR IGNORE INTO schema_version (version) VALUES (?)", currentSchemaVersion)
		return err
	})
}

// transaction executes fn within a transaction. Callers hold mu.
func (s *Store) transaction(fn func(*sqlx.Tx) error) error {
	tx, err := s.db.Beginx()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (s *Store) nowMillis() int64 {
	return s.now().UnixMilli()
}
