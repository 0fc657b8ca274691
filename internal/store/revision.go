package store

import (
	"database/sql"
	"errors"
	"fmt"
	"strconv"

	"github.com/jmoiron/sqlx"
)

// recordRevision appends one log entry in its own transaction. Callers hold mu.
func (s *Store) recordRevision(token string, action RevisionAction) (string, error) {
	var recorded string
	err := s.transaction(func(tx *sqlx.Tx) error {
		var err error
		recorded, err = s.recordRevisionTx(tx, token, action)
		return err
	})
	return recorded, err
}

// recordRevisionTx counts tracks and appends the entry inside tx.
// Timestamps strictly increase even when the clock does not move forward.
// An empty token is replaced by the timestamp in decimal.
func (s *Store) recordRevisionTx(tx *sqlx.Tx, token string, action RevisionAction) (string, error) {
	var trackCount int64
	if err := tx.Get(&trackCount, "SELECT COUNT(*) FROM tracks"); err != nil {
		return "", fmt.Errorf("failed to count tracks: %w", err)
	}

	var prev int64
	if err := tx.Get(&prev, "SELECT COALESCE(MAX(timeStamp), 0) FROM revisionHistory"); err != nil {
		return "", fmt.Errorf("failed to read last revision timestamp: %w", err)
	}

	ts := s.nowMillis()
	if ts <= prev {
		ts = prev + 1
	}
	if token == "" {
		token = strconv.FormatInt(ts, 10)
	}

	_, err := tx.Exec(`
		INSERT INTO revisionHistory (action, trackCount, revision, timeStamp)
		VALUES (?, ?, ?, ?)
	`, int(action), trackCount, token, ts)
	if err != nil {
		return "", fmt.Errorf("failed to insert revision: %w", err)
	}

	return token, nil
}

// CurrentRevision returns the token of the newest revision, or NoRevision
func (s *Store) CurrentRevision() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var token string
	err := s.db.Get(&token, `
		SELECT revision FROM revisionHistory
		ORDER BY timeStamp DESC, _id DESC
		LIMIT 1
	`)
	if errors.Is(err, sql.ErrNoRows) {
		return NoRevision, nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to get current revision: %w", err)
	}
	return token, nil
}

// LastUpdated returns the timestamp of the newest revision, or -1
func (s *Store) LastUpdated() (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var ts sql.NullInt64
	if err := s.db.Get(&ts, "SELECT MAX(timeStamp) FROM revisionHistory"); err != nil {
		return 0, fmt.Errorf("failed to get last update: %w", err)
	}
	if !ts.Valid {
		return -1, nil
	}
	return ts.Int64, nil
}

// Revisions lists the revision log, newest first. A limit <= 0 lists everything.
func (s *Store) Revisions(limit int) ([]Revision, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		SELECT _id, action, trackCount, revision, timeStamp
		FROM revisionHistory
		ORDER BY timeStamp DESC, _id DESC
	`
	var args []any
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	revisions := []Revision{}
	if err := s.db.Select(&revisions, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list revisions: %w", err)
	}
	return revisions, nil
}
