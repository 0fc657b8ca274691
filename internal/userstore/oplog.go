package userstore

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/goccy/go-json"
	"github.com/jmoiron/sqlx"
)

// Operation types recorded by the CLI
const (
	OpLoveArtist     = "love_artist"
	OpUnloveArtist   = "unlove_artist"
	OpLoveAlbum      = "love_album"
	OpUnloveAlbum    = "unlove_album"
	OpLoveTrack      = "love_track"
	OpUnloveTrack    = "unlove_track"
	OpPlaylistStore  = "playlist_store"
	OpPlaylistRename = "playlist_rename"
	OpPlaylistDelete = "playlist_delete"
)

// Op is a pending operation kept until something delivers it
type Op struct {
	ID         int64             `json:"id" yaml:"id"`
	Type       string            `json:"type" yaml:"type"`
	HTTPMethod string            `json:"httpMethod,omitempty" yaml:"httpMethod,omitempty"`
	JSON       string            `json:"json,omitempty" yaml:"json,omitempty"`
	Params     map[string]string `json:"params,omitempty" yaml:"params,omitempty"`
	Timestamp  int64             `json:"timestamp" yaml:"timestamp"`
}

type opRow struct {
	ID         int64  `db:"id"`
	Type       string `db:"type"`
	HTTPMethod string `db:"http_method"`
	JSON       string `db:"json"`
	Params     string `db:"params"`
	Timestamp  int64  `db:"timestamp"`
}

// LogOp appends op and bumps the logged op count. A zero timestamp is
// replaced by the current time. The assigned id is written back to op.
func (s *Store) LogOp(op *Op) error {
	var params string
	if len(op.Params) > 0 {
		b, err := json.Marshal(op.Params)
		if err != nil {
			return fmt.Errorf("failed to encode op params: %w", err)
		}
		params = string(b)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if op.Timestamp == 0 {
		op.Timestamp = s.nowMillis()
	}

	return s.transaction(func(tx *sqlx.Tx) error {
		count, err := loggedOpCountTx(tx)
		if err != nil {
			return err
		}

		res, err := tx.Exec(`
			INSERT INTO op_log (type, http_method, json, params, timestamp)
			VALUES (?, ?, ?, ?, ?)
		`, op.Type, op.HTTPMethod, op.JSON, params, op.Timestamp)
		if err != nil {
			return fmt.Errorf("failed to log op: %w", err)
		}
		op.ID, _ = res.LastInsertId()

		return setLoggedOpCountTx(tx, count+1)
	})
}

// LoggedOps lists logged ops, newest first
func (s *Store) LoggedOps() ([]Op, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var rows []opRow
	if err := s.db.Select(&rows, `
		SELECT id, type, http_method, json, params, timestamp
		FROM op_log ORDER BY timestamp DESC, id DESC
	`); err != nil {
		return nil, fmt.Errorf("failed to list ops: %w", err)
	}

	ops := make([]Op, 0, len(rows))
	for _, r := range rows {
		op := Op{
			ID:         r.ID,
			Type:       r.Type,
			HTTPMethod: r.HTTPMethod,
			JSON:       r.JSON,
			Timestamp:  r.Timestamp,
		}
		if r.Params != "" {
			if err := json.Unmarshal([]byte(r.Params), &op.Params); err != nil {
				return nil, fmt.Errorf("failed to decode params of op %d: %w", r.ID, err)
			}
		}
		ops = append(ops, op)
	}
	return ops, nil
}

// RemoveOps deletes the ops with the given ids and returns how many went
func (s *Store) RemoveOps(ids []int64) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var removed int
	err := s.transaction(func(tx *sqlx.Tx) error {
		query, args, err := sqlx.In("DELETE FROM op_log WHERE id IN (?)", ids)
		if err != nil {
			return fmt.Errorf("failed to build delete: %w", err)
		}
		res, err := tx.Exec(tx.Rebind(query), args...)
		if err != nil {
			return fmt.Errorf("failed to remove ops: %w", err)
		}
		n, _ := res.RowsAffected()
		removed = int(n)

		var remaining int64
		if err := tx.Get(&remaining, "SELECT COUNT(*) FROM op_log"); err != nil {
			return fmt.Errorf("failed to count ops: %w", err)
		}
		return setLoggedOpCountTx(tx, remaining)
	})
	return removed, err
}

// ClearOps deletes every logged op
func (s *Store) ClearOps() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var removed int
	err := s.transaction(func(tx *sqlx.Tx) error {
		res, err := tx.Exec("DELETE FROM op_log")
		if err != nil {
			return fmt.Errorf("failed to clear ops: %w", err)
		}
		n, _ := res.RowsAffected()
		removed = int(n)
		return setLoggedOpCountTx(tx, 0)
	})
	return removed, err
}

// LoggedOpCount returns the stored op count. When none is stored yet it is
// computed from the log and stored.
func (s *Store) LoggedOpCount() (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var count int64
	err := s.transaction(func(tx *sqlx.Tx) error {
		var err error
		count, err = loggedOpCountTx(tx)
		return err
	})
	return count, err
}

// loggedOpCountTx reads the cached count, falling back to counting the
// table and caching the result
func loggedOpCountTx(tx *sqlx.Tx) (int64, error) {
	var cached sql.NullInt64
	err := tx.Get(&cached, "SELECT log_count FROM op_log_info WHERE id = 1")
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("failed to read op count: %w", err)
	}
	if err == nil && cached.Valid {
		return cached.Int64, nil
	}

	var count int64
	if err := tx.Get(&count, "SELECT COUNT(*) FROM op_log"); err != nil {
		return 0, fmt.Errorf("failed to count ops: %w", err)
	}
	if err := setLoggedOpCountTx(tx, count); err != nil {
		return 0, err
	}
	return count, nil
}

func setLoggedOpCountTx(tx *sqlx.Tx, count int64) error {
	_, err := tx.Exec(`
		INSERT INTO op_log_info (id, log_count) VALUES (1, ?)
		ON CONFLICT(id) DO UPDATE SET log_count = excluded.log_count
	`, count)
	if err != nil {
		return fmt.Errorf("failed to store op count: %w", err)
	}
	return nil
}
