package userstore

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/franz/crate/internal/util"
)

// LovedItemsPlaylistID is the reserved playlist holding loved tracks
const LovedItemsPlaylistID = "loved_items_playlist_id"

const lovedItemsPlaylistName = "Loved Tracks"

// Playlist is a named, ordered list of entries
type Playlist struct {
	ID                string  `db:"id" json:"id" yaml:"id"`
	Name              string  `db:"name" json:"name" yaml:"name"`
	CurrentRevision   string  `db:"current_revision" json:"currentRevision,omitempty" yaml:"currentRevision,omitempty"`
	CurrentTrackIndex int     `db:"current_track_index" json:"currentTrackIndex" yaml:"currentTrackIndex"`
	TrackCount        int     `db:"track_count" json:"trackCount" yaml:"trackCount"`
	CreatedAt         int64   `db:"created_at" json:"createdAt" yaml:"createdAt"`
	UpdatedAt         int64   `db:"updated_at" json:"updatedAt" yaml:"updatedAt"`
	Entries           []Entry `db:"-" json:"entries,omitempty" yaml:"entries,omitempty"`
}

// Entry is one track reference in a playlist
type Entry struct {
	EntryID    string `db:"entry_id" json:"entryId" yaml:"entryId"`
	Index      int    `db:"entry_index" json:"index" yaml:"index"`
	Track      string `db:"track" json:"track" yaml:"track"`
	Artist     string `db:"artist" json:"artist" yaml:"artist"`
	Album      string `db:"album" json:"album,omitempty" yaml:"album,omitempty"`
	ResultHint string `db:"result_hint" json:"resultHint,omitempty" yaml:"resultHint,omitempty"`
}

// StorePlaylist saves p and replaces all of its entries, indexed from 0.
// With reverse the entries are stored last to first. Missing playlist and
// entry ids are generated and written back to p.
func (s *Store) StorePlaylist(p *Playlist, reverse bool) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	for i := range p.Entries {
		if p.Entries[i].EntryID == "" {
			p.Entries[i].EntryID = uuid.NewString()
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.nowMillis()
	return s.transaction(func(tx *sqlx.Tx) error {
		_, err := tx.Exec(`
			INSERT INTO playlists (id, name, current_revision, current_track_index, track_count, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				name = excluded.name,
				current_revision = excluded.current_revision,
				current_track_index = excluded.current_track_index,
				track_count = excluded.track_count,
				updated_at = excluded.updated_at
		`, p.ID, p.Name, p.CurrentRevision, p.CurrentTrackIndex, len(p.Entries), now, now)
		if err != nil {
			return fmt.Errorf("failed to store playlist %s: %w", p.ID, err)
		}

		if _, err := tx.Exec("DELETE FROM playlist_entries WHERE playlist_id = ?", p.ID); err != nil {
			return fmt.Errorf("failed to clear playlist entries: %w", err)
		}

		n := len(p.Entries)
		for i := 0; i < n; i++ {
			e := p.Entries[i]
			if reverse {
				e = p.Entries[n-1-i]
			}
			if err := insertEntry(tx, p.ID, i, e); err != nil {
				return err
			}
		}

		p.TrackCount = n
		return nil
	})
}

func insertEntry(tx *sqlx.Tx, playlistID string, index int, e Entry) error {
	_, err := tx.Exec(`
		INSERT INTO playlist_entries (playlist_id, entry_id, entry_index, track, artist, album, result_hint)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, playlistID, e.EntryID, index, e.Track, e.Artist, e.Album, e.ResultHint)
	if err != nil {
		return fmt.Errorf("failed to insert playlist entry %q: %w", e.Track, err)
	}
	return nil
}

// Playlist loads a playlist with its entries, or nil when it does not exist
func (s *Store) Playlist(id string) (*Playlist, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.playlist(id)
}

func (s *Store) playlist(id string) (*Playlist, error) {
	var p Playlist
	err := s.db.Get(&p, `
		SELECT id, name, current_revision, current_track_index, track_count, created_at, updated_at
		FROM playlists WHERE id = ?
	`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get playlist %s: %w", id, err)
	}

	p.Entries = []Entry{}
	err = s.db.Select(&p.Entries, `
		SELECT entry_id, entry_index, track, artist, album, result_hint
		FROM playlist_entries WHERE playlist_id = ?
		ORDER BY entry_index
	`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get playlist entries: %w", err)
	}
	return &p, nil
}

// Playlists lists user playlists without entries. The loved items
// playlist is not included.
func (s *Store) Playlists() ([]Playlist, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	playlists := []Playlist{}
	err := s.db.Select(&playlists, `
		SELECT id, name, current_revision, current_track_index, track_count, created_at, updated_at
		FROM playlists WHERE id != ?
		ORDER BY name, id
	`, LovedItemsPlaylistID)
	if err != nil {
		return nil, fmt.Errorf("failed to list playlists: %w", err)
	}
	return playlists, nil
}

// RenamePlaylist sets a new name and reports whether the playlist exists
func (s *Store) RenamePlaylist(id, name string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.Exec("UPDATE playlists SET name = ?, updated_at = ? WHERE id = ?", name, s.nowMillis(), id)
	if err != nil {
		return false, fmt.Errorf("failed to rename playlist %s: %w", id, err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

// DeletePlaylist removes a playlist and its entries
func (s *Store) DeletePlaylist(id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.Exec("DELETE FROM playlists WHERE id = ?", id)
	if err != nil {
		return false, fmt.Errorf("failed to delete playlist %s: %w", id, err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

// AddEntries appends entries after the current last one.
// Returns util.ErrNotFound when the playlist does not exist.
func (s *Store) AddEntries(playlistID string, entries []Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.transaction(func(tx *sqlx.Tx) error {
		return s.addEntriesTx(tx, playlistID, entries)
	})
}

func (s *Store) addEntriesTx(tx *sqlx.Tx, playlistID string, entries []Entry) error {
	var count int
	err := tx.Get(&count, "SELECT track_count FROM playlists WHERE id = ?", playlistID)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("playlist %s: %w", playlistID, util.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("failed to read track count: %w", err)
	}

	for _, e := range entries {
		if e.EntryID == "" {
			e.EntryID = uuid.NewString()
		}
		if err := insertEntry(tx, playlistID, count, e); err != nil {
			return err
		}
		count++
	}

	_, err = tx.Exec("UPDATE playlists SET track_count = ?, updated_at = ? WHERE id = ?", count, s.nowMillis(), playlistID)
	if err != nil {
		return fmt.Errorf("failed to update track count: %w", err)
	}
	return nil
}

// RemoveEntry deletes one entry and closes the gap in the indices
func (s *Store) RemoveEntry(playlistID, entryID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var removed bool
	err := s.transaction(func(tx *sqlx.Tx) error {
		res, err := tx.Exec("DELETE FROM playlist_entries WHERE playlist_id = ? AND entry_id = ?", playlistID, entryID)
		if err != nil {
			return fmt.Errorf("failed to remove entry %s: %w", entryID, err)
		}
		n, _ := res.RowsAffected()
		if n == 0 {
			return nil
		}
		removed = true
		return s.repackTx(tx, playlistID)
	})
	return removed, err
}

// repackTx renumbers entries from 0 and refreshes the track count
func (s *Store) repackTx(tx *sqlx.Tx, playlistID string) error {
	var ids []int64
	if err := tx.Select(&ids, "SELECT id FROM playlist_entries WHERE playlist_id = ? ORDER BY entry_index, id", playlistID); err != nil {
		return fmt.Errorf("failed to read entries: %w", err)
	}
	for i, id := range ids {
		if _, err := tx.Exec("UPDATE playlist_entries SET entry_index = ? WHERE id = ?", i, id); err != nil {
			return fmt.Errorf("failed to reindex entry: %w", err)
		}
	}
	_, err := tx.Exec("UPDATE playlists SET track_count = ?, updated_at = ? WHERE id = ?", len(ids), s.nowMillis(), playlistID)
	if err != nil {
		return fmt.Errorf("failed to update track count: %w", err)
	}
	return nil
}

// LoveTrack adds the track to the loved items playlist unless it is there already
func (s *Store) LoveTrack(track, artist, album string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var added bool
	err := s.transaction(func(tx *sqlx.Tx) error {
		now := s.nowMillis()
		_, err := tx.Exec(`
			INSERT OR IGNORE INTO playlists (id, name, created_at, updated_at)
			VALUES (?, ?, ?, ?)
		`, LovedItemsPlaylistID, lovedItemsPlaylistName, now, now)
		if err != nil {
			return fmt.Errorf("failed to create loved items playlist: %w", err)
		}

		loved, err := isItemLovedTx(tx, track, artist)
		if err != nil || loved {
			return err
		}
		added = true
		return s.addEntriesTx(tx, LovedItemsPlaylistID, []Entry{{Track: track, Artist: artist, Album: album}})
	})
	return added, err
}

// UnloveTrack removes every loved entry matching track and artist, ignoring case
func (s *Store) UnloveTrack(track, artist string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var removed bool
	err := s.transaction(func(tx *sqlx.Tx) error {
		res, err := tx.Exec(`
			DELETE FROM playlist_entries
			WHERE playlist_id = ? AND track = ? COLLATE NOCASE AND artist = ? COLLATE NOCASE
		`, LovedItemsPlaylistID, track, artist)
		if err != nil {
			return fmt.Errorf("failed to unlove track %q: %w", track, err)
		}
		n, _ := res.RowsAffected()
		if n == 0 {
			return nil
		}
		removed = true
		return s.repackTx(tx, LovedItemsPlaylistID)
	})
	return removed, err
}

// IsItemLoved reports whether a loved entry matches track and artist, ignoring case
func (s *Store) IsItemLoved(track, artist string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var loved bool
	err := s.transaction(func(tx *sqlx.Tx) error {
		var err error
		loved, err = isItemLovedTx(tx, track, artist)
		return err
	})
	return loved, err
}

func isItemLovedTx(tx *sqlx.Tx, track, artist string) (bool, error) {
	var n int
	err := tx.Get(&n, `
		SELECT COUNT(*) FROM playlist_entries
		WHERE playlist_id = ? AND track = ? COLLATE NOCASE AND artist = ? COLLATE NOCASE
	`, LovedItemsPlaylistID, track, artist)
	if err != nil {
		return false, fmt.Errorf("failed to check loved track: %w", err)
	}
	return n > 0, nil
}

// LovedTracks returns the loved items playlist entries in order
func (s *Store) LovedTracks() ([]Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, err := s.playlist(LovedItemsPlaylistID)
	if err != nil || p == nil {
		return []Entry{}, err
	}
	return p.Entries, nil
}
