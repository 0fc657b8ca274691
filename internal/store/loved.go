package store

import (
	"fmt"
	"math"

	"github.com/jmoiron/sqlx"
)

// LoveArtists stores EXPLICIT artist rows with an empty disambiguation.
// Missing timestamps default to math.MaxInt64.
func (s *Store) LoveArtists(names []string, lastModifieds []int64) error {
	if len(names) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.transaction(func(tx *sqlx.Tx) error {
		for i, name := range names {
			_, err := tx.Exec(`
				INSERT OR IGNORE INTO artists (artist, artistDisambiguation, artistLastModified, artistType)
				VALUES (?, '', ?, ?)
			`, name, lastModifiedAt(lastModifieds, i), TypeExplicit)
			if err != nil {
				return fmt.Errorf("failed to love artist %q: %w", name, err)
			}
		}
		_, err := s.recordRevisionTx(tx, "", ActionLove)
		return err
	})
}

// UnloveArtist removes a loved artist and reports whether a row was removed
func (s *Store) UnloveArtist(name string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var removed bool
	err := s.transaction(func(tx *sqlx.Tx) error {
		res, err := tx.Exec("DELETE FROM artists WHERE artist = ? AND artistType = ?", name, TypeExplicit)
		if err != nil {
			return fmt.Errorf("failed to unlove artist %q: %w", name, err)
		}
		n, _ := res.RowsAffected()
		if n == 0 {
			return nil
		}
		removed = true
		_, err = s.recordRevisionTx(tx, "", ActionUnlove)
		return err
	})
	return removed, err
}

// IsArtistLoved reports whether an EXPLICIT row exists for the artist
func (s *Store) IsArtistLoved(name string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int
	if err := s.db.Get(&n, "SELECT COUNT(*) FROM artists WHERE artist = ? AND artistType = ?", name, TypeExplicit); err != nil {
		return false, fmt.Errorf("failed to check loved artist: %w", err)
	}
	return n > 0, nil
}

// LoveAlbums stores each album as an EXPLICIT row credited to an IMPLICIT
// artist row, which keeps the album's foreign key satisfied without the
// artist showing up in browse views.
func (s *Store) LoveAlbums(albums []AlbumRef, lastModifieds []int64) error {
	if len(albums) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.transaction(func(tx *sqlx.Tx) error {
		for i, ref := range albums {
			artistID, err := upsertArtist(tx, ref.AlbumArtist, "", math.MaxInt64, TypeImplicit)
			if err != nil {
				return err
			}
			if _, err := upsertAlbum(tx, ref.Title, artistID, "", lastModifiedAt(lastModifieds, i), TypeExplicit); err != nil {
				return err
			}
		}
		_, err := s.recordRevisionTx(tx, "", ActionLove)
		return err
	})
}

// UnloveAlbum removes a loved album. Its implicit artist goes too once no
// album references it.
func (s *Store) UnloveAlbum(ref AlbumRef) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var removed bool
	err := s.transaction(func(tx *sqlx.Tx) error {
		res, err := tx.Exec(`
			DELETE FROM albums
			WHERE album = ? AND albumType = ?
			  AND albumArtistId IN (SELECT _id FROM artists WHERE artist = ? AND artistType = ?)
		`, ref.Title, TypeExplicit, ref.AlbumArtist, TypeImplicit)
		if err != nil {
			return fmt.Errorf("failed to unlove album %q: %w", ref.Title, err)
		}
		n, _ := res.RowsAffected()
		if n == 0 {
			return nil
		}
		removed = true

		_, err = tx.Exec(`
			DELETE FROM artists
			WHERE artist = ? AND artistType = ?
			  AND NOT EXISTS (SELECT 1 FROM albums WHERE albums.albumArtistId = artists._id)
			  AND NOT EXISTS (SELECT 1 FROM tracks WHERE tracks.artistId = artists._id)
			  AND NOT EXISTS (SELECT 1 FROM artistAlbums WHERE artistAlbums.artistId = artists._id)
		`, ref.AlbumArtist, TypeImplicit)
		if err != nil {
			return fmt.Errorf("failed to drop implicit artist %q: %w", ref.AlbumArtist, err)
		}

		_, err = s.recordRevisionTx(tx, "", ActionUnlove)
		return err
	})
	return removed, err
}

// IsAlbumLoved reports whether the album is stored as loved
func (s *Store) IsAlbumLoved(ref AlbumRef) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int
	err := s.db.Get(&n, `
		SELECT COUNT(*) FROM albums
		INNER JOIN artists ON albums.albumArtistId = artists._id
		WHERE albums.album = ? AND albums.albumType = ?
		  AND artists.artist = ? AND artists.artistType = ?
	`, ref.Title, TypeExplicit, ref.AlbumArtist, TypeImplicit)
	if err != nil {
		return false, fmt.Errorf("failed to check loved album: %w", err)
	}
	return n > 0, nil
}

// LovedArtists lists loved artists by name
func (s *Store) LovedArtists() ([]Artist, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows := []Artist{}
	q := &Query{
		Table:   tableArtists,
		Fields:  artistFields,
		Where:   Eq(And, Predicate{Column: "artistType", Values: []any{TypeExplicit}}),
		OrderBy: []string{"artist", "artistId"},
	}
	if err := s.selectQuery(&rows, q); err != nil {
		return nil, err
	}
	return rows, nil
}

// LovedAlbums lists loved albums by title
func (s *Store) LovedAlbums() ([]Album, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows := []Album{}
	q := &Query{
		Table:  tableAlbums,
		Fields: albumFields,
		Where:  Eq(And, Predicate{Column: "albumType", Values: []any{TypeExplicit}}),
		Joins: []Join{
			{Table: tableArtists, On: []On{{Left: "albums.albumArtistId", Right: "artists._id"}}},
		},
		OrderBy: []string{"album", "artist"},
	}
	if err := s.selectQuery(&rows, q); err != nil {
		return nil, err
	}
	return rows, nil
}

func lastModifiedAt(lastModifieds []int64, i int) int64 {
	if i < len(lastModifieds) {
		return lastModifieds[i]
	}
	return math.MaxInt64
}
