package store

import "fmt"

func tracksQuery(where *Where, orderBy []string) *Query {
	return &Query{
		Table:  tableTracks,
		Fields: trackFields,
		Where:  where,
		Joins: []Join{
			{Table: tableArtists, On: []On{{Left: "tracks.artistId", Right: "artists._id"}}},
			{Table: tableAlbums, On: []On{{Left: "tracks.albumId", Right: "albums._id"}}},
		},
		OrderBy:            orderBy,
		GroupBy:            []string{"tracks.track", "artists.artist", "albums.album"},
		LastModifiedColumn: "tracks.trackLastModified",
	}
}

// Tracks lists tracks joined to their artist and album, one row per
// (track, artist, album). where may be nil.
func (s *Store) Tracks(where *Where, orderBy ...string) ([]Track, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tracks(where, orderBy)
}

func (s *Store) tracks(where *Where, orderBy []string) ([]Track, error) {
	rows := []Track{}
	if err := s.selectQuery(&rows, tracksQuery(where, orderBy)); err != nil {
		return nil, err
	}
	return rows, nil
}

// TracksCurrentRevision returns the newest track timestamp, or NotFound
func (s *Store) TracksCurrentRevision() (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var rows []struct {
		LastModified int64 `db:"trackLastModified"`
	}
	q := &Query{
		Table:   tableTracks,
		Fields:  []string{"tracks.trackLastModified"},
		OrderBy: []string{"trackLastModified DESC"},
	}
	if err := s.selectQuery(&rows, q); err != nil {
		return 0, err
	}
	if len(rows) == 0 {
		return NotFound, nil
	}
	return rows[0].LastModified, nil
}

// Albums lists titled albums with their credited artist, loved albums included
func (s *Store) Albums(orderBy ...string) ([]Album, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows := []Album{}
	q := &Query{
		Table:  tableAlbums,
		Fields: albumFields,
		Where:  Ne(And, Predicate{Column: "album", Values: []any{""}}),
		Joins: []Join{
			{Table: tableArtists, On: []On{{Left: "albums.albumArtistId", Right: "artists._id"}}},
		},
		OrderBy:            orderBy,
		GroupBy:            []string{"albums.album", "artists.artist", "artists.artistDisambiguation"},
		TypeColumn:         "albums.albumType",
		LastModifiedColumn: "albums.albumLastModified",
	}
	if err := s.selectQuery(&rows, q); err != nil {
		return nil, err
	}
	return rows, nil
}

// Artists lists named artists other than the compilation sentinel
func (s *Store) Artists(orderBy ...string) ([]Artist, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows := []Artist{}
	q := &Query{
		Table:              tableArtists,
		Fields:             artistFields,
		Where:              Ne(And, Predicate{Column: "artist", Values: []any{CompilationArtist, ""}}),
		OrderBy:            orderBy,
		GroupBy:            []string{"artists.artist", "artists.artistDisambiguation"},
		TypeColumn:         "artists.artistType",
		LastModifiedColumn: "artists.artistLastModified",
	}
	if err := s.selectQuery(&rows, q); err != nil {
		return nil, err
	}
	return rows, nil
}

// AlbumArtists lists named album artists other than the compilation sentinel
func (s *Store) AlbumArtists(orderBy ...string) ([]AlbumArtist, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows := []AlbumArtist{}
	q := &Query{
		Table:              tableAlbumArtists,
		Fields:             albumArtistFields,
		Where:              Ne(And, Predicate{Column: "albumArtist", Values: []any{CompilationArtist, ""}}),
		OrderBy:            orderBy,
		GroupBy:            []string{"albumArtists.albumArtist", "albumArtists.albumArtistDisambiguation"},
		LastModifiedColumn: "albumArtists.albumArtistLastModified",
	}
	if err := s.selectQuery(&rows, q); err != nil {
		return nil, err
	}
	return rows, nil
}

// ArtistCurrentRevision returns the artist's last-modified value, or NotFound
func (s *Store) ArtistCurrentRevision(artist, disambiguation string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, err := s.firstArtist(artist, disambiguation, false)
	if err != nil || a == nil {
		return NotFound, err
	}
	return a.LastModified, nil
}

// ArtistAlbums lists the albums an artist contributed to, or nil when the
// artist does not exist
func (s *Store) ArtistAlbums(artist, disambiguation string) ([]Album, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, err := s.firstArtist(artist, disambiguation, true)
	if err != nil || a == nil {
		return nil, err
	}

	rows := []Album{}
	q := &Query{
		Table: tableArtistAlbums,
		Fields: []string{
			"albums._id AS albumId",
			"albums.album",
			"albums.albumArtistId",
			"artists.artist",
			"artists.artistDisambiguation",
			"albums.imagePath",
			"albums.albumLastModified",
			"albums.albumType",
		},
		Where: Eq(And, Predicate{Column: "artistId", Values: []any{a.ID}}),
		Joins: []Join{
			{Table: tableAlbums, On: []On{{Left: "artistAlbums.albumId", Right: "albums._id"}}},
			{Table: tableArtists, On: []On{{Left: "albums.albumArtistId", Right: "artists._id"}}},
		},
		OrderBy:      []string{"album"},
		TypeColumn:   "albums.albumType",
		ExcludeLoved: true,
	}
	if err := s.selectQuery(&rows, q); err != nil {
		return nil, err
	}
	return rows, nil
}

// AlbumCurrentRevision returns the album's last-modified value, or NotFound
func (s *Store) AlbumCurrentRevision(album, albumArtist, disambiguation string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, err := s.firstArtist(albumArtist, disambiguation, false)
	if err != nil || a == nil {
		return NotFound, err
	}

	al, err := s.firstAlbum(album, a.ID, false)
	if err != nil || al == nil {
		return NotFound, err
	}
	return al.LastModified, nil
}

// AlbumTracks lists an album's tracks by position, or nil when the artist
// or album does not exist
func (s *Store) AlbumTracks(album, albumArtist, disambiguation string) ([]Track, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, err := s.firstArtist(albumArtist, disambiguation, true)
	if err != nil || a == nil {
		return nil, err
	}

	al, err := s.firstAlbum(album, a.ID, true)
	if err != nil || al == nil {
		return nil, err
	}

	return s.tracks(Eq(And, Predicate{Column: "albumId", Values: []any{al.ID}}), []string{"albumPos"})
}

// ArtistTracks lists an artist's tracks grouped by album, or nil when the
// artist does not exist
func (s *Store) ArtistTracks(artist, disambiguation string) ([]Track, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, err := s.firstArtist(artist, disambiguation, true)
	if err != nil || a == nil {
		return nil, err
	}

	return s.tracks(Eq(And, Predicate{Column: "artistId", Values: []any{a.ID}}), []string{"albumId"})
}

// firstArtist looks an artist up by name, preferring the default row over
// loved or implicit ones. With defaultOnly, loved and implicit rows are
// skipped. Returns nil when nothing matches.
func (s *Store) firstArtist(name, disambiguation string, defaultOnly bool) (*Artist, error) {
	var rows []Artist
	q := &Query{
		Table:  tableArtists,
		Fields: artistFields,
		Where: Eq(And,
			Predicate{Column: "artist", Values: []any{name}},
			Predicate{Column: "artistDisambiguation", Values: []any{disambiguation}},
		),
		OrderBy: []string{"artistType", "artistId"},
	}
	if defaultOnly {
		q.TypeColumn = "artists.artistType"
		q.ExcludeLoved = true
	}
	if err := s.selectQuery(&rows, q); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return &rows[0], nil
}

// firstAlbum looks an album up by title and credited artist id, preferring
// the default row
func (s *Store) firstAlbum(title string, artistID int64, defaultOnly bool) (*Album, error) {
	var rows []Album
	q := &Query{
		Table:  tableAlbums,
		Fields: albumFields,
		Where: Eq(And,
			Predicate{Column: "album", Values: []any{title}},
			Predicate{Column: "albumArtistId", Values: []any{artistID}},
		),
		Joins: []Join{
			{Table: tableArtists, On: []On{{Left: "albums.albumArtistId", Right: "artists._id"}}},
		},
		OrderBy: []string{"albumType", "albumId"},
	}
	if defaultOnly {
		q.TypeColumn = "albums.albumType"
		q.ExcludeLoved = true
	}
	if err := s.selectQuery(&rows, q); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return &rows[0], nil
}

// Stats returns row counts per table
func (s *Store) Stats() (*Stats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var st Stats
	err := s.db.Get(&st, fmt.Sprintf(`
		SELECT
			(SELECT COUNT(*) FROM artists WHERE artistType = %[1]d) AS artists,
			(SELECT COUNT(*) FROM albumArtists) AS albumArtists,
			(SELECT COUNT(*) FROM albums WHERE albumType = %[1]d) AS albums,
			(SELECT COUNT(*) FROM artistAlbums) AS artistAlbums,
			(SELECT COUNT(*) FROM tracks) AS tracks,
			(SELECT COUNT(*) FROM revisionHistory) AS revisions,
			(SELECT COUNT(*) FROM artists WHERE artistType = %[2]d) AS lovedArtists,
			(SELECT COUNT(*) FROM albums WHERE albumType = %[2]d) AS lovedAlbums
	`, TypeDefault, TypeExplicit))
	if err != nil {
		return nil, fmt.Errorf("failed to get stats: %w", err)
	}
	return &st, nil
}

// Orphans counts DEFAULT albums without tracks and DEFAULT artists that
// neither perform a track nor are credited with an album
func (s *Store) Orphans() (*Orphans, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var o Orphans
	err := s.db.Get(&o, fmt.Sprintf(`
		SELECT
			(SELECT COUNT(*) FROM albums a
			 WHERE a.albumType = %[1]d
			   AND NOT EXISTS (SELECT 1 FROM tracks t WHERE t.albumId = a._id)) AS albums,
			(SELECT COUNT(*) FROM artists r
			 WHERE r.artistType = %[1]d
			   AND NOT EXISTS (SELECT 1 FROM tracks t WHERE t.artistId = r._id)
			   AND NOT EXISTS (SELECT 1 FROM albums a WHERE a.albumArtistId = r._id)) AS artists
	`, TypeDefault))
	if err != nil {
		return nil, fmt.Errorf("failed to count orphans: %w", err)
	}
	return &o, nil
}
