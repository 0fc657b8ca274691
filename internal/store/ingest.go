package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
)

type nameKey struct {
	name           string
	disambiguation string
}

type groupKey struct {
	album       string
	albumArtist string
}

type albumKey struct {
	album    string
	artistID int64
}

var compilationKey = nameKey{name: CompilationArtist}

const (
	upsertArtistSQL = `
		INSERT INTO artists (artist, artistDisambiguation, artistLastModified, artistType)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (artist, artistDisambiguation, artistType) DO UPDATE SET artist = artist
		RETURNING _id`
	selectArtistIDSQL = `
		SELECT _id FROM artists
		WHERE artist = ? AND artistDisambiguation = ? AND artistType = ?`

	upsertAlbumSQL = `
		INSERT INTO albums (album, albumArtistId, imagePath, albumLastModified, albumType)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (album, albumArtistId, albumType) DO UPDATE SET album = album
		RETURNING _id`
	selectAlbumIDSQL = `
		SELECT _id FROM albums
		WHERE album = ? AND albumArtistId = ? AND albumType = ?`

	insertAlbumArtistSQL = `
		INSERT OR IGNORE INTO albumArtists (albumArtist, albumArtistDisambiguation, albumArtistLastModified)
		VALUES (?, ?, ?)`
	insertArtistAlbumSQL = `
		INSERT OR IGNORE INTO artistAlbums (albumId, artistId) VALUES (?, ?)`
	insertTrackSQL = `
		INSERT OR IGNORE INTO tracks (track, artistId, albumId, url, duration, albumPos, linkUrl, trackLastModified)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
)

// batchPlan holds what AddTracks derives from the input before touching the database
type batchPlan struct {
	compilations    map[groupKey]bool
	artistMax       map[nameKey]int64
	albumArtistMax  map[nameKey]int64
	albumMax        map[groupKey]int64 // keyed by (album, effective artist name)
	albumArtistDone map[nameKey]bool
}

func planBatch(tracks []TrackInput) *batchPlan {
	p := &batchPlan{
		compilations:    make(map[groupKey]bool),
		artistMax:       make(map[nameKey]int64),
		albumArtistMax:  make(map[nameKey]int64),
		albumMax:        make(map[groupKey]int64),
		albumArtistDone: make(map[nameKey]bool),
	}

	// Only "one performer" versus "more than one" matters, so stop at two
	performers := make(map[groupKey][]string)
	for _, t := range tracks {
		g := groupKey{album: t.Album, albumArtist: t.AlbumArtist}
		seen := performers[g]
		if len(seen) >= 2 {
			continue
		}
		if len(seen) == 0 || seen[0] != t.Artist {
			performers[g] = append(seen, t.Artist)
		}
	}
	for g, seen := range performers {
		if len(seen) >= 2 {
			p.compilations[g] = true
		}
	}

	for _, t := range tracks {
		if p.isCompilation(t) {
			raiseMax(p.artistMax, compilationKey, t.LastModified)
		}
		raiseMax(p.artistMax, nameKey{t.Artist, t.ArtistDisambiguation}, t.LastModified)
		raiseMax(p.albumArtistMax, nameKey{t.AlbumArtist, t.AlbumArtistDisambiguation}, t.LastModified)

		eff := p.effectiveArtist(t)
		// artist names are unique per disambiguation among DEFAULT rows
		k := groupKey{album: t.Album, albumArtist: eff.name + "\x00" + eff.disambiguation}
		raiseMax(p.albumMax, k, t.LastModified)
	}

	return p
}

func (p *batchPlan) isCompilation(t TrackInput) bool {
	return p.compilations[groupKey{album: t.Album, albumArtist: t.AlbumArtist}]
}

// effectiveArtist is the artist an album row is credited to
func (p *batchPlan) effectiveArtist(t TrackInput) nameKey {
	if p.isCompilation(t) {
		return compilationKey
	}
	return nameKey{t.Artist, t.ArtistDisambiguation}
}

func (p *batchPlan) albumMaxFor(t TrackInput) int64 {
	eff := p.effectiveArtist(t)
	return p.albumMax[groupKey{album: t.Album, albumArtist: eff.name + "\x00" + eff.disambiguation}]
}

func raiseMax[K comparable](m map[K]int64, k K, v int64) {
	if cur, ok := m[k]; !ok || v > cur {
		m[k] = v
	}
}

// AddTracks ingests a batch of resolved tracks in three committed passes:
// artists and album artists, then albums, then junctions and tracks.
// Natural-key conflicts are ignored, so replaying a batch is safe.
// A non-empty batch appends one ADD_TRACKS revision.
func (s *Store) AddTracks(tracks []TrackInput) (*IngestResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	start := time.Now()
	result := &IngestResult{Tracks: len(tracks)}
	if len(tracks) == 0 {
		result.Duration = time.Since(start)
		return result, nil
	}

	plan := planBatch(tracks)
	result.Compilations = len(plan.compilations)

	artistIDs, err := s.ingestArtists(tracks, plan)
	if err != nil {
		return nil, fmt.Errorf("artist pass failed: %w", err)
	}

	albumIDs, err := s.ingestAlbums(tracks, plan, artistIDs)
	if err != nil {
		return nil, fmt.Errorf("album pass failed: %w", err)
	}

	added, err := s.ingestTracks(tracks, plan, artistIDs, albumIDs)
	if err != nil {
		return nil, fmt.Errorf("track pass failed: %w", err)
	}
	result.TracksAdded = added

	token, err := s.recordRevision("", ActionAddTracks)
	if err != nil {
		return nil, err
	}
	result.Revision = token
	result.Duration = time.Since(start)

	return result, nil
}

// ingestArtists is pass 1. It returns the DEFAULT artist ids by name.
func (s *Store) ingestArtists(tracks []TrackInput, plan *batchPlan) (map[nameKey]int64, error) {
	artistIDs := make(map[nameKey]int64)

	err := s.transaction(func(tx *sqlx.Tx) error {
		for _, t := range tracks {
			if plan.isCompilation(t) {
				if err := cacheArtistID(tx, artistIDs, compilationKey, plan.artistMax[compilationKey]); err != nil {
					return err
				}
			}

			k := nameKey{t.Artist, t.ArtistDisambiguation}
			if err := cacheArtistID(tx, artistIDs, k, plan.artistMax[k]); err != nil {
				return err
			}

			ak := nameKey{t.AlbumArtist, t.AlbumArtistDisambiguation}
			if plan.albumArtistDone[ak] {
				continue
			}
			if _, err := tx.Exec(insertAlbumArtistSQL, ak.name, ak.disambiguation, plan.albumArtistMax[ak]); err != nil {
				return fmt.Errorf("failed to insert album artist %q: %w", ak.name, err)
			}
			plan.albumArtistDone[ak] = true
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return artistIDs, nil
}

func cacheArtistID(tx *sqlx.Tx, ids map[nameKey]int64, k nameKey, lastModified int64) error {
	if _, ok := ids[k]; ok {
		return nil
	}
	id, err := upsertArtist(tx, k.name, k.disambiguation, lastModified, TypeDefault)
	if err != nil {
		return err
	}
	ids[k] = id
	return nil
}

// upsertArtist inserts an artist row unless its natural key exists and
// returns the id of the stored row. The stored row is never modified.
func upsertArtist(tx *sqlx.Tx, name, disambiguation string, lastModified int64, artistType int) (int64, error) {
	var id int64
	err := tx.Get(&id, upsertArtistSQL, name, disambiguation, lastModified, artistType)
	if errors.Is(err, sql.ErrNoRows) {
		err = tx.Get(&id, selectArtistIDSQL, name, disambiguation, artistType)
	}
	if err != nil {
		return 0, fmt.Errorf("failed to upsert artist %q: %w", name, err)
	}
	return id, nil
}

// ingestAlbums is pass 2. It returns album ids by (title, credited artist id).
func (s *Store) ingestAlbums(tracks []TrackInput, plan *batchPlan, artistIDs map[nameKey]int64) (map[albumKey]int64, error) {
	albumIDs := make(map[albumKey]int64)

	err := s.transaction(func(tx *sqlx.Tx) error {
		for _, t := range tracks {
			eff := plan.effectiveArtist(t)
			artistID, ok := artistIDs[eff]
			if !ok {
				return fmt.Errorf("no artist id cached for %q", eff.name)
			}

			k := albumKey{album: t.Album, artistID: artistID}
			if _, ok := albumIDs[k]; ok {
				continue
			}
			id, err := upsertAlbum(tx, t.Album, artistID, t.ImagePath, plan.albumMaxFor(t), TypeDefault)
			if err != nil {
				return err
			}
			albumIDs[k] = id
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return albumIDs, nil
}

func upsertAlbum(tx *sqlx.Tx, title string, artistID int64, imagePath string, lastModified int64, albumType int) (int64, error) {
	var id int64
	err := tx.Get(&id, upsertAlbumSQL, title, artistID, imagePath, lastModified, albumType)
	if errors.Is(err, sql.ErrNoRows) {
		err = tx.Get(&id, selectAlbumIDSQL, title, artistID, albumType)
	}
	if err != nil {
		return 0, fmt.Errorf("failed to upsert album %q: %w", title, err)
	}
	return id, nil
}

// ingestTracks is pass 3. It returns the number of track rows inserted.
func (s *Store) ingestTracks(tracks []TrackInput, plan *batchPlan, artistIDs map[nameKey]int64, albumIDs map[albumKey]int64) (int, error) {
	added := 0

	err := s.transaction(func(tx *sqlx.Tx) error {
		junction, err := tx.Preparex(insertArtistAlbumSQL)
		if err != nil {
			return fmt.Errorf("failed to prepare junction insert: %w", err)
		}
		defer junction.Close()

		insert, err := tx.Preparex(insertTrackSQL)
		if err != nil {
			return fmt.Errorf("failed to prepare track insert: %w", err)
		}
		defer insert.Close()

		for _, t := range tracks {
			artistID, ok := artistIDs[nameKey{t.Artist, t.ArtistDisambiguation}]
			if !ok {
				return fmt.Errorf("no artist id cached for %q", t.Artist)
			}
			creditedID, ok := artistIDs[plan.effectiveArtist(t)]
			if !ok {
				return fmt.Errorf("no artist id cached for album %q", t.Album)
			}
			albumID, ok := albumIDs[albumKey{album: t.Album, artistID: creditedID}]
			if !ok {
				return fmt.Errorf("no album id cached for %q", t.Album)
			}

			if _, err := junction.Exec(albumID, artistID); err != nil {
				return fmt.Errorf("failed to link artist %q to album %q: %w", t.Artist, t.Album, err)
			}

			res, err := insert.Exec(t.Title, artistID, albumID, t.URL, t.Duration, t.AlbumPos, t.LinkURL, t.LastModified)
			if err != nil {
				return fmt.Errorf("failed to insert track %q: %w", t.Title, err)
			}
			if n, err := res.RowsAffected(); err == nil {
				added += int(n)
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return added, nil
}

// Wipe drops and recreates every content table and appends a WIPE revision
func (s *Store) Wipe() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var token string
	err := s.transaction(func(tx *sqlx.Tx) error {
		var err error
		token, err = s.wipeTx(tx)
		return err
	})
	if err != nil {
		return "", fmt.Errorf("failed to wipe collection: %w", err)
	}
	return token, nil
}

func (s *Store) wipeTx(tx *sqlx.Tx) (string, error) {
	for i := len(contentTables) - 1; i >= 0; i-- {
		if _, err := tx.Exec("DROP TABLE IF EXISTS " + contentTables[i].name); err != nil {
			return "", fmt.Errorf("failed to drop %s: %w", contentTables[i].name, err)
		}
	}
	for _, ddl := range contentTables {
		if _, err := tx.Exec(ddl.create); err != nil {
			return "", fmt.Errorf("failed to create %s: %w", ddl.name, err)
		}
	}
	return s.recordRevisionTx(tx, "", ActionWipe)
}
