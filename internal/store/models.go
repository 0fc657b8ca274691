package store

import "time"

// TrackInput is one resolved track handed to AddTracks
type TrackInput struct {
	Title                     string
	Artist                    string
	ArtistDisambiguation      string
	Album                     string
	AlbumArtist               string
	AlbumArtistDisambiguation string
	Duration                  int64 // milliseconds
	AlbumPos                  int
	URL                       string
	LinkURL                   string
	LastModified              int64 // milliseconds since epoch
	ImagePath                 string
}

// IngestResult summarizes one AddTracks call
type IngestResult struct {
	Tracks       int           // tracks submitted
	TracksAdded  int           // track rows actually inserted
	Compilations int           // compilation groups detected in the batch
	Revision     string        // token appended, empty for an empty batch
	Duration     time.Duration // wall time of the ingest
}

// Track is a row of the tracks view
type Track struct {
	ID                   int64  `db:"trackId" json:"id" yaml:"id"`
	Title                string `db:"track" json:"track" yaml:"track"`
	ArtistID             int64  `db:"artistId" json:"artistId" yaml:"artistId"`
	Artist               string `db:"artist" json:"artist" yaml:"artist"`
	ArtistDisambiguation string `db:"artistDisambiguation" json:"artistDisambiguation,omitempty" yaml:"artistDisambiguation,omitempty"`
	AlbumID              int64  `db:"albumId" json:"albumId" yaml:"albumId"`
	Album                string `db:"album" json:"album" yaml:"album"`
	AlbumArtistID        int64  `db:"albumArtistId" json:"albumArtistId" yaml:"albumArtistId"`
	ImagePath            string `db:"imagePath" json:"imagePath,omitempty" yaml:"imagePath,omitempty"`
	URL                  string `db:"url" json:"url" yaml:"url"`
	Duration             int64  `db:"duration" json:"duration" yaml:"duration"`
	AlbumPos             int    `db:"albumPos" json:"albumPos" yaml:"albumPos"`
	LinkURL              string `db:"linkUrl" json:"linkUrl,omitempty" yaml:"linkUrl,omitempty"`
	LastModified         int64  `db:"trackLastModified" json:"lastModified" yaml:"lastModified"`
}

// Album is a row of the albums view
type Album struct {
	ID                   int64  `db:"albumId" json:"id" yaml:"id"`
	Title                string `db:"album" json:"album" yaml:"album"`
	AlbumArtistID        int64  `db:"albumArtistId" json:"albumArtistId" yaml:"albumArtistId"`
	Artist               string `db:"artist" json:"artist" yaml:"artist"`
	ArtistDisambiguation string `db:"artistDisambiguation" json:"artistDisambiguation,omitempty" yaml:"artistDisambiguation,omitempty"`
	ImagePath            string `db:"imagePath" json:"imagePath,omitempty" yaml:"imagePath,omitempty"`
	LastModified         int64  `db:"albumLastModified" json:"lastModified" yaml:"lastModified"`
	Type                 int    `db:"albumType" json:"type" yaml:"type"`
}

// Artist is a row of the artists view
type Artist struct {
	ID             int64  `db:"artistId" json:"id" yaml:"id"`
	Name           string `db:"artist" json:"artist" yaml:"artist"`
	Disambiguation string `db:"artistDisambiguation" json:"disambiguation,omitempty" yaml:"disambiguation,omitempty"`
	LastModified   int64  `db:"artistLastModified" json:"lastModified" yaml:"lastModified"`
	Type           int    `db:"artistType" json:"type" yaml:"type"`
}

// AlbumArtist is a row of the album artists view
type AlbumArtist struct {
	ID             int64  `db:"albumArtistId" json:"id" yaml:"id"`
	Name           string `db:"albumArtist" json:"albumArtist" yaml:"albumArtist"`
	Disambiguation string `db:"albumArtistDisambiguation" json:"disambiguation,omitempty" yaml:"disambiguation,omitempty"`
	LastModified   int64  `db:"albumArtistLastModified" json:"lastModified" yaml:"lastModified"`
}

// AlbumRef names an album by title and credited artist
type AlbumRef struct {
	Title       string
	AlbumArtist string
}

// Revision is one entry of the revision log
type Revision struct {
	ID         int64          `db:"_id" json:"id" yaml:"id"`
	Action     RevisionAction `db:"action" json:"action" yaml:"action"`
	TrackCount int64          `db:"trackCount" json:"trackCount" yaml:"trackCount"`
	Token      string         `db:"revision" json:"revision" yaml:"revision"`
	Timestamp  int64          `db:"timeStamp" json:"timeStamp" yaml:"timeStamp"`
}

// Stats holds row counts per table
type Stats struct {
	Artists      int64 `db:"artists" json:"artists" yaml:"artists"`
	AlbumArtists int64 `db:"albumArtists" json:"albumArtists" yaml:"albumArtists"`
	Albums       int64 `db:"albums" json:"albums" yaml:"albums"`
	ArtistAlbums int64 `db:"artistAlbums" json:"artistAlbums" yaml:"artistAlbums"`
	Tracks       int64 `db:"tracks" json:"tracks" yaml:"tracks"`
	Revisions    int64 `db:"revisions" json:"revisions" yaml:"revisions"`
	LovedArtists int64 `db:"lovedArtists" json:"lovedArtists" yaml:"lovedArtists"`
	LovedAlbums  int64 `db:"lovedAlbums" json:"lovedAlbums" yaml:"lovedAlbums"`
}

// Orphans counts DEFAULT parent rows left without dependents, which an
// interrupted ingest can produce
type Orphans struct {
	Albums  int64 `db:"albums" json:"albums" yaml:"albums"`
	Artists int64 `db:"artists" json:"artists" yaml:"artists"`
}

// Field lists of the read views. Output names must match the db tags above.
var (
	trackFields = []string{
		"tracks._id AS trackId",
		"tracks.track",
		"tracks.artistId",
		"artists.artist",
		"artists.artistDisambiguation",
		"tracks.albumId",
		"albums.album",
		"albums.albumArtistId",
		"albums.imagePath",
		"tracks.url",
		"tracks.duration",
		"tracks.albumPos",
		"tracks.linkUrl",
		"tracks.trackLastModified",
	}

	albumFields = []string{
		"albums._id AS albumId",
		"albums.album",
		"albums.albumArtistId",
		"artists.artist",
		"artists.artistDisambiguation",
		"albums.imagePath",
		"albums.albumLastModified",
		"albums.albumType",
	}

	artistFields = []string{
		"artists._id AS artistId",
		"artists.artist",
		"artists.artistDisambiguation",
		"artists.artistLastModified",
		"artists.artistType",
	}

	albumArtistFields = []string{
		"albumArtists._id AS albumArtistId",
		"albumArtists.albumArtist",
		"albumArtists.albumArtistDisambiguation",
		"albumArtists.albumArtistLastModified",
	}
)
