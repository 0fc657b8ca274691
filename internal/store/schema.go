package store

// Table names
const (
	tableArtists         = "artists"
	tableAlbumArtists    = "albumArtists"
	tableAlbums          = "albums"
	tableArtistAlbums    = "artistAlbums"
	tableTracks          = "tracks"
	tableRevisionHistory = "revisionHistory"
)

const schemaVersionTable = `
CREATE TABLE IF NOT EXISTS schema_version (
  version INTEGER PRIMARY KEY,
  applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
)`

type tableDDL struct {
	name   string
	create string
}

// contentTables are the tables a wipe drops and recreates, parents first.
// Column names keep the camelCase of the persisted format.
var contentTables = []tableDDL{
	{tableArtists, `
CREATE TABLE IF NOT EXISTS artists (
  _id INTEGER PRIMARY KEY AUTOINCREMENT,
  artist TEXT NOT NULL DEFAULT '',
  artistDisambiguation TEXT NOT NULL DEFAULT '',
  artistLastModified INTEGER NOT NULL DEFAULT 0,
  artistType INTEGER NOT NULL DEFAULT 0,
  UNIQUE (artist, artistDisambiguation, artistType) ON CONFLICT IGNORE
)`},
	{tableAlbumArtists, `
CREATE TABLE IF NOT EXISTS albumArtists (
  _id INTEGER PRIMARY KEY AUTOINCREMENT,
  albumArtist TEXT NOT NULL DEFAULT '',
  albumArtistDisambiguation TEXT NOT NULL DEFAULT '',
  albumArtistLastModified INTEGER NOT NULL DEFAULT 0,
  UNIQUE (albumArtist, albumArtistDisambiguation) ON CONFLICT IGNORE
)`},
	{tableAlbums, `
CREATE TABLE IF NOT EXISTS albums (
  _id INTEGER PRIMARY KEY AUTOINCREMENT,
  album TEXT NOT NULL DEFAULT '',
  albumArtistId INTEGER NOT NULL REFERENCES artists(_id),
  imagePath TEXT NOT NULL DEFAULT '',
  albumLastModified INTEGER NOT NULL DEFAULT 0,
  albumType INTEGER NOT NULL DEFAULT 0,
  UNIQUE (album, albumArtistId, albumType) ON CONFLICT IGNORE
)`},
	{tableArtistAlbums, `
CREATE TABLE IF NOT EXISTS artistAlbums (
  _id INTEGER PRIMARY KEY AUTOINCREMENT,
  albumId INTEGER NOT NULL REFERENCES albums(_id),
  artistId INTEGER NOT NULL REFERENCES artists(_id),
  UNIQUE (albumId, artistId) ON CONFLICT IGNORE
)`},
	{tableTracks, `
CREATE TABLE IF NOT EXISTS tracks (
  _id INTEGER PRIMARY KEY AUTOINCREMENT,
  track TEXT NOT NULL DEFAULT '',
  artistId INTEGER NOT NULL REFERENCES artists(_id),
  albumId INTEGER NOT NULL REFERENCES albums(_id),
  url TEXT NOT NULL DEFAULT '',
  duration INTEGER NOT NULL DEFAULT 0,
  albumPos INTEGER NOT NULL DEFAULT 0,
  linkUrl TEXT NOT NULL DEFAULT '',
  trackLastModified INTEGER NOT NULL DEFAULT 0,
  UNIQUE (track, artistId, albumId) ON CONFLICT IGNORE
)`},
}

const createRevisionHistory = `
CREATE TABLE IF NOT EXISTS revisionHistory (
  _id INTEGER PRIMARY KEY AUTOINCREMENT,
  action INTEGER NOT NULL,
  trackCount INTEGER NOT NULL DEFAULT 0,
  revision TEXT NOT NULL DEFAULT '',
  timeStamp INTEGER NOT NULL
)`

const createRevisionIndex = `
CREATE INDEX IF NOT EXISTS idx_revisionHistory_timeStamp ON revisionHistory(timeStamp)`

// Artist and album types
const (
	TypeDefault  = 0 // regular collection row
	TypeExplicit = 1 // loved by the user
	TypeImplicit = 2 // added only so a loved row has a parent
)

// RevisionAction is the kind of mutation a revision entry records
type RevisionAction int

const (
	ActionWipe RevisionAction = iota
	ActionAddTracks
	ActionLove
	ActionUnlove
)

func (a RevisionAction) String() string {
	switch a {
	case ActionWipe:
		return "WIPE"
	case ActionAddTracks:
		return "ADD_TRACKS"
	case ActionLove:
		return "LOVE"
	case ActionUnlove:
		return "UNLOVE"
	default:
		return "UNKNOWN"
	}
}

// MarshalText renders the action name in JSON and YAML output
func (a RevisionAction) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

const (
	// CompilationArtist is the sentinel credited with compilation albums
	CompilationArtist = "Various Artists"

	// NotFound is returned by revision lookups that find nothing
	NotFound int64 = -1

	// NoRevision is the current revision of a store with an empty log
	NoRevision = ""
)

// MarkerKey is the settings key of a collection's external "last updated" marker
func MarkerKey(collectionID string) string {
	return collectionID + "_last_collection_db_update"
}
