package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/franz/crate/internal/util"
)

func TestCompileDedupeQuery(t *testing.T) {
	q := &Query{
		Table:              "artists",
		Fields:             []string{"artists._id AS artistId", "artists.artist"},
		Where:              Ne(And, Predicate{Column: "artist", Values: []any{"Various Artists", ""}}),
		OrderBy:            []string{"artist desc"},
		GroupBy:            []string{"artists.artist"},
		TypeColumn:         "artists.artistType",
		LastModifiedColumn: "artists.artistLastModified",
		ExcludeLoved:       true,
	}

	sql, args, err := q.Compile()
	require.NoError(t, err)

	want := "SELECT artistId, artist FROM (" +
		"SELECT artists._id AS artistId, artists.artist, " +
		"ROW_NUMBER() OVER (PARTITION BY artists.artist ORDER BY artists.artistLastModified DESC, artists._id ASC) AS dedupe_rank " +
		"FROM artists " +
		"WHERE (artists.artist != ? AND artists.artist != ?) AND artists.artistType != 2 AND artists.artistType != 1" +
		") WHERE dedupe_rank = 1 ORDER BY artist DESC"
	assert.Equal(t, want, sql)
	assert.Equal(t, []any{"Various Artists", ""}, args)
}

func TestCompileWithoutGroupBy(t *testing.T) {
	q := &Query{
		Table:  "tracks",
		Fields: []string{"tracks.track"},
		Where:  Eq(Or, Predicate{Column: "_id", Values: []any{int64(1), int64(2)}}),
		Joins: []Join{
			{Table: "albums", On: []On{{Left: "tracks.albumId", Right: "albums._id"}}},
		},
		OrderBy: []string{"track"},
	}

	sql, args, err := q.Compile()
	require.NoError(t, err)

	assert.NotContains(t, sql, "dedupe_rank", "no dedupe without group-by")
	assert.Contains(t, sql, "INNER JOIN albums ON tracks.albumId = albums._id")
	assert.Contains(t, sql, "WHERE (tracks._id = ? OR tracks._id = ?)")
	assert.Regexp(t, `ORDER BY track$`, sql)
	assert.Len(t, args, 2)
}

func TestCompileGroupByWithoutLastModified(t *testing.T) {
	q := &Query{
		Table:   "albumArtists",
		Fields:  []string{"albumArtists.albumArtist"},
		GroupBy: []string{"albumArtists.albumArtist"},
	}

	sql, _, err := q.Compile()
	require.NoError(t, err)
	assert.Contains(t, sql, "PARTITION BY albumArtists.albumArtist ORDER BY albumArtists._id ASC")
}

func TestCompileTypeFilterWithoutPredicates(t *testing.T) {
	q := &Query{
		Table:      "albums",
		Fields:     []string{"albums.album"},
		TypeColumn: "albums.albumType",
	}

	sql, _, err := q.Compile()
	require.NoError(t, err)
	assert.Contains(t, sql, "WHERE albums.albumType != 2)")
	assert.NotContains(t, sql, "!= 1", "loved rows are only excluded on request")
}

func TestCompileRejectsInvalidInput(t *testing.T) {
	tests := []struct {
		name string
		q    Query
	}{
		{"bad table", Query{Table: "tracks; DROP TABLE tracks", Fields: []string{"track"}}},
		{"no fields", Query{Table: "tracks"}},
		{"bad field", Query{Table: "tracks", Fields: []string{"track FROM x"}}},
		{"bad order", Query{Table: "tracks", Fields: []string{"track"}, OrderBy: []string{"track; --"}}},
		{"unknown sort column", Query{Table: "tracks", Fields: []string{"track"}, OrderBy: []string{"url"}}},
		{"qualified sort column", Query{Table: "tracks", Fields: []string{"tracks.track"}, OrderBy: []string{"tracks.track"}}},
		{"bad group", Query{Table: "tracks", Fields: []string{"track"}, GroupBy: []string{"a b"}}},
		{"bad predicate", Query{Table: "tracks", Fields: []string{"track"}, Where: Eq(And, Predicate{Column: "1=1 OR x", Values: []any{1}})}},
		{"bad connector", Query{Table: "tracks", Fields: []string{"track"}, Where: &Where{Connector: "XOR", Predicates: []Predicate{{Column: "track", Values: []any{"a"}}}}}},
		{"bad join", Query{Table: "tracks", Fields: []string{"track"}, Joins: []Join{{Table: "albums"}}}},
		{"empty values", Query{Table: "tracks", Fields: []string{"track"}, Where: Eq(Or, Predicate{Column: "_id"})}},
		{"one empty values", Query{Table: "tracks", Fields: []string{"track"}, Where: Eq(And, Predicate{Column: "track", Values: []any{"a"}}, Predicate{Column: "_id", Values: []any{}})}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := tt.q.Compile()
			assert.ErrorIs(t, err, util.ErrInvalidQuery)
		})
	}
}

func TestTracksInvalidSort(t *testing.T) {
	store := openTestStore(t)

	_, err := store.Tracks(nil, "track; DROP TABLE tracks")
	assert.ErrorIs(t, err, util.ErrInvalidQuery)
}

func TestTracksEmptyValueSetDoesNotWiden(t *testing.T) {
	store := openTestStore(t)
	addSample(t, store)

	tracks, err := store.Tracks(Eq(Or, Predicate{Column: "_id", Values: nil}))
	assert.ErrorIs(t, err, util.ErrInvalidQuery)
	assert.Empty(t, tracks)
}
