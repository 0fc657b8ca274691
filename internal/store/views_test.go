package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestViewsOnEmptyStore(t *testing.T) {
	store := openTestStore(t)

	rev, err := store.TracksCurrentRevision()
	require.NoError(t, err)
	assert.Equal(t, NotFound, rev)

	tracks, err := store.Tracks(nil)
	require.NoError(t, err)
	assert.NotNil(t, tracks, "empty list, not nil")
	assert.Empty(t, tracks)

	rev, _ = store.ArtistCurrentRevision("nobody", "")
	assert.Equal(t, NotFound, rev, "unknown artist")
	rev, _ = store.AlbumCurrentRevision("nothing", "nobody", "")
	assert.Equal(t, NotFound, rev, "unknown album")
}

func TestArtistAlbums(t *testing.T) {
	store := openTestStore(t)
	addSample(t, store)

	albums, err := store.ArtistAlbums("A1", "")
	require.NoError(t, err)
	require.Len(t, albums, 1, "A1 contributes to compilation X")
	assert.Equal(t, "X", albums[0].Title)
	assert.Equal(t, CompilationArtist, albums[0].Artist)

	missing, err := store.ArtistAlbums("nobody", "")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestAlbumTracks(t *testing.T) {
	store := openTestStore(t)
	addSample(t, store)

	tracks, err := store.AlbumTracks("X", CompilationArtist, "")
	require.NoError(t, err)
	require.Len(t, tracks, 2)
	assert.Equal(t, "T2", tracks[0].Title, "ordered by position")
	assert.Equal(t, "T1", tracks[1].Title)

	tests := []struct {
		name, album, artist string
	}{
		{"unknown artist", "X", "nobody"},
		{"unknown album", "nothing", CompilationArtist},
		{"album under another artist", "Y", CompilationArtist},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := store.AlbumTracks(tt.album, tt.artist, "")
			require.NoError(t, err)
			assert.Nil(t, got)
		})
	}
}

func TestArtistTracks(t *testing.T) {
	store := openTestStore(t)
	addSample(t, store)

	tracks, err := store.ArtistTracks("B", "")
	require.NoError(t, err)
	require.Len(t, tracks, 1)
	assert.Equal(t, "Solo", tracks[0].Title)

	got, _ := store.ArtistTracks("nobody", "")
	assert.Nil(t, got)
}

func TestCurrentRevisionViews(t *testing.T) {
	store := openTestStore(t)
	addSample(t, store)

	tests := []struct {
		name string
		got  func() (int64, error)
		want int64
	}{
		{"tracks", store.TracksCurrentRevision, 300},
		{"artist", func() (int64, error) { return store.ArtistCurrentRevision("A2", "") }, 200},
		{"compilation artist", func() (int64, error) { return store.ArtistCurrentRevision(CompilationArtist, "") }, 200},
		{"album", func() (int64, error) { return store.AlbumCurrentRevision("X", CompilationArtist, "") }, 200},
		{"single album", func() (int64, error) { return store.AlbumCurrentRevision("Y", "B", "") }, 300},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.got()
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCurrentRevisionPrefersIngestedRows(t *testing.T) {
	store := openTestStore(t)
	require.NoError(t, store.LoveArtists([]string{"A"}, []int64{5}))
	require.NoError(t, store.LoveAlbums([]AlbumRef{{Title: "X", AlbumArtist: "A"}}, []int64{6}))
	_, err := store.AddTracks([]TrackInput{
		{Title: "T", Artist: "A", Album: "X", AlbumArtist: "A", AlbumPos: 1, URL: "file:///x/t.mp3", LastModified: 777},
	})
	require.NoError(t, err)

	rev, err := store.ArtistCurrentRevision("A", "")
	require.NoError(t, err)
	assert.Equal(t, int64(777), rev, "artist revision follows the collection row")

	rev, err = store.AlbumCurrentRevision("X", "A", "")
	require.NoError(t, err)
	assert.Equal(t, int64(777), rev, "album revision follows the collection row")

	tracks, err := store.AlbumTracks("X", "A", "")
	require.NoError(t, err)
	require.Len(t, tracks, 1)
	assert.Equal(t, "T", tracks[0].Title)
}

func TestTracksWhere(t *testing.T) {
	store := openTestStore(t)
	addSample(t, store)

	tracks, err := store.Tracks(Eq(Or, Predicate{Column: "track", Values: []any{"T1", "Solo"}}), "track")
	require.NoError(t, err)
	require.Len(t, tracks, 2)
	assert.Equal(t, "Solo", tracks[0].Title)
	assert.Equal(t, "T1", tracks[1].Title)
	assert.Equal(t, "/y/cover.jpg", tracks[0].ImagePath, "album image on the track row")
	assert.Equal(t, "file:///y/1.mp3", tracks[0].URL)
}

func TestStatsAndOrphans(t *testing.T) {
	store := openTestStore(t)
	addSample(t, store)

	stats, err := store.Stats()
	require.NoError(t, err)
	// A1, A2, B and the compilation sentinel
	assert.EqualValues(t, 4, stats.Artists)
	assert.EqualValues(t, 2, stats.AlbumArtists)
	assert.EqualValues(t, 2, stats.Albums)
	assert.EqualValues(t, 3, stats.ArtistAlbums)
	assert.EqualValues(t, 3, stats.Tracks)

	orphans, err := store.Orphans()
	require.NoError(t, err)
	assert.Zero(t, orphans.Albums, "no orphans after a complete ingest")
	assert.Zero(t, orphans.Artists)

	// What an interrupted ingest leaves behind: a parent without dependents
	store.db.MustExec("INSERT INTO artists (artist, artistDisambiguation, artistLastModified, artistType) VALUES ('Stray', '', 1, 0)")
	orphans, _ = store.Orphans()
	assert.EqualValues(t, 1, orphans.Artists)
}
