package store

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoveAndUnloveArtist(t *testing.T) {
	store := openTestStore(t)

	require.NoError(t, store.LoveArtists([]string{"Fav", "Other"}, []int64{42}))

	loved, err := store.IsArtistLoved("Fav")
	require.NoError(t, err)
	assert.True(t, loved)

	artists, err := store.LovedArtists()
	require.NoError(t, err)
	require.Len(t, artists, 2)
	assert.Equal(t, "Fav", artists[0].Name)
	assert.Equal(t, int64(42), artists[0].LastModified)
	assert.Equal(t, int64(math.MaxInt64), artists[1].LastModified, "missing timestamp defaults to MaxInt64")

	revs, _ := store.Revisions(0)
	require.Len(t, revs, 1)
	assert.Equal(t, ActionLove, revs[0].Action)

	removed, err := store.UnloveArtist("Fav")
	require.NoError(t, err)
	assert.True(t, removed)

	removed, _ = store.UnloveArtist("Fav")
	assert.False(t, removed, "second unlove removes nothing")

	revs, _ = store.Revisions(0)
	require.Len(t, revs, 2, "exactly one UNLOVE revision on top")
	assert.Equal(t, ActionUnlove, revs[0].Action)

	loved, _ = store.IsArtistLoved("Fav")
	assert.False(t, loved)
}

func TestLovedArtistIsNotACollectionArtist(t *testing.T) {
	store := openTestStore(t)

	require.NoError(t, store.LoveArtists([]string{"OnlyLoved"}, nil))

	albums, err := store.ArtistAlbums("OnlyLoved", "")
	require.NoError(t, err)
	assert.Nil(t, albums, "lookups ignore loved rows")
}

func TestLoveAndUnloveAlbum(t *testing.T) {
	store := openTestStore(t)
	ref := AlbumRef{Title: "Loved Album", AlbumArtist: "Someone"}

	require.NoError(t, store.LoveAlbums([]AlbumRef{ref}, []int64{7}))

	loved, err := store.IsAlbumLoved(ref)
	require.NoError(t, err)
	assert.True(t, loved)

	albums, err := store.LovedAlbums()
	require.NoError(t, err)
	require.Len(t, albums, 1)
	assert.Equal(t, "Someone", albums[0].Artist)
	assert.Equal(t, TypeExplicit, albums[0].Type)
	assert.Equal(t, int64(7), albums[0].LastModified)

	// Loving twice does not duplicate rows
	require.NoError(t, store.LoveAlbums([]AlbumRef{ref}, nil))
	stats, _ := store.Stats()
	assert.EqualValues(t, 1, stats.LovedAlbums)

	removed, err := store.UnloveAlbum(ref)
	require.NoError(t, err)
	assert.True(t, removed)

	var implicit int
	require.NoError(t, store.db.Get(&implicit, "SELECT COUNT(*) FROM artists WHERE artistType = ?", TypeImplicit))
	assert.Zero(t, implicit, "the unreferenced implicit artist is dropped")

	loved, _ = store.IsAlbumLoved(ref)
	assert.False(t, loved)
}

func TestUnloveAlbumKeepsSharedImplicitArtist(t *testing.T) {
	store := openTestStore(t)
	first := AlbumRef{Title: "First", AlbumArtist: "Shared"}
	second := AlbumRef{Title: "Second", AlbumArtist: "Shared"}

	require.NoError(t, store.LoveAlbums([]AlbumRef{first, second}, nil))
	_, err := store.UnloveAlbum(first)
	require.NoError(t, err)

	var implicit int
	require.NoError(t, store.db.Get(&implicit, "SELECT COUNT(*) FROM artists WHERE artist = 'Shared' AND artistType = ?", TypeImplicit))
	assert.Equal(t, 1, implicit, "implicit artist stays while Second references it")

	loved, _ := store.IsAlbumLoved(second)
	assert.True(t, loved)
}
