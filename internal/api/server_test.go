package api

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/franz/crate/internal/collection"
	"github.com/franz/crate/internal/store"
	"github.com/franz/crate/internal/userstore"
)

type fixture struct {
	server  *httptest.Server
	users   *userstore.Store
	manager *collection.Manager
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dir := t.TempDir()

	users, err := userstore.Open(filepath.Join(dir, "user.db"))
	require.NoError(t, err)
	t.Cleanup(func() { users.Close() })

	ms := int64(1_700_000_000_000)
	manager := collection.NewManager(&collection.Config{
		DataDir: filepath.Join(dir, "collections"),
		Markers: users,
		Now: func() time.Time {
			ms++
			return time.UnixMilli(ms)
		},
	})
	t.Cleanup(func() { manager.Close() })

	c, err := manager.Open(context.Background(), "local")
	require.NoError(t, err)
	_, err = c.AddTracks([]store.TrackInput{
		{Title: "Teardrop", Artist: "Massive Attack", Album: "Mezzanine", AlbumArtist: "Massive Attack", AlbumPos: 3, LastModified: 100},
		{Title: "Angel", Artist: "Massive Attack", Album: "Mezzanine", AlbumArtist: "Massive Attack", AlbumPos: 1, LastModified: 100},
		{Title: "Back in Black", Artist: "AC/DC", Album: "Back in Black", AlbumArtist: "AC/DC", AlbumPos: 6, LastModified: 300},
	})
	require.NoError(t, err)

	server := httptest.NewServer(New(manager, users))
	t.Cleanup(server.Close)
	return &fixture{server: server, users: users, manager: manager}
}

func (f *fixture) get(t *testing.T, path string, out any) int {
	t.Helper()
	resp, err := http.Get(f.server.URL + path)
	require.NoError(t, err)
	defer resp.Body.Close()

	if out != nil && resp.StatusCode == http.StatusOK {
		assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func TestListCollections(t *testing.T) {
	f := newFixture(t)

	var out []CollectionSummary
	require.Equal(t, http.StatusOK, f.get(t, "/collections", &out))
	require.Len(t, out, 1)
	assert.Equal(t, "local", out[0].ID)
	assert.NotEmpty(t, out[0].Revision)
	assert.True(t, out[0].Initialized)
}

func TestRevision(t *testing.T) {
	f := newFixture(t)

	var info RevisionInfo
	require.Equal(t, http.StatusOK, f.get(t, "/collections/local/revision", &info))
	assert.NotEmpty(t, info.Revision)
	assert.Greater(t, info.LastUpdated, int64(0))
	assert.Equal(t, int64(300), info.TracksRevision)

	assert.Equal(t, http.StatusNotFound, f.get(t, "/collections/nope/revision", nil))
}

func TestListings(t *testing.T) {
	f := newFixture(t)

	var tracks []store.Track
	require.Equal(t, http.StatusOK, f.get(t, "/collections/local/tracks?sort=track", &tracks))
	require.Len(t, tracks, 3)
	assert.Equal(t, "Angel", tracks[0].Title)

	var albums []store.Album
	require.Equal(t, http.StatusOK, f.get(t, "/collections/local/albums?sort=album%20DESC", &albums))
	require.Len(t, albums, 2)
	assert.Equal(t, "Mezzanine", albums[0].Title)

	var artists []store.Artist
	require.Equal(t, http.StatusOK, f.get(t, "/collections/local/artists", &artists))
	assert.Len(t, artists, 2)

	var albumArtists []store.AlbumArtist
	require.Equal(t, http.StatusOK, f.get(t, "/collections/local/album-artists", &albumArtists))
	assert.Len(t, albumArtists, 2)
}

func TestInvalidSort(t *testing.T) {
	f := newFixture(t)

	for _, path := range []string{
		"/collections/local/tracks?sort=track%3BDROP",
		"/collections/local/albums?sort=nope",
		"/collections/local/artists?sort=artist%20SIDEWAYS",
	} {
		assert.Equal(t, http.StatusBadRequest, f.get(t, path, nil), path)
	}
}

func TestArtistAndAlbumViews(t *testing.T) {
	f := newFixture(t)

	var albums []store.Album
	require.Equal(t, http.StatusOK, f.get(t, "/collections/local/artists/Massive%20Attack/albums", &albums))
	require.Len(t, albums, 1)
	assert.Equal(t, "Mezzanine", albums[0].Title)

	var tracks []store.Track
	require.Equal(t, http.StatusOK, f.get(t, "/collections/local/artists/AC%2FDC/tracks", &tracks))
	require.Len(t, tracks, 1)
	assert.Equal(t, "Back in Black", tracks[0].Title)

	tracks = nil
	require.Equal(t, http.StatusOK, f.get(t, "/collections/local/albums/Mezzanine/tracks?artist=Massive%20Attack", &tracks))
	require.Len(t, tracks, 2)
	assert.Equal(t, []int{1, 3}, []int{tracks[0].AlbumPos, tracks[1].AlbumPos})

	assert.Equal(t, http.StatusNotFound, f.get(t, "/collections/local/artists/Nobody/albums", nil))
	assert.Equal(t, http.StatusNotFound, f.get(t, "/collections/local/artists/Nobody/tracks", nil))
	assert.Equal(t, http.StatusNotFound, f.get(t, "/collections/local/albums/Mezzanine/tracks?artist=Nobody", nil))
}

func TestSearchRecordsHistory(t *testing.T) {
	f := newFixture(t)

	var results []collection.Result
	require.Equal(t, http.StatusOK, f.get(t, "/collections/local/search?q=teardorp", &results))
	require.Len(t, results, 1)
	assert.Equal(t, "Teardrop", results[0].Title)

	results = nil
	require.Equal(t, http.StatusOK, f.get(t, "/collections/local/search?track=angel&artist=massive", &results))
	require.Len(t, results, 1)
	assert.Equal(t, "Angel", results[0].Title)

	assert.Equal(t, http.StatusBadRequest, f.get(t, "/collections/local/search?q=", nil))

	var history []string
	require.Equal(t, http.StatusOK, f.get(t, "/search-history", &history))
	assert.Equal(t, []string{"angel", "teardorp"}, history)

	history = nil
	require.Equal(t, http.StatusOK, f.get(t, "/search-history?prefix=tea&limit=5", &history))
	assert.Equal(t, []string{"teardorp"}, history)

	assert.Equal(t, http.StatusBadRequest, f.get(t, "/search-history?limit=zero", nil))
}

func TestSearchHistoryWithoutUserStore(t *testing.T) {
	f := newFixture(t)
	server := httptest.NewServer(New(f.manager, nil))
	defer server.Close()

	resp, err := http.Get(server.URL + "/search-history")
	require.NoError(t, err)
	defer resp.Body.Close()

	var history []string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&history))
	assert.Empty(t, history)
}

func TestMetrics(t *testing.T) {
	f := newFixture(t)
	f.get(t, "/collections", nil)
	RecordIngest("local", &store.IngestResult{Revision: "r", TracksAdded: 3})

	resp, err := http.Get(f.server.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	body := string(data)

	assert.Contains(t, body, `crate_api_requests_total{endpoint="/collections",method="GET",status_code="200"}`)
	assert.Contains(t, body, `crate_tracks_ingested_total{collection="local"}`)
}
