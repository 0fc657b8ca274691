package collection

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/franz/crate/internal/report"
	"github.com/franz/crate/internal/store"
	"github.com/franz/crate/internal/userstore"
	"github.com/franz/crate/internal/util"
)

type testEnv struct {
	dir     string
	users   *userstore.Store
	logger  *report.EventLogger
	manager *Manager
}

func steppingClock() func() time.Time {
	ms := int64(1_700_000_000_000)
	return func() time.Time {
		ms++
		return time.UnixMilli(ms)
	}
}

func newEnv(t *testing.T) *testEnv {
	t.Helper()
	dir := t.TempDir()

	users, err := userstore.Open(filepath.Join(dir, "user.db"))
	require.NoError(t, err)
	t.Cleanup(func() { users.Close() })

	logger, err := report.NewEventLogger(filepath.Join(dir, "events"), report.LevelDebug)
	require.NoError(t, err)
	t.Cleanup(func() { logger.Close() })

	env := &testEnv{dir: dir, users: users, logger: logger}
	env.manager = env.newManager()
	t.Cleanup(func() { env.manager.Close() })
	return env
}

func (e *testEnv) newManager() *Manager {
	return NewManager(&Config{
		DataDir: filepath.Join(e.dir, "collections"),
		Markers: e.users,
		Logger:  e.logger,
		Now:     steppingClock(),
	})
}

func sampleTracks() []store.TrackInput {
	return []store.TrackInput{
		{Title: "Teardrop", Artist: "Massive Attack", Album: "Mezzanine", AlbumArtist: "Massive Attack", AlbumPos: 3, LastModified: 100},
		{Title: "Angel", Artist: "Massive Attack", Album: "Mezzanine", AlbumArtist: "Massive Attack", AlbumPos: 1, LastModified: 100},
		{Title: "Jóga", Artist: "Björk", Album: "Homogenic", AlbumArtist: "Björk", AlbumPos: 2, LastModified: 200},
	}
}

func TestManagerOpen(t *testing.T) {
	env := newEnv(t)
	ctx := context.Background()

	c, err := env.manager.Open(ctx, "local")
	require.NoError(t, err)
	assert.Equal(t, "local", c.ID())
	assert.False(t, c.Initialized())
	assert.FileExists(t, filepath.Join(env.dir, "collections", "local"+store.FileSuffix))

	again, err := env.manager.Open(ctx, "local")
	require.NoError(t, err)
	assert.Same(t, c, again)
	assert.Same(t, c, env.manager.Get("local"))
	assert.Nil(t, env.manager.Get("other"))

	_, err = env.manager.Open(ctx, "remote-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"local", "remote-1"}, env.manager.IDs())
}

func TestManagerRejectsBadIDs(t *testing.T) {
	env := newEnv(t)

	for _, id := range []string{"", "../escape", "a/b", "-x", "with space"} {
		_, err := env.manager.Open(context.Background(), id)
		assert.ErrorIs(t, err, util.ErrInvalidConfig, id)
	}
}

func TestManagerDiscover(t *testing.T) {
	env := newEnv(t)
	ctx := context.Background()

	ids, err := env.manager.Discover()
	require.NoError(t, err)
	assert.Empty(t, ids, "missing data dir is not an error")

	_, err = env.manager.Open(ctx, "b")
	require.NoError(t, err)
	_, err = env.manager.Open(ctx, "a")
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(env.dir, "collections", "notes.txt"), []byte("x"), 0644))
	require.NoError(t, env.manager.Close())
	assert.Empty(t, env.manager.IDs())

	ids, err = env.manager.Discover()
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, ids)

	require.NoError(t, env.manager.OpenAll(ctx))
	assert.Equal(t, []string{"a", "b"}, env.manager.IDs())
}

func TestAddTracks(t *testing.T) {
	env := newEnv(t)
	c, err := env.manager.Open(context.Background(), "local")
	require.NoError(t, err)

	res, err := c.AddTracks(sampleTracks())
	require.NoError(t, err)
	assert.Equal(t, 3, res.TracksAdded)
	assert.NotEmpty(t, res.Revision)
	assert.True(t, c.Initialized())
	assert.Equal(t, 3, c.Index().Len(), "index follows the ingest")

	last, err := c.Store().LastUpdated()
	require.NoError(t, err)
	marker, err := env.users.LastCollectionUpdate("local")
	require.NoError(t, err)
	assert.Equal(t, last, marker)

	empty, err := c.AddTracks(nil)
	require.NoError(t, err)
	assert.Equal(t, store.NoRevision, empty.Revision)

	env.logger.Close()
	data, err := os.ReadFile(env.logger.Path())
	require.NoError(t, err)
	assert.Contains(t, string(data), `"event":"ingest"`)
	assert.Equal(t, 1, strings.Count(string(data), `"event":"ingest"`))
}

func TestEmptyIngestInitializes(t *testing.T) {
	env := newEnv(t)
	c, err := env.manager.Open(context.Background(), "local")
	require.NoError(t, err)
	require.False(t, c.Initialized())

	res, err := c.AddTracks([]store.TrackInput{})
	require.NoError(t, err)
	assert.Equal(t, store.NoRevision, res.Revision)
	assert.True(t, c.Initialized())
	assert.Zero(t, c.Index().Len())

	marker, err := env.users.LastCollectionUpdate("local")
	require.NoError(t, err)
	assert.Zero(t, marker, "empty batch leaves the marker alone")
}

func TestSearch(t *testing.T) {
	env := newEnv(t)
	c, err := env.manager.Open(context.Background(), "local")
	require.NoError(t, err)
	_, err = c.AddTracks(sampleTracks())
	require.NoError(t, err)

	results, err := c.Search("teardorp")
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "Teardrop", results[0].Title)
	assert.Equal(t, "Mezzanine", results[0].Album)
	assert.Greater(t, results[0].Score, 0.0)

	results, err = c.Search("massive attack")
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Less(t, results[0].ID, results[1].ID)

	results, err = c.SearchTrack("joga", "bjork")
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "Jóga", results[0].Title)

	results, err = c.SearchTrack("joga", "massive attack")
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestWipe(t *testing.T) {
	env := newEnv(t)
	c, err := env.manager.Open(context.Background(), "local")
	require.NoError(t, err)
	_, err = c.AddTracks(sampleTracks())
	require.NoError(t, err)

	revision, err := c.Wipe()
	require.NoError(t, err)
	assert.NotEmpty(t, revision)
	assert.False(t, c.Initialized())
	assert.Zero(t, c.Index().Len())

	results, err := c.Search("teardrop")
	require.NoError(t, err)
	assert.Empty(t, results)

	current, err := c.Store().CurrentRevision()
	require.NoError(t, err)
	assert.Equal(t, revision, current)
}

func TestReopenedCollectionIsInitialized(t *testing.T) {
	env := newEnv(t)
	ctx := context.Background()

	c, err := env.manager.Open(ctx, "local")
	require.NoError(t, err)
	_, err = c.AddTracks(sampleTracks())
	require.NoError(t, err)
	require.NoError(t, env.manager.Close())

	m := env.newManager()
	defer m.Close()
	c, err = m.Open(ctx, "local")
	require.NoError(t, err)
	assert.True(t, c.Initialized())

	results, err := c.Search("angel")
	require.NoError(t, err)
	require.Len(t, results, 1)
}

func TestLoveThroughCollection(t *testing.T) {
	env := newEnv(t)
	c, err := env.manager.Open(context.Background(), "local")
	require.NoError(t, err)
	_, err = c.AddTracks(sampleTracks())
	require.NoError(t, err)

	require.NoError(t, c.LoveArtist("Björk"))
	loved, err := c.Store().IsArtistLoved("Björk")
	require.NoError(t, err)
	assert.True(t, loved)

	ok, err := c.UnloveArtist("Björk")
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = c.UnloveArtist("Björk")
	require.NoError(t, err)
	assert.False(t, ok)

	ref := store.AlbumRef{Title: "Dummy", AlbumArtist: "Portishead"}
	require.NoError(t, c.LoveAlbum(ref))
	loved, err = c.Store().IsAlbumLoved(ref)
	require.NoError(t, err)
	assert.True(t, loved)

	ok, err = c.UnloveAlbum(ref)
	require.NoError(t, err)
	assert.True(t, ok)
}
