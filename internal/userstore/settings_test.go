package userstore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/franz/crate/internal/store"
)

func TestSettings(t *testing.T) {
	s := openTestStore(t)

	value, err := s.GetSetting("missing")
	require.NoError(t, err)
	assert.Empty(t, value)

	require.NoError(t, s.SetSetting("k", "v1"))
	require.NoError(t, s.SetSetting("k", "v2"))

	value, err = s.GetSetting("k")
	require.NoError(t, err)
	assert.Equal(t, "v2", value)

	require.NoError(t, s.DeleteSetting("k"))
	value, err = s.GetSetting("k")
	require.NoError(t, err)
	assert.Empty(t, value)
}

func TestCollectionMarker(t *testing.T) {
	s := openTestStore(t)
	var _ store.MarkerSource = s

	ms, err := s.LastCollectionUpdate("local")
	require.NoError(t, err)
	assert.Zero(t, ms)

	require.NoError(t, s.SetLastCollectionUpdate("local", 1234567))
	ms, err = s.LastCollectionUpdate("local")
	require.NoError(t, err)
	assert.Equal(t, int64(1234567), ms)

	raw, err := s.GetSetting(store.MarkerKey("local"))
	require.NoError(t, err)
	assert.Equal(t, "1234567", raw)

	require.NoError(t, s.SetSetting(store.MarkerKey("bad"), "soon"))
	_, err = s.LastCollectionUpdate("bad")
	assert.Error(t, err)
}
