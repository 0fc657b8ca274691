package userstore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSearchHistory(t *testing.T) {
	s := openTestStore(t)

	for _, e := range []string{"radiohead", "  ", "rammstein", "bjork", "radiohead"} {
		require.NoError(t, s.AddSearchHistory(e))
	}

	all, err := s.SearchHistory("", 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"radiohead", "bjork", "rammstein"}, all)

	ra, err := s.SearchHistory("ra", 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"radiohead", "rammstein"}, ra)

	limited, err := s.SearchHistory("", 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"radiohead"}, limited)
}

func TestSearchHistoryEscapesWildcards(t *testing.T) {
	s := openTestStore(t)

	require.NoError(t, s.AddSearchHistory("100% pure"))
	require.NoError(t, s.AddSearchHistory("1000 miles"))
	require.NoError(t, s.AddSearchHistory("a_b"))
	require.NoError(t, s.AddSearchHistory("axb"))

	got, err := s.SearchHistory("100%", 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"100% pure"}, got)

	got, err = s.SearchHistory("a_", 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"a_b"}, got)
}

func TestClearSearchHistory(t *testing.T) {
	s := openTestStore(t)
	require.NoError(t, s.AddSearchHistory("x"))
	require.NoError(t, s.ClearSearchHistory())

	got, err := s.SearchHistory("", 0)
	require.NoError(t, err)
	assert.Empty(t, got)
}
