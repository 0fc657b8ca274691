package fuzzy

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/franz/crate/internal/store"
)

type fakeSource struct {
	tracks      []store.Track
	lastUpdated int64
	err         error
	reads       int
}

func (f *fakeSource) Tracks(where *store.Where, orderBy ...string) ([]store.Track, error) {
	f.reads++
	return f.tracks, f.err
}

func (f *fakeSource) LastUpdated() (int64, error) {
	return f.lastUpdated, nil
}

func sampleSource() *fakeSource {
	return &fakeSource{
		lastUpdated: 100,
		tracks: []store.Track{
			{ID: 1, Title: "Teardrop", Artist: "Massive Attack", Album: "Mezzanine"},
			{ID: 2, Title: "Angel", Artist: "Massive Attack", Album: "Mezzanine"},
			{ID: 3, Title: "Jóga", Artist: "Björk", Album: "Homogenic"},
			{ID: 4, Title: "Glory Box", Artist: "Portishead", Album: "Dummy"},
			{ID: 5, Title: "Teardrop", Artist: "José González", Album: "Teardrop"},
		},
	}
}

func ids(hits []Hit) []int64 {
	out := make([]int64, len(hits))
	for i, h := range hits {
		out[i] = h.ID
	}
	return out
}

func TestEnsureRebuildsOnChange(t *testing.T) {
	src := sampleSource()
	ix := New(src)
	assert.Zero(t, ix.Len())

	rebuilt, err := ix.Ensure()
	require.NoError(t, err)
	assert.True(t, rebuilt)
	assert.Equal(t, 5, ix.Len())

	rebuilt, err = ix.Ensure()
	require.NoError(t, err)
	assert.False(t, rebuilt)
	assert.Equal(t, 1, src.reads)

	src.lastUpdated = 101
	src.tracks = src.tracks[:2]
	rebuilt, err = ix.Ensure()
	require.NoError(t, err)
	assert.True(t, rebuilt)
	assert.Equal(t, 2, ix.Len())
}

func TestEnsureOnEmptySource(t *testing.T) {
	src := &fakeSource{lastUpdated: -1}
	ix := New(src)

	rebuilt, err := ix.Ensure()
	require.NoError(t, err)
	assert.True(t, rebuilt, "an empty store still counts as newer than never built")
	assert.Empty(t, ix.Search("anything"))
}

func TestEnsureError(t *testing.T) {
	src := sampleSource()
	src.err = errors.New("boom")
	ix := New(src)

	_, err := ix.Ensure()
	require.Error(t, err)

	src.err = nil
	rebuilt, err := ix.Ensure()
	require.NoError(t, err)
	assert.True(t, rebuilt, "a failed build leaves the marker untouched")
}

func TestSearch(t *testing.T) {
	ix := New(sampleSource())
	_, err := ix.Ensure()
	require.NoError(t, err)

	tests := []struct {
		name  string
		query string
		want  []int64
	}{
		{"exact title", "Teardrop", []int64{1, 5}},
		{"typo", "teardorp", []int64{1, 5}},
		{"folded artist", "bjork", []int64{3}},
		{"accent in query", "JÓGA", []int64{3}},
		{"artist and title", "massive angel", []int64{2}},
		{"word of title", "glory", []int64{4}},
		{"no match", "zzzzzz", []int64{}},
		{"empty", "   ", []int64{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hits := ix.Search(tt.query)
			if len(tt.want) == 0 {
				assert.Empty(t, hits)
				return
			}
			assert.Equal(t, tt.want, ids(hits)[:len(tt.want)])
		})
	}
}

func TestSearchPrefersWholeFieldMatch(t *testing.T) {
	ix := New(sampleSource())
	_, err := ix.Ensure()
	require.NoError(t, err)

	hits := ix.Search("massive attack")
	require.Len(t, hits, 2)
	assert.Equal(t, []int64{1, 2}, ids(hits), "equal scores order by id")
	assert.Equal(t, hits[0].Score, hits[1].Score)
}

func TestSearchTrack(t *testing.T) {
	ix := New(sampleSource())
	_, err := ix.Ensure()
	require.NoError(t, err)

	assert.Equal(t, []int64{1}, ids(ix.SearchTrack("Teardrop", "Massive Attack")))
	assert.Equal(t, []int64{5}, ids(ix.SearchTrack("teardrop", "jose gonzalez")))
	assert.Equal(t, []int64{1}, ids(ix.SearchTrack("teardrp", "massive")))
	assert.Empty(t, ix.SearchTrack("Teardrop", "Portishead"))
	assert.Empty(t, ix.SearchTrack("Teardrop", ""))
}

func TestSearchCapsResults(t *testing.T) {
	src := &fakeSource{lastUpdated: 1}
	for i := 1; i <= 80; i++ {
		src.tracks = append(src.tracks, store.Track{ID: int64(i), Title: fmt.Sprintf("Song %d", i), Artist: "Band"})
	}
	ix := New(src)
	_, err := ix.Ensure()
	require.NoError(t, err)

	hits := ix.Search("band")
	require.Len(t, hits, MaxResults)
	assert.Equal(t, int64(1), hits[0].ID)
	assert.Equal(t, int64(MaxResults), hits[MaxResults-1].ID)
}

func TestTermScore(t *testing.T) {
	tests := []struct {
		term, candidate string
		match           bool
	}{
		{"ab", "ab", true},
		{"ab", "ac", false},
		{"abc", "abd", true},
		{"abcde", "abxye", false},
		{"abcdef", "abxyef", true},
		{"abcdef", "abcdefghi", false},
		{"björk", "bjork", true},
	}
	for _, tt := range tests {
		got := termScore(tt.term, tt.candidate) > 0
		assert.Equal(t, tt.match, got, "%s vs %s", tt.term, tt.candidate)
	}
	assert.Equal(t, 1.0, termScore("same", "same"))
	assert.Less(t, termScore("abcd", "abce"), 1.0)
}

func TestMaxEdits(t *testing.T) {
	assert.Equal(t, 0, maxEdits(2))
	assert.Equal(t, 1, maxEdits(3))
	assert.Equal(t, 1, maxEdits(5))
	assert.Equal(t, 2, maxEdits(6))
}
