// Package fuzzy keeps an in-memory typo-tolerant index over a collection's
// tracks. The index rebuilds itself whenever the collection has changed
// since the last build.
package fuzzy

import (
	"sort"
	"sync"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"

	"github.com/franz/crate/internal/meta"
	"github.com/franz/crate/internal/store"
	"github.com/franz/crate/internal/util"
)

// MaxResults caps every search
const MaxResults = 50

// notBuilt sits below every LastUpdated value, including the empty store's -1
const notBuilt int64 = -2

// Source is what the index reads tracks from
type Source interface {
	Tracks(where *store.Where, orderBy ...string) ([]store.Track, error)
	LastUpdated() (int64, error)
}

// Hit is one search result
type Hit struct {
	ID    int64   `json:"id"`
	Score float64 `json:"score"`
}

type doc struct {
	id          int64
	track       string
	artist      string
	combined    string
	trackWords  []string
	artistWords []string
	allWords    []string
}

// Index is safe for concurrent use
type Index struct {
	mu    sync.RWMutex
	src   Source
	built int64
	docs  []doc
}

// New creates an empty index over src. Nothing is read until Ensure.
func New(src Source) *Index {
	return &Index{src: src, built: notBuilt}
}

// Ensure rebuilds the index when the source changed since the last build
// and reports whether it did.
func (ix *Index) Ensure() (bool, error) {
	lastUpdated, err := ix.src.LastUpdated()
	if err != nil {
		return false, err
	}

	ix.mu.Lock()
	defer ix.mu.Unlock()

	if lastUpdated <= ix.built {
		return false, nil
	}

	tracks, err := ix.src.Tracks(nil)
	if err != nil {
		return false, err
	}

	docs := make([]doc, 0, len(tracks))
	for _, t := range tracks {
		d := doc{
			id:       t.ID,
			track:    meta.Fold(t.Title),
			artist:   meta.Fold(t.Artist),
			combined: meta.Fold(t.Artist + " " + t.Title + " " + t.Album),
		}
		d.trackWords = meta.Words(d.track)
		d.artistWords = meta.Words(d.artist)
		d.allWords = meta.Words(d.combined)
		docs = append(docs, d)
	}

	ix.docs = docs
	ix.built = lastUpdated
	util.DebugLog("Fuzzy index rebuilt: %d tracks", len(docs))
	return true, nil
}

// Len returns the number of indexed tracks
func (ix *Index) Len() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.docs)
}

// Search matches text against the track title, the artist, and all words
// of the track combined. Any of the three may score.
func (ix *Index) Search(text string) []Hit {
	q := meta.Fold(text)
	if q == "" {
		return []Hit{}
	}

	ix.mu.RLock()
	defer ix.mu.RUnlock()

	hits := []Hit{}
	for _, d := range ix.docs {
		score := phraseScore(q, d.track, d.trackWords, false) +
			phraseScore(q, d.artist, d.artistWords, false) +
			phraseScore(q, d.combined, d.allWords, true)
		if score > 0 {
			hits = append(hits, Hit{ID: d.id, Score: score})
		}
	}
	return topHits(hits)
}

// SearchTrack returns tracks whose title matches track and whose artist
// matches artist. Both must match.
func (ix *Index) SearchTrack(track, artist string) []Hit {
	qt, qa := meta.Fold(track), meta.Fold(artist)
	if qt == "" || qa == "" {
		return []Hit{}
	}

	ix.mu.RLock()
	defer ix.mu.RUnlock()

	hits := []Hit{}
	for _, d := range ix.docs {
		ts := phraseScore(qt, d.track, d.trackWords, true)
		if ts == 0 {
			continue
		}
		as := phraseScore(qa, d.artist, d.artistWords, true)
		if as == 0 {
			continue
		}
		hits = append(hits, Hit{ID: d.id, Score: ts + as})
	}
	return topHits(hits)
}

func topHits(hits []Hit) []Hit {
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].ID < hits[j].ID
	})
	if len(hits) > MaxResults {
		hits = hits[:MaxResults]
	}
	return hits
}

// maxEdits is the Levenshtein budget for a term of n runes
func maxEdits(n int) int {
	switch {
	case n < 3:
		return 0
	case n <= 5:
		return 1
	default:
		return 2
	}
}

// termScore scores term against candidate: 1 for an exact match, less per
// edit, 0 outside the edit budget
func termScore(term, candidate string) float64 {
	if term == candidate {
		return 1
	}
	n := utf8.RuneCountInString(term)
	budget := maxEdits(n)
	if budget == 0 {
		return 0
	}
	// Lengths alone can rule the pair out
	if diff := n - utf8.RuneCountInString(candidate); diff > budget || -diff > budget {
		return 0
	}
	d := levenshtein.ComputeDistance(term, candidate)
	if d > budget {
		return 0
	}
	return 1 - float64(d)/float64(n+1)
}

// phraseScore scores a folded phrase against a folded field. A match of the
// whole field scores above any word-by-word match. Word by word, each query
// word takes its best match among the field words; with all set, one
// unmatched query word zeroes the score.
func phraseScore(phrase, field string, fieldWords []string, all bool) float64 {
	if field == "" {
		return 0
	}
	if s := termScore(phrase, field); s > 0 {
		return 1 + s
	}

	words := meta.Words(phrase)
	if len(words) == 0 {
		return 0
	}

	var total float64
	for _, w := range words {
		best := 0.0
		for _, fw := range fieldWords {
			if s := termScore(w, fw); s > best {
				best = s
			}
		}
		if best == 0 && all {
			return 0
		}
		total += best
	}
	return total / float64(len(words))
}

