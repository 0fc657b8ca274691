package collection

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/franz/crate/internal/fuzzy"
	"github.com/franz/crate/internal/report"
	"github.com/franz/crate/internal/store"
	"github.com/franz/crate/internal/util"
)

// Collection is one opened collection
type Collection struct {
	id          string
	store       *store.Store
	index       *fuzzy.Index
	markers     store.MarkerSource
	logger      *report.EventLogger
	initialized atomic.Bool

	// serializes mutations so the index and marker follow the store in order
	mu sync.Mutex
}

func newCollection(id string, s *store.Store, markers store.MarkerSource, logger *report.EventLogger) (*Collection, error) {
	c := &Collection{
		id:      id,
		store:   s,
		index:   fuzzy.New(s),
		markers: markers,
		logger:  logger,
	}

	newest, err := s.TracksCurrentRevision()
	if err != nil {
		return nil, fmt.Errorf("failed to inspect collection %s: %w", id, err)
	}
	c.initialized.Store(newest != store.NotFound)
	return c, nil
}

// ID returns the collection id
func (c *Collection) ID() string { return c.id }

// Store returns the underlying store
func (c *Collection) Store() *store.Store { return c.store }

// Index returns the fuzzy index
func (c *Collection) Index() *fuzzy.Index { return c.index }

// Initialized reports whether the collection has ever held tracks since it
// was opened or last wiped
func (c *Collection) Initialized() bool { return c.initialized.Load() }

// AddTracks ingests a batch and refreshes the index. Any successful call
// marks the collection initialized; only a non-empty batch touches the
// external marker and the event log.
func (c *Collection) AddTracks(tracks []store.TrackInput) (*store.IngestResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	res, err := c.store.AddTracks(tracks)
	if err != nil {
		c.logger.LogError(report.EventIngest, c.id, err)
		return nil, err
	}
	if _, err := c.index.Ensure(); err != nil {
		return res, fmt.Errorf("failed to refresh index: %w", err)
	}
	c.initialized.Store(true)
	if res.Revision == store.NoRevision {
		return res, nil
	}

	if err := c.writeMarker(); err != nil {
		util.WarnLog("Failed to record last update of %s: %v", c.id, err)
	}

	c.logger.LogIngest(c.id, res.Revision, res.Tracks, res.TracksAdded, res.Duration)
	util.DebugLog("Collection %s: %d/%d tracks added, revision %s", c.id, res.TracksAdded, res.Tracks, res.Revision)
	return res, nil
}

// Wipe empties the collection
func (c *Collection) Wipe() (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	revision, err := c.store.Wipe()
	if err != nil {
		c.logger.LogError(report.EventWipe, c.id, err)
		return "", err
	}
	if _, err := c.index.Ensure(); err != nil {
		return revision, fmt.Errorf("failed to refresh index: %w", err)
	}
	c.initialized.Store(false)

	if err := c.writeMarker(); err != nil {
		util.WarnLog("Failed to record last update of %s: %v", c.id, err)
	}

	c.logger.LogWipe(c.id, revision)
	return revision, nil
}

func (c *Collection) writeMarker() error {
	sink, ok := c.markers.(MarkerSink)
	if !ok {
		return nil
	}
	last, err := c.store.LastUpdated()
	if err != nil {
		return err
	}
	return sink.SetLastCollectionUpdate(c.id, last)
}

// Result is a track with its search score
type Result struct {
	store.Track
	Score float64 `json:"score" yaml:"score"`
}

// Search runs a full-text fuzzy search, best matches first
func (c *Collection) Search(text string) ([]Result, error) {
	if _, err := c.index.Ensure(); err != nil {
		return nil, err
	}
	return c.resolve(c.index.Search(text))
}

// SearchTrack finds tracks matching both title and artist, best matches first
func (c *Collection) SearchTrack(track, artist string) ([]Result, error) {
	if _, err := c.index.Ensure(); err != nil {
		return nil, err
	}
	return c.resolve(c.index.SearchTrack(track, artist))
}

// resolve loads the hit rows and returns them in hit order. Hits whose
// row vanished since the index was built are dropped.
func (c *Collection) resolve(hits []fuzzy.Hit) ([]Result, error) {
	results := []Result{}
	if len(hits) == 0 {
		return results, nil
	}

	ids := make([]any, len(hits))
	for i, h := range hits {
		ids[i] = h.ID
	}
	tracks, err := c.store.Tracks(store.Eq(store.Or, store.Predicate{Column: "_id", Values: ids}))
	if err != nil {
		return nil, err
	}

	byID := make(map[int64]store.Track, len(tracks))
	for _, t := range tracks {
		byID[t.ID] = t
	}
	for _, h := range hits {
		if t, ok := byID[h.ID]; ok {
			results = append(results, Result{Track: t, Score: h.Score})
		}
	}
	return results, nil
}

// LoveArtist marks an artist as loved
func (c *Collection) LoveArtist(name string) error {
	if err := c.store.LoveArtists([]string{name}, []int64{time.Now().UnixMilli()}); err != nil {
		return err
	}
	c.logger.LogLove(c.id, "artist", name, true)
	return nil
}

// UnloveArtist removes an artist from the loved set
func (c *Collection) UnloveArtist(name string) (bool, error) {
	ok, err := c.store.UnloveArtist(name)
	if err != nil || !ok {
		return ok, err
	}
	c.logger.LogLove(c.id, "artist", name, false)
	return true, nil
}

// LoveAlbum marks an album as loved
func (c *Collection) LoveAlbum(ref store.AlbumRef) error {
	if err := c.store.LoveAlbums([]store.AlbumRef{ref}, []int64{time.Now().UnixMilli()}); err != nil {
		return err
	}
	c.logger.LogLove(c.id, "album", ref.Title, true)
	return nil
}

// UnloveAlbum removes an album from the loved set
func (c *Collection) UnloveAlbum(ref store.AlbumRef) (bool, error) {
	ok, err := c.store.UnloveAlbum(ref)
	if err != nil || !ok {
		return ok, err
	}
	c.logger.LogLove(c.id, "album", ref.Title, false)
	return true, nil
}
