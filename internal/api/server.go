// Package api serves collections read-only over HTTP.
package api

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cast"

	"github.com/franz/crate/internal/collection"
	"github.com/franz/crate/internal/userstore"
	"github.com/franz/crate/internal/util"
)

// DefaultHistoryLimit caps /search-history when no limit is given
const DefaultHistoryLimit = 20

type ctxKey struct{}

// Handler holds what the routes read from
type Handler struct {
	Manager *collection.Manager
	Users   *userstore.Store // optional
}

// New returns the routed API. users may be nil, which disables search
// history.
func New(manager *collection.Manager, users *userstore.Store) http.Handler {
	h := &Handler{Manager: manager, Users: users}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(instrument)

	h.RegisterRoutes(r)
	return r
}

// RegisterRoutes mounts every endpoint on r
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/collections", h.ListCollections)
	r.Get("/search-history", h.SearchHistory)

	r.Route("/collections/{id}", func(r chi.Router) {
		r.Use(h.withCollection)

		r.Get("/revision", h.Revision)
		r.Get("/tracks", h.Tracks)
		r.Get("/albums", h.Albums)
		r.Get("/artists", h.Artists)
		r.Get("/album-artists", h.AlbumArtists)
		r.Get("/artists/{artist}/albums", h.ArtistAlbums)
		r.Get("/artists/{artist}/tracks", h.ArtistTracks)
		r.Get("/albums/{album}/tracks", h.AlbumTracks)
		r.Get("/search", h.Search)
	})
}

func (h *Handler) withCollection(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		c := h.Manager.Get(id)
		if c == nil {
			writeError(w, http.StatusNotFound, "unknown collection "+id)
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKey{}, c)))
	})
}

func collectionFrom(r *http.Request) *collection.Collection {
	return r.Context().Value(ctxKey{}).(*collection.Collection)
}

// CollectionSummary is one entry of /collections
type CollectionSummary struct {
	ID          string `json:"id"`
	Revision    string `json:"revision"`
	LastUpdated int64  `json:"lastUpdated"`
	Initialized bool   `json:"initialized"`
}

// ListCollections serves GET /collections
func (h *Handler) ListCollections(w http.ResponseWriter, r *http.Request) {
	out := []CollectionSummary{}
	for _, id := range h.Manager.IDs() {
		c := h.Manager.Get(id)
		if c == nil {
			continue
		}
		rev, err := c.Store().CurrentRevision()
		if err != nil {
			writeStoreError(w, err)
			return
		}
		last, err := c.Store().LastUpdated()
		if err != nil {
			writeStoreError(w, err)
			return
		}
		out = append(out, CollectionSummary{ID: id, Revision: rev, LastUpdated: last, Initialized: c.Initialized()})
	}
	writeJSON(w, http.StatusOK, out)
}

// RevisionInfo is the body of /collections/{id}/revision
type RevisionInfo struct {
	Revision       string `json:"revision"`
	LastUpdated    int64  `json:"lastUpdated"`
	TracksRevision int64  `json:"tracksRevision"`
}

// Revision serves GET /collections/{id}/revision
func (h *Handler) Revision(w http.ResponseWriter, r *http.Request) {
	s := collectionFrom(r).Store()

	var info RevisionInfo
	var err error
	if info.Revision, err = s.CurrentRevision(); err != nil {
		writeStoreError(w, err)
		return
	}
	if info.LastUpdated, err = s.LastUpdated(); err != nil {
		writeStoreError(w, err)
		return
	}
	if info.TracksRevision, err = s.TracksCurrentRevision(); err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, info)
}

// Tracks serves GET /collections/{id}/tracks, sorted by ?sort=
func (h *Handler) Tracks(w http.ResponseWriter, r *http.Request) {
	rows, err := collectionFrom(r).Store().Tracks(nil, sortParam(r)...)
	respond(w, rows, err)
}

// Albums serves GET /collections/{id}/albums
func (h *Handler) Albums(w http.ResponseWriter, r *http.Request) {
	rows, err := collectionFrom(r).Store().Albums(sortParam(r)...)
	respond(w, rows, err)
}

// Artists serves GET /collections/{id}/artists
func (h *Handler) Artists(w http.ResponseWriter, r *http.Request) {
	rows, err := collectionFrom(r).Store().Artists(sortParam(r)...)
	respond(w, rows, err)
}

// AlbumArtists serves GET /collections/{id}/album-artists
func (h *Handler) AlbumArtists(w http.ResponseWriter, r *http.Request) {
	rows, err := collectionFrom(r).Store().AlbumArtists(sortParam(r)...)
	respond(w, rows, err)
}

// ArtistAlbums serves GET /collections/{id}/artists/{artist}/albums
func (h *Handler) ArtistAlbums(w http.ResponseWriter, r *http.Request) {
	artist := pathParam(r, "artist")
	rows, err := collectionFrom(r).Store().ArtistAlbums(artist, r.URL.Query().Get("disambiguation"))
	if err == nil && rows == nil {
		writeError(w, http.StatusNotFound, "unknown artist "+artist)
		return
	}
	respond(w, rows, err)
}

// ArtistTracks serves GET /collections/{id}/artists/{artist}/tracks
func (h *Handler) ArtistTracks(w http.ResponseWriter, r *http.Request) {
	artist := pathParam(r, "artist")
	rows, err := collectionFrom(r).Store().ArtistTracks(artist, r.URL.Query().Get("disambiguation"))
	if err == nil && rows == nil {
		writeError(w, http.StatusNotFound, "unknown artist "+artist)
		return
	}
	respond(w, rows, err)
}

// AlbumTracks serves GET /collections/{id}/albums/{album}/tracks. The
// album artist comes from ?artist=.
func (h *Handler) AlbumTracks(w http.ResponseWriter, r *http.Request) {
	album := pathParam(r, "album")
	q := r.URL.Query()
	rows, err := collectionFrom(r).Store().AlbumTracks(album, q.Get("artist"), q.Get("disambiguation"))
	if err == nil && rows == nil {
		writeError(w, http.StatusNotFound, "unknown album "+album)
		return
	}
	respond(w, rows, err)
}

// Search runs a full-text search with ?q=, or a title and artist search
// with ?track=&artist=
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	c := collectionFrom(r)
	q := r.URL.Query()

	var (
		results []collection.Result
		err     error
		query   string
	)
	if track := strings.TrimSpace(q.Get("track")); track != "" {
		query = track
		results, err = c.SearchTrack(track, q.Get("artist"))
	} else {
		query = strings.TrimSpace(q.Get("q"))
		if query == "" {
			writeError(w, http.StatusBadRequest, "missing query")
			return
		}
		results, err = c.Search(query)
	}
	if err != nil {
		writeStoreError(w, err)
		return
	}

	if h.Users != nil {
		if err := h.Users.AddSearchHistory(query); err != nil {
			util.WarnLog("Failed to record search history: %v", err)
		}
	}
	SearchResults.WithLabelValues(c.ID()).Observe(float64(len(results)))
	writeJSON(w, http.StatusOK, results)
}

// SearchHistory serves GET /search-history, newest first, capped by ?limit=
func (h *Handler) SearchHistory(w http.ResponseWriter, r *http.Request) {
	if h.Users == nil {
		writeJSON(w, http.StatusOK, []string{})
		return
	}

	limit := DefaultHistoryLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := cast.ToIntE(raw)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "bad limit "+raw)
			return
		}
		limit = n
	}

	entries, err := h.Users.SearchHistory(r.URL.Query().Get("prefix"), limit)
	respond(w, entries, err)
}

// sortParam splits ?sort=a,b DESC into order-by terms
func sortParam(r *http.Request) []string {
	raw := r.URL.Query().Get("sort")
	if raw == "" {
		return nil
	}
	var terms []string
	for _, t := range strings.Split(raw, ",") {
		if t = strings.TrimSpace(t); t != "" {
			terms = append(terms, t)
		}
	}
	return terms
}

func pathParam(r *http.Request, name string) string {
	v := chi.URLParam(r, name)
	if unescaped, err := url.PathUnescape(v); err == nil {
		return unescaped
	}
	return v
}

func respond[T any](w http.ResponseWriter, rows T, err error) {
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rows)
}

func writeStoreError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, util.ErrInvalidQuery):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, util.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	default:
		util.ErrorLog("API request failed: %v", err)
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		util.DebugLog("Failed to write response: %v", err)
	}
}
