package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/franz/crate/internal/collection"
	"github.com/franz/crate/internal/store"
	"github.com/franz/crate/internal/util"
)

var (
	tracksCmd = &cobra.Command{
		Use:   "tracks",
		Short: "List tracks",
		Args:  cobra.NoArgs,
		RunE:  runTracks,
	}

	albumsCmd = &cobra.Command{
		Use:   "albums",
		Short: "List albums",
		Args:  cobra.NoArgs,
		RunE:  runAlbums,
	}

	artistsCmd = &cobra.Command{
		Use:   "artists",
		Short: "List artists",
		Args:  cobra.NoArgs,
		RunE:  runArtists,
	}

	albumArtistsCmd = &cobra.Command{
		Use:   "album-artists",
		Short: "List album artists",
		Args:  cobra.NoArgs,
		RunE:  runAlbumArtists,
	}

	artistCmd = &cobra.Command{
		Use:   "artist",
		Short: "Show an artist's albums or tracks",
	}

	artistAlbumsCmd = &cobra.Command{
		Use:   "albums <name>",
		Short: "List the albums credited to an artist",
		Args:  cobra.ExactArgs(1),
		RunE:  runArtistAlbums,
	}

	artistTracksCmd = &cobra.Command{
		Use:   "tracks <name>",
		Short: "List the tracks performed by an artist",
		Args:  cobra.ExactArgs(1),
		RunE:  runArtistTracks,
	}

	albumCmd = &cobra.Command{
		Use:   "album",
		Short: "Show an album's tracks",
	}

	albumTracksCmd = &cobra.Command{
		Use:   "tracks <album>",
		Short: "List the tracks of an album in album order",
		Args:  cobra.ExactArgs(1),
		RunE:  runAlbumTracks,
	}

	searchCmd = &cobra.Command{
		Use:   "search [text]",
		Short: "Fuzzy search the collection",
		Long: `Search tracks by title, artist and album, tolerating typos.

With --track, tracks are matched by title and, when --artist is given, by
artist as well. Queries are added to the search history.`,
		Args: cobra.MaximumNArgs(1),
		RunE: runSearch,
	}
)

func init() {
	for _, c := range []*cobra.Command{tracksCmd, albumsCmd, artistsCmd, albumArtistsCmd} {
		c.Flags().StringSlice("sort", nil, `order by output columns, e.g. --sort "album DESC,track"`)
		rootCmd.AddCommand(c)
	}

	artistCmd.PersistentFlags().String("disambiguation", "", "artist disambiguation")
	artistCmd.AddCommand(artistAlbumsCmd, artistTracksCmd)
	rootCmd.AddCommand(artistCmd)

	albumTracksCmd.Flags().String("artist", "", "album artist (required)")
	albumTracksCmd.Flags().String("disambiguation", "", "album artist disambiguation")
	albumTracksCmd.MarkFlagRequired("artist")
	albumCmd.AddCommand(albumTracksCmd)
	rootCmd.AddCommand(albumCmd)

	searchCmd.Flags().String("track", "", "match this track title")
	searchCmd.Flags().String("artist", "", "match this artist (with --track)")
	rootCmd.AddCommand(searchCmd)
}

// withCollection runs fn against the configured collection
func withCollection(cmd *cobra.Command, fn func(a *app, c *collection.Collection) error) error {
	return withApp(func(a *app) error {
		c, err := a.collection(cmd.Context())
		if err != nil {
			return err
		}
		return fn(a, c)
	})
}

func trackTable(tracks []store.Track) func() *table {
	return func() *table {
		t := &table{header: []string{"#", "TRACK", "ARTIST", "ALBUM", "LENGTH"}}
		for _, tr := range tracks {
			t.add(strconv.Itoa(tr.AlbumPos), tr.Title, tr.Artist, orDash(tr.Album), formatDuration(tr.Duration))
		}
		return t
	}
}

func albumTable(albums []store.Album) func() *table {
	return func() *table {
		t := &table{header: []string{"ALBUM", "ARTIST", "UPDATED"}}
		for _, al := range albums {
			t.add(al.Title, al.Artist, formatTime(al.LastModified))
		}
		return t
	}
}

func artistTable(artists []store.Artist) func() *table {
	return func() *table {
		t := &table{header: []string{"ARTIST", "DISAMBIGUATION", "UPDATED"}}
		for _, ar := range artists {
			t.add(ar.Name, orDash(ar.Disambiguation), formatTime(ar.LastModified))
		}
		return t
	}
}

func sortFlag(cmd *cobra.Command) []string {
	terms, _ := cmd.Flags().GetStringSlice("sort")
	return terms
}

func runTracks(cmd *cobra.Command, args []string) error {
	return withCollection(cmd, func(a *app, c *collection.Collection) error {
		tracks, err := c.Store().Tracks(nil, sortFlag(cmd)...)
		if err != nil {
			return err
		}
		return render(cmd.OutOrStdout(), a.cfg.Output, tracks, trackTable(tracks))
	})
}

func runAlbums(cmd *cobra.Command, args []string) error {
	return withCollection(cmd, func(a *app, c *collection.Collection) error {
		albums, err := c.Store().Albums(sortFlag(cmd)...)
		if err != nil {
			return err
		}
		return render(cmd.OutOrStdout(), a.cfg.Output, albums, albumTable(albums))
	})
}

func runArtists(cmd *cobra.Command, args []string) error {
	return withCollection(cmd, func(a *app, c *collection.Collection) error {
		artists, err := c.Store().Artists(sortFlag(cmd)...)
		if err != nil {
			return err
		}
		return render(cmd.OutOrStdout(), a.cfg.Output, artists, artistTable(artists))
	})
}

func runAlbumArtists(cmd *cobra.Command, args []string) error {
	return withCollection(cmd, func(a *app, c *collection.Collection) error {
		artists, err := c.Store().AlbumArtists(sortFlag(cmd)...)
		if err != nil {
			return err
		}
		return render(cmd.OutOrStdout(), a.cfg.Output, artists, func() *table {
			t := &table{header: []string{"ALBUM ARTIST", "DISAMBIGUATION", "UPDATED"}}
			for _, ar := range artists {
				t.add(ar.Name, orDash(ar.Disambiguation), formatTime(ar.LastModified))
			}
			return t
		})
	})
}

func runArtistAlbums(cmd *cobra.Command, args []string) error {
	disambiguation, _ := cmd.Flags().GetString("disambiguation")
	return withCollection(cmd, func(a *app, c *collection.Collection) error {
		albums, err := c.Store().ArtistAlbums(args[0], disambiguation)
		if err != nil {
			return err
		}
		if albums == nil {
			return fmt.Errorf("%w: artist %q", util.ErrNotFound, args[0])
		}
		return render(cmd.OutOrStdout(), a.cfg.Output, albums, albumTable(albums))
	})
}

func runArtistTracks(cmd *cobra.Command, args []string) error {
	disambiguation, _ := cmd.Flags().GetString("disambiguation")
	return withCollection(cmd, func(a *app, c *collection.Collection) error {
		tracks, err := c.Store().ArtistTracks(args[0], disambiguation)
		if err != nil {
			return err
		}
		if tracks == nil {
			return fmt.Errorf("%w: artist %q", util.ErrNotFound, args[0])
		}
		return render(cmd.OutOrStdout(), a.cfg.Output, tracks, trackTable(tracks))
	})
}

func runAlbumTracks(cmd *cobra.Command, args []string) error {
	artist, _ := cmd.Flags().GetString("artist")
	disambiguation, _ := cmd.Flags().GetString("disambiguation")
	return withCollection(cmd, func(a *app, c *collection.Collection) error {
		tracks, err := c.Store().AlbumTracks(args[0], artist, disambiguation)
		if err != nil {
			return err
		}
		if tracks == nil {
			return fmt.Errorf("%w: album %q by %q", util.ErrNotFound, args[0], artist)
		}
		return render(cmd.OutOrStdout(), a.cfg.Output, tracks, trackTable(tracks))
	})
}

func runSearch(cmd *cobra.Command, args []string) error {
	track, _ := cmd.Flags().GetString("track")
	artist, _ := cmd.Flags().GetString("artist")

	var text string
	if len(args) > 0 {
		text = strings.TrimSpace(args[0])
	}
	track = strings.TrimSpace(track)
	if text == "" && track == "" {
		return fmt.Errorf("%w: give search text or --track", util.ErrInvalidQuery)
	}

	return withCollection(cmd, func(a *app, c *collection.Collection) error {
		var (
			results []collection.Result
			err     error
			query   = text
		)
		if track != "" {
			query = track
			results, err = c.SearchTrack(track, artist)
		} else {
			results, err = c.Search(text)
		}
		if err != nil {
			return err
		}

		if err := a.users.AddSearchHistory(query); err != nil {
			util.WarnLog("Failed to record search history: %v", err)
		}

		return render(cmd.OutOrStdout(), a.cfg.Output, results, func() *table {
			t := &table{header: []string{"SCORE", "TRACK", "ARTIST", "ALBUM"}}
			for _, r := range results {
				t.add(fmt.Sprintf("%.2f", r.Score), r.Title, r.Artist, orDash(r.Album))
			}
			return t
		})
	})
}

var (
	wipeCmd = &cobra.Command{
		Use:   "wipe",
		Short: "Delete every track, album and artist of the collection",
		Long: `Delete all content of the collection and append a WIPE revision.
Loved artists and albums are removed too. The revision log is kept.`,
		Args: cobra.NoArgs,
		RunE: runWipe,
	}

	revisionCmd = &cobra.Command{
		Use:   "revision",
		Short: "Show the current revision of the collection",
		Args:  cobra.NoArgs,
		RunE:  runRevision,
	}

	historyCmd = &cobra.Command{
		Use:   "history",
		Short: "List the revision log, newest first",
		Args:  cobra.NoArgs,
		RunE:  runHistory,
	}

	statsCmd = &cobra.Command{
		Use:   "stats",
		Short: "Show row counts and database sizes",
		Args:  cobra.NoArgs,
		RunE:  runStats,
	}
)

func init() {
	wipeCmd.Flags().Bool("yes", false, "skip the confirmation check")
	historyCmd.Flags().Int("limit", 20, "number of revisions to show (0 for all)")
	rootCmd.AddCommand(wipeCmd, revisionCmd, historyCmd, statsCmd)
}

func runWipe(cmd *cobra.Command, args []string) error {
	if yes, _ := cmd.Flags().GetBool("yes"); !yes {
		return fmt.Errorf("wipe deletes the whole collection %q, rerun with --yes to confirm", cfg.Collection)
	}
	return withCollection(cmd, func(a *app, c *collection.Collection) error {
		rev, err := c.Wipe()
		if err != nil {
			return fmt.Errorf("wipe failed: %w", err)
		}
		util.SuccessLog("Collection %s wiped (revision %s)", c.ID(), rev)
		return nil
	})
}

// revisionInfo is the output of crate revision
type revisionInfo struct {
	Collection     string `json:"collection" yaml:"collection"`
	Revision       string `json:"revision" yaml:"revision"`
	LastUpdated    int64  `json:"lastUpdated" yaml:"lastUpdated"`
	TracksRevision int64  `json:"tracksRevision" yaml:"tracksRevision"`
	Initialized    bool   `json:"initialized" yaml:"initialized"`
}

func runRevision(cmd *cobra.Command, args []string) error {
	return withCollection(cmd, func(a *app, c *collection.Collection) error {
		s := c.Store()
		info := revisionInfo{Collection: c.ID(), Initialized: c.Initialized()}

		var err error
		if info.Revision, err = s.CurrentRevision(); err != nil {
			return err
		}
		if info.LastUpdated, err = s.LastUpdated(); err != nil {
			return err
		}
		if info.TracksRevision, err = s.TracksCurrentRevision(); err != nil {
			return err
		}

		return render(cmd.OutOrStdout(), a.cfg.Output, info, func() *table {
			t := &table{}
			t.add("Collection:", info.Collection)
			t.add("Revision:", orDash(info.Revision))
			t.add("Last updated:", formatTime(info.LastUpdated))
			t.add("Newest track:", formatTime(info.TracksRevision))
			t.add("Initialized:", strconv.FormatBool(info.Initialized))
			return t
		})
	})
}

func runHistory(cmd *cobra.Command, args []string) error {
	limit, _ := cmd.Flags().GetInt("limit")
	return withCollection(cmd, func(a *app, c *collection.Collection) error {
		revs, err := c.Store().Revisions(limit)
		if err != nil {
			return err
		}
		return render(cmd.OutOrStdout(), a.cfg.Output, revs, func() *table {
			t := &table{header: []string{"REVISION", "ACTION", "TRACKS", "WHEN"}}
			for _, r := range revs {
				t.add(r.Token, r.Action.String(), formatCount(r.TrackCount), formatTime(r.Timestamp))
			}
			return t
		})
	})
}

// statsInfo is the output of crate stats
type statsInfo struct {
	Collection   string       `json:"collection" yaml:"collection"`
	Path         string       `json:"path" yaml:"path"`
	Size         uint64       `json:"size" yaml:"size"`
	Counts       *store.Stats `json:"counts" yaml:"counts"`
	Playlists    int          `json:"playlists" yaml:"playlists"`
	LovedTracks  int          `json:"lovedTracks" yaml:"lovedTracks"`
	PendingOps   int64        `json:"pendingOps" yaml:"pendingOps"`
	MediaDirs    int          `json:"mediaDirs" yaml:"mediaDirs"`
	NetworkShare bool         `json:"networkShare" yaml:"networkShare"`
}

func runStats(cmd *cobra.Command, args []string) error {
	return withCollection(cmd, func(a *app, c *collection.Collection) error {
		counts, err := c.Store().Stats()
		if err != nil {
			return err
		}
		info := statsInfo{
			Collection:   c.ID(),
			Path:         c.Store().Path(),
			Counts:       counts,
			NetworkShare: a.tuning.IsNetwork,
		}
		if fi, err := os.Stat(info.Path); err == nil {
			info.Size = uint64(fi.Size())
		}

		playlists, err := a.users.Playlists()
		if err != nil {
			return err
		}
		info.Playlists = len(playlists)
		loved, err := a.users.LovedTracks()
		if err != nil {
			return err
		}
		info.LovedTracks = len(loved)
		if info.PendingOps, err = a.users.LoggedOpCount(); err != nil {
			return err
		}
		dirs, err := a.users.MediaDirs(false)
		if err != nil {
			return err
		}
		info.MediaDirs = len(dirs)

		return render(cmd.OutOrStdout(), a.cfg.Output, info, func() *table {
			t := &table{}
			t.add("Collection:", info.Collection)
			t.add("Database:", fmt.Sprintf("%s (%s)", info.Path, humanize.Bytes(info.Size)))
			t.add("Tracks:", formatCount(counts.Tracks))
			t.add("Albums:", formatCount(counts.Albums))
			t.add("Artists:", formatCount(counts.Artists))
			t.add("Album artists:", formatCount(counts.AlbumArtists))
			t.add("Revisions:", formatCount(counts.Revisions))
			t.add("Loved artists:", formatCount(counts.LovedArtists))
			t.add("Loved albums:", formatCount(counts.LovedAlbums))
			t.add("Loved tracks:", formatCount(int64(info.LovedTracks)))
			t.add("Playlists:", formatCount(int64(info.Playlists)))
			t.add("Pending ops:", formatCount(info.PendingOps))
			t.add("Media dirs:", formatCount(int64(info.MediaDirs)))
			if info.NetworkShare {
				t.add("Storage:", "network share")
			}
			return t
		})
	})
}
