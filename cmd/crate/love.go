package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/franz/crate/internal/collection"
	"github.com/franz/crate/internal/store"
	"github.com/franz/crate/internal/userstore"
	"github.com/franz/crate/internal/util"
)

var (
	loveCmd = &cobra.Command{
		Use:   "love",
		Short: "Mark an artist, album or track as loved",
	}

	unloveCmd = &cobra.Command{
		Use:   "unlove",
		Short: "Remove an artist, album or track from the loved items",
	}

	lovedCmd = &cobra.Command{
		Use:   "loved",
		Short: "List loved artists, albums and tracks",
		Args:  cobra.NoArgs,
		RunE:  runLoved,
	}
)

func init() {
	for _, loved := range []bool{true, false} {
		parent := loveCmd
		if !loved {
			parent = unloveCmd
		}

		artist := &cobra.Command{
			Use:   "artist <name>",
			Short: "Artist",
			Args:  cobra.ExactArgs(1),
			RunE:  loveArtistRunner(loved),
		}

		album := &cobra.Command{
			Use:   "album <title>",
			Short: "Album, by its album artist",
			Args:  cobra.ExactArgs(1),
			RunE:  loveAlbumRunner(loved),
		}
		album.Flags().String("artist", "", "album artist (required)")
		album.MarkFlagRequired("artist")

		track := &cobra.Command{
			Use:   "track <title>",
			Short: "Track, by its artist",
			Args:  cobra.ExactArgs(1),
			RunE:  loveTrackRunner(loved),
		}
		track.Flags().String("artist", "", "track artist (required)")
		track.Flags().String("album", "", "album the track is on")
		track.MarkFlagRequired("artist")

		parent.AddCommand(artist, album, track)
	}

	rootCmd.AddCommand(loveCmd, unloveCmd, lovedCmd)
}

func loveArtistRunner(loved bool) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		name := args[0]
		return withCollection(cmd, func(a *app, c *collection.Collection) error {
			if loved {
				if err := c.LoveArtist(name); err != nil {
					return err
				}
				a.logOp(userstore.OpLoveArtist, map[string]string{"artist": name})
				util.SuccessLog("Loved artist %s", name)
				return nil
			}

			removed, err := c.UnloveArtist(name)
			if err != nil {
				return err
			}
			if !removed {
				return fmt.Errorf("%w: artist %q is not loved", util.ErrNotFound, name)
			}
			a.logOp(userstore.OpUnloveArtist, map[string]string{"artist": name})
			util.SuccessLog("Unloved artist %s", name)
			return nil
		})
	}
}

func loveAlbumRunner(loved bool) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		artist, _ := cmd.Flags().GetString("artist")
		ref := store.AlbumRef{Title: args[0], AlbumArtist: artist}
		params := map[string]string{"album": ref.Title, "artist": ref.AlbumArtist}

		return withCollection(cmd, func(a *app, c *collection.Collection) error {
			if loved {
				if err := c.LoveAlbum(ref); err != nil {
					return err
				}
				a.logOp(userstore.OpLoveAlbum, params)
				util.SuccessLog("Loved album %s by %s", ref.Title, ref.AlbumArtist)
				return nil
			}

			removed, err := c.UnloveAlbum(ref)
			if err != nil {
				return err
			}
			if !removed {
				return fmt.Errorf("%w: album %q by %q is not loved", util.ErrNotFound, ref.Title, ref.AlbumArtist)
			}
			a.logOp(userstore.OpUnloveAlbum, params)
			util.SuccessLog("Unloved album %s by %s", ref.Title, ref.AlbumArtist)
			return nil
		})
	}
}

func loveTrackRunner(loved bool) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		title := args[0]
		artist, _ := cmd.Flags().GetString("artist")
		album, _ := cmd.Flags().GetString("album")
		params := map[string]string{"track": title, "artist": artist}

		// loved tracks live in the user store, shared by all collections
		return withApp(func(a *app) error {
			if loved {
				added, err := a.users.LoveTrack(title, artist, album)
				if err != nil {
					return err
				}
				if !added {
					util.InfoLog("%s by %s is already loved", title, artist)
					return nil
				}
				a.logger.LogLove("", "track", title, true)
				a.logOp(userstore.OpLoveTrack, params)
				util.SuccessLog("Loved %s by %s", title, artist)
				return nil
			}

			removed, err := a.users.UnloveTrack(title, artist)
			if err != nil {
				return err
			}
			if !removed {
				return fmt.Errorf("%w: %q by %q is not loved", util.ErrNotFound, title, artist)
			}
			a.logger.LogLove("", "track", title, false)
			a.logOp(userstore.OpUnloveTrack, params)
			util.SuccessLog("Unloved %s by %s", title, artist)
			return nil
		})
	}
}

// lovedItems is the output of crate loved
type lovedItems struct {
	Artists []store.Artist    `json:"artists" yaml:"artists"`
	Albums  []store.Album     `json:"albums" yaml:"albums"`
	Tracks  []userstore.Entry `json:"tracks" yaml:"tracks"`
}

func runLoved(cmd *cobra.Command, args []string) error {
	return withCollection(cmd, func(a *app, c *collection.Collection) error {
		var (
			items lovedItems
			err   error
		)
		if items.Artists, err = c.Store().LovedArtists(); err != nil {
			return err
		}
		if items.Albums, err = c.Store().LovedAlbums(); err != nil {
			return err
		}
		if items.Tracks, err = a.users.LovedTracks(); err != nil {
			return err
		}

		return render(cmd.OutOrStdout(), a.cfg.Output, items, func() *table {
			t := &table{header: []string{"KIND", "NAME", "BY"}}
			for _, ar := range items.Artists {
				t.add("artist", ar.Name, "-")
			}
			for _, al := range items.Albums {
				t.add("album", al.Title, al.Artist)
			}
			for _, e := range items.Tracks {
				t.add("track #"+strconv.Itoa(e.Index+1), e.Track, e.Artist)
			}
			return t
		})
	})
}
