package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/franz/crate/internal/userstore"
	"github.com/franz/crate/internal/util"
)

var playlistCmd = &cobra.Command{
	Use:   "playlist",
	Short: "Manage playlists",
}

var (
	playlistCreateCmd = &cobra.Command{
		Use:   "create <name>",
		Short: "Create a playlist",
		Long: `Create a playlist, optionally with initial entries given as
--entry "Artist - Track". With --reverse the entries are stored last to first.`,
		Args: cobra.ExactArgs(1),
		RunE: runPlaylistCreate,
	}

	playlistListCmd = &cobra.Command{
		Use:   "list",
		Short: "List playlists",
		Args:  cobra.NoArgs,
		RunE:  runPlaylistList,
	}

	playlistShowCmd = &cobra.Command{
		Use:   "show <id>",
		Short: "Show a playlist with its entries",
		Args:  cobra.ExactArgs(1),
		RunE:  runPlaylistShow,
	}

	playlistAddCmd = &cobra.Command{
		Use:   "add <id>",
		Short: "Append a track to a playlist",
		Long: `Append a track given by --track and --artist, or the best match of
--search in the current collection.`,
		Args: cobra.ExactArgs(1),
		RunE: runPlaylistAdd,
	}

	playlistRemoveCmd = &cobra.Command{
		Use:   "remove <id> <entry-id>",
		Short: "Remove an entry from a playlist",
		Args:  cobra.ExactArgs(2),
		RunE:  runPlaylistRemove,
	}

	playlistDeleteCmd = &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a playlist",
		Args:  cobra.ExactArgs(1),
		RunE:  runPlaylistDelete,
	}

	playlistRenameCmd = &cobra.Command{
		Use:   "rename <id> <name>",
		Short: "Rename a playlist",
		Args:  cobra.ExactArgs(2),
		RunE:  runPlaylistRename,
	}
)

func init() {
	playlistCreateCmd.Flags().StringArray("entry", nil, `initial entry as "Artist - Track" (repeatable)`)
	playlistCreateCmd.Flags().Bool("reverse", false, "store the entries last to first")

	playlistAddCmd.Flags().String("track", "", "track title")
	playlistAddCmd.Flags().String("artist", "", "track artist")
	playlistAddCmd.Flags().String("album", "", "album")
	playlistAddCmd.Flags().String("search", "", "add the best match of a collection search")
	playlistAddCmd.MarkFlagsMutuallyExclusive("search", "track")

	playlistCmd.AddCommand(
		playlistCreateCmd,
		playlistListCmd,
		playlistShowCmd,
		playlistAddCmd,
		playlistRemoveCmd,
		playlistDeleteCmd,
		playlistRenameCmd,
	)
	rootCmd.AddCommand(playlistCmd)
}

// parseEntry splits "Artist - Track" on the first " - "
func parseEntry(s string) (userstore.Entry, error) {
	artist, track, ok := strings.Cut(s, " - ")
	artist, track = strings.TrimSpace(artist), strings.TrimSpace(track)
	if !ok || artist == "" || track == "" {
		return userstore.Entry{}, fmt.Errorf("%w: entry %q is not \"Artist - Track\"", util.ErrInvalidQuery, s)
	}
	return userstore.Entry{Track: track, Artist: artist}, nil
}

func runPlaylistCreate(cmd *cobra.Command, args []string) error {
	raw, _ := cmd.Flags().GetStringArray("entry")
	reverse, _ := cmd.Flags().GetBool("reverse")

	p := &userstore.Playlist{Name: args[0]}
	for _, r := range raw {
		e, err := parseEntry(r)
		if err != nil {
			return err
		}
		p.Entries = append(p.Entries, e)
	}

	return withApp(func(a *app) error {
		if err := a.users.StorePlaylist(p, reverse); err != nil {
			return err
		}
		a.logOp(userstore.OpPlaylistStore, map[string]string{"id": p.ID, "name": p.Name})
		util.SuccessLog("Created playlist %s (%s) with %d entries", p.Name, p.ID, p.TrackCount)
		return nil
	})
}

func runPlaylistList(cmd *cobra.Command, args []string) error {
	return withApp(func(a *app) error {
		playlists, err := a.users.Playlists()
		if err != nil {
			return err
		}
		return render(cmd.OutOrStdout(), a.cfg.Output, playlists, func() *table {
			t := &table{header: []string{"ID", "NAME", "TRACKS", "UPDATED"}}
			for _, p := range playlists {
				t.add(p.ID, p.Name, strconv.Itoa(p.TrackCount), formatTime(p.UpdatedAt))
			}
			return t
		})
	})
}

func runPlaylistShow(cmd *cobra.Command, args []string) error {
	return withApp(func(a *app) error {
		p, err := a.users.Playlist(args[0])
		if err != nil {
			return err
		}
		if p == nil {
			return fmt.Errorf("%w: playlist %s", util.ErrNotFound, args[0])
		}
		return render(cmd.OutOrStdout(), a.cfg.Output, p, func() *table {
			t := &table{header: []string{"#", "TRACK", "ARTIST", "ALBUM", "ENTRY"}}
			for _, e := range p.Entries {
				t.add(strconv.Itoa(e.Index+1), e.Track, e.Artist, orDash(e.Album), e.EntryID)
			}
			return t
		})
	})
}

func runPlaylistAdd(cmd *cobra.Command, args []string) error {
	query, _ := cmd.Flags().GetString("search")
	track, _ := cmd.Flags().GetString("track")
	artist, _ := cmd.Flags().GetString("artist")
	album, _ := cmd.Flags().GetString("album")

	if query == "" && (track == "" || artist == "") {
		return fmt.Errorf("%w: give --track and --artist, or --search", util.ErrInvalidQuery)
	}

	return withApp(func(a *app) error {
		e := userstore.Entry{Track: track, Artist: artist, Album: album}
		if query != "" {
			c, err := a.collection(cmd.Context())
			if err != nil {
				return err
			}
			results, err := c.Search(query)
			if err != nil {
				return err
			}
			if len(results) == 0 {
				return fmt.Errorf("%w: nothing matches %q", util.ErrNotFound, query)
			}
			best := results[0]
			e = userstore.Entry{Track: best.Title, Artist: best.Artist, Album: best.Album, ResultHint: best.URL}
		}

		if err := a.users.AddEntries(args[0], []userstore.Entry{e}); err != nil {
			return err
		}
		a.logOp(userstore.OpPlaylistStore, map[string]string{"id": args[0]})
		util.SuccessLog("Added %s by %s", e.Track, e.Artist)
		return nil
	})
}

func runPlaylistRemove(cmd *cobra.Command, args []string) error {
	return withApp(func(a *app) error {
		removed, err := a.users.RemoveEntry(args[0], args[1])
		if err != nil {
			return err
		}
		if !removed {
			return fmt.Errorf("%w: entry %s in playlist %s", util.ErrNotFound, args[1], args[0])
		}
		a.logOp(userstore.OpPlaylistStore, map[string]string{"id": args[0]})
		util.SuccessLog("Removed entry %s", args[1])
		return nil
	})
}

func runPlaylistDelete(cmd *cobra.Command, args []string) error {
	return withApp(func(a *app) error {
		deleted, err := a.users.DeletePlaylist(args[0])
		if err != nil {
			return err
		}
		if !deleted {
			return fmt.Errorf("%w: playlist %s", util.ErrNotFound, args[0])
		}
		a.logOp(userstore.OpPlaylistDelete, map[string]string{"id": args[0]})
		util.SuccessLog("Deleted playlist %s", args[0])
		return nil
	})
}

func runPlaylistRename(cmd *cobra.Command, args []string) error {
	return withApp(func(a *app) error {
		renamed, err := a.users.RenamePlaylist(args[0], args[1])
		if err != nil {
			return err
		}
		if !renamed {
			return fmt.Errorf("%w: playlist %s", util.ErrNotFound, args[0])
		}
		a.logOp(userstore.OpPlaylistRename, map[string]string{"id": args[0], "name": args[1]})
		util.SuccessLog("Renamed playlist %s to %s", args[0], args[1])
		return nil
	})
}
