package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/franz/crate/internal/api"
	"github.com/franz/crate/internal/collection"
	"github.com/franz/crate/internal/scan"
	"github.com/franz/crate/internal/store"
	"github.com/franz/crate/internal/util"
)

var scanCmd = &cobra.Command{
	Use:   "scan [dirs...]",
	Short: "Scan directories and ingest their tracks",
	Long: `Scan directories for audio files, read their tags and ingest the tracks
into the collection as one batch.

Without arguments the whitelisted media directories are scanned (see
"crate dirs"). Blacklisted directories are always skipped.`,
	RunE: runScan,
}

var watchCmd = &cobra.Command{
	Use:   "watch [dirs...]",
	Short: "Scan, then keep ingesting new and changed files",
	Long: `Scan once like "crate scan", then watch the same directories and
ingest audio files as they are created or rewritten. Changes are batched
until the directories have been quiet for --debounce.`,
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(watchCmd)

	for _, c := range []*cobra.Command{scanCmd, watchCmd} {
		c.Flags().Int("concurrency", 0, "tag reader workers (default from config)")
		c.Flags().Bool("probe-durations", false, "read durations with ffprobe when installed")
		c.Flags().StringSlice("ext", nil, "additional audio extensions")
	}
	watchCmd.Flags().Duration("debounce", 0, "quiet period before a batch of changes is ingested")
}

// scanRoots resolves the dirs to scan and the blacklisted dirs to skip
func scanRoots(a *app, args []string) (roots, exclude []string, err error) {
	if exclude, err = a.users.MediaDirs(true); err != nil {
		return nil, nil, err
	}

	if len(args) == 0 {
		if roots, err = a.users.MediaDirs(false); err != nil {
			return nil, nil, err
		}
		if len(roots) == 0 {
			return nil, nil, fmt.Errorf("%w: no directories given and no media dirs configured (see crate dirs add)", util.ErrInvalidConfig)
		}
		return roots, exclude, nil
	}

	for _, arg := range args {
		abs, err := filepath.Abs(arg)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to resolve %s: %w", arg, err)
		}
		if _, err := os.Stat(abs); err != nil {
			return nil, nil, fmt.Errorf("directory does not exist: %s", arg)
		}
		roots = append(roots, abs)
	}
	return roots, exclude, nil
}

// newScanner builds a scanner for roots, with fewer workers when a root
// is on a network share
func newScanner(a *app, roots, exclude []string) *scan.Scanner {
	tuning := util.TuneForPaths(roots, a.cfg.NetworkOptimized, a.cfg.Concurrency)
	return scan.New(&scan.Config{
		Fs:             afero.NewOsFs(),
		AdditionalExts: a.cfg.AdditionalExts,
		Exclude:        exclude,
		Concurrency:    tuning.Concurrency,
		Logger:         a.logger,
		ProbeDurations: a.cfg.ProbeDurations,
	})
}

// scanAndIngest scans roots and ingests the result as one batch
func scanAndIngest(ctx context.Context, a *app, c *collection.Collection, s *scan.Scanner, roots []string) error {
	for _, root := range roots {
		util.InfoLog("Scanning %s", root)
	}

	res, err := s.Scan(ctx, roots...)
	if err != nil {
		return fmt.Errorf("scan failed: %w", err)
	}
	for _, root := range roots {
		a.logger.LogScan(c.ID(), root, res.FilesFound, len(res.Tracks), res.Duration)
	}

	util.SuccessLog("Scan complete in %v", res.Duration.Round(time.Millisecond))
	util.InfoLog("  Files found: %s", formatCount(int64(res.FilesFound)))
	util.InfoLog("  Tracks read: %s", formatCount(int64(len(res.Tracks))))
	if res.FilesSkipped > 0 {
		util.InfoLog("  Files skipped: %s", formatCount(int64(res.FilesSkipped)))
	}
	if len(res.Errors) > 0 {
		util.WarnLog("  Errors: %d", len(res.Errors))
		for _, e := range res.Errors {
			util.DebugLog("    %v", e)
		}
	}

	return ingest(a, c, res.Tracks)
}

func ingest(a *app, c *collection.Collection, tracks []store.TrackInput) error {
	res, err := c.AddTracks(tracks)
	if err != nil {
		return fmt.Errorf("ingest failed: %w", err)
	}
	api.RecordIngest(c.ID(), res)

	if res.TracksAdded == 0 {
		util.InfoLog("No new tracks")
		return nil
	}
	util.SuccessLog("Ingested %s new tracks (revision %s)", formatCount(int64(res.TracksAdded)), res.Revision)
	if res.Compilations > 0 {
		util.InfoLog("  Compilations detected: %d", res.Compilations)
	}
	return nil
}

func runScan(cmd *cobra.Command, args []string) error {
	return withApp(func(a *app) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		roots, exclude, err := scanRoots(a, args)
		if err != nil {
			return err
		}
		c, err := a.collection(ctx)
		if err != nil {
			return err
		}
		return scanAndIngest(ctx, a, c, newScanner(a, roots, exclude), roots)
	})
}

func runWatch(cmd *cobra.Command, args []string) error {
	return withApp(func(a *app) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		roots, exclude, err := scanRoots(a, args)
		if err != nil {
			return err
		}
		c, err := a.collection(ctx)
		if err != nil {
			return err
		}
		s := newScanner(a, roots, exclude)
		if err := scanAndIngest(ctx, a, c, s, roots); err != nil {
			return err
		}

		w, err := startWatcher(a, c, s, roots)
		if err != nil {
			return err
		}
		util.InfoLog("Watching %d directories, press Ctrl-C to stop", len(w.WatchList()))
		return w.Run(ctx)
	})
}

// startWatcher builds a watcher that ingests each batch of changed files
func startWatcher(a *app, c *collection.Collection, s *scan.Scanner, roots []string) (*scan.Watcher, error) {
	w, err := scan.NewWatcher(roots, a.cfg.WatchDebounce, func(paths []string) {
		a.logger.LogWatch(c.ID(), paths)
		util.InfoLog("Detected %d changed files", len(paths))

		// a cancelled Run drops pending batches, so one in flight may finish
		res, err := s.ReadFiles(context.Background(), paths)
		if err != nil {
			util.ErrorLog("Failed to read changed files: %v", err)
			return
		}
		if err := ingest(a, c, res.Tracks); err != nil {
			util.ErrorLog("%v", err)
		}
	})
	if err != nil {
		return nil, fmt.Errorf("failed to start watcher: %w", err)
	}
	return w.UseScanner(s), nil
}
