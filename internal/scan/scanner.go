package scan

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dhowden/tag"
	"github.com/schollz/progressbar/v3"
	"github.com/sourcegraph/conc/pool"
	"github.com/spf13/afero"

	"github.com/franz/crate/internal/meta"
	"github.com/franz/crate/internal/report"
	"github.com/franz/crate/internal/store"
	"github.com/franz/crate/internal/util"
)

// AudioExtensions are the default supported audio file extensions
var AudioExtensions = []string{
	".mp3",
	".flac",
	".m4a",
	".aac",
	".ogg",
	".opus",
	".wav",
	".aiff",
	".aif",
	".wma",
	".ape",
	".wv",  // WavPack
	".mpc", // Musepack
}

var (
	coverNames      = []string{"cover", "folder", "front", "album"}
	coverExtensions = map[string]bool{".jpg": true, ".jpeg": true, ".png": true}
)

// Scanner turns audio files into track descriptors
type Scanner struct {
	fs             afero.Fs
	extensions     map[string]bool
	exclude        []string
	concurrency    int
	logger         *report.EventLogger
	probeDurations bool

	coverMu sync.Mutex
	covers  map[string]string
}

// Config holds scanner configuration
type Config struct {
	Fs             afero.Fs // defaults to the OS filesystem
	AdditionalExts []string
	Exclude        []string // directories skipped with everything below them
	Concurrency    int
	Logger         *report.EventLogger
	ProbeDurations bool // run ffprobe for durations when it is installed
}

// New creates a new Scanner
func New(cfg *Config) *Scanner {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 4
	}
	if cfg.Fs == nil {
		cfg.Fs = afero.NewOsFs()
	}

	// Build extension map (case-insensitive)
	extMap := make(map[string]bool)
	for _, ext := range AudioExtensions {
		extMap[strings.ToLower(ext)] = true
	}
	for _, ext := range cfg.AdditionalExts {
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		extMap[strings.ToLower(ext)] = true
	}

	exclude := make([]string, 0, len(cfg.Exclude))
	for _, dir := range cfg.Exclude {
		exclude = append(exclude, filepath.Clean(dir))
	}

	probe := cfg.ProbeDurations
	if probe {
		_, onDisk := cfg.Fs.(*afero.OsFs)
		probe = onDisk && meta.CheckFFprobeAvailable()
		if !probe {
			util.DebugLog("Duration probing disabled: ffprobe unavailable")
		}
	}

	return &Scanner{
		fs:             cfg.Fs,
		extensions:     extMap,
		exclude:        exclude,
		concurrency:    cfg.Concurrency,
		logger:         cfg.Logger,
		probeDurations: probe,
		covers:         make(map[string]string),
	}
}

// Result represents a scan result
type Result struct {
	Tracks       []store.TrackInput
	FilesFound   int
	FilesSkipped int
	Errors       []error
	Duration     time.Duration
}

// Scan walks every root and reads the tags of each audio file found
func (s *Scanner) Scan(ctx context.Context, roots ...string) (*Result, error) {
	start := time.Now()
	result := &Result{Tracks: []store.TrackInput{}}

	var paths []string
	for _, root := range roots {
		root = filepath.Clean(root)
		util.InfoLog("Scanning: %s", root)

		walkErr := afero.Walk(s.fs, root, func(path string, info os.FileInfo, err error) error {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			if err != nil {
				util.WarnLog("Error accessing path %s: %v", path, err)
				result.Errors = append(result.Errors, fmt.Errorf("access error: %s: %w", path, err))
				return nil
			}
			if info.IsDir() {
				if s.IsExcluded(path) {
					util.DebugLog("Skipping excluded directory: %s", path)
					return filepath.SkipDir
				}
				return nil
			}
			if s.IsAudioFile(path) {
				paths = append(paths, path)
			}
			return nil
		})
		if walkErr != nil {
			if errors.Is(walkErr, context.Canceled) || errors.Is(walkErr, context.DeadlineExceeded) {
				return result, walkErr
			}
			return result, fmt.Errorf("walk error: %w", walkErr)
		}
	}

	if err := s.readAll(ctx, paths, result); err != nil {
		return result, err
	}
	result.Duration = time.Since(start)

	util.SuccessLog("Scan complete: %d files found, %d tracks, %d skipped, %d errors",
		result.FilesFound, len(result.Tracks), result.FilesSkipped, len(result.Errors))
	return result, nil
}

// ReadFiles converts explicit paths, skipping anything that is not audio
func (s *Scanner) ReadFiles(ctx context.Context, paths []string) (*Result, error) {
	start := time.Now()
	result := &Result{Tracks: []store.TrackInput{}}

	audio := make([]string, 0, len(paths))
	for _, p := range paths {
		if s.IsAudioFile(p) && !s.IsExcluded(filepath.Dir(p)) {
			audio = append(audio, p)
		}
	}

	err := s.readAll(ctx, audio, result)
	result.Duration = time.Since(start)
	return result, err
}

type fileOutcome struct {
	path    string
	track   *store.TrackInput
	skipped string
	err     error
}

// readAll reads paths on a bounded pool and appends to result in path order
func (s *Scanner) readAll(ctx context.Context, paths []string, result *Result) error {
	result.FilesFound += len(paths)
	if len(paths) == 0 {
		return nil
	}

	// covers may have been added or removed since the last pass
	s.coverMu.Lock()
	s.covers = make(map[string]string)
	s.coverMu.Unlock()

	var bar *progressbar.ProgressBar
	if util.IsTerminal(os.Stderr.Fd()) && !util.IsQuiet() {
		bar = progressbar.NewOptions(len(paths),
			progressbar.OptionSetDescription("Reading tags"),
			progressbar.OptionSetWriter(os.Stderr),
			progressbar.OptionSetWidth(min(40, util.GetTerminalWidth()/2)),
			progressbar.OptionShowCount(),
			progressbar.OptionShowIts(),
			progressbar.OptionSetItsString("files"),
			progressbar.OptionThrottle(200*time.Millisecond),
			progressbar.OptionClearOnFinish(),
		)
	}

	var processed atomic.Int64
	p := pool.NewWithResults[fileOutcome]().WithMaxGoroutines(s.concurrency)
	for _, path := range paths {
		p.Go(func() fileOutcome {
			defer func() {
				processed.Add(1)
				if bar != nil {
					bar.Add(1)
				}
			}()
			if err := ctx.Err(); err != nil {
				return fileOutcome{path: path, err: err}
			}
			return s.readFile(ctx, path)
		})
	}
	outcomes := p.Wait()
	if bar != nil {
		bar.Finish()
	}

	sort.Slice(outcomes, func(i, j int) bool { return outcomes[i].path < outcomes[j].path })
	for _, o := range outcomes {
		switch {
		case o.err != nil:
			if errors.Is(o.err, context.Canceled) || errors.Is(o.err, context.DeadlineExceeded) {
				continue
			}
			util.ErrorLog("Failed to read %s: %v", o.path, o.err)
			s.logger.LogError(report.EventScan, o.path, o.err)
			result.Errors = append(result.Errors, o.err)
		case o.skipped != "":
			util.DebugLog("Skipping %s: %s", o.path, o.skipped)
			s.logger.LogSkip(o.path, o.skipped)
			result.FilesSkipped++
		default:
			result.Tracks = append(result.Tracks, *o.track)
		}
	}

	util.DebugLog("Read %d of %d files", processed.Load(), len(paths))
	return ctx.Err()
}

// readFile builds the track descriptor of one file
func (s *Scanner) readFile(ctx context.Context, path string) fileOutcome {
	info, err := s.fs.Stat(path)
	if err != nil {
		return fileOutcome{path: path, err: fmt.Errorf("failed to stat %s: %w", path, err)}
	}

	tags, err := meta.ReadFile(ctx, s.fs, path)
	if err != nil {
		if errors.Is(err, tag.ErrNoTagsFound) {
			return fileOutcome{path: path, skipped: "no tags"}
		}
		var pathErr *os.PathError
		if errors.As(err, &pathErr) {
			return fileOutcome{path: path, err: err}
		}
		return fileOutcome{path: path, skipped: err.Error()}
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}

	hint := meta.ParseFilename(path)
	t := store.TrackInput{
		Title:        tags.Title,
		Artist:       tags.Artist,
		Album:        tags.Album,
		AlbumArtist:  tags.AlbumArtist,
		AlbumPos:     tags.Track,
		URL:          "file://" + filepath.ToSlash(abs),
		LastModified: info.ModTime().UnixMilli(),
		ImagePath:    s.coverFor(filepath.Dir(path)),
	}
	if t.Title == "" {
		t.Title = hint.Title
	}
	if t.AlbumPos == 0 {
		t.AlbumPos = hint.Track
	}
	if t.AlbumArtist == "" {
		if tags.Compilation {
			t.AlbumArtist = store.CompilationArtist
		} else {
			t.AlbumArtist = t.Artist
		}
	}

	if s.probeDurations {
		if ms, err := meta.ProbeDuration(ctx, path); err == nil {
			t.Duration = ms
		} else {
			util.DebugLog("ffprobe failed for %s: %v", path, err)
		}
	}

	return fileOutcome{path: path, track: &t}
}

// coverFor returns the first cover image in dir, caching per directory for
// the current pass
func (s *Scanner) coverFor(dir string) string {
	s.coverMu.Lock()
	defer s.coverMu.Unlock()

	if cover, ok := s.covers[dir]; ok {
		return cover
	}

	entries, err := afero.ReadDir(s.fs, dir)
	if err != nil {
		s.covers[dir] = ""
		return ""
	}

	byName := make(map[string]string)
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(e.Name()))
		if !coverExtensions[ext] {
			continue
		}
		base := strings.ToLower(strings.TrimSuffix(e.Name(), filepath.Ext(e.Name())))
		if _, seen := byName[base]; !seen {
			byName[base] = filepath.Join(dir, e.Name())
		}
	}

	cover := ""
	for _, name := range coverNames {
		if p, ok := byName[name]; ok {
			cover = p
			break
		}
	}
	s.covers[dir] = cover
	return cover
}

// IsAudioFile checks if a file has a supported audio extension
func (s *Scanner) IsAudioFile(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return s.extensions[ext]
}

// IsExcluded reports whether dir is, or lies below, an excluded directory
func (s *Scanner) IsExcluded(dir string) bool {
	dir = filepath.Clean(dir)
	for _, ex := range s.exclude {
		if dir == ex || strings.HasPrefix(dir, ex+string(filepath.Separator)) {
			return true
		}
	}
	return false
}

// SupportedExtensions returns the supported extensions, sorted
func (s *Scanner) SupportedExtensions() []string {
	exts := make([]string, 0, len(s.extensions))
	for ext := range s.extensions {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}
