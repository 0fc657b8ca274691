package scan

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/franz/crate/internal/util"
)

// DefaultDebounce is the quiet period before a batch of changes is emitted
const DefaultDebounce = 2 * time.Second

// Watcher reports new and rewritten audio files below a set of roots
type Watcher struct {
	watcher  *fsnotify.Watcher
	debounce time.Duration
	onChange func(paths []string)

	isAudio    func(path string) bool
	isExcluded func(dir string) bool

	mu      sync.Mutex
	pending map[string]struct{}
	timer   *time.Timer

	// onChange never runs concurrently with itself
	emitMu sync.Mutex
}

// NewWatcher watches every directory below roots. onChange receives the
// sorted, de-duplicated paths changed during each quiet period.
func NewWatcher(roots []string, debounce time.Duration, onChange func(paths []string)) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	defaults := New(&Config{})
	w := &Watcher{
		watcher:    fw,
		debounce:   debounce,
		onChange:   onChange,
		isAudio:    defaults.IsAudioFile,
		isExcluded: func(string) bool { return false },
		pending:    make(map[string]struct{}),
	}

	for _, root := range roots {
		if err := w.addTree(filepath.Clean(root), false); err != nil {
			fw.Close()
			return nil, err
		}
	}
	return w, nil
}

// UseScanner applies the scanner's extension and exclusion rules
func (w *Watcher) UseScanner(s *Scanner) *Watcher {
	w.isAudio = s.IsAudioFile
	w.isExcluded = s.IsExcluded
	return w
}

// Run processes events until ctx is cancelled. Changes still waiting for
// their quiet period are dropped.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.watcher.Close()

	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			w.handleEvent(event)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			util.WarnLog("File watcher error: %v", err)

		case <-ctx.Done():
			w.mu.Lock()
			if w.timer != nil {
				w.timer.Stop()
			}
			if n := len(w.pending); n > 0 {
				util.DebugLog("Watcher stopped with %d pending changes", n)
			}
			w.mu.Unlock()
			return nil
		}
	}
}

// Close releases the watcher without running it
func (w *Watcher) Close() error {
	return w.watcher.Close()
}

// WatchList returns the directories currently watched
func (w *Watcher) WatchList() []string {
	list := w.watcher.WatchList()
	sort.Strings(list)
	return list
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
		return
	}

	if event.Has(fsnotify.Create) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			// files may land before the new directory is watched
			if err := w.addTree(event.Name, true); err != nil {
				util.WarnLog("Failed to watch %s: %v", event.Name, err)
			}
			return
		}
	}

	if w.isAudio(event.Name) && !w.isExcluded(filepath.Dir(event.Name)) {
		util.DebugLog("Detected change: %s", event.Name)
		w.enqueue(event.Name)
	}
}

// addTree watches dir and its subdirectories. With enqueue set, audio
// files already present are reported as changed.
func (w *Watcher) addTree(dir string, enqueue bool) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == dir {
				return err
			}
			util.WarnLog("Error accessing path %s: %v", path, err)
			return nil
		}
		if d.IsDir() {
			if w.isExcluded(path) {
				return filepath.SkipDir
			}
			if strings.HasPrefix(d.Name(), ".") && path != dir {
				return filepath.SkipDir
			}
			return w.watcher.Add(path)
		}
		if enqueue && w.isAudio(path) {
			w.enqueue(path)
		}
		return nil
	})
}

func (w *Watcher) enqueue(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.pending[path] = struct{}{}
	if w.timer == nil {
		w.timer = time.AfterFunc(w.debounce, w.emit)
		return
	}
	w.timer.Reset(w.debounce)
}

func (w *Watcher) emit() {
	w.mu.Lock()
	batch := make([]string, 0, len(w.pending))
	for path := range w.pending {
		batch = append(batch, path)
	}
	w.pending = make(map[string]struct{})
	w.mu.Unlock()

	if len(batch) == 0 {
		return
	}
	sort.Strings(batch)

	w.emitMu.Lock()
	defer w.emitMu.Unlock()
	w.onChange(batch)
}
