package scan

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatcherBatchesAudioChanges(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "existing"), 0755))

	var (
		mu      sync.Mutex
		seen    = make(map[string]bool)
		batches int
	)
	done := make(chan struct{}, 1)

	a := filepath.Join(root, "existing", "a.mp3")
	b := filepath.Join(root, "fresh", "b.flac")

	w, err := NewWatcher([]string{root}, 50*time.Millisecond, func(paths []string) {
		mu.Lock()
		defer mu.Unlock()
		batches++
		for i, p := range paths {
			if i > 0 {
				assert.Less(t, paths[i-1], p, "batch is sorted and unique")
			}
			seen[p] = true
		}
		if seen[a] && seen[b] {
			select {
			case done <- struct{}{}:
			default:
			}
		}
	})
	require.NoError(t, err)
	assert.Len(t, w.WatchList(), 2, "root and subdirectory are watched")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	runErr := make(chan error, 1)
	go func() { runErr <- w.Run(ctx) }()

	require.NoError(t, os.WriteFile(a, []byte("a"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "existing", "notes.txt"), []byte("x"), 0644))
	require.NoError(t, os.MkdirAll(filepath.Dir(b), 0755))
	require.NoError(t, os.WriteFile(b, []byte("b"), 0644))

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		mu.Lock()
		got := len(seen)
		mu.Unlock()
		require.FailNow(t, "timed out waiting for changes", "saw %d paths", got)
	}

	mu.Lock()
	notes := seen[filepath.Join(root, "existing", "notes.txt")]
	n := batches
	mu.Unlock()
	assert.False(t, notes, "non-audio files are not reported")
	assert.Positive(t, n)

	cancel()
	select {
	case err := <-runErr:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		require.FailNow(t, "Run did not stop after cancel")
	}
}

func TestWatcherRespectsExclusions(t *testing.T) {
	root := t.TempDir()
	skip := filepath.Join(root, "skip")
	require.NoError(t, os.MkdirAll(skip, 0755))

	w, err := NewWatcher([]string{root}, time.Second, func([]string) {})
	require.NoError(t, err)
	defer w.Close()

	w.UseScanner(New(&Config{Exclude: []string{skip}}))
	assert.True(t, w.isExcluded(skip), "scanner exclusions apply")
	assert.True(t, w.isAudio("x.opus"), "scanner extensions apply")
	assert.False(t, w.isAudio("x.txt"))
}

func TestNewWatcherMissingRoot(t *testing.T) {
	_, err := NewWatcher([]string{filepath.Join(t.TempDir(), "missing")}, 0, func([]string) {})
	require.Error(t, err)
}
