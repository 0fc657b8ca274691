package report

import (
	"bufio"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// readEvents decodes every line of the log at path
func readEvents(t *testing.T, path string) []Event {
	t.Helper()

	file, err := os.Open(path)
	require.NoError(t, err, "failed to open log file")
	defer file.Close()

	var events []Event
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		var decoded Event
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &decoded), "line %d: %s", len(events)+1, scanner.Text())
		events = append(events, decoded)
	}
	return events
}

func newTestLogger(t *testing.T, minLevel EventLevel) *EventLogger {
	t.Helper()
	logger, err := NewEventLogger(t.TempDir(), minLevel)
	require.NoError(t, err)
	t.Cleanup(func() { logger.Close() })
	return logger
}

func TestNewEventLogger(t *testing.T) {
	tmpDir := filepath.Join(t.TempDir(), "nested", "events")

	logger, err := NewEventLogger(tmpDir, LevelDebug)
	require.NoError(t, err)
	defer logger.Close()

	assert.FileExists(t, logger.Path())

	filename := filepath.Base(logger.Path())
	assert.Regexp(t, `^events-\d{8}-\d{6}\.jsonl$`, filename)
}

func TestEventLogger_Log(t *testing.T) {
	logger := newTestLogger(t, LevelDebug)

	event := &Event{
		Timestamp:  time.Now(),
		Level:      LevelInfo,
		Event:      EventScan,
		Collection: "local",
		SrcPath:    "/music",
	}
	require.NoError(t, logger.Log(event))
	logger.Close()

	events := readEvents(t, logger.Path())
	require.Len(t, events, 1)
	assert.Equal(t, "local", events[0].Collection)
	assert.Equal(t, "/music", events[0].SrcPath)
}

func TestEventLogger_ConcurrentWrites(t *testing.T) {
	logger := newTestLogger(t, LevelDebug)

	const numGoroutines = 10
	const eventsPerGoroutine = 20

	var wg sync.WaitGroup
	wg.Add(numGoroutines)
	for i := 0; i < numGoroutines; i++ {
		go func() {
			defer wg.Done()
			for j := 0; j < eventsPerGoroutine; j++ {
				assert.NoError(t, logger.LogIngest("local", "rev", 10, 1, time.Millisecond))
			}
		}()
	}
	wg.Wait()
	logger.Close()

	assert.Len(t, readEvents(t, logger.Path()), numGoroutines*eventsPerGoroutine)
}

func TestEventLogger_Helpers(t *testing.T) {
	logger := newTestLogger(t, LevelDebug)

	require.NoError(t, logger.LogScan("local", "/music", 12, 10, 1500*time.Millisecond))
	require.NoError(t, logger.LogIngest("local", "1700000000000", 10, 8, 250*time.Millisecond))
	require.NoError(t, logger.LogWipe("local", "1700000000001"))
	require.NoError(t, logger.LogLove("local", "artist", "Portishead", true))
	require.NoError(t, logger.LogLove("local", "album", "Dummy", false))
	require.NoError(t, logger.LogWatch("local", []string{"/music/a.mp3", "/music/b.mp3"}))
	require.NoError(t, logger.LogSkip("/music/notes.txt", "no tags"))
	require.NoError(t, logger.LogError(EventIngest, "/music", errors.New("disk full")))
	logger.Close()

	events := readEvents(t, logger.Path())
	require.Len(t, events, 8)

	scan := events[0]
	assert.Equal(t, EventScan, scan.Event)
	assert.Equal(t, 10, scan.Tracks)
	assert.Equal(t, int64(1500), scan.Duration)
	assert.Equal(t, "12", scan.Extra["files_found"])

	ingest := events[1]
	assert.Equal(t, EventIngest, ingest.Event)
	assert.Equal(t, "1700000000000", ingest.Revision)
	assert.Equal(t, "ADD_TRACKS", ingest.Action)
	assert.Equal(t, 8, ingest.Tracks)
	assert.Equal(t, "10", ingest.Extra["batch_size"])

	wipe := events[2]
	assert.Equal(t, EventWipe, wipe.Event)
	assert.Equal(t, LevelWarning, wipe.Level)
	assert.Equal(t, "WIPE", wipe.Action)

	assert.Equal(t, EventLove, events[3].Event)
	assert.Equal(t, "Portishead", events[3].Extra["name"])

	assert.Equal(t, EventUnlove, events[4].Event)
	assert.Equal(t, "UNLOVE", events[4].Action)
	assert.Equal(t, "album", events[4].Extra["kind"])

	assert.Equal(t, EventWatch, events[5].Event)
	assert.Equal(t, 2, events[5].Tracks)

	assert.Equal(t, EventSkip, events[6].Event)
	assert.Equal(t, "no tags", events[6].Extra["reason"])

	assert.Equal(t, LevelError, events[7].Level)
	assert.Equal(t, "disk full", events[7].Error)
}

func TestEventLogger_NullLogger(t *testing.T) {
	logger := NullLogger()

	assert.NoError(t, logger.Log(&Event{Level: LevelInfo, Event: EventScan}))
	assert.NoError(t, logger.LogIngest("local", "rev", 1, 1, 0))
	assert.NoError(t, logger.Close())
	assert.Empty(t, logger.Path())
}

func TestEventLogger_AutoTimestamp(t *testing.T) {
	logger := newTestLogger(t, LevelDebug)

	require.NoError(t, logger.Log(&Event{Level: LevelInfo, Event: EventScan}))
	logger.Close()

	events := readEvents(t, logger.Path())
	require.Len(t, events, 1)
	assert.False(t, events[0].Timestamp.IsZero(), "timestamp is set automatically")
	assert.WithinDuration(t, time.Now(), events[0].Timestamp, 5*time.Second)
}

func TestEventLogger_LogLevelFiltering(t *testing.T) {
	all := []Event{
		{Level: LevelDebug, Event: EventSkip},
		{Level: LevelInfo, Event: EventIngest},
		{Level: LevelWarning, Event: EventWipe},
		{Level: LevelError, Event: EventError},
	}

	testCases := []struct {
		name          string
		minLevel      EventLevel
		expectedCount int
	}{
		{"LevelDebug logs all", LevelDebug, 4},
		{"LevelInfo skips debug", LevelInfo, 3},
		{"LevelWarning skips debug and info", LevelWarning, 2},
		{"LevelError only logs errors", LevelError, 1},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			logger := newTestLogger(t, tc.minLevel)
			for _, e := range all {
				require.NoError(t, logger.Log(&e))
			}
			logger.Close()

			assert.Len(t, readEvents(t, logger.Path()), tc.expectedCount)
		})
	}
}

func TestParseLevel(t *testing.T) {
	tests := map[string]EventLevel{
		"debug":   LevelDebug,
		"warning": LevelWarning,
		"error":   LevelError,
		"":        LevelInfo,
		"loud":    LevelInfo,
	}
	for in, want := range tests {
		assert.Equal(t, want, ParseLevel(in), "ParseLevel(%q)", in)
	}
}
