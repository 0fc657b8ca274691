package report

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/goccy/go-json"
)

// EventType represents the type of event
type EventType string

const (
	EventScan   EventType = "scan"
	EventIngest EventType = "ingest"
	EventWipe   EventType = "wipe"
	EventLove   EventType = "love"
	EventUnlove EventType = "unlove"
	EventWatch  EventType = "watch"
	EventSkip   EventType = "skip"
	EventError  EventType = "error"
)

// EventLevel represents the severity level
type EventLevel string

const (
	LevelDebug   EventLevel = "debug"
	LevelInfo    EventLevel = "info"
	LevelWarning EventLevel = "warning"
	LevelError   EventLevel = "error"
)

// levelPriority maps event levels to numeric priorities for comparison
var levelPriority = map[EventLevel]int{
	LevelDebug:   0,
	LevelInfo:    1,
	LevelWarning: 2,
	LevelError:   3,
}

// ParseLevel maps a level name to an EventLevel, defaulting to info
func ParseLevel(s string) EventLevel {
	if _, ok := levelPriority[EventLevel(s)]; ok {
		return EventLevel(s)
	}
	return LevelInfo
}

// Event represents a single event in the collection's history
type Event struct {
	Timestamp  time.Time         `json:"ts"`
	Level      EventLevel        `json:"level"`
	Event      EventType         `json:"event"`
	Collection string            `json:"collection,omitempty"`
	SrcPath    string            `json:"src_path,omitempty"`
	Revision   string            `json:"revision,omitempty"`
	Action     string            `json:"action,omitempty"`
	Tracks     int               `json:"tracks,omitempty"`
	Duration   int64             `json:"duration_ms,omitempty"` // in milliseconds
	Error      string            `json:"error,omitempty"`
	Extra      map[string]string `json:"extra,omitempty"`
}

// EventLogger writes events to a JSONL file
type EventLogger struct {
	file     *os.File
	encoder  *json.Encoder
	mu       sync.Mutex
	path     string
	minLevel EventLevel
}

// NewEventLogger creates a new event logger with a minimum log level
// minLevel determines which events are written (e.g., LevelInfo skips LevelDebug)
func NewEventLogger(outputDir string, minLevel EventLevel) (*EventLogger, error) {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	timestamp := time.Now().Format("20060102-150405")
	path := filepath.Join(outputDir, fmt.Sprintf("events-%s.jsonl", timestamp))

	// Append so two runs within the same second share a file
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to create event log: %w", err)
	}

	return &EventLogger{
		file:     file,
		encoder:  json.NewEncoder(file),
		path:     path,
		minLevel: minLevel,
	}, nil
}

// Log writes an event to the JSONL file
func (l *EventLogger) Log(event *Event) error {
	if l == nil || l.file == nil {
		return nil
	}

	if levelPriority[event.Level] < levelPriority[l.minLevel] {
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	if err := l.encoder.Encode(event); err != nil {
		return fmt.Errorf("failed to encode event: %w", err)
	}
	return nil
}

// LogScan logs a finished scan of root
func (l *EventLogger) LogScan(collection, root string, filesFound, tracks int, duration time.Duration) error {
	return l.Log(&Event{
		Level:      LevelInfo,
		Event:      EventScan,
		Collection: collection,
		SrcPath:    root,
		Tracks:     tracks,
		Duration:   duration.Milliseconds(),
		Extra: map[string]string{
			"files_found": strconv.Itoa(filesFound),
		},
	})
}

// LogIngest logs a batch ingest and the revision it produced
func (l *EventLogger) LogIngest(collection, revision string, batch, added int, duration time.Duration) error {
	return l.Log(&Event{
		Level:      LevelInfo,
		Event:      EventIngest,
		Collection: collection,
		Revision:   revision,
		Action:     "ADD_TRACKS",
		Tracks:     added,
		Duration:   duration.Milliseconds(),
		Extra: map[string]string{
			"batch_size": strconv.Itoa(batch),
		},
	})
}

// LogWipe logs a collection wipe
func (l *EventLogger) LogWipe(collection, revision string) error {
	return l.Log(&Event{
		Level:      LevelWarning,
		Event:      EventWipe,
		Collection: collection,
		Revision:   revision,
		Action:     "WIPE",
	})
}

// LogLove logs a love or unlove of an artist, album or track
func (l *EventLogger) LogLove(collection, kind, name string, loved bool) error {
	event, action := EventLove, "LOVE"
	if !loved {
		event, action = EventUnlove, "UNLOVE"
	}
	return l.Log(&Event{
		Level:      LevelInfo,
		Event:      event,
		Collection: collection,
		Action:     action,
		Extra: map[string]string{
			"kind": kind,
			"name": name,
		},
	})
}

// LogWatch logs a batch of changed files picked up by the watcher
func (l *EventLogger) LogWatch(collection string, paths []string) error {
	return l.Log(&Event{
		Level:      LevelDebug,
		Event:      EventWatch,
		Collection: collection,
		Tracks:     len(paths),
	})
}

// LogSkip logs a file the scanner could not turn into a track
func (l *EventLogger) LogSkip(srcPath, reason string) error {
	return l.Log(&Event{
		Level:   LevelDebug,
		Event:   EventSkip,
		SrcPath: srcPath,
		Extra: map[string]string{
			"reason": reason,
		},
	})
}

// LogError logs an error event
func (l *EventLogger) LogError(event EventType, srcPath string, err error) error {
	return l.Log(&Event{
		Level:   LevelError,
		Event:   event,
		SrcPath: srcPath,
		Error:   err.Error(),
	})
}

// Close closes the event log file
func (l *EventLogger) Close() error {
	if l == nil || l.file == nil {
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	return l.file.Close()
}

// Path returns the path to the event log file
func (l *EventLogger) Path() string {
	if l == nil {
		return ""
	}
	return l.path
}

// NullLogger returns a no-op event logger
func NullLogger() *EventLogger {
	return nil
}
