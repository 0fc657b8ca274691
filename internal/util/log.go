package util

import (
	"io"
	"os"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/muesli/termenv"
)

// LogLevel represents the severity of a log message
type LogLevel int

const (
	LevelDebug LogLevel = iota
	LevelInfo
	LevelWarn
	LevelError
)

var (
	logMu           sync.RWMutex
	currentLogLevel = LevelInfo

	logger        = newLogger(os.Stderr, "")
	successLogger = newLogger(os.Stderr, "OK")
)

func newLogger(w io.Writer, prefix string) *log.Logger {
	return log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      "15:04:05",
		Level:           log.DebugLevel,
		Prefix:          prefix,
	})
}

// SetLogLevel sets the minimum log level to display
func SetLogLevel(level LogLevel) {
	logMu.Lock()
	defer logMu.Unlock()
	currentLogLevel = level
}

// SetVerbose enables verbose (debug) logging
func SetVerbose(verbose bool) {
	if verbose {
		SetLogLevel(LevelDebug)
	}
}

// SetQuiet enables quiet mode (errors only)
func SetQuiet(quiet bool) {
	if quiet {
		SetLogLevel(LevelError)
	}
}

// IsQuiet reports whether only errors are being logged
func IsQuiet() bool {
	return level() >= LevelError
}

// SetColors enables or disables colored output
func SetColors(enabled bool) {
	profile := termenv.Ascii
	if enabled {
		profile = termenv.ANSI
	}
	logger.SetColorProfile(profile)
	successLogger.SetColorProfile(profile)
}

// SetOutput redirects log output, mostly for tests
func SetOutput(w io.Writer) {
	logger.SetOutput(w)
	successLogger.SetOutput(w)
}

func level() LogLevel {
	logMu.RLock()
	defer logMu.RUnlock()
	return currentLogLevel
}

// DebugLog logs debug messages
func DebugLog(format string, args ...interface{}) {
	if level() <= LevelDebug {
		logger.Debugf(format, args...)
	}
}

// InfoLog logs informational messages
func InfoLog(format string, args ...interface{}) {
	if level() <= LevelInfo {
		logger.Infof(format, args...)
	}
}

// WarnLog logs warning messages
func WarnLog(format string, args ...interface{}) {
	if level() <= LevelWarn {
		logger.Warnf(format, args...)
	}
}

// ErrorLog logs error messages
func ErrorLog(format string, args ...interface{}) {
	if level() <= LevelError {
		logger.Errorf(format, args...)
	}
}

// SuccessLog logs success messages (always shown unless quiet)
func SuccessLog(format string, args ...interface{}) {
	if level() <= LevelInfo {
		successLogger.Infof(format, args...)
	}
}
