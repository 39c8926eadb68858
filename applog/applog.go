// Package applog provides general-purpose application logging.
//
// Logs are JSON lines written by zerolog to ~/.asksql/logs/app.log.
// Covers: start/stop, connections, schema lookups, executions and errors.
// The TUI owns the terminal, so nothing is ever written to stdout/stderr.
package applog

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

var (
	mu     sync.RWMutex
	logger = zerolog.Nop()
	files  []*os.File
)

// Init opens ~/.asksql/logs/app.log and makes it the default sink.
// Failure to open the file leaves logging disabled.
func Init(level string) error {
	f, err := OpenFile("app.log")
	if err != nil {
		return err
	}
	SetOutput(f, level)
	mu.Lock()
	files = append(files, f)
	mu.Unlock()
	return nil
}

// OpenFile opens (creating if needed) a log file under ~/.asksql/logs.
func OpenFile(name string) (*os.File, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, err
	}
	logDir := filepath.Join(homeDir, ".asksql", "logs")
	if err := os.MkdirAll(logDir, 0o700); err != nil {
		return nil, err
	}
	return os.OpenFile(filepath.Join(logDir, name), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
}

// New builds a zerolog logger writing to w at the given level.
func New(w io.Writer, level string) zerolog.Logger {
	if w == nil {
		w = io.Discard
	}
	return zerolog.New(w).
		Level(ParseLevel(level)).
		With().
		Timestamp().
		Str("app", "asksql").
		Logger()
}

// SetOutput replaces the default logger.
func SetOutput(w io.Writer, level string) {
	l := New(w, level)
	mu.Lock()
	logger = l
	mu.Unlock()
}

// ParseLevel maps a level name to a zerolog level; unknown names mean info.
func ParseLevel(level string) zerolog.Level {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || level == "" {
		return zerolog.InfoLevel
	}
	return lvl
}

// Logger returns the default logger.
func Logger() *zerolog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	l := logger
	return &l
}

// Info logs a general info message.
func Info(format string, args ...interface{}) {
	Logger().Info().Msg(fmt.Sprintf(format, args...))
}

// Error logs an error message.
func Error(format string, args ...interface{}) {
	Logger().Error().Msg(fmt.Sprintf(format, args...))
}

// Event logs a message tagged with a category.
func Event(category string, format string, args ...interface{}) {
	Logger().Info().Str("category", category).Msg(fmt.Sprintf(format, args...))
}

// Timed logs how long an operation took, with its outcome.
func Timed(category, op string, start time.Time, err error) {
	l := Logger()
	ev := l.Info()
	if err != nil {
		ev = l.Error().Err(err)
	}
	ev.Str("category", category).
		Str("op", op).
		Dur("elapsed", time.Since(start)).
		Msg(op)
}

// Close flushes and closes the log files opened by Init.
func Close() {
	mu.Lock()
	defer mu.Unlock()
	for _, f := range files {
		f.Close()
	}
	files = nil
	logger = zerolog.Nop()
}
