// logger.go records every model interaction in ~/.asksql/logs/ai.log.
//
// One JSON line per request and per response. The log is opened lazily on
// first use; if it cannot be opened, AI logging is silently disabled.
package ai

import (
	"io"
	"sync"
	"time"

	"github.com/DachengChen/askSQL/applog"
	"github.com/rs/zerolog"
)

var (
	logMu     sync.Mutex
	logOnce   sync.Once
	aiLogger  = zerolog.Nop()
	logCloser io.Closer
)

func initLog() {
	logOnce.Do(func() {
		f, err := applog.OpenFile("ai.log")
		if err != nil {
			return
		}
		logMu.Lock()
		aiLogger = applog.New(f, "debug").With().Str("component", "ai").Logger()
		logCloser = f
		logMu.Unlock()
	})
}

func logger() zerolog.Logger {
	initLog()
	logMu.Lock()
	defer logMu.Unlock()
	return aiLogger
}

// SetLogOutput redirects the AI log, mainly for tests. It disables the
// lazy file.
func SetLogOutput(w io.Writer) {
	logOnce.Do(func() {})
	logMu.Lock()
	defer logMu.Unlock()
	aiLogger = applog.New(w, "debug").With().Str("component", "ai").Logger()
}

// LogRequest logs an outgoing prompt.
func LogRequest(provider, table, request, prompt string) {
	l := logger()
	l.Info().
		Str("event", "request").
		Str("provider", provider).
		Str("table", table).
		Str("user_request", request).
		Str("prompt", prompt).
		Send()
}

// LogResponse logs the raw reply and the extracted statement.
func LogResponse(provider, raw, query string, elapsed time.Duration, err error) {
	l := logger()
	ev := l.Info()
	if err != nil {
		ev = l.Error().Err(err)
	}
	ev.Str("event", "response").
		Str("provider", provider).
		Dur("elapsed", elapsed).
		Str("raw", raw).
		Str("query", query).
		Send()
}

// CloseLog closes the AI log file, if one was opened.
func CloseLog() {
	logMu.Lock()
	defer logMu.Unlock()
	if logCloser != nil {
		logCloser.Close() //nolint:errcheck
		logCloser = nil
	}
	aiLogger = zerolog.Nop()
}
