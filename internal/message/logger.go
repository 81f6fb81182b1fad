// Package message carries the two output channels of the tool: structured
// diagnostic logging on stderr, and the user-facing stage messages,
// warnings, and prompts that make up the terminal conversation.
//
// The Logger interface is backed by Go's stdlib slog so that every
// subsystem can log through an injectable handle, with a global default
// for convenience. User output goes through Printer, which owns colour
// handling and the error:/warning: prefixes.
package message

import (
	"io"
	"log/slog"
	"sync"
)

// Logger is the interface for structured diagnostic logging.
// Methods match slog's signature for easy integration.
type Logger interface {
	// Debug logs internal state only useful for troubleshooting, such as
	// candidate index URLs or resolver iterations.
	Debug(msg string, args ...any)

	// Info logs operational context like "fetched Release".
	Info(msg string, args ...any)

	// Warn logs recoverable issues like an MD5 fallback or a failed hook.
	Warn(msg string, args ...any)

	// Error logs failures that abort the pipeline.
	Error(msg string, args ...any)

	// With returns a Logger carrying additional context attributes.
	With(args ...any) Logger
}

type slogLogger struct {
	l *slog.Logger
}

// New creates a Logger writing text records to w. Debug enables DEBUG
// level; the default level is WARN so routine runs stay quiet on stderr.
func New(w io.Writer, debug bool) Logger {
	level := slog.LevelWarn
	if debug {
		level = slog.LevelDebug
	}
	handler := slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})
	return &slogLogger{l: slog.New(handler)}
}

func (s *slogLogger) Debug(msg string, args ...any) {
	s.l.Debug(msg, args...)
}

func (s *slogLogger) Info(msg string, args ...any) {
	s.l.Info(msg, args...)
}

func (s *slogLogger) Warn(msg string, args ...any) {
	s.l.Warn(msg, args...)
}

func (s *slogLogger) Error(msg string, args ...any) {
	s.l.Error(msg, args...)
}

func (s *slogLogger) With(args ...any) Logger {
	return &slogLogger{l: s.l.With(args...)}
}

// noopLogger discards all log output.
type noopLogger struct{}

// NewNoop returns a logger that discards all output.
func NewNoop() Logger {
	return noopLogger{}
}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}
func (noopLogger) With(...any) Logger   { return noopLogger{} }

var (
	defaultLogger Logger = noopLogger{}
	defaultMu     sync.RWMutex
)

// Default returns the global logger configured at startup. Returns a noop
// logger if SetDefault has not been called.
func Default() Logger {
	defaultMu.RLock()
	defer defaultMu.RUnlock()
	return defaultLogger
}

// SetDefault sets the global logger. Called once during startup after the
// debug flag is known.
func SetDefault(l Logger) {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	defaultLogger = l
}
