// logging.go - structured logging for the runtime and selector, backed by
// logiface/stumpy.
//
// Design: a package-level global variable is appropriate here because
// logging is an infrastructure cross-cutting concern shared by every
// Runtime; per-instance logging configuration would add surface area for
// no practical benefit given Runtime is a process-singleton-shaped type.

package corovisor

import (
	"io"
	"sync"

	"github.com/joeycumines/logiface"
	"github.com/joeycumines/stumpy"
)

// LogLevel mirrors logiface.Level, giving corovisor callers a stable,
// package-local type independent of the logging backend.
type LogLevel = logiface.Level

const (
	LevelTrace   LogLevel = logiface.LevelTrace
	LevelDebug   LogLevel = logiface.LevelDebug
	LevelInfo    LogLevel = logiface.LevelInformational
	LevelWarn    LogLevel = logiface.LevelWarning
	LevelError   LogLevel = logiface.LevelError
	LevelDisabled LogLevel = logiface.LevelDisabled
)

// Logger is the structured logging interface used throughout corovisor.
// NewStumpyLogger wraps a logiface.Logger[*stumpy.Event] to satisfy it; a
// NoOpLogger is the zero-overhead default.
type Logger interface {
	// Event starts a structured log entry at the given level and category
	// (e.g. "scheduler", "selector", "channel", "timer"). Returns nil if
	// the level is disabled, in which case callers must skip field calls.
	Event(level LogLevel, category string) LogEvent
	IsEnabled(level LogLevel) bool
}

// LogEvent is a single structured log entry under construction. Logger.Event
// returns a nil LogEvent interface when the level is disabled; calling a
// method on it panics, so callers check the result for nil before chaining.
type LogEvent interface {
	Str(key, val string) LogEvent
	Int(key string, val int) LogEvent
	Err(err error) LogEvent
	Msg(msg string)
}

// stumpyLogger adapts a *logiface.Logger[*stumpy.Event] to the Logger
// interface.
type stumpyLogger struct {
	l *logiface.Logger[*stumpy.Event]
}

// NewStumpyLogger constructs a Logger backed by stumpy, logiface's
// reference JSON event logger, writing to w at the given minimum level.
func NewStumpyLogger(w io.Writer, level LogLevel) Logger {
	return &stumpyLogger{
		l: logiface.New[*stumpy.Event](
			stumpy.WithStumpy(stumpy.WithWriter(w)),
			logiface.WithLevel[*stumpy.Event](level),
		),
	}
}

func (s *stumpyLogger) IsEnabled(level LogLevel) bool {
	return level <= s.l.Level()
}

func (s *stumpyLogger) Event(level LogLevel, category string) LogEvent {
	b := s.l.Build(level)
	if b == nil || !b.Enabled() {
		return nil
	}
	return &stumpyEvent{b: b.Str("category", category)}
}

type stumpyEvent struct {
	b *logiface.Builder[*stumpy.Event]
}

func (e *stumpyEvent) Str(key, val string) LogEvent {
	if e == nil {
		return nil
	}
	e.b = e.b.Str(key, val)
	return e
}

func (e *stumpyEvent) Int(key string, val int) LogEvent {
	if e == nil {
		return nil
	}
	e.b = e.b.Int(key, val)
	return e
}

func (e *stumpyEvent) Err(err error) LogEvent {
	if e == nil {
		return nil
	}
	e.b = e.b.Err(err)
	return e
}

func (e *stumpyEvent) Msg(msg string) {
	if e == nil {
		return
	}
	e.b.Log(msg)
}

// NoOpLogger discards everything; it is the Logger a Runtime uses when
// neither WithLogger nor SetStructuredLogger has supplied one.
type NoOpLogger struct{}

func NewNoOpLogger() *NoOpLogger { return &NoOpLogger{} }

func (l *NoOpLogger) IsEnabled(LogLevel) bool       { return false }
func (l *NoOpLogger) Event(LogLevel, string) LogEvent { return nil }

var (
	globalLogger struct {
		sync.RWMutex
		logger Logger
	}
)

// SetStructuredLogger sets the package-level default logger, used by
// Runtimes constructed without an explicit WithLogger option.
func SetStructuredLogger(logger Logger) {
	globalLogger.Lock()
	defer globalLogger.Unlock()
	globalLogger.logger = logger
}

func getGlobalLogger() Logger {
	globalLogger.RLock()
	defer globalLogger.RUnlock()
	if globalLogger.logger != nil {
		return globalLogger.logger
	}
	return NewNoOpLogger()
}
