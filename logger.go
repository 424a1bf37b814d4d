package dynamicstore

import (
	"os"

	"github.com/rs/zerolog"
)

// Logger is the interface for logging in dynamicstore. Users can provide
// custom logger implementations.
type Logger interface {
	// Debug logs a debug message with optional fields.
	Debug(msg string, fields ...Field)

	// Info logs an info message with optional fields.
	Info(msg string, fields ...Field)

	// Warn logs a warning message with optional fields.
	Warn(msg string, fields ...Field)

	// Error logs an error message with optional fields.
	Error(msg string, fields ...Field)
}

// zerologLogger is the default logger implementation, writing structured
// console output via zerolog.
type zerologLogger struct {
	logger zerolog.Logger
}

// NewDefaultLogger creates a new default logger that writes to stderr.
func NewDefaultLogger() Logger {
	return &zerologLogger{
		logger: zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger(),
	}
}

func (l *zerologLogger) Debug(msg string, fields ...Field) { l.event(l.logger.Debug(), fields).Msg(msg) }
func (l *zerologLogger) Info(msg string, fields ...Field)  { l.event(l.logger.Info(), fields).Msg(msg) }
func (l *zerologLogger) Warn(msg string, fields ...Field)  { l.event(l.logger.Warn(), fields).Msg(msg) }
func (l *zerologLogger) Error(msg string, fields ...Field) { l.event(l.logger.Error(), fields).Msg(msg) }

func (l *zerologLogger) event(e *zerolog.Event, fields []Field) *zerolog.Event {
	for _, f := range fields {
		e = e.Interface(f.Key, f.Value)
	}
	return e
}

// noopLogger is a logger that does nothing. Useful for testing.
type noopLogger struct{}

// NewNoopLogger creates a logger that discards all log messages.
func NewNoopLogger() Logger {
	return &noopLogger{}
}

func (l *noopLogger) Debug(msg string, fields ...Field) {}
func (l *noopLogger) Info(msg string, fields ...Field)  {}
func (l *noopLogger) Warn(msg string, fields ...Field)  {}
func (l *noopLogger) Error(msg string, fields ...Field) {}
