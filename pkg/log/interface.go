// Package log provides the structured logging interface of the risk
// assessment pipeline.
//
// Pipeline stages log through the Logger interface and never through a
// concrete backend, so tests can swap in a TestLogger and the command line
// can choose between console and JSON output. The default implementation is
// backed by rs/zerolog.
//
// Example usage:
//
//	logger := log.GetLoggerWithName("assessment").With(log.RunIDKey, runID)
//	logger.Info("Data loaded",
//	    log.DataPathKey, path,
//	    log.SamplesKey, table.Nrow(),
//	)
package log

import (
	"context"
)

// Logger is a structured, leveled logger.
//
// Fields are alternating key/value pairs. Error additionally accepts an error
// as the first field, which is logged under ErrorKey together with its stack
// trace when one was recorded.
type Logger interface {
	Debug(msg string, fields ...any)
	Info(msg string, fields ...any)
	Warn(msg string, fields ...any)

	// Error logs at error level.
	//
	//	logger.Error("Data loading failed", err,
	//	    log.DataPathKey, path,
	//	)
	Error(msg string, fields ...any)

	// With returns a Logger that adds fields to every entry.
	With(fields ...any) Logger

	// Enabled reports whether entries at level are emitted.
	Enabled(ctx context.Context, level Level) bool
}

// Level is a logging level. Values follow log/slog.
type Level int

const (
	LevelDebug Level = -4
	LevelInfo  Level = 0
	LevelWarn  Level = 4
	LevelError Level = 8
)

func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// LoggerProvider creates loggers. It allows injecting a TestLoggerProvider
// where a component would otherwise use the global logger.
type LoggerProvider interface {
	GetLogger() Logger
	GetLoggerWithName(name string) Logger
	SetLevel(level Level)
}

// splitError separates a leading error from the key/value fields.
func splitError(fields []any) (error, []any) {
	if len(fields) == 0 {
		return nil, fields
	}
	if err, ok := fields[0].(error); ok {
		return err, fields[1:]
	}
	return nil, fields
}
