package log

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"

	pkgerrors "github.com/YuminosukeSato/riskassess/pkg/errors"
)

// ZerologLogger implements Logger on top of zerolog.
type ZerologLogger struct {
	zl    zerolog.Logger
	level Level
}

// NewZerologLogger returns a logger writing JSON lines to w.
func NewZerologLogger(w io.Writer, level Level) *ZerologLogger {
	zl := zerolog.New(w).Level(toZerologLevel(level)).With().Timestamp().Logger()
	return &ZerologLogger{zl: zl, level: level}
}

// NewConsoleLogger returns a logger writing human-readable lines to w.
func NewConsoleLogger(w io.Writer, level Level) *ZerologLogger {
	cw := zerolog.ConsoleWriter{Out: w, TimeFormat: time.DateTime}
	zl := zerolog.New(cw).Level(toZerologLevel(level)).With().Timestamp().Logger()
	return &ZerologLogger{zl: zl, level: level}
}

func (l *ZerologLogger) Debug(msg string, fields ...any) { l.emit(l.zl.Debug(), msg, fields) }
func (l *ZerologLogger) Info(msg string, fields ...any)  { l.emit(l.zl.Info(), msg, fields) }
func (l *ZerologLogger) Warn(msg string, fields ...any)  { l.emit(l.zl.Warn(), msg, fields) }
func (l *ZerologLogger) Error(msg string, fields ...any) { l.emit(l.zl.Error(), msg, fields) }

// With implements Logger.With.
func (l *ZerologLogger) With(fields ...any) Logger {
	return &ZerologLogger{zl: l.zl.With().Fields(normalize(fields)).Logger(), level: l.level}
}

// Enabled implements Logger.Enabled.
func (l *ZerologLogger) Enabled(_ context.Context, level Level) bool {
	return level >= l.level
}

func (l *ZerologLogger) emit(e *zerolog.Event, msg string, fields []any) {
	if e == nil {
		return
	}
	err, rest := splitError(fields)
	if err != nil {
		e = e.AnErr(ErrorKey, err)
		if kind := pkgerrors.KindOf(err); kind != pkgerrors.KindUnknown {
			e = e.Str(ErrorKindKey, kind.String())
		}
		if st := extractStacktrace(err); st != "" {
			e = e.Str(StacktraceKey, st)
		}
		var m zerolog.LogObjectMarshaler
		if errors.As(err, &m) {
			e = e.Object("detail", m)
		}
	}
	e.Fields(normalize(rest)).Msg(msg)
}

// normalize stringifies errors nested in key/value fields and drops a
// dangling key.
func normalize(fields []any) []any {
	if len(fields)%2 == 1 {
		fields = fields[:len(fields)-1]
	}
	out := make([]any, len(fields))
	for i, f := range fields {
		if i%2 == 0 {
			out[i] = fmt.Sprint(f)
			continue
		}
		if err, ok := f.(error); ok {
			out[i] = err.Error()
			continue
		}
		out[i] = f
	}
	return out
}

// extractStacktrace returns the first safe detail recorded by
// cockroachdb/errors, which holds the stack of WithStack.
func extractStacktrace(err error) string {
	safeDetails := errors.GetSafeDetails(err).SafeDetails
	if len(safeDetails) > 0 {
		return safeDetails[0]
	}
	return ""
}

func toZerologLevel(level Level) zerolog.Level {
	switch {
	case level <= LevelDebug:
		return zerolog.DebugLevel
	case level <= LevelInfo:
		return zerolog.InfoLevel
	case level <= LevelWarn:
		return zerolog.WarnLevel
	default:
		return zerolog.ErrorLevel
	}
}

// ParseLevel converts "debug", "info", "warn" or "error" to a Level.
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug, nil
	case "info", "":
		return LevelInfo, nil
	case "warn", "warning":
		return LevelWarn, nil
	case "error":
		return LevelError, nil
	default:
		return LevelInfo, pkgerrors.NewValidationError("log_level", "must be one of debug, info, warn, error", s)
	}
}

// ===========================================================================
//
//	Global logger
//
// ===========================================================================

var (
	globalMu     sync.RWMutex
	globalLogger Logger = NewConsoleLogger(os.Stderr, LevelInfo)
)

// GetLogger returns the process-wide logger.
func GetLogger() Logger {
	globalMu.RLock()
	defer globalMu.RUnlock()
	return globalLogger
}

// GetLoggerWithName returns the process-wide logger tagged with a component name.
func GetLoggerWithName(name string) Logger {
	return GetLogger().With(ComponentKey, name)
}

// SetLogger replaces the process-wide logger and routes warnings raised via
// pkg/errors.Warn to it.
func SetLogger(l Logger) {
	globalMu.Lock()
	globalLogger = l
	globalMu.Unlock()

	pkgerrors.SetZerologWarnFunc(func(w error) {
		l.Warn("riskassess warning", w)
	})
}

// SetupLogger installs a zerolog logger at the named level. JSON output is
// chosen when json is true, console output otherwise.
func SetupLogger(level string, w io.Writer, json bool) error {
	lvl, err := ParseLevel(level)
	if err != nil {
		return err
	}
	if json {
		SetLogger(NewZerologLogger(w, lvl))
	} else {
		SetLogger(NewConsoleLogger(w, lvl))
	}
	return nil
}

// ZerologProvider implements LoggerProvider with zerolog loggers.
type ZerologProvider struct {
	mu    sync.Mutex
	w     io.Writer
	level Level
}

// NewZerologProvider creates a provider writing JSON lines to w.
func NewZerologProvider(w io.Writer, level Level) *ZerologProvider {
	return &ZerologProvider{w: w, level: level}
}

func (p *ZerologProvider) GetLogger() Logger {
	p.mu.Lock()
	defer p.mu.Unlock()
	return NewZerologLogger(p.w, p.level)
}

func (p *ZerologProvider) GetLoggerWithName(name string) Logger {
	return p.GetLogger().With(ComponentKey, name)
}

func (p *ZerologProvider) SetLevel(level Level) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.level = level
}
