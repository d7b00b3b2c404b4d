// Package logger provides a simple, clean logging interface.
package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Frames between the public logging method and runtime.Callers.
const callerDepth = 4

// Output formats accepted by WithFormat.
const (
	FormatText = "text"
	FormatJSON = "json"
)

// Logger defines the logging interface.
type Logger interface {
	Info(ctx context.Context, msg string, fields ...Field)
	Error(ctx context.Context, msg string, fields ...Field)
	Debug(ctx context.Context, msg string, fields ...Field)
	Warn(ctx context.Context, msg string, fields ...Field)

	// Named tags every record with a component name.
	Named(name string) Logger
	// With attaches fields to every record.
	With(fields ...Field) Logger
}

// Field is a structured key-value pair.
type Field struct {
	Key   string
	Value any
}

func String(key, val string) Field                 { return Field{Key: key, Value: val} }
func Int(key string, val int) Field                { return Field{Key: key, Value: val} }
func Int64(key string, val int64) Field            { return Field{Key: key, Value: val} }
func Bool(key string, val bool) Field              { return Field{Key: key, Value: val} }
func Duration(key string, val time.Duration) Field { return Field{Key: key, Value: val} }
func Any(key string, val any) Field                { return Field{Key: key, Value: val} }
func Error(err error) Field                        { return Field{Key: "error", Value: err} }

func (f Field) attr() slog.Attr {
	if err, ok := f.Value.(error); ok && err != nil {
		return slog.String(f.Key, err.Error())
	}
	return slog.Any(f.Key, f.Value)
}

type handlerLogger struct {
	sl *slog.Logger
}

func (l *handlerLogger) Named(name string) Logger {
	return &handlerLogger{sl: l.sl.With(slog.String("component", name))}
}

func (l *handlerLogger) With(fields ...Field) Logger {
	args := make([]any, len(fields))
	for i, f := range fields {
		args[i] = f.attr()
	}
	return &handlerLogger{sl: l.sl.With(args...)}
}

func (l *handlerLogger) Info(ctx context.Context, msg string, fields ...Field) {
	l.emit(ctx, slog.LevelInfo, msg, fields)
}

func (l *handlerLogger) Error(ctx context.Context, msg string, fields ...Field) {
	l.emit(ctx, slog.LevelError, msg, fields)
}

func (l *handlerLogger) Debug(ctx context.Context, msg string, fields ...Field) {
	l.emit(ctx, slog.LevelDebug, msg, fields)
}

func (l *handlerLogger) Warn(ctx context.Context, msg string, fields ...Field) {
	l.emit(ctx, slog.LevelWarn, msg, fields)
}

func (l *handlerLogger) emit(ctx context.Context, level slog.Level, msg string, fields []Field) {
	if !l.sl.Enabled(ctx, level) {
		return
	}
	attrs := make([]slog.Attr, 0, len(fields)+1)
	for _, f := range fields {
		attrs = append(attrs, f.attr())
	}
	attrs = append(attrs, slog.String("source", callerLocation()))
	l.sl.LogAttrs(ctx, level, msg, attrs...)
}

var (
	mu       sync.RWMutex
	global   Logger
	levelVar slog.LevelVar
)

// Option configures the global logger handler.
type Option func(*settings)

type settings struct {
	out    io.Writer
	format string
}

// WithOutput redirects log output, e.g. to a buffer in tests.
func WithOutput(w io.Writer) Option {
	return func(s *settings) {
		if w != nil {
			s.out = w
		}
	}
}

// WithFormat selects the handler: "text" (default) or "json".
func WithFormat(format string) Option {
	return func(s *settings) {
		s.format = strings.ToLower(strings.TrimSpace(format))
	}
}

// Init initializes the global logger with text output on stdout.
func Init() error {
	return InitWithOptions()
}

// InitWithOptions initializes the global logger at info level.
func InitWithOptions(opts ...Option) error {
	s := settings{out: os.Stdout, format: FormatText}
	for _, opt := range opts {
		opt(&s)
	}

	hopts := &slog.HandlerOptions{Level: &levelVar}
	var h slog.Handler
	switch s.format {
	case "", FormatText:
		h = slog.NewTextHandler(s.out, hopts)
	case FormatJSON:
		h = slog.NewJSONHandler(s.out, hopts)
	default:
		return fmt.Errorf("unknown log format: %s", s.format)
	}

	levelVar.Set(slog.LevelInfo)
	mu.Lock()
	global = &handlerLogger{sl: slog.New(h)}
	mu.Unlock()
	return nil
}

// Get returns the global logger. It panics before Init.
func Get() Logger {
	mu.RLock()
	defer mu.RUnlock()
	if global == nil {
		panic("logger not initialized. Call logger.Init() first")
	}
	return global
}

// Named creates a named logger.
func Named(name string) Logger {
	return Get().Named(name)
}

// Sync flushes buffered log entries. slog handlers write through.
func Sync() error { return nil }

// SetLevel updates the level of the global handler.
func SetLevel(level slog.Level) { levelVar.Set(level) }

// SetLevelString parses and sets the logging level: debug, info,
// warn/warning or error, case-insensitive. Empty means info.
func SetLevelString(level string) error {
	level = strings.TrimSpace(level)
	switch strings.ToLower(level) {
	case "":
		level = "info"
	case "warning":
		level = "warn"
	}
	var l slog.Level
	if err := l.UnmarshalText([]byte(level)); err != nil {
		return fmt.Errorf("unknown log level: %s", level)
	}
	SetLevel(l)
	return nil
}

var workDir = sync.OnceValue(func() string { //nolint:gochecknoglobals // cached once per process
	wd, _ := os.Getwd()
	return wd
})

// callerLocation returns the call site as relative/path/file.go:line.
func callerLocation() string {
	pcs := make([]uintptr, 1)
	if runtime.Callers(callerDepth, pcs) == 0 {
		return "unknown:0"
	}
	frame, _ := runtime.CallersFrames(pcs).Next()
	file := frame.File
	if wd := workDir(); wd != "" {
		if rel, err := filepath.Rel(wd, file); err == nil {
			file = rel
		}
	} else {
		file = filepath.Base(file)
	}
	return file + ":" + strconv.Itoa(frame.Line)
}
