// Package logging sets up the structured logger and the once-per-process
// warning sink.
//
// The TUI owns stdout, so logs go to a file. Logging is off unless
// CORELAYOUT_DEBUG is set or a log file is passed explicitly:
//
//	CORELAYOUT_DEBUG=1 corelayout
//	corelayout --log-file /tmp/corelayout.log
package logging

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// DebugEnv enables file logging at debug level when non-empty.
const DebugEnv = "CORELAYOUT_DEBUG"

// Options configures New.
type Options struct {
	// File is the log destination. Empty with debug enabled uses DefaultPath.
	File string
	// Level is a zerolog level name; defaults to "debug" when enabled.
	Level string
	Debug bool
}

// DefaultPath returns ~/.corelayout/corelayout.log.
func DefaultPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".corelayout", "corelayout.log")
}

// New builds a logger. When logging is disabled it returns a no-op logger and
// a nil closer.
func New(opts Options) (zerolog.Logger, io.Closer, error) {
	debug := opts.Debug || os.Getenv(DebugEnv) != ""
	path := strings.TrimSpace(opts.File)
	if path == "" && !debug {
		return zerolog.Nop(), nil, nil
	}
	if path == "" {
		path = DefaultPath()
	}

	level := zerolog.DebugLevel
	if opts.Level != "" {
		parsed, err := zerolog.ParseLevel(opts.Level)
		if err != nil {
			return zerolog.Nop(), nil, fmt.Errorf("parse log level: %w", err)
		}
		level = parsed
	}

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return zerolog.Nop(), nil, fmt.Errorf("create log dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
	if err != nil {
		return zerolog.Nop(), nil, fmt.Errorf("open log file: %w", err)
	}

	return NewWriter(f, level), f, nil
}

// NewWriter builds a timestamped logger on w.
func NewWriter(w io.Writer, level zerolog.Level) zerolog.Logger {
	return zerolog.New(w).
		Level(level).
		With().
		Timestamp().
		Str("app", "corelayout").
		Logger()
}

// WithContext attaches logger to ctx.
func WithContext(ctx context.Context, logger zerolog.Logger) context.Context {
	return logger.WithContext(ctx)
}

// FromContext returns the logger carried by ctx, or a disabled logger.
func FromContext(ctx context.Context) *zerolog.Logger {
	return zerolog.Ctx(ctx)
}

// --- Warnings ---

// Warner receives non-fatal configuration concerns.
type Warner interface {
	Warn(key, msg string)
}

// WarnerFunc adapts a function to Warner.
type WarnerFunc func(key, msg string)

// Warn implements Warner.
func (f WarnerFunc) Warn(key, msg string) {
	if f != nil {
		f(key, msg)
	}
}

type logWarner struct {
	log zerolog.Logger
}

func (w logWarner) Warn(key, msg string) {
	w.log.Warn().Str("warning", key).Msg(msg)
}

// LogWarner writes warnings to log.
func LogWarner(log zerolog.Logger) Warner {
	return logWarner{log: log}
}

// Multi fans a warning out to every non-nil warner.
func Multi(warners ...Warner) Warner {
	return WarnerFunc(func(key, msg string) {
		for _, w := range warners {
			if w != nil {
				w.Warn(key, msg)
			}
		}
	})
}

var (
	warnedMu sync.Mutex
	warned   = map[string]time.Time{}
)

// Once wraps w so each key is delivered at most once per process, no matter
// how many wrappers exist.
func Once(w Warner) Warner {
	return WarnerFunc(func(key, msg string) {
		warnedMu.Lock()
		if _, ok := warned[key]; ok {
			warnedMu.Unlock()
			return
		}
		warned[key] = time.Now()
		warnedMu.Unlock()
		if w != nil {
			w.Warn(key, msg)
		}
	})
}

// Warned reports whether key has already been delivered through Once.
func Warned(key string) bool {
	warnedMu.Lock()
	defer warnedMu.Unlock()
	_, ok := warned[key]
	return ok
}

// ResetWarnings forgets delivered keys. Tests only.
func ResetWarnings() {
	warnedMu.Lock()
	defer warnedMu.Unlock()
	warned = map[string]time.Time{}
}
