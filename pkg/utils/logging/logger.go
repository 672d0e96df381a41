package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"

	"github.com/m-mizutani/clog"
)

type contextKey struct{}

var (
	loggerKey       = contextKey{}
	defaultLogger   *slog.Logger
	defaultLoggerMu sync.RWMutex
)

func init() {
	defaultLogger = New(os.Stderr)
}

// Format selects the handler used for log output
type Format string

const (
	FormatConsole Format = "console"
	FormatJSON    Format = "json"
)

type options struct {
	level  slog.Level
	format Format
}

// Option configures a logger created by New
type Option func(*options)

// WithLevel sets the minimum level from a string.
// Accepts: "debug", "info", "warn", "warning", "error" (case-insensitive)
func WithLevel(level string) Option {
	return func(o *options) {
		o.level = parseLevel(level)
	}
}

// WithFormat sets the output format. Unknown formats fall back to console.
func WithFormat(format string) Option {
	return func(o *options) {
		switch Format(strings.ToLower(format)) {
		case FormatJSON:
			o.format = FormatJSON
		default:
			o.format = FormatConsole
		}
	}
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "", "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		if l := Default(); l != nil {
			l.Warn("invalid log level, falling back to info", "level", level)
		}
		return slog.LevelInfo
	}
}

// New creates a new slog.Logger writing to w (stderr if nil)
func New(w io.Writer, opts ...Option) *slog.Logger {
	if w == nil {
		w = os.Stderr
	}

	cfg := &options{
		level:  slog.LevelInfo,
		format: FormatConsole,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	if cfg.format == FormatJSON {
		return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: cfg.level}))
	}

	handler := clog.New(
		clog.WithWriter(w),
		clog.WithLevel(cfg.level),
		clog.WithTimeFmt("15:04:05"),
		clog.WithSource(false),
		clog.WithAttrHook(clog.GoerrHook),
	)

	return slog.New(handler)
}

// Default returns the default logger
func Default() *slog.Logger {
	defaultLoggerMu.RLock()
	defer defaultLoggerMu.RUnlock()
	return defaultLogger
}

// SetDefault sets the default logger
func SetDefault(logger *slog.Logger) {
	defaultLoggerMu.Lock()
	defer defaultLoggerMu.Unlock()
	defaultLogger = logger
}

// With returns a new context with the logger attached
func With(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, logger)
}

// From retrieves the logger from the context.
// If no logger is found, it returns the default logger.
func From(ctx context.Context) *slog.Logger {
	if logger, ok := ctx.Value(loggerKey).(*slog.Logger); ok {
		return logger
	}
	return Default()
}

// ErrAttr returns an attribute for an error, rendered by GoerrHook when the error carries values
func ErrAttr(err error) slog.Attr {
	return slog.Any("error", err)
}
