package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/labstack/echo/v4"
	"gopkg.in/natefinch/lumberjack.v2"
)

const echoKey = "logger"

type ctxKey struct{}

var (
	mu   sync.Mutex
	base *slog.Logger
)

// Options controls where and how much the base logger writes.
type Options struct {
	Component string
	FilePath  string // empty means stdout only
	Level     string
}

// Init configures the global logger. Later calls replace it.
func Init(opts Options) *slog.Logger {
	mu.Lock()
	defer mu.Unlock()

	var w io.Writer = os.Stdout
	if opts.FilePath != "" {
		_ = os.MkdirAll(filepath.Dir(opts.FilePath), 0o755)
		rot := &lumberjack.Logger{
			Filename:   opts.FilePath,
			MaxSize:    50, // MB
			MaxBackups: 3,
			MaxAge:     7, // days
		}
		w = io.MultiWriter(os.Stdout, rot)
	}

	base = NewWithWriter(w, opts.Level).With("component", opts.Component)
	return base
}

// NewWithWriter builds a JSON logger on w. Used by Init and by tests.
func NewWithWriter(w io.Writer, level string) *slog.Logger {
	h := slog.NewJSONHandler(w, &slog.HandlerOptions{Level: ParseLevel(level)})
	return slog.New(h)
}

func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Base returns the global logger, stdout only if Init was never called.
func Base() *slog.Logger {
	mu.Lock()
	defer mu.Unlock()
	if base == nil {
		base = NewWithWriter(os.Stdout, "info").With("component", "app")
	}
	return base
}

// New returns a child of the global logger.
func New(component string) *slog.Logger {
	return Base().With("component", component)
}

func WithCtx(ctx context.Context, l *slog.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, l)
}

// FromCtx fetches a logger from ctx or falls back to the global one.
func FromCtx(ctx context.Context) *slog.Logger {
	if ctx != nil {
		if l, ok := ctx.Value(ctxKey{}).(*slog.Logger); ok && l != nil {
			return l
		}
	}
	return Base()
}

// With stores the request logger on the echo context and on the request context.
func With(c echo.Context, l *slog.Logger) {
	c.Set(echoKey, l)
	req := c.Request()
	c.SetRequest(req.WithContext(WithCtx(req.Context(), l)))
}

// From returns the request-scoped logger, or the global one.
func From(c echo.Context) *slog.Logger {
	if l, ok := c.Get(echoKey).(*slog.Logger); ok && l != nil {
		return l
	}
	return Base()
}
