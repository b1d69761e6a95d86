package log

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

// Logger wraps slog.Logger with a component name
type Logger struct {
	*slog.Logger
	base      slog.Handler
	component string
}

// Config holds logger configuration
type Config struct {
	Level     slog.Level
	Format    string // "text" or "json"
	Component string
	Output    io.Writer
	Handler   slog.Handler
}

// DefaultConfig returns sensible defaults for logging
func DefaultConfig() Config {
	return Config{
		Level:     slog.LevelInfo,
		Format:    "text",
		Component: ComponentApp,
		Output:    os.Stdout,
	}
}

// ParseLevel maps debug, info, warn and error to slog levels.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level %q", s)
	}
}

// New creates a new logger with the given configuration
func New(config Config) *Logger {
	handler := config.Handler
	if handler == nil {
		out := config.Output
		if out == nil {
			out = os.Stdout
		}
		opts := &slog.HandlerOptions{Level: config.Level}
		if strings.EqualFold(config.Format, "json") {
			handler = slog.NewJSONHandler(out, opts)
		} else {
			handler = slog.NewTextHandler(out, opts)
		}
	}

	component := config.Component
	if component == "" {
		component = ComponentApp
	}

	return &Logger{
		Logger:    slog.New(handler).With(FieldComponent, component),
		base:      handler,
		component: component,
	}
}

// With returns a new logger with the given attributes
func (l *Logger) With(args ...any) *Logger {
	return &Logger{
		Logger:    l.Logger.With(args...),
		base:      l.base,
		component: l.component,
	}
}

// WithComponent returns a new logger for a different component.
// Attributes added through With are not carried over.
func (l *Logger) WithComponent(component string) *Logger {
	base := l.base
	if base == nil {
		base = l.Logger.Handler()
	}
	return &Logger{
		Logger:    slog.New(base).With(FieldComponent, component),
		base:      base,
		component: component,
	}
}

// ErrorContextFields logs at Error level with a LogFields set
func (l *Logger) ErrorContextFields(ctx context.Context, msg string, fields LogFields) {
	l.Logger.ErrorContext(ctx, msg, fields.ToSlice()...)
}

// SetDefault sets the default logger for the application
func SetDefault(logger *Logger) {
	slog.SetDefault(logger.Logger)
}

// Component returns the logger's component name
func (l *Logger) Component() string {
	return l.component
}

// Base returns a logger on the same handler without the component
// attribute, for packages that tag their own component.
func (l *Logger) Base() *slog.Logger {
	if l.base == nil {
		return l.Logger
	}
	return slog.New(l.base)
}
