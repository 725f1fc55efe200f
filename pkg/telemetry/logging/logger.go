package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

// LogFormat represents the output format for logs.
type LogFormat string

const (
	// FormatJSON outputs logs in JSON format.
	FormatJSON LogFormat = "json"
	// FormatText outputs logs in plain text format.
	FormatText LogFormat = "text"
	// FormatConsole outputs logs in human-readable console format.
	FormatConsole LogFormat = "console"
)

// Config contains configuration for the logger.
type Config struct {
	// Level is the minimum log level ("debug", "info", "warn", "error")
	Level string

	// Format is the output format ("json", "text", "console")
	Format string

	// AddSource includes file and line number in logs
	AddSource bool

	// RedactSecrets enables credential and PII redaction
	RedactSecrets bool

	// RedactPatterns contains custom redaction patterns
	RedactPatterns []RedactPattern

	// Writer is the output writer (defaults to os.Stderr)
	Writer io.Writer
}

// New creates a *slog.Logger with the given configuration.
func New(cfg Config) (*slog.Logger, error) {
	handler, err := NewHandler(cfg)
	if err != nil {
		return nil, err
	}
	return slog.New(handler), nil
}

// NewHandler creates the slog handler used by New. Records are enriched
// with the request fields stored in the context and, when enabled,
// redacted before they reach the output.
func NewHandler(cfg Config) (slog.Handler, error) {
	level, err := ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level: %w", err)
	}

	format, err := parseFormat(cfg.Format)
	if err != nil {
		return nil, fmt.Errorf("invalid log format: %w", err)
	}

	writer := cfg.Writer
	if writer == nil {
		writer = os.Stderr
	}

	var redactor *Redactor
	if cfg.RedactSecrets {
		redactor, err = NewRedactor(cfg.RedactPatterns)
		if err != nil {
			return nil, err
		}
	}

	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: cfg.AddSource,
	}

	var inner slog.Handler
	switch format {
	case FormatText, FormatConsole:
		inner = slog.NewTextHandler(writer, opts)
	default:
		inner = slog.NewJSONHandler(writer, opts)
	}

	return &handler{inner: inner, redactor: redactor}, nil
}

// handler wraps a slog.Handler with context enrichment and redaction.
type handler struct {
	inner    slog.Handler
	redactor *Redactor
}

func (h *handler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

func (h *handler) Handle(ctx context.Context, r slog.Record) error {
	out := slog.NewRecord(r.Time, r.Level, h.redactor.RedactString(r.Message), r.PC)

	for _, field := range argsToAttrs(contextFields(ctx)) {
		out.AddAttrs(field)
	}
	r.Attrs(func(a slog.Attr) bool {
		out.AddAttrs(h.redactAttr(a))
		return true
	})

	return h.inner.Handle(ctx, out)
}

func (h *handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	redacted := make([]slog.Attr, len(attrs))
	for i, a := range attrs {
		redacted[i] = h.redactAttr(a)
	}
	return &handler{inner: h.inner.WithAttrs(redacted), redactor: h.redactor}
}

func (h *handler) WithGroup(name string) slog.Handler {
	return &handler{inner: h.inner.WithGroup(name), redactor: h.redactor}
}

// redactAttr redacts one attribute, recursing into groups.
func (h *handler) redactAttr(a slog.Attr) slog.Attr {
	if h.redactor == nil {
		return a
	}

	v := a.Value.Resolve()
	switch v.Kind() {
	case slog.KindGroup:
		group := v.Group()
		redacted := make([]any, len(group))
		for i, ga := range group {
			redacted[i] = h.redactAttr(ga)
		}
		return slog.Group(a.Key, redacted...)
	case slog.KindString:
		if IsSensitiveKey(a.Key) {
			return slog.String(a.Key, RedactAPIKey(v.String()))
		}
		return slog.String(a.Key, h.redactor.RedactString(v.String()))
	case slog.KindAny:
		if err, ok := v.Any().(error); ok {
			return slog.String(a.Key, h.redactor.RedactString(err.Error()))
		}
		if s, ok := v.Any().(fmt.Stringer); ok {
			return slog.String(a.Key, h.redactor.RedactString(s.String()))
		}
		if IsSensitiveKey(a.Key) {
			return slog.String(a.Key, "***")
		}
		return slog.Attr{Key: a.Key, Value: v}
	default:
		return slog.Attr{Key: a.Key, Value: v}
	}
}

func argsToAttrs(args []any) []slog.Attr {
	attrs := make([]slog.Attr, 0, len(args)/2)
	for i := 0; i+1 < len(args); i += 2 {
		key, _ := args[i].(string)
		attrs = append(attrs, slog.Any(key, args[i+1]))
	}
	return attrs
}

// ParseLevel parses a log level string into slog.Level.
func ParseLevel(levelStr string) (slog.Level, error) {
	switch strings.ToLower(levelStr) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level: %s", levelStr)
	}
}

// parseFormat parses a log format string into LogFormat.
func parseFormat(formatStr string) (LogFormat, error) {
	switch strings.ToLower(formatStr) {
	case "json", "":
		return FormatJSON, nil
	case "text":
		return FormatText, nil
	case "console":
		return FormatConsole, nil
	default:
		return FormatJSON, fmt.Errorf("unknown log format: %s", formatStr)
	}
}
