package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"testing"
)

func newTestLogger(t *testing.T, cfg Config) (*slog.Logger, *bytes.Buffer) {
	t.Helper()
	var buf bytes.Buffer
	cfg.Writer = &buf
	logger, err := New(cfg)
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	return logger, &buf
}

func decode(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("failed to decode log line %q: %v", buf.String(), err)
	}
	return entry
}

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr bool
	}{
		{"valid JSON config", Config{Level: "info", Format: "json", RedactSecrets: true}, false},
		{"valid text config", Config{Level: "debug", Format: "text"}, false},
		{"valid console config", Config{Level: "WARN", Format: "console"}, false},
		{"defaults", Config{}, false},
		{"invalid log level", Config{Level: "invalid"}, true},
		{"invalid format", Config{Format: "xml"}, true},
		{
			name:    "invalid custom pattern",
			config:  Config{RedactSecrets: true, RedactPatterns: []RedactPattern{{Name: "bad", Pattern: "("}}},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.config.Writer = &bytes.Buffer{}
			_, err := New(tt.config)
			if (err != nil) != tt.wantErr {
				t.Errorf("New() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestLogger_LevelFiltering(t *testing.T) {
	logger, buf := newTestLogger(t, Config{Level: "warn"})

	logger.Info("hidden")
	if buf.Len() != 0 {
		t.Errorf("expected info to be filtered, got %q", buf.String())
	}

	logger.Warn("shown")
	if !strings.Contains(buf.String(), "shown") {
		t.Errorf("expected warn to be written, got %q", buf.String())
	}
}

func TestLogger_ContextFields(t *testing.T) {
	logger, buf := newTestLogger(t, Config{})

	ctx := WithRequestID(context.Background(), "req-123")
	ctx = WithModel(ctx, "groq/llama")
	logger.With("provider", "groq").InfoContext(ctx, "request routed", "attempt", 1)

	entry := decode(t, buf)
	if entry["request_id"] != "req-123" || entry["provider"] != "groq" || entry["model"] != "groq/llama" {
		t.Errorf("expected context fields, got %v", entry)
	}
	if entry["attempt"] != float64(1) {
		t.Errorf("expected attempt field, got %v", entry["attempt"])
	}
}

func TestLogger_Redaction(t *testing.T) {
	tests := []struct {
		name    string
		log     func(l *slog.Logger)
		field   string
		want    string
		leaking string
	}{
		{
			name:    "key in value",
			log:     func(l *slog.Logger) { l.Info("call", "detail", "used sk-abcdefghijklmnop") },
			field:   "detail",
			want:    "used sk-***",
			leaking: "abcdefghijklmnop",
		},
		{
			name:    "groq key in message",
			log:     func(l *slog.Logger) { l.Info("bad key gsk_1234567890abcdef") },
			field:   "msg",
			want:    "bad key sk-***",
			leaking: "1234567890abcdef",
		},
		{
			name:    "sensitive field name",
			log:     func(l *slog.Logger) { l.Info("call", "api_key", "plainsecretvalue") },
			field:   "api_key",
			want:    "plai***",
			leaking: "plainsecretvalue",
		},
		{
			name:    "error value",
			log:     func(l *slog.Logger) { l.Error("call", "error", errors.New("Authorization: Bearer tok.en-123")) },
			field:   "error",
			want:    "Authorization: Bearer ***",
			leaking: "tok.en-123",
		},
		{
			name:    "query parameter",
			log:     func(l *slog.Logger) { l.Info("call", "url", "https://x/v1/models?key=AIzaSecret") },
			field:   "url",
			want:    "https://x/v1/models?key=***",
			leaking: "AIzaSecret",
		},
		{
			name:    "with attrs",
			log:     func(l *slog.Logger) { l.With("token", "abcdefgh").Info("call") },
			field:   "token",
			want:    "abcd***",
			leaking: "abcdefgh",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, buf := newTestLogger(t, Config{RedactSecrets: true})
			tt.log(logger)

			if strings.Contains(buf.String(), tt.leaking) {
				t.Fatalf("secret leaked: %q", buf.String())
			}
			entry := decode(t, buf)
			if entry[tt.field] != tt.want {
				t.Errorf("%s = %v, want %q", tt.field, entry[tt.field], tt.want)
			}
		})
	}
}

func TestLogger_RedactionDisabled(t *testing.T) {
	logger, buf := newTestLogger(t, Config{})
	logger.Info("call", "detail", "sk-abcdefghijklmnop")

	if !strings.Contains(buf.String(), "sk-abcdefghijklmnop") {
		t.Errorf("expected value untouched without redaction, got %q", buf.String())
	}
}

func TestLogger_Groups(t *testing.T) {
	logger, buf := newTestLogger(t, Config{RedactSecrets: true})
	logger.Info("call", slog.Group("upstream", "detail", "sk-abcdefghijklmnop", "status", 429))

	entry := decode(t, buf)
	group, ok := entry["upstream"].(map[string]any)
	if !ok {
		t.Fatalf("expected upstream group, got %v", entry)
	}
	if group["detail"] != "sk-***" || group["status"] != float64(429) {
		t.Errorf("unexpected group %v", group)
	}
}

func TestLogger_TextFormat(t *testing.T) {
	logger, buf := newTestLogger(t, Config{Format: "text"})
	logger.Info("hello", "provider", "groq")

	if !strings.Contains(buf.String(), "msg=hello") || !strings.Contains(buf.String(), "provider=groq") {
		t.Errorf("unexpected text output %q", buf.String())
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input   string
		want    slog.Level
		wantErr bool
	}{
		{"debug", slog.LevelDebug, false},
		{"INFO", slog.LevelInfo, false},
		{"", slog.LevelInfo, false},
		{"warning", slog.LevelWarn, false},
		{"error", slog.LevelError, false},
		{"trace", slog.LevelInfo, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseLevel(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ParseLevel(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}
