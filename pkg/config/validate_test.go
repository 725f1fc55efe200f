package config

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestValidate_ValidConfig(t *testing.T) {
	if err := Validate(NewTestConfig().Build()); err != nil {
		t.Errorf("expected valid config, got error: %v", err)
	}
}

func TestValidate_MultipleErrors(t *testing.T) {
	cfg := NewTestConfig().Build()
	cfg.Gateway.ListenAddress = ""
	cfg.Routing.MaxPasses = 0
	cfg.Telemetry.Logging.Level = "verbose"

	err := Validate(cfg)
	var verr ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %T", err)
	}
	if len(verr.Errors) != 3 {
		t.Errorf("expected 3 errors, got %d: %v", len(verr.Errors), verr.Errors)
	}
}

func TestValidate_Fields(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*Config)
		wantField string
	}{
		{"bad listen address", func(c *Config) { c.Gateway.ListenAddress = "no-port" }, "gateway.listen_address"},
		{"negative read timeout", func(c *Config) { c.Gateway.ReadTimeout = -time.Second }, "gateway.read_timeout"},
		{"missing provider name", func(c *Config) { c.Providers = append(c.Providers, ProviderConfig{BaseURL: "http://x"}) }, "providers[1].name"},
		{"duplicate provider", func(c *Config) { c.Providers = append(c.Providers, ProviderConfig{Name: "groq"}) }, "providers.groq.name"},
		{"slash in name", func(c *Config) { c.Providers[0].Name = "a/b" }, "providers.a/b.name"},
		{"unknown type", func(c *Config) { c.Providers[0].Type = "gemini" }, "providers.groq.type"},
		{"relative base url", func(c *Config) { c.Providers[0].BaseURL = "api/v1" }, "providers.groq.base_url"},
		{"ftp base url", func(c *Config) { c.Providers[0].BaseURL = "ftp://host/v1" }, "providers.groq.base_url"},
		{"requires key without keys", func(c *Config) {
			c.Providers[0].APIKeys = nil
			c.Providers[0].RequiresKey = Bool(true)
		}, "providers.groq.api_keys"},
		{"max attempts", func(c *Config) { c.Routing.MaxAttempts = 0 }, "routing.max_attempts"},
		{"negative cooldown", func(c *Config) { c.Routing.ProviderCooldown = -time.Second }, "routing.provider_cooldown"},
		{"temperature", func(c *Config) { c.Health.Temperature = 3 }, "health.temperature"},
		{"empty prompt", func(c *Config) { c.Health.Prompts = []string{"ok", " "} }, "health.prompts[1]"},
		{"bad driver", func(c *Config) { c.Storage.Driver = "postgres" }, "storage.driver"},
		{"bad schedule", func(c *Config) { c.Storage.Retention.PruneSchedule = "every day" }, "storage.retention.prune_schedule"},
		{"log format", func(c *Config) { c.Telemetry.Logging.Format = "xml" }, "telemetry.logging.format"},
		{"metrics path", func(c *Config) { c.Telemetry.Metrics.Path = "metrics" }, "telemetry.metrics.path"},
		{"sampler", func(c *Config) {
			c.Telemetry.Tracing.Enabled = true
			c.Telemetry.Tracing.Sampler = "sometimes"
		}, "telemetry.tracing.sampler"},
		{"sample ratio", func(c *Config) { c.Telemetry.Tracing.SampleRatio = 1.5 }, "telemetry.tracing.sample_ratio"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewTestConfig().Build()
			tt.mutate(cfg)

			err := Validate(cfg)
			var verr ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			found := false
			for _, fe := range verr.Errors {
				if fe.Field == tt.wantField {
					found = true
				}
			}
			if !found {
				t.Errorf("expected error on %q, got %v", tt.wantField, verr.Errors)
			}
		})
	}
}

func TestValidate_DisabledStorageSkipsChecks(t *testing.T) {
	cfg := NewTestConfig().Build()
	cfg.Storage.Enabled = Bool(false)
	cfg.Storage.Driver = "postgres"

	if err := Validate(cfg); err != nil {
		t.Errorf("expected disabled storage to skip validation, got %v", err)
	}
}

func TestValidationError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      ValidationError
		contains string
	}{
		{"empty", ValidationError{}, "configuration validation failed"},
		{"single", ValidationError{Errors: []FieldError{{Field: "a", Message: "bad"}}}, "configuration validation failed: a: bad"},
		{"multiple", ValidationError{Errors: []FieldError{{Field: "a", Message: "x"}, {Field: "b", Message: "y"}}}, "with 2 errors"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !strings.Contains(tt.err.Error(), tt.contains) {
				t.Errorf("expected %q in %q", tt.contains, tt.err.Error())
			}
		})
	}
}
