package config

import (
	"fmt"
	"net"
	"net/url"
	"strings"

	"github.com/robfig/cron/v3"

	"github.com/Kone-AI/Kone-sub000/pkg/telemetry/tracing"
)

// FieldError represents a validation error for a specific configuration field.
type FieldError struct {
	// Field is the dotted path to the configuration field (e.g., "gateway.listen_address").
	Field string

	// Message is a human-readable error message.
	Message string
}

// Error returns the error message for this field error.
func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationError represents one or more validation errors in a configuration.
// It implements the error interface and provides access to all field errors.
type ValidationError struct {
	// Errors contains all validation errors found in the configuration.
	Errors []FieldError
}

// Error returns a formatted string containing all validation errors.
func (e ValidationError) Error() string {
	if len(e.Errors) == 0 {
		return "configuration validation failed"
	}
	if len(e.Errors) == 1 {
		return fmt.Sprintf("configuration validation failed: %s", e.Errors[0].Error())
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("configuration validation failed with %d errors:\n", len(e.Errors)))
	for _, err := range e.Errors {
		sb.WriteString(fmt.Sprintf("  - %s\n", err.Error()))
	}
	return sb.String()
}

// Provider types accepted in providers[].type.
var validProviderTypes = map[string]bool{
	"":                  true,
	"openai-compatible": true,
	"anthropic":         true,
}

// Validate validates the entire configuration and returns a ValidationError
// if any validation rules fail. It returns nil if the configuration is valid.
// All validation errors are collected and returned together.
func Validate(cfg *Config) error {
	var errs []FieldError

	errs = append(errs, validateGateway(&cfg.Gateway)...)
	errs = append(errs, validateProviders(cfg.Providers)...)
	errs = append(errs, validateRouting(&cfg.Routing)...)
	errs = append(errs, validateHealth(&cfg.Health)...)
	errs = append(errs, validateStorage(&cfg.Storage)...)
	errs = append(errs, validateTelemetry(&cfg.Telemetry)...)

	if len(errs) > 0 {
		return ValidationError{Errors: errs}
	}

	return nil
}

// validateGateway validates ops server configuration.
func validateGateway(cfg *GatewayConfig) []FieldError {
	var errs []FieldError

	if cfg.ListenAddress == "" {
		errs = append(errs, FieldError{
			Field:   "gateway.listen_address",
			Message: "listen address is required",
		})
	} else if _, _, err := net.SplitHostPort(cfg.ListenAddress); err != nil {
		errs = append(errs, FieldError{
			Field:   "gateway.listen_address",
			Message: fmt.Sprintf("invalid listen address: %v", err),
		})
	}

	if cfg.ReadTimeout < 0 {
		errs = append(errs, FieldError{
			Field:   "gateway.read_timeout",
			Message: "read timeout must be positive",
		})
	}
	if cfg.WriteTimeout < 0 {
		errs = append(errs, FieldError{
			Field:   "gateway.write_timeout",
			Message: "write timeout must be positive",
		})
	}
	if cfg.IdleTimeout < 0 {
		errs = append(errs, FieldError{
			Field:   "gateway.idle_timeout",
			Message: "idle timeout must be positive",
		})
	}
	if cfg.ShutdownTimeout < 0 {
		errs = append(errs, FieldError{
			Field:   "gateway.shutdown_timeout",
			Message: "shutdown timeout must be positive",
		})
	}

	return errs
}

// validateProviders validates the provider list.
func validateProviders(providers []ProviderConfig) []FieldError {
	var errs []FieldError

	seen := make(map[string]bool, len(providers))
	for i, p := range providers {
		prefix := fmt.Sprintf("providers[%d]", i)

		if p.Name == "" {
			errs = append(errs, FieldError{
				Field:   prefix + ".name",
				Message: "provider name is required",
			})
		} else {
			prefix = fmt.Sprintf("providers.%s", p.Name)
			if strings.ContainsAny(p.Name, "/ ") {
				errs = append(errs, FieldError{
					Field:   prefix + ".name",
					Message: "provider name must not contain '/' or spaces",
				})
			}
			if seen[p.Name] {
				errs = append(errs, FieldError{
					Field:   prefix + ".name",
					Message: "duplicate provider name",
				})
			}
			seen[p.Name] = true
		}

		if !validProviderTypes[p.Type] {
			errs = append(errs, FieldError{
				Field:   prefix + ".type",
				Message: fmt.Sprintf("invalid provider type %q (must be openai-compatible or anthropic)", p.Type),
			})
		}

		if p.BaseURL != "" {
			u, err := url.Parse(p.BaseURL)
			if err != nil || u.Scheme == "" || u.Host == "" {
				errs = append(errs, FieldError{
					Field:   prefix + ".base_url",
					Message: "base URL must be an absolute URL",
				})
			} else if u.Scheme != "http" && u.Scheme != "https" {
				errs = append(errs, FieldError{
					Field:   prefix + ".base_url",
					Message: "base URL must use http or https scheme",
				})
			}
		}

		if p.Timeout < 0 {
			errs = append(errs, FieldError{
				Field:   prefix + ".timeout",
				Message: "timeout must be positive",
			})
		}
		if p.MinRequestInterval < 0 {
			errs = append(errs, FieldError{
				Field:   prefix + ".min_request_interval",
				Message: "min request interval must be non-negative",
			})
		}

		// Explicit keyed providers need at least one key once enabled.
		if p.IsEnabled() && p.RequiresKey != nil && *p.RequiresKey && len(nonEmpty(p.APIKeys)) == 0 {
			errs = append(errs, FieldError{
				Field:   prefix + ".api_keys",
				Message: "at least one API key is required when requires_key is true",
			})
		}
	}

	return errs
}

// validateRouting validates routing tuning.
func validateRouting(cfg *RoutingConfig) []FieldError {
	var errs []FieldError

	if cfg.MaxPasses < 1 {
		errs = append(errs, FieldError{
			Field:   "routing.max_passes",
			Message: "max passes must be at least 1",
		})
	}
	if cfg.MaxAttempts < 1 {
		errs = append(errs, FieldError{
			Field:   "routing.max_attempts",
			Message: "max attempts must be at least 1",
		})
	}

	durations := map[string]bool{
		"routing.provider_cooldown": cfg.ProviderCooldown < 0,
		"routing.retry_delay":       cfg.RetryDelay < 0,
		"routing.key_cooldown":      cfg.KeyCooldown < 0,
		"routing.retry_base_delay":  cfg.RetryBaseDelay < 0,
		"routing.default_timeout":   cfg.DefaultTimeout < 0,
		"routing.catalog_ttl":       cfg.CatalogTTL < 0,
	}
	for _, field := range sortedKeys(durations) {
		if durations[field] {
			errs = append(errs, FieldError{
				Field:   field,
				Message: "duration must be non-negative",
			})
		}
	}

	return errs
}

// validateHealth validates health checker configuration.
func validateHealth(cfg *HealthConfig) []FieldError {
	var errs []FieldError

	if cfg.Interval < 0 {
		errs = append(errs, FieldError{
			Field:   "health.interval",
			Message: "interval must be positive",
		})
	}
	if cfg.RetryDelay < 0 {
		errs = append(errs, FieldError{
			Field:   "health.retry_delay",
			Message: "retry delay must be non-negative",
		})
	}
	if cfg.Timeout < 0 {
		errs = append(errs, FieldError{
			Field:   "health.timeout",
			Message: "timeout must be positive",
		})
	}
	if cfg.MinWords < 0 {
		errs = append(errs, FieldError{
			Field:   "health.min_words",
			Message: "min words must be non-negative",
		})
	}
	if cfg.MaxTokens < 0 {
		errs = append(errs, FieldError{
			Field:   "health.max_tokens",
			Message: "max tokens must be non-negative",
		})
	}
	if cfg.Temperature < 0 || cfg.Temperature > 2 {
		errs = append(errs, FieldError{
			Field:   "health.temperature",
			Message: "temperature must be between 0 and 2",
		})
	}
	for i, prompt := range cfg.Prompts {
		if strings.TrimSpace(prompt) == "" {
			errs = append(errs, FieldError{
				Field:   fmt.Sprintf("health.prompts[%d]", i),
				Message: "prompt must not be empty",
			})
		}
	}

	return errs
}

// validateStorage validates health history storage configuration.
func validateStorage(cfg *StorageConfig) []FieldError {
	var errs []FieldError

	if !cfg.IsEnabled() {
		return nil
	}

	if cfg.Driver != "sqlite" && cfg.Driver != "sqlite3" {
		errs = append(errs, FieldError{
			Field:   "storage.driver",
			Message: fmt.Sprintf("invalid driver %q (must be sqlite or sqlite3)", cfg.Driver),
		})
	}
	if cfg.Path == "" {
		errs = append(errs, FieldError{
			Field:   "storage.path",
			Message: "database path is required",
		})
	}
	if cfg.BusyTimeout < 0 {
		errs = append(errs, FieldError{
			Field:   "storage.busy_timeout",
			Message: "busy timeout must be non-negative",
		})
	}
	if cfg.Retention.Days < 0 {
		errs = append(errs, FieldError{
			Field:   "storage.retention.days",
			Message: "retention days must be non-negative",
		})
	}
	if cfg.Retention.MaxRecords < 0 {
		errs = append(errs, FieldError{
			Field:   "storage.retention.max_records",
			Message: "max records must be non-negative",
		})
	}
	if cfg.Retention.PruneSchedule != "" {
		if _, err := cron.ParseStandard(cfg.Retention.PruneSchedule); err != nil {
			errs = append(errs, FieldError{
				Field:   "storage.retention.prune_schedule",
				Message: fmt.Sprintf("invalid cron expression: %v", err),
			})
		}
	}

	return errs
}

// validateTelemetry validates telemetry configuration.
func validateTelemetry(cfg *TelemetryConfig) []FieldError {
	var errs []FieldError

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "warning": true, "error": true}
	if !validLevels[strings.ToLower(cfg.Logging.Level)] {
		errs = append(errs, FieldError{
			Field:   "telemetry.logging.level",
			Message: fmt.Sprintf("invalid log level %q (must be debug, info, warn, or error)", cfg.Logging.Level),
		})
	}

	validFormats := map[string]bool{"json": true, "text": true, "console": true}
	if !validFormats[strings.ToLower(cfg.Logging.Format)] {
		errs = append(errs, FieldError{
			Field:   "telemetry.logging.format",
			Message: fmt.Sprintf("invalid log format %q (must be json, text, or console)", cfg.Logging.Format),
		})
	}

	for i, p := range cfg.Logging.RedactPatterns {
		if p.Pattern == "" {
			errs = append(errs, FieldError{
				Field:   fmt.Sprintf("telemetry.logging.redact_patterns[%d].pattern", i),
				Message: "pattern is required",
			})
		}
	}

	if cfg.Metrics.IsEnabled() && !strings.HasPrefix(cfg.Metrics.Path, "/") {
		errs = append(errs, FieldError{
			Field:   "telemetry.metrics.path",
			Message: "metrics path must start with '/'",
		})
	}
	if cfg.Metrics.MaxCardinality < 0 {
		errs = append(errs, FieldError{
			Field:   "telemetry.metrics.max_cardinality",
			Message: "max cardinality must be non-negative",
		})
	}

	if cfg.Tracing.Enabled {
		if cfg.Tracing.Endpoint == "" {
			errs = append(errs, FieldError{
				Field:   "telemetry.tracing.endpoint",
				Message: "endpoint is required when tracing is enabled",
			})
		}
		if err := tracing.ValidateSampler(cfg.Tracing.Sampler, 0); err != nil {
			errs = append(errs, FieldError{
				Field:   "telemetry.tracing.sampler",
				Message: err.Error(),
			})
		}
	}
	if cfg.Tracing.SampleRatio < 0 || cfg.Tracing.SampleRatio > 1 {
		errs = append(errs, FieldError{
			Field:   "telemetry.tracing.sample_ratio",
			Message: "sample ratio must be between 0 and 1",
		})
	}

	return errs
}
