package config

import (
	"github.com/Kone-AI/Kone-sub000/pkg/healthstore"
	"github.com/Kone-AI/Kone-sub000/pkg/modelhealth"
	"github.com/Kone-AI/Kone-sub000/pkg/providerfactory"
	"github.com/Kone-AI/Kone-sub000/pkg/providers"
	"github.com/Kone-AI/Kone-sub000/pkg/telemetry/logging"
	"github.com/Kone-AI/Kone-sub000/pkg/telemetry/metrics"
	"github.com/Kone-AI/Kone-sub000/pkg/telemetry/tracing"
)

// ProviderSpecs converts the provider list into factory specs, in order.
// Routing tuning fills the per-adapter retry and catalog settings.
func (c *Config) ProviderSpecs() []providerfactory.Spec {
	specs := make([]providerfactory.Spec, 0, len(c.Providers))
	for _, p := range c.Providers {
		keys := nonEmpty(p.APIKeys)

		requiresKey := len(keys) > 0
		if p.RequiresKey != nil {
			requiresKey = *p.RequiresKey
		}

		timeout := p.Timeout
		if timeout == 0 {
			timeout = c.Routing.DefaultTimeout
		}

		specs = append(specs, providerfactory.Spec{
			ProviderConfig: providers.ProviderConfig{
				Name:               p.Name,
				Type:               p.Type,
				BaseURL:            p.BaseURL,
				APIKeys:            keys,
				RequiresKey:        requiresKey,
				Headers:            p.Headers,
				Timeout:            timeout,
				KeyCooldown:        c.Routing.KeyCooldown,
				MaxAttempts:        c.Routing.MaxAttempts,
				RetryBaseDelay:     c.Routing.RetryBaseDelay,
				CatalogTTL:         c.Routing.CatalogTTL,
				MinRequestInterval: p.MinRequestInterval,
				DisabledModels:     p.DisabledModels,
				Models:             p.Models,
				FreeOnly:           p.FreeOnly,
			},
			Enabled: p.IsEnabled(),
		})
	}
	return specs
}

// DisabledModels returns the disable list of every configured provider,
// keyed by provider name.
func (c *Config) DisabledModels() map[string][]string {
	out := make(map[string][]string, len(c.Providers))
	for _, p := range c.Providers {
		out[p.Name] = p.DisabledModels
	}
	return out
}

// ManagerConfig returns the provider manager tuning.
func (c *Config) ManagerConfig() providerfactory.ManagerConfig {
	return providerfactory.ManagerConfig{
		ProviderCooldown: c.Routing.ProviderCooldown,
		RetryDelay:       c.Routing.RetryDelay,
		MaxPasses:        c.Routing.MaxPasses,
	}
}

// HealthCheckerConfig returns the model health checker configuration.
func (c *Config) HealthCheckerConfig() modelhealth.Config {
	h := c.Health
	return modelhealth.Config{
		Interval:    h.Interval,
		ModelDelay:  h.ModelDelay,
		MaxRetries:  h.MaxRetries,
		RetryDelay:  h.RetryDelay,
		MinWords:    h.MinWords,
		Temperature: h.Temperature,
		MaxTokens:   h.MaxTokens,
		Timeout:     h.Timeout,
		Stream:      h.Stream,
		Prompts:     h.Prompts,
	}
}

// SQLiteConfig returns the health store connection settings.
func (c *Config) SQLiteConfig() healthstore.SQLiteConfig {
	return healthstore.SQLiteConfig{
		Path:        c.Storage.Path,
		Driver:      c.Storage.Driver,
		WALMode:     boolValue(c.Storage.WALMode, true),
		BusyTimeout: c.Storage.BusyTimeout,
	}
}

// RetentionConfig returns the health history retention settings.
func (c *Config) RetentionConfig() healthstore.RetentionConfig {
	return healthstore.RetentionConfig{
		RetentionDays: c.Storage.Retention.Days,
		MaxRecords:    c.Storage.Retention.MaxRecords,
		PruneSchedule: c.Storage.Retention.PruneSchedule,
	}
}

// LoggingConfig returns the logger configuration.
func (c *Config) LoggingConfig() logging.Config {
	l := c.Telemetry.Logging
	patterns := make([]logging.RedactPattern, 0, len(l.RedactPatterns))
	for _, p := range l.RedactPatterns {
		patterns = append(patterns, logging.RedactPattern{
			Name:        p.Name,
			Pattern:     p.Pattern,
			Replacement: p.Replacement,
		})
	}
	return logging.Config{
		Level:          l.Level,
		Format:         l.Format,
		AddSource:      l.AddSource,
		RedactSecrets:  boolValue(l.RedactSecrets, true),
		RedactPatterns: patterns,
	}
}

// MetricsConfig returns the metrics collector configuration.
func (c *Config) MetricsConfig() metrics.Config {
	m := c.Telemetry.Metrics
	return metrics.Config{
		Enabled:        m.IsEnabled(),
		Namespace:      m.Namespace,
		Subsystem:      m.Subsystem,
		LatencyBuckets: m.LatencyBuckets,
		MaxCardinality: m.MaxCardinality,
	}
}

// TracingConfig returns the tracer configuration.
func (c *Config) TracingConfig(version string) tracing.Config {
	t := c.Telemetry.Tracing
	return tracing.Config{
		Enabled:        t.Enabled,
		ServiceName:    t.ServiceName,
		ServiceVersion: version,
		Exporter:       "otlp",
		Endpoint:       t.Endpoint,
		Insecure:       boolValue(t.Insecure, true),
		Timeout:        t.Timeout,
		Sampler:        t.Sampler,
		SampleRatio:    t.SampleRatio,
	}
}
