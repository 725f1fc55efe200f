package config

import "time"

// Config is the root configuration structure for the Kone gateway.
// It contains the ops server, provider, routing, health checking, health
// history storage and telemetry sections.
type Config struct {
	// Gateway contains the ops HTTP server configuration.
	Gateway GatewayConfig `yaml:"gateway"`

	// Providers lists the upstream providers. Order is significant: it is
	// the order in which the manager tries them.
	Providers []ProviderConfig `yaml:"providers"`

	// Routing contains retry, cooldown and catalog tuning shared by all
	// providers.
	Routing RoutingConfig `yaml:"routing"`

	// Health contains configuration for the periodic model health checker.
	Health HealthConfig `yaml:"health"`

	// Storage contains configuration for health history persistence.
	Storage StorageConfig `yaml:"storage"`

	// Telemetry contains configuration for observability including logging,
	// metrics, and distributed tracing.
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// GatewayConfig contains configuration for the ops HTTP server.
type GatewayConfig struct {
	// ListenAddress is the address and port for the ops server.
	// Format: "host:port" (e.g., "127.0.0.1:9090").
	// Default: "127.0.0.1:9090"
	ListenAddress string `yaml:"listen_address"`

	// ReadTimeout is the maximum duration for reading the entire request.
	// Default: 10s
	ReadTimeout time.Duration `yaml:"read_timeout"`

	// WriteTimeout is the maximum duration before timing out writes of the
	// response.
	// Default: 30s
	WriteTimeout time.Duration `yaml:"write_timeout"`

	// IdleTimeout is the maximum amount of time to wait for the next request
	// when keep-alives are enabled.
	// Default: 120s
	IdleTimeout time.Duration `yaml:"idle_timeout"`

	// ShutdownTimeout is the maximum duration to wait for graceful shutdown.
	// Default: 15s
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// ProviderConfig contains configuration for a single upstream provider.
type ProviderConfig struct {
	// Name identifies the provider and prefixes its model ids.
	// Known names ("groq", "openrouter", "anthropic", ...) fill the type and
	// endpoint from built-in presets.
	Name string `yaml:"name"`

	// Type is the adapter family: "openai-compatible" or "anthropic".
	// Default: taken from the preset, else "openai-compatible"
	Type string `yaml:"type"`

	// Enabled controls whether the provider is built at all.
	// Default: true
	Enabled *bool `yaml:"enabled"`

	// BaseURL overrides the preset endpoint.
	BaseURL string `yaml:"base_url"`

	// APIKeys is the ordered key pool. Entries of the form ${VAR} are
	// expanded from the environment at load time.
	APIKeys []string `yaml:"api_keys"`

	// RequiresKey states whether the upstream rejects anonymous calls.
	// Default: the preset value, else true when api_keys is non-empty
	RequiresKey *bool `yaml:"requires_key"`

	// Timeout bounds every upstream call.
	// Default: routing.default_timeout
	Timeout time.Duration `yaml:"timeout"`

	// MinRequestInterval is the minimum spacing between two requests.
	// Default: 0 (preset value for spaced upstreams)
	MinRequestInterval time.Duration `yaml:"min_request_interval"`

	// DisabledModels are removed from the catalog. Entries may be base or
	// prefixed model ids.
	DisabledModels []string `yaml:"disabled_models"`

	// Models is a static catalog for upstreams without a models endpoint.
	Models []string `yaml:"models"`

	// FreeOnly restricts the catalog to zero-cost models.
	FreeOnly bool `yaml:"free_only"`

	// Headers are extra static headers sent with every request.
	Headers map[string]string `yaml:"headers"`
}

// IsEnabled reports whether the provider is switched on.
func (p ProviderConfig) IsEnabled() bool {
	return boolValue(p.Enabled, true)
}

// RoutingConfig contains retry and cooldown tuning.
type RoutingConfig struct {
	// ProviderCooldown is how long a rate-limited provider is skipped.
	// Default: 1h
	ProviderCooldown time.Duration `yaml:"provider_cooldown"`

	// RetryDelay is the pause between full passes over the providers.
	// Default: 1s
	RetryDelay time.Duration `yaml:"retry_delay"`

	// MaxPasses is the number of full passes before giving up.
	// Default: 3
	MaxPasses int `yaml:"max_passes"`

	// KeyCooldown is how long a rate-limited API key is benched.
	// Default: 60s
	KeyCooldown time.Duration `yaml:"key_cooldown"`

	// MaxAttempts is the attempt budget for 5xx and timeout retries inside
	// one adapter call.
	// Default: 3
	MaxAttempts int `yaml:"max_attempts"`

	// RetryBaseDelay is the first backoff delay; it doubles per attempt.
	// Default: 1s
	RetryBaseDelay time.Duration `yaml:"retry_base_delay"`

	// DefaultTimeout bounds upstream calls of providers without a timeout.
	// Default: 60s
	DefaultTimeout time.Duration `yaml:"default_timeout"`

	// CatalogTTL bounds how often model catalogs are refreshed.
	// Default: 5m
	CatalogTTL time.Duration `yaml:"catalog_ttl"`
}

// HealthConfig contains configuration for the model health checker.
type HealthConfig struct {
	// Enabled controls whether periodic checks run under "kone run".
	// Default: true
	Enabled *bool `yaml:"enabled"`

	// Interval is the time between two check cycles.
	// Default: 2h
	Interval time.Duration `yaml:"interval"`

	// ModelDelay is the pause between two model tests. A negative value
	// disables the pause.
	// Default: 26s
	ModelDelay time.Duration `yaml:"model_delay"`

	// MaxRetries is the number of retries after the first attempt. A
	// negative value disables retries.
	// Default: 2
	MaxRetries int `yaml:"max_retries"`

	// RetryDelay is the pause between attempts.
	// Default: 5s
	RetryDelay time.Duration `yaml:"retry_delay"`

	// MinWords is the minimum word count of a valid reply.
	// Default: 2
	MinWords int `yaml:"min_words"`

	// Temperature is sent with every probe.
	// Default: 0.3
	Temperature float64 `yaml:"temperature"`

	// MaxTokens is sent with every probe.
	// Default: 50
	MaxTokens int `yaml:"max_tokens"`

	// Timeout bounds a single probe attempt.
	// Default: 60s
	Timeout time.Duration `yaml:"timeout"`

	// Stream probes through the streaming path.
	// Default: false
	Stream bool `yaml:"stream"`

	// Prompts overrides the built-in prompt bank.
	Prompts []string `yaml:"prompts"`
}

// IsEnabled reports whether periodic checks are switched on.
func (h HealthConfig) IsEnabled() bool {
	return boolValue(h.Enabled, true)
}

// StorageConfig contains configuration for health history persistence.
type StorageConfig struct {
	// Enabled controls whether health records are persisted.
	// Default: true
	Enabled *bool `yaml:"enabled"`

	// Driver is the SQL driver: "sqlite" (pure Go) or "sqlite3" (cgo).
	// Default: "sqlite"
	Driver string `yaml:"driver"`

	// Path is the database file.
	// Default: "data/health.db"
	Path string `yaml:"path"`

	// WALMode enables Write-Ahead Logging.
	// Default: true
	WALMode *bool `yaml:"wal_mode"`

	// BusyTimeout is how long a writer waits on a locked database.
	// Default: 5s
	BusyTimeout time.Duration `yaml:"busy_timeout"`

	// Retention controls history pruning.
	Retention RetentionConfig `yaml:"retention"`
}

// IsEnabled reports whether persistence is switched on.
func (s StorageConfig) IsEnabled() bool {
	return boolValue(s.Enabled, true)
}

// RetentionConfig contains history retention settings.
type RetentionConfig struct {
	// Days is how long history entries are kept. 0 keeps them forever.
	// Default: 30
	Days int `yaml:"days"`

	// MaxRecords caps the number of history entries. 0 means unlimited.
	// Default: 0
	MaxRecords int64 `yaml:"max_records"`

	// PruneSchedule is a standard cron expression.
	// Default: "0 3 * * *"
	PruneSchedule string `yaml:"prune_schedule"`
}

// TelemetryConfig contains configuration for observability features.
type TelemetryConfig struct {
	// Logging contains structured logging configuration.
	Logging LoggingConfig `yaml:"logging"`

	// Metrics contains Prometheus metrics configuration.
	Metrics MetricsConfig `yaml:"metrics"`

	// Tracing contains OpenTelemetry tracing configuration.
	Tracing TracingConfig `yaml:"tracing"`
}

// LoggingConfig contains configuration for structured logging.
type LoggingConfig struct {
	// Level is the minimum log level: "debug", "info", "warn", "error".
	// Default: "info"
	Level string `yaml:"level"`

	// Format is the output format: "json", "text" or "console".
	// Default: "json"
	Format string `yaml:"format"`

	// AddSource includes file and line in log records.
	// Default: false
	AddSource bool `yaml:"add_source"`

	// RedactSecrets scrubs API keys from log output.
	// Default: true
	RedactSecrets *bool `yaml:"redact_secrets"`

	// RedactPatterns are additional redaction rules.
	RedactPatterns []RedactPatternConfig `yaml:"redact_patterns"`
}

// RedactPatternConfig is one custom redaction rule.
type RedactPatternConfig struct {
	Name        string `yaml:"name"`
	Pattern     string `yaml:"pattern"`
	Replacement string `yaml:"replacement"`
}

// MetricsConfig contains configuration for Prometheus metrics.
type MetricsConfig struct {
	// Enabled controls whether metrics are recorded and served.
	// Default: true
	Enabled *bool `yaml:"enabled"`

	// Path is the HTTP path of the metrics endpoint.
	// Default: "/metrics"
	Path string `yaml:"path"`

	// Namespace prefixes every metric name.
	// Default: "kone"
	Namespace string `yaml:"namespace"`

	// Subsystem follows the namespace in metric names.
	// Default: "gateway"
	Subsystem string `yaml:"subsystem"`

	// LatencyBuckets are histogram buckets in seconds.
	LatencyBuckets []float64 `yaml:"latency_buckets"`

	// MaxCardinality bounds distinct model label sets.
	// Default: 10000
	MaxCardinality int `yaml:"max_cardinality"`
}

// IsEnabled reports whether metrics are switched on.
func (m MetricsConfig) IsEnabled() bool {
	return boolValue(m.Enabled, true)
}

// TracingConfig contains configuration for OpenTelemetry tracing.
type TracingConfig struct {
	// Enabled controls whether spans are exported.
	// Default: false
	Enabled bool `yaml:"enabled"`

	// Endpoint is the OTLP gRPC collector address.
	// Default: "localhost:4317"
	Endpoint string `yaml:"endpoint"`

	// Insecure disables TLS to the collector.
	// Default: true
	Insecure *bool `yaml:"insecure"`

	// ServiceName is reported as service.name.
	// Default: "kone"
	ServiceName string `yaml:"service_name"`

	// Sampler is "always", "never" or "ratio".
	// Default: "always"
	Sampler string `yaml:"sampler"`

	// SampleRatio is used by the "ratio" sampler.
	// Default: 1.0
	SampleRatio float64 `yaml:"sample_ratio"`

	// Timeout bounds each export.
	// Default: 10s
	Timeout time.Duration `yaml:"timeout"`
}

// boolValue dereferences an optional flag.
func boolValue(b *bool, def bool) bool {
	if b == nil {
		return def
	}
	return *b
}

// Bool returns a pointer to b, for optional flags.
func Bool(b bool) *bool {
	return &b
}
