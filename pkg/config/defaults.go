package config

import "time"

// Default values for configuration fields.
const (
	// Gateway defaults
	DefaultListenAddress   = "127.0.0.1:9090"
	DefaultReadTimeout     = 10 * time.Second
	DefaultWriteTimeout    = 30 * time.Second
	DefaultIdleTimeout     = 120 * time.Second
	DefaultShutdownTimeout = 15 * time.Second

	// Routing defaults
	DefaultProviderCooldown = time.Hour
	DefaultRetryDelay       = time.Second
	DefaultMaxPasses        = 3
	DefaultKeyCooldown      = 60 * time.Second
	DefaultMaxAttempts      = 3
	DefaultRetryBaseDelay   = time.Second
	DefaultProviderTimeout  = 60 * time.Second
	DefaultCatalogTTL       = 5 * time.Minute

	// Health check defaults
	DefaultHealthInterval    = 7200 * time.Second
	DefaultHealthModelDelay  = 26 * time.Second
	DefaultHealthMaxRetries  = 2
	DefaultHealthRetryDelay  = 5 * time.Second
	DefaultHealthMinWords    = 2
	DefaultHealthTemperature = 0.3
	DefaultHealthMaxTokens   = 50
	DefaultHealthTimeout     = 60 * time.Second

	// Storage defaults
	DefaultStorageDriver       = "sqlite"
	DefaultStoragePath         = "data/health.db"
	DefaultStorageBusyTimeout  = 5 * time.Second
	DefaultRetentionDays       = 30
	DefaultRetentionSchedule   = "0 3 * * *"
	DefaultRetentionMaxRecords = int64(0)

	// Telemetry defaults
	DefaultLoggingLevel       = "info"
	DefaultLoggingFormat      = "json"
	DefaultMetricsPath        = "/metrics"
	DefaultMetricsNamespace   = "kone"
	DefaultMetricsSubsystem   = "gateway"
	DefaultMaxCardinality     = 10000
	DefaultTracingEndpoint    = "localhost:4317"
	DefaultTracingServiceName = "kone"
	DefaultTracingSampler     = "always"
	DefaultTracingSampleRatio = 1.0
	DefaultTracingTimeout     = 10 * time.Second
)

// ApplyDefaults applies default values to a Config struct.
// It sets defaults for any fields that have zero values.
// This function is idempotent and safe to call multiple times.
func ApplyDefaults(cfg *Config) {
	applyGatewayDefaults(&cfg.Gateway)
	applyRoutingDefaults(&cfg.Routing)
	applyHealthDefaults(&cfg.Health)
	applyStorageDefaults(&cfg.Storage)
	applyTelemetryDefaults(&cfg.Telemetry)
}

func applyGatewayDefaults(g *GatewayConfig) {
	if g.ListenAddress == "" {
		g.ListenAddress = DefaultListenAddress
	}
	if g.ReadTimeout == 0 {
		g.ReadTimeout = DefaultReadTimeout
	}
	if g.WriteTimeout == 0 {
		g.WriteTimeout = DefaultWriteTimeout
	}
	if g.IdleTimeout == 0 {
		g.IdleTimeout = DefaultIdleTimeout
	}
	if g.ShutdownTimeout == 0 {
		g.ShutdownTimeout = DefaultShutdownTimeout
	}
}

func applyRoutingDefaults(r *RoutingConfig) {
	if r.ProviderCooldown == 0 {
		r.ProviderCooldown = DefaultProviderCooldown
	}
	if r.RetryDelay == 0 {
		r.RetryDelay = DefaultRetryDelay
	}
	if r.MaxPasses == 0 {
		r.MaxPasses = DefaultMaxPasses
	}
	if r.KeyCooldown == 0 {
		r.KeyCooldown = DefaultKeyCooldown
	}
	if r.MaxAttempts == 0 {
		r.MaxAttempts = DefaultMaxAttempts
	}
	if r.RetryBaseDelay == 0 {
		r.RetryBaseDelay = DefaultRetryBaseDelay
	}
	if r.DefaultTimeout == 0 {
		r.DefaultTimeout = DefaultProviderTimeout
	}
	if r.CatalogTTL == 0 {
		r.CatalogTTL = DefaultCatalogTTL
	}
}

func applyHealthDefaults(h *HealthConfig) {
	if h.Enabled == nil {
		h.Enabled = Bool(true)
	}
	if h.Interval == 0 {
		h.Interval = DefaultHealthInterval
	}
	if h.ModelDelay == 0 {
		h.ModelDelay = DefaultHealthModelDelay
	}
	if h.MaxRetries == 0 {
		h.MaxRetries = DefaultHealthMaxRetries
	}
	if h.RetryDelay == 0 {
		h.RetryDelay = DefaultHealthRetryDelay
	}
	if h.MinWords == 0 {
		h.MinWords = DefaultHealthMinWords
	}
	if h.Temperature == 0 {
		h.Temperature = DefaultHealthTemperature
	}
	if h.MaxTokens == 0 {
		h.MaxTokens = DefaultHealthMaxTokens
	}
	if h.Timeout == 0 {
		h.Timeout = DefaultHealthTimeout
	}
}

func applyStorageDefaults(s *StorageConfig) {
	if s.Enabled == nil {
		s.Enabled = Bool(true)
	}
	if s.Driver == "" {
		s.Driver = DefaultStorageDriver
	}
	if s.Path == "" {
		s.Path = DefaultStoragePath
	}
	if s.WALMode == nil {
		s.WALMode = Bool(true)
	}
	if s.BusyTimeout == 0 {
		s.BusyTimeout = DefaultStorageBusyTimeout
	}
	if s.Retention.Days == 0 {
		s.Retention.Days = DefaultRetentionDays
	}
	if s.Retention.PruneSchedule == "" {
		s.Retention.PruneSchedule = DefaultRetentionSchedule
	}
}

func applyTelemetryDefaults(t *TelemetryConfig) {
	if t.Logging.Level == "" {
		t.Logging.Level = DefaultLoggingLevel
	}
	if t.Logging.Format == "" {
		t.Logging.Format = DefaultLoggingFormat
	}
	if t.Logging.RedactSecrets == nil {
		t.Logging.RedactSecrets = Bool(true)
	}

	if t.Metrics.Enabled == nil {
		t.Metrics.Enabled = Bool(true)
	}
	if t.Metrics.Path == "" {
		t.Metrics.Path = DefaultMetricsPath
	}
	if t.Metrics.Namespace == "" {
		t.Metrics.Namespace = DefaultMetricsNamespace
	}
	if t.Metrics.Subsystem == "" {
		t.Metrics.Subsystem = DefaultMetricsSubsystem
	}
	if len(t.Metrics.LatencyBuckets) == 0 {
		// LLM latencies (100ms - 60s)
		t.Metrics.LatencyBuckets = []float64{0.1, 0.25, 0.5, 1.0, 2.0, 5.0, 10.0, 30.0, 60.0}
	}
	if t.Metrics.MaxCardinality == 0 {
		t.Metrics.MaxCardinality = DefaultMaxCardinality
	}

	if t.Tracing.Endpoint == "" {
		t.Tracing.Endpoint = DefaultTracingEndpoint
	}
	if t.Tracing.Insecure == nil {
		t.Tracing.Insecure = Bool(true)
	}
	if t.Tracing.ServiceName == "" {
		t.Tracing.ServiceName = DefaultTracingServiceName
	}
	if t.Tracing.Sampler == "" {
		t.Tracing.Sampler = DefaultTracingSampler
	}
	if t.Tracing.SampleRatio == 0 {
		t.Tracing.SampleRatio = DefaultTracingSampleRatio
	}
	if t.Tracing.Timeout == 0 {
		t.Tracing.Timeout = DefaultTracingTimeout
	}
}
