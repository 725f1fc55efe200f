package config

import "time"

// ConfigBuilder provides a fluent API for building Config instances in tests.
// It starts with default values and allows selective overrides.
type ConfigBuilder struct {
	cfg Config
}

// NewTestConfig creates a new ConfigBuilder with sensible defaults for testing.
// The resulting configuration is valid and can be used immediately.
func NewTestConfig() *ConfigBuilder {
	cfg := Config{
		Providers: []ProviderConfig{
			{Name: "groq", APIKeys: []string{"gsk_test"}},
		},
	}
	ApplyDefaults(&cfg)

	return &ConfigBuilder{cfg: cfg}
}

// Build returns the built Config instance.
func (b *ConfigBuilder) Build() *Config {
	return &b.cfg
}

// WithListenAddress sets the ops server listen address.
func (b *ConfigBuilder) WithListenAddress(addr string) *ConfigBuilder {
	b.cfg.Gateway.ListenAddress = addr
	return b
}

// WithProvider appends a provider.
func (b *ConfigBuilder) WithProvider(p ProviderConfig) *ConfigBuilder {
	b.cfg.Providers = append(b.cfg.Providers, p)
	return b
}

// WithoutProviders clears the provider list.
func (b *ConfigBuilder) WithoutProviders() *ConfigBuilder {
	b.cfg.Providers = nil
	return b
}

// WithStorage enables health history persistence at path.
func (b *ConfigBuilder) WithStorage(driver, path string) *ConfigBuilder {
	b.cfg.Storage.Enabled = Bool(true)
	b.cfg.Storage.Driver = driver
	b.cfg.Storage.Path = path
	return b
}

// WithHealthInterval sets the health check interval.
func (b *ConfigBuilder) WithHealthInterval(d time.Duration) *ConfigBuilder {
	b.cfg.Health.Interval = d
	return b
}

// WithTracing enables tracing towards endpoint.
func (b *ConfigBuilder) WithTracing(endpoint string) *ConfigBuilder {
	b.cfg.Telemetry.Tracing.Enabled = true
	b.cfg.Telemetry.Tracing.Endpoint = endpoint
	return b
}
