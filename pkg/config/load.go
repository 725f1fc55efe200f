package config

import (
	"fmt"
	"os"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "KONE_"

// LoadConfig loads configuration from a YAML file at the specified path.
// It expands ${VAR} references in API keys, applies default values and
// validates the result. Use LoadConfigWithEnvOverrides to also honour
// KONE_* environment variables.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration file %q: %w", path, err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse configuration file %q: %w", path, err)
	}

	ApplyDefaults(cfg)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// Parse decodes YAML configuration and expands ${VAR} references in API
// keys. Defaults are not applied.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	for i := range cfg.Providers {
		cfg.Providers[i].APIKeys = expandKeys(cfg.Providers[i].APIKeys)
	}
	return &cfg, nil
}

// LoadConfigWithEnvOverrides loads configuration from a YAML file and applies
// environment variable overrides. Environment variables follow the naming
// convention KONE_SECTION_FIELD (e.g., KONE_GATEWAY_LISTEN_ADDRESS).
// Environment variables always take precedence over file-based configuration.
//
// The loading sequence is:
// 1. Load YAML from file
// 2. Apply default values
// 3. Apply environment variable overrides
// 4. Validate final configuration
func LoadConfigWithEnvOverrides(path string) (*Config, error) {
	cfg, err := LoadConfig(path)
	if err != nil {
		return nil, err
	}

	applyEnvOverrides(cfg)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed after environment overrides: %w", err)
	}

	return cfg, nil
}

// envRef matches a whole-value ${VAR} reference.
var envRef = regexp.MustCompile(`^\$\{([A-Za-z_][A-Za-z0-9_]*)\}$`)

// expandKeys resolves ${VAR} references and drops keys that expand to
// nothing, so an unset variable leaves the provider keyless.
func expandKeys(keys []string) []string {
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		if m := envRef.FindStringSubmatch(strings.TrimSpace(k)); m != nil {
			k = os.Getenv(m[1])
		}
		if k = strings.TrimSpace(k); k != "" {
			out = append(out, k)
		}
	}
	return out
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables use the format KONE_SECTION_FIELD.
func applyEnvOverrides(cfg *Config) {
	// Gateway overrides
	envString("GATEWAY_LISTEN_ADDRESS", &cfg.Gateway.ListenAddress)
	envDuration("GATEWAY_READ_TIMEOUT", &cfg.Gateway.ReadTimeout)
	envDuration("GATEWAY_WRITE_TIMEOUT", &cfg.Gateway.WriteTimeout)
	envDuration("GATEWAY_SHUTDOWN_TIMEOUT", &cfg.Gateway.ShutdownTimeout)

	// Routing overrides
	envDuration("ROUTING_PROVIDER_COOLDOWN", &cfg.Routing.ProviderCooldown)
	envDuration("ROUTING_RETRY_DELAY", &cfg.Routing.RetryDelay)
	envInt("ROUTING_MAX_PASSES", &cfg.Routing.MaxPasses)
	envDuration("ROUTING_KEY_COOLDOWN", &cfg.Routing.KeyCooldown)
	envInt("ROUTING_MAX_ATTEMPTS", &cfg.Routing.MaxAttempts)
	envDuration("ROUTING_DEFAULT_TIMEOUT", &cfg.Routing.DefaultTimeout)
	envDuration("ROUTING_CATALOG_TTL", &cfg.Routing.CatalogTTL)

	// Health overrides
	envBoolPtr("HEALTH_ENABLED", &cfg.Health.Enabled)
	envDuration("HEALTH_INTERVAL", &cfg.Health.Interval)
	envDuration("HEALTH_MODEL_DELAY", &cfg.Health.ModelDelay)
	envInt("HEALTH_MAX_RETRIES", &cfg.Health.MaxRetries)
	envDuration("HEALTH_RETRY_DELAY", &cfg.Health.RetryDelay)
	envDuration("HEALTH_TIMEOUT", &cfg.Health.Timeout)
	if val := os.Getenv(EnvPrefix + "HEALTH_STREAM"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.Health.Stream = b
		}
	}

	// Storage overrides
	envBoolPtr("STORAGE_ENABLED", &cfg.Storage.Enabled)
	envString("STORAGE_DRIVER", &cfg.Storage.Driver)
	envString("STORAGE_PATH", &cfg.Storage.Path)
	envInt("STORAGE_RETENTION_DAYS", &cfg.Storage.Retention.Days)
	envString("STORAGE_RETENTION_PRUNE_SCHEDULE", &cfg.Storage.Retention.PruneSchedule)

	// Telemetry overrides
	envString("TELEMETRY_LOGGING_LEVEL", &cfg.Telemetry.Logging.Level)
	envString("TELEMETRY_LOGGING_FORMAT", &cfg.Telemetry.Logging.Format)
	envBoolPtr("TELEMETRY_METRICS_ENABLED", &cfg.Telemetry.Metrics.Enabled)
	envString("TELEMETRY_METRICS_PATH", &cfg.Telemetry.Metrics.Path)
	if val := os.Getenv(EnvPrefix + "TELEMETRY_TRACING_ENABLED"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.Telemetry.Tracing.Enabled = b
		}
	}
	envString("TELEMETRY_TRACING_ENDPOINT", &cfg.Telemetry.Tracing.Endpoint)
	if val := os.Getenv(EnvPrefix + "TELEMETRY_TRACING_SAMPLE_RATIO"); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			cfg.Telemetry.Tracing.SampleRatio = f
		}
	}

	applyProviderEnvOverrides(cfg)
}

// applyProviderEnvOverrides applies KONE_PROVIDERS_<NAME>_<FIELD> overrides.
// NAME is the upper-cased provider name with '-' replaced by '_'. A provider
// that only appears in the environment through _API_KEYS is appended to the
// provider list.
func applyProviderEnvOverrides(cfg *Config) {
	for i := range cfg.Providers {
		applyProviderEnv(&cfg.Providers[i])
	}

	known := make(map[string]bool, len(cfg.Providers))
	for _, p := range cfg.Providers {
		known[envName(p.Name)] = true
	}

	const prefix = EnvPrefix + "PROVIDERS_"
	const suffix = "_API_KEYS"
	var added []string
	for _, kv := range os.Environ() {
		key, _, _ := strings.Cut(kv, "=")
		if !strings.HasPrefix(key, prefix) || !strings.HasSuffix(key, suffix) {
			continue
		}
		name := strings.TrimSuffix(strings.TrimPrefix(key, prefix), suffix)
		if name == "" || known[name] {
			continue
		}
		known[name] = true
		added = append(added, name)
	}
	sort.Strings(added)

	for _, name := range added {
		p := ProviderConfig{Name: strings.ToLower(strings.ReplaceAll(name, "_", "-"))}
		applyProviderEnv(&p)
		if len(p.APIKeys) > 0 {
			cfg.Providers = append(cfg.Providers, p)
		}
	}
}

func applyProviderEnv(p *ProviderConfig) {
	prefix := EnvPrefix + "PROVIDERS_" + envName(p.Name) + "_"

	if val := os.Getenv(prefix + "API_KEYS"); val != "" {
		p.APIKeys = expandKeys(strings.Split(val, ","))
	}
	if val := os.Getenv(prefix + "BASE_URL"); val != "" {
		p.BaseURL = val
	}
	if val := os.Getenv(prefix + "ENABLED"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			p.Enabled = Bool(b)
		}
	}
	if val := os.Getenv(prefix + "TIMEOUT"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			p.Timeout = d
		}
	}
}

func envName(provider string) string {
	return strings.ToUpper(strings.ReplaceAll(provider, "-", "_"))
}

func envString(key string, dst *string) {
	if val := os.Getenv(EnvPrefix + key); val != "" {
		*dst = val
	}
}

func envDuration(key string, dst *time.Duration) {
	if val := os.Getenv(EnvPrefix + key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			*dst = d
		}
	}
}

func envInt(key string, dst *int) {
	if val := os.Getenv(EnvPrefix + key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			*dst = i
		}
	}
}

func envBoolPtr(key string, dst **bool) {
	if val := os.Getenv(EnvPrefix + key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			*dst = Bool(b)
		}
	}
}

func nonEmpty(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			out = append(out, v)
		}
	}
	return out
}

func sortedKeys(m map[string]bool) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
