package config

import (
	"testing"
	"time"

	"github.com/Kone-AI/Kone-sub000/pkg/providerfactory"
)

func TestNewTestConfig(t *testing.T) {
	cfg := NewTestConfig().Build()

	if err := Validate(cfg); err != nil {
		t.Fatalf("expected valid test config, got %v", err)
	}
	if len(cfg.Providers) != 1 || cfg.Providers[0].Name != "groq" {
		t.Errorf("expected default groq provider, got %+v", cfg.Providers)
	}
}

func TestConfigBuilder_ChainedCalls(t *testing.T) {
	cfg := NewTestConfig().
		WithListenAddress("0.0.0.0:9999").
		WithProvider(ProviderConfig{Name: "pollinations"}).
		WithStorage("sqlite3", "/tmp/health.db").
		WithHealthInterval(time.Hour).
		WithTracing("collector:4317").
		Build()

	if err := Validate(cfg); err != nil {
		t.Fatalf("expected valid config, got %v", err)
	}
	if cfg.Gateway.ListenAddress != "0.0.0.0:9999" {
		t.Errorf("unexpected listen address %q", cfg.Gateway.ListenAddress)
	}
	if len(cfg.Providers) != 2 {
		t.Errorf("expected 2 providers, got %d", len(cfg.Providers))
	}
}

func TestProviderSpecs(t *testing.T) {
	cfg := NewTestConfig().
		WithoutProviders().
		WithProvider(ProviderConfig{Name: "groq", APIKeys: []string{"k1", "", "k2"}}).
		WithProvider(ProviderConfig{Name: "pollinations"}).
		WithProvider(ProviderConfig{Name: "local", BaseURL: "http://localhost:1234/v1", Timeout: 5 * time.Second, RequiresKey: Bool(false), Models: []string{"m"}}).
		WithProvider(ProviderConfig{Name: "off", BaseURL: "http://x", Enabled: Bool(false)}).
		Build()
	cfg.Routing.KeyCooldown = 2 * time.Minute

	specs := cfg.ProviderSpecs()
	if len(specs) != 4 {
		t.Fatalf("expected 4 specs, got %d", len(specs))
	}

	tests := []struct {
		idx         int
		name        string
		keys        int
		requiresKey bool
		enabled     bool
		timeout     time.Duration
	}{
		{0, "groq", 2, true, true, DefaultProviderTimeout},
		{1, "pollinations", 0, false, true, DefaultProviderTimeout},
		{2, "local", 0, false, true, 5 * time.Second},
		{3, "off", 0, false, false, DefaultProviderTimeout},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spec := specs[tt.idx]
			if spec.Name != tt.name {
				t.Fatalf("spec %d: expected %q, got %q", tt.idx, tt.name, spec.Name)
			}
			if len(spec.APIKeys) != tt.keys {
				t.Errorf("expected %d keys, got %v", tt.keys, spec.APIKeys)
			}
			if spec.RequiresKey != tt.requiresKey {
				t.Errorf("RequiresKey = %v, want %v", spec.RequiresKey, tt.requiresKey)
			}
			if spec.Enabled != tt.enabled {
				t.Errorf("Enabled = %v, want %v", spec.Enabled, tt.enabled)
			}
			if spec.Timeout != tt.timeout {
				t.Errorf("Timeout = %v, want %v", spec.Timeout, tt.timeout)
			}
			if spec.KeyCooldown != 2*time.Minute {
				t.Errorf("expected routing key cooldown, got %v", spec.KeyCooldown)
			}
		})
	}

	// Keyless preset stays usable; the factory owns the preset key rule.
	if !providerfactory.Enabled(specs[1]) {
		t.Error("expected keyless preset to be enabled")
	}
	if !providerfactory.Enabled(specs[0]) {
		t.Error("expected keyed provider with keys to be enabled")
	}
}

func TestComponentConfigs(t *testing.T) {
	cfg := NewTestConfig().WithStorage("sqlite3", "/tmp/h.db").Build()
	cfg.Health.Stream = true
	cfg.Health.Prompts = []string{"Say hello twice"}

	mc := cfg.ManagerConfig()
	if mc.ProviderCooldown != time.Hour || mc.RetryDelay != time.Second || mc.MaxPasses != 3 {
		t.Errorf("unexpected manager config %+v", mc)
	}

	hc := cfg.HealthCheckerConfig()
	if hc.Interval != 7200*time.Second || hc.ModelDelay != 26*time.Second || hc.MaxRetries != 2 {
		t.Errorf("unexpected health config %+v", hc)
	}
	if !hc.Stream || len(hc.Prompts) != 1 {
		t.Errorf("expected stream mode and prompt override, got %+v", hc)
	}

	sc := cfg.SQLiteConfig()
	if sc.Driver != "sqlite3" || sc.Path != "/tmp/h.db" || !sc.WALMode {
		t.Errorf("unexpected sqlite config %+v", sc)
	}
	if rc := cfg.RetentionConfig(); rc.RetentionDays != 30 || rc.PruneSchedule != "0 3 * * *" {
		t.Errorf("unexpected retention config %+v", rc)
	}

	if lc := cfg.LoggingConfig(); !lc.RedactSecrets || lc.Level != "info" {
		t.Errorf("unexpected logging config %+v", lc)
	}
	if m := cfg.MetricsConfig(); !m.Enabled || m.Namespace != "kone" {
		t.Errorf("unexpected metrics config %+v", m)
	}
	if tc := cfg.TracingConfig("1.2.3"); tc.Enabled || tc.ServiceVersion != "1.2.3" || !tc.Insecure {
		t.Errorf("unexpected tracing config %+v", tc)
	}
}

func TestDisabledModels(t *testing.T) {
	cfg := NewTestConfig().
		WithProvider(ProviderConfig{Name: "pollinations", DisabledModels: []string{"openai-large"}}).
		Build()

	disabled := cfg.DisabledModels()
	if len(disabled) != 2 {
		t.Fatalf("expected an entry per provider, got %v", disabled)
	}
	if got := disabled["pollinations"]; len(got) != 1 || got[0] != "openai-large" {
		t.Errorf("unexpected disabled list %v", got)
	}
	if got, ok := disabled["groq"]; !ok || len(got) != 0 {
		t.Errorf("expected empty list for groq, got %v", got)
	}
}
