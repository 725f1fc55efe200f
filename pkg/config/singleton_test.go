package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

const singletonConfig = `
gateway:
  listen_address: "127.0.0.1:8080"
providers:
  - name: groq
    api_keys: ["gsk_test"]
telemetry:
  logging:
    level: "info"
    format: "json"
`

func resetSingleton() {
	current.Store(nil)
}

func TestInitialize(t *testing.T) {
	resetSingleton()
	path := writeConfig(t, singletonConfig)

	if err := Initialize(path); err != nil {
		t.Fatalf("failed to initialize config: %v", err)
	}

	cfg := GetConfig()
	if cfg == nil {
		t.Fatal("expected non-nil config after initialization")
	}
	if cfg.Gateway.ListenAddress != "127.0.0.1:8080" {
		t.Errorf("expected listen address %q, got %q", "127.0.0.1:8080", cfg.Gateway.ListenAddress)
	}
}

func TestInitialize_MultipleCallsIgnored(t *testing.T) {
	resetSingleton()
	first := writeConfig(t, singletonConfig)
	second := writeConfig(t, `
gateway:
  listen_address: "127.0.0.1:9999"
`)

	if err := Initialize(first); err != nil {
		t.Fatalf("first Initialize failed: %v", err)
	}
	if err := Initialize(second); err != nil {
		t.Fatalf("second Initialize returned error: %v", err)
	}

	if got := GetConfig().Gateway.ListenAddress; got != "127.0.0.1:8080" {
		t.Errorf("expected first config to be kept, got %q", got)
	}
}

func TestInitialize_RetryAfterFailure(t *testing.T) {
	resetSingleton()

	missing := filepath.Join(t.TempDir(), "missing.yaml")
	if err := Initialize(missing); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected not-exist error, got %v", err)
	}
	if GetConfig() != nil {
		t.Fatal("failed Initialize must not install a config")
	}

	if err := Initialize(writeConfig(t, singletonConfig)); err != nil {
		t.Fatalf("retry failed: %v", err)
	}
	if GetConfig() == nil {
		t.Error("expected config after successful retry")
	}
}

func TestGetConfig_BeforeInitialize(t *testing.T) {
	resetSingleton()

	if cfg := GetConfig(); cfg != nil {
		t.Errorf("expected nil config before initialization, got %+v", cfg)
	}
}

func TestSetConfig(t *testing.T) {
	resetSingleton()

	cfg := NewTestConfig().WithListenAddress("127.0.0.1:1234").Build()
	SetConfig(cfg)

	if GetConfig() != cfg {
		t.Error("expected GetConfig to return the config passed to SetConfig")
	}
}

func TestReloadConfig(t *testing.T) {
	resetSingleton()
	path := writeConfig(t, singletonConfig)
	if err := Initialize(path); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}

	updated := writeConfig(t, `
gateway:
  listen_address: "127.0.0.1:8181"
providers:
  - name: groq
    api_keys: ["gsk_test"]
    disabled_models: ["llama-guard"]
`)
	if err := ReloadConfig(updated); err != nil {
		t.Fatalf("ReloadConfig failed: %v", err)
	}

	cfg := GetConfig()
	if cfg.Gateway.ListenAddress != "127.0.0.1:8181" {
		t.Errorf("expected reloaded listen address, got %q", cfg.Gateway.ListenAddress)
	}
	if len(cfg.Providers[0].DisabledModels) != 1 {
		t.Errorf("expected reloaded disabled models, got %v", cfg.Providers[0].DisabledModels)
	}
}

func TestReloadConfig_ValidationFailure(t *testing.T) {
	resetSingleton()
	path := writeConfig(t, singletonConfig)
	if err := Initialize(path); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	original := GetConfig()

	invalid := writeConfig(t, `
gateway:
  listen_address: "not-an-address"
`)
	if err := ReloadConfig(invalid); err == nil {
		t.Fatal("expected reload of invalid config to fail")
	}

	if GetConfig() != original {
		t.Error("expected original config to remain after failed reload")
	}
}

func TestMustGetConfig(t *testing.T) {
	resetSingleton()

	defer func() {
		if r := recover(); r == nil {
			t.Error("expected MustGetConfig to panic before initialization")
		}
	}()
	MustGetConfig()
}

func TestMustGetConfig_AfterInitialize(t *testing.T) {
	resetSingleton()
	SetConfig(NewTestConfig().Build())

	if MustGetConfig() == nil {
		t.Error("expected non-nil config")
	}
}
