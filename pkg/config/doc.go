// Package config provides configuration management for the Kone gateway.
//
// This package handles loading, validating, and managing configuration from
// YAML files with environment variable overrides.
//
// # Configuration Loading
//
//  1. From a YAML file only:
//     cfg, err := config.LoadConfig("kone.yaml")
//
//  2. From a YAML file with environment variable overrides:
//     cfg, err := config.LoadConfigWithEnvOverrides("kone.yaml")
//
// # Providers
//
// Providers are an ordered list; the manager tries them in that order.
// Known names fill their endpoint from built-in presets:
//
//	providers:
//	  - name: groq
//	    api_keys: ["${GROQ_API_KEY}", "${GROQ_API_KEY_2}"]
//	  - name: pollinations          # keyless
//	  - name: local
//	    base_url: http://localhost:11434/v1
//	    models: [llama3.1]
//
// API key entries of the form ${VAR} are expanded from the environment;
// unset variables are dropped, and a keyed provider left without keys is
// skipped at startup.
//
// # Environment Variable Overrides
//
// Environment variables follow the naming convention KONE_SECTION_FIELD:
//
//   - KONE_GATEWAY_LISTEN_ADDRESS overrides gateway.listen_address
//   - KONE_HEALTH_INTERVAL overrides health.interval
//   - KONE_TELEMETRY_LOGGING_LEVEL overrides telemetry.logging.level
//   - KONE_PROVIDERS_GROQ_API_KEYS sets the comma-separated key pool of "groq"
//   - KONE_PROVIDERS_GROQ_ENABLED and KONE_PROVIDERS_GROQ_BASE_URL
//
// A provider that only appears through KONE_PROVIDERS_<NAME>_API_KEYS is
// appended to the provider list.
//
// # Configuration Precedence
//
//  1. Default values (defined in defaults.go)
//  2. Values from YAML file
//  3. Environment variable overrides
//  4. Validation (fails fast if invalid)
//
// # Singleton Pattern
//
//	if err := config.Initialize("kone.yaml"); err != nil {
//	    log.Fatal(err)
//	}
//	cfg := config.GetConfig()
//
// For testing, prefer dependency injection with explicit Config instances.
//
// # Hot Reload
//
// Watcher watches the configuration file with fsnotify and hands every
// successfully reloaded configuration to a callback. The run command uses
// it to apply per-provider disabled_models lists to live adapters.
package config
