package providerfactory

import (
	"fmt"
	"log/slog"
	"net/http"
	"sort"

	"github.com/Kone-AI/Kone-sub000/pkg/providers"
	"github.com/Kone-AI/Kone-sub000/pkg/providers/anthropic"
	"github.com/Kone-AI/Kone-sub000/pkg/providers/openaicompat"
)

// Constructor builds an adapter of one type.
type Constructor func(cfg providers.ProviderConfig, opts Options) (providers.Adapter, error)

// Options carries collaborators handed to every constructor.
type Options struct {
	// Clock is the time source (default wall clock)
	Clock providers.Clock

	// Logger is the base logger
	Logger *slog.Logger

	// Recorder receives catalog events (optional)
	Recorder providers.CatalogRecorder

	// Transport overrides the HTTP transport (tests)
	Transport http.RoundTripper
}

// Spec is one configured provider together with its enable flag.
type Spec struct {
	providers.ProviderConfig

	// Enabled excludes the provider when false
	Enabled bool
}

// Factory builds adapters from configuration through a static registry of
// constructors.
type Factory struct {
	constructors map[string]Constructor
	opts         Options
	logger       *slog.Logger
}

// New creates a factory with the built-in adapter types registered.
func New(opts Options) *Factory {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default().With("component", "providerfactory")
	}

	f := &Factory{
		constructors: make(map[string]Constructor),
		opts:         opts,
		logger:       logger,
	}
	f.Register(openaicompat.TypeName, func(cfg providers.ProviderConfig, o Options) (providers.Adapter, error) {
		return openaicompat.New(cfg, openaicompat.Options{
			Clock:     o.Clock,
			Logger:    o.Logger,
			Recorder:  o.Recorder,
			Transport: o.Transport,
		})
	})
	f.Register(anthropic.TypeName, func(cfg providers.ProviderConfig, o Options) (providers.Adapter, error) {
		return anthropic.New(cfg, anthropic.Options{
			Clock:     o.Clock,
			Logger:    o.Logger,
			Recorder:  o.Recorder,
			Transport: o.Transport,
		})
	})
	return f
}

// Register adds or replaces the constructor for typeName.
func (f *Factory) Register(typeName string, c Constructor) {
	f.constructors[typeName] = c
}

// Types returns the registered adapter types, sorted.
func (f *Factory) Types() []string {
	types := make([]string, 0, len(f.constructors))
	for t := range f.constructors {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

// Resolve fills unset fields of cfg from its preset and infers the type.
//
// The type is taken from cfg.Type, then the preset, and defaults to
// "openai-compatible" for anything else.
func Resolve(cfg providers.ProviderConfig) providers.ProviderConfig {
	if p, ok := LookupPreset(cfg.Name); ok {
		if cfg.Type == "" {
			cfg.Type = p.Type
		}
		if cfg.BaseURL == "" {
			cfg.BaseURL = p.BaseURL
			// Only a preset-owned endpoint decides whether a key is needed.
			cfg.RequiresKey = cfg.RequiresKey || p.RequiresKey
		}
		if cfg.MinRequestInterval == 0 {
			cfg.MinRequestInterval = p.MinRequestInterval
		}
		if len(cfg.Models) == 0 {
			cfg.Models = p.Models
		}
	}
	if cfg.Type == "" {
		cfg.Type = openaicompat.TypeName
	}
	return cfg
}

// NewProvider creates a single adapter from cfg.
//
// Example:
//
//	adapter, err := factory.NewProvider(providers.ProviderConfig{
//	    Name:    "groq",
//	    APIKeys: []string{os.Getenv("GROQ_API_KEY")},
//	})
//	if err != nil {
//	    return err
//	}
//	defer adapter.Close()
func (f *Factory) NewProvider(cfg providers.ProviderConfig) (providers.Adapter, error) {
	cfg = Resolve(cfg)

	constructor, ok := f.constructors[cfg.Type]
	if !ok {
		return nil, &providers.ConfigError{
			Provider: cfg.Name,
			Field:    "type",
			Message:  fmt.Sprintf("unsupported provider type: %q (supported: %v)", cfg.Type, f.Types()),
		}
	}

	f.logger.Debug("creating provider",
		"name", cfg.Name,
		"type", cfg.Type,
		"base_url", cfg.BaseURL,
	)

	opts := f.opts
	opts.Logger = f.logger.With("provider", cfg.Name)

	adapter, err := constructor(cfg, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to create provider %q: %w", cfg.Name, err)
	}
	return adapter, nil
}

// Enabled reports whether spec should be built: it must be switched on and,
// when its endpoint needs a key, carry at least one.
func Enabled(spec Spec) bool {
	if !spec.Enabled {
		return false
	}
	cfg := Resolve(spec.ProviderConfig)
	if !cfg.RequiresKey {
		return true
	}
	for _, k := range cfg.APIKeys {
		if k != "" {
			return true
		}
	}
	return false
}

// BuildAdapters builds the enabled adapters once, in configuration order.
// Construction failures exclude the adapter and are returned alongside the
// adapters that were built; they are never retried.
func (f *Factory) BuildAdapters(specs []Spec) ([]providers.Adapter, []error) {
	var (
		adapters []providers.Adapter
		errs     []error
		seen     = make(map[string]bool, len(specs))
	)

	for _, spec := range specs {
		if !Enabled(spec) {
			f.logger.Info("provider disabled, skipping", "name", spec.Name)
			continue
		}
		if seen[spec.Name] {
			err := &providers.ConfigError{
				Provider: spec.Name,
				Field:    "name",
				Message:  "duplicate provider name",
			}
			f.logger.Error("failed to load provider", "name", spec.Name, "error", err)
			errs = append(errs, err)
			continue
		}

		adapter, err := f.NewProvider(spec.ProviderConfig)
		if err != nil {
			f.logger.Error("failed to load provider", "name", spec.Name, "error", err)
			errs = append(errs, err)
			continue
		}
		seen[spec.Name] = true
		adapters = append(adapters, adapter)
	}

	f.logger.Info("providers loaded",
		"loaded", len(adapters),
		"failed", len(errs),
		"configured", len(specs),
	)
	return adapters, errs
}
