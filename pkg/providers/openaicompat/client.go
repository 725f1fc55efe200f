package openaicompat

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/Kone-AI/Kone-sub000/pkg/providers"
)

// TypeName is the configuration type of this adapter family.
const TypeName = "openai-compatible"

// Options carries optional collaborators.
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

// Provider is an adapter for one OpenAI-compatible upstream.
type Provider struct {
	*providers.HTTPProvider

	catalog *providers.Catalog
}

var (
	_ providers.Adapter       = (*Provider)(nil)
	_ providers.RequestSpacer = (*Provider)(nil)
	_ providers.ModelDisabler = (*Provider)(nil)
	_ providers.KeyReporter   = (*Provider)(nil)
)

// New creates a new OpenAI-compatible adapter.
func New(cfg providers.ProviderConfig, opts Options) (*Provider, error) {
	if cfg.Name == "" {
		return nil, &providers.ConfigError{
			Provider: TypeName,
			Field:    "name",
			Message:  "provider name is required",
		}
	}
	if strings.Contains(cfg.Name, "/") {
		return nil, &providers.ConfigError{
			Provider: cfg.Name,
			Field:    "name",
			Message:  "provider name must not contain '/'",
		}
	}
	if cfg.BaseURL == "" {
		return nil, &providers.ConfigError{
			Provider: cfg.Name,
			Field:    "base_url",
			Message:  "base URL is required",
		}
	}
	if cfg.RequiresKey && !hasKey(cfg.APIKeys) {
		return nil, &providers.ConfigError{
			Provider: cfg.Name,
			Field:    "api_keys",
			Message:  "at least one API key is required",
		}
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default().With("component", "providers.openaicompat")
	}

	base := providers.NewHTTPProvider(cfg, providers.HTTPOptions{
		Clock:     opts.Clock,
		Logger:    logger,
		Transport: opts.Transport,
	})

	p := &Provider{HTTPProvider: base}
	p.catalog = providers.NewCatalog(cfg.Name, p.fetchModels, providers.CatalogOptions{
		TTL:      base.Config().CatalogTTL,
		Clock:    base.Clock(),
		Logger:   base.Logger(),
		Recorder: opts.Recorder,
		Disabled: p.prefixAll(cfg.DisabledModels),
	})

	logger.Info("OpenAI-compatible provider initialized",
		"provider", cfg.Name,
		"base_url", cfg.BaseURL,
		"keys", len(cfg.APIKeys),
		"requires_key", cfg.RequiresKey,
	)

	return p, nil
}

// FormatModelName returns the prefixed id of an upstream model.
func (p *Provider) FormatModelName(base string) string {
	return providers.FormatModelName(p.Name(), base)
}

// BaseModelName strips this provider's prefix from id.
func (p *Provider) BaseModelName(id string) string {
	return providers.BaseModelName(p.Name(), id)
}

// Catalog returns the adapter's model catalog.
func (p *Provider) Catalog() *providers.Catalog {
	return p.catalog
}

// CanHandle implements providers.Adapter.
func (p *Provider) CanHandle(ctx context.Context, modelID string) bool {
	if !strings.HasPrefix(modelID, p.Name()+"/") {
		return false
	}
	return p.catalog.Contains(ctx, modelID)
}

// GetModels implements providers.Adapter.
func (p *Provider) GetModels(ctx context.Context) []providers.ModelDescriptor {
	return p.catalog.Models(ctx)
}

// SetDisabledModels implements providers.ModelDisabler. ids may be base or
// prefixed.
func (p *Provider) SetDisabledModels(ids []string) {
	p.catalog.SetDisabled(p.prefixAll(ids))
}

// Chat implements providers.Adapter.
func (p *Provider) Chat(ctx context.Context, messages []providers.Message, opts providers.ChatOptions) (*providers.ChatResponse, error) {
	if err := providers.ValidateChat(messages, opts); err != nil {
		return nil, err
	}

	req := buildRequest(p.BaseModelName(opts.Model), messages, opts, false)

	var raw chatResponse
	err := p.SendJSON(ctx, providers.Request{
		Method: http.MethodPost,
		Path:   "/chat/completions",
		Model:  opts.Model,
	}, req, &raw)
	if err != nil {
		return nil, p.handleError(opts.Model, err)
	}

	return normalizeResponse(&raw, p.defaults(opts.Model)), nil
}

// ChatStream implements providers.Adapter.
func (p *Provider) ChatStream(ctx context.Context, messages []providers.Message, opts providers.ChatOptions) (providers.Stream, error) {
	if err := providers.ValidateChat(messages, opts); err != nil {
		return nil, err
	}

	body, err := json.Marshal(buildRequest(p.BaseModelName(opts.Model), messages, opts, true))
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	resp, err := p.Send(ctx, providers.Request{
		Method: http.MethodPost,
		Path:   "/chat/completions",
		Body:   body,
		Model:  opts.Model,
		Stream: true,
	})
	if err != nil {
		return nil, p.handleError(opts.Model, err)
	}

	return providers.NewSSEStream(p.Name(), resp.Body, p.chunkDecoder(p.defaults(opts.Model)), p.Logger()), nil
}

// handleError applies model-level side effects of a failed call.
func (p *Provider) handleError(model string, err error) error {
	if providers.KindOf(err) == providers.KindQuotaExceeded {
		p.catalog.Disable(model)
		p.Logger().Warn("model disabled after quota error", "model", model, "error", err)
	}
	return err
}

func (p *Provider) defaults(model string) responseDefaults {
	return responseDefaults{
		ID:      "chatcmpl-" + uuid.NewString(),
		Created: p.Clock().Now().Unix(),
		Model:   model,
	}
}

func (p *Provider) prefixAll(ids []string) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if strings.HasPrefix(id, p.Name()+"/") {
			out = append(out, id)
			continue
		}
		out = append(out, p.FormatModelName(id))
	}
	return out
}

func hasKey(keys []string) bool {
	for _, k := range keys {
		if k != "" {
			return true
		}
	}
	return false
}
