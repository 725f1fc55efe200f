package anthropic

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

const (
	// TypeName is the configuration type of this adapter.
	TypeName = "anthropic"

	// DefaultBaseURL is the public Anthropic API endpoint.
	DefaultBaseURL = "https://api.anthropic.com"

	// DefaultAnthropicVersion is the API version header value.
	DefaultAnthropicVersion = "2023-06-01"
)

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

// Provider is an adapter for the Anthropic Messages API.
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

// New creates a new Anthropic adapter. BaseURL defaults to DefaultBaseURL
// and the anthropic-version header to DefaultAnthropicVersion.
func New(cfg providers.ProviderConfig, opts Options) (*Provider, error) {
	if cfg.Name == "" {
		cfg.Name = TypeName
	}
	if strings.Contains(cfg.Name, "/") {
		return nil, &providers.ConfigError{
			Provider: cfg.Name,
			Field:    "name",
			Message:  "provider name must not contain '/'",
		}
	}
	if !hasKey(cfg.APIKeys) {
		return nil, &providers.ConfigError{
			Provider: cfg.Name,
			Field:    "api_keys",
			Message:  "at least one API key is required",
		}
	}
	cfg.RequiresKey = true
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}

	headers := make(map[string]string, len(cfg.Headers)+1)
	for k, v := range cfg.Headers {
		headers[k] = v
	}
	if _, ok := headers["anthropic-version"]; !ok {
		headers["anthropic-version"] = DefaultAnthropicVersion
	}
	cfg.Headers = headers

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default().With("component", "providers.anthropic")
	}

	base := providers.NewHTTPProvider(cfg, providers.HTTPOptions{
		Clock:     opts.Clock,
		Logger:    logger,
		Authorize: apiKeyAuth,
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

	logger.Info("Anthropic provider initialized",
		"provider", cfg.Name,
		"base_url", cfg.BaseURL,
		"keys", len(cfg.APIKeys),
	)

	return p, nil
}

// apiKeyAuth sends the key in the x-api-key header.
func apiKeyAuth(h http.Header, key string) {
	h.Set("x-api-key", key)
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

// SetDisabledModels implements providers.ModelDisabler.
func (p *Provider) SetDisabledModels(ids []string) {
	p.catalog.SetDisabled(p.prefixAll(ids))
}

// Chat implements providers.Adapter.
func (p *Provider) Chat(ctx context.Context, messages []providers.Message, opts providers.ChatOptions) (*providers.ChatResponse, error) {
	if err := providers.ValidateChat(messages, opts); err != nil {
		return nil, err
	}

	req, err := buildRequest(p.BaseModelName(opts.Model), messages, opts, false)
	if err != nil {
		return nil, err
	}

	var raw messagesResponse
	err = p.SendJSON(ctx, providers.Request{
		Method: http.MethodPost,
		Path:   "/v1/messages",
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

	req, err := buildRequest(p.BaseModelName(opts.Model), messages, opts, true)
	if err != nil {
		return nil, err
	}
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	resp, err := p.Send(ctx, providers.Request{
		Method: http.MethodPost,
		Path:   "/v1/messages",
		Body:   body,
		Model:  opts.Model,
		Stream: true,
	})
	if err != nil {
		return nil, p.handleError(opts.Model, err)
	}

	state := &streamState{defaults: p.defaults(opts.Model)}
	decode := func(ev providers.SSEEvent) (*providers.ChatChunk, bool, error) {
		return state.decode(p.Name(), ev)
	}
	return providers.NewSSEStream(p.Name(), resp.Body, decode, p.Logger()), nil
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
		ID:      "msg_" + uuid.NewString(),
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
