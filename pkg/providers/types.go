package providers

import (
	"encoding/json"
	"time"
)

// Message represents a single message in a conversation.
// Content is either plain text (Content) or a structured list of parts
// (Parts) for multimodal messages. When Parts is non-empty it takes
// precedence over Content.
type Message struct {
	// Role identifies the message sender (system, user, assistant)
	Role string `json:"role"`

	// Content is the message text content
	Content string `json:"-"`

	// Parts contains structured content parts for multimodal messages
	Parts []ContentPart `json:"-"`

	// Name is an optional name for the message sender
	Name string `json:"name,omitempty"`
}

// ContentPart is one element of a multimodal message.
type ContentPart struct {
	// Type is the part type ("text", "image_url", "input_audio")
	Type string `json:"type"`

	// Text is set for text parts
	Text string `json:"text,omitempty"`

	// ImageURL is set for image parts
	ImageURL *ImageURL `json:"image_url,omitempty"`

	// InputAudio is set for audio parts
	InputAudio *InputAudio `json:"input_audio,omitempty"`
}

// ImageURL references an image by URL or data URI.
type ImageURL struct {
	URL    string `json:"url"`
	Detail string `json:"detail,omitempty"`
}

// InputAudio carries base64 encoded audio.
type InputAudio struct {
	Data   string `json:"data"`
	Format string `json:"format"`
}

// wireMessage is the OpenAI-compatible JSON shape of a Message.
type wireMessage struct {
	Role    string          `json:"role"`
	Content json.RawMessage `json:"content"`
	Name    string          `json:"name,omitempty"`
}

// MarshalJSON encodes content as a string, or as a part array for
// multimodal messages.
func (m Message) MarshalJSON() ([]byte, error) {
	var (
		content []byte
		err     error
	)
	if len(m.Parts) > 0 {
		content, err = json.Marshal(m.Parts)
	} else {
		content, err = json.Marshal(m.Content)
	}
	if err != nil {
		return nil, err
	}
	return json.Marshal(wireMessage{Role: m.Role, Content: content, Name: m.Name})
}

// UnmarshalJSON accepts content as a string, a part array, or null.
func (m *Message) UnmarshalJSON(data []byte) error {
	var w wireMessage
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	m.Role = w.Role
	m.Name = w.Name
	m.Content = ""
	m.Parts = nil

	if len(w.Content) == 0 || string(w.Content) == "null" {
		return nil
	}
	if w.Content[0] == '[' {
		return json.Unmarshal(w.Content, &m.Parts)
	}
	return json.Unmarshal(w.Content, &m.Content)
}

// Text returns the textual content of the message, joining text parts
// for multimodal messages.
func (m Message) Text() string {
	if len(m.Parts) == 0 {
		return m.Content
	}
	var text string
	for _, p := range m.Parts {
		if p.Type == PartTypeText {
			text += p.Text
		}
	}
	return text
}

// ChatOptions carries per-call options for a chat completion.
type ChatOptions struct {
	// Model is the provider-prefixed model identifier (required)
	Model string

	// Temperature controls randomness; nil leaves the upstream default
	Temperature *float64

	// MaxTokens is the maximum number of tokens to generate (0 = upstream default)
	MaxTokens int

	// Extra holds passthrough fields forwarded verbatim to the upstream body
	Extra map[string]any
}

// Float64 returns a pointer to v. It is a convenience for ChatOptions.Temperature.
func Float64(v float64) *float64 {
	return &v
}

// Usage tracks token consumption for a request.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// ResponseMessage is the assistant message of a choice.
type ResponseMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Choice is one completion alternative.
type Choice struct {
	Index        int             `json:"index"`
	Message      ResponseMessage `json:"message"`
	FinishReason string          `json:"finish_reason"`
}

// ChatResponse is the normalized, OpenAI-shaped non-streaming response.
// Model always carries the provider-prefixed id.
type ChatResponse struct {
	ID      string   `json:"id"`
	Object  string   `json:"object"`
	Created int64    `json:"created"`
	Model   string   `json:"model"`
	Choices []Choice `json:"choices"`
	Usage   Usage    `json:"usage"`
}

// Content returns the content of the first choice, or "" when there is none.
func (r *ChatResponse) Content() string {
	if r == nil || len(r.Choices) == 0 {
		return ""
	}
	return r.Choices[0].Message.Content
}

// ChunkDelta is the incremental content of a stream chunk.
type ChunkDelta struct {
	Role    string `json:"role,omitempty"`
	Content string `json:"content"`
}

// ChatChunk is a single event of a streaming response.
type ChatChunk struct {
	ID      string     `json:"id"`
	Created int64      `json:"created"`
	Model   string     `json:"model"`
	Delta   ChunkDelta `json:"delta"`

	// FinishReason is empty until the final chunk
	FinishReason string `json:"finish_reason,omitempty"`

	// Usage is included in the final chunk when the upstream reports it
	Usage *Usage `json:"usage,omitempty"`
}

// Capabilities describes the input modalities a model accepts.
type Capabilities struct {
	Text   bool `json:"text"`
	Images bool `json:"images"`
	Audio  bool `json:"audio"`
	Video  bool `json:"video"`
}

// Pricing is expressed in USD per thousand tokens.
type Pricing struct {
	PromptCostPer1K     float64 `json:"prompt_cost_per_1k"`
	CompletionCostPer1K float64 `json:"completion_cost_per_1k"`
}

// ModelDescriptor describes one model an adapter can serve.
// ID is globally unique and provider-prefixed (e.g. "groq/llama-3.3-70b").
type ModelDescriptor struct {
	ID            string       `json:"id"`
	DisplayName   string       `json:"display_name"`
	ContextLength int          `json:"context_length"`
	Capabilities  Capabilities `json:"capabilities"`
	Pricing       Pricing      `json:"pricing"`
	OwnedBy       string       `json:"owned_by"`
}

// IsFree reports whether the model has zero prompt and completion cost.
func (d ModelDescriptor) IsFree() bool {
	return d.Pricing.PromptCostPer1K == 0 && d.Pricing.CompletionCostPer1K == 0
}

// ProviderConfig contains configuration for a single adapter instance.
// This is the adapter-facing subset of config.ProviderConfig.
type ProviderConfig struct {
	// Name is the provider identifier and model-id prefix (e.g., "groq")
	Name string

	// Type is the adapter family ("openai-compatible", "anthropic")
	Type string

	// BaseURL is the API endpoint base URL
	BaseURL string

	// APIKeys is the ordered key pool used for rotation
	APIKeys []string

	// RequiresKey is false for free upstreams that accept anonymous calls
	RequiresKey bool

	// Headers are extra static headers sent with every request
	Headers map[string]string

	// Timeout bounds every upstream call
	Timeout time.Duration

	// KeyCooldown is how long a rate-limited key is benched
	KeyCooldown time.Duration

	// MaxAttempts is the attempt budget for 5xx and timeout retries
	MaxAttempts int

	// RetryBaseDelay is the first backoff delay; it doubles per attempt
	RetryBaseDelay time.Duration

	// CatalogTTL bounds how often the model catalog is refreshed
	CatalogTTL time.Duration

	// MinRequestInterval is the minimum spacing between requests (0 = none)
	MinRequestInterval time.Duration

	// DisabledModels are excluded from the catalog (base or prefixed ids)
	DisabledModels []string

	// Models is a static catalog used instead of the upstream model list
	Models []string

	// FreeOnly restricts the catalog to zero-cost models
	FreeOnly bool

	// MaxIdleConns is the maximum number of idle connections in the pool
	MaxIdleConns int

	// MaxIdleConnsPerHost is the maximum idle connections per host
	MaxIdleConnsPerHost int

	// IdleConnTimeout is how long an idle connection remains in the pool
	IdleConnTimeout time.Duration
}

// Message role constants
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Content part type constants
const (
	PartTypeText       = "text"
	PartTypeImageURL   = "image_url"
	PartTypeInputAudio = "input_audio"
)

// Finish reason constants
const (
	FinishReasonStop          = "stop"
	FinishReasonLength        = "length"
	FinishReasonToolCalls     = "tool_calls"
	FinishReasonContentFilter = "content_filter"
)

// Adapter defaults shared by every adapter family.
const (
	DefaultTimeout        = 60 * time.Second
	DefaultKeyCooldown    = 60 * time.Second
	DefaultMaxAttempts    = 3
	DefaultRetryBaseDelay = time.Second
	DefaultCatalogTTL     = 5 * time.Minute
	DefaultContextLength  = 8192
)

// ApplyDefaults fills zero-valued tuning fields with the adapter defaults.
func (c *ProviderConfig) ApplyDefaults() {
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	if c.KeyCooldown <= 0 {
		c.KeyCooldown = DefaultKeyCooldown
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = DefaultMaxAttempts
	}
	if c.RetryBaseDelay <= 0 {
		c.RetryBaseDelay = DefaultRetryBaseDelay
	}
	if c.CatalogTTL <= 0 {
		c.CatalogTTL = DefaultCatalogTTL
	}
	if c.MaxIdleConns == 0 {
		c.MaxIdleConns = 100
	}
	if c.MaxIdleConnsPerHost == 0 {
		c.MaxIdleConnsPerHost = 10
	}
	if c.IdleConnTimeout == 0 {
		c.IdleConnTimeout = 90 * time.Second
	}
}
