package anthropic

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/Kone-AI/Kone-sub000/pkg/providers"
)

// defaultMaxTokens is sent when the caller leaves MaxTokens unset.
const defaultMaxTokens = 4096

// Anthropic API request/response types

// messagesRequest represents an Anthropic messages request.
type messagesRequest struct {
	Model       string         `json:"model"`
	Messages    []wireMessage  `json:"messages"`
	System      string         `json:"system,omitempty"`
	MaxTokens   int            `json:"max_tokens"`
	Temperature *float64       `json:"temperature,omitempty"`
	Stream      bool           `json:"stream,omitempty"`
	Extra       map[string]any `json:"-"`
}

// MarshalJSON merges Extra into the encoded request.
func (r messagesRequest) MarshalJSON() ([]byte, error) {
	type alias messagesRequest
	base, err := json.Marshal(alias(r))
	if err != nil || len(r.Extra) == 0 {
		return base, err
	}

	merged := make(map[string]any, len(r.Extra)+6)
	if err := json.Unmarshal(base, &merged); err != nil {
		return nil, err
	}
	for k, v := range r.Extra {
		if _, ok := merged[k]; !ok {
			merged[k] = v
		}
	}
	return json.Marshal(merged)
}

// wireMessage represents a message in Anthropic format.
type wireMessage struct {
	Role    string         `json:"role"`
	Content []contentBlock `json:"content"`
}

// contentBlock represents a content block in Anthropic format.
type contentBlock struct {
	Type   string       `json:"type"`
	Text   string       `json:"text,omitempty"`
	Source *imageSource `json:"source,omitempty"`
}

type imageSource struct {
	Type      string `json:"type"`
	MediaType string `json:"media_type,omitempty"`
	Data      string `json:"data,omitempty"`
	URL       string `json:"url,omitempty"`
}

// messagesResponse represents an Anthropic messages response.
type messagesResponse struct {
	ID         string         `json:"id"`
	Type       string         `json:"type"`
	Role       string         `json:"role"`
	Content    []contentBlock `json:"content"`
	Model      string         `json:"model"`
	StopReason string         `json:"stop_reason"`
	Usage      *wireUsage     `json:"usage"`
}

// wireUsage represents token usage in Anthropic format.
type wireUsage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

// streamEvent represents an event in Anthropic's SSE stream.
type streamEvent struct {
	Type    string            `json:"type"`
	Message *messagesResponse `json:"message"`
	Index   int               `json:"index"`
	Delta   *streamDelta      `json:"delta"`
	Usage   *wireUsage        `json:"usage"`
	Error   *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// streamDelta covers both content_block_delta and message_delta payloads.
type streamDelta struct {
	Type       string `json:"type"`
	Text       string `json:"text"`
	StopReason string `json:"stop_reason"`
}

// responseDefaults fills fields the upstream may omit.
type responseDefaults struct {
	ID      string
	Created int64
	Model   string
}

// buildRequest converts messages and options into a messages request.
// model must already be the unprefixed upstream id.
func buildRequest(model string, messages []providers.Message, opts providers.ChatOptions, stream bool) (messagesRequest, error) {
	req := messagesRequest{
		Model:       model,
		MaxTokens:   opts.MaxTokens,
		Temperature: opts.Temperature,
		Stream:      stream,
		Extra:       opts.Extra,
	}
	if req.MaxTokens == 0 {
		req.MaxTokens = defaultMaxTokens
	}

	var system []string
	for i, msg := range messages {
		if msg.Role == providers.RoleSystem {
			if text := msg.Text(); text != "" {
				system = append(system, text)
			}
			continue
		}

		blocks, err := toBlocks(msg)
		if err != nil {
			return messagesRequest{}, &providers.ValidationError{
				Field:   fmt.Sprintf("messages[%d].content", i),
				Message: err.Error(),
			}
		}

		// Consecutive turns of one role are merged.
		if n := len(req.Messages); n > 0 && req.Messages[n-1].Role == msg.Role {
			req.Messages[n-1].Content = append(req.Messages[n-1].Content, blocks...)
			continue
		}
		req.Messages = append(req.Messages, wireMessage{Role: msg.Role, Content: blocks})
	}
	req.System = strings.Join(system, "\n\n")

	if len(req.Messages) == 0 {
		return messagesRequest{}, &providers.ValidationError{
			Field:   "messages",
			Message: "at least one user or assistant message is required",
		}
	}
	return req, nil
}

func toBlocks(msg providers.Message) ([]contentBlock, error) {
	if len(msg.Parts) == 0 {
		return []contentBlock{{Type: "text", Text: msg.Content}}, nil
	}

	blocks := make([]contentBlock, 0, len(msg.Parts))
	for _, part := range msg.Parts {
		switch part.Type {
		case providers.PartTypeText:
			blocks = append(blocks, contentBlock{Type: "text", Text: part.Text})
		case providers.PartTypeImageURL:
			blocks = append(blocks, contentBlock{Type: "image", Source: imageSourceFor(part.ImageURL.URL)})
		default:
			return nil, fmt.Errorf("content part type %q is not supported by anthropic", part.Type)
		}
	}
	return blocks, nil
}

// imageSourceFor maps data URIs to base64 sources and anything else to URL
// sources.
func imageSourceFor(url string) *imageSource {
	if rest, ok := strings.CutPrefix(url, "data:"); ok {
		meta, data, found := strings.Cut(rest, ",")
		if found && strings.HasSuffix(meta, ";base64") {
			return &imageSource{
				Type:      "base64",
				MediaType: strings.TrimSuffix(meta, ";base64"),
				Data:      data,
			}
		}
	}
	return &imageSource{Type: "url", URL: url}
}

// normalizeResponse converts a messages response to the normalized shape.
func normalizeResponse(raw *messagesResponse, d responseDefaults) *providers.ChatResponse {
	var text strings.Builder
	for _, block := range raw.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}

	resp := &providers.ChatResponse{
		ID:      raw.ID,
		Object:  "chat.completion",
		Created: d.Created,
		Model:   d.Model,
		Choices: []providers.Choice{{
			Message:      providers.ResponseMessage{Role: providers.RoleAssistant, Content: text.String()},
			FinishReason: normalizeStopReason(raw.StopReason),
		}},
	}
	if resp.ID == "" {
		resp.ID = d.ID
	}
	if raw.Usage != nil {
		resp.Usage = providers.Usage{
			PromptTokens:     raw.Usage.InputTokens,
			CompletionTokens: raw.Usage.OutputTokens,
			TotalTokens:      raw.Usage.InputTokens + raw.Usage.OutputTokens,
		}
	}
	return resp
}

// normalizeStopReason normalizes Anthropic stop reasons.
func normalizeStopReason(reason string) string {
	switch reason {
	case "", "end_turn", "stop_sequence":
		return providers.FinishReasonStop
	case "max_tokens":
		return providers.FinishReasonLength
	case "tool_use":
		return providers.FinishReasonToolCalls
	case "refusal":
		return providers.FinishReasonContentFilter
	default:
		return reason
	}
}
