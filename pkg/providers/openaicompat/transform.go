package openaicompat

import (
	"encoding/json"
	"strings"

	"github.com/Kone-AI/Kone-sub000/pkg/providers"
)

// OpenAI-compatible wire types

// chatRequest is an OpenAI chat completion request.
type chatRequest struct {
	Model         string              `json:"model"`
	Messages      []providers.Message `json:"messages"`
	Temperature   *float64            `json:"temperature,omitempty"`
	MaxTokens     int                 `json:"max_tokens,omitempty"`
	Stream        bool                `json:"stream,omitempty"`
	StreamOptions *streamOptions      `json:"stream_options,omitempty"`

	// Extra holds passthrough fields; declared fields win on conflict
	Extra map[string]any `json:"-"`
}

type streamOptions struct {
	IncludeUsage bool `json:"include_usage"`
}

// MarshalJSON merges Extra into the encoded request.
func (r chatRequest) MarshalJSON() ([]byte, error) {
	type alias chatRequest
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

// chatResponse is an OpenAI chat completion response.
type chatResponse struct {
	ID      string       `json:"id"`
	Object  string       `json:"object"`
	Created int64        `json:"created"`
	Model   string       `json:"model"`
	Choices []wireChoice `json:"choices"`
	Usage   *wireUsage   `json:"usage"`
}

type wireChoice struct {
	Index        int         `json:"index"`
	Message      wireMessage `json:"message"`
	FinishReason *string     `json:"finish_reason"`
}

// wireMessage tolerates content as a string, a part array or null.
type wireMessage struct {
	Role    string          `json:"role"`
	Content json.RawMessage `json:"content"`
}

type wireUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// chatChunk is one event of an OpenAI SSE stream.
type chatChunk struct {
	ID      string            `json:"id"`
	Created int64             `json:"created"`
	Model   string            `json:"model"`
	Choices []wireChunkChoice `json:"choices"`
	Usage   *wireUsage        `json:"usage"`
	Error   *wireError        `json:"error"`
}

type wireChunkChoice struct {
	Index        int       `json:"index"`
	Delta        wireDelta `json:"delta"`
	FinishReason *string   `json:"finish_reason"`
}

type wireDelta struct {
	Role    string          `json:"role"`
	Content json.RawMessage `json:"content"`
}

type wireError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
}

// responseDefaults fills fields the upstream may omit.
type responseDefaults struct {
	// ID is used when the upstream sends no id
	ID string

	// Created is used when the upstream sends no timestamp
	Created int64

	// Model is the prefixed model id reported to callers
	Model string
}

// buildRequest converts messages and options into the upstream request.
// model must already be the unprefixed upstream id.
func buildRequest(model string, messages []providers.Message, opts providers.ChatOptions, stream bool) chatRequest {
	req := chatRequest{
		Model:       model,
		Messages:    messages,
		Temperature: opts.Temperature,
		MaxTokens:   opts.MaxTokens,
		Stream:      stream,
		Extra:       opts.Extra,
	}
	if stream {
		req.StreamOptions = &streamOptions{IncludeUsage: true}
	}
	return req
}

// normalizeResponse converts an upstream response to the normalized shape.
// It never fails: missing fields are filled from d or safe defaults.
func normalizeResponse(raw *chatResponse, d responseDefaults) *providers.ChatResponse {
	resp := &providers.ChatResponse{
		ID:      raw.ID,
		Object:  "chat.completion",
		Created: raw.Created,
		Model:   d.Model,
	}
	if resp.ID == "" {
		resp.ID = d.ID
	}
	if resp.Created == 0 {
		resp.Created = d.Created
	}

	for i, c := range raw.Choices {
		role := c.Message.Role
		if role == "" {
			role = providers.RoleAssistant
		}
		resp.Choices = append(resp.Choices, providers.Choice{
			Index:        i,
			Message:      providers.ResponseMessage{Role: role, Content: contentText(c.Message.Content)},
			FinishReason: normalizeFinishReason(c.FinishReason, providers.FinishReasonStop),
		})
	}
	if len(resp.Choices) == 0 {
		resp.Choices = []providers.Choice{{
			Message:      providers.ResponseMessage{Role: providers.RoleAssistant},
			FinishReason: providers.FinishReasonStop,
		}}
	}

	if raw.Usage != nil {
		resp.Usage = providers.Usage{
			PromptTokens:     raw.Usage.PromptTokens,
			CompletionTokens: raw.Usage.CompletionTokens,
			TotalTokens:      raw.Usage.TotalTokens,
		}
		if resp.Usage.TotalTokens == 0 {
			resp.Usage.TotalTokens = resp.Usage.PromptTokens + resp.Usage.CompletionTokens
		}
	}

	return resp
}

// normalizeChunk converts an upstream stream event. It returns nil for
// events that carry neither a choice nor usage.
func normalizeChunk(raw *chatChunk, d responseDefaults) *providers.ChatChunk {
	if len(raw.Choices) == 0 && raw.Usage == nil {
		return nil
	}

	chunk := &providers.ChatChunk{
		ID:      raw.ID,
		Created: raw.Created,
		Model:   d.Model,
	}
	if chunk.ID == "" {
		chunk.ID = d.ID
	}
	if chunk.Created == 0 {
		chunk.Created = d.Created
	}

	if len(raw.Choices) > 0 {
		c := raw.Choices[0]
		chunk.Delta = providers.ChunkDelta{Role: c.Delta.Role, Content: contentText(c.Delta.Content)}
		chunk.FinishReason = normalizeFinishReason(c.FinishReason, "")
	}
	if raw.Usage != nil {
		chunk.Usage = &providers.Usage{
			PromptTokens:     raw.Usage.PromptTokens,
			CompletionTokens: raw.Usage.CompletionTokens,
			TotalTokens:      raw.Usage.TotalTokens,
		}
	}
	return chunk
}

// contentText extracts text from a string, a part array, or null.
func contentText(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}

	var parts []providers.ContentPart
	if err := json.Unmarshal(raw, &parts); err == nil {
		var sb strings.Builder
		for _, p := range parts {
			if p.Type == providers.PartTypeText {
				sb.WriteString(p.Text)
			}
		}
		return sb.String()
	}
	return ""
}

// normalizeFinishReason maps upstream finish reasons to the normalized set.
func normalizeFinishReason(reason *string, fallback string) string {
	if reason == nil || *reason == "" {
		return fallback
	}
	switch *reason {
	case "stop", "eos", "end_turn":
		return providers.FinishReasonStop
	case "length", "max_tokens":
		return providers.FinishReasonLength
	case "tool_calls", "function_call":
		return providers.FinishReasonToolCalls
	case "content_filter":
		return providers.FinishReasonContentFilter
	default:
		return *reason
	}
}
