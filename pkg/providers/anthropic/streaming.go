package anthropic

import (
	"encoding/json"
	"fmt"

	"github.com/Kone-AI/Kone-sub000/pkg/providers"
)

// streamState tracks state across the events of one stream.
type streamState struct {
	defaults    responseDefaults
	id          string
	inputTokens int
}

// decode implements providers.ChunkDecoder.
func (s *streamState) decode(provider string, ev providers.SSEEvent) (*providers.ChatChunk, bool, error) {
	if ev.Data == "" {
		return nil, false, nil
	}

	var event streamEvent
	if err := json.Unmarshal([]byte(ev.Data), &event); err != nil {
		return nil, false, fmt.Errorf("failed to parse stream event: %w", err)
	}
	if event.Type == "" {
		event.Type = ev.Event
	}

	switch event.Type {
	case "message_start":
		if event.Message != nil {
			s.id = event.Message.ID
			if event.Message.Usage != nil {
				s.inputTokens = event.Message.Usage.InputTokens
			}
		}
		return nil, false, nil

	case "content_block_delta":
		if event.Delta == nil || event.Delta.Text == "" {
			return nil, false, nil
		}
		return s.chunk(providers.ChunkDelta{Content: event.Delta.Text}), false, nil

	case "message_delta":
		chunk := s.chunk(providers.ChunkDelta{})
		if event.Delta != nil {
			chunk.FinishReason = normalizeStopReason(event.Delta.StopReason)
		}
		if event.Usage != nil {
			chunk.Usage = &providers.Usage{
				PromptTokens:     s.inputTokens,
				CompletionTokens: event.Usage.OutputTokens,
				TotalTokens:      s.inputTokens + event.Usage.OutputTokens,
			}
		}
		return chunk, false, nil

	case "message_stop":
		return nil, true, nil

	case "error":
		msg := "stream error"
		if event.Error != nil {
			msg = event.Error.Message
		}
		return nil, false, &providers.StreamError{Provider: provider, Message: msg}

	default:
		// ping, content_block_start, content_block_stop
		return nil, false, nil
	}
}

func (s *streamState) chunk(delta providers.ChunkDelta) *providers.ChatChunk {
	id := s.id
	if id == "" {
		id = s.defaults.ID
	}
	return &providers.ChatChunk{
		ID:      id,
		Created: s.defaults.Created,
		Model:   s.defaults.Model,
		Delta:   delta,
	}
}
