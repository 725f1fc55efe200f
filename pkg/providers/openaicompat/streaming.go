package openaicompat

import (
	"encoding/json"
	"fmt"

	"github.com/Kone-AI/Kone-sub000/pkg/providers"
)

// streamDone is the data payload that terminates an OpenAI stream.
const streamDone = "[DONE]"

// chunkDecoder returns a providers.ChunkDecoder for one streaming call.
func (p *Provider) chunkDecoder(d responseDefaults) providers.ChunkDecoder {
	return func(ev providers.SSEEvent) (*providers.ChatChunk, bool, error) {
		return decodeChunk(p.Name(), ev, d)
	}
}

// decodeChunk decodes one SSE event. Malformed payloads return a plain error
// so the stream skips them; upstream error events end the stream.
func decodeChunk(provider string, ev providers.SSEEvent, d responseDefaults) (*providers.ChatChunk, bool, error) {
	if ev.Data == streamDone {
		return nil, true, nil
	}
	if ev.Data == "" {
		return nil, false, nil
	}

	var raw chatChunk
	if err := json.Unmarshal([]byte(ev.Data), &raw); err != nil {
		return nil, false, fmt.Errorf("failed to parse stream chunk: %w", err)
	}
	if raw.Error != nil {
		return nil, false, &providers.StreamError{Provider: provider, Message: raw.Error.Message}
	}

	return normalizeChunk(&raw, d), false, nil
}
