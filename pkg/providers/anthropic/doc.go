// Package anthropic implements the adapter for Anthropic's Messages API.
//
// The adapter translates the normalized chat contract to /v1/messages:
//
//   - System messages are lifted into the top-level "system" field
//   - Consecutive messages of the same role are merged into one turn
//   - Image parts become base64 or URL image blocks
//   - max_tokens defaults to 4096 because the API requires it
//
// Keys are sent in the x-api-key header and rotate exactly like the
// OpenAI-compatible family. The model catalog is read from /v1/models.
//
// # Basic Usage
//
//	p, err := anthropic.New(providers.ProviderConfig{
//	    Name:        "anthropic",
//	    APIKeys:     []string{os.Getenv("ANTHROPIC_API_KEY")},
//	    RequiresKey: true,
//	}, anthropic.Options{})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer p.Close()
//
//	resp, err := p.Chat(ctx, messages,
//	    providers.ChatOptions{Model: "anthropic/claude-3-5-haiku-latest"})
//
// # Streaming
//
// Anthropic streams typed events (message_start, content_block_delta,
// message_delta, message_stop). Text deltas become chunks, message_delta
// carries the finish reason and usage, and message_stop ends the stream.
package anthropic
