// Package openaicompat implements the adapter family for upstreams that speak
// the OpenAI chat completions protocol (Groq, OpenRouter, Together, Cerebras,
// Mistral, DeepInfra, Pollinations, local servers, ...).
//
// One Provider instance wraps one upstream. It supports:
//
//   - Chat completions, streaming and non-streaming
//   - Multimodal content parts (image_url, input_audio)
//   - Rotation over several API keys, or keyless access
//   - A cached /models catalog with free-only and disabled-model filters
//
// # Basic Usage
//
//	p, err := openaicompat.New(providers.ProviderConfig{
//	    Name:        "groq",
//	    BaseURL:     "https://api.groq.com/openai/v1",
//	    APIKeys:     []string{os.Getenv("GROQ_API_KEY")},
//	    RequiresKey: true,
//	}, openaicompat.Options{})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer p.Close()
//
//	resp, err := p.Chat(ctx,
//	    []providers.Message{{Role: "user", Content: "Hello!"}},
//	    providers.ChatOptions{Model: "groq/llama-3.3-70b-versatile"})
//
// Model ids are always exposed with the provider prefix; the prefix is
// stripped before the upstream call and restored on every response.
//
// # Streaming
//
// ChatStream returns a providers.Stream backed by the upstream SSE body.
// Malformed events are skipped, "data: [DONE]" ends the stream, and closing
// the stream (or cancelling the context) releases the connection.
package openaicompat
