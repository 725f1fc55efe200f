// Package providers defines the adapter contract of the gateway and the
// building blocks every adapter family shares.
//
// # Overview
//
// An Adapter wraps one upstream chat-completion API. It owns a pool of API
// keys (KeyRotator), a cached model catalog (Catalog), and only ever exposes
// provider-prefixed model ids such as "groq/llama-3.3-70b". FormatModelName
// and BaseModelName convert between the two forms and round-trip exactly.
//
// # Architecture
//
// The package is organized into several layers:
//
//  1. Adapter Interface - The contract all adapters implement
//  2. Base HTTP Provider - Connection pooling, key rotation, retries, status classification
//  3. Adapter Families - openaicompat and anthropic subpackages
//  4. Provider Factory - Builds adapters from configuration (providerfactory)
//  5. Provider Manager - Routes requests across adapters (providerfactory)
//
// # Basic Usage
//
//	adapter, err := openaicompat.New(providers.ProviderConfig{
//	    Name:        "groq",
//	    BaseURL:     "https://api.groq.com/openai/v1",
//	    APIKeys:     []string{os.Getenv("GROQ_API_KEY")},
//	    RequiresKey: true,
//	}, openaicompat.Options{})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer adapter.Close()
//
//	resp, err := adapter.Chat(ctx,
//	    []providers.Message{{Role: providers.RoleUser, Content: "Hello!"}},
//	    providers.ChatOptions{Model: "groq/llama-3.3-70b"})
//
// # Streaming
//
// ChatStream returns a pull-based Stream. CollectStream drains one into a
// string:
//
//	stream, err := adapter.ChatStream(ctx, messages, opts)
//	if err != nil {
//	    return err
//	}
//	text, err := providers.CollectStream(ctx, stream)
//
// # Error Handling
//
// Every failure is classified by ErrorKind; KindOf extracts it from any
// wrapped error:
//
//   - ValidationError: invalid_request, never retried
//   - AuthError: unauthorized (HTTP 401/403), key benched until reset
//   - QuotaError: quota_exceeded (HTTP 402), model disabled
//   - RateLimitError: rate_limited (HTTP 429), key benched for a cooldown
//   - ProviderError, ParseError, StreamError: upstream_error
//   - TimeoutError: timeout
//   - NoKeyError: no_key_available
//   - NoProviderError: no_provider_available
//
// Example error handling:
//
//	switch providers.KindOf(err) {
//	case providers.KindRateLimited, providers.KindNoKeyAvailable:
//	    // try another provider later
//	case providers.KindInvalidRequest:
//	    // report to the caller
//	}
//
// # Thread Safety
//
// KeyRotator, Catalog, HTTPProvider and all adapters are safe for concurrent
// use from multiple goroutines.
package providers
