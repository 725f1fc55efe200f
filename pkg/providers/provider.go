package providers

import (
	"context"
	"errors"
	"io"
	"strings"
	"time"
)

// Adapter is the contract every upstream chat-completion service implements.
// It wraps one upstream API, owns its key pool and model catalog, and only
// ever exposes provider-prefixed model ids ("<provider>/<upstream-id>").
//
// All methods accept a context.Context for cancellation. Implementations
// must be safe for concurrent use.
//
// Example usage:
//
//	adapter, err := openaicompat.New(cfg)
//	if err != nil {
//	    return err
//	}
//
//	if adapter.CanHandle(ctx, "groq/llama-3.3-70b") {
//	    resp, err := adapter.Chat(ctx, []Message{{Role: "user", Content: "Hello!"}},
//	        ChatOptions{Model: "groq/llama-3.3-70b"})
//	    if err != nil {
//	        return err
//	    }
//	    fmt.Println(resp.Content())
//	}
type Adapter interface {
	// Name returns the provider name, which is also its model-id prefix.
	Name() string

	// CanHandle reports whether the current catalog contains modelID.
	// It may refresh the catalog, at most once per TTL window.
	CanHandle(ctx context.Context, modelID string) bool

	// GetModels returns the current catalog, refreshing it when stale.
	// Fetch failures are logged and the last known good catalog (or an
	// empty list) is returned; it never fails.
	GetModels(ctx context.Context) []ModelDescriptor

	// Chat performs a non-streaming chat completion.
	//
	// Errors are classified per ErrorKind: 401/403 bench the active key and
	// return AuthError, 402 disables the model and returns QuotaError, 429
	// rotates through the key pool before returning RateLimitError, and 5xx
	// responses are retried with exponential backoff before returning
	// ProviderError.
	Chat(ctx context.Context, messages []Message, opts ChatOptions) (*ChatResponse, error)

	// ChatStream performs a streaming chat completion. The returned Stream
	// is lazy, finite and non-restartable; the caller must Close it.
	//
	// Example:
	//
	//	stream, err := adapter.ChatStream(ctx, messages, opts)
	//	if err != nil {
	//	    return err
	//	}
	//	defer stream.Close()
	//	for {
	//	    chunk, err := stream.Read(ctx)
	//	    if err == io.EOF {
	//	        break
	//	    }
	//	    if err != nil {
	//	        return err
	//	    }
	//	    fmt.Print(chunk.Delta.Content)
	//	}
	ChatStream(ctx context.Context, messages []Message, opts ChatOptions) (Stream, error)

	// Close releases idle connections held by the adapter.
	Close() error
}

// Stream is a pull-based sequence of chat chunks.
type Stream interface {
	// Read returns the next chunk. It returns nil and io.EOF once the
	// upstream signals completion.
	Read(ctx context.Context) (*ChatChunk, error)

	// Close releases the upstream connection. It is safe to call more than
	// once and must be called when the consumer stops early.
	Close() error
}

// RequestSpacer is implemented by adapters that require a minimum interval
// between consecutive requests. Adapters that do not implement it get no
// enforced spacing.
type RequestSpacer interface {
	MinRequestInterval() time.Duration
}

// ModelDisabler is implemented by adapters whose disabled-model set can be
// replaced at runtime (e.g. on configuration reload).
type ModelDisabler interface {
	SetDisabledModels(ids []string)
}

// KeyReporter is implemented by adapters with a rotating key pool.
type KeyReporter interface {
	KeyStates() []KeyState
}

// KeyResetter is implemented by adapters whose benched keys can be made
// eligible again by an operator.
type KeyResetter interface {
	ResetKeys()
}

// CollectStream drains s and returns the concatenated delta content.
// It always closes s.
func CollectStream(ctx context.Context, s Stream) (string, error) {
	defer s.Close()

	var sb strings.Builder
	for {
		chunk, err := s.Read(ctx)
		if errors.Is(err, io.EOF) {
			return sb.String(), nil
		}
		if err != nil {
			return sb.String(), err
		}
		sb.WriteString(chunk.Delta.Content)
	}
}
