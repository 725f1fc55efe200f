package providers

import (
	"context"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/Kone-AI/Kone-sub000/pkg/providers"
)

// MockResult is one scripted outcome of a MockAdapter call.
type MockResult struct {
	Content string
	Err     error
}

// ChatCall records one call made to a MockAdapter.
type ChatCall struct {
	Model    string
	Messages []providers.Message
	Stream   bool
}

// MockAdapter is a scripted in-memory adapter.
// Results are consumed in order; once exhausted the fallback is returned.
type MockAdapter struct {
	name     string
	interval time.Duration

	mu       sync.Mutex
	models   []providers.ModelDescriptor
	results  []MockResult
	fallback MockResult
	calls    []ChatCall
	disabled []string
	resets   int
	closed   bool
}

// NewMockAdapter creates an adapter named name that serves the given base
// model ids (they are prefixed with name) and answers "ok" by default.
func NewMockAdapter(name string, baseModels ...string) *MockAdapter {
	m := &MockAdapter{name: name, fallback: MockResult{Content: "ok"}}
	for _, base := range baseModels {
		m.models = append(m.models, providers.ModelDescriptor{
			ID:            providers.FormatModelName(name, base),
			DisplayName:   base,
			ContextLength: providers.DefaultContextLength,
			Capabilities:  providers.Capabilities{Text: true},
			OwnedBy:       name,
		})
	}
	return m
}

// WithInterval sets the minimum request interval reported by the adapter.
func (m *MockAdapter) WithInterval(d time.Duration) *MockAdapter {
	m.interval = d
	return m
}

// Queue appends scripted results.
func (m *MockAdapter) Queue(results ...MockResult) *MockAdapter {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.results = append(m.results, results...)
	return m
}

// SetFallback sets the result returned once the queue is empty.
func (m *MockAdapter) SetFallback(r MockResult) *MockAdapter {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fallback = r
	return m
}

// Calls returns the recorded chat calls.
func (m *MockAdapter) Calls() []ChatCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]ChatCall, len(m.calls))
	copy(out, m.calls)
	return out
}

// Disabled returns the ids last passed to SetDisabledModels.
func (m *MockAdapter) Disabled() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.disabled...)
}

// Closed reports whether Close was called.
func (m *MockAdapter) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

// Name implements providers.Adapter.
func (m *MockAdapter) Name() string { return m.name }

// CanHandle implements providers.Adapter.
func (m *MockAdapter) CanHandle(_ context.Context, modelID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, d := range m.models {
		if d.ID == modelID {
			return true
		}
	}
	return false
}

// GetModels implements providers.Adapter.
func (m *MockAdapter) GetModels(context.Context) []providers.ModelDescriptor {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]providers.ModelDescriptor(nil), m.models...)
}

// MinRequestInterval implements providers.RequestSpacer.
func (m *MockAdapter) MinRequestInterval() time.Duration { return m.interval }

// SetDisabledModels implements providers.ModelDisabler.
func (m *MockAdapter) SetDisabledModels(ids []string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.disabled = append([]string(nil), ids...)
}

// ResetKeys implements providers.KeyResetter.
func (m *MockAdapter) ResetKeys() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.resets++
}

// KeyResets returns how often ResetKeys was called.
func (m *MockAdapter) KeyResets() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.resets
}

func (m *MockAdapter) take(opts providers.ChatOptions, messages []providers.Message, stream bool) MockResult {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls = append(m.calls, ChatCall{Model: opts.Model, Messages: messages, Stream: stream})
	if len(m.results) > 0 {
		r := m.results[0]
		m.results = m.results[1:]
		return r
	}
	return m.fallback
}

// Chat implements providers.Adapter.
func (m *MockAdapter) Chat(ctx context.Context, messages []providers.Message, opts providers.ChatOptions) (*providers.ChatResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r := m.take(opts, messages, false)
	if r.Err != nil {
		return nil, r.Err
	}
	return &providers.ChatResponse{
		ID:      "mock-" + m.name,
		Object:  "chat.completion",
		Created: 1700000000,
		Model:   opts.Model,
		Choices: []providers.Choice{{
			Message:      providers.ResponseMessage{Role: providers.RoleAssistant, Content: r.Content},
			FinishReason: providers.FinishReasonStop,
		}},
	}, nil
}

// ChatStream implements providers.Adapter. The scripted content is streamed
// one word per chunk.
func (m *MockAdapter) ChatStream(ctx context.Context, messages []providers.Message, opts providers.ChatOptions) (providers.Stream, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r := m.take(opts, messages, true)
	if r.Err != nil {
		return nil, r.Err
	}

	var chunks []*providers.ChatChunk
	for i, word := range strings.Fields(r.Content) {
		if i > 0 {
			word = " " + word
		}
		chunks = append(chunks, &providers.ChatChunk{
			ID:    "mock-" + m.name,
			Model: opts.Model,
			Delta: providers.ChunkDelta{Content: word},
		})
	}
	return NewSliceStream(chunks...), nil
}

// Close implements providers.Adapter.
func (m *MockAdapter) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// SliceStream is a providers.Stream over fixed chunks.
type SliceStream struct {
	mu     sync.Mutex
	chunks []*providers.ChatChunk
	closed bool
}

// NewSliceStream creates a stream that yields chunks then io.EOF.
func NewSliceStream(chunks ...*providers.ChatChunk) *SliceStream {
	return &SliceStream{chunks: chunks}
}

// Read implements providers.Stream.
func (s *SliceStream) Read(ctx context.Context) (*providers.ChatChunk, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || len(s.chunks) == 0 {
		return nil, io.EOF
	}
	c := s.chunks[0]
	s.chunks = s.chunks[1:]
	return c, nil
}

// Close implements providers.Stream.
func (s *SliceStream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// Closed reports whether Close was called.
func (s *SliceStream) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}
