package providers

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"time"
)

// MockServer is a mock HTTP server for testing adapters.
// It simulates upstream responses including errors and SSE streams.
type MockServer struct {
	server   *httptest.Server
	fallback map[string]MockResponse
	queued   map[string][]MockResponse
	requests []RecordedRequest
	mu       sync.Mutex
}

// MockResponse defines a mock response configuration.
type MockResponse struct {
	StatusCode int
	Body       any
	Delay      time.Duration
	Headers    map[string]string

	// StreamChunks are sent as "data: <chunk>" events followed by [DONE]
	StreamChunks []string

	// StreamEvents are written verbatim, each followed by a blank line
	StreamEvents []string
}

// RecordedRequest is a request observed by the mock server.
type RecordedRequest struct {
	Method string
	Path   string
	Header http.Header
	Body   []byte
}

// JSON decodes the recorded body into v.
func (r RecordedRequest) JSON(v any) error {
	return json.Unmarshal(r.Body, v)
}

// NewMockServer creates a new mock server.
func NewMockServer() *MockServer {
	ms := &MockServer{
		fallback: make(map[string]MockResponse),
		queued:   make(map[string][]MockResponse),
	}
	ms.server = httptest.NewServer(http.HandlerFunc(ms.handler))
	return ms
}

// URL returns the mock server's base URL.
func (ms *MockServer) URL() string {
	return ms.server.URL
}

// Close closes the mock server.
func (ms *MockServer) Close() {
	ms.server.Close()
}

// SetResponse sets the response served for path once its queue is empty.
func (ms *MockServer) SetResponse(path string, response MockResponse) {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	ms.fallback[path] = response
}

// QueueResponse appends a one-shot response for path. Queued responses are
// served in order before the fallback.
func (ms *MockServer) QueueResponse(path string, responses ...MockResponse) {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	ms.queued[path] = append(ms.queued[path], responses...)
}

// GetRequestCount returns the number of requests received.
func (ms *MockServer) GetRequestCount() int {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	return len(ms.requests)
}

// Requests returns the requests received for path ("" for all).
func (ms *MockServer) Requests(path string) []RecordedRequest {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	var out []RecordedRequest
	for _, r := range ms.requests {
		if path == "" || r.Path == path {
			out = append(out, r)
		}
	}
	return out
}

// ResetRequests clears the recorded requests.
func (ms *MockServer) ResetRequests() {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	ms.requests = nil
}

func (ms *MockServer) next(path string) (MockResponse, bool) {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	if queue := ms.queued[path]; len(queue) > 0 {
		ms.queued[path] = queue[1:]
		return queue[0], true
	}
	resp, ok := ms.fallback[path]
	return resp, ok
}

// handler handles incoming HTTP requests.
func (ms *MockServer) handler(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)

	ms.mu.Lock()
	ms.requests = append(ms.requests, RecordedRequest{
		Method: r.Method,
		Path:   r.URL.Path,
		Header: r.Header.Clone(),
		Body:   body,
	})
	ms.mu.Unlock()

	response, ok := ms.next(r.URL.Path)
	if !ok {
		http.NotFound(w, r)
		return
	}

	if response.Delay > 0 {
		select {
		case <-time.After(response.Delay):
		case <-r.Context().Done():
			return
		}
	}

	for key, value := range response.Headers {
		w.Header().Set(key, value)
	}

	if len(response.StreamChunks) > 0 || len(response.StreamEvents) > 0 {
		ms.handleStream(w, response)
		return
	}

	status := response.StatusCode
	if status == 0 {
		status = http.StatusOK
	}
	w.WriteHeader(status)

	switch v := response.Body.(type) {
	case nil:
	case string:
		_, _ = w.Write([]byte(v))
	case []byte:
		_, _ = w.Write(v)
	default:
		_ = json.NewEncoder(w).Encode(v)
	}
}

// handleStream handles Server-Sent Events streaming responses.
func (ms *MockServer) handleStream(w http.ResponseWriter, response MockResponse) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	for _, ev := range response.StreamEvents {
		fmt.Fprintf(w, "%s\n\n", strings.TrimRight(ev, "\n"))
		flusher.Flush()
	}

	if len(response.StreamChunks) > 0 {
		for _, chunk := range response.StreamChunks {
			fmt.Fprintf(w, "data: %s\n\n", chunk)
			flusher.Flush()
		}
		fmt.Fprintf(w, "data: [DONE]\n\n")
		flusher.Flush()
	}
}

// MockOpenAIResponse creates a mock OpenAI chat completion response.
func MockOpenAIResponse(content string, model string) map[string]any {
	return map[string]any{
		"id":      "chatcmpl-123",
		"object":  "chat.completion",
		"created": 1700000000,
		"model":   model,
		"choices": []map[string]any{
			{
				"index": 0,
				"message": map[string]any{
					"role":    "assistant",
					"content": content,
				},
				"finish_reason": "stop",
			},
		},
		"usage": map[string]any{
			"prompt_tokens":     10,
			"completion_tokens": 20,
			"total_tokens":      30,
		},
	}
}

// MockOpenAIStreamChunk creates a mock OpenAI streaming chunk.
func MockOpenAIStreamChunk(delta string, finishReason string) string {
	choice := map[string]any{
		"index": 0,
		"delta": map[string]any{"content": delta},
	}
	if finishReason != "" {
		choice["finish_reason"] = finishReason
	}

	chunk := map[string]any{
		"id":      "chatcmpl-123",
		"object":  "chat.completion.chunk",
		"created": 1700000000,
		"model":   "upstream-model",
		"choices": []map[string]any{choice},
	}

	bytes, _ := json.Marshal(chunk)
	return string(bytes)
}

// MockOpenAIModels creates a mock OpenAI-compatible /models response.
// Each entry is a base id; models listed in priced get non-zero pricing.
func MockOpenAIModels(ids []string, priced ...string) map[string]any {
	isPriced := make(map[string]bool, len(priced))
	for _, id := range priced {
		isPriced[id] = true
	}

	data := make([]map[string]any, 0, len(ids))
	for _, id := range ids {
		pricing := map[string]any{"prompt": "0", "completion": "0"}
		if isPriced[id] {
			pricing = map[string]any{"prompt": "0.000001", "completion": "0.000002"}
		}
		data = append(data, map[string]any{
			"id":             id,
			"object":         "model",
			"owned_by":       "mock",
			"context_length": 32768,
			"pricing":        pricing,
		})
	}
	return map[string]any{"object": "list", "data": data}
}

// MockAnthropicResponse creates a mock Anthropic messages response.
func MockAnthropicResponse(content string, model string) map[string]any {
	return map[string]any{
		"id":   "msg_123",
		"type": "message",
		"role": "assistant",
		"content": []map[string]any{
			{
				"type": "text",
				"text": content,
			},
		},
		"model":       model,
		"stop_reason": "end_turn",
		"usage": map[string]any{
			"input_tokens":  10,
			"output_tokens": 20,
		},
	}
}

// MockAnthropicStreamEvent creates a mock Anthropic stream event.
func MockAnthropicStreamEvent(eventType string, data any) string {
	var eventData string
	if data != nil {
		bytes, _ := json.Marshal(data)
		eventData = string(bytes)
	}
	return fmt.Sprintf("event: %s\ndata: %s\n", eventType, eventData)
}

// MockAnthropicContentBlockDelta creates a content block delta event.
func MockAnthropicContentBlockDelta(text string) string {
	return MockAnthropicStreamEvent("content_block_delta", map[string]any{
		"type":  "content_block_delta",
		"index": 0,
		"delta": map[string]any{
			"type": "text_delta",
			"text": text,
		},
	})
}

// MockErrorResponse creates a mock error response.
func MockErrorResponse(statusCode int, message string) MockResponse {
	return MockResponse{
		StatusCode: statusCode,
		Body: map[string]any{
			"error": map[string]any{
				"message": message,
				"type":    "invalid_request_error",
				"code":    statusCode,
			},
		},
	}
}

// MockAuthError creates a 401 authentication error response.
func MockAuthError() MockResponse {
	return MockErrorResponse(http.StatusUnauthorized, "Invalid API key")
}

// MockQuotaError creates a 402 payment required response.
func MockQuotaError() MockResponse {
	return MockErrorResponse(http.StatusPaymentRequired, "Insufficient credits")
}

// MockRateLimitError creates a 429 rate limit error response.
func MockRateLimitError(retryAfter int) MockResponse {
	response := MockErrorResponse(http.StatusTooManyRequests, "Rate limit exceeded")
	response.Headers = map[string]string{
		"Retry-After": fmt.Sprintf("%d", retryAfter),
	}
	return response
}

// MockServerError creates a 500 internal server error response.
func MockServerError() MockResponse {
	return MockErrorResponse(http.StatusInternalServerError, "Internal server error")
}
