package providers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"testing"
)

type closeRecorder struct {
	io.Reader
	closed int
}

func (c *closeRecorder) Close() error {
	c.closed++
	return nil
}

func TestSSEReader_Next(t *testing.T) {
	body := ": keep-alive\n" +
		"event: message_start\n" +
		"data: {\"a\":1}\n" +
		"\n" +
		"data: line1\n" +
		"data: line2\n" +
		"\r\n" +
		"data: [DONE]"

	r := NewSSEReader(strings.NewReader(body))

	want := []SSEEvent{
		{Event: "message_start", Data: `{"a":1}`},
		{Data: "line1\nline2"},
		{Data: "[DONE]"},
	}
	for i, w := range want {
		ev, err := r.Next()
		if err != nil {
			t.Fatalf("event %d: %v", i, err)
		}
		if ev != w {
			t.Errorf("event %d: expected %+v, got %+v", i, w, ev)
		}
	}
	if _, err := r.Next(); !errors.Is(err, io.EOF) {
		t.Errorf("expected io.EOF, got %v", err)
	}
}

func decodeTestChunk(ev SSEEvent) (*ChatChunk, bool, error) {
	if ev.Data == "[DONE]" {
		return nil, true, nil
	}
	var payload struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal([]byte(ev.Data), &payload); err != nil {
		return nil, false, err
	}
	return &ChatChunk{Delta: ChunkDelta{Content: payload.Text}}, false, nil
}

func TestSSEStream_SkipsMalformed(t *testing.T) {
	body := &closeRecorder{Reader: strings.NewReader(
		"data: {\"text\":\"Hel\"}\n\n" +
			"data: {not json\n\n" +
			"data: {\"text\":\"lo\"}\n\n" +
			"data: [DONE]\n\n" +
			"data: {\"text\":\"ignored\"}\n\n",
	)}

	s := NewSSEStream("p", body, decodeTestChunk, nil)
	text, err := CollectStream(context.Background(), s)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if text != "Hello" {
		t.Errorf("expected %q, got %q", "Hello", text)
	}
	if body.closed != 1 {
		t.Errorf("expected body closed once, got %d", body.closed)
	}

	if _, err := s.Read(context.Background()); !errors.Is(err, io.EOF) {
		t.Errorf("expected io.EOF after completion, got %v", err)
	}
	_ = s.Close()
	if body.closed != 1 {
		t.Errorf("Close must be idempotent, body closed %d times", body.closed)
	}
}

func TestSSEStream_StreamErrorStops(t *testing.T) {
	body := &closeRecorder{Reader: strings.NewReader("data: x\n\n")}
	decode := func(SSEEvent) (*ChatChunk, bool, error) {
		return nil, false, &StreamError{Provider: "p", Message: "overloaded"}
	}

	s := NewSSEStream("p", body, decode, nil)
	defer s.Close()

	_, err := s.Read(context.Background())
	var se *StreamError
	if !errors.As(err, &se) {
		t.Fatalf("expected StreamError, got %v", err)
	}
}

func TestSSEStream_CancelledContext(t *testing.T) {
	body := &closeRecorder{Reader: strings.NewReader("data: {\"text\":\"x\"}\n\n")}
	s := NewSSEStream("p", body, decodeTestChunk, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := s.Read(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	if body.closed != 1 {
		t.Errorf("expected body closed on cancellation, got %d", body.closed)
	}
}
