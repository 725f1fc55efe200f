package providers

import (
	"bufio"
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
)

// maxSSELine bounds a single server-sent event line.
const maxSSELine = 1024 * 1024

// SSEEvent is one dispatched server-sent event.
type SSEEvent struct {
	// Event is the event type ("" when the upstream sends none)
	Event string

	// Data is the event payload; multiple data lines are joined by "\n"
	Data string
}

// SSEReader parses a text/event-stream body.
type SSEReader struct {
	scanner *bufio.Scanner
}

// NewSSEReader creates a reader over r.
func NewSSEReader(r io.Reader) *SSEReader {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxSSELine)
	return &SSEReader{scanner: scanner}
}

// Next returns the next event, or io.EOF once the body is exhausted.
func (r *SSEReader) Next() (SSEEvent, error) {
	var (
		ev      SSEEvent
		data    []string
		pending bool
	)

	for r.scanner.Scan() {
		line := strings.TrimRight(r.scanner.Text(), "\r")

		if line == "" {
			if pending {
				ev.Data = strings.Join(data, "\n")
				return ev, nil
			}
			continue
		}
		if strings.HasPrefix(line, ":") {
			continue
		}

		field, value, _ := strings.Cut(line, ":")
		value = strings.TrimPrefix(value, " ")

		switch field {
		case "event":
			ev.Event = value
			pending = true
		case "data":
			data = append(data, value)
			pending = true
		}
	}

	if err := r.scanner.Err(); err != nil {
		return SSEEvent{}, err
	}
	if pending {
		ev.Data = strings.Join(data, "\n")
		return ev, nil
	}
	return SSEEvent{}, io.EOF
}

// ChunkDecoder turns one event into a chunk. It returns done when the event
// terminates the stream and a nil chunk for events that carry no content.
type ChunkDecoder func(ev SSEEvent) (chunk *ChatChunk, done bool, err error)

// SSEStream is a Stream over a server-sent event body.
type SSEStream struct {
	provider string
	body     io.ReadCloser
	reader   *SSEReader
	decode   ChunkDecoder
	logger   *slog.Logger

	closeOnce sync.Once
	done      bool
}

// NewSSEStream wraps body. The stream owns body and closes it on Close.
func NewSSEStream(provider string, body io.ReadCloser, decode ChunkDecoder, logger *slog.Logger) *SSEStream {
	if logger == nil {
		logger = slog.Default()
	}
	return &SSEStream{
		provider: provider,
		body:     body,
		reader:   NewSSEReader(body),
		decode:   decode,
		logger:   logger,
	}
}

// Read returns the next content chunk. Events that fail to decode are
// skipped. Cancelling ctx closes the upstream body and unblocks Read.
func (s *SSEStream) Read(ctx context.Context) (*ChatChunk, error) {
	if s.done {
		return nil, io.EOF
	}
	if err := ctx.Err(); err != nil {
		s.Close()
		return nil, err
	}

	stop := context.AfterFunc(ctx, func() { s.Close() })
	defer stop()

	for {
		ev, err := s.reader.Next()
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			s.done = true
			if errors.Is(err, io.EOF) {
				return nil, io.EOF
			}
			return nil, &StreamError{Provider: s.provider, Message: "failed to read stream", Cause: err}
		}

		chunk, done, err := s.decode(ev)
		if err != nil {
			var streamErr *StreamError
			if errors.As(err, &streamErr) {
				s.done = true
				return nil, err
			}
			s.logger.Debug("skipping malformed stream event", "event", ev.Event, "error", err)
			continue
		}
		if done {
			s.done = true
			return nil, io.EOF
		}
		if chunk != nil {
			return chunk, nil
		}
	}
}

// Close releases the upstream body. It is safe to call more than once.
func (s *SSEStream) Close() error {
	var err error
	s.closeOnce.Do(func() {
		err = s.body.Close()
	})
	return err
}
