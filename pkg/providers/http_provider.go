package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/Kone-AI/Kone-sub000/pkg/telemetry/tracing"
)

// maxErrorBody bounds how much of an error response is kept in messages.
const maxErrorBody = 2048

// AuthorizeFunc applies an API key to outgoing request headers.
type AuthorizeFunc func(h http.Header, key string)

// BearerAuth sets "Authorization: Bearer <key>".
func BearerAuth(h http.Header, key string) {
	h.Set("Authorization", "Bearer "+key)
}

// HTTPOptions carries the collaborators of an HTTPProvider.
type HTTPOptions struct {
	// Clock drives key cooldowns and retry backoff (default wall clock)
	Clock Clock

	// Logger is the base logger (default slog.Default())
	Logger *slog.Logger

	// Authorize applies a key to a request (default BearerAuth)
	Authorize AuthorizeFunc

	// Transport overrides the pooled transport (tests)
	Transport http.RoundTripper
}

// Request describes one upstream call.
type Request struct {
	// Method is the HTTP method
	Method string

	// Path is appended to the configured base URL
	Path string

	// Body is the encoded request body (nil for none)
	Body []byte

	// Header holds per-request headers
	Header map[string]string

	// Model is the prefixed model id the call is for, if any
	Model string

	// Stream selects the client without an overall timeout
	Stream bool
}

// HTTPProvider is the base implementation for HTTP-based adapters.
// It provides connection pooling, API key rotation, status classification
// and retry of transient failures.
//
// Concrete adapters (openaicompat, anthropic) embed it and build their wire
// payloads on top of Send.
type HTTPProvider struct {
	config ProviderConfig
	client *http.Client

	// streamClient shares the transport but has no overall timeout
	streamClient *http.Client

	keys      *KeyRotator
	clock     Clock
	logger    *slog.Logger
	authorize AuthorizeFunc
}

// NewHTTPProvider creates a new base HTTP provider with connection pooling.
// Config defaults are applied to a copy of cfg.
func NewHTTPProvider(cfg ProviderConfig, opts HTTPOptions) *HTTPProvider {
	cfg.ApplyDefaults()

	if opts.Clock == nil {
		opts.Clock = SystemClock()
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Authorize == nil {
		opts.Authorize = BearerAuth
	}

	transport := opts.Transport
	if transport == nil {
		transport = &http.Transport{
			Proxy:               http.ProxyFromEnvironment,
			MaxIdleConns:        cfg.MaxIdleConns,
			MaxIdleConnsPerHost: cfg.MaxIdleConnsPerHost,
			IdleConnTimeout:     cfg.IdleConnTimeout,
			ForceAttemptHTTP2:   true,
		}
	}

	var keys *KeyRotator
	if cfg.RequiresKey {
		keys = NewKeyRotator(cfg.APIKeys, cfg.KeyCooldown, opts.Clock)
	}

	return &HTTPProvider{
		config:       cfg,
		client:       &http.Client{Transport: transport, Timeout: cfg.Timeout},
		streamClient: &http.Client{Transport: transport},
		keys:         keys,
		clock:        opts.Clock,
		logger:       opts.Logger.With("provider", cfg.Name),
		authorize:    opts.Authorize,
	}
}

// Name returns the provider's configured name.
func (p *HTTPProvider) Name() string {
	return p.config.Name
}

// Config returns the provider's configuration with defaults applied.
func (p *HTTPProvider) Config() ProviderConfig {
	return p.config
}

// Clock returns the provider's time source.
func (p *HTTPProvider) Clock() Clock {
	return p.clock
}

// Logger returns the provider-scoped logger.
func (p *HTTPProvider) Logger() *slog.Logger {
	return p.logger
}

// Keys returns the key rotator, or nil for keyless providers.
func (p *HTTPProvider) Keys() *KeyRotator {
	return p.keys
}

// KeyStates implements KeyReporter.
func (p *HTTPProvider) KeyStates() []KeyState {
	if p.keys == nil {
		return nil
	}
	return p.keys.States()
}

// ResetKeys implements KeyResetter.
func (p *HTTPProvider) ResetKeys() {
	if p.keys != nil {
		p.keys.ResetAll()
	}
}

// MinRequestInterval implements RequestSpacer.
func (p *HTTPProvider) MinRequestInterval() time.Duration {
	return p.config.MinRequestInterval
}

// URL joins path onto the configured base URL.
func (p *HTTPProvider) URL(path string) string {
	return strings.TrimRight(p.config.BaseURL, "/") + "/" + strings.TrimLeft(path, "/")
}

// Send performs req with key rotation and transient-failure retries.
//
// For keyed providers the active key is used first. A 429 benches that key
// for the cooldown and the next eligible key is tried, up to one attempt per
// key. A 401 or 403 benches the key until reset and fails immediately. When
// no key is eligible at the start, Send returns *NoKeyError; when every key
// got rate limited during the call, it returns the last *RateLimitError.
func (p *HTTPProvider) Send(ctx context.Context, req Request) (*http.Response, error) {
	if p.keys == nil {
		return p.sendWithRetry(ctx, req, "")
	}

	var lastErr error
	for n := 0; n < p.keys.Len(); n++ {
		idx, key, ok := p.keys.ActiveKey()
		if !ok {
			break
		}

		resp, err := p.sendWithRetry(ctx, req, key)
		if err == nil {
			p.keys.MarkSuccess(idx)
			return resp, nil
		}

		switch KindOf(err) {
		case KindUnauthorized:
			p.keys.MarkAuthFailed(idx)
			p.logger.WarnContext(ctx, "api key rejected, benched until reset", "key_index", idx, "error", err)
			return nil, err
		case KindRateLimited:
			p.keys.MarkRateLimited(idx)
			p.logger.InfoContext(ctx, "api key rate limited, rotating", "key_index", idx, "cooldown", p.config.KeyCooldown)
			lastErr = err
			continue
		default:
			return nil, err
		}
	}

	if lastErr != nil {
		return nil, lastErr
	}
	return nil, &NoKeyError{Provider: p.config.Name}
}

// SendJSON marshals in, sends it, and decodes a successful body into out.
func (p *HTTPProvider) SendJSON(ctx context.Context, req Request, in, out any) error {
	if in != nil {
		body, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		req.Body = body
	}

	resp, err := p.Send(ctx, req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return &ParseError{
			Provider: p.config.Name,
			Cause:    fmt.Errorf("failed to read response: %w", err),
		}
	}
	if out == nil || len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return &ParseError{
			Provider:    p.config.Name,
			RawResponse: truncate(string(raw), maxErrorBody),
			Cause:       fmt.Errorf("failed to unmarshal response: %w", err),
		}
	}
	return nil
}

// sendWithRetry retries transient failures with exponential backoff:
// RetryBaseDelay, doubling, for at most MaxAttempts attempts.
func (p *HTTPProvider) sendWithRetry(ctx context.Context, req Request, key string) (*http.Response, error) {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = p.config.RetryBaseDelay
	bo.Multiplier = 2
	bo.RandomizationFactor = 0
	bo.MaxInterval = 64 * p.config.RetryBaseDelay
	bo.MaxElapsedTime = 0

	policy := backoff.WithContext(
		backoff.WithMaxRetries(bo, uint64(p.config.MaxAttempts-1)),
		ctx,
	)

	var resp *http.Response
	attempt := 0
	op := func() error {
		attempt++
		r, err := p.do(ctx, req, key)
		if err == nil {
			resp = r
			return nil
		}
		if !retryable(err) || ctx.Err() != nil {
			return backoff.Permanent(err)
		}
		return err
	}
	notify := func(err error, wait time.Duration) {
		p.logger.WarnContext(ctx, "request failed, will retry",
			"attempt", attempt,
			"max_attempts", p.config.MaxAttempts,
			"backoff", wait,
			"error", err,
		)
	}

	if err := backoff.RetryNotifyWithTimer(op, policy, notify, &clockTimer{clock: p.clock}); err != nil {
		if errors.Is(err, context.DeadlineExceeded) && KindOf(err) != KindTimeout {
			return nil, &TimeoutError{Provider: p.config.Name, Timeout: p.config.Timeout, Cause: err}
		}
		return nil, err
	}
	return resp, nil
}

// do performs a single request and classifies non-2xx responses.
func (p *HTTPProvider) do(ctx context.Context, req Request, key string) (*http.Response, error) {
	var body io.Reader
	if req.Body != nil {
		body = bytes.NewReader(req.Body)
	}

	method := req.Method
	if method == "" {
		method = http.MethodGet
	}

	// Streaming responses have no client deadline, so only the wait for
	// response headers is bounded by Timeout.
	reqCtx := ctx
	var (
		cancel     context.CancelCauseFunc
		headerWait *time.Timer
		keepCtx    bool
	)
	if req.Stream && p.config.Timeout > 0 {
		reqCtx, cancel = context.WithCancelCause(ctx)
		headerWait = time.AfterFunc(p.config.Timeout, func() { cancel(errHeaderTimeout) })
		defer func() {
			if !keepCtx {
				cancel(nil)
			}
		}()
	}

	httpReq, err := http.NewRequestWithContext(reqCtx, method, p.URL(req.Path), body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	for k, v := range p.config.Headers {
		httpReq.Header.Set(k, v)
	}
	for k, v := range req.Header {
		httpReq.Header.Set(k, v)
	}
	if req.Body != nil && httpReq.Header.Get("Content-Type") == "" {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if req.Stream {
		httpReq.Header.Set("Accept", "text/event-stream")
	}
	if key != "" {
		p.authorize(httpReq.Header, key)
	}
	tracing.Inject(ctx, httpReq.Header)

	p.logger.Debug("sending request to provider",
		"method", method,
		"path", req.Path,
		"model", req.Model,
	)

	client := p.client
	if req.Stream {
		client = p.streamClient
	}

	resp, err := client.Do(httpReq)
	if headerWait != nil && !headerWait.Stop() && err == nil {
		resp.Body.Close()
		err = context.Cause(reqCtx)
	}
	if err != nil {
		if cancel != nil && errors.Is(context.Cause(reqCtx), errHeaderTimeout) && ctx.Err() == nil {
			return nil, &TimeoutError{Provider: p.config.Name, Timeout: p.config.Timeout, Cause: errHeaderTimeout}
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			if errors.Is(ctxErr, context.DeadlineExceeded) {
				return nil, &TimeoutError{Provider: p.config.Name, Timeout: p.config.Timeout, Cause: ctxErr}
			}
			return nil, ctxErr
		}
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			return nil, &TimeoutError{Provider: p.config.Name, Timeout: p.config.Timeout, Cause: err}
		}
		return nil, &ProviderError{Provider: p.config.Name, Message: "request failed", Cause: err}
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		if cancel != nil {
			resp.Body = &cancelOnClose{ReadCloser: resp.Body, cancel: cancel}
			keepCtx = true
		}
		return resp, nil
	}

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	resp.Body.Close()
	msg := errorMessage(raw)

	switch resp.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return nil, &AuthError{Provider: p.config.Name, StatusCode: resp.StatusCode, Message: msg}

	case http.StatusPaymentRequired:
		return nil, &QuotaError{Provider: p.config.Name, Model: req.Model, Message: msg}

	case http.StatusTooManyRequests:
		return nil, &RateLimitError{
			Provider:   p.config.Name,
			RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After"), p.clock.Now()),
			Message:    msg,
		}

	default:
		return nil, &ProviderError{Provider: p.config.Name, StatusCode: resp.StatusCode, Message: msg}
	}
}

// Close releases idle connections.
func (p *HTTPProvider) Close() error {
	p.client.CloseIdleConnections()
	p.logger.Debug("provider closed")
	return nil
}

// retryable reports whether a single-attempt failure is worth repeating with
// the same key: network failures, timeouts and 5xx responses.
func retryable(err error) bool {
	var te *TimeoutError
	if errors.As(err, &te) {
		return true
	}
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe.StatusCode == 0 || pe.StatusCode >= 500
	}
	return false
}

// errorMessage extracts a human readable message from an error body.
// Upstreams use {"error":{"message":..}}, {"error":".."} or {"message":..}.
func errorMessage(raw []byte) string {
	var body struct {
		Error   json.RawMessage `json:"error"`
		Message string          `json:"message"`
	}
	if err := json.Unmarshal(raw, &body); err == nil {
		if len(body.Error) > 0 {
			var nested struct {
				Message string `json:"message"`
			}
			if json.Unmarshal(body.Error, &nested) == nil && nested.Message != "" {
				return nested.Message
			}
			var flat string
			if json.Unmarshal(body.Error, &flat) == nil && flat != "" {
				return flat
			}
		}
		if body.Message != "" {
			return body.Message
		}
	}
	return truncate(strings.TrimSpace(string(raw)), maxErrorBody)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

// parseRetryAfter parses the Retry-After header value.
// It supports both delay-seconds and HTTP-date formats.
func parseRetryAfter(header string, now time.Time) time.Duration {
	if header == "" {
		return 0
	}

	if seconds, err := strconv.Atoi(strings.TrimSpace(header)); err == nil && seconds >= 0 {
		return time.Duration(seconds) * time.Second
	}

	if t, err := http.ParseTime(header); err == nil {
		if d := t.Sub(now); d > 0 {
			return d
		}
	}

	return 0
}

// clockTimer adapts Clock to backoff.Timer so retry waits follow the
// provider's clock.
type clockTimer struct {
	clock Clock
	c     <-chan time.Time
}

func (t *clockTimer) Start(d time.Duration) { t.c = t.clock.After(d) }
func (t *clockTimer) Stop()                 {}
func (t *clockTimer) C() <-chan time.Time   { return t.c }

var errHeaderTimeout = errors.New("timed out waiting for response headers")

// cancelOnClose releases a stream's request context when its body closes.
type cancelOnClose struct {
	io.ReadCloser
	cancel context.CancelCauseFunc
}

func (c *cancelOnClose) Close() error {
	err := c.ReadCloser.Close()
	c.cancel(nil)
	return err
}
