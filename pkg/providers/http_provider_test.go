package providers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Kone-AI/Kone-sub000/internal/fakeclock"
)

// keyedServer answers per API key with the configured status.
type keyedServer struct {
	mu       sync.Mutex
	statuses map[string][]int
	seen     []string
}

func (k *keyedServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	key := r.Header.Get("Authorization")

	k.mu.Lock()
	k.seen = append(k.seen, key)
	status := http.StatusOK
	if queue := k.statuses[key]; len(queue) > 0 {
		status = queue[0]
		if len(queue) > 1 {
			k.statuses[key] = queue[1:]
		}
	}
	k.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if status == http.StatusOK {
		_, _ = w.Write([]byte(`{"ok":true}`))
		return
	}
	_, _ = w.Write([]byte(`{"error":{"message":"status ` + http.StatusText(status) + `"}}`))
}

func (k *keyedServer) calls() []string {
	k.mu.Lock()
	defer k.mu.Unlock()
	out := make([]string, len(k.seen))
	copy(out, k.seen)
	return out
}

func newTestHTTPProvider(t *testing.T, url string, keys []string, clock Clock) *HTTPProvider {
	t.Helper()
	return NewHTTPProvider(ProviderConfig{
		Name:           "test-provider",
		BaseURL:        url,
		APIKeys:        keys,
		RequiresKey:    len(keys) > 0,
		Timeout:        5 * time.Second,
		RetryBaseDelay: time.Second,
		MaxAttempts:    3,
	}, HTTPOptions{Clock: clock})
}

func TestHTTPProvider_RetryOn5xx(t *testing.T) {
	attemptCount := int32(0)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&attemptCount, 1) <= 2 {
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte(`{"error": "internal server error"}`))
			return
		}
		_, _ = w.Write([]byte(`{"ok": true}`))
	}))
	defer server.Close()

	clock := fakeclock.New(epoch)
	p := newTestHTTPProvider(t, server.URL, []string{"k1"}, clock)

	var out struct {
		OK bool `json:"ok"`
	}
	if err := p.SendJSON(context.Background(), Request{Method: http.MethodPost, Path: "/test"}, map[string]any{"x": 1}, &out); err != nil {
		t.Fatalf("expected success after retries, got %v", err)
	}
	if !out.OK {
		t.Error("expected decoded body")
	}

	if got := atomic.LoadInt32(&attemptCount); got != 3 {
		t.Errorf("expected 3 attempts, got %d", got)
	}

	sleeps := clock.Sleeps()
	if len(sleeps) != 2 || sleeps[0] != time.Second || sleeps[1] != 2*time.Second {
		t.Errorf("expected backoff [1s 2s], got %v", sleeps)
	}
}

func TestHTTPProvider_RetryExhausted(t *testing.T) {
	attemptCount := int32(0)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&attemptCount, 1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	p := newTestHTTPProvider(t, server.URL, nil, fakeclock.New(epoch))

	_, err := p.Send(context.Background(), Request{Path: "/test"})

	var pe *ProviderError
	if !errors.As(err, &pe) || pe.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("expected ProviderError 503, got %v", err)
	}
	if got := atomic.LoadInt32(&attemptCount); got != 3 {
		t.Errorf("expected 3 attempts, got %d", got)
	}
}

func TestHTTPProvider_NoRetryOnClientError(t *testing.T) {
	attemptCount := int32(0)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&attemptCount, 1)
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"message":"bad input"}`))
	}))
	defer server.Close()

	p := newTestHTTPProvider(t, server.URL, nil, fakeclock.New(epoch))
	_, err := p.Send(context.Background(), Request{Path: "/test"})

	var pe *ProviderError
	if !errors.As(err, &pe) || pe.Message != "bad input" {
		t.Fatalf("expected ProviderError with message, got %v", err)
	}
	if atomic.LoadInt32(&attemptCount) != 1 {
		t.Errorf("expected a single attempt, got %d", attemptCount)
	}
}

func TestHTTPProvider_KeyRotation(t *testing.T) {
	t.Run("429 rotates to next key", func(t *testing.T) {
		ks := &keyedServer{statuses: map[string][]int{"Bearer k1": {http.StatusTooManyRequests}}}
		server := httptest.NewServer(ks)
		defer server.Close()

		p := newTestHTTPProvider(t, server.URL, []string{"k1", "k2"}, fakeclock.New(epoch))
		resp, err := p.Send(context.Background(), Request{Path: "/chat"})
		if err != nil {
			t.Fatalf("expected success on second key, got %v", err)
		}
		resp.Body.Close()

		calls := ks.calls()
		if len(calls) != 2 || calls[0] != "Bearer k1" || calls[1] != "Bearer k2" {
			t.Errorf("expected k1 then k2, got %v", calls)
		}
		if p.Keys().States()[0].ErrorKind != KeyErrorRateLimit {
			t.Error("expected k1 marked rate limited")
		}
	})

	t.Run("all keys rate limited", func(t *testing.T) {
		ks := &keyedServer{statuses: map[string][]int{
			"Bearer k1": {http.StatusTooManyRequests},
			"Bearer k2": {http.StatusTooManyRequests},
		}}
		server := httptest.NewServer(ks)
		defer server.Close()

		p := newTestHTTPProvider(t, server.URL, []string{"k1", "k2"}, fakeclock.New(epoch))

		_, err := p.Send(context.Background(), Request{Path: "/chat"})
		var rl *RateLimitError
		if !errors.As(err, &rl) {
			t.Fatalf("expected RateLimitError, got %v", err)
		}
		if len(ks.calls()) != 2 {
			t.Errorf("expected one attempt per key, got %d", len(ks.calls()))
		}

		_, err = p.Send(context.Background(), Request{Path: "/chat"})
		var nk *NoKeyError
		if !errors.As(err, &nk) {
			t.Fatalf("expected NoKeyError while keys cool down, got %v", err)
		}
		if len(ks.calls()) != 2 {
			t.Error("expected no upstream call without an eligible key")
		}
	})

	t.Run("auth failure benches key", func(t *testing.T) {
		ks := &keyedServer{statuses: map[string][]int{"Bearer k1": {http.StatusUnauthorized}}}
		server := httptest.NewServer(ks)
		defer server.Close()

		p := newTestHTTPProvider(t, server.URL, []string{"k1", "k2"}, fakeclock.New(epoch))

		_, err := p.Send(context.Background(), Request{Path: "/chat"})
		var ae *AuthError
		if !errors.As(err, &ae) || ae.StatusCode != http.StatusUnauthorized {
			t.Fatalf("expected AuthError 401, got %v", err)
		}
		if len(ks.calls()) != 1 {
			t.Errorf("auth failure must not try other keys in the same call, got %d calls", len(ks.calls()))
		}

		resp, err := p.Send(context.Background(), Request{Path: "/chat"})
		if err != nil {
			t.Fatalf("expected next call to use k2, got %v", err)
		}
		resp.Body.Close()
		if calls := ks.calls(); calls[len(calls)-1] != "Bearer k2" {
			t.Errorf("expected k2, got %s", calls[len(calls)-1])
		}
	})
}

func TestHTTPProvider_QuotaError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusPaymentRequired)
		_, _ = w.Write([]byte(`{"error":"insufficient credits"}`))
	}))
	defer server.Close()

	p := newTestHTTPProvider(t, server.URL, []string{"k1"}, fakeclock.New(epoch))
	_, err := p.Send(context.Background(), Request{Path: "/chat", Model: "test-provider/m"})

	var qe *QuotaError
	if !errors.As(err, &qe) {
		t.Fatalf("expected QuotaError, got %v", err)
	}
	if qe.Model != "test-provider/m" || qe.Message != "insufficient credits" {
		t.Errorf("unexpected quota error %+v", qe)
	}
}

func TestHTTPProvider_KeylessAndHeaders(t *testing.T) {
	var gotAuth, gotReferer string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotReferer = r.Header.Get("HTTP-Referer")
		_, _ = w.Write([]byte(`{}`))
	}))
	defer server.Close()

	p := NewHTTPProvider(ProviderConfig{
		Name:    "free",
		BaseURL: server.URL + "/",
		Headers: map[string]string{"HTTP-Referer": "https://kone.local"},
	}, HTTPOptions{Clock: fakeclock.New(epoch)})

	if err := p.SendJSON(context.Background(), Request{Path: "/models"}, nil, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotAuth != "" {
		t.Errorf("keyless provider must not send Authorization, got %q", gotAuth)
	}
	if gotReferer != "https://kone.local" {
		t.Errorf("expected static header, got %q", gotReferer)
	}
	if p.KeyStates() != nil {
		t.Error("keyless provider should report no key states")
	}
}

func TestHTTPProvider_ParseError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`not json`))
	}))
	defer server.Close()

	p := newTestHTTPProvider(t, server.URL, nil, fakeclock.New(epoch))
	var out map[string]any
	err := p.SendJSON(context.Background(), Request{Path: "/x"}, nil, &out)

	var pe *ParseError
	if !errors.As(err, &pe) {
		t.Fatalf("expected ParseError, got %v", err)
	}
	if pe.RawResponse != "not json" {
		t.Errorf("expected raw response kept, got %q", pe.RawResponse)
	}
}

func TestParseRetryAfter(t *testing.T) {
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		header string
		want   time.Duration
	}{
		{"", 0},
		{"30", 30 * time.Second},
		{"Wed, 01 Jan 2025 12:00:10 GMT", 10 * time.Second},
		{"Wed, 01 Jan 2025 11:00:00 GMT", 0},
		{"soon", 0},
	}

	for _, tt := range tests {
		if got := parseRetryAfter(tt.header, now); got != tt.want {
			t.Errorf("parseRetryAfter(%q) = %s, want %s", tt.header, got, tt.want)
		}
	}
}

func TestErrorMessage(t *testing.T) {
	tests := []struct {
		body string
		want string
	}{
		{`{"error":{"message":"nested"}}`, "nested"},
		{`{"error":"flat"}`, "flat"},
		{`{"message":"top"}`, "top"},
		{`  plain text  `, "plain text"},
	}
	for _, tt := range tests {
		if got := errorMessage([]byte(tt.body)); got != tt.want {
			t.Errorf("errorMessage(%s) = %q, want %q", tt.body, got, tt.want)
		}
	}
}
