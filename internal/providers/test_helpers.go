package providers

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Kone-AI/Kone-sub000/pkg/providers"
)

// Epoch is the fixed start time used with fake clocks in tests.
var Epoch = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

// TestConfig returns a test adapter configuration pointing at baseURL.
func TestConfig(name, baseURL string, keys ...string) providers.ProviderConfig {
	return providers.ProviderConfig{
		Name:                name,
		Type:                "openai-compatible",
		BaseURL:             baseURL,
		APIKeys:             keys,
		RequiresKey:         len(keys) > 0,
		Timeout:             5 * time.Second,
		KeyCooldown:         time.Minute,
		MaxAttempts:         3,
		RetryBaseDelay:      time.Second,
		MaxIdleConns:        10,
		MaxIdleConnsPerHost: 5,
		IdleConnTimeout:     30 * time.Second,
	}
}

// UserMessage creates a single-message user conversation.
func UserMessage(content string) []providers.Message {
	return []providers.Message{{Role: providers.RoleUser, Content: content}}
}

// AssertNoError fails the test if err is not nil.
func AssertNoError(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// AssertKind fails the test unless err classifies as kind.
func AssertKind(t *testing.T, err error, kind providers.ErrorKind) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %s error, got nil", kind)
	}
	if got := providers.KindOf(err); got != kind {
		t.Fatalf("expected %s error, got %s (%T: %v)", kind, got, err, err)
	}
}

// AssertAs fails the test unless err's chain contains a target of type T.
func AssertAs[T error](t *testing.T, err error) T {
	t.Helper()
	var target T
	if !errors.As(err, &target) {
		t.Fatalf("expected %T in error chain, got %T: %v", target, err, err)
	}
	return target
}

// WithTimeout runs fn with a timeout context, failing the test if it does
// not return in time.
func WithTimeout(t *testing.T, timeout time.Duration, fn func(ctx context.Context)) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	done := make(chan struct{})
	go func() {
		fn(ctx)
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		t.Fatalf("test timeout after %s", timeout)
	}
}

// WaitForCondition waits for a condition to become true within a timeout.
func WaitForCondition(t *testing.T, timeout time.Duration, condition func() bool, message string) {
	t.Helper()

	deadline := time.Now().Add(timeout)
	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()

	for {
		if condition() {
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("condition not met within %s: %s", timeout, message)
		}
		<-ticker.C
	}
}
