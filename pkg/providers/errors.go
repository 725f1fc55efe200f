package providers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// ErrorKind is the machine-readable classification of a routing failure.
type ErrorKind string

// Error kinds.
const (
	KindInvalidRequest      ErrorKind = "invalid_request"
	KindUnauthorized        ErrorKind = "unauthorized"
	KindQuotaExceeded       ErrorKind = "quota_exceeded"
	KindRateLimited         ErrorKind = "rate_limited"
	KindUpstream            ErrorKind = "upstream_error"
	KindNoKeyAvailable      ErrorKind = "no_key_available"
	KindNoProviderAvailable ErrorKind = "no_provider_available"
	KindTimeout             ErrorKind = "timeout"
)

// kinded is implemented by every error in the routing taxonomy.
type kinded interface {
	error
	Kind() ErrorKind
}

// KindOf returns the kind of the first classified error in err's chain.
// Context deadline errors classify as KindTimeout. It returns "" for
// unclassified errors.
func KindOf(err error) ErrorKind {
	if err == nil {
		return ""
	}
	var k kinded
	if errors.As(err, &k) {
		return k.Kind()
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return KindTimeout
	}
	return ""
}

// HasKind reports whether any error in err's chain is of kind.
func HasKind(err error, kind ErrorKind) bool {
	for err != nil {
		if k, ok := err.(kinded); ok && k.Kind() == kind {
			return true
		}
		err = errors.Unwrap(err)
	}
	return false
}

// IsTransient reports whether err is absorbed and retried within budgets.
func IsTransient(err error) bool {
	switch KindOf(err) {
	case KindRateLimited, KindUpstream, KindTimeout:
		return true
	}
	return false
}

// IsRateLimitLike reports whether err should put a whole provider on cooldown.
func IsRateLimitLike(err error) bool {
	if err == nil {
		return false
	}
	if HasKind(err, KindRateLimited) || HasKind(err, KindNoKeyAvailable) {
		return true
	}
	if StatusCode(err) == http.StatusTooManyRequests {
		return true
	}
	return strings.Contains(strings.ToLower(err.Error()), "rate limit")
}

// StatusCode returns the upstream HTTP status carried by err, or 0.
func StatusCode(err error) int {
	var sc interface{ HTTPStatus() int }
	if errors.As(err, &sc) {
		return sc.HTTPStatus()
	}
	return 0
}

// ProviderError represents an upstream failure (5xx or unexpected status).
type ProviderError struct {
	// Provider is the name of the provider that returned the error
	Provider string

	// StatusCode is the HTTP status code (0 if not applicable)
	StatusCode int

	// Message is the error message
	Message string

	// Cause is the underlying error (if any)
	Cause error
}

// Error implements the error interface.
func (e *ProviderError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("provider %q error (status %d): %s", e.Provider, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("provider %q error: %s", e.Provider, e.Message)
}

// Unwrap returns the underlying error for error chain support.
func (e *ProviderError) Unwrap() error { return e.Cause }

// Kind implements kinded.
func (e *ProviderError) Kind() ErrorKind {
	if e.StatusCode == http.StatusTooManyRequests {
		return KindRateLimited
	}
	return KindUpstream
}

// HTTPStatus returns the upstream status code.
func (e *ProviderError) HTTPStatus() int { return e.StatusCode }

// AuthError represents an authentication failure (HTTP 401 or 403).
type AuthError struct {
	// Provider is the name of the provider that rejected authentication
	Provider string

	// StatusCode is 401 or 403
	StatusCode int

	// Message is the error message from the provider
	Message string
}

// Error implements the error interface.
func (e *AuthError) Error() string {
	return fmt.Sprintf("provider %q authentication failed: %s", e.Provider, e.Message)
}

// Kind implements kinded.
func (e *AuthError) Kind() ErrorKind { return KindUnauthorized }

// HTTPStatus returns the upstream status code.
func (e *AuthError) HTTPStatus() int { return e.StatusCode }

// QuotaError represents a billing or quota failure (HTTP 402).
// The model is disabled for the adapter that returned it.
type QuotaError struct {
	// Provider is the name of the provider
	Provider string

	// Model is the prefixed model id that was disabled
	Model string

	// Message is the error message from the provider
	Message string
}

// Error implements the error interface.
func (e *QuotaError) Error() string {
	return fmt.Sprintf("provider %q quota exceeded for model %q: %s", e.Provider, e.Model, e.Message)
}

// Kind implements kinded.
func (e *QuotaError) Kind() ErrorKind { return KindQuotaExceeded }

// HTTPStatus returns the upstream status code.
func (e *QuotaError) HTTPStatus() int { return http.StatusPaymentRequired }

// RateLimitError represents a rate limit exceeded error (HTTP 429).
type RateLimitError struct {
	// Provider is the name of the provider that rate limited the request
	Provider string

	// RetryAfter is the duration to wait before retrying (if provided)
	RetryAfter time.Duration

	// Message is the error message from the provider
	Message string
}

// Error implements the error interface.
func (e *RateLimitError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("provider %q rate limit exceeded (retry after %s): %s",
			e.Provider, e.RetryAfter, e.Message)
	}
	return fmt.Sprintf("provider %q rate limit exceeded: %s", e.Provider, e.Message)
}

// Kind implements kinded.
func (e *RateLimitError) Kind() ErrorKind { return KindRateLimited }

// HTTPStatus returns the upstream status code.
func (e *RateLimitError) HTTPStatus() int { return http.StatusTooManyRequests }

// TimeoutError represents a request that exceeded its deadline.
type TimeoutError struct {
	// Provider is the name of the provider where the timeout occurred
	Provider string

	// Timeout is the configured timeout duration
	Timeout time.Duration

	// Cause is the underlying error
	Cause error
}

// Error implements the error interface.
func (e *TimeoutError) Error() string {
	return fmt.Sprintf("provider %q request timeout after %s", e.Provider, e.Timeout)
}

// Unwrap returns the underlying error for error chain support.
func (e *TimeoutError) Unwrap() error { return e.Cause }

// Kind implements kinded.
func (e *TimeoutError) Kind() ErrorKind { return KindTimeout }

// ParseError represents a malformed upstream payload.
type ParseError struct {
	// Provider is the name of the provider that returned the malformed response
	Provider string

	// RawResponse is the raw response body that failed to parse
	RawResponse string

	// Cause is the underlying parse error
	Cause error
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	return fmt.Sprintf("provider %q response parse error: %v", e.Provider, e.Cause)
}

// Unwrap returns the underlying error for error chain support.
func (e *ParseError) Unwrap() error { return e.Cause }

// Kind implements kinded.
func (e *ParseError) Kind() ErrorKind { return KindUpstream }

// ValidationError represents a request validation failure.
type ValidationError struct {
	// Field is the name of the invalid field
	Field string

	// Message describes what is invalid about the field
	Message string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error for field %q: %s", e.Field, e.Message)
}

// Kind implements kinded.
func (e *ValidationError) Kind() ErrorKind { return KindInvalidRequest }

// StreamError represents an error reported by the upstream mid-stream.
type StreamError struct {
	// Provider is the name of the provider where the error occurred
	Provider string

	// Message is the error message
	Message string

	// Cause is the underlying error
	Cause error
}

// Error implements the error interface.
func (e *StreamError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("provider %q stream error: %s: %v", e.Provider, e.Message, e.Cause)
	}
	return fmt.Sprintf("provider %q stream error: %s", e.Provider, e.Message)
}

// Unwrap returns the underlying error for error chain support.
func (e *StreamError) Unwrap() error { return e.Cause }

// Kind implements kinded.
func (e *StreamError) Kind() ErrorKind { return KindUpstream }

// NoKeyError is returned when every key of a provider is cooling down or benched.
type NoKeyError struct {
	// Provider is the name of the exhausted provider
	Provider string
}

// Error implements the error interface.
func (e *NoKeyError) Error() string {
	return fmt.Sprintf("provider %q has no API key available", e.Provider)
}

// Kind implements kinded.
func (e *NoKeyError) Kind() ErrorKind { return KindNoKeyAvailable }

// NoProviderError is returned when no adapter could serve a model.
type NoProviderError struct {
	// Model is the requested prefixed model id
	Model string

	// Cause is the last error observed while routing (if any)
	Cause error
}

// Error implements the error interface.
func (e *NoProviderError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("no provider available for model %q: %v", e.Model, e.Cause)
	}
	return fmt.Sprintf("no provider available for model %q", e.Model)
}

// Unwrap returns the underlying error for error chain support.
func (e *NoProviderError) Unwrap() error { return e.Cause }

// Kind implements kinded.
func (e *NoProviderError) Kind() ErrorKind { return KindNoProviderAvailable }

// ConfigError represents an adapter configuration error.
// Adapters that fail with ConfigError are excluded at startup.
type ConfigError struct {
	// Provider is the name of the provider with invalid configuration
	Provider string

	// Field is the configuration field that is invalid
	Field string

	// Message describes the configuration error
	Message string
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	return fmt.Sprintf("provider %q configuration error for field %q: %s",
		e.Provider, e.Field, e.Message)
}
