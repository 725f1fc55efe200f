package logging

import (
	"fmt"
	"regexp"
	"strings"
)

// RedactPattern is a custom redaction rule.
type RedactPattern struct {
	Name        string
	Pattern     string
	Replacement string
}

// Redactor scrubs credentials and PII from log fields.
type Redactor struct {
	patterns []*redactPattern
}

// redactPattern contains a compiled regex and replacement string.
type redactPattern struct {
	name        string
	regex       *regexp.Regexp
	replacement string
}

// Built-in pattern names.
const (
	PatternBearerToken = "bearer_token"
	PatternAPIKey      = "api_key"
	PatternKeyParam    = "key_param"
	PatternEmail       = "email"
	PatternPassword    = "password"
)

// defaultPatterns run in order. Bearer tokens come first so the key inside
// the header is not redacted twice.
var defaultPatterns = []RedactPattern{
	{PatternBearerToken, `Bearer\s+[a-zA-Z0-9\-._~+/]+=*`, "Bearer ***"},
	// sk-..., sk-ant-..., gsk_..., csk-... style provider keys
	{PatternAPIKey, `\b(?:sk|gsk|csk|pk|xai)[-_][a-zA-Z0-9\-_]{8,}`, "sk-***"},
	{PatternKeyParam, `((?:api[-_]?key|key)=)[^&\s"]+`, "${1}***"},
	{PatternEmail, `[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`, "***@***"},
	{PatternPassword, `(password|passwd|pwd)[:=]\s*[^\s]+`, "$1: ***"},
}

// NewRedactor creates a Redactor with the built-in patterns followed by the
// custom ones. Invalid custom patterns are reported as an error.
func NewRedactor(custom []RedactPattern) (*Redactor, error) {
	r := &Redactor{}
	for _, p := range defaultPatterns {
		r.patterns = append(r.patterns, &redactPattern{
			name:        p.Name,
			regex:       regexp.MustCompile(p.Pattern),
			replacement: p.Replacement,
		})
	}

	for _, p := range custom {
		regex, err := regexp.Compile(p.Pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid redact pattern %q: %w", p.Name, err)
		}
		r.patterns = append(r.patterns, &redactPattern{
			name:        p.Name,
			regex:       regex,
			replacement: p.Replacement,
		})
	}

	return r, nil
}

// RedactString redacts every pattern match in value.
func (r *Redactor) RedactString(value string) string {
	if r == nil || value == "" {
		return value
	}
	for _, pattern := range r.patterns {
		value = pattern.regex.ReplaceAllString(value, pattern.replacement)
	}
	return value
}

var sensitiveKeys = []string{
	"password", "passwd", "pwd",
	"secret", "token", "api_key", "apikey",
	"authorization", "x-api-key",
	"private_key", "privatekey",
}

// IsSensitiveKey reports whether a field name indicates a credential.
func IsSensitiveKey(key string) bool {
	lower := strings.ToLower(key)
	for _, sensitive := range sensitiveKeys {
		if strings.Contains(lower, sensitive) {
			return true
		}
	}
	return false
}

// RedactAPIKey redacts an API key, keeping only a prefix.
func RedactAPIKey(apiKey string) string {
	if len(apiKey) <= 4 {
		return "***"
	}
	return apiKey[:4] + "***"
}
