package providers

import "testing"

func TestModelNameRoundTrip(t *testing.T) {
	tests := []struct {
		prefix string
		base   string
		want   string
	}{
		{"groq", "llama-3.3-70b", "groq/llama-3.3-70b"},
		{"openrouter", "meta-llama/llama-3-8b:free", "openrouter/meta-llama/llama-3-8b:free"},
		{"groq", "groq/compound", "groq/groq/compound"},
		{"", "gpt-4o", "gpt-4o"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			id := FormatModelName(tt.prefix, tt.base)
			if id != tt.want {
				t.Errorf("FormatModelName = %q, want %q", id, tt.want)
			}
			if got := BaseModelName(tt.prefix, id); got != tt.base {
				t.Errorf("BaseModelName(FormatModelName(x)) = %q, want %q", got, tt.base)
			}
		})
	}
}

func TestSplitModelID(t *testing.T) {
	tests := []struct {
		id       string
		provider string
		base     string
	}{
		{"groq/llama-3.3-70b", "groq", "llama-3.3-70b"},
		{"openrouter/meta-llama/llama-3-8b", "openrouter", "meta-llama/llama-3-8b"},
		{"gpt-4o", "", "gpt-4o"},
	}

	for _, tt := range tests {
		provider, base := SplitModelID(tt.id)
		if provider != tt.provider || base != tt.base {
			t.Errorf("SplitModelID(%q) = (%q, %q), want (%q, %q)", tt.id, provider, base, tt.provider, tt.base)
		}
	}
}
