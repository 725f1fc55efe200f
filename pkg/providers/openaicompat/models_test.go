package openaicompat

import (
	"testing"
)

func TestParseModelList(t *testing.T) {
	t.Run("envelope", func(t *testing.T) {
		entries, err := parseModelList([]byte(`{"object":"list","data":[{"id":"a"},{"id":"b"}]}`))
		if err != nil || len(entries) != 2 {
			t.Fatalf("expected 2 entries, got %d err=%v", len(entries), err)
		}
	})

	t.Run("bare array", func(t *testing.T) {
		entries, err := parseModelList([]byte(` [{"name":"openai","input_modalities":["text","image"]}]`))
		if err != nil || len(entries) != 1 {
			t.Fatalf("expected 1 entry, got %d err=%v", len(entries), err)
		}
	})

	t.Run("invalid", func(t *testing.T) {
		if _, err := parseModelList([]byte(`<html>`)); err == nil {
			t.Error("expected error for non-JSON body")
		}
	})
}

func TestToDescriptors(t *testing.T) {
	inactive := false
	entries := []modelEntry{
		{ID: "llama-3.3-70b", ContextWindow: 131072, OwnedBy: "Meta"},
		{ID: "priced", Pricing: &modelPricing{Prompt: 0.000001, Completion: 0.000002}},
		{ID: "retired", Active: &inactive},
		{ID: "whisper-large-v3"},
		{Name: "openai", InputModalities: []string{"text", "image", "audio"}},
	}

	got := toDescriptors("groq", entries, false)
	if len(got) != 3 {
		t.Fatalf("expected 3 descriptors, got %d: %v", len(got), got)
	}

	llama := got[0]
	if llama.ID != "groq/llama-3.3-70b" || llama.ContextLength != 131072 || llama.OwnedBy != "Meta" {
		t.Errorf("unexpected descriptor %+v", llama)
	}
	if !llama.Capabilities.Text || llama.Capabilities.Images {
		t.Errorf("expected text-only capabilities, got %+v", llama.Capabilities)
	}

	priced := got[1]
	if priced.Pricing.PromptCostPer1K != 0.001 || priced.Pricing.CompletionCostPer1K != 0.002 {
		t.Errorf("expected per-1K pricing, got %+v", priced.Pricing)
	}
	if priced.ContextLength <= 0 {
		t.Error("expected default context length")
	}

	named := got[2]
	if named.ID != "groq/openai" || !named.Capabilities.Images || !named.Capabilities.Audio {
		t.Errorf("unexpected named descriptor %+v", named)
	}

	free := toDescriptors("groq", entries, true)
	for _, d := range free {
		if d.ID == "groq/priced" {
			t.Error("free_only must drop priced models")
		}
	}
}

func TestFlexFloat(t *testing.T) {
	tests := []struct {
		name       string
		in         string
		prompt     flexFloat
		completion flexFloat
	}{
		{"string and number", `{"prompt":"0.5","completion":2}`, 0.5, 2},
		{"empty and null", `{"prompt":"","completion":null}`, 0, 0},
		{"negative router price", `{"prompt":"-1","completion":-1}`, 0, 0},
		{"non-finite", `{"prompt":"NaN","completion":"-Inf"}`, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var p modelPricing
			decodeFixture(t, tt.in, &p)
			if p.Prompt != tt.prompt || p.Completion != tt.completion {
				t.Errorf("unexpected pricing %+v", p)
			}
		})
	}
}

func TestToDescriptors_NegativePriceIsFree(t *testing.T) {
	entries, err := parseModelList([]byte(`{"data":[{"id":"openrouter/auto","pricing":{"prompt":"-1","completion":"-1"}}]}`))
	if err != nil {
		t.Fatalf("failed to parse: %v", err)
	}

	got := toDescriptors("openrouter", entries, true)
	if len(got) != 1 {
		t.Fatalf("expected router model kept as free, got %v", got)
	}
	if got[0].Pricing.PromptCostPer1K < 0 || got[0].Pricing.CompletionCostPer1K < 0 || !got[0].IsFree() {
		t.Errorf("expected zero pricing, got %+v", got[0].Pricing)
	}
}
