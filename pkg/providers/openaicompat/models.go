package openaicompat

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/Kone-AI/Kone-sub000/pkg/providers"
)

// modelEntry is one element of an upstream /models listing. Fields beyond
// id are optional and vary by upstream.
type modelEntry struct {
	ID            string        `json:"id"`
	Name          string        `json:"name"`
	OwnedBy       string        `json:"owned_by"`
	ContextLength int           `json:"context_length"`
	ContextWindow int           `json:"context_window"`
	Active        *bool         `json:"active"`
	Pricing       *modelPricing `json:"pricing"`
	Architecture  *struct {
		InputModalities []string `json:"input_modalities"`
	} `json:"architecture"`
	InputModalities []string `json:"input_modalities"`
	Vision          bool     `json:"vision"`
	Audio           bool     `json:"audio"`
}

// modelPricing is USD per token.
type modelPricing struct {
	Prompt     flexFloat `json:"prompt"`
	Completion flexFloat `json:"completion"`
}

// flexFloat decodes from a JSON number or a numeric string. Negative and
// non-finite prices, such as the "-1" of routing pseudo-models, decode as 0.
type flexFloat float64

// UnmarshalJSON implements json.Unmarshaler.
func (f *flexFloat) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "" || s == "null" {
		*f = 0
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("invalid price %q: %w", s, err)
	}
	if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
		v = 0
	}
	*f = flexFloat(v)
	return nil
}

// nonChatMarkers identify catalog entries that cannot serve chat completions.
var nonChatMarkers = []string{"embed", "whisper", "tts", "moderation", "rerank"}

// fetchModels implements providers.FetchFunc.
func (p *Provider) fetchModels(ctx context.Context) ([]providers.ModelDescriptor, error) {
	cfg := p.Config()
	if len(cfg.Models) > 0 {
		return staticModels(cfg.Name, cfg.Models), nil
	}

	resp, err := p.Send(ctx, providers.Request{Method: http.MethodGet, Path: "/models"})
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &providers.ParseError{Provider: cfg.Name, Cause: err}
	}

	entries, err := parseModelList(raw)
	if err != nil {
		return nil, &providers.ParseError{Provider: cfg.Name, RawResponse: string(raw), Cause: err}
	}
	return toDescriptors(cfg.Name, entries, cfg.FreeOnly), nil
}

// parseModelList accepts {"data":[...]} envelopes and bare arrays.
func parseModelList(raw []byte) ([]modelEntry, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) > 0 && raw[0] == '[' {
		var entries []modelEntry
		if err := json.Unmarshal(raw, &entries); err != nil {
			return nil, err
		}
		return entries, nil
	}

	var envelope struct {
		Data []modelEntry `json:"data"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil, err
	}
	return envelope.Data, nil
}

// toDescriptors converts upstream entries to prefixed descriptors, dropping
// inactive and non-chat models, and priced models when freeOnly is set.
func toDescriptors(prefix string, entries []modelEntry, freeOnly bool) []providers.ModelDescriptor {
	out := make([]providers.ModelDescriptor, 0, len(entries))
	for _, e := range entries {
		id := e.ID
		if id == "" {
			id = e.Name
		}
		if id == "" || isNonChat(id) {
			continue
		}
		if e.Active != nil && !*e.Active {
			continue
		}

		d := providers.ModelDescriptor{
			ID:            providers.FormatModelName(prefix, id),
			DisplayName:   e.Name,
			ContextLength: e.ContextLength,
			Capabilities:  capabilities(e),
			OwnedBy:       e.OwnedBy,
		}
		if d.DisplayName == "" {
			d.DisplayName = id
		}
		if d.ContextLength <= 0 {
			d.ContextLength = e.ContextWindow
		}
		if d.ContextLength <= 0 {
			d.ContextLength = providers.DefaultContextLength
		}
		if d.OwnedBy == "" {
			d.OwnedBy = prefix
		}
		if e.Pricing != nil {
			d.Pricing = providers.Pricing{
				PromptCostPer1K:     float64(e.Pricing.Prompt) * 1000,
				CompletionCostPer1K: float64(e.Pricing.Completion) * 1000,
			}
		}

		if freeOnly && !d.IsFree() && !strings.HasSuffix(id, ":free") {
			continue
		}
		out = append(out, d)
	}
	return out
}

func capabilities(e modelEntry) providers.Capabilities {
	caps := providers.Capabilities{Text: true, Images: e.Vision, Audio: e.Audio}

	modalities := e.InputModalities
	if e.Architecture != nil && len(e.Architecture.InputModalities) > 0 {
		modalities = e.Architecture.InputModalities
	}
	for _, m := range modalities {
		switch m {
		case "image":
			caps.Images = true
		case "audio":
			caps.Audio = true
		case "video":
			caps.Video = true
		}
	}
	return caps
}

func isNonChat(id string) bool {
	lower := strings.ToLower(id)
	for _, marker := range nonChatMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

// staticModels builds descriptors for a configured model list.
func staticModels(prefix string, ids []string) []providers.ModelDescriptor {
	out := make([]providers.ModelDescriptor, 0, len(ids))
	for _, id := range ids {
		base := providers.BaseModelName(prefix, id)
		out = append(out, providers.ModelDescriptor{
			ID:            providers.FormatModelName(prefix, base),
			DisplayName:   base,
			ContextLength: providers.DefaultContextLength,
			Capabilities:  providers.Capabilities{Text: true},
			OwnedBy:       prefix,
		})
	}
	return out
}
