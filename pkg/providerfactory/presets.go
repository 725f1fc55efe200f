package providerfactory

import (
	"time"

	"github.com/Kone-AI/Kone-sub000/pkg/providers/anthropic"
	"github.com/Kone-AI/Kone-sub000/pkg/providers/openaicompat"
)

// Preset holds the defaults of a well-known upstream. Configured values
// always win over preset values.
type Preset struct {
	Type               string
	BaseURL            string
	RequiresKey        bool
	MinRequestInterval time.Duration
	Models             []string
}

// presets maps provider names to their defaults.
var presets = map[string]Preset{
	"groq": {
		Type:        openaicompat.TypeName,
		BaseURL:     "https://api.groq.com/openai/v1",
		RequiresKey: true,
	},
	"openrouter": {
		Type:        openaicompat.TypeName,
		BaseURL:     "https://openrouter.ai/api/v1",
		RequiresKey: true,
	},
	"together": {
		Type:        openaicompat.TypeName,
		BaseURL:     "https://api.together.xyz/v1",
		RequiresKey: true,
	},
	"cerebras": {
		Type:        openaicompat.TypeName,
		BaseURL:     "https://api.cerebras.ai/v1",
		RequiresKey: true,
	},
	"mistral": {
		Type:        openaicompat.TypeName,
		BaseURL:     "https://api.mistral.ai/v1",
		RequiresKey: true,
	},
	"deepinfra": {
		Type:        openaicompat.TypeName,
		BaseURL:     "https://api.deepinfra.com/v1/openai",
		RequiresKey: true,
	},
	"pollinations": {
		Type:               openaicompat.TypeName,
		BaseURL:            "https://text.pollinations.ai/openai",
		RequiresKey:        false,
		MinRequestInterval: 3 * time.Second,
		Models:             []string{"openai", "openai-fast", "mistral"},
	},
	"anthropic": {
		Type:        anthropic.TypeName,
		BaseURL:     anthropic.DefaultBaseURL,
		RequiresKey: true,
	},
}

// LookupPreset returns the preset registered for name.
func LookupPreset(name string) (Preset, bool) {
	p, ok := presets[name]
	return p, ok
}

// PresetNames returns the names of all known presets.
func PresetNames() []string {
	names := make([]string, 0, len(presets))
	for name := range presets {
		names = append(names, name)
	}
	return names
}
