package providers

import "strings"

// FormatModelName returns the externally visible id for an upstream model:
// "<prefix>/<base>". It is the exact inverse of BaseModelName for any id that
// carries the prefix.
func FormatModelName(prefix, base string) string {
	if prefix == "" {
		return base
	}
	return prefix + "/" + base
}

// BaseModelName strips the provider prefix from a model id. Upstream ids may
// themselves contain slashes ("openrouter/meta-llama/llama-3-8b"), so only the
// leading "<prefix>/" segment is removed.
func BaseModelName(prefix, id string) string {
	if prefix == "" {
		return id
	}
	return strings.TrimPrefix(id, prefix+"/")
}

// SplitModelID splits a prefixed id at its first slash.
// It returns an empty provider for unprefixed ids.
func SplitModelID(id string) (provider, base string) {
	provider, base, ok := strings.Cut(id, "/")
	if !ok {
		return "", id
	}
	return provider, base
}
