package providers

import "strings"

// Capability names the pipeline stage a configured provider serves. The
// transcribe and embed lists are parsed separately so the same backend name
// can appear in both with different key aliases.
type Capability string

const (
	CapabilityTranscribe Capability = "transcribe"
	CapabilityEmbed      Capability = "embed"
)

// ProviderRef is one entry from a pipe-separated provider list such as
// "mock|openai:key1|ollama:nomic". The part after the colon is a key alias
// for openai and a model alias for ollama.
type ProviderRef struct {
	Raw        string
	Name       string
	KeyAlias   string
	Capability Capability
}

// ParseProviderList splits a provider list and tags every entry with the
// capability it was configured for. An empty list yields a single mock ref so
// the pipeline always has a working provider.
func ParseProviderList(raw string, cap Capability) []ProviderRef {
	parts := strings.Split(raw, "|")
	out := make([]ProviderRef, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		ref := ProviderRef{Raw: p, Name: p, Capability: cap}
		if name, alias, ok := strings.Cut(p, ":"); ok {
			ref.Name = strings.TrimSpace(name)
			ref.KeyAlias = strings.TrimSpace(alias)
		}
		out = append(out, ref)
	}
	if len(out) == 0 {
		out = append(out, ProviderRef{Raw: "mock", Name: "mock", Capability: cap})
	}
	return out
}
