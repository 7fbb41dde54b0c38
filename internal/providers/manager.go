package providers

import (
	"fmt"
	"strings"

	"streamscribe/internal/config"
)

type NamedTranscriber struct {
	Ref      ProviderRef
	Provider Transcriber
}

type NamedEmbedder struct {
	Ref      ProviderRef
	Provider EmbeddingProvider
}

type Manager struct {
	transcribers []NamedTranscriber
	embedders    []NamedEmbedder
}

func NewManager(cfg config.Config) (*Manager, error) {
	transcribeRefs := ParseProviderList(cfg.TranscribeProviders, CapabilityTranscribe)
	embedRefs := ParseProviderList(cfg.EmbedProviders, CapabilityEmbed)

	m := &Manager{}
	for _, ref := range transcribeRefs {
		p, err := buildProvider(ref, cfg.EmbedDim)
		if err != nil {
			return nil, err
		}
		tr, ok := p.(Transcriber)
		if !ok {
			return nil, fmt.Errorf("provider %s cannot serve %s", ref.Raw, ref.Capability)
		}
		m.transcribers = append(m.transcribers, NamedTranscriber{Ref: ref, Provider: tr})
	}
	for _, ref := range embedRefs {
		p, err := buildProvider(ref, cfg.EmbedDim)
		if err != nil {
			return nil, err
		}
		embed, ok := p.(EmbeddingProvider)
		if !ok {
			return nil, fmt.Errorf("provider %s cannot serve %s", ref.Raw, ref.Capability)
		}
		m.embedders = append(m.embedders, NamedEmbedder{Ref: ref, Provider: embed})
	}
	if len(m.transcribers) == 0 {
		m.transcribers = []NamedTranscriber{{
			Ref:      ProviderRef{Raw: "mock", Name: "mock", Capability: CapabilityTranscribe},
			Provider: NewMockProvider(cfg.EmbedDim),
		}}
	}
	if len(m.embedders) == 0 {
		m.embedders = []NamedEmbedder{{
			Ref:      ProviderRef{Raw: "mock", Name: "mock", Capability: CapabilityEmbed},
			Provider: NewMockProvider(cfg.EmbedDim),
		}}
	}
	return m, nil
}

func (m *Manager) TranscriberByIndex(i int) (Transcriber, ProviderRef) {
	if i < 0 || i >= len(m.transcribers) {
		i = 0
	}
	return m.transcribers[i].Provider, m.transcribers[i].Ref
}

func (m *Manager) EmbedderByIndex(i int) (EmbeddingProvider, ProviderRef) {
	if i < 0 || i >= len(m.embedders) {
		i = 0
	}
	return m.embedders[i].Provider, m.embedders[i].Ref
}

func (m *Manager) FirstEmbedder() EmbeddingProvider {
	return m.embedders[0].Provider
}

func (m *Manager) TranscriberCount() int {
	return len(m.transcribers)
}

func (m *Manager) EmbedderCount() int {
	return len(m.embedders)
}

func buildProvider(ref ProviderRef, dim int) (any, error) {
	switch strings.ToLower(ref.Name) {
	case "mock":
		return NewMockProvider(dim), nil
	case "openai":
		return NewOpenAIProvider(ref.KeyAlias), nil
	case "ollama":
		return NewOllamaEmbeddingProvider(ref.KeyAlias), nil
	default:
		return nil, fmt.Errorf("unsupported provider: %s", ref.Name)
	}
}
