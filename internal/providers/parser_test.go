package providers

import "testing"

func TestParseProviderList(t *testing.T) {
	refs := ParseProviderList("mock|openai:key1|ollama:nomic", CapabilityEmbed)
	if len(refs) != 3 {
		t.Fatalf("expected 3 providers got %d", len(refs))
	}
	if refs[1].Name != "openai" || refs[1].KeyAlias != "key1" {
		t.Fatalf("unexpected parse result: %+v", refs[1])
	}
	for _, ref := range refs {
		if ref.Capability != CapabilityEmbed {
			t.Fatalf("ref %q lost its capability tag: %+v", ref.Raw, ref)
		}
	}
}

func TestParseProviderListEmptyFallsBackToMock(t *testing.T) {
	refs := ParseProviderList("", CapabilityTranscribe)
	if len(refs) != 1 || refs[0].Name != "mock" {
		t.Fatalf("expected mock fallback, got %+v", refs)
	}
	if refs[0].Capability != CapabilityTranscribe {
		t.Fatalf("fallback ref missing capability: %+v", refs[0])
	}
}
