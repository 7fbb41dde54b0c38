package providers

import "testing"

func TestResolveOllamaEmbedModel(t *testing.T) {
	t.Setenv("STREAMSCRIBE_OLLAMA_EMBED_MODEL", "")
	if got := resolveOllamaEmbedModel(""); got != "nomic-embed-text" {
		t.Fatalf("expected default nomic-embed-text, got %q", got)
	}
	if got := resolveOllamaEmbedModel("bge"); got != "bge-small-en-v1.5" {
		t.Fatalf("bge alias not resolved, got %q", got)
	}
	// A literal model name in the provider list passes through untouched.
	if got := resolveOllamaEmbedModel("mxbai-embed-large"); got != "mxbai-embed-large" {
		t.Fatalf("literal model name rewritten to %q", got)
	}
}

func TestCheckDimension(t *testing.T) {
	vec := []float32{1, 2, 3, 4, 5, 6, 7, 8}
	if err := checkDimension(vec, 8); err != nil {
		t.Fatalf("matching width rejected: %v", err)
	}
	if err := checkDimension(vec, 0); err != nil {
		t.Fatalf("unconstrained width rejected: %v", err)
	}
	if err := checkDimension(vec[:4], 8); err == nil {
		t.Fatal("4-dim vector accepted against an 8-dim index")
	}
}
