package providers

import (
	"context"
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func TestMockEmbedDeterministic(t *testing.T) {
	m := NewMockProvider(64)
	req := EmbedRequest{Inputs: []string{"budget overrun", "quarterly review"}, Dimension: 64}
	a, infoA, err := m.Embed(context.Background(), req)
	if err != nil {
		t.Fatal(err)
	}
	b, _, err := m.Embed(context.Background(), req)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(a, b) {
		t.Fatal("mock embeddings are not deterministic")
	}
	if len(a) != 2 || len(a[0]) != 64 {
		t.Fatalf("unexpected vector shape: %d x %d", len(a), len(a[0]))
	}
	if infoA.Model != "mock-embed-64" {
		t.Fatalf("unexpected model id: %s", infoA.Model)
	}
}

func TestMockTranscribeDeterministic(t *testing.T) {
	path := filepath.Join(t.TempDir(), "clip.mp4")
	if err := os.WriteFile(path, []byte("fake media bytes"), 0o644); err != nil {
		t.Fatal(err)
	}
	m := NewMockProvider(0)
	a, info, err := m.Transcribe(context.Background(), TranscribeRequest{MediaPath: path})
	if err != nil {
		t.Fatal(err)
	}
	b, _, err := m.Transcribe(context.Background(), TranscribeRequest{MediaPath: path})
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(a, b) {
		t.Fatal("mock transcripts are not deterministic")
	}
	if len(a) < 3 {
		t.Fatalf("expected at least 3 segments, got %d", len(a))
	}
	for i := 1; i < len(a); i++ {
		if a[i].Start < a[i-1].End {
			t.Fatalf("segments out of order at %d", i)
		}
	}
	if info.Model != "mock-whisper-v1" {
		t.Fatalf("unexpected model id: %s", info.Model)
	}
}
