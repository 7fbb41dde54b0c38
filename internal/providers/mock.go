package providers

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"math"
	"os"
)

// MockProvider is a deterministic stand-in for both external model services:
// embeddings are seeded from input text, transcripts from media content.
type MockProvider struct {
	dim int
}

func NewMockProvider(dim int) *MockProvider {
	if dim <= 0 {
		dim = 1536
	}
	return &MockProvider{dim: dim}
}

func (m *MockProvider) Embed(ctx context.Context, req EmbedRequest) ([][]float32, ProviderInfo, error) {
	_ = ctx
	dim := req.Dimension
	if dim <= 0 {
		dim = m.dim
	}
	vectors := make([][]float32, 0, len(req.Inputs))
	for _, input := range req.Inputs {
		vectors = append(vectors, deterministicVector(input, dim))
	}
	return vectors, ProviderInfo{Name: "mock", Model: fmt.Sprintf("mock-embed-%d", dim), Key: "mock"}, nil
}

func (m *MockProvider) Transcribe(ctx context.Context, req TranscribeRequest) ([]Segment, ProviderInfo, error) {
	_ = ctx
	info := ProviderInfo{Name: "mock", Model: "mock-whisper-v1", Key: "mock"}
	data, err := os.ReadFile(req.MediaPath)
	if err != nil {
		return nil, info, fmt.Errorf("read media for mock transcription: %w", err)
	}
	sum := sha256.Sum256(data)
	// Segment count and wording follow the content hash so repeated runs over
	// the same media produce the same transcript.
	count := 3 + int(sum[0])%4
	segments := make([]Segment, 0, count)
	for i := 0; i < count; i++ {
		word := fmt.Sprintf("%x", sum[i*2:i*2+4])
		segments = append(segments, Segment{
			Start: float64(i) * 5,
			End:   float64(i)*5 + 4.5,
			Text:  fmt.Sprintf("mock segment %d token %s", i, word),
		})
	}
	return segments, info, nil
}

func deterministicVector(input string, dim int) []float32 {
	vec := make([]float32, dim)
	seed := []byte(input)
	if len(seed) == 0 {
		seed = []byte("empty")
	}
	for i := 0; i < dim; i++ {
		h := sha256.Sum256(append(seed, byte(i%251)))
		u := binary.BigEndian.Uint32(h[:4])
		v := float32(u%2000)/1000.0 - 1.0
		vec[i] = v
	}
	return normalize(vec)
}

func normalize(v []float32) []float32 {
	var sum float32
	for _, x := range v {
		sum += x * x
	}
	if sum == 0 {
		return v
	}
	inv := float32(1.0 / math.Sqrt(float64(sum)+1e-9))
	for i := range v {
		v[i] *= inv
	}
	return v
}
