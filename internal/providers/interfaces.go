package providers

import (
	"context"
	"fmt"
)

type ProviderInfo struct {
	Name  string `json:"name"`
	Model string `json:"model"`
	Key   string `json:"key"`
}

type EmbedRequest struct {
	Operation string   `json:"operation"`
	Inputs    []string `json:"inputs"`
	Dimension int      `json:"dimension"`
}

type TranscribeRequest struct {
	Operation string `json:"operation"`
	MediaPath string `json:"media_path"`
	Language  string `json:"language"`
}

// Segment is one time-stamped span of recognized speech.
type Segment struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

type EmbeddingProvider interface {
	Embed(ctx context.Context, req EmbedRequest) ([][]float32, ProviderInfo, error)
}

type Transcriber interface {
	Transcribe(ctx context.Context, req TranscribeRequest) ([]Segment, ProviderInfo, error)
}

// checkDimension rejects vectors whose width differs from the index
// dimension. Truncating or padding would index vectors the model never
// produced, so a mismatch is a configuration error, not something to repair.
func checkDimension(vec []float32, want int) error {
	if want > 0 && len(vec) != want {
		return fmt.Errorf("provider returned %d-dim vector, index expects %d", len(vec), want)
	}
	return nil
}
