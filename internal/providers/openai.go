package providers

import (
	"context"
	"fmt"
	"os"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

// OpenAIProvider covers both external model calls the pipeline makes:
// Whisper transcription and text embeddings.
type OpenAIProvider struct {
	keyAlias   string
	embedModel string
	client     *openai.Client
}

func NewOpenAIProvider(keyAlias string) *OpenAIProvider {
	apiKey := resolveOpenAIKey(keyAlias)
	p := &OpenAIProvider{
		keyAlias:   keyAlias,
		embedModel: resolveOpenAIEmbedModel(),
	}
	if apiKey != "" {
		p.client = openai.NewClient(apiKey)
	}
	return p
}

func (o *OpenAIProvider) Embed(ctx context.Context, req EmbedRequest) ([][]float32, ProviderInfo, error) {
	info := ProviderInfo{Name: "openai", Model: o.embedModel, Key: o.keyAlias}
	if o.client == nil {
		return nil, info, fmt.Errorf("openai key missing for alias %q", o.keyAlias)
	}
	// text-embedding-3 models honor a requested output dimension; asking for
	// the index width up front keeps the response aligned with pgvector.
	embedReq := openai.EmbeddingRequest{
		Model: openai.EmbeddingModel(o.embedModel),
		Input: req.Inputs,
	}
	if req.Dimension > 0 {
		embedReq.Dimensions = req.Dimension
	}
	resp, err := o.client.CreateEmbeddings(ctx, embedReq)
	if err != nil {
		return nil, info, fmt.Errorf("openai embedding request failed: %w", err)
	}
	out := make([][]float32, 0, len(resp.Data))
	for _, d := range resp.Data {
		if err := checkDimension(d.Embedding, req.Dimension); err != nil {
			return nil, info, fmt.Errorf("openai model %s: %w", o.embedModel, err)
		}
		out = append(out, d.Embedding)
	}
	if len(out) != len(req.Inputs) {
		return nil, info, fmt.Errorf("openai returned %d embeddings for %d inputs", len(out), len(req.Inputs))
	}
	return out, info, nil
}

func (o *OpenAIProvider) Transcribe(ctx context.Context, req TranscribeRequest) ([]Segment, ProviderInfo, error) {
	info := ProviderInfo{Name: "openai", Model: string(openai.Whisper1), Key: o.keyAlias}
	if o.client == nil {
		return nil, info, fmt.Errorf("openai key missing for alias %q", o.keyAlias)
	}
	resp, err := o.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    openai.Whisper1,
		FilePath: req.MediaPath,
		Language: req.Language,
		Format:   openai.AudioResponseFormatVerboseJSON,
	})
	if err != nil {
		return nil, info, fmt.Errorf("openai transcription request failed: %w", err)
	}
	segments := make([]Segment, 0, len(resp.Segments))
	for _, s := range resp.Segments {
		segments = append(segments, Segment{Start: s.Start, End: s.End, Text: s.Text})
	}
	// Whisper omits segments for some formats; fall back to the flat text so
	// the stage still produces a transcript.
	if len(segments) == 0 && strings.TrimSpace(resp.Text) != "" {
		segments = append(segments, Segment{Start: 0, End: resp.Duration, Text: resp.Text})
	}
	return segments, info, nil
}

func resolveOpenAIKey(alias string) string {
	alias = strings.TrimSpace(alias)
	if alias != "" {
		key := "STREAMSCRIBE_OPENAI_API_KEY_" + strings.ToUpper(sanitizeEnvToken(alias))
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			return v
		}
	}
	if v := strings.TrimSpace(os.Getenv("STREAMSCRIBE_OPENAI_API_KEY")); v != "" {
		return v
	}
	return strings.TrimSpace(os.Getenv("OPENAI_API_KEY"))
}

func resolveOpenAIEmbedModel() string {
	if v := strings.TrimSpace(os.Getenv("STREAMSCRIBE_OPENAI_EMBED_MODEL")); v != "" {
		return v
	}
	return string(openai.SmallEmbedding3)
}
