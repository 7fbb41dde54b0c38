package search

import (
	"context"
	"fmt"
	"strings"

	"streamscribe/internal/config"
	"streamscribe/internal/models"
	"streamscribe/internal/providers"
	"streamscribe/internal/util"
	"streamscribe/internal/vector"
)

const maxTopK = 50

// Index is the ranked lookup the service queries. The pgvector-backed
// searcher satisfies it; tests swap in a fake.
type Index interface {
	Search(ctx context.Context, q vector.Query) ([]models.SearchResult, error)
}

// Service embeds a free-text query and runs it against the chunk index.
// Only videos that finished the pipeline are searchable.
type Service struct {
	cfg      config.Config
	index    Index
	embedder providers.EmbeddingProvider
}

func NewService(cfg config.Config, index Index, embedder providers.EmbeddingProvider) *Service {
	return &Service{cfg: cfg, index: index, embedder: embedder}
}

type Params struct {
	Query   string
	TopK    int
	VideoID string
}

func (s *Service) Search(ctx context.Context, p Params) ([]models.SearchResult, error) {
	query := strings.TrimSpace(p.Query)
	if query == "" {
		return nil, fmt.Errorf("search query must not be empty")
	}
	topK := p.TopK
	if topK <= 0 {
		topK = s.cfg.SearchDefaultTopK
	}
	if topK <= 0 {
		topK = 10
	}
	if topK > maxTopK {
		topK = maxTopK
	}

	vecs, info, err := s.embedder.Embed(ctx, providers.EmbedRequest{
		Operation: "embed_query",
		Inputs:    []string{query},
		Dimension: s.cfg.EmbedDim,
	})
	if err != nil {
		return nil, fmt.Errorf("embed search query: %w", err)
	}
	if len(vecs) != 1 {
		return nil, fmt.Errorf("embed search query: got %d vectors for one input", len(vecs))
	}
	if info.Model != s.cfg.EmbedModel {
		return nil, fmt.Errorf("%w: query embedded with %s but index was built with %s",
			util.ErrModelMismatch, info.Model, s.cfg.EmbedModel)
	}

	results, err := s.index.Search(ctx, vector.Query{
		Vector:   vecs[0],
		Model:    s.cfg.EmbedModel,
		TopK:     topK,
		MinScore: s.cfg.SearchMinScore,
		VideoID:  p.VideoID,
	})
	if err != nil {
		return nil, fmt.Errorf("query chunk index: %w", err)
	}
	// No matches is a valid outcome, not an error.
	return results, nil
}
