package search

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"streamscribe/internal/config"
	"streamscribe/internal/models"
	"streamscribe/internal/providers"
	"streamscribe/internal/util"
	"streamscribe/internal/vector"
)

type fakeIndex struct {
	lastQuery vector.Query
	results   []models.SearchResult
	err       error
}

func (f *fakeIndex) Search(_ context.Context, q vector.Query) ([]models.SearchResult, error) {
	f.lastQuery = q
	return f.results, f.err
}

type fixedEmbedder struct {
	model string
	dim   int
}

func (f *fixedEmbedder) Embed(_ context.Context, req providers.EmbedRequest) ([][]float32, providers.ProviderInfo, error) {
	out := make([][]float32, len(req.Inputs))
	for i := range out {
		out[i] = make([]float32, f.dim)
		out[i][0] = 1
	}
	return out, providers.ProviderInfo{Name: "fixed", Model: f.model}, nil
}

func testConfig() config.Config {
	return config.Config{
		EmbedDim:          8,
		EmbedModel:        "mock-embed-8",
		SearchDefaultTopK: 10,
		SearchMinScore:    0,
	}
}

func TestSearchPassesQueryThrough(t *testing.T) {
	idx := &fakeIndex{results: []models.SearchResult{
		{VideoID: "v1", ChunkIndex: 3, Score: 0.91, StartSecs: 30, EndSecs: 60},
		{VideoID: "v2", ChunkIndex: 0, Score: 0.74, StartSecs: 0, EndSecs: 25},
	}}
	svc := NewService(testConfig(), idx, &fixedEmbedder{model: "mock-embed-8", dim: 8})

	results, err := svc.Search(context.Background(), Params{Query: "  how do transformers work  ", TopK: 5})
	require.NoError(t, err)
	require.Len(t, results, 2)
	require.Equal(t, "v1", results[0].VideoID)

	require.Equal(t, 5, idx.lastQuery.TopK)
	require.Equal(t, "mock-embed-8", idx.lastQuery.Model)
	require.Len(t, idx.lastQuery.Vector, 8)
}

func TestSearchRejectsEmptyQuery(t *testing.T) {
	svc := NewService(testConfig(), &fakeIndex{}, &fixedEmbedder{model: "mock-embed-8", dim: 8})
	_, err := svc.Search(context.Background(), Params{Query: "   "})
	require.Error(t, err)
}

func TestSearchClampsTopK(t *testing.T) {
	idx := &fakeIndex{}
	svc := NewService(testConfig(), idx, &fixedEmbedder{model: "mock-embed-8", dim: 8})

	_, err := svc.Search(context.Background(), Params{Query: "q", TopK: 5000})
	require.NoError(t, err)
	require.Equal(t, maxTopK, idx.lastQuery.TopK)

	_, err = svc.Search(context.Background(), Params{Query: "q"})
	require.NoError(t, err)
	require.Equal(t, 10, idx.lastQuery.TopK)
}

func TestSearchRejectsModelMismatch(t *testing.T) {
	svc := NewService(testConfig(), &fakeIndex{}, &fixedEmbedder{model: "other-model", dim: 8})
	_, err := svc.Search(context.Background(), Params{Query: "q"})
	require.ErrorIs(t, err, util.ErrModelMismatch)
}

func TestSearchEmptyResultIsNotAnError(t *testing.T) {
	svc := NewService(testConfig(), &fakeIndex{results: nil}, &fixedEmbedder{model: "mock-embed-8", dim: 8})
	results, err := svc.Search(context.Background(), Params{Query: "nothing matches this"})
	require.NoError(t, err)
	require.Empty(t, results)
}

func TestSearchScopedToVideo(t *testing.T) {
	idx := &fakeIndex{}
	svc := NewService(testConfig(), idx, &fixedEmbedder{model: "mock-embed-8", dim: 8})
	_, err := svc.Search(context.Background(), Params{Query: "q", VideoID: "v42"})
	require.NoError(t, err)
	require.Equal(t, "v42", idx.lastQuery.VideoID)
}

func TestSearchIndexErrorIsWrapped(t *testing.T) {
	idx := &fakeIndex{err: errors.New("connection refused")}
	svc := NewService(testConfig(), idx, &fixedEmbedder{model: "mock-embed-8", dim: 8})
	_, err := svc.Search(context.Background(), Params{Query: "q"})
	require.ErrorContains(t, err, "query chunk index")
}
