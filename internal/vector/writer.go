package vector

import (
	"context"
	"fmt"

	"github.com/pgvector/pgvector-go"

	"streamscribe/internal/storage"
)

// ChunkVector pairs a chunk index with its embedding.
type ChunkVector struct {
	ChunkIndex int       `json:"chunk_index"`
	Values     []float32 `json:"values"`
}

// Writer owns all mutation of the vector side of the chunks table. Upserts
// replace by (video_id, chunk_index) key, never duplicate.
type Writer struct {
	db *storage.DB
}

func NewWriter(db *storage.DB) *Writer {
	return &Writer{db: db}
}

func (w *Writer) Upsert(ctx context.Context, videoID string, chunkIndex int, vec []float32, model string) error {
	tag, err := w.db.Pool.Exec(ctx, `
UPDATE chunks SET embedding=$3, embedding_model=$4 WHERE video_id=$1 AND chunk_index=$2`,
		videoID, chunkIndex, pgvector.NewVector(vec), model)
	if err != nil {
		return fmt.Errorf("upsert vector %s/%d: %w", videoID, chunkIndex, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("upsert vector %s/%d: no such chunk", videoID, chunkIndex)
	}
	return nil
}

func (w *Writer) UpsertBatch(ctx context.Context, videoID string, vectors []ChunkVector, model string) error {
	for _, v := range vectors {
		if err := w.Upsert(ctx, videoID, v.ChunkIndex, v.Values, model); err != nil {
			return err
		}
	}
	return nil
}

// DeleteByVideo clears every vector a video owns. Chunk text stays; only the
// index side is removed, so a re-embed starts from a clean slate.
func (w *Writer) DeleteByVideo(ctx context.Context, videoID string) error {
	_, err := w.db.Pool.Exec(ctx, `
UPDATE chunks SET embedding=NULL, embedding_model=NULL WHERE video_id=$1`, videoID)
	if err != nil {
		return fmt.Errorf("delete vectors by video: %w", err)
	}
	return nil
}

// CountIndexed reports how many of a video's chunks carry a vector for the
// given model. ready is gated on this matching the chunk count.
func (w *Writer) CountIndexed(ctx context.Context, videoID, model string) (int, error) {
	var n int
	err := w.db.Pool.QueryRow(ctx, `
SELECT COUNT(*) FROM chunks
WHERE video_id=$1 AND embedding IS NOT NULL AND embedding_model=$2`, videoID, model).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count indexed vectors: %w", err)
	}
	return n, nil
}
