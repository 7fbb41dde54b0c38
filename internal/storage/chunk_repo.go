package storage

import (
	"context"
	"fmt"

	"streamscribe/internal/models"
)

type ChunkRepo struct {
	db *DB
}

func NewChunkRepo(db *DB) *ChunkRepo {
	return &ChunkRepo{db: db}
}

// Replace rewrites a video's chunk rows in document order. Embeddings are
// intentionally dropped with the old rows: stale vectors must not survive a
// re-chunk, and the embed stage refills the column.
func (r *ChunkRepo) Replace(ctx context.Context, videoID string, chunks []models.Chunk) error {
	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx replace chunks: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	if _, err := tx.Exec(ctx, `DELETE FROM chunks WHERE video_id=$1`, videoID); err != nil {
		return fmt.Errorf("delete chunks: %w", err)
	}
	for _, c := range chunks {
		_, err := tx.Exec(ctx, `
INSERT INTO chunks (video_id, chunk_index, text, start_secs, end_secs, char_len)
VALUES ($1, $2, $3, $4, $5, $6)`,
			videoID, c.ChunkIndex, c.Text, c.StartSecs, c.EndSecs, c.CharLen)
		if err != nil {
			return fmt.Errorf("insert chunk %d: %w", c.ChunkIndex, err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit chunks tx: %w", err)
	}
	return nil
}

func (r *ChunkRepo) ListByVideo(ctx context.Context, videoID string) ([]models.Chunk, error) {
	rows, err := r.db.Pool.Query(ctx, `
SELECT video_id::text, chunk_index, text, start_secs, end_secs, char_len, COALESCE(embedding_model,''), created_at
FROM chunks
WHERE video_id=$1
ORDER BY chunk_index ASC`, videoID)
	if err != nil {
		return nil, fmt.Errorf("list chunks: %w", err)
	}
	defer rows.Close()
	out := make([]models.Chunk, 0, 64)
	for rows.Next() {
		var c models.Chunk
		if err := rows.Scan(&c.VideoID, &c.ChunkIndex, &c.Text, &c.StartSecs, &c.EndSecs, &c.CharLen, &c.EmbeddingModel, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan chunk: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate chunks: %w", err)
	}
	return out, nil
}

// ListUnembedded returns the chunks with no vector for the given model,
// optionally restricted to an explicit index set (retry of a failed embed
// subset). Vectors written under a different model count as missing so a
// re-run converges the index to the configured model.
func (r *ChunkRepo) ListUnembedded(ctx context.Context, videoID, model string, indexes []int) ([]models.Chunk, error) {
	query := `
SELECT video_id::text, chunk_index, text, start_secs, end_secs, char_len, COALESCE(embedding_model,''), created_at
FROM chunks
WHERE video_id=$1 AND (embedding IS NULL OR embedding_model IS DISTINCT FROM $2)`
	args := []any{videoID, model}
	if len(indexes) > 0 {
		query += ` AND chunk_index = ANY($3)`
		args = append(args, indexes)
	}
	query += ` ORDER BY chunk_index ASC`
	rows, err := r.db.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list unembedded chunks: %w", err)
	}
	defer rows.Close()
	out := make([]models.Chunk, 0, 64)
	for rows.Next() {
		var c models.Chunk
		if err := rows.Scan(&c.VideoID, &c.ChunkIndex, &c.Text, &c.StartSecs, &c.EndSecs, &c.CharLen, &c.EmbeddingModel, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan unembedded chunk: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *ChunkRepo) CountByVideo(ctx context.Context, videoID string) (int, error) {
	var n int
	err := r.db.Pool.QueryRow(ctx, `SELECT COUNT(*) FROM chunks WHERE video_id=$1`, videoID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count chunks: %w", err)
	}
	return n, nil
}

func (r *ChunkRepo) DeleteByVideo(ctx context.Context, videoID string) error {
	_, err := r.db.Pool.Exec(ctx, `DELETE FROM chunks WHERE video_id=$1`, videoID)
	if err != nil {
		return fmt.Errorf("delete chunks by video: %w", err)
	}
	return nil
}
