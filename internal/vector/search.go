package vector

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/pgvector/pgvector-go"

	"streamscribe/internal/models"
)

type Query struct {
	Vector   []float32
	Model    string
	TopK     int
	MinScore float64
	VideoID  string
}

type Queryer interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

type Searcher struct {
	q Queryer
}

func NewSearcher(q Queryer) *Searcher {
	return &Searcher{q: q}
}

// Search runs nearest-neighbor retrieval over indexed chunks. Only chunks of
// ready videos are candidates; score is cosine similarity, ties within a video
// break toward the earlier timestamp.
func (s *Searcher) Search(ctx context.Context, q Query) ([]models.SearchResult, error) {
	if q.TopK <= 0 {
		q.TopK = 10
	}
	args := []any{pgvector.NewVector(q.Vector), q.Model, q.TopK}
	filterSQL := ""
	if q.VideoID != "" {
		filterSQL = " AND c.video_id = $4"
		args = append(args, q.VideoID)
	}

	query := `
SELECT c.video_id::text,
       v.title,
       c.chunk_index,
       c.text,
       c.start_secs,
       c.end_secs,
       1 - (c.embedding <=> $1) AS score
FROM chunks c
JOIN videos v ON v.video_id = c.video_id
WHERE v.status = 'ready'
  AND c.embedding IS NOT NULL
  AND c.embedding_model = $2` + filterSQL + `
ORDER BY c.embedding <=> $1 ASC, c.start_secs ASC
LIMIT $3`

	rows, err := s.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query vector search: %w", err)
	}
	defer rows.Close()

	results := make([]models.SearchResult, 0, q.TopK)
	for rows.Next() {
		var r models.SearchResult
		if err := rows.Scan(&r.VideoID, &r.VideoTitle, &r.ChunkIndex, &r.Text, &r.StartSecs, &r.EndSecs, &r.Score); err != nil {
			return nil, fmt.Errorf("scan search result: %w", err)
		}
		if r.Score < q.MinScore {
			continue
		}
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate search rows: %w", err)
	}
	return results, nil
}
