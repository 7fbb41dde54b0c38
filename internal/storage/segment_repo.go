package storage

import (
	"context"
	"fmt"

	"streamscribe/internal/models"
)

type SegmentRepo struct {
	db *DB
}

func NewSegmentRepo(db *DB) *SegmentRepo {
	return &SegmentRepo{db: db}
}

// Replace overwrites the whole transcript in one transaction so a re-run of
// the transcription stage never leaves duplicated or interleaved segments.
func (r *SegmentRepo) Replace(ctx context.Context, videoID string, segments []models.TranscriptSegment) error {
	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx replace segments: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	if _, err := tx.Exec(ctx, `DELETE FROM transcript_segments WHERE video_id=$1`, videoID); err != nil {
		return fmt.Errorf("delete segments: %w", err)
	}
	for _, s := range segments {
		_, err := tx.Exec(ctx, `
INSERT INTO transcript_segments (video_id, seq, start_secs, end_secs, text)
VALUES ($1, $2, $3, $4, $5)`,
			videoID, s.Seq, s.StartSecs, s.EndSecs, s.Text)
		if err != nil {
			return fmt.Errorf("insert segment %d: %w", s.Seq, err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit segments tx: %w", err)
	}
	return nil
}

func (r *SegmentRepo) ListByVideo(ctx context.Context, videoID string) ([]models.TranscriptSegment, error) {
	rows, err := r.db.Pool.Query(ctx, `
SELECT video_id::text, seq, start_secs, end_secs, text
FROM transcript_segments
WHERE video_id=$1
ORDER BY seq ASC`, videoID)
	if err != nil {
		return nil, fmt.Errorf("list segments: %w", err)
	}
	defer rows.Close()
	out := make([]models.TranscriptSegment, 0, 64)
	for rows.Next() {
		var s models.TranscriptSegment
		if err := rows.Scan(&s.VideoID, &s.Seq, &s.StartSecs, &s.EndSecs, &s.Text); err != nil {
			return nil, fmt.Errorf("scan segment: %w", err)
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate segments: %w", err)
	}
	return out, nil
}

func (r *SegmentRepo) DeleteByVideo(ctx context.Context, videoID string) error {
	_, err := r.db.Pool.Exec(ctx, `DELETE FROM transcript_segments WHERE video_id=$1`, videoID)
	if err != nil {
		return fmt.Errorf("delete segments by video: %w", err)
	}
	return nil
}

func (r *SegmentRepo) CountByVideo(ctx context.Context, videoID string) (int, error) {
	var n int
	err := r.db.Pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM transcript_segments WHERE video_id=$1`, videoID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count segments: %w", err)
	}
	return n, nil
}
