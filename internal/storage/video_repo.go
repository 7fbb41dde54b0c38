package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"streamscribe/internal/models"
	"streamscribe/internal/util"
)

type VideoRepo struct {
	db *DB
}

func NewVideoRepo(db *DB) *VideoRepo {
	return &VideoRepo{db: db}
}

const videoColumns = `video_id::text, title, storage_ref, duration_secs, size_bytes, status,
       COALESCE(error_reason,''), transcribed_at, chunked_at, indexed_at, created_at, updated_at`

func scanVideo(row pgx.Row) (models.Video, error) {
	var v models.Video
	err := row.Scan(&v.VideoID, &v.Title, &v.StorageRef, &v.DurationSecs, &v.SizeBytes, &v.Status,
		&v.ErrorReason, &v.TranscribedAt, &v.ChunkedAt, &v.IndexedAt, &v.CreatedAt, &v.UpdatedAt)
	return v, err
}

func (r *VideoRepo) Create(ctx context.Context, v models.Video) error {
	_, err := r.db.Pool.Exec(ctx, `
INSERT INTO videos (video_id, title, storage_ref, duration_secs, size_bytes, status)
VALUES ($1, $2, $3, $4, $5, $6)`,
		v.VideoID, v.Title, v.StorageRef, v.DurationSecs, v.SizeBytes, v.Status)
	if err != nil {
		return fmt.Errorf("insert video: %w", err)
	}
	return nil
}

func (r *VideoRepo) Get(ctx context.Context, videoID string) (models.Video, error) {
	v, err := scanVideo(r.db.Pool.QueryRow(ctx,
		`SELECT `+videoColumns+` FROM videos WHERE video_id=$1`, videoID))
	if errors.Is(err, pgx.ErrNoRows) {
		return models.Video{}, util.ErrVideoNotFound
	}
	if err != nil {
		return models.Video{}, fmt.Errorf("get video: %w", err)
	}
	return v, nil
}

func (r *VideoRepo) List(ctx context.Context, status models.VideoStatus, limit, offset int) ([]models.Video, error) {
	if limit <= 0 || limit > 200 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	query := `SELECT ` + videoColumns + ` FROM videos`
	args := []any{}
	if status != "" {
		query += ` WHERE status=$1`
		args = append(args, status)
	}
	query += fmt.Sprintf(` ORDER BY created_at DESC LIMIT %d OFFSET %d`, limit, offset)
	rows, err := r.db.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list videos: %w", err)
	}
	defer rows.Close()
	out := make([]models.Video, 0, limit)
	for rows.Next() {
		v, err := scanVideo(rows)
		if err != nil {
			return nil, fmt.Errorf("scan video: %w", err)
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate videos: %w", err)
	}
	return out, nil
}

// UpdateStatus is the stage-transition write: status, error_reason and the
// updated_at timestamp move together in one statement.
func (r *VideoRepo) UpdateStatus(ctx context.Context, videoID string, status models.VideoStatus, errorReason string) error {
	tag, err := r.db.Pool.Exec(ctx, `
UPDATE videos SET status=$2, error_reason=NULLIF($3,''), updated_at=NOW() WHERE video_id=$1`,
		videoID, status, errorReason)
	if err != nil {
		return fmt.Errorf("update video status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return util.ErrVideoNotFound
	}
	return nil
}

func (r *VideoRepo) SetDuration(ctx context.Context, videoID string, durationSecs int) error {
	_, err := r.db.Pool.Exec(ctx, `
UPDATE videos SET duration_secs=$2, updated_at=NOW() WHERE video_id=$1`, videoID, durationSecs)
	if err != nil {
		return fmt.Errorf("set video duration: %w", err)
	}
	return nil
}

// MarkStage records a stage-completion fact. column must be one of the
// *_at stage columns; it is interpolated, never caller-supplied.
func (r *VideoRepo) markStage(ctx context.Context, videoID, column string) error {
	_, err := r.db.Pool.Exec(ctx,
		`UPDATE videos SET `+column+`=NOW(), updated_at=NOW() WHERE video_id=$1`, videoID)
	if err != nil {
		return fmt.Errorf("mark stage %s: %w", column, err)
	}
	return nil
}

func (r *VideoRepo) MarkTranscribed(ctx context.Context, videoID string) error {
	return r.markStage(ctx, videoID, "transcribed_at")
}

func (r *VideoRepo) MarkChunked(ctx context.Context, videoID string) error {
	return r.markStage(ctx, videoID, "chunked_at")
}

func (r *VideoRepo) MarkIndexed(ctx context.Context, videoID string) error {
	return r.markStage(ctx, videoID, "indexed_at")
}

// ClearStageMarks resets the pipeline facts for a full re-process. The status
// drops back to uploaded in the same statement: stage transitions are
// forward-only, so a video purged while ready could otherwise never leave it.
func (r *VideoRepo) ClearStageMarks(ctx context.Context, videoID string) error {
	_, err := r.db.Pool.Exec(ctx, `
UPDATE videos SET status='uploaded', transcribed_at=NULL, chunked_at=NULL, indexed_at=NULL, error_reason=NULL, updated_at=NOW()
WHERE video_id=$1`, videoID)
	if err != nil {
		return fmt.Errorf("clear stage marks: %w", err)
	}
	return nil
}

func (r *VideoRepo) Delete(ctx context.Context, videoID string) error {
	_, err := r.db.Pool.Exec(ctx, `DELETE FROM videos WHERE video_id=$1`, videoID)
	if err != nil {
		return fmt.Errorf("delete video: %w", err)
	}
	return nil
}

func (r *VideoRepo) StatsByStatus(ctx context.Context) ([]models.StatusCount, error) {
	rows, err := r.db.Pool.Query(ctx, `
SELECT status, COUNT(*), COALESCE(SUM(duration_secs),0)
FROM videos GROUP BY status ORDER BY status`)
	if err != nil {
		return nil, fmt.Errorf("stats by status: %w", err)
	}
	defer rows.Close()
	out := make([]models.StatusCount, 0, 8)
	for rows.Next() {
		var c models.StatusCount
		if err := rows.Scan(&c.Status, &c.Count, &c.TotalDuration); err != nil {
			return nil, fmt.Errorf("scan status count: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
