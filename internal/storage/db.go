package storage

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	pgxvec "github.com/pgvector/pgvector-go/pgx"
)

type DB struct {
	Pool *pgxpool.Pool
}

func NewDB(ctx context.Context, dsn string) (*DB, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse postgres config: %w", err)
	}
	cfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		return pgxvec.RegisterTypes(ctx, conn)
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return &DB{Pool: pool}, nil
}

func (d *DB) Close() {
	if d != nil && d.Pool != nil {
		d.Pool.Close()
	}
}

// Migrate bootstraps the schema. Statements are idempotent so every process
// can run this at startup. embedDim fixes the vector column width; changing it
// requires a new column and a full re-embed.
func (d *DB) Migrate(ctx context.Context, embedDim int) error {
	stmts := []string{
		`CREATE EXTENSION IF NOT EXISTS vector`,
		`CREATE TABLE IF NOT EXISTS videos (
			video_id UUID PRIMARY KEY,
			title TEXT NOT NULL,
			storage_ref TEXT NOT NULL,
			duration_secs INTEGER NOT NULL DEFAULT 0,
			size_bytes BIGINT NOT NULL DEFAULT 0,
			status TEXT NOT NULL DEFAULT 'uploaded',
			error_reason TEXT,
			transcribed_at TIMESTAMPTZ,
			chunked_at TIMESTAMPTZ,
			indexed_at TIMESTAMPTZ,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_videos_status ON videos (status)`,
		`CREATE TABLE IF NOT EXISTS transcript_segments (
			video_id UUID NOT NULL REFERENCES videos (video_id) ON DELETE CASCADE,
			seq INTEGER NOT NULL,
			start_secs DOUBLE PRECISION NOT NULL,
			end_secs DOUBLE PRECISION NOT NULL,
			text TEXT NOT NULL,
			PRIMARY KEY (video_id, seq)
		)`,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS chunks (
			video_id UUID NOT NULL REFERENCES videos (video_id) ON DELETE CASCADE,
			chunk_index INTEGER NOT NULL,
			text TEXT NOT NULL,
			start_secs DOUBLE PRECISION NOT NULL,
			end_secs DOUBLE PRECISION NOT NULL,
			char_len INTEGER NOT NULL,
			embedding vector(%d),
			embedding_model TEXT,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			PRIMARY KEY (video_id, chunk_index)
		)`, embedDim),
		`CREATE INDEX IF NOT EXISTS idx_chunks_embedding ON chunks USING hnsw (embedding vector_cosine_ops)`,
		`CREATE TABLE IF NOT EXISTS model_calls (
			call_id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			operation TEXT NOT NULL,
			video_id UUID,
			provider_name TEXT NOT NULL,
			model TEXT,
			status TEXT NOT NULL,
			error_type TEXT,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
	}
	for _, s := range stmts {
		if _, err := d.Pool.Exec(ctx, s); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}
