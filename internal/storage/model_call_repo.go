package storage

import (
	"context"
	"fmt"
)

// ModelCallRecord is one audit row per external model invocation
// (transcription or embedding), successful or not.
type ModelCallRecord struct {
	CallID       string
	Operation    string
	VideoID      string
	ProviderName string
	Model        string
	Status       string
	ErrorType    string
}

type ModelCallRepo struct {
	db *DB
}

func NewModelCallRepo(db *DB) *ModelCallRepo {
	return &ModelCallRepo{db: db}
}

func (r *ModelCallRepo) Insert(ctx context.Context, rec ModelCallRecord) error {
	_, err := r.db.Pool.Exec(ctx, `
INSERT INTO model_calls (call_id, operation, video_id, provider_name, model, status, error_type)
VALUES (COALESCE(NULLIF($1,'')::uuid, gen_random_uuid()), $2, NULLIF($3,'')::uuid, $4, $5, $6, NULLIF($7,''))`,
		rec.CallID, rec.Operation, rec.VideoID, rec.ProviderName, rec.Model, rec.Status, rec.ErrorType)
	if err != nil {
		return fmt.Errorf("insert model call: %w", err)
	}
	return nil
}
