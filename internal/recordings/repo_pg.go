package recordings

import (
	"context"
	"database/sql"
	"errors"
)

// PGRepo implements Repo using Postgres.
type PGRepo struct {
	DB *sql.DB
}

// Create inserts a new recording.
func (r *PGRepo) Create(ctx context.Context, rec Recording) error {
	const query = `
INSERT INTO recordings (id, session_token, file_name, mime_type, size_bytes, language_code, storage_key, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	_, err := r.DB.ExecContext(ctx, query,
		rec.ID,
		rec.SessionToken,
		rec.FileName,
		rec.MimeType,
		rec.SizeBytes,
		rec.LanguageCode,
		rec.StorageKey,
		rec.CreatedAt,
	)
	return err
}

// GetByID returns a recording by its ID.
func (r *PGRepo) GetByID(ctx context.Context, recordingID string) (Recording, error) {
	const query = `
SELECT id, session_token, file_name, mime_type, size_bytes, language_code, storage_key, created_at
FROM recordings WHERE id = $1`
	var rec Recording
	err := r.DB.QueryRowContext(ctx, query, recordingID).Scan(
		&rec.ID,
		&rec.SessionToken,
		&rec.FileName,
		&rec.MimeType,
		&rec.SizeBytes,
		&rec.LanguageCode,
		&rec.StorageKey,
		&rec.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return Recording{}, ErrNotFound
	}
	if err != nil {
		return Recording{}, err
	}
	return rec, nil
}

// Delete removes a recording row.
func (r *PGRepo) Delete(ctx context.Context, recordingID string) error {
	_, err := r.DB.ExecContext(ctx, `DELETE FROM recordings WHERE id = $1`, recordingID)
	return err
}

var _ Repo = (*PGRepo)(nil)
