package screenings

import (
	"context"
	"database/sql"
	"errors"
)

// PGRepo implements Repo using Postgres.
type PGRepo struct {
	DB *sql.DB
}

// Create inserts a new screening.
func (r *PGRepo) Create(ctx context.Context, s Screening) error {
	const query = `
INSERT INTO screenings (token, recording_id, language_code, status, label, probability, error_message, created_at, started_at, completed_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`
	_, err := r.DB.ExecContext(ctx, query,
		s.Token,
		s.RecordingID,
		s.LanguageCode,
		s.Status,
		nullString(s.Label),
		nullFloat(s.Label, s.Probability),
		s.ErrorMessage,
		s.CreatedAt,
		s.StartedAt,
		s.CompletedAt,
		s.UpdatedAt,
	)
	return err
}

// GetByToken returns a screening by its session token.
func (r *PGRepo) GetByToken(ctx context.Context, token string) (Screening, error) {
	const query = selectColumns + ` WHERE token = $1`
	return r.scanOne(r.DB.QueryRowContext(ctx, query, token))
}

// Latest returns the most recently created screening.
func (r *PGRepo) Latest(ctx context.Context) (Screening, error) {
	const query = selectColumns + ` ORDER BY created_at DESC LIMIT 1`
	return r.scanOne(r.DB.QueryRowContext(ctx, query))
}

// UpdateStatus applies a status transition and maintains timestamps in SQL.
// Terminal statuses are final: the WHERE clause refuses to move a screening
// out of completed, failed or cancelled, and a lost race surfaces as
// ErrTerminal so callers can abandon their transition.
func (r *PGRepo) UpdateStatus(ctx context.Context, token string, update StatusUpdate) error {
	const query = `
UPDATE screenings SET
	status = $2,
	label = CASE WHEN $3::boolean THEN $4 ELSE label END,
	probability = CASE WHEN $3::boolean THEN $5 ELSE probability END,
	error_message = COALESCE($6, error_message),
	started_at = CASE WHEN $2 = 'processing' AND started_at IS NULL THEN now() ELSE started_at END,
	completed_at = CASE WHEN $2 IN ('completed', 'failed', 'cancelled') AND completed_at IS NULL THEN now() ELSE completed_at END,
	updated_at = now()
WHERE token = $1 AND status NOT IN ('completed', 'failed', 'cancelled')`
	res, err := r.DB.ExecContext(ctx, query,
		token,
		update.Status,
		update.HasResult,
		update.Label,
		update.Probability,
		update.ErrorMessage,
	)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		if _, getErr := r.GetByToken(ctx, token); getErr == nil {
			return ErrTerminal
		}
		return ErrNotFound
	}
	return nil
}

const selectColumns = `
SELECT token, recording_id, language_code, status, label, probability, error_message, created_at, started_at, completed_at, updated_at
FROM screenings`

func (r *PGRepo) scanOne(row *sql.Row) (Screening, error) {
	var (
		s     Screening
		label sql.NullString
		prob  sql.NullFloat64
	)
	err := row.Scan(
		&s.Token,
		&s.RecordingID,
		&s.LanguageCode,
		&s.Status,
		&label,
		&prob,
		&s.ErrorMessage,
		&s.CreatedAt,
		&s.StartedAt,
		&s.CompletedAt,
		&s.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return Screening{}, ErrNotFound
	}
	if err != nil {
		return Screening{}, err
	}
	if label.Valid {
		s.Label = label.String
	}
	if prob.Valid {
		s.Probability = prob.Float64
	}
	return s, nil
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullFloat(label string, f float64) any {
	if label == "" {
		return nil
	}
	return f
}

var _ Repo = (*PGRepo)(nil)
