package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gemforge/backend/internal/models"
)

const imageColumns = `id, user_id, job_id, url, is_public, shared_at, created_at`

type ImageRepo struct {
	pool *pgxpool.Pool
}

func NewImageRepo(pool *pgxpool.Pool) *ImageRepo {
	return &ImageRepo{pool: pool}
}

func scanImage(row pgx.Row) (*models.Image, error) {
	var img models.Image
	if err := row.Scan(&img.ID, &img.UserID, &img.JobID, &img.URL, &img.IsPublic, &img.SharedAt, &img.CreatedAt); err != nil {
		return nil, err
	}
	return &img, nil
}

// CreateTx records a generated image. Call within the transaction that finishes the job.
func (r *ImageRepo) CreateTx(ctx context.Context, tx pgx.Tx, img *models.Image) error {
	return tx.QueryRow(ctx, `
		INSERT INTO images (id, user_id, job_id, url, is_public)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at
	`, img.ID, img.UserID, img.JobID, img.URL, img.IsPublic).Scan(&img.CreatedAt)
}

func (r *ImageRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Image, error) {
	return scanImage(r.pool.QueryRow(ctx, `SELECT `+imageColumns+` FROM images WHERE id = $1`, id))
}

// GetByIDForUpdate locks the image row so two shares of the same image serialize.
func (r *ImageRepo) GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*models.Image, error) {
	return scanImage(tx.QueryRow(ctx, `SELECT `+imageColumns+` FROM images WHERE id = $1 FOR UPDATE`, id))
}

// MarkPublic flips a private image to public. updated is false when it was already public.
func (r *ImageRepo) MarkPublic(ctx context.Context, tx pgx.Tx, id uuid.UUID) (updated bool, err error) {
	tag, err := tx.Exec(ctx, `
		UPDATE images SET is_public = true, shared_at = now()
		WHERE id = $1 AND is_public = false
	`, id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (r *ImageRepo) ListByUser(ctx context.Context, userID uuid.UUID) ([]*models.Image, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+imageColumns+`
		FROM images WHERE user_id = $1
		ORDER BY created_at DESC
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []*models.Image
	for rows.Next() {
		img, err := scanImage(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, img)
	}
	return list, rows.Err()
}
